package roadlab

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/Artic67/iot-labs/internal/adapters/observability"
	"github.com/Artic67/iot-labs/internal/adapters/sink"
	"github.com/Artic67/iot-labs/internal/adapters/source"
	"github.com/Artic67/iot-labs/internal/adapters/wal"
	"github.com/Artic67/iot-labs/internal/app/pipeline"
	"github.com/Artic67/iot-labs/pkg/forward"
)

// AgentOption customizes the dependencies used by AgentRuntime.
type AgentOption func(*agentOverrides)

type agentOverrides struct {
	source        SampleSource
	sink          BatchSink
	buffer        RecordBuffer
	wal           WAL
	observability Observability
}

// WithSource injects a custom sample source (live sensors, simulators, etc.).
func WithSource(src SampleSource) AgentOption {
	return func(o *agentOverrides) {
		o.source = src
	}
}

// WithSink injects a custom sink so batches can be sent to any API or store.
func WithSink(s BatchSink) AgentOption {
	return func(o *agentOverrides) {
		o.sink = s
	}
}

// WithBuffer swaps the in-memory record buffer implementation.
func WithBuffer(b RecordBuffer) AgentOption {
	return func(o *agentOverrides) {
		o.buffer = b
	}
}

// WithWAL lets callers bring their own WAL implementation or reuse an
// existing instance.
func WithWAL(w WAL) AgentOption {
	return func(o *agentOverrides) {
		o.wal = w
	}
}

// WithObservability plugs in a custom observability backend.
func WithObservability(obs Observability) AgentOption {
	return func(o *agentOverrides) {
		o.observability = obs
	}
}

// AgentRuntime wires up the source → classifier → forwarder → sink pipeline
// and exposes simple lifecycle hooks for embedding the agent in any Go
// service.
type AgentRuntime struct {
	cfg *Config
	obs Observability
	src SampleSource
	fwd *forward.Forwarder

	agent          *pipeline.Agent
	walAdapter     WAL
	metricsHandler http.Handler
	metricsSrv     *http.Server
	gaugeStopCh    chan struct{}
}

// NewAgentRuntime bootstraps the default adapters (CSV sample source, file
// WAL, store API sink, Prometheus observability). AgentOption values override
// any dependency to point the agent at custom sources, sinks, or telemetry
// backends.
func NewAgentRuntime(cfg *Config, opts ...AgentOption) (*AgentRuntime, error) {
	if cfg == nil {
		return nil, fmt.Errorf("config is required")
	}

	var overrides agentOverrides
	for _, opt := range opts {
		if opt != nil {
			opt(&overrides)
		}
	}

	obs := overrides.observability
	metricsHandler := http.Handler(promhttp.Handler())
	if obs == nil {
		reg := prometheus.NewRegistry()
		obs = observability.NewPromObs(reg)
		metricsHandler = promhttp.HandlerFor(reg, promhttp.HandlerOpts{})
	}

	src := overrides.source
	if src == nil {
		var err error
		src, err = source.NewCSVSource(cfg.Agent.UserID, cfg.Agent.AccelerometerCSV, cfg.Agent.GPSCSV)
		if err != nil {
			return nil, err
		}
	}

	snk := overrides.sink
	if snk == nil {
		snk = sink.NewStoreAPISink(cfg.Agent.Endpoint, nil)
	}

	walAdapter := overrides.wal
	if walAdapter == nil && cfg.Agent.WALDir != "" {
		var err error
		walAdapter, err = wal.NewFileWAL(cfg.Agent.WALDir)
		if err != nil {
			return nil, err
		}
	}

	fwdOpts := []forward.Option{forward.WithObservability(obs)}
	if walAdapter != nil {
		fwdOpts = append(fwdOpts, forward.WithWAL(walAdapter))
	}
	if overrides.buffer != nil {
		fwdOpts = append(fwdOpts, forward.WithBuffer(overrides.buffer))
	}
	fwd, err := forward.New(snk, cfg.Agent.Policy, fwdOpts...)
	if err != nil {
		return nil, err
	}

	return &AgentRuntime{
		cfg:            cfg,
		obs:            obs,
		src:            src,
		fwd:            fwd,
		agent:          pipeline.NewAgent(src, fwd, cfg.Agent.Interval, obs),
		walAdapter:     walAdapter,
		metricsHandler: metricsHandler,
	}, nil
}

// Forwarder returns the underlying forwarder so embedders can enqueue
// records produced outside the sample loop.
func (a *AgentRuntime) Forwarder() *forward.Forwarder { return a.fwd }

// Run starts the metrics stack and blocks in the sample loop until the
// provided context is cancelled or the source fails. Buffered records get a
// final delivery attempt before Run returns.
func (a *AgentRuntime) Run(ctx context.Context) error {
	a.startMetrics()
	runErr := a.agent.Run(ctx)

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	return errors.Join(runErr, a.Shutdown(shutdownCtx))
}

// Shutdown stops the metrics server and the sample source.
func (a *AgentRuntime) Shutdown(ctx context.Context) error {
	var errs []error

	if a.gaugeStopCh != nil {
		close(a.gaugeStopCh)
		a.gaugeStopCh = nil
	}
	if a.metricsSrv != nil {
		if err := a.metricsSrv.Shutdown(ctx); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errs = append(errs, err)
		}
		a.metricsSrv = nil
	}
	if a.src != nil {
		if err := a.src.Close(); err != nil {
			errs = append(errs, err)
		}
	}
	return errors.Join(errs...)
}

func (a *AgentRuntime) startMetrics() {
	mux := http.NewServeMux()
	mux.Handle("/metrics", a.metricsHandler)
	mux.HandleFunc("/healthz", func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write([]byte("ok"))
	})

	a.metricsSrv = &http.Server{
		Addr:    a.cfg.Metrics.Addr,
		Handler: mux,
	}

	go func(srv *http.Server) {
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			a.obs.LogError("metrics server exited", err)
		}
	}(a.metricsSrv)

	a.gaugeStopCh = make(chan struct{})
	go a.recordResourceGauges(a.gaugeStopCh, time.Second)
}

func (a *AgentRuntime) recordResourceGauges(stop <-chan struct{}, interval time.Duration) {
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		select {
		case <-stop:
			return
		case <-ticker.C:
			a.obs.SetGauge("roadlab_buffer_length", float64(a.fwd.Len()))
			if a.walAdapter != nil {
				stats := a.walAdapter.Stats()
				a.obs.SetGauge("roadlab_wal_size_bytes", float64(stats.SizeBytes))
			}
		}
	}
}
