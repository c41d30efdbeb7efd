package roadlab

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"golang.org/x/sync/errgroup"

	"github.com/Artic67/iot-labs/internal/adapters/observability"
	"github.com/Artic67/iot-labs/internal/adapters/store"
	"github.com/Artic67/iot-labs/internal/ingest"
)

// StoreOption customizes the dependencies used by StoreRuntime.
type StoreOption func(*storeOverrides)

type storeOverrides struct {
	store         RecordStore
	observability Observability
}

// WithRecordStore injects a custom persistence backend.
func WithRecordStore(st RecordStore) StoreOption {
	return func(o *storeOverrides) {
		o.store = st
	}
}

// WithStoreObservability plugs in a custom observability backend.
func WithStoreObservability(obs Observability) StoreOption {
	return func(o *storeOverrides) {
		o.observability = obs
	}
}

// StoreRuntime wires the record store, ingestion service, and HTTP/WebSocket
// transport into one runnable unit.
type StoreRuntime struct {
	cfg *Config
	obs Observability
	st  RecordStore
	svc *ingest.Service

	srv            *http.Server
	metricsSrv     *http.Server
	metricsHandler http.Handler
}

// NewStoreRuntime bootstraps the ingestion service with the configured
// driver (sqlite3 or postgres) and Prometheus observability.
func NewStoreRuntime(cfg *Config, opts ...StoreOption) (*StoreRuntime, error) {
	if cfg == nil {
		return nil, fmt.Errorf("config is required")
	}

	var overrides storeOverrides
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

	st := overrides.store
	if st == nil {
		var err error
		switch cfg.Store.Driver {
		case "postgres":
			st, err = store.OpenPostgres(cfg.Store.DSN)
		case "sqlite3":
			st, err = store.OpenSQLite(cfg.Store.DSN)
		default:
			err = fmt.Errorf("unknown store driver %q", cfg.Store.Driver)
		}
		if err != nil {
			return nil, err
		}
	}

	svc := ingest.NewService(st, ingest.NewRegistry(obs), obs)
	srv := &http.Server{
		Addr:    cfg.Store.ListenAddr,
		Handler: ingest.NewServer(svc, obs, cfg.Store.SubscriberBuffer).Handler(),
	}

	return &StoreRuntime{
		cfg:            cfg,
		obs:            obs,
		st:             st,
		svc:            svc,
		srv:            srv,
		metricsHandler: metricsHandler,
	}, nil
}

// Service exposes the ingestion service for embedders that want to ingest
// records without going through HTTP.
func (s *StoreRuntime) Service() *ingest.Service { return s.svc }

// Run serves the store API and metrics endpoint until ctx is cancelled, then
// shuts both down gracefully and closes the record store.
func (s *StoreRuntime) Run(ctx context.Context) error {
	mux := http.NewServeMux()
	mux.Handle("/metrics", s.metricsHandler)
	s.metricsSrv = &http.Server{Addr: s.cfg.Metrics.Addr, Handler: mux}

	g, ctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		s.obs.LogInfo("store API listening", Field{Key: "addr", Value: s.cfg.Store.ListenAddr})
		if err := s.srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return err
		}
		return nil
	})
	g.Go(func() error {
		if err := s.metricsSrv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return err
		}
		return nil
	})
	g.Go(func() error {
		<-ctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		return errors.Join(
			s.srv.Shutdown(shutdownCtx),
			s.metricsSrv.Shutdown(shutdownCtx),
		)
	})

	err := g.Wait()
	return errors.Join(err, s.st.Close())
}
