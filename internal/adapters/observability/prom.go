// Package observability provides the Prometheus-backed implementation of
// the Observability port shared by the agent and store binaries.
package observability

import (
	"log/slog"

	"github.com/prometheus/client_golang/prometheus"

	"github.com/Artic67/iot-labs/internal/domain"
	"github.com/Artic67/iot-labs/internal/ports"
)

// PromObs counts pipeline events in Prometheus and logs through slog.
type PromObs struct {
	counters map[string]prometheus.Counter
	gauges   map[string]prometheus.Gauge
	histos   map[string]prometheus.Observer
	log      *slog.Logger
}

// NewPromObs registers the pipeline metrics with reg. Pass
// prometheus.DefaultRegisterer in binaries; tests use private registries.
func NewPromObs(reg prometheus.Registerer) *PromObs {
	counters := map[string]prometheus.Counter{}
	for name, help := range map[string]string{
		"roadlab_records_enqueued_total":  "Records accepted into the forwarder buffer.",
		"roadlab_records_delivered_total": "Records acknowledged by the store API.",
		"roadlab_records_dropped_total":   "Records lost to buffer overflow policies.",
		"roadlab_records_ingested_total":  "Records persisted by the ingestion service.",
		"roadlab_fanout_delivered_total":  "Records delivered to live subscribers.",
		"roadlab_fanout_evicted_total":    "Subscriptions evicted after a failed send.",
	} {
		counters[name] = prometheus.NewCounter(prometheus.CounterOpts{Name: name, Help: help})
	}

	gauges := map[string]prometheus.Gauge{}
	for name, help := range map[string]string{
		"roadlab_buffer_length":  "Records currently buffered for delivery.",
		"roadlab_wal_size_bytes": "Size of the forwarder WAL on disk.",
		"roadlab_subscribers":    "Currently registered subscriber channels.",
	} {
		gauges[name] = prometheus.NewGauge(prometheus.GaugeOpts{Name: name, Help: help})
	}

	histos := map[string]prometheus.Observer{}
	for name, help := range map[string]string{
		"roadlab_flush_latency_seconds":  "Latency of one batch delivery to the store API.",
		"roadlab_ingest_latency_seconds": "Latency of persisting and fanning out one batch.",
	} {
		h := prometheus.NewHistogram(prometheus.HistogramOpts{
			Name:    name,
			Help:    help,
			Buckets: prometheus.ExponentialBuckets(0.001, 2, 12),
		})
		histos[name] = h
	}

	for _, c := range counters {
		reg.MustRegister(c)
	}
	for _, g := range gauges {
		reg.MustRegister(g)
	}
	for _, h := range histos {
		reg.MustRegister(h.(prometheus.Collector))
	}

	return &PromObs{
		counters: counters,
		gauges:   gauges,
		histos:   histos,
		log:      slog.Default(),
	}
}

func (p *PromObs) LogInfo(msg string, fields ...ports.Field) {
	p.log.Info(msg, slogArgs(fields)...)
}

func (p *PromObs) LogError(msg string, err error, fields ...ports.Field) {
	args := append([]any{"err", err}, slogArgs(fields)...)
	p.log.Error(msg, args...)
}

func (p *PromObs) IncCounter(name string, v float64) {
	if c, ok := p.counters[name]; ok {
		c.Add(v)
	}
}

func (p *PromObs) ObserveLatency(name string, seconds float64) {
	if h, ok := p.histos[name]; ok {
		h.Observe(seconds)
	}
}

func (p *PromObs) SetGauge(name string, v float64) {
	if g, ok := p.gauges[name]; ok {
		g.Set(v)
	}
}

func (p *PromObs) RecordLoss(reason string, rec domain.ProcessedAgentData, err error) {
	p.IncCounter("roadlab_records_dropped_total", 1)
	p.log.Error("record dropped",
		"reason", reason,
		"user_id", rec.AgentData.UserID,
		"err", err,
	)
}

func slogArgs(fields []ports.Field) []any {
	args := make([]any, 0, len(fields)*2)
	for _, f := range fields {
		args = append(args, f.Key, f.Value)
	}
	return args
}

var _ ports.Observability = (*PromObs)(nil)
