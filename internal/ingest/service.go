package ingest

import (
	"context"
	"fmt"
	"time"

	"github.com/Artic67/iot-labs/internal/domain"
	"github.com/Artic67/iot-labs/internal/ports"
)

// Service accepts batches of processed records, persists them, and fans each
// one out to the producer's live subscribers.
type Service struct {
	store    ports.RecordStore
	registry *Registry
	obs      ports.Observability
}

func NewService(store ports.RecordStore, registry *Registry, obs ports.Observability) *Service {
	return &Service{store: store, registry: registry, obs: obs}
}

// Registry exposes the subscription registry for transports that attach
// subscriber channels.
func (s *Service) Registry() *Registry { return s.registry }

// IngestError reports where a batch stopped. Records before Index were
// persisted and fanned out; the failing record and everything after it were
// not. Partial commit is deliberate: the committed prefix stays committed and
// the caller resubmits only the remainder once corrected.
type IngestError struct {
	Index     int // 0-based position of the failing record
	Committed int
	Err       error
}

func (e *IngestError) Error() string {
	return fmt.Sprintf("record %d: %v (%d prior records committed)", e.Index, e.Err, e.Committed)
}

func (e *IngestError) Unwrap() error { return e.Err }

// Ingest validates, persists, and fans out the batch record by record, in
// order. Each record is notified only after its insert succeeds, so
// subscribers never see a record the store does not hold. The returned slice
// always holds the committed prefix, even alongside an error.
func (s *Service) Ingest(ctx context.Context, batch []domain.RawProcessedAgentData) ([]domain.StoredRecord, error) {
	start := time.Now()
	committed := make([]domain.StoredRecord, 0, len(batch))

	for i, raw := range batch {
		rec, err := raw.Parse()
		if err != nil {
			return committed, &IngestError{Index: i, Committed: len(committed), Err: err}
		}

		stored, err := s.store.Insert(ctx, rec)
		if err != nil {
			return committed, &IngestError{Index: i, Committed: len(committed), Err: fmt.Errorf("persist: %w", err)}
		}
		committed = append(committed, stored)
		s.registry.Notify(stored.UserID, stored)
	}

	s.obs.IncCounter("roadlab_records_ingested_total", float64(len(committed)))
	s.obs.ObserveLatency("roadlab_ingest_latency_seconds", time.Since(start).Seconds())
	return committed, nil
}

// Get, List, Update, and Delete pass through to the record store.

func (s *Service) Get(ctx context.Context, id int64) (domain.StoredRecord, error) {
	return s.store.Get(ctx, id)
}

func (s *Service) List(ctx context.Context) ([]domain.StoredRecord, error) {
	return s.store.List(ctx)
}

func (s *Service) Update(ctx context.Context, id int64, raw domain.RawProcessedAgentData) (domain.StoredRecord, error) {
	rec, err := raw.Parse()
	if err != nil {
		return domain.StoredRecord{}, err
	}
	return s.store.Update(ctx, id, rec)
}

func (s *Service) Delete(ctx context.Context, id int64) (domain.StoredRecord, error) {
	return s.store.Delete(ctx, id)
}
