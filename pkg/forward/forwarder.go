// Package forward implements the buffered, fault-tolerant delivery of
// processed records to the store API. Records accumulate client-side and are
// flushed in batches once a configured threshold is reached; a failed
// delivery retains the buffer unchanged so nothing unacknowledged is ever
// lost. An optional write-ahead log extends the same guarantee across
// restarts.
package forward

import (
	"context"
	"errors"
	"sync"
	"sync/atomic"
	"time"

	"github.com/Artic67/iot-labs/internal/adapters/observability"
	"github.com/Artic67/iot-labs/internal/adapters/queue"
	"github.com/Artic67/iot-labs/internal/domain"
	"github.com/Artic67/iot-labs/internal/ports"
)

// Option customizes a Forwarder.
type Option func(*Forwarder)

// WithWAL makes the buffer durable: records are logged before buffering,
// committed on acknowledged delivery, and replayed into the buffer on
// construction.
func WithWAL(w ports.WAL) Option {
	return func(f *Forwarder) { f.wal = w }
}

// WithBuffer swaps the in-memory buffer implementation.
func WithBuffer(b ports.RecordBuffer) Option {
	return func(f *Forwarder) { f.buf = b }
}

// WithObservability plugs in a metrics/logging backend.
func WithObservability(obs ports.Observability) Option {
	return func(f *Forwarder) { f.obs = obs }
}

// Forwarder decouples producer cadence from network delivery cadence.
// Enqueue and Flush are safe for concurrent use; at most one flush is in
// flight at a time.
type Forwarder struct {
	sink ports.BatchSink
	pol  ports.Policy
	buf  ports.RecordBuffer
	wal  ports.WAL
	obs  ports.Observability

	// flushMu serializes flushes. Threshold-triggered flushes use TryLock:
	// if a flush is already in flight the new records simply ride the next
	// one, so producers are never blocked on the network.
	flushMu sync.Mutex

	// enqMu serializes admission: overflow handling, the WAL append and
	// the buffer insert happen as one step, and Close flips closed under
	// the same lock so a racing Enqueue is either fully buffered before
	// the final flush or refused.
	enqMu  sync.Mutex
	closed atomic.Bool
}

// New builds a forwarder delivering to sink under the given policy. If the
// policy's FlushThreshold is not positive it defaults to 1 (flush on every
// record); a zero SendTimeout defaults to 10 seconds.
func New(sink ports.BatchSink, pol ports.Policy, opts ...Option) (*Forwarder, error) {
	if pol.FlushThreshold <= 0 {
		pol.FlushThreshold = 1
	}
	if pol.SendTimeout <= 0 {
		pol.SendTimeout = 10 * time.Second
	}
	if pol.OnBufferFull == "" {
		pol.OnBufferFull = ports.OnBufferFullReject
	}

	f := &Forwarder{sink: sink, pol: pol}
	for _, opt := range opts {
		if opt != nil {
			opt(f)
		}
	}
	if f.buf == nil {
		f.buf = queue.NewMemBuffer(pol.MaxBufferLen)
	}
	if f.obs == nil {
		f.obs = observability.Nop{}
	}

	if f.wal != nil {
		if err := f.replayWAL(); err != nil {
			return nil, err
		}
	}
	return f, nil
}

// errReplayBufferFull stops WAL iteration once the buffer is at capacity;
// the remaining entries stay uncommitted for a later run.
var errReplayBufferFull = errors.New("replay buffer full")

// replayWAL loads unacknowledged records from a previous run back into the
// buffer, preserving append order. A backlog larger than the buffer is
// replayed up to capacity; the remainder stays in the WAL and is picked up
// on the next restart.
func (f *Forwarder) replayWAL() error {
	stats := f.wal.Stats()
	if stats.LatestAppended == 0 || stats.OldestUncommitted > stats.LatestAppended {
		return nil
	}

	var replayed int
	err := f.wal.Iterate(stats.OldestUncommitted, func(id ports.WALEntryID, rec domain.ProcessedAgentData) error {
		if !f.buf.Enqueue(id, rec) {
			return errReplayBufferFull
		}
		replayed++
		return nil
	})
	if errors.Is(err, errReplayBufferFull) {
		f.obs.LogInfo("wal backlog exceeds buffer capacity, remainder deferred",
			ports.Field{Key: "replayed", Value: replayed})
		err = nil
	}
	if err != nil {
		return err
	}
	if replayed > 0 {
		f.obs.LogInfo("wal replay complete",
			ports.Field{Key: "records", Value: replayed},
			ports.Field{Key: "from_id", Value: stats.OldestUncommitted})
	}
	return nil
}

// Enqueue appends a record to the buffer and reports whether it was
// accepted. Reaching the flush threshold triggers a delivery attempt.
// False means the forwarder is closed or the record was refused by the
// overflow policy; refused records are counted, never silently lost.
func (f *Forwarder) Enqueue(rec domain.ProcessedAgentData) bool {
	f.enqMu.Lock()
	if f.closed.Load() {
		f.enqMu.Unlock()
		return false
	}

	if f.wal != nil && f.pol.MaxWALSizeBytes > 0 && f.wal.Stats().SizeBytes >= f.pol.MaxWALSizeBytes {
		f.enqMu.Unlock()
		f.obs.RecordLoss("wal_full", rec, domain.ErrWALFull)
		return false
	}

	// Overflow is resolved before the WAL append: a record the policy
	// refuses must leave no uncommitted WAL entry behind, or replay would
	// resurrect it on the next run.
	if c := f.buf.Cap(); c > 0 && f.buf.Len() >= c {
		if f.pol.OnBufferFull != ports.OnBufferFullDropOldest {
			f.enqMu.Unlock()
			f.obs.RecordLoss("buffer_full", rec, domain.ErrBufferFull)
			return false
		}
		if evicted, ok := f.buf.EvictOldest(); ok {
			f.obs.RecordLoss("buffer_full_drop_oldest", evicted.Record, domain.ErrBufferFull)
			if f.wal != nil {
				// The evicted record is the oldest uncommitted entry, so
				// committing it keeps the WAL from resurrecting it on replay.
				if err := f.wal.Commit(evicted.ID); err != nil {
					f.obs.LogError("wal commit failed", err)
				}
			}
		}
	}

	var id ports.WALEntryID
	if f.wal != nil {
		var err error
		id, err = f.wal.Append(rec)
		if err != nil {
			f.enqMu.Unlock()
			f.obs.LogError("wal append failed", err)
			return false
		}
	}
	if !f.buf.Enqueue(id, rec) {
		f.enqMu.Unlock()
		f.obs.RecordLoss("buffer_full", rec, domain.ErrBufferFull)
		return false
	}
	f.enqMu.Unlock()

	f.obs.IncCounter("roadlab_records_enqueued_total", 1)
	f.obs.SetGauge("roadlab_buffer_length", float64(f.buf.Len()))

	if f.buf.Len() >= f.pol.FlushThreshold && f.flushMu.TryLock() {
		defer f.flushMu.Unlock()
		if err := f.flushLocked(context.Background()); err != nil {
			f.obs.LogError("automatic flush failed", err,
				ports.Field{Key: "buffered", Value: f.buf.Len()})
		}
	}
	return true
}

// Flush delivers the entire current buffer as one batch. On success the
// delivered records leave the buffer; on failure the buffer is retained
// unchanged and the error describes whether a retry can succeed.
func (f *Forwarder) Flush(ctx context.Context) error {
	f.flushMu.Lock()
	defer f.flushMu.Unlock()
	return f.flushLocked(ctx)
}

func (f *Forwarder) flushLocked(ctx context.Context) error {
	batch := f.buf.Peek(0)
	if len(batch) == 0 {
		return nil
	}

	records := make([]domain.ProcessedAgentData, len(batch))
	var maxID ports.WALEntryID
	for i, item := range batch {
		records[i] = item.Record
		if item.ID > maxID {
			maxID = item.ID
		}
	}

	sendCtx, cancel := context.WithTimeout(ctx, f.pol.SendTimeout)
	defer cancel()

	start := time.Now()
	if err := f.sink.WriteBatch(sendCtx, records); err != nil {
		// The batch stays buffered; the next flush retries it.
		return err
	}
	f.obs.ObserveLatency("roadlab_flush_latency_seconds", time.Since(start).Seconds())

	f.buf.Discard(len(batch))
	f.obs.IncCounter("roadlab_records_delivered_total", float64(len(batch)))
	f.obs.SetGauge("roadlab_buffer_length", float64(f.buf.Len()))

	if f.wal != nil {
		if err := f.wal.Commit(maxID); err != nil {
			f.obs.LogError("wal commit failed", err)
		}
		if f.buf.Len() == 0 {
			if err := f.wal.TruncateCommitted(); err != nil {
				f.obs.LogError("wal truncate failed", err)
			}
		}
		f.obs.SetGauge("roadlab_wal_size_bytes", float64(f.wal.Stats().SizeBytes))
	}
	return nil
}

// Close attempts a final flush, then releases resources regardless of the
// outcome. Records that could not be delivered remain in the WAL (when
// configured) for replay on the next run.
func (f *Forwarder) Close(ctx context.Context) error {
	// Flipping closed under enqMu fences out late enqueues: anything
	// accepted is already buffered and caught by the final flush below.
	f.enqMu.Lock()
	already := f.closed.Swap(true)
	f.enqMu.Unlock()
	if already {
		return domain.ErrForwarderClosed
	}
	flushErr := f.Flush(ctx)
	if f.wal != nil {
		if err := f.wal.Close(); err != nil && flushErr == nil {
			flushErr = err
		}
	}
	return flushErr
}

// Len reports how many records are buffered awaiting delivery.
func (f *Forwarder) Len() int { return f.buf.Len() }
