package roadlab

import (
	"context"
	"errors"
	"fmt"
	"sync"
)

// ErrChannelSinkClosed is returned when a channel sink is written to after
// being closed.
var ErrChannelSinkClosed = errors.New("roadlab: channel sink closed")

// RecordBatchSink is invoked with each batch the forwarder delivers.
type RecordBatchSink func([]ProcessedRecord) error

// NewCallbackSink adapts a RecordBatchSink into a full BatchSink so callers
// can plug arbitrary functions without defining structs.
func NewCallbackSink(name string, fn RecordBatchSink) BatchSink {
	if name == "" {
		name = "callback"
	}
	return &callbackSink{name: name, fn: fn}
}

// NewChannelSink exposes batches via a channel; it returns the sink, the
// read-only channel, and a close function the caller should invoke during
// shutdown.
func NewChannelSink(name string, buffer int) (BatchSink, <-chan []ProcessedRecord, func()) {
	if name == "" {
		name = "channel"
	}
	if buffer < 0 {
		buffer = 0
	}
	ch := make(chan []ProcessedRecord, buffer)
	s := &channelSink{
		name:   name,
		ch:     ch,
		closed: make(chan struct{}),
	}
	return s, ch, func() { s.close() }
}

type callbackSink struct {
	name string
	fn   RecordBatchSink
}

func (s *callbackSink) WriteBatch(_ context.Context, batch []ProcessedRecord) error {
	if s.fn == nil {
		return fmt.Errorf("callback sink %q: nil handler", s.name)
	}
	if len(batch) == 0 {
		return nil
	}
	return s.fn(batch)
}

func (s *callbackSink) Name() string { return s.name }

type channelSink struct {
	name   string
	ch     chan []ProcessedRecord
	closed chan struct{}
	once   sync.Once
}

func (s *channelSink) WriteBatch(ctx context.Context, batch []ProcessedRecord) error {
	select {
	case <-s.closed:
		return ErrChannelSinkClosed
	default:
	}

	if len(batch) == 0 {
		return nil
	}

	// Copy so the consumer owns the slice after the forwarder discards it.
	out := make([]ProcessedRecord, len(batch))
	copy(out, batch)

	select {
	case <-s.closed:
		return ErrChannelSinkClosed
	case <-ctx.Done():
		return ctx.Err()
	case s.ch <- out:
		return nil
	}
}

func (s *channelSink) Name() string { return s.name }

func (s *channelSink) close() {
	s.once.Do(func() {
		close(s.closed)
		close(s.ch)
	})
}
