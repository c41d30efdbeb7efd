package roadlab

import (
	"context"
	"errors"
	"testing"
	"time"
)

func testRecord(z float64) ProcessedRecord {
	return ProcessedRecord{
		RoadState: RoadStateNormal,
		AgentData: AgentData{
			UserID:        1,
			Accelerometer: Accelerometer{Z: z},
			GPS:           GPS{Latitude: 50, Longitude: 30},
			Timestamp:     time.Unix(1, 0).UTC(),
		},
	}
}

func TestNewCallbackSink(t *testing.T) {
	var received []ProcessedRecord
	sink := NewCallbackSink("cb", func(batch []ProcessedRecord) error {
		received = append(received, batch...)
		return nil
	})

	input := testRecord(15000)
	if err := sink.WriteBatch(context.Background(), []ProcessedRecord{input}); err != nil {
		t.Fatalf("WriteBatch returned error: %v", err)
	}
	if len(received) != 1 {
		t.Fatalf("expected 1 batch entry, got %d", len(received))
	}
	got := received[0]
	if got.RoadState != input.RoadState || got.AgentData.Accelerometer.Z != 15000 {
		t.Fatalf("mismatched record payload: %+v vs %+v", got, input)
	}
}

func TestNewCallbackSinkNilHandler(t *testing.T) {
	sink := NewCallbackSink("", nil)
	if err := sink.WriteBatch(context.Background(), []ProcessedRecord{testRecord(1)}); err == nil {
		t.Fatalf("expected error when callback is nil")
	}
}

func TestNewChannelSink(t *testing.T) {
	sink, ch, closeFn := NewChannelSink("chan", 1)
	defer closeFn()

	input := testRecord(21000)
	errCh := make(chan error, 1)

	go func() {
		errCh <- sink.WriteBatch(context.Background(), []ProcessedRecord{input})
	}()

	var batch []ProcessedRecord
	select {
	case batch = <-ch:
	case <-time.After(time.Second):
		t.Fatal("timed out waiting for channel batch")
	}

	if err := <-errCh; err != nil {
		t.Fatalf("WriteBatch returned error: %v", err)
	}
	if len(batch) != 1 || batch[0].AgentData.Accelerometer.Z != 21000 {
		t.Fatalf("unexpected batch data: %+v", batch)
	}

	closeFn()
	if err := sink.WriteBatch(context.Background(), []ProcessedRecord{input}); !errors.Is(err, ErrChannelSinkClosed) {
		t.Fatalf("expected ErrChannelSinkClosed, got %v", err)
	}
}

func TestChannelSinkHonorsContext(t *testing.T) {
	sink, _, closeFn := NewChannelSink("chan", 0)
	defer closeFn()

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	if err := sink.WriteBatch(ctx, []ProcessedRecord{testRecord(1)}); !errors.Is(err, context.Canceled) {
		t.Fatalf("expected context.Canceled, got %v", err)
	}
}
