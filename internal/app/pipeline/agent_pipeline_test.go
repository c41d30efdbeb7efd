package pipeline

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/Artic67/iot-labs/internal/adapters/observability"
	"github.com/Artic67/iot-labs/internal/domain"
	"github.com/Artic67/iot-labs/internal/ports"
	"github.com/Artic67/iot-labs/pkg/forward"
)

// stubSource replays a fixed set of samples cyclically, optionally failing
// after one full pass.
type stubSource struct {
	mu          sync.Mutex
	samples     []domain.AgentData
	reads       int
	failAfter   int // 0 means never fail
	errOnceDone error
}

func (s *stubSource) Next() (domain.AgentData, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.failAfter > 0 && s.reads >= s.failAfter {
		return domain.AgentData{}, s.errOnceDone
	}
	sample := s.samples[s.reads%len(s.samples)]
	s.reads++
	return sample, nil
}

func (s *stubSource) Close() error { return nil }

func (s *stubSource) readCount() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.reads
}

// captureSink records every delivered batch and signals each write.
type captureSink struct {
	mu      sync.Mutex
	records []domain.ProcessedAgentData
	wrote   chan struct{}
}

func newCaptureSink() *captureSink {
	return &captureSink{wrote: make(chan struct{}, 16)}
}

func (c *captureSink) WriteBatch(_ context.Context, batch []domain.ProcessedAgentData) error {
	c.mu.Lock()
	c.records = append(c.records, batch...)
	c.mu.Unlock()
	select {
	case c.wrote <- struct{}{}:
	default:
	}
	return nil
}

func (c *captureSink) Name() string { return "capture" }

func (c *captureSink) delivered() []domain.ProcessedAgentData {
	c.mu.Lock()
	defer c.mu.Unlock()
	out := make([]domain.ProcessedAgentData, len(c.records))
	copy(out, c.records)
	return out
}

func sampleWithZ(z float64) domain.AgentData {
	return domain.AgentData{
		UserID:        1,
		Accelerometer: domain.Accelerometer{Z: z},
		GPS:           domain.GPS{Latitude: 50, Longitude: 30},
		Timestamp:     time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC),
	}
}

func TestAgentClassifiesAndForwards(t *testing.T) {
	src := &stubSource{samples: []domain.AgentData{
		sampleWithZ(15000), // normal
		sampleWithZ(13000), // small pits
		sampleWithZ(21000), // large pits
	}}
	sink := newCaptureSink()
	fwd, err := forward.New(sink, ports.Policy{FlushThreshold: 3})
	if err != nil {
		t.Fatalf("forward.New: %v", err)
	}

	ctx, cancel := context.WithCancel(context.Background())
	agent := NewAgent(src, fwd, time.Millisecond, observability.Nop{})
	done := make(chan error, 1)
	go func() { done <- agent.Run(ctx) }()

	select {
	case <-sink.wrote:
	case <-time.After(5 * time.Second):
		t.Fatal("no batch delivered")
	}
	cancel()
	if err := <-done; err != nil {
		t.Fatalf("Run: %v", err)
	}

	got := sink.delivered()
	if len(got) < 3 {
		t.Fatalf("delivered %d records, want at least 3", len(got))
	}
	want := []domain.RoadState{domain.RoadStateNormal, domain.RoadStateSmallPits, domain.RoadStateLargePits}
	for i, state := range want {
		if got[i].RoadState != state {
			t.Fatalf("record %d classified %q, want %q", i, got[i].RoadState, state)
		}
	}
	if got[0].AgentData.UserID != 1 || got[0].AgentData.Accelerometer.Z != 15000 {
		t.Fatalf("record 0 lost its sample data: %+v", got[0])
	}
}

func TestAgentFlushesOnShutdown(t *testing.T) {
	src := &stubSource{samples: []domain.AgentData{sampleWithZ(15000)}}
	sink := newCaptureSink()
	// Threshold far above what the test produces, so only the shutdown
	// flush can deliver.
	fwd, err := forward.New(sink, ports.Policy{FlushThreshold: 1000})
	if err != nil {
		t.Fatalf("forward.New: %v", err)
	}

	ctx, cancel := context.WithCancel(context.Background())
	agent := NewAgent(src, fwd, time.Millisecond, observability.Nop{})
	done := make(chan error, 1)
	go func() { done <- agent.Run(ctx) }()

	deadline := time.Now().Add(5 * time.Second)
	for src.readCount() < 3 {
		if time.Now().After(deadline) {
			t.Fatal("source never read 3 samples")
		}
		time.Sleep(time.Millisecond)
	}
	cancel()
	if err := <-done; err != nil {
		t.Fatalf("Run: %v", err)
	}

	if got := len(sink.delivered()); got < 3 {
		t.Fatalf("shutdown flush delivered %d records, want at least 3", got)
	}
}

func TestAgentStopsOnSourceFailure(t *testing.T) {
	srcErr := errors.New("feed broken")
	src := &stubSource{
		samples:     []domain.AgentData{sampleWithZ(15000)},
		failAfter:   2,
		errOnceDone: srcErr,
	}
	sink := newCaptureSink()
	fwd, err := forward.New(sink, ports.Policy{FlushThreshold: 1000})
	if err != nil {
		t.Fatalf("forward.New: %v", err)
	}

	agent := NewAgent(src, fwd, time.Millisecond, observability.Nop{})
	if err := agent.Run(context.Background()); !errors.Is(err, srcErr) {
		t.Fatalf("Run = %v, want source error", err)
	}
	// Records read before the failure still get a final delivery attempt.
	if got := len(sink.delivered()); got != 2 {
		t.Fatalf("delivered %d records, want 2", got)
	}
}
