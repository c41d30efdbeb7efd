package roadlab

import (
	"context"
	"testing"
)

func TestConfFromConfigAndStreamBuilder(t *testing.T) {
	cfg := testConfig(t)

	flow, err := ConfFromConfig(cfg)
	if err != nil {
		t.Fatalf("ConfFromConfig returned error: %v", err)
	}
	if flow.Config() != cfg {
		t.Fatalf("expected Config to be returned verbatim")
	}

	src := &stubSource{}

	rt, err := flow.
		StreamIN(
			StreamInSource(src),
			StreamInWAL(&stubWAL{}),
			StreamInObservability(&stubObservability{}),
		).
		StreamOUT(
			StreamOutSink(&stubSink{}),
			StreamOutObservability(&stubObservability{}),
		)
	if err != nil {
		t.Fatalf("StreamOUT returned error: %v", err)
	}
	if rt.src != src {
		t.Fatalf("expected custom source to be wired")
	}
}

func TestConfFromConfigNil(t *testing.T) {
	if _, err := ConfFromConfig(nil); err == nil {
		t.Fatalf("expected error for nil config")
	}
}

func TestFlowRunUsesStreamOutOptions(t *testing.T) {
	cfg := testConfig(t)
	cfg.Agent.WALDir = ""

	flow, err := ConfFromConfig(cfg)
	if err != nil {
		t.Fatalf("ConfFromConfig returned error: %v", err)
	}

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	// Stop immediately; the run should still wire the overrides and shut
	// down cleanly.
	cancel()
	if err := flow.StreamIN(
		StreamInSource(&stubSource{}),
		StreamInObservability(&stubObservability{}),
	).Run(ctx,
		StreamOutSink(&stubSink{}),
	); err != nil && err != context.Canceled {
		t.Fatalf("Run returned unexpected error: %v", err)
	}
}
