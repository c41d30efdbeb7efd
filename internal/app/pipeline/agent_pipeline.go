// Package pipeline runs the edge loop: read one sample per tick, classify
// the road surface, and hand the processed record to the forwarder.
package pipeline

import (
	"context"
	"time"

	"github.com/Artic67/iot-labs/internal/classify"
	"github.com/Artic67/iot-labs/internal/domain"
	"github.com/Artic67/iot-labs/internal/ports"
	"github.com/Artic67/iot-labs/pkg/forward"
)

// Agent couples a sample source to a forwarder at a fixed cadence.
type Agent struct {
	src      ports.SampleSource
	fwd      *forward.Forwarder
	interval time.Duration
	obs      ports.Observability
}

func NewAgent(src ports.SampleSource, fwd *forward.Forwarder, interval time.Duration, obs ports.Observability) *Agent {
	if interval <= 0 {
		interval = time.Second
	}
	return &Agent{src: src, fwd: fwd, interval: interval, obs: obs}
}

// Run loops until ctx is cancelled, then closes the forwarder so buffered
// records get a final delivery attempt. A broken source stops the loop; a
// rejected enqueue does not, since the forwarder already accounts for the
// loss.
func (a *Agent) Run(ctx context.Context) error {
	ticker := time.NewTicker(a.interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return a.fwd.Close(context.Background())
		case <-ticker.C:
			sample, err := a.src.Next()
			if err != nil {
				a.obs.LogError("sample source failed", err)
				_ = a.fwd.Close(context.Background())
				return err
			}
			rec := domain.ProcessedAgentData{
				RoadState: classify.RoadState(sample.Accelerometer),
				AgentData: sample,
			}
			if !a.fwd.Enqueue(rec) {
				a.obs.LogError("record rejected by forwarder", nil,
					ports.Field{Key: "user_id", Value: sample.UserID})
			}
		}
	}
}
