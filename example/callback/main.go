package main

import (
	"context"
	"fmt"
	"log"
	"time"

	"github.com/Artic67/iot-labs/pkg/roadlab"
)

func main() {
	flow, err := roadlab.Conf("../../data/config.yaml")
	if err != nil {
		log.Fatalf("load config: %v", err)
	}

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	callback := func(batch []roadlab.ProcessedRecord) error {
		for _, rec := range batch {
			fmt.Printf("%s user=%d state=%s z=%.1f\n",
				rec.AgentData.Timestamp.Format(time.RFC3339Nano),
				rec.AgentData.UserID,
				rec.RoadState,
				rec.AgentData.Accelerometer.Z,
			)
		}
		return nil
	}

	if err := flow.Run(ctx, roadlab.StreamOutCallback("stdout", callback)); err != nil && err != context.Canceled {
		log.Fatalf("runtime error: %v", err)
	}
}
