package main

import (
	"context"
	"fmt"
	"log"
	"time"

	iotlabs "github.com/Artic67/iot-labs"
)

func main() {
	flow, err := iotlabs.Conf("../../data/config.yaml")
	if err != nil {
		log.Fatalf("load config: %v", err)
	}

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	sink, batches, closeBatches := iotlabs.NewChannelSink("fanout", 32)
	defer closeBatches()

	go fanoutWorker("downstream", batches)

	if err := flow.Run(ctx, iotlabs.StreamOutSink(sink)); err != nil && err != context.Canceled {
		log.Fatalf("runtime error: %v", err)
	}
}

func fanoutWorker(name string, batches <-chan []iotlabs.ProcessedRecord) {
	for batch := range batches {
		fmt.Printf("[%s] forwarding %d records at %s\n", name, len(batch), time.Now().Format(time.RFC3339))
	}
}
