package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"log"
	"os/signal"
	"syscall"

	iotlabs "github.com/Artic67/iot-labs"
)

func main() {
	cfgPath := flag.String("config", "./data/config.yaml", "Path to store configuration file")
	flag.Parse()

	if err := run(*cfgPath); err != nil {
		log.Fatalf("store: %v", err)
	}
}

func run(cfgPath string) error {
	cfg, err := iotlabs.LoadConfig(cfgPath)
	if err != nil {
		return fmt.Errorf("load config: %w", err)
	}

	rt, err := iotlabs.NewStoreRuntime(cfg)
	if err != nil {
		return err
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	if err := rt.Run(ctx); err != nil && !errors.Is(err, context.Canceled) {
		return err
	}
	return nil
}
