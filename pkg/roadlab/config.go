package roadlab

import (
	"github.com/Artic67/iot-labs/internal/app/config"
)

// Config re-exports the root configuration struct so downstream projects can
// construct or modify it programmatically.
type Config = config.Config

type (
	// AgentConfig drives the edge side: sample feeds, cadence, delivery.
	AgentConfig = config.AgentConfig
	// StoreConfig drives the ingestion service.
	StoreConfig = config.StoreConfig
	// MetricsConfig configures the metrics HTTP server.
	MetricsConfig = config.MetricsConfig
)

// LoadConfig loads YAML from disk using the internal config reader.
func LoadConfig(path string) (*Config, error) {
	return config.Load(path)
}
