// Package config loads and validates the YAML configuration shared by the
// agent and store binaries.
package config

import (
	"fmt"
	"os"
	"time"

	"gopkg.in/yaml.v3"

	"github.com/Artic67/iot-labs/internal/ports"
)

type Config struct {
	Agent   AgentConfig   `yaml:"agent"`
	Store   StoreConfig   `yaml:"store"`
	Metrics MetricsConfig `yaml:"metrics"`
}

// AgentConfig drives the edge binary: where samples come from, how they are
// buffered, and where batches are delivered.
type AgentConfig struct {
	UserID           int64         `yaml:"user_id"`
	AccelerometerCSV string        `yaml:"accelerometer_csv"`
	GPSCSV           string        `yaml:"gps_csv"`
	Interval         time.Duration `yaml:"interval"`
	Endpoint         string        `yaml:"endpoint"`
	WALDir           string        `yaml:"wal_dir"`
	Policy           ports.Policy  `yaml:"policy"`
}

// StoreConfig drives the ingestion binary.
type StoreConfig struct {
	ListenAddr       string `yaml:"listen_addr"`
	Driver           string `yaml:"driver"`
	DSN              string `yaml:"dsn"`
	SubscriberBuffer int    `yaml:"subscriber_buffer"`
}

type MetricsConfig struct {
	Addr string `yaml:"addr"`
}

func Load(path string) (*Config, error) {
	raw, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}

	var cfg Config
	if err := yaml.Unmarshal(raw, &cfg); err != nil {
		return nil, err
	}

	cfg.applyDefaults()
	if err := cfg.validate(); err != nil {
		return nil, err
	}

	return &cfg, nil
}

func (c *Config) applyDefaults() {
	if c.Agent.Interval == 0 {
		c.Agent.Interval = time.Second
	}
	if c.Agent.Endpoint == "" {
		c.Agent.Endpoint = "http://localhost:8000"
	}
	if c.Agent.Policy.FlushThreshold == 0 {
		c.Agent.Policy.FlushThreshold = 64
	}
	if c.Agent.Policy.MaxBufferLen == 0 {
		c.Agent.Policy.MaxBufferLen = 100_000
	}
	if c.Agent.Policy.MaxWALSizeBytes == 0 {
		c.Agent.Policy.MaxWALSizeBytes = 1 << 30
	}
	if c.Agent.Policy.SendTimeout == 0 {
		c.Agent.Policy.SendTimeout = 10 * time.Second
	}
	if c.Agent.Policy.OnBufferFull == "" {
		c.Agent.Policy.OnBufferFull = ports.OnBufferFullReject
	}

	if c.Store.ListenAddr == "" {
		c.Store.ListenAddr = ":8000"
	}
	if c.Store.Driver == "" {
		c.Store.Driver = "sqlite3"
	}
	if c.Store.DSN == "" && c.Store.Driver == "sqlite3" {
		c.Store.DSN = "./data/records.db"
	}
	if c.Store.SubscriberBuffer == 0 {
		c.Store.SubscriberBuffer = 16
	}

	if c.Metrics.Addr == "" {
		c.Metrics.Addr = ":9100"
	}
}

func (c *Config) validate() error {
	if c.Agent.UserID < 0 {
		return fmt.Errorf("agent.user_id must be >= 0")
	}
	if c.Agent.Interval < 0 {
		return fmt.Errorf("agent.interval must be positive")
	}
	switch c.Agent.Policy.OnBufferFull {
	case ports.OnBufferFullReject, ports.OnBufferFullDropOldest:
	default:
		return fmt.Errorf("agent.policy.on_buffer_full: unknown policy %q", c.Agent.Policy.OnBufferFull)
	}
	if c.Agent.Policy.FlushThreshold < 1 {
		return fmt.Errorf("agent.policy.flush_threshold must be >= 1")
	}

	switch c.Store.Driver {
	case "sqlite3", "postgres":
	default:
		return fmt.Errorf("store.driver: unknown driver %q", c.Store.Driver)
	}
	if c.Store.DSN == "" {
		return fmt.Errorf("store.dsn is required for driver %q", c.Store.Driver)
	}
	if c.Metrics.Addr == "" {
		return fmt.Errorf("metrics.addr is required")
	}
	return nil
}
