// Package config defines the engine's static configuration. Configuration
// is fixed at engine construction; nothing is persisted across restarts.
package config

import (
	"encoding/json"
	"fmt"
	"os"
	"strings"
	"sync"

	"gopkg.in/yaml.v3"
)

// Config represents the complete engine configuration
type Config struct {
	// DefaultWorkerName receives submissions with no worker resolved by
	// any override
	DefaultWorkerName string `json:"default_worker_name" yaml:"default_worker_name"`

	// MaxQueueDepth bounds each worker's queue; 0 means unbounded
	MaxQueueDepth int `json:"max_queue_depth" yaml:"max_queue_depth"`

	// NotificationQueueDepth bounds the bus dispatch queue
	NotificationQueueDepth int `json:"notification_queue_depth" yaml:"notification_queue_depth"`

	// HandlerMemoryBound bounds the bytes of payload a data handler holds
	// in memory before puts block; 0 means unbounded
	HandlerMemoryBound int64 `json:"handler_memory_bound" yaml:"handler_memory_bound"`

	// Metrics configures the optional prometheus endpoint
	Metrics MetricsConfig `json:"metrics" yaml:"metrics"`

	// Gateway configures the optional websocket notification stream
	Gateway GatewayConfig `json:"gateway" yaml:"gateway"`

	// Export configures the optional NATS notification exporter
	Export ExportConfig `json:"export" yaml:"export"`
}

// MetricsConfig configures the prometheus HTTP endpoint
type MetricsConfig struct {
	Enabled bool   `json:"enabled" yaml:"enabled"`
	Port    int    `json:"port" yaml:"port"`
	Path    string `json:"path" yaml:"path"`
}

// GatewayConfig configures the websocket notification gateway
type GatewayConfig struct {
	Enabled bool   `json:"enabled" yaml:"enabled"`
	Addr    string `json:"addr" yaml:"addr"`
	// RatePerSecond caps notifications delivered to each client; 0 means
	// unlimited
	RatePerSecond float64 `json:"rate_per_second" yaml:"rate_per_second"`
}

// ExportConfig configures the NATS notification exporter
type ExportConfig struct {
	Enabled       bool   `json:"enabled" yaml:"enabled"`
	URL           string `json:"url" yaml:"url"`
	SubjectPrefix string `json:"subject_prefix" yaml:"subject_prefix"`
}

// Default returns the engine's default configuration
func Default() Config {
	return Config{
		DefaultWorkerName:      "main",
		MaxQueueDepth:          0,
		NotificationQueueDepth: 1024,
		HandlerMemoryBound:     0,
		Metrics: MetricsConfig{
			Port: 9090,
			Path: "/metrics",
		},
		Gateway: GatewayConfig{
			Addr: "127.0.0.1:8077",
		},
		Export: ExportConfig{
			SubjectPrefix: "exengine.notifications",
		},
	}
}

// ApplyDefaults fills zero-valued fields with defaults
func (c Config) ApplyDefaults() Config {
	def := Default()
	if c.DefaultWorkerName == "" {
		c.DefaultWorkerName = def.DefaultWorkerName
	}
	if c.NotificationQueueDepth == 0 {
		c.NotificationQueueDepth = def.NotificationQueueDepth
	}
	if c.Metrics.Port == 0 {
		c.Metrics.Port = def.Metrics.Port
	}
	if c.Metrics.Path == "" {
		c.Metrics.Path = def.Metrics.Path
	}
	if c.Gateway.Addr == "" {
		c.Gateway.Addr = def.Gateway.Addr
	}
	if c.Export.SubjectPrefix == "" {
		c.Export.SubjectPrefix = def.Export.SubjectPrefix
	}
	return c
}

// Validate checks the configuration for invalid values
func (c Config) Validate() error {
	if c.DefaultWorkerName == "" {
		return fmt.Errorf("default_worker_name must not be empty")
	}
	if c.MaxQueueDepth < 0 {
		return fmt.Errorf("max_queue_depth must be >= 0, got %d", c.MaxQueueDepth)
	}
	if c.NotificationQueueDepth < 0 {
		return fmt.Errorf("notification_queue_depth must be >= 0, got %d", c.NotificationQueueDepth)
	}
	if c.HandlerMemoryBound < 0 {
		return fmt.Errorf("handler_memory_bound must be >= 0, got %d", c.HandlerMemoryBound)
	}
	if c.Metrics.Enabled && (c.Metrics.Port <= 0 || c.Metrics.Port > 65535) {
		return fmt.Errorf("metrics.port must be a valid port, got %d", c.Metrics.Port)
	}
	if c.Gateway.Enabled && c.Gateway.Addr == "" {
		return fmt.Errorf("gateway.addr must be set when the gateway is enabled")
	}
	if c.Export.Enabled && c.Export.URL == "" {
		return fmt.Errorf("export.url must be set when export is enabled")
	}
	return nil
}

// LoadFile reads a configuration file. Files ending in .yaml or .yml are
// parsed as YAML, everything else as JSON. Defaults are applied and the
// result validated.
func LoadFile(path string) (Config, error) {
	raw, err := os.ReadFile(path)
	if err != nil {
		return Config{}, fmt.Errorf("read config file: %w", err)
	}

	var cfg Config
	if strings.HasSuffix(path, ".yaml") || strings.HasSuffix(path, ".yml") {
		if err := yaml.Unmarshal(raw, &cfg); err != nil {
			return Config{}, fmt.Errorf("parse yaml config: %w", err)
		}
	} else {
		if err := json.Unmarshal(raw, &cfg); err != nil {
			return Config{}, fmt.Errorf("parse json config: %w", err)
		}
	}

	cfg = cfg.ApplyDefaults()
	if err := cfg.Validate(); err != nil {
		return Config{}, fmt.Errorf("invalid config: %w", err)
	}
	return cfg, nil
}

// SafeConfig provides thread-safe access to a configuration shared
// between the engine and observability components
type SafeConfig struct {
	mu     sync.RWMutex
	config Config
}

// NewSafeConfig wraps a configuration
func NewSafeConfig(cfg Config) *SafeConfig {
	return &SafeConfig{config: cfg}
}

// Get returns a copy of the current configuration
func (sc *SafeConfig) Get() Config {
	sc.mu.RLock()
	defer sc.mu.RUnlock()
	return sc.config
}

// Update replaces the configuration after validating it
func (sc *SafeConfig) Update(cfg Config) error {
	if err := cfg.Validate(); err != nil {
		return err
	}
	sc.mu.Lock()
	sc.config = cfg
	sc.mu.Unlock()
	return nil
}
