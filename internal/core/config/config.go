// Package config provides configuration management for ordergate services.
package config

import "time"

// Config is the full service configuration.
type Config struct {
	Server   ServerConfig
	Database DatabaseConfig
	Schema   SchemaConfig
	Engine   EngineConfig
	Log      LogConfig
}

// ServerConfig holds configuration for the gRPC evaluation API.
type ServerConfig struct {
	Host           string
	Port           int
	RequestTimeout time.Duration
	MetricsAddr    string // empty disables the /metrics endpoint
}

// DatabaseConfig selects the rule and record store.
type DatabaseConfig struct {
	URL string // sqlite://path or postgres://...
}

// SchemaConfig selects the schema registry contents.
type SchemaConfig struct {
	File string // YAML descriptors; empty uses the built-in logistics schema
}

// EngineConfig bounds evaluation work.
type EngineConfig struct {
	MaxConcurrency int
	MaxBatchSize   int
}

// LogConfig configures the slog handler.
type LogConfig struct {
	Level  string
	Format string
}

// Default returns configuration with default values.
func Default() *Config {
	return &Config{
		Server: ServerConfig{
			Host:           "0.0.0.0",
			Port:           50051,
			RequestTimeout: 30 * time.Second,
			MetricsAddr:    ":9090",
		},
		Engine: EngineConfig{
			MaxConcurrency: 8,
			MaxBatchSize:   1000,
		},
		Log: LogConfig{
			Level:  "info",
			Format: "json",
		},
	}
}
