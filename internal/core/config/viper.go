package config

import (
	"fmt"
	"net/url"
	"strings"

	"github.com/spf13/viper"
)

var validLevels = map[string]bool{"debug": true, "info": true, "warn": true, "error": true}
var validFormats = map[string]bool{"json": true, "text": true}

// LoadConfig loads configuration using viper.
// CLI flags (applied by the caller) > environment > config file > defaults.
// Environment variables use the OG_ prefix with "." replaced by "_", e.g.
// OG_SERVER_PORT or OG_DATABASE_URL.
func LoadConfig(configPath string) (*Config, error) {
	v := viper.New()

	d := Default()
	v.SetDefault("server.host", d.Server.Host)
	v.SetDefault("server.port", d.Server.Port)
	v.SetDefault("server.request_timeout", d.Server.RequestTimeout.String())
	v.SetDefault("server.metrics_addr", d.Server.MetricsAddr)
	v.SetDefault("database.url", "")
	v.SetDefault("schema.file", "")
	v.SetDefault("engine.max_concurrency", d.Engine.MaxConcurrency)
	v.SetDefault("engine.max_batch_size", d.Engine.MaxBatchSize)
	v.SetDefault("log.level", d.Log.Level)
	v.SetDefault("log.format", d.Log.Format)

	v.SetEnvPrefix("OG")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	if configPath != "" {
		v.SetConfigFile(configPath)
		if err := v.ReadInConfig(); err != nil {
			return nil, fmt.Errorf("failed to read config file: %w", err)
		}
	}

	// Credentials are environment-only.
	if err := validateNoSecretsInConfig(configPath); err != nil {
		return nil, err
	}

	cfg := &Config{
		Server: ServerConfig{
			Host:           v.GetString("server.host"),
			Port:           v.GetInt("server.port"),
			RequestTimeout: v.GetDuration("server.request_timeout"),
			MetricsAddr:    v.GetString("server.metrics_addr"),
		},
		Database: DatabaseConfig{URL: v.GetString("database.url")},
		Schema:   SchemaConfig{File: v.GetString("schema.file")},
		Engine: EngineConfig{
			MaxConcurrency: v.GetInt("engine.max_concurrency"),
			MaxBatchSize:   v.GetInt("engine.max_batch_size"),
		},
		Log: LogConfig{
			Level:  strings.ToLower(v.GetString("log.level")),
			Format: strings.ToLower(v.GetString("log.format")),
		},
	}

	if err := Validate(cfg); err != nil {
		return nil, err
	}
	return cfg, nil
}

// Validate checks port range, positive limits and log settings. Callers
// re-run it after applying flag overrides.
func Validate(cfg *Config) error {
	if cfg.Server.Port <= 0 || cfg.Server.Port > 65535 {
		return fmt.Errorf("port must be between 1 and 65535, got %d", cfg.Server.Port)
	}
	if cfg.Server.RequestTimeout <= 0 {
		return fmt.Errorf("request_timeout must be positive, got %v", cfg.Server.RequestTimeout)
	}
	if cfg.Engine.MaxConcurrency <= 0 {
		return fmt.Errorf("max_concurrency must be positive, got %d", cfg.Engine.MaxConcurrency)
	}
	if cfg.Engine.MaxBatchSize <= 0 {
		return fmt.Errorf("max_batch_size must be positive, got %d", cfg.Engine.MaxBatchSize)
	}
	if !validLevels[cfg.Log.Level] {
		return fmt.Errorf("log level must be one of debug, info, warn, error; got %q", cfg.Log.Level)
	}
	if !validFormats[cfg.Log.Format] {
		return fmt.Errorf("log format must be json or text, got %q", cfg.Log.Format)
	}
	return nil
}

// validateNoSecretsInConfig rejects database passwords written in the config
// file (12-factor: secrets come from the environment). Only the file's own
// values are inspected; OG_DATABASE_URL may carry credentials.
func validateNoSecretsInConfig(configPath string) error {
	if configPath == "" {
		return nil
	}
	file := viper.New()
	file.SetConfigFile(configPath)
	if err := file.ReadInConfig(); err != nil {
		return fmt.Errorf("failed to read config file: %w", err)
	}

	if file.IsSet("database.password") {
		return fmt.Errorf("database password not allowed in config files (use OG_DATABASE_URL environment variable)")
	}
	u, err := url.Parse(file.GetString("database.url"))
	if err != nil || u.User == nil {
		return nil
	}
	if _, hasPassword := u.User.Password(); hasPassword {
		return fmt.Errorf("database credentials not allowed in config files (use OG_DATABASE_URL environment variable)")
	}
	return nil
}
