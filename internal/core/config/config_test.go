package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"
)

func writeConfig(t *testing.T, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "ordergate.yaml")
	if err := os.WriteFile(path, []byte(content), 0o600); err != nil {
		t.Fatal(err)
	}
	return path
}

func TestLoadConfig(t *testing.T) {
	t.Run("defaults", func(t *testing.T) {
		cfg, err := LoadConfig("")
		if err != nil {
			t.Fatalf("LoadConfig failed: %v", err)
		}
		if cfg.Server.Host != "0.0.0.0" {
			t.Errorf("expected host 0.0.0.0, got %s", cfg.Server.Host)
		}
		if cfg.Server.Port != 50051 {
			t.Errorf("expected port 50051, got %d", cfg.Server.Port)
		}
		if cfg.Server.RequestTimeout != 30*time.Second {
			t.Errorf("expected timeout 30s, got %v", cfg.Server.RequestTimeout)
		}
		if cfg.Server.MetricsAddr != ":9090" {
			t.Errorf("expected metrics_addr :9090, got %s", cfg.Server.MetricsAddr)
		}
		if cfg.Engine.MaxConcurrency != 8 {
			t.Errorf("expected max_concurrency 8, got %d", cfg.Engine.MaxConcurrency)
		}
		if cfg.Engine.MaxBatchSize != 1000 {
			t.Errorf("expected max_batch_size 1000, got %d", cfg.Engine.MaxBatchSize)
		}
		if cfg.Log.Level != "info" || cfg.Log.Format != "json" {
			t.Errorf("expected info/json logging, got %s/%s", cfg.Log.Level, cfg.Log.Format)
		}
		if cfg.Database.URL != "" || cfg.Schema.File != "" {
			t.Errorf("expected empty database url and schema file, got %q %q", cfg.Database.URL, cfg.Schema.File)
		}
	})

	t.Run("environment override", func(t *testing.T) {
		t.Setenv("OG_SERVER_PORT", "9999")
		t.Setenv("OG_SERVER_HOST", "127.0.0.1")
		t.Setenv("OG_DATABASE_URL", "postgres://og:secret@db/og")
		t.Setenv("OG_ENGINE_MAX_CONCURRENCY", "32")
		t.Setenv("OG_LOG_FORMAT", "TEXT")

		cfg, err := LoadConfig("")
		if err != nil {
			t.Fatalf("LoadConfig failed: %v", err)
		}
		if cfg.Server.Port != 9999 {
			t.Errorf("expected port 9999, got %d", cfg.Server.Port)
		}
		if cfg.Server.Host != "127.0.0.1" {
			t.Errorf("expected host 127.0.0.1, got %s", cfg.Server.Host)
		}
		if cfg.Database.URL != "postgres://og:secret@db/og" {
			t.Errorf("expected database url from env, got %s", cfg.Database.URL)
		}
		if cfg.Engine.MaxConcurrency != 32 {
			t.Errorf("expected max_concurrency 32, got %d", cfg.Engine.MaxConcurrency)
		}
		if cfg.Log.Format != "text" {
			t.Errorf("expected text format, got %s", cfg.Log.Format)
		}
	})

	t.Run("config file", func(t *testing.T) {
		path := writeConfig(t, `server:
  port: 6000
  request_timeout: 5s
database:
  url: sqlite:///var/lib/ordergate/og.db
schema:
  file: /etc/ordergate/schema.yaml
log:
  level: debug
`)
		cfg, err := LoadConfig(path)
		if err != nil {
			t.Fatalf("LoadConfig failed: %v", err)
		}
		if cfg.Server.Port != 6000 || cfg.Server.RequestTimeout != 5*time.Second {
			t.Errorf("server = %+v", cfg.Server)
		}
		if cfg.Database.URL != "sqlite:///var/lib/ordergate/og.db" {
			t.Errorf("database url = %s", cfg.Database.URL)
		}
		if cfg.Schema.File != "/etc/ordergate/schema.yaml" {
			t.Errorf("schema file = %s", cfg.Schema.File)
		}
		if cfg.Log.Level != "debug" {
			t.Errorf("log level = %s", cfg.Log.Level)
		}
	})

	t.Run("environment beats config file", func(t *testing.T) {
		t.Setenv("OG_SERVER_PORT", "7000")
		cfg, err := LoadConfig(writeConfig(t, "server:\n  port: 6000\n"))
		if err != nil {
			t.Fatalf("LoadConfig failed: %v", err)
		}
		if cfg.Server.Port != 7000 {
			t.Errorf("expected env port 7000, got %d", cfg.Server.Port)
		}
	})

	t.Run("missing config file", func(t *testing.T) {
		if _, err := LoadConfig(filepath.Join(t.TempDir(), "absent.yaml")); err == nil {
			t.Error("expected error for missing config file")
		}
	})

	t.Run("invalid port range", func(t *testing.T) {
		t.Setenv("OG_SERVER_PORT", "70000")
		if _, err := LoadConfig(""); err == nil {
			t.Error("expected error for port > 65535")
		}
	})

	t.Run("invalid non-positive values", func(t *testing.T) {
		for _, key := range []string{"OG_ENGINE_MAX_CONCURRENCY", "OG_ENGINE_MAX_BATCH_SIZE"} {
			t.Run(key, func(t *testing.T) {
				t.Setenv(key, "0")
				if _, err := LoadConfig(""); err == nil {
					t.Errorf("expected error for %s=0", key)
				}
			})
		}
	})

	t.Run("invalid log settings", func(t *testing.T) {
		t.Setenv("OG_LOG_LEVEL", "verbose")
		if _, err := LoadConfig(""); err == nil {
			t.Error("expected error for unknown log level")
		}
	})
}

func TestLoadConfig_RejectsSecretsInFile(t *testing.T) {
	tests := []struct {
		name    string
		content string
		wantErr bool
	}{
		{name: "password in url", content: "database:\n  url: postgres://og:secret@db/og\n", wantErr: true},
		{name: "password key", content: "database:\n  password: secret\n", wantErr: true},
		{name: "user without password", content: "database:\n  url: postgres://og@db/og\n"},
		{name: "sqlite path", content: "database:\n  url: sqlite://og.db\n"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := LoadConfig(writeConfig(t, tt.content))
			if tt.wantErr && err == nil {
				t.Error("expected config file secret to be rejected")
			}
			if !tt.wantErr && err != nil {
				t.Errorf("LoadConfig failed: %v", err)
			}
		})
	}
}

func TestValidate(t *testing.T) {
	cfg := Default()
	if err := Validate(cfg); err != nil {
		t.Fatalf("Default() config invalid: %v", err)
	}

	cfg.Server.RequestTimeout = 0
	if err := Validate(cfg); err == nil {
		t.Error("expected error for zero request timeout")
	}

	cfg = Default()
	cfg.Log.Format = "xml"
	if err := Validate(cfg); err == nil {
		t.Error("expected error for unknown log format")
	}
}
