package config

import (
	"strings"
	"testing"
	"time"
)

func TestLoadDefaults(t *testing.T) {
	cfg := Load()

	if cfg.Port != "8082" {
		t.Fatalf("expected default port 8082, got %s", cfg.Port)
	}
	if cfg.DetectionWindowMonths != 6 {
		t.Fatalf("expected window 6, got %d", cfg.DetectionWindowMonths)
	}
	if cfg.ProjectionHorizonDays != 90 {
		t.Fatalf("expected horizon 90, got %d", cfg.ProjectionHorizonDays)
	}
	if cfg.DetectionCacheTTL != 5*time.Minute {
		t.Fatalf("expected cache TTL 5m, got %v", cfg.DetectionCacheTTL)
	}
}

func TestLoadEnvOverrides(t *testing.T) {
	t.Setenv("PORT", "9000")
	t.Setenv("DETECTION_WINDOW_MONTHS", "12")
	t.Setenv("WORKER_POLL_INTERVAL", "30s")

	cfg := Load()
	if cfg.Port != "9000" {
		t.Fatalf("expected port 9000, got %s", cfg.Port)
	}
	if cfg.DetectionWindowMonths != 12 {
		t.Fatalf("expected window 12, got %d", cfg.DetectionWindowMonths)
	}
	if cfg.WorkerPollInterval != 30*time.Second {
		t.Fatalf("expected 30s poll interval, got %v", cfg.WorkerPollInterval)
	}
}

func TestValidate(t *testing.T) {
	valid := func() *Config {
		cfg := Load()
		cfg.SQLiteDBPath = t.TempDir() + "/test.db"
		return cfg
	}

	if err := valid().Validate(); err != nil {
		t.Fatalf("default config must validate: %v", err)
	}

	cases := []struct {
		name     string
		mutate   func(*Config)
		contains string
	}{
		{"bad port", func(c *Config) { c.Port = "http" }, "invalid port"},
		{"port out of range", func(c *Config) { c.Port = "70000" }, "invalid port"},
		{"empty db path", func(c *Config) { c.SQLiteDBPath = "" }, "database path"},
		{"bad amqp scheme", func(c *Config) { c.AMQPURL = "http://localhost" }, "AMQP URL scheme"},
		{"empty amqp queue", func(c *Config) { c.AMQPQueue = "" }, "queue name"},
		{"non-hex key", func(c *Config) { c.EncryptionKey = "zz" }, "hex-encoded"},
		{"short key", func(c *Config) { c.EncryptionKey = "abcd" }, "length"},
		{"bad window", func(c *Config) { c.DetectionWindowMonths = 0 }, "detection window"},
		{"bad horizon", func(c *Config) { c.ProjectionHorizonDays = 0 }, "projection horizon"},
		{"bad batch size", func(c *Config) { c.WorkerBatchSize = 0 }, "batch size"},
		{"bad poll interval", func(c *Config) { c.WorkerPollInterval = time.Millisecond }, "poll interval"},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			cfg := valid()
			tc.mutate(cfg)
			err := cfg.Validate()
			if err == nil {
				t.Fatal("expected validation error")
			}
			if !strings.Contains(err.Error(), tc.contains) {
				t.Fatalf("error %q does not mention %q", err, tc.contains)
			}
		})
	}
}
