package config

import (
	"log/slog"
	"testing"
	"time"

	"github.com/jakehlee/valorie/pkg/vlr"
)

func TestLoadDefaults(t *testing.T) {
	t.Setenv("DISCORD_BOT_TOKEN", "token")

	cfg, err := Load()
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if cfg.BaseURL != vlr.BaseURL {
		t.Errorf("BaseURL = %q", cfg.BaseURL)
	}
	if cfg.PollInterval != 60*time.Second {
		t.Errorf("PollInterval = %v", cfg.PollInterval)
	}
	if cfg.LogLevel != slog.LevelInfo {
		t.Errorf("LogLevel = %v", cfg.LogLevel)
	}
	if cfg.LocalStorage == "" {
		t.Error("LocalStorage should default when no bucket is set")
	}
}

func TestLoadMissingToken(t *testing.T) {
	t.Setenv("DISCORD_BOT_TOKEN", "")

	if _, err := Load(); err == nil {
		t.Fatal("expected error for missing token")
	}
}

func TestLoadOverrides(t *testing.T) {
	t.Setenv("DISCORD_BOT_TOKEN", "token")
	t.Setenv("VLR_BASE_URL", "http://localhost:8080")
	t.Setenv("POLL_INTERVAL_SECONDS", "120")
	t.Setenv("LOG_LEVEL", "debug")
	t.Setenv("STORAGE_BUCKET", "my-bucket")

	cfg, err := Load()
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if cfg.BaseURL != "http://localhost:8080" {
		t.Errorf("BaseURL = %q", cfg.BaseURL)
	}
	if cfg.PollInterval != 2*time.Minute {
		t.Errorf("PollInterval = %v", cfg.PollInterval)
	}
	if cfg.LogLevel != slog.LevelDebug {
		t.Errorf("LogLevel = %v", cfg.LogLevel)
	}
	if cfg.Bucket != "my-bucket" || cfg.LocalStorage != "" {
		t.Errorf("storage = bucket %q local %q, want bucket only", cfg.Bucket, cfg.LocalStorage)
	}
}

func TestLoadRejectsBadInterval(t *testing.T) {
	t.Setenv("DISCORD_BOT_TOKEN", "token")
	t.Setenv("POLL_INTERVAL_SECONDS", "zero")

	if _, err := Load(); err == nil {
		t.Fatal("expected error for non-numeric interval")
	}
}
