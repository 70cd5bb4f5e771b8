// Package config loads runtime configuration from the environment.
package config

import (
	"fmt"
	"log/slog"
	"os"
	"strconv"
	"time"

	"github.com/joho/godotenv"

	"github.com/jakehlee/valorie/pkg/vlr"
)

// Config is the full runtime configuration.
type Config struct {
	BotToken     string
	BaseURL      string
	PollInterval time.Duration
	Bucket       string
	LocalStorage string
	LogLevel     slog.Level
}

// Load reads configuration from a .env file if present, then the
// process environment. The bot token is the only required value.
func Load() (*Config, error) {
	// A missing .env is fine; deployments set real environment variables.
	_ = godotenv.Load()

	cfg := &Config{
		BotToken:     os.Getenv("DISCORD_BOT_TOKEN"),
		BaseURL:      envOr("VLR_BASE_URL", vlr.BaseURL),
		Bucket:       os.Getenv("STORAGE_BUCKET"),
		LocalStorage: os.Getenv("LOCAL_STORAGE"),
		PollInterval: 60 * time.Second,
		LogLevel:     slog.LevelInfo,
	}

	if cfg.BotToken == "" {
		return nil, fmt.Errorf("DISCORD_BOT_TOKEN is not set")
	}

	if raw := os.Getenv("POLL_INTERVAL_SECONDS"); raw != "" {
		secs, err := strconv.Atoi(raw)
		if err != nil || secs < 1 {
			return nil, fmt.Errorf("invalid POLL_INTERVAL_SECONDS %q", raw)
		}
		cfg.PollInterval = time.Duration(secs) * time.Second
	}

	if raw := os.Getenv("LOG_LEVEL"); raw != "" {
		if err := cfg.LogLevel.UnmarshalText([]byte(raw)); err != nil {
			return nil, fmt.Errorf("invalid LOG_LEVEL %q: %w", raw, err)
		}
	}

	// Default to local storage when no bucket is configured so the bot
	// runs out of the box in development.
	if cfg.Bucket == "" && cfg.LocalStorage == "" {
		cfg.LocalStorage = "./data"
	}

	return cfg, nil
}

func envOr(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}
