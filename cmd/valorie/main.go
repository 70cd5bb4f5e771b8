// Command valorie runs the VLR.gg match notification bot.
package main

import (
	"context"
	"log/slog"
	"os"
	"os/signal"
	"syscall"
	"time"

	gcs "cloud.google.com/go/storage"

	"github.com/jakehlee/valorie/internal/bot"
	"github.com/jakehlee/valorie/internal/config"
	"github.com/jakehlee/valorie/internal/store"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		slog.Error("Failed to load configuration", "error", err)
		os.Exit(1)
	}

	logger := slog.New(slog.NewTextHandler(os.Stdout, &slog.HandlerOptions{Level: cfg.LogLevel}))
	slog.SetDefault(logger)

	logger.Info("Starting VLR.gg match notifier",
		"base_url", cfg.BaseURL,
		"poll_interval", cfg.PollInterval)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	st, cleanup, err := newStore(ctx, cfg, logger)
	if err != nil {
		logger.Error("Failed to initialize storage", "error", err)
		os.Exit(1)
	}
	defer cleanup()

	b, err := bot.New(cfg, st, logger)
	if err != nil {
		logger.Error("Failed to create bot", "error", err)
		os.Exit(1)
	}

	if err := b.Start(ctx); err != nil {
		logger.Error("Failed to start bot", "error", err)
		os.Exit(1)
	}

	logger.Info("Bot is running. Press Ctrl+C to stop.")

	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, syscall.SIGINT, syscall.SIGTERM)
	<-sigChan

	logger.Info("Shutting down...")
	cancel()

	// A fresh context: the cancelled one would abort the watch-party
	// cleanup we are shutting down for.
	stopCtx, stopCancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer stopCancel()
	if err := b.Stop(stopCtx); err != nil {
		logger.Error("Error during shutdown", "error", err)
	}

	logger.Info("Bot stopped")
}

// newStore picks the storage backend: a GCS bucket when configured,
// otherwise a local directory.
func newStore(ctx context.Context, cfg *config.Config, logger *slog.Logger) (*store.Store, func(), error) {
	if cfg.Bucket == "" {
		if err := os.MkdirAll(cfg.LocalStorage, 0o700); err != nil {
			return nil, nil, err
		}
		logger.Info("Using local storage", "path", cfg.LocalStorage)
		return store.New(nil, "", cfg.LocalStorage, logger), func() {}, nil
	}

	client, err := gcs.NewClient(ctx)
	if err != nil {
		return nil, nil, err
	}
	logger.Info("Using Cloud Storage", "bucket", cfg.Bucket)
	cleanup := func() {
		if err := client.Close(); err != nil {
			logger.Warn("Failed to close storage client", "error", err)
		}
	}
	return store.New(client, cfg.Bucket, "", logger), cleanup, nil
}
