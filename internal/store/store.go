// Package store handles persistence of per-guild subscription state.
package store

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"time"

	"cloud.google.com/go/storage"
	"github.com/codeGROOVE-dev/retry"
	"google.golang.org/api/iterator"

	"github.com/jakehlee/valorie/pkg/vlr"
)

// ErrNotFound is returned when a guild has no stored configuration.
var ErrNotFound = errors.New("store: guild config doesn't exist")

// Store persists guild configs as JSON objects, either in a GCS bucket
// (production) or a local directory (development). A store-wide mutex
// serializes read-modify-write cycles so a force update cannot race the
// poll tick on the same guild's notified set.
type Store struct {
	client    *storage.Client
	logger    *slog.Logger
	localPath string
	bucket    string
	mu        sync.Mutex
}

// New creates a new storage handler. If localPath is non-empty the local
// filesystem backend is used and client may be nil.
func New(client *storage.Client, bucket, localPath string, logger *slog.Logger) *Store {
	return &Store{
		client:    client,
		logger:    logger,
		localPath: localPath,
		bucket:    bucket,
	}
}

// guildKey generates the object name for a guild. Guild IDs are Discord
// snowflakes; anything else is rejected to keep paths safe.
func guildKey(guildID string) string {
	if guildID == "" || len(guildID) > 32 {
		return ""
	}
	for _, c := range guildID {
		if c < '0' || c > '9' {
			return ""
		}
	}
	return fmt.Sprintf("guild-%s.json", guildID)
}

// Save writes a guild config.
func (s *Store) Save(ctx context.Context, cfg *vlr.GuildConfig) error {
	key := guildKey(cfg.GuildID)
	if key == "" {
		return fmt.Errorf("invalid guild id %q", cfg.GuildID)
	}

	data, err := json.MarshalIndent(cfg, "", "  ")
	if err != nil {
		return fmt.Errorf("marshal guild config: %w", err)
	}

	// Local filesystem storage
	if s.localPath != "" {
		filePath := filepath.Join(s.localPath, key)
		if err := os.WriteFile(filePath, data, 0o600); err != nil {
			return fmt.Errorf("write to local storage: %w", err)
		}
		s.logger.Debug("Guild config saved to local storage", "path", filePath, "guild_id", cfg.GuildID)
		return nil
	}

	// Cloud Storage with retry logic for reliability
	err = retry.Do(
		func() error {
			w := s.client.Bucket(s.bucket).Object(key).NewWriter(ctx)
			if _, writeErr := w.Write(data); writeErr != nil {
				if closeErr := w.Close(); closeErr != nil {
					s.logger.Warn("Failed to close writer after error", "error", closeErr)
				}
				return fmt.Errorf("write to storage: %w", writeErr)
			}
			if closeErr := w.Close(); closeErr != nil {
				return fmt.Errorf("close storage writer: %w", closeErr)
			}
			return nil
		},
		retry.Attempts(3),
		retry.Delay(time.Second),
		retry.MaxDelay(30*time.Second),
		retry.MaxJitter(5*time.Second),
		retry.Context(ctx),
		retry.OnRetry(func(n uint, retryErr error) {
			s.logger.Info("Retrying save operation after error", "attempt", n, "key", key, "error", retryErr)
		}),
	)
	if err != nil {
		return fmt.Errorf("save after retries: %w", err)
	}

	s.logger.Debug("Guild config saved", "key", key, "guild_id", cfg.GuildID)
	return nil
}

// Load reads a guild config. Returns ErrNotFound when the guild has no
// stored state.
func (s *Store) Load(ctx context.Context, guildID string) (*vlr.GuildConfig, error) {
	key := guildKey(guildID)
	if key == "" {
		return nil, fmt.Errorf("invalid guild id %q", guildID)
	}

	var data []byte

	// Local filesystem storage
	if s.localPath != "" {
		var err error
		data, err = os.ReadFile(filepath.Join(s.localPath, key))
		if err != nil {
			if os.IsNotExist(err) {
				return nil, ErrNotFound
			}
			return nil, fmt.Errorf("read from local storage: %w", err)
		}
	} else {
		// Cloud Storage with retry logic for reliability
		err := retry.Do(
			func() error {
				r, openErr := s.client.Bucket(s.bucket).Object(key).NewReader(ctx)
				if openErr != nil {
					if errors.Is(openErr, storage.ErrObjectNotExist) {
						return retry.Unrecoverable(ErrNotFound)
					}
					return fmt.Errorf("open storage reader: %w", openErr)
				}
				defer func() {
					if closeErr := r.Close(); closeErr != nil {
						s.logger.Warn("Failed to close storage reader", "error", closeErr)
					}
				}()

				var readErr error
				data, readErr = io.ReadAll(r)
				if readErr != nil {
					return fmt.Errorf("read from storage: %w", readErr)
				}
				return nil
			},
			retry.Attempts(3),
			retry.Delay(time.Second),
			retry.MaxDelay(30*time.Second),
			retry.MaxJitter(5*time.Second),
			retry.Context(ctx),
			retry.OnRetry(func(n uint, retryErr error) {
				s.logger.Info("Retrying load operation after error", "attempt", n, "key", key, "error", retryErr)
			}),
		)
		if err != nil {
			if errors.Is(err, ErrNotFound) {
				return nil, ErrNotFound
			}
			return nil, fmt.Errorf("load after retries: %w", err)
		}
	}

	return decodeGuild(data, s.logger)
}

// LoadOrInit reads a guild config, returning a fresh default config when
// none is stored yet.
func (s *Store) LoadOrInit(ctx context.Context, guildID string) (*vlr.GuildConfig, error) {
	cfg, err := s.Load(ctx, guildID)
	if errors.Is(err, ErrNotFound) {
		return vlr.NewGuildConfig(guildID), nil
	}
	return cfg, err
}

// Mutate performs an atomic read-modify-write on a guild's config. The
// store mutex makes concurrent mutations (poll tick vs. force update vs.
// command handler) observe each other's writes.
func (s *Store) Mutate(ctx context.Context, guildID string, fn func(*vlr.GuildConfig) error) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	cfg, err := s.LoadOrInit(ctx, guildID)
	if err != nil {
		return err
	}
	if err := fn(cfg); err != nil {
		return err
	}
	return s.Save(ctx, cfg)
}

// Delete removes a guild's stored config.
func (s *Store) Delete(ctx context.Context, guildID string) error {
	key := guildKey(guildID)
	if key == "" {
		return fmt.Errorf("invalid guild id %q", guildID)
	}

	if s.localPath != "" {
		if err := os.Remove(filepath.Join(s.localPath, key)); err != nil && !os.IsNotExist(err) {
			return fmt.Errorf("delete from local storage: %w", err)
		}
		return nil
	}

	err := retry.Do(
		func() error {
			if deleteErr := s.client.Bucket(s.bucket).Object(key).Delete(ctx); deleteErr != nil {
				// Deletion is idempotent
				if errors.Is(deleteErr, storage.ErrObjectNotExist) {
					return nil
				}
				return fmt.Errorf("delete from storage: %w", deleteErr)
			}
			return nil
		},
		retry.Attempts(3),
		retry.Delay(time.Second),
		retry.MaxDelay(30*time.Second),
		retry.MaxJitter(5*time.Second),
		retry.Context(ctx),
		retry.OnRetry(func(n uint, retryErr error) {
			s.logger.Info("Retrying delete operation after error", "attempt", n, "key", key, "error", retryErr)
		}),
	)
	if err != nil {
		return fmt.Errorf("delete after retries: %w", err)
	}
	return nil
}

// List returns every stored guild config.
func (s *Store) List(ctx context.Context) ([]*vlr.GuildConfig, error) {
	var configs []*vlr.GuildConfig

	// Local filesystem storage
	if s.localPath != "" {
		entries, err := os.ReadDir(s.localPath)
		if err != nil {
			return nil, fmt.Errorf("read local storage directory: %w", err)
		}

		for _, entry := range entries {
			name := entry.Name()
			if entry.IsDir() || !strings.HasPrefix(name, "guild-") || !strings.HasSuffix(name, ".json") {
				continue
			}
			guildID := strings.TrimSuffix(strings.TrimPrefix(name, "guild-"), ".json")
			cfg, err := s.Load(ctx, guildID)
			if err != nil {
				s.logger.Warn("Failed to load guild config", "file", name, "error", err)
				continue
			}
			configs = append(configs, cfg)
		}
		return configs, nil
	}

	// Cloud Storage
	it := s.client.Bucket(s.bucket).Objects(ctx, &storage.Query{Prefix: "guild-"})
	for {
		attrs, err := it.Next()
		if errors.Is(err, iterator.Done) {
			break
		}
		if err != nil {
			return nil, fmt.Errorf("iterate storage: %w", err)
		}

		guildID := strings.TrimSuffix(strings.TrimPrefix(attrs.Name, "guild-"), ".json")
		cfg, err := s.Load(ctx, guildID)
		if err != nil {
			s.logger.Warn("Failed to load guild config", "key", attrs.Name, "error", err)
			continue
		}
		configs = append(configs, cfg)
	}

	return configs, nil
}

// decodeGuild unmarshals a stored config, migrating legacy shapes. An
// early revision stored vc_created as a list of channel IDs with no URL
// mapping; those entries cannot be torn down by URL, so the field is
// reset once at load rather than special-cased at every access.
func decodeGuild(data []byte, logger *slog.Logger) (*vlr.GuildConfig, error) {
	type rawGuild struct {
		vlr.GuildConfig
		VCCreated json.RawMessage `json:"vc_created"`
	}

	var raw rawGuild
	if err := json.Unmarshal(data, &raw); err != nil {
		return nil, fmt.Errorf("unmarshal guild config: %w", err)
	}

	cfg := raw.GuildConfig
	cfg.VCCreated = map[string]string{}

	trimmed := strings.TrimSpace(string(raw.VCCreated))
	switch {
	case trimmed == "" || trimmed == "null":
	case strings.HasPrefix(trimmed, "["):
		logger.Warn("Migrating legacy vc_created list to map", "guild_id", cfg.GuildID)
	default:
		if err := json.Unmarshal(raw.VCCreated, &cfg.VCCreated); err != nil {
			return nil, fmt.Errorf("unmarshal vc_created: %w", err)
		}
	}

	if cfg.Notified == nil {
		cfg.Notified = []string{}
	}
	if cfg.SubTeams == nil {
		cfg.SubTeams = []string{}
	}
	if cfg.SubEvents == nil {
		cfg.SubEvents = []string{vlr.DefaultEvent}
	}
	if cfg.LeadMinutes <= 0 {
		cfg.LeadMinutes = vlr.DefaultLeadMinutes
	}

	return &cfg, nil
}

// IsNotFound checks if an error indicates a missing guild config.
func IsNotFound(err error) bool {
	return errors.Is(err, ErrNotFound)
}
