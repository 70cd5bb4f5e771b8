package store

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"testing"

	"github.com/jakehlee/valorie/pkg/vlr"
)

func testStore(t *testing.T) *Store {
	t.Helper()
	return New(nil, "", t.TempDir(), slog.New(slog.NewTextHandler(io.Discard, nil)))
}

func TestSaveLoadRoundTrip(t *testing.T) {
	s := testStore(t)
	ctx := context.Background()

	cfg := vlr.NewGuildConfig("123456789012345678")
	cfg.ChannelID = "42"
	cfg.SubTeams = []string{"Sentinels"}
	cfg.Notified = []string{"https://www.vlr.gg/303087/"}
	cfg.VCCreated = map[string]string{"https://www.vlr.gg/303087/": "999"}

	if err := s.Save(ctx, cfg); err != nil {
		t.Fatalf("Save: %v", err)
	}

	got, err := s.Load(ctx, cfg.GuildID)
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if got.ChannelID != "42" {
		t.Errorf("ChannelID = %q", got.ChannelID)
	}
	if len(got.SubEvents) != 1 || got.SubEvents[0] != vlr.DefaultEvent {
		t.Errorf("SubEvents = %v, want default", got.SubEvents)
	}
	if got.VCCreated["https://www.vlr.gg/303087/"] != "999" {
		t.Errorf("VCCreated = %v", got.VCCreated)
	}
}

func TestLoadMissingGuild(t *testing.T) {
	s := testStore(t)

	_, err := s.Load(context.Background(), "111111111111111111")
	if !errors.Is(err, ErrNotFound) {
		t.Errorf("error = %v, want ErrNotFound", err)
	}
	if !IsNotFound(err) {
		t.Error("IsNotFound should report true")
	}
}

func TestLoadOrInitDefaults(t *testing.T) {
	s := testStore(t)

	cfg, err := s.LoadOrInit(context.Background(), "111111111111111111")
	if err != nil {
		t.Fatalf("LoadOrInit: %v", err)
	}
	if cfg.LeadMinutes != vlr.DefaultLeadMinutes {
		t.Errorf("LeadMinutes = %d, want %d", cfg.LeadMinutes, vlr.DefaultLeadMinutes)
	}
	if len(cfg.SubEvents) != 1 || cfg.SubEvents[0] != vlr.DefaultEvent {
		t.Errorf("SubEvents = %v", cfg.SubEvents)
	}
	if cfg.VCEnabled {
		t.Error("VCEnabled should default to false")
	}
}

func TestMutateReadModifyWrite(t *testing.T) {
	s := testStore(t)
	ctx := context.Background()
	const guildID = "222222222222222222"

	err := s.Mutate(ctx, guildID, func(cfg *vlr.GuildConfig) error {
		cfg.AddNotified("https://www.vlr.gg/1/")
		return nil
	})
	if err != nil {
		t.Fatalf("Mutate: %v", err)
	}

	err = s.Mutate(ctx, guildID, func(cfg *vlr.GuildConfig) error {
		// Must observe the previous mutation's write.
		if !cfg.HasNotified("https://www.vlr.gg/1/") {
			t.Error("second Mutate did not see first write")
		}
		cfg.RemoveNotified("https://www.vlr.gg/1/")
		return nil
	})
	if err != nil {
		t.Fatalf("Mutate: %v", err)
	}

	got, err := s.Load(ctx, guildID)
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if len(got.Notified) != 0 {
		t.Errorf("Notified = %v, want empty", got.Notified)
	}
}

func TestMutateCallbackErrorSkipsSave(t *testing.T) {
	s := testStore(t)
	ctx := context.Background()
	const guildID = "333333333333333333"

	wantErr := errors.New("boom")
	err := s.Mutate(ctx, guildID, func(*vlr.GuildConfig) error { return wantErr })
	if !errors.Is(err, wantErr) {
		t.Fatalf("Mutate error = %v, want %v", err, wantErr)
	}

	if _, err := s.Load(ctx, guildID); !IsNotFound(err) {
		t.Error("failed mutation should not have persisted anything")
	}
}

func TestLegacyVCCreatedListMigration(t *testing.T) {
	s := testStore(t)
	ctx := context.Background()
	const guildID = "444444444444444444"

	// A historical revision stored vc_created as a bare list of channel
	// IDs. Those cannot be torn down by URL, so load resets the field.
	legacy := `{
		"guild_id": "444444444444444444",
		"channel_id": "42",
		"notify_lead": 30,
		"vc_enabled": true,
		"vc_created": ["111", "222"]
	}`
	path := filepath.Join(s.localPath, "guild-"+guildID+".json")
	if err := os.WriteFile(path, []byte(legacy), 0o600); err != nil {
		t.Fatal(err)
	}

	cfg, err := s.Load(ctx, guildID)
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if len(cfg.VCCreated) != 0 {
		t.Errorf("VCCreated = %v, want empty map after migration", cfg.VCCreated)
	}
	if cfg.LeadMinutes != 30 {
		t.Errorf("LeadMinutes = %d, want 30 (other fields untouched)", cfg.LeadMinutes)
	}
	if !cfg.VCEnabled {
		t.Error("VCEnabled lost in migration")
	}
}

func TestList(t *testing.T) {
	s := testStore(t)
	ctx := context.Background()

	for _, id := range []string{"100000000000000001", "100000000000000002"} {
		if err := s.Save(ctx, vlr.NewGuildConfig(id)); err != nil {
			t.Fatal(err)
		}
	}

	configs, err := s.List(ctx)
	if err != nil {
		t.Fatalf("List: %v", err)
	}
	if len(configs) != 2 {
		t.Errorf("List returned %d configs, want 2", len(configs))
	}
}

func TestGuildKeyRejectsUnsafeIDs(t *testing.T) {
	for _, id := range []string{"", "../etc/passwd", "abc", "123/456"} {
		if key := guildKey(id); key != "" {
			t.Errorf("guildKey(%q) = %q, want rejection", id, key)
		}
	}
	if key := guildKey("123456789012345678"); key != "guild-123456789012345678.json" {
		t.Errorf("guildKey valid id = %q", key)
	}
}
