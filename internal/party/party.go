// Package party manages watch-party voice channels as companions to
// match notifications.
package party

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/bwmarrin/discordgo"

	"github.com/jakehlee/valorie/pkg/vlr"
)

// CategoryName is the channel category that holds watch parties. It is
// created lazily the first time a guild needs one.
const CategoryName = "VLR Watch Parties"

// channelAPI is the slice of the Discord REST surface the manager
// needs.
type channelAPI interface {
	GuildChannelCreateComplex(guildID string, data discordgo.GuildChannelCreateData, options ...discordgo.RequestOption) (*discordgo.Channel, error)
	ChannelDelete(channelID string, options ...discordgo.RequestOption) (*discordgo.Channel, error)
	GuildMemberMove(guildID, userID string, channelID *string, options ...discordgo.RequestOption) error
}

// guildStore is the persistence surface the manager needs to track
// which channels it owns.
type guildStore interface {
	Mutate(ctx context.Context, guildID string, fn func(*vlr.GuildConfig) error) error
}

// Manager creates and tears down watch-party voice channels, recording
// ownership in the guild config so restarts and completions can clean
// up exactly the channels this bot created.
type Manager struct {
	api    channelAPI
	state  *discordgo.State
	store  guildStore
	logger *slog.Logger
}

// New wires up a watch-party manager. state may be the session's live
// state; it is only read for voice-channel occupancy during teardown.
func New(api channelAPI, state *discordgo.State, store guildStore, logger *slog.Logger) *Manager {
	return &Manager{api: api, state: state, store: store, logger: logger}
}

// Create ensures a voice channel exists for the match and returns its
// ID. Calling it again for the same match URL returns the existing
// channel instead of creating a duplicate.
func (m *Manager) Create(ctx context.Context, guildID string, d *vlr.MatchDetail) (string, error) {
	var channelID string
	err := m.store.Mutate(ctx, guildID, func(cfg *vlr.GuildConfig) error {
		if id, ok := cfg.VCCreated[d.URL]; ok {
			channelID = id
			return nil
		}

		if cfg.VCCategoryID == "" {
			category, err := m.api.GuildChannelCreateComplex(guildID, discordgo.GuildChannelCreateData{
				Name: CategoryName,
				Type: discordgo.ChannelTypeGuildCategory,
			}, discordgo.WithContext(ctx))
			if err != nil {
				return fmt.Errorf("create watch party category: %w", err)
			}
			cfg.VCCategoryID = category.ID
			m.logger.Info("Watch party category created", "guild_id", guildID, "category_id", category.ID)
		}

		ch, err := m.api.GuildChannelCreateComplex(guildID, discordgo.GuildChannelCreateData{
			Name:     d.MatchupSlug,
			Type:     discordgo.ChannelTypeGuildVoice,
			ParentID: cfg.VCCategoryID,
		}, discordgo.WithContext(ctx))
		if err != nil {
			return fmt.Errorf("create watch party channel: %w", err)
		}

		cfg.VCCreated[d.URL] = ch.ID
		channelID = ch.ID
		m.logger.Info("Watch party created", "guild_id", guildID, "channel_id", ch.ID, "match", d.MatchupSlug)
		return nil
	})
	if err != nil {
		return "", err
	}
	return channelID, nil
}

// Destroy tears down the watch party for a match, first moving any
// occupants to the guild's fallback voice channel. Unknown match URLs
// and already-deleted channels are not errors.
func (m *Manager) Destroy(ctx context.Context, guildID, matchURL string) error {
	return m.store.Mutate(ctx, guildID, func(cfg *vlr.GuildConfig) error {
		id, ok := cfg.VCCreated[matchURL]
		if !ok {
			return nil
		}
		m.teardown(ctx, guildID, cfg.VCDefaultID, id)
		delete(cfg.VCCreated, matchURL)
		return nil
	})
}

// DestroyAll tears down every watch party the bot created in a guild.
// Used when a guild disables the feature and at shutdown.
func (m *Manager) DestroyAll(ctx context.Context, guildID string) error {
	return m.store.Mutate(ctx, guildID, func(cfg *vlr.GuildConfig) error {
		for url, id := range cfg.VCCreated {
			m.teardown(ctx, guildID, cfg.VCDefaultID, id)
			delete(cfg.VCCreated, url)
		}
		return nil
	})
}

// teardown evacuates and deletes one voice channel. Failures are logged
// rather than returned: a member who left mid-move or a channel deleted
// by a moderator must not wedge the bookkeeping.
func (m *Manager) teardown(ctx context.Context, guildID, fallbackID, channelID string) {
	for _, userID := range m.occupants(guildID, channelID) {
		var target *string
		if fallbackID != "" {
			target = &fallbackID
		}
		// A nil target disconnects the member.
		if err := m.api.GuildMemberMove(guildID, userID, target, discordgo.WithContext(ctx)); err != nil {
			m.logger.Warn("Failed to move member out of watch party", "guild_id", guildID, "user_id", userID, "error", err)
		}
	}

	if _, err := m.api.ChannelDelete(channelID, discordgo.WithContext(ctx)); err != nil {
		m.logger.Warn("Failed to delete watch party channel", "guild_id", guildID, "channel_id", channelID, "error", err)
	}
}

// occupants lists members currently connected to a voice channel,
// according to gateway state.
func (m *Manager) occupants(guildID, channelID string) []string {
	guild, err := m.state.Guild(guildID)
	if err != nil {
		return nil
	}
	var users []string
	for _, vs := range guild.VoiceStates {
		if vs.ChannelID == channelID {
			users = append(users, vs.UserID)
		}
	}
	return users
}
