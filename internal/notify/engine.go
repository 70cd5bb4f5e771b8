// Package notify decides which guilds get told about which matches and
// sends the notifications.
package notify

import (
	"context"
	"log/slog"
	"sync"

	"github.com/bwmarrin/discordgo"

	"github.com/jakehlee/valorie/internal/cache"
	"github.com/jakehlee/valorie/pkg/vlr"
)

// GuildStore is the subset of the persistence layer the engine needs.
type GuildStore interface {
	List(ctx context.Context) ([]*vlr.GuildConfig, error)
	Mutate(ctx context.Context, guildID string, fn func(*vlr.GuildConfig) error) error
}

// Messenger delivers embeds to a channel.
type Messenger interface {
	Send(ctx context.Context, channelID string, embeds []*discordgo.MessageEmbed) error
}

// Parties manages watch-party voice channels. Create is idempotent per
// match URL and returns the channel ID; Destroy tolerates channels that
// are already gone.
type Parties interface {
	Create(ctx context.Context, guildID string, d *vlr.MatchDetail) (string, error)
	Destroy(ctx context.Context, guildID, matchURL string) error
}

// Engine runs the notification pass over the cached match and result
// lists. A mutex makes runs exclusive so a slash-command force update
// cannot interleave with the poll tick.
type Engine struct {
	mu      sync.Mutex
	cache   *cache.Cache
	fetch   cache.DetailFetch
	guilds  GuildStore
	sender  Messenger
	parties Parties
	logger  *slog.Logger
}

// New wires up a notification engine.
func New(c *cache.Cache, fetch cache.DetailFetch, guilds GuildStore, sender Messenger, parties Parties, logger *slog.Logger) *Engine {
	return &Engine{
		cache:   c,
		fetch:   fetch,
		guilds:  guilds,
		sender:  sender,
		parties: parties,
		logger:  logger,
	}
}

// Run performs one notification pass for every stored guild. Failures
// are contained per guild; one guild's bad channel never starves the
// rest.
func (e *Engine) Run(ctx context.Context) error {
	e.mu.Lock()
	defer e.mu.Unlock()

	matches, _ := e.cache.Matches()
	results, _ := e.cache.Results()

	configs, err := e.guilds.List(ctx)
	if err != nil {
		return err
	}

	for _, cfg := range configs {
		if cfg.ChannelID == "" {
			e.logger.Debug("Guild has no notification channel configured", "guild_id", cfg.GuildID)
			continue
		}
		e.announceUpcoming(ctx, cfg, matches)
		e.resolveCompleted(ctx, cfg, results)
	}
	return nil
}

// announceUpcoming walks the soonest-first match list and notifies every
// subscribed match inside the guild's lead window. The walk stops at the
// first match beyond the window since everything after it starts later
// still; live matches sort above that boundary and are always eligible.
func (e *Engine) announceUpcoming(ctx context.Context, cfg *vlr.GuildConfig, matches []vlr.MatchSummary) {
	for _, m := range matches {
		if m.Status != vlr.StatusLive && vlr.ParseETA(m.ETA) > cfg.LeadMinutes {
			break
		}
		if !vlr.ValidMatchURL(m.URL) || cfg.HasNotified(m.URL) {
			continue
		}
		matched, reason := Match(m, cfg.SubEvents, cfg.SubTeams)
		if !matched {
			continue
		}

		detail, err := e.cache.Detail(ctx, m.URL, e.fetch)
		if err != nil {
			e.logger.Warn("Failed to fetch match detail", "url", m.URL, "error", err)
			continue
		}

		partyID := ""
		if cfg.VCEnabled {
			partyID, err = e.parties.Create(ctx, cfg.GuildID, detail)
			if err != nil {
				// The notification still goes out, just without a
				// watch-party pointer.
				e.logger.Warn("Failed to create watch party", "guild_id", cfg.GuildID, "url", m.URL, "error", err)
				partyID = ""
			}
		}

		if err := e.sender.Send(ctx, cfg.ChannelID, matchEmbeds(m, detail, reason, partyID)); err != nil {
			e.logger.Warn("Failed to send match notification", "guild_id", cfg.GuildID, "url", m.URL, "error", err)
			continue
		}

		// Recorded only after a successful send so a delivery failure is
		// retried next tick rather than silently swallowed.
		if err := e.guilds.Mutate(ctx, cfg.GuildID, func(g *vlr.GuildConfig) error {
			g.AddNotified(m.URL)
			return nil
		}); err != nil {
			e.logger.Error("Failed to record notification", "guild_id", cfg.GuildID, "url", m.URL, "error", err)
			continue
		}
		cfg.AddNotified(m.URL)
		e.logger.Info("Match notification sent", "guild_id", cfg.GuildID, "url", m.URL, "reason", reason)
	}
}

// resolveCompleted sends completion notices for results whose match this
// guild was notified about, then retires the URL and its watch party.
// Subscription filters are deliberately not re-checked here; an unsub
// between notification and completion still gets the closing notice.
func (e *Engine) resolveCompleted(ctx context.Context, cfg *vlr.GuildConfig, results []vlr.ResultSummary) {
	for _, r := range results {
		if !cfg.HasNotified(r.URL) {
			continue
		}

		if err := e.sender.Send(ctx, cfg.ChannelID, []*discordgo.MessageEmbed{resultEmbed(r)}); err != nil {
			e.logger.Warn("Failed to send result notification", "guild_id", cfg.GuildID, "url", r.URL, "error", err)
			continue
		}

		if err := e.guilds.Mutate(ctx, cfg.GuildID, func(g *vlr.GuildConfig) error {
			g.RemoveNotified(r.URL)
			return nil
		}); err != nil {
			e.logger.Error("Failed to retire notification", "guild_id", cfg.GuildID, "url", r.URL, "error", err)
			continue
		}
		cfg.RemoveNotified(r.URL)

		if err := e.parties.Destroy(ctx, cfg.GuildID, r.URL); err != nil {
			e.logger.Warn("Failed to tear down watch party", "guild_id", cfg.GuildID, "url", r.URL, "error", err)
		}
		e.logger.Info("Result notification sent", "guild_id", cfg.GuildID, "url", r.URL)
	}
}
