// Package bot owns the Discord session, the slash command surface, and
// the lifecycle of the background poll loop.
package bot

import (
	"context"
	"fmt"
	"log/slog"
	"net/http"
	"time"

	"github.com/bwmarrin/discordgo"

	"github.com/jakehlee/valorie/internal/cache"
	"github.com/jakehlee/valorie/internal/config"
	"github.com/jakehlee/valorie/internal/discord"
	"github.com/jakehlee/valorie/internal/notify"
	"github.com/jakehlee/valorie/internal/party"
	"github.com/jakehlee/valorie/internal/poller"
	"github.com/jakehlee/valorie/internal/scraper"
	"github.com/jakehlee/valorie/internal/store"
)

// Bot wires the scraping, caching, notification, and watch-party
// components behind a single Discord session.
type Bot struct {
	cfg      *config.Config
	session  *discordgo.Session
	store    *store.Store
	cache    *cache.Cache
	scraper  *scraper.Scraper
	parties  *party.Manager
	poller   *poller.Poller
	logger   *slog.Logger
	commands []*discordgo.ApplicationCommand
}

// New builds the bot and its component graph. The session is created
// but not opened.
func New(cfg *config.Config, st *store.Store, logger *slog.Logger) (*Bot, error) {
	session, err := discordgo.New("Bot " + cfg.BotToken)
	if err != nil {
		return nil, fmt.Errorf("create session: %w", err)
	}
	// Voice states are needed to evacuate watch parties on teardown.
	session.Identify.Intents = discordgo.IntentsGuilds | discordgo.IntentsGuildVoiceStates

	sc := scraper.New(&http.Client{Timeout: 30 * time.Second}, cfg.BaseURL, logger)
	c := cache.New(logger)
	parties := party.New(session, session.State, st, logger)
	engine := notify.New(c, sc.FetchMatch, st, discord.NewMessenger(session, logger), parties, logger)

	b := &Bot{
		cfg:     cfg,
		session: session,
		store:   st,
		cache:   c,
		scraper: sc,
		parties: parties,
		poller:  poller.New(sc, c, engine, cfg.PollInterval, logger),
		logger:  logger,
	}

	session.AddHandler(b.handleInteraction)
	session.AddHandler(func(_ *discordgo.Session, r *discordgo.Ready) {
		logger.Info("Bot is ready", "user", r.User.Username, "guilds", len(r.Guilds))
	})

	return b, nil
}

// Start opens the gateway connection, registers the slash commands, and
// launches the poll loop.
func (b *Bot) Start(ctx context.Context) error {
	if err := b.session.Open(); err != nil {
		return fmt.Errorf("open gateway connection: %w", err)
	}

	if err := b.registerCommands(); err != nil {
		return fmt.Errorf("register commands: %w", err)
	}

	b.poller.Start(ctx)
	return nil
}

// Stop halts the poll loop, tears down any live watch parties, and
// closes the session. Watch-party subscriptions survive the restart;
// only the ephemeral voice channels are cleaned up.
func (b *Bot) Stop(ctx context.Context) error {
	b.poller.Stop()

	configs, err := b.store.List(ctx)
	if err != nil {
		b.logger.Error("Failed to list guilds for shutdown cleanup", "error", err)
	}
	for _, cfg := range configs {
		if len(cfg.VCCreated) == 0 {
			continue
		}
		if err := b.parties.DestroyAll(ctx, cfg.GuildID); err != nil {
			b.logger.Error("Failed to tear down watch parties", "guild_id", cfg.GuildID, "error", err)
		}
	}

	return b.session.Close()
}

// handleInteraction dispatches slash command interactions.
func (b *Bot) handleInteraction(s *discordgo.Session, i *discordgo.InteractionCreate) {
	if i.Type != discordgo.InteractionApplicationCommand {
		return
	}

	data := i.ApplicationCommandData()
	if data.Name != commandName || i.GuildID == "" {
		return
	}
	b.logger.Debug("Received command", "guild_id", i.GuildID, "options", data.Options)

	if len(data.Options) == 0 {
		return
	}
	top := data.Options[0]

	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	switch top.Name {
	case "config":
		b.handleConfig(ctx, s, i, top)
	case "sub":
		b.handleSub(ctx, s, i, top)
	case "unsub":
		b.handleUnsub(ctx, s, i, top)
	case "vc":
		b.handleVC(ctx, s, i, top)
	case "matches":
		b.handleMatches(ctx, s, i, top)
	case "results":
		b.handleResults(ctx, s, i, top)
	case "update":
		b.handleUpdate(ctx, s, i)
	default:
		b.logger.Warn("Unknown subcommand", "name", top.Name)
	}
}
