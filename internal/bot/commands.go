package bot

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/bwmarrin/discordgo"

	"github.com/jakehlee/valorie/internal/notify"
	"github.com/jakehlee/valorie/pkg/vlr"
)

// commandName is the single top-level slash command everything hangs
// off.
const commandName = "vlr"

// listCap bounds how many entries the list commands render; Discord
// embeds get unwieldy past this.
const listCap = 20

func eventChoices() []*discordgo.ApplicationCommandOptionChoice {
	labels := []string{
		"Champions Tour",
		"Champions Tour Americas",
		"Champions Tour EMEA",
		"Champions Tour Pacific",
		"Champions Tour China",
		"Masters",
		"Champions",
		"Game Changers",
	}
	choices := []*discordgo.ApplicationCommandOptionChoice{
		{Name: "All Events", Value: vlr.EventAll},
	}
	for _, label := range labels {
		choices = append(choices, &discordgo.ApplicationCommandOptionChoice{Name: label, Value: label})
	}
	return choices
}

func commandDefinition() *discordgo.ApplicationCommand {
	return &discordgo.ApplicationCommand{
		Name:        commandName,
		Description: "VLR.gg match notifications",
		Options: []*discordgo.ApplicationCommandOption{
			{
				Type:        discordgo.ApplicationCommandOptionSubCommandGroup,
				Name:        "config",
				Description: "Configure notifications for this server",
				Options: []*discordgo.ApplicationCommandOption{
					{
						Type:        discordgo.ApplicationCommandOptionSubCommand,
						Name:        "channel",
						Description: "Set the channel match notifications are posted to",
						Options: []*discordgo.ApplicationCommandOption{
							{
								Type:         discordgo.ApplicationCommandOptionChannel,
								Name:         "channel",
								Description:  "Target text channel",
								Required:     true,
								ChannelTypes: []discordgo.ChannelType{discordgo.ChannelTypeGuildText},
							},
						},
					},
					{
						Type:        discordgo.ApplicationCommandOptionSubCommand,
						Name:        "leadtime",
						Description: "Set how many minutes before start a match is announced",
						Options: []*discordgo.ApplicationCommandOption{
							{
								Type:        discordgo.ApplicationCommandOptionInteger,
								Name:        "minutes",
								Description: "Lead time in minutes",
								Required:    true,
							},
						},
					},
				},
			},
			{
				Type:        discordgo.ApplicationCommandOptionSubCommandGroup,
				Name:        "sub",
				Description: "Manage subscriptions",
				Options: []*discordgo.ApplicationCommandOption{
					{
						Type:        discordgo.ApplicationCommandOptionSubCommand,
						Name:        "event",
						Description: "Subscribe to an event circuit",
						Options: []*discordgo.ApplicationCommandOption{
							{
								Type:        discordgo.ApplicationCommandOptionString,
								Name:        "event",
								Description: "Event to subscribe to",
								Required:    true,
								Choices:     eventChoices(),
							},
						},
					},
					{
						Type:        discordgo.ApplicationCommandOptionSubCommand,
						Name:        "team",
						Description: "Subscribe to a team by exact name",
						Options: []*discordgo.ApplicationCommandOption{
							{
								Type:        discordgo.ApplicationCommandOptionString,
								Name:        "team",
								Description: "Team name exactly as it appears on VLR.gg",
								Required:    true,
							},
						},
					},
					{
						Type:        discordgo.ApplicationCommandOptionSubCommand,
						Name:        "list",
						Description: "Show this server's subscriptions and settings",
					},
				},
			},
			{
				Type:        discordgo.ApplicationCommandOptionSubCommandGroup,
				Name:        "unsub",
				Description: "Remove subscriptions",
				Options: []*discordgo.ApplicationCommandOption{
					{
						Type:        discordgo.ApplicationCommandOptionSubCommand,
						Name:        "event",
						Description: "Unsubscribe from an event circuit",
						Options: []*discordgo.ApplicationCommandOption{
							{
								Type:        discordgo.ApplicationCommandOptionString,
								Name:        "event",
								Description: "Event to unsubscribe from",
								Required:    true,
								Choices:     eventChoices(),
							},
						},
					},
					{
						Type:        discordgo.ApplicationCommandOptionSubCommand,
						Name:        "team",
						Description: "Unsubscribe from a team",
						Options: []*discordgo.ApplicationCommandOption{
							{
								Type:        discordgo.ApplicationCommandOptionString,
								Name:        "team",
								Description: "Team name to remove",
								Required:    true,
							},
						},
					},
				},
			},
			{
				Type:        discordgo.ApplicationCommandOptionSubCommandGroup,
				Name:        "vc",
				Description: "Watch-party voice channels",
				Options: []*discordgo.ApplicationCommandOption{
					{
						Type:        discordgo.ApplicationCommandOptionSubCommand,
						Name:        "enable",
						Description: "Create a watch-party voice channel with each notification",
						Options: []*discordgo.ApplicationCommandOption{
							{
								Type:         discordgo.ApplicationCommandOptionChannel,
								Name:         "fallback",
								Description:  "Voice channel members are moved to when a party ends",
								Required:     false,
								ChannelTypes: []discordgo.ChannelType{discordgo.ChannelTypeGuildVoice},
							},
						},
					},
					{
						Type:        discordgo.ApplicationCommandOptionSubCommand,
						Name:        "disable",
						Description: "Stop creating watch parties and tear down live ones",
					},
					{
						Type:        discordgo.ApplicationCommandOptionSubCommand,
						Name:        "force",
						Description: "Create a watch party for a specific match",
						Options: []*discordgo.ApplicationCommandOption{
							{
								Type:        discordgo.ApplicationCommandOptionString,
								Name:        "url",
								Description: "VLR.gg match URL",
								Required:    true,
							},
						},
					},
				},
			},
			{
				Type:        discordgo.ApplicationCommandOptionSubCommand,
				Name:        "matches",
				Description: "List upcoming matches",
				Options: []*discordgo.ApplicationCommandOption{
					{
						Type:        discordgo.ApplicationCommandOptionString,
						Name:        "filter",
						Description: "Only show events containing these words",
						Required:    false,
					},
				},
			},
			{
				Type:        discordgo.ApplicationCommandOptionSubCommand,
				Name:        "results",
				Description: "List recent results",
				Options: []*discordgo.ApplicationCommandOption{
					{
						Type:        discordgo.ApplicationCommandOptionString,
						Name:        "filter",
						Description: "Only show events containing these words",
						Required:    false,
					},
				},
			},
			{
				Type:        discordgo.ApplicationCommandOptionSubCommand,
				Name:        "update",
				Description: "Force a poll of VLR.gg right now",
			},
		},
	}
}

// registerCommands registers the slash command tree globally.
func (b *Bot) registerCommands() error {
	registered, err := b.session.ApplicationCommandCreate(b.session.State.User.ID, "", commandDefinition())
	if err != nil {
		return fmt.Errorf("register /%s: %w", commandName, err)
	}
	b.commands = []*discordgo.ApplicationCommand{registered}
	b.logger.Info("Slash commands registered")
	return nil
}

func (b *Bot) handleConfig(ctx context.Context, s *discordgo.Session, i *discordgo.InteractionCreate, group *discordgo.ApplicationCommandInteractionDataOption) {
	if !b.requireManager(s, i) {
		return
	}
	sub := group.Options[0]

	switch sub.Name {
	case "channel":
		channel := sub.Options[0].ChannelValue(s)
		err := b.store.Mutate(ctx, i.GuildID, func(cfg *vlr.GuildConfig) error {
			cfg.ChannelID = channel.ID
			return nil
		})
		if err != nil {
			b.failed(s, i, "save the channel", err)
			return
		}
		b.respond(s, i, fmt.Sprintf("Match notifications will be posted in <#%s>.", channel.ID))

	case "leadtime":
		minutes := int(sub.Options[0].IntValue())
		if minutes < 1 || minutes > 24*60 {
			b.respond(s, i, "Lead time must be between 1 minute and 1 day.")
			return
		}
		err := b.store.Mutate(ctx, i.GuildID, func(cfg *vlr.GuildConfig) error {
			cfg.LeadMinutes = minutes
			return nil
		})
		if err != nil {
			b.failed(s, i, "save the lead time", err)
			return
		}
		b.respond(s, i, fmt.Sprintf("Matches will be announced %d minutes before they start.", minutes))
	}
}

func (b *Bot) handleSub(ctx context.Context, s *discordgo.Session, i *discordgo.InteractionCreate, group *discordgo.ApplicationCommandInteractionDataOption) {
	sub := group.Options[0]

	if sub.Name == "list" {
		b.handleSubList(ctx, s, i)
		return
	}

	if !b.requireManager(s, i) {
		return
	}
	value := sub.Options[0].StringValue()

	var already bool
	err := b.store.Mutate(ctx, i.GuildID, func(cfg *vlr.GuildConfig) error {
		list := &cfg.SubEvents
		if sub.Name == "team" {
			list = &cfg.SubTeams
		}
		for _, existing := range *list {
			if existing == value {
				already = true
				return nil
			}
		}
		*list = append(*list, value)
		return nil
	})
	if err != nil {
		b.failed(s, i, "save the subscription", err)
		return
	}
	if already {
		b.respond(s, i, fmt.Sprintf("Already subscribed to `%s`.", value))
		return
	}
	b.respond(s, i, fmt.Sprintf("Subscribed to `%s`.", value))
}

func (b *Bot) handleUnsub(ctx context.Context, s *discordgo.Session, i *discordgo.InteractionCreate, group *discordgo.ApplicationCommandInteractionDataOption) {
	if !b.requireManager(s, i) {
		return
	}
	sub := group.Options[0]
	value := sub.Options[0].StringValue()

	var removed bool
	err := b.store.Mutate(ctx, i.GuildID, func(cfg *vlr.GuildConfig) error {
		list := &cfg.SubEvents
		if sub.Name == "team" {
			list = &cfg.SubTeams
		}
		for idx, existing := range *list {
			if existing == value {
				*list = append((*list)[:idx], (*list)[idx+1:]...)
				removed = true
				return nil
			}
		}
		return nil
	})
	if err != nil {
		b.failed(s, i, "remove the subscription", err)
		return
	}
	if !removed {
		b.respond(s, i, fmt.Sprintf("Not subscribed to `%s`.", value))
		return
	}
	b.respond(s, i, fmt.Sprintf("Unsubscribed from `%s`.", value))
}

func (b *Bot) handleSubList(ctx context.Context, s *discordgo.Session, i *discordgo.InteractionCreate) {
	cfg, err := b.store.LoadOrInit(ctx, i.GuildID)
	if err != nil {
		b.failed(s, i, "load this server's settings", err)
		return
	}

	channel := "not set"
	if cfg.ChannelID != "" {
		channel = fmt.Sprintf("<#%s>", cfg.ChannelID)
	}
	vcState := "disabled"
	if cfg.VCEnabled {
		vcState = "enabled"
	}

	embed := &discordgo.MessageEmbed{
		Title: "Subscriptions",
		Color: notify.EmbedColor,
		Fields: []*discordgo.MessageEmbedField{
			{Name: "Events", Value: bulletList(cfg.SubEvents), Inline: true},
			{Name: "Teams", Value: bulletList(cfg.SubTeams), Inline: true},
			{
				Name: "Settings",
				Value: fmt.Sprintf("Channel: %s\nLead time: %d minutes\nWatch parties: %s",
					channel, cfg.LeadMinutes, vcState),
			},
		},
	}
	b.respondEmbed(s, i, embed)
}

func (b *Bot) handleVC(ctx context.Context, s *discordgo.Session, i *discordgo.InteractionCreate, group *discordgo.ApplicationCommandInteractionDataOption) {
	if !b.requireManager(s, i) {
		return
	}
	sub := group.Options[0]

	switch sub.Name {
	case "enable":
		fallbackID := ""
		if len(sub.Options) > 0 {
			fallbackID = sub.Options[0].ChannelValue(s).ID
		}
		err := b.store.Mutate(ctx, i.GuildID, func(cfg *vlr.GuildConfig) error {
			cfg.VCEnabled = true
			cfg.VCDefaultID = fallbackID
			return nil
		})
		if err != nil {
			b.failed(s, i, "enable watch parties", err)
			return
		}
		b.respond(s, i, "Watch parties enabled. A voice channel will be created with each match notification.")

	case "disable":
		err := b.store.Mutate(ctx, i.GuildID, func(cfg *vlr.GuildConfig) error {
			cfg.VCEnabled = false
			return nil
		})
		if err != nil {
			b.failed(s, i, "disable watch parties", err)
			return
		}
		if err := b.parties.DestroyAll(ctx, i.GuildID); err != nil {
			b.logger.Error("Failed to tear down watch parties", "guild_id", i.GuildID, "error", err)
		}
		b.respond(s, i, "Watch parties disabled and existing ones removed.")

	case "force":
		matchURL := sub.Options[0].StringValue()
		if !vlr.ValidMatchURL(matchURL) {
			b.respond(s, i, "That does not look like a VLR.gg match URL.")
			return
		}
		b.acknowledge(s, i)
		detail, err := b.cache.Detail(ctx, matchURL, b.scraper.FetchMatch)
		if err != nil {
			b.edit(s, i, "Could not fetch that match page. Check the URL and try again.")
			return
		}
		channelID, err := b.parties.Create(ctx, i.GuildID, detail)
		if err != nil {
			b.logger.Error("Failed to create watch party", "guild_id", i.GuildID, "url", matchURL, "error", err)
			b.edit(s, i, "Could not create the watch party channel.")
			return
		}
		// Mark the match as notified so the party is torn down when the
		// result shows up, same as an automatic one.
		err = b.store.Mutate(ctx, i.GuildID, func(cfg *vlr.GuildConfig) error {
			cfg.AddNotified(matchURL)
			return nil
		})
		if err != nil {
			b.logger.Error("Failed to record forced watch party", "guild_id", i.GuildID, "url", matchURL, "error", err)
		}
		b.edit(s, i, fmt.Sprintf("Watch party ready: <#%s>", channelID))
	}
}

func (b *Bot) handleMatches(ctx context.Context, s *discordgo.Session, i *discordgo.InteractionCreate, sub *discordgo.ApplicationCommandInteractionDataOption) {
	b.acknowledge(s, i)

	matches, updated := b.cache.Matches()
	if len(matches) == 0 {
		b.poller.Tick(ctx)
		matches, updated = b.cache.Matches()
	}

	filter := optionString(sub, "filter")
	var lines []string
	for _, m := range matches {
		if filter != "" && !notify.EventMatches(m.Event, filter) {
			continue
		}
		when := m.ETA
		if m.Status == vlr.StatusLive {
			when = "LIVE"
		} else if when == "" {
			when = "soon"
		}
		lines = append(lines, fmt.Sprintf("`%s` [%s](%s)\n*%s*", when, m.Matchup(), m.URL, m.Event))
		if len(lines) == listCap {
			break
		}
	}

	b.editEmbed(s, i, listEmbed("Upcoming Matches", lines, updated))
}

func (b *Bot) handleResults(ctx context.Context, s *discordgo.Session, i *discordgo.InteractionCreate, sub *discordgo.ApplicationCommandInteractionDataOption) {
	b.acknowledge(s, i)

	results, updated := b.cache.Results()
	if len(results) == 0 {
		b.poller.Tick(ctx)
		results, updated = b.cache.Results()
	}

	filter := optionString(sub, "filter")
	var lines []string
	for _, r := range results {
		if filter != "" && !notify.EventMatches(r.Event, filter) {
			continue
		}
		lines = append(lines, fmt.Sprintf("[%s](%s) ||%s||\n*%s*", r.Matchup(), r.URL, r.Scoreline(), r.Event))
		if len(lines) == listCap {
			break
		}
	}

	b.editEmbed(s, i, listEmbed("Recent Results", lines, updated))
}

func (b *Bot) handleUpdate(ctx context.Context, s *discordgo.Session, i *discordgo.InteractionCreate) {
	if !b.requireManager(s, i) {
		return
	}
	b.acknowledge(s, i)

	b.poller.Tick(ctx)

	matches, _ := b.cache.Matches()
	results, _ := b.cache.Results()
	b.edit(s, i, fmt.Sprintf("Refreshed: %d upcoming matches, %d recent results.", len(matches), len(results)))
}

// requireManager gates mutating commands behind the Manage Server
// permission.
func (b *Bot) requireManager(s *discordgo.Session, i *discordgo.InteractionCreate) bool {
	if i.Member != nil && i.Member.Permissions&discordgo.PermissionManageServer != 0 {
		return true
	}
	b.respond(s, i, "You need the Manage Server permission for that.")
	return false
}

func listEmbed(title string, lines []string, updated time.Time) *discordgo.MessageEmbed {
	description := "Nothing found."
	if len(lines) > 0 {
		description = strings.Join(lines, "\n\n")
	}
	embed := &discordgo.MessageEmbed{
		Title:       title,
		Description: description,
		Color:       notify.EmbedColor,
	}
	if !updated.IsZero() {
		embed.Footer = &discordgo.MessageEmbedFooter{
			Text: fmt.Sprintf("Retrieved %s ago", time.Since(updated).Round(time.Second)),
		}
	}
	return embed
}

func bulletList(items []string) string {
	if len(items) == 0 {
		return "*none*"
	}
	var b strings.Builder
	for _, item := range items {
		fmt.Fprintf(&b, "• %s\n", item)
	}
	return b.String()
}

func optionString(sub *discordgo.ApplicationCommandInteractionDataOption, name string) string {
	for _, opt := range sub.Options {
		if opt.Name == name {
			return opt.StringValue()
		}
	}
	return ""
}

func (b *Bot) respond(s *discordgo.Session, i *discordgo.InteractionCreate, content string) {
	err := s.InteractionRespond(i.Interaction, &discordgo.InteractionResponse{
		Type: discordgo.InteractionResponseChannelMessageWithSource,
		Data: &discordgo.InteractionResponseData{Content: content},
	})
	if err != nil {
		b.logger.Warn("Failed to respond to interaction", "error", err)
	}
}

func (b *Bot) respondEmbed(s *discordgo.Session, i *discordgo.InteractionCreate, embed *discordgo.MessageEmbed) {
	err := s.InteractionRespond(i.Interaction, &discordgo.InteractionResponse{
		Type: discordgo.InteractionResponseChannelMessageWithSource,
		Data: &discordgo.InteractionResponseData{Embeds: []*discordgo.MessageEmbed{embed}},
	})
	if err != nil {
		b.logger.Warn("Failed to respond to interaction", "error", err)
	}
}

// defer_ acknowledges the interaction so a slow scrape does not trip
// Discord's 3-second response deadline.
func (b *Bot) acknowledge(s *discordgo.Session, i *discordgo.InteractionCreate) {
	err := s.InteractionRespond(i.Interaction, &discordgo.InteractionResponse{
		Type: discordgo.InteractionResponseDeferredChannelMessageWithSource,
	})
	if err != nil {
		b.logger.Warn("Failed to defer interaction", "error", err)
	}
}

func (b *Bot) edit(s *discordgo.Session, i *discordgo.InteractionCreate, content string) {
	if _, err := s.InteractionResponseEdit(i.Interaction, &discordgo.WebhookEdit{Content: &content}); err != nil {
		b.logger.Warn("Failed to edit interaction response", "error", err)
	}
}

func (b *Bot) editEmbed(s *discordgo.Session, i *discordgo.InteractionCreate, embed *discordgo.MessageEmbed) {
	embeds := []*discordgo.MessageEmbed{embed}
	if _, err := s.InteractionResponseEdit(i.Interaction, &discordgo.WebhookEdit{Embeds: &embeds}); err != nil {
		b.logger.Warn("Failed to edit interaction response", "error", err)
	}
}

func (b *Bot) failed(s *discordgo.Session, i *discordgo.InteractionCreate, action string, err error) {
	b.logger.Error("Command failed", "guild_id", i.GuildID, "action", action, "error", err)
	b.respond(s, i, fmt.Sprintf("Failed to %s. Please try again.", action))
}
