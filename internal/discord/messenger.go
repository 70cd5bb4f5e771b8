// Package discord adapts a discordgo session to the narrow delivery
// interface the notification engine consumes.
package discord

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/bwmarrin/discordgo"
)

// Messenger sends embeds through a live bot session.
type Messenger struct {
	session *discordgo.Session
	logger  *slog.Logger
}

// NewMessenger wraps a connected session.
func NewMessenger(session *discordgo.Session, logger *slog.Logger) *Messenger {
	return &Messenger{session: session, logger: logger}
}

// Send posts embeds to a channel. Mentions are suppressed; notification
// text is scraped from the web and must never ping anyone.
func (m *Messenger) Send(ctx context.Context, channelID string, embeds []*discordgo.MessageEmbed) error {
	_, err := m.session.ChannelMessageSendComplex(channelID, &discordgo.MessageSend{
		Embeds:          embeds,
		AllowedMentions: &discordgo.MessageAllowedMentions{},
	}, discordgo.WithContext(ctx))
	if err != nil {
		return fmt.Errorf("send to channel %s: %w", channelID, err)
	}
	m.logger.Debug("Message sent", "channel_id", channelID, "embeds", len(embeds))
	return nil
}
