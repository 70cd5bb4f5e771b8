package notify

import (
	"fmt"
	"strings"

	"github.com/bwmarrin/discordgo"

	"github.com/jakehlee/valorie/pkg/vlr"
)

// EmbedColor is the VLR brand red used on every embed.
const EmbedColor = 0xFF4654

// matchEmbeds builds the pre-match notification. Two embeds sharing the
// same URL make Discord render both team logos side by side.
func matchEmbeds(m vlr.MatchSummary, d *vlr.MatchDetail, reason, partyChannelID string) []*discordgo.MessageEmbed {
	title := "\U0001F514 Upcoming Match"
	if m.ETA != "" {
		title = fmt.Sprintf("\U0001F514 Upcoming Match in %s", m.ETA)
	}

	fields := []*discordgo.MessageEmbedField{
		{
			Name:   d.Event.Name,
			Value:  fmt.Sprintf("%s | %s", d.Event.Format, d.Event.Datetime),
			Inline: false,
		},
		rosterField(d.TeamA),
		rosterField(d.TeamB),
	}
	if partyChannelID != "" {
		fields = append(fields, &discordgo.MessageEmbedField{
			Name:   "Watch Party",
			Value:  fmt.Sprintf("<#%s>", partyChannelID),
			Inline: false,
		})
	}

	main := &discordgo.MessageEmbed{
		Title:       title,
		Description: m.Matchup(),
		Color:       EmbedColor,
		URL:         m.URL,
		Fields:      fields,
		Footer:      &discordgo.MessageEmbedFooter{Text: fmt.Sprintf("Subscribed to %s", reason)},
		Image:       &discordgo.MessageEmbedImage{URL: d.TeamA.Logo},
	}
	aux := &discordgo.MessageEmbed{
		URL:   m.URL,
		Image: &discordgo.MessageEmbedImage{URL: d.TeamB.Logo},
	}
	return []*discordgo.MessageEmbed{main, aux}
}

// rosterField renders a team's roster with flag emoji and player links.
func rosterField(t vlr.DetailTeam) *discordgo.MessageEmbedField {
	var b strings.Builder
	fmt.Fprintf(&b, "\U0001F465 [Team](%s)", t.URL)
	for _, p := range t.Players {
		fmt.Fprintf(&b, "\n%s [%s](%s)", p.Flag, p.Name, p.URL)
	}
	return &discordgo.MessageEmbedField{
		Name:   t.Name,
		Value:  b.String(),
		Inline: true,
	}
}

// resultEmbed builds the completion notification. The scoreline is
// spoilered so the channel stays safe for delayed viewers.
func resultEmbed(r vlr.ResultSummary) *discordgo.MessageEmbed {
	return &discordgo.MessageEmbed{
		Title:       "✅ Match Complete",
		Description: r.Matchup(),
		Color:       EmbedColor,
		URL:         r.URL,
		Fields: []*discordgo.MessageEmbedField{
			{Name: "Scoreline", Value: fmt.Sprintf("||%s||", r.Scoreline()), Inline: false},
			{Name: "Event", Value: fmt.Sprintf("*%s*", r.Event), Inline: false},
		},
	}
}
