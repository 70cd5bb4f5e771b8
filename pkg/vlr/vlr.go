// Package vlr contains the core domain types for the VLR.gg match
// notification service.
package vlr

import (
	"fmt"
	"strconv"
	"strings"
	"time"
)

// BaseURL is the upstream site origin. Relative links scraped from pages
// are resolved against it.
const BaseURL = "https://www.vlr.gg"

// DetailTTL is how long a cached MatchDetail stays valid. Match pages
// barely change between notification and completion, so staleness within
// this window is accepted over re-scraping.
const DetailTTL = 24 * time.Hour

// MatchStatus is the upstream status label of a listed match.
type MatchStatus string

const (
	StatusUpcoming  MatchStatus = "Upcoming"
	StatusLive      MatchStatus = "LIVE"
	StatusCompleted MatchStatus = "Completed"
)

// Team is one side of an upcoming match.
type Team struct {
	Name string `json:"name"`
	Flag string `json:"flag"` // regional-indicator emoji pair
}

// ScoredTeam is one side of a completed match.
type ScoredTeam struct {
	Name   string `json:"name"`
	Flag   string `json:"flag"`
	Score  int    `json:"score"`
	Winner bool   `json:"is_winner"`
}

// MatchSummary is one entry of the upcoming-matches list. The list is
// replaced wholesale every poll and is ordered soonest-first.
type MatchSummary struct {
	URL    string      `json:"url"`
	Status MatchStatus `json:"status"`
	ETA    string      `json:"eta"` // raw upstream form, e.g. "1d 2h"; empty when due
	Teams  [2]Team     `json:"teams"`
	Event  string      `json:"event"`
}

// Matchup renders the flag-decorated matchup line for embeds.
func (m MatchSummary) Matchup() string {
	return fmt.Sprintf("%s %s vs. %s %s", m.Teams[0].Flag, m.Teams[0].Name, m.Teams[1].Flag, m.Teams[1].Name)
}

// ResultSummary is one entry of the results list, replaced wholesale
// every poll.
type ResultSummary struct {
	URL   string        `json:"url"`
	Ago   string        `json:"ago"` // elapsed time since start, raw upstream form
	Teams [2]ScoredTeam `json:"teams"`
	Event string        `json:"event"`
}

// Matchup renders the flag-decorated matchup line for embeds.
func (r ResultSummary) Matchup() string {
	return fmt.Sprintf("%s %s vs. %s %s", r.Teams[0].Flag, r.Teams[0].Name, r.Teams[1].Flag, r.Teams[1].Name)
}

// Scoreline renders the final score with a trophy next to the winner.
func (r ResultSummary) Scoreline() string {
	const trophy = "\U0001F3C6"
	a, b := r.Teams[0], r.Teams[1]
	left, right := "", ""
	if a.Winner {
		left = trophy + " "
	}
	if b.Winner {
		right = " " + trophy
	}
	return fmt.Sprintf("%s%s %d : %d %s%s", left, a.Name, a.Score, b.Score, b.Name, right)
}

// Player is one roster entry on a match page.
type Player struct {
	Name string `json:"name"`
	Flag string `json:"flag"`
	URL  string `json:"url"`
}

// DetailTeam is a full team record from a match page.
type DetailTeam struct {
	Name    string   `json:"name"`
	URL     string   `json:"url"`
	Logo    string   `json:"logo"`
	Players []Player `json:"players"`
}

// EventInfo is the event block of a match page.
type EventInfo struct {
	Name     string `json:"name"`
	URL      string `json:"url"`
	Datetime string `json:"datetime"` // upstream-formatted date string, not localized
	Format   string `json:"format"`   // e.g. "Bo3"
}

// MatchDetail is the lazily-fetched full record for a single match,
// cached for DetailTTL.
type MatchDetail struct {
	URL         string     `json:"url"`
	TeamA       DetailTeam `json:"team_a"`
	TeamB       DetailTeam `json:"team_b"`
	Event       EventInfo  `json:"event"`
	MatchupSlug string     `json:"matchup_slug"` // "Team-A-vs-Team-B", used for channel names
	FetchedAt   time.Time  `json:"fetched_at"`
}

// EventAll is the sentinel event filter that matches every event label.
const EventAll = "ALL"

// Per-guild defaults.
const (
	DefaultLeadMinutes = 15
	DefaultEvent       = "Champions Tour"
)

// GuildConfig is the per-guild subscription state. Notified holds match
// URLs whose pre-match notification went out and whose completion
// notification has not; VCCreated maps those URLs to live watch-party
// voice channels.
type GuildConfig struct {
	GuildID      string            `json:"guild_id"`
	ChannelID    string            `json:"channel_id"`
	SubEvents    []string          `json:"sub_events"`
	SubTeams     []string          `json:"sub_teams"`
	Notified     []string          `json:"notified"`
	LeadMinutes  int               `json:"notify_lead"`
	VCEnabled    bool              `json:"vc_enabled"`
	VCDefaultID  string            `json:"vc_default"`
	VCCategoryID string            `json:"vc_category"`
	VCCreated    map[string]string `json:"vc_created"`
}

// NewGuildConfig returns the default configuration for a guild that has
// no stored state yet.
func NewGuildConfig(guildID string) *GuildConfig {
	return &GuildConfig{
		GuildID:     guildID,
		SubEvents:   []string{DefaultEvent},
		SubTeams:    []string{},
		Notified:    []string{},
		LeadMinutes: DefaultLeadMinutes,
		VCCreated:   map[string]string{},
	}
}

// HasNotified reports whether url is in the notified set.
func (g *GuildConfig) HasNotified(url string) bool {
	for _, u := range g.Notified {
		if u == url {
			return true
		}
	}
	return false
}

// AddNotified inserts url into the notified set if absent.
func (g *GuildConfig) AddNotified(url string) {
	if !g.HasNotified(url) {
		g.Notified = append(g.Notified, url)
	}
}

// RemoveNotified deletes url from the notified set.
func (g *GuildConfig) RemoveNotified(url string) {
	for i, u := range g.Notified {
		if u == url {
			g.Notified = append(g.Notified[:i], g.Notified[i+1:]...)
			return
		}
	}
}

// ParseETA converts an upstream time-to-start string like "1d 2h 3m" to
// total minutes. Empty or unparseable input means the match is already
// due and maps to 0.
func ParseETA(eta string) int {
	total := 0
	for _, part := range strings.Fields(eta) {
		switch {
		case strings.HasSuffix(part, "d"):
			if d, err := strconv.Atoi(strings.TrimSuffix(part, "d")); err == nil {
				total += d * 24 * 60
			}
		case strings.HasSuffix(part, "h"):
			if h, err := strconv.Atoi(strings.TrimSuffix(part, "h")); err == nil {
				total += h * 60
			}
		case strings.HasSuffix(part, "m"):
			if m, err := strconv.Atoi(strings.TrimSuffix(part, "m")); err == nil {
				total += m
			}
		}
	}
	return total
}

// regionalIndicatorOffset maps 'A'..'Z' onto U+1F1E6..U+1F1FF.
const regionalIndicatorOffset = 0x1F1E6 - 'A'

// FlagEmoji converts an upstream flag class like "mod-us" (or a bare
// country code) into the corresponding regional-indicator emoji pair.
func FlagEmoji(class string) string {
	parts := strings.Split(class, "-")
	code := strings.ToUpper(parts[len(parts)-1])

	var b strings.Builder
	for _, r := range code {
		if r < 'A' || r > 'Z' {
			return ""
		}
		b.WriteRune(r + regionalIndicatorOffset)
	}
	return b.String()
}

// ValidMatchURL reports whether url points at a match page. Match URLs
// have an integer as the first path segment (e.g. /303087/...), unlike
// /event or /team pages. The origin is not checked so that scraped links
// resolved against a non-default base still qualify.
func ValidMatchURL(url string) bool {
	_, rest, ok := strings.Cut(url, "://")
	if !ok {
		return false
	}
	_, path, ok := strings.Cut(rest, "/")
	if !ok {
		return false
	}
	seg, _, _ := strings.Cut(path, "/")
	if seg == "" {
		return false
	}
	_, err := strconv.Atoi(seg)
	return err == nil
}
