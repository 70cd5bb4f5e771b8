package scraper

import (
	"log/slog"
	"strconv"
	"strings"

	"github.com/PuerkitoBio/goquery"
	"github.com/jakehlee/valorie/pkg/vlr"
)

// parseMatchList extracts match summaries from the upcoming-matches page.
// A single malformed entry is skipped with a warning so a partial page
// never blocks a full poll cycle.
func parseMatchList(doc *goquery.Document, base string, logger *slog.Logger) []vlr.MatchSummary {
	var matches []vlr.MatchSummary

	doc.Find("a.wf-module-item.match-item").Each(func(_ int, sel *goquery.Selection) {
		m, err := parseMatchEntry(sel, base)
		if err != nil {
			logger.Warn("Skipping malformed match entry", "error", err)
			return
		}
		matches = append(matches, *m)
	})

	return matches
}

func parseMatchEntry(sel *goquery.Selection, base string) (*vlr.MatchSummary, error) {
	href, ok := sel.Attr("href")
	if !ok {
		return nil, &vlr.ScrapeError{Anchor: "href"}
	}
	matchURL := absolute(base, href)

	status := strings.TrimSpace(sel.Find(".ml-status").First().Text())
	if status == "" {
		return nil, &vlr.ScrapeError{URL: matchURL, Anchor: "ml-status"}
	}

	// Exact start times are localized by the site in-browser; only the
	// relative ETA is usable. Absent for live matches.
	eta := strings.TrimSpace(sel.Find(".ml-eta").First().Text())

	teams, err := parseVsTeams(sel, matchURL)
	if err != nil {
		return nil, err
	}

	event := normalizeSpace(sel.Find(".match-item-event").First().Text())
	if event == "" {
		return nil, &vlr.ScrapeError{URL: matchURL, Anchor: "match-item-event"}
	}

	return &vlr.MatchSummary{
		URL:    matchURL,
		Status: vlr.MatchStatus(status),
		ETA:    eta,
		Teams:  teams,
		Event:  event,
	}, nil
}

func parseVsTeams(sel *goquery.Selection, matchURL string) ([2]vlr.Team, error) {
	var teams [2]vlr.Team

	teamSels := sel.Find(".match-item-vs-team")
	if teamSels.Length() != 2 {
		return teams, &vlr.ScrapeError{URL: matchURL, Anchor: "match-item-vs-team"}
	}

	var entryErr error
	teamSels.EachWithBreak(func(i int, team *goquery.Selection) bool {
		name := strings.TrimSpace(team.Find(".match-item-vs-team-name").First().Text())
		if name == "" {
			entryErr = &vlr.ScrapeError{URL: matchURL, Anchor: "match-item-vs-team-name"}
			return false
		}
		teams[i] = vlr.Team{
			Name: name,
			Flag: vlr.FlagEmoji(flagClass(team.Find(".flag").First())),
		}
		return true
	})
	return teams, entryErr
}

// parseResultList extracts result summaries from the results page, with
// the same skip-on-malformed behavior as the match list.
func parseResultList(doc *goquery.Document, base string, logger *slog.Logger) []vlr.ResultSummary {
	var results []vlr.ResultSummary

	doc.Find("a.wf-module-item.match-item").Each(func(_ int, sel *goquery.Selection) {
		r, err := parseResultEntry(sel, base)
		if err != nil {
			logger.Warn("Skipping malformed result entry", "error", err)
			return
		}
		results = append(results, *r)
	})

	return results
}

func parseResultEntry(sel *goquery.Selection, base string) (*vlr.ResultSummary, error) {
	href, ok := sel.Attr("href")
	if !ok {
		return nil, &vlr.ScrapeError{Anchor: "href"}
	}
	matchURL := absolute(base, href)

	ago := strings.TrimSpace(sel.Find(".ml-eta").First().Text())

	teamSels := sel.Find(".match-item-vs-team")
	if teamSels.Length() != 2 {
		return nil, &vlr.ScrapeError{URL: matchURL, Anchor: "match-item-vs-team"}
	}

	var teams [2]vlr.ScoredTeam
	var entryErr error
	teamSels.EachWithBreak(func(i int, team *goquery.Selection) bool {
		name := strings.TrimSpace(team.Find(".match-item-vs-team-name").First().Text())
		if name == "" {
			entryErr = &vlr.ScrapeError{URL: matchURL, Anchor: "match-item-vs-team-name"}
			return false
		}

		scoreText := strings.TrimSpace(team.Find(".match-item-vs-team-score").First().Text())
		score, err := strconv.Atoi(scoreText)
		if err != nil {
			entryErr = &vlr.ScrapeError{URL: matchURL, Anchor: "match-item-vs-team-score"}
			return false
		}

		teams[i] = vlr.ScoredTeam{
			Name:   name,
			Flag:   vlr.FlagEmoji(flagClass(team.Find(".flag").First())),
			Score:  score,
			Winner: team.HasClass("mod-winner"),
		}
		return true
	})
	if entryErr != nil {
		return nil, entryErr
	}

	event := normalizeSpace(sel.Find(".match-item-event").First().Text())
	if event == "" {
		return nil, &vlr.ScrapeError{URL: matchURL, Anchor: "match-item-event"}
	}

	return &vlr.ResultSummary{
		URL:   matchURL,
		Ago:   ago,
		Teams: teams,
		Event: event,
	}, nil
}

// parseMatchPage extracts the full detail record from a single match
// page. Any missing anchor is fatal.
func parseMatchPage(doc *goquery.Document, pageURL, base string) (*vlr.MatchDetail, error) {
	detail := &vlr.MatchDetail{URL: pageURL}

	nameA := strings.TrimSpace(doc.Find(".match-header-link-name.mod-1").First().Text())
	nameB := strings.TrimSpace(doc.Find(".match-header-link-name.mod-2").First().Text())
	if nameA == "" || nameB == "" {
		return nil, &vlr.ScrapeError{URL: pageURL, Anchor: "match-header-link-name"}
	}

	linkA := doc.Find("a.match-header-link.wf-link-hover.mod-1").First()
	linkB := doc.Find("a.match-header-link.wf-link-hover.mod-2").First()
	if linkA.Length() == 0 || linkB.Length() == 0 {
		return nil, &vlr.ScrapeError{URL: pageURL, Anchor: "match-header-link"}
	}

	detail.TeamA = vlr.DetailTeam{
		Name: nameA,
		URL:  absolute(base, linkA.AttrOr("href", "")),
		Logo: logoURL(linkA.Find("img").First().AttrOr("src", "")),
	}
	detail.TeamB = vlr.DetailTeam{
		Name: nameB,
		URL:  absolute(base, linkB.AttrOr("href", "")),
		Logo: logoURL(linkB.Find("img").First().AttrOr("src", "")),
	}

	eventSel := doc.Find(".match-header-event").First()
	if eventSel.Length() == 0 {
		return nil, &vlr.ScrapeError{URL: pageURL, Anchor: "match-header-event"}
	}
	detail.Event = vlr.EventInfo{
		Name:     normalizeSpace(eventSel.Text()),
		URL:      absolute(base, eventSel.AttrOr("href", "")),
		Datetime: normalizeSpace(doc.Find(".match-header-date").First().Text()),
		Format:   strings.TrimSpace(doc.Find(".match-header-vs-note").First().Text()),
	}
	if detail.Event.Datetime == "" {
		return nil, &vlr.ScrapeError{URL: pageURL, Anchor: "match-header-date"}
	}

	// Player rosters come from the all-maps stats tables: one tbody per team.
	tables := doc.Find(`div.vm-stats-game[data-game-id="all"] tbody`)
	if tables.Length() < 2 {
		return nil, &vlr.ScrapeError{URL: pageURL, Anchor: "vm-stats-game"}
	}
	tables.Each(func(i int, table *goquery.Selection) {
		if i > 1 {
			return
		}
		var players []vlr.Player
		table.Find("tr").Each(func(_ int, row *goquery.Selection) {
			link := row.Find("a").First()
			fields := strings.Fields(link.Text())
			if len(fields) == 0 {
				return
			}
			players = append(players, vlr.Player{
				Name: fields[0],
				Flag: vlr.FlagEmoji(flagClass(row.Find("i.flag").First())),
				URL:  absolute(base, link.AttrOr("href", "")),
			})
		})
		if i == 0 {
			detail.TeamA.Players = players
		} else {
			detail.TeamB.Players = players
		}
	})

	detail.MatchupSlug = slugify(nameA) + "-vs-" + slugify(nameB)

	return detail, nil
}

// flagClass picks the "mod-xx" country class out of a flag element's
// class list.
func flagClass(sel *goquery.Selection) string {
	for _, class := range strings.Fields(sel.AttrOr("class", "")) {
		if strings.HasPrefix(class, "mod-") {
			return class
		}
	}
	return ""
}

// logoURL fixes up protocol-relative image sources like "//owcdn.net/...".
func logoURL(src string) string {
	if strings.HasPrefix(src, "//") {
		return "https:" + src
	}
	return src
}

func absolute(base, href string) string {
	if href == "" || strings.HasPrefix(href, "http") {
		return href
	}
	if !strings.HasPrefix(href, "/") {
		href = "/" + href
	}
	return base + href
}

// normalizeSpace collapses runs of whitespace (the site pads event blocks
// with tabs and newlines) into single spaces.
func normalizeSpace(s string) string {
	return strings.Join(strings.Fields(s), " ")
}

func slugify(name string) string {
	return strings.ReplaceAll(name, " ", "-")
}
