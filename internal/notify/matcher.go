package notify

import (
	"fmt"
	"strings"

	"github.com/jakehlee/valorie/pkg/vlr"
)

// Match reports whether a listed match is covered by a guild's
// subscriptions, and why. Team subscriptions are checked first since an
// exact team-name hit is the narrower signal; event filters then apply
// either the ALL sentinel or a conjunctive token match: every
// whitespace-separated word of the filter must appear as a substring of
// the event label, in any order. That lets "Champions Tour Americas"
// require all three words without pinning their position.
func Match(m vlr.MatchSummary, events, teams []string) (bool, string) {
	for _, team := range teams {
		if team == m.Teams[0].Name || team == m.Teams[1].Name {
			return true, fmt.Sprintf("Team: %s", team)
		}
	}

	for _, event := range events {
		if event == vlr.EventAll || EventMatches(m.Event, event) {
			return true, fmt.Sprintf("Event: %s", event)
		}
	}

	return false, ""
}

// EventMatches reports whether every whitespace-separated token of
// filter appears somewhere in the event label. Also used by the list
// commands to narrow their output.
func EventMatches(label, filter string) bool {
	for _, token := range strings.Fields(filter) {
		if !strings.Contains(label, token) {
			return false
		}
	}
	return true
}
