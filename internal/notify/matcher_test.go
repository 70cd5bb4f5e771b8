package notify

import (
	"testing"

	"github.com/jakehlee/valorie/pkg/vlr"
)

func TestMatch(t *testing.T) {
	m := vlr.MatchSummary{
		URL:   "https://www.vlr.gg/303087/",
		Teams: [2]vlr.Team{{Name: "Sentinels"}, {Name: "100 Thieves"}},
		Event: "Champions Tour 2026: Americas Kickoff",
	}

	tests := []struct {
		name       string
		events     []string
		teams      []string
		want       bool
		wantReason string
	}{
		{
			name:       "exact team name",
			teams:      []string{"Sentinels"},
			want:       true,
			wantReason: "Team: Sentinels",
		},
		{
			name:  "partial team name does not match",
			teams: []string{"Sentinel"},
			want:  false,
		},
		{
			name:       "ALL sentinel matches any event",
			events:     []string{vlr.EventAll},
			want:       true,
			wantReason: "Event: ALL",
		},
		{
			name:       "all filter tokens present in any order",
			events:     []string{"Americas Champions"},
			want:       true,
			wantReason: "Event: Americas Champions",
		},
		{
			name:   "one missing token fails the filter",
			events: []string{"Champions Tour EMEA"},
			want:   false,
		},
		{
			name:       "team precedence over event",
			events:     []string{vlr.EventAll},
			teams:      []string{"100 Thieves"},
			want:       true,
			wantReason: "Team: 100 Thieves",
		},
		{
			name: "no filters no match",
			want: false,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, reason := Match(m, tt.events, tt.teams)
			if got != tt.want {
				t.Errorf("Match = %v, want %v", got, tt.want)
			}
			if reason != tt.wantReason {
				t.Errorf("reason = %q, want %q", reason, tt.wantReason)
			}
		})
	}
}
