package vlr

import "testing"

func TestParseETA(t *testing.T) {
	tests := []struct {
		name string
		eta  string
		want int
	}{
		{
			name: "days hours minutes",
			eta:  "1d 2h 3m",
			want: 1563,
		},
		{
			name: "minutes only",
			eta:  "45m",
			want: 45,
		},
		{
			name: "days only",
			eta:  "2d",
			want: 2880,
		},
		{
			name: "empty means due now",
			eta:  "",
			want: 0,
		},
		{
			name: "unparseable means due now",
			eta:  "Now",
			want: 0,
		},
		{
			name: "garbage tokens ignored",
			eta:  "xx 30m",
			want: 30,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := ParseETA(tt.eta); got != tt.want {
				t.Errorf("ParseETA(%q) = %d, want %d", tt.eta, got, tt.want)
			}
		})
	}
}

func TestFlagEmoji(t *testing.T) {
	tests := []struct {
		name  string
		class string
		want  string
	}{
		{
			name:  "bare country code",
			class: "US",
			want:  "\U0001F1FA\U0001F1F8",
		},
		{
			name:  "upstream class form",
			class: "mod-us",
			want:  "\U0001F1FA\U0001F1F8",
		},
		{
			name:  "brazil",
			class: "mod-br",
			want:  "\U0001F1E7\U0001F1F7",
		},
		{
			name:  "non-letter input",
			class: "mod-1",
			want:  "",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := FlagEmoji(tt.class); got != tt.want {
				t.Errorf("FlagEmoji(%q) = %q, want %q", tt.class, got, tt.want)
			}
		})
	}
}

func TestValidMatchURL(t *testing.T) {
	tests := []struct {
		url  string
		want bool
	}{
		{"https://www.vlr.gg/303087/sentinels-vs-loud", true},
		{"https://www.vlr.gg/303087/", true},
		{"https://www.vlr.gg/event/2097/champions-tour", false},
		{"https://www.vlr.gg/team/2/sentinels", false},
		{"http://127.0.0.1:8080/303087/", true},
		{"https://www.vlr.gg/", false},
		{"not a url", false},
	}

	for _, tt := range tests {
		if got := ValidMatchURL(tt.url); got != tt.want {
			t.Errorf("ValidMatchURL(%q) = %v, want %v", tt.url, got, tt.want)
		}
	}
}

func TestNotifiedSet(t *testing.T) {
	g := NewGuildConfig("123")

	const url = "https://www.vlr.gg/303087/"
	if g.HasNotified(url) {
		t.Fatal("fresh config should have an empty notified set")
	}

	g.AddNotified(url)
	g.AddNotified(url) // second add is a no-op
	if len(g.Notified) != 1 {
		t.Errorf("Notified has %d entries, want 1", len(g.Notified))
	}

	g.RemoveNotified(url)
	if g.HasNotified(url) {
		t.Error("url still present after RemoveNotified")
	}
	g.RemoveNotified(url) // removing again must not panic
}

func TestScoreline(t *testing.T) {
	r := ResultSummary{
		Teams: [2]ScoredTeam{
			{Name: "Sentinels", Score: 2, Winner: true},
			{Name: "LOUD", Score: 1},
		},
	}
	got := r.Scoreline()
	want := "\U0001F3C6 Sentinels 2 : 1 LOUD"
	if got != want {
		t.Errorf("Scoreline() = %q, want %q", got, want)
	}
}
