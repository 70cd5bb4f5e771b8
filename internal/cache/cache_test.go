package cache

import (
	"context"
	"io"
	"log/slog"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/jakehlee/valorie/pkg/vlr"
)

func testCache() *Cache {
	return New(slog.New(slog.NewTextHandler(io.Discard, nil)))
}

func TestReplaceSemantics(t *testing.T) {
	c := testCache()

	c.SetMatches([]vlr.MatchSummary{{URL: "a"}, {URL: "b"}})
	c.SetMatches([]vlr.MatchSummary{{URL: "c"}})

	matches, updated := c.Matches()
	if len(matches) != 1 || matches[0].URL != "c" {
		t.Errorf("matches = %+v, want single entry c (wholesale replace)", matches)
	}
	if updated.IsZero() {
		t.Error("updated timestamp not set")
	}
}

func TestDetailPopulateAndHit(t *testing.T) {
	c := testCache()
	ctx := context.Background()

	var fetches atomic.Int32
	fetch := func(_ context.Context, url string) (*vlr.MatchDetail, error) {
		fetches.Add(1)
		return &vlr.MatchDetail{URL: url, FetchedAt: time.Now().UTC()}, nil
	}

	const url = "https://www.vlr.gg/303087/"
	if _, err := c.Detail(ctx, url, fetch); err != nil {
		t.Fatalf("Detail: %v", err)
	}
	if _, err := c.Detail(ctx, url, fetch); err != nil {
		t.Fatalf("Detail (cached): %v", err)
	}

	if n := fetches.Load(); n != 1 {
		t.Errorf("fetch ran %d times, want 1", n)
	}
}

func TestDetailSingleFlight(t *testing.T) {
	c := testCache()
	ctx := context.Background()

	var fetches atomic.Int32
	release := make(chan struct{})
	fetch := func(_ context.Context, url string) (*vlr.MatchDetail, error) {
		fetches.Add(1)
		<-release
		return &vlr.MatchDetail{URL: url, FetchedAt: time.Now().UTC()}, nil
	}

	const url = "https://www.vlr.gg/303087/"
	var wg sync.WaitGroup
	for range 8 {
		wg.Add(1)
		go func() {
			defer wg.Done()
			if _, err := c.Detail(ctx, url, fetch); err != nil {
				t.Errorf("Detail: %v", err)
			}
		}()
	}

	// Let the callers pile onto the flight before releasing the fetch.
	time.Sleep(50 * time.Millisecond)
	close(release)
	wg.Wait()

	if n := fetches.Load(); n != 1 {
		t.Errorf("fetch ran %d times, want 1 (single-flight per key)", n)
	}
}

func TestDetailFetchErrorNotCached(t *testing.T) {
	c := testCache()
	ctx := context.Background()

	var fetches atomic.Int32
	failing := func(_ context.Context, url string) (*vlr.MatchDetail, error) {
		fetches.Add(1)
		return nil, &vlr.FetchError{URL: url, StatusCode: 503}
	}

	const url = "https://www.vlr.gg/303087/"
	if _, err := c.Detail(ctx, url, failing); err == nil {
		t.Fatal("expected fetch error")
	}
	// A failed populate leaves no entry behind; the next call re-fetches.
	if _, err := c.Detail(ctx, url, failing); err == nil {
		t.Fatal("expected fetch error on retry")
	}
	if n := fetches.Load(); n != 2 {
		t.Errorf("fetch ran %d times, want 2", n)
	}
}

func TestPurge(t *testing.T) {
	c := testCache()
	ctx := context.Background()
	now := time.Now().UTC()

	stale := func(_ context.Context, url string) (*vlr.MatchDetail, error) {
		return &vlr.MatchDetail{URL: url, FetchedAt: now.Add(-25 * time.Hour)}, nil
	}
	recent := func(_ context.Context, url string) (*vlr.MatchDetail, error) {
		return &vlr.MatchDetail{URL: url, FetchedAt: now.Add(-1 * time.Hour)}, nil
	}

	// Insert directly via populate; the stale entry is already expired on
	// insert, mimicking an entry that aged out between ticks.
	if _, err := c.Detail(ctx, "old", stale); err != nil {
		t.Fatal(err)
	}
	if _, err := c.Detail(ctx, "new", recent); err != nil {
		t.Fatal(err)
	}

	if removed := c.Purge(now); removed != 1 {
		t.Errorf("Purge removed %d, want 1", removed)
	}

	if d := c.fresh("new"); d == nil {
		t.Error("1-hour-old entry should survive the purge")
	}
	if d := c.fresh("old"); d != nil {
		t.Error("25-hour-old entry should be gone")
	}
}
