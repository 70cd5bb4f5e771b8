// Package cache holds the process-wide poll state: the latest scraped
// match and result lists plus a bounded TTL cache of full match detail.
package cache

import (
	"context"
	"log/slog"
	"sync"
	"time"

	"golang.org/x/sync/singleflight"

	"github.com/jakehlee/valorie/pkg/vlr"
)

// DetailFetch fetches the full detail record for a match URL on a cache
// miss.
type DetailFetch func(ctx context.Context, url string) (*vlr.MatchDetail, error)

// Cache is safe for concurrent use. The match and result lists have
// replace semantics: each poll wholly overwrites the previous list.
type Cache struct {
	mu      sync.RWMutex
	matches []vlr.MatchSummary
	results []vlr.ResultSummary
	updated time.Time
	details map[string]*vlr.MatchDetail

	group  singleflight.Group
	ttl    time.Duration
	logger *slog.Logger
}

// New creates an empty cache with the standard detail TTL.
func New(logger *slog.Logger) *Cache {
	return &Cache{
		details: make(map[string]*vlr.MatchDetail),
		ttl:     vlr.DetailTTL,
		logger:  logger,
	}
}

// SetMatches replaces the cached match list.
func (c *Cache) SetMatches(matches []vlr.MatchSummary) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.matches = matches
	c.updated = time.Now().UTC()
}

// Matches returns a copy of the cached match list and when it was last
// refreshed.
func (c *Cache) Matches() ([]vlr.MatchSummary, time.Time) {
	c.mu.RLock()
	defer c.mu.RUnlock()
	out := make([]vlr.MatchSummary, len(c.matches))
	copy(out, c.matches)
	return out, c.updated
}

// SetResults replaces the cached result list.
func (c *Cache) SetResults(results []vlr.ResultSummary) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.results = results
	c.updated = time.Now().UTC()
}

// Results returns a copy of the cached result list and when it was last
// refreshed.
func (c *Cache) Results() ([]vlr.ResultSummary, time.Time) {
	c.mu.RLock()
	defer c.mu.RUnlock()
	out := make([]vlr.ResultSummary, len(c.results))
	copy(out, c.results)
	return out, c.updated
}

// Detail returns the cached detail for url, fetching and inserting it on
// a miss. Concurrent calls for the same URL collapse into one underlying
// fetch; the second caller observes the first caller's insert.
func (c *Cache) Detail(ctx context.Context, url string, fetch DetailFetch) (*vlr.MatchDetail, error) {
	if d := c.fresh(url); d != nil {
		return d, nil
	}

	v, err, _ := c.group.Do(url, func() (any, error) {
		// Re-check under the flight: a concurrent caller may have
		// populated the entry while we waited for the group.
		if d := c.fresh(url); d != nil {
			return d, nil
		}

		c.logger.Debug("Detail cache miss", "url", url)
		d, err := fetch(ctx, url)
		if err != nil {
			return nil, err
		}

		c.mu.Lock()
		c.details[url] = d
		c.mu.Unlock()
		return d, nil
	})
	if err != nil {
		return nil, err
	}
	return v.(*vlr.MatchDetail), nil
}

func (c *Cache) fresh(url string) *vlr.MatchDetail {
	c.mu.RLock()
	defer c.mu.RUnlock()
	d, ok := c.details[url]
	if !ok || time.Since(d.FetchedAt) > c.ttl {
		return nil
	}
	return d
}

// Purge drops detail entries older than the TTL, regardless of whether
// their notification cycle completed. Called once per poll tick to bound
// growth over long-running processes. Returns the number removed.
func (c *Cache) Purge(now time.Time) int {
	c.mu.Lock()
	defer c.mu.Unlock()

	removed := 0
	for url, d := range c.details {
		if now.Sub(d.FetchedAt) > c.ttl {
			delete(c.details, url)
			removed++
		}
	}
	if removed > 0 {
		c.logger.Debug("Purged expired detail entries", "count", removed)
	}
	return removed
}
