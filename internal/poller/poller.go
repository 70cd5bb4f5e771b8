// Package poller drives the periodic scrape-and-notify loop.
package poller

import (
	"context"
	"log/slog"
	"sync"
	"time"

	"github.com/jakehlee/valorie/internal/cache"
	"github.com/jakehlee/valorie/pkg/vlr"
)

// Fetcher is the scraping surface the poller drives each tick.
type Fetcher interface {
	FetchMatches(ctx context.Context) ([]vlr.MatchSummary, error)
	FetchResults(ctx context.Context) ([]vlr.ResultSummary, error)
}

// Notifier runs a notification pass over the refreshed cache.
type Notifier interface {
	Run(ctx context.Context) error
}

// Poller refreshes the cache and triggers notifications on a fixed
// interval.
type Poller struct {
	fetcher  Fetcher
	cache    *cache.Cache
	notifier Notifier
	interval time.Duration
	logger   *slog.Logger

	stop chan struct{}
	wg   sync.WaitGroup
	once sync.Once
}

// New creates a poller. It does not start polling until Start is
// called.
func New(fetcher Fetcher, c *cache.Cache, notifier Notifier, interval time.Duration, logger *slog.Logger) *Poller {
	return &Poller{
		fetcher:  fetcher,
		cache:    c,
		notifier: notifier,
		interval: interval,
		logger:   logger,
		stop:     make(chan struct{}),
	}
}

// Start launches the poll loop in a goroutine. The first tick runs
// immediately so a fresh process has data before the first interval
// elapses.
func (p *Poller) Start(ctx context.Context) {
	p.wg.Add(1)
	go func() {
		defer p.wg.Done()

		p.logger.Info("Poller started", "interval", p.interval)
		p.Tick(ctx)

		ticker := time.NewTicker(p.interval)
		defer ticker.Stop()
		for {
			select {
			case <-ticker.C:
				p.Tick(ctx)
			case <-p.stop:
				p.logger.Info("Poller stopped")
				return
			case <-ctx.Done():
				p.logger.Info("Poller context cancelled")
				return
			}
		}
	}()
}

// Stop halts the loop and waits for an in-flight tick to finish.
func (p *Poller) Stop() {
	p.once.Do(func() { close(p.stop) })
	p.wg.Wait()
}

// Tick performs one full poll cycle: refresh both lists, run the
// notification pass, purge expired detail entries. A failed list fetch
// keeps the previous list so notifications work from the last good
// snapshot.
func (p *Poller) Tick(ctx context.Context) {
	if matches, err := p.fetcher.FetchMatches(ctx); err != nil {
		p.logger.Warn("Failed to fetch match list", "error", err)
	} else {
		p.cache.SetMatches(matches)
	}

	if results, err := p.fetcher.FetchResults(ctx); err != nil {
		p.logger.Warn("Failed to fetch result list", "error", err)
	} else {
		p.cache.SetResults(results)
	}

	if err := p.notifier.Run(ctx); err != nil {
		p.logger.Error("Notification pass failed", "error", err)
	}

	p.cache.Purge(time.Now().UTC())
}
