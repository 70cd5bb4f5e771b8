// Package scraper handles fetching and parsing VLR.gg pages.
package scraper

import (
	"context"
	"fmt"
	"log/slog"
	"net/http"
	"time"

	"github.com/PuerkitoBio/goquery"
	"github.com/jakehlee/valorie/pkg/vlr"
)

// Scraper fetches and parses the three VLR.gg page kinds: the upcoming
// matches list, the results list, and single match pages.
type Scraper struct {
	client *http.Client
	base   string
	logger *slog.Logger
}

// New creates a new scraper. base is the site origin, normally
// vlr.BaseURL; tests point it at a local server.
func New(client *http.Client, base string, logger *slog.Logger) *Scraper {
	return &Scraper{
		client: client,
		base:   base,
		logger: logger,
	}
}

// FetchMatches fetches and parses the upcoming-matches list.
func (s *Scraper) FetchMatches(ctx context.Context) ([]vlr.MatchSummary, error) {
	doc, err := s.get(ctx, s.base+"/matches")
	if err != nil {
		return nil, err
	}
	return parseMatchList(doc, s.base, s.logger), nil
}

// FetchResults fetches and parses the completed-matches list.
func (s *Scraper) FetchResults(ctx context.Context) ([]vlr.ResultSummary, error) {
	doc, err := s.get(ctx, s.base+"/matches/results")
	if err != nil {
		return nil, err
	}
	return parseResultList(doc, s.base, s.logger), nil
}

// FetchMatch fetches and parses a single match page. Unlike the list
// fetches, any missing anchor aborts the whole parse: a partial detail
// record is not usable for a notification.
func (s *Scraper) FetchMatch(ctx context.Context, matchURL string) (*vlr.MatchDetail, error) {
	doc, err := s.get(ctx, matchURL)
	if err != nil {
		return nil, err
	}
	detail, err := parseMatchPage(doc, matchURL, s.base)
	if err != nil {
		return nil, err
	}
	detail.FetchedAt = time.Now().UTC()
	return detail, nil
}

// get performs a single GET with no retries: a failed fetch aborts this
// sub-step and the next poll tick tries again.
func (s *Scraper) get(ctx context.Context, pageURL string) (*goquery.Document, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, pageURL, http.NoBody)
	if err != nil {
		return nil, fmt.Errorf("create request: %w", err)
	}

	// Browser-like headers to avoid getting blocked
	req.Header.Set("User-Agent", "Mozilla/5.0 (Macintosh; Intel Mac OS X 10_15_7) AppleWebKit/537.36 (KHTML, like Gecko) Chrome/131.0.0.0 Safari/537.36")
	req.Header.Set("Accept", "text/html,application/xhtml+xml,application/xml;q=0.9,*/*;q=0.8")
	req.Header.Set("Accept-Language", "en-US,en;q=0.9")

	start := time.Now()
	resp, err := s.client.Do(req)
	if err != nil {
		s.logger.Warn("HTTP request failed", "url", pageURL, "error", err)
		return nil, &vlr.FetchError{URL: pageURL, Err: err}
	}
	defer func() {
		if closeErr := resp.Body.Close(); closeErr != nil {
			s.logger.Warn("Failed to close response body", "error", closeErr)
		}
	}()

	s.logger.Debug("HTTP request completed",
		"url", pageURL,
		"status_code", resp.StatusCode,
		"duration_ms", time.Since(start).Milliseconds())

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return nil, &vlr.FetchError{URL: pageURL, StatusCode: resp.StatusCode}
	}

	doc, err := goquery.NewDocumentFromReader(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("parse HTML: %w", err)
	}
	return doc, nil
}
