package vlr

import (
	"errors"
	"fmt"
)

// FetchError indicates a failed page fetch (non-2xx status or transport
// failure). The poll loop keeps its previous cache and moves on; the next
// tick is the retry.
type FetchError struct {
	URL        string
	StatusCode int // 0 for transport errors
	Err        error
}

func (e *FetchError) Error() string {
	if e.StatusCode != 0 {
		return fmt.Sprintf("fetch %s: HTTP %d", e.URL, e.StatusCode)
	}
	return fmt.Sprintf("fetch %s: %v", e.URL, e.Err)
}

func (e *FetchError) Unwrap() error { return e.Err }

// IsFetchError checks if an error is a FetchError.
func IsFetchError(err error) bool {
	var fe *FetchError
	return errors.As(err, &fe)
}

// ScrapeError indicates a required structural anchor was missing from a
// page. For list pages the offending entry is skipped; for a match detail
// page the whole parse is aborted since a partial detail is unusable.
type ScrapeError struct {
	URL    string
	Anchor string // the class-name anchor that was not found
}

func (e *ScrapeError) Error() string {
	return fmt.Sprintf("scrape %s: missing anchor %q", e.URL, e.Anchor)
}

// IsScrapeError checks if an error is a ScrapeError.
func IsScrapeError(err error) bool {
	var se *ScrapeError
	return errors.As(err, &se)
}
