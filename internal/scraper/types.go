// Package scraper defines the core types and interfaces shared across the
// acquisition engine and its collaborators.
package scraper

import (
	"net/url"
	"strings"
	"time"
)

// Title is a single unit of work: one game for which launch options are
// gathered from all configured sources.
type Title struct {
	AppID int    `json:"app_id"`
	Name  string `json:"name"`
}

// LaunchOption is one extracted launch option with its provenance.
type LaunchOption struct {
	Command     string `json:"command"`
	Description string `json:"description"`
	Source      string `json:"source"`
}

// DedupeKey returns the key used for first-seen de-duplication when
// per-title results are merged.
func (o LaunchOption) DedupeKey() string {
	return strings.ToLower(strings.TrimSpace(o.Command))
}

// RequestIdentity names one outbound request. Two identities are equal iff
// their methods and normalized URLs match; it is the cache key.
type RequestIdentity struct {
	Method string
	URL    string
}

// NewRequestIdentity normalizes the method and URL into an identity.
// Query parameters are re-encoded in sorted order and the fragment is
// dropped so that equivalent requests compare equal.
func NewRequestIdentity(method, rawURL string) (RequestIdentity, error) {
	u, err := url.Parse(rawURL)
	if err != nil {
		return RequestIdentity{}, err
	}
	u.Host = strings.ToLower(u.Host)
	u.Scheme = strings.ToLower(u.Scheme)
	u.Fragment = ""
	u.RawQuery = u.Query().Encode()
	m := strings.ToUpper(strings.TrimSpace(method))
	if m == "" {
		m = "GET"
	}
	return RequestIdentity{Method: m, URL: u.String()}, nil
}

// Key returns the canonical cache key for this identity.
func (id RequestIdentity) Key() string {
	return id.Method + " " + id.URL
}

// SourceResult is the outcome of one (title, source) unit. It is produced
// once per unit per session and never mutated afterward.
type SourceResult struct {
	Source    string         `json:"source"`
	Title     Title          `json:"title"`
	Options   []LaunchOption `json:"options"`
	FromCache bool           `json:"from_cache"`
}

// TitleStatus is the terminal state of a title within a batch.
type TitleStatus string

// Title states recorded in batch results.
const (
	TitleStatusAggregated TitleStatus = "aggregated"
	TitleStatusPartial    TitleStatus = "partial"
	TitleStatusSkipped    TitleStatus = "skipped"
)

// TitleResult aggregates the per-source results for one title.
type TitleResult struct {
	Title     Title          `json:"title"`
	Status    TitleStatus    `json:"status"`
	Options   []LaunchOption `json:"options"`
	Sources   []SourceResult `json:"sources,omitempty"`
	FetchedAt time.Time      `json:"fetched_at"`
}

// BatchResult is the append-only sequence of per-title aggregations.
// Partial progress survives a mid-batch abort.
type BatchResult struct {
	SessionID string        `json:"session_id"`
	Titles    []TitleResult `json:"titles"`
	Abort     AbortReason   `json:"abort_reason,omitempty"`
}

// AbortReason is the typed signal that terminates a batch at a unit
// boundary without discarding gathered data.
type AbortReason string

// Abort reasons surfaced by the session monitor.
const (
	AbortErrorBudgetExceeded AbortReason = "error_budget_exceeded"
	AbortRuntimeExceeded     AbortReason = "runtime_exceeded"
)

// SessionSummary is the structured end-of-session report.
type SessionSummary struct {
	SessionID   string        `json:"session_id"`
	Requests    int           `json:"requests"`
	Errors      int           `json:"errors"`
	CacheHits   int           `json:"cache_hits"`
	StartedAt   time.Time     `json:"started_at"`
	Elapsed     time.Duration `json:"elapsed"`
	AbortReason AbortReason   `json:"abort_reason,omitempty"`
}
