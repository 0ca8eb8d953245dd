// Package crawler defines core types shared across subsystems.
package crawler

import (
	"fmt"
	"regexp"
	"time"
)

// EngineKind selects the navigation backend for an environment.
type EngineKind string

// Supported navigation engines. EngineAuto fetches over HTTP and promotes
// visits to the browser when a page looks client-rendered.
const (
	EngineChromedp EngineKind = "chromedp"
	EngineHTTP     EngineKind = "http"
	EngineAuto     EngineKind = "auto"
)

// Environment describes one deployment target to verify. Environments are
// immutable configuration, loaded once at startup.
type Environment struct {
	Name              string
	BaseURL           string
	PathPrefix        string
	RequirePrefix     bool
	AssetSkipPattern  string
	KnownIssuePattern string
	Seeds             []string
	Engine            EngineKind
}

// Validate enforces the required environment fields. The prefix convention is
// deliberately explicit: whether an environment requires its path prefix must
// be declared, never inferred from the hostname.
func (e Environment) Validate() error {
	if e.Name == "" {
		return fmt.Errorf("environment name is required")
	}
	if e.BaseURL == "" {
		return fmt.Errorf("environment %s: base_url is required", e.Name)
	}
	if e.RequirePrefix && e.PathPrefix == "" {
		return fmt.Errorf("environment %s: path_prefix is required when require_prefix is set", e.Name)
	}
	if e.AssetSkipPattern != "" {
		if _, err := regexp.Compile(e.AssetSkipPattern); err != nil {
			return fmt.Errorf("environment %s: asset_skip_pattern: %w", e.Name, err)
		}
	}
	if e.KnownIssuePattern != "" {
		if _, err := regexp.Compile(e.KnownIssuePattern); err != nil {
			return fmt.Errorf("environment %s: known_issue_pattern: %w", e.Name, err)
		}
	}
	switch e.Engine {
	case "", EngineChromedp, EngineHTTP, EngineAuto:
	default:
		return fmt.Errorf("environment %s: unknown engine %q", e.Name, e.Engine)
	}
	return nil
}

// Link is an (href, anchor text) pair extracted from a loaded page.
type Link struct {
	Href string
	Text string
}

// VisitStatus is the terminal outcome for one visited path.
type VisitStatus string

// Visit outcomes recorded in the visited map.
const (
	VisitSuccess VisitStatus = "success"
	VisitBroken  VisitStatus = "broken"
)

// VisitRecord maps a normalized path to its crawl outcome. A path receives
// exactly one record per crawl.
type VisitRecord struct {
	Path       string        `json:"path"`
	Status     VisitStatus   `json:"status"`
	HTTPStatus int           `json:"http_status,omitempty"`
	Reason     string        `json:"reason,omitempty"`
	Depth      int           `json:"depth"`
	Duration   time.Duration `json:"duration"`
}

// BrokenLink is one failed page in the final report.
type BrokenLink struct {
	URL        string `json:"url"`
	Path       string `json:"path"`
	HTTPStatus int    `json:"http_status,omitempty"`
	Reason     string `json:"reason,omitempty"`
	Depth      int    `json:"depth"`
}

// CrawlResult aggregates the outcome of one environment's crawl. It is
// created at crawl start, mutated as pages are visited, and finalized when
// the frontier drains.
type CrawlResult struct {
	Environment string       `json:"environment"`
	BaseURL     string       `json:"base_url"`
	StartedAt   time.Time    `json:"started_at"`
	FinishedAt  time.Time    `json:"finished_at"`
	DurationMs  int64        `json:"duration_ms"`
	URLsChecked int          `json:"urls_checked"`
	LinksFound  int          `json:"links_found"`
	Succeeded   int          `json:"succeeded"`
	Broken      int          `json:"broken"`
	BrokenLinks []BrokenLink `json:"broken_links,omitempty"`
	ErrorText   string       `json:"error_text,omitempty"`
}

// Failed reports whether the environment should gate a CI run.
func (r CrawlResult) Failed() bool {
	return r.Broken > 0 || r.ErrorText != ""
}

// RunResult aggregates one CrawlResult per configured environment.
type RunResult struct {
	RunID        string        `json:"run_id"`
	StartedAt    time.Time     `json:"started_at"`
	FinishedAt   time.Time     `json:"finished_at"`
	Environments []CrawlResult `json:"environments"`
}

// Failed reports whether any environment found broken links or errored.
func (r RunResult) Failed() bool {
	for _, env := range r.Environments {
		if env.Failed() {
			return true
		}
	}
	return false
}

// NavResult is the outcome of a single page navigation.
type NavResult struct {
	StatusCode int
	FinalURL   string
	HTML       string
	Duration   time.Duration
}

// RetryConfig is the optional per-visit retry policy. The zero value means a
// single attempt with no retry.
type RetryConfig struct {
	Count int
	Delay time.Duration
}

// Attempts returns the total number of page-load attempts.
func (c RetryConfig) Attempts() int {
	if c.Count < 0 {
		return 1
	}
	return c.Count + 1
}
