package crawler

import (
	"context"
	"time"
)

// Navigator loads a page and returns its rendered HTML plus metadata. The
// engine only depends on this narrow contract; it does not care whether the
// backend is Chromium-based or a plain HTTP client.
type Navigator interface {
	Navigate(ctx context.Context, url string) (NavResult, error)
	Close(ctx context.Context) error
}

// ReportSink persists a finalized RunResult and returns a URI for it.
type ReportSink interface {
	Save(ctx context.Context, result RunResult) (string, error)
}

// Notifier publishes a completion payload once the run finishes. Failures
// must never abort the run.
type Notifier interface {
	Notify(ctx context.Context, payload any) (string, error)
}

// HistoryStore persists per-environment crawl summaries for trend analysis.
type HistoryStore interface {
	RecordCrawl(ctx context.Context, runID string, result CrawlResult) error
}

// Clock returns the current time (useful for testing).
type Clock interface {
	Now() time.Time
}
