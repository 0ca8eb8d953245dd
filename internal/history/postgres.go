// Package history provides Postgres-backed persistence of crawl summaries,
// keeping a queryable trail of verification runs over time.
package history

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/ai-tools-lab/linkverify/internal/crawler"
)

// Config controls the Postgres connection pool used for history rows.
type Config struct {
	DSN             string
	MaxConns        int32
	MaxConnLifetime time.Duration
}

type execCloser interface {
	Exec(context.Context, string, ...any) (pgconn.CommandTag, error)
	Close()
}

// Store records one row per environment crawl.
type Store struct {
	pool execCloser
}

// New creates a Postgres-backed Store using the provided config.
func New(ctx context.Context, cfg Config) (*Store, error) {
	if cfg.DSN == "" {
		return nil, fmt.Errorf("history.dsn is required")
	}
	poolCfg, err := pgxpool.ParseConfig(cfg.DSN)
	if err != nil {
		return nil, fmt.Errorf("parse postgres dsn: %w", err)
	}
	if cfg.MaxConns > 0 {
		poolCfg.MaxConns = cfg.MaxConns
	}
	if cfg.MaxConnLifetime > 0 {
		poolCfg.MaxConnLifetime = cfg.MaxConnLifetime
	}
	pool, err := pgxpool.NewWithConfig(ctx, poolCfg)
	if err != nil {
		return nil, fmt.Errorf("connect postgres: %w", err)
	}
	return &Store{pool: pool}, nil
}

// NewWithPool constructs a store from an existing pool (primarily for testing).
func NewWithPool(pool execCloser) (*Store, error) {
	if pool == nil {
		return nil, fmt.Errorf("pool is required")
	}
	return &Store{pool: pool}, nil
}

// Close closes the underlying connection pool.
func (s *Store) Close() {
	s.pool.Close()
}

const insertCrawlSQL = `
	INSERT INTO crawl_history
		(run_id, environment, started_at, finished_at,
		 urls_checked, links_found, succeeded, broken, error_text)
	VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9);
`

// RecordCrawl persists a finalized environment crawl summary.
func (s *Store) RecordCrawl(ctx context.Context, runID string, result crawler.CrawlResult) error {
	id, err := uuid.Parse(runID)
	if err != nil {
		return fmt.Errorf("parse run id: %w", err)
	}
	_, err = s.pool.Exec(ctx, insertCrawlSQL,
		id,
		result.Environment,
		result.StartedAt,
		result.FinishedAt,
		result.URLsChecked,
		result.LinksFound,
		result.Succeeded,
		result.Broken,
		nullable(result.ErrorText),
	)
	if err != nil {
		return fmt.Errorf("insert crawl history: %w", err)
	}
	return nil
}

func nullable(s string) *string {
	if s == "" {
		return nil
	}
	return &s
}
