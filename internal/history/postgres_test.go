package history

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/pashagolub/pgxmock/v4"
	"github.com/stretchr/testify/require"

	"github.com/ai-tools-lab/linkverify/internal/crawler"
)

func sampleResult() crawler.CrawlResult {
	started := time.Date(2026, 3, 14, 9, 0, 0, 0, time.UTC)
	return crawler.CrawlResult{
		Environment: "staging",
		BaseURL:     "https://staging.example.com",
		StartedAt:   started,
		FinishedAt:  started.Add(42 * time.Second),
		URLsChecked: 120,
		LinksFound:  480,
		Succeeded:   118,
		Broken:      2,
	}
}

func TestRecordCrawl(t *testing.T) {
	t.Parallel()

	mock, err := pgxmock.NewPool()
	require.NoError(t, err)
	defer mock.Close()

	store, err := NewWithPool(mock)
	require.NoError(t, err)

	runID := uuid.New()
	result := sampleResult()

	mock.ExpectExec("INSERT INTO crawl_history").
		WithArgs(
			runID,
			result.Environment,
			result.StartedAt,
			result.FinishedAt,
			result.URLsChecked,
			result.LinksFound,
			result.Succeeded,
			result.Broken,
			(*string)(nil),
		).
		WillReturnResult(pgxmock.NewResult("INSERT", 1))

	require.NoError(t, store.RecordCrawl(context.Background(), runID.String(), result))
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestRecordCrawlStoresErrorText(t *testing.T) {
	t.Parallel()

	mock, err := pgxmock.NewPool()
	require.NoError(t, err)
	defer mock.Close()

	store, err := NewWithPool(mock)
	require.NoError(t, err)

	runID := uuid.New()
	result := sampleResult()
	result.ErrorText = "browser launch failed"
	errText := result.ErrorText

	mock.ExpectExec("INSERT INTO crawl_history").
		WithArgs(
			runID,
			result.Environment,
			result.StartedAt,
			result.FinishedAt,
			result.URLsChecked,
			result.LinksFound,
			result.Succeeded,
			result.Broken,
			&errText,
		).
		WillReturnResult(pgxmock.NewResult("INSERT", 1))

	require.NoError(t, store.RecordCrawl(context.Background(), runID.String(), result))
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestRecordCrawlRejectsBadRunID(t *testing.T) {
	t.Parallel()

	mock, err := pgxmock.NewPool()
	require.NoError(t, err)
	defer mock.Close()

	store, err := NewWithPool(mock)
	require.NoError(t, err)

	err = store.RecordCrawl(context.Background(), "not-a-uuid", sampleResult())
	require.ErrorContains(t, err, "parse run id")
}

func TestRecordCrawlWrapsExecError(t *testing.T) {
	t.Parallel()

	mock, err := pgxmock.NewPool()
	require.NoError(t, err)
	defer mock.Close()

	store, err := NewWithPool(mock)
	require.NoError(t, err)

	mock.ExpectExec("INSERT INTO crawl_history").
		WillReturnError(errors.New("connection refused"))

	err = store.RecordCrawl(context.Background(), uuid.NewString(), sampleResult())
	require.ErrorContains(t, err, "insert crawl history")
}

func TestNewWithPoolRequiresPool(t *testing.T) {
	t.Parallel()

	_, err := NewWithPool(nil)
	require.ErrorContains(t, err, "pool is required")
}

func TestNewRequiresDSN(t *testing.T) {
	t.Parallel()

	_, err := New(context.Background(), Config{})
	require.ErrorContains(t, err, "history.dsn is required")
}
