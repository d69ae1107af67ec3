package postgres

import (
	"context"
	"fmt"
	"testing"
	"time"

	"github.com/pashagolub/pgxmock/v4"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/slopscraper/slopscraper/internal/scraper"
)

type seqIDs struct{ n int }

func (s *seqIDs) NewID() (string, error) {
	s.n++
	return fmt.Sprintf("opt-%d", s.n), nil
}

func newMockStore(t *testing.T, cfg Config) (*Store, pgxmock.PgxPoolIface) {
	t.Helper()
	mock, err := pgxmock.NewPool()
	require.NoError(t, err)
	store, err := NewStoreWithPool(mock, cfg, &seqIDs{})
	require.NoError(t, err)
	return store, mock
}

func TestSaveTitle(t *testing.T) {
	t.Parallel()

	store, mock := newMockStore(t, Config{})
	fetchedAt := time.Date(2025, 6, 1, 12, 0, 0, 0, time.UTC)

	mock.ExpectExec("INSERT INTO games").
		WithArgs(570, "Dota 2", "aggregated", fetchedAt).
		WillReturnResult(pgxmock.NewResult("INSERT", 1))
	mock.ExpectExec("INSERT INTO launch_options").
		WithArgs("opt-1", 570, "-novid", "Skip intro", "pcgamingwiki").
		WillReturnResult(pgxmock.NewResult("INSERT", 1))
	mock.ExpectExec("INSERT INTO launch_options").
		WithArgs("opt-2", 570, "-console", "Dev console", "engine").
		WillReturnResult(pgxmock.NewResult("INSERT", 1))

	err := store.SaveTitle(context.Background(), scraper.TitleResult{
		Title:     scraper.Title{AppID: 570, Name: "Dota 2"},
		Status:    scraper.TitleStatusAggregated,
		FetchedAt: fetchedAt,
		Options: []scraper.LaunchOption{
			{Command: "-novid", Description: "Skip intro", Source: "pcgamingwiki"},
			{Command: "-console", Description: "Dev console", Source: "engine"},
		},
	})
	require.NoError(t, err)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestSaveTitleRejectsMissingAppID(t *testing.T) {
	t.Parallel()

	store, _ := newMockStore(t, Config{})
	err := store.SaveTitle(context.Background(), scraper.TitleResult{})
	assert.Error(t, err)
}

func TestSaveTitlePropagatesExecError(t *testing.T) {
	t.Parallel()

	store, mock := newMockStore(t, Config{})
	mock.ExpectExec("INSERT INTO games").
		WillReturnError(fmt.Errorf("connection refused"))

	err := store.SaveTitle(context.Background(), scraper.TitleResult{
		Title: scraper.Title{AppID: 570, Name: "Dota 2"},
	})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "upsert game")
}

func TestHasOptions(t *testing.T) {
	t.Parallel()

	store, mock := newMockStore(t, Config{})

	mock.ExpectQuery("SELECT count").
		WithArgs(570).
		WillReturnRows(pgxmock.NewRows([]string{"count"}).AddRow(3))
	has, err := store.HasOptions(context.Background(), scraper.Title{AppID: 570})
	require.NoError(t, err)
	assert.True(t, has)

	mock.ExpectQuery("SELECT count").
		WithArgs(999).
		WillReturnRows(pgxmock.NewRows([]string{"count"}).AddRow(0))
	has, err = store.HasOptions(context.Background(), scraper.Title{AppID: 999})
	require.NoError(t, err)
	assert.False(t, has)

	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestSaveSummary(t *testing.T) {
	t.Parallel()

	store, mock := newMockStore(t, Config{})
	started := time.Date(2025, 6, 1, 12, 0, 0, 0, time.UTC)

	mock.ExpectExec("INSERT INTO scrape_sessions").
		WithArgs("sess-1", 42, 3, 10, started, 90.0, "error_budget_exceeded").
		WillReturnResult(pgxmock.NewResult("INSERT", 1))

	err := store.SaveSummary(context.Background(), scraper.SessionSummary{
		SessionID:   "sess-1",
		Requests:    42,
		Errors:      3,
		CacheHits:   10,
		StartedAt:   started,
		Elapsed:     90 * time.Second,
		AbortReason: scraper.AbortErrorBudgetExceeded,
	})
	require.NoError(t, err)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestCustomTableNames(t *testing.T) {
	t.Parallel()

	store, mock := newMockStore(t, Config{OptionsTable: "my_options"})

	mock.ExpectQuery("SELECT count\\(\\*\\) FROM my_options").
		WithArgs(1).
		WillReturnRows(pgxmock.NewRows([]string{"count"}).AddRow(0))
	_, err := store.HasOptions(context.Background(), scraper.Title{AppID: 1})
	require.NoError(t, err)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestInvalidTableNameRejected(t *testing.T) {
	t.Parallel()

	mock, err := pgxmock.NewPool()
	require.NoError(t, err)
	_, err = NewStoreWithPool(mock, Config{GamesTable: "games; DROP TABLE games"}, &seqIDs{})
	assert.Error(t, err)
}
