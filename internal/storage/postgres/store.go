// Package postgres provides Postgres-backed persistence for titles,
// launch options and session summaries.
package postgres

import (
	"context"
	"fmt"
	"regexp"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/slopscraper/slopscraper/internal/scraper"
)

var validTableName = regexp.MustCompile(`^[a-zA-Z_][a-zA-Z0-9_]*$`)

// Config controls the Postgres connection pool.
type Config struct {
	DSN             string
	GamesTable      string
	OptionsTable    string
	SessionsTable   string
	MaxConns        int32
	MinConns        int32
	MaxConnLifetime time.Duration
}

type querierCloser interface {
	Exec(context.Context, string, ...any) (pgconn.CommandTag, error)
	QueryRow(context.Context, string, ...any) pgx.Row
	Close()
}

// Store persists scrape results into Postgres. It implements
// scraper.ResultSink.
type Store struct {
	pool     querierCloser
	ids      scraper.IDGenerator
	games    string
	options  string
	sessions string
}

// NewStore creates a Postgres-backed Store using the provided config.
func NewStore(ctx context.Context, cfg Config, ids scraper.IDGenerator) (*Store, error) {
	if cfg.DSN == "" {
		return nil, fmt.Errorf("database.dsn is required")
	}
	poolCfg, err := pgxpool.ParseConfig(cfg.DSN)
	if err != nil {
		return nil, fmt.Errorf("parse postgres dsn: %w", err)
	}
	if cfg.MaxConns > 0 {
		poolCfg.MaxConns = cfg.MaxConns
	}
	if cfg.MinConns > 0 {
		poolCfg.MinConns = cfg.MinConns
	}
	if cfg.MaxConnLifetime > 0 {
		poolCfg.MaxConnLifetime = cfg.MaxConnLifetime
	}
	pool, err := pgxpool.NewWithConfig(ctx, poolCfg)
	if err != nil {
		return nil, fmt.Errorf("connect postgres: %w", err)
	}
	return newStore(pool, cfg, ids)
}

// NewStoreWithPool constructs a Store from an existing pool (primarily
// for testing).
func NewStoreWithPool(pool querierCloser, cfg Config, ids scraper.IDGenerator) (*Store, error) {
	if pool == nil {
		return nil, fmt.Errorf("pool is required")
	}
	return newStore(pool, cfg, ids)
}

func newStore(pool querierCloser, cfg Config, ids scraper.IDGenerator) (*Store, error) {
	games := defaultTable(cfg.GamesTable, "games")
	options := defaultTable(cfg.OptionsTable, "launch_options")
	sessions := defaultTable(cfg.SessionsTable, "scrape_sessions")
	for _, t := range []string{games, options, sessions} {
		if !validTableName.MatchString(t) {
			return nil, fmt.Errorf("invalid table name %q", t)
		}
	}
	return &Store{pool: pool, ids: ids, games: games, options: options, sessions: sessions}, nil
}

func defaultTable(name, fallback string) string {
	if name == "" {
		return fallback
	}
	return name
}

// SaveTitle upserts the game row and inserts its merged options. An
// option already present for the game is left untouched.
func (s *Store) SaveTitle(ctx context.Context, result scraper.TitleResult) error {
	if s == nil || s.pool == nil {
		return fmt.Errorf("store is not configured")
	}
	if result.Title.AppID <= 0 {
		return fmt.Errorf("app id is required")
	}

	gameQuery := fmt.Sprintf(`
INSERT INTO %s (app_id, title, status, fetched_at)
VALUES ($1, $2, $3, $4)
ON CONFLICT (app_id) DO UPDATE SET
	title = EXCLUDED.title,
	status = EXCLUDED.status,
	fetched_at = EXCLUDED.fetched_at`, s.games)
	if _, err := s.pool.Exec(ctx, gameQuery,
		result.Title.AppID,
		result.Title.Name,
		string(result.Status),
		result.FetchedAt,
	); err != nil {
		return fmt.Errorf("upsert game: %w", err)
	}

	optionQuery := fmt.Sprintf(`
INSERT INTO %s (id, app_id, command, description, source)
VALUES ($1, $2, $3, $4, $5)
ON CONFLICT (app_id, command) DO NOTHING`, s.options)
	for _, opt := range result.Options {
		id, err := s.ids.NewID()
		if err != nil {
			return fmt.Errorf("generate option id: %w", err)
		}
		if _, err := s.pool.Exec(ctx, optionQuery,
			id,
			result.Title.AppID,
			opt.Command,
			opt.Description,
			opt.Source,
		); err != nil {
			return fmt.Errorf("insert option: %w", err)
		}
	}
	return nil
}

// HasOptions reports whether any launch options are stored for the title.
func (s *Store) HasOptions(ctx context.Context, title scraper.Title) (bool, error) {
	if s == nil || s.pool == nil {
		return false, fmt.Errorf("store is not configured")
	}
	query := fmt.Sprintf(`SELECT count(*) FROM %s WHERE app_id = $1`, s.options)
	var count int
	if err := s.pool.QueryRow(ctx, query, title.AppID).Scan(&count); err != nil {
		return false, fmt.Errorf("count options: %w", err)
	}
	return count > 0, nil
}

// SaveSummary records the end-of-session counters.
func (s *Store) SaveSummary(ctx context.Context, summary scraper.SessionSummary) error {
	if s == nil || s.pool == nil {
		return fmt.Errorf("store is not configured")
	}
	query := fmt.Sprintf(`
INSERT INTO %s (id, requests, errors, cache_hits, started_at, elapsed_seconds, abort_reason)
VALUES ($1, $2, $3, $4, $5, $6, $7)`, s.sessions)
	if _, err := s.pool.Exec(ctx, query,
		summary.SessionID,
		summary.Requests,
		summary.Errors,
		summary.CacheHits,
		summary.StartedAt,
		summary.Elapsed.Seconds(),
		string(summary.AbortReason),
	); err != nil {
		return fmt.Errorf("insert session: %w", err)
	}
	return nil
}

// Close releases the underlying pool resources.
func (s *Store) Close() error {
	if s == nil || s.pool == nil {
		return nil
	}
	s.pool.Close()
	return nil
}
