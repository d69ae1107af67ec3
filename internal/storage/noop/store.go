// Package noop provides a ResultSink that discards everything. Used for
// dry runs where only logs and metrics matter.
package noop

import (
	"context"

	"github.com/slopscraper/slopscraper/internal/scraper"
)

type Store struct{}

func NewStore() *Store { return &Store{} }

func (*Store) SaveTitle(context.Context, scraper.TitleResult) error { return nil }

func (*Store) HasOptions(context.Context, scraper.Title) (bool, error) { return false, nil }

func (*Store) SaveSummary(context.Context, scraper.SessionSummary) error { return nil }

func (*Store) Close() error { return nil }
