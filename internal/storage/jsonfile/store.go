// Package jsonfile writes scrape results to per-title JSON files. It is
// the test-mode sink: no database required, results inspectable by hand.
package jsonfile

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"sync"

	"github.com/slopscraper/slopscraper/internal/scraper"
)

// Store implements scraper.ResultSink on a local directory.
type Store struct {
	dir string

	mu      sync.Mutex
	written map[int]struct{}
}

// NewStore creates the output directory if needed. The caller is
// expected to have validated dir already.
func NewStore(dir string) (*Store, error) {
	if err := os.MkdirAll(dir, 0o750); err != nil {
		return nil, fmt.Errorf("create output dir: %w", err)
	}
	return &Store{dir: dir, written: make(map[int]struct{})}, nil
}

func (s *Store) SaveTitle(_ context.Context, result scraper.TitleResult) error {
	data, err := json.MarshalIndent(result, "", "  ")
	if err != nil {
		return fmt.Errorf("encode title result: %w", err)
	}
	path := filepath.Join(s.dir, strconv.Itoa(result.Title.AppID)+".json")
	if err := os.WriteFile(path, data, 0o600); err != nil {
		return fmt.Errorf("write title result: %w", err)
	}
	s.mu.Lock()
	s.written[result.Title.AppID] = struct{}{}
	s.mu.Unlock()
	return nil
}

// HasOptions only knows about titles written during this process; a
// fresh test run never skips.
func (s *Store) HasOptions(_ context.Context, title scraper.Title) (bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	_, ok := s.written[title.AppID]
	return ok, nil
}

func (s *Store) SaveSummary(_ context.Context, summary scraper.SessionSummary) error {
	data, err := json.MarshalIndent(summary, "", "  ")
	if err != nil {
		return fmt.Errorf("encode summary: %w", err)
	}
	path := filepath.Join(s.dir, "session_"+summary.SessionID+".json")
	if err := os.WriteFile(path, data, 0o600); err != nil {
		return fmt.Errorf("write summary: %w", err)
	}
	return nil
}

func (s *Store) Close() error { return nil }
