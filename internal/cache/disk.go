package cache

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/slopscraper/slopscraper/internal/scraper"
)

// diskEntry is the on-disk form of one cached response. Body is base64
// encoded by encoding/json.
type diskEntry struct {
	Method    string    `json:"method"`
	URL       string    `json:"url"`
	Body      []byte    `json:"body"`
	FetchedAt time.Time `json:"fetched_at"`
}

// Load reads a persisted cache from path, bounded to maxBytes. A missing
// file yields an empty cache; entries that would exceed the capacity are
// dropped in insertion order, oldest first.
func Load(path string, maxBytes int64) (*Cache, error) {
	c := New(maxBytes)
	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return c, nil
		}
		return nil, fmt.Errorf("read cache file: %w", err)
	}
	var entries []diskEntry
	if err := json.Unmarshal(data, &entries); err != nil {
		return nil, fmt.Errorf("decode cache file: %w", err)
	}
	c.mu.Lock()
	defer c.mu.Unlock()
	for _, de := range entries {
		if int64(len(de.Body)) > maxBytes {
			continue
		}
		c.put(scraper.RequestIdentity{Method: de.Method, URL: de.URL}, de.Body, de.FetchedAt)
	}
	return c, nil
}

// Save writes the cache to path atomically.
func (c *Cache) Save(path string) error {
	c.mu.Lock()
	entries := make([]diskEntry, 0, c.order.Len())
	for el := c.order.Front(); el != nil; el = el.Next() {
		e := el.Value.(*entry)
		entries = append(entries, diskEntry{
			Method:    e.id.Method,
			URL:       e.id.URL,
			Body:      e.body,
			FetchedAt: e.fetchedAt,
		})
	}
	c.mu.Unlock()

	data, err := json.Marshal(entries)
	if err != nil {
		return fmt.Errorf("encode cache: %w", err)
	}
	tmp := path + ".tmp"
	if err := os.MkdirAll(filepath.Dir(path), 0o750); err != nil {
		return fmt.Errorf("create cache dir: %w", err)
	}
	if err := os.WriteFile(tmp, data, 0o600); err != nil {
		return fmt.Errorf("write cache file: %w", err)
	}
	if err := os.Rename(tmp, path); err != nil {
		return fmt.Errorf("replace cache file: %w", err)
	}
	return nil
}
