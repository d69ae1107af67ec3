// Package cache implements the byte-capped response cache keyed by
// request identity.
package cache

import (
	"container/list"
	"sync"
	"time"

	"github.com/slopscraper/slopscraper/internal/scraper"
)

type entry struct {
	key       string
	id        scraper.RequestIdentity
	body      []byte
	fetchedAt time.Time
}

// Cache is a size-bounded store of fetch results. Eviction drops the
// least-recently-inserted entry first; the capacity invariant is enforced
// synchronously on every insert. The cache is a pure optimization layer:
// removing it changes repeated work, never correctness.
type Cache struct {
	mu       sync.Mutex
	maxBytes int64
	size     int64
	order    *list.List
	items    map[string]*list.Element
}

// New creates a Cache bounded to maxBytes of stored bodies.
func New(maxBytes int64) *Cache {
	return &Cache{
		maxBytes: maxBytes,
		order:    list.New(),
		items:    make(map[string]*list.Element),
	}
}

// Get returns a copy of the cached body for id, if present. Lookups do
// not refresh recency; only inserts do.
func (c *Cache) Get(id scraper.RequestIdentity) ([]byte, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()
	el, ok := c.items[id.Key()]
	if !ok {
		return nil, false
	}
	body := el.Value.(*entry).body
	out := make([]byte, len(body))
	copy(out, body)
	return out, true
}

// Put stores body under id. An entry larger than the entire capacity is
// rejected without error; the caller's fetch result is unaffected.
// Re-inserting an existing identity replaces the prior entry and
// refreshes its recency.
func (c *Cache) Put(id scraper.RequestIdentity, body []byte) {
	if int64(len(body)) > c.maxBytes {
		return
	}
	c.mu.Lock()
	defer c.mu.Unlock()
	c.put(id, body, time.Now().UTC())
}

// put inserts without locking. Caller holds mu.
func (c *Cache) put(id scraper.RequestIdentity, body []byte, fetchedAt time.Time) {
	key := id.Key()
	stored := make([]byte, len(body))
	copy(stored, body)

	if el, ok := c.items[key]; ok {
		c.size -= int64(len(el.Value.(*entry).body))
		c.order.Remove(el)
		delete(c.items, key)
	}

	for c.size+int64(len(stored)) > c.maxBytes {
		oldest := c.order.Front()
		if oldest == nil {
			break
		}
		evicted := oldest.Value.(*entry)
		c.size -= int64(len(evicted.body))
		c.order.Remove(oldest)
		delete(c.items, evicted.key)
	}

	el := c.order.PushBack(&entry{key: key, id: id, body: stored, fetchedAt: fetchedAt})
	c.items[key] = el
	c.size += int64(len(stored))
}

// Size returns the total stored bytes.
func (c *Cache) Size() int64 {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.size
}

// Len returns the number of cached entries.
func (c *Cache) Len() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.order.Len()
}
