package cache

import (
	"bytes"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/slopscraper/slopscraper/internal/scraper"
)

func ident(t *testing.T, url string) scraper.RequestIdentity {
	t.Helper()
	id, err := scraper.NewRequestIdentity("GET", url)
	require.NoError(t, err)
	return id
}

func TestPutGetRoundTrip(t *testing.T) {
	t.Parallel()

	c := New(1 << 20)
	id := ident(t, "https://example.com/a")

	_, ok := c.Get(id)
	assert.False(t, ok)

	c.Put(id, []byte("body"))
	got, ok := c.Get(id)
	require.True(t, ok)
	assert.Equal(t, []byte("body"), got)
	assert.Equal(t, int64(4), c.Size())
}

func TestGetReturnsCopy(t *testing.T) {
	t.Parallel()

	c := New(1 << 20)
	id := ident(t, "https://example.com/a")
	c.Put(id, []byte("body"))

	got, _ := c.Get(id)
	got[0] = 'X'

	again, _ := c.Get(id)
	assert.Equal(t, []byte("body"), again)
}

func TestEvictionDropsOldestInsertFirst(t *testing.T) {
	t.Parallel()

	c := New(10)
	a := ident(t, "https://example.com/a")
	b := ident(t, "https://example.com/b")
	d := ident(t, "https://example.com/c")

	c.Put(a, bytes.Repeat([]byte("x"), 4))
	c.Put(b, bytes.Repeat([]byte("y"), 4))
	// 4+4+4 > 10: inserting d must evict a, the oldest.
	c.Put(d, bytes.Repeat([]byte("z"), 4))

	_, ok := c.Get(a)
	assert.False(t, ok)
	_, ok = c.Get(b)
	assert.True(t, ok)
	_, ok = c.Get(d)
	assert.True(t, ok)
	assert.LessOrEqual(t, c.Size(), int64(10))
}

func TestReinsertRefreshesRecency(t *testing.T) {
	t.Parallel()

	c := New(10)
	a := ident(t, "https://example.com/a")
	b := ident(t, "https://example.com/b")
	d := ident(t, "https://example.com/c")

	c.Put(a, bytes.Repeat([]byte("x"), 4))
	c.Put(b, bytes.Repeat([]byte("y"), 4))
	// Re-inserting a moves it to the back; b becomes the eviction victim.
	c.Put(a, bytes.Repeat([]byte("x"), 4))
	c.Put(d, bytes.Repeat([]byte("z"), 4))

	_, ok := c.Get(a)
	assert.True(t, ok)
	_, ok = c.Get(b)
	assert.False(t, ok)
}

func TestOversizedEntryRejectedSilently(t *testing.T) {
	t.Parallel()

	c := New(8)
	a := ident(t, "https://example.com/a")
	b := ident(t, "https://example.com/b")
	c.Put(a, []byte("keep"))

	c.Put(b, bytes.Repeat([]byte("x"), 9))

	_, ok := c.Get(b)
	assert.False(t, ok)
	// The oversized insert must not disturb existing entries.
	_, ok = c.Get(a)
	assert.True(t, ok)
	assert.Equal(t, 1, c.Len())
}

func TestCapacityInvariantHoldsAcrossInserts(t *testing.T) {
	t.Parallel()

	c := New(100)
	for i := 0; i < 50; i++ {
		id := ident(t, "https://example.com/"+string(rune('a'+i%26)))
		c.Put(id, bytes.Repeat([]byte("x"), 30))
		assert.LessOrEqual(t, c.Size(), int64(100))
	}
}

func TestSaveAndLoad(t *testing.T) {
	t.Parallel()

	path := filepath.Join(t.TempDir(), "cache.json")
	c := New(1 << 20)
	a := ident(t, "https://example.com/a")
	b := ident(t, "https://example.com/b")
	c.Put(a, []byte("alpha"))
	c.Put(b, []byte("beta"))
	require.NoError(t, c.Save(path))

	loaded, err := Load(path, 1<<20)
	require.NoError(t, err)
	got, ok := loaded.Get(a)
	require.True(t, ok)
	assert.Equal(t, []byte("alpha"), got)
	assert.Equal(t, 2, loaded.Len())
}

func TestLoadMissingFileYieldsEmptyCache(t *testing.T) {
	t.Parallel()

	c, err := Load(filepath.Join(t.TempDir(), "nope.json"), 1<<20)
	require.NoError(t, err)
	assert.Equal(t, 0, c.Len())
}

func TestLoadCorruptFileFails(t *testing.T) {
	t.Parallel()

	path := filepath.Join(t.TempDir(), "cache.json")
	require.NoError(t, os.WriteFile(path, []byte("{not json"), 0o600))

	_, err := Load(path, 1<<20)
	assert.Error(t, err)
}

func TestLoadHonorsSmallerCapacity(t *testing.T) {
	t.Parallel()

	path := filepath.Join(t.TempDir(), "cache.json")
	c := New(1 << 20)
	c.Put(ident(t, "https://example.com/big"), bytes.Repeat([]byte("x"), 100))
	c.Put(ident(t, "https://example.com/small"), []byte("ok"))
	require.NoError(t, c.Save(path))

	// Reload with a capacity the big entry does not fit into.
	loaded, err := Load(path, 10)
	require.NoError(t, err)
	_, ok := loaded.Get(ident(t, "https://example.com/big"))
	assert.False(t, ok)
	_, ok = loaded.Get(ident(t, "https://example.com/small"))
	assert.True(t, ok)
}
