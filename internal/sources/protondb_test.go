package sources

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/slopscraper/slopscraper/internal/scraper"
)

func TestProtonBuildRequest(t *testing.T) {
	t.Parallel()

	s := NewProtonDB()

	id, ok := s.BuildRequest(scraper.Title{AppID: 570, Name: "Dota 2"})
	require.True(t, ok)
	assert.Equal(t, "https://www.protondb.com/api/v1/reports/summaries/570.json", id.URL)

	_, ok = s.BuildRequest(scraper.Title{AppID: -1})
	assert.False(t, ok)
}

func TestProtonExtract(t *testing.T) {
	t.Parallel()

	s := NewProtonDB()

	t.Run("gold tier", func(t *testing.T) {
		opts, err := s.Extract([]byte(`{"total": 150, "tier": "gold"}`), scraper.Title{AppID: 570})
		require.NoError(t, err)
		require.Len(t, opts, 4)
		assert.Equal(t, "PROTON_ENABLE_NVAPI=1", opts[0].Command)
		assert.Equal(t, "gamemode", opts[2].Command)
		assert.Equal(t, "protondb", opts[0].Source)
	})

	t.Run("bronze tier", func(t *testing.T) {
		opts, err := s.Extract([]byte(`{"total": 12, "tier": "bronze"}`), scraper.Title{AppID: 570})
		require.NoError(t, err)
		require.Len(t, opts, 4)
		assert.Equal(t, "PROTON_FORCE_LARGE_ADDRESS_AWARE=1", opts[0].Command)
		assert.Equal(t, "DXVK_ASYNC=1", opts[1].Command)
	})

	t.Run("trending tier overrides tier", func(t *testing.T) {
		opts, err := s.Extract([]byte(`{"total": 10, "tier": "gold", "trendingTier": "borked"}`), scraper.Title{AppID: 570})
		require.NoError(t, err)
		assert.Empty(t, opts)
	})

	t.Run("no reports", func(t *testing.T) {
		opts, err := s.Extract([]byte(`{"total": 0}`), scraper.Title{AppID: 570})
		require.NoError(t, err)
		assert.Empty(t, opts)
	})

	t.Run("empty body", func(t *testing.T) {
		opts, err := s.Extract(nil, scraper.Title{AppID: 570})
		require.NoError(t, err)
		assert.Empty(t, opts)
	})

	t.Run("malformed body", func(t *testing.T) {
		_, err := s.Extract([]byte(`not json`), scraper.Title{AppID: 570})
		assert.Error(t, err)
	})
}
