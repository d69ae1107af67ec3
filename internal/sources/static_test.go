package sources

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/slopscraper/slopscraper/internal/scraper"
)

func TestEngineKnowledgeNeedsNoFetch(t *testing.T) {
	t.Parallel()

	s := NewEngineKnowledge()
	_, ok := s.BuildRequest(scraper.Title{AppID: 730, Name: "Counter-Strike 2"})
	assert.False(t, ok)
}

func TestEngineKnowledgeExtract(t *testing.T) {
	t.Parallel()

	s := NewEngineKnowledge()

	t.Run("source engine title", func(t *testing.T) {
		opts, err := s.Extract(nil, scraper.Title{AppID: 730, Name: "Counter-Strike 2"})
		require.NoError(t, err)
		require.Len(t, opts, 8)
		assert.Equal(t, "-novid", opts[0].Command)
		assert.Equal(t, "engine", opts[0].Source)
	})

	t.Run("unreal title", func(t *testing.T) {
		opts, err := s.Extract(nil, scraper.Title{AppID: 1, Name: "Unreal Tournament"})
		require.NoError(t, err)
		require.Len(t, opts, 8)
		assert.Equal(t, "-windowed", opts[0].Command)
		assert.Equal(t, "-dx12", opts[3].Command)
	})

	t.Run("unknown title gets only generic options", func(t *testing.T) {
		opts, err := s.Extract(nil, scraper.Title{AppID: 1, Name: "Stardew Valley"})
		require.NoError(t, err)
		require.Len(t, opts, 3)
		assert.Equal(t, "-fps_max", opts[0].Command)
		assert.Equal(t, "-nojoy", opts[1].Command)
		assert.Equal(t, "-nosplash", opts[2].Command)
	})
}
