package config

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoadDefaults(t *testing.T) {
	cfg, err := Load("")
	require.NoError(t, err)

	assert.NotEmpty(t, cfg.Scraper.UserAgent)
	assert.False(t, cfg.Scraper.TestMode)
	assert.True(t, cfg.Scraper.SkipExisting)
	assert.Equal(t, 100, cfg.Limits.MaxTitles)
	assert.Equal(t, "noop", cfg.Archive.Provider)
	assert.Equal(t, 8080, cfg.Server.Port)
}

func TestValidate(t *testing.T) {
	t.Parallel()

	base := func() Config {
		cfg, err := Load("")
		require.NoError(t, err)
		cfg.Scraper.TestMode = true
		return cfg
	}

	t.Run("test mode needs no dsn", func(t *testing.T) {
		cfg := base()
		assert.NoError(t, cfg.Validate())
	})

	t.Run("dsn required outside test mode", func(t *testing.T) {
		cfg := base()
		cfg.Scraper.TestMode = false
		cfg.DB.DSN = ""
		assert.Error(t, cfg.Validate())
	})

	t.Run("unknown archive provider", func(t *testing.T) {
		cfg := base()
		cfg.Archive.Provider = "s3"
		assert.Error(t, cfg.Validate())
	})

	t.Run("local archive needs base dir", func(t *testing.T) {
		cfg := base()
		cfg.Archive.Provider = "local"
		cfg.Archive.BaseDir = ""
		assert.Error(t, cfg.Validate())
	})

	t.Run("gcs archive needs bucket", func(t *testing.T) {
		cfg := base()
		cfg.Archive.Provider = "gcs"
		cfg.Archive.Bucket = ""
		assert.Error(t, cfg.Validate())
	})
}

func TestRequestedLimitsConversion(t *testing.T) {
	t.Parallel()

	cfg := Config{Limits: LimitsConfig{
		MinDelaySeconds:   2.5,
		MaxTitles:         30,
		MaxCacheMB:        50,
		MaxSessionMinutes: 90,
	}}
	req := cfg.RequestedLimits()
	assert.Equal(t, 2500*time.Millisecond, req.MinDelay)
	assert.Equal(t, 30, req.MaxTitles)
	assert.Equal(t, int64(50<<20), req.MaxCacheBytes)
	assert.Equal(t, 90*time.Minute, req.MaxSession)
}
