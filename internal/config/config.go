// Package config loads and validates scraper configuration via Viper.
package config

import (
	"fmt"
	"path/filepath"
	"strings"
	"time"

	"github.com/spf13/viper"
)

// Config captures all service configuration knobs loaded via Viper.
type Config struct {
	Scraper ScraperConfig `mapstructure:"scraper"`
	Limits  LimitsConfig  `mapstructure:"limits"`
	Cache   CacheConfig   `mapstructure:"cache"`
	DB      DBConfig      `mapstructure:"db"`
	Archive ArchiveConfig `mapstructure:"archive"`
	PubSub  PubSubConfig  `mapstructure:"pubsub"`
	Server  ServerConfig  `mapstructure:"server"`
	Logging LoggingConfig `mapstructure:"logging"`
}

// ScraperConfig governs batch behavior.
type ScraperConfig struct {
	UserAgent    string `mapstructure:"user_agent"`
	TestMode     bool   `mapstructure:"test_mode"`
	ForceRefresh bool   `mapstructure:"force_refresh"`
	SkipExisting bool   `mapstructure:"skip_existing"`
	OutputDir    string `mapstructure:"output_dir"`
}

// LimitsConfig holds the raw candidate limit values before clamping.
type LimitsConfig struct {
	MinDelaySeconds   float64 `mapstructure:"min_delay_seconds"`
	MaxTitles         int     `mapstructure:"max_titles"`
	MaxCacheMB        int64   `mapstructure:"max_cache_mb"`
	MaxSessionMinutes int     `mapstructure:"max_session_minutes"`
}

// CacheConfig sets the on-disk response cache location.
type CacheConfig struct {
	Path string `mapstructure:"path"`
}

// DBConfig controls access to the Postgres result store.
type DBConfig struct {
	DSN      string `mapstructure:"dsn"`
	MaxConns int32  `mapstructure:"max_conns"`
}

// ArchiveConfig selects where raw fetched pages are archived.
type ArchiveConfig struct {
	Provider string `mapstructure:"provider"`
	BaseDir  string `mapstructure:"base_dir"`
	Bucket   string `mapstructure:"bucket"`
	Prefix   string `mapstructure:"prefix"`
}

// PubSubConfig holds metadata for publish-subscribe notifications.
type PubSubConfig struct {
	ProjectID string `mapstructure:"project_id"`
	TopicID   string `mapstructure:"topic_id"`
}

// ServerConfig controls the status HTTP server.
type ServerConfig struct {
	Enabled bool `mapstructure:"enabled"`
	Port    int  `mapstructure:"port"`
}

// LoggingConfig toggles zap development features.
type LoggingConfig struct {
	Development bool `mapstructure:"development"`
}

// Load builds a Config from disk/environment.
func Load(path string) (Config, error) {
	v := viper.New()
	v.SetEnvPrefix("SLOPSCRAPER")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	setDefaults(v)

	if path != "" {
		v.SetConfigFile(path)
		if err := v.ReadInConfig(); err != nil {
			return Config{}, fmt.Errorf("read config: %w", err)
		}
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return Config{}, fmt.Errorf("unmarshal config: %w", err)
	}

	// Validation happens after CLI flag overrides are applied, not here.
	return cfg, nil
}

func setDefaults(v *viper.Viper) {
	v.SetDefault("scraper.user_agent", "slopscraper/1.0 (launch options research tool)")
	v.SetDefault("scraper.test_mode", false)
	v.SetDefault("scraper.force_refresh", false)
	v.SetDefault("scraper.skip_existing", true)
	v.SetDefault("scraper.output_dir", "./test-output")
	v.SetDefault("limits.min_delay_seconds", 2.0)
	v.SetDefault("limits.max_titles", 100)
	v.SetDefault("limits.max_cache_mb", 100)
	v.SetDefault("limits.max_session_minutes", 360)
	v.SetDefault("cache.path", "appdetails_cache.json")
	v.SetDefault("db.max_conns", 4)
	v.SetDefault("archive.provider", "noop")
	v.SetDefault("archive.prefix", "pages")
	v.SetDefault("server.enabled", false)
	v.SetDefault("server.port", 8080)
	v.SetDefault("logging.development", true)
}

// Validate enforces required values and reasonable limits.
func (c Config) Validate() error {
	if strings.TrimSpace(c.Scraper.UserAgent) == "" {
		return fmt.Errorf("scraper.user_agent must be set")
	}
	if c.Server.Enabled && c.Server.Port <= 0 {
		return fmt.Errorf("server.port must be > 0 when the status server is enabled")
	}
	switch c.Archive.Provider {
	case "noop", "local", "gcs":
	default:
		return fmt.Errorf("unknown archive provider: %s", c.Archive.Provider)
	}
	if c.Archive.Provider == "local" && c.Archive.BaseDir == "" {
		return fmt.Errorf("archive.base_dir must be set for the local archive provider")
	}
	if c.Archive.Provider == "gcs" && c.Archive.Bucket == "" {
		return fmt.Errorf("archive.bucket must be set for the gcs archive provider")
	}
	if !c.Scraper.TestMode && c.DB.DSN == "" {
		return fmt.Errorf("db.dsn must be set outside test mode")
	}
	return nil
}

// RequestedLimits converts the raw config values into clamp candidates.
func (c Config) RequestedLimits() RequestedLimits {
	return RequestedLimits{
		MinDelay:      time.Duration(c.Limits.MinDelaySeconds * float64(time.Second)),
		MaxTitles:     c.Limits.MaxTitles,
		MaxCacheBytes: c.Limits.MaxCacheMB << 20,
		MaxSession:    time.Duration(c.Limits.MaxSessionMinutes) * time.Minute,
	}
}

// allowedOutputDirs are the only roots test-mode results may be written
// under. Anything else is replaced by the default, and the substitution is
// reported.
var allowedOutputDirs = []string{"test-output", "output", "results", "data"}

const defaultOutputDir = "./test-output"

// ValidateOutputDir rejects traversal outside the working directory and
// directories not on the allow list. It returns the effective path and
// whether the requested one was replaced.
func ValidateOutputDir(dir string) (string, bool) {
	if dir == "" {
		return defaultOutputDir, true
	}
	clean := filepath.Clean(dir)
	if filepath.IsAbs(clean) || strings.HasPrefix(clean, "..") {
		return defaultOutputDir, true
	}
	for _, allowed := range allowedOutputDirs {
		if clean == allowed || strings.HasPrefix(clean, allowed+string(filepath.Separator)) {
			return clean, false
		}
	}
	return defaultOutputDir, true
}
