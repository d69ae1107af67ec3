package cmd

import (
	"context"
	"fmt"
	"os/signal"
	"syscall"

	gcppubsub "cloud.google.com/go/pubsub"
	gcstorage "cloud.google.com/go/storage"
	"github.com/spf13/cobra"
	"go.uber.org/zap"

	gcsarchive "github.com/slopscraper/slopscraper/internal/archive/gcs"
	localarchive "github.com/slopscraper/slopscraper/internal/archive/local"
	nooparchive "github.com/slopscraper/slopscraper/internal/archive/noop"
	"github.com/slopscraper/slopscraper/internal/cache"
	clocksystem "github.com/slopscraper/slopscraper/internal/clock/system"
	"github.com/slopscraper/slopscraper/internal/config"
	"github.com/slopscraper/slopscraper/internal/fetch"
	"github.com/slopscraper/slopscraper/internal/hash/sha256"
	iduuid "github.com/slopscraper/slopscraper/internal/id/uuid"
	"github.com/slopscraper/slopscraper/internal/logging"
	"github.com/slopscraper/slopscraper/internal/metrics"
	"github.com/slopscraper/slopscraper/internal/orchestrator"
	pubsubpublisher "github.com/slopscraper/slopscraper/internal/publisher/pubsub"
	"github.com/slopscraper/slopscraper/internal/ratelimit"
	"github.com/slopscraper/slopscraper/internal/scraper"
	"github.com/slopscraper/slopscraper/internal/session"
	"github.com/slopscraper/slopscraper/internal/sources"
	"github.com/slopscraper/slopscraper/internal/status"
	"github.com/slopscraper/slopscraper/internal/storage/jsonfile"
	"github.com/slopscraper/slopscraper/internal/storage/noop"
	"github.com/slopscraper/slopscraper/internal/storage/postgres"
	"github.com/slopscraper/slopscraper/internal/titles"
)

type scrapeFlags struct {
	limit        int
	testMode     bool
	forceRefresh bool
	rateSeconds  float64
	outputDir    string
}

func newScrapeCmd() *cobra.Command {
	var flags scrapeFlags

	cmd := &cobra.Command{
		Use:   "scrape",
		Short: "Run one scrape session",
		RunE: func(cmd *cobra.Command, _ []string) error {
			return runScrape(cmd, flags)
		},
	}

	cmd.Flags().IntVar(&flags.limit, "limit", 0, "maximum titles to process this session")
	cmd.Flags().BoolVar(&flags.testMode, "test", false, "test mode: fixed title set, JSON file output, no database")
	cmd.Flags().BoolVar(&flags.forceRefresh, "force-refresh", false, "refetch titles even when options are already stored")
	cmd.Flags().Float64Var(&flags.rateSeconds, "rate", 0, "minimum delay between requests in seconds")
	cmd.Flags().StringVar(&flags.outputDir, "output", "", "test-mode output directory")

	return cmd
}

func runScrape(cmd *cobra.Command, flags scrapeFlags) error {
	cfg, err := config.Load(cfgFile)
	if err != nil {
		return err
	}
	applyFlags(cmd, flags, &cfg)
	if err := cfg.Validate(); err != nil {
		return err
	}

	logger, err := logging.New(cfg.Logging.Development)
	if err != nil {
		return err
	}
	defer func() { _ = logger.Sync() }()

	metrics.Init()

	limits, clamps := config.NewLimits(cfg.RequestedLimits())
	for _, c := range clamps {
		logger.Warn("limit clamped",
			zap.String("field", c.Field),
			zap.String("requested", c.Requested),
			zap.String("enforced", c.Enforced),
			zap.String("reason", c.Reason),
		)
	}
	if err := limits.Validate(); err != nil {
		return err
	}

	ctx, stop := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	ids := iduuid.New()
	sessionID, err := ids.NewID()
	if err != nil {
		return fmt.Errorf("generate session id: %w", err)
	}
	logger.Info("session started",
		zap.String("session_id", sessionID),
		zap.Bool("test_mode", cfg.Scraper.TestMode),
		zap.Int("max_titles", limits.MaxTitles),
		zap.Duration("min_delay", limits.MinDelay),
	)

	responseCache, err := cache.Load(cfg.Cache.Path, limits.MaxCacheBytes)
	if err != nil {
		logger.Warn("cache load failed, starting empty", zap.Error(err))
		responseCache = cache.New(limits.MaxCacheBytes)
	}

	limiter := ratelimit.New(ratelimit.Config{
		MinDelay:    limits.MinDelay,
		BurstWindow: limits.BurstWindow,
		BurstMax:    limits.BurstMaxRequests,
	})
	clock := clocksystem.New()
	monitor := session.New(session.Config{
		MaxErrors:  limits.MaxSessionErrors,
		MaxRuntime: limits.MaxSession,
	}, clock, logger)
	fetcher := fetch.New(fetch.Config{
		UserAgent:    cfg.Scraper.UserAgent,
		Timeout:      limits.RequestTimeout,
		MaxBodyBytes: limits.MaxResponseBytes,
		MaxRedirects: limits.MaxRedirects,
	}, logger)

	sink, err := buildSink(ctx, cfg, ids, logger)
	if err != nil {
		return err
	}
	defer func() {
		if cerr := sink.Close(); cerr != nil {
			logger.Warn("close sink", zap.Error(cerr))
		}
	}()

	archiver, err := buildArchiver(ctx, cfg)
	if err != nil {
		return err
	}

	publisher, err := buildPublisher(ctx, cfg)
	if err != nil {
		return err
	}

	if cfg.Server.Enabled {
		srv := status.NewServer(sessionID, monitor, responseCache, limits, clamps, logger)
		go func() {
			if serveErr := srv.Serve(ctx, cfg.Server.Port); serveErr != nil {
				logger.Error("status server stopped", zap.Error(serveErr))
			}
		}()
	}

	provider := titles.NewProvider(fetcher, responseCache, limiter, monitor, logger)
	var batch []scraper.Title
	if cfg.Scraper.TestMode {
		batch = provider.TestTitles(limits.MaxTitles, nil)
	} else {
		batch, err = provider.Fetch(ctx, limits.MaxTitles, nil)
		if err != nil {
			logger.Error("title selection failed", zap.Error(err))
			if len(batch) == 0 {
				return err
			}
		}
	}
	logger.Info("titles selected", zap.Int("count", len(batch)))

	orch := orchestrator.New(
		[]scraper.Source{
			sources.NewPCGamingWiki(),
			sources.NewSteamCommunity(),
			sources.NewProtonDB(),
			sources.NewEngineKnowledge(),
		},
		fetcher,
		responseCache,
		limiter,
		monitor,
		sink,
		publisher,
		archiver,
		sha256.New(),
		clock,
		orchestrator.Config{
			MaxTitles:     limits.MaxTitles,
			Topic:         cfg.PubSub.TopicID,
			ArchivePrefix: cfg.Archive.Prefix,
			SkipExisting:  cfg.Scraper.SkipExisting,
			ForceRefresh:  cfg.Scraper.ForceRefresh,
		},
		logger,
	)

	result := orch.Run(ctx, sessionID, batch)

	summary := monitor.Summary(sessionID)
	if err := sink.SaveSummary(context.WithoutCancel(ctx), summary); err != nil {
		logger.Warn("save session summary", zap.Error(err))
	}
	if err := responseCache.Save(cfg.Cache.Path); err != nil {
		logger.Warn("persist cache", zap.Error(err))
	}

	logger.Info("session finished",
		zap.String("session_id", sessionID),
		zap.Int("titles", len(result.Titles)),
		zap.Int("requests", summary.Requests),
		zap.Int("errors", summary.Errors),
		zap.Int("cache_hits", summary.CacheHits),
		zap.Duration("elapsed", summary.Elapsed),
		zap.String("abort_reason", string(result.Abort)),
	)
	return nil
}

// applyFlags layers explicit CLI flags over the loaded config.
func applyFlags(cmd *cobra.Command, flags scrapeFlags, cfg *config.Config) {
	if cmd.Flags().Changed("limit") {
		cfg.Limits.MaxTitles = flags.limit
	}
	if cmd.Flags().Changed("test") {
		cfg.Scraper.TestMode = flags.testMode
	}
	if cmd.Flags().Changed("force-refresh") {
		cfg.Scraper.ForceRefresh = flags.forceRefresh
	}
	if cmd.Flags().Changed("rate") {
		cfg.Limits.MinDelaySeconds = flags.rateSeconds
	}
	if cmd.Flags().Changed("output") {
		cfg.Scraper.OutputDir = flags.outputDir
	}
}

func buildSink(ctx context.Context, cfg config.Config, ids scraper.IDGenerator, logger *zap.Logger) (scraper.ResultSink, error) {
	if cfg.Scraper.TestMode {
		dir, replaced := config.ValidateOutputDir(cfg.Scraper.OutputDir)
		if replaced {
			logger.Warn("output dir replaced",
				zap.String("requested", cfg.Scraper.OutputDir),
				zap.String("effective", dir),
			)
		}
		return jsonfile.NewStore(dir)
	}
	if cfg.DB.DSN == "" {
		return noop.NewStore(), nil
	}
	store, err := postgres.NewStore(ctx, postgres.Config{
		DSN:      cfg.DB.DSN,
		MaxConns: cfg.DB.MaxConns,
	}, ids)
	if err != nil {
		return nil, err
	}
	return store, nil
}

func buildArchiver(ctx context.Context, cfg config.Config) (scraper.Archiver, error) {
	switch cfg.Archive.Provider {
	case "local":
		return localarchive.New(localarchive.Config{BaseDir: cfg.Archive.BaseDir})
	case "gcs":
		client, err := gcstorage.NewClient(ctx)
		if err != nil {
			return nil, fmt.Errorf("create storage client: %w", err)
		}
		return gcsarchive.New(client, gcsarchive.Config{Bucket: cfg.Archive.Bucket})
	default:
		return nooparchive.New(), nil
	}
}

// buildPublisher returns nil when publishing is not configured; the
// orchestrator treats a nil publisher as disabled.
func buildPublisher(ctx context.Context, cfg config.Config) (scraper.Publisher, error) {
	if cfg.PubSub.ProjectID == "" || cfg.PubSub.TopicID == "" {
		return nil, nil
	}
	client, err := gcppubsub.NewClient(ctx, cfg.PubSub.ProjectID)
	if err != nil {
		return nil, fmt.Errorf("create pubsub client: %w", err)
	}
	return pubsubpublisher.New(client), nil
}
