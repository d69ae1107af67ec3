// Package orchestrator drives the per-title fetch plan across the
// configured sources, folding results while respecting the session
// monitor's stop conditions.
package orchestrator

import (
	"context"
	"errors"
	"fmt"
	"time"

	"go.uber.org/zap"

	"github.com/slopscraper/slopscraper/internal/fetch"
	"github.com/slopscraper/slopscraper/internal/metrics"
	"github.com/slopscraper/slopscraper/internal/scraper"
)

// Config controls batch behavior. MaxTitles arrives pre-clamped.
type Config struct {
	MaxTitles     int
	Topic         string
	ArchivePrefix string
	SkipExisting  bool
	ForceRefresh  bool
}

// Orchestrator is the only component that sees the full batch. Sources
// for a given title are fetched sequentially so that the single shared
// limiter bounds the aggregate outbound rate.
type Orchestrator struct {
	sources   []scraper.Source
	fetcher   scraper.Fetcher
	cache     scraper.Cache
	limiter   scraper.Limiter
	monitor   scraper.Monitor
	sink      scraper.ResultSink
	publisher scraper.Publisher
	archiver  scraper.Archiver
	hasher    scraper.Hasher
	clock     scraper.Clock
	cfg       Config
	logger    *zap.Logger
}

// New constructs an Orchestrator. The sources slice order is the merge
// priority order: earlier sources win first-seen de-duplication.
func New(
	sources []scraper.Source,
	fetcher scraper.Fetcher,
	cache scraper.Cache,
	limiter scraper.Limiter,
	monitor scraper.Monitor,
	sink scraper.ResultSink,
	publisher scraper.Publisher,
	archiver scraper.Archiver,
	hasher scraper.Hasher,
	clock scraper.Clock,
	cfg Config,
	logger *zap.Logger,
) *Orchestrator {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Orchestrator{
		sources:   sources,
		fetcher:   fetcher,
		cache:     cache,
		limiter:   limiter,
		monitor:   monitor,
		sink:      sink,
		publisher: publisher,
		archiver:  archiver,
		hasher:    hasher,
		clock:     clock,
		cfg:       cfg,
		logger:    logger,
	}
}

// Run processes titles until all are done, the title budget is spent, the
// monitor trips, or the context is canceled. The returned batch always
// holds every title aggregated so far; gathered data is never discarded.
func (o *Orchestrator) Run(ctx context.Context, sessionID string, titles []scraper.Title) *scraper.BatchResult {
	batch := &scraper.BatchResult{SessionID: sessionID}
	attempted := 0

	for _, title := range titles {
		if ctx.Err() != nil {
			o.logger.Info("batch stopped: context canceled", zap.Int("titles_done", len(batch.Titles)))
			break
		}
		if reason, ok := o.monitor.ShouldAbort(); ok {
			batch.Abort = reason
			metrics.ObserveSessionAbort(string(reason))
			o.logger.Warn("session abort",
				zap.String("reason", string(reason)),
				zap.Int("titles_done", len(batch.Titles)),
			)
			break
		}
		if attempted >= o.cfg.MaxTitles {
			o.logger.Info("title budget reached", zap.Int("max_titles", o.cfg.MaxTitles))
			break
		}
		attempted++

		if o.shouldSkipExisting(ctx, title) {
			o.logger.Info("skipping title: already stored",
				zap.Int("app_id", title.AppID),
				zap.String("title", title.Name),
			)
			continue
		}

		result := o.processTitle(ctx, title)
		batch.Titles = append(batch.Titles, result)
		metrics.ObserveTitle(string(result.Status))

		if err := o.sink.SaveTitle(ctx, result); err != nil {
			o.monitor.RecordError()
			metrics.ObserveError("sink", "save")
			o.logger.Error("save title failed",
				zap.Int("app_id", title.AppID),
				zap.Error(err),
			)
		}
		o.publishTitle(ctx, result)
	}

	return batch
}

// processTitle runs every source unit for one title sequentially and
// merges their contributions. A failing source never blocks the others;
// an abort tripping mid-title keeps what was gathered so far.
func (o *Orchestrator) processTitle(ctx context.Context, title scraper.Title) scraper.TitleResult {
	result := scraper.TitleResult{
		Title:     title,
		Status:    scraper.TitleStatusAggregated,
		FetchedAt: o.clock.Now(),
	}

	for i, src := range o.sources {
		if i > 0 {
			if reason, ok := o.monitor.ShouldAbort(); ok {
				result.Status = scraper.TitleStatusPartial
				if len(result.Sources) == 0 {
					result.Status = scraper.TitleStatusSkipped
				}
				o.logger.Warn("title cut short",
					zap.Int("app_id", title.AppID),
					zap.String("reason", string(reason)),
					zap.Int("sources_done", len(result.Sources)),
				)
				break
			}
		}

		sr, err := o.runUnit(ctx, src, title)
		if err != nil {
			if !errors.Is(err, context.Canceled) {
				o.monitor.RecordError()
				metrics.ObserveError(src.Name(), errorKind(err))
			}
			o.logger.Warn("source failed",
				zap.Int("app_id", title.AppID),
				zap.String("source", src.Name()),
				zap.Error(err),
			)
		}
		if sr.Source != "" {
			result.Sources = append(result.Sources, sr)
			metrics.ObserveOptionsFound(sr.Source, len(sr.Options))
		}
	}

	result.Options = mergeOptions(result.Sources)
	o.logger.Info("title aggregated",
		zap.Int("app_id", title.AppID),
		zap.String("title", title.Name),
		zap.Int("options", len(result.Options)),
		zap.String("status", string(result.Status)),
	)
	return result
}

// runUnit executes one (title, source) step: cache lookup, then
// limiter-paced fetch on a miss, then extraction. The returned
// SourceResult is valid whenever the response was obtained, even if
// extraction failed and contributed no options.
func (o *Orchestrator) runUnit(ctx context.Context, src scraper.Source, title scraper.Title) (scraper.SourceResult, error) {
	id, needsFetch := src.BuildRequest(title)
	if !needsFetch {
		opts, err := src.Extract(nil, title)
		if err != nil {
			return scraper.SourceResult{}, fmt.Errorf("extract %s: %w", src.Name(), err)
		}
		return scraper.SourceResult{Source: src.Name(), Title: title, Options: opts}, nil
	}

	if body, ok := o.cache.Get(id); ok {
		o.monitor.RecordCacheHit()
		metrics.ObserveCacheLookup(true)
		return o.extract(src, title, body, true)
	}
	metrics.ObserveCacheLookup(false)

	if err := o.limiter.Acquire(ctx); err != nil {
		return scraper.SourceResult{}, fmt.Errorf("acquire slot: %w", err)
	}
	body, err := o.fetcher.Fetch(ctx, id)
	if err != nil {
		return scraper.SourceResult{}, err
	}
	o.cache.Put(id, body)
	o.monitor.RecordRequest()
	metrics.ObserveRequest(src.Name())
	o.archive(ctx, body)

	return o.extract(src, title, body, false)
}

func (o *Orchestrator) extract(src scraper.Source, title scraper.Title, body []byte, fromCache bool) (scraper.SourceResult, error) {
	sr := scraper.SourceResult{Source: src.Name(), Title: title, FromCache: fromCache}
	opts, err := src.Extract(body, title)
	if err != nil {
		return sr, fmt.Errorf("extract %s: %w", src.Name(), err)
	}
	sr.Options = opts
	return sr, nil
}

// archive stores the raw body under a content-addressed path. Best
// effort: archive failures are logged, not counted against the session.
func (o *Orchestrator) archive(ctx context.Context, body []byte) {
	if o.archiver == nil {
		return
	}
	hash, err := o.hasher.Hash(body)
	if err != nil {
		o.logger.Warn("hash body failed", zap.Error(err))
		return
	}
	path := hash + ".html"
	if o.cfg.ArchivePrefix != "" {
		path = o.cfg.ArchivePrefix + "/" + path
	}
	if err := o.archiver.Save(ctx, path, body); err != nil {
		o.logger.Warn("archive page failed", zap.String("path", path), zap.Error(err))
	}
}

func (o *Orchestrator) publishTitle(ctx context.Context, result scraper.TitleResult) {
	if o.publisher == nil || o.cfg.Topic == "" {
		return
	}
	payload := map[string]any{
		"app_id":    result.Title.AppID,
		"title":     result.Title.Name,
		"status":    string(result.Status),
		"options":   len(result.Options),
		"timestamp": o.clock.Now().Format(time.RFC3339),
	}
	if _, err := o.publisher.Publish(ctx, o.cfg.Topic, payload); err != nil {
		o.logger.Warn("publish title event failed",
			zap.Int("app_id", result.Title.AppID),
			zap.Error(err),
		)
	}
}

func (o *Orchestrator) shouldSkipExisting(ctx context.Context, title scraper.Title) bool {
	if !o.cfg.SkipExisting || o.cfg.ForceRefresh || o.sink == nil {
		return false
	}
	has, err := o.sink.HasOptions(ctx, title)
	if err != nil {
		o.logger.Debug("existing-options lookup failed",
			zap.Int("app_id", title.AppID),
			zap.Error(err),
		)
		return false
	}
	return has
}

func errorKind(err error) string {
	if kind := fetch.KindOf(err); kind != "" {
		return string(kind)
	}
	return "extract"
}
