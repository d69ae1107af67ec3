// Package session tracks process-wide request and error counters and
// trips protective aborts for a long-running batch.
package session

import (
	"sync"
	"time"

	"go.uber.org/zap"

	"github.com/slopscraper/slopscraper/internal/scraper"
)

// Config bounds one session. Values arrive pre-clamped.
type Config struct {
	MaxErrors  int
	MaxRuntime time.Duration
	// Advisory thresholds. Crossing them logs a warning but never aborts.
	WarnRequestRate float64
	WarnErrorRatio  float64
}

// Monitor owns the session counters. Counters are monotonically
// non-decreasing within a session and mutated only through the two record
// methods, so sharing across concurrent title pipelines is safe.
type Monitor struct {
	mu        sync.Mutex
	cfg       Config
	clock     scraper.Clock
	logger    *zap.Logger
	startedAt time.Time

	requests  int
	errors    int
	cacheHits int

	rateWarned  bool
	ratioWarned bool
}

// New creates a Monitor and starts its runtime clock.
func New(cfg Config, clock scraper.Clock, logger *zap.Logger) *Monitor {
	if cfg.WarnRequestRate <= 0 {
		cfg.WarnRequestRate = 10
	}
	if cfg.WarnErrorRatio <= 0 {
		cfg.WarnErrorRatio = 0.5
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Monitor{
		cfg:       cfg,
		clock:     clock,
		logger:    logger,
		startedAt: clock.Now(),
	}
}

// RecordRequest counts one issued outbound request.
func (m *Monitor) RecordRequest() {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.requests++

	elapsed := m.clock.Now().Sub(m.startedAt).Seconds()
	if elapsed <= 0 || m.rateWarned {
		return
	}
	if rate := float64(m.requests) / elapsed; rate > m.cfg.WarnRequestRate {
		m.rateWarned = true
		m.logger.Warn("elevated request rate",
			zap.Float64("requests_per_second", rate),
			zap.Float64("threshold", m.cfg.WarnRequestRate),
		)
	}
}

// RecordError counts one per-unit error.
func (m *Monitor) RecordError() {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.errors++

	total := m.requests + m.errors
	if m.ratioWarned || total < 10 {
		return
	}
	if ratio := float64(m.errors) / float64(total); ratio > m.cfg.WarnErrorRatio {
		m.ratioWarned = true
		m.logger.Warn("elevated error ratio",
			zap.Float64("error_ratio", ratio),
			zap.Float64("threshold", m.cfg.WarnErrorRatio),
		)
	}
}

// RecordCacheHit counts a fetch served from the response cache.
func (m *Monitor) RecordCacheHit() {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.cacheHits++
}

// ShouldAbort reports whether the session has exhausted its error budget
// or runtime. Callers check it before starting each new unit of work;
// in-flight work is allowed to finish.
func (m *Monitor) ShouldAbort() (scraper.AbortReason, bool) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.errors > m.cfg.MaxErrors {
		return scraper.AbortErrorBudgetExceeded, true
	}
	if m.clock.Now().Sub(m.startedAt) > m.cfg.MaxRuntime {
		return scraper.AbortRuntimeExceeded, true
	}
	return "", false
}

// Summary reports the session counters for logging and the status server.
func (m *Monitor) Summary(sessionID string) scraper.SessionSummary {
	m.mu.Lock()
	defer m.mu.Unlock()
	s := scraper.SessionSummary{
		SessionID: sessionID,
		Requests:  m.requests,
		Errors:    m.errors,
		CacheHits: m.cacheHits,
		StartedAt: m.startedAt,
		Elapsed:   m.clock.Now().Sub(m.startedAt),
	}
	if m.errors > m.cfg.MaxErrors {
		s.AbortReason = scraper.AbortErrorBudgetExceeded
	} else if s.Elapsed > m.cfg.MaxRuntime {
		s.AbortReason = scraper.AbortRuntimeExceeded
	}
	return s
}
