// Package metrics exposes Prometheus collectors for the scraper.
package metrics

import (
	"net/http"
	"sync"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

var (
	scraperRequestsTotal        *prometheus.CounterVec
	scraperErrorsTotal          *prometheus.CounterVec
	scraperCacheLookupsTotal    *prometheus.CounterVec
	scraperOptionsFoundTotal    *prometheus.CounterVec
	scraperTitlesTotal          *prometheus.CounterVec
	scraperSessionAbortsTotal   *prometheus.CounterVec
	scraperRateLimitDelaySecond prometheus.Histogram

	once sync.Once
)

// Init initializes the Prometheus metrics collectors.
// It is safe to call this function multiple times.
func Init() {
	once.Do(func() {
		scraperRequestsTotal = promauto.NewCounterVec(
			prometheus.CounterOpts{
				Name: "scraper_requests_total",
				Help: "Total outbound requests issued, labeled by source.",
			},
			[]string{"source"},
		)

		scraperErrorsTotal = promauto.NewCounterVec(
			prometheus.CounterOpts{
				Name: "scraper_errors_total",
				Help: "Total per-unit errors recorded, labeled by source and kind.",
			},
			[]string{"source", "kind"},
		)

		scraperCacheLookupsTotal = promauto.NewCounterVec(
			prometheus.CounterOpts{
				Name: "scraper_cache_lookups_total",
				Help: "Response cache lookups, labeled by outcome (hit/miss).",
			},
			[]string{"outcome"},
		)

		scraperOptionsFoundTotal = promauto.NewCounterVec(
			prometheus.CounterOpts{
				Name: "scraper_options_found_total",
				Help: "Launch options extracted, labeled by source.",
			},
			[]string{"source"},
		)

		scraperTitlesTotal = promauto.NewCounterVec(
			prometheus.CounterOpts{
				Name: "scraper_titles_total",
				Help: "Titles processed, labeled by terminal status.",
			},
			[]string{"status"},
		)

		scraperSessionAbortsTotal = promauto.NewCounterVec(
			prometheus.CounterOpts{
				Name: "scraper_session_aborts_total",
				Help: "Sessions aborted early, labeled by reason.",
			},
			[]string{"reason"},
		)

		scraperRateLimitDelaySecond = promauto.NewHistogram(
			prometheus.HistogramOpts{
				Name:    "scraper_rate_limit_delay_seconds",
				Help:    "Histogram of rate limiter wait durations.",
				Buckets: []float64{0.1, 0.5, 1, 2, 5, 10, 30, 60},
			},
		)
	})
}

// Handler returns an http.Handler for exposing Prometheus metrics.
func Handler() http.Handler {
	return promhttp.Handler()
}

// ObserveRequest counts one issued outbound request.
func ObserveRequest(source string) {
	if scraperRequestsTotal != nil {
		scraperRequestsTotal.WithLabelValues(source).Inc()
	}
}

// ObserveError counts one recorded per-unit error.
func ObserveError(source, kind string) {
	if scraperErrorsTotal != nil {
		scraperErrorsTotal.WithLabelValues(source, kind).Inc()
	}
}

// ObserveCacheLookup counts a cache hit or miss.
func ObserveCacheLookup(hit bool) {
	if scraperCacheLookupsTotal == nil {
		return
	}
	outcome := "miss"
	if hit {
		outcome = "hit"
	}
	scraperCacheLookupsTotal.WithLabelValues(outcome).Inc()
}

// ObserveOptionsFound adds extracted option counts for a source.
func ObserveOptionsFound(source string, count int) {
	if scraperOptionsFoundTotal != nil && count > 0 {
		scraperOptionsFoundTotal.WithLabelValues(source).Add(float64(count))
	}
}

// ObserveTitle counts one processed title by terminal status.
func ObserveTitle(status string) {
	if scraperTitlesTotal != nil {
		scraperTitlesTotal.WithLabelValues(status).Inc()
	}
}

// ObserveSessionAbort counts an early session termination.
func ObserveSessionAbort(reason string) {
	if scraperSessionAbortsTotal != nil {
		scraperSessionAbortsTotal.WithLabelValues(reason).Inc()
	}
}

// ObserveRateLimitDelay records the duration of a rate limit wait.
func ObserveRateLimitDelay(d time.Duration) {
	if scraperRateLimitDelaySecond != nil {
		scraperRateLimitDelaySecond.Observe(d.Seconds())
	}
}
