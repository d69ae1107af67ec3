// Package ratelimit implements the shared outbound request governor: a
// minimum inter-request delay plus a sliding-window burst ceiling.
package ratelimit

import (
	"context"
	"fmt"
	"sync"
	"time"

	"golang.org/x/time/rate"

	"github.com/slopscraper/slopscraper/internal/metrics"
)

// Config holds rate limiter bounds. Values arrive pre-clamped from the
// config layer; Acquire never consults raw user input.
type Config struct {
	MinDelay    time.Duration
	BurstWindow time.Duration
	BurstMax    int
}

// Limiter paces outbound requests. One instance is shared by every fetch
// in a session regardless of originating title or source; per-worker
// limiters would silently multiply the effective request rate.
type Limiter struct {
	mu     sync.Mutex
	pacer  *rate.Limiter
	window []time.Time
	cfg    Config
}

// New creates a Limiter.
func New(cfg Config) *Limiter {
	if cfg.BurstMax <= 0 {
		cfg.BurstMax = 1
	}
	if cfg.BurstWindow <= 0 {
		cfg.BurstWindow = time.Minute
	}
	pace := rate.Inf
	if cfg.MinDelay > 0 {
		pace = rate.Every(cfg.MinDelay)
	}
	return &Limiter{
		pacer: rate.NewLimiter(pace, 1),
		cfg:   cfg,
	}
}

// Acquire blocks until it is safe to issue the next outbound request,
// respecting the context. It first waits out the minimum inter-request
// delay, then holds the caller until the sliding burst window has room.
func (l *Limiter) Acquire(ctx context.Context) error {
	start := time.Now()
	if err := l.pacer.Wait(ctx); err != nil {
		return fmt.Errorf("rate limit wait: %w", err)
	}

	for {
		l.mu.Lock()
		now := time.Now()
		l.prune(now)
		if len(l.window) < l.cfg.BurstMax {
			l.window = append(l.window, now)
			l.mu.Unlock()
			if waited := time.Since(start); waited > time.Millisecond {
				metrics.ObserveRateLimitDelay(waited)
			}
			return nil
		}
		wait := l.cfg.BurstWindow - now.Sub(l.window[0])
		l.mu.Unlock()

		if wait <= 0 {
			continue
		}
		timer := time.NewTimer(wait)
		select {
		case <-ctx.Done():
			timer.Stop()
			return fmt.Errorf("burst window wait: %w", ctx.Err())
		case <-timer.C:
		}
	}
}

// InWindow reports how many grants sit inside the current burst window.
// Advisory only; exposed for the session summary and tests.
func (l *Limiter) InWindow() int {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.prune(time.Now())
	return len(l.window)
}

// prune drops window entries older than the burst window. Caller holds mu.
func (l *Limiter) prune(now time.Time) {
	cutoff := now.Add(-l.cfg.BurstWindow)
	i := 0
	for i < len(l.window) && !l.window[i].After(cutoff) {
		i++
	}
	if i > 0 {
		l.window = append(l.window[:0], l.window[i:]...)
	}
}
