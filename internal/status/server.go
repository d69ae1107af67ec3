// Package status exposes the read-only HTTP interface of a running
// scrape session: health, Prometheus metrics, session counters, cache
// occupancy and the enforced limits.
package status

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/slopscraper/slopscraper/internal/config"
	"github.com/slopscraper/slopscraper/internal/metrics"
	"github.com/slopscraper/slopscraper/internal/scraper"
)

// Summarizer reports live session counters.
type Summarizer interface {
	Summary(sessionID string) scraper.SessionSummary
}

// CacheInfo reports cache occupancy.
type CacheInfo interface {
	Size() int64
	Len() int
}

// Server wires the status routes. All endpoints are read-only; the
// session cannot be controlled over HTTP.
type Server struct {
	router    chi.Router
	sessionID string
	monitor   Summarizer
	cache     CacheInfo
	limits    config.Limits
	clamps    []config.Clamp
	logger    *zap.Logger
}

// NewServer constructs a Server with middleware and routes.
func NewServer(
	sessionID string,
	monitor Summarizer,
	cache CacheInfo,
	limits config.Limits,
	clamps []config.Clamp,
	logger *zap.Logger,
) *Server {
	if logger == nil {
		logger = zap.NewNop()
	}
	s := &Server{
		sessionID: sessionID,
		monitor:   monitor,
		cache:     cache,
		limits:    limits,
		clamps:    clamps,
		logger:    logger,
	}

	r := chi.NewRouter()
	r.Use(s.requestIDMiddleware)
	r.Use(s.loggingMiddleware)
	r.Use(s.recoverMiddleware)

	r.Get("/healthz", s.healthz)
	r.Get("/readyz", s.readyz)
	r.Handle("/metrics", metrics.Handler())

	r.Route("/v1", func(r chi.Router) {
		r.Get("/session", s.session)
		r.Get("/cache", s.cacheStats)
		r.Get("/limits", s.limitsReport)
	})

	s.router = r
	return s
}

// Handler returns the router for use with http.Server.
func (s *Server) Handler() http.Handler {
	return s.router
}

// Serve runs the HTTP server until ctx is canceled, then shuts down
// gracefully.
func (s *Server) Serve(ctx context.Context, port int) error {
	srv := &http.Server{
		Addr:              fmt.Sprintf(":%d", port),
		Handler:           s.router,
		ReadHeaderTimeout: 5 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		s.logger.Info("status server started", zap.Int("port", port))
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
	}()

	select {
	case err := <-errCh:
		return fmt.Errorf("status server: %w", err)
	case <-ctx.Done():
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		return fmt.Errorf("shutdown status server: %w", err)
	}
	return nil
}

func (s *Server) healthz(w http.ResponseWriter, _ *http.Request) {
	s.writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

func (s *Server) readyz(w http.ResponseWriter, _ *http.Request) {
	s.writeJSON(w, http.StatusOK, map[string]string{"status": "ready"})
}

func (s *Server) session(w http.ResponseWriter, _ *http.Request) {
	summary := s.monitor.Summary(s.sessionID)
	s.writeJSON(w, http.StatusOK, map[string]any{
		"session_id":      summary.SessionID,
		"requests":        summary.Requests,
		"errors":          summary.Errors,
		"cache_hits":      summary.CacheHits,
		"started_at":      summary.StartedAt,
		"elapsed_seconds": summary.Elapsed.Seconds(),
		"abort_reason":    string(summary.AbortReason),
	})
}

func (s *Server) cacheStats(w http.ResponseWriter, _ *http.Request) {
	s.writeJSON(w, http.StatusOK, map[string]any{
		"entries":   s.cache.Len(),
		"bytes":     s.cache.Size(),
		"max_bytes": s.limits.MaxCacheBytes,
	})
}

// limitsReport surfaces the enforced limits and every clamp applied to
// the requested configuration.
func (s *Server) limitsReport(w http.ResponseWriter, _ *http.Request) {
	clamps := make([]map[string]any, 0, len(s.clamps))
	for _, c := range s.clamps {
		clamps = append(clamps, map[string]any{
			"field":     c.Field,
			"requested": c.Requested,
			"enforced":  c.Enforced,
			"reason":    c.Reason,
		})
	}
	s.writeJSON(w, http.StatusOK, map[string]any{
		"min_delay_seconds":   s.limits.MinDelay.Seconds(),
		"max_titles":          s.limits.MaxTitles,
		"max_cache_bytes":     s.limits.MaxCacheBytes,
		"max_session_seconds": s.limits.MaxSession.Seconds(),
		"clamps":              clamps,
	})
}

func (s *Server) requestIDMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("X-Request-ID", uuid.NewString())
		next.ServeHTTP(w, r)
	})
}

func (s *Server) loggingMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		ww := &statusWriter{ResponseWriter: w, status: http.StatusOK}
		next.ServeHTTP(ww, r)
		s.logger.Debug("request completed",
			zap.String("method", r.Method),
			zap.String("path", r.URL.Path),
			zap.Int("status", ww.status),
			zap.Int64("duration_ms", time.Since(start).Milliseconds()),
		)
	})
}

func (s *Server) recoverMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		defer func() {
			if rec := recover(); rec != nil {
				s.logger.Error("panic recovered", zap.Any("error", rec))
				s.writeJSON(w, http.StatusInternalServerError, map[string]string{"error": "internal server error"})
			}
		}()
		next.ServeHTTP(w, r)
	})
}

func (s *Server) writeJSON(w http.ResponseWriter, status int, payload any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(payload); err != nil {
		s.logger.Error("write JSON failed", zap.Error(err))
	}
}

type statusWriter struct {
	http.ResponseWriter
	status int
}

func (w *statusWriter) WriteHeader(code int) {
	w.status = code
	w.ResponseWriter.WriteHeader(code)
}
