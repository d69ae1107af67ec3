// Package fetch implements the bounded, validated HTTP fetch used for
// every outbound request.
package fetch

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net"
	"net/http"
	"net/url"
	"time"

	"go.uber.org/zap"

	"github.com/slopscraper/slopscraper/internal/scraper"
)

// Config controls fetch behavior. Values arrive pre-clamped.
type Config struct {
	UserAgent    string
	Timeout      time.Duration
	MaxBodyBytes int64
	MaxRedirects int
	// AllowPrivateHosts disables the private-address guard. Only tests
	// against loopback servers set this.
	AllowPrivateHosts bool
}

type ipResolver interface {
	LookupIPAddr(ctx context.Context, host string) ([]net.IPAddr, error)
}

// Handler performs single bounded fetches. It has no side effects beyond
// the network call: it does not touch the cache, the limiter, or the
// monitor, which keeps it independently testable with a fake transport.
type Handler struct {
	cfg      Config
	client   *http.Client
	resolver ipResolver
	logger   *zap.Logger
}

// New builds a Handler.
func New(cfg Config, logger *zap.Logger) *Handler {
	if cfg.Timeout <= 0 {
		cfg.Timeout = 30 * time.Second
	}
	if cfg.MaxBodyBytes <= 0 {
		cfg.MaxBodyBytes = 10 << 20
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	h := &Handler{
		cfg:      cfg,
		resolver: net.DefaultResolver,
		logger:   logger,
	}
	h.client = &http.Client{
		Transport: newHTTPTransport(),
		CheckRedirect: func(req *http.Request, via []*http.Request) error {
			if len(via) > cfg.MaxRedirects {
				return newError(KindTooManyRedirects, req.URL.String(), nil)
			}
			// Every hop is revalidated; a redirect must not escape to a
			// disallowed scheme or internal address.
			return h.validateTarget(req.Context(), req.URL)
		},
	}
	return h
}

// Fetch executes the request for id and returns the body, bounded by the
// configured timeout, redirect cap and response size cap.
func (h *Handler) Fetch(ctx context.Context, id scraper.RequestIdentity) ([]byte, error) {
	u, err := url.Parse(id.URL)
	if err != nil {
		return nil, newError(KindDisallowedTarget, id.URL, err)
	}
	if err := h.validateTarget(ctx, u); err != nil {
		return nil, err
	}

	reqCtx, cancel := context.WithTimeout(ctx, h.cfg.Timeout)
	defer cancel()

	req, err := http.NewRequestWithContext(reqCtx, id.Method, id.URL, nil)
	if err != nil {
		return nil, newError(KindTransport, id.URL, err)
	}
	req.Header.Set("User-Agent", h.cfg.UserAgent)
	req.Header.Set("Accept", "text/html,application/xhtml+xml,application/xml;q=0.9,*/*;q=0.8")

	start := time.Now()
	resp, err := h.client.Do(req)
	if err != nil {
		return nil, h.classify(id.URL, err)
	}
	defer func() {
		if cerr := resp.Body.Close(); cerr != nil {
			h.logger.Debug("close response body", zap.Error(cerr))
		}
	}()

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return nil, &Error{Kind: KindHTTPStatus, URL: id.URL, StatusCode: resp.StatusCode}
	}
	if resp.ContentLength > h.cfg.MaxBodyBytes {
		return nil, newError(KindTooLarge, id.URL, fmt.Errorf("declared %d bytes", resp.ContentLength))
	}

	// Stream with a hard cap so an oversized body is never buffered past
	// the limit.
	body, err := io.ReadAll(io.LimitReader(resp.Body, h.cfg.MaxBodyBytes+1))
	if err != nil {
		return nil, h.classify(id.URL, err)
	}
	if int64(len(body)) > h.cfg.MaxBodyBytes {
		return nil, newError(KindTooLarge, id.URL, fmt.Errorf("streamed past %d bytes", h.cfg.MaxBodyBytes))
	}

	h.logger.Debug("fetched",
		zap.String("url", id.URL),
		zap.Int("status", resp.StatusCode),
		zap.Int("bytes", len(body)),
		zap.Duration("duration", time.Since(start)),
	)
	return body, nil
}

// validateTarget enforces the allowed scheme and blocks requests that
// resolve to private, loopback or link-local addresses.
func (h *Handler) validateTarget(ctx context.Context, u *url.URL) error {
	if u.Scheme != "http" && u.Scheme != "https" {
		return newError(KindDisallowedTarget, u.String(), fmt.Errorf("scheme %q not allowed", u.Scheme))
	}
	host := u.Hostname()
	if host == "" {
		return newError(KindDisallowedTarget, u.String(), errors.New("empty host"))
	}
	if h.cfg.AllowPrivateHosts {
		return nil
	}
	if ip := net.ParseIP(host); ip != nil {
		if isInternalIP(ip) {
			return newError(KindDisallowedTarget, u.String(), fmt.Errorf("address %s is internal", ip))
		}
		return nil
	}
	addrs, err := h.resolver.LookupIPAddr(ctx, host)
	if err != nil {
		return newError(KindTransport, u.String(), fmt.Errorf("resolve %s: %w", host, err))
	}
	for _, addr := range addrs {
		if isInternalIP(addr.IP) {
			return newError(KindDisallowedTarget, u.String(), fmt.Errorf("%s resolves to internal address %s", host, addr.IP))
		}
	}
	return nil
}

func (h *Handler) classify(rawURL string, err error) error {
	var fe *Error
	if errors.As(err, &fe) {
		return fe
	}
	var netErr net.Error
	if errors.Is(err, context.DeadlineExceeded) || (errors.As(err, &netErr) && netErr.Timeout()) {
		return newError(KindTimeout, rawURL, err)
	}
	return newError(KindTransport, rawURL, err)
}

func isInternalIP(ip net.IP) bool {
	return ip.IsLoopback() ||
		ip.IsPrivate() ||
		ip.IsLinkLocalUnicast() ||
		ip.IsLinkLocalMulticast() ||
		ip.IsUnspecified()
}

func newHTTPTransport() *http.Transport {
	return &http.Transport{
		Proxy: http.ProxyFromEnvironment,
		DialContext: (&net.Dialer{
			Timeout:   10 * time.Second,
			KeepAlive: 30 * time.Second,
		}).DialContext,
		TLSHandshakeTimeout:   15 * time.Second,
		ExpectContinueTimeout: 1 * time.Second,
		MaxIdleConns:          100,
		IdleConnTimeout:       90 * time.Second,
	}
}
