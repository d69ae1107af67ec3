package scraper

import (
	"context"
	"time"
)

// Fetcher performs a single bounded HTTP fetch for an identity.
type Fetcher interface {
	Fetch(ctx context.Context, id RequestIdentity) ([]byte, error)
}

// Cache memoizes fetch results by request identity. Its absence must never
// change program correctness, only repeated work.
type Cache interface {
	Get(id RequestIdentity) ([]byte, bool)
	Put(id RequestIdentity, body []byte)
}

// Limiter paces outbound requests. Every fetch passes through Acquire
// first; this is a hard precondition, not advisory.
type Limiter interface {
	Acquire(ctx context.Context) error
}

// Monitor tracks session-wide counters and trips protective aborts.
type Monitor interface {
	RecordRequest()
	RecordError()
	RecordCacheHit()
	ShouldAbort() (AbortReason, bool)
}

// Source is one external data provider for launch options.
type Source interface {
	Name() string
	// BuildRequest returns the request that serves this title, or ok=false
	// for sources that contribute without a network fetch.
	BuildRequest(title Title) (RequestIdentity, bool)
	// Extract parses launch options out of a raw response body. Static
	// sources receive a nil body.
	Extract(body []byte, title Title) ([]LaunchOption, error)
}

// ResultSink consumes completed (or partial) title records.
type ResultSink interface {
	SaveTitle(ctx context.Context, result TitleResult) error
	// HasOptions reports whether the sink already holds options for the
	// title, letting the orchestrator skip redundant work.
	HasOptions(ctx context.Context, title Title) (bool, error)
	SaveSummary(ctx context.Context, summary SessionSummary) error
	Close() error
}

// Publisher pushes per-title completion events to a message bus.
type Publisher interface {
	Publish(ctx context.Context, topic string, payload any) (string, error)
}

// Archiver stores raw fetched bodies for later inspection.
type Archiver interface {
	Save(ctx context.Context, objectName string, data []byte) error
}

// Hasher computes digests for cache keys and archive paths.
type Hasher interface {
	Hash(data []byte) (string, error)
}

// Clock returns the current time (useful for testing).
type Clock interface {
	Now() time.Time
}

// IDGenerator produces session and record IDs.
type IDGenerator interface {
	NewID() (string, error)
}
