package session

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"

	"github.com/slopscraper/slopscraper/internal/scraper"
)

type fakeClock struct {
	now time.Time
}

func (c *fakeClock) Now() time.Time { return c.now }

func (c *fakeClock) advance(d time.Duration) { c.now = c.now.Add(d) }

func newTestMonitor(maxErrors int, maxRuntime time.Duration) (*Monitor, *fakeClock) {
	clock := &fakeClock{now: time.Unix(1700000000, 0).UTC()}
	m := New(Config{MaxErrors: maxErrors, MaxRuntime: maxRuntime}, clock, nil)
	return m, clock
}

func TestShouldAbortStaysQuietWithinBudget(t *testing.T) {
	t.Parallel()

	m, _ := newTestMonitor(3, time.Hour)
	m.RecordRequest()
	m.RecordError()
	m.RecordError()
	m.RecordError()

	_, abort := m.ShouldAbort()
	assert.False(t, abort)
}

func TestShouldAbortOnErrorBudget(t *testing.T) {
	t.Parallel()

	m, _ := newTestMonitor(3, time.Hour)
	for i := 0; i < 4; i++ {
		m.RecordError()
	}

	reason, abort := m.ShouldAbort()
	assert.True(t, abort)
	assert.Equal(t, scraper.AbortErrorBudgetExceeded, reason)
}

func TestShouldAbortOnRuntime(t *testing.T) {
	t.Parallel()

	m, clock := newTestMonitor(100, time.Hour)
	clock.advance(time.Hour + time.Second)

	reason, abort := m.ShouldAbort()
	assert.True(t, abort)
	assert.Equal(t, scraper.AbortRuntimeExceeded, reason)
}

func TestErrorBudgetWinsOverRuntime(t *testing.T) {
	t.Parallel()

	m, clock := newTestMonitor(1, time.Hour)
	m.RecordError()
	m.RecordError()
	clock.advance(2 * time.Hour)

	reason, abort := m.ShouldAbort()
	assert.True(t, abort)
	assert.Equal(t, scraper.AbortErrorBudgetExceeded, reason)
}

func TestSummaryReportsCounters(t *testing.T) {
	t.Parallel()

	m, clock := newTestMonitor(100, time.Hour)
	m.RecordRequest()
	m.RecordRequest()
	m.RecordError()
	m.RecordCacheHit()
	clock.advance(90 * time.Second)

	s := m.Summary("sess-1")
	assert.Equal(t, "sess-1", s.SessionID)
	assert.Equal(t, 2, s.Requests)
	assert.Equal(t, 1, s.Errors)
	assert.Equal(t, 1, s.CacheHits)
	assert.Equal(t, 90*time.Second, s.Elapsed)
	assert.Empty(t, s.AbortReason)
}

func TestSummaryCarriesAbortReason(t *testing.T) {
	t.Parallel()

	m, _ := newTestMonitor(0, time.Hour)
	m.RecordError()

	s := m.Summary("sess-2")
	assert.Equal(t, scraper.AbortErrorBudgetExceeded, s.AbortReason)
}

func TestCountersAreMonotonic(t *testing.T) {
	t.Parallel()

	m, _ := newTestMonitor(100, time.Hour)
	for i := 0; i < 10; i++ {
		m.RecordRequest()
		prev := m.Summary("s").Requests
		assert.Equal(t, i+1, prev)
	}
}
