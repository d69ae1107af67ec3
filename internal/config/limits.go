package config

import (
	"fmt"
	"time"
)

// Hard bounds enforced on every session regardless of caller input. The
// clamping here is a security boundary, so every correction is reported
// back to the caller instead of being applied silently.
const (
	MinDelayFloor   = 1 * time.Second
	MinDelayCeiling = 60 * time.Second

	MaxTitlesCeiling     = 1000
	MaxCacheBytesCeiling = 100 << 20
	MaxSessionCeiling    = 6 * time.Hour

	RequestTimeout   = 30 * time.Second
	MaxResponseBytes = 10 << 20
	MaxRedirects     = 3

	BurstWindow      = 60 * time.Second
	BurstMaxRequests = 5
	MaxSessionErrors = 20
)

// Limits holds the immutable, process-wide bounds observed by the engine.
// Construct via NewLimits; no component reads unclamped values.
type Limits struct {
	MinDelay         time.Duration
	MaxTitles        int
	MaxCacheBytes    int64
	MaxSession       time.Duration
	RequestTimeout   time.Duration
	MaxResponseBytes int64
	MaxRedirects     int
	BurstWindow      time.Duration
	BurstMaxRequests int
	MaxSessionErrors int
}

// Clamp records one corrected limit: the requested value, the enforced
// value and why. Callers must surface these rather than swallow them.
type Clamp struct {
	Field     string
	Requested string
	Enforced  string
	Reason    string
}

func (c Clamp) String() string {
	return fmt.Sprintf("%s: requested %s, enforced %s (%s)", c.Field, c.Requested, c.Enforced, c.Reason)
}

// RequestedLimits carries the raw candidate values supplied by the CLI or
// config file before clamping.
type RequestedLimits struct {
	MinDelay      time.Duration
	MaxTitles     int
	MaxCacheBytes int64
	MaxSession    time.Duration
}

// NewLimits clamps the requested values into hard bounds and reports every
// correction it made.
func NewLimits(req RequestedLimits) (Limits, []Clamp) {
	var clamps []Clamp

	delay, c := clampDuration("min_delay", req.MinDelay, MinDelayFloor, MinDelayCeiling)
	clamps = append(clamps, c...)

	titles, c := clampInt("max_titles", req.MaxTitles, 1, MaxTitlesCeiling)
	clamps = append(clamps, c...)

	cacheBytes, c := clampInt64("max_cache_bytes", req.MaxCacheBytes, 1<<20, MaxCacheBytesCeiling)
	clamps = append(clamps, c...)

	session, c := clampDuration("max_session", req.MaxSession, time.Minute, MaxSessionCeiling)
	clamps = append(clamps, c...)

	return Limits{
		MinDelay:         delay,
		MaxTitles:        titles,
		MaxCacheBytes:    cacheBytes,
		MaxSession:       session,
		RequestTimeout:   RequestTimeout,
		MaxResponseBytes: MaxResponseBytes,
		MaxRedirects:     MaxRedirects,
		BurstWindow:      BurstWindow,
		BurstMaxRequests: BurstMaxRequests,
		MaxSessionErrors: MaxSessionErrors,
	}, clamps
}

// Validate catches contradictions that survive clamping. Any error here is
// fatal at startup.
func (l Limits) Validate() error {
	if l.MinDelay < MinDelayFloor || l.MinDelay > MinDelayCeiling {
		return fmt.Errorf("min_delay %s out of range after clamping", l.MinDelay)
	}
	if l.MaxTitles < 1 || l.MaxTitles > MaxTitlesCeiling {
		return fmt.Errorf("max_titles %d out of range after clamping", l.MaxTitles)
	}
	if l.MaxCacheBytes <= 0 || l.MaxCacheBytes > MaxCacheBytesCeiling {
		return fmt.Errorf("max_cache_bytes %d out of range after clamping", l.MaxCacheBytes)
	}
	if l.MaxSession <= 0 || l.MaxSession > MaxSessionCeiling {
		return fmt.Errorf("max_session %s out of range after clamping", l.MaxSession)
	}
	if l.RequestTimeout <= 0 || l.MaxResponseBytes <= 0 || l.MaxRedirects < 0 {
		return fmt.Errorf("request bounds are not positive")
	}
	if l.BurstWindow <= 0 || l.BurstMaxRequests <= 0 || l.MaxSessionErrors <= 0 {
		return fmt.Errorf("session bounds are not positive")
	}
	return nil
}

func clampDuration(field string, v, floor, ceiling time.Duration) (time.Duration, []Clamp) {
	switch {
	case v < floor:
		return floor, []Clamp{{field, v.String(), floor.String(), "below minimum"}}
	case v > ceiling:
		return ceiling, []Clamp{{field, v.String(), ceiling.String(), "above maximum"}}
	}
	return v, nil
}

func clampInt(field string, v, floor, ceiling int) (int, []Clamp) {
	switch {
	case v < floor:
		return floor, []Clamp{{field, fmt.Sprint(v), fmt.Sprint(floor), "below minimum"}}
	case v > ceiling:
		return ceiling, []Clamp{{field, fmt.Sprint(v), fmt.Sprint(ceiling), "above maximum"}}
	}
	return v, nil
}

func clampInt64(field string, v, floor, ceiling int64) (int64, []Clamp) {
	switch {
	case v < floor:
		return floor, []Clamp{{field, fmt.Sprint(v), fmt.Sprint(floor), "below minimum"}}
	case v > ceiling:
		return ceiling, []Clamp{{field, fmt.Sprint(v), fmt.Sprint(ceiling), "above maximum"}}
	}
	return v, nil
}
