package config

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNewLimitsPassesValidValues(t *testing.T) {
	t.Parallel()

	limits, clamps := NewLimits(RequestedLimits{
		MinDelay:      2 * time.Second,
		MaxTitles:     50,
		MaxCacheBytes: 10 << 20,
		MaxSession:    time.Hour,
	})

	assert.Empty(t, clamps)
	assert.Equal(t, 2*time.Second, limits.MinDelay)
	assert.Equal(t, 50, limits.MaxTitles)
	assert.Equal(t, int64(10<<20), limits.MaxCacheBytes)
	assert.Equal(t, time.Hour, limits.MaxSession)
	require.NoError(t, limits.Validate())
}

func TestNewLimitsClampsAndReports(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name  string
		req   RequestedLimits
		field string
		want  func(t *testing.T, l Limits)
	}{
		{
			name:  "delay below floor",
			req:   RequestedLimits{MinDelay: 100 * time.Millisecond, MaxTitles: 10, MaxCacheBytes: 1 << 20, MaxSession: time.Hour},
			field: "min_delay",
			want: func(t *testing.T, l Limits) {
				assert.Equal(t, MinDelayFloor, l.MinDelay)
			},
		},
		{
			name:  "delay above ceiling",
			req:   RequestedLimits{MinDelay: 5 * time.Minute, MaxTitles: 10, MaxCacheBytes: 1 << 20, MaxSession: time.Hour},
			field: "min_delay",
			want: func(t *testing.T, l Limits) {
				assert.Equal(t, MinDelayCeiling, l.MinDelay)
			},
		},
		{
			name:  "titles above ceiling",
			req:   RequestedLimits{MinDelay: 2 * time.Second, MaxTitles: 100000, MaxCacheBytes: 1 << 20, MaxSession: time.Hour},
			field: "max_titles",
			want: func(t *testing.T, l Limits) {
				assert.Equal(t, MaxTitlesCeiling, l.MaxTitles)
			},
		},
		{
			name:  "cache above ceiling",
			req:   RequestedLimits{MinDelay: 2 * time.Second, MaxTitles: 10, MaxCacheBytes: 1 << 40, MaxSession: time.Hour},
			field: "max_cache_bytes",
			want: func(t *testing.T, l Limits) {
				assert.Equal(t, int64(MaxCacheBytesCeiling), l.MaxCacheBytes)
			},
		},
		{
			name:  "session above ceiling",
			req:   RequestedLimits{MinDelay: 2 * time.Second, MaxTitles: 10, MaxCacheBytes: 1 << 20, MaxSession: 48 * time.Hour},
			field: "max_session",
			want: func(t *testing.T, l Limits) {
				assert.Equal(t, MaxSessionCeiling, l.MaxSession)
			},
		},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			t.Parallel()
			limits, clamps := NewLimits(tc.req)
			require.Len(t, clamps, 1)
			assert.Equal(t, tc.field, clamps[0].Field)
			assert.NotEmpty(t, clamps[0].Requested)
			assert.NotEmpty(t, clamps[0].Enforced)
			assert.NotEmpty(t, clamps[0].Reason)
			tc.want(t, limits)
			require.NoError(t, limits.Validate())
		})
	}
}

func TestNewLimitsZeroValuesLandOnFloors(t *testing.T) {
	t.Parallel()

	limits, clamps := NewLimits(RequestedLimits{})
	assert.Len(t, clamps, 4)
	assert.Equal(t, MinDelayFloor, limits.MinDelay)
	assert.Equal(t, 1, limits.MaxTitles)
	assert.Equal(t, int64(1<<20), limits.MaxCacheBytes)
	assert.Equal(t, time.Minute, limits.MaxSession)
	require.NoError(t, limits.Validate())
}

func TestLimitsValidateRejectsTampering(t *testing.T) {
	t.Parallel()

	limits, _ := NewLimits(RequestedLimits{
		MinDelay: 2 * time.Second, MaxTitles: 10, MaxCacheBytes: 1 << 20, MaxSession: time.Hour,
	})
	limits.MaxTitles = MaxTitlesCeiling + 1
	assert.Error(t, limits.Validate())
}

func TestValidateOutputDir(t *testing.T) {
	t.Parallel()

	tests := []struct {
		in       string
		want     string
		replaced bool
	}{
		{"", "./test-output", true},
		{"test-output", "test-output", false},
		{"results/run1", "results/run1", false},
		{"/etc", "./test-output", true},
		{"../outside", "./test-output", true},
		{"somewhere-else", "./test-output", true},
	}
	for _, tc := range tests {
		got, replaced := ValidateOutputDir(tc.in)
		assert.Equal(t, tc.want, got, "input %q", tc.in)
		assert.Equal(t, tc.replaced, replaced, "input %q", tc.in)
	}
}
