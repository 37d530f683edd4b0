package service

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestRemaining(t *testing.T) {
	start := time.Date(2026, 3, 10, 9, 0, 0, 0, time.UTC)

	tests := []struct {
		name        string
		limitMins   int
		now         time.Time
		wantSeconds int64
		wantExpired bool
	}{
		{
			name:        "just started",
			limitMins:   10,
			now:         start,
			wantSeconds: 600,
		},
		{
			name:        "one second left",
			limitMins:   10,
			now:         start.Add(9*time.Minute + 59*time.Second),
			wantSeconds: 1,
		},
		{
			name:        "sub-second remainder rounds up",
			limitMins:   10,
			now:         start.Add(9*time.Minute + 59*time.Second + 500*time.Millisecond),
			wantSeconds: 1,
		},
		{
			name:        "exact deadline",
			limitMins:   10,
			now:         start.Add(10 * time.Minute),
			wantSeconds: 0,
			wantExpired: true,
		},
		{
			name:        "one second past deadline",
			limitMins:   10,
			now:         start.Add(601 * time.Second),
			wantSeconds: 0,
			wantExpired: true,
		},
		{
			name:        "past deadline",
			limitMins:   10,
			now:         start.Add(2 * time.Hour),
			wantSeconds: 0,
			wantExpired: true,
		},
		{
			name:        "halfway",
			limitMins:   60,
			now:         start.Add(30 * time.Minute),
			wantSeconds: 1800,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			state := Remaining(tt.limitMins, start, tt.now)
			assert.Equal(t, tt.wantSeconds, state.RemainingSeconds)
			assert.Equal(t, tt.wantExpired, state.Expired)
		})
	}
}

// Expired must hold exactly when RemainingSeconds hits zero, and the
// value must never increase as the clock advances.
func TestRemaining_MonotonicAndConsistent(t *testing.T) {
	start := time.Date(2026, 3, 10, 9, 0, 0, 0, time.UTC)

	prev := int64(1<<62 - 1)
	for offset := 0; offset <= 11*60; offset += 7 {
		now := start.Add(time.Duration(offset) * time.Second)
		state := Remaining(10, start, now)

		assert.LessOrEqual(t, state.RemainingSeconds, prev, "remaining must not grow at offset %d", offset)
		assert.Equal(t, state.RemainingSeconds == 0, state.Expired, "expired flag inconsistent at offset %d", offset)
		prev = state.RemainingSeconds
	}
}
