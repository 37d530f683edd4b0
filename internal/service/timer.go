package service

import "time"

// TimeState is the derived timing view of an attempt. It is never stored:
// it is recomputed from the persisted start time and the server clock on
// every call, so a client-reported elapsed time is never trusted.
type TimeState struct {
	RemainingSeconds int64 `json:"remaining_seconds"`
	Expired          bool  `json:"expired"`
}

// Remaining computes the time left on an attempt at the given instant.
// Pure function of its inputs. Seconds are rounded up so that
// Expired is equivalent to RemainingSeconds == 0: a fraction of a second
// left still reports one remaining second, not a premature expiry.
func Remaining(timeLimitMinutes int, startedAt, now time.Time) TimeState {
	limit := time.Duration(timeLimitMinutes) * time.Minute
	left := limit - now.Sub(startedAt)
	if left <= 0 {
		return TimeState{RemainingSeconds: 0, Expired: true}
	}

	secs := int64(left / time.Second)
	if left%time.Second != 0 {
		secs++
	}
	return TimeState{RemainingSeconds: secs, Expired: false}
}
