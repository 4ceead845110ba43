// Package ratelimit tracks the commerce API's rate-limit reset time so that a
// request rejected with HTTP 429 can wait exactly as long as the server asks.
//
// Every response may carry X-RateLimit-Reset (epoch seconds). The Tracker keeps
// the most recent value in a Store; MemoryStore serves a single process and
// RedisStore shares the state between every client talking to the same account.
package ratelimit

import (
	"time"
)

// DefaultResetHeader is the response header carrying the reset time in epoch seconds.
const DefaultResetHeader = "X-RateLimit-Reset"

// DefaultWait is used when no reset time is known.
const DefaultWait = 30 * time.Second

// State represents the last observed rate-limit reset information.
type State struct {
	// ResetAt is when the current rate-limit window ends.
	ResetAt time.Time `json:"reset_at"`

	// LastUpdate is when this state was recorded.
	LastUpdate time.Time `json:"last_update"`
}

// IsStale returns true if the state is older than maxAge relative to now.
func (s State) IsStale(now time.Time, maxAge time.Duration) bool {
	return now.Sub(s.LastUpdate) > maxAge
}

// TimeUntilReset returns the duration from now until the reset.
// Returns 0 if the reset time has already passed.
func (s State) TimeUntilReset(now time.Time) time.Duration {
	d := s.ResetAt.Sub(now)
	if d < 0 {
		return 0
	}
	return d
}
