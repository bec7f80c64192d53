package ratelimit

import (
	"fmt"
	"time"
)

// State is the last known rate-limit window for a single endpoint key,
// as reported by the remote server.
//
// A State is a snapshot, not a delta: every observation (response headers
// or a 429-style error) replaces the previous value wholesale. Once
// ResetAt has passed the snapshot says nothing about the current window
// and must be discarded, never read as still-limiting.
type State struct {
	// Endpoint is the logical name the caller assigns ("post",
	// "gas_price"). Distinct physical calls may share a key when they
	// share a quota.
	Endpoint string

	// Limit is the last known window size. Zero when the server did not
	// report one (e.g. state derived from a bare 429).
	Limit int

	// Remaining is the last known number of calls left in the window.
	Remaining int

	// ResetAt is when the window refreshes.
	ResetAt time.Time

	// RetryAfter is an explicit server-provided wait, zero when unset.
	// While now < ResetAt it overrides the safety-margin heuristic.
	RetryAfter time.Duration
}

// Stale reports whether the window has already reset at the given time.
func (s *State) Stale(now time.Time) bool {
	return !now.Before(s.ResetAt)
}

// String returns a human-readable representation for logs and the
// operator status surface.
func (s *State) String() string {
	return fmt.Sprintf("State{Endpoint: %s, Remaining: %d/%d, ResetAt: %s}",
		s.Endpoint, s.Remaining, s.Limit, s.ResetAt.Format(time.RFC3339))
}

// Decision is the result of a ShouldWait check.
type Decision struct {
	// Wait indicates whether the caller must pause before calling out.
	Wait bool

	// WaitFor is how long to pause; zero when Wait is false.
	WaitFor time.Duration

	// Reason identifies which rule produced the wait ("retry_after" or
	// "safety_margin"); empty when Wait is false. Used for logs/metrics.
	Reason string
}

// WaitSeconds returns the wait rounded down to whole seconds, clamped at
// zero. Useful for log fields mirroring server retry-after semantics.
func (d Decision) WaitSeconds() int64 {
	seconds := int64(d.WaitFor.Seconds())
	if seconds < 0 {
		return 0
	}
	return seconds
}
