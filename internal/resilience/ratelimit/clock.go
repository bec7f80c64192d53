package ratelimit

import "time"

// Clock provides an abstraction for time operations to enable testing.
//
// The tracker's wait decisions and staleness checks are all relative to
// "now", so tests inject a controllable clock instead of sleeping.
type Clock interface {
	// Now returns the current time.
	Now() time.Time
}

// SystemClock is a Clock implementation that uses the system time.
type SystemClock struct{}

// Now returns the current system time.
func (c *SystemClock) Now() time.Time {
	return time.Now()
}
