package social

import (
	"context"

	"golang.org/x/time/rate"
)

// RateLimiter spaces outgoing platform requests with a token bucket. It is
// a politeness guard on our side of the wire; the platform's own quota is
// observed through response headers by the rate limit tracker.
type RateLimiter struct {
	requestsPerSecond float64
	burst             int
	limiter           *rate.Limiter
}

// NewRateLimiter creates a limiter allowing requestsPerSecond sustained
// requests with the given burst size.
func NewRateLimiter(requestsPerSecond float64, burst int) *RateLimiter {
	return &RateLimiter{
		requestsPerSecond: requestsPerSecond,
		burst:             burst,
		limiter:           rate.NewLimiter(rate.Limit(requestsPerSecond), burst),
	}
}

// Allow blocks until a token is available or the context is cancelled.
func (r *RateLimiter) Allow(ctx context.Context) error {
	return r.limiter.Wait(ctx)
}
