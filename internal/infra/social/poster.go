// Package social provides the client for publishing posts to the social
// platform API. It defines the Poster interface which allows the real REST
// client and a no-op implementation to be used interchangeably through
// dependency injection.
//
// Implementations map transport failures to the typed errors in
// internal/resilience/ratelimit and perform no retries of their own; callers
// are expected to run operations through the retry executor, which owns
// waiting, retrying, and rate limit bookkeeping.
package social

import (
	"context"
	"net/http"
	"time"
)

// PostReceipt describes a successfully published post.
type PostReceipt struct {
	// ID is the platform-assigned identifier of the post.
	ID string
	// URL is the public permalink, when the platform returns one.
	URL string
	// PostedAt is the platform-reported creation time.
	PostedAt time.Time
}

// Poster publishes posts to the social platform.
//
// Both methods return the response headers so callers can feed rate limit
// metadata (x-rate-limit-* headers) to the tracker after a success.
type Poster interface {
	// PostStatus publishes text as a new post. Text longer than the
	// platform limit is truncated before sending.
	PostStatus(ctx context.Context, text string) (PostReceipt, http.Header, error)

	// VerifyCredentials checks that the configured token is accepted.
	// It is cheap and side-effect free, which makes it the health probe
	// for the platform dependency.
	VerifyCredentials(ctx context.Context) (http.Header, error)
}
