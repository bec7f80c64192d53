package social

import (
	"context"
	"net/http"
	"time"
)

// NoopPoster is a Poster that publishes nothing. It is wired in when posting
// is disabled, so callers never need a nil check.
type NoopPoster struct{}

// NewNoopPoster creates a no-op poster.
func NewNoopPoster() *NoopPoster {
	return &NoopPoster{}
}

// PostStatus discards the text and reports success with an empty receipt.
func (n *NoopPoster) PostStatus(_ context.Context, _ string) (PostReceipt, http.Header, error) {
	return PostReceipt{ID: "noop", PostedAt: time.Now()}, http.Header{}, nil
}

// VerifyCredentials always succeeds.
func (n *NoopPoster) VerifyCredentials(_ context.Context) (http.Header, error) {
	return http.Header{}, nil
}
