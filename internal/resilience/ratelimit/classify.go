package ratelimit

import (
	"errors"
	"net/http"
	"strings"
)

// Kind tags the retry-relevant category of a failure.
type Kind int

const (
	// KindUnknown covers everything the heuristics below cannot place:
	// network failures, 5xx responses, context cancellation. The
	// executor propagates these without retrying.
	KindUnknown Kind = iota

	// KindRateLimit marks a failure worth waiting out and retrying.
	KindRateLimit

	// KindNonRetryable marks a deterministic rejection (4xx other than
	// 429) that would fail identically on every attempt.
	KindNonRetryable
)

// String returns the kind's name for logs and metrics labels.
func (k Kind) String() string {
	switch k {
	case KindRateLimit:
		return "rate_limit"
	case KindNonRetryable:
		return "non_retryable"
	default:
		return "unknown"
	}
}

// Classification is the typed result of inspecting a failure.
type Classification struct {
	Kind Kind

	// RateLimit holds the typed error when Kind is KindRateLimit and the
	// failure carried one; nil when the kind was inferred from the
	// message alone.
	RateLimit *RateLimitError
}

// Classify places a failure into the retry taxonomy. The detection
// heuristics live here and nowhere else:
//
//   - a *RateLimitError, or any error chain carrying HTTP status 429,
//     classifies as a rate limit;
//   - a message containing "rate limit" or "too many requests"
//     classifies as a rate limit (some SDKs surface plain errors);
//   - a *ClientError (non-429 4xx) is non-retryable;
//   - everything else is unknown and propagates without retry.
func Classify(err error) Classification {
	if err == nil {
		return Classification{Kind: KindUnknown}
	}

	var rateLimitErr *RateLimitError
	if errors.As(err, &rateLimitErr) {
		return Classification{Kind: KindRateLimit, RateLimit: rateLimitErr}
	}

	var clientErr *ClientError
	if errors.As(err, &clientErr) {
		if clientErr.StatusCode == http.StatusTooManyRequests {
			return Classification{Kind: KindRateLimit}
		}
		return Classification{Kind: KindNonRetryable}
	}

	msg := strings.ToLower(err.Error())
	if strings.Contains(msg, "rate limit") || strings.Contains(msg, "too many requests") {
		return Classification{Kind: KindRateLimit}
	}

	return Classification{Kind: KindUnknown}
}

// IsRateLimit reports whether the failure classifies as a rate limit.
func IsRateLimit(err error) bool {
	return Classify(err).Kind == KindRateLimit
}
