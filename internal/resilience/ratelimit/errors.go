package ratelimit

import (
	"fmt"
	"net/http"
	"strconv"
	"time"
)

// Typed errors produced by the infra clients (social REST, chain RPC,
// explorer) when mapping transport failures. The tracker and the retry
// executor classify on these instead of probing unknown error shapes at
// each call site.

// RateLimitError represents a 429-style rate limit rejection.
//
// RetryAfter carries the server's explicit wait when one was provided
// (Retry-After header, retry_after body field, or an RPC equivalent).
// Limit/Remaining/ResetAt carry an embedded rate-limit payload when the
// response included one; zero values mean "not reported".
type RateLimitError struct {
	Endpoint   string
	StatusCode int
	RetryAfter time.Duration
	Limit      int
	Remaining  int
	ResetAt    time.Time
	Message    string
}

func (e *RateLimitError) Error() string {
	msg := e.Message
	if msg == "" {
		msg = "rate limit exceeded"
	}
	if e.RetryAfter > 0 {
		return fmt.Sprintf("%s (retry after %v)", msg, e.RetryAfter)
	}
	return msg
}

// ClientError represents a non-429 4xx rejection. These are deterministic
// (auth, validation, not-found) and never worth retrying.
type ClientError struct {
	StatusCode int
	Message    string
}

func (e *ClientError) Error() string {
	return e.Message
}

// ServerError represents a 5xx failure from the remote service.
type ServerError struct {
	StatusCode int
	Message    string
}

func (e *ServerError) Error() string {
	return e.Message
}

// ParseRetryAfter interprets a Retry-After style value: either a number
// of seconds or an HTTP-date. The returned duration is relative to now.
// Non-positive and unparseable values report ok=false.
func ParseRetryAfter(value string, now time.Time) (time.Duration, bool) {
	if value == "" {
		return 0, false
	}

	if seconds, err := strconv.Atoi(value); err == nil {
		if seconds <= 0 {
			return 0, false
		}
		return time.Duration(seconds) * time.Second, true
	}

	// RFC 7231 allows an HTTP-date as well
	if at, err := http.ParseTime(value); err == nil {
		wait := at.Sub(now)
		if wait <= 0 {
			return 0, false
		}
		return wait, true
	}

	return 0, false
}
