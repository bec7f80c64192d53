// Package ratelimit tracks per-endpoint rate-limit budgets as reported by
// remote servers and decides whether a caller must wait before calling out.
//
// This is budget *tracking*, not enforcement: the tracker never blocks a
// call itself, it only answers "should you wait, and for how long" based on
// the latest response headers or 429-style errors observed for an endpoint.
// The retry executor consults it before and after every attempt.
package ratelimit

import (
	"log/slog"
	"net/http"
	"strconv"
	"sync"
	"time"
)

const (
	// DefaultSafetyMargin is the remaining-call count at or below which
	// the tracker pre-emptively throttles, before the server itself
	// starts rejecting calls.
	DefaultSafetyMargin = 5

	// DefaultErrorWait is the wait stored for a rate-limit error that
	// carried no usable retry-after or reset information.
	DefaultErrorWait = 60 * time.Second

	// MinWait is the floor applied to every wait derived from an error.
	MinWait = 1 * time.Second
)

// TrackerConfig holds construction parameters for a Tracker.
type TrackerConfig struct {
	// SafetyMargin is the default remaining-call threshold. Zero selects
	// DefaultSafetyMargin; pre-emptive throttling cannot be disabled by
	// config, only tuned.
	SafetyMargin int

	// EndpointMargins overrides SafetyMargin per endpoint key. An
	// endpoint with a window of 10 calls and one with 10,000 rarely want
	// the same margin.
	EndpointMargins map[string]int

	// Clock provides time operations for testing. Default: SystemClock.
	Clock Clock

	// Logger receives parse warnings and wait decisions. Default:
	// slog.Default().
	Logger *slog.Logger
}

// Tracker keeps the last known rate-limit window per endpoint and answers
// wait decisions. All methods are safe for concurrent use; the endpoint
// map has its own lock so unrelated components never serialize on it.
//
// The tracker never returns an error: malformed input degrades to "no
// known limit" (logged) rather than blocking callers.
type Tracker struct {
	mu     sync.Mutex
	states map[string]*State

	margin  int
	margins map[string]int
	clock   Clock
	logger  *slog.Logger
}

// NewTracker creates a Tracker with the given configuration.
func NewTracker(cfg TrackerConfig) *Tracker {
	if cfg.SafetyMargin <= 0 {
		cfg.SafetyMargin = DefaultSafetyMargin
	}
	if cfg.Clock == nil {
		cfg.Clock = &SystemClock{}
	}
	if cfg.Logger == nil {
		cfg.Logger = slog.Default()
	}

	return &Tracker{
		states:  make(map[string]*State),
		margin:  cfg.SafetyMargin,
		margins: cfg.EndpointMargins,
		clock:   cfg.Clock,
		logger:  cfg.Logger,
	}
}

// ShouldWait decides whether a call to the endpoint must pause first.
//
// No state, or a state whose window already reset, means no wait; the
// stale entry is deleted on the spot so it is never read as still
// limiting. An explicit server retry-after, or remaining calls at or
// below the endpoint's safety margin, means waiting until the window
// resets.
func (t *Tracker) ShouldWait(endpoint string) Decision {
	t.mu.Lock()
	defer t.mu.Unlock()

	st, ok := t.states[endpoint]
	if !ok {
		return Decision{}
	}

	now := t.clock.Now()
	if st.Stale(now) {
		delete(t.states, endpoint)
		trackedStates.Set(float64(len(t.states)))
		return Decision{}
	}

	wait := st.ResetAt.Sub(now)

	if st.RetryAfter > 0 {
		d := Decision{Wait: true, WaitFor: wait, Reason: "retry_after"}
		t.recordWait(endpoint, d)
		return d
	}

	if st.Remaining <= t.marginFor(endpoint) {
		d := Decision{Wait: true, WaitFor: wait, Reason: "safety_margin"}
		t.recordWait(endpoint, d)
		return d
	}

	return Decision{}
}

// UpdateFromHeaders replaces the endpoint's state from success-response
// rate-limit headers. Both spellings are accepted (x-rate-limit-* and
// x-ratelimit-*); values are integer counts and an epoch-seconds reset.
//
// Limit and reset are both required to accept the update. A missing or
// malformed remaining count defaults to the limit (no evidence of
// exhaustion). Anything unusable is logged and ignored: headers are
// advisory, never a failure.
func (t *Tracker) UpdateFromHeaders(endpoint string, headers http.Header) {
	if headers == nil {
		return
	}

	limit, limitOK := headerInt(headers, "x-rate-limit-limit", "x-ratelimit-limit")
	remaining, remainingOK := headerInt(headers, "x-rate-limit-remaining", "x-ratelimit-remaining")
	resetAt, resetOK := headerEpoch(headers, "x-rate-limit-reset", "x-ratelimit-reset")

	if !limitOK || !resetOK {
		// Only worth a log line when the response pretended to carry
		// rate-limit information.
		if limitOK || resetOK || remainingOK {
			headerParseFailures.Inc()
			t.logger.Warn("incomplete rate limit headers, ignoring",
				slog.String("endpoint", endpoint),
				slog.Bool("has_limit", limitOK),
				slog.Bool("has_reset", resetOK))
		}
		return
	}

	if !remainingOK {
		remaining = limit
	}

	t.mu.Lock()
	t.states[endpoint] = &State{
		Endpoint:  endpoint,
		Limit:     limit,
		Remaining: remaining,
		ResetAt:   resetAt,
	}
	trackedStates.Set(float64(len(t.states)))
	t.mu.Unlock()

	t.logger.Debug("rate limit state updated from headers",
		slog.String("endpoint", endpoint),
		slog.Int("limit", limit),
		slog.Int("remaining", remaining),
		slog.Time("reset_at", resetAt))
}

// UpdateFromError derives a wait from a rate-limit failure and stores it
// so the very next ShouldWait reflects the limit, before any retry fires.
//
// Wait extraction priority: an explicit retry-after on the error, then an
// embedded rate-limit payload's reset timestamp, then DefaultErrorWait.
// The result is clamped to MinWait. Returns the stored wait.
func (t *Tracker) UpdateFromError(endpoint string, err error) time.Duration {
	now := t.clock.Now()
	wait, limit := t.waitFromError(err, now)
	if wait < MinWait {
		wait = MinWait
	}

	t.mu.Lock()
	t.states[endpoint] = &State{
		Endpoint:   endpoint,
		Limit:      limit,
		Remaining:  0,
		ResetAt:    now.Add(wait),
		RetryAfter: wait,
	}
	trackedStates.Set(float64(len(t.states)))
	t.mu.Unlock()

	rateLimitErrors.WithLabelValues(endpoint).Inc()
	t.logger.Warn("rate limit reported by server",
		slog.String("endpoint", endpoint),
		slog.Duration("wait", wait),
		slog.Any("error", err))

	return wait
}

// waitFromError extracts the server-indicated wait and any reported
// window size from a failure. Falls back to DefaultErrorWait when the
// error carries nothing usable.
func (t *Tracker) waitFromError(err error, now time.Time) (time.Duration, int) {
	c := Classify(err)
	if c.RateLimit == nil {
		return DefaultErrorWait, 0
	}

	rle := c.RateLimit

	if rle.RetryAfter > 0 {
		return rle.RetryAfter, rle.Limit
	}

	if !rle.ResetAt.IsZero() {
		if wait := rle.ResetAt.Sub(now); wait > 0 {
			return wait, rle.Limit
		}
		// A reset in the past is malformed; treat as no information.
		headerParseFailures.Inc()
		t.logger.Warn("rate limit error carried a non-future reset, using default wait",
			slog.String("endpoint", rle.Endpoint),
			slog.Time("reset_at", rle.ResetAt))
	}

	return DefaultErrorWait, rle.Limit
}

// Statuses returns a snapshot of every tracked endpoint after pruning
// stale entries. Two calls with no intervening writes return the same
// map, minus anything that expired in between.
func (t *Tracker) Statuses() map[string]State {
	t.mu.Lock()
	defer t.mu.Unlock()

	now := t.clock.Now()
	snapshot := make(map[string]State, len(t.states))
	for endpoint, st := range t.states {
		if st.Stale(now) {
			delete(t.states, endpoint)
			continue
		}
		snapshot[endpoint] = *st
	}
	trackedStates.Set(float64(len(t.states)))

	return snapshot
}

// marginFor resolves the safety margin for an endpoint. Callers must hold
// t.mu only for state access; margins are read-only after construction.
func (t *Tracker) marginFor(endpoint string) int {
	if m, ok := t.margins[endpoint]; ok && m >= 0 {
		return m
	}
	return t.margin
}

func (t *Tracker) recordWait(endpoint string, d Decision) {
	waitDecisions.WithLabelValues(endpoint, d.Reason).Inc()
	waitDuration.WithLabelValues(endpoint).Observe(d.WaitFor.Seconds())
	t.logger.Debug("rate limit wait required",
		slog.String("endpoint", endpoint),
		slog.String("reason", d.Reason),
		slog.Duration("wait", d.WaitFor))
}

// headerInt parses the first present header among names as a base-10
// integer, clamping negatives to zero.
func headerInt(headers http.Header, names ...string) (int, bool) {
	for _, name := range names {
		value := headers.Get(name)
		if value == "" {
			continue
		}
		n, err := strconv.Atoi(value)
		if err != nil {
			return 0, false
		}
		if n < 0 {
			n = 0
		}
		return n, true
	}
	return 0, false
}

// headerEpoch parses the first present header among names as integer
// seconds since the Unix epoch.
func headerEpoch(headers http.Header, names ...string) (time.Time, bool) {
	for _, name := range names {
		value := headers.Get(name)
		if value == "" {
			continue
		}
		sec, err := strconv.ParseInt(value, 10, 64)
		if err != nil || sec <= 0 {
			return time.Time{}, false
		}
		return time.Unix(sec, 0), true
	}
	return time.Time{}, false
}
