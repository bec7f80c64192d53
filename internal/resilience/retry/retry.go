// Package retry executes operations against named, rate-limited endpoints.
//
// The executor consults the rate-limit tracker before every attempt and
// sleeps out any reported budget exhaustion pre-emptively, executes the
// operation, feeds response headers back into the tracker, and retries only
// failures that classify as rate limits. Everything else is deterministic
// and propagates on first occurrence. A separate best-effort variant runs a
// fixed backoff schedule and fails soft for fan-out reads and probes.
package retry

import (
	"context"
	"fmt"
	"log/slog"
	"net/http"
	"time"

	"chainpulse/internal/observability/tracing"
	"chainpulse/internal/resilience/cache"
	"chainpulse/internal/resilience/ratelimit"

	"go.opentelemetry.io/otel/attribute"
)

// Operation is a single attempt against an endpoint. The returned headers,
// when non-nil, carry the response's rate-limit metadata for the tracker;
// operations without useful metadata return nil.
type Operation[T any] func(ctx context.Context) (T, http.Header, error)

// Config holds the executor's retry parameters.
type Config struct {
	// MaxRetries is how many rate-limit retries follow the first attempt.
	// An operation is invoked at most MaxRetries+1 times.
	MaxRetries int

	// BestEffortSchedule is the fixed delay sequence for the best-effort
	// variant: attempt k sleeps the k-th entry, and attempts beyond the
	// schedule reuse the last entry.
	BestEffortSchedule []time.Duration

	// EndpointTTLs overrides the cache-wide TTL for DoCached results,
	// keyed by the logical endpoint name. Endpoints absent from the map
	// use the cache default. Nil disables overrides.
	EndpointTTLs map[string]time.Duration
}

// DefaultConfig returns the default executor configuration.
func DefaultConfig() Config {
	return Config{
		MaxRetries:         3,
		BestEffortSchedule: []time.Duration{1 * time.Second, 2 * time.Second, 4 * time.Second},
	}
}

// ProbeConfig returns configuration for health probes: fewer, quicker
// attempts, since a probe that needs long waits is itself the answer.
func ProbeConfig() Config {
	return Config{
		MaxRetries:         2,
		BestEffortSchedule: []time.Duration{1 * time.Second, 2 * time.Second},
	}
}

// Executor coordinates the tracker, the cache, and the retry loop. One
// executor is shared by every call site talking to the same external
// services; construct it once in main and pass it down.
type Executor struct {
	tracker *ratelimit.Tracker
	cache   *cache.Cache
	cfg     Config
	logger  *slog.Logger
}

// New creates an Executor. The tracker is required; cache may be nil, in
// which case DoCached degenerates to Do.
func New(tracker *ratelimit.Tracker, c *cache.Cache, cfg Config, logger *slog.Logger) *Executor {
	if cfg.MaxRetries < 0 {
		cfg.MaxRetries = 0
	}
	if len(cfg.BestEffortSchedule) == 0 {
		cfg.BestEffortSchedule = DefaultConfig().BestEffortSchedule
	}
	if logger == nil {
		logger = slog.Default()
	}

	return &Executor{
		tracker: tracker,
		cache:   c,
		cfg:     cfg,
		logger:  logger,
	}
}

// Tracker returns the executor's rate-limit tracker, for status surfaces.
func (ex *Executor) Tracker() *ratelimit.Tracker {
	return ex.tracker
}

// ExhaustedError is returned when an operation stayed rate limited through
// every allowed attempt. It carries enough context for operators to tell
// "still limited after N attempts" from a hard failure.
type ExhaustedError struct {
	Endpoint string
	Attempts int
	LastWait time.Duration
	Err      error
}

func (e *ExhaustedError) Error() string {
	if e.Err == nil {
		return fmt.Sprintf("endpoint %q: retries exhausted after %d attempts", e.Endpoint, e.Attempts)
	}
	return fmt.Sprintf("endpoint %q still rate limited after %d attempts (last wait %v): %v",
		e.Endpoint, e.Attempts, e.LastWait, e.Err)
}

func (e *ExhaustedError) Unwrap() error {
	return e.Err
}

// Do runs op against the endpoint with pre-emptive throttling and
// rate-limit retries.
//
// Each attempt first asks the tracker whether the endpoint's budget
// requires a wait, including the first attempt, so a limit learned from
// an earlier call site throttles this one before the server has to. On
// success the response headers update the tracker. A rate-limit failure
// stores the server's wait and retries after sleeping it; any other
// failure propagates immediately. All sleeps abort on context
// cancellation.
//
// Do has no overall deadline: MaxRetries bounds attempts, not wall-clock
// time. Callers wanting one wrap ctx with a timeout.
func Do[T any](ctx context.Context, ex *Executor, endpoint string, op Operation[T]) (T, error) {
	var zero T

	ctx, span := tracing.GetTracer().Start(ctx, "retry.execute")
	defer span.End()
	span.SetAttributes(attribute.String("endpoint", endpoint))

	var (
		lastErr  error
		lastWait time.Duration
	)

	for attempt := 0; attempt <= ex.cfg.MaxRetries; attempt++ {
		if d := ex.tracker.ShouldWait(endpoint); d.Wait {
			ex.logger.InfoContext(ctx, "endpoint budget low, waiting before call",
				slog.String("endpoint", endpoint),
				slog.String("reason", d.Reason),
				slog.Duration("wait", d.WaitFor),
				slog.Int("attempt", attempt))
			retryWaits.WithLabelValues(endpoint, "preemptive").Inc()

			if err := sleep(ctx, d.WaitFor); err != nil {
				retryOperations.WithLabelValues(endpoint, "canceled").Inc()
				return zero, err
			}
		}

		result, headers, err := op(ctx)
		if err == nil {
			if headers != nil {
				ex.tracker.UpdateFromHeaders(endpoint, headers)
			}
			if attempt > 0 {
				ex.logger.InfoContext(ctx, "operation succeeded after retry",
					slog.String("endpoint", endpoint),
					slog.Int("attempt", attempt+1))
			}
			span.SetAttributes(attribute.Int("attempts", attempt+1))
			retryOperations.WithLabelValues(endpoint, "success").Inc()
			retryAttempts.WithLabelValues(endpoint).Observe(float64(attempt + 1))
			return result, nil
		}

		if ratelimit.Classify(err).Kind != ratelimit.KindRateLimit {
			ex.logger.WarnContext(ctx, "operation failed, not retrying",
				slog.String("endpoint", endpoint),
				slog.Int("attempt", attempt+1),
				slog.Any("error", err))
			span.SetAttributes(attribute.Int("attempts", attempt+1))
			retryOperations.WithLabelValues(endpoint, "failed").Inc()
			return zero, err
		}

		// Store the server's wait first so concurrent callers of the
		// same endpoint see the limit before this attempt's sleep ends.
		lastWait = ex.tracker.UpdateFromError(endpoint, err)
		lastErr = err

		if attempt == ex.cfg.MaxRetries {
			break
		}

		ex.logger.WarnContext(ctx, "rate limited, backing off",
			slog.String("endpoint", endpoint),
			slog.Int("attempt", attempt+1),
			slog.Int("max_attempts", ex.cfg.MaxRetries+1),
			slog.Duration("wait", lastWait))
		retryWaits.WithLabelValues(endpoint, "backoff").Inc()

		if err := sleep(ctx, lastWait); err != nil {
			retryOperations.WithLabelValues(endpoint, "canceled").Inc()
			return zero, err
		}
	}

	span.SetAttributes(attribute.Int("attempts", ex.cfg.MaxRetries+1))
	retryOperations.WithLabelValues(endpoint, "exhausted").Inc()
	return zero, &ExhaustedError{
		Endpoint: endpoint,
		Attempts: ex.cfg.MaxRetries + 1,
		LastWait: lastWait,
		Err:      lastErr,
	}
}

// DoCached is Do with a cache short-circuit for idempotent single-value
// reads (gas price, block number, contract metadata). A fresh, correctly
// typed entry returns immediately; a miss runs Do and stores the result
// under the endpoint's TTL override, or the cache default without one.
// Never use it for list/log queries whose freshness matters per call.
func DoCached[T any](ctx context.Context, ex *Executor, endpoint, cacheKey string, op Operation[T]) (T, error) {
	if ex.cache != nil {
		if v, ok := cache.Value[T](ex.cache, cacheKey); ok {
			cacheShortCircuits.WithLabelValues(endpoint).Inc()
			return v, nil
		}
	}

	v, err := Do(ctx, ex, endpoint, op)
	if err == nil && ex.cache != nil {
		if ttl, ok := ex.cfg.EndpointTTLs[endpoint]; ok {
			ex.cache.SetTTL(cacheKey, v, ttl)
		} else {
			ex.cache.Set(cacheKey, v)
		}
	}
	return v, err
}

// BestEffort runs op with the fixed backoff schedule and fails soft: on a
// non-retryable failure, exhausted attempts, or cancellation it logs and
// returns T's zero value instead of an error, so parallel aggregate
// callers proceed with partial data.
//
// Only failures classifying as rate limits are retried; the wait for
// attempt k is the k-th schedule entry, capped at the last entry. The
// tracker is not consulted: the fixed schedule replaces server-provided
// waits here.
//
// The zero value is indistinguishable from a legitimately empty result;
// every call site opts into that trade explicitly.
func BestEffort[T any](ctx context.Context, ex *Executor, endpoint string, op func(ctx context.Context) (T, error)) T {
	var zero T

	for attempt := 0; attempt <= ex.cfg.MaxRetries; attempt++ {
		result, err := op(ctx)
		if err == nil {
			if attempt > 0 {
				ex.logger.InfoContext(ctx, "best-effort operation succeeded after retry",
					slog.String("endpoint", endpoint),
					slog.Int("attempt", attempt+1))
			}
			bestEffortOperations.WithLabelValues(endpoint, "success").Inc()
			return result
		}

		if ctx.Err() != nil {
			bestEffortOperations.WithLabelValues(endpoint, "canceled").Inc()
			return zero
		}

		if !ratelimit.IsRateLimit(err) {
			ex.logger.WarnContext(ctx, "best-effort operation failed, returning empty result",
				slog.String("endpoint", endpoint),
				slog.Int("attempt", attempt+1),
				slog.Any("error", err))
			bestEffortOperations.WithLabelValues(endpoint, "failed").Inc()
			return zero
		}

		if attempt == ex.cfg.MaxRetries {
			break
		}

		delay := ex.scheduleDelay(attempt)
		ex.logger.WarnContext(ctx, "best-effort operation rate limited, backing off",
			slog.String("endpoint", endpoint),
			slog.Int("attempt", attempt+1),
			slog.Duration("delay", delay),
			slog.Any("error", err))

		if err := sleep(ctx, delay); err != nil {
			bestEffortOperations.WithLabelValues(endpoint, "canceled").Inc()
			return zero
		}
	}

	ex.logger.WarnContext(ctx, "best-effort operation exhausted retries, returning empty result",
		slog.String("endpoint", endpoint),
		slog.Int("attempts", ex.cfg.MaxRetries+1))
	bestEffortOperations.WithLabelValues(endpoint, "exhausted").Inc()
	return zero
}

// scheduleDelay returns the backoff delay for the given attempt index,
// reusing the last schedule entry for attempts beyond its length.
func (ex *Executor) scheduleDelay(attempt int) time.Duration {
	schedule := ex.cfg.BestEffortSchedule
	if attempt >= len(schedule) {
		return schedule[len(schedule)-1]
	}
	return schedule[attempt]
}

// sleep waits for the duration with context cancellation support.
func sleep(ctx context.Context, d time.Duration) error {
	select {
	case <-time.After(d):
		return nil
	case <-ctx.Done():
		return fmt.Errorf("wait aborted: %w", ctx.Err())
	}
}
