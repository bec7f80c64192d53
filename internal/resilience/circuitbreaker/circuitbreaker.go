// Package circuitbreaker wraps github.com/sony/gobreaker with the
// per-dependency profiles the watcher uses for its outbound calls.
// A tripped breaker fails fast instead of letting one dead provider
// consume the whole cycle budget.
package circuitbreaker

import (
	"log/slog"
	"time"

	"github.com/sony/gobreaker"
)

// Config holds the tunables for one circuit breaker.
type Config struct {
	// Name identifies the breaker in logs and metrics.
	Name string

	// MaxRequests caps concurrent probes while half-open.
	MaxRequests uint32

	// Interval is how often the closed-state counters reset.
	Interval time.Duration

	// Timeout is how long the breaker stays open before probing again.
	Timeout time.Duration

	// FailureThreshold is the failure ratio that trips the breaker,
	// e.g. 0.6 trips at a 60% failure rate.
	FailureThreshold float64

	// MinRequests is the sample size required before the ratio counts.
	MinRequests uint32

	// Logger receives state transition logs. Defaults to slog.Default().
	Logger *slog.Logger
}

// DefaultConfig returns the baseline breaker profile.
func DefaultConfig(name string) Config {
	return Config{
		Name:             name,
		MaxRequests:      3,
		Interval:         30 * time.Second,
		Timeout:          60 * time.Second,
		FailureThreshold: 0.6,
		MinRequests:      5,
	}
}

// ChainRPCConfig returns the profile for the JSON-RPC chain endpoint.
// The watcher issues several calls per cycle, so the window is wider and
// the breaker needs more evidence before opening.
func ChainRPCConfig() Config {
	return Config{
		Name:             "chain-rpc",
		MaxRequests:      5,
		Interval:         60 * time.Second,
		Timeout:          60 * time.Second,
		FailureThreshold: 0.7,
		MinRequests:      10,
	}
}

// SocialAPIConfig returns the profile for the social platform API.
func SocialAPIConfig() Config {
	return Config{
		Name:             "social-api",
		MaxRequests:      3,
		Interval:         30 * time.Second,
		Timeout:          60 * time.Second,
		FailureThreshold: 0.6,
		MinRequests:      5,
	}
}

// ComposerAPIConfig returns the profile for LLM composer calls.
func ComposerAPIConfig() Config {
	return Config{
		Name:             "composer-api",
		MaxRequests:      3,
		Interval:         30 * time.Second,
		Timeout:          60 * time.Second,
		FailureThreshold: 0.6,
		MinRequests:      5,
	}
}

// ExplorerConfig returns the profile for explorer page scraping.
// More conservative than the API breakers: scrapes break when the site
// changes structure, and a long open period avoids hammering it.
func ExplorerConfig() Config {
	return Config{
		Name:             "explorer",
		MaxRequests:      3,
		Interval:         60 * time.Second,
		Timeout:          3600 * time.Second, // 1 hour
		FailureThreshold: 0.8,                // 80% failure rate
		MinRequests:      5,
	}
}

// CircuitBreaker protects one outbound dependency. State transitions
// are logged and exported as metrics.
type CircuitBreaker struct {
	breaker *gobreaker.CircuitBreaker
	name    string
}

// New builds a breaker from cfg. The breaker starts closed.
func New(cfg Config) *CircuitBreaker {
	logger := cfg.Logger
	if logger == nil {
		logger = slog.Default()
	}

	settings := gobreaker.Settings{
		Name:        cfg.Name,
		MaxRequests: cfg.MaxRequests,
		Interval:    cfg.Interval,
		Timeout:     cfg.Timeout,
		ReadyToTrip: func(counts gobreaker.Counts) bool {
			if counts.Requests < cfg.MinRequests {
				return false
			}
			ratio := float64(counts.TotalFailures) / float64(counts.Requests)
			return ratio >= cfg.FailureThreshold
		},
		OnStateChange: func(name string, from gobreaker.State, to gobreaker.State) {
			recordStateChange(name, from, to)
			logger.Warn("circuit breaker state changed",
				slog.String("circuit", name),
				slog.String("from", from.String()),
				slog.String("to", to.String()))
		},
	}

	// Surface the series before the first transition.
	circuitState.WithLabelValues(cfg.Name).Set(float64(gobreaker.StateClosed))

	return &CircuitBreaker{
		breaker: gobreaker.NewCircuitBreaker(settings),
		name:    cfg.Name,
	}
}

// Execute runs fn through the breaker. While the breaker is open it
// returns gobreaker.ErrOpenState without calling fn.
func (cb *CircuitBreaker) Execute(fn func() (interface{}, error)) (interface{}, error) {
	return cb.breaker.Execute(fn)
}

// State returns the current breaker state.
func (cb *CircuitBreaker) State() gobreaker.State {
	return cb.breaker.State()
}

// Name returns the breaker name.
func (cb *CircuitBreaker) Name() string {
	return cb.name
}

// IsOpen reports whether the breaker is open.
func (cb *CircuitBreaker) IsOpen() bool {
	return cb.breaker.State() == gobreaker.StateOpen
}
