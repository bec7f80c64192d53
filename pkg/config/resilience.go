package config

import (
	"fmt"
	"log/slog"
	"time"
)

// ResilienceConfig holds the tunables for the outbound resilience layer:
// response caching, rate limit tracking, retry orchestration, and
// dependency health monitoring.
//
// All fields have safe defaults. Use LoadResilienceConfig to load them
// from environment variables with validation and fallback.
type ResilienceConfig struct {
	// CacheTTL is how long cached responses stay valid.
	CacheTTL time.Duration

	// CacheSweepInterval is how often the cache evicts expired entries.
	CacheSweepInterval time.Duration

	// MaxRetries is the number of additional attempts after the first call.
	MaxRetries int

	// BackoffSchedule is the fixed wait schedule for best-effort operations.
	// Attempts beyond the schedule reuse the last entry.
	BackoffSchedule []time.Duration

	// SafetyMargin is the remaining-call threshold at or below which
	// outbound calls wait for the rate limit window to reset.
	SafetyMargin int

	// HealthMaxAge is how long a health verdict stays fresh before a
	// freshness check triggers a new probe.
	HealthMaxAge time.Duration

	// HealthProbeInterval is the background probe period. Zero disables
	// background probing; verdicts are then refreshed on demand only.
	HealthProbeInterval time.Duration
}

// DefaultResilienceConfig returns a ResilienceConfig with production defaults.
//
// Defaults:
//   - CacheTTL: 5m
//   - CacheSweepInterval: 1m
//   - MaxRetries: 3
//   - BackoffSchedule: 1s, 2s, 4s
//   - SafetyMargin: 5
//   - HealthMaxAge: 10m
//   - HealthProbeInterval: 0 (on-demand probing only)
func DefaultResilienceConfig() *ResilienceConfig {
	return &ResilienceConfig{
		CacheTTL:            5 * time.Minute,
		CacheSweepInterval:  1 * time.Minute,
		MaxRetries:          3,
		BackoffSchedule:     []time.Duration{1 * time.Second, 2 * time.Second, 4 * time.Second},
		SafetyMargin:        5,
		HealthMaxAge:        10 * time.Minute,
		HealthProbeInterval: 0,
	}
}

// Validate checks that every field holds a usable value.
//
// Returns:
//   - error: nil if the configuration is valid, the first violation otherwise
func (c *ResilienceConfig) Validate() error {
	if err := ValidatePositiveDuration(c.CacheTTL); err != nil {
		return fmt.Errorf("cache TTL: %w", err)
	}
	if err := ValidateDurationRange(c.CacheSweepInterval, 1*time.Second, 1*time.Hour); err != nil {
		return fmt.Errorf("cache sweep interval: %w", err)
	}
	if c.MaxRetries < 0 {
		return fmt.Errorf("max retries must be non-negative, got %d", c.MaxRetries)
	}
	if len(c.BackoffSchedule) == 0 {
		return fmt.Errorf("backoff schedule cannot be empty")
	}
	for i, d := range c.BackoffSchedule {
		if err := ValidatePositiveDuration(d); err != nil {
			return fmt.Errorf("backoff schedule entry %d: %w", i, err)
		}
	}
	if c.SafetyMargin < 0 {
		return fmt.Errorf("safety margin must be non-negative, got %d", c.SafetyMargin)
	}
	if err := ValidatePositiveDuration(c.HealthMaxAge); err != nil {
		return fmt.Errorf("health max age: %w", err)
	}
	if err := ValidateNonNegativeDuration(c.HealthProbeInterval); err != nil {
		return fmt.Errorf("health probe interval: %w", err)
	}
	return nil
}

// ApplyDefaults resets the configuration to the production defaults.
func (c *ResilienceConfig) ApplyDefaults() {
	*c = *DefaultResilienceConfig()
}

// LoadResilienceConfig loads resilience configuration from environment variables.
//
// This function reads the resilience tunables from environment variables and
// returns a validated ResilienceConfig. If any values are invalid, it logs
// warnings and uses safe defaults instead of failing.
//
// Environment variables:
//   - RESILIENCE_CACHE_TTL: Cached response lifetime (default: 5m)
//   - RESILIENCE_CACHE_SWEEP_INTERVAL: Expired entry sweep period (default: 1m)
//   - RESILIENCE_MAX_RETRIES: Additional attempts after the first call (default: 3)
//   - RESILIENCE_BACKOFF_SCHEDULE: Comma-separated best-effort waits (default: "1s,2s,4s")
//   - RESILIENCE_SAFETY_MARGIN: Remaining-call threshold for pre-emptive waits (default: 5)
//   - RESILIENCE_HEALTH_MAX_AGE: Health verdict freshness window (default: 10m)
//   - RESILIENCE_HEALTH_PROBE_INTERVAL: Background probe period, 0 disables (default: 0)
//
// Returns:
//   - *ResilienceConfig: Validated configuration with defaults applied
//   - error: Always nil (validation failures result in warnings and defaults)
//
// Example:
//
//	config, err := LoadResilienceConfig()
//	if err != nil {
//	    return fmt.Errorf("failed to load resilience config: %w", err)
//	}
func LoadResilienceConfig() (*ResilienceConfig, error) {
	config := DefaultResilienceConfig()

	cacheTTL := GetEnvDuration("RESILIENCE_CACHE_TTL", 5*time.Minute)
	if err := ValidatePositiveDuration(cacheTTL); err != nil {
		slog.Warn("invalid RESILIENCE_CACHE_TTL, using default",
			slog.String("value", cacheTTL.String()),
			slog.String("default", "5m"),
			slog.String("error", err.Error()))
		cacheTTL = 5 * time.Minute
	}
	config.CacheTTL = cacheTTL

	sweepInterval := GetEnvDuration("RESILIENCE_CACHE_SWEEP_INTERVAL", 1*time.Minute)
	if err := ValidateDurationRange(sweepInterval, 1*time.Second, 1*time.Hour); err != nil {
		slog.Warn("invalid RESILIENCE_CACHE_SWEEP_INTERVAL, using default",
			slog.String("value", sweepInterval.String()),
			slog.String("default", "1m"),
			slog.String("error", err.Error()))
		sweepInterval = 1 * time.Minute
	}
	config.CacheSweepInterval = sweepInterval

	maxRetries := GetEnvInt("RESILIENCE_MAX_RETRIES", 3)
	if maxRetries < 0 {
		slog.Warn("invalid RESILIENCE_MAX_RETRIES, using default",
			slog.Int("value", maxRetries),
			slog.Int("default", 3))
		maxRetries = 3
	}
	config.MaxRetries = maxRetries

	config.BackoffSchedule = loadBackoffSchedule()

	safetyMargin := GetEnvInt("RESILIENCE_SAFETY_MARGIN", 5)
	if safetyMargin < 0 {
		slog.Warn("invalid RESILIENCE_SAFETY_MARGIN, using default",
			slog.Int("value", safetyMargin),
			slog.Int("default", 5))
		safetyMargin = 5
	}
	config.SafetyMargin = safetyMargin

	healthMaxAge := GetEnvDuration("RESILIENCE_HEALTH_MAX_AGE", 10*time.Minute)
	if err := ValidatePositiveDuration(healthMaxAge); err != nil {
		slog.Warn("invalid RESILIENCE_HEALTH_MAX_AGE, using default",
			slog.String("value", healthMaxAge.String()),
			slog.String("default", "10m"),
			slog.String("error", err.Error()))
		healthMaxAge = 10 * time.Minute
	}
	config.HealthMaxAge = healthMaxAge

	probeInterval := GetEnvDuration("RESILIENCE_HEALTH_PROBE_INTERVAL", 0)
	if err := ValidateNonNegativeDuration(probeInterval); err != nil {
		slog.Warn("invalid RESILIENCE_HEALTH_PROBE_INTERVAL, using default",
			slog.String("value", probeInterval.String()),
			slog.String("default", "0s"),
			slog.String("error", err.Error()))
		probeInterval = 0
	}
	config.HealthProbeInterval = probeInterval

	// Validate the entire configuration
	if err := config.Validate(); err != nil {
		slog.Warn("resilience configuration validation failed, applying defaults",
			slog.String("error", err.Error()))
		config.ApplyDefaults()
	}

	return config, nil
}

// loadBackoffSchedule loads the best-effort backoff schedule from
// RESILIENCE_BACKOFF_SCHEDULE.
//
// The value is a comma-separated list of Go durations, e.g. "1s,2s,4s".
// Attempts beyond the last entry reuse it, so the list also sets the
// backoff cap. An invalid entry discards the whole list in favor of the
// default schedule.
//
// Returns:
//   - []time.Duration: Parsed schedule, or the default 1s, 2s, 4s
func loadBackoffSchedule() []time.Duration {
	defaultSchedule := []time.Duration{1 * time.Second, 2 * time.Second, 4 * time.Second}

	raw := GetEnvStringList("RESILIENCE_BACKOFF_SCHEDULE", nil)
	if len(raw) == 0 {
		return defaultSchedule
	}

	schedule := make([]time.Duration, 0, len(raw))
	for _, entry := range raw {
		d, err := time.ParseDuration(entry)
		if err != nil {
			slog.Warn("invalid RESILIENCE_BACKOFF_SCHEDULE entry, using default schedule",
				slog.String("entry", entry),
				slog.String("error", err.Error()))
			return defaultSchedule
		}
		if d <= 0 {
			slog.Warn("non-positive RESILIENCE_BACKOFF_SCHEDULE entry, using default schedule",
				slog.String("entry", entry))
			return defaultSchedule
		}
		schedule = append(schedule, d)
	}

	return schedule
}
