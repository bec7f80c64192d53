package worker

import (
	"fmt"
	"log/slog"
	"time"

	"chainpulse/internal/pkg/config"
)

// WatcherConfig holds the configuration for the watcher component: the
// cron schedule driving watch cycles, the per-cycle timeout, the fan-out
// width for chain reads, and the health server port.
//
// Configuration sources:
//   - Environment variables (loaded via LoadConfigFromEnv)
//   - Default values (provided by DefaultConfig)
//
// All fields have defaults and validation rules so the watcher keeps
// running even with an invalid or missing environment.
//
// Example usage:
//
//	cfg, _ := LoadConfigFromEnv(logger, metrics)
//	// cfg is always valid; fallbacks were logged and counted
type WatcherConfig struct {
	// CronSchedule is the cron expression for watch cycle scheduling.
	// Format: "minute hour day month weekday"
	// Example: "*/5 * * * *" (every 5 minutes)
	// Validation: Must be a valid five-field cron expression
	// Default: "*/5 * * * *"
	CronSchedule string

	// Timezone is the IANA timezone name for cron scheduling.
	// Example: "UTC", "America/New_York"
	// Validation: Must be a valid IANA timezone name
	// Default: "UTC"
	Timezone string

	// FetchMaxConcurrent is the maximum number of chain reads issued in
	// parallel within one cycle (gas price, block number, event logs).
	// Range: 1-50
	// Default: 3
	FetchMaxConcurrent int

	// CycleTimeout is the maximum duration for a single watch cycle,
	// covering chain reads, composition, and posting. The cycle context
	// is cancelled when it elapses.
	// Must be positive (> 0)
	// Default: 2 minutes
	CycleTimeout time.Duration

	// HealthPort is the port number for the health check HTTP server.
	// Range: 1024-65535 (avoid privileged ports)
	// Default: 9091
	HealthPort int

	// RunOnStart triggers one watch cycle immediately after startup
	// instead of waiting for the first cron tick. Without it a five
	// minute schedule leaves up to five minutes of blind time after a
	// deploy.
	// Default: false
	RunOnStart bool
}

// DefaultConfig returns a WatcherConfig with production default values:
// a five-minute cycle in UTC, three parallel chain reads, a two-minute
// cycle budget, and the conventional exporter port for health checks.
//
// Example:
//
//	cfg := DefaultConfig()
//	cfg.CronSchedule = "*/1 * * * *" // Tighten for a fast-moving chain
func DefaultConfig() WatcherConfig {
	return WatcherConfig{
		CronSchedule:       "*/5 * * * *",   // Every 5 minutes
		Timezone:           "UTC",           // Chain time is UTC
		FetchMaxConcurrent: 3,               // Gas, block number, logs in parallel
		CycleTimeout:       2 * time.Minute, // Whole-cycle budget
		HealthPort:         9091,            // Standard exporter port
		RunOnStart:         false,           // Wait for the first tick
	}
}

// Validate checks the configuration values using the reusable validators
// from internal/pkg/config. If multiple fields are invalid, all errors
// are collected and returned together.
//
// Validation rules:
//   - CronSchedule: Valid five-field cron expression
//   - Timezone: Valid IANA timezone name
//   - FetchMaxConcurrent: Between 1 and 50 (inclusive)
//   - CycleTimeout: Positive (> 0)
//   - HealthPort: Between 1024 and 65535
//
// Returns:
//   - error: nil if valid, aggregated error if any validation fails
func (c *WatcherConfig) Validate() error {
	var errors []error

	if err := config.ValidateCronSchedule(c.CronSchedule); err != nil {
		errors = append(errors, fmt.Errorf("cron schedule: %w", err))
	}

	if err := config.ValidateTimezone(c.Timezone); err != nil {
		errors = append(errors, fmt.Errorf("timezone: %w", err))
	}

	if err := config.ValidateIntRange(c.FetchMaxConcurrent, 1, 50); err != nil {
		errors = append(errors, fmt.Errorf("fetch max concurrent: %w", err))
	}

	if err := config.ValidatePositiveDuration(c.CycleTimeout); err != nil {
		errors = append(errors, fmt.Errorf("cycle timeout: %w", err))
	}

	if err := config.ValidateIntRange(c.HealthPort, 1024, 65535); err != nil {
		errors = append(errors, fmt.Errorf("health port: %w", err))
	}

	if len(errors) > 0 {
		return fmt.Errorf("validation failed: %v", errors)
	}

	return nil
}

// LoadConfigFromEnv loads watcher configuration from environment variables
// with validation and automatic fallback to default values on failure.
//
// This function implements the fail-open strategy:
//  1. Start with DefaultConfig() as base
//  2. Load each field from environment variables
//  3. Validate each loaded value
//  4. If validation fails: use default value, log warning, increment metrics
//  5. Never return an error: always return a valid configuration
//
// Environment variables:
//   - WATCH_SCHEDULE: Cron expression (default: "*/5 * * * *")
//   - WATCHER_TIMEZONE: IANA timezone name (default: "UTC")
//   - FETCH_MAX_CONCURRENT: Integer 1-50 (default: 3)
//   - CYCLE_TIMEOUT: Duration string 10s-30m, e.g., "2m" (default: 2 minutes)
//   - WATCHER_HEALTH_PORT: Integer 1024-65535 (default: 9091)
//   - WATCHER_RUN_ON_START: Boolean, cycle once at startup (default: false)
//
// Metrics updated:
//   - ValidationErrorsTotal: Incremented for each validation failure
//   - FallbacksTotal: Incremented for each fallback applied
//   - FallbackActive: Set to 1 if any fallback is active, 0 otherwise
//   - LoadTimestamp: Set to current time after the load
//
// Parameters:
//   - logger: Structured logger for fallback warnings
//   - metrics: Metrics instance for tracking fallbacks
//
// Returns:
//   - *WatcherConfig: Valid configuration (never nil)
//   - error: Always nil (fail-open strategy)
func LoadConfigFromEnv(logger *slog.Logger, metrics *WatcherMetrics) (*WatcherConfig, error) {
	cfg := DefaultConfig()
	fallbackApplied := false

	// Load CronSchedule
	result := config.LoadEnvWithFallback("WATCH_SCHEDULE", cfg.CronSchedule, config.ValidateCronSchedule)
	cfg.CronSchedule = result.Value.(string)
	if result.FallbackApplied {
		fallbackApplied = true
		metrics.RecordValidationError("watch_schedule")
		metrics.RecordFallback("watch_schedule", "default")
		for _, warning := range result.Warnings {
			logger.Warn("Configuration fallback applied",
				slog.String("field", "CronSchedule"),
				slog.String("warning", warning))
		}
	}

	// Load Timezone
	result = config.LoadEnvWithFallback("WATCHER_TIMEZONE", cfg.Timezone, config.ValidateTimezone)
	cfg.Timezone = result.Value.(string)
	if result.FallbackApplied {
		fallbackApplied = true
		metrics.RecordValidationError("timezone")
		metrics.RecordFallback("timezone", "default")
		for _, warning := range result.Warnings {
			logger.Warn("Configuration fallback applied",
				slog.String("field", "Timezone"),
				slog.String("warning", warning))
		}
	}

	// Load FetchMaxConcurrent
	result = config.LoadEnvInt("FETCH_MAX_CONCURRENT", cfg.FetchMaxConcurrent, func(v int) error {
		return config.ValidateIntRange(v, 1, 50)
	})
	cfg.FetchMaxConcurrent = result.Value.(int)
	if result.FallbackApplied {
		fallbackApplied = true
		metrics.RecordValidationError("fetch_max_concurrent")
		metrics.RecordFallback("fetch_max_concurrent", "default")
		for _, warning := range result.Warnings {
			logger.Warn("Configuration fallback applied",
				slog.String("field", "FetchMaxConcurrent"),
				slog.String("warning", warning))
		}
	}

	// Load CycleTimeout (with 10s-30m range limit)
	result = config.LoadEnvDuration("CYCLE_TIMEOUT", cfg.CycleTimeout, func(d time.Duration) error {
		return config.ValidateDuration(d, 10*time.Second, 30*time.Minute)
	})
	cfg.CycleTimeout = result.Value.(time.Duration)
	if result.FallbackApplied {
		fallbackApplied = true
		metrics.RecordValidationError("cycle_timeout")
		metrics.RecordFallback("cycle_timeout", "default")
		for _, warning := range result.Warnings {
			logger.Warn("Configuration fallback applied",
				slog.String("field", "CycleTimeout"),
				slog.String("warning", warning))
		}
	}

	// Load HealthPort
	result = config.LoadEnvInt("WATCHER_HEALTH_PORT", cfg.HealthPort, func(v int) error {
		return config.ValidateIntRange(v, 1024, 65535)
	})
	cfg.HealthPort = result.Value.(int)
	if result.FallbackApplied {
		fallbackApplied = true
		metrics.RecordValidationError("health_port")
		metrics.RecordFallback("health_port", "default")
		for _, warning := range result.Warnings {
			logger.Warn("Configuration fallback applied",
				slog.String("field", "HealthPort"),
				slog.String("warning", warning))
		}
	}

	// Load RunOnStart
	result = config.LoadEnvBool("WATCHER_RUN_ON_START", cfg.RunOnStart)
	cfg.RunOnStart = result.Value.(bool)
	if result.FallbackApplied {
		fallbackApplied = true
		metrics.RecordValidationError("run_on_start")
		metrics.RecordFallback("run_on_start", "default")
		for _, warning := range result.Warnings {
			logger.Warn("Configuration fallback applied",
				slog.String("field", "RunOnStart"),
				slog.String("warning", warning))
		}
	}

	metrics.SetFallbackActive("", fallbackApplied)
	metrics.RecordLoadTimestamp()

	// Always return a valid config (fail-open strategy)
	return &cfg, nil
}
