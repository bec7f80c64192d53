package config

import (
	"fmt"
	"os"
	"strconv"
	"time"
)

// ConfigLoadResult is the outcome of loading a single configuration value.
// It carries the loaded value, any warnings generated along the way, and a
// flag indicating whether a fallback value was substituted.
//
// All LoadEnv* helpers in this package return this type so callers can
// handle fallbacks uniformly: log the warnings, record the fallback in
// metrics, and continue with a safe value.
//
// Example:
//
//	result := LoadEnvDuration("CYCLE_TIMEOUT", 2*time.Minute, ValidatePositiveDuration)
//	if result.FallbackApplied {
//	    for _, warning := range result.Warnings {
//	        log.Warn("Configuration warning: %s", warning)
//	    }
//	}
//	timeout := result.Value.(time.Duration)
type ConfigLoadResult struct {
	Value           interface{}
	Warnings        []string
	FallbackApplied bool
}

// LoadEnvString loads a string from an environment variable, returning
// the default when the variable is unset or empty. No validation is
// performed; use LoadEnvWithFallback when validation is needed.
//
// Example:
//
//	schedule := LoadEnvString("WATCH_SCHEDULE", "*/5 * * * *")
//	// If WATCH_SCHEDULE is not set, returns "*/5 * * * *"
//	// If WATCH_SCHEDULE="0 * * * *", returns "0 * * * *"
func LoadEnvString(envKey, defaultValue string) string {
	value := os.Getenv(envKey)
	if value == "" {
		return defaultValue
	}
	return value
}

// LoadEnvWithFallback loads a string from an environment variable with
// validation and automatic fallback to the default on validation failure.
//
// Loading behavior:
//  1. Unset or empty variable: default value, no warning
//  2. Set and validator rejects it: default value, warning recorded
//  3. Set and valid (or validator is nil): environment value
//
// This function never returns an error. A process starting with a broken
// environment keeps running on defaults; the warning and FallbackApplied
// flag are the caller's signal to log and record the substitution.
//
// Example:
//
//	result := LoadEnvWithFallback(
//	    "WATCH_SCHEDULE",
//	    "*/5 * * * *",
//	    ValidateCronSchedule,
//	)
//	if result.FallbackApplied {
//	    for _, warning := range result.Warnings {
//	        log.Warn("Configuration fallback: %s", warning)
//	    }
//	}
//	schedule := result.Value.(string)
//
// Warning format:
//
//	"Invalid {envKey}='{value}': {error}, falling back to default '{default}'"
func LoadEnvWithFallback(envKey, defaultValue string, validator func(string) error) ConfigLoadResult {
	value := os.Getenv(envKey)

	// Unset or empty means the default is intentional, not a fallback
	if value == "" {
		return ConfigLoadResult{
			Value:           defaultValue,
			Warnings:        nil,
			FallbackApplied: false,
		}
	}

	if validator != nil {
		if err := validator(value); err != nil {
			warning := fmt.Sprintf(
				"Invalid %s='%s': %v, falling back to default '%s'",
				envKey,
				value,
				err,
				defaultValue,
			)
			return ConfigLoadResult{
				Value:           defaultValue,
				Warnings:        []string{warning},
				FallbackApplied: true,
			}
		}
	}

	return ConfigLoadResult{
		Value:           value,
		Warnings:        nil,
		FallbackApplied: false,
	}
}

// LoadEnvDuration loads a duration from an environment variable with
// parsing, validation, and automatic fallback to the default on failure.
//
// Loading behavior:
//  1. Unset or empty variable: default value, no warning
//  2. Set but not a valid Go duration string: default value, warning
//  3. Parsed but validator rejects it: default value, warning
//  4. Parsed and valid (or validator is nil): parsed value
//
// This function never returns an error; failures produce warnings and a
// fallback, not a startup crash.
//
// Example:
//
//	result := LoadEnvDuration(
//	    "CYCLE_TIMEOUT",
//	    2*time.Minute,
//	    func(d time.Duration) error {
//	        return ValidateDuration(d, 10*time.Second, 30*time.Minute)
//	    },
//	)
//	timeout := result.Value.(time.Duration)
//
// Environment variable format: Go duration strings ("30s", "5m", "1h30m").
func LoadEnvDuration(envKey string, defaultValue time.Duration, validator func(time.Duration) error) ConfigLoadResult {
	valueStr := os.Getenv(envKey)

	// Unset or empty means the default is intentional, not a fallback
	if valueStr == "" {
		return ConfigLoadResult{
			Value:           defaultValue,
			Warnings:        nil,
			FallbackApplied: false,
		}
	}

	parsedDuration, err := time.ParseDuration(valueStr)
	if err != nil {
		warning := fmt.Sprintf(
			"Invalid %s='%s': %v, falling back to default '%v'",
			envKey,
			valueStr,
			err,
			defaultValue,
		)
		return ConfigLoadResult{
			Value:           defaultValue,
			Warnings:        []string{warning},
			FallbackApplied: true,
		}
	}

	if validator != nil {
		if err := validator(parsedDuration); err != nil {
			warning := fmt.Sprintf(
				"Invalid %s='%s': %v, falling back to default '%v'",
				envKey,
				valueStr,
				err,
				defaultValue,
			)
			return ConfigLoadResult{
				Value:           defaultValue,
				Warnings:        []string{warning},
				FallbackApplied: true,
			}
		}
	}

	return ConfigLoadResult{
		Value:           parsedDuration,
		Warnings:        nil,
		FallbackApplied: false,
	}
}

// LoadEnvInt loads an integer from an environment variable with parsing,
// validation, and automatic fallback to the default on failure.
//
// Loading behavior:
//  1. Unset or empty variable: default value, no warning
//  2. Set but not an integer: default value, warning
//  3. Parsed but validator rejects it: default value, warning
//  4. Parsed and valid (or validator is nil): parsed value
//
// This function never returns an error; failures produce warnings and a
// fallback, not a startup crash.
//
// Example:
//
//	result := LoadEnvInt(
//	    "FETCH_MAX_CONCURRENT",
//	    3,
//	    func(v int) error { return ValidateIntRange(v, 1, 50) },
//	)
//	maxConcurrent := result.Value.(int)
//
// Common uses: port numbers, concurrency limits, retry attempt counts.
func LoadEnvInt(envKey string, defaultValue int, validator func(int) error) ConfigLoadResult {
	valueStr := os.Getenv(envKey)

	// Unset or empty means the default is intentional, not a fallback
	if valueStr == "" {
		return ConfigLoadResult{
			Value:           defaultValue,
			Warnings:        nil,
			FallbackApplied: false,
		}
	}

	var parsedInt int
	_, err := fmt.Sscanf(valueStr, "%d", &parsedInt)
	if err != nil {
		warning := fmt.Sprintf(
			"Invalid %s='%s': invalid integer format, falling back to default '%d'",
			envKey,
			valueStr,
			defaultValue,
		)
		return ConfigLoadResult{
			Value:           defaultValue,
			Warnings:        []string{warning},
			FallbackApplied: true,
		}
	}

	if validator != nil {
		if err := validator(parsedInt); err != nil {
			warning := fmt.Sprintf(
				"Invalid %s='%s': %v, falling back to default '%d'",
				envKey,
				valueStr,
				err,
				defaultValue,
			)
			return ConfigLoadResult{
				Value:           defaultValue,
				Warnings:        []string{warning},
				FallbackApplied: true,
			}
		}
	}

	return ConfigLoadResult{
		Value:           parsedInt,
		Warnings:        nil,
		FallbackApplied: false,
	}
}

// LoadEnvBool loads a boolean from an environment variable with parsing
// and automatic fallback to the default on failure.
//
// Accepted spellings are those of strconv.ParseBool: 1/t/true and
// 0/f/false in their usual casings. Anything else produces the default
// value and a warning. Unset or empty produces the default with no
// warning.
//
// Example:
//
//	result := LoadEnvBool("WATCHER_RUN_ON_START", false)
//	runOnStart := result.Value.(bool)
//
// Common uses: feature flags, dry-run mode, debug toggles.
func LoadEnvBool(envKey string, defaultValue bool) ConfigLoadResult {
	valueStr := os.Getenv(envKey)

	// Unset or empty means the default is intentional, not a fallback
	if valueStr == "" {
		return ConfigLoadResult{
			Value:           defaultValue,
			Warnings:        nil,
			FallbackApplied: false,
		}
	}

	parsedBool, err := strconv.ParseBool(valueStr)
	if err != nil {
		warning := fmt.Sprintf(
			"Invalid %s='%s': invalid boolean format, expected 'true' or 'false', falling back to default '%t'",
			envKey,
			valueStr,
			defaultValue,
		)
		return ConfigLoadResult{
			Value:           defaultValue,
			Warnings:        []string{warning},
			FallbackApplied: true,
		}
	}

	return ConfigLoadResult{
		Value:           parsedBool,
		Warnings:        nil,
		FallbackApplied: false,
	}
}
