package config

import (
	"log/slog"
	"os"
	"strconv"
	"strings"
	"time"
)

// GetEnvString returns the environment variable value, or defaultValue
// when the variable is unset or empty. No validation, no logging.
//
// Example:
//
//	rpcURL := GetEnvString("CHAIN_RPC_URL", "http://localhost:8545")
func GetEnvString(key, defaultValue string) string {
	value := os.Getenv(key)
	if value == "" {
		return defaultValue
	}
	return value
}

// GetEnvInt returns the environment variable parsed as an integer.
// Unset variables take the default silently; unparseable values log a
// warning and take the default, so a typo never aborts startup.
//
// Example:
//
//	port := GetEnvInt("METRICS_PORT", 9090)
func GetEnvInt(key string, defaultValue int) int {
	valueStr := os.Getenv(key)
	if valueStr == "" {
		return defaultValue
	}

	value, err := strconv.Atoi(valueStr)
	if err != nil {
		slog.Warn("invalid integer value for environment variable, using default",
			slog.String("key", key),
			slog.String("value", valueStr),
			slog.Int("default", defaultValue),
			slog.String("error", err.Error()))
		return defaultValue
	}

	return value
}

// GetEnvBool returns the environment variable parsed as a boolean.
// Accepted spellings are those of strconv.ParseBool: 1/t/true and
// 0/f/false in their usual casings. Anything else logs a warning and
// takes the default.
//
// Example:
//
//	enabled := GetEnvBool("POSTING_ENABLED", true)
func GetEnvBool(key string, defaultValue bool) bool {
	valueStr := os.Getenv(key)
	if valueStr == "" {
		return defaultValue
	}

	value, err := strconv.ParseBool(valueStr)
	if err != nil {
		slog.Warn("invalid boolean value for environment variable, using default",
			slog.String("key", key),
			slog.String("value", valueStr),
			slog.Bool("default", defaultValue))
		return defaultValue
	}

	return value
}

// GetEnvDuration returns the environment variable parsed as a
// time.Duration ("30s", "5m", "1h30m"). Unparseable values log a
// warning and take the default.
//
// Example:
//
//	ttl := GetEnvDuration("RESILIENCE_CACHE_TTL", 5*time.Minute)
func GetEnvDuration(key string, defaultValue time.Duration) time.Duration {
	valueStr := os.Getenv(key)
	if valueStr == "" {
		return defaultValue
	}

	value, err := time.ParseDuration(valueStr)
	if err != nil {
		slog.Warn("invalid duration value for environment variable, using default",
			slog.String("key", key),
			slog.String("value", valueStr),
			slog.String("default", defaultValue.String()),
			slog.String("error", err.Error()))
		return defaultValue
	}

	return value
}

// GetEnvStringList returns a comma-separated environment variable as a
// slice. Items are whitespace-trimmed and empty items dropped; if
// nothing survives, the default is returned.
//
// Example:
//
//	schedule := GetEnvStringList("RESILIENCE_BACKOFF_SCHEDULE", []string{"1s", "2s", "4s"})
//	// RESILIENCE_BACKOFF_SCHEDULE="500ms, 1s, 2s"
//	// Result: ["500ms", "1s", "2s"]
func GetEnvStringList(key string, defaultValue []string) []string {
	valueStr := os.Getenv(key)
	if valueStr == "" {
		return defaultValue
	}

	parts := strings.Split(valueStr, ",")
	result := make([]string, 0, len(parts))
	for _, part := range parts {
		trimmed := strings.TrimSpace(part)
		if trimmed != "" {
			result = append(result, trimmed)
		}
	}

	if len(result) == 0 {
		return defaultValue
	}

	return result
}
