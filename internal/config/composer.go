package config

import (
	"fmt"
	"os"
	"strconv"
	"time"
)

// ComposerConfig holds configuration for the post composer integration.
type ComposerConfig struct {
	// Provider selects the composer backend.
	// Supported values: "claude", "openai", "none"
	// When "none", posts are built from a plain template without an LLM call.
	// Default: "none"
	Provider string

	// Model is the model identifier sent to the provider.
	// Empty selects the client default for the chosen provider.
	Model string

	// MaxTokens caps the completion length. Default: 1024
	MaxTokens int

	// Temperature controls sampling randomness (0.0 to 2.0). Default: 0.7
	Temperature float64

	// RequestTimeout is the timeout for one completion call.
	// Default: 60 seconds
	RequestTimeout time.Duration

	// Style configures how posts are phrased (extensible).
	Style StyleConfig

	// CircuitBreaker for composer API calls.
	CircuitBreaker CircuitBreakerConfig

	// Observability configures logging and tracing.
	Observability ObservabilityConfig
}

// StyleConfig holds post phrasing defaults and limits.
type StyleConfig struct {
	// Tone of generated posts. Default: "neutral"
	Tone string
	// IncludeHashtags appends chain hashtags to posts. Default: true
	IncludeHashtags bool
	// MaxHashtags per post. Default: 3
	MaxHashtags int
	// MaxPostRunes is the target character length for composed posts.
	// The prompt asks for it and the output is clamped to it.
	// Valid range: 50-5000. Default: 500
	MaxPostRunes int
}

// ObservabilityConfig holds logging and tracing settings.
type ObservabilityConfig struct {
	// EnableTracing enables OpenTelemetry distributed tracing.
	EnableTracing bool
	// TracingEndpoint for OTLP exporter. Default: "localhost:4317"
	TracingEndpoint string
	// LogLevel for composer operations. Default: "info"
	LogLevel string
	// EnableMetrics enables Prometheus metrics.
	EnableMetrics bool
}

// CircuitBreakerConfig for composer API resilience.
type CircuitBreakerConfig struct {
	// MaxRequests in half-open state.
	MaxRequests uint32

	// Interval for clearing failure counts.
	Interval time.Duration

	// Timeout before transitioning from open to half-open.
	Timeout time.Duration

	// FailureThreshold ratio to trip circuit (0.0 to 1.0).
	FailureThreshold float64

	// MinRequests before calculating failure ratio.
	MinRequests uint32
}

// LoadComposerConfig loads composer configuration from environment variables.
// Returns a config with defaults if environment variables are not set.
func LoadComposerConfig() (*ComposerConfig, error) {
	config := &ComposerConfig{
		Provider:       getEnvOrDefault("COMPOSER_PROVIDER", "none"),
		Model:          getEnvOrDefault("COMPOSER_MODEL", ""),
		MaxTokens:      getEnvInt("COMPOSER_MAX_TOKENS", 1024),
		Temperature:    getEnvFloat("COMPOSER_TEMPERATURE", 0.7),
		RequestTimeout: getEnvDuration("COMPOSER_REQUEST_TIMEOUT", 60*time.Second),
		Style: StyleConfig{
			Tone:            getEnvOrDefault("COMPOSER_TONE", "neutral"),
			IncludeHashtags: getEnvBool("COMPOSER_HASHTAGS_ENABLED", true),
			MaxHashtags:     getEnvInt("COMPOSER_MAX_HASHTAGS", 3),
			MaxPostRunes:    getEnvInt("COMPOSER_MAX_POST_RUNES", 500),
		},
		CircuitBreaker: CircuitBreakerConfig{
			MaxRequests:      uint32(getEnvInt("COMPOSER_CB_MAX_REQUESTS", 3)),
			Interval:         getEnvDuration("COMPOSER_CB_INTERVAL", 10*time.Second),
			Timeout:          getEnvDuration("COMPOSER_CB_TIMEOUT", 30*time.Second),
			FailureThreshold: 0.6,
			MinRequests:      5,
		},
		Observability: ObservabilityConfig{
			EnableTracing:   getEnvBool("COMPOSER_TRACING_ENABLED", false),
			TracingEndpoint: getEnvOrDefault("COMPOSER_TRACING_ENDPOINT", "localhost:4317"),
			LogLevel:        getEnvOrDefault("COMPOSER_LOG_LEVEL", "info"),
			EnableMetrics:   getEnvBool("COMPOSER_METRICS_ENABLED", true),
		},
	}

	if err := config.Validate(); err != nil {
		return nil, fmt.Errorf("invalid composer configuration: %w", err)
	}

	return config, nil
}

// Validate checks configuration correctness.
func (c *ComposerConfig) Validate() error {
	switch c.Provider {
	case "claude", "openai", "none":
	default:
		return fmt.Errorf("COMPOSER_PROVIDER must be one of claude, openai, none")
	}

	if c.MaxTokens <= 0 || c.MaxTokens > 8192 {
		return fmt.Errorf("COMPOSER_MAX_TOKENS must be between 1 and 8192")
	}

	if c.Temperature < 0 || c.Temperature > 2 {
		return fmt.Errorf("COMPOSER_TEMPERATURE must be between 0.0 and 2.0")
	}

	if c.RequestTimeout <= 0 {
		return fmt.Errorf("COMPOSER_REQUEST_TIMEOUT must be positive")
	}

	if c.Style.Tone == "" {
		return fmt.Errorf("COMPOSER_TONE cannot be empty")
	}

	if c.Style.MaxHashtags < 0 || c.Style.MaxHashtags > 10 {
		return fmt.Errorf("COMPOSER_MAX_HASHTAGS must be between 0 and 10")
	}

	if c.Style.MaxPostRunes < 50 || c.Style.MaxPostRunes > 5000 {
		return fmt.Errorf("COMPOSER_MAX_POST_RUNES must be between 50 and 5000")
	}

	if c.CircuitBreaker.MaxRequests == 0 {
		return fmt.Errorf("COMPOSER_CB_MAX_REQUESTS must be positive")
	}

	if c.CircuitBreaker.Interval <= 0 {
		return fmt.Errorf("COMPOSER_CB_INTERVAL must be positive")
	}

	if c.CircuitBreaker.Timeout <= 0 {
		return fmt.Errorf("COMPOSER_CB_TIMEOUT must be positive")
	}

	return nil
}

// getEnvOrDefault returns environment variable value or default.
func getEnvOrDefault(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

// getEnvBool parses boolean environment variable with default.
func getEnvBool(key string, defaultValue bool) bool {
	if value := os.Getenv(key); value != "" {
		parsed, err := strconv.ParseBool(value)
		if err == nil {
			return parsed
		}
	}
	return defaultValue
}

// getEnvInt parses integer environment variable with default.
func getEnvInt(key string, defaultValue int) int {
	if value := os.Getenv(key); value != "" {
		parsed, err := strconv.Atoi(value)
		if err == nil {
			return parsed
		}
	}
	return defaultValue
}

// getEnvFloat parses float environment variable with default.
func getEnvFloat(key string, defaultValue float64) float64 {
	if value := os.Getenv(key); value != "" {
		parsed, err := strconv.ParseFloat(value, 64)
		if err == nil {
			return parsed
		}
	}
	return defaultValue
}

// getEnvDuration parses duration environment variable with default.
// Supports formats like "30s", "1m", "2h".
func getEnvDuration(key string, defaultValue time.Duration) time.Duration {
	if value := os.Getenv(key); value != "" {
		parsed, err := time.ParseDuration(value)
		if err == nil {
			return parsed
		}
	}
	return defaultValue
}
