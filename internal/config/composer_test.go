package config

import (
	"os"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoadComposerConfig_Defaults(t *testing.T) {
	// Clear all composer-related environment variables
	clearComposerEnvVars(t)

	config, err := LoadComposerConfig()
	require.NoError(t, err)
	require.NotNil(t, config)

	// Verify defaults
	assert.Equal(t, "none", config.Provider)
	assert.Equal(t, "", config.Model)
	assert.Equal(t, 1024, config.MaxTokens)
	assert.Equal(t, 0.7, config.Temperature)
	assert.Equal(t, 60*time.Second, config.RequestTimeout)

	// Style
	assert.Equal(t, "neutral", config.Style.Tone)
	assert.True(t, config.Style.IncludeHashtags)
	assert.Equal(t, 3, config.Style.MaxHashtags)
	assert.Equal(t, 500, config.Style.MaxPostRunes)

	// Circuit Breaker
	assert.Equal(t, uint32(3), config.CircuitBreaker.MaxRequests)
	assert.Equal(t, 10*time.Second, config.CircuitBreaker.Interval)
	assert.Equal(t, 30*time.Second, config.CircuitBreaker.Timeout)
	assert.Equal(t, 0.6, config.CircuitBreaker.FailureThreshold)
	assert.Equal(t, uint32(5), config.CircuitBreaker.MinRequests)

	// Observability
	assert.False(t, config.Observability.EnableTracing)
	assert.Equal(t, "localhost:4317", config.Observability.TracingEndpoint)
	assert.Equal(t, "info", config.Observability.LogLevel)
	assert.True(t, config.Observability.EnableMetrics)
}

func TestLoadComposerConfig_CustomValues(t *testing.T) {
	clearComposerEnvVars(t)

	// Set custom environment variables
	setEnv(t, "COMPOSER_PROVIDER", "claude")
	setEnv(t, "COMPOSER_MODEL", "claude-sonnet-4-20250514")
	setEnv(t, "COMPOSER_MAX_TOKENS", "2048")
	setEnv(t, "COMPOSER_TEMPERATURE", "1.2")
	setEnv(t, "COMPOSER_REQUEST_TIMEOUT", "90s")
	setEnv(t, "COMPOSER_TONE", "enthusiastic")
	setEnv(t, "COMPOSER_HASHTAGS_ENABLED", "false")
	setEnv(t, "COMPOSER_MAX_HASHTAGS", "5")
	setEnv(t, "COMPOSER_MAX_POST_RUNES", "280")
	setEnv(t, "COMPOSER_CB_MAX_REQUESTS", "5")
	setEnv(t, "COMPOSER_CB_INTERVAL", "20s")
	setEnv(t, "COMPOSER_CB_TIMEOUT", "60s")
	setEnv(t, "COMPOSER_TRACING_ENABLED", "true")
	setEnv(t, "COMPOSER_TRACING_ENDPOINT", "jaeger:4317")
	setEnv(t, "COMPOSER_LOG_LEVEL", "debug")
	setEnv(t, "COMPOSER_METRICS_ENABLED", "false")

	config, err := LoadComposerConfig()
	require.NoError(t, err)

	assert.Equal(t, "claude", config.Provider)
	assert.Equal(t, "claude-sonnet-4-20250514", config.Model)
	assert.Equal(t, 2048, config.MaxTokens)
	assert.Equal(t, 1.2, config.Temperature)
	assert.Equal(t, 90*time.Second, config.RequestTimeout)
	assert.Equal(t, "enthusiastic", config.Style.Tone)
	assert.False(t, config.Style.IncludeHashtags)
	assert.Equal(t, 5, config.Style.MaxHashtags)
	assert.Equal(t, 280, config.Style.MaxPostRunes)
	assert.Equal(t, uint32(5), config.CircuitBreaker.MaxRequests)
	assert.Equal(t, 20*time.Second, config.CircuitBreaker.Interval)
	assert.Equal(t, 60*time.Second, config.CircuitBreaker.Timeout)
	assert.True(t, config.Observability.EnableTracing)
	assert.Equal(t, "jaeger:4317", config.Observability.TracingEndpoint)
	assert.Equal(t, "debug", config.Observability.LogLevel)
	assert.False(t, config.Observability.EnableMetrics)
}

func TestLoadComposerConfig_UnknownProvider(t *testing.T) {
	clearComposerEnvVars(t)
	setEnv(t, "COMPOSER_PROVIDER", "bard")

	_, err := LoadComposerConfig()
	assert.Error(t, err)
	assert.Contains(t, err.Error(), "COMPOSER_PROVIDER must be one of claude, openai, none")
}

func TestComposerConfig_Validate_InvalidGeneration(t *testing.T) {
	tests := []struct {
		name        string
		modifyFn    func(*ComposerConfig)
		expectedErr string
	}{
		{
			name: "zero max tokens",
			modifyFn: func(c *ComposerConfig) {
				c.MaxTokens = 0
			},
			expectedErr: "COMPOSER_MAX_TOKENS must be between 1 and 8192",
		},
		{
			name: "max tokens exceeds limit",
			modifyFn: func(c *ComposerConfig) {
				c.MaxTokens = 100000
			},
			expectedErr: "COMPOSER_MAX_TOKENS must be between 1 and 8192",
		},
		{
			name: "negative temperature",
			modifyFn: func(c *ComposerConfig) {
				c.Temperature = -0.1
			},
			expectedErr: "COMPOSER_TEMPERATURE must be between 0.0 and 2.0",
		},
		{
			name: "temperature above 2",
			modifyFn: func(c *ComposerConfig) {
				c.Temperature = 2.5
			},
			expectedErr: "COMPOSER_TEMPERATURE must be between 0.0 and 2.0",
		},
		{
			name: "zero request timeout",
			modifyFn: func(c *ComposerConfig) {
				c.RequestTimeout = 0
			},
			expectedErr: "COMPOSER_REQUEST_TIMEOUT must be positive",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			config := validComposerConfig()
			tt.modifyFn(config)

			err := config.Validate()
			assert.Error(t, err)
			assert.Contains(t, err.Error(), tt.expectedErr)
		})
	}
}

func TestComposerConfig_Validate_InvalidStyle(t *testing.T) {
	tests := []struct {
		name        string
		modifyFn    func(*ComposerConfig)
		expectedErr string
	}{
		{
			name: "empty tone",
			modifyFn: func(c *ComposerConfig) {
				c.Style.Tone = ""
			},
			expectedErr: "COMPOSER_TONE cannot be empty",
		},
		{
			name: "negative max hashtags",
			modifyFn: func(c *ComposerConfig) {
				c.Style.MaxHashtags = -1
			},
			expectedErr: "COMPOSER_MAX_HASHTAGS must be between 0 and 10",
		},
		{
			name: "max hashtags exceeds 10",
			modifyFn: func(c *ComposerConfig) {
				c.Style.MaxHashtags = 20
			},
			expectedErr: "COMPOSER_MAX_HASHTAGS must be between 0 and 10",
		},
		{
			name: "post length below minimum",
			modifyFn: func(c *ComposerConfig) {
				c.Style.MaxPostRunes = 20
			},
			expectedErr: "COMPOSER_MAX_POST_RUNES must be between 50 and 5000",
		},
		{
			name: "post length above maximum",
			modifyFn: func(c *ComposerConfig) {
				c.Style.MaxPostRunes = 10000
			},
			expectedErr: "COMPOSER_MAX_POST_RUNES must be between 50 and 5000",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			config := validComposerConfig()
			tt.modifyFn(config)

			err := config.Validate()
			assert.Error(t, err)
			assert.Contains(t, err.Error(), tt.expectedErr)
		})
	}
}

func TestComposerConfig_Validate_InvalidCircuitBreaker(t *testing.T) {
	tests := []struct {
		name        string
		modifyFn    func(*ComposerConfig)
		expectedErr string
	}{
		{
			name: "zero max requests",
			modifyFn: func(c *ComposerConfig) {
				c.CircuitBreaker.MaxRequests = 0
			},
			expectedErr: "COMPOSER_CB_MAX_REQUESTS must be positive",
		},
		{
			name: "zero interval",
			modifyFn: func(c *ComposerConfig) {
				c.CircuitBreaker.Interval = 0
			},
			expectedErr: "COMPOSER_CB_INTERVAL must be positive",
		},
		{
			name: "negative timeout",
			modifyFn: func(c *ComposerConfig) {
				c.CircuitBreaker.Timeout = -1 * time.Second
			},
			expectedErr: "COMPOSER_CB_TIMEOUT must be positive",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			config := validComposerConfig()
			tt.modifyFn(config)

			err := config.Validate()
			assert.Error(t, err)
			assert.Contains(t, err.Error(), tt.expectedErr)
		})
	}
}

func TestGetEnvHelpers(t *testing.T) {
	t.Run("getEnvOrDefault with value", func(t *testing.T) {
		setEnv(t, "TEST_VAR", "custom-value")
		assert.Equal(t, "custom-value", getEnvOrDefault("TEST_VAR", "default"))
	})

	t.Run("getEnvOrDefault with default", func(t *testing.T) {
		if err := os.Unsetenv("TEST_VAR_MISSING"); err != nil {
			t.Fatalf("failed to unset env: %v", err)
		}
		assert.Equal(t, "default", getEnvOrDefault("TEST_VAR_MISSING", "default"))
	})

	t.Run("getEnvBool true", func(t *testing.T) {
		setEnv(t, "TEST_BOOL", "true")
		assert.True(t, getEnvBool("TEST_BOOL", false))
	})

	t.Run("getEnvBool false", func(t *testing.T) {
		setEnv(t, "TEST_BOOL", "false")
		assert.False(t, getEnvBool("TEST_BOOL", true))
	})

	t.Run("getEnvBool invalid defaults to default", func(t *testing.T) {
		setEnv(t, "TEST_BOOL", "invalid")
		assert.True(t, getEnvBool("TEST_BOOL", true))
	})

	t.Run("getEnvInt with value", func(t *testing.T) {
		setEnv(t, "TEST_INT", "42")
		assert.Equal(t, 42, getEnvInt("TEST_INT", 10))
	})

	t.Run("getEnvInt invalid defaults to default", func(t *testing.T) {
		setEnv(t, "TEST_INT", "invalid")
		assert.Equal(t, 10, getEnvInt("TEST_INT", 10))
	})

	t.Run("getEnvFloat with value", func(t *testing.T) {
		setEnv(t, "TEST_FLOAT", "3.14")
		assert.InDelta(t, 3.14, getEnvFloat("TEST_FLOAT", 1.0), 0.001)
	})

	t.Run("getEnvFloat invalid defaults to default", func(t *testing.T) {
		setEnv(t, "TEST_FLOAT", "invalid")
		assert.InDelta(t, 1.0, getEnvFloat("TEST_FLOAT", 1.0), 0.001)
	})

	t.Run("getEnvDuration with value", func(t *testing.T) {
		setEnv(t, "TEST_DURATION", "45s")
		assert.Equal(t, 45*time.Second, getEnvDuration("TEST_DURATION", 30*time.Second))
	})

	t.Run("getEnvDuration invalid defaults to default", func(t *testing.T) {
		setEnv(t, "TEST_DURATION", "invalid")
		assert.Equal(t, 30*time.Second, getEnvDuration("TEST_DURATION", 30*time.Second))
	})
}

// Helper functions

func clearComposerEnvVars(t *testing.T) {
	t.Helper()
	envVars := []string{
		"COMPOSER_PROVIDER",
		"COMPOSER_MODEL",
		"COMPOSER_MAX_TOKENS",
		"COMPOSER_TEMPERATURE",
		"COMPOSER_REQUEST_TIMEOUT",
		"COMPOSER_TONE",
		"COMPOSER_HASHTAGS_ENABLED",
		"COMPOSER_MAX_HASHTAGS",
		"COMPOSER_MAX_POST_RUNES",
		"COMPOSER_CB_MAX_REQUESTS",
		"COMPOSER_CB_INTERVAL",
		"COMPOSER_CB_TIMEOUT",
		"COMPOSER_TRACING_ENABLED",
		"COMPOSER_TRACING_ENDPOINT",
		"COMPOSER_LOG_LEVEL",
		"COMPOSER_METRICS_ENABLED",
	}
	for _, key := range envVars {
		_ = os.Unsetenv(key) // Ignore error in cleanup
	}
}

func setEnv(t *testing.T, key, value string) {
	t.Helper()
	t.Cleanup(func() {
		_ = os.Unsetenv(key) // Ignore error in cleanup
	})
	if err := os.Setenv(key, value); err != nil {
		t.Fatalf("failed to set env %s: %v", key, err)
	}
}

func validComposerConfig() *ComposerConfig {
	return &ComposerConfig{
		Provider:       "claude",
		Model:          "claude-sonnet-4-20250514",
		MaxTokens:      1024,
		Temperature:    0.7,
		RequestTimeout: 60 * time.Second,
		Style: StyleConfig{
			Tone:            "neutral",
			IncludeHashtags: true,
			MaxHashtags:     3,
			MaxPostRunes:    500,
		},
		CircuitBreaker: CircuitBreakerConfig{
			MaxRequests: 3,
			Interval:    10 * time.Second,
			Timeout:     30 * time.Second,
		},
		Observability: ObservabilityConfig{
			EnableTracing:   false,
			TracingEndpoint: "localhost:4317",
			LogLevel:        "info",
			EnableMetrics:   true,
		},
	}
}
