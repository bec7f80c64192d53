package worker

import (
	"bytes"
	"log/slog"
	"strings"
	"testing"
	"time"
)

func TestDefaultConfig(t *testing.T) {
	cfg := DefaultConfig()

	if cfg.CronSchedule != "*/5 * * * *" {
		t.Errorf("Expected CronSchedule '*/5 * * * *', got '%s'", cfg.CronSchedule)
	}

	if cfg.Timezone != "UTC" {
		t.Errorf("Expected Timezone 'UTC', got '%s'", cfg.Timezone)
	}

	if cfg.FetchMaxConcurrent != 3 {
		t.Errorf("Expected FetchMaxConcurrent 3, got %d", cfg.FetchMaxConcurrent)
	}

	if cfg.CycleTimeout != 2*time.Minute {
		t.Errorf("Expected CycleTimeout 2m, got %v", cfg.CycleTimeout)
	}

	if cfg.HealthPort != 9091 {
		t.Errorf("Expected HealthPort 9091, got %d", cfg.HealthPort)
	}

	if cfg.RunOnStart {
		t.Error("Expected RunOnStart false by default")
	}
}

func TestDefaultConfig_ReturnsFreshValue(t *testing.T) {
	cfg1 := DefaultConfig()
	cfg2 := DefaultConfig()

	cfg1.CronSchedule = "0 * * * *"
	cfg1.FetchMaxConcurrent = 20

	if cfg2.CronSchedule != "*/5 * * * *" {
		t.Error("DefaultConfig returned a shared instance instead of a new one")
	}

	if cfg2.FetchMaxConcurrent != 3 {
		t.Error("DefaultConfig returned a shared instance instead of a new one")
	}
}

func TestWatcherConfig_Validate_ValidConfig(t *testing.T) {
	cfg := DefaultConfig()

	if err := cfg.Validate(); err != nil {
		t.Errorf("DefaultConfig should be valid, got error: %v", err)
	}
}

func TestWatcherConfig_Validate_InvalidCronSchedule(t *testing.T) {
	for _, schedule := range []string{"invalid cron", ""} {
		cfg := DefaultConfig()
		cfg.CronSchedule = schedule

		if err := cfg.Validate(); err == nil {
			t.Errorf("Expected validation error for cron schedule %q", schedule)
		}
	}
}

func TestWatcherConfig_Validate_InvalidTimezone(t *testing.T) {
	for _, tz := range []string{"Invalid/Timezone", ""} {
		cfg := DefaultConfig()
		cfg.Timezone = tz

		if err := cfg.Validate(); err == nil {
			t.Errorf("Expected validation error for timezone %q", tz)
		}
	}
}

func TestWatcherConfig_Validate_FetchMaxConcurrentBoundary(t *testing.T) {
	tests := []struct {
		name  string
		value int
		valid bool
	}{
		{"Min valid (1)", 1, true},
		{"Max valid (50)", 50, true},
		{"Below min (0)", 0, false},
		{"Negative", -1, false},
		{"Above max (51)", 51, false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := DefaultConfig()
			cfg.FetchMaxConcurrent = tt.value

			err := cfg.Validate()
			if tt.valid && err != nil {
				t.Errorf("Expected valid config, got error: %v", err)
			}
			if !tt.valid && err == nil {
				t.Errorf("Expected validation error for value %d", tt.value)
			}
		})
	}
}

func TestWatcherConfig_Validate_CycleTimeout(t *testing.T) {
	tests := []struct {
		name     string
		duration time.Duration
		valid    bool
	}{
		{"1 second", 1 * time.Second, true},
		{"2 minutes", 2 * time.Minute, true},
		{"1 hour", 1 * time.Hour, true},
		{"Zero", 0, false},
		{"Negative", -1 * time.Minute, false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := DefaultConfig()
			cfg.CycleTimeout = tt.duration

			err := cfg.Validate()
			if tt.valid && err != nil {
				t.Errorf("Expected valid timeout %v, got error: %v", tt.duration, err)
			}
			if !tt.valid && err == nil {
				t.Errorf("Expected validation error for timeout %v", tt.duration)
			}
		})
	}
}

func TestWatcherConfig_Validate_HealthPortBoundary(t *testing.T) {
	tests := []struct {
		name  string
		port  int
		valid bool
	}{
		{"Min valid (1024)", 1024, true},
		{"Max valid (65535)", 65535, true},
		{"Below min (1023)", 1023, false},
		{"Above max (65536)", 65536, false},
		{"Zero", 0, false},
		{"Negative", -1, false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := DefaultConfig()
			cfg.HealthPort = tt.port

			err := cfg.Validate()
			if tt.valid && err != nil {
				t.Errorf("Expected valid port %d, got error: %v", tt.port, err)
			}
			if !tt.valid && err == nil {
				t.Errorf("Expected validation error for port %d", tt.port)
			}
		})
	}
}

func TestWatcherConfig_Validate_MultipleErrors(t *testing.T) {
	cfg := WatcherConfig{
		CronSchedule:       "invalid",
		Timezone:           "Invalid/Zone",
		FetchMaxConcurrent: 0,
		CycleTimeout:       0,
		HealthPort:         100,
	}

	err := cfg.Validate()
	if err == nil {
		t.Fatal("Expected validation errors for multiple invalid fields")
	}

	// All failures are aggregated into one error
	if !strings.Contains(err.Error(), "validation failed") {
		t.Errorf("Expected aggregated validation error, got: %v", err)
	}
	for _, fragment := range []string{"cron schedule", "timezone", "fetch max concurrent", "cycle timeout", "health port"} {
		if !strings.Contains(err.Error(), fragment) {
			t.Errorf("Expected error to mention %q, got: %v", fragment, err)
		}
	}
}

func TestWatcherConfig_Validate_ValidCustomConfig(t *testing.T) {
	cfg := WatcherConfig{
		CronSchedule:       "0 */6 * * *",
		Timezone:           "America/New_York",
		FetchMaxConcurrent: 20,
		CycleTimeout:       10 * time.Minute,
		HealthPort:         8080,
	}

	if err := cfg.Validate(); err != nil {
		t.Errorf("Expected valid custom config, got error: %v", err)
	}
}

// globalTestMetrics is a shared metrics instance for tests to avoid
// duplicate Prometheus registration panics. In production the metrics are
// created once at startup, so this mirrors that behavior.
var globalTestMetrics = NewWatcherMetrics()

// clearWatcherEnv blanks every watcher environment variable so a test
// starts from a clean environment. t.Setenv restores the originals.
func clearWatcherEnv(t *testing.T) {
	t.Helper()
	for _, key := range []string{
		"WATCH_SCHEDULE",
		"WATCHER_TIMEZONE",
		"FETCH_MAX_CONCURRENT",
		"CYCLE_TIMEOUT",
		"WATCHER_HEALTH_PORT",
		"WATCHER_RUN_ON_START",
	} {
		t.Setenv(key, "")
	}
}

func TestLoadConfigFromEnv_AllEnvVarsValid(t *testing.T) {
	clearWatcherEnv(t)
	t.Setenv("WATCH_SCHEDULE", "0 * * * *")
	t.Setenv("WATCHER_TIMEZONE", "Europe/London")
	t.Setenv("FETCH_MAX_CONCURRENT", "10")
	t.Setenv("CYCLE_TIMEOUT", "5m")
	t.Setenv("WATCHER_HEALTH_PORT", "8080")
	t.Setenv("WATCHER_RUN_ON_START", "true")

	var buf bytes.Buffer
	logger := slog.New(slog.NewJSONHandler(&buf, nil))

	cfg, err := LoadConfigFromEnv(logger, globalTestMetrics)

	if err != nil {
		t.Errorf("Expected no error, got: %v", err)
	}

	if cfg.CronSchedule != "0 * * * *" {
		t.Errorf("Expected CronSchedule '0 * * * *', got '%s'", cfg.CronSchedule)
	}
	if cfg.Timezone != "Europe/London" {
		t.Errorf("Expected Timezone 'Europe/London', got '%s'", cfg.Timezone)
	}
	if cfg.FetchMaxConcurrent != 10 {
		t.Errorf("Expected FetchMaxConcurrent 10, got %d", cfg.FetchMaxConcurrent)
	}
	if cfg.CycleTimeout != 5*time.Minute {
		t.Errorf("Expected CycleTimeout 5m, got %v", cfg.CycleTimeout)
	}
	if cfg.HealthPort != 8080 {
		t.Errorf("Expected HealthPort 8080, got %d", cfg.HealthPort)
	}
	if !cfg.RunOnStart {
		t.Error("Expected RunOnStart true")
	}

	// No warnings should be logged
	if buf.Len() > 0 {
		t.Errorf("Expected no warnings, got: %s", buf.String())
	}
}

func TestLoadConfigFromEnv_MissingEnvVars(t *testing.T) {
	clearWatcherEnv(t)

	var buf bytes.Buffer
	logger := slog.New(slog.NewJSONHandler(&buf, nil))

	cfg, err := LoadConfigFromEnv(logger, globalTestMetrics)

	if err != nil {
		t.Errorf("Expected no error, got: %v", err)
	}

	defaults := DefaultConfig()
	if cfg.CronSchedule != defaults.CronSchedule {
		t.Errorf("Expected default CronSchedule, got '%s'", cfg.CronSchedule)
	}
	if cfg.Timezone != defaults.Timezone {
		t.Errorf("Expected default Timezone, got '%s'", cfg.Timezone)
	}
	if cfg.FetchMaxConcurrent != defaults.FetchMaxConcurrent {
		t.Errorf("Expected default FetchMaxConcurrent, got %d", cfg.FetchMaxConcurrent)
	}
	if cfg.CycleTimeout != defaults.CycleTimeout {
		t.Errorf("Expected default CycleTimeout, got %v", cfg.CycleTimeout)
	}
	if cfg.HealthPort != defaults.HealthPort {
		t.Errorf("Expected default HealthPort, got %d", cfg.HealthPort)
	}

	// Missing env vars are not fallbacks, so no warnings
	if buf.Len() > 0 {
		t.Errorf("Expected no warnings, got: %s", buf.String())
	}
}

func TestLoadConfigFromEnv_InvalidSchedule(t *testing.T) {
	clearWatcherEnv(t)
	t.Setenv("WATCH_SCHEDULE", "invalid cron")

	var buf bytes.Buffer
	logger := slog.New(slog.NewJSONHandler(&buf, nil))

	cfg, err := LoadConfigFromEnv(logger, globalTestMetrics)

	if err != nil {
		t.Errorf("Expected no error, got: %v", err)
	}

	if cfg.CronSchedule != DefaultConfig().CronSchedule {
		t.Errorf("Expected default CronSchedule, got '%s'", cfg.CronSchedule)
	}

	logOutput := buf.String()
	if !strings.Contains(logOutput, "Configuration fallback applied") {
		t.Error("Expected fallback warning in logs")
	}
	if !strings.Contains(logOutput, "CronSchedule") {
		t.Error("Expected CronSchedule field in warning")
	}
}

func TestLoadConfigFromEnv_InvalidTimezone(t *testing.T) {
	clearWatcherEnv(t)
	t.Setenv("WATCHER_TIMEZONE", "Invalid/Timezone")

	var buf bytes.Buffer
	logger := slog.New(slog.NewJSONHandler(&buf, nil))

	cfg, err := LoadConfigFromEnv(logger, globalTestMetrics)

	if err != nil {
		t.Errorf("Expected no error, got: %v", err)
	}

	if cfg.Timezone != DefaultConfig().Timezone {
		t.Errorf("Expected default Timezone, got '%s'", cfg.Timezone)
	}

	logOutput := buf.String()
	if !strings.Contains(logOutput, "Configuration fallback applied") {
		t.Error("Expected fallback warning in logs")
	}
	if !strings.Contains(logOutput, "Timezone") {
		t.Error("Expected Timezone field in warning")
	}
}

func TestLoadConfigFromEnv_InvalidFetchMaxConcurrent(t *testing.T) {
	tests := []struct {
		name  string
		value string
	}{
		{"Zero", "0"},
		{"Negative", "-1"},
		{"Too high", "51"},
		{"Invalid format", "abc"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			clearWatcherEnv(t)
			t.Setenv("FETCH_MAX_CONCURRENT", tt.value)

			var buf bytes.Buffer
			logger := slog.New(slog.NewJSONHandler(&buf, nil))

			cfg, err := LoadConfigFromEnv(logger, globalTestMetrics)

			if err != nil {
				t.Errorf("Expected no error, got: %v", err)
			}

			if cfg.FetchMaxConcurrent != DefaultConfig().FetchMaxConcurrent {
				t.Errorf("Expected default FetchMaxConcurrent, got %d", cfg.FetchMaxConcurrent)
			}

			if !strings.Contains(buf.String(), "Configuration fallback applied") {
				t.Error("Expected fallback warning in logs")
			}
		})
	}
}

func TestLoadConfigFromEnv_InvalidCycleTimeout(t *testing.T) {
	tests := []struct {
		name  string
		value string
	}{
		{"Zero", "0"},
		{"Negative", "-1s"},
		{"Below load range", "5s"},
		{"Above load range", "1h"},
		{"Invalid format", "soon"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			clearWatcherEnv(t)
			t.Setenv("CYCLE_TIMEOUT", tt.value)

			var buf bytes.Buffer
			logger := slog.New(slog.NewJSONHandler(&buf, nil))

			cfg, err := LoadConfigFromEnv(logger, globalTestMetrics)

			if err != nil {
				t.Errorf("Expected no error, got: %v", err)
			}

			if cfg.CycleTimeout != DefaultConfig().CycleTimeout {
				t.Errorf("Expected default CycleTimeout, got %v", cfg.CycleTimeout)
			}

			if !strings.Contains(buf.String(), "Configuration fallback applied") {
				t.Error("Expected fallback warning in logs")
			}
		})
	}
}

func TestLoadConfigFromEnv_InvalidHealthPort(t *testing.T) {
	tests := []struct {
		name  string
		value string
	}{
		{"Too low", "1023"},
		{"Too high", "65536"},
		{"Zero", "0"},
		{"Negative", "-1"},
		{"Invalid format", "abc"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			clearWatcherEnv(t)
			t.Setenv("WATCHER_HEALTH_PORT", tt.value)

			var buf bytes.Buffer
			logger := slog.New(slog.NewJSONHandler(&buf, nil))

			cfg, err := LoadConfigFromEnv(logger, globalTestMetrics)

			if err != nil {
				t.Errorf("Expected no error, got: %v", err)
			}

			if cfg.HealthPort != DefaultConfig().HealthPort {
				t.Errorf("Expected default HealthPort, got %d", cfg.HealthPort)
			}

			if !strings.Contains(buf.String(), "Configuration fallback applied") {
				t.Error("Expected fallback warning in logs")
			}
		})
	}
}

func TestLoadConfigFromEnv_InvalidRunOnStart(t *testing.T) {
	clearWatcherEnv(t)
	t.Setenv("WATCHER_RUN_ON_START", "maybe")

	var buf bytes.Buffer
	logger := slog.New(slog.NewJSONHandler(&buf, nil))

	cfg, err := LoadConfigFromEnv(logger, globalTestMetrics)

	if err != nil {
		t.Errorf("Expected no error, got: %v", err)
	}

	if cfg.RunOnStart {
		t.Error("Expected default RunOnStart false")
	}

	if !strings.Contains(buf.String(), "Configuration fallback applied") {
		t.Error("Expected fallback warning in logs")
	}
}

func TestLoadConfigFromEnv_MultipleInvalidFields(t *testing.T) {
	clearWatcherEnv(t)
	t.Setenv("WATCH_SCHEDULE", "invalid")
	t.Setenv("WATCHER_TIMEZONE", "Invalid/Zone")
	t.Setenv("FETCH_MAX_CONCURRENT", "0")
	t.Setenv("CYCLE_TIMEOUT", "invalid")
	t.Setenv("WATCHER_HEALTH_PORT", "100")

	var buf bytes.Buffer
	logger := slog.New(slog.NewJSONHandler(&buf, nil))

	cfg, err := LoadConfigFromEnv(logger, globalTestMetrics)

	if err != nil {
		t.Errorf("Expected no error, got: %v", err)
	}

	defaults := DefaultConfig()
	if cfg.CronSchedule != defaults.CronSchedule {
		t.Errorf("Expected default CronSchedule, got '%s'", cfg.CronSchedule)
	}
	if cfg.Timezone != defaults.Timezone {
		t.Errorf("Expected default Timezone, got '%s'", cfg.Timezone)
	}
	if cfg.FetchMaxConcurrent != defaults.FetchMaxConcurrent {
		t.Errorf("Expected default FetchMaxConcurrent, got %d", cfg.FetchMaxConcurrent)
	}
	if cfg.CycleTimeout != defaults.CycleTimeout {
		t.Errorf("Expected default CycleTimeout, got %v", cfg.CycleTimeout)
	}
	if cfg.HealthPort != defaults.HealthPort {
		t.Errorf("Expected default HealthPort, got %d", cfg.HealthPort)
	}

	warningCount := strings.Count(buf.String(), "Configuration fallback applied")
	if warningCount != 5 {
		t.Errorf("Expected 5 warnings, got %d", warningCount)
	}
}

func TestLoadConfigFromEnv_PartiallyValid(t *testing.T) {
	clearWatcherEnv(t)
	t.Setenv("WATCH_SCHEDULE", "0 * * * *")       // Valid
	t.Setenv("WATCHER_TIMEZONE", "Invalid/Zone")  // Invalid
	t.Setenv("FETCH_MAX_CONCURRENT", "10")        // Valid
	t.Setenv("CYCLE_TIMEOUT", "invalid")          // Invalid
	t.Setenv("WATCHER_HEALTH_PORT", "8080")       // Valid

	var buf bytes.Buffer
	logger := slog.New(slog.NewJSONHandler(&buf, nil))

	cfg, err := LoadConfigFromEnv(logger, globalTestMetrics)

	if err != nil {
		t.Errorf("Expected no error, got: %v", err)
	}

	// Valid fields keep their environment values
	if cfg.CronSchedule != "0 * * * *" {
		t.Errorf("Expected CronSchedule '0 * * * *', got '%s'", cfg.CronSchedule)
	}
	if cfg.FetchMaxConcurrent != 10 {
		t.Errorf("Expected FetchMaxConcurrent 10, got %d", cfg.FetchMaxConcurrent)
	}
	if cfg.HealthPort != 8080 {
		t.Errorf("Expected HealthPort 8080, got %d", cfg.HealthPort)
	}

	// Invalid fields fall back to defaults
	if cfg.Timezone != DefaultConfig().Timezone {
		t.Errorf("Expected default Timezone, got '%s'", cfg.Timezone)
	}
	if cfg.CycleTimeout != DefaultConfig().CycleTimeout {
		t.Errorf("Expected default CycleTimeout, got %v", cfg.CycleTimeout)
	}

	warningCount := strings.Count(buf.String(), "Configuration fallback applied")
	if warningCount != 2 {
		t.Errorf("Expected 2 warnings, got %d", warningCount)
	}
}
