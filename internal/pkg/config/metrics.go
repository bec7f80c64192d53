package config

import (
	"fmt"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// ConfigMetrics provides parameterized Prometheus metrics for configuration
// management. The factory creates one standard set of metrics per component
// (watcher, chainrpc, composer) so configuration health is observable the
// same way everywhere.
//
// Metrics generated (parameterized by component name):
//   - {component}_config_load_timestamp: Unix timestamp of last configuration load
//   - {component}_config_validation_errors_total: Total validation errors by field
//   - {component}_config_fallbacks_total: Total fallback operations by field
//   - {component}_config_fallback_active: 1 if any fallback active, 0 otherwise
//
// Example usage:
//
//	metrics := config.NewConfigMetrics("watcher")
//
//	metrics.RecordLoadTimestamp()
//	metrics.RecordValidationError("watch_schedule")
//	metrics.RecordFallback("timezone", "default")
//	metrics.SetFallbackActive("timezone", true)
type ConfigMetrics struct {
	// LoadTimestamp records the Unix timestamp of the last configuration load.
	// Type: Gauge
	// Usage: Set to the current time whenever configuration is loaded
	LoadTimestamp prometheus.Gauge

	// ValidationErrorsTotal counts configuration validation errors by field.
	// Type: Counter
	// Labels: field (e.g., "watch_schedule", "timezone", "cycle_timeout")
	ValidationErrorsTotal *prometheus.CounterVec

	// FallbacksTotal counts fallback operations by field.
	// Type: Counter
	// Labels: field (e.g., "watch_schedule", "timezone", "cycle_timeout")
	FallbacksTotal *prometheus.CounterVec

	// FallbackActive indicates whether any fallback is currently active.
	// Type: Gauge
	// Values: 1 (at least one field fell back), 0 (all fields valid)
	FallbackActive prometheus.Gauge

	componentName string
}

// NewConfigMetrics creates a ConfigMetrics instance with component-specific
// metric names. The component name prefixes every metric so different
// components never collide in the shared registry.
//
// Example:
//
//	watcherMetrics := config.NewConfigMetrics("watcher")
//	// Creates: watcher_config_load_timestamp, watcher_config_validation_errors_total, etc.
//
//	rpcMetrics := config.NewConfigMetrics("chainrpc")
//	// Creates: chainrpc_config_load_timestamp, chainrpc_config_validation_errors_total, etc.
//
// Note: Metrics are registered with the Prometheus default registry via
// promauto. Registering the same component name twice panics, so each
// component must construct its metrics exactly once.
func NewConfigMetrics(componentName string) *ConfigMetrics {
	return &ConfigMetrics{
		LoadTimestamp: promauto.NewGauge(prometheus.GaugeOpts{
			Name: fmt.Sprintf("%s_config_load_timestamp", componentName),
			Help: fmt.Sprintf("Unix timestamp of last %s configuration load", componentName),
		}),

		ValidationErrorsTotal: promauto.NewCounterVec(prometheus.CounterOpts{
			Name: fmt.Sprintf("%s_config_validation_errors_total", componentName),
			Help: fmt.Sprintf("Total number of %s configuration validation errors", componentName),
		}, []string{"field"}),

		FallbacksTotal: promauto.NewCounterVec(prometheus.CounterOpts{
			Name: fmt.Sprintf("%s_config_fallbacks_total", componentName),
			Help: fmt.Sprintf("Total number of %s configuration fallback operations", componentName),
		}, []string{"field"}),

		FallbackActive: promauto.NewGauge(prometheus.GaugeOpts{
			Name: fmt.Sprintf("%s_config_fallback_active", componentName),
			Help: fmt.Sprintf("1 if any %s configuration fallback is active, 0 otherwise", componentName),
		}),

		componentName: componentName,
	}
}

// RecordLoadTimestamp records the current time as the configuration load
// timestamp. Call whenever configuration is loaded or reloaded.
func (m *ConfigMetrics) RecordLoadTimestamp() {
	m.LoadTimestamp.SetToCurrentTime()
}

// RecordValidationError increments the validation error counter for a
// specific field. Call whenever a configuration value fails validation.
//
// Example:
//
//	if err := ValidateCronSchedule(schedule); err != nil {
//	    metrics.RecordValidationError("watch_schedule")
//	}
func (m *ConfigMetrics) RecordValidationError(field string) {
	m.ValidationErrorsTotal.WithLabelValues(field).Inc()
}

// RecordFallback increments the fallback counter for a specific field.
// Call whenever a fallback value is substituted for an invalid one.
//
// The fallbackType parameter ("default", "safe_value") is accepted for
// call-site readability; only the field is used as a label.
func (m *ConfigMetrics) RecordFallback(field, fallbackType string) {
	m.FallbacksTotal.WithLabelValues(field).Inc()
}

// SetFallbackActive sets the fallback active gauge. Set true if any
// configuration field is running on a fallback value, false once all
// fields hold their configured values.
//
// Example:
//
//	if result.FallbackApplied {
//	    metrics.SetFallbackActive("watch_schedule", true)
//	}
func (m *ConfigMetrics) SetFallbackActive(field string, active bool) {
	if active {
		m.FallbackActive.Set(1)
	} else {
		m.FallbackActive.Set(0)
	}
}
