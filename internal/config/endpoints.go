package config

import (
	"fmt"
	"os"
	"time"

	"gopkg.in/yaml.v3"
)

// EndpointsConfig represents per-endpoint resilience overrides loaded from YAML.
//
// Endpoint names are the logical keys used by the rate limit tracker
// ("gas_price", "block_number", "logs", "post", ...), not URLs.
type EndpointsConfig struct {
	Resilience ResilienceOverrides `yaml:"resilience"`
}

// ResilienceOverrides holds the defaults block and the per-endpoint list.
type ResilienceOverrides struct {
	Defaults  EndpointDefaults  `yaml:"defaults"`
	Endpoints []EndpointSetting `yaml:"endpoints"`
}

// EndpointDefaults applies to endpoints without an override entry.
type EndpointDefaults struct {
	SafetyMargin int    `yaml:"safety_margin"`
	CacheTTL     string `yaml:"cache_ttl"`
}

// EndpointSetting tunes a single endpoint.
// CacheTTL is a Go duration string ("2m", "30s"); empty keeps the default.
type EndpointSetting struct {
	Name         string `yaml:"name"`
	SafetyMargin int    `yaml:"safety_margin"`
	CacheTTL     string `yaml:"cache_ttl"`
}

// LoadEndpointsConfig loads per-endpoint resilience configuration from a YAML file.
// The path parameter is expected to come from a trusted source (command-line argument or hardcoded default).
func LoadEndpointsConfig(path string) (*EndpointsConfig, error) {
	// #nosec G304 -- path is provided by trusted source (CLI arg or config), not user input
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read config file: %w", err)
	}

	var config EndpointsConfig
	if err := yaml.Unmarshal(data, &config); err != nil {
		return nil, fmt.Errorf("failed to parse config: %w", err)
	}

	// Validate required fields
	if err := validateEndpointsConfig(&config); err != nil {
		return nil, fmt.Errorf("config validation failed: %w", err)
	}

	return &config, nil
}

// validateEndpointsConfig validates the loaded configuration.
func validateEndpointsConfig(config *EndpointsConfig) error {
	// Validate defaults block
	if config.Resilience.Defaults.SafetyMargin < 0 {
		return fmt.Errorf("defaults safety_margin must be non-negative")
	}

	if config.Resilience.Defaults.CacheTTL != "" {
		d, err := time.ParseDuration(config.Resilience.Defaults.CacheTTL)
		if err != nil {
			return fmt.Errorf("defaults cache_ttl is not a valid duration: %w", err)
		}
		if d <= 0 {
			return fmt.Errorf("defaults cache_ttl must be positive")
		}
	}

	// Validate per-endpoint entries
	seen := make(map[string]bool)
	for i, ep := range config.Resilience.Endpoints {
		if ep.Name == "" {
			return fmt.Errorf("endpoint %d: name is required", i)
		}
		if seen[ep.Name] {
			return fmt.Errorf("endpoint %q is listed twice", ep.Name)
		}
		seen[ep.Name] = true

		if ep.SafetyMargin < 0 {
			return fmt.Errorf("endpoint %q: safety_margin must be non-negative", ep.Name)
		}

		if ep.CacheTTL != "" {
			d, err := time.ParseDuration(ep.CacheTTL)
			if err != nil {
				return fmt.Errorf("endpoint %q: cache_ttl is not a valid duration: %w", ep.Name, err)
			}
			if d <= 0 {
				return fmt.Errorf("endpoint %q: cache_ttl must be positive", ep.Name)
			}
		}
	}

	return nil
}

// GetDefaultSafetyMargin returns the safety margin applied to endpoints
// without an override entry.
func (c *EndpointsConfig) GetDefaultSafetyMargin() int {
	return c.Resilience.Defaults.SafetyMargin
}

// GetDefaultCacheTTL returns the default cache TTL, or zero when unset.
func (c *EndpointsConfig) GetDefaultCacheTTL() time.Duration {
	if c.Resilience.Defaults.CacheTTL == "" {
		return 0
	}
	d, err := time.ParseDuration(c.Resilience.Defaults.CacheTTL)
	if err != nil {
		return 0
	}
	return d
}

// GetSafetyMargins returns the per-endpoint safety margin overrides,
// keyed by endpoint name. Entries without a safety_margin are omitted,
// so they keep the default; a margin cannot be overridden to zero.
func (c *EndpointsConfig) GetSafetyMargins() map[string]int {
	margins := make(map[string]int, len(c.Resilience.Endpoints))
	for _, ep := range c.Resilience.Endpoints {
		if ep.SafetyMargin <= 0 {
			continue
		}
		margins[ep.Name] = ep.SafetyMargin
	}
	return margins
}

// GetCacheTTLs returns the per-endpoint cache TTL overrides, keyed by
// endpoint name. Endpoints without a cache_ttl entry are omitted.
func (c *EndpointsConfig) GetCacheTTLs() map[string]time.Duration {
	ttls := make(map[string]time.Duration)
	for _, ep := range c.Resilience.Endpoints {
		if ep.CacheTTL == "" {
			continue
		}
		d, err := time.ParseDuration(ep.CacheTTL)
		if err != nil {
			continue
		}
		ttls[ep.Name] = d
	}
	return ttls
}
