package explorer

import (
	"fmt"
	"net/url"
	"os"
	"strconv"
	"time"
)

// Config holds the configuration for the block explorer scraper.
//
// Reliability settings:
//   - Timeout: Prevents a slow explorer page from blocking the watch cycle
//   - MaxBodySize: Prevents memory exhaustion from oversized pages
type Config struct {
	// BaseURL of the explorer website. Address pages are fetched from
	// BaseURL + "/address/" + address.
	// Default: https://etherscan.io
	BaseURL string

	// Timeout is the maximum duration for a single page fetch.
	// Default: 10s
	Timeout time.Duration

	// MaxBodySize is the maximum HTML size in bytes read from the
	// explorer. The rest of the page is ignored.
	// Default: 10485760 (10MB)
	MaxBodySize int64

	// NameSelector optionally locates the contract name on the page via a
	// CSS selector. When empty or when the selector matches nothing, the
	// name is parsed from the document title instead.
	// Default: "" (title parsing)
	NameSelector string

	// TagSelector optionally locates a public label for the address, such
	// as "Exchange" or "DEX". Empty disables tag extraction.
	// Default: ""
	TagSelector string
}

// DefaultConfig returns defaults for the public Etherscan website.
func DefaultConfig() Config {
	return Config{
		BaseURL:     "https://etherscan.io",
		Timeout:     10 * time.Second,
		MaxBodySize: 10 * 1024 * 1024, // 10MB
	}
}

// Validate checks that the configuration values are usable.
//
// Validation rules:
//   - BaseURL: non-empty http or https URL
//   - Timeout: > 0
//   - MaxBodySize: 1KB-100MB
func (c *Config) Validate() error {
	if c.BaseURL == "" {
		return fmt.Errorf("base URL must not be empty")
	}
	parsed, err := url.Parse(c.BaseURL)
	if err != nil {
		return fmt.Errorf("base URL is not a valid URL: %w", err)
	}
	if parsed.Scheme != "http" && parsed.Scheme != "https" {
		return fmt.Errorf("base URL scheme must be http or https, got %q", parsed.Scheme)
	}

	if c.Timeout <= 0 {
		return fmt.Errorf("timeout must be positive, got %v", c.Timeout)
	}

	minBodySize := int64(1024)              // 1KB
	maxBodySize := int64(100 * 1024 * 1024) // 100MB
	if c.MaxBodySize < minBodySize || c.MaxBodySize > maxBodySize {
		return fmt.Errorf("max body size must be between %d and %d bytes, got %d", minBodySize, maxBodySize, c.MaxBodySize)
	}

	return nil
}

// LoadConfigFromEnv loads configuration from environment variables. Unset
// variables keep their defaults; set but unparseable variables are an
// error.
//
// Environment variables:
//   - EXPLORER_BASE_URL: explorer website URL (default: https://etherscan.io)
//   - EXPLORER_TIMEOUT: duration string, e.g. "10s" (default: 10s)
//   - EXPLORER_MAX_BODY_SIZE: integer in bytes (default: 10485760)
//   - EXPLORER_NAME_SELECTOR: CSS selector for the contract name (default: unset)
//   - EXPLORER_TAG_SELECTOR: CSS selector for the address label (default: unset)
func LoadConfigFromEnv() (Config, error) {
	cfg := DefaultConfig()

	if val := os.Getenv("EXPLORER_BASE_URL"); val != "" {
		cfg.BaseURL = val
	}

	if val := os.Getenv("EXPLORER_TIMEOUT"); val != "" {
		parsed, err := time.ParseDuration(val)
		if err != nil {
			return cfg, fmt.Errorf("invalid EXPLORER_TIMEOUT: %v (expected format: '10s', '1m')", err)
		}
		cfg.Timeout = parsed
	}

	if val := os.Getenv("EXPLORER_MAX_BODY_SIZE"); val != "" {
		parsed, err := strconv.ParseInt(val, 10, 64)
		if err != nil {
			return cfg, fmt.Errorf("invalid EXPLORER_MAX_BODY_SIZE: %v", err)
		}
		cfg.MaxBodySize = parsed
	}

	if val := os.Getenv("EXPLORER_NAME_SELECTOR"); val != "" {
		cfg.NameSelector = val
	}

	if val := os.Getenv("EXPLORER_TAG_SELECTOR"); val != "" {
		cfg.TagSelector = val
	}

	if err := cfg.Validate(); err != nil {
		return cfg, fmt.Errorf("configuration validation failed: %w", err)
	}

	return cfg, nil
}
