package chainrpc

import (
	"fmt"
	"net/url"
	"os"
	"strconv"
	"time"
)

// Config holds the configuration for the chain JSON-RPC client.
//
// Reliability settings:
//   - Timeout: Prevents a stalled provider from blocking the watch cycle
//   - MaxBodySize: Prevents memory exhaustion from oversized responses
//   - MaxBlockRange: Keeps eth_getLogs queries within provider limits
type Config struct {
	// Endpoint is the JSON-RPC HTTP(S) URL of the chain provider.
	// Default: http://localhost:8545
	Endpoint string

	// Timeout is the maximum duration for a single RPC request.
	// Should be well below the overall cycle timeout.
	// Default: 10s
	Timeout time.Duration

	// MaxBodySize is the maximum response body size in bytes. Responses
	// exceeding this limit are rejected during reading, not based on the
	// Content-Length header.
	// Default: 10485760 (10MB)
	MaxBodySize int64

	// MaxBlockRange is the widest fromBlock..toBlock span allowed for a
	// single log query. Most providers reject ranges beyond a few
	// thousand blocks, so requests are bounded here first.
	// Default: 2000
	MaxBlockRange uint64
}

// DefaultConfig returns defaults suitable for a local node or a hosted
// provider on its free tier.
func DefaultConfig() Config {
	return Config{
		Endpoint:      "http://localhost:8545",
		Timeout:       10 * time.Second,
		MaxBodySize:   10 * 1024 * 1024, // 10MB
		MaxBlockRange: 2000,
	}
}

// Validate checks that the configuration values are usable.
//
// Validation rules:
//   - Endpoint: non-empty http or https URL
//   - Timeout: > 0
//   - MaxBodySize: 1KB-100MB
//   - MaxBlockRange: 1-10000
func (c *Config) Validate() error {
	if c.Endpoint == "" {
		return fmt.Errorf("endpoint must not be empty")
	}
	parsed, err := url.Parse(c.Endpoint)
	if err != nil {
		return fmt.Errorf("endpoint is not a valid URL: %w", err)
	}
	if parsed.Scheme != "http" && parsed.Scheme != "https" {
		return fmt.Errorf("endpoint scheme must be http or https, got %q", parsed.Scheme)
	}

	if c.Timeout <= 0 {
		return fmt.Errorf("timeout must be positive, got %v", c.Timeout)
	}

	minBodySize := int64(1024)              // 1KB
	maxBodySize := int64(100 * 1024 * 1024) // 100MB
	if c.MaxBodySize < minBodySize || c.MaxBodySize > maxBodySize {
		return fmt.Errorf("max body size must be between %d and %d bytes, got %d", minBodySize, maxBodySize, c.MaxBodySize)
	}

	if c.MaxBlockRange < 1 || c.MaxBlockRange > 10000 {
		return fmt.Errorf("max block range must be between 1 and 10000, got %d", c.MaxBlockRange)
	}

	return nil
}

// LoadConfigFromEnv loads configuration from environment variables. Unset
// variables keep their defaults; set but unparseable variables are an
// error, since a half-applied RPC config is worse than failing startup.
//
// Environment variables:
//   - CHAIN_RPC_URL: provider URL (default: http://localhost:8545)
//   - CHAIN_RPC_TIMEOUT: duration string, e.g. "10s" (default: 10s)
//   - CHAIN_RPC_MAX_BODY_SIZE: integer in bytes (default: 10485760)
//   - CHAIN_RPC_MAX_BLOCK_RANGE: integer (default: 2000)
func LoadConfigFromEnv() (Config, error) {
	cfg := DefaultConfig()

	if val := os.Getenv("CHAIN_RPC_URL"); val != "" {
		cfg.Endpoint = val
	}

	if val := os.Getenv("CHAIN_RPC_TIMEOUT"); val != "" {
		parsed, err := time.ParseDuration(val)
		if err != nil {
			return cfg, fmt.Errorf("invalid CHAIN_RPC_TIMEOUT: %v (expected format: '10s', '1m')", err)
		}
		cfg.Timeout = parsed
	}

	if val := os.Getenv("CHAIN_RPC_MAX_BODY_SIZE"); val != "" {
		parsed, err := strconv.ParseInt(val, 10, 64)
		if err != nil {
			return cfg, fmt.Errorf("invalid CHAIN_RPC_MAX_BODY_SIZE: %v", err)
		}
		cfg.MaxBodySize = parsed
	}

	if val := os.Getenv("CHAIN_RPC_MAX_BLOCK_RANGE"); val != "" {
		parsed, err := strconv.ParseUint(val, 10, 64)
		if err != nil {
			return cfg, fmt.Errorf("invalid CHAIN_RPC_MAX_BLOCK_RANGE: %v", err)
		}
		cfg.MaxBlockRange = parsed
	}

	if err := cfg.Validate(); err != nil {
		return cfg, fmt.Errorf("configuration validation failed: %w", err)
	}

	return cfg, nil
}
