// Package resilience provides reliability and fault tolerance patterns for
// talking to rate-limited external services.
//
// The subpackages compose into one layer:
//   - ratelimit tracks per-endpoint quota state from response headers and
//     429 errors, and answers "should this call wait first?"
//   - retry runs operations with pre-emptive waits, server-directed
//     rate-limit retries, and a fail-soft best-effort variant
//   - cache is a TTL cache that lets repeated reads skip endpoint calls
//   - circuitbreaker fails fast when a dependency is hard down
//   - health gates scheduled work on a periodically probed verdict
//
// Usage Example:
//
//	tracker := ratelimit.NewTracker(ratelimit.TrackerConfig{})
//	ex := retry.New(tracker, cache.New(cache.Config{}), retry.DefaultConfig(), logger)
//	price, err := retry.Do(ctx, ex, "gas_price", fetchGasPrice)
package resilience
