// Package logging provides structured logging utilities.
//
// This package wraps the standard library's log/slog package with helper functions
// for the logging configuration shared by every binary.
//
// Key features:
//   - JSON and text output formats
//   - Configurable log levels via LOG_LEVEL
//
// Example usage:
//
//	import "chainpulse/internal/observability/logging"
//
//	func main() {
//	    logger := logging.NewLogger()
//	    slog.SetDefault(logger)
//	    logger.Info("watcher started", slog.String("version", "1.0"))
//	}
package logging
