package config

import (
	"fmt"
	"time"

	"github.com/robfig/cron/v3"
)

// ValidateCronSchedule validates a cron expression using the robfig/cron/v3
// parser, the same parser the watcher's scheduler uses. A schedule that
// passes here is guaranteed to be accepted by the scheduler.
//
// The expression must follow the standard five-field cron format:
//   - "minute hour day month weekday"
//   - Example: "*/5 * * * *" (every 5 minutes)
//   - Example: "0 * * * *" (top of every hour)
//   - Example: "30 9 * * 1-5" (weekdays at 9:30)
//
// Parameters:
//   - schedule: Cron expression to validate
//
// Returns:
//   - error: nil if valid, descriptive error otherwise
//
// Example:
//
//	err := ValidateCronSchedule("*/5 * * * *")
//	if err != nil {
//	    log.Error("Invalid watch schedule: %v", err)
//	}
//
// Validation tool: https://crontab.guru/
func ValidateCronSchedule(schedule string) error {
	if schedule == "" {
		return fmt.Errorf("invalid cron schedule: cannot be empty")
	}

	parser := cron.NewParser(cron.Minute | cron.Hour | cron.Dom | cron.Month | cron.Dow)
	_, err := parser.Parse(schedule)
	if err != nil {
		return fmt.Errorf("invalid cron schedule '%s': %w", schedule, err)
	}

	return nil
}

// ValidateTimezone validates a timezone string by attempting to load it
// with time.LoadLocation.
//
// The timezone must be a valid IANA timezone name:
//   - Example: "UTC"
//   - Example: "America/New_York"
//   - Example: "Europe/London"
//
// Loading depends on timezone data being available on the system; a valid
// name can still fail in a container image without the tzdata package.
//
// Parameters:
//   - timezone: IANA timezone name to validate
//
// Returns:
//   - error: nil if valid and loadable, descriptive error otherwise
//
// Common issues:
//   - Missing tzdata package in the container image
//   - Typo in the timezone name
//   - Using a UTC offset instead of an IANA nameable ("+09:00" instead of "Asia/Tokyo")
//
// Timezone database: https://www.iana.org/time-zones
func ValidateTimezone(timezone string) error {
	if timezone == "" {
		return fmt.Errorf("invalid timezone: cannot be empty")
	}

	_, err := time.LoadLocation(timezone)
	if err != nil {
		return fmt.Errorf("invalid timezone '%s': %w", timezone, err)
	}

	return nil
}

// ValidateDuration validates that a duration is within a range, bounds
// inclusive. Error messages include the actual value and the valid range.
//
// Example:
//
//	// Watch cycle timeout between 10s and 30m
//	err := ValidateDuration(2*time.Minute, 10*time.Second, 30*time.Minute)
//	if err != nil {
//	    log.Error("Invalid cycle timeout: %v", err)
//	}
func ValidateDuration(duration, min, max time.Duration) error {
	if min > max {
		return fmt.Errorf("invalid range: min (%v) cannot be greater than max (%v)", min, max)
	}

	if duration < min {
		return fmt.Errorf("duration %v is below minimum %v", duration, min)
	}

	if duration > max {
		return fmt.Errorf("duration %v exceeds maximum %v", duration, max)
	}

	return nil
}

// ValidateIntRange validates that an integer value is within a range,
// bounds inclusive. Error messages include the actual value and the valid
// range.
//
// Example:
//
//	// Concurrent fetches between 1 and 50
//	err := ValidateIntRange(3, 1, 50)
//	if err != nil {
//	    log.Error("Invalid concurrency: %v", err)
//	}
//
// Use cases:
//   - Concurrency limits (e.g., 1-50 parallel fetches)
//   - Port numbers (e.g., 1024-65535)
//   - Retry attempts (e.g., 0-10)
func ValidateIntRange(value, min, max int) error {
	if min > max {
		return fmt.Errorf("invalid range: min (%d) cannot be greater than max (%d)", min, max)
	}

	if value < min {
		return fmt.Errorf("value %d is below minimum %d", value, min)
	}

	if value > max {
		return fmt.Errorf("value %d exceeds maximum %d", value, max)
	}

	return nil
}

// ValidatePositiveDuration validates that a duration is strictly positive.
// This is the common validation for timeouts, delays, and TTLs where zero
// would mean disabled or infinite.
//
// Example:
//
//	err := ValidatePositiveDuration(2 * time.Minute)
//	if err != nil {
//	    log.Error("Invalid timeout: %v", err)
//	}
func ValidatePositiveDuration(duration time.Duration) error {
	if duration <= 0 {
		return fmt.Errorf("duration must be positive, got %v", duration)
	}

	return nil
}
