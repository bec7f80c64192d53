package config

import (
	"fmt"
	"time"
)

// ValidatePositiveDuration reports an error unless d is greater than
// zero. Timeouts, TTLs, and windows all need a strictly positive value.
//
// Example:
//
//	if err := ValidatePositiveDuration(timeout); err != nil {
//	    return fmt.Errorf("invalid timeout: %w", err)
//	}
func ValidatePositiveDuration(d time.Duration) error {
	if d <= 0 {
		return fmt.Errorf("duration must be positive, got %v", d)
	}
	return nil
}

// ValidateDurationRange reports an error unless min <= d <= max.
//
// Example:
//
//	if err := ValidateDurationRange(interval, 1*time.Second, 1*time.Hour); err != nil {
//	    return fmt.Errorf("invalid sweep interval: %w", err)
//	}
func ValidateDurationRange(d, min, max time.Duration) error {
	if min > max {
		return fmt.Errorf("invalid range: min (%v) cannot be greater than max (%v)", min, max)
	}

	if d < min {
		return fmt.Errorf("duration %v is below minimum %v", d, min)
	}

	if d > max {
		return fmt.Errorf("duration %v exceeds maximum %v", d, max)
	}

	return nil
}

// ValidateNonNegativeDuration reports an error when d is negative.
// Intervals where zero means "disabled" validate with this instead of
// ValidatePositiveDuration.
//
// Example:
//
//	if err := ValidateNonNegativeDuration(probeInterval); err != nil {
//	    return fmt.Errorf("invalid probe interval: %w", err)
//	}
func ValidateNonNegativeDuration(d time.Duration) error {
	if d < 0 {
		return fmt.Errorf("duration must be non-negative, got %v", d)
	}
	return nil
}
