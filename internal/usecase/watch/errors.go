// Package watch runs the periodic watch cycle: gate on chain health,
// gather a best-effort observation of the chain in parallel, enrich it
// with explorer metadata, compose post text, and publish it.
//
// The cycle is deliberately lossy at the edges: individual reads fail
// soft and the observation carries whatever survived them. Only an
// all-empty observation, a compose failure, or a publish failure fails
// the cycle. The cron wiring in cmd/worker translates the returned
// stats into metrics.
package watch

import "errors"

// Sentinel errors for watch cycle operations.
var (
	// ErrEmptyObservation indicates that every fetch in the cycle came
	// back with nothing. A live chain always has a non-zero block number,
	// so an all-empty observation means the dependency failed as a whole,
	// not that the chain was quiet.
	ErrEmptyObservation = errors.New("watch cycle observed nothing usable")

	// ErrInvalidPost indicates that the composed text failed platform
	// validation (empty, or over the character limit despite clamping).
	ErrInvalidPost = errors.New("composed post failed validation")
)
