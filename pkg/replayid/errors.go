package replayid

import "errors"

var (
	// ErrTooManyAttempts indicates the bounded id-generation retry budget
	// ran out. Fatal, never silently retried further.
	ErrTooManyAttempts = errors.New("replayid: too many attempts to store an id")

	// ErrStoreFailure wraps backing-store failures.
	ErrStoreFailure = errors.New("replayid: store failure")
)
