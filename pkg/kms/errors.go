package kms

import "errors"

var (
	// ErrInvalidKeyID indicates an id that fails format validation. It is
	// rejected before any store lookup.
	ErrInvalidKeyID = errors.New("kms: invalid key id")

	// ErrKeyNotFound indicates an unknown or expired key id.
	ErrKeyNotFound = errors.New("kms: key not found")

	// ErrInvalidKeyMaterial indicates key material of the wrong size.
	ErrInvalidKeyMaterial = errors.New("kms: invalid key material")

	// ErrStoreAttemptsExceeded indicates the bounded id-generation retry
	// budget ran out. This is a fatal configuration error, never retried
	// silently.
	ErrStoreAttemptsExceeded = errors.New("kms: too many attempts to store a key")

	// ErrStoreFailure wraps backing-store failures.
	ErrStoreFailure = errors.New("kms: store failure")
)
