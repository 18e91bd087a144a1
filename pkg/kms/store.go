package kms

import (
	"context"
	"time"
)

// Entry is a wrapping key with its two lifecycle deadlines. New envelopes
// must not be created against a key past RotateAt; existing envelopes stay
// decryptable until ExpiresAt.
type Entry struct {
	Key       []byte
	RotateAt  time.Time
	ExpiresAt time.Time
}

// Store is the persistence contract behind a KMS instance. The in-memory
// implementation is single-instance only; multi-instance deployments swap
// in the redis implementation behind the same contract.
type Store interface {
	// Put stores a new entry under id. It reports false when the id is
	// already taken, leaving the existing entry untouched.
	Put(ctx context.Context, id string, e Entry) (bool, error)

	// Get returns the entry for id if present. Expiry is enforced by the
	// KMS on top; implementations may additionally evict on their own.
	Get(ctx context.Context, id string) (Entry, bool, error)

	// Delete removes an entry. Deleting an absent id is not an error.
	Delete(ctx context.Context, id string) error

	// Current returns the live entry with the earliest expiry, sweeping
	// entries expired as of now.
	Current(ctx context.Context, now time.Time) (string, Entry, bool, error)
}
