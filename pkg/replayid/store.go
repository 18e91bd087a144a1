package replayid

import (
	"context"
	"time"

	"github.com/dmitrymomot/cookieauth/pkg/randid"
)

// Size is the raw byte length of a replay id; Len its encoded length.
const Size = randid.DefaultSize

// Len is the base64url text length of a replay id.
var Len = randid.EncodedLen(Size)

// Store tracks single-use opaque identifiers with an expiry. Every
// comparison-bearing method verifies the exact previous expiry alongside
// the id: two requests racing on the same stale id must not both succeed,
// and a failed comparison means reject, not retry.
//
// The in-memory implementation relies on each method being a single
// non-suspending critical section; the redis implementation uses scripts
// for the same atomicity.
type Store interface {
	// Put stores id with its expiry. Reports false when the id exists.
	Put(ctx context.Context, id string, expiresAt time.Time) (bool, error)

	// Get returns the expiry recorded for id.
	Get(ctx context.Context, id string) (time.Time, bool, error)

	// CompareAndDelete removes id only when its recorded expiry matches
	// exactly. A stale-but-present id is evicted without success.
	CompareAndDelete(ctx context.Context, id string, expiresAt time.Time) (bool, error)

	// Delete removes id unconditionally. Reports whether it was present.
	Delete(ctx context.Context, id string) (bool, error)

	// Replace atomically consumes oldID (verified against expiresAt) and
	// stores newID under the same expiry.
	Replace(ctx context.Context, oldID string, expiresAt time.Time, newID string) (bool, error)

	// UpdateExpiry moves id's expiry from oldExpiresAt to newExpiresAt,
	// failing when the recorded expiry does not match.
	UpdateExpiry(ctx context.Context, id string, oldExpiresAt, newExpiresAt time.Time) (bool, error)
}

// maxAttempts bounds id rejection sampling on issue and rotate.
const maxAttempts = 3

// Issue generates a fresh id and stores it with the given expiry,
// retrying generation inside a fixed budget. The caller supplies the
// expiry so the id and the artifact it protects always share one value.
func Issue(ctx context.Context, store Store, expiresAt time.Time) (string, error) {
	for range maxAttempts {
		id, err := randid.NewString(Size)
		if err != nil {
			return "", err
		}
		ok, err := store.Put(ctx, id, expiresAt)
		if err != nil {
			return "", err
		}
		if ok {
			return id, nil
		}
	}
	return "", ErrTooManyAttempts
}

// Rotate consumes oldID and issues a replacement carrying the same expiry.
// An empty result with nil error means the presented id was stale, which
// callers treat as a replay signal.
func Rotate(ctx context.Context, store Store, oldID string, expiresAt time.Time) (string, error) {
	for range maxAttempts {
		newID, err := randid.NewString(Size)
		if err != nil {
			return "", err
		}
		if newID == oldID {
			continue
		}
		ok, err := store.Replace(ctx, oldID, expiresAt, newID)
		if err != nil {
			return "", err
		}
		if ok {
			return newID, nil
		}
		// Replace fails both on stale oldID and on newID collision;
		// distinguish by re-reading the old id.
		if _, present, err := store.Get(ctx, oldID); err != nil || !present {
			return "", err
		}
	}
	return "", ErrTooManyAttempts
}
