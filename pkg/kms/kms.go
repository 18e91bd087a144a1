package kms

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/dmitrymomot/cookieauth/pkg/envelope"
	"github.com/dmitrymomot/cookieauth/pkg/randid"
)

const (
	// DefaultRotatePeriod is how long a key stays current before a fresh
	// one is generated. 90 days.
	DefaultRotatePeriod = 90 * 24 * time.Hour

	// maxStoreAttempts bounds id rejection sampling. Collisions on
	// 96-bit ids are negligible, so exhausting the budget signals a
	// broken store or entropy source rather than bad luck.
	maxStoreAttempts = 3
)

// KMS generates, indexes, rotates and expires symmetric wrapping keys.
// Each key carries two deadlines: RotateAt = now + rotate period, and
// ExpiresAt = RotateAt + the maximum artifact lifetime for this instance's
// purpose. A leaked key can therefore decrypt at most one
// artifact-lifetime's worth of live cookies past its rotation point.
type KMS struct {
	store        Store
	rotatePeriod time.Duration
	artifactAge  time.Duration
	name         string
	log          *slog.Logger
	now          func() time.Time
}

// Option configures a KMS instance.
type Option func(*KMS)

// WithName labels the instance in log output (e.g. "otp", "session").
func WithName(name string) Option {
	return func(k *KMS) { k.name = name }
}

// WithLogger sets the logger for rotation events.
func WithLogger(log *slog.Logger) Option {
	return func(k *KMS) {
		if log != nil {
			k.log = log
		}
	}
}

// WithRotatePeriod overrides the rotation cadence.
func WithRotatePeriod(d time.Duration) Option {
	return func(k *KMS) {
		if d > 0 {
			k.rotatePeriod = d
		}
	}
}

// WithClock overrides the time source. Intended for tests.
func WithClock(now func() time.Time) Option {
	return func(k *KMS) {
		if now != nil {
			k.now = now
		}
	}
}

// New creates a KMS instance over the given store. artifactAge is the
// maximum lifetime of the artifacts this instance protects (OTP max age or
// session max age); it extends every key's expiry past its rotation point.
func New(store Store, artifactAge time.Duration, opts ...Option) *KMS {
	k := &KMS{
		store:        store,
		rotatePeriod: DefaultRotatePeriod,
		artifactAge:  artifactAge,
		name:         "kms",
		log:          slog.Default(),
		now:          time.Now,
	}
	for _, opt := range opts {
		opt(k)
	}
	return k
}

// CurrentID returns the id of the active wrapping key, generating and
// storing a fresh key when none is live or the candidate is past its
// rotation deadline. Repeated calls within a rotation period return the
// same id.
func (k *KMS) CurrentID(ctx context.Context) (string, error) {
	now := k.now()
	id, e, ok, err := k.store.Current(ctx, now)
	if err != nil {
		return "", fmt.Errorf("%w: %v", ErrStoreFailure, err)
	}
	if !ok || !e.RotateAt.After(now) {
		return k.pushNewKey(ctx)
	}
	return id, nil
}

// Get returns the key material for id. Ids failing format validation are
// rejected before any lookup; unknown and expired ids both collapse to
// ErrKeyNotFound, with expired entries evicted as a side effect.
func (k *KMS) Get(ctx context.Context, id string) ([]byte, error) {
	if !randid.Valid(id, envelope.KEKIDLen) {
		return nil, ErrInvalidKeyID
	}
	e, ok, err := k.store.Get(ctx, id)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrStoreFailure, err)
	}
	if !ok {
		return nil, ErrKeyNotFound
	}
	if !e.ExpiresAt.After(k.now()) {
		_ = k.store.Delete(ctx, id)
		return nil, ErrKeyNotFound
	}
	return e.Key, nil
}

// GetDEK unwraps a data-encryption key under the wrapping key identified by
// id. Every failure mode (unknown key, malformed wrapped payload, failed
// authentication) surfaces as an error; no partial key material escapes.
func (k *KMS) GetDEK(ctx context.Context, id, wrappedDEK string) ([]byte, error) {
	kek, err := k.Get(ctx, id)
	if err != nil {
		return nil, err
	}
	return envelope.UnwrapDEK(wrappedDEK, kek)
}

// Store saves key material under a freshly generated id, retrying id
// generation at most maxStoreAttempts times before failing hard.
func (k *KMS) Store(ctx context.Context, key []byte) (string, error) {
	for range maxStoreAttempts {
		id, err := randid.NewString(envelope.KEKIDSize)
		if err != nil {
			return "", err
		}
		ok, err := k.StoreWithID(ctx, id, key)
		if err != nil {
			return "", err
		}
		if ok {
			return id, nil
		}
	}
	return "", fmt.Errorf("%w: %s", ErrStoreAttemptsExceeded, k.name)
}

// StoreWithID saves key material under a caller-chosen id. It reports
// false when the id is already taken.
func (k *KMS) StoreWithID(ctx context.Context, id string, key []byte) (bool, error) {
	if len(key) != envelope.KeySize {
		return false, ErrInvalidKeyMaterial
	}
	if !randid.Valid(id, envelope.KEKIDLen) {
		return false, ErrInvalidKeyID
	}
	rotateAt := k.now().Add(k.rotatePeriod)
	ok, err := k.store.Put(ctx, id, Entry{
		Key:       key,
		RotateAt:  rotateAt,
		ExpiresAt: rotateAt.Add(k.artifactAge),
	})
	if err != nil {
		return false, fmt.Errorf("%w: %v", ErrStoreFailure, err)
	}
	return ok, nil
}

// Rotate evicts the key identified by id. When id is the currently active
// key this is an emergency rotation: a replacement key is generated and
// stored before the suspect key is removed, so the store is never left
// empty. Returns the replacement id, or "" when no emergency rotation was
// triggered.
func (k *KMS) Rotate(ctx context.Context, id string) (string, error) {
	currentID, err := k.CurrentID(ctx)
	if err != nil {
		return "", err
	}

	newID := ""
	if id == currentID {
		k.log.WarnContext(ctx, "emergency rotation of the current wrapping key initiated",
			slog.String("kms", k.name), slog.String("kek_id", id))
		newID, err = k.pushNewKey(ctx)
		if err != nil {
			return "", err
		}
		k.log.InfoContext(ctx, "wrapping key rotation completed",
			slog.String("kms", k.name), slog.String("kek_id", id), slog.String("new_kek_id", newID))
	}

	if err := k.store.Delete(ctx, id); err != nil {
		return newID, fmt.Errorf("%w: %v", ErrStoreFailure, err)
	}
	return newID, nil
}

func (k *KMS) pushNewKey(ctx context.Context) (string, error) {
	key, err := envelope.NewKEK()
	if err != nil {
		return "", err
	}
	return k.Store(ctx, key)
}
