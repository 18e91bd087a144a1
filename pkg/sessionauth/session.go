package sessionauth

import (
	"context"
	"encoding/base64"
	"time"

	"github.com/dmitrymomot/cookieauth/pkg/envelope"
	"github.com/dmitrymomot/cookieauth/pkg/randid"
)

// Session is a live login session. Account mutations are thin
// pass-throughs to the durable store keyed by the session id; each one
// fails with ErrNoRowsAffected when the identity no longer exists, so a
// revoked session can never keep operating quietly.
type Session struct {
	m           *Manager
	id          []byte
	idString    string
	fetchedAt   time.Time
	dekRotateAt time.Time
	env         envelopeRef
}

// ID returns the durable session identifier in its text form.
func (s *Session) ID() string {
	return s.idString
}

// FetchedAt returns the session's creation time. Zero until the first
// Save of a fresh session.
func (s *Session) FetchedAt() time.Time {
	return s.fetchedAt
}

// Save seals the session state into a cookie value and returns it with
// the cookie lifetime. The envelope is reused while its wrapping key is
// still current and its rotation date unreached; otherwise a fresh DEK
// is wrapped under the active key. FetchedAt is preserved verbatim
// across saves; LastSeenAt is refreshed to now.
func (s *Session) Save(ctx context.Context) (string, time.Duration, error) {
	now := s.m.now()

	reusable := s.env.dek != nil && !s.dekRotateAt.IsZero() && s.dekRotateAt.After(now)
	if reusable {
		currentID, err := s.m.keys.CurrentID(ctx)
		if err != nil {
			return "", 0, err
		}
		reusable = currentID == s.env.kekID
	}
	if !reusable {
		env, err := s.m.newEnvelope(ctx)
		if err != nil {
			return "", 0, err
		}
		s.env = env
		s.dekRotateAt = now.Add(s.m.cfg.MaxAge)
	}

	if s.fetchedAt.IsZero() {
		s.fetchedAt = now
	}
	rec := Record{
		ID:          s.idString,
		DEKRotateAt: s.dekRotateAt,
		FetchedAt:   s.fetchedAt,
		LastSeenAt:  now,
	}
	ciphertext, err := envelope.Encrypt(s.env.dek, encodeRecord(rec), nil)
	if err != nil {
		return "", 0, err
	}
	return envelope.Prefix(s.env.kekID, s.env.wrapped) + ciphertext, s.m.cfg.MaxAge, nil
}

// IsValid reports whether the durable identity still exists.
func (s *Session) IsValid(ctx context.Context) (bool, error) {
	return s.m.store.Exists(ctx, s.id)
}

// IsEmailTaken reports whether email is already claimed. When the
// session's own identity is gone it returns true alongside
// ErrNoRowsAffected, so callers cannot mistake a dead session for an
// available address.
func (s *Session) IsEmailTaken(ctx context.Context, email string) (bool, error) {
	taken, owned, err := s.m.store.IsEmailTaken(ctx, s.id, email)
	if err != nil {
		return true, err
	}
	if !owned {
		return true, ErrNoRowsAffected
	}
	return taken, nil
}

// UpdateDisplayName sets the account's display name.
func (s *Session) UpdateDisplayName(ctx context.Context, name string) error {
	return s.passThrough(s.m.store.UpdateDisplayName(ctx, s.id, name))
}

// UpdateEmail replaces the primary or backup address. Concurrent
// requests are safe: the store only touches rows still owned by this
// session id.
func (s *Session) UpdateEmail(ctx context.Context, email string, backup bool) error {
	return s.passThrough(s.m.store.UpdateEmail(ctx, s.id, email, backup))
}

// SwapEmails flips the primary and backup roles of the account's
// addresses.
func (s *Session) SwapEmails(ctx context.Context) error {
	return s.passThrough(s.m.store.SwapEmails(ctx, s.id))
}

// DeleteBackupEmail unlinks the backup address.
func (s *Session) DeleteBackupEmail(ctx context.Context) error {
	return s.passThrough(s.m.store.DeleteBackupEmail(ctx, s.id))
}

// DeleteAccount removes the user and every email it owns.
func (s *Session) DeleteAccount(ctx context.Context) error {
	return s.passThrough(s.m.store.DeleteAccount(ctx, s.id))
}

// RotateID moves the account to a fresh durable id and updates the
// cached id, so the session stays usable and savable afterwards.
func (s *Session) RotateID(ctx context.Context) error {
	newID, err := randid.New(IDSize)
	if err != nil {
		return err
	}
	if err := s.passThrough(s.m.store.RotateSessionID(ctx, s.id, newID)); err != nil {
		return err
	}
	s.id = newID
	s.idString = base64.RawURLEncoding.EncodeToString(newID)
	return nil
}

// Invalidate replaces the durable id without updating the cached one:
// every outstanding cookie, this session included, stops resolving.
func (s *Session) Invalidate(ctx context.Context) error {
	return s.passThrough(s.m.store.Invalidate(ctx, s.id))
}

func (s *Session) passThrough(affected int64, err error) error {
	if err != nil {
		return err
	}
	if affected == 0 {
		return ErrNoRowsAffected
	}
	return nil
}
