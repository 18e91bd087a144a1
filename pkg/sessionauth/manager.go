package sessionauth

import (
	"context"
	"encoding/base64"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/dmitrymomot/cookieauth/pkg/envelope"
	"github.com/dmitrymomot/cookieauth/pkg/kms"
	"github.com/dmitrymomot/cookieauth/pkg/logger"
	"github.com/dmitrymomot/cookieauth/pkg/randid"
)

// createAttempts bounds durable-id rejection sampling on user creation.
const createAttempts = 3

// Manager resolves session cookies into live sessions and starts new
// ones. It shares the envelope scheme with the OTP flow but keeps its
// own KMS instance, so compromising one key domain never touches the
// other.
type Manager struct {
	keys  *kms.KMS
	store Store
	cfg   Config
	log   *slog.Logger
	now   func() time.Time
}

// Option configures a Manager.
type Option func(*Manager)

// WithLogger sets the logger.
func WithLogger(log *slog.Logger) Option {
	return func(m *Manager) {
		if log != nil {
			m.log = log
		}
	}
}

// WithClock overrides the time source. Intended for tests.
func WithClock(now func() time.Time) Option {
	return func(m *Manager) {
		if now != nil {
			m.now = now
		}
	}
}

// NewManager creates the manager. keys must be a KMS instance whose
// artifact age matches cfg.MaxAge.
func NewManager(keys *kms.KMS, store Store, cfg Config, opts ...Option) (*Manager, error) {
	if keys == nil || store == nil {
		return nil, ErrMissingDependency
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	m := &Manager{
		keys:  keys,
		store: store,
		cfg:   cfg,
		log:   slog.Default(),
		now:   time.Now,
	}
	for _, opt := range opts {
		opt(m)
	}
	return m, nil
}

// GetSession resolves a cookie value into a live session.
//
// ErrNoSession covers the benign failures: no cookie, an evicted or
// unknown wrapping key, failed decryption, or an idle timeout; the
// caller clears the cookie. ErrTooSoon means the request landed inside
// the minimum inter-request interval and should be ignored without
// touching the cookie. ErrIntegrityViolation means validly decrypted
// content broke an invariant: the wrapping key is evicted and the
// durable identity invalidated best-effort before returning.
func (m *Manager) GetSession(ctx context.Context, cookie string) (*Session, error) {
	cookie = strings.TrimSpace(cookie)
	if cookie == "" {
		return nil, ErrNoSession
	}
	kekID, wrapped, ciphertext, err := envelope.ParsePrefix(cookie)
	if err != nil {
		return nil, ErrNoSession
	}
	dek, err := m.keys.GetDEK(ctx, kekID, wrapped)
	if err != nil {
		if errors.Is(err, kms.ErrStoreFailure) {
			return nil, err
		}
		return nil, ErrNoSession
	}
	plaintext, err := envelope.Decrypt(dek, ciphertext, nil)
	if err != nil {
		return nil, ErrNoSession
	}

	now := m.now()
	rec, err := decodeRecord(plaintext)
	if err == nil {
		err = rec.Validate(now, m.cfg.MaxAge)
	}
	if err != nil {
		m.violation(ctx, kekID, rec.ID)
		return nil, ErrIntegrityViolation
	}

	elapsed := now.Sub(rec.LastSeenAt)
	if elapsed < m.cfg.MinRequestInterval {
		return nil, ErrTooSoon
	}
	if elapsed >= m.cfg.MaxAge {
		return nil, ErrNoSession
	}

	rawID, err := randid.Decode(rec.ID)
	if err != nil {
		m.violation(ctx, kekID, rec.ID)
		return nil, ErrIntegrityViolation
	}
	return &Session{
		m:           m,
		id:          rawID,
		idString:    rec.ID,
		fetchedAt:   rec.FetchedAt,
		dekRotateAt: rec.DEKRotateAt,
		env:         envelopeRef{kekID: kekID, wrapped: wrapped, dek: dek},
	}, nil
}

// StartSession binds a verified credential to a durable identity:
// looking the user up by email, or creating user, email and link rows
// with a fresh id. The returned session has no envelope yet; the first
// Save builds one.
func (m *Manager) StartSession(ctx context.Context, credential string) (*Session, error) {
	id, found, err := m.store.FindByEmail(ctx, credential)
	if err != nil {
		return nil, err
	}
	if !found {
		id, err = m.createUser(ctx, credential)
		if err != nil {
			return nil, err
		}
	}
	return &Session{
		m:        m,
		id:       id,
		idString: base64.RawURLEncoding.EncodeToString(id),
	}, nil
}

func (m *Manager) createUser(ctx context.Context, credential string) ([]byte, error) {
	for range createAttempts {
		id, err := randid.New(IDSize)
		if err != nil {
			return nil, err
		}
		ok, err := m.store.CreateUser(ctx, credential, id)
		if err != nil {
			return nil, err
		}
		if ok {
			return id, nil
		}
	}
	return nil, ErrCreateAttemptsExceeded
}

// violation evicts the wrapping key that authenticated impossible
// content and cuts loose the durable identity it named. Both actions
// are best-effort; the session is rejected either way.
func (m *Manager) violation(ctx context.Context, kekID, idString string) {
	m.log.WarnContext(ctx, "session record invariant violation", logger.KEKID(kekID))
	if _, err := m.keys.Rotate(ctx, kekID); err != nil {
		m.log.ErrorContext(ctx, "failed to rotate session wrapping key",
			logger.KEKID(kekID), logger.Error(err))
	}
	rawID, err := randid.Decode(idString)
	if err != nil {
		return
	}
	if _, err := m.store.Invalidate(ctx, rawID); err != nil {
		m.log.ErrorContext(ctx, "failed to invalidate durable session identity",
			logger.Error(err))
	}
}

// envelopeRef is the key binding of one sealed cookie.
type envelopeRef struct {
	kekID   string
	wrapped string
	dek     []byte
}

// newEnvelope binds a fresh DEK to the active wrapping key. When the
// active key vanished between CurrentID and Get (expiry race or
// emergency rotation), a replacement key is generated and stored rather
// than failing the save.
func (m *Manager) newEnvelope(ctx context.Context) (envelopeRef, error) {
	kekID, err := m.keys.CurrentID(ctx)
	if err != nil {
		return envelopeRef{}, err
	}
	kek, err := m.keys.Get(ctx, kekID)
	if errors.Is(err, kms.ErrKeyNotFound) {
		kek, err = envelope.NewKEK()
		if err != nil {
			return envelopeRef{}, err
		}
		kekID, err = m.keys.Store(ctx, kek)
	}
	if err != nil {
		return envelopeRef{}, err
	}
	dek, err := envelope.NewDEK()
	if err != nil {
		return envelopeRef{}, err
	}
	wrapped, err := envelope.WrapDEK(dek, kek)
	if err != nil {
		return envelopeRef{}, fmt.Errorf("wrap session dek: %w", err)
	}
	return envelopeRef{kekID: kekID, wrapped: wrapped, dek: dek}, nil
}
