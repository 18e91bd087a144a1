package otpauth

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/dmitrymomot/cookieauth/pkg/envelope"
	"github.com/dmitrymomot/cookieauth/pkg/kms"
	"github.com/dmitrymomot/cookieauth/pkg/logger"
	"github.com/dmitrymomot/cookieauth/pkg/otptoken"
	"github.com/dmitrymomot/cookieauth/pkg/replayid"
)

// Sender delivers a one-time code to a credential. Implementations live
// in pkg/delivery; any error aborts the operation before the cookie is
// written, so a code the user never received cannot consume state.
type Sender interface {
	SendCode(ctx context.Context, credential, code string) error
}

// Service runs the OTP state machine over an encrypted cookie. All
// durable state lives client-side; the server keeps only wrapping keys
// and single-use replay ids.
type Service struct {
	keys      *kms.KMS
	ids       replayid.Store
	sender    Sender
	codec     otptoken.Codec
	cfg       Config
	log       *slog.Logger
	now       func() time.Time
	credValid func(string) bool
}

// Option configures a Service.
type Option func(*Service)

// WithLogger sets the logger.
func WithLogger(log *slog.Logger) Option {
	return func(s *Service) {
		if log != nil {
			s.log = log
		}
	}
}

// WithClock overrides the time source. Intended for tests.
func WithClock(now func() time.Time) Option {
	return func(s *Service) {
		if now != nil {
			s.now = now
		}
	}
}

// WithCredentialValidator installs credential format validation (e.g.
// email syntax). It applies both to submitted credentials and to
// credentials decoded out of the cookie.
func WithCredentialValidator(valid func(string) bool) Option {
	return func(s *Service) {
		if valid != nil {
			s.credValid = valid
		}
	}
}

// New creates the service. keys must be a KMS instance whose artifact
// age matches cfg.MaxAge, so key expiries cover every live cookie.
func New(keys *kms.KMS, ids replayid.Store, sender Sender, cfg Config, opts ...Option) (*Service, error) {
	if keys == nil || ids == nil || sender == nil {
		return nil, ErrMissingDependency
	}
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidConfig, err)
	}

	s := &Service{
		keys:      keys,
		ids:       ids,
		sender:    sender,
		cfg:       cfg,
		log:       slog.Default(),
		now:       time.Now,
		credValid: func(c string) bool { return c != "" },
	}
	for _, opt := range opts {
		opt(s)
	}

	policy := cfg.policy()
	policy.ValidateCredential = s.credValid
	codec, err := otptoken.NewCodec(policy)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidConfig, err)
	}
	s.codec = codec
	return s, nil
}

// envelopeRef is the key binding of one sealed cookie: which wrapping
// key, the wrapped DEK as carried on the wire, and the unwrapped DEK.
type envelopeRef struct {
	kekID   string
	wrapped string
	dek     []byte
}

// open parses and decrypts a cookie value. ok=false means the cookie is
// unusable (unknown key, corrupt envelope, failed authentication) and
// should be treated as absent; a non-nil error is an infrastructure
// failure.
func (s *Service) open(ctx context.Context, cookie string) (envelopeRef, string, bool, error) {
	kekID, wrapped, ciphertext, err := envelope.ParsePrefix(cookie)
	if err != nil {
		return envelopeRef{}, "", false, nil
	}
	dek, err := s.keys.GetDEK(ctx, kekID, wrapped)
	if err != nil {
		if errors.Is(err, kms.ErrStoreFailure) {
			return envelopeRef{}, "", false, err
		}
		return envelopeRef{}, "", false, nil
	}
	plaintext, err := envelope.Decrypt(dek, ciphertext, []byte(kekID))
	if err != nil {
		return envelopeRef{}, "", false, nil
	}
	return envelopeRef{kekID: kekID, wrapped: wrapped, dek: dek}, plaintext, true, nil
}

// seal encodes and encrypts a token list into a full cookie value.
func (s *Service) seal(env envelopeRef, entries []string, replayID string) (string, error) {
	ciphertext, err := envelope.Encrypt(env.dek, otptoken.EncodeList(entries, replayID), []byte(env.kekID))
	if err != nil {
		return "", err
	}
	return envelope.Prefix(env.kekID, env.wrapped) + ciphertext, nil
}

// newEnvelope binds a fresh DEK to the currently active wrapping key.
func (s *Service) newEnvelope(ctx context.Context) (envelopeRef, error) {
	kekID, err := s.keys.CurrentID(ctx)
	if err != nil {
		return envelopeRef{}, err
	}
	kek, err := s.keys.Get(ctx, kekID)
	if err != nil {
		return envelopeRef{}, err
	}
	dek, err := envelope.NewDEK()
	if err != nil {
		return envelopeRef{}, err
	}
	wrapped, err := envelope.WrapDEK(dek, kek)
	if err != nil {
		return envelopeRef{}, err
	}
	return envelopeRef{kekID: kekID, wrapped: wrapped, dek: dek}, nil
}

// rekey moves the envelope onto the currently active wrapping key when
// the request arrived under a key that has since rotated out. Every
// cookie rewrite passes through here, so old keys drain before expiry.
func (s *Service) rekey(ctx context.Context, env envelopeRef) (envelopeRef, error) {
	currentID, err := s.keys.CurrentID(ctx)
	if err != nil {
		return envelopeRef{}, err
	}
	if currentID == env.kekID {
		return env, nil
	}
	return s.newEnvelope(ctx)
}

// listState is the outcome of decoding and pruning a token list.
type listState struct {
	// kept holds the still-live encoded entries other than current.
	kept []string

	// current is the entry the operation targets, nil when absent.
	current *otptoken.Token

	// maxExpires is the latest expiry across all live entries. It is
	// also the expiry recorded against the list's replay id.
	maxExpires time.Time
}

// walk decodes every entry, prunes expired ones, and selects the target
// entry: the one matching credential, or the most recently appended
// live entry when credential is empty. Any entry failing to decode
// rejects the whole list; content that is malformed underneath valid
// encryption means the wrapping key is compromised.
func (s *Service) walk(entries []string, credential string, now time.Time) (listState, error) {
	tokens := make([]otptoken.Token, len(entries))
	seen := make(map[string]struct{}, len(entries))
	for i, e := range entries {
		t, err := s.codec.Decode(e, now)
		if err != nil {
			return listState{}, err
		}
		// One credential occupies at most one slot; a duplicate is as
		// malformed as an undecodable entry.
		if _, dup := seen[t.Credential]; dup {
			return listState{}, otptoken.ErrInvalidList
		}
		seen[t.Credential] = struct{}{}
		tokens[i] = t
	}

	var st listState
	lastIdx := -1
	if credential == "" {
		lastIdx = len(tokens) - 1
	}
	for i, t := range tokens {
		if t.Expired(now) {
			continue
		}
		if t.ExpiresAt.After(st.maxExpires) {
			st.maxExpires = t.ExpiresAt
		}
		if (credential != "" && t.Credential == credential) || i == lastIdx {
			tok := t
			st.current = &tok
			continue
		}
		st.kept = append(st.kept, entries[i])
	}
	return st, nil
}

// reject handles a cookie whose authenticated content is malformed: the
// replay id is revoked, the wrapping key that authenticated the content
// is rotated out, and the client starts over.
func (s *Service) reject(ctx context.Context, env envelopeRef, replayID string) Result {
	s.log.WarnContext(ctx, "malformed token list under authenticated cookie",
		logger.KEKID(env.kekID))
	if replayID != "" {
		if _, err := s.ids.Delete(ctx, replayID); err != nil {
			s.log.ErrorContext(ctx, "failed to revoke replay id", logger.Error(err))
		}
	}
	if _, err := s.keys.Rotate(ctx, env.kekID); err != nil {
		s.log.ErrorContext(ctx, "failed to rotate wrapping key", logger.Error(err))
	}
	return Result{Status: StatusNotFound, CookieClear: true}
}

func failure() Result {
	return Result{Status: StatusNotFound}
}

func clearFailure() Result {
	return Result{Status: StatusNotFound, CookieClear: true}
}

// expiryFor computes a new token's expiry at millisecond precision, the
// resolution the wire encoding carries. Replay-id comparisons are exact,
// so the stored expiry must equal the value recomputed from a decoded
// token.
func (s *Service) expiryFor(now time.Time) time.Time {
	return now.Add(s.cfg.MaxAge).Truncate(time.Millisecond)
}

// ceilSeconds rounds a duration up to whole seconds for response bodies.
func ceilSeconds(d time.Duration) int64 {
	return int64((d + time.Second - 1) / time.Second)
}
