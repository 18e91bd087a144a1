package otptoken

import (
	"crypto/rand"
	"math/big"
	"net/url"
	"strconv"
	"strings"
	"time"

	"github.com/dmitrymomot/cookieauth/pkg/compact"
)

const (
	// fieldSep joins token fields; the credential is percent-encoded so
	// it can never contain it.
	fieldSep = "|"

	// codeAlphabet is the OTP charset: lowercase base-36.
	codeAlphabet = "0123456789abcdefghijklmnopqrstuvwxyz"
)

// Policy bounds every decoded field. Decoding enforces policy, not just
// shape: a structurally valid token outside these bounds is treated as
// forged.
type Policy struct {
	// MaxAge is the maximum token lifetime; a decoded expiry further in
	// the future is a forgery.
	MaxAge time.Duration

	// ResendBlock is the resend cool-down window; a decoded
	// ResendBlockUntil beyond now+ResendBlock is a forgery.
	ResendBlock time.Duration

	// CodeBlock is the wrong-code cool-down window, bounded the same way.
	CodeBlock time.Duration

	// MaxAttempts is the verification attempt budget.
	MaxAttempts int

	// BlockThreshold is the attempts level at and below which a cool-down
	// may be scheduled. A CodeBlockUntil present while attempts are still
	// above it is internally inconsistent state.
	BlockThreshold int

	// CodeLength is the exact OTP code length.
	CodeLength int

	// ValidateCredential optionally applies downstream credential format
	// validation (e.g. email syntax). Nil means only non-empty is
	// required.
	ValidateCredential func(string) bool
}

// DefaultPolicy mirrors the production defaults: 5 minute tokens, 3
// attempts, cool-downs of 20 seconds, 6 character codes.
func DefaultPolicy() Policy {
	return Policy{
		MaxAge:         5 * time.Minute,
		ResendBlock:    20 * time.Second,
		CodeBlock:      20 * time.Second,
		MaxAttempts:    3,
		BlockThreshold: 1,
		CodeLength:     6,
	}
}

// Validate checks internal consistency of the policy.
func (p Policy) Validate() error {
	if p.MaxAge <= 0 || p.ResendBlock <= 0 || p.CodeBlock <= 0 {
		return ErrInvalidPolicy
	}
	if p.MaxAttempts < 1 || p.CodeLength < 1 {
		return ErrInvalidPolicy
	}
	if p.BlockThreshold < 0 || p.BlockThreshold >= p.MaxAttempts {
		return ErrInvalidPolicy
	}
	return nil
}

// Codec encodes and decodes tokens under a fixed policy.
type Codec struct {
	policy Policy
}

// NewCodec creates a codec. The policy must be valid.
func NewCodec(p Policy) (Codec, error) {
	if err := p.Validate(); err != nil {
		return Codec{}, err
	}
	return Codec{policy: p}, nil
}

// Policy returns the codec's policy.
func (c Codec) Policy() Policy {
	return c.policy
}

// Encode serializes a token to its compact delimited form. Timestamps are
// base-36 milliseconds, the credential is percent-encoded, and trailing
// absent fields are omitted.
func (c Codec) Encode(t Token) string {
	fields := []string{
		url.QueryEscape(t.Credential),
		compact.Encode(t.ExpiresAt.UnixMilli()),
		t.Code,
		"",
		"",
		"",
	}
	if t.Code != "" {
		fields[3] = strconv.Itoa(t.Attempts)
		if !t.ResendBlockUntil.IsZero() {
			fields[4] = compact.Encode(t.ResendBlockUntil.UnixMilli())
		}
		if !t.CodeBlockUntil.IsZero() {
			fields[5] = compact.Encode(t.CodeBlockUntil.UnixMilli())
		}
	}

	last := len(fields) - 1
	for last > 1 && fields[last] == "" {
		last--
	}
	return strings.Join(fields[:last+1], fieldSep)
}

// Decode parses and validates an encoded token against policy as of now.
// Every rejection returns ErrInvalidToken: the caller must not be able to
// tell which check failed. An expired token decodes successfully; pruning
// is the state machine's job.
func (c Codec) Decode(s string, now time.Time) (Token, error) {
	parts := strings.Split(s, fieldSep)
	if len(parts) < 2 || len(parts) > 6 {
		return Token{}, ErrInvalidToken
	}

	expiresMs, err := compact.Decode(parts[1])
	if err != nil {
		return Token{}, ErrInvalidToken
	}
	t := Token{ExpiresAt: time.UnixMilli(expiresMs)}

	// An expiry further out than a freshly issued token could carry is a
	// forgery.
	if t.ExpiresAt.Sub(now) > c.policy.MaxAge {
		return Token{}, ErrInvalidToken
	}

	credential, err := url.QueryUnescape(parts[0])
	if err != nil {
		return Token{}, ErrInvalidToken
	}
	t.Credential = strings.TrimSpace(credential)
	if t.Credential == "" {
		return Token{}, ErrInvalidToken
	}
	if c.policy.ValidateCredential != nil && !c.policy.ValidateCredential(t.Credential) {
		return Token{}, ErrInvalidToken
	}

	if len(parts) > 2 && parts[2] != "" {
		t.Code = parts[2]
		if !c.ValidCode(t.Code) {
			return Token{}, ErrInvalidToken
		}

		// Attempts cannot be absent or zero while a code exists; a
		// zero-attempt token is blocked and carries no code at all.
		if len(parts) < 4 {
			return Token{}, ErrInvalidToken
		}
		t.Attempts, err = strconv.Atoi(parts[3])
		if err != nil || t.Attempts < 1 || t.Attempts > c.policy.MaxAttempts {
			return Token{}, ErrInvalidToken
		}

		if len(parts) > 4 && parts[4] != "" {
			ms, err := compact.Decode(parts[4])
			if err != nil {
				return Token{}, ErrInvalidToken
			}
			t.ResendBlockUntil = time.UnixMilli(ms)
			if t.ResendBlockUntil.Sub(now) > c.policy.ResendBlock {
				return Token{}, ErrInvalidToken
			}
		}

		if len(parts) > 5 && parts[5] != "" {
			if t.Attempts > c.policy.BlockThreshold {
				return Token{}, ErrInvalidToken
			}
			ms, err := compact.Decode(parts[5])
			if err != nil {
				return Token{}, ErrInvalidToken
			}
			t.CodeBlockUntil = time.UnixMilli(ms)
			if t.CodeBlockUntil.Sub(now) > c.policy.CodeBlock {
				return Token{}, ErrInvalidToken
			}
		}
	} else {
		// Blocked token: nothing beyond credential and expiry may be
		// present.
		for _, p := range parts[2:] {
			if p != "" {
				return Token{}, ErrInvalidToken
			}
		}
	}

	return t, nil
}

// NewCode generates a random OTP code: lowercase base-36 of the policy's
// exact length.
func (c Codec) NewCode() (string, error) {
	b := make([]byte, c.policy.CodeLength)
	max := big.NewInt(int64(len(codeAlphabet)))
	for i := range b {
		n, err := rand.Int(rand.Reader, max)
		if err != nil {
			return "", err
		}
		b[i] = codeAlphabet[n.Int64()]
	}
	return string(b), nil
}

// ValidCode reports whether s has the exact code length and charset.
func (c Codec) ValidCode(s string) bool {
	if len(s) != c.policy.CodeLength {
		return false
	}
	for i := 0; i < len(s); i++ {
		ch := s[i]
		if (ch < '0' || ch > '9') && (ch < 'a' || ch > 'z') {
			return false
		}
	}
	return true
}
