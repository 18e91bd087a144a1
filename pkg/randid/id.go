package randid

import (
	"crypto/rand"
	"encoding/base64"
	"errors"
)

// DefaultSize is the default identifier length in bytes. 144 bits of
// entropy exceeds UUIDv4 (122 bits) while staying compact in base64url,
// and unlike UUIDv7 or ULID it carries no timestamp to leak.
const DefaultSize = 18

// ErrEntropyFailure indicates the system entropy source failed.
var ErrEntropyFailure = errors.New("randid: entropy source failure")

// New returns n cryptographically random bytes.
func New(n int) ([]byte, error) {
	b := make([]byte, n)
	if _, err := rand.Read(b); err != nil {
		return nil, errors.Join(ErrEntropyFailure, err)
	}
	return b, nil
}

// NewString returns a random identifier of n bytes encoded as unpadded
// base64url.
func NewString(n int) (string, error) {
	b, err := New(n)
	if err != nil {
		return "", err
	}
	return base64.RawURLEncoding.EncodeToString(b), nil
}

// EncodedLen reports the base64url string length produced for n raw bytes.
func EncodedLen(n int) int {
	return base64.RawURLEncoding.EncodedLen(n)
}

// Valid reports whether s is a well-formed identifier of the exact encoded
// length. Format is checked before any store lookup to defend against
// probing with arbitrary input.
func Valid(s string, encodedLen int) bool {
	if len(s) != encodedLen {
		return false
	}
	for i := 0; i < len(s); i++ {
		c := s[i]
		switch {
		case c >= 'a' && c <= 'z':
		case c >= 'A' && c <= 'Z':
		case c >= '0' && c <= '9':
		case c == '-' || c == '_':
		default:
			return false
		}
	}
	return true
}

// Decode parses an identifier previously produced by NewString.
func Decode(s string) ([]byte, error) {
	return base64.RawURLEncoding.DecodeString(s)
}
