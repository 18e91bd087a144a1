package otptoken_test

import (
	"encoding/base64"
	"strings"
	"testing"
	"time"

	"github.com/dmitrymomot/cookieauth/pkg/envelope"
	"github.com/dmitrymomot/cookieauth/pkg/otptoken"

	"github.com/stretchr/testify/require"
)

func newCodec(t *testing.T) otptoken.Codec {
	t.Helper()
	c, err := otptoken.NewCodec(otptoken.DefaultPolicy())
	require.NoError(t, err)
	return c
}

func TestEncodeDecodeRoundTrip(t *testing.T) {
	t.Parallel()
	c := newCodec(t)
	now := time.Now().Truncate(time.Millisecond)

	tests := []struct {
		name  string
		token otptoken.Token
	}{
		{
			"full token",
			otptoken.Token{
				Credential:       "alice@example.com",
				ExpiresAt:        now.Add(4 * time.Minute),
				Code:             "a1b2c3",
				Attempts:         3,
				ResendBlockUntil: now.Add(15 * time.Second),
			},
		},
		{
			"with code block",
			otptoken.Token{
				Credential:     "bob@example.com",
				ExpiresAt:      now.Add(2 * time.Minute),
				Code:           "zzz999",
				Attempts:       1,
				CodeBlockUntil: now.Add(10 * time.Second),
			},
		},
		{
			"blocked token",
			otptoken.Token{
				Credential: "carol@example.com",
				ExpiresAt:  now.Add(3 * time.Minute),
			},
		},
		{
			"credential containing delimiters",
			otptoken.Token{
				Credential:       "weird|user,name@example.com",
				ExpiresAt:        now.Add(time.Minute),
				Code:             "000000",
				Attempts:         2,
				ResendBlockUntil: now.Add(5 * time.Second),
			},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			encoded := c.Encode(tt.token)
			got, err := c.Decode(encoded, now)
			require.NoError(t, err)

			require.Equal(t, tt.token.Credential, got.Credential)
			require.Equal(t, tt.token.ExpiresAt.UnixMilli(), got.ExpiresAt.UnixMilli())
			require.Equal(t, tt.token.Code, got.Code)
			require.Equal(t, tt.token.Attempts, got.Attempts)
			require.Equal(t, tt.token.ResendBlockUntil.IsZero(), got.ResendBlockUntil.IsZero())
			if !tt.token.ResendBlockUntil.IsZero() {
				require.Equal(t, tt.token.ResendBlockUntil.UnixMilli(), got.ResendBlockUntil.UnixMilli())
			}
			require.Equal(t, tt.token.CodeBlockUntil.IsZero(), got.CodeBlockUntil.IsZero())
			if !tt.token.CodeBlockUntil.IsZero() {
				require.Equal(t, tt.token.CodeBlockUntil.UnixMilli(), got.CodeBlockUntil.UnixMilli())
			}
		})
	}
}

func TestEncodeOmitsTrailingEmptyFields(t *testing.T) {
	t.Parallel()
	c := newCodec(t)
	now := time.Now()

	blocked := otptoken.Token{Credential: "a@b.c", ExpiresAt: now.Add(time.Minute)}
	require.Equal(t, 1, strings.Count(c.Encode(blocked), "|"))

	noCooldowns := otptoken.Token{
		Credential: "a@b.c",
		ExpiresAt:  now.Add(time.Minute),
		Code:       "abc123",
		Attempts:   3,
	}
	require.Equal(t, 3, strings.Count(c.Encode(noCooldowns), "|"))
}

func TestDecodePolicyRejections(t *testing.T) {
	t.Parallel()
	c := newCodec(t)
	now := time.Now()

	valid := otptoken.Token{
		Credential:       "alice@example.com",
		ExpiresAt:        now.Add(4 * time.Minute),
		Code:             "a1b2c3",
		Attempts:         3,
		ResendBlockUntil: now.Add(15 * time.Second),
	}

	tests := []struct {
		name   string
		mutate func(otptoken.Token) otptoken.Token
	}{
		{"forged extended expiry", func(t otptoken.Token) otptoken.Token {
			t.ExpiresAt = now.Add(time.Hour)
			return t
		}},
		{"attempts above max", func(t otptoken.Token) otptoken.Token {
			t.Attempts = 99
			return t
		}},
		{"resend block beyond window", func(t otptoken.Token) otptoken.Token {
			t.ResendBlockUntil = now.Add(time.Hour)
			return t
		}},
		{"code block while attempts above threshold", func(t otptoken.Token) otptoken.Token {
			t.Attempts = 3
			t.CodeBlockUntil = now.Add(10 * time.Second)
			return t
		}},
		{"code block beyond window", func(t otptoken.Token) otptoken.Token {
			t.Attempts = 1
			t.CodeBlockUntil = now.Add(time.Hour)
			return t
		}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			encoded := c.Encode(tt.mutate(valid))
			_, err := c.Decode(encoded, now)
			require.ErrorIs(t, err, otptoken.ErrInvalidToken)
		})
	}
}

func TestDecodeShapeRejections(t *testing.T) {
	t.Parallel()
	c := newCodec(t)
	now := time.Now()
	exp := c.Encode(otptoken.Token{Credential: "a@b.c", ExpiresAt: now.Add(time.Minute)})
	expiresField := strings.Split(exp, "|")[1]

	tests := []struct {
		name string
		in   string
	}{
		{"empty", ""},
		{"single field", "a%40b.c"},
		{"too many fields", "a|b|c|d|e|f|g"},
		{"bad expiry", "a%40b.c|-nope"},
		{"bad percent encoding", "a%zz@b.c|" + expiresField},
		{"wrong code charset", "a%40b.c|" + expiresField + "|ABC123|3"},
		{"wrong code length", "a%40b.c|" + expiresField + "|abc|3"},
		{"code without attempts", "a%40b.c|" + expiresField + "|abc123"},
		{"zero attempts", "a%40b.c|" + expiresField + "|abc123|0"},
		{"blocked with stray attempts", "a%40b.c|" + expiresField + "||3"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			_, err := c.Decode(tt.in, now)
			require.ErrorIs(t, err, otptoken.ErrInvalidToken)
		})
	}
}

func TestSealedTokenBitFlipFailsClosed(t *testing.T) {
	t.Parallel()
	c := newCodec(t)
	now := time.Now()

	token := otptoken.Token{
		Credential:       "alice@example.com",
		ExpiresAt:        now.Add(4 * time.Minute),
		Code:             "a1b2c3",
		Attempts:         3,
		ResendBlockUntil: now.Add(15 * time.Second),
	}
	plaintext := otptoken.EncodeList([]string{c.Encode(token)}, "repl4yIdrepl4yIdrepl4yId")

	dek, err := envelope.NewDEK()
	require.NoError(t, err)
	sealed, err := envelope.Encrypt(dek, plaintext, nil)
	require.NoError(t, err)

	raw, err := base64.RawURLEncoding.DecodeString(sealed)
	require.NoError(t, err)

	// The wire form is authenticated: any single-bit flip anywhere in the
	// sealed value fails closed, so a forged token can never surface a
	// different valid credential.
	for i := 0; i < len(raw); i++ {
		for bit := 0; bit < 8; bit++ {
			flipped := make([]byte, len(raw))
			copy(flipped, raw)
			flipped[i] ^= 1 << bit
			_, err := envelope.Decrypt(dek, base64.RawURLEncoding.EncodeToString(flipped), nil)
			require.ErrorIs(t, err, envelope.ErrDecryptionFailed)
		}
	}
}

func TestExpiredTokenStillDecodes(t *testing.T) {
	t.Parallel()
	c := newCodec(t)
	now := time.Now()

	token := otptoken.Token{Credential: "a@b.c", ExpiresAt: now.Add(-time.Minute)}
	got, err := c.Decode(c.Encode(token), now)
	require.NoError(t, err)
	require.True(t, got.Expired(now))
}

func TestNewCode(t *testing.T) {
	t.Parallel()
	c := newCodec(t)

	code, err := c.NewCode()
	require.NoError(t, err)
	require.Len(t, code, 6)
	require.True(t, c.ValidCode(code))

	other, err := c.NewCode()
	require.NoError(t, err)
	require.NotEqual(t, code, other)
}

func TestValidateCredentialHook(t *testing.T) {
	t.Parallel()
	p := otptoken.DefaultPolicy()
	p.ValidateCredential = func(s string) bool { return strings.Contains(s, "@") }
	c, err := otptoken.NewCodec(p)
	require.NoError(t, err)

	now := time.Now()
	bad := c.Encode(otptoken.Token{Credential: "not-an-email", ExpiresAt: now.Add(time.Minute)})
	_, err = c.Decode(bad, now)
	require.ErrorIs(t, err, otptoken.ErrInvalidToken)
}

func TestPolicyValidate(t *testing.T) {
	t.Parallel()

	p := otptoken.DefaultPolicy()
	require.NoError(t, p.Validate())

	p.BlockThreshold = p.MaxAttempts
	require.ErrorIs(t, p.Validate(), otptoken.ErrInvalidPolicy)
}
