package envelope_test

import (
	"strings"
	"testing"

	"github.com/dmitrymomot/cookieauth/pkg/envelope"

	"github.com/stretchr/testify/require"
)

func TestWrapUnwrapDEK(t *testing.T) {
	t.Parallel()

	kek, err := envelope.NewKEK()
	require.NoError(t, err)
	dek, err := envelope.NewDEK()
	require.NoError(t, err)

	wrapped, err := envelope.WrapDEK(dek, kek)
	require.NoError(t, err)
	require.Len(t, wrapped, envelope.WrappedDEKLen)

	got, err := envelope.UnwrapDEK(wrapped, kek)
	require.NoError(t, err)
	require.Equal(t, dek, got)
}

func TestUnwrapDEKWrongKEK(t *testing.T) {
	t.Parallel()

	kek, err := envelope.NewKEK()
	require.NoError(t, err)
	otherKek, err := envelope.NewKEK()
	require.NoError(t, err)
	dek, err := envelope.NewDEK()
	require.NoError(t, err)

	wrapped, err := envelope.WrapDEK(dek, kek)
	require.NoError(t, err)

	_, err = envelope.UnwrapDEK(wrapped, otherKek)
	require.ErrorIs(t, err, envelope.ErrDecryptionFailed)
}

func TestUnwrapDEKWrongLength(t *testing.T) {
	t.Parallel()

	kek, err := envelope.NewKEK()
	require.NoError(t, err)

	tests := []struct {
		name    string
		wrapped string
	}{
		{"empty", ""},
		{"short", "abc"},
		{"truncated", strings.Repeat("A", envelope.WrappedDEKLen-4)},
		{"oversized", strings.Repeat("A", envelope.WrappedDEKLen+4)},
		{"invalid base64", strings.Repeat("!", envelope.WrappedDEKLen)},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			_, err := envelope.UnwrapDEK(tt.wrapped, kek)
			require.ErrorIs(t, err, envelope.ErrInvalidWrappedDEK)
		})
	}
}

func TestEncryptDecrypt(t *testing.T) {
	t.Parallel()

	dek, err := envelope.NewDEK()
	require.NoError(t, err)

	tests := []struct {
		name      string
		plaintext string
		aad       []byte
	}{
		{"empty", "", nil},
		{"token list", "alice%40example.com|abc123|3|zzz,repl4yIdrepl4yIdrepl4yI", []byte("kekid")},
		{"unicode", "héllo 世界", nil},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			ct, err := envelope.Encrypt(dek, tt.plaintext, tt.aad)
			require.NoError(t, err)

			pt, err := envelope.Decrypt(dek, ct, tt.aad)
			require.NoError(t, err)
			require.Equal(t, tt.plaintext, pt)
		})
	}
}

func TestDecryptFailsClosed(t *testing.T) {
	t.Parallel()

	dek, err := envelope.NewDEK()
	require.NoError(t, err)
	other, err := envelope.NewDEK()
	require.NoError(t, err)

	ct, err := envelope.Encrypt(dek, "secret payload", []byte("aad"))
	require.NoError(t, err)

	t.Run("wrong key", func(t *testing.T) {
		t.Parallel()
		_, err := envelope.Decrypt(other, ct, []byte("aad"))
		require.ErrorIs(t, err, envelope.ErrDecryptionFailed)
	})

	t.Run("wrong aad", func(t *testing.T) {
		t.Parallel()
		_, err := envelope.Decrypt(dek, ct, []byte("other"))
		require.ErrorIs(t, err, envelope.ErrDecryptionFailed)
	})

	t.Run("tampered ciphertext", func(t *testing.T) {
		t.Parallel()
		tampered := []byte(ct)
		if tampered[10] == 'A' {
			tampered[10] = 'B'
		} else {
			tampered[10] = 'A'
		}
		_, err := envelope.Decrypt(dek, string(tampered), []byte("aad"))
		require.ErrorIs(t, err, envelope.ErrDecryptionFailed)
	})
}

func TestParsePrefix(t *testing.T) {
	t.Parallel()

	kekID := strings.Repeat("k", envelope.KEKIDLen)
	wrapped := strings.Repeat("w", envelope.WrappedDEKLen)
	value := envelope.Prefix(kekID, wrapped) + "ciphertext"

	gotID, gotWrapped, gotCT, err := envelope.ParsePrefix(value)
	require.NoError(t, err)
	require.Equal(t, kekID, gotID)
	require.Equal(t, wrapped, gotWrapped)
	require.Equal(t, "ciphertext", gotCT)

	_, _, _, err = envelope.ParsePrefix("too short")
	require.ErrorIs(t, err, envelope.ErrInvalidEnvelope)
}
