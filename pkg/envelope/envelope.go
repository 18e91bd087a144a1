package envelope

import (
	"crypto/aes"
	"crypto/cipher"
	"crypto/rand"
	"crypto/sha256"
	"encoding/base64"
	"errors"
	"io"

	"golang.org/x/crypto/hkdf"
)

const (
	// KeySize is the size of both KEKs and DEKs (AES-256).
	KeySize = 32

	// KEKIDSize is the raw byte length of a wrapping-key identifier.
	KEKIDSize = 12

	// nonceSize is the standard GCM nonce length.
	nonceSize = 12

	// WrappedDEKSize is the exact byte length of a wrapped DEK:
	// nonce + 32-byte key + GCM tag. Any other length is corruption.
	WrappedDEKSize = nonceSize + KeySize + 16

	// wrapInfo provides HKDF domain separation between the wrap key and
	// any other use of the KEK material.
	wrapInfo = "cookieauth-kek-wrap-v1"
)

// Derived, fixed-width text lengths of the envelope prefix.
var (
	// KEKIDLen is the base64url length of a KEK id.
	KEKIDLen = base64.RawURLEncoding.EncodedLen(KEKIDSize)

	// WrappedDEKLen is the base64url length of a wrapped DEK.
	WrappedDEKLen = base64.RawURLEncoding.EncodedLen(WrappedDEKSize)

	// PrefixLen is the total envelope prefix length: kekId + wrappedDek.
	PrefixLen = KEKIDLen + WrappedDEKLen
)

// NewKEK generates a fresh random key-encryption key.
func NewKEK() ([]byte, error) {
	return newKey()
}

// NewDEK generates a fresh random data-encryption key. DEKs are never
// reused across artifacts; only the KEK is shared.
func NewDEK() ([]byte, error) {
	return newKey()
}

func newKey() ([]byte, error) {
	key := make([]byte, KeySize)
	if _, err := rand.Read(key); err != nil {
		return nil, errors.Join(ErrEncryptionFailed, err)
	}
	return key, nil
}

// deriveWrapKey derives the actual wrapping key from KEK material using
// HKDF-SHA-256 so the stored KEK bytes are never used directly as a cipher
// key.
func deriveWrapKey(kek []byte) ([]byte, error) {
	if len(kek) != KeySize {
		return nil, ErrInvalidKeySize
	}
	r := hkdf.New(sha256.New, kek, nil, []byte(wrapInfo))
	key := make([]byte, KeySize)
	if _, err := io.ReadFull(r, key); err != nil {
		return nil, errors.Join(ErrKeyDerivationFailed, err)
	}
	return key, nil
}

// WrapDEK encrypts a DEK under the given KEK. The result is always exactly
// WrappedDEKLen characters of base64url.
func WrapDEK(dek, kek []byte) (string, error) {
	if len(dek) != KeySize {
		return "", ErrInvalidKeySize
	}
	wrapKey, err := deriveWrapKey(kek)
	if err != nil {
		return "", err
	}
	sealed, err := seal(wrapKey, dek, nil)
	if err != nil {
		return "", err
	}
	return base64.RawURLEncoding.EncodeToString(sealed), nil
}

// UnwrapDEK recovers a DEK previously wrapped with WrapDEK. A wrapped
// payload of any other length is rejected before touching the cipher.
func UnwrapDEK(wrapped string, kek []byte) ([]byte, error) {
	raw, err := base64.RawURLEncoding.DecodeString(wrapped)
	if err != nil {
		return nil, errors.Join(ErrInvalidWrappedDEK, err)
	}
	if len(raw) != WrappedDEKSize {
		return nil, ErrInvalidWrappedDEK
	}
	wrapKey, err := deriveWrapKey(kek)
	if err != nil {
		return nil, err
	}
	dek, err := open(wrapKey, raw, nil)
	if err != nil {
		return nil, err
	}
	return dek, nil
}

// Encrypt seals a payload under a DEK with AES-256-GCM. The random nonce is
// prepended to the ciphertext and the whole value is base64url-encoded.
func Encrypt(dek []byte, plaintext string, aad []byte) (string, error) {
	if len(dek) != KeySize {
		return "", ErrInvalidKeySize
	}
	sealed, err := seal(dek, []byte(plaintext), aad)
	if err != nil {
		return "", err
	}
	return base64.RawURLEncoding.EncodeToString(sealed), nil
}

// Decrypt opens a payload sealed with Encrypt. A wrong key, wrong aad or
// tampered ciphertext fails closed.
func Decrypt(dek []byte, ciphertext string, aad []byte) (string, error) {
	if len(dek) != KeySize {
		return "", ErrInvalidKeySize
	}
	raw, err := base64.RawURLEncoding.DecodeString(ciphertext)
	if err != nil {
		return "", errors.Join(ErrDecryptionFailed, err)
	}
	plaintext, err := open(dek, raw, aad)
	if err != nil {
		return "", err
	}
	return string(plaintext), nil
}

// Prefix assembles the fixed-width envelope prefix placed before the
// payload ciphertext: kekId ‖ wrappedDek.
func Prefix(kekID, wrappedDEK string) string {
	return kekID + wrappedDEK
}

// ParsePrefix splits a cookie value into its envelope parts. It validates
// lengths only; cryptographic validation happens on unwrap.
func ParsePrefix(value string) (kekID, wrappedDEK, ciphertext string, err error) {
	if len(value) < PrefixLen {
		return "", "", "", ErrInvalidEnvelope
	}
	return value[:KEKIDLen], value[KEKIDLen:PrefixLen], value[PrefixLen:], nil
}

func seal(key, plaintext, aad []byte) ([]byte, error) {
	aead, err := newAEAD(key)
	if err != nil {
		return nil, errors.Join(ErrEncryptionFailed, err)
	}
	nonce := make([]byte, nonceSize)
	if _, err := io.ReadFull(rand.Reader, nonce); err != nil {
		return nil, errors.Join(ErrEncryptionFailed, err)
	}
	return aead.Seal(nonce, nonce, plaintext, aad), nil
}

func open(key, sealed, aad []byte) ([]byte, error) {
	aead, err := newAEAD(key)
	if err != nil {
		return nil, errors.Join(ErrDecryptionFailed, err)
	}
	if len(sealed) < nonceSize {
		return nil, ErrDecryptionFailed
	}
	nonce, ciphertext := sealed[:nonceSize], sealed[nonceSize:]
	plaintext, err := aead.Open(nil, nonce, ciphertext, aad)
	if err != nil {
		return nil, errors.Join(ErrDecryptionFailed, err)
	}
	return plaintext, nil
}

func newAEAD(key []byte) (cipher.AEAD, error) {
	block, err := aes.NewCipher(key)
	if err != nil {
		return nil, err
	}
	return cipher.NewGCM(block)
}
