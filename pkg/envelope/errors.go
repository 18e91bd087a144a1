package envelope

import "errors"

var (
	// ErrInvalidKeySize indicates a KEK or DEK is not 32 bytes.
	ErrInvalidKeySize = errors.New("envelope: key must be 32 bytes")

	// ErrInvalidWrappedDEK indicates the wrapped DEK has the wrong length
	// or encoding. Treated as corruption, never partially decoded.
	ErrInvalidWrappedDEK = errors.New("envelope: invalid wrapped DEK")

	// ErrInvalidEnvelope indicates the cookie value is too short to carry
	// the kekId+wrappedDek prefix.
	ErrInvalidEnvelope = errors.New("envelope: invalid envelope prefix")

	// ErrEncryptionFailed wraps failures while sealing a payload.
	ErrEncryptionFailed = errors.New("envelope: encryption failed")

	// ErrDecryptionFailed wraps authentication or decoding failures while
	// opening a payload. No partial plaintext ever surfaces.
	ErrDecryptionFailed = errors.New("envelope: decryption failed")

	// ErrKeyDerivationFailed wraps HKDF failures deriving the wrap key.
	ErrKeyDerivationFailed = errors.New("envelope: key derivation failed")
)
