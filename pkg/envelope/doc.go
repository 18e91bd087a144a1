// Package envelope implements the envelope-encryption scheme binding a
// per-artifact data-encryption key (DEK) to a shared wrapping key (KEK).
//
// Every encrypted cookie carries a fixed-width textual prefix
// `kekId ‖ wrappedDek` followed by the payload ciphertext. The DEK is
// random per artifact and never reused; the KEK is held server-side and
// rotated on a fixed cadence by the kms package.
//
// # Scheme
//
//  1. Wrap key derivation – HKDF-SHA-256 over the 32-byte KEK material with
//     a fixed domain-separation info string.
//  2. DEK wrapping – AES-256-GCM under the derived wrap key; the output is
//     exactly WrappedDEKSize bytes, so any other length is treated as
//     corruption before the cipher is touched.
//  3. Payload encryption – AES-256-GCM under the DEK with a random nonce
//     prepended to the ciphertext. Decryption under a wrong key, wrong
//     additional data or a tampered ciphertext fails closed.
//
// # Error Handling
//
// All functions return sentinel errors (ErrInvalidWrappedDEK,
// ErrDecryptionFailed, ...) matched with errors.Is. Callers are expected to
// collapse every variant to one generic outward response while logging the
// distinct cause.
package envelope
