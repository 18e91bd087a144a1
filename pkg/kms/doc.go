// Package kms manages the symmetric wrapping keys (KEKs) that envelope
// encryption binds data-encryption keys to.
//
// Two independent instances typically exist in one process, one for OTP
// cookies and one for session cookies, sharing the implementation but not
// key material. Each key carries two deadlines:
//
//   - RotateAt: the key stops being used for new envelopes. Default
//     cadence is 90 days.
//   - ExpiresAt: RotateAt plus the maximum artifact lifetime for the
//     instance's purpose. Existing envelopes stay decryptable until then,
//     which bounds the window a leaked key is useful for.
//
// Expired keys are destroyed lazily on store access; there is no
// background sweeper.
//
// # Emergency rotation
//
// Rotate(id) is called whenever a decrypt or verify step observes
// structurally impossible state for a live key, which is treated as a
// compromise signal. If id is the currently active key a replacement is
// generated and stored before the suspect key is removed; otherwise the
// key is simply evicted.
//
// # Storage
//
// The Store interface abstracts persistence. MemoryStore is the default
// and is explicitly single-instance (keys are lost on restart and not
// shared between processes). RedisStore implements the same contract on a
// shared redis server for multi-instance deployments.
package kms
