// Package randid generates and validates opaque random identifiers.
//
// Identifiers are raw random bytes encoded as unpadded base64url. They are
// used for wrapping-key ids, replay-protection ids and durable session ids.
// Validation is strict on both charset and length so that malformed input
// can be rejected before touching any backing store.
package randid
