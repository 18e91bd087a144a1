// Package sessionauth maintains long-lived login sessions under the
// same envelope-encryption scheme as the OTP flow. The cookie carries a
// durable session identifier plus three timestamps; the identifier is
// the only link to the relational store, so the cookie itself holds no
// account data.
//
// GetSession enforces an idle timeout and a minimum inter-request
// interval, and treats invariant violations in validly decrypted
// content as key compromise: the wrapping key is evicted and the
// durable identity invalidated. Save re-keys the envelope on key
// rotation while preserving the session's creation timestamp verbatim.
package sessionauth
