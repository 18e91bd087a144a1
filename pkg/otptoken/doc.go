// Package otptoken serializes OTP token state to and from the compact
// delimited text form carried inside the encrypted cookie.
//
// A token is the positional tuple (credential, expiry, code, attempts,
// resend cool-down, wrong-code cool-down); a cookie carries a list of at
// most a handful of tokens followed by one replay id, sealed as a single
// ciphertext.
//
// Decoding enforces policy, not just shape: expiries beyond what a fresh
// token could carry, cool-downs beyond their windows, codes of the wrong
// length or charset, and internally inconsistent optional-field
// combinations are all rejected. Every rejection is the same
// ErrInvalidToken, indistinguishable from an absent token, so the wire
// format leaks nothing about which check fired.
package otptoken
