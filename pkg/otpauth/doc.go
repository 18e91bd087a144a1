// Package otpauth implements a one-time-passcode flow whose entire
// pending state rides inside one encrypted cookie. The server stores no
// per-user rows during the flow; it keeps only rotating wrapping keys
// and single-use replay ids.
//
// # Flow
//
// Create sends a code to a credential and seals a token list into the
// cookie. Resend renews the code after a cool-down. Verify checks a
// submitted code: success consumes the replay id, clears the cookie and
// returns the credential; a wrong code burns one of a small attempt
// budget, scheduling cool-downs near the bottom of the budget and
// permanently blocking the token when it runs out.
//
// # Security posture
//
// Cookies are sealed with a per-cookie data key wrapped under a
// rotating key from pkg/kms, and every rewrite consumes the previous
// replay id, so a captured cookie can be replayed at most zero times
// after its state moves on. Content that is malformed underneath valid
// authenticated encryption is treated as evidence of key compromise:
// the wrapping key involved is rotated out on the spot.
//
// All failure modes surface as the same generic status so responses
// never reveal which check rejected a request.
package otpauth
