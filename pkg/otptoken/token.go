package otptoken

import "time"

// Token is the per-credential OTP state carried inside the encrypted
// cookie. Optional fields use their zero value for "absent"; the valid
// combinations are:
//
//   - Code present: Attempts in [1, MaxAttempts]; ResendBlockUntil and
//     CodeBlockUntil each present or absent.
//   - Code absent: the token is blocked. Only Credential and ExpiresAt
//     survive; no resend or verify is possible for the rest of its life.
type Token struct {
	Credential       string
	ExpiresAt        time.Time
	Code             string
	Attempts         int
	ResendBlockUntil time.Time
	CodeBlockUntil   time.Time
}

// Blocked reports whether the token has permanently lost its code.
func (t *Token) Blocked() bool {
	return t.Code == ""
}

// Block strips the code, attempts and cool-down fields, leaving only the
// credential and expiry. The transition is irreversible for this token.
func (t *Token) Block() {
	t.Code = ""
	t.Attempts = 0
	t.ResendBlockUntil = time.Time{}
	t.CodeBlockUntil = time.Time{}
}

// Expired reports whether the token's lifetime has passed.
func (t *Token) Expired(now time.Time) bool {
	return !t.ExpiresAt.After(now)
}
