package otptoken

import "errors"

var (
	// ErrInvalidToken covers every decode rejection: malformed shape,
	// forged expiry, bad credential, wrong code format, inconsistent
	// optional fields. Callers cannot distinguish which check failed.
	ErrInvalidToken = errors.New("otptoken: invalid token")

	// ErrInvalidList indicates a token list whose shape is wrong (missing
	// replay id or no entries).
	ErrInvalidList = errors.New("otptoken: invalid token list")

	// ErrInvalidPolicy indicates inconsistent policy configuration.
	ErrInvalidPolicy = errors.New("otptoken: invalid policy")
)
