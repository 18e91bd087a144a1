package delivery

import "errors"

var (
	// ErrInvalidConfig is returned for unusable delivery configuration.
	ErrInvalidConfig = errors.New("delivery: invalid config")

	// ErrSendFailed wraps provider failures. The OTP flow aborts its
	// state transition on any send error.
	ErrSendFailed = errors.New("delivery: failed to send code")
)
