package otpauth

import "time"

// Status classifies an operation outcome for the transport layer. The
// generic failure status deliberately covers many distinct causes so
// responses leak nothing about which check fired.
type Status int

const (
	// StatusNotFound is the uniform failure outcome.
	StatusNotFound Status = iota

	// StatusOK is success with a response body.
	StatusOK

	// StatusNoContent is success without a body.
	StatusNoContent

	// StatusForbidden is a rejected attempt that may carry retry
	// information in the body.
	StatusForbidden
)

// Result carries everything the transport layer needs to answer a
// request: the outcome, an optional body of comma-joined base-36
// second counts, and the cookie directive.
type Result struct {
	Status Status

	// Body holds remaining-seconds values encoded in base 36, joined
	// with commas. Empty on failure.
	Body string

	// Cookie is the new cookie value when CookieSet is true.
	Cookie string

	// CookieSet directs the transport to (re)write the cookie.
	CookieSet bool

	// CookieClear directs the transport to drop the cookie. Set and
	// clear are mutually exclusive.
	CookieClear bool

	// CookieMaxAge is the lifetime for a written cookie.
	CookieMaxAge time.Duration
}

// VerifyResult extends Result with the verification outcome. Credential
// is only populated when Verified is true; starting a session with it is
// the caller's job.
type VerifyResult struct {
	Result

	Verified   bool
	Credential string
}
