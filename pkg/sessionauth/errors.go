package sessionauth

import "errors"

var (
	// ErrNoSession means the cookie is absent, undecryptable, or the
	// session idled out. The caller clears the cookie and treats the
	// request as anonymous.
	ErrNoSession = errors.New("sessionauth: no session")

	// ErrTooSoon means the request arrived inside the minimum
	// inter-request interval. It is ignored, not penalized: the caller
	// leaves the cookie untouched.
	ErrTooSoon = errors.New("sessionauth: request arrived too soon")

	// ErrIntegrityViolation means the authenticated cookie content broke
	// a structural invariant. The wrapping key has been evicted and the
	// durable identity invalidated on a best-effort basis.
	ErrIntegrityViolation = errors.New("sessionauth: session integrity violation")

	// ErrNoRowsAffected means a durable-store mutation matched nothing.
	// Pass-through operations never silently continue on it.
	ErrNoRowsAffected = errors.New("sessionauth: no rows affected")

	// ErrMissingDependency is returned by NewManager when a required
	// collaborator is nil.
	ErrMissingDependency = errors.New("sessionauth: missing dependency")

	// ErrInvalidConfig is returned by NewManager for an unusable
	// configuration.
	ErrInvalidConfig = errors.New("sessionauth: invalid config")

	// ErrInvalidRecord means a session record failed structural
	// validation.
	ErrInvalidRecord = errors.New("sessionauth: invalid session record")

	// ErrCreateAttemptsExceeded means user creation kept colliding on
	// fresh durable ids, which signals a broken entropy source.
	ErrCreateAttemptsExceeded = errors.New("sessionauth: too many attempts to create a user")
)
