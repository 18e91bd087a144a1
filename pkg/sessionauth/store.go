package sessionauth

import "context"

// Store is the durable identity collaborator backing sessions: user,
// email and user-email-link records keyed by an opaque session
// identifier. Mutations report affected-row counts so the manager can
// distinguish a no-op from an applied change; it never silently
// continues on zero.
//
// Implementations live in pkg/userstore.
type Store interface {
	// FindByEmail returns the durable session id of the user owning
	// email, whether as primary or backup address.
	FindByEmail(ctx context.Context, email string) (sessionID []byte, found bool, err error)

	// CreateUser creates a user with sessionID and links email as its
	// primary address. Reports false on a session id collision so the
	// caller can retry with fresh entropy.
	CreateUser(ctx context.Context, email string, sessionID []byte) (bool, error)

	// Exists reports whether a user with sessionID exists.
	Exists(ctx context.Context, sessionID []byte) (bool, error)

	// UpdateDisplayName sets the display name.
	UpdateDisplayName(ctx context.Context, sessionID []byte, name string) (int64, error)

	// UpdateEmail replaces the primary or backup address. Replacing an
	// absent backup address is an insert; replacing an absent primary
	// address is a no-op.
	UpdateEmail(ctx context.Context, sessionID []byte, email string, backup bool) (int64, error)

	// RotateSessionID moves the user from oldID to newID.
	RotateSessionID(ctx context.Context, oldID, newID []byte) (int64, error)

	// Invalidate replaces the session id with store-generated random
	// bytes, cutting every outstanding cookie loose.
	Invalidate(ctx context.Context, sessionID []byte) (int64, error)

	// DeleteAccount removes the user and every email it owns.
	DeleteAccount(ctx context.Context, sessionID []byte) (int64, error)

	// SwapEmails flips the primary and backup roles of the user's
	// addresses.
	SwapEmails(ctx context.Context, sessionID []byte) (int64, error)

	// DeleteBackupEmail unlinks the backup address.
	DeleteBackupEmail(ctx context.Context, sessionID []byte) (int64, error)

	// IsEmailTaken reports whether email is claimed by any user. owned
	// is false when sessionID itself no longer resolves to a user.
	IsEmailTaken(ctx context.Context, sessionID []byte, email string) (taken, owned bool, err error)
}
