package userstore

import (
	"context"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/dmitrymomot/cookieauth/pkg/pg"
	"github.com/dmitrymomot/cookieauth/pkg/randid"
	"github.com/dmitrymomot/cookieauth/pkg/sessionauth"
)

// Postgres is the production sessionauth.Store backed by a pgx pool.
// Multi-row mutations run in transactions; everything is keyed by the
// opaque session id, never by email alone, so a revoked session cannot
// mutate anything.
type Postgres struct {
	pool *pgxpool.Pool
}

// NewPostgres creates the store over an established pool. Schema comes
// from the goose migrations under migrations/.
func NewPostgres(pool *pgxpool.Pool) *Postgres {
	return &Postgres{pool: pool}
}

var _ sessionauth.Store = (*Postgres)(nil)

func (p *Postgres) FindByEmail(ctx context.Context, email string) ([]byte, bool, error) {
	var id []byte
	err := p.pool.QueryRow(ctx, `
		SELECT u.session_id
		FROM emails e
		JOIN user_emails ue ON ue.email_id = e.id
		JOIN users u ON u.id = ue.user_id
		WHERE e.email = $1`, email).Scan(&id)
	if pg.IsNotFound(err) {
		return nil, false, nil
	}
	if err != nil {
		return nil, false, err
	}
	return id, true, nil
}

func (p *Postgres) CreateUser(ctx context.Context, email string, sessionID []byte) (bool, error) {
	tx, err := p.pool.Begin(ctx)
	if err != nil {
		return false, err
	}
	defer tx.Rollback(ctx) //nolint:errcheck

	userID := uuid.New()
	ct, err := tx.Exec(ctx, `
		INSERT INTO users (id, session_id) VALUES ($1, $2)
		ON CONFLICT (session_id) DO NOTHING`, userID, sessionID)
	if err != nil {
		return false, err
	}
	if ct.RowsAffected() == 0 {
		return false, nil
	}

	// The upsert returns the existing row's id when the address is
	// already known (e.g. left behind by a deleted link).
	var emailID uuid.UUID
	err = tx.QueryRow(ctx, `
		INSERT INTO emails (id, email) VALUES ($1, $2)
		ON CONFLICT (email) DO UPDATE SET email = EXCLUDED.email
		RETURNING id`, uuid.New(), email).Scan(&emailID)
	if err != nil {
		return false, err
	}
	// A concurrent signup can win the race for the same address between
	// the caller's lookup and this insert; losing it is not a failure.
	if _, err := tx.Exec(ctx, `
		INSERT INTO user_emails (user_id, email_id, is_backup)
		VALUES ($1, $2, FALSE)`, userID, emailID); err != nil {
		if pg.IsUniqueViolation(err) {
			return false, nil
		}
		return false, err
	}
	return true, tx.Commit(ctx)
}

func (p *Postgres) Exists(ctx context.Context, sessionID []byte) (bool, error) {
	var exists bool
	err := p.pool.QueryRow(ctx,
		`SELECT EXISTS(SELECT 1 FROM users WHERE session_id = $1)`, sessionID).Scan(&exists)
	return exists, err
}

func (p *Postgres) UpdateDisplayName(ctx context.Context, sessionID []byte, name string) (int64, error) {
	ct, err := p.pool.Exec(ctx,
		`UPDATE users SET display_name = $2 WHERE session_id = $1`, sessionID, name)
	if err != nil {
		return 0, err
	}
	return ct.RowsAffected(), nil
}

func (p *Postgres) UpdateEmail(ctx context.Context, sessionID []byte, email string, backup bool) (int64, error) {
	tx, err := p.pool.Begin(ctx)
	if err != nil {
		return 0, err
	}
	defer tx.Rollback(ctx) //nolint:errcheck

	ct, err := tx.Exec(ctx, `
		DELETE FROM user_emails ue
		USING users u
		WHERE ue.user_id = u.id AND ue.is_backup = $2 AND u.session_id = $1`,
		sessionID, backup)
	if err != nil {
		return 0, err
	}
	// A primary address can only be replaced, never created here; a
	// backup address may be added where none existed.
	if ct.RowsAffected() == 0 && !backup {
		return 0, nil
	}

	var emailID uuid.UUID
	err = tx.QueryRow(ctx, `
		INSERT INTO emails (id, email) VALUES ($1, $2)
		ON CONFLICT (email) DO UPDATE SET email = EXCLUDED.email
		RETURNING id`, uuid.New(), email).Scan(&emailID)
	if err != nil {
		return 0, err
	}
	// The email-uniqueness constraint keeps a concurrently claimed
	// address from being stolen: the insert simply affects zero rows.
	ct, err = tx.Exec(ctx, `
		INSERT INTO user_emails (user_id, email_id, is_backup)
		SELECT u.id, $2, $3 FROM users u WHERE u.session_id = $1
		ON CONFLICT (email_id) DO NOTHING`,
		sessionID, emailID, backup)
	if err != nil {
		return 0, err
	}
	affected := ct.RowsAffected()
	if affected == 0 {
		return 0, nil
	}
	return affected, tx.Commit(ctx)
}

func (p *Postgres) RotateSessionID(ctx context.Context, oldID, newID []byte) (int64, error) {
	ct, err := p.pool.Exec(ctx,
		`UPDATE users SET session_id = $2 WHERE session_id = $1`, oldID, newID)
	if err != nil {
		return 0, err
	}
	return ct.RowsAffected(), nil
}

func (p *Postgres) Invalidate(ctx context.Context, sessionID []byte) (int64, error) {
	newID, err := randid.New(sessionauth.IDSize)
	if err != nil {
		return 0, err
	}
	return p.RotateSessionID(ctx, sessionID, newID)
}

func (p *Postgres) DeleteAccount(ctx context.Context, sessionID []byte) (int64, error) {
	tx, err := p.pool.Begin(ctx)
	if err != nil {
		return 0, err
	}
	defer tx.Rollback(ctx) //nolint:errcheck

	if _, err := tx.Exec(ctx, `
		DELETE FROM emails
		WHERE id IN (
			SELECT ue.email_id FROM user_emails ue
			JOIN users u ON u.id = ue.user_id
			WHERE u.session_id = $1
		)`, sessionID); err != nil {
		return 0, err
	}
	ct, err := tx.Exec(ctx, `DELETE FROM users WHERE session_id = $1`, sessionID)
	if err != nil {
		return 0, err
	}
	return ct.RowsAffected(), tx.Commit(ctx)
}

func (p *Postgres) SwapEmails(ctx context.Context, sessionID []byte) (int64, error) {
	ct, err := p.pool.Exec(ctx, `
		UPDATE user_emails ue SET is_backup = NOT ue.is_backup
		FROM users u
		WHERE ue.user_id = u.id AND u.session_id = $1`, sessionID)
	if err != nil {
		return 0, err
	}
	return ct.RowsAffected(), nil
}

func (p *Postgres) DeleteBackupEmail(ctx context.Context, sessionID []byte) (int64, error) {
	tx, err := p.pool.Begin(ctx)
	if err != nil {
		return 0, err
	}
	defer tx.Rollback(ctx) //nolint:errcheck

	var emailID uuid.UUID
	err = tx.QueryRow(ctx, `
		DELETE FROM user_emails ue
		USING users u
		WHERE ue.user_id = u.id AND ue.is_backup AND u.session_id = $1
		RETURNING ue.email_id`, sessionID).Scan(&emailID)
	if pg.IsNotFound(err) {
		return 0, nil
	}
	if err != nil {
		return 0, err
	}
	if _, err := tx.Exec(ctx, `DELETE FROM emails WHERE id = $1`, emailID); err != nil {
		return 0, err
	}
	return 1, tx.Commit(ctx)
}

func (p *Postgres) IsEmailTaken(ctx context.Context, sessionID []byte, email string) (bool, bool, error) {
	var taken, owned bool
	err := p.pool.QueryRow(ctx, `
		SELECT
			EXISTS(
				SELECT 1 FROM emails e
				JOIN user_emails ue ON ue.email_id = e.id
				WHERE e.email = $2
			),
			EXISTS(SELECT 1 FROM users WHERE session_id = $1)`,
		sessionID, email).Scan(&taken, &owned)
	if err != nil {
		return true, false, err
	}
	return taken, owned, nil
}
