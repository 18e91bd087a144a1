// Package pg bootstraps the PostgreSQL layer: a retried pgx/v5 pool,
// goose migrations from an embedded filesystem, a healthcheck closure,
// and error classification helpers for unique-violation races.
package pg
