// Package userstore implements sessionauth.Store: users with a durable
// session identifier, a primary email and an optional backup email.
//
// Postgres is the production implementation (pgx pool; migrations ship
// under migrations/). Memory backs tests and single-process
// deployments. Both report affected-row counts so callers can tell a
// no-op from an applied mutation.
package userstore
