// Package delivery provides otpauth.Sender implementations: Postmark
// for production transactional email and a slog-backed sender for
// development.
package delivery
