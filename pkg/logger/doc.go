// Package logger builds configured slog.Logger instances and provides
// attribute helpers for the domain, including credential masking so
// email addresses never land in log output verbatim.
package logger
