package delivery

import (
	"context"
	"log/slog"

	"github.com/dmitrymomot/cookieauth/pkg/otpauth"
)

// DevSender logs codes instead of sending them. For development and
// tests only; the code ends up in plain text in the log output.
type DevSender struct {
	log *slog.Logger
}

var _ otpauth.Sender = (*DevSender)(nil)

// NewDevSender creates a logging sender. A nil logger falls back to
// slog.Default.
func NewDevSender(log *slog.Logger) *DevSender {
	if log == nil {
		log = slog.Default()
	}
	return &DevSender{log: log}
}

func (s *DevSender) SendCode(ctx context.Context, credential, code string) error {
	s.log.InfoContext(ctx, "one-time code issued",
		slog.String("credential", credential),
		slog.String("code", code))
	return nil
}
