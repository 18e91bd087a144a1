package delivery

import (
	"context"
	"errors"
	"fmt"

	"github.com/mrz1836/postmark"

	"github.com/dmitrymomot/cookieauth/pkg/otpauth"
)

// PostmarkSender delivers one-time codes over Postmark's transactional
// API. Tracking stays disabled: a sign-in code email is not marketing
// material.
type PostmarkSender struct {
	client *postmark.Client
	cfg    Config
}

var _ otpauth.Sender = (*PostmarkSender)(nil)

// NewPostmarkSender creates the sender, failing fast on missing tokens
// rather than letting a broken service start.
func NewPostmarkSender(cfg Config) (*PostmarkSender, error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return &PostmarkSender{
		client: postmark.NewClient(cfg.PostmarkServerToken, cfg.PostmarkAccountToken),
		cfg:    cfg,
	}, nil
}

// SendCode sends the code as a short transactional email.
func (s *PostmarkSender) SendCode(ctx context.Context, credential, code string) error {
	resp, err := s.client.SendEmail(ctx, postmark.Email{
		From:     s.cfg.SenderEmail,
		To:       credential,
		Subject:  s.cfg.Subject,
		Tag:      s.cfg.Tag,
		TextBody: fmt.Sprintf("Your sign-in code is %s. It expires in a few minutes; if you did not request it, ignore this email.", code),
	})
	if err != nil {
		return errors.Join(ErrSendFailed, err)
	}
	if resp.ErrorCode > 0 {
		return errors.Join(ErrSendFailed,
			fmt.Errorf("postmark error: %d - %s", resp.ErrorCode, resp.Message))
	}
	return nil
}
