package delivery

import "fmt"

// Config holds code delivery settings. The Postmark tokens are optional
// so development environments can run on the dev sender.
type Config struct {
	PostmarkServerToken  string `env:"POSTMARK_SERVER_TOKEN"`
	PostmarkAccountToken string `env:"POSTMARK_ACCOUNT_TOKEN"`
	SenderEmail          string `env:"SENDER_EMAIL,required"`
	Subject              string `env:"OTP_EMAIL_SUBJECT" envDefault:"Your sign-in code"`
	Tag                  string `env:"OTP_EMAIL_TAG" envDefault:"otp"`
}

// Validate checks the fields required for production delivery.
func (c Config) Validate() error {
	if c.PostmarkServerToken == "" {
		return fmt.Errorf("%w: PostmarkServerToken is required", ErrInvalidConfig)
	}
	if c.PostmarkAccountToken == "" {
		return fmt.Errorf("%w: PostmarkAccountToken is required", ErrInvalidConfig)
	}
	if c.SenderEmail == "" {
		return fmt.Errorf("%w: SenderEmail is required", ErrInvalidConfig)
	}
	return nil
}
