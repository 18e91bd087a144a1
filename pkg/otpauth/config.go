package otpauth

import (
	"time"

	"github.com/dmitrymomot/cookieauth/pkg/otptoken"
)

// Config holds the OTP flow parameters. The zero value is not usable;
// load it from the environment or start from DefaultConfig.
type Config struct {
	// MaxAge is the lifetime of an issued token and of the cookie
	// carrying it.
	MaxAge time.Duration `env:"OTP_MAX_AGE" envDefault:"5m"`

	// ResendBlock is how long a credential must wait between sends.
	ResendBlock time.Duration `env:"OTP_RESEND_BLOCK" envDefault:"20s"`

	// CodeBlock is the cool-down scheduled after a wrong code once the
	// attempt budget falls to BlockThreshold or below.
	CodeBlock time.Duration `env:"OTP_CODE_BLOCK" envDefault:"20s"`

	// MaxAttempts is the per-token verification budget.
	MaxAttempts int `env:"OTP_MAX_ATTEMPTS" envDefault:"3"`

	// BlockThreshold is the attempts level at and below which wrong
	// codes start scheduling cool-downs.
	BlockThreshold int `env:"OTP_BLOCK_THRESHOLD" envDefault:"1"`

	// BlockSafetyMargin blocks a token outright when the remaining
	// lifetime past a scheduled cool-down would be this short or
	// shorter; a verify window that small is not worth keeping open.
	BlockSafetyMargin time.Duration `env:"OTP_BLOCK_SAFETY_MARGIN" envDefault:"2s"`

	// CodeLength is the exact length of generated codes.
	CodeLength int `env:"OTP_CODE_LENGTH" envDefault:"6"`

	// MaxCredentials caps how many credentials one cookie may hold
	// concurrent pending codes for.
	MaxCredentials int `env:"OTP_MAX_CREDENTIALS" envDefault:"3"`
}

// DefaultConfig returns the production defaults.
func DefaultConfig() Config {
	return Config{
		MaxAge:            5 * time.Minute,
		ResendBlock:       20 * time.Second,
		CodeBlock:         20 * time.Second,
		MaxAttempts:       3,
		BlockThreshold:    1,
		BlockSafetyMargin: 2 * time.Second,
		CodeLength:        6,
		MaxCredentials:    3,
	}
}

// Validate checks internal consistency of the configuration.
func (c Config) Validate() error {
	if err := c.policy().Validate(); err != nil {
		return err
	}
	if c.MaxCredentials < 1 {
		return otptoken.ErrInvalidPolicy
	}
	if c.BlockSafetyMargin < 0 || c.BlockSafetyMargin >= c.MaxAge {
		return otptoken.ErrInvalidPolicy
	}
	return nil
}

func (c Config) policy() otptoken.Policy {
	return otptoken.Policy{
		MaxAge:         c.MaxAge,
		ResendBlock:    c.ResendBlock,
		CodeBlock:      c.CodeBlock,
		MaxAttempts:    c.MaxAttempts,
		BlockThreshold: c.BlockThreshold,
		CodeLength:     c.CodeLength,
	}
}
