package sessionauth

import "time"

// Config holds the session manager parameters.
type Config struct {
	// MaxAge is the session idle timeout, the cookie lifetime, and the
	// DEK rotation horizon.
	MaxAge time.Duration `env:"SESSION_MAX_AGE" envDefault:"720h"`

	// MinRequestInterval dampens duplicate and racing submissions:
	// requests arriving faster than this since the last valid access
	// are ignored rather than rejected.
	MinRequestInterval time.Duration `env:"SESSION_MIN_REQUEST_INTERVAL" envDefault:"200ms"`
}

// DefaultConfig returns the production defaults: 30 day sessions, 200ms
// minimum spacing.
func DefaultConfig() Config {
	return Config{
		MaxAge:             720 * time.Hour,
		MinRequestInterval: 200 * time.Millisecond,
	}
}

// Validate checks internal consistency of the configuration.
func (c Config) Validate() error {
	if c.MaxAge <= 0 || c.MinRequestInterval <= 0 || c.MinRequestInterval >= c.MaxAge {
		return ErrInvalidConfig
	}
	return nil
}
