package config_test

import (
	"testing"
	"time"

	"github.com/dmitrymomot/cookieauth/pkg/config"

	"github.com/stretchr/testify/require"
)

type testConfig struct {
	Name    string        `env:"CONFIG_TEST_NAME" envDefault:"fallback"`
	Timeout time.Duration `env:"CONFIG_TEST_TIMEOUT" envDefault:"5s"`
	Count   int           `env:"CONFIG_TEST_COUNT" envDefault:"3"`
}

func TestLoadDefaults(t *testing.T) {
	var cfg testConfig
	require.NoError(t, config.Load(&cfg))
	require.Equal(t, "fallback", cfg.Name)
	require.Equal(t, 5*time.Second, cfg.Timeout)
	require.Equal(t, 3, cfg.Count)
}

func TestLoadFromEnvironment(t *testing.T) {
	t.Setenv("CONFIG_TEST_NAME", "from-env")
	t.Setenv("CONFIG_TEST_TIMEOUT", "250ms")

	var cfg testConfig
	require.NoError(t, config.Load(&cfg))
	require.Equal(t, "from-env", cfg.Name)
	require.Equal(t, 250*time.Millisecond, cfg.Timeout)
}

func TestLoadNilPointer(t *testing.T) {
	require.ErrorIs(t, config.Load[testConfig](nil), config.ErrNilPointer)
}

func TestLoadParseFailure(t *testing.T) {
	t.Setenv("CONFIG_TEST_COUNT", "not-a-number")

	var cfg testConfig
	require.ErrorIs(t, config.Load(&cfg), config.ErrParsingConfig)
}

func TestMustLoadPanics(t *testing.T) {
	t.Setenv("CONFIG_TEST_COUNT", "garbage")

	require.Panics(t, func() {
		var cfg testConfig
		config.MustLoad(&cfg)
	})
}
