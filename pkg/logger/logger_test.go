package logger_test

import (
	"bytes"
	"encoding/json"
	"log/slog"
	"strings"
	"testing"

	"github.com/dmitrymomot/cookieauth/pkg/logger"

	"github.com/stretchr/testify/require"
)

func TestNewJSONOutput(t *testing.T) {
	t.Parallel()
	var buf bytes.Buffer

	log := logger.New(
		logger.WithOutput(&buf),
		logger.WithService("cookieauth"),
		logger.WithAttr(slog.String("extra", "x")),
	)
	log.Info("hello")

	var record map[string]any
	require.NoError(t, json.Unmarshal(buf.Bytes(), &record))
	require.Equal(t, "hello", record["msg"])
	require.Equal(t, "cookieauth", record["service"])
	require.Equal(t, "x", record["extra"])
}

func TestNewLevelFiltering(t *testing.T) {
	t.Parallel()
	var buf bytes.Buffer

	log := logger.New(logger.WithOutput(&buf), logger.WithLevel(slog.LevelWarn))
	log.Info("dropped")
	log.Warn("kept")

	require.NotContains(t, buf.String(), "dropped")
	require.Contains(t, buf.String(), "kept")
}

func TestDevelopmentUsesText(t *testing.T) {
	t.Parallel()
	var buf bytes.Buffer

	log := logger.New(logger.WithOutput(&buf), logger.WithDevelopment())
	log.Debug("visible")

	out := buf.String()
	require.Contains(t, out, "visible")
	require.False(t, strings.HasPrefix(out, "{"))
}

func TestWithFormatPanicsOnGarbage(t *testing.T) {
	t.Parallel()
	require.Panics(t, func() {
		logger.New(logger.WithFormat(logger.Format("yaml")))
	})
}

func TestCredentialMasking(t *testing.T) {
	t.Parallel()

	tests := []struct {
		in   string
		want string
	}{
		{"alice@example.com", "a***@example.com"},
		{"a@b.c", "a***@b.c"},
		{"noatsign", "n***"},
		{"", ""},
	}
	for _, tt := range tests {
		require.Equal(t, tt.want, logger.Credential(tt.in).Value.String(), "input %q", tt.in)
	}
}

func TestErrorAttr(t *testing.T) {
	t.Parallel()
	require.True(t, logger.Error(nil).Equal(slog.Attr{}))
	require.Equal(t, "error", logger.Error(assertErr{}).Key)
}

type assertErr struct{}

func (assertErr) Error() string { return "boom" }
