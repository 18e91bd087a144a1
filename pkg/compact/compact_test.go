package compact_test

import (
	"testing"
	"time"

	"github.com/dmitrymomot/cookieauth/pkg/compact"

	"github.com/stretchr/testify/require"
)

func TestRoundTrip(t *testing.T) {
	t.Parallel()

	values := []int64{0, 1, 35, 36, 1234567890, time.Now().UnixMilli()}
	for _, v := range values {
		got, err := compact.Decode(compact.Encode(v))
		require.NoError(t, err)
		require.Equal(t, v, got)
	}
}

func TestDecodeRejects(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name string
		in   string
	}{
		{"empty", ""},
		{"negative", "-1z"},
		{"invalid charset", "z!z"},
		{"explicit sign", "+1"},
		{"uppercase", "Z1"},
		{"overflow", "zzzzzzzzzzzzzzzzzzzzzzzz"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			_, err := compact.Decode(tt.in)
			require.ErrorIs(t, err, compact.ErrMalformed)
		})
	}
}
