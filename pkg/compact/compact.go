package compact

import (
	"errors"
	"strconv"
)

// ErrMalformed indicates the input is not a valid compact integer.
var ErrMalformed = errors.New("compact: malformed value")

// Encode renders a non-negative integer in base-36.
func Encode(v int64) string {
	return strconv.FormatInt(v, 36)
}

// Decode parses a base-36 integer produced by Encode. Negative values are
// rejected: every wire field using this codec is a timestamp or a seconds
// count, so a negative value is tampering.
func Decode(s string) (int64, error) {
	if s == "" {
		return 0, ErrMalformed
	}
	// strconv accepts signs and uppercase; the wire format emits neither.
	for i := 0; i < len(s); i++ {
		c := s[i]
		if (c < '0' || c > '9') && (c < 'a' || c > 'z') {
			return 0, ErrMalformed
		}
	}
	v, err := strconv.ParseInt(s, 36, 64)
	if err != nil {
		return 0, ErrMalformed
	}
	return v, nil
}
