package sessionauth

import (
	"strings"
	"time"

	"github.com/dmitrymomot/cookieauth/pkg/compact"
	"github.com/dmitrymomot/cookieauth/pkg/randid"
)

// IDSize is the raw byte length of a durable session identifier.
const IDSize = randid.DefaultSize

// idLen is the base64url text length of a durable session identifier.
var idLen = randid.EncodedLen(IDSize)

// recordSep joins record fields on the wire.
const recordSep = ","

// Record is the cookie-local session state. The durable identity lives
// in the external store; the cookie carries only its identifier plus
// three timestamps:
//
//   - DEKRotateAt: when the envelope must be re-keyed even if the
//     wrapping key is still current.
//   - FetchedAt: the session's creation time. Set once, re-sent
//     unchanged on every save.
//   - LastSeenAt: refreshed to now on every save; drives the idle
//     timeout and the minimum inter-request interval.
type Record struct {
	ID          string
	DEKRotateAt time.Time
	FetchedAt   time.Time
	LastSeenAt  time.Time
}

// Validate enforces the structural invariants as of now. A violation in
// authenticated content is evidence of key compromise, so callers treat
// it as an integrity signal rather than a plain decode failure.
func (r Record) Validate(now time.Time, maxAge time.Duration) error {
	if !randid.Valid(r.ID, idLen) {
		return ErrInvalidRecord
	}
	if r.DEKRotateAt.IsZero() || r.FetchedAt.IsZero() || r.LastSeenAt.IsZero() {
		return ErrInvalidRecord
	}
	// A rotation date further out than a fresh save could produce is a
	// forgery.
	if r.DEKRotateAt.Sub(now) > maxAge {
		return ErrInvalidRecord
	}
	if r.LastSeenAt.After(r.DEKRotateAt) || r.FetchedAt.After(r.LastSeenAt) || r.LastSeenAt.After(now) {
		return ErrInvalidRecord
	}
	return nil
}

// encodeRecord serializes a record to the comma-joined wire form with
// base-36 millisecond timestamps.
func encodeRecord(r Record) string {
	return strings.Join([]string{
		r.ID,
		compact.Encode(r.DEKRotateAt.UnixMilli()),
		compact.Encode(r.FetchedAt.UnixMilli()),
		compact.Encode(r.LastSeenAt.UnixMilli()),
	}, recordSep)
}

// decodeRecord parses the wire form. Shape errors only; Validate covers
// the semantic invariants.
func decodeRecord(s string) (Record, error) {
	parts := strings.Split(s, recordSep)
	if len(parts) != 4 {
		return Record{}, ErrInvalidRecord
	}
	r := Record{ID: parts[0]}
	for i, dst := range []*time.Time{&r.DEKRotateAt, &r.FetchedAt, &r.LastSeenAt} {
		ms, err := compact.Decode(parts[i+1])
		if err != nil {
			return Record{}, ErrInvalidRecord
		}
		*dst = time.UnixMilli(ms)
	}
	return r, nil
}
