package otptoken

import "strings"

// listSep joins list elements; distinct from the per-entry field
// delimiter, and unreachable from credential content thanks to
// percent-encoding.
const listSep = ","

// EncodeList joins encoded token entries and the trailing replay id into
// the plaintext that gets sealed under the DEK.
func EncodeList(entries []string, replayID string) string {
	var b strings.Builder
	for _, e := range entries {
		b.WriteString(e)
		b.WriteString(listSep)
	}
	b.WriteString(replayID)
	return b.String()
}

// DecodeList splits a decrypted payload into encoded token entries and the
// trailing replay id. Entries are not decoded here; any element failing to
// decode later rejects the whole list.
func DecodeList(s string) (entries []string, replayID string, err error) {
	parts := strings.Split(s, listSep)
	if len(parts) < 2 {
		return nil, "", ErrInvalidList
	}
	replayID = parts[len(parts)-1]
	if replayID == "" {
		return nil, "", ErrInvalidList
	}
	return parts[:len(parts)-1], replayID, nil
}
