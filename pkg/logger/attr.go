package logger

import (
	"log/slog"
	"strings"
)

// Error creates an attribute for a single error under the key "error".
// Nil errors yield an empty attribute.
func Error(err error) slog.Attr {
	if err == nil {
		return slog.Attr{}
	}
	return slog.Any("error", err)
}

// Component records the component name under the key "component".
func Component(name string) slog.Attr {
	return slog.String("component", name)
}

// KEKID records a wrapping-key identifier under the key "kek_id". Key
// ids are opaque and safe to log.
func KEKID(id string) slog.Attr {
	return slog.String("kek_id", id)
}

// Credential records a masked credential under the key "credential".
// Only the first character and the domain survive, so log output never
// holds a full address.
func Credential(credential string) slog.Attr {
	return slog.String("credential", mask(credential))
}

func mask(credential string) string {
	at := strings.LastIndexByte(credential, '@')
	if at <= 0 {
		if credential == "" {
			return ""
		}
		return credential[:1] + "***"
	}
	return credential[:1] + "***" + credential[at:]
}
