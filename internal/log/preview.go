package log

import (
	"log/slog"
	"strconv"
)

// MaxPreviewBytes is the number of payload bytes shown in a Preview.
const MaxPreviewBytes = 64

// Preview returns a slog.LogValuer that renders the start of a payload as
// a quoted Go string. Non-printable and invalid UTF-8 bytes are escaped,
// and payloads longer than MaxPreviewBytes are cut with a "..." suffix.
// The payload is only formatted when the record is actually emitted.
func Preview(payload []byte) slog.LogValuer {
	return preview(payload)
}

type preview []byte

// LogValue implements slog.LogValuer.
func (p preview) LogValue() slog.Value {
	if len(p) <= MaxPreviewBytes {
		return slog.StringValue(strconv.Quote(string(p)))
	}
	return slog.StringValue(strconv.Quote(string(p[:MaxPreviewBytes])) + "...")
}
