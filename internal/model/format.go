package model

import (
	"encoding/json"
	"fmt"
	"strings"
)

// Format is a payload format guess produced by the classifier.
//
// Design decision: We use iota-based constants rather than string constants
// so that a set of formats fits in a single bitmask (FormatSet). The String
// and MarshalText methods provide the stable lowercase names used in reports.
type Format int

const (
	// FormatText means the payload decoded under one of the configured
	// encodings and is mostly printable.
	FormatText Format = iota

	// FormatJSON means the decoded text parsed as a single JSON value.
	// It is only ever reported together with FormatText.
	FormatJSON

	// FormatBinary means no textual interpretation qualified.
	FormatBinary
)

// AllFormats lists every format in display order.
var AllFormats = []Format{FormatText, FormatJSON, FormatBinary}

// String returns the lowercase name of the format.
func (f Format) String() string {
	switch f {
	case FormatText:
		return "text"
	case FormatJSON:
		return "json"
	case FormatBinary:
		return "binary"
	default:
		return "unknown"
	}
}

// MarshalText implements encoding.TextMarshaler so that Format can be used
// as a JSON map key (see Statistics.FormatCounts).
func (f Format) MarshalText() ([]byte, error) {
	if f < FormatText || f > FormatBinary {
		return nil, fmt.Errorf("%w: %d", ErrUnknownFormat, int(f))
	}
	return []byte(f.String()), nil
}

// UnmarshalText implements encoding.TextUnmarshaler.
func (f *Format) UnmarshalText(text []byte) error {
	parsed, err := ParseFormat(string(text))
	if err != nil {
		return err
	}
	*f = parsed
	return nil
}

// ParseFormat converts a format name back into a Format.
// Matching is case-insensitive.
func ParseFormat(name string) (Format, error) {
	switch strings.ToLower(strings.TrimSpace(name)) {
	case "text":
		return FormatText, nil
	case "json":
		return FormatJSON, nil
	case "binary":
		return FormatBinary, nil
	default:
		return 0, fmt.Errorf("%w: %q", ErrUnknownFormat, name)
	}
}

// FormatSet is a set of formats stored as a bitmask.
// The zero value is the empty set.
type FormatSet uint8

// NewFormatSet returns a set containing the given formats.
func NewFormatSet(formats ...Format) FormatSet {
	var s FormatSet
	for _, f := range formats {
		s = s.With(f)
	}
	return s
}

// With returns a copy of the set with f added.
func (s FormatSet) With(f Format) FormatSet {
	return s | (1 << uint(f))
}

// Has reports whether f is in the set.
func (s FormatSet) Has(f Format) bool {
	return s&(1<<uint(f)) != 0
}

// IsEmpty reports whether the set has no members.
func (s FormatSet) IsEmpty() bool {
	return s == 0
}

// Len returns the number of formats in the set.
func (s FormatSet) Len() int {
	n := 0
	for _, f := range AllFormats {
		if s.Has(f) {
			n++
		}
	}
	return n
}

// Formats returns the members of the set in display order.
func (s FormatSet) Formats() []Format {
	formats := make([]Format, 0, len(AllFormats))
	for _, f := range AllFormats {
		if s.Has(f) {
			formats = append(formats, f)
		}
	}
	return formats
}

// Names returns the member names in display order.
func (s FormatSet) Names() []string {
	formats := s.Formats()
	names := make([]string, len(formats))
	for i, f := range formats {
		names[i] = f.String()
	}
	return names
}

// String joins the member names with ", ".
// The empty set renders as "unknown".
func (s FormatSet) String() string {
	if s.IsEmpty() {
		return "unknown"
	}
	return strings.Join(s.Names(), ", ")
}

// MarshalJSON encodes the set as an array of format names.
func (s FormatSet) MarshalJSON() ([]byte, error) {
	return json.Marshal(s.Names())
}

// UnmarshalJSON decodes an array of format names.
func (s *FormatSet) UnmarshalJSON(data []byte) error {
	var names []string
	if err := json.Unmarshal(data, &names); err != nil {
		return err
	}
	var set FormatSet
	for _, name := range names {
		f, err := ParseFormat(name)
		if err != nil {
			return err
		}
		set = set.With(f)
	}
	*s = set
	return nil
}
