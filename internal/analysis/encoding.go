package analysis

import (
	"errors"
	"fmt"
	"strings"
	"unicode/utf8"

	"golang.org/x/text/encoding/charmap"
)

// DecodeFunc decodes payload into a string.
// The boolean reports success; a failed decode is a normal outcome.
type DecodeFunc func(payload []byte) (string, bool)

// Encoding is one entry in the ordered decode table.
type Encoding struct {
	// Name is the label reported in TextInterpretation.Encoding.
	Name string

	// Decode attempts the decode.
	Decode DecodeFunc
}

// Encoding names understood by LookupEncoding.
const (
	EncodingUTF8        = "utf-8"
	EncodingASCII       = "ascii"
	EncodingLatin1      = "latin-1"
	EncodingWindows1252 = "windows-1252"
)

// DefaultEncodingNames is the default decode order. Latin-1 comes last
// because it accepts every byte value and therefore never fails.
var DefaultEncodingNames = []string{EncodingUTF8, EncodingASCII, EncodingLatin1}

// ErrUnknownEncoding is returned by LookupEncoding for unsupported names.
var ErrUnknownEncoding = errors.New("unknown encoding")

// UTF8 accepts only well-formed UTF-8.
var UTF8 = Encoding{Name: EncodingUTF8, Decode: decodeUTF8}

// ASCII accepts only bytes below 0x80.
var ASCII = Encoding{Name: EncodingASCII, Decode: decodeASCII}

// Latin1 maps each byte to the code point of the same value.
var Latin1 = Encoding{Name: EncodingLatin1, Decode: charmapDecoder(charmap.ISO8859_1)}

// Windows1252 is the Windows superset of Latin-1. It is not in the
// default table but can be selected through configuration.
var Windows1252 = Encoding{Name: EncodingWindows1252, Decode: charmapDecoder(charmap.Windows1252)}

// DefaultEncodings returns a fresh copy of the default decode table.
func DefaultEncodings() []Encoding {
	return []Encoding{UTF8, ASCII, Latin1}
}

// LookupEncoding resolves an encoding by name.
// Common aliases such as "utf8" and "iso-8859-1" are accepted.
func LookupEncoding(name string) (Encoding, error) {
	switch strings.ToLower(strings.TrimSpace(name)) {
	case "utf-8", "utf8":
		return UTF8, nil
	case "ascii", "us-ascii":
		return ASCII, nil
	case "latin-1", "latin1", "iso-8859-1", "iso8859-1":
		return Latin1, nil
	case "windows-1252", "cp1252":
		return Windows1252, nil
	default:
		return Encoding{}, fmt.Errorf("%w: %q", ErrUnknownEncoding, name)
	}
}

// LookupEncodings resolves a list of names, preserving order.
func LookupEncodings(names []string) ([]Encoding, error) {
	encodings := make([]Encoding, 0, len(names))
	for _, name := range names {
		enc, err := LookupEncoding(name)
		if err != nil {
			return nil, err
		}
		encodings = append(encodings, enc)
	}
	return encodings, nil
}

func decodeUTF8(payload []byte) (string, bool) {
	if !utf8.Valid(payload) {
		return "", false
	}
	return string(payload), true
}

func decodeASCII(payload []byte) (string, bool) {
	for _, b := range payload {
		if b >= utf8.RuneSelf {
			return "", false
		}
	}
	return string(payload), true
}

// charmapDecoder adapts a single-byte charmap to a DecodeFunc.
// A new decoder is created per call because x/text decoders are stateful
// and the classifier must be safe for concurrent use.
func charmapDecoder(cm *charmap.Charmap) DecodeFunc {
	return func(payload []byte) (string, bool) {
		out, err := cm.NewDecoder().Bytes(payload)
		if err != nil {
			return "", false
		}
		return string(out), true
	}
}
