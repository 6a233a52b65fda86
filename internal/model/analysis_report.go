package model

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"io"
)

// AnalysisReport is the immutable interpretation of one payload.
// Its fields are the stable contract that report writers depend on.
//
// Invariants (checked by Validate):
//   - PossibleFormats is never empty; it is exactly {binary} when no
//     textual interpretation qualified
//   - JSON is non-nil only if PossibleFormats contains json
//   - PrintableRatio is within [0, 1]
//   - IntegerViews is non-nil only if Size >= 4
type AnalysisReport struct {
	// Size is the payload length in bytes.
	Size int `json:"size"`

	// PossibleFormats is the set of formats the payload qualified for.
	PossibleFormats FormatSet `json:"possible_formats"`

	// Text is the first successful decode, if any. It is present even when
	// the payload was not classified as text (e.g. a binary blob that only
	// decoded as Latin-1), so presenters can still show a best-effort view.
	Text *TextInterpretation `json:"text_interpretation,omitempty"`

	// JSON is the parsed document when the payload qualified as json.
	JSON *JSONValue `json:"json_value,omitempty"`

	// PrintableRatio is the fraction of printable ASCII bytes.
	PrintableRatio float64 `json:"printable_ratio"`

	// IntegerViews reinterprets the first four bytes as signed 32-bit
	// integers. Nil for payloads shorter than four bytes.
	IntegerViews *IntegerViews `json:"integer_views,omitempty"`

	// Hex is the lowercase hex encoding of the full payload.
	Hex string `json:"hex"`

	// Digest is a short SHA3-256 fingerprint of the payload, useful for
	// spotting repeated datagrams in a stream of reports.
	Digest string `json:"digest"`

	// EncodingAttempts records each encoding tried, in order, until the
	// first success.
	EncodingAttempts []EncodingAttempt `json:"encoding_attempts,omitempty"`
}

// TextInterpretation is a successful decode of the payload.
type TextInterpretation struct {
	// Encoding is the name of the encoding that decoded the payload.
	Encoding string `json:"encoding"`

	// Decoded is the decoded string.
	Decoded string `json:"decoded"`
}

// EncodingAttempt is the outcome of trying one encoding.
type EncodingAttempt struct {
	Encoding string `json:"encoding"`
	Success  bool   `json:"success"`
}

// IntegerViews holds big- and little-endian views of the same four bytes.
type IntegerViews struct {
	BigEndian    int32 `json:"be_i32"`
	LittleEndian int32 `json:"le_i32"`
}

// JSONValue wraps a parsed JSON document. Numbers are kept as
// json.Number so integers wider than 53 bits survive unchanged.
//
// Design decision: We wrap the value in a struct rather than storing `any`
// directly on the report because a payload of "null" is valid JSON whose
// parsed value is nil. The pointer distinguishes "not JSON" from "JSON null".
type JSONValue struct {
	Value any
}

// MarshalJSON encodes the wrapped value as-is.
func (v JSONValue) MarshalJSON() ([]byte, error) {
	return json.Marshal(v.Value)
}

// UnmarshalJSON decodes any JSON value into the wrapper.
func (v *JSONValue) UnmarshalJSON(data []byte) error {
	parsed, err := ParseJSONValue(data)
	if err != nil {
		return err
	}
	*v = *parsed
	return nil
}

// ParseJSONValue parses data as exactly one JSON value. Anything other than
// whitespace after the value is rejected with ErrTrailingJSON.
func ParseJSONValue(data []byte) (*JSONValue, error) {
	dec := json.NewDecoder(bytes.NewReader(data))
	dec.UseNumber()

	var v any
	if err := dec.Decode(&v); err != nil {
		return nil, err
	}
	if err := dec.Decode(new(json.RawMessage)); !errors.Is(err, io.EOF) {
		return nil, ErrTrailingJSON
	}
	return &JSONValue{Value: v}, nil
}

// IsText reports whether the payload qualified as text.
func (r *AnalysisReport) IsText() bool {
	return r.PossibleFormats.Has(FormatText)
}

// IsJSON reports whether the payload parsed as JSON.
func (r *AnalysisReport) IsJSON() bool {
	return r.PossibleFormats.Has(FormatJSON)
}

// IsBinary reports whether the payload was classified as binary.
func (r *AnalysisReport) IsBinary() bool {
	return r.PossibleFormats.Has(FormatBinary)
}

// Validate checks the report invariants.
// It returns the first violation found.
func (r *AnalysisReport) Validate() error {
	if r.Size < 0 {
		return fmt.Errorf("%w: %d", ErrNegativeSize, r.Size)
	}
	if r.PossibleFormats.IsEmpty() {
		return ErrNoFormats
	}
	if r.JSON != nil && !r.PossibleFormats.Has(FormatJSON) {
		return ErrOrphanJSON
	}
	if r.PrintableRatio < 0 || r.PrintableRatio > 1 {
		return fmt.Errorf("%w: %f", ErrPrintableRatioRange, r.PrintableRatio)
	}
	if r.IntegerViews != nil && r.Size < 4 {
		return fmt.Errorf("%w: %d bytes", ErrShortIntegerViews, r.Size)
	}
	return nil
}
