package analysis

import (
	"bytes"
	"encoding/json"
	"fmt"
	"math/rand/v2"
	"testing"

	"github.com/google/go-cmp/cmp"
	"github.com/nao1215/udpscope/internal/model"
)

// TestClassify tests classification of representative payloads.
func TestClassify(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name         string
		payload      []byte
		wantFormats  model.FormatSet
		wantEncoding string
		wantJSON     any
		hasJSON      bool
	}{
		{
			name:        "empty payload is binary only",
			payload:     []byte{},
			wantFormats: model.NewFormatSet(model.FormatBinary),
		},
		{
			name:        "nil payload is binary only",
			payload:     nil,
			wantFormats: model.NewFormatSet(model.FormatBinary),
		},
		{
			name:         "plain text",
			payload:      []byte("Hello, UDP World!"),
			wantFormats:  model.NewFormatSet(model.FormatText),
			wantEncoding: EncodingUTF8,
		},
		{
			name:         "json object",
			payload:      []byte(`{"a":1}`),
			wantFormats:  model.NewFormatSet(model.FormatText, model.FormatJSON),
			wantEncoding: EncodingUTF8,
			wantJSON:     map[string]any{"a": json.Number("1")},
			hasJSON:      true,
		},
		{
			name:         "json null is json",
			payload:      []byte("null"),
			wantFormats:  model.NewFormatSet(model.FormatText, model.FormatJSON),
			wantEncoding: EncodingUTF8,
			wantJSON:     nil,
			hasJSON:      true,
		},
		{
			name:         "bare number is json",
			payload:      []byte("42\n"),
			wantFormats:  model.NewFormatSet(model.FormatText, model.FormatJSON),
			wantEncoding: EncodingUTF8,
			wantJSON:     json.Number("42"),
			hasJSON:      true,
		},
		{
			name:         "integers beyond float precision stay exact",
			payload:      []byte(`{"id":12345678901234567890,"seq":9007199254740993}`),
			wantFormats:  model.NewFormatSet(model.FormatText, model.FormatJSON),
			wantEncoding: EncodingUTF8,
			wantJSON: map[string]any{
				"id":  json.Number("12345678901234567890"),
				"seq": json.Number("9007199254740993"),
			},
			hasJSON: true,
		},
		{
			name:         "two json documents are text only",
			payload:      []byte(`{"a":1} {"b":2}`),
			wantFormats:  model.NewFormatSet(model.FormatText),
			wantEncoding: EncodingUTF8,
		},
		{
			name:         "json with trailing whitespace is json",
			payload:      []byte("[1, 2, 3, 4]\n"),
			wantFormats:  model.NewFormatSet(model.FormatText, model.FormatJSON),
			wantEncoding: EncodingUTF8,
			wantJSON:     []any{json.Number("1"), json.Number("2"), json.Number("3"), json.Number("4")},
			hasJSON:      true,
		},
		{
			name:         "json with trailing garbage is text only",
			payload:      []byte(`{"a":1} trailing`),
			wantFormats:  model.NewFormatSet(model.FormatText),
			wantEncoding: EncodingUTF8,
		},
		{
			name:         "mixed control and high bytes are binary",
			payload:      []byte{0, 1, 2, 3, 255, 254},
			wantFormats:  model.NewFormatSet(model.FormatBinary),
			wantEncoding: EncodingLatin1,
		},
		{
			name:         "all zero bytes are binary",
			payload:      make([]byte, 16),
			wantFormats:  model.NewFormatSet(model.FormatBinary),
			wantEncoding: EncodingUTF8,
		},
		{
			name:         "big endian integer is binary",
			payload:      []byte{0, 0, 0, 42},
			wantFormats:  model.NewFormatSet(model.FormatBinary),
			wantEncoding: EncodingUTF8,
		},
		{
			name:         "multibyte utf-8 below threshold is binary",
			payload:      []byte("Hello 世界! 🌍"),
			wantFormats:  model.NewFormatSet(model.FormatBinary),
			wantEncoding: EncodingUTF8,
		},
		{
			name:         "whitespace counts as printable",
			payload:      []byte("line one\r\n\tline two\n"),
			wantFormats:  model.NewFormatSet(model.FormatText),
			wantEncoding: EncodingUTF8,
		},
	}

	c := NewClassifier()
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()

			got := c.Classify(tt.payload)

			if got.PossibleFormats != tt.wantFormats {
				t.Errorf("formats = %s, want %s", got.PossibleFormats, tt.wantFormats)
			}

			if tt.wantEncoding == "" {
				if got.Text != nil {
					t.Errorf("expected no text interpretation, got %+v", got.Text)
				}
			} else {
				if got.Text == nil {
					t.Fatalf("expected text interpretation with encoding %q", tt.wantEncoding)
				}
				if got.Text.Encoding != tt.wantEncoding {
					t.Errorf("encoding = %q, want %q", got.Text.Encoding, tt.wantEncoding)
				}
			}

			if tt.hasJSON {
				if got.JSON == nil {
					t.Fatal("expected json value")
				}
				if diff := cmp.Diff(tt.wantJSON, got.JSON.Value); diff != "" {
					t.Errorf("json value mismatch (-want +got):\n%s", diff)
				}
			} else if got.JSON != nil {
				t.Errorf("expected no json value, got %v", got.JSON.Value)
			}
		})
	}
}

// TestClassifyEmptyRatio verifies the empty payload conventions.
func TestClassifyEmptyRatio(t *testing.T) {
	t.Parallel()

	got := NewClassifier().Classify(nil)
	if got.PrintableRatio != 1.0 {
		t.Errorf("expected ratio 1.0, got %f", got.PrintableRatio)
	}
	if got.JSON != nil {
		t.Error("expected no json value for empty payload")
	}
	if len(got.EncodingAttempts) != 0 {
		t.Errorf("expected no encoding attempts, got %v", got.EncodingAttempts)
	}
}

// TestClassifyLatin1JSON verifies that JSON whose strings contain Latin-1
// bytes is still text and json when the ratio clears the threshold.
func TestClassifyLatin1JSON(t *testing.T) {
	t.Parallel()

	// "café" with é as the single Latin-1 byte 0xE9, which is invalid UTF-8.
	payload := []byte(`{"name":"caf` + "\xe9" + `","city":"Paris"}`)

	got := NewClassifier().Classify(payload)

	if got.Text == nil || got.Text.Encoding != EncodingLatin1 {
		t.Fatalf("expected latin-1 decode, got %+v", got.Text)
	}
	want := model.NewFormatSet(model.FormatText, model.FormatJSON)
	if got.PossibleFormats != want {
		t.Errorf("formats = %s, want %s", got.PossibleFormats, want)
	}
	if got.JSON == nil {
		t.Fatal("expected json value")
	}
	obj, ok := got.JSON.Value.(map[string]any)
	if !ok {
		t.Fatalf("expected object, got %T", got.JSON.Value)
	}
	if obj["name"] != "café" {
		t.Errorf("expected decoded name 'café', got %v", obj["name"])
	}

	wantAttempts := []model.EncodingAttempt{
		{Encoding: EncodingUTF8, Success: false},
		{Encoding: EncodingASCII, Success: false},
		{Encoding: EncodingLatin1, Success: true},
	}
	if diff := cmp.Diff(wantAttempts, got.EncodingAttempts); diff != "" {
		t.Errorf("attempts mismatch (-want +got):\n%s", diff)
	}
}

// TestClassifyNeverEmpty checks that random payloads always yield at least
// one format and that json never appears without text.
func TestClassifyNeverEmpty(t *testing.T) {
	t.Parallel()

	c := NewClassifier()
	rng := rand.New(rand.NewPCG(1, 2))

	for i := range 2000 {
		payload := make([]byte, rng.IntN(64))
		for j := range payload {
			// Bias towards printable bytes so text and json paths are hit too.
			if rng.IntN(4) == 0 {
				payload[j] = byte(rng.IntN(256))
			} else {
				payload[j] = byte(0x20 + rng.IntN(0x5f))
			}
		}
		if i%10 == 0 {
			payload = fmt.Appendf(nil, `{"seq":%d}`, i)
		}

		got := c.Classify(payload)
		if got.PossibleFormats.IsEmpty() {
			t.Fatalf("empty formats for payload %x", payload)
		}
		if got.JSON != nil && !got.PossibleFormats.Has(model.FormatJSON) {
			t.Fatalf("json value without json format for payload %x", payload)
		}
		if got.PossibleFormats.Has(model.FormatJSON) && !got.PossibleFormats.Has(model.FormatText) {
			t.Fatalf("json without text for payload %x", payload)
		}
		if got.PrintableRatio < 0 || got.PrintableRatio > 1 {
			t.Fatalf("ratio %f out of range", got.PrintableRatio)
		}
	}
}

// TestClassifierOptions tests the functional options.
func TestClassifierOptions(t *testing.T) {
	t.Parallel()

	t.Run("defaults", func(t *testing.T) {
		t.Parallel()
		c := NewClassifier()
		if c.Threshold() != DefaultPrintableThreshold {
			t.Errorf("expected threshold %f, got %f", DefaultPrintableThreshold, c.Threshold())
		}
		if diff := cmp.Diff(DefaultEncodingNames, c.EncodingNames()); diff != "" {
			t.Errorf("encoding order mismatch (-want +got):\n%s", diff)
		}
	})

	t.Run("lower threshold admits multibyte text", func(t *testing.T) {
		t.Parallel()
		// 8 of the 18 bytes are printable ASCII.
		c := NewClassifier(WithPrintableThreshold(0.4))
		got := c.Classify([]byte("Hello 世界! 🌍"))
		if !got.PossibleFormats.Has(model.FormatText) {
			t.Errorf("expected text at threshold 0.4, got %s", got.PossibleFormats)
		}
	})

	t.Run("out of range threshold is ignored", func(t *testing.T) {
		t.Parallel()
		c := NewClassifier(WithPrintableThreshold(1.5), WithPrintableThreshold(0))
		if c.Threshold() != DefaultPrintableThreshold {
			t.Errorf("expected default threshold, got %f", c.Threshold())
		}
	})

	t.Run("ascii only table rejects high bytes", func(t *testing.T) {
		t.Parallel()
		c := NewClassifier(WithEncodings(ASCII))
		got := c.Classify([]byte("abc\xe9"))
		if got.Text != nil {
			t.Errorf("expected no text interpretation, got %+v", got.Text)
		}
		if got.PossibleFormats != model.NewFormatSet(model.FormatBinary) {
			t.Errorf("expected binary, got %s", got.PossibleFormats)
		}
	})

	t.Run("text-only predicate list never reports json", func(t *testing.T) {
		t.Parallel()
		c := NewClassifier(WithPredicates(TextPredicate()))
		got := c.Classify([]byte(`{"a":1}`))
		if got.PossibleFormats.Has(model.FormatJSON) {
			t.Errorf("did not expect json, got %s", got.PossibleFormats)
		}
		if got.JSON != nil {
			t.Error("did not expect json value")
		}
	})
}

// TestPrintableRatio tests the ratio helper directly.
func TestPrintableRatio(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name    string
		payload []byte
		want    float64
	}{
		{"empty", nil, 1.0},
		{"all printable", []byte("abc"), 1.0},
		{"all whitespace", []byte("\t\n\v\f\r "), 1.0},
		{"half printable", []byte{'a', 0x00}, 0.5},
		{"delete is not printable", []byte{0x7f}, 0},
		{"high bytes are not printable", bytes.Repeat([]byte{0xff}, 4), 0},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			if got := PrintableRatio(tt.payload); got != tt.want {
				t.Errorf("PrintableRatio = %f, want %f", got, tt.want)
			}
		})
	}
}
