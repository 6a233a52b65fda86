package analysis

import (
	"github.com/nao1215/udpscope/internal/model"
)

// DefaultPrintableThreshold is the minimum printable ratio for a decoded
// payload to count as text. Binary data frequently decodes without error
// (Latin-1 accepts anything), so decoding alone is not enough.
const DefaultPrintableThreshold = 0.85

// Classification is the classifier output for one payload.
type Classification struct {
	PossibleFormats  model.FormatSet
	Text             *model.TextInterpretation
	JSON             *model.JSONValue
	PrintableRatio   float64
	EncodingAttempts []model.EncodingAttempt
}

// Evidence is what a Predicate sees when deciding whether a payload
// qualifies for its format. Predicates run in order, so Formats holds
// everything that qualified before the current predicate.
type Evidence struct {
	Payload        []byte
	Text           *model.TextInterpretation
	PrintableRatio float64
	Threshold      float64
	Formats        model.FormatSet

	// JSON may be filled in by a predicate that parses the payload.
	JSON *model.JSONValue
}

// Predicate decides membership of a single format.
type Predicate interface {
	// Format returns the format this predicate decides.
	Format() model.Format

	// Qualify reports whether the evidence qualifies for Format.
	Qualify(ev *Evidence) bool
}

// textPredicate qualifies decoded payloads that are mostly printable.
type textPredicate struct{}

func (textPredicate) Format() model.Format { return model.FormatText }

func (textPredicate) Qualify(ev *Evidence) bool {
	return len(ev.Payload) > 0 && ev.Text != nil && ev.PrintableRatio >= ev.Threshold
}

// jsonPredicate qualifies text that parses as exactly one JSON value.
// A parse failure only means "not JSON". Numbers stay json.Number.
type jsonPredicate struct{}

func (jsonPredicate) Format() model.Format { return model.FormatJSON }

func (jsonPredicate) Qualify(ev *Evidence) bool {
	if !ev.Formats.Has(model.FormatText) || ev.Text == nil {
		return false
	}
	v, err := model.ParseJSONValue([]byte(ev.Text.Decoded))
	if err != nil {
		return false
	}
	ev.JSON = v
	return true
}

// TextPredicate returns the default text predicate.
func TextPredicate() Predicate { return textPredicate{} }

// JSONPredicate returns the default JSON predicate.
func JSONPredicate() Predicate { return jsonPredicate{} }

// DefaultPredicates returns the default predicate order: text, then json.
func DefaultPredicates() []Predicate {
	return []Predicate{TextPredicate(), JSONPredicate()}
}

// Classifier guesses the formats and encoding of a payload.
// A Classifier is immutable after construction and safe for concurrent use.
type Classifier struct {
	encodings  []Encoding
	predicates []Predicate
	threshold  float64
}

// ClassifierOption configures a Classifier.
type ClassifierOption func(*Classifier)

// WithEncodings replaces the decode table. An empty list is ignored.
func WithEncodings(encodings ...Encoding) ClassifierOption {
	return func(c *Classifier) {
		if len(encodings) > 0 {
			c.encodings = append([]Encoding(nil), encodings...)
		}
	}
}

// WithPrintableThreshold sets the text threshold.
// Values outside (0, 1] are ignored.
func WithPrintableThreshold(threshold float64) ClassifierOption {
	return func(c *Classifier) {
		if threshold > 0 && threshold <= 1 {
			c.threshold = threshold
		}
	}
}

// WithPredicates replaces the predicate list. An empty list is ignored.
func WithPredicates(predicates ...Predicate) ClassifierOption {
	return func(c *Classifier) {
		if len(predicates) > 0 {
			c.predicates = append([]Predicate(nil), predicates...)
		}
	}
}

// NewClassifier creates a Classifier with the default encodings,
// predicates and threshold, then applies opts.
func NewClassifier(opts ...ClassifierOption) *Classifier {
	c := &Classifier{
		encodings:  DefaultEncodings(),
		predicates: DefaultPredicates(),
		threshold:  DefaultPrintableThreshold,
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// Threshold returns the configured printable threshold.
func (c *Classifier) Threshold() float64 {
	return c.threshold
}

// EncodingNames returns the decode order.
func (c *Classifier) EncodingNames() []string {
	names := make([]string, len(c.encodings))
	for i, enc := range c.encodings {
		names[i] = enc.Name
	}
	return names
}

// Classify interprets payload. It never fails: a payload that qualifies
// for nothing is classified as exactly {binary}.
func (c *Classifier) Classify(payload []byte) Classification {
	if len(payload) == 0 {
		return Classification{
			PossibleFormats: model.NewFormatSet(model.FormatBinary),
			PrintableRatio:  1.0,
		}
	}

	text, attempts := c.decode(payload)
	ev := &Evidence{
		Payload:        payload,
		Text:           text,
		PrintableRatio: PrintableRatio(payload),
		Threshold:      c.threshold,
	}

	for _, p := range c.predicates {
		if p.Qualify(ev) {
			ev.Formats = ev.Formats.With(p.Format())
		}
	}

	if !ev.Formats.Has(model.FormatText) && !ev.Formats.Has(model.FormatJSON) {
		ev.Formats = model.NewFormatSet(model.FormatBinary)
		ev.JSON = nil
	}
	if !ev.Formats.Has(model.FormatJSON) {
		ev.JSON = nil
	}

	return Classification{
		PossibleFormats:  ev.Formats,
		Text:             ev.Text,
		JSON:             ev.JSON,
		PrintableRatio:   ev.PrintableRatio,
		EncodingAttempts: attempts,
	}
}

// decode walks the encoding table and keeps the first success.
func (c *Classifier) decode(payload []byte) (*model.TextInterpretation, []model.EncodingAttempt) {
	attempts := make([]model.EncodingAttempt, 0, len(c.encodings))
	for _, enc := range c.encodings {
		decoded, ok := enc.Decode(payload)
		attempts = append(attempts, model.EncodingAttempt{Encoding: enc.Name, Success: ok})
		if ok {
			return &model.TextInterpretation{Encoding: enc.Name, Decoded: decoded}, attempts
		}
	}
	return nil, attempts
}

// PrintableRatio returns the fraction of bytes in the printable ASCII range
// 0x20-0x7E or one of the whitespace bytes \t \n \v \f \r.
// An empty payload has ratio 1.0.
func PrintableRatio(payload []byte) float64 {
	if len(payload) == 0 {
		return 1.0
	}
	printable := 0
	for _, b := range payload {
		if isPrintableByte(b) {
			printable++
		}
	}
	return float64(printable) / float64(len(payload))
}

func isPrintableByte(b byte) bool {
	switch {
	case b >= 0x20 && b <= 0x7e:
		return true
	case b >= '\t' && b <= '\r':
		return true
	default:
		return false
	}
}
