package analysis

import (
	"encoding/hex"
	"fmt"

	"github.com/nao1215/udpscope/internal/model"
	"golang.org/x/crypto/sha3"
)

// digestSize is the number of SHA3-256 bytes kept in AnalysisReport.Digest.
const digestSize = 16

// Engine produces AnalysisReports. It holds no mutable state, so a single
// Engine can be shared by any number of goroutines and calling Analyze
// twice on the same bytes yields equal reports.
type Engine struct {
	classifier *Classifier
}

// EngineOption configures an Engine.
type EngineOption func(*Engine)

// WithClassifier sets the classifier used by the engine.
func WithClassifier(c *Classifier) EngineOption {
	return func(e *Engine) {
		if c != nil {
			e.classifier = c
		}
	}
}

// NewEngine creates an Engine. Without options it uses NewClassifier().
func NewEngine(opts ...EngineOption) *Engine {
	e := &Engine{}
	for _, opt := range opts {
		opt(e)
	}
	if e.classifier == nil {
		e.classifier = NewClassifier()
	}
	return e
}

// Classifier returns the classifier used by the engine.
func (e *Engine) Classifier() *Classifier {
	return e.classifier
}

// Analyze interprets payload. It is defined for every byte sequence,
// including nil and empty, and never returns an error.
//
// A report that violates its own invariants can only come from a bug in
// this package. Analyze panics in that case instead of letting a corrupt
// report reach the statistics.
func (e *Engine) Analyze(payload []byte) *model.AnalysisReport {
	c := e.classifier.Classify(payload)

	report := &model.AnalysisReport{
		Size:             len(payload),
		PossibleFormats:  c.PossibleFormats,
		Text:             c.Text,
		JSON:             c.JSON,
		PrintableRatio:   c.PrintableRatio,
		IntegerViews:     Reinterpret(payload),
		Hex:              hex.EncodeToString(payload),
		Digest:           Digest(payload),
		EncodingAttempts: c.EncodingAttempts,
	}

	if err := report.Validate(); err != nil {
		panic(fmt.Sprintf("analysis: report invariant violated: %v", err))
	}
	return report
}

// Digest returns a short hex SHA3-256 fingerprint of payload.
func Digest(payload []byte) string {
	sum := sha3.Sum256(payload)
	return hex.EncodeToString(sum[:digestSize])
}
