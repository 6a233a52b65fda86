package report

import (
	"encoding/json"
	"io"

	"github.com/nao1215/udpscope/internal/model"
)

// Record kinds used in the JSON envelope.
const (
	KindPacket   = "packet"
	KindSummary  = "summary"
	KindSessions = "sessions"
)

// JSONWriter outputs reports as JSON. By default each record is one
// compact line, so a listening session produces a JSON Lines stream that
// tools like jq can follow.
//
// Design decision: We use standard encoding/json because the model types
// carry their own MarshalJSON/MarshalText methods (formats, JSON values)
// and nothing here needs more than the standard encoder.
type JSONWriter struct {
	baseWriter

	// indent enables pretty-printed JSON output.
	indent bool

	// indentPrefix is the prefix for each line in indented output.
	indentPrefix string

	// indentString is the indentation string (typically "  " or "\t").
	indentString string
}

// JSONWriterOption configures a JSONWriter.
type JSONWriterOption func(*JSONWriter)

// WithIndent enables pretty-printed JSON output.
func WithIndent(prefix, indent string) JSONWriterOption {
	return func(w *JSONWriter) {
		w.indent = true
		w.indentPrefix = prefix
		w.indentString = indent
	}
}

// WithPrettyPrint enables pretty-printed JSON with default indentation.
// This is a convenience wrapper for WithIndent("", "  ").
func WithPrettyPrint() JSONWriterOption {
	return WithIndent("", "  ")
}

// NewJSONWriter creates a JSONWriter that outputs to the given writer.
func NewJSONWriter(output io.Writer, opts ...JSONWriterOption) *JSONWriter {
	w := &JSONWriter{baseWriter: newBaseWriter(output)}
	for _, opt := range opts {
		opt(w)
	}
	return w
}

// Envelope tags each JSON record with its kind. Exactly one of the
// payload fields is set, matching Kind.
type Envelope struct {
	Kind     string                 `json:"kind"`
	Packet   *model.ReceivedPacket  `json:"packet,omitempty"`
	Summary  *SummaryJSON           `json:"summary,omitempty"`
	Sessions []model.SessionSummary `json:"sessions,omitempty"`
}

// SummaryJSON adds the derived average to a model.Summary.
type SummaryJSON struct {
	model.Summary
	AveragePacketSize float64 `json:"average_packet_size"`
}

type sessionsRecord struct {
	Kind     string                 `json:"kind"`
	Sessions []model.SessionSummary `json:"sessions"`
}

// WritePacket outputs one packet record.
func (w *JSONWriter) WritePacket(pkt *model.ReceivedPacket) (int, error) {
	return w.writeJSON(Envelope{Kind: KindPacket, Packet: pkt})
}

// WriteSummary outputs one statistics record.
func (w *JSONWriter) WriteSummary(summary model.Summary) (int, error) {
	return w.writeJSON(Envelope{
		Kind: KindSummary,
		Summary: &SummaryJSON{
			Summary:           summary,
			AveragePacketSize: summary.AveragePacketSize(),
		},
	})
}

// WriteSessions outputs the session history as one record. An empty
// history is written as an empty array rather than omitted.
func (w *JSONWriter) WriteSessions(sessions []model.SessionSummary) (int, error) {
	if sessions == nil {
		sessions = []model.SessionSummary{}
	}
	return w.writeJSON(sessionsRecord{Kind: KindSessions, Sessions: sessions})
}

// writeJSON marshals the given value to JSON and writes it to the output.
func (w *JSONWriter) writeJSON(v any) (int, error) {
	var data []byte
	var err error

	if w.indent {
		data, err = json.MarshalIndent(v, w.indentPrefix, w.indentString)
	} else {
		data, err = json.Marshal(v)
	}
	if err != nil {
		return 0, err
	}

	data = append(data, '\n')
	return w.output.Write(data)
}
