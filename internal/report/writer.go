package report

import (
	"fmt"
	"io"
	"net/netip"
	"sync"

	"github.com/nao1215/udpscope/internal/config"
	"github.com/nao1215/udpscope/internal/model"
)

// Writer defines the interface for report output.
// Implementations write analysis results in various formats.
//
// Design decision: We use an interface to allow different output formats
// and destinations. This enables writing to files, stdout, or both with
// the same API.
type Writer interface {
	// WritePacket outputs the analysis of one received datagram.
	WritePacket(pkt *model.ReceivedPacket) (int, error)

	// WriteSummary outputs cumulative traffic statistics.
	WriteSummary(summary model.Summary) (int, error)

	// WriteSessions outputs saved session summaries, newest first.
	WriteSessions(sessions []model.SessionSummary) (int, error)
}

// MultiWriter writes to multiple Writers simultaneously.
// This is useful for outputting to both terminal and file.
//
// Design decision: We implement this as a separate type rather than
// using io.MultiWriter because formats may differ per destination
// (text on the terminal, JSON in the file).
type MultiWriter struct {
	writers []Writer
}

// NewMultiWriter creates a Writer that writes to all provided Writers.
func NewMultiWriter(writers ...Writer) *MultiWriter {
	return &MultiWriter{writers: writers}
}

// WritePacket outputs the packet to all configured Writers.
// Stops on first error encountered.
func (m *MultiWriter) WritePacket(pkt *model.ReceivedPacket) (int, error) {
	return m.each(func(w Writer) (int, error) { return w.WritePacket(pkt) })
}

// WriteSummary outputs the summary to all configured Writers.
func (m *MultiWriter) WriteSummary(summary model.Summary) (int, error) {
	return m.each(func(w Writer) (int, error) { return w.WriteSummary(summary) })
}

// WriteSessions outputs the sessions to all configured Writers.
func (m *MultiWriter) WriteSessions(sessions []model.SessionSummary) (int, error) {
	return m.each(func(w Writer) (int, error) { return w.WriteSessions(sessions) })
}

func (m *MultiWriter) each(write func(Writer) (int, error)) (int, error) {
	var total int
	for _, w := range m.writers {
		n, err := write(w)
		total += n
		if err != nil {
			return total, err
		}
	}
	return total, nil
}

// SyncWriter serializes every call to a Writer. Printf shares the same
// lock, so status lines never land inside a packet or summary report.
type SyncWriter struct {
	mu     sync.Mutex
	writer Writer
	output io.Writer
}

// NewSyncWriter wraps w. Printf writes to output.
func NewSyncWriter(w Writer, output io.Writer) *SyncWriter {
	return &SyncWriter{writer: w, output: output}
}

// WritePacket outputs the packet while holding the lock.
func (s *SyncWriter) WritePacket(pkt *model.ReceivedPacket) (int, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.writer.WritePacket(pkt)
}

// WriteSummary outputs the summary while holding the lock.
func (s *SyncWriter) WriteSummary(summary model.Summary) (int, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.writer.WriteSummary(summary)
}

// WriteSessions outputs the sessions while holding the lock.
func (s *SyncWriter) WriteSessions(sessions []model.SessionSummary) (int, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.writer.WriteSessions(sessions)
}

// Printf writes a formatted status line while holding the lock.
func (s *SyncWriter) Printf(format string, args ...any) (int, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return fmt.Fprintf(s.output, format, args...)
}

// New returns the Writer selected by cfg: JSON, Markdown or plain text.
func New(output io.Writer, cfg *config.Config) Writer {
	switch {
	case cfg.JSONReport:
		return NewJSONWriter(output)
	case cfg.MarkdownReport:
		return NewMarkdownWriter(output, WithMarkdownHexLimit(cfg.HexDisplayLimit))
	default:
		return NewSimpleWriter(output,
			WithHexLimit(cfg.HexDisplayLimit),
			WithVerbose(cfg.Verbose),
		)
	}
}

// baseWriter provides common functionality for report writers.
type baseWriter struct {
	output io.Writer
}

// newBaseWriter creates a baseWriter with the given output destination.
func newBaseWriter(output io.Writer) baseWriter {
	return baseWriter{output: output}
}

// showHex reports whether a payload of size bytes gets a hex dump under limit.
func showHex(size, limit int) bool {
	return limit > 0 && size <= limit
}

// senderLabel renders a sender address. Packets read from files have none.
func senderLabel(addr netip.AddrPort) string {
	if !addr.IsValid() {
		return "-"
	}
	return addr.String()
}

// truncateString truncates a string to maxLen bytes with ellipsis.
func truncateString(s string, maxLen int) string {
	if len(s) <= maxLen {
		return s
	}
	if maxLen <= 3 {
		return s[:maxLen]
	}
	return s[:maxLen-3] + "..."
}

// shortID returns the first eight characters of a session ID.
func shortID(id string) string {
	if len(id) <= 8 {
		return id
	}
	return id[:8]
}
