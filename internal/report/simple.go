package report

import (
	"encoding/json"
	"fmt"
	"io"
	"strconv"
	"strings"
	"time"

	"github.com/dustin/go-humanize"
	"github.com/nao1215/udpscope/internal/model"
)

// Layout constants for the text report.
const (
	separatorWidth = 80
	timeLayout     = "2006-01-02 15:04:05.000"
	maxTextPreview = 200
)

// SimpleWriter outputs human-readable text reports for the terminal.
//
// Design decision: We use plain text with ASCII formatting rather than
// ANSI colors so output can be piped to files or other tools unchanged.
type SimpleWriter struct {
	baseWriter

	// hexLimit is the largest payload whose hex dump is printed.
	// Zero hides hex dumps.
	hexLimit int

	// verbose adds the digest, printable ratio and encoding attempts.
	verbose bool
}

// SimpleWriterOption configures a SimpleWriter.
type SimpleWriterOption func(*SimpleWriter)

// WithHexLimit sets the largest payload size whose hex dump is shown.
func WithHexLimit(limit int) SimpleWriterOption {
	return func(w *SimpleWriter) {
		if limit >= 0 {
			w.hexLimit = limit
		}
	}
}

// WithVerbose enables verbose output with additional details.
func WithVerbose(verbose bool) SimpleWriterOption {
	return func(w *SimpleWriter) {
		w.verbose = verbose
	}
}

// NewSimpleWriter creates a SimpleWriter that outputs to the given writer.
func NewSimpleWriter(output io.Writer, opts ...SimpleWriterOption) *SimpleWriter {
	w := &SimpleWriter{
		baseWriter: newBaseWriter(output),
		hexLimit:   32,
	}
	for _, opt := range opts {
		opt(w)
	}
	return w
}

// WritePacket outputs one packet analysis.
func (w *SimpleWriter) WritePacket(pkt *model.ReceivedPacket) (int, error) {
	var sb strings.Builder
	r := pkt.Analysis

	fmt.Fprintf(&sb, "\nPacket #%d received at %s\n", pkt.Number, pkt.ReceivedAt.Format(timeLayout))
	fmt.Fprintf(&sb, "   From: %s\n", senderLabel(pkt.Sender))
	fmt.Fprintf(&sb, "   Size: %d bytes\n", r.Size)
	fmt.Fprintf(&sb, "   Possible formats: %s\n", r.PossibleFormats)

	if r.Text != nil {
		fmt.Fprintf(&sb, "   Text content (%s): %s\n",
			r.Text.Encoding, truncateString(strconv.Quote(r.Text.Decoded), maxTextPreview))
	}
	if r.JSON != nil {
		fmt.Fprintf(&sb, "   JSON data: %s\n", compactJSON(r.JSON.Value))
	}
	if r.IntegerViews != nil {
		fmt.Fprintf(&sb, "   Int32: big-endian=%d little-endian=%d\n",
			r.IntegerViews.BigEndian, r.IntegerViews.LittleEndian)
	}
	if showHex(r.Size, w.hexLimit) {
		fmt.Fprintf(&sb, "   Hex: %s\n", r.Hex)
	}

	if w.verbose {
		fmt.Fprintf(&sb, "   Printable ratio: %.1f%%\n", r.PrintableRatio*100)
		fmt.Fprintf(&sb, "   Digest: %s\n", r.Digest)
		if len(r.EncodingAttempts) > 0 {
			attempts := make([]string, len(r.EncodingAttempts))
			for i, a := range r.EncodingAttempts {
				result := "failed"
				if a.Success {
					result = "ok"
				}
				attempts[i] = a.Encoding + "=" + result
			}
			fmt.Fprintf(&sb, "   Encoding attempts: %s\n", strings.Join(attempts, ", "))
		}
	}

	sb.WriteString(strings.Repeat("-", separatorWidth))
	sb.WriteString("\n")

	return io.WriteString(w.output, sb.String())
}

// WriteSummary outputs cumulative statistics.
func (w *SimpleWriter) WriteSummary(summary model.Summary) (int, error) {
	var sb strings.Builder

	sb.WriteString("\nStatistics:\n")
	fmt.Fprintf(&sb, "   Runtime: %.2f seconds\n", summary.Runtime.Seconds())
	fmt.Fprintf(&sb, "   Total packets: %s\n", humanize.Comma(int64(summary.TotalPackets))) //nolint:gosec // packet counts stay far below MaxInt64
	fmt.Fprintf(&sb, "   Total bytes: %d (%s)\n", summary.TotalBytes, humanize.Bytes(summary.TotalBytes))
	fmt.Fprintf(&sb, "   Average packet size: %.2f bytes\n", summary.AveragePacketSize())
	fmt.Fprintf(&sb, "   Packets per second: %.2f\n", summary.Rate.PacketsPerSecond)
	fmt.Fprintf(&sb, "   Bytes per second: %.2f\n", summary.Rate.BytesPerSecond)

	if len(summary.FormatCounts) > 0 {
		parts := make([]string, 0, len(model.AllFormats))
		for _, f := range model.AllFormats {
			if n := summary.FormatCounts[f]; n > 0 {
				parts = append(parts, fmt.Sprintf("%s=%d", f, n))
			}
		}
		fmt.Fprintf(&sb, "   Formats: %s\n", strings.Join(parts, ", "))
	}
	if summary.LastPacketTime != nil {
		fmt.Fprintf(&sb, "   Last packet: %s\n", summary.LastPacketTime.Format(timeLayout))
	}

	return io.WriteString(w.output, sb.String())
}

// WriteSessions outputs the session history as an aligned table.
func (w *SimpleWriter) WriteSessions(sessions []model.SessionSummary) (int, error) {
	var sb strings.Builder

	if len(sessions) == 0 {
		sb.WriteString("No saved sessions.\n")
		return io.WriteString(w.output, sb.String())
	}

	fmt.Fprintf(&sb, "%-8s  %-19s  %-10s  %-21s  %10s  %10s\n",
		"ID", "STARTED", "DURATION", "LOCAL", "PACKETS", "BYTES")
	for _, s := range sessions {
		fmt.Fprintf(&sb, "%-8s  %-19s  %-10s  %-21s  %10s  %10s\n",
			shortID(s.ID),
			s.StartedAt.Format(time.DateTime),
			s.Duration().Round(time.Second).String(),
			truncateString(s.LocalAddr, 21),
			humanize.Comma(int64(s.Statistics.TotalPackets)), //nolint:gosec // packet counts stay far below MaxInt64
			humanize.Bytes(s.Statistics.TotalBytes),
		)
	}

	return io.WriteString(w.output, sb.String())
}

// compactJSON renders a decoded JSON value on one line.
func compactJSON(v any) string {
	data, err := json.Marshal(v)
	if err != nil {
		return fmt.Sprintf("%v", v)
	}
	return string(data)
}
