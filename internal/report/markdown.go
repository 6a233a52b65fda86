package report

import (
	"fmt"
	"io"
	"strconv"
	"time"

	"github.com/dustin/go-humanize"
	"github.com/nao1215/markdown"
	"github.com/nao1215/markdown/mermaid/piechart"
	"github.com/nao1215/udpscope/internal/model"
)

// MarkdownWriter outputs reports in Markdown format.
// This format is designed for pasting captures into issues and docs.
//
// Design decision: We use the nao1215/markdown library for fluent markdown
// generation, which gives us tables, code blocks, alerts and mermaid
// charts without hand-escaping.
type MarkdownWriter struct {
	baseWriter

	// hexLimit is the largest payload whose hex dump is included.
	hexLimit int
}

// MarkdownWriterOption configures a MarkdownWriter.
type MarkdownWriterOption func(*MarkdownWriter)

// WithMarkdownHexLimit sets the largest payload size whose hex dump is shown.
func WithMarkdownHexLimit(limit int) MarkdownWriterOption {
	return func(w *MarkdownWriter) {
		if limit >= 0 {
			w.hexLimit = limit
		}
	}
}

// NewMarkdownWriter creates a MarkdownWriter that outputs to the given writer.
func NewMarkdownWriter(output io.Writer, opts ...MarkdownWriterOption) *MarkdownWriter {
	w := &MarkdownWriter{
		baseWriter: newBaseWriter(output),
		hexLimit:   32,
	}
	for _, opt := range opts {
		opt(w)
	}
	return w
}

// WritePacket outputs one packet analysis as a section.
func (w *MarkdownWriter) WritePacket(pkt *model.ReceivedPacket) (int, error) {
	md := markdown.NewMarkdown(w.output)
	r := pkt.Analysis

	md.H2(fmt.Sprintf("Packet #%d", pkt.Number))
	md.PlainText("")

	rows := [][]string{
		{"Received", pkt.ReceivedAt.Format(timeLayout)},
		{"From", "`" + senderLabel(pkt.Sender) + "`"},
		{"Size", strconv.Itoa(r.Size) + " bytes"},
		{"Formats", r.PossibleFormats.String()},
		{"Printable ratio", fmt.Sprintf("%.1f%%", r.PrintableRatio*100)},
	}
	if r.Text != nil {
		rows = append(rows, []string{"Encoding", r.Text.Encoding})
	}
	if r.IntegerViews != nil {
		rows = append(rows,
			[]string{"Int32 (big-endian)", strconv.FormatInt(int64(r.IntegerViews.BigEndian), 10)},
			[]string{"Int32 (little-endian)", strconv.FormatInt(int64(r.IntegerViews.LittleEndian), 10)},
		)
	}
	rows = append(rows, []string{"Digest", "`" + r.Digest + "`"})

	md.Table(markdown.TableSet{
		Header: []string{"Property", "Value"},
		Rows:   rows,
	})
	md.PlainText("")

	switch {
	case r.JSON != nil:
		md.CodeBlocks(markdown.SyntaxHighlightJSON, compactJSON(r.JSON.Value))
		md.PlainText("")
	case r.Text != nil && r.IsText():
		md.CodeBlocks(markdown.SyntaxHighlightText, truncateString(r.Text.Decoded, maxTextPreview))
		md.PlainText("")
	}

	if showHex(r.Size, w.hexLimit) {
		md.PlainTextf("Hex: `%s`", r.Hex)
		md.PlainText("")
	}

	return len(md.String()), md.Build()
}

// WriteSummary outputs cumulative statistics with a format distribution chart.
func (w *MarkdownWriter) WriteSummary(summary model.Summary) (int, error) {
	md := markdown.NewMarkdown(w.output)

	md.H2("Traffic Statistics")
	md.PlainText("")

	last := "-"
	if summary.LastPacketTime != nil {
		last = summary.LastPacketTime.Format(timeLayout)
	}

	md.Table(markdown.TableSet{
		Header: []string{"Metric", "Value"},
		Rows: [][]string{
			{"Runtime", fmt.Sprintf("%.2f s", summary.Runtime.Seconds())},
			{"Total packets", strconv.FormatUint(summary.TotalPackets, 10)},
			{"Total bytes", fmt.Sprintf("%d (%s)", summary.TotalBytes, humanize.Bytes(summary.TotalBytes))},
			{"Average packet size", fmt.Sprintf("%.2f bytes", summary.AveragePacketSize())},
			{"Packets per second", fmt.Sprintf("%.2f", summary.Rate.PacketsPerSecond)},
			{"Bytes per second", fmt.Sprintf("%.2f", summary.Rate.BytesPerSecond)},
			{"Last packet", last},
		},
	})
	md.PlainText("")

	if summary.TotalPackets == 0 {
		md.Note("No packets received.")
		md.PlainText("")
	} else {
		w.writePieChart(md, summary.FormatCounts)
	}

	return len(md.String()), md.Build()
}

// writePieChart writes a mermaid pie chart of payload formats.
func (w *MarkdownWriter) writePieChart(md *markdown.Markdown, counts map[model.Format]uint64) {
	chart := piechart.NewPieChart(
		io.Discard,
		piechart.WithTitle("Payload Formats"),
		piechart.WithShowData(true),
	)

	for _, f := range model.AllFormats {
		if n := counts[f]; n > 0 {
			chart.LabelAndIntValue(f.String(), n)
		}
	}

	md.CodeBlocks(markdown.SyntaxHighlightMermaid, chart.String())
	md.PlainText("")
}

// WriteSessions outputs the session history as a table.
func (w *MarkdownWriter) WriteSessions(sessions []model.SessionSummary) (int, error) {
	md := markdown.NewMarkdown(w.output)

	md.H2("Session History")
	md.PlainText("")

	if len(sessions) == 0 {
		md.Tip("No saved sessions. Run `udpscope listen --save-session` to record one.")
		md.PlainText("")
		return len(md.String()), md.Build()
	}

	rows := make([][]string, len(sessions))
	for i, s := range sessions {
		rows[i] = []string{
			"`" + shortID(s.ID) + "`",
			s.StartedAt.Format(time.DateTime),
			s.Duration().Round(time.Second).String(),
			"`" + s.LocalAddr + "`",
			strconv.FormatUint(s.Statistics.TotalPackets, 10),
			humanize.Bytes(s.Statistics.TotalBytes),
		}
	}

	md.Table(markdown.TableSet{
		Header: []string{"ID", "Started", "Duration", "Local", "Packets", "Bytes"},
		Rows:   rows,
	})
	md.PlainText("")

	return len(md.String()), md.Build()
}
