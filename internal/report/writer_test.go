package report

import (
	"bytes"
	"encoding/json"
	"errors"
	"net/netip"
	"strings"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/nao1215/udpscope/internal/analysis"
	"github.com/nao1215/udpscope/internal/config"
	"github.com/nao1215/udpscope/internal/model"
)

var (
	testSender = netip.MustParseAddrPort("192.0.2.10:5000")
	testTime   = time.Date(2026, 3, 4, 5, 6, 7, 0, time.UTC)
)

// packetFor analyzes payload and wraps it as the numbered packet.
func packetFor(t *testing.T, number uint64, payload []byte) *model.ReceivedPacket {
	t.Helper()
	return &model.ReceivedPacket{
		Number:     number,
		Sender:     testSender,
		ReceivedAt: testTime,
		Analysis:   analysis.NewEngine().Analyze(payload),
	}
}

func testSummary() model.Summary {
	last := testTime.Add(2 * time.Second)
	return model.Summary{
		Statistics: model.Statistics{
			TotalPackets:   4,
			TotalBytes:     400,
			StartTime:      testTime,
			LastPacketTime: &last,
			FormatCounts: map[model.Format]uint64{
				model.FormatText:   3,
				model.FormatJSON:   1,
				model.FormatBinary: 1,
			},
		},
		Rate:    model.Rate{PacketsPerSecond: 2, BytesPerSecond: 200},
		Runtime: 2 * time.Second,
	}
}

func testSessions() []model.SessionSummary {
	return []model.SessionSummary{
		{
			ID:         "0f8fad5b-d9cb-469f-a165-70867728950e",
			LocalAddr:  "0.0.0.0:8888",
			StartedAt:  testTime,
			EndedAt:    testTime.Add(90 * time.Second),
			Statistics: model.Statistics{TotalPackets: 1200, TotalBytes: 2048},
		},
	}
}

func TestSimpleWriterWritePacket(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name     string
		payload  []byte
		opts     []SimpleWriterOption
		contains []string
		excludes []string
	}{
		{
			name:    "plain text",
			payload: []byte("hello"),
			contains: []string{
				"Packet #7 received at 2026-03-04 05:06:07.000",
				"From: 192.0.2.10:5000",
				"Size: 5 bytes",
				"Possible formats: text",
				`Text content (utf-8): "hello"`,
				"Int32: big-endian=1751477356 little-endian=1819043176",
				"Hex: 68656c6c6f",
				strings.Repeat("-", 80),
			},
			excludes: []string{"JSON data", "Digest"},
		},
		{
			name:    "json object",
			payload: []byte(`{"a":1}`),
			contains: []string{
				"Possible formats: text, json",
				`JSON data: {"a":1}`,
			},
		},
		{
			name:     "short payload has no integer view",
			payload:  []byte{0x01, 0x02},
			contains: []string{"Possible formats: binary", "Hex: 0102"},
			excludes: []string{"Int32"},
		},
		{
			name:     "hex hidden above the limit",
			payload:  bytes.Repeat([]byte{0xAB}, 33),
			contains: []string{"Size: 33 bytes"},
			excludes: []string{"Hex:"},
		},
		{
			name:     "hex shown at exactly the limit",
			payload:  bytes.Repeat([]byte{0xAB}, 32),
			contains: []string{"Hex: " + strings.Repeat("ab", 32)},
		},
		{
			name:     "hex limit zero hides all dumps",
			payload:  []byte("hi"),
			opts:     []SimpleWriterOption{WithHexLimit(0)},
			excludes: []string{"Hex:"},
		},
		{
			name:    "verbose adds diagnostics",
			payload: []byte{0xff, 0x00, 0x41, 0x42},
			opts:    []SimpleWriterOption{WithVerbose(true)},
			contains: []string{
				"Printable ratio: 50.0%",
				"Digest: ",
				"Encoding attempts: utf-8=failed, ascii=failed, latin-1=ok",
			},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()

			var buf bytes.Buffer
			w := NewSimpleWriter(&buf, tt.opts...)

			n, err := w.WritePacket(packetFor(t, 7, tt.payload))
			if err != nil {
				t.Fatalf("unexpected error: %v", err)
			}
			if n != buf.Len() {
				t.Errorf("expected %d bytes reported, got %d", buf.Len(), n)
			}

			output := buf.String()
			for _, s := range tt.contains {
				if !strings.Contains(output, s) {
					t.Errorf("expected output to contain %q\n%s", s, output)
				}
			}
			for _, s := range tt.excludes {
				if strings.Contains(output, s) {
					t.Errorf("expected output not to contain %q\n%s", s, output)
				}
			}
		})
	}
}

func TestSimpleWriterWriteSummary(t *testing.T) {
	t.Parallel()

	var buf bytes.Buffer
	if _, err := NewSimpleWriter(&buf).WriteSummary(testSummary()); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	output := buf.String()
	for _, s := range []string{
		"Runtime: 2.00 seconds",
		"Total packets: 4",
		"Total bytes: 400 (400 B)",
		"Average packet size: 100.00 bytes",
		"Packets per second: 2.00",
		"Formats: text=3, json=1, binary=1",
		"Last packet: 2026-03-04 05:06:09.000",
	} {
		if !strings.Contains(output, s) {
			t.Errorf("expected output to contain %q\n%s", s, output)
		}
	}

	t.Run("empty statistics", func(t *testing.T) {
		t.Parallel()

		var buf bytes.Buffer
		if _, err := NewSimpleWriter(&buf).WriteSummary(model.Summary{}); err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		if !strings.Contains(buf.String(), "Average packet size: 0.00 bytes") {
			t.Errorf("expected zero average, got:\n%s", buf.String())
		}
		if strings.Contains(buf.String(), "Last packet") {
			t.Errorf("expected no last packet line, got:\n%s", buf.String())
		}
	})
}

func TestSimpleWriterWriteSessions(t *testing.T) {
	t.Parallel()

	t.Run("table", func(t *testing.T) {
		t.Parallel()

		var buf bytes.Buffer
		if _, err := NewSimpleWriter(&buf).WriteSessions(testSessions()); err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		output := buf.String()
		for _, s := range []string{"ID", "0f8fad5b", "2026-03-04 05:06:07", "1m30s", "1,200", "2.0 kB"} {
			if !strings.Contains(output, s) {
				t.Errorf("expected output to contain %q\n%s", s, output)
			}
		}
	})

	t.Run("empty", func(t *testing.T) {
		t.Parallel()

		var buf bytes.Buffer
		if _, err := NewSimpleWriter(&buf).WriteSessions(nil); err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		if !strings.Contains(buf.String(), "No saved sessions.") {
			t.Errorf("unexpected output: %s", buf.String())
		}
	})
}

func TestJSONWriter(t *testing.T) {
	t.Parallel()

	t.Run("packet record is one line", func(t *testing.T) {
		t.Parallel()

		var buf bytes.Buffer
		if _, err := NewJSONWriter(&buf).WritePacket(packetFor(t, 1, []byte(`{"a":1}`))); err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		if strings.Count(buf.String(), "\n") != 1 {
			t.Errorf("expected a single line, got:\n%s", buf.String())
		}

		var env Envelope
		if err := json.Unmarshal(buf.Bytes(), &env); err != nil {
			t.Fatalf("invalid JSON: %v", err)
		}
		if env.Kind != KindPacket || env.Packet == nil {
			t.Fatalf("unexpected envelope: %+v", env)
		}
		if env.Packet.Number != 1 || env.Packet.Sender != testSender {
			t.Errorf("unexpected packet header: %+v", env.Packet)
		}
		if !env.Packet.Analysis.IsJSON() {
			t.Errorf("expected json format, got %s", env.Packet.Analysis.PossibleFormats)
		}
		if env.Packet.Analysis.JSON == nil {
			t.Error("expected json value to round-trip")
		}
	})

	t.Run("payload bytes are not serialized", func(t *testing.T) {
		t.Parallel()

		var buf bytes.Buffer
		if _, err := NewJSONWriter(&buf).WritePacket(packetFor(t, 1, []byte("x"))); err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		if strings.Contains(buf.String(), `"payload"`) {
			t.Errorf("expected no payload field, got %s", buf.String())
		}
	})

	t.Run("summary includes average", func(t *testing.T) {
		t.Parallel()

		var buf bytes.Buffer
		if _, err := NewJSONWriter(&buf, WithPrettyPrint()).WriteSummary(testSummary()); err != nil {
			t.Fatalf("unexpected error: %v", err)
		}

		var raw struct {
			Kind    string         `json:"kind"`
			Summary map[string]any `json:"summary"`
		}
		if err := json.Unmarshal(buf.Bytes(), &raw); err != nil {
			t.Fatalf("invalid JSON: %v", err)
		}
		if raw.Kind != KindSummary {
			t.Errorf("expected kind %q, got %q", KindSummary, raw.Kind)
		}
		summary := raw.Summary
		if summary["average_packet_size"] != float64(100) {
			t.Errorf("expected average 100, got %v", summary["average_packet_size"])
		}
		if summary["total_packets"] != float64(4) {
			t.Errorf("expected 4 packets, got %v", summary["total_packets"])
		}
		if !strings.Contains(buf.String(), "\n  ") {
			t.Error("expected indented output")
		}
	})

	t.Run("empty sessions are an empty array", func(t *testing.T) {
		t.Parallel()

		var buf bytes.Buffer
		if _, err := NewJSONWriter(&buf).WriteSessions(nil); err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		if got := strings.TrimSpace(buf.String()); got != `{"kind":"sessions","sessions":[]}` {
			t.Errorf("unexpected output %s", got)
		}
	})
}

func TestMarkdownWriter(t *testing.T) {
	t.Parallel()

	t.Run("packet section", func(t *testing.T) {
		t.Parallel()

		var buf bytes.Buffer
		if _, err := NewMarkdownWriter(&buf).WritePacket(packetFor(t, 3, []byte(`{"a":1}`))); err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		output := buf.String()
		for _, s := range []string{"## Packet #3", "`192.0.2.10:5000`", "text, json", "```json", `{"a":1}`, "Hex: `7b2261223a317d`"} {
			if !strings.Contains(output, s) {
				t.Errorf("expected output to contain %q\n%s", s, output)
			}
		}
	})

	t.Run("summary has a format pie chart", func(t *testing.T) {
		t.Parallel()

		var buf bytes.Buffer
		if _, err := NewMarkdownWriter(&buf).WriteSummary(testSummary()); err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		output := buf.String()
		for _, s := range []string{"## Traffic Statistics", "```mermaid", "Payload Formats", "text", "binary"} {
			if !strings.Contains(output, s) {
				t.Errorf("expected output to contain %q\n%s", s, output)
			}
		}
	})

	t.Run("empty summary has a note instead of a chart", func(t *testing.T) {
		t.Parallel()

		var buf bytes.Buffer
		if _, err := NewMarkdownWriter(&buf).WriteSummary(model.Summary{}); err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		if strings.Contains(buf.String(), "mermaid") {
			t.Errorf("expected no chart, got:\n%s", buf.String())
		}
		if !strings.Contains(buf.String(), "No packets received.") {
			t.Errorf("expected note, got:\n%s", buf.String())
		}
	})

	t.Run("session history table", func(t *testing.T) {
		t.Parallel()

		var buf bytes.Buffer
		if _, err := NewMarkdownWriter(&buf).WriteSessions(testSessions()); err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		for _, s := range []string{"## Session History", "`0f8fad5b`", "1200"} {
			if !strings.Contains(buf.String(), s) {
				t.Errorf("expected output to contain %q\n%s", s, buf.String())
			}
		}
	})
}

// failingWriter is an io.Writer that always fails.
type failingWriter struct{}

func (failingWriter) Write([]byte) (int, error) { return 0, errors.New("disk full") }

func TestMultiWriter(t *testing.T) {
	t.Parallel()

	t.Run("writes to every destination", func(t *testing.T) {
		t.Parallel()

		var text, js bytes.Buffer
		mw := NewMultiWriter(NewSimpleWriter(&text), NewJSONWriter(&js))

		n, err := mw.WritePacket(packetFor(t, 1, []byte("hi")))
		if err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		if n != text.Len()+js.Len() {
			t.Errorf("expected total %d, got %d", text.Len()+js.Len(), n)
		}
		if !strings.Contains(text.String(), "Packet #1") || !strings.Contains(js.String(), `"kind":"packet"`) {
			t.Error("expected both writers to receive the packet")
		}
	})

	t.Run("stops at first error", func(t *testing.T) {
		t.Parallel()

		var after bytes.Buffer
		mw := NewMultiWriter(NewSimpleWriter(failingWriter{}), NewSimpleWriter(&after))

		if _, err := mw.WriteSummary(testSummary()); err == nil {
			t.Error("expected error")
		}
		if after.Len() != 0 {
			t.Error("expected later writers to be skipped")
		}
	})
}

func TestSyncWriter(t *testing.T) {
	t.Parallel()

	t.Run("never overlaps reports and status lines", func(t *testing.T) {
		t.Parallel()

		detector := &overlapDetector{}
		w := NewSyncWriter(detector, detector)

		var wg sync.WaitGroup
		for i := range 20 {
			wg.Add(3)
			go func() {
				defer wg.Done()
				_, _ = w.WritePacket(&model.ReceivedPacket{Number: uint64(i + 1)}) //nolint:errcheck // fake never fails
			}()
			go func() {
				defer wg.Done()
				_, _ = w.WriteSummary(model.Summary{}) //nolint:errcheck // fake never fails
			}()
			go func() {
				defer wg.Done()
				_, _ = w.Printf("Sent %d bytes\n", i) //nolint:errcheck // fake never fails
			}()
		}
		wg.Wait()

		if peak := detector.peak.Load(); peak != 1 {
			t.Errorf("expected one writer at a time, saw %d", peak)
		}
		if got := detector.calls.Load(); got != 60 {
			t.Errorf("expected 60 calls, got %d", got)
		}
	})

	t.Run("markdown sections stay contiguous", func(t *testing.T) {
		t.Parallel()

		var buf bytes.Buffer
		w := NewSyncWriter(NewMarkdownWriter(&buf), &buf)

		var wg sync.WaitGroup
		for i := range 10 {
			wg.Add(2)
			go func() {
				defer wg.Done()
				if _, err := w.WritePacket(packetFor(t, uint64(i+1), []byte("hello"))); err != nil {
					t.Error(err)
				}
			}()
			go func() {
				defer wg.Done()
				if _, err := w.Printf("STATUS %d\n", i); err != nil {
					t.Error(err)
				}
			}()
		}
		wg.Wait()

		for _, line := range strings.Split(buf.String(), "\n") {
			if strings.Contains(line, "STATUS") && !strings.HasPrefix(line, "STATUS") {
				t.Errorf("status line split a report: %q", line)
			}
		}
		if n := strings.Count(buf.String(), "STATUS"); n != 10 {
			t.Errorf("expected 10 status lines, got %d", n)
		}
	})
}

// overlapDetector is a Writer and io.Writer that records how many calls
// run at the same time.
type overlapDetector struct {
	inFlight atomic.Int32
	peak     atomic.Int32
	calls    atomic.Int32
}

func (d *overlapDetector) enter() {
	d.calls.Add(1)
	n := d.inFlight.Add(1)
	for {
		p := d.peak.Load()
		if n <= p || d.peak.CompareAndSwap(p, n) {
			break
		}
	}
	time.Sleep(100 * time.Microsecond)
	d.inFlight.Add(-1)
}

func (d *overlapDetector) WritePacket(*model.ReceivedPacket) (int, error) {
	d.enter()
	return 0, nil
}

func (d *overlapDetector) WriteSummary(model.Summary) (int, error) {
	d.enter()
	return 0, nil
}

func (d *overlapDetector) WriteSessions([]model.SessionSummary) (int, error) {
	d.enter()
	return 0, nil
}

func (d *overlapDetector) Write(p []byte) (int, error) {
	d.enter()
	return len(p), nil
}

func TestNew(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name   string
		modify func(*config.Config)
		check  func(Writer) bool
	}{
		{
			name:   "text by default",
			modify: func(*config.Config) {},
			check:  func(w Writer) bool { _, ok := w.(*SimpleWriter); return ok },
		},
		{
			name:   "json",
			modify: func(c *config.Config) { c.JSONReport = true },
			check:  func(w Writer) bool { _, ok := w.(*JSONWriter); return ok },
		},
		{
			name:   "markdown",
			modify: func(c *config.Config) { c.MarkdownReport = true },
			check:  func(w Writer) bool { _, ok := w.(*MarkdownWriter); return ok },
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()

			cfg := config.NewConfig()
			tt.modify(cfg)
			if w := New(&bytes.Buffer{}, cfg); !tt.check(w) {
				t.Errorf("unexpected writer type %T", w)
			}
		})
	}
}

func TestTruncateString(t *testing.T) {
	t.Parallel()

	tests := []struct {
		in     string
		maxLen int
		want   string
	}{
		{in: "short", maxLen: 10, want: "short"},
		{in: "exactly10!", maxLen: 10, want: "exactly10!"},
		{in: "this is too long", maxLen: 10, want: "this is..."},
		{in: "abcdef", maxLen: 2, want: "ab"},
	}

	for _, tt := range tests {
		if got := truncateString(tt.in, tt.maxLen); got != tt.want {
			t.Errorf("truncateString(%q, %d) = %q, want %q", tt.in, tt.maxLen, got, tt.want)
		}
	}
}

func TestSenderLabel(t *testing.T) {
	t.Parallel()

	if got := senderLabel(testSender); got != "192.0.2.10:5000" {
		t.Errorf("senderLabel(valid) = %q", got)
	}
	if got := senderLabel(netip.AddrPort{}); got != "-" {
		t.Errorf("senderLabel(zero) = %q, want -", got)
	}
}
