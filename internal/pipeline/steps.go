package pipeline

import (
	"context"
	"errors"
	"log/slog"
	"sync"

	"github.com/nao1215/udpscope/internal/analysis"
	"github.com/nao1215/udpscope/internal/log"
	"github.com/nao1215/udpscope/internal/report"
	"github.com/nao1215/udpscope/internal/stats"
)

// Step names.
const (
	StepAnalyze = "analyze"
	StepRecord  = "record"
	StepRender  = "render"
)

// ErrNotAnalyzed is returned by steps that need a report when the event
// has not been through AnalyzeStep.
var ErrNotAnalyzed = errors.New("event has no analysis report")

// AnalyzeStep classifies the payload with the analysis engine.
type AnalyzeStep struct {
	engine *analysis.Engine
	logger *slog.Logger
}

// AnalyzeStepOption configures an AnalyzeStep.
type AnalyzeStepOption func(*AnalyzeStep)

// WithAnalyzeLogger sets a custom logger for the analyze step.
func WithAnalyzeLogger(logger *slog.Logger) AnalyzeStepOption {
	return func(s *AnalyzeStep) {
		if logger != nil {
			s.logger = logger
		}
	}
}

// NewAnalyzeStep creates an analyze step. A nil engine uses the defaults.
func NewAnalyzeStep(engine *analysis.Engine, opts ...AnalyzeStepOption) *AnalyzeStep {
	if engine == nil {
		engine = analysis.NewEngine()
	}
	s := &AnalyzeStep{engine: engine, logger: slog.Default()}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Name returns the step name.
func (s *AnalyzeStep) Name() string { return StepAnalyze }

// Do analyzes the event's payload. Analysis is total, so it never fails.
func (s *AnalyzeStep) Do(ctx context.Context, ev *Event) error {
	ev.Report = s.engine.Analyze(ev.Packet.Payload)

	s.logger.DebugContext(ctx, "packet analyzed",
		"from", ev.Packet.Sender.String(),
		"size", ev.Report.Size,
		"formats", ev.Report.PossibleFormats.String(),
		"preview", log.Preview(ev.Packet.Payload),
	)
	return nil
}

// RecordStep adds the analyzed packet to the traffic statistics.
type RecordStep struct {
	acc *stats.Accumulator
}

// NewRecordStep creates a record step writing into acc.
func NewRecordStep(acc *stats.Accumulator) *RecordStep {
	return &RecordStep{acc: acc}
}

// Name returns the step name.
func (s *RecordStep) Name() string { return StepRecord }

// Do records the report and stores the packet ordinal on the event.
// An ordinal assigned before the step runs (see BatchProcessor) is kept.
func (s *RecordStep) Do(_ context.Context, ev *Event) error {
	if ev.Report == nil {
		return ErrNotAnalyzed
	}
	n := s.acc.Record(ev.Report, ev.Packet.ReceivedAt)
	if ev.Number == 0 {
		ev.Number = n
	}
	return nil
}

// RenderStep writes the analyzed packet with a report.Writer.
// Writes are serialized so concurrent callers never interleave output.
type RenderStep struct {
	mu     sync.Mutex
	writer report.Writer
}

// NewRenderStep creates a render step.
func NewRenderStep(writer report.Writer) *RenderStep {
	return &RenderStep{writer: writer}
}

// Name returns the step name.
func (s *RenderStep) Name() string { return StepRender }

// Do renders the event.
func (s *RenderStep) Do(_ context.Context, ev *Event) error {
	pkt := ev.Received()
	if pkt == nil {
		return ErrNotAnalyzed
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	_, err := s.writer.WritePacket(pkt)
	return err
}

// NewPacketPipeline assembles the standard analyze, record, render chain.
// A nil writer leaves out the render step.
func NewPacketPipeline(engine *analysis.Engine, acc *stats.Accumulator, writer report.Writer, logger *slog.Logger) *Pipeline {
	steps := []Step{
		NewAnalyzeStep(engine, WithAnalyzeLogger(logger)),
		NewRecordStep(acc),
	}
	if writer != nil {
		steps = append(steps, NewRenderStep(writer))
	}
	return New(steps, WithLogger(logger))
}
