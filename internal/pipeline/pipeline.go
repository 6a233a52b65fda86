package pipeline

import (
	"context"
	"log/slog"

	"github.com/nao1215/udpscope/internal/model"
)

// Event carries one datagram through the pipeline. Steps fill in the
// fields after Packet as they run.
type Event struct {
	// Packet is the datagram being processed.
	Packet model.RawPacket

	// Report is set by AnalyzeStep.
	Report *model.AnalysisReport

	// Number is the packet's ordinal in the session, set by RecordStep
	// unless the caller numbered the event already.
	Number uint64

	// PerformedSteps lists the steps that ran, in order.
	PerformedSteps []string

	// Err is the last step error, if any.
	Err error
}

// NewEvent creates an Event for pkt.
func NewEvent(pkt model.RawPacket) *Event {
	return &Event{Packet: pkt}
}

// Received returns the renderable view of the event. It is nil until the
// payload has been analyzed.
func (e *Event) Received() *model.ReceivedPacket {
	if e.Report == nil {
		return nil
	}
	return &model.ReceivedPacket{
		Number:     e.Number,
		Sender:     e.Packet.Sender,
		ReceivedAt: e.Packet.ReceivedAt,
		Analysis:   e.Report,
	}
}

// Step defines the interface that all pipeline steps must implement.
// Steps are executed in sequence, each seeing the Event as left by the
// previous steps.
//
// Design decision: We use an interface rather than function types because
// steps carry dependencies (engine, accumulator, writer) and a Name()
// for logging.
type Step interface {
	// Do executes the step. It returns an error if the step failed; the
	// pipeline decides whether later steps still run.
	Do(ctx context.Context, ev *Event) error

	// Name returns the step's name for logging purposes.
	Name() string
}

// Pipeline orchestrates the execution of multiple steps.
type Pipeline struct {
	// steps contains the ordered list of steps to execute.
	steps []Step

	// logger is used for structured logging during execution.
	logger *slog.Logger

	// continueOnError determines whether to continue executing steps
	// after one fails. If false, the pipeline stops on first error.
	continueOnError bool
}

// Option is a function that configures a Pipeline.
type Option func(*Pipeline)

// WithLogger sets a custom logger for the pipeline.
// If not set, slog.Default() is used.
func WithLogger(logger *slog.Logger) Option {
	return func(p *Pipeline) {
		p.logger = logger
	}
}

// WithContinueOnError configures the pipeline to continue execution
// even when a step fails. Failed steps are logged and their error is
// recorded on the Event, but subsequent steps still execute.
//
// Design decision: The default is to stop, because a failed analysis
// leaves nothing for record and render to work with. Rendering failures
// (a closed report file) are the case where continuing makes sense.
func WithContinueOnError(continueOnError bool) Option {
	return func(p *Pipeline) {
		p.continueOnError = continueOnError
	}
}

// New creates a new Pipeline with the given steps and options.
func New(steps []Step, opts ...Option) *Pipeline {
	p := &Pipeline{
		steps: append([]Step(nil), steps...),
	}
	for _, opt := range opts {
		opt(p)
	}
	if p.logger == nil {
		p.logger = slog.Default()
	}
	return p
}

// AddStep appends a step to the pipeline.
// Steps are executed in the order they are added.
func (p *Pipeline) AddStep(step Step) {
	p.steps = append(p.steps, step)
}

// Execute runs all pipeline steps in sequence for one Event.
// It checks for cancellation before each step.
//
// Returns the first error encountered if continueOnError is false,
// or nil if all steps complete (errors are recorded on the Event).
func (p *Pipeline) Execute(ctx context.Context, ev *Event) error {
	for _, step := range p.steps {
		select {
		case <-ctx.Done():
			p.logger.Debug("pipeline cancelled",
				"step", step.Name(),
				"reason", ctx.Err(),
			)
			return ctx.Err()
		default:
		}

		if err := step.Do(ctx, ev); err != nil {
			p.logger.Error("step failed",
				"step", step.Name(),
				"from", ev.Packet.Sender.String(),
				"error", err,
			)
			ev.Err = err
			if !p.continueOnError {
				return err
			}
			continue
		}

		ev.PerformedSteps = append(ev.PerformedSteps, step.Name())
	}

	return nil
}

// Handle is a transceiver.PacketHandler-compatible adapter: it wraps pkt in
// an Event and executes the pipeline. Errors are already logged by Execute.
func (p *Pipeline) Handle(ctx context.Context) func(pkt model.RawPacket) {
	return func(pkt model.RawPacket) {
		_ = p.Execute(ctx, NewEvent(pkt)) //nolint:errcheck // logged and recorded on the event
	}
}

// StepCount returns the number of steps in the pipeline.
func (p *Pipeline) StepCount() int {
	return len(p.steps)
}

// StepNames returns the names of all steps in execution order.
func (p *Pipeline) StepNames() []string {
	names := make([]string, len(p.steps))
	for i, step := range p.steps {
		names[i] = step.Name()
	}
	return names
}
