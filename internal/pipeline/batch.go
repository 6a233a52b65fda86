package pipeline

import (
	"context"
	"log/slog"
	"time"

	"github.com/nao1215/udpscope/internal/model"
	"golang.org/x/sync/errgroup"
)

// DefaultConcurrency is the number of packets processed at once by a
// BatchProcessor unless WithConcurrency says otherwise.
const DefaultConcurrency = 8

// BatchProcessor runs a pipeline over many payloads concurrently.
// It is used for offline analysis of captured payload files, where the
// input is known up front and order of completion does not matter.
//
// Design decision: We use a separate BatchProcessor rather than adding batch
// functionality to Pipeline because the live receive path must stay strictly
// sequential, while offline analysis benefits from parallelism.
type BatchProcessor struct {
	// pipeline is shared by all workers; its steps must be safe for
	// concurrent use (the accumulator and render step are).
	pipeline *Pipeline

	// concurrency is the maximum number of packets in flight.
	concurrency int

	// logger is used for batch-level logging.
	logger *slog.Logger
}

// BatchOption configures a BatchProcessor.
type BatchOption func(*BatchProcessor)

// WithBatchLogger sets a custom logger for batch processing.
func WithBatchLogger(logger *slog.Logger) BatchOption {
	return func(b *BatchProcessor) {
		b.logger = logger
	}
}

// WithConcurrency sets the maximum number of packets processed at once.
func WithConcurrency(n int) BatchOption {
	return func(b *BatchProcessor) {
		if n > 0 {
			b.concurrency = n
		}
	}
}

// NewBatchProcessor creates a new BatchProcessor around p.
func NewBatchProcessor(p *Pipeline, opts ...BatchOption) *BatchProcessor {
	bp := &BatchProcessor{
		pipeline:    p,
		concurrency: DefaultConcurrency,
	}
	for _, opt := range opts {
		opt(bp)
	}
	if bp.logger == nil {
		bp.logger = slog.Default()
	}
	return bp
}

// ProcessBatch executes the pipeline for every packet, at most
// concurrency at a time. The returned events are in input order, and
// every event is present even if its pipeline failed (see Event.Err).
// Events are numbered by input position, not by completion order.
// The error is non-nil only when ctx was cancelled.
func (bp *BatchProcessor) ProcessBatch(ctx context.Context, packets []model.RawPacket) ([]*Event, error) {
	bp.logger.Debug("starting batch processing",
		"total_packets", len(packets),
		"concurrency", bp.concurrency,
	)
	startTime := time.Now()

	// Each goroutine owns its slot, so no lock is needed.
	events := make([]*Event, len(packets))

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(bp.concurrency)

	for i, pkt := range packets {
		events[i] = NewEvent(pkt)
		events[i].Number = uint64(i + 1)
		g.Go(func() error {
			if err := gctx.Err(); err != nil {
				events[i].Err = err
				return err
			}
			// Step errors stay on the event; other packets keep going.
			_ = bp.pipeline.Execute(gctx, events[i]) //nolint:errcheck // recorded on the event
			return nil
		})
	}

	err := g.Wait()

	bp.logger.Debug("batch processing complete",
		"total_packets", len(packets),
		"elapsed", time.Since(startTime),
	)
	return events, err
}
