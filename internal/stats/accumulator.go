package stats

import (
	"sync"
	"time"

	"github.com/nao1215/udpscope/internal/model"
)

// MinRateWindow is the smallest elapsed time for which Rate reports a
// non-zero throughput. Below it the division would be dominated by clock
// resolution.
const MinRateWindow = time.Millisecond

// Accumulator holds the running counters.
type Accumulator struct {
	mu sync.Mutex

	totalPackets   uint64
	totalBytes     uint64
	startTime      time.Time
	lastPacketTime time.Time
	hasPacket      bool
	formatCounts   map[model.Format]uint64

	now func() time.Time
}

// Option configures an Accumulator.
type Option func(*Accumulator)

// WithClock overrides time.Now, for tests.
func WithClock(now func() time.Time) Option {
	return func(a *Accumulator) {
		if now != nil {
			a.now = now
		}
	}
}

// NewAccumulator creates an Accumulator whose start time is "now".
func NewAccumulator(opts ...Option) *Accumulator {
	a := &Accumulator{
		formatCounts: make(map[model.Format]uint64),
		now:          time.Now,
	}
	for _, opt := range opts {
		opt(a)
	}
	a.startTime = a.now()
	return a
}

// Record adds one report to the counters and sets the last packet time
// to at. It returns the packet's 1-based ordinal in this accumulator.
// It panics on a report that fails validation, since recording it would
// silently corrupt the totals.
func (a *Accumulator) Record(report *model.AnalysisReport, at time.Time) uint64 {
	if report == nil {
		panic("stats: Record called with nil report")
	}
	if err := report.Validate(); err != nil {
		panic("stats: refusing to record invalid report: " + err.Error())
	}

	a.mu.Lock()
	defer a.mu.Unlock()

	a.totalPackets++
	a.totalBytes += uint64(report.Size) //nolint:gosec // Validate guarantees Size >= 0
	a.lastPacketTime = at
	a.hasPacket = true
	for _, f := range report.PossibleFormats.Formats() {
		a.formatCounts[f]++
	}
	return a.totalPackets
}

// Snapshot returns a consistent copy of the counters.
func (a *Accumulator) Snapshot() model.Statistics {
	a.mu.Lock()
	defer a.mu.Unlock()
	return a.snapshotLocked()
}

func (a *Accumulator) snapshotLocked() model.Statistics {
	s := model.Statistics{
		TotalPackets: a.totalPackets,
		TotalBytes:   a.totalBytes,
		StartTime:    a.startTime,
		FormatCounts: make(map[model.Format]uint64, len(a.formatCounts)),
	}
	if a.hasPacket {
		last := a.lastPacketTime
		s.LastPacketTime = &last
	}
	for f, n := range a.formatCounts {
		s.FormatCounts[f] = n
	}
	return s
}

// Rate returns the average throughput since the accumulator was created.
// When less than MinRateWindow has elapsed the rate is zero.
func (a *Accumulator) Rate() model.Rate {
	a.mu.Lock()
	packets, bytes, start := a.totalPackets, a.totalBytes, a.startTime
	a.mu.Unlock()

	return rateOver(packets, bytes, a.now().Sub(start))
}

// SnapshotWithRate returns a snapshot and the rate computed from the
// same counter values.
func (a *Accumulator) SnapshotWithRate() (model.Statistics, model.Rate) {
	a.mu.Lock()
	s := a.snapshotLocked()
	a.mu.Unlock()

	return s, rateOver(s.TotalPackets, s.TotalBytes, a.now().Sub(s.StartTime))
}

func rateOver(packets, bytes uint64, elapsed time.Duration) model.Rate {
	if elapsed < MinRateWindow {
		return model.Rate{}
	}
	seconds := elapsed.Seconds()
	return model.Rate{
		PacketsPerSecond: float64(packets) / seconds,
		BytesPerSecond:   float64(bytes) / seconds,
	}
}
