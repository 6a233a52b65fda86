package model

import (
	"maps"
	"time"
)

// Statistics is a point-in-time copy of the running traffic counters.
// Values of this type are produced by stats.Accumulator.Snapshot and are
// never mutated afterwards.
type Statistics struct {
	// TotalPackets is the number of recorded reports.
	TotalPackets uint64 `json:"total_packets"`

	// TotalBytes is the sum of all recorded report sizes.
	TotalBytes uint64 `json:"total_bytes"`

	// StartTime is when the accumulator was created.
	StartTime time.Time `json:"start_time"`

	// LastPacketTime is when the most recent report was recorded.
	// Nil until the first packet arrives.
	LastPacketTime *time.Time `json:"last_packet_time,omitempty"`

	// FormatCounts counts how many packets carried each format.
	// A packet classified as text and json increments both.
	FormatCounts map[Format]uint64 `json:"format_counts,omitempty"`
}

// Rate is the average throughput since StartTime.
type Rate struct {
	PacketsPerSecond float64 `json:"packets_per_second"`
	BytesPerSecond   float64 `json:"bytes_per_second"`
}

// AveragePacketSize returns the mean payload size, or 0 when nothing
// has been recorded.
func (s Statistics) AveragePacketSize() float64 {
	if s.TotalPackets == 0 {
		return 0
	}
	return float64(s.TotalBytes) / float64(s.TotalPackets)
}

// Elapsed returns the time since StartTime, measured at now.
func (s Statistics) Elapsed(now time.Time) time.Duration {
	return now.Sub(s.StartTime)
}

// Clone returns a deep copy that shares no memory with s.
func (s Statistics) Clone() Statistics {
	out := s
	if s.LastPacketTime != nil {
		t := *s.LastPacketTime
		out.LastPacketTime = &t
	}
	out.FormatCounts = maps.Clone(s.FormatCounts)
	return out
}

// Summary is a Statistics snapshot together with the rate derived from it
// and the runtime it was measured over. Report writers render Summaries.
type Summary struct {
	Statistics

	// Rate is the average throughput over Runtime.
	Rate Rate `json:"rate"`

	// Runtime is the time between StartTime and the snapshot.
	Runtime time.Duration `json:"runtime_ns"`
}

// NewSummary combines a snapshot and its rate, measuring runtime at now.
func NewSummary(s Statistics, r Rate, now time.Time) Summary {
	return Summary{
		Statistics: s,
		Rate:       r,
		Runtime:    s.Elapsed(now),
	}
}
