package model

import "time"

// SessionSummary is the aggregate record of one listening session.
// It is what the history database stores; payloads are never persisted.
type SessionSummary struct {
	// ID uniquely identifies the session.
	ID string `json:"id"`

	// LocalAddr is the address the transceiver was bound to.
	LocalAddr string `json:"local_addr"`

	// StartedAt is when the socket was bound.
	StartedAt time.Time `json:"started_at"`

	// EndedAt is when the session stopped.
	EndedAt time.Time `json:"ended_at"`

	// Statistics is the final snapshot of the session counters.
	Statistics Statistics `json:"statistics"`
}

// Duration returns how long the session lasted.
func (s SessionSummary) Duration() time.Duration {
	return s.EndedAt.Sub(s.StartedAt)
}

// Rate returns the average throughput over the whole session.
func (s SessionSummary) Rate() Rate {
	seconds := s.Duration().Seconds()
	if seconds <= 0 {
		return Rate{}
	}
	return Rate{
		PacketsPerSecond: float64(s.Statistics.TotalPackets) / seconds,
		BytesPerSecond:   float64(s.Statistics.TotalBytes) / seconds,
	}
}
