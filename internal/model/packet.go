package model

import (
	"net/netip"
	"time"
)

// RawPacket is a single datagram as delivered by the socket layer.
// It is created by the receive loop on each successful read, handed to the
// analysis pipeline once and then dropped. No packet history is kept.
type RawPacket struct {
	// Payload is the datagram body. The receive loop hands out a private
	// copy, so the slice is never reused by a later read.
	Payload []byte `json:"-"`

	// Sender is the source address of the datagram.
	Sender netip.AddrPort `json:"sender"`

	// ReceivedAt is when the read returned.
	ReceivedAt time.Time `json:"received_at"`
}

// NewRawPacket creates a RawPacket holding a copy of payload.
func NewRawPacket(payload []byte, sender netip.AddrPort, receivedAt time.Time) RawPacket {
	buf := make([]byte, len(payload))
	copy(buf, payload)
	return RawPacket{
		Payload:    buf,
		Sender:     sender,
		ReceivedAt: receivedAt,
	}
}

// Size returns the payload length in bytes.
func (p RawPacket) Size() int {
	return len(p.Payload)
}

// ReceivedPacket is the rendered view of one analyzed datagram: where it
// came from, its position in the session and the analysis result.
type ReceivedPacket struct {
	// Number is the 1-based position of the packet in the session.
	Number uint64 `json:"number"`

	// Sender is the source address of the datagram.
	Sender netip.AddrPort `json:"sender"`

	// ReceivedAt is when the datagram was read.
	ReceivedAt time.Time `json:"received_at"`

	// Analysis is the classification of the payload.
	Analysis *AnalysisReport `json:"analysis"`
}
