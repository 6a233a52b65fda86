// Package model defines the data structures shared across udpscope.
//
// This package contains the following main types:
//   - RawPacket: A datagram as it came off the socket
//   - AnalysisReport: The immutable interpretation of one payload
//   - Statistics: A point-in-time copy of the running traffic counters
//   - Rate: Packet and byte throughput derived from Statistics
//   - SessionSummary: The aggregate record of one listening session
//
// Design decision: We separate models into their own package to avoid circular
// dependencies. The analysis engine, the statistics accumulator, the
// transceiver and the report writers all exchange these types, so
// centralizing them prevents import cycles.
//
// All types are serializable to JSON for report output and database storage.
package model
