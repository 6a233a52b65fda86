// Package database provides SQLite-based storage for udpscope session history.
//
// Each finished listening session is stored as one aggregate row: the bound
// address, start and end times, and the final traffic counters. Payloads are
// never written to disk.
//
// Design decision: We use SQLite (via modernc.org/sqlite) so the history is
// a single CGO-free file under the XDG data directory.
package database
