// Package stats keeps running traffic counters for one transceiver.
//
// An Accumulator is owned by exactly one Transceiver and is never global,
// so several transceivers (for example in tests) never interfere. All
// mutation goes through Record under a single mutex; Snapshot and Rate may
// be called concurrently from any goroutine and always observe a
// consistent state.
package stats
