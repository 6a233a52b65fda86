// Package transceiver owns the UDP socket of a udpscope endpoint.
//
// A Transceiver binds one socket, delivers every received datagram to a
// callback as a model.RawPacket, and sends datagrams from the same socket so
// peers can reply to the address they saw. It also owns the statistics
// accumulator shared between the receive loop and interactive callers.
//
// # Stopping
//
// The receive loop blocks in a read with a short deadline (the poll
// interval). Between reads it checks the context and the stop signal, so a
// call to Stop or a cancelled context is observed within one poll interval.
//
// # Testing
//
// Socket creation goes through a SocketFactory. Tests use MockSocketFactory
// and MockSocket to inject datagrams and capture sends without touching the
// network.
package transceiver
