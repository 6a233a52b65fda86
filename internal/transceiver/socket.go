package transceiver

import (
	"errors"
	"net"
	"net/netip"
	"time"

	"golang.org/x/net/ipv4"
	"golang.org/x/net/ipv6"
)

// PacketSocket defines the UDP socket operations a Transceiver needs.
// This abstraction enables unit testing without real network connections.
type PacketSocket interface {
	// ReadFromUDPAddrPort reads one datagram into b.
	ReadFromUDPAddrPort(b []byte) (n int, addr netip.AddrPort, err error)

	// WriteToUDPAddrPort sends b as one datagram to addr.
	WriteToUDPAddrPort(b []byte, addr netip.AddrPort) (int, error)

	// SetReadDeadline sets the deadline for future reads.
	SetReadDeadline(t time.Time) error

	// SetReadBuffer sets the size of the operating system's receive buffer.
	SetReadBuffer(bytes int) error

	// SetTTL sets the time-to-live (hop limit) of outgoing datagrams.
	SetTTL(ttl int) error

	// LocalAddr returns the local network address.
	LocalAddr() net.Addr

	// Close closes the socket.
	Close() error
}

// SocketFactory creates PacketSockets.
type SocketFactory interface {
	// ListenUDP creates a socket bound to laddr. A nil laddr binds an
	// ephemeral port on all interfaces.
	ListenUDP(network string, laddr *net.UDPAddr) (PacketSocket, error)
}

// UDPSocket wraps *net.UDPConn to implement PacketSocket.
type UDPSocket struct {
	conn *net.UDPConn
}

// NewUDPSocket wraps an existing *net.UDPConn.
func NewUDPSocket(conn *net.UDPConn) *UDPSocket {
	return &UDPSocket{conn: conn}
}

// ReadFromUDPAddrPort reads from the UDP connection.
func (s *UDPSocket) ReadFromUDPAddrPort(b []byte) (int, netip.AddrPort, error) {
	return s.conn.ReadFromUDPAddrPort(b)
}

// WriteToUDPAddrPort writes to the UDP connection.
func (s *UDPSocket) WriteToUDPAddrPort(b []byte, addr netip.AddrPort) (int, error) {
	return s.conn.WriteToUDPAddrPort(b, addr)
}

// SetReadDeadline sets the read deadline.
func (s *UDPSocket) SetReadDeadline(t time.Time) error {
	return s.conn.SetReadDeadline(t)
}

// SetReadBuffer sets the receive buffer size.
func (s *UDPSocket) SetReadBuffer(bytes int) error {
	return s.conn.SetReadBuffer(bytes)
}

// SetTTL sets IP_TTL and, for IPv6 or dual-stack sockets, the unicast hop
// limit. It succeeds if either option could be applied.
func (s *UDPSocket) SetTTL(ttl int) error {
	err4 := ipv4.NewPacketConn(s.conn).SetTTL(ttl)
	err6 := ipv6.NewPacketConn(s.conn).SetHopLimit(ttl)
	if err4 == nil || err6 == nil {
		return nil
	}
	return errors.Join(err4, err6)
}

// LocalAddr returns the local network address.
func (s *UDPSocket) LocalAddr() net.Addr {
	return s.conn.LocalAddr()
}

// Close closes the UDP connection.
func (s *UDPSocket) Close() error {
	return s.conn.Close()
}

// UDPSocketFactory implements SocketFactory using net.ListenUDP.
type UDPSocketFactory struct{}

// NewUDPSocketFactory creates a new UDPSocketFactory.
func NewUDPSocketFactory() *UDPSocketFactory {
	return &UDPSocketFactory{}
}

// ListenUDP creates a new UDP socket.
func (f *UDPSocketFactory) ListenUDP(network string, laddr *net.UDPAddr) (PacketSocket, error) {
	conn, err := net.ListenUDP(network, laddr)
	if err != nil {
		return nil, err
	}
	return NewUDPSocket(conn), nil
}
