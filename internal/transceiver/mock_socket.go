package transceiver

import (
	"net"
	"net/netip"
	"sync"
	"time"
)

// MockPacket is a datagram injected into or captured from a MockSocket.
type MockPacket struct {
	Data []byte
	Addr netip.AddrPort
}

// MockSocket implements PacketSocket for testing.
// Reads block until a packet is injected, the read deadline passes or the
// socket is closed, the same way a real socket does.
type MockSocket struct {
	mu           sync.Mutex
	inbox        chan MockPacket
	closed       chan struct{}
	closeOnce    sync.Once
	deadline     time.Time
	sent         []MockPacket
	readErrors   []error
	readBuffer   int
	ttl          int
	localAddress *net.UDPAddr

	// WriteError is returned by WriteToUDPAddrPort if set.
	WriteError error
	// SetReadBufferError is returned by SetReadBuffer if set.
	SetReadBufferError error
	// SetTTLError is returned by SetTTL if set.
	SetTTLError error
}

// NewMockSocket creates a MockSocket reporting localAddr as its address.
func NewMockSocket(localAddr netip.AddrPort) *MockSocket {
	return &MockSocket{
		inbox:        make(chan MockPacket, 1024),
		closed:       make(chan struct{}),
		localAddress: net.UDPAddrFromAddrPort(localAddr),
	}
}

// Inject queues a datagram for the next read.
func (m *MockSocket) Inject(data []byte, from netip.AddrPort) {
	m.inbox <- MockPacket{Data: append([]byte(nil), data...), Addr: from}
}

// FailNextRead makes the next read return err instead of a packet.
func (m *MockSocket) FailNextRead(err error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.readErrors = append(m.readErrors, err)
}

// ReadFromUDPAddrPort returns the next injected packet.
func (m *MockSocket) ReadFromUDPAddrPort(b []byte) (int, netip.AddrPort, error) {
	m.mu.Lock()
	if len(m.readErrors) > 0 {
		err := m.readErrors[0]
		m.readErrors = m.readErrors[1:]
		m.mu.Unlock()
		return 0, netip.AddrPort{}, err
	}
	deadline := m.deadline
	m.mu.Unlock()

	var timeout <-chan time.Time
	if !deadline.IsZero() {
		timer := time.NewTimer(time.Until(deadline))
		defer timer.Stop()
		timeout = timer.C
	}

	select {
	case <-m.closed:
		return 0, netip.AddrPort{}, net.ErrClosed
	case pkt := <-m.inbox:
		return copy(b, pkt.Data), pkt.Addr, nil
	case <-timeout:
		return 0, netip.AddrPort{}, &net.OpError{Op: "read", Net: "udp", Err: &timeoutError{}}
	}
}

// WriteToUDPAddrPort records the datagram.
func (m *MockSocket) WriteToUDPAddrPort(b []byte, addr netip.AddrPort) (int, error) {
	select {
	case <-m.closed:
		return 0, net.ErrClosed
	default:
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.WriteError != nil {
		return 0, m.WriteError
	}
	m.sent = append(m.sent, MockPacket{Data: append([]byte(nil), b...), Addr: addr})
	return len(b), nil
}

// Sent returns a copy of every datagram written so far.
func (m *MockSocket) Sent() []MockPacket {
	m.mu.Lock()
	defer m.mu.Unlock()
	return append([]MockPacket(nil), m.sent...)
}

// SetReadDeadline records the deadline.
func (m *MockSocket) SetReadDeadline(t time.Time) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.deadline = t
	return nil
}

// SetReadBuffer records the buffer size.
func (m *MockSocket) SetReadBuffer(bytes int) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.SetReadBufferError != nil {
		return m.SetReadBufferError
	}
	m.readBuffer = bytes
	return nil
}

// ReadBuffer returns the value set by SetReadBuffer.
func (m *MockSocket) ReadBuffer() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.readBuffer
}

// SetTTL records the TTL.
func (m *MockSocket) SetTTL(ttl int) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.SetTTLError != nil {
		return m.SetTTLError
	}
	m.ttl = ttl
	return nil
}

// TTL returns the value set by SetTTL.
func (m *MockSocket) TTL() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.ttl
}

// LocalAddr returns the mock local address.
func (m *MockSocket) LocalAddr() net.Addr {
	return m.localAddress
}

// Close marks the socket as closed and unblocks pending reads.
func (m *MockSocket) Close() error {
	m.closeOnce.Do(func() { close(m.closed) })
	return nil
}

// IsClosed reports whether Close was called.
func (m *MockSocket) IsClosed() bool {
	select {
	case <-m.closed:
		return true
	default:
		return false
	}
}

// MockSocketFactory implements SocketFactory for testing.
type MockSocketFactory struct {
	mu sync.Mutex
	// Socket is the socket to return from ListenUDP.
	Socket *MockSocket
	// Error is returned by ListenUDP if set.
	Error error
	calls []MockListenCall
}

// MockListenCall records a call to ListenUDP.
type MockListenCall struct {
	Network string
	Addr    *net.UDPAddr
}

// NewMockSocketFactory creates a new MockSocketFactory.
func NewMockSocketFactory(socket *MockSocket) *MockSocketFactory {
	return &MockSocketFactory{Socket: socket}
}

// ListenUDP returns the configured mock socket.
func (f *MockSocketFactory) ListenUDP(network string, laddr *net.UDPAddr) (PacketSocket, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.calls = append(f.calls, MockListenCall{Network: network, Addr: laddr})
	if f.Error != nil {
		return nil, f.Error
	}
	return f.Socket, nil
}

// Calls returns every ListenUDP call made so far.
func (f *MockSocketFactory) Calls() []MockListenCall {
	f.mu.Lock()
	defer f.mu.Unlock()
	return append([]MockListenCall(nil), f.calls...)
}

// timeoutError implements net.Error for timeout simulation.
type timeoutError struct{}

func (e *timeoutError) Error() string   { return "i/o timeout" }
func (e *timeoutError) Timeout() bool   { return true }
func (e *timeoutError) Temporary() bool { return true }
