package transceiver

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net"
	"net/netip"
	"strconv"
	"sync"
	"time"

	"github.com/dustin/go-humanize"
	"github.com/nao1215/udpscope/internal/config"
	"github.com/nao1215/udpscope/internal/model"
	"github.com/nao1215/udpscope/internal/stats"
	"golang.org/x/sync/errgroup"
)

// PacketHandler receives each datagram read by the receive loop.
// It runs on the receive goroutine; the packet is not retained afterwards.
type PacketHandler func(pkt model.RawPacket)

// Transceiver sends and receives UDP datagrams on a single socket.
type Transceiver struct {
	cfg     *config.Config
	factory SocketFactory
	logger  *slog.Logger
	stats   *stats.Accumulator
	now     func() time.Time

	mu        sync.Mutex
	sock      PacketSocket
	listening bool
	done      chan struct{}
	stopOnce  sync.Once
}

// Option configures a Transceiver.
type Option func(*Transceiver)

// WithLogger sets the logger. Defaults to slog.Default().
func WithLogger(logger *slog.Logger) Option {
	return func(t *Transceiver) {
		if logger != nil {
			t.logger = logger
		}
	}
}

// WithSocketFactory replaces the socket factory, typically with a
// MockSocketFactory in tests.
func WithSocketFactory(factory SocketFactory) Option {
	return func(t *Transceiver) {
		if factory != nil {
			t.factory = factory
		}
	}
}

// WithAccumulator replaces the statistics accumulator.
func WithAccumulator(acc *stats.Accumulator) Option {
	return func(t *Transceiver) {
		if acc != nil {
			t.stats = acc
		}
	}
}

// WithClock sets the clock used to timestamp received packets.
func WithClock(now func() time.Time) Option {
	return func(t *Transceiver) {
		if now != nil {
			t.now = now
		}
	}
}

// New creates a Transceiver. No socket is opened until Listen or Send.
// cfg should already be validated; a nil cfg uses config.NewConfig().
func New(cfg *config.Config, opts ...Option) *Transceiver {
	if cfg == nil {
		cfg = config.NewConfig()
	}
	t := &Transceiver{
		cfg:     cfg,
		factory: NewUDPSocketFactory(),
		logger:  slog.Default(),
		now:     time.Now,
		done:    make(chan struct{}),
	}
	for _, opt := range opts {
		opt(t)
	}
	if t.stats == nil {
		t.stats = stats.NewAccumulator(stats.WithClock(t.now))
	}
	return t
}

// Stats returns the accumulator owned by this Transceiver.
func (t *Transceiver) Stats() *stats.Accumulator {
	return t.stats
}

// LocalAddr returns the bound address, or nil if no socket is open.
func (t *Transceiver) LocalAddr() net.Addr {
	t.mu.Lock()
	defer t.mu.Unlock()
	if t.sock == nil {
		return nil
	}
	return t.sock.LocalAddr()
}

// Listen binds the configured local address. Failure is returned as a
// *BindError and is fatal for the Transceiver.
func (t *Transceiver) Listen() error {
	t.mu.Lock()
	defer t.mu.Unlock()

	if t.isStopped() {
		return ErrClosed
	}
	if t.listening {
		return ErrAlreadyListening
	}

	addr := t.cfg.BindAddress
	laddr, err := net.ResolveUDPAddr("udp", addr)
	if err != nil {
		return &BindError{Addr: addr, Err: err}
	}

	// A send-only socket may already exist; it is replaced by the bound one.
	if t.sock != nil {
		_ = t.sock.Close()
		t.sock = nil
	}

	sock, err := t.factory.ListenUDP(networkFor(laddr), laddr)
	if err != nil {
		return &BindError{Addr: addr, Err: err}
	}

	if t.cfg.SocketBufferSize > 0 {
		if err := sock.SetReadBuffer(t.cfg.SocketBufferSize); err != nil {
			t.logger.Warn("failed to set socket receive buffer",
				"size", t.cfg.SocketBufferSize,
				"error", err,
			)
		}
	}
	t.applyTTL(sock)

	t.sock = sock
	t.listening = true
	t.logger.Info("listening", "addr", sock.LocalAddr().String())
	return nil
}

// Send transmits payload as one datagram to dst ("host:port").
// If Listen has not been called, an ephemeral socket is opened on first use.
// An empty payload is sent as an empty datagram.
func (t *Transceiver) Send(ctx context.Context, payload []byte, dst string) (int, error) {
	if err := ctx.Err(); err != nil {
		return 0, &SendError{Dst: dst, Err: err}
	}

	to, err := resolveDestination(ctx, dst)
	if err != nil {
		return 0, &SendError{Dst: dst, Err: err}
	}

	sock, err := t.sendSocket()
	if err != nil {
		return 0, &SendError{Dst: dst, Err: err}
	}

	n, err := sock.WriteToUDPAddrPort(payload, to)
	if err != nil {
		if errors.Is(err, net.ErrClosed) {
			err = fmt.Errorf("%w: %w", ErrClosed, err)
		}
		return n, &SendError{Dst: dst, Err: err}
	}

	t.logger.Debug("datagram sent", "to", to.String(), "bytes", n)
	return n, nil
}

// sendSocket returns the bound socket, opening an ephemeral one if needed.
func (t *Transceiver) sendSocket() (PacketSocket, error) {
	t.mu.Lock()
	defer t.mu.Unlock()

	if t.isStopped() {
		return nil, ErrClosed
	}
	if t.sock != nil {
		return t.sock, nil
	}

	sock, err := t.factory.ListenUDP("udp", nil)
	if err != nil {
		return nil, err
	}
	t.applyTTL(sock)
	t.sock = sock
	return sock, nil
}

func (t *Transceiver) applyTTL(sock PacketSocket) {
	if t.cfg.TTL <= 0 {
		return
	}
	if err := sock.SetTTL(t.cfg.TTL); err != nil {
		t.logger.Warn("failed to set ttl", "ttl", t.cfg.TTL, "error", err)
	}
}

// ReceiveLoop reads datagrams until ctx is done or Stop is called, invoking
// handle once per datagram in arrival order. Read failures are logged as
// *ReceiveError and skipped. It returns nil on a cooperative stop.
func (t *Transceiver) ReceiveLoop(ctx context.Context, handle PacketHandler) error {
	t.mu.Lock()
	sock, listening := t.sock, t.listening
	t.mu.Unlock()

	if t.isStopped() {
		return ErrClosed
	}
	if !listening {
		return ErrNotListening
	}

	buffer := make([]byte, t.cfg.ReceiveBufferSize)

	for {
		select {
		case <-ctx.Done():
			t.logger.Debug("receive loop stopping due to context cancellation")
			return nil
		case <-t.done:
			t.logger.Debug("receive loop stopping")
			return nil
		default:
		}

		// The deadline lets the loop observe ctx and Stop between reads.
		if err := sock.SetReadDeadline(time.Now().Add(t.cfg.PollInterval)); err != nil && !t.isStopped() {
			t.logger.Warn("failed to set read deadline", "error", err)
		}

		n, from, err := sock.ReadFromUDPAddrPort(buffer)
		if err != nil {
			var netErr net.Error
			if errors.As(err, &netErr) && netErr.Timeout() {
				continue
			}
			if t.isStopped() || ctx.Err() != nil {
				return nil
			}
			if errors.Is(err, net.ErrClosed) {
				return &ReceiveError{Err: fmt.Errorf("%w: %w", ErrClosed, err)}
			}
			t.logger.Warn("receive failed", "error", &ReceiveError{Err: err})
			continue
		}

		from = netip.AddrPortFrom(from.Addr().Unmap(), from.Port())
		handle(model.NewRawPacket(buffer[:n], from, t.now()))
	}
}

// Run listens if necessary, then runs the receive loop and, when
// StatsInterval is positive, a periodic statistics logger. It returns when
// ctx is done, Stop is called, or the receive loop fails.
func (t *Transceiver) Run(ctx context.Context, handle PacketHandler) error {
	t.mu.Lock()
	listening := t.listening
	t.mu.Unlock()
	if !listening {
		if err := t.Listen(); err != nil {
			return err
		}
	}

	g, gctx := errgroup.WithContext(ctx)
	loopDone := make(chan struct{})

	g.Go(func() error {
		defer close(loopDone)
		return t.ReceiveLoop(gctx, handle)
	})

	if t.cfg.StatsInterval > 0 {
		g.Go(func() error {
			t.logStatsEvery(gctx, loopDone, t.cfg.StatsInterval)
			return nil
		})
	}

	return g.Wait()
}

func (t *Transceiver) logStatsEvery(ctx context.Context, loopDone <-chan struct{}, interval time.Duration) {
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-loopDone:
			return
		case <-ticker.C:
			snap, rate := t.stats.SnapshotWithRate()
			t.logger.Info("traffic statistics",
				"packets", snap.TotalPackets,
				"bytes", humanize.Bytes(snap.TotalBytes),
				"packets_per_sec", fmt.Sprintf("%.2f", rate.PacketsPerSecond),
				"bytes_per_sec", humanize.Bytes(uint64(rate.BytesPerSecond))+"/s",
			)
		}
	}
}

// Stop closes the socket and ends the receive loop within one poll interval.
// It is safe to call more than once; later calls return nil.
func (t *Transceiver) Stop() error {
	var err error
	t.stopOnce.Do(func() {
		close(t.done)

		t.mu.Lock()
		defer t.mu.Unlock()
		if t.sock != nil {
			err = t.sock.Close()
		}
		t.listening = false
	})
	return err
}

func (t *Transceiver) isStopped() bool {
	select {
	case <-t.done:
		return true
	default:
		return false
	}
}

// networkFor picks udp4 or udp6 for a literal address so that TTL and
// buffer options apply to the expected family. An empty host uses "udp".
func networkFor(addr *net.UDPAddr) string {
	switch {
	case addr.IP == nil:
		return "udp"
	case addr.IP.To4() != nil:
		return "udp4"
	default:
		return "udp6"
	}
}

// resolveDestination turns "host:port" into a netip.AddrPort, resolving
// host names with the context-aware resolver. IPv4 results are preferred.
func resolveDestination(ctx context.Context, dst string) (netip.AddrPort, error) {
	if ap, err := netip.ParseAddrPort(dst); err == nil {
		return ap, nil
	}

	host, portStr, err := net.SplitHostPort(dst)
	if err != nil {
		return netip.AddrPort{}, fmt.Errorf("%w: %w", ErrInvalidDestination, err)
	}
	port, err := strconv.ParseUint(portStr, 10, 16)
	if err != nil {
		return netip.AddrPort{}, fmt.Errorf("%w: port %q", ErrInvalidDestination, portStr)
	}
	if host == "" {
		return netip.AddrPortFrom(netip.AddrFrom4([4]byte{127, 0, 0, 1}), uint16(port)), nil
	}

	addrs, err := net.DefaultResolver.LookupNetIP(ctx, "ip", host)
	if err != nil {
		return netip.AddrPort{}, fmt.Errorf("%w: %w", ErrInvalidDestination, err)
	}
	if len(addrs) == 0 {
		return netip.AddrPort{}, fmt.Errorf("%w: no addresses for %s", ErrInvalidDestination, host)
	}
	chosen := addrs[0]
	for _, a := range addrs {
		if a.Unmap().Is4() {
			chosen = a
			break
		}
	}
	return netip.AddrPortFrom(chosen.Unmap(), uint16(port)), nil
}
