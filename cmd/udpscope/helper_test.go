package main

import (
	"bytes"
	"io"
	"net/netip"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/nao1215/udpscope/internal/config"
	"github.com/nao1215/udpscope/internal/log"
	"github.com/nao1215/udpscope/internal/transceiver"
)

var (
	testLocal  = netip.MustParseAddrPort("127.0.0.1:8888")
	testRemote = netip.MustParseAddrPort("192.0.2.20:40000")
)

// syncBuffer is a bytes.Buffer safe for concurrent use.
type syncBuffer struct {
	mu  sync.Mutex
	buf bytes.Buffer
}

func (b *syncBuffer) Write(p []byte) (int, error) {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.buf.Write(p)
}

func (b *syncBuffer) String() string {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.buf.String()
}

// testHarness bundles an env with the buffers and mock socket behind it.
type testHarness struct {
	env    *env
	out    *syncBuffer
	errOut *syncBuffer
	sock   *transceiver.MockSocket
}

// newTestHarness creates an env backed by a mock socket. The history
// database lives in a per-test temporary directory.
func newTestHarness(t *testing.T, in io.Reader) *testHarness {
	t.Helper()

	cfg := config.NewConfig()
	cfg.PollInterval = 10 * time.Millisecond
	cfg.DBDir = t.TempDir()

	sock := transceiver.NewMockSocket(testLocal)
	out, errOut := &syncBuffer{}, &syncBuffer{}
	if in == nil {
		in = strings.NewReader("")
	}

	return &testHarness{
		env: &env{
			cfg:     cfg,
			logger:  log.NewLogger(errOut, false),
			in:      in,
			out:     out,
			errOut:  errOut,
			factory: transceiver.NewMockSocketFactory(sock),
		},
		out:    out,
		errOut: errOut,
		sock:   sock,
	}
}

// waitFor polls cond until it holds or the deadline passes.
func waitFor(t *testing.T, what string, cond func() bool) {
	t.Helper()

	deadline := time.Now().Add(5 * time.Second)
	for !cond() {
		if time.Now().After(deadline) {
			t.Fatalf("timed out waiting for %s", what)
		}
		time.Sleep(5 * time.Millisecond)
	}
}
