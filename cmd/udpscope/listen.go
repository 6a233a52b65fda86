package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"

	"github.com/nao1215/udpscope/internal/database"
	"github.com/nao1215/udpscope/internal/model"
	"github.com/nao1215/udpscope/internal/pipeline"
	"github.com/nao1215/udpscope/internal/report"
	"github.com/nao1215/udpscope/internal/transceiver"
)

// NewListenCmd creates the listen command.
func NewListenCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "listen",
		Short: "Receive datagrams and report what they contain",
		Long: `Listen binds a UDP socket and analyzes every datagram it receives.

For each datagram it prints the sender, the size, the possible formats
(text, json, binary), the decoded text, the parsed JSON value, the first four
bytes as big- and little-endian integers, and a hex dump of small payloads.
Statistics for the whole session are printed on exit (Ctrl+C).

Examples:
  # Listen on the default address (0.0.0.0:8888)
  udpscope listen

  # Listen on a specific port and log statistics every 30 seconds
  udpscope listen --bind :9999 --stats-interval 30s

  # Emit JSON Lines and keep a copy in a file
  udpscope listen --json -o capture.jsonl

  # Record the session summary in the history database
  udpscope listen --save-session`,
		Args: cobra.NoArgs,
		RunE: runListenCmd,
	}

	addBindFlags(cmd)
	addAnalysisFlags(cmd)
	addReportFlags(cmd)
	addSessionFlags(cmd, true)

	return cmd
}

func runListenCmd(cmd *cobra.Command, _ []string) error {
	e, err := newEnv(cmd)
	if err != nil {
		return err
	}

	ctx, stop := signal.NotifyContext(commandContext(cmd), os.Interrupt, syscall.SIGTERM)
	defer stop()

	return runListen(ctx, e)
}

// session is one bound transceiver together with its packet pipeline.
// listen and chat share it.
type session struct {
	env       *env
	tr        *transceiver.Transceiver
	pipeline  *pipeline.Pipeline
	writer    *report.SyncWriter
	closeFn   func() error
	startedAt time.Time
}

// startSession binds the socket and assembles the analyze, record and
// render pipeline around it.
func startSession(e *env) (*session, error) {
	engine, err := e.engine()
	if err != nil {
		return nil, err
	}

	w, closeFn, err := e.reportWriter()
	if err != nil {
		return nil, err
	}
	// Packets, summaries and chat status lines share one lock.
	writer := report.NewSyncWriter(w, e.out)

	tr := e.transceiver()
	if err := tr.Listen(); err != nil {
		_ = closeFn() //nolint:errcheck // already failing
		return nil, err
	}

	return &session{
		env:       e,
		tr:        tr,
		pipeline:  pipeline.NewPacketPipeline(engine, tr.Stats(), writer, e.logger),
		writer:    writer,
		closeFn:   closeFn,
		startedAt: time.Now(),
	}, nil
}

// run receives until ctx is cancelled or the transceiver is stopped.
func (s *session) run(ctx context.Context) error {
	return s.tr.Run(ctx, s.pipeline.Handle(ctx))
}

// writeSummary prints the current statistics with the session's writer.
func (s *session) writeSummary() error {
	snapshot, rate := s.tr.Stats().SnapshotWithRate()
	_, err := s.writer.WriteSummary(model.NewSummary(snapshot, rate, time.Now()))
	return err
}

// finish stops the socket, prints the final statistics and, when enabled,
// stores the session summary.
func (s *session) finish(ctx context.Context) error {
	if err := s.tr.Stop(); err != nil {
		s.env.logger.Warn("failed to close socket", "error", err)
	}
	endedAt := time.Now()

	err := s.writeSummary()
	if closeErr := s.closeFn(); err == nil {
		err = closeErr
	}
	if err != nil {
		return fmt.Errorf("failed to write statistics: %w", err)
	}

	if !s.env.cfg.SaveSession {
		return nil
	}
	return s.save(ctx, endedAt)
}

func (s *session) save(ctx context.Context, endedAt time.Time) error {
	db, err := database.Open(s.env.cfg.DBDir, database.DefaultOptions())
	if err != nil {
		return fmt.Errorf("failed to open database: %w", err)
	}
	defer db.Close()

	summary := model.SessionSummary{
		LocalAddr:  s.localAddr(),
		StartedAt:  s.startedAt,
		EndedAt:    endedAt,
		Statistics: s.tr.Stats().Snapshot(),
	}
	id, err := db.SaveSession(ctx, summary)
	if err != nil {
		return err
	}

	s.env.logger.Info("session saved", "id", id, "db", db.Path())
	fmt.Fprintf(s.env.errOut, "Session saved: %s\n", id)
	return nil
}

func (s *session) localAddr() string {
	if addr := s.tr.LocalAddr(); addr != nil {
		return addr.String()
	}
	return s.env.cfg.BindAddress
}

// runListen runs a receive-only session until ctx is cancelled.
func runListen(ctx context.Context, e *env) error {
	s, err := startSession(e)
	if err != nil {
		return err
	}

	fmt.Fprintf(e.errOut, "Listening on %s (Ctrl+C to stop)\n", s.localAddr())

	runErr := s.run(ctx)

	// ctx is usually cancelled by now; saving must still go through.
	if err := s.finish(context.WithoutCancel(ctx)); err != nil {
		if runErr == nil {
			runErr = err
		} else {
			e.logger.Error("failed to finish session", "error", err)
		}
	}
	return runErr
}
