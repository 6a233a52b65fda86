package main

import (
	"bufio"
	"context"
	"fmt"
	"io"
	"os"
	"os/signal"
	"strings"
	"syscall"

	"github.com/spf13/cobra"
	"golang.org/x/sync/errgroup"
)

// Interactive commands understood by chat.
const (
	chatQuit       = "quit"
	chatExit       = "exit"
	chatStats      = "stats"
	chatJSONPrefix = "json:"
)

// NewChatCmd creates the chat command.
func NewChatCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "chat",
		Short: "Listen and send interactively from one socket",
		Long: `Chat binds a UDP socket, reports every datagram it receives, and sends
each line typed on standard input to the target from the same socket.

Input commands:
  quit, exit     stop and print statistics
  stats          print statistics so far
  json:<value>   validate <value> as JSON and send it compacted
  anything else  sent as UTF-8 text

Examples:
  # Two terminals talking to each other
  udpscope chat --bind :8888 --to 127.0.0.1:9999
  udpscope chat --bind :9999 --to 127.0.0.1:8888`,
		Args: cobra.NoArgs,
		RunE: runChatCmd,
	}

	addBindFlags(cmd)
	addTargetFlags(cmd)
	addAnalysisFlags(cmd)
	addReportFlags(cmd)
	addSessionFlags(cmd, true)

	return cmd
}

func runChatCmd(cmd *cobra.Command, _ []string) error {
	e, err := newEnv(cmd)
	if err != nil {
		return err
	}

	ctx, stop := signal.NotifyContext(commandContext(cmd), os.Interrupt, syscall.SIGTERM)
	defer stop()

	return runChat(ctx, e)
}

// runChat receives in the background while reading commands from e.in.
// It returns after quit/exit, end of input, or cancellation of ctx.
func runChat(ctx context.Context, e *env) error {
	s, err := startSession(e)
	if err != nil {
		return err
	}

	fmt.Fprintf(e.errOut, "Listening on %s, sending to %s\n", s.localAddr(), e.cfg.TargetAddress)
	fmt.Fprintln(e.errOut, "Commands: quit, exit, stats, json:<value>; anything else is sent as text")

	chatCtx, cancel := context.WithCancel(ctx)
	defer cancel()

	g, gctx := errgroup.WithContext(chatCtx)
	g.Go(func() error {
		return s.run(gctx)
	})
	g.Go(func() error {
		// Leaving the input loop ends the receive loop too.
		defer cancel()
		return s.interact(gctx, e.in)
	})
	runErr := g.Wait()

	if err := s.finish(context.WithoutCancel(ctx)); err != nil {
		if runErr == nil {
			runErr = err
		} else {
			e.logger.Error("failed to finish session", "error", err)
		}
	}
	return runErr
}

// interact handles input lines until quit, EOF or cancellation.
func (s *session) interact(ctx context.Context, in io.Reader) error {
	lines := make(chan string)
	scanErr := make(chan error, 1)

	// The scanner cannot be interrupted; on cancellation it is abandoned
	// and exits with the process.
	go func() {
		defer close(lines)
		scanner := bufio.NewScanner(in)
		for scanner.Scan() {
			select {
			case lines <- scanner.Text():
			case <-ctx.Done():
				return
			}
		}
		scanErr <- scanner.Err()
	}()

	for {
		select {
		case <-ctx.Done():
			return nil
		case line, ok := <-lines:
			if !ok {
				select {
				case err := <-scanErr:
					return err
				default:
					return nil
				}
			}
			if s.handleLine(ctx, line) {
				return nil
			}
		}
	}
}

// handleLine executes one input line. It reports whether chat should end.
func (s *session) handleLine(ctx context.Context, line string) bool {
	trimmed := strings.TrimSpace(line)
	switch {
	case trimmed == "":
		return false
	case strings.EqualFold(trimmed, chatQuit), strings.EqualFold(trimmed, chatExit):
		return true
	case strings.EqualFold(trimmed, chatStats):
		if err := s.writeSummary(); err != nil {
			s.env.logger.Error("failed to write statistics", "error", err)
		}
		return false
	case strings.HasPrefix(trimmed, chatJSONPrefix):
		payload, err := encodePayload(strings.TrimPrefix(trimmed, chatJSONPrefix), payloadJSON)
		if err != nil {
			fmt.Fprintf(s.env.errOut, "Invalid JSON: %v\n", err)
			return false
		}
		s.send(ctx, payload)
		return false
	default:
		s.send(ctx, []byte(line))
		return false
	}
}

// send transmits payload to the configured target. Failures are reported
// and chat continues.
func (s *session) send(ctx context.Context, payload []byte) {
	target := s.env.cfg.TargetAddress
	n, err := s.tr.Send(ctx, payload, target)
	if err != nil {
		fmt.Fprintf(s.env.errOut, "Error sending message: %v\n", err)
		return
	}
	if _, err := s.writer.Printf("Sent %d bytes to %s\n", n, target); err != nil {
		s.env.logger.Warn("failed to write status", "error", err)
	}
}
