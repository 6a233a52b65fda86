package main

import (
	"context"
	"fmt"
	"io"
	"net/netip"
	"os"
	"time"

	"github.com/spf13/cobra"

	"github.com/nao1215/udpscope/internal/model"
	"github.com/nao1215/udpscope/internal/pipeline"
	"github.com/nao1215/udpscope/internal/stats"
)

// stdinArg names standard input in the analyze argument list.
const stdinArg = "-"

// NewAnalyzeCmd creates the analyze command.
func NewAnalyzeCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "analyze <file>...",
		Short: "Analyze saved payloads without a socket",
		Long: `Analyze treats each file as the payload of one datagram and prints the
same report listen would print, followed by statistics over all files.

Files are analyzed concurrently; reports are printed in argument order.
Use "-" to read one payload from standard input.

Examples:
  # Analyze captured payloads
  udpscope analyze dump/*.bin

  # Check how a message would be classified
  printf '{"seq": 1}' | udpscope analyze -`,
		Args: cobra.MinimumNArgs(1),
		RunE: runAnalyzeCmd,
	}

	cmd.Flags().IntP("concurrency", "p", pipeline.DefaultConcurrency, "Number of files analyzed in parallel")
	addAnalysisFlags(cmd)
	addReportFlags(cmd)

	return cmd
}

func runAnalyzeCmd(cmd *cobra.Command, args []string) error {
	e, err := newEnv(cmd)
	if err != nil {
		return err
	}

	concurrency, err := cmd.Flags().GetInt("concurrency")
	if err != nil {
		return err
	}

	return runAnalyze(commandContext(cmd), e, args, concurrency)
}

// runAnalyze reads every payload, analyzes them as a batch and renders the
// results in input order.
func runAnalyze(ctx context.Context, e *env, paths []string, concurrency int) error {
	packets := make([]model.RawPacket, 0, len(paths))
	for _, path := range paths {
		data, err := readPayload(path, e.in)
		if err != nil {
			return err
		}
		packets = append(packets, model.NewRawPacket(data, netip.AddrPort{}, time.Now()))
	}

	engine, err := e.engine()
	if err != nil {
		return err
	}

	writer, closeFn, err := e.reportWriter()
	if err != nil {
		return err
	}
	defer func() {
		if err := closeFn(); err != nil {
			e.logger.Warn("failed to close report file", "error", err)
		}
	}()

	acc := stats.NewAccumulator()
	bp := pipeline.NewBatchProcessor(
		pipeline.NewPacketPipeline(engine, acc, nil, e.logger),
		pipeline.WithConcurrency(concurrency),
		pipeline.WithBatchLogger(e.logger),
	)

	events, err := bp.ProcessBatch(ctx, packets)
	if err != nil {
		return err
	}

	for i, ev := range events {
		if ev.Err != nil {
			fmt.Fprintf(e.errOut, "%s: %v\n", paths[i], ev.Err)
			continue
		}
		if _, err := writer.WritePacket(ev.Received()); err != nil {
			return fmt.Errorf("failed to write report: %w", err)
		}
	}

	snapshot, rate := acc.SnapshotWithRate()
	if _, err := writer.WriteSummary(model.NewSummary(snapshot, rate, time.Now())); err != nil {
		return fmt.Errorf("failed to write statistics: %w", err)
	}
	return nil
}

// readPayload returns the content of path, or of stdin for "-".
// Payloads larger than one datagram are rejected.
func readPayload(path string, stdin io.Reader) ([]byte, error) {
	var (
		data []byte
		err  error
	)
	if path == stdinArg {
		data, err = io.ReadAll(io.LimitReader(stdin, maxPayloadFileSize+1))
	} else {
		data, err = readLimitedFile(path)
	}
	if err != nil {
		return nil, fmt.Errorf("failed to read %s: %w", path, err)
	}
	if len(data) > maxPayloadFileSize {
		return nil, fmt.Errorf("%s: %w", path, errPayloadTooLarge)
	}
	return data, nil
}

func readLimitedFile(path string) ([]byte, error) {
	f, err := os.Open(path) //nolint:gosec // user-selected payload file
	if err != nil {
		return nil, err
	}
	defer f.Close()
	return io.ReadAll(io.LimitReader(f, maxPayloadFileSize+1))
}
