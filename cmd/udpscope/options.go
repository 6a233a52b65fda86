package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"sync"

	"github.com/spf13/cobra"

	"github.com/nao1215/udpscope/internal/analysis"
	"github.com/nao1215/udpscope/internal/config"
	"github.com/nao1215/udpscope/internal/log"
	"github.com/nao1215/udpscope/internal/report"
	"github.com/nao1215/udpscope/internal/transceiver"
)

// Flag names shared between commands.
const (
	flagVerbose       = "verbose"
	flagConfig        = "config"
	flagJSONLog       = "json-log"
	flagBind          = "bind"
	flagTo            = "to"
	flagBufferSize    = "buffer-size"
	flagSocketBuffer  = "socket-buffer"
	flagPollInterval  = "poll-interval"
	flagTTL           = "ttl"
	flagStatsInterval = "stats-interval"
	flagThreshold     = "threshold"
	flagEncodings     = "encodings"
	flagHexLimit      = "hex-limit"
	flagJSON          = "json"
	flagMarkdown      = "markdown"
	flagOutput        = "output"
	flagSaveSession   = "save-session"
	flagDBDir         = "db-dir"
)

// addBindFlags registers the receive-side socket flags.
func addBindFlags(cmd *cobra.Command) {
	cmd.Flags().StringP(flagBind, "b", config.DefaultBindAddress,
		"Local address to bind (host:port)")
	cmd.Flags().Int(flagBufferSize, config.DefaultReceiveBufferSize,
		"Bytes read per datagram; larger datagrams are truncated")
	cmd.Flags().Int(flagSocketBuffer, 0,
		"Kernel receive buffer (SO_RCVBUF) in bytes, 0 keeps the OS default")
	cmd.Flags().Duration(flagPollInterval, config.DefaultPollInterval,
		"How often the receive loop checks for shutdown")
	cmd.Flags().DurationP(flagStatsInterval, "s", 0,
		"Log running statistics at this interval (0 disables)")
}

// addTargetFlags registers the send-side flags.
func addTargetFlags(cmd *cobra.Command) {
	cmd.Flags().StringP(flagTo, "t", config.DefaultTargetAddress,
		"Destination address (host:port)")
	cmd.Flags().Int(flagTTL, 0,
		"IPv4 TTL / IPv6 hop limit for sent datagrams (0 keeps the OS default)")
}

// addAnalysisFlags registers the classifier tunables.
func addAnalysisFlags(cmd *cobra.Command) {
	cmd.Flags().Float64(flagThreshold, analysis.DefaultPrintableThreshold,
		"Minimum printable ratio for a payload to count as text")
	cmd.Flags().StringSlice(flagEncodings, analysis.DefaultEncodingNames,
		"Encodings tried in order (utf-8, ascii, latin-1, windows-1252)")
}

// addReportFlags registers output format flags.
func addReportFlags(cmd *cobra.Command) {
	cmd.Flags().BoolP(flagJSON, "j", false,
		"Output JSON Lines (mutually exclusive with --markdown)")
	cmd.Flags().BoolP(flagMarkdown, "m", false,
		"Output Markdown (mutually exclusive with --json)")
	cmd.Flags().StringP(flagOutput, "o", "",
		"Also write the report to this file (creates directories if needed)")
	cmd.Flags().Int(flagHexLimit, config.DefaultHexDisplayLimit,
		"Show hex dumps for payloads up to this size (0 disables)")
}

// addSessionFlags registers history database flags.
func addSessionFlags(cmd *cobra.Command, withSave bool) {
	if withSave {
		cmd.Flags().Bool(flagSaveSession, false,
			"Store an aggregate summary of this session in the history database")
	}
	cmd.Flags().String(flagDBDir, "",
		"History database directory (default: XDG data directory)")
}

// flagChanged reports whether the user set the flag explicitly, looking at
// the command's own flags first and the root's persistent flags second.
func flagChanged(cmd *cobra.Command, name string) bool {
	f := cmd.Flags().Lookup(name)
	if f == nil {
		f = cmd.Root().PersistentFlags().Lookup(name)
	}
	return f != nil && f.Changed
}

// getVerboseFlag retrieves the verbose flag from the command or its parent.
func getVerboseFlag(cmd *cobra.Command) bool {
	verbose, err := cmd.Flags().GetBool(flagVerbose)
	if err != nil {
		verbose, err = cmd.Root().PersistentFlags().GetBool(flagVerbose)
		if err != nil {
			return false
		}
	}
	return verbose
}

// getPersistentString reads a root-level string flag from any subcommand.
func getPersistentString(cmd *cobra.Command, name string) string {
	v, err := cmd.Flags().GetString(name)
	if err != nil {
		v, err = cmd.Root().PersistentFlags().GetString(name)
		if err != nil {
			return ""
		}
	}
	return v
}

// getPersistentBool reads a root-level bool flag from any subcommand.
func getPersistentBool(cmd *cobra.Command, name string) bool {
	v, err := cmd.Flags().GetBool(name)
	if err != nil {
		v, err = cmd.Root().PersistentFlags().GetBool(name)
		if err != nil {
			return false
		}
	}
	return v
}

// buildConfig assembles the configuration for a command run.
// Precedence: defaults, then the configuration file, then flags the user
// set explicitly. Flag defaults never override file values.
func buildConfig(cmd *cobra.Command) (*config.Config, error) {
	cfg := config.NewConfig()
	cfg.ConfigFilePath = getPersistentString(cmd, flagConfig)

	if _, err := config.Load(cfg); err != nil {
		if errors.Is(err, config.ErrConfigNotFound) {
			return nil, fmt.Errorf("%w: %s", err, cfg.ConfigFilePath)
		}
		return nil, fmt.Errorf("failed to load config file: %w", err)
	}

	cfg.Verbose = getVerboseFlag(cmd)
	cfg.JSONLog = getPersistentBool(cmd, flagJSONLog)

	if err := applyFlags(cmd, cfg); err != nil {
		return nil, err
	}

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("configuration error: %w", err)
	}
	return cfg, nil
}

// applyFlags copies explicitly set flags into cfg.
func applyFlags(cmd *cobra.Command, cfg *config.Config) error {
	fs := cmd.Flags()
	var err error

	if flagChanged(cmd, flagBind) {
		if cfg.BindAddress, err = fs.GetString(flagBind); err != nil {
			return err
		}
	}
	if flagChanged(cmd, flagTo) {
		if cfg.TargetAddress, err = fs.GetString(flagTo); err != nil {
			return err
		}
	}
	if flagChanged(cmd, flagBufferSize) {
		if cfg.ReceiveBufferSize, err = fs.GetInt(flagBufferSize); err != nil {
			return err
		}
	}
	if flagChanged(cmd, flagSocketBuffer) {
		if cfg.SocketBufferSize, err = fs.GetInt(flagSocketBuffer); err != nil {
			return err
		}
	}
	if flagChanged(cmd, flagPollInterval) {
		if cfg.PollInterval, err = fs.GetDuration(flagPollInterval); err != nil {
			return err
		}
	}
	if flagChanged(cmd, flagTTL) {
		if cfg.TTL, err = fs.GetInt(flagTTL); err != nil {
			return err
		}
	}
	if flagChanged(cmd, flagStatsInterval) {
		if cfg.StatsInterval, err = fs.GetDuration(flagStatsInterval); err != nil {
			return err
		}
	}
	if flagChanged(cmd, flagThreshold) {
		if cfg.PrintableThreshold, err = fs.GetFloat64(flagThreshold); err != nil {
			return err
		}
	}
	if flagChanged(cmd, flagEncodings) {
		if cfg.Encodings, err = fs.GetStringSlice(flagEncodings); err != nil {
			return err
		}
	}
	if flagChanged(cmd, flagHexLimit) {
		if cfg.HexDisplayLimit, err = fs.GetInt(flagHexLimit); err != nil {
			return err
		}
	}

	// An explicit format flag replaces whatever the file selected.
	jsonSet, mdSet := flagChanged(cmd, flagJSON), flagChanged(cmd, flagMarkdown)
	if jsonSet || mdSet {
		cfg.JSONReport, cfg.MarkdownReport = false, false
	}
	if jsonSet {
		if cfg.JSONReport, err = fs.GetBool(flagJSON); err != nil {
			return err
		}
	}
	if mdSet {
		if cfg.MarkdownReport, err = fs.GetBool(flagMarkdown); err != nil {
			return err
		}
	}

	if flagChanged(cmd, flagOutput) {
		if cfg.ReportFile, err = fs.GetString(flagOutput); err != nil {
			return err
		}
	}
	if flagChanged(cmd, flagSaveSession) {
		if cfg.SaveSession, err = fs.GetBool(flagSaveSession); err != nil {
			return err
		}
	}
	if flagChanged(cmd, flagDBDir) {
		if cfg.DBDir, err = fs.GetString(flagDBDir); err != nil {
			return err
		}
	}
	return nil
}

// env carries everything a command needs at run time. Tests build one
// directly to swap the socket factory and the I/O streams.
type env struct {
	cfg     *config.Config
	logger  *slog.Logger
	in      io.Reader
	out     io.Writer
	errOut  io.Writer
	factory transceiver.SocketFactory
}

// newEnv builds an env from the command's flags and streams.
func newEnv(cmd *cobra.Command) (*env, error) {
	cfg, err := buildConfig(cmd)
	if err != nil {
		return nil, err
	}
	e := &env{
		cfg:     cfg,
		in:      cmd.InOrStdin(),
		out:     &lockedWriter{w: cmd.OutOrStdout()},
		errOut:  cmd.ErrOrStderr(),
		factory: transceiver.NewUDPSocketFactory(),
	}
	e.logger = newLogger(cfg, e.errOut)
	slog.SetDefault(e.logger)
	return e, nil
}

// newLogger creates the redacting logger selected by cfg.
func newLogger(cfg *config.Config, w io.Writer) *slog.Logger {
	if cfg.JSONLog {
		return log.NewJSONLogger(w, cfg.Verbose)
	}
	return log.NewLogger(w, cfg.Verbose)
}

// engine builds the analysis engine described by the configuration.
func (e *env) engine() (*analysis.Engine, error) {
	classifier, err := e.cfg.Classifier()
	if err != nil {
		return nil, err
	}
	return analysis.NewEngine(analysis.WithClassifier(classifier)), nil
}

// transceiver creates a Transceiver wired to the env's socket factory.
func (e *env) transceiver() *transceiver.Transceiver {
	return transceiver.New(e.cfg,
		transceiver.WithLogger(e.logger),
		transceiver.WithSocketFactory(e.factory),
	)
}

// reportWriter returns the writer for the configured format. When a report
// file is configured, the same report is also written there. The returned
// close function must be called once output is complete.
func (e *env) reportWriter() (report.Writer, func() error, error) {
	w := report.New(e.out, e.cfg)
	if e.cfg.ReportFile == "" {
		return w, func() error { return nil }, nil
	}

	dir := filepath.Dir(e.cfg.ReportFile)
	if dir != "" && dir != "." {
		if err := os.MkdirAll(dir, 0750); err != nil {
			return nil, nil, fmt.Errorf("failed to create output directory: %w", err)
		}
	}

	// Reports can contain decoded payloads, so only the owner may read them.
	f, err := os.OpenFile(e.cfg.ReportFile, os.O_CREATE|os.O_WRONLY|os.O_TRUNC, 0600)
	if err != nil {
		return nil, nil, fmt.Errorf("failed to create output file: %w", err)
	}
	return report.NewMultiWriter(w, report.New(f, e.cfg)), f.Close, nil
}

// commandContext returns the command's context, or Background when the
// command was not started through Execute.
func commandContext(cmd *cobra.Command) context.Context {
	if ctx := cmd.Context(); ctx != nil {
		return ctx
	}
	return context.Background()
}

// lockedWriter serializes writes from the receive goroutine and the
// interactive loop.
type lockedWriter struct {
	mu sync.Mutex
	w  io.Writer
}

func (l *lockedWriter) Write(p []byte) (int, error) {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.w.Write(p)
}
