package config

import (
	"fmt"
	"net"
	"path/filepath"
	"strconv"
	"time"

	"github.com/adrg/xdg"
	"github.com/nao1215/udpscope/internal/analysis"
)

// Default configuration values.
const (
	// AppName is the application name used for XDG directory paths.
	AppName = "udpscope"

	// DefaultBindAddress listens on every interface. Port 8888 matches the
	// default target so a single process can talk to itself out of the box.
	DefaultBindAddress = "0.0.0.0:8888"

	// DefaultTargetAddress is where send and chat deliver datagrams.
	DefaultTargetAddress = "127.0.0.1:8888"

	// DefaultReceiveBufferSize is the per-read buffer. 65535 is the largest
	// possible UDP payload, so no datagram is ever truncated.
	DefaultReceiveBufferSize = 65535

	// MaxDatagramSize is the largest payload a single UDP datagram can carry.
	MaxDatagramSize = 65535

	// DefaultPollInterval bounds how long a blocking read may delay the
	// observation of a stop request.
	DefaultPollInterval = 250 * time.Millisecond

	// DefaultHexDisplayLimit is the largest payload whose hex dump is shown
	// in the text report.
	DefaultHexDisplayLimit = 32
)

// Config holds all configuration options for udpscope.
// It is populated from defaults, then the configuration file, then CLI
// flags, and passed through the application explicitly.
type Config struct {
	// BindAddress is the local "host:port" the receiver binds to.
	BindAddress string

	// TargetAddress is the remote "host:port" datagrams are sent to.
	TargetAddress string

	// ReceiveBufferSize is the size of the buffer passed to each read.
	// Datagrams larger than this are truncated by the kernel.
	ReceiveBufferSize int

	// SocketBufferSize sets SO_RCVBUF on the listening socket.
	// Zero keeps the operating system default.
	SocketBufferSize int

	// PollInterval is the read deadline used to check for stop requests.
	PollInterval time.Duration

	// TTL sets the IPv4 time-to-live of sent datagrams.
	// Zero keeps the operating system default.
	TTL int

	// StatsInterval is how often the listener logs running statistics.
	// Zero disables periodic statistics.
	StatsInterval time.Duration

	// PrintableThreshold is the minimum printable ratio for text.
	PrintableThreshold float64

	// Encodings is the ordered list of encodings tried when decoding.
	Encodings []string

	// HexDisplayLimit is the largest payload size whose hex dump is printed
	// in the text report. Zero hides hex dumps entirely.
	HexDisplayLimit int

	// Verbose enables debug logging.
	Verbose bool

	// JSONLog switches log output from text to JSON lines.
	JSONLog bool

	// JSONReport prints reports as JSON. Mutually exclusive with MarkdownReport.
	JSONReport bool

	// MarkdownReport prints reports as Markdown. Mutually exclusive with JSONReport.
	MarkdownReport bool

	// ReportFile redirects report output to a file instead of stdout.
	ReportFile string

	// ConfigFilePath is an explicit configuration file path.
	ConfigFilePath string

	// SaveSession stores an aggregate session summary in the history
	// database when the listener stops. Payloads are never stored.
	SaveSession bool

	// DBDir is the directory holding the history database.
	DBDir string
}

// NewConfig creates a new Config with default values.
//
// Design decision: We use a constructor function instead of relying on
// zero values because many defaults are non-zero (e.g., threshold, buffer
// size). This also serves as documentation of what the defaults are.
func NewConfig() *Config {
	return &Config{
		BindAddress:        DefaultBindAddress,
		TargetAddress:      DefaultTargetAddress,
		ReceiveBufferSize:  DefaultReceiveBufferSize,
		PollInterval:       DefaultPollInterval,
		PrintableThreshold: analysis.DefaultPrintableThreshold,
		Encodings:          append([]string(nil), analysis.DefaultEncodingNames...),
		HexDisplayLimit:    DefaultHexDisplayLimit,
		DBDir:              XDGDataDir(),
	}
}

// XDGDataDir returns the XDG data directory for udpscope.
// On Linux: ~/.local/share/udpscope
func XDGDataDir() string {
	return filepath.Join(xdg.DataHome, AppName)
}

// XDGConfigDir returns the XDG config directory for udpscope.
// On Linux: ~/.config/udpscope
func XDGConfigDir() string {
	return filepath.Join(xdg.ConfigHome, AppName)
}

// Validate checks if the configuration is valid.
// It returns the first problem found as one of the sentinel errors in
// errors.go, wrapped with the offending value where that helps.
func (c *Config) Validate() error {
	if err := validateAddress(c.BindAddress, true); err != nil {
		return fmt.Errorf("%w: %q: %w", ErrInvalidBindAddress, c.BindAddress, err)
	}
	if err := validateAddress(c.TargetAddress, false); err != nil {
		return fmt.Errorf("%w: %q: %w", ErrInvalidTargetAddress, c.TargetAddress, err)
	}
	if c.ReceiveBufferSize <= 0 || c.ReceiveBufferSize > MaxDatagramSize {
		return ErrInvalidReceiveBuffer
	}
	if c.SocketBufferSize < 0 {
		return ErrInvalidSocketBuffer
	}
	if c.PollInterval <= 0 {
		return ErrInvalidPollInterval
	}
	if c.TTL < 0 || c.TTL > 255 {
		return ErrInvalidTTL
	}
	if c.StatsInterval < 0 {
		return ErrInvalidStatsInterval
	}
	if c.PrintableThreshold <= 0 || c.PrintableThreshold > 1 {
		return ErrInvalidThreshold
	}
	if len(c.Encodings) == 0 {
		return ErrNoEncodings
	}
	if _, err := analysis.LookupEncodings(c.Encodings); err != nil {
		return fmt.Errorf("%w: %w", ErrInvalidEncoding, err)
	}
	if c.HexDisplayLimit < 0 {
		return ErrInvalidHexLimit
	}
	if c.JSONReport && c.MarkdownReport {
		return ErrConflictingReportFormats
	}
	return nil
}

// Classifier builds the analysis classifier described by the configuration.
// Call Validate first; an invalid encoding list is reported here as well.
func (c *Config) Classifier() (*analysis.Classifier, error) {
	encodings, err := analysis.LookupEncodings(c.Encodings)
	if err != nil {
		return nil, err
	}
	return analysis.NewClassifier(
		analysis.WithEncodings(encodings...),
		analysis.WithPrintableThreshold(c.PrintableThreshold),
	), nil
}

// validateAddress checks "host:port" syntax without resolving the host.
// The port must be numeric and fit in 16 bits; port 0 (any free port)
// only makes sense for a bind address.
func validateAddress(addr string, allowZeroPort bool) error {
	if addr == "" {
		return ErrEmptyAddress
	}
	_, port, err := net.SplitHostPort(addr)
	if err != nil {
		return err
	}
	if port == "" {
		return ErrEmptyAddress
	}
	n, err := strconv.ParseUint(port, 10, 16)
	if err != nil {
		return fmt.Errorf("%w: %q", ErrInvalidPort, port)
	}
	if n == 0 && !allowZeroPort {
		return fmt.Errorf("%w: %q", ErrInvalidPort, port)
	}
	return nil
}
