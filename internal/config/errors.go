package config

import "errors"

// Configuration validation errors.
// These errors are returned by Config.Validate() and provide specific
// information about what is wrong with the configuration.
//
// Design decision: We use package-level sentinel errors rather than
// creating new error instances in Validate(). This allows callers to use
// errors.Is() for programmatic error handling while still providing
// human-readable messages.
var (
	// ErrInvalidBindAddress is returned when the bind address is not "host:port".
	ErrInvalidBindAddress = errors.New("invalid bind address: expected host:port")

	// ErrInvalidTargetAddress is returned when the target address is not "host:port".
	ErrInvalidTargetAddress = errors.New("invalid target address: expected host:port")

	// ErrEmptyAddress is returned when an address or its port is missing.
	ErrEmptyAddress = errors.New("address or port is empty")

	// ErrInvalidPort is returned when a port is not a number in 1..65535
	// (0 is accepted for the bind address).
	ErrInvalidPort = errors.New("invalid port: must be a number between 1 and 65535")

	// ErrInvalidReceiveBuffer is returned when the read buffer is not within
	// 1..65535 bytes.
	ErrInvalidReceiveBuffer = errors.New("invalid receive buffer size: must be between 1 and 65535")

	// ErrInvalidSocketBuffer is returned when SO_RCVBUF is negative.
	ErrInvalidSocketBuffer = errors.New("invalid socket buffer size: must be non-negative")

	// ErrInvalidPollInterval is returned when the poll interval is not positive.
	// A zero deadline would turn the receive loop into a busy spin.
	ErrInvalidPollInterval = errors.New("invalid poll interval: must be positive")

	// ErrInvalidTTL is returned when the TTL is outside 0..255.
	ErrInvalidTTL = errors.New("invalid ttl: must be between 0 and 255")

	// ErrInvalidStatsInterval is returned when the stats interval is negative.
	// Use 0 to disable periodic statistics.
	ErrInvalidStatsInterval = errors.New("invalid stats interval: must be non-negative")

	// ErrInvalidThreshold is returned when the printable threshold is not in (0, 1].
	ErrInvalidThreshold = errors.New("invalid printable threshold: must be in (0, 1]")

	// ErrNoEncodings is returned when the encoding list is empty.
	ErrNoEncodings = errors.New("no encodings configured")

	// ErrInvalidEncoding is returned when an encoding name is not supported.
	ErrInvalidEncoding = errors.New("invalid encoding")

	// ErrInvalidHexLimit is returned when the hex display limit is negative.
	ErrInvalidHexLimit = errors.New("invalid hex display limit: must be non-negative")

	// ErrConflictingReportFormats is returned when both --json and --markdown
	// are specified. Only one output format can be used at a time.
	ErrConflictingReportFormats = errors.New("conflicting report formats: --json and --markdown cannot be used together")
)
