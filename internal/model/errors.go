package model

import "errors"

// Report invariant errors.
// These are returned by AnalysisReport.Validate. A report that fails
// validation was produced by a faulty analysis step and must never reach
// the statistics accumulator.
var (
	// ErrNoFormats is returned when a report carries an empty format set.
	// Every payload is at least binary.
	ErrNoFormats = errors.New("invalid report: possible formats is empty")

	// ErrNegativeSize is returned when a report has a negative payload size.
	ErrNegativeSize = errors.New("invalid report: negative size")

	// ErrOrphanJSON is returned when a report carries a JSON value while
	// json is not one of its possible formats.
	ErrOrphanJSON = errors.New("invalid report: json value without json format")

	// ErrPrintableRatioRange is returned when the printable ratio falls
	// outside [0, 1].
	ErrPrintableRatioRange = errors.New("invalid report: printable ratio out of range")

	// ErrShortIntegerViews is returned when a report carries integer views
	// for a payload shorter than four bytes.
	ErrShortIntegerViews = errors.New("invalid report: integer views on a payload shorter than 4 bytes")

	// ErrTrailingJSON is returned when a JSON document is followed by
	// more data.
	ErrTrailingJSON = errors.New("unexpected data after json value")

	// ErrUnknownFormat is returned when a format name cannot be parsed.
	ErrUnknownFormat = errors.New("unknown format")
)
