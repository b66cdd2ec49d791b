package batch

import "errors"

// Error kinds recorded on failed batch items. These are stable API
// strings, not free-form messages.
const (
	KindInvalidInput     = "invalid_input"
	KindInsufficientData = "insufficient_data"
	KindUnknownEngine    = "unknown_engine"
	KindFetchFailed      = "fetch_failed"
	KindTimeout          = "timeout"
	KindInternalError    = "internal_error"
)

var (
	// ErrJobNotFound is returned when a job id has no stored meta,
	// either because it never existed or retention expired it.
	ErrJobNotFound = errors.New("batch job not found")

	// ErrForbidden is returned when a caller asks about a job owned by
	// a different user.
	ErrForbidden = errors.New("batch job belongs to another user")

	// ErrNoSymbols is returned when a submission has no valid symbols
	// after validation and dedup.
	ErrNoSymbols = errors.New("no valid symbols in batch request")

	// ErrBadTimeframe is returned when a submission names an
	// unsupported timeframe.
	ErrBadTimeframe = errors.New("unsupported batch timeframe")
)
