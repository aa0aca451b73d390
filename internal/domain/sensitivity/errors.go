package sensitivity

import "errors"

// Sentinel kinds for sensitivity errors.
var (
	ErrLengthMismatch = errors.New("series lengths differ")
	ErrNoSeries       = errors.New("no series to correlate")
)
