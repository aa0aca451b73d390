package sampling

import "errors"

// Sentinel kinds for sampling errors.
var (
	ErrInvalidCount = errors.New("sample count must be at least 1")
	ErrUnknownRule  = errors.New("unknown sampling rule")
	ErrNoParameters = errors.New("no parameters to sample")
)
