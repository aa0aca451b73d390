package distribution

import "errors"

// Sentinel kinds for distribution errors.
var (
	ErrUnsupported  = errors.New("unsupported distribution")
	ErrInvalidArgs  = errors.New("invalid distribution arguments")
	ErrMissingValue = errors.New("missing distribution value")
)
