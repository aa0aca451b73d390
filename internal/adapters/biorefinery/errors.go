package biorefinery

import "errors"

// Sentinel kinds for model simulation failures.
var (
	ErrOutOfRange = errors.New("parameter out of range")
	ErrInfeasible = errors.New("infeasible operating point")
)
