package simulation

import "errors"

// Sentinel kinds for simulation errors.
var (
	ErrUnknownParameter = errors.New("no such parameter")
	ErrUnknownModel     = errors.New("no such model")
	ErrNoDistribution   = errors.New("parameter has no distribution")
	ErrNoSamples        = errors.New("no samples loaded")
	ErrShapeMismatch    = errors.New("sample shape does not match active parameters")
	ErrSimulation       = errors.New("simulation failed")
)
