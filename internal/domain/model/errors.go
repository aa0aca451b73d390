package model

import "errors"

// Sentinel kinds for job failures. Pipeline errors wrap exactly one of these.
var (
	// ErrValidation covers unknown parameters, unsupported distributions and
	// malformed requests. Raised before the model is mutated.
	ErrValidation = errors.New("validation error")
	// ErrEvaluation covers failures while sampling, loading or evaluating.
	ErrEvaluation = errors.New("evaluation error")
	// ErrStore covers result store write failures.
	ErrStore = errors.New("store error")
)
