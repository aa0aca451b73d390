package repository

import "errors"

// Sentinel kinds for result store errors.
var (
	ErrNotFound      = errors.New("job record not found")
	ErrInvalidRecord = errors.New("job record without id")
	ErrInvalidConfig = errors.New("invalid store configuration")
)
