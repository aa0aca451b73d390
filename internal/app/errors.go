package service

import "errors"

// Sentinel kinds for ingress errors.
var (
	// ErrNotStarted is returned by Submit before Start or after Stop.
	ErrNotStarted = errors.New("service not started")
	// ErrQueueFull signals backpressure; the job was not dispatched.
	ErrQueueFull = errors.New("job queue full")
)
