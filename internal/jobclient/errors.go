package jobclient

import "errors"

var (
	// ErrRejected is returned when the service refuses a request.
	ErrRejected = errors.New("request rejected")
	// ErrJobFailed is returned when a job ends without a record.
	ErrJobFailed = errors.New("job failed")
	// ErrUnhealthy is returned when the health check fails.
	ErrUnhealthy = errors.New("service unhealthy")
)
