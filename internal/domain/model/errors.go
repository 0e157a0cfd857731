package model

import "errors"

// Sentinel errors shared by the service and its transports.
var (
	// ErrInvalidInput marks a request the caller must fix.
	ErrInvalidInput = errors.New("invalid input")
	// ErrNotStarted is returned by a service that is not running.
	ErrNotStarted = errors.New("service not started")
)
