package upstream

import "errors"

// Sentinel errors for the recommendation service client.
var (
	// ErrUpstream wraps every failure talking to the service.
	ErrUpstream = errors.New("upstream failure")
	// ErrBadResponse marks a response body that did not have the expected shape.
	ErrBadResponse = errors.New("unexpected response shape")
)
