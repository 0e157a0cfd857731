package repository

import "errors"

// Sentinel errors for the snapshot repository.
var (
	ErrNotFound     = errors.New("no snapshot available")
	ErrInvalidEvent = errors.New("invalid adaptation event")
)
