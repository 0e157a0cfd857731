package reconcile

import "errors"

var (
	// ErrInvalidDelta is returned for an adjustment outside the allowed bound.
	ErrInvalidDelta = errors.New("invalid delta")
	// ErrStudentNotInSheet is returned when adjusting a student the sheet lacks.
	ErrStudentNotInSheet = errors.New("student not in sheet")
	// ErrInvalidThreshold is returned for a threshold outside [0, 1].
	ErrInvalidThreshold = errors.New("invalid threshold")
)
