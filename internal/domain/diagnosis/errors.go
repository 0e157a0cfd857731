package diagnosis

import "errors"

var (
	// ErrNotFound is returned when a student or skill is absent from the matrix.
	ErrNotFound = errors.New("not found")
	// ErrNegativeMastery is returned when a diagnosed mastery value is below zero.
	ErrNegativeMastery = errors.New("negative mastery")
	// ErrEmptyStudentID is returned for a skill vector without a student.
	ErrEmptyStudentID = errors.New("empty student id")
)
