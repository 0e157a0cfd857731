package policy

import "errors"

var (
	// ErrNoAlternativeTopic is returned when no topic other than the current one exists.
	ErrNoAlternativeTopic = errors.New("no alternative topic")
	// ErrNilRand is returned when Decide has to draw without a source.
	ErrNilRand = errors.New("nil random source")
)
