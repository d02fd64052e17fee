package cycle

import "errors"

var (
	// ErrInvalidWindow is returned when the report window is zero or inverted.
	ErrInvalidWindow = errors.New("cycle: invalid report window")
	// ErrInvertedInterval marks a cycle whose check-out precedes its check-in.
	ErrInvertedInterval = errors.New("cycle: check-out before check-in")
)
