package sketch

import "errors"

var (
	// ErrInvalidState is returned when a recorder call does not match the
	// gesture state: Begin while recording, Extend or End while idle.
	ErrInvalidState = errors.New("sketch: invalid gesture state")

	// ErrEmptyStroke is returned by End when no point was recorded.
	ErrEmptyStroke = errors.New("sketch: empty stroke")

	// ErrInvalidThreshold is returned by NewSimplifier for an angle outside [0, 180).
	ErrInvalidThreshold = errors.New("sketch: invalid angle threshold")
)
