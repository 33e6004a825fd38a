package board

import "errors"

var (
	// ErrInvalidConfiguration is returned by New for a malformed
	// rows/cols/mines triple or mine layout.
	ErrInvalidConfiguration = errors.New("invalid board configuration")
	// ErrOutOfBounds is returned for coordinates outside the grid.
	ErrOutOfBounds = errors.New("coordinates out of bounds")
)
