package raster

import (
	"errors"
	"fmt"
)

var (
	// ErrConfiguration is returned for invalid initialization arguments, such as a
	// nil raster or an empty block grid.
	ErrConfiguration = errors.New("invalid configuration")

	// ErrInvalidIndex is returned when a band, row or column lies outside the
	// raster's declared block grid.
	ErrInvalidIndex = errors.New("invalid block index")
)

// IndexError describes a coordinate rejected by Layout.Validate.
//
// It matches ErrInvalidIndex via errors.Is.
type IndexError struct {
	Coord  Coord
	Reason string
}

func (e *IndexError) Error() string {
	return fmt.Sprintf("%s %s: %s", ErrInvalidIndex, e.Coord, e.Reason)
}

func (e *IndexError) Unwrap() error { return ErrInvalidIndex }

func configErrorf(format string, args ...any) error {
	return fmt.Errorf("%w: %s", ErrConfiguration, fmt.Sprintf(format, args...))
}
