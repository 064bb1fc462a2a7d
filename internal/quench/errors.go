package quench

import (
	"errors"
	"fmt"
)

var (
	// ErrOutOfRange is returned when a look-back/look-ahead window falls outside the series
	ErrOutOfRange = errors.New("snapshot index out of range")

	// ErrInsufficientWindow marks a defined skip: too few snapshots to fit a spline
	ErrInsufficientWindow = errors.New("insufficient interpolation window")

	// ErrNoVariant is returned when the scan targets a variant the galaxy does not carry
	ErrNoVariant = errors.New("galaxy has no series for variant")
)

// ScanError reports a failed scan of a single galaxy
type ScanError struct {
	GalaxyID int
	Index    int
	Err      error
}

func (e *ScanError) Error() string {
	return fmt.Sprintf("galaxy %d: snapshot %d: %v", e.GalaxyID, e.Index, e.Err)
}

func (e *ScanError) Unwrap() error {
	return e.Err
}
