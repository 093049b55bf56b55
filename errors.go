package cslam

import (
	"errors"
	"fmt"

	"github.com/anadon/cslam/index"
)

var (
	// ErrClosed is returned when an operation is attempted on a closed engine.
	ErrClosed = errors.New("engine is closed")

	// ErrEmptyDescriptor is returned for a zero-length descriptor vector.
	ErrEmptyDescriptor = errors.New("descriptor must not be empty")

	// ErrSelfDescriptor is returned when a remote message carries this robot's own id.
	ErrSelfDescriptor = errors.New("remote descriptor carries own robot id")

	// ErrInvalidConfig is returned when a Config fails validation.
	ErrInvalidConfig = errors.New("invalid config")
)

// ErrDimensionMismatch indicates a descriptor whose length disagrees with the
// dimensionality already fixed for its index or for the descriptor space.
//
// The underlying index error (if any) can be accessed via errors.Unwrap.
type ErrDimensionMismatch struct {
	Expected int
	Actual   int
	cause    error
}

func (e *ErrDimensionMismatch) Error() string {
	return fmt.Sprintf("dimension mismatch: expected %d, got %d", e.Expected, e.Actual)
}

func (e *ErrDimensionMismatch) Unwrap() error { return e.cause }

func translateError(err error) error {
	if err == nil {
		return nil
	}

	var dm *index.ErrDimensionMismatch
	if errors.As(err, &dm) {
		return &ErrDimensionMismatch{Expected: dm.Expected, Actual: dm.Actual, cause: err}
	}
	if errors.Is(err, index.ErrEmptyVector) {
		return fmt.Errorf("%w: %w", ErrEmptyDescriptor, err)
	}

	return err
}
