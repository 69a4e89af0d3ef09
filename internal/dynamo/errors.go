package dynamo

import (
	"errors"
	"fmt"
)

// Domain errors for simulation operations.
var (
	// ErrInvalidState indicates a state vector containing NaN or Inf.
	ErrInvalidState = errors.New("dynamo: invalid state (NaN or Inf detected)")

	// ErrDimensionMismatch indicates mismatched state/control dimensions.
	ErrDimensionMismatch = errors.New("dynamo: dimension mismatch")

	// ErrUnknownBody is returned for a body handle the world does not own.
	ErrUnknownBody = errors.New("dynamo: unknown body handle")

	// ErrUnknownJoint is returned for a joint index outside the body.
	ErrUnknownJoint = errors.New("dynamo: unknown joint index")

	// ErrAssetNotFound indicates the robot description could not be loaded.
	ErrAssetNotFound = errors.New("dynamo: robot asset not found")

	// ErrClosed is returned by any call on a closed world or environment.
	ErrClosed = errors.New("dynamo: connection closed")
)

// SimError wraps an error with simulation context.
type SimError struct {
	Step    int
	Time    float64
	Wrapped error
}

func (e *SimError) Error() string {
	return fmt.Sprintf("step %d (t=%.4f): %v", e.Step, e.Time, e.Wrapped)
}

func (e *SimError) Unwrap() error {
	return e.Wrapped
}
