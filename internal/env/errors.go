package env

import (
	"errors"
	"fmt"

	"github.com/san-kum/spotsim/internal/dynamo"
)

// ErrNotReset is returned by Step before the first Reset.
var ErrNotReset = errors.New("env: step called before reset")

// DimensionError reports a vector of the wrong length.
type DimensionError struct {
	Want, Got int
}

func (e *DimensionError) Error() string {
	return fmt.Sprintf("env: expected %d values, got %d", e.Want, e.Got)
}

func (e *DimensionError) Unwrap() error {
	return dynamo.ErrDimensionMismatch
}
