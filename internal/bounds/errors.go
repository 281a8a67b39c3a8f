package bounds

import (
	"errors"
	"fmt"
)

// ErrTypeMismatch is returned when a value and a bound cannot be compared.
var ErrTypeMismatch = errors.New("type mismatch")

// CheckError describes a failed comparison. It unwraps to ErrTypeMismatch.
type CheckError struct {
	Column string
	Side   string // "min", "max", or empty when the value itself is unusable
	Value  any
	Bound  any
	Err    error
}

func (e *CheckError) Error() string {
	if e.Side == "" {
		return fmt.Sprintf("check %s: value %v (%T): %v", e.Column, e.Value, e.Value, e.Err)
	}
	return fmt.Sprintf("check %s: value %v (%T) against %s %v (%T): %v",
		e.Column, e.Value, e.Value, e.Side, e.Bound, e.Bound, e.Err)
}

func (e *CheckError) Unwrap() error {
	return e.Err
}
