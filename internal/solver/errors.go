package solver

import (
	"errors"
	"fmt"
)

// Domain errors for solver setup and stepping.
var (
	// ErrNonFinite indicates a NaN or Inf in a material point after a step.
	ErrNonFinite = errors.New("solver: non-finite particle state (NaN or Inf detected)")

	// ErrInvalidConfig indicates a parameter table the solver cannot run.
	ErrInvalidConfig = errors.New("solver: invalid configuration")
)

// StepError wraps a fatal error with the step it interrupted.
type StepError struct {
	Step    int
	Time    float64
	Phase   Phase
	Wrapped error
}

func (e *StepError) Error() string {
	return fmt.Sprintf("step %d (t=%.6g) %s: %v", e.Step, e.Time, e.Phase, e.Wrapped)
}

func (e *StepError) Unwrap() error {
	return e.Wrapped
}
