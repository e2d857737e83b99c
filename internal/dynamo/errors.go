package dynamo

import (
	"errors"
	"fmt"
)

// Domain errors for simulation operations.
var (
	// ErrInvalidIndex indicates a multipole index outside [1, 24].
	ErrInvalidIndex = errors.New("dynamo: invalid multipole index")

	// ErrInvalidParameter indicates a parameter value is outside its valid range.
	ErrInvalidParameter = errors.New("dynamo: invalid parameter")

	// ErrNumericalInstability indicates the computation could not produce finite results.
	ErrNumericalInstability = errors.New("dynamo: numerical instability")

	// ErrStepTooSmall indicates the adaptive timestep collapsed before reaching the bound.
	ErrStepTooSmall = fmt.Errorf("%w: adaptive timestep below minimum", ErrNumericalInstability)

	// ErrNotExcited indicates a read-out was requested before any RF excitation.
	ErrNotExcited = errors.New("dynamo: probe has not been excited")
)

// ParameterError names the parameter that failed validation.
type ParameterError struct {
	Param  string
	Value  any
	Reason string
}

// InvalidParam builds a ParameterError for param.
func InvalidParam(param string, value any, reason string) *ParameterError {
	return &ParameterError{Param: param, Value: value, Reason: reason}
}

func (e *ParameterError) Error() string {
	return fmt.Sprintf("invalid parameter %s=%v: %s", e.Param, e.Value, e.Reason)
}

func (e *ParameterError) Unwrap() error {
	return ErrInvalidParameter
}

// SimulationError wraps an error with integration context.
type SimulationError struct {
	Step    int
	Time    float64
	Wrapped error
}

func (e *SimulationError) Error() string {
	return fmt.Sprintf("step %d (t=%.6g): %v", e.Step, e.Time, e.Wrapped)
}

func (e *SimulationError) Unwrap() error {
	return e.Wrapped
}
