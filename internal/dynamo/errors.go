package dynamo

import (
	"errors"
	"fmt"
	"math"
)

// Domain errors for simulation operations.
var (
	// ErrDegenerateGeometry indicates a zero-length vector where a direction is
	// required: an agent standing on its goal, two coincident agents, an agent
	// lying exactly on a wall, or a wall whose endpoints coincide.
	ErrDegenerateGeometry = errors.New("dynamo: degenerate geometry (zero-length vector)")

	// ErrInvalidParameter indicates a physical or numerical parameter that is
	// not a strictly positive finite number.
	ErrInvalidParameter = errors.New("dynamo: parameter out of valid bounds")

	// ErrInvalidState indicates a position or velocity became NaN or Inf.
	ErrInvalidState = errors.New("dynamo: invalid state (NaN or Inf detected)")

	// ErrContextCanceled indicates the simulation was interrupted.
	ErrContextCanceled = errors.New("dynamo: simulation canceled by context")

	// ErrDimensionMismatch indicates a force field returned a result whose
	// length does not match the number of agents.
	ErrDimensionMismatch = errors.New("dynamo: dimension mismatch between accelerations and agents")
)

// ParameterError reports which parameter failed validation.
type ParameterError struct {
	Name  string
	Value float64
}

func (e *ParameterError) Error() string {
	return fmt.Sprintf("dynamo: %s must be strictly positive, got %g", e.Name, e.Value)
}

func (e *ParameterError) Unwrap() error {
	return ErrInvalidParameter
}

// RequirePositive returns a *ParameterError unless v is finite and > 0.
func RequirePositive(name string, v float64) error {
	if !(v > 0) || math.IsInf(v, 1) {
		return &ParameterError{Name: name, Value: v}
	}
	return nil
}

// SimulationError wraps an error with simulation context.
type SimulationError struct {
	Step    int
	Time    float64
	Wrapped error
}

func (e *SimulationError) Error() string {
	return fmt.Sprintf("step %d (t=%.4f): %v", e.Step, e.Time, e.Wrapped)
}

func (e *SimulationError) Unwrap() error {
	return e.Wrapped
}
