// Package systems implements the SPH solver passes over a dense particle store.
package systems

import (
	"errors"
	"fmt"
	"math"

	"gonum.org/v1/gonum/spatial/r3"
)

// Configuration errors. Validate wraps these; match with errors.Is.
var (
	ErrInvalidSmoothingRadius = errors.New("smoothing radius must be positive")
	ErrInvalidTimeStep        = errors.New("time step must be positive")
	ErrInvalidMass            = errors.New("mass must be positive")
	ErrDegenerateKernel       = errors.New("kernel normalization is not finite")
	ErrInvalidCollider        = errors.New("invalid collider")
)

// Params holds the physical constants for a run.
type Params struct {
	Radius          float64 // Particle radius; half of it is the collider contact distance
	Mass            float64
	SmoothingRadius float64 // Kernel support h
	RestDensity     float64
	GasConstant     float64 // Equation of state stiffness
	Viscosity       float64
	Gravity         r3.Vec
	Damping         float64 // Normal velocity factor on contact, e.g. -0.5
	Drag            float64 // Tangential velocity loss on contact, 0..1
	TimeStep        float64
}

// Validate reports every configuration problem at once.
// Stability of TimeStep is not checked.
func (p Params) Validate() error {
	var errs []error
	if !(p.SmoothingRadius > 0) || math.IsInf(p.SmoothingRadius, 0) {
		errs = append(errs, fmt.Errorf("%w: %v", ErrInvalidSmoothingRadius, p.SmoothingRadius))
	} else if !NewKernels(p.SmoothingRadius).finite() {
		errs = append(errs, fmt.Errorf("%w: smoothing radius %v", ErrDegenerateKernel, p.SmoothingRadius))
	}
	if !(p.TimeStep > 0) || math.IsInf(p.TimeStep, 0) {
		errs = append(errs, fmt.Errorf("%w: %v", ErrInvalidTimeStep, p.TimeStep))
	}
	if !(p.Mass > 0) || math.IsInf(p.Mass, 0) {
		errs = append(errs, fmt.Errorf("%w: %v", ErrInvalidMass, p.Mass))
	}
	return errors.Join(errs...)
}
