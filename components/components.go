// Package components defines ECS components for the simulation.
package components

import "gonum.org/v1/gonum/spatial/r3"

// Position represents a particle's world position.
type Position struct {
	r3.Vec
}

// Velocity represents a particle's velocity.
type Velocity struct {
	r3.Vec
}

// Fluid holds the per-step SPH state of a particle.
// All fields are overwritten every step before they are read.
type Fluid struct {
	Force    r3.Vec
	Density  float64
	Pressure float64
}

// Particle holds identity and bookkeeping.
type Particle struct {
	ID        uint64  // Stable handle id, never reused
	SpawnTime float64 // Simulation time at spawn
}
