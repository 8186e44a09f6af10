package systems

import "gonum.org/v1/gonum/spatial/r3"

// Store holds per-particle state in parallel slices indexed by dense slot.
// Slots are rebuilt from the ECS world every step, so removal is compaction.
type Store struct {
	Pos      []r3.Vec
	Vel      []r3.Vec
	Force    []r3.Vec
	Density  []float64
	Pressure []float64
	Faulted  []bool
}

// NewStore creates a store with room for n particles.
func NewStore(n int) *Store {
	return &Store{
		Pos:      make([]r3.Vec, 0, n),
		Vel:      make([]r3.Vec, 0, n),
		Force:    make([]r3.Vec, 0, n),
		Density:  make([]float64, 0, n),
		Pressure: make([]float64, 0, n),
		Faulted:  make([]bool, 0, n),
	}
}

// Len returns the number of particles.
func (s *Store) Len() int { return len(s.Pos) }

// Reset empties the store, keeping capacity.
func (s *Store) Reset() {
	s.Pos = s.Pos[:0]
	s.Vel = s.Vel[:0]
	s.Force = s.Force[:0]
	s.Density = s.Density[:0]
	s.Pressure = s.Pressure[:0]
	s.Faulted = s.Faulted[:0]
}

// Append adds a particle with zeroed force, density and pressure and returns its slot.
func (s *Store) Append(pos, vel r3.Vec) int {
	s.Pos = append(s.Pos, pos)
	s.Vel = append(s.Vel, vel)
	s.Force = append(s.Force, r3.Vec{})
	s.Density = append(s.Density, 0)
	s.Pressure = append(s.Pressure, 0)
	s.Faulted = append(s.Faulted, false)
	return len(s.Pos) - 1
}
