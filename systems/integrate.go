package systems

import (
	"math"

	"gonum.org/v1/gonum/spatial/r3"
)

// Integrate advances slots [lo, hi) by dt with symplectic Euler and returns
// the number of particles newly marked faulted. A faulted particle keeps its
// previous position and velocity.
func Integrate(s *Store, dt float64, lo, hi int) int {
	faulted := 0
	for i := lo; i < hi; i++ {
		if s.Faulted[i] {
			continue
		}
		rho := s.Density[i]
		if !(rho > 0) || math.IsInf(rho, 1) || !Finite(s.Force[i]) {
			s.Faulted[i] = true
			faulted++
			continue
		}

		v := r3.Add(s.Vel[i], r3.Scale(dt/rho, s.Force[i]))
		x := r3.Add(s.Pos[i], r3.Scale(dt, v))
		if !Finite(v) || !Finite(x) {
			s.Faulted[i] = true
			faulted++
			continue
		}
		s.Vel[i] = v
		s.Pos[i] = x
	}
	return faulted
}

// Finite reports whether every component of v is finite.
func Finite(v r3.Vec) bool {
	return !math.IsNaN(v.X) && !math.IsInf(v.X, 0) &&
		!math.IsNaN(v.Y) && !math.IsInf(v.Y, 0) &&
		!math.IsNaN(v.Z) && !math.IsInf(v.Z, 0)
}
