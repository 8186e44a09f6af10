package systems

import "gonum.org/v1/gonum/spatial/r3"

// ComputeForces accumulates pressure, viscosity and gravity for slots [lo, hi).
// Density and pressure must be current for every slot, not just the range.
func ComputeForces(s *Store, nb NeighborResolver, k Kernels, p Params, lo, hi int) {
	for i := lo; i < hi; i++ {
		pi, vi := s.Pos[i], s.Vel[i]
		var fPress, fVisc r3.Vec

		for j := range nb.Neighbors(i, s.Pos) {
			d := r3.Sub(pi, s.Pos[j]) // neighbor to self
			r := r3.Norm(d)
			if r == 0 {
				// Direction undefined; the pair still counted toward density.
				continue
			}
			rhoJ := s.Density[j]

			// SpikyGrad is negative, so positive shared pressure pushes i away from j.
			shared := p.Mass * (s.Pressure[i] + s.Pressure[j]) / (2 * rhoJ)
			fPress = r3.Add(fPress, r3.Scale(-shared*k.SpikyGrad(r)/r, d))

			w := p.Viscosity * p.Mass * k.ViscLaplacian(r) / rhoJ
			fVisc = r3.Add(fVisc, r3.Scale(w, r3.Sub(s.Vel[j], vi)))
		}

		// Gravity is scaled by density, not mass. Integrate divides by
		// density, so the resulting acceleration is exactly Gravity.
		fGrav := r3.Scale(s.Density[i], p.Gravity)

		s.Force[i] = r3.Add(r3.Add(fPress, fVisc), fGrav)
	}
}
