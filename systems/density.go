package systems

import "gonum.org/v1/gonum/spatial/r3"

// ComputeDensityPressure estimates density and pressure for slots [lo, hi).
// Each particle includes its own kernel weight, so density is never zero
// for positive mass. Pressure may be negative.
func ComputeDensityPressure(s *Store, nb NeighborResolver, k Kernels, p Params, lo, hi int) {
	self := p.Mass * k.SelfDensity()
	for i := lo; i < hi; i++ {
		rho := self
		pi := s.Pos[i]
		for j := range nb.Neighbors(i, s.Pos) {
			rho += p.Mass * k.Poly6Sq(r3.Norm2(r3.Sub(s.Pos[j], pi)))
		}
		s.Density[i] = rho
		s.Pressure[i] = p.GasConstant * (rho - p.RestDensity)
	}
}
