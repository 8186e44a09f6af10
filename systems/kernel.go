package systems

import "math"

// Kernels evaluates the SPH smoothing kernels for a fixed support radius.
// Coefficients are computed once; every function returns 0 outside [0, h).
type Kernels struct {
	h, h2     float64
	poly6     float64 // 315 / (64 pi h^9)
	spikyGrad float64 // -45 / (pi h^6)
	viscLap   float64 // 45 / (pi h^6)
}

// NewKernels precomputes kernel coefficients for smoothing radius h.
func NewKernels(h float64) Kernels {
	h6 := math.Pow(h, 6)
	return Kernels{
		h:         h,
		h2:        h * h,
		poly6:     315 / (64 * math.Pi * math.Pow(h, 9)),
		spikyGrad: -45 / (math.Pi * h6),
		viscLap:   45 / (math.Pi * h6),
	}
}

// H returns the support radius.
func (k Kernels) H() float64 { return k.h }

// Poly6 is the density kernel W(r, h).
func (k Kernels) Poly6(r float64) float64 {
	if r < 0 || r >= k.h {
		return 0
	}
	return k.Poly6Sq(r * r)
}

// Poly6Sq is Poly6 taking the squared distance, which avoids a sqrt in the density pass.
func (k Kernels) Poly6Sq(r2 float64) float64 {
	if r2 < 0 || r2 >= k.h2 {
		return 0
	}
	d := k.h2 - r2
	return k.poly6 * d * d * d
}

// SpikyGrad is the magnitude of the spiky kernel gradient along the
// neighbor-to-self direction. It is negative inside the support.
func (k Kernels) SpikyGrad(r float64) float64 {
	if r < 0 || r >= k.h {
		return 0
	}
	d := k.h - r
	return k.spikyGrad * d * d
}

// ViscLaplacian is the Laplacian of the viscosity kernel.
func (k Kernels) ViscLaplacian(r float64) float64 {
	if r < 0 || r >= k.h {
		return 0
	}
	return k.viscLap * (k.h - r)
}

// SelfDensity returns W(0, h), the kernel weight a particle contributes to itself.
func (k Kernels) SelfDensity() float64 {
	return k.Poly6Sq(0)
}

func (k Kernels) finite() bool {
	for _, c := range [...]float64{k.poly6, k.spikyGrad, k.viscLap} {
		if math.IsNaN(c) || math.IsInf(c, 0) || c == 0 {
			return false
		}
	}
	return true
}
