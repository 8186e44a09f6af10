package systems

import (
	"math"
	"testing"
)

func TestKernelsSupportIsOpen(t *testing.T) {
	for _, h := range []float64{0.5, 1, 2.5} {
		k := NewKernels(h)
		if got := k.Poly6(h); got != 0 {
			t.Errorf("h=%v: Poly6(h) = %v, want 0", h, got)
		}
		if got := k.Poly6Sq(h * h); got != 0 {
			t.Errorf("h=%v: Poly6Sq(h^2) = %v, want 0", h, got)
		}
		if got := k.SpikyGrad(h); got != 0 {
			t.Errorf("h=%v: SpikyGrad(h) = %v, want 0", h, got)
		}
		if got := k.ViscLaplacian(h); got != 0 {
			t.Errorf("h=%v: ViscLaplacian(h) = %v, want 0", h, got)
		}
		if k.Poly6(1.5*h) != 0 || k.SpikyGrad(1.5*h) != 0 || k.ViscLaplacian(1.5*h) != 0 {
			t.Errorf("h=%v: kernels nonzero outside support", h)
		}
		if k.Poly6(-0.1) != 0 || k.SpikyGrad(-0.1) != 0 || k.ViscLaplacian(-0.1) != 0 {
			t.Errorf("h=%v: kernels nonzero for negative r", h)
		}
	}
}

func TestKernelValues(t *testing.T) {
	k := NewKernels(1)

	tests := []struct {
		name string
		got  float64
		want float64
	}{
		{"poly6 at 0", k.Poly6(0), 315 / (64 * math.Pi)},
		{"poly6 at 0.5", k.Poly6(0.5), 315 / (64 * math.Pi) * math.Pow(0.75, 3)},
		{"self density", k.SelfDensity(), 315 / (64 * math.Pi)},
		{"spiky grad at 0", k.SpikyGrad(0), -45 / math.Pi},
		{"spiky grad at 0.5", k.SpikyGrad(0.5), -45 / math.Pi * 0.25},
		{"visc laplacian at 0.25", k.ViscLaplacian(0.25), 45 / math.Pi * 0.75},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if math.Abs(tt.got-tt.want) > 1e-9 {
				t.Errorf("got %v, want %v", tt.got, tt.want)
			}
		})
	}
}

func TestPoly6SqMatchesPoly6(t *testing.T) {
	k := NewKernels(2)
	for r := 0.0; r < 2.2; r += 0.1 {
		a, b := k.Poly6(r), k.Poly6Sq(r*r)
		if math.Abs(a-b) > 1e-12 {
			t.Errorf("r=%.1f: Poly6=%v Poly6Sq=%v", r, a, b)
		}
	}
}

func TestKernelsScaleWithRadius(t *testing.T) {
	// Poly6 integrates to 1, so W(0, h) scales as h^-3.
	small, large := NewKernels(1), NewKernels(2)
	ratio := small.SelfDensity() / large.SelfDensity()
	if math.Abs(ratio-8) > 1e-9 {
		t.Errorf("W(0,1)/W(0,2) = %v, want 8", ratio)
	}
}
