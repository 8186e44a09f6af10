package scene

import (
	"math"
	"math/rand/v2"

	"gonum.org/v1/gonum/spatial/r3"
)

// Block lays out particles on a cubic lattice.
type Block struct {
	Count    int
	Origin   r3.Vec
	Spacing  float64
	Jitter   float64 // Uniform [0, Jitter) offset per axis
	Velocity r3.Vec
}

// Positions returns Count lattice points, filling z fastest, then y, then x.
func (b Block) Positions(rng *rand.Rand) []r3.Vec {
	if b.Count <= 0 {
		return nil
	}
	side := int(math.Ceil(math.Cbrt(float64(b.Count))))
	// Cbrt can land just above an exact cube.
	if (side-1)*(side-1)*(side-1) >= b.Count {
		side--
	}

	out := make([]r3.Vec, 0, b.Count)
	for x := 0; x < side; x++ {
		for y := 0; y < side; y++ {
			for z := 0; z < side; z++ {
				if len(out) == b.Count {
					return out
				}
				p := r3.Vec{
					X: b.Origin.X + float64(x)*b.Spacing,
					Y: b.Origin.Y + float64(y)*b.Spacing,
					Z: b.Origin.Z + float64(z)*b.Spacing,
				}
				if b.Jitter > 0 && rng != nil {
					p = r3.Add(p, r3.Vec{
						X: rng.Float64() * b.Jitter,
						Y: rng.Float64() * b.Jitter,
						Z: rng.Float64() * b.Jitter,
					})
				}
				out = append(out, p)
			}
		}
	}
	return out
}
