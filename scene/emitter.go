package scene

import (
	"math/rand/v2"

	"gonum.org/v1/gonum/spatial/r3"

	"github.com/pthm-cable/sph/sim"
)

// Emitter spawns Count particles every Interval seconds at Position. Each
// particle gets Velocity plus a uniform horizontal kick in [-Spread, Spread].
type Emitter struct {
	Position r3.Vec
	Spread   [2]float64 // X and Z half-widths
	Velocity r3.Vec
	Interval float64
	Count    int
	Limit    int // Skip a burst when the target holds this many (0 = unlimited)
}

// emit spawns one burst and reports each new handle to onSpawn.
func (e *Emitter) emit(t Target, rng *rand.Rand, onSpawn func(sim.Handle)) error {
	for range e.Count {
		if e.Limit > 0 && t.Len() >= e.Limit {
			return nil
		}
		v := e.Velocity
		v.X += (rng.Float64()*2 - 1) * e.Spread[0]
		v.Z += (rng.Float64()*2 - 1) * e.Spread[1]

		h, err := t.Spawn(e.Position, v)
		if err != nil {
			return err
		}
		if onSpawn != nil {
			onSpawn(h)
		}
	}
	return nil
}
