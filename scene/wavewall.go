package scene

import (
	"math"

	"gonum.org/v1/gonum/spatial/r3"
)

// arriveEpsilon is the distance at which the wall counts as arrived.
const arriveEpsilon = 1e-4

// WaveWall slides one collider between From and To. Each advance it covers
// Speed*dt of the remaining distance; every Period seconds it turns around.
type WaveWall struct {
	Collider int // Index into the scene's collider list
	From     r3.Vec
	To       r3.Vec
	Speed    float64
	Period   float64

	toShore bool
}

// goal returns the point the wall is currently moving toward.
func (w *WaveWall) goal() r3.Vec {
	if w.toShore {
		return w.To
	}
	return w.From
}

// turn reverses direction.
func (w *WaveWall) turn() { w.toShore = !w.toShore }

// move returns the collider position after dt seconds, and whether it changed.
func (w *WaveWall) move(pos r3.Vec, dt float64) (r3.Vec, bool) {
	goal := w.goal()
	d := r3.Sub(goal, pos)
	if r3.Norm(d) <= arriveEpsilon || dt <= 0 {
		return pos, false
	}
	f := math.Min(w.Speed*dt, 1)
	return r3.Add(pos, r3.Scale(f, d)), true
}
