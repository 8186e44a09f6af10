package systems

import (
	"fmt"
	"math"

	"gonum.org/v1/gonum/spatial/r2"
	"gonum.org/v1/gonum/spatial/r3"
)

// orthoTolerance bounds |Right·Up| for unit basis vectors.
const orthoTolerance = 1e-6

// PlaneCollider is a finite rectangle spanned by Right and Up around Position.
// Fluid is kept on the side opposite Right×Up.
type PlaneCollider struct {
	Position    r3.Vec
	Right       r3.Vec
	Up          r3.Vec
	HalfExtents r2.Vec // Along Right (X) and Up (Y)
}

// Normal returns the unit normal Right×Up.
func (c PlaneCollider) Normal() r3.Vec {
	return r3.Unit(r3.Cross(c.Right, c.Up))
}

// Normalized returns a copy with unit-length basis vectors.
func (c PlaneCollider) Normalized() PlaneCollider {
	c.Right = r3.Unit(c.Right)
	c.Up = r3.Unit(c.Up)
	return c
}

// Validate checks that the basis is usable. It expects a normalized collider.
func (c PlaneCollider) Validate() error {
	if !Finite(c.Position) {
		return fmt.Errorf("%w: position %v is not finite", ErrInvalidCollider, c.Position)
	}
	if !Finite(c.Right) || r3.Norm2(c.Right) == 0 {
		return fmt.Errorf("%w: right %v is zero or not finite", ErrInvalidCollider, c.Right)
	}
	if !Finite(c.Up) || r3.Norm2(c.Up) == 0 {
		return fmt.Errorf("%w: up %v is zero or not finite", ErrInvalidCollider, c.Up)
	}
	if math.Abs(r3.Dot(c.Right, c.Up)) > orthoTolerance {
		return fmt.Errorf("%w: right and up are not orthogonal", ErrInvalidCollider)
	}
	if !(c.HalfExtents.X > 0) || !(c.HalfExtents.Y > 0) {
		return fmt.Errorf("%w: half extents %v must be positive", ErrInvalidCollider, c.HalfExtents)
	}
	return nil
}

// Intersect tests a particle of the given radius at p against the collider
// with unit normal n. Depth is negative on contact.
func (c PlaneCollider) Intersect(p, n r3.Vec, radius float64) (depth float64, hit bool) {
	toCollider := r3.Sub(c.Position, p)
	depth = math.Abs(r3.Dot(toCollider, n)) - radius/2
	hit = depth < 0 &&
		math.Abs(r3.Dot(toCollider, c.Right)) < c.HalfExtents.X &&
		math.Abs(r3.Dot(toCollider, c.Up)) < c.HalfExtents.Y
	return depth, hit
}

// Respond moves p out along -n by |depth| and rebuilds v from its normal
// component scaled by damping and its tangential components scaled by 1-drag.
func (c PlaneCollider) Respond(p, v, n r3.Vec, depth, damping, drag float64) (r3.Vec, r3.Vec) {
	p = r3.Sub(p, r3.Scale(math.Abs(depth), n))

	keep := 1 - drag
	v = r3.Add(
		r3.Scale(r3.Dot(v, n)*damping, n),
		r3.Add(
			r3.Scale(r3.Dot(v, c.Right)*keep, c.Right),
			r3.Scale(r3.Dot(v, c.Up)*keep, c.Up),
		),
	)
	return p, v
}

// Collide resolves slots [lo, hi) against colliders in order and returns the
// number of contacts. Later colliders see the result of earlier ones.
func Collide(s *Store, colliders []PlaneCollider, p Params, lo, hi int) int {
	if len(colliders) == 0 {
		return 0
	}
	normals := make([]r3.Vec, len(colliders))
	for c := range colliders {
		normals[c] = colliders[c].Normal()
	}

	contacts := 0
	for i := lo; i < hi; i++ {
		if s.Faulted[i] {
			continue
		}
		for c := range colliders {
			col := &colliders[c]
			depth, hit := col.Intersect(s.Pos[i], normals[c], p.Radius)
			if !hit {
				continue
			}
			s.Pos[i], s.Vel[i] = col.Respond(s.Pos[i], s.Vel[i], normals[c], depth, p.Damping, p.Drag)
			contacts++
		}
	}
	return contacts
}
