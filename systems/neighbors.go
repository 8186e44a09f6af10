package systems

import (
	"iter"

	"gonum.org/v1/gonum/spatial/r3"
)

// NeighborResolver yields the indices of particles within the smoothing
// radius of particle i, excluding i. Sequences are lazy and may be
// ranged over repeatedly.
type NeighborResolver interface {
	Neighbors(i int, pos []r3.Vec) iter.Seq[int]
}

// BruteForceResolver tests every particle. Reference path for small counts and tests.
type BruteForceResolver struct {
	H float64
}

// Neighbors implements NeighborResolver.
func (b BruteForceResolver) Neighbors(i int, pos []r3.Vec) iter.Seq[int] {
	h2 := b.H * b.H
	return func(yield func(int) bool) {
		pi := pos[i]
		for j, pj := range pos {
			if j == i {
				continue
			}
			if r3.Norm2(r3.Sub(pj, pi)) < h2 && !yield(j) {
				return
			}
		}
	}
}

// GridResolver visits only the occupied cells the grid returns for a particle.
// The grid must have been rebuilt from pos.
type GridResolver struct {
	Grid *HashGrid
	H    float64
}

// Neighbors implements NeighborResolver.
func (g GridResolver) Neighbors(i int, pos []r3.Vec) iter.Seq[int] {
	h2 := g.H * g.H
	return func(yield func(int) bool) {
		var buf [27]int
		pi := pos[i]
		for _, b := range g.Grid.QueryNeighborCells(buf[:0], pi) {
			for _, j32 := range g.Grid.Bucket(b) {
				j := int(j32)
				if j == i {
					continue
				}
				if r3.Norm2(r3.Sub(pos[j], pi)) < h2 && !yield(j) {
					return
				}
			}
		}
	}
}

// Collect drains a neighbor sequence into dst.
func Collect(dst []int, seq iter.Seq[int]) []int {
	for j := range seq {
		dst = append(dst, j)
	}
	return dst
}
