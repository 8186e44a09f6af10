package systems

import (
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gonum.org/v1/gonum/spatial/r3"
)

func TestCellOfFloorsNegative(t *testing.T) {
	g := NewHashGrid(1, 101, 4, NeighborhoodFull)

	tests := []struct {
		p    r3.Vec
		want Cell
	}{
		{r3.Vec{X: 0.5, Y: 0.5, Z: 0.5}, Cell{0, 0, 0}},
		{r3.Vec{X: -0.5, Y: 0, Z: 1}, Cell{-1, 0, 1}},
		{r3.Vec{X: -1, Y: -1.0001, Z: 2.999}, Cell{-1, -2, 2}},
	}
	for _, tt := range tests {
		if got := g.CellOf(tt.p); got != tt.want {
			t.Errorf("CellOf(%v) = %v, want %v", tt.p, got, tt.want)
		}
	}
}

func TestHashGridInsertAndClear(t *testing.T) {
	g := NewHashGrid(1, 101, 4, NeighborhoodFull)
	p := r3.Vec{X: 0.2, Y: 0.3, Z: 0.4}

	for i := range 3 {
		require.True(t, g.Insert(i, p))
	}
	b := g.Lookup(g.CellOf(p))
	require.GreaterOrEqual(t, b, 0)
	assert.Equal(t, []int32{0, 1, 2}, g.Bucket(b))
	assert.Equal(t, 1, g.Occupied())
	assert.Zero(t, g.Overflow())

	g.Clear()
	assert.Equal(t, -1, g.Lookup(g.CellOf(p)))
	assert.Empty(t, g.Bucket(b))
	assert.Zero(t, g.Occupied())
	assert.Zero(t, g.MaxOccupancy())
}

func TestHashGridOverflowDrops(t *testing.T) {
	g := NewHashGrid(1, 101, 4, NeighborhoodFull)
	p := r3.Vec{X: 5.5, Y: 5.5, Z: 5.5}

	accepted := 0
	for i := range 10 {
		if g.Insert(i, p) {
			accepted++
		}
	}

	assert.Equal(t, 4, accepted)
	assert.Equal(t, int64(6), g.Overflow())
	assert.Equal(t, 10, g.MaxOccupancy())
	assert.Len(t, g.Bucket(g.Lookup(g.CellOf(p))), 4)

	g.Clear()
	assert.Zero(t, g.Overflow(), "overflow counter resets on Clear")
}

func TestHashGridCapacityIsPerCell(t *testing.T) {
	// Two slots for two cells: each owns one slot and its full capacity,
	// whether or not their home slots collide.
	g := NewHashGrid(1, 2, 2, NeighborhoodFull)
	a := r3.Vec{X: 0.5, Y: 0.5, Z: 0.5}
	b := r3.Vec{X: 7.5, Y: -3.5, Z: 11.5}

	for i := range 2 {
		require.True(t, g.Insert(i, a))
		require.True(t, g.Insert(10+i, b))
	}
	assert.Zero(t, g.Overflow())
	assert.Equal(t, 2, g.Occupied())

	sa, sb := g.Lookup(g.CellOf(a)), g.Lookup(g.CellOf(b))
	require.NotEqual(t, sa, sb)
	assert.Equal(t, []int32{0, 1}, g.Bucket(sa))
	assert.Equal(t, []int32{10, 11}, g.Bucket(sb))

	// A third cell has no slot left.
	assert.False(t, g.Insert(20, r3.Vec{X: -4.5}))
	assert.Equal(t, int64(1), g.Overflow())
	assert.Equal(t, -1, g.Lookup(g.CellOf(r3.Vec{X: -4.5})))
}

func TestHashGridRebuildGrowsTable(t *testing.T) {
	g := NewHashGrid(1, 4, 8, NeighborhoodFull)
	pos := make([]r3.Vec, 100)
	for i := range pos {
		pos[i] = r3.Vec{X: float64(i) + 0.5}
	}

	g.Rebuild(pos)
	assert.GreaterOrEqual(t, g.TableSize(), 200)
	assert.Equal(t, 100, g.Occupied())
	assert.Zero(t, g.Overflow())
	for i, p := range pos {
		assert.Equal(t, []int32{int32(i)}, g.Bucket(g.Lookup(g.CellOf(p))))
	}

	// Already large enough: Reserve keeps the table.
	size := g.TableSize()
	g.Reserve(50)
	assert.Equal(t, size, g.TableSize())
}

func TestHashGridConcurrentInsert(t *testing.T) {
	const (
		workers   = 8
		perWorker = 50
		capacity  = 64
	)
	g := NewHashGrid(1, 13, capacity, NeighborhoodFull)
	p := r3.Vec{X: 0.5, Y: 0.5, Z: 0.5}

	var wg sync.WaitGroup
	for w := range workers {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for k := range perWorker {
				g.Insert(w*perWorker+k, p)
			}
		}()
	}
	wg.Wait()

	bucket := g.Bucket(g.Lookup(g.CellOf(p)))
	assert.Len(t, bucket, capacity)
	assert.Equal(t, int64(workers*perWorker-capacity), g.Overflow())

	seen := make(map[int32]bool, len(bucket))
	for _, idx := range bucket {
		assert.False(t, seen[idx], "index %d stored twice", idx)
		seen[idx] = true
	}
}

func TestHashGridConcurrentClaim(t *testing.T) {
	const workers = 8
	// Every worker writes one particle into each of the same 12 cells.
	g := NewHashGrid(1, 29, workers, NeighborhoodFull)
	cells := make([]r3.Vec, 12)
	for i := range cells {
		cells[i] = r3.Vec{X: float64(i%3) + 0.5, Y: float64(i/3) + 0.5}
	}

	var wg sync.WaitGroup
	for w := range workers {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for i, p := range cells {
				g.Insert(i*workers+w, p)
			}
		}()
	}
	wg.Wait()

	assert.Equal(t, len(cells), g.Occupied(), "each cell claims exactly one slot")
	assert.Zero(t, g.Overflow())
	for i, p := range cells {
		bucket := g.Bucket(g.Lookup(g.CellOf(p)))
		require.Len(t, bucket, workers)
		for _, idx := range bucket {
			assert.Equal(t, i, int(idx)/workers, "index %d landed in cell %d", idx, i)
		}
	}
}

// fillBlock inserts one particle at the center of every cell in the 5x5x5
// block around c.
func fillBlock(g *HashGrid, c Cell) {
	i := 0
	for dx := -2; dx <= 2; dx++ {
		for dy := -2; dy <= 2; dy++ {
			for dz := -2; dz <= 2; dz++ {
				g.Insert(i, r3.Vec{
					X: (float64(c.X+dx) + 0.5) * g.CellSize(),
					Y: (float64(c.Y+dy) + 0.5) * g.CellSize(),
					Z: (float64(c.Z+dz) + 0.5) * g.CellSize(),
				})
				i++
			}
		}
	}
}

func TestQueryNeighborCellsCounts(t *testing.T) {
	p := r3.Vec{X: 3.2, Y: 7.7, Z: -1.4}

	tests := []struct {
		name   string
		mode   Neighborhood
		filled bool
		want   int
	}{
		{"full", NeighborhoodFull, true, 27},
		{"reduced", NeighborhoodReduced, true, 8},
		{"full, empty grid", NeighborhoodFull, false, 0},
		{"reduced, empty grid", NeighborhoodReduced, false, 0},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			g := NewHashGrid(1, 1024, 4, tt.mode)
			if tt.filled {
				fillBlock(g, g.CellOf(p))
				require.Zero(t, g.Overflow())
			}
			got := g.QueryNeighborCells(nil, p)
			assert.Len(t, got, tt.want)

			seen := make(map[int]bool)
			for _, b := range got {
				assert.False(t, seen[b], "slot %d repeated", b)
				seen[b] = true
			}
		})
	}
}

func TestQueryNeighborCellsReducedPicksNearSide(t *testing.T) {
	g := NewHashGrid(1, 1024, 4, NeighborhoodReduced)
	// Upper half in X, lower half in Y and Z.
	p := r3.Vec{X: 2.8, Y: 5.1, Z: 9.3}
	fillBlock(g, g.CellOf(p))

	got := g.QueryNeighborCells(nil, p)

	var want []int
	for _, dx := range []int{0, 1} {
		for _, dy := range []int{0, -1} {
			for _, dz := range []int{0, -1} {
				want = append(want, g.Lookup(Cell{2 + dx, 5 + dy, 9 + dz}))
			}
		}
	}
	assert.NotContains(t, want, -1)
	assert.ElementsMatch(t, want, got)
}

func TestQueryNeighborCellsAppends(t *testing.T) {
	g := NewHashGrid(1, 64, 4, NeighborhoodReduced)
	require.True(t, g.Insert(0, r3.Vec{X: 0.1, Y: 0.1, Z: 0.1}))

	dst := []int{-1}
	dst = g.QueryNeighborCells(dst, r3.Vec{X: 0.2, Y: 0.2, Z: 0.2})
	assert.Equal(t, []int{-1, g.Lookup(Cell{})}, dst)
}

func TestParseNeighborhood(t *testing.T) {
	for in, want := range map[string]Neighborhood{"": NeighborhoodFull, "full": NeighborhoodFull, "reduced": NeighborhoodReduced} {
		got, ok := ParseNeighborhood(in)
		assert.True(t, ok, in)
		assert.Equal(t, want, got, in)
		assert.Equal(t, want.String(), got.String())
	}
	_, ok := ParseNeighborhood("octant")
	assert.False(t, ok)
}
