package systems

import (
	"math"
	"sync/atomic"

	"gonum.org/v1/gonum/spatial/r3"
)

// Neighborhood selects which cells a grid query visits.
type Neighborhood uint8

const (
	// NeighborhoodFull visits the home cell and all 26 adjacent cells.
	NeighborhoodFull Neighborhood = iota
	// NeighborhoodReduced visits the 2x2x2 block of cells nearest the query point.
	// It can miss neighbors when the cell size is smaller than twice the
	// smoothing radius.
	NeighborhoodReduced
)

// ParseNeighborhood maps a config string to a Neighborhood.
func ParseNeighborhood(s string) (Neighborhood, bool) {
	switch s {
	case "", "full":
		return NeighborhoodFull, true
	case "reduced":
		return NeighborhoodReduced, true
	}
	return NeighborhoodFull, false
}

func (n Neighborhood) String() string {
	if n == NeighborhoodReduced {
		return "reduced"
	}
	return "full"
}

// Cell is an integer grid coordinate.
type Cell struct {
	X, Y, Z int
}

// Hash primes from Teschner et al., "Optimized Spatial Hashing for Collision
// Detection of Deformable Objects".
const (
	hashP1 = 73856093
	hashP2 = 19349663
	hashP3 = 83492791
)

// Cell keys pack 21 bits per axis. Cells 2^21 apart on an axis share a key
// and a slot; queries distance-filter, so that only costs shared capacity.
const (
	keyBits = 21
	keyMask = 1<<keyBits - 1
	keyUsed = 1 << 63
)

func packCell(c Cell) uint64 {
	return keyUsed |
		(uint64(c.X)&keyMask)<<(2*keyBits) |
		(uint64(c.Y)&keyMask)<<keyBits |
		uint64(c.Z)&keyMask
}

// HashGrid maps occupied cells to slots of an open-addressed table. Each
// slot belongs to exactly one cell and holds at most capacity indices;
// inserts past that are dropped and counted. Rebuild grows the table to
// twice the particle count so every occupied cell finds a slot.
type HashGrid struct {
	cellSize  float64
	invCell   float64
	tableSize int
	capacity  int
	mode      Neighborhood

	keys     []atomic.Uint64 // packed cell key per slot, 0 = free
	counts   []atomic.Int32  // per-slot insert attempts since Clear
	slots    []int32         // tableSize * capacity particle indices
	occupied atomic.Int32
	overflow atomic.Int64
}

// NewHashGrid creates a grid with tableSize cell slots of capacity indices each.
func NewHashGrid(cellSize float64, tableSize, capacity int, mode Neighborhood) *HashGrid {
	if capacity < 1 {
		capacity = 1
	}
	g := &HashGrid{
		cellSize: cellSize,
		invCell:  1 / cellSize,
		capacity: capacity,
		mode:     mode,
	}
	g.alloc(max(tableSize, 1))
	return g
}

func (g *HashGrid) alloc(tableSize int) {
	g.tableSize = tableSize
	g.keys = make([]atomic.Uint64, tableSize)
	g.counts = make([]atomic.Int32, tableSize)
	g.slots = make([]int32, tableSize*g.capacity)
}

// CellSize returns the cell edge length.
func (g *HashGrid) CellSize() float64 { return g.cellSize }

// Capacity returns the per-cell limit.
func (g *HashGrid) Capacity() int { return g.capacity }

// Mode returns the query neighborhood.
func (g *HashGrid) Mode() Neighborhood { return g.mode }

// TableSize returns the number of cell slots.
func (g *HashGrid) TableSize() int { return g.tableSize }

// Reserve grows the table so n particles in distinct cells fit at a load
// factor of one half. It discards the current contents when it grows and
// must not run concurrently with Insert.
func (g *HashGrid) Reserve(n int) {
	if want := 2 * n; want > g.tableSize {
		g.alloc(want)
		g.occupied.Store(0)
		g.overflow.Store(0)
	}
}

// Clear empties every slot and resets the overflow counter.
func (g *HashGrid) Clear() {
	for i := range g.keys {
		g.keys[i].Store(0)
		g.counts[i].Store(0)
	}
	g.occupied.Store(0)
	g.overflow.Store(0)
}

// CellOf returns the cell containing p.
func (g *HashGrid) CellOf(p r3.Vec) Cell {
	return Cell{
		X: int(math.Floor(p.X * g.invCell)),
		Y: int(math.Floor(p.Y * g.invCell)),
		Z: int(math.Floor(p.Z * g.invCell)),
	}
}

// home returns the slot a cell tries first.
func (g *HashGrid) home(c Cell) int {
	h := uint32(c.X)*hashP1 ^ uint32(c.Y)*hashP2 ^ uint32(c.Z)*hashP3
	return int(h % uint32(g.tableSize))
}

// claim returns the slot owned by c, taking a free one if c has none yet.
// It returns -1 when the table is full.
func (g *HashGrid) claim(c Cell) int {
	key := packCell(c)
	b := g.home(c)
	for range g.tableSize {
		k := g.keys[b].Load()
		if k == 0 {
			if g.keys[b].CompareAndSwap(0, key) {
				g.occupied.Add(1)
				return b
			}
			k = g.keys[b].Load()
		}
		if k == key {
			return b
		}
		if b++; b == g.tableSize {
			b = 0
		}
	}
	return -1
}

// Lookup returns the slot holding cell c, or -1 if c is empty.
func (g *HashGrid) Lookup(c Cell) int {
	key := packCell(c)
	b := g.home(c)
	for range g.tableSize {
		switch g.keys[b].Load() {
		case key:
			return b
		case 0:
			return -1
		}
		if b++; b == g.tableSize {
			b = 0
		}
	}
	return -1
}

// Insert records particle i at position p. It is safe for concurrent use.
// It returns false if the cell was full, or the table had no free slot,
// and the index was dropped.
func (g *HashGrid) Insert(i int, p r3.Vec) bool {
	b := g.claim(g.CellOf(p))
	if b < 0 {
		g.overflow.Add(1)
		return false
	}
	n := int(g.counts[b].Add(1)) - 1
	if n >= g.capacity {
		g.overflow.Add(1)
		return false
	}
	g.slots[b*g.capacity+n] = int32(i)
	return true
}

// Rebuild sizes the table for pos, clears it and inserts every position in order.
func (g *HashGrid) Rebuild(pos []r3.Vec) {
	g.Reserve(len(pos))
	g.Clear()
	for i, p := range pos {
		g.Insert(i, p)
	}
}

// Bucket returns the indices stored in slot b. The slice aliases grid
// storage and is valid until the next Clear.
func (g *HashGrid) Bucket(b int) []int32 {
	n := min(int(g.counts[b].Load()), g.capacity)
	off := b * g.capacity
	return g.slots[off : off+n]
}

// Occupied returns the number of cells holding at least one insert attempt.
func (g *HashGrid) Occupied() int { return int(g.occupied.Load()) }

// Overflow returns the number of dropped inserts since the last Clear.
func (g *HashGrid) Overflow() int64 { return g.overflow.Load() }

// MaxOccupancy returns the largest number of insert attempts on any cell,
// including dropped ones.
func (g *HashGrid) MaxOccupancy() int {
	var m int32
	for i := range g.counts {
		m = max(m, g.counts[i].Load())
	}
	return int(m)
}

// QueryNeighborCells appends to dst the slots of the occupied cells in the
// neighborhood of p and returns the extended slice. Empty cells are skipped.
func (g *HashGrid) QueryNeighborCells(dst []int, p r3.Vec) []int {
	home := g.CellOf(p)
	add := func(c Cell) {
		if b := g.Lookup(c); b >= 0 {
			dst = append(dst, b)
		}
	}

	if g.mode == NeighborhoodReduced {
		// Step toward the nearer face on each axis.
		sx, sy, sz := g.nearSide(p.X, home.X), g.nearSide(p.Y, home.Y), g.nearSide(p.Z, home.Z)
		for _, dx := range [2]int{0, sx} {
			for _, dy := range [2]int{0, sy} {
				for _, dz := range [2]int{0, sz} {
					add(Cell{home.X + dx, home.Y + dy, home.Z + dz})
				}
			}
		}
		return dst
	}

	for dx := -1; dx <= 1; dx++ {
		for dy := -1; dy <= 1; dy++ {
			for dz := -1; dz <= 1; dz++ {
				add(Cell{home.X + dx, home.Y + dy, home.Z + dz})
			}
		}
	}
	return dst
}

// nearSide returns +1 if v lies in the upper half of cell c, else -1.
func (g *HashGrid) nearSide(v float64, c int) int {
	if v*g.invCell-float64(c) >= 0.5 {
		return 1
	}
	return -1
}
