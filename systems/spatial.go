// Package systems provides the per-tick AI and ecology passes.
package systems

import (
	"math"

	"gonum.org/v1/gonum/spatial/r2"

	"github.com/pthm-cable/minions/geom"
)

// Neighbor holds a nearby item with precomputed spatial data.
type Neighbor[K comparable] struct {
	Key    K
	Pos    r2.Vec
	Delta  r2.Vec  // from query origin
	DistSq float64 // squared distance (avoid sqrt in hot path)
}

type gridEntry[K comparable] struct {
	key K
	pos r2.Vec
}

// SpatialGrid provides O(1) neighbor lookups using a cell-based grid over a
// bounded arena. Items outside the arena are kept in the nearest edge cell.
type SpatialGrid[K comparable] struct {
	cellSize float64
	origin   r2.Vec
	cols     int
	rows     int
	cells    [][]gridEntry[K]
	count    int
}

// NewSpatialGrid creates a spatial grid covering bounds.
func NewSpatialGrid[K comparable](bounds geom.Rect, cellSize float64) *SpatialGrid[K] {
	if cellSize <= 0 {
		cellSize = 1
	}
	cols := int(bounds.Width()/cellSize) + 1
	rows := int(bounds.Height()/cellSize) + 1

	cells := make([][]gridEntry[K], cols*rows)
	for i := range cells {
		cells[i] = make([]gridEntry[K], 0, 4)
	}

	return &SpatialGrid[K]{
		cellSize: cellSize,
		origin:   bounds.Min,
		cols:     cols,
		rows:     rows,
		cells:    cells,
	}
}

// Clear removes all items from the grid.
func (g *SpatialGrid[K]) Clear() {
	for i := range g.cells {
		g.cells[i] = g.cells[i][:0]
	}
	g.count = 0
}

// Insert adds an item at the given position.
func (g *SpatialGrid[K]) Insert(k K, p r2.Vec) {
	col, row := g.cell(p)
	idx := row*g.cols + col
	g.cells[idx] = append(g.cells[idx], gridEntry[K]{key: k, pos: p})
	g.count++
}

// Len returns the number of items.
func (g *SpatialGrid[K]) Len() int { return g.count }

// MaxQueryResults caps the number of neighbors returned by radius queries.
// This prevents density spikes from causing unbounded work.
const MaxQueryResults = 128

// QueryRadiusInto appends items within radius of p to dst (up to
// MaxQueryResults). Reuse dst across calls to avoid allocations.
func (g *SpatialGrid[K]) QueryRadiusInto(dst []Neighbor[K], p r2.Vec, radius float64) []Neighbor[K] {
	radiusSq := radius * radius
	c0, r0 := g.cell(r2.Sub(p, r2.Vec{X: radius, Y: radius}))
	c1, r1 := g.cell(r2.Add(p, r2.Vec{X: radius, Y: radius}))

	for row := r0; row <= r1; row++ {
		for col := c0; col <= c1; col++ {
			for _, e := range g.cells[row*g.cols+col] {
				d := r2.Sub(e.pos, p)
				distSq := r2.Norm2(d)
				if distSq > radiusSq {
					continue
				}
				dst = append(dst, Neighbor[K]{Key: e.key, Pos: e.pos, Delta: d, DistSq: distSq})
				if len(dst) >= MaxQueryResults {
					return dst
				}
			}
		}
	}
	return dst
}

// Nearest returns the closest item within radius of p. Ties go to the item
// found first, so results depend only on insertion order.
func (g *SpatialGrid[K]) Nearest(p r2.Vec, radius float64) (Neighbor[K], bool) {
	best := Neighbor[K]{DistSq: math.Inf(1)}
	found := false
	radiusSq := radius * radius
	c0, r0 := g.cell(r2.Sub(p, r2.Vec{X: radius, Y: radius}))
	c1, r1 := g.cell(r2.Add(p, r2.Vec{X: radius, Y: radius}))

	for row := r0; row <= r1; row++ {
		for col := c0; col <= c1; col++ {
			for _, e := range g.cells[row*g.cols+col] {
				d := r2.Sub(e.pos, p)
				distSq := r2.Norm2(d)
				if distSq <= radiusSq && distSq < best.DistSq {
					best = Neighbor[K]{Key: e.key, Pos: e.pos, Delta: d, DistSq: distSq}
					found = true
				}
			}
		}
	}
	return best, found
}

// cell returns the clamped column and row of a position.
func (g *SpatialGrid[K]) cell(p r2.Vec) (col, row int) {
	col = int(math.Floor((p.X - g.origin.X) / g.cellSize))
	row = int(math.Floor((p.Y - g.origin.Y) / g.cellSize))

	// Clamp to valid range
	if col < 0 {
		col = 0
	} else if col >= g.cols {
		col = g.cols - 1
	}
	if row < 0 {
		row = 0
	} else if row >= g.rows {
		row = g.rows - 1
	}
	return col, row
}
