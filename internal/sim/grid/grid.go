// Package grid builds a walkability lattice from static map geometry and
// answers shortest-path queries over it.
package grid

import "agentville.ai/internal/sim/geometry"

type Cell struct {
	X int
	Y int
}

// Grid is immutable after Build. Per-request search bookkeeping lives in a
// per-call state (see astar.go), so concurrent or successive path requests
// never observe visited-state from a prior search.
type Grid struct {
	cols     int
	rows     int
	cellSize int
	originX  float64
	originY  float64
	walkable []bool
}

func Build(m geometry.Map) *Grid {
	cs := m.CellSize
	cols := int(m.Bounds.W) / cs
	rows := int(m.Bounds.H) / cs
	if cols < 1 {
		cols = 1
	}
	if rows < 1 {
		rows = 1
	}
	g := &Grid{
		cols:     cols,
		rows:     rows,
		cellSize: cs,
		originX:  m.Bounds.X,
		originY:  m.Bounds.Y,
		walkable: make([]bool, cols*rows),
	}
	for y := 0; y < rows; y++ {
		for x := 0; x < cols; x++ {
			cx := g.originX + (float64(x)+0.5)*float64(cs)
			cy := g.originY + (float64(y)+0.5)*float64(cs)
			g.walkable[y*cols+x] = !m.Blocked(cx, cy)
		}
	}
	return g
}

func (g *Grid) Cols() int { return g.cols }
func (g *Grid) Rows() int { return g.rows }

func (g *Grid) InBounds(c Cell) bool {
	return c.X >= 0 && c.X < g.cols && c.Y >= 0 && c.Y < g.rows
}

func (g *Grid) Walkable(c Cell) bool {
	return g.InBounds(c) && g.walkable[c.Y*g.cols+c.X]
}

// CellAt maps a continuous plane position to its containing cell, clamped to
// the lattice so slightly out-of-bounds drag positions still resolve.
func (g *Grid) CellAt(x, y float64) Cell {
	cx := int((x - g.originX) / float64(g.cellSize))
	cy := int((y - g.originY) / float64(g.cellSize))
	if cx < 0 {
		cx = 0
	}
	if cx >= g.cols {
		cx = g.cols - 1
	}
	if cy < 0 {
		cy = 0
	}
	if cy >= g.rows {
		cy = g.rows - 1
	}
	return Cell{X: cx, Y: cy}
}

// Center returns the plane coordinates of a cell's midpoint.
func (g *Grid) Center(c Cell) (x, y float64) {
	x = g.originX + (float64(c.X)+0.5)*float64(g.cellSize)
	y = g.originY + (float64(c.Y)+0.5)*float64(g.cellSize)
	return x, y
}
