package grid

import "container/heap"

// FindPath returns the cells of a shortest 8-directional path from start to
// goal, inclusive of both endpoints. Diagonal steps cost sqrt(2) and may cut
// corners. A nil result means no route exists; callers treat that as
// "movement request denied", never as a fatal condition.
func (g *Grid) FindPath(start, goal Cell) []Cell {
	if !g.Walkable(start) || !g.Walkable(goal) {
		return nil
	}
	if start == goal {
		return []Cell{start}
	}

	s := newSearch(g)
	si := g.index(start)
	s.g[si] = 0
	heap.Push(&s.open, node{idx: si, f: octile(start, goal)})

	for s.open.Len() > 0 {
		cur := heap.Pop(&s.open).(node)
		if s.closed[cur.idx] {
			continue
		}
		s.closed[cur.idx] = true
		c := g.cell(cur.idx)
		if c == goal {
			return s.reconstruct(g, cur.idx)
		}
		for _, d := range steps {
			n := Cell{X: c.X + d.dx, Y: c.Y + d.dy}
			if !g.Walkable(n) {
				continue
			}
			ni := g.index(n)
			if s.closed[ni] {
				continue
			}
			ng := s.g[cur.idx] + d.cost
			if ng >= s.g[ni] {
				continue
			}
			s.g[ni] = ng
			s.from[ni] = cur.idx
			heap.Push(&s.open, node{idx: ni, f: ng + octile(n, goal)})
		}
	}
	return nil
}

const diagCost = 1.4142135623730951

var steps = []struct {
	dx, dy int
	cost   float64
}{
	{1, 0, 1}, {-1, 0, 1}, {0, 1, 1}, {0, -1, 1},
	{1, 1, diagCost}, {1, -1, diagCost}, {-1, 1, diagCost}, {-1, -1, diagCost},
}

func octile(a, b Cell) float64 {
	dx := a.X - b.X
	if dx < 0 {
		dx = -dx
	}
	dy := a.Y - b.Y
	if dy < 0 {
		dy = -dy
	}
	if dx < dy {
		dx, dy = dy, dx
	}
	return float64(dx-dy) + diagCost*float64(dy)
}

func (g *Grid) index(c Cell) int { return c.Y*g.cols + c.X }
func (g *Grid) cell(i int) Cell  { return Cell{X: i % g.cols, Y: i / g.cols} }

type search struct {
	g      []float64
	from   []int
	closed []bool
	open   openHeap
}

func newSearch(gr *Grid) *search {
	n := gr.cols * gr.rows
	s := &search{
		g:      make([]float64, n),
		from:   make([]int, n),
		closed: make([]bool, n),
	}
	for i := range s.g {
		s.g[i] = inf
		s.from[i] = -1
	}
	return s
}

const inf = 1 << 30

func (s *search) reconstruct(g *Grid, idx int) []Cell {
	var rev []Cell
	for i := idx; i >= 0; i = s.from[i] {
		rev = append(rev, g.cell(i))
	}
	out := make([]Cell, len(rev))
	for i, c := range rev {
		out[len(rev)-1-i] = c
	}
	return out
}

type node struct {
	idx int
	f   float64
}

type openHeap []node

func (h openHeap) Len() int           { return len(h) }
func (h openHeap) Less(i, j int) bool { return h[i].f < h[j].f }
func (h openHeap) Swap(i, j int)      { h[i], h[j] = h[j], h[i] }
func (h *openHeap) Push(x any)        { *h = append(*h, x.(node)) }
func (h *openHeap) Pop() any {
	old := *h
	n := len(old)
	x := old[n-1]
	*h = old[:n-1]
	return x
}
