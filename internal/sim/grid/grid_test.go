package grid_test

import (
	"math"
	"testing"

	"agentville.ai/internal/sim/geometry"
	"agentville.ai/internal/sim/grid"
)

func openMap() geometry.Map {
	return geometry.Map{
		Bounds:   geometry.Rect{X: 0, Y: 0, W: 200, H: 200},
		CellSize: 20,
	}
}

func TestBuild_Dimensions(t *testing.T) {
	g := grid.Build(openMap())
	if g.Cols() != 10 || g.Rows() != 10 {
		t.Fatalf("got %dx%d, want 10x10", g.Cols(), g.Rows())
	}
}

func TestCellAt_Clamps(t *testing.T) {
	g := grid.Build(openMap())
	if c := g.CellAt(-50, -50); c != (grid.Cell{X: 0, Y: 0}) {
		t.Fatalf("negative overflow: got %v", c)
	}
	if c := g.CellAt(10000, 10000); c != (grid.Cell{X: 9, Y: 9}) {
		t.Fatalf("positive overflow: got %v", c)
	}
	if c := g.CellAt(30, 50); c != (grid.Cell{X: 1, Y: 2}) {
		t.Fatalf("interior: got %v", c)
	}
}

func TestFindPath_OpenGrid(t *testing.T) {
	g := grid.Build(openMap())
	path := g.FindPath(grid.Cell{X: 0, Y: 0}, grid.Cell{X: 9, Y: 9})
	if path == nil {
		t.Fatal("no path on an open grid")
	}
	if path[0] != (grid.Cell{X: 0, Y: 0}) || path[len(path)-1] != (grid.Cell{X: 9, Y: 9}) {
		t.Fatalf("endpoints wrong: %v ... %v", path[0], path[len(path)-1])
	}
	// Pure diagonal on an open grid: 10 cells.
	if len(path) != 10 {
		t.Fatalf("len(path) = %d, want 10", len(path))
	}
	for i := 1; i < len(path); i++ {
		dx := abs(path[i].X - path[i-1].X)
		dy := abs(path[i].Y - path[i-1].Y)
		if dx > 1 || dy > 1 || (dx == 0 && dy == 0) {
			t.Fatalf("non-adjacent step %v -> %v", path[i-1], path[i])
		}
	}
}

// On an open grid a path's cost equals the octile distance, so moving the
// goal outward along any fixed heading never shortens the route.
func TestFindPath_CostGrowsWithDistance(t *testing.T) {
	g := grid.Build(openMap())
	start := grid.Cell{X: 0, Y: 0}
	headings := []struct{ dx, dy int }{{1, 0}, {0, 1}, {1, 1}, {2, 1}}
	for _, h := range headings {
		prev := 0.0
		for i := 1; ; i++ {
			goal := grid.Cell{X: h.dx * i, Y: h.dy * i}
			if goal.X > 9 || goal.Y > 9 {
				break
			}
			path := g.FindPath(start, goal)
			if path == nil {
				t.Fatalf("no path to %v", goal)
			}
			cost := pathCost(path)
			dx, dy := goal.X, goal.Y
			if dx < dy {
				dx, dy = dy, dx
			}
			want := float64(dx-dy) + math.Sqrt2*float64(dy)
			if math.Abs(cost-want) > 1e-9 {
				t.Fatalf("cost to %v = %v, want octile %v", goal, cost, want)
			}
			if cost < prev {
				t.Fatalf("cost to %v shrank below the nearer goal: %v < %v", goal, cost, prev)
			}
			prev = cost
		}
	}
}

func pathCost(path []grid.Cell) float64 {
	total := 0.0
	for i := 1; i < len(path); i++ {
		if path[i].X != path[i-1].X && path[i].Y != path[i-1].Y {
			total += math.Sqrt2
			continue
		}
		total++
	}
	return total
}

func TestFindPath_SameCell(t *testing.T) {
	g := grid.Build(openMap())
	path := g.FindPath(grid.Cell{X: 3, Y: 3}, grid.Cell{X: 3, Y: 3})
	if len(path) != 1 {
		t.Fatalf("len(path) = %d, want 1", len(path))
	}
}

func TestFindPath_DetoursAroundWall(t *testing.T) {
	m := openMap()
	// Vertical wall splitting the map, with a gap at the bottom row.
	m.Walls = []geometry.Wall{
		{Rect: geometry.Rect{X: 80, Y: 0, W: 20, H: 180}, Kind: "interior"},
	}
	g := grid.Build(m)

	start := g.CellAt(30, 30)
	goal := g.CellAt(170, 30)
	path := g.FindPath(start, goal)
	if path == nil {
		t.Fatal("no path around the wall gap")
	}
	// A straight line is 8 cells; the detour through the bottom must be longer.
	if len(path) <= 8 {
		t.Fatalf("path suspiciously short (%d cells) for a walled route", len(path))
	}
	for _, c := range path {
		if !g.Walkable(c) {
			t.Fatalf("path crosses blocked cell %v", c)
		}
	}
}

func TestFindPath_ClosedDoorBlocks(t *testing.T) {
	m := openMap()
	m.Walls = []geometry.Wall{
		{Rect: geometry.Rect{X: 80, Y: 0, W: 20, H: 200}, Kind: "interior"},
	}
	m.Doors = []geometry.Door{
		{Rect: geometry.Rect{X: 80, Y: 80, W: 20, H: 40}, Open: false},
	}
	g := grid.Build(m)

	if path := g.FindPath(g.CellAt(30, 100), g.CellAt(170, 100)); path != nil {
		t.Fatalf("expected nil path through a closed door, got %d cells", len(path))
	}

	// Opening the door makes the same route viable.
	m.Doors[0].Open = true
	g = grid.Build(m)
	if path := g.FindPath(g.CellAt(30, 100), g.CellAt(170, 100)); path == nil {
		t.Fatal("no path through an open door")
	}
}

func TestFindPath_UnwalkableEndpoint(t *testing.T) {
	m := openMap()
	m.Obstacles = []geometry.Rect{{X: 40, Y: 40, W: 20, H: 20}}
	g := grid.Build(m)

	blocked := g.CellAt(50, 50)
	if g.Walkable(blocked) {
		t.Fatal("obstacle cell should be unwalkable")
	}
	if path := g.FindPath(grid.Cell{X: 0, Y: 0}, blocked); path != nil {
		t.Fatal("path to a blocked cell should be nil")
	}
	if path := g.FindPath(blocked, grid.Cell{X: 0, Y: 0}); path != nil {
		t.Fatal("path from a blocked cell should be nil")
	}
}

// Successive searches over one grid must not leak visited-state.
func TestFindPath_RepeatedSearches(t *testing.T) {
	g := grid.Build(openMap())
	a := g.FindPath(grid.Cell{X: 0, Y: 0}, grid.Cell{X: 9, Y: 9})
	b := g.FindPath(grid.Cell{X: 0, Y: 0}, grid.Cell{X: 9, Y: 9})
	if len(a) != len(b) {
		t.Fatalf("repeat search diverged: %d vs %d cells", len(a), len(b))
	}
}

func abs(v int) int {
	if v < 0 {
		return -v
	}
	return v
}
