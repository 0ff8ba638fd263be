package geometry

import (
	"fmt"
	"os"

	"gopkg.in/yaml.v3"
)

// Map is the static village layout. It is read once at startup and never
// mutated by the simulation.
type Map struct {
	Bounds   Rect   `yaml:"bounds"`
	CellSize int    `yaml:"cell_size"`
	Walls    []Wall `yaml:"walls"`
	Doors    []Door `yaml:"doors"`
	Rooms    []Room `yaml:"rooms"`

	// Obstacles is the legacy rectangular-blocker list kept for maps that
	// predate walls/doors. Treated exactly like exterior walls.
	Obstacles []Rect `yaml:"obstacles"`
}

type Rect struct {
	X float64 `yaml:"x"`
	Y float64 `yaml:"y"`
	W float64 `yaml:"w"`
	H float64 `yaml:"h"`
}

type Wall struct {
	Rect `yaml:",inline"`
	Kind string `yaml:"kind"` // "interior" or "exterior"
}

type Door struct {
	Rect `yaml:",inline"`
	Open bool `yaml:"open"`
}

type Room struct {
	Rect `yaml:",inline"`
	Name string `yaml:"name"`
}

func (r Rect) Contains(x, y float64) bool {
	return x >= r.X && x < r.X+r.W && y >= r.Y && y < r.Y+r.H
}

func (r Rect) CenterX() float64 { return r.X + r.W/2 }
func (r Rect) CenterY() float64 { return r.Y + r.H/2 }

func Load(path string) (Map, error) {
	var m Map
	raw, err := os.ReadFile(path)
	if err != nil {
		return m, err
	}
	if err := yaml.Unmarshal(raw, &m); err != nil {
		return m, fmt.Errorf("map.yaml: %w", err)
	}
	m.applyDefaults()
	if err := m.validate(); err != nil {
		return m, err
	}
	return m, nil
}

func (m *Map) applyDefaults() {
	if m.CellSize <= 0 {
		m.CellSize = 20
	}
	if m.Bounds.W <= 0 {
		m.Bounds.W = 1200
	}
	if m.Bounds.H <= 0 {
		m.Bounds.H = 800
	}
}

func (m *Map) validate() error {
	if m.CellSize <= 0 {
		return fmt.Errorf("map: cell_size must be positive")
	}
	if m.Bounds.W < float64(m.CellSize) || m.Bounds.H < float64(m.CellSize) {
		return fmt.Errorf("map: bounds smaller than one cell")
	}
	for _, w := range m.Walls {
		if w.Kind != "interior" && w.Kind != "exterior" {
			return fmt.Errorf("map: wall kind %q (want interior|exterior)", w.Kind)
		}
	}
	return nil
}

// Blocked reports whether the point sits inside solid geometry. An open door
// punches through any wall that covers it; a closed door blocks like a wall.
func (m *Map) Blocked(x, y float64) bool {
	for _, d := range m.Doors {
		if d.Contains(x, y) {
			return !d.Open
		}
	}
	for _, w := range m.Walls {
		if w.Contains(x, y) {
			return true
		}
	}
	for _, o := range m.Obstacles {
		if o.Contains(x, y) {
			return true
		}
	}
	return false
}

// RoomAt labels a position with the room that contains it, falling back to
// the nearest room center so encounter locations near boundaries still get a
// stable name. Empty only when the map defines no rooms at all.
func (m *Map) RoomAt(x, y float64) string {
	for _, r := range m.Rooms {
		if r.Contains(x, y) {
			return r.Name
		}
	}
	best := ""
	bestD := 0.0
	for i, r := range m.Rooms {
		dx := r.CenterX() - x
		dy := r.CenterY() - y
		d := dx*dx + dy*dy
		if i == 0 || d < bestD {
			best, bestD = r.Name, d
		}
	}
	return best
}

// Defaults returns a built-in layout so the server can boot without a map
// file: one exterior shell, two interior rooms with open doorways, and a
// plaza label covering the open ground.
func Defaults() Map {
	const t = 10 // wall thickness
	m := Map{
		Bounds:   Rect{X: 0, Y: 0, W: 1200, H: 800},
		CellSize: 20,
		Walls: []Wall{
			{Rect: Rect{X: 0, Y: 0, W: 1200, H: t}, Kind: "exterior"},
			{Rect: Rect{X: 0, Y: 790, W: 1200, H: t}, Kind: "exterior"},
			{Rect: Rect{X: 0, Y: 0, W: t, H: 800}, Kind: "exterior"},
			{Rect: Rect{X: 1190, Y: 0, W: t, H: 800}, Kind: "exterior"},

			{Rect: Rect{X: 10, Y: 300, W: 390, H: t}, Kind: "interior"},
			{Rect: Rect{X: 400, Y: 10, W: t, H: 300}, Kind: "interior"},
			{Rect: Rect{X: 800, Y: 500, W: t, H: 290}, Kind: "interior"},
			{Rect: Rect{X: 800, Y: 500, W: 390, H: t}, Kind: "interior"},
		},
		Doors: []Door{
			{Rect: Rect{X: 180, Y: 300, W: 60, H: t}, Open: true},
			{Rect: Rect{X: 400, Y: 120, W: t, H: 60}, Open: true},
			{Rect: Rect{X: 800, Y: 620, W: t, H: 60}, Open: true},
		},
		Rooms: []Room{
			{Rect: Rect{X: 10, Y: 10, W: 390, H: 290}, Name: "cafe"},
			{Rect: Rect{X: 810, Y: 510, W: 380, H: 280}, Name: "library"},
			{Rect: Rect{X: 10, Y: 310, W: 780, H: 480}, Name: "plaza"},
		},
	}
	m.applyDefaults()
	return m
}
