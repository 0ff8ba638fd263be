package session

import (
	"testing"
	"time"

	"agentville.ai/internal/mind"
	"agentville.ai/internal/sim/geometry"
	"agentville.ai/internal/sim/grid"
)

var t0 = time.Date(2025, 6, 1, 12, 0, 0, 0, time.UTC)

func TestMoveStateInterpolation(t *testing.T) {
	ms := &moveState{
		Waypoints: []Vec2{{X: 0, Y: 0}, {X: 100, Y: 0}, {X: 100, Y: 100}},
		SegLen:    []float64{100, 100},
		Total:     200,
		Start:     t0,
		Duration:  10 * time.Second,
	}

	pos, done := ms.at(t0)
	if done || pos != (Vec2{X: 0, Y: 0}) {
		t.Fatalf("at start: pos=%v done=%v", pos, done)
	}

	// Quarter of the way: half through the first segment.
	pos, done = ms.at(t0.Add(2500 * time.Millisecond))
	if done || pos != (Vec2{X: 50, Y: 0}) {
		t.Fatalf("at 25%%: pos=%v done=%v", pos, done)
	}

	// Three quarters: half through the second segment.
	pos, done = ms.at(t0.Add(7500 * time.Millisecond))
	if done || pos != (Vec2{X: 100, Y: 50}) {
		t.Fatalf("at 75%%: pos=%v done=%v", pos, done)
	}

	pos, done = ms.at(t0.Add(11 * time.Second))
	if !done || pos != (Vec2{X: 100, Y: 100}) {
		t.Fatalf("past end: pos=%v done=%v", pos, done)
	}
}

func TestBeginMove_WalkingState(t *testing.T) {
	s, _ := newTestSession(t, &stubMind{}, nil)

	if !s.DebugBeginMove(1, Vec2{X: 350, Y: 50}, t0) {
		t.Fatal("move denied on an open map")
	}
	mustStatus(t, s, 1, StatusWalking)

	// Speed 80/s over 300 units: still en route after a second.
	s.StepOnce(t0.Add(time.Second), nil)
	pos, _ := s.DebugAgentPos(1)
	if pos.X <= 50 || pos.X >= 350 {
		t.Fatalf("mid-flight position %v outside the route", pos)
	}

	// Long past the ~3.75s arrival time.
	s.StepOnce(t0.Add(10*time.Second), nil)
	mustStatus(t, s, 1, StatusIdle)
	pos, _ = s.DebugAgentPos(1)
	if pos != (Vec2{X: 350, Y: 50}) {
		t.Fatalf("arrival position %v, want exact target", pos)
	}
}

func TestBeginMove_DeniedIntoObstacle(t *testing.T) {
	geo := openTestMap()
	// Block the target cell's center; the request must be denied with no
	// state change.
	geo.Obstacles = []geometry.Rect{{X: 200, Y: 200, W: 20, H: 20}}
	seeds := []AgentSeed{
		{ID: 1, Name: "Maya", X: 50, Y: 50, Profile: mind.Profile{Name: "Maya"}},
		{ID: 2, Name: "Theo", X: 350, Y: 350, Profile: mind.Profile{Name: "Theo"}},
	}
	s, err := New(Config{}, geo, grid.Build(geo), seeds, Deps{Mind: &stubMind{}})
	if err != nil {
		t.Fatalf("New: %v", err)
	}

	if s.DebugBeginMove(1, Vec2{X: 210, Y: 210}, t0) {
		t.Fatal("move into an obstacle should be denied")
	}
	mustStatus(t, s, 1, StatusIdle)
	pos, _ := s.DebugAgentPos(1)
	if pos != (Vec2{X: 50, Y: 50}) {
		t.Fatalf("denied move must not change position: %v", pos)
	}
}

// A denied re-route must not clobber the walk already in progress: the prior
// handle, target, and timing all survive and the walk finishes normally.
func TestBeginMove_DeniedRerouteKeepsWalk(t *testing.T) {
	geo := openTestMap()
	geo.Obstacles = []geometry.Rect{{X: 200, Y: 200, W: 20, H: 20}}
	seeds := []AgentSeed{
		{ID: 1, Name: "Maya", X: 50, Y: 50, Profile: mind.Profile{Name: "Maya"}},
		{ID: 2, Name: "Theo", X: 350, Y: 350, Profile: mind.Profile{Name: "Theo"}},
	}
	s, err := New(Config{}, geo, grid.Build(geo), seeds, Deps{Mind: &stubMind{}})
	if err != nil {
		t.Fatalf("New: %v", err)
	}

	if !s.DebugBeginMove(1, Vec2{X: 350, Y: 50}, t0) {
		t.Fatal("move denied on an open route")
	}
	s.StepOnce(t0.Add(time.Second), nil)

	if s.DebugBeginMove(1, Vec2{X: 210, Y: 210}, t0.Add(time.Second)) {
		t.Fatal("re-route into an obstacle should be denied")
	}
	mustStatus(t, s, 1, StatusWalking)
	if s.moves[1] == nil {
		t.Fatal("denied re-route dropped the move handle")
	}
	if s.agents[1].Target == nil {
		t.Fatal("denied re-route cleared the walk target")
	}

	// Left alone, the original walk still arrives.
	s.StepOnce(t0.Add(10*time.Second), nil)
	mustStatus(t, s, 1, StatusIdle)
	pos, _ := s.DebugAgentPos(1)
	if pos != (Vec2{X: 350, Y: 50}) {
		t.Fatalf("arrival position %v, want the original target", pos)
	}
}

func TestStop_PinsInterpolatedPosition(t *testing.T) {
	s, _ := newTestSession(t, &stubMind{}, nil)

	if !s.DebugBeginMove(1, Vec2{X: 350, Y: 50}, t0) {
		t.Fatal("move denied")
	}
	s.StepOnce(t0.Add(time.Second), nil)

	stopAt := t0.Add(1500 * time.Millisecond)
	s.StepOnce(stopAt, []Command{{Kind: CmdStop, AgentID: 1}})

	mustStatus(t, s, 1, StatusIdle)
	pos, _ := s.DebugAgentPos(1)
	if pos.X <= 50 || pos.X >= 350 {
		t.Fatalf("stopped position %v should sit between start and target", pos)
	}
	if s.moves[1] != nil {
		t.Fatal("move handle should be dropped on stop")
	}
}

func TestDrag_CancelsWalkAtInterpolatedPosition(t *testing.T) {
	s, _ := newTestSession(t, &stubMind{}, nil)

	if !s.DebugBeginMove(1, Vec2{X: 350, Y: 50}, t0) {
		t.Fatal("move denied")
	}
	dragTo := Vec2{X: 30, Y: 390}
	s.StepOnce(t0.Add(time.Second), []Command{{Kind: CmdMove, AgentID: 1, Pos: dragTo, Final: true}})

	pos, _ := s.DebugAgentPos(1)
	if pos != dragTo {
		t.Fatalf("dragged position = %v, want %v", pos, dragTo)
	}
	mustStatus(t, s, 1, StatusIdle)
}

func TestDrag_ClampsToBounds(t *testing.T) {
	s, _ := newTestSession(t, &stubMind{}, nil)

	s.StepOnce(t0, []Command{{Kind: CmdMove, AgentID: 1, Pos: Vec2{X: -50, Y: 9999}, Final: true}})
	pos, _ := s.DebugAgentPos(1)
	if pos != (Vec2{X: 0, Y: 400}) {
		t.Fatalf("clamped position = %v, want (0,400)", pos)
	}
}

func TestDoneReport(t *testing.T) {
	s, _ := newTestSession(t, &stubMind{}, nil)

	if !s.DebugBeginMove(1, Vec2{X: 350, Y: 50}, t0) {
		t.Fatal("move denied")
	}
	taskID := s.moves[1].TaskID

	// Wrong task id: ignored.
	s.StepOnce(t0.Add(500*time.Millisecond), []Command{{Kind: CmdDone, AgentID: 1, TaskID: "T999999"}})
	mustStatus(t, s, 1, StatusWalking)

	// Right task id but nowhere near the target: ignored.
	s.StepOnce(t0.Add(time.Second), []Command{{Kind: CmdDone, AgentID: 1, TaskID: taskID}})
	mustStatus(t, s, 1, StatusWalking)

	// Right task id within tolerance of the target: completes the walk.
	arrival := t0.Add(3700 * time.Millisecond)
	s.StepOnce(arrival, []Command{{Kind: CmdDone, AgentID: 1, TaskID: taskID}})
	mustStatus(t, s, 1, StatusIdle)
}

func TestUnknownAgentCommandIgnored(t *testing.T) {
	s, _ := newTestSession(t, &stubMind{}, nil)
	s.StepOnce(t0, []Command{{Kind: CmdMove, AgentID: 99, Pos: Vec2{X: 10, Y: 10}, Final: true}})
	mustStatus(t, s, 1, StatusIdle)
	mustStatus(t, s, 2, StatusIdle)
}
