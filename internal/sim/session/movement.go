package session

import (
	"fmt"
	"time"

	"agentville.ai/internal/protocol"
)

// moveState is one agent's animation handle. At most one exists per agent;
// it is dropped (never reused) on cancel or completion, which also suppresses
// any in-flight arrival for the cancelled move.
type moveState struct {
	TaskID    string
	Waypoints []Vec2
	SegLen    []float64
	Total     float64
	Start     time.Time
	Duration  time.Duration
}

// at returns the interpolated position along the path at the given time.
// Progress is distributed over segments proportional to each segment's share
// of the total distance.
func (m *moveState) at(now time.Time) (Vec2, bool) {
	if m.Duration <= 0 || m.Total <= 0 {
		return m.Waypoints[len(m.Waypoints)-1], true
	}
	elapsed := now.Sub(m.Start)
	if elapsed >= m.Duration {
		return m.Waypoints[len(m.Waypoints)-1], true
	}
	if elapsed < 0 {
		elapsed = 0
	}
	travelled := m.Total * (float64(elapsed) / float64(m.Duration))
	for i, l := range m.SegLen {
		if travelled > l {
			travelled -= l
			continue
		}
		a, b := m.Waypoints[i], m.Waypoints[i+1]
		if l <= 0 {
			return b, false
		}
		f := travelled / l
		return Vec2{X: a.X + (b.X-a.X)*f, Y: a.Y + (b.Y-a.Y)*f}, false
	}
	return m.Waypoints[len(m.Waypoints)-1], true
}

// beginMove routes the agent to target. A missing route is a denied request,
// not an error: no state changes and the caller gets false.
func (s *Session) beginMove(a *Agent, target Vec2, now time.Time) bool {
	if a.Status == StatusTalking || a.Status == StatusSeeking {
		return false
	}
	// Route from where the agent actually stands right now. Any prior loop is
	// cancelled only once the new route is known to exist, so a denied request
	// leaves an in-progress walk untouched.
	pos := a.Pos
	if ms := s.moves[a.ID]; ms != nil {
		pos, _ = ms.at(now)
	}
	start := s.grid.CellAt(pos.X, pos.Y)
	goal := s.grid.CellAt(target.X, target.Y)
	cells := s.grid.FindPath(start, goal)
	if len(cells) == 0 {
		return false
	}
	if s.moves[a.ID] != nil {
		// Cancelling synchronizes the agent's position so there is no
		// discontinuity.
		s.cancelMove(a, true, now)
	}

	waypoints := make([]Vec2, 0, len(cells)+1)
	waypoints = append(waypoints, a.Pos)
	for _, c := range cells[1:] {
		x, y := s.grid.Center(c)
		waypoints = append(waypoints, Vec2{X: x, Y: y})
	}
	// Land on the exact requested point; it lies within the goal cell.
	waypoints = append(waypoints, target)

	segLen := make([]float64, len(waypoints)-1)
	total := 0.0
	for i := range segLen {
		segLen[i] = waypoints[i].DistTo(waypoints[i+1])
		total += segLen[i]
	}
	duration := time.Duration(float64(time.Second) * total / s.cfg.MoveSpeed)

	ms := &moveState{
		TaskID:    fmt.Sprintf("T%06d", s.nextTaskNum.Add(1)),
		Waypoints: waypoints,
		SegLen:    segLen,
		Total:     total,
		Start:     now,
		Duration:  duration,
	}
	s.moves[a.ID] = ms

	t := target
	a.Status = StatusWalking
	a.Target = &t
	a.WalkStart = now
	a.WalkDuration = duration

	path := make([]protocol.Point, len(waypoints))
	for i, w := range waypoints {
		path[i] = protocol.Point{X: w.X, Y: w.Y}
	}
	s.broadcast(protocol.TaskMsg{
		Type:            protocol.TypeTask,
		ProtocolVersion: protocol.Version,
		TaskID:          ms.TaskID,
		AgentID:         a.ID,
		Target:          protocol.Point{X: target.X, Y: target.Y},
		DurationMs:      duration.Milliseconds(),
		Path:            path,
	})
	s.broadcastAgent(a)
	s.saveAgent(a)
	return true
}

// tickMovement advances every walking agent one frame, checking mid-flight
// for meeting-radius encounters and, on arrival, scanning once more in case
// the agent walked into range without ever crossing it mid-flight.
func (s *Session) tickMovement(now time.Time) {
	for _, a := range s.sortedAgents() {
		ms := s.moves[a.ID]
		if ms == nil {
			continue
		}
		pos, done := ms.at(now)
		a.Pos = pos
		if done {
			s.finishMove(a, now)
			continue
		}
		if peer := s.nearbyIdle(a); peer != nil {
			// Halt at the interpolated position, not the destination.
			delete(s.moves, a.ID)
			a.clearWalk()
			a.Status = StatusIdle
			s.broadcastAgent(a)
			s.saveAgent(a)
			s.tryEncounter(a, peer, now)
		}
	}
}

func (s *Session) finishMove(a *Agent, now time.Time) {
	delete(s.moves, a.ID)
	a.clearWalk()
	a.Status = StatusIdle
	s.broadcastAgent(a)
	s.saveAgent(a)
	if peer := s.nearbyIdle(a); peer != nil {
		s.tryEncounter(a, peer, now)
	}
}

// cancelMove interrupts an in-progress walk, pinning the agent at its true
// interpolated position. Losing the interpolated position here is the classic
// client/server desync bug, so the position write happens before anything
// else. preserveStatus leaves the status for the caller to set.
func (s *Session) cancelMove(a *Agent, preserveStatus bool, now time.Time) {
	ms := s.moves[a.ID]
	if ms == nil {
		return
	}
	pos, _ := ms.at(now)
	a.Pos = pos
	delete(s.moves, a.ID)
	a.clearWalk()
	if !preserveStatus {
		a.Status = StatusIdle
	}
	s.broadcastAgent(a)
	s.saveAgent(a)
}

// nearbyIdle returns the closest idle, unengaged agent within the meeting
// radius of a, or nil. The moving agent itself must also be unengaged.
func (s *Session) nearbyIdle(a *Agent) *Agent {
	if _, engaged := s.active[a.ID]; engaged {
		return nil
	}
	var best *Agent
	bestD := s.cfg.MeetingRadius
	for _, other := range s.sortedAgents() {
		if other.ID == a.ID || other.Status != StatusIdle {
			continue
		}
		if _, engaged := s.active[other.ID]; engaged {
			continue
		}
		if d := a.Pos.DistTo(other.Pos); d < bestD {
			best, bestD = other, d
		}
	}
	return best
}

// assignTasks gives every unengaged idle agent a wander destination, feeding
// them back into the movement loop.
func (s *Session) assignTasks(now time.Time) {
	for _, a := range s.sortedAgents() {
		if a.Status != StatusIdle {
			continue
		}
		if _, engaged := s.active[a.ID]; engaged {
			continue
		}
		if target, ok := s.randomWalkable(); ok {
			s.beginMove(a, target, now)
		}
	}
}

func (s *Session) randomWalkable() (Vec2, bool) {
	for i := 0; i < 32; i++ {
		c := s.grid.CellAt(
			s.geo.Bounds.X+s.rng.Float64()*s.geo.Bounds.W,
			s.geo.Bounds.Y+s.rng.Float64()*s.geo.Bounds.H,
		)
		if s.grid.Walkable(c) {
			x, y := s.grid.Center(c)
			return Vec2{X: x, Y: y}, true
		}
	}
	return Vec2{}, false
}
