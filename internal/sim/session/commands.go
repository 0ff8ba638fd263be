package session

import "time"

type CommandKind int

const (
	// CmdMove is a drag/position update from a client.
	CmdMove CommandKind = iota + 1
	// CmdStop is an explicit stop-movement request.
	CmdStop
	// CmdDone is a client-side task-completion report. Advisory only.
	CmdDone
)

// Command is a client action, decoded once at the transport edge.
type Command struct {
	Kind    CommandKind
	AgentID int
	Pos     Vec2
	Final   bool
	TaskID  string
}

func (s *Session) applyCommand(cmd Command, now time.Time) {
	a := s.agents[cmd.AgentID]
	if a == nil {
		return
	}
	switch cmd.Kind {
	case CmdMove:
		s.applyDrag(a, cmd, now)
	case CmdStop:
		if a.Status == StatusWalking {
			s.cancelMove(a, false, now)
		}
	case CmdDone:
		s.applyDoneReport(a, cmd, now)
	}
}

// applyDrag takes over an agent from whatever it was doing. A walk is stopped
// at its interpolated position before the dragged position overwrites it
// (last-write-wins, authoritative side); a conversation is interrupted
// through the same path as a generation failure.
func (s *Session) applyDrag(a *Agent, cmd Command, now time.Time) {
	if a.Status == StatusWalking {
		s.cancelMove(a, false, now)
	}
	if a.Status == StatusTalking || a.Status == StatusSeeking {
		if c := s.activeConversationOf(a.ID); c != nil {
			s.endConversation(c, EndInterrupted, now)
		} else {
			// Seeking with no conversation yet: abandon the pending encounter.
			s.releaseAgent(a)
		}
	}
	a.Pos = s.clamp(cmd.Pos)
	// Intermediate drag updates are already coalesced client-side; only the
	// final one needs the full fan-out and write-back.
	if cmd.Final {
		s.broadcastAgent(a)
		s.saveAgent(a)
	}
}

// applyDoneReport completes a walk early if the client says so and the agent
// really is at its target; the server stays authoritative otherwise.
func (s *Session) applyDoneReport(a *Agent, cmd Command, now time.Time) {
	ms := s.moves[a.ID]
	if ms == nil || a.Status != StatusWalking || ms.TaskID != cmd.TaskID {
		return
	}
	pos, _ := ms.at(now)
	a.Pos = pos
	if a.Target != nil && a.Pos.DistTo(*a.Target) <= float64(s.geo.CellSize) {
		s.finishMove(a, now)
	}
}

// releaseAgent drops a from the active set and clears its encounter claim.
// Used when a seeking agent is dragged before the decision verdict lands; the
// late verdict then finds the claim gone, aborts, and settles the partner.
func (s *Session) releaseAgent(a *Agent) {
	delete(s.active, a.ID)
	delete(s.seeking, a.ID)
	a.Status = StatusIdle
	s.broadcastAgent(a)
}

func (s *Session) activeConversationOf(agentID int) *Conversation {
	for _, c := range s.conversations {
		if c.Status != ConversationActive {
			continue
		}
		if c.Participants[0] == agentID || c.Participants[1] == agentID {
			return c
		}
	}
	return nil
}

func (s *Session) clamp(p Vec2) Vec2 {
	b := s.geo.Bounds
	if p.X < b.X {
		p.X = b.X
	}
	if p.X > b.X+b.W {
		p.X = b.X + b.W
	}
	if p.Y < b.Y {
		p.Y = b.Y
	}
	if p.Y > b.Y+b.H {
		p.Y = b.Y + b.H
	}
	return p
}
