package session

import "time"

// Debug accessors used by tests and replay tooling. They must only be called
// from the goroutine driving the session (tests use StepOnce, never Run).

func (s *Session) DebugSetAgentPos(id int, pos Vec2) bool {
	a := s.agents[id]
	if a == nil {
		return false
	}
	a.Pos = pos
	return true
}

func (s *Session) DebugAgentStatus(id int) (Status, bool) {
	a := s.agents[id]
	if a == nil {
		return "", false
	}
	return a.Status, true
}

func (s *Session) DebugAgentPos(id int) (Vec2, bool) {
	a := s.agents[id]
	if a == nil {
		return Vec2{}, false
	}
	return a.Pos, true
}

func (s *Session) DebugBeginMove(id int, target Vec2, now time.Time) bool {
	a := s.agents[id]
	if a == nil {
		return false
	}
	return s.beginMove(a, target, now)
}

// DebugConversations returns records for every conversation, ended ones
// included.
func (s *Session) DebugConversations() []ConversationRecord {
	out := make([]ConversationRecord, 0, len(s.conversations))
	for _, c := range s.conversations {
		out = append(out, ConversationRecord{
			ID:           c.ID,
			Participants: []int{c.Participants[0], c.Participants[1]},
			Location:     c.Location,
			StartTime:    c.StartTime,
			Status:       string(c.Status),
			EndReason:    c.EndReason,
			Messages:     append([]Message(nil), c.Messages...),
		})
	}
	return out
}
