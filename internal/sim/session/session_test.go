package session

import (
	"context"
	"testing"
	"time"

	"agentville.ai/internal/mind"
	"agentville.ai/internal/sim/geometry"
	"agentville.ai/internal/sim/grid"
)

// stubMind is a deterministic Decider for tests. Unset hooks fall back to an
// eager default: everyone wants to chat and speaks a full line.
type stubMind struct {
	decideFn   func(self, peer mind.Profile, env mind.Context) mind.Decision
	arbitrate  func(a, b mind.Decision) bool
	converseFn func(speaker, listener mind.Profile, history []mind.Utterance) (mind.Line, error)
	distillFn  func(self mind.Profile) string
}

func (m *stubMind) Decide(_ context.Context, self, peer mind.Profile, env mind.Context) mind.Decision {
	if m.decideFn != nil {
		return m.decideFn(self, peer, env)
	}
	return mind.Decision{WantsToChat: true, Confidence: 0.9}
}

func (m *stubMind) Arbitrate(a, b mind.Decision) bool {
	if m.arbitrate != nil {
		return m.arbitrate(a, b)
	}
	return a.WantsToChat && b.WantsToChat
}

func (m *stubMind) Converse(_ context.Context, speaker, listener mind.Profile, _ string, history []mind.Utterance) (mind.Line, error) {
	if m.converseFn != nil {
		return m.converseFn(speaker, listener, history)
	}
	return mind.Line{Text: "It is a fine day here in the village.", Emotion: "happy"}, nil
}

func (m *stubMind) Distill(_ context.Context, self, _ mind.Profile, _ string, _ time.Duration, _ []mind.Utterance) string {
	if m.distillFn != nil {
		return m.distillFn(self)
	}
	return "had a pleasant chat in the plaza"
}

// memStore records persistence calls. Only touched from the goroutine driving
// StepOnce, so no locking.
type memStore struct {
	agents        map[int]AgentRecord
	conversations map[string]ConversationRecord
	memories      []MemoryRecord
}

func newMemStore() *memStore {
	return &memStore{
		agents:        map[int]AgentRecord{},
		conversations: map[string]ConversationRecord{},
	}
}

func (s *memStore) SaveAgent(r AgentRecord) { s.agents[r.ID] = r }

func (s *memStore) SaveConversation(r ConversationRecord) { s.conversations[r.ID] = r }

func (s *memStore) SaveMemory(r MemoryRecord) { s.memories = append(s.memories, r) }

func (s *memStore) memoriesFor(agentID int) []MemoryRecord {
	var out []MemoryRecord
	for _, m := range s.memories {
		if m.AgentID == agentID {
			out = append(out, m)
		}
	}
	return out
}

func openTestMap() geometry.Map {
	return geometry.Map{
		Bounds:   geometry.Rect{W: 400, H: 400},
		CellSize: 20,
		Rooms:    []geometry.Room{{Rect: geometry.Rect{W: 400, H: 400}, Name: "plaza"}},
	}
}

func newTestSession(t *testing.T, m Decider, mutate func(*Config)) (*Session, *memStore) {
	t.Helper()
	geo := openTestMap()
	cfg := Config{}
	if mutate != nil {
		mutate(&cfg)
	}
	store := newMemStore()
	seeds := []AgentSeed{
		{
			ID: 1, Name: "Maya", X: 50, Y: 50, Color: "#e06666",
			Profile: mind.Profile{Name: "Maya", Traits: mind.Traits{Extraversion: 0.9, Agreeableness: 0.7}, Mood: "happy"},
		},
		{
			ID: 2, Name: "Theo", X: 350, Y: 350, Color: "#6fa8dc",
			Profile: mind.Profile{Name: "Theo", Traits: mind.Traits{Extraversion: 0.3, Agreeableness: 0.8}, Mood: "neutral"},
		},
	}
	s, err := New(cfg, geo, grid.Build(geo), seeds, Deps{Mind: m, Store: store})
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	return s, store
}

// meet places the two agents inside meeting range and walks agent 1, which
// triggers the proximity scan on the next frame.
func meet(t *testing.T, s *Session, now time.Time) {
	t.Helper()
	s.DebugSetAgentPos(1, Vec2{X: 110, Y: 110})
	s.DebugSetAgentPos(2, Vec2{X: 130, Y: 110})
	if !s.DebugBeginMove(1, Vec2{X: 170, Y: 110}, now) {
		t.Fatal("begin move failed")
	}
	s.StepOnce(now, nil)
}

func activeConversation(s *Session) *ConversationRecord {
	for _, c := range s.DebugConversations() {
		if c.Status == string(ConversationActive) {
			rec := c
			return &rec
		}
	}
	return nil
}

func firstConversation(s *Session) *ConversationRecord {
	recs := s.DebugConversations()
	if len(recs) == 0 {
		return nil
	}
	return &recs[0]
}

func mustStatus(t *testing.T, s *Session, id int, want Status) {
	t.Helper()
	got, ok := s.DebugAgentStatus(id)
	if !ok {
		t.Fatalf("agent %d missing", id)
	}
	if got != want {
		t.Fatalf("agent %d status = %s, want %s", id, got, want)
	}
}
