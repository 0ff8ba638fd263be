// Package sessiontest drives the session actor through its exported API only:
// scenario tests here exercise the same surface the server wires together,
// with a deterministic stand-in for the generative backend.
package sessiontest

import (
	"context"
	"testing"
	"time"

	"agentville.ai/internal/mind"
	"agentville.ai/internal/sim/geometry"
	"agentville.ai/internal/sim/grid"
	"agentville.ai/internal/sim/session"
)

// EagerMind is a deterministic Decider: everyone wants to chat, speaks the
// scripted lines in order, and remembers a fixed summary. An exhausted script
// declines, which ends the conversation naturally.
type EagerMind struct {
	Script []string
	next   int
}

func (m *EagerMind) Decide(_ context.Context, self, peer mind.Profile, _ mind.Context) mind.Decision {
	return mind.Decision{WantsToChat: true, Confidence: 0.9}
}

func (m *EagerMind) Arbitrate(a, b mind.Decision) bool {
	return a.WantsToChat && b.WantsToChat
}

func (m *EagerMind) Converse(_ context.Context, _, _ mind.Profile, _ string, _ []mind.Utterance) (mind.Line, error) {
	if m.next >= len(m.Script) {
		return mind.Line{}, nil
	}
	line := m.Script[m.next]
	m.next++
	return mind.Line{Text: line, Emotion: "neutral"}, nil
}

func (m *EagerMind) Distill(_ context.Context, self, peer mind.Profile, location string, _ time.Duration, _ []mind.Utterance) string {
	return self.Name + " chatted with " + peer.Name + " at the " + location
}

// Harness owns a session stepped manually at an explicit clock.
type Harness struct {
	T       *testing.T
	Session *session.Session
	Now     time.Time
}

// NewHarness boots a two-agent session on an open square map. The agents
// start inside meeting range so the first walk triggers the proximity scan.
func NewHarness(t *testing.T, m session.Decider, mutate func(*session.Config)) *Harness {
	t.Helper()
	geo := geometry.Map{
		Bounds:   geometry.Rect{W: 400, H: 400},
		CellSize: 20,
		Rooms:    []geometry.Room{{Rect: geometry.Rect{W: 400, H: 400}, Name: "plaza"}},
	}
	cfg := session.Config{}
	if mutate != nil {
		mutate(&cfg)
	}
	seeds := []session.AgentSeed{
		{ID: 1, Name: "Maya", X: 110, Y: 110, Profile: mind.Profile{Name: "Maya", Traits: mind.Traits{Extraversion: 0.9}}},
		{ID: 2, Name: "Theo", X: 130, Y: 110, Profile: mind.Profile{Name: "Theo", Traits: mind.Traits{Extraversion: 0.3}}},
	}
	s, err := session.New(cfg, geo, grid.Build(geo), seeds, session.Deps{Mind: m})
	if err != nil {
		t.Fatalf("new session: %v", err)
	}
	return &Harness{
		T:       t,
		Session: s,
		Now:     time.Date(2025, 6, 1, 12, 0, 0, 0, time.UTC),
	}
}

// Step advances the clock by d and runs one frame.
func (h *Harness) Step(d time.Duration, cmds ...session.Command) {
	h.Now = h.Now.Add(d)
	h.Session.StepOnce(h.Now, cmds)
}

// Meet walks agent 1 toward agent 2, which fires the proximity scan on the
// same frame.
func (h *Harness) Meet() {
	h.T.Helper()
	if !h.Session.DebugBeginMove(1, session.Vec2{X: 170, Y: 110}, h.Now) {
		h.T.Fatal("begin move failed")
	}
	h.Session.StepOnce(h.Now, nil)
}

func (h *Harness) MustStatus(id int, want session.Status) {
	h.T.Helper()
	got, ok := h.Session.DebugAgentStatus(id)
	if !ok {
		h.T.Fatalf("agent %d missing", id)
	}
	if got != want {
		h.T.Fatalf("agent %d status = %s, want %s", id, got, want)
	}
}

// Conversations returns every conversation record, ended ones included.
func (h *Harness) Conversations() []session.ConversationRecord {
	return h.Session.DebugConversations()
}
