package session

import (
	"math"
	"time"

	"agentville.ai/internal/mind"
	"agentville.ai/internal/protocol"
)

type Status string

const (
	StatusIdle    Status = "idle"
	StatusWalking Status = "walking"
	StatusTalking Status = "talking"
	// StatusSeeking covers the window between an encounter being recorded and
	// the decision verdict arriving: the agent is committed (in the active
	// set) but not yet in a conversation.
	StatusSeeking Status = "seeking"
)

type Vec2 struct {
	X float64
	Y float64
}

func (v Vec2) DistTo(o Vec2) float64 {
	dx := v.X - o.X
	dy := v.Y - o.Y
	return math.Sqrt(dx*dx + dy*dy)
}

// Agent is one simulated villager. Created at bootstrap from the roster; the
// mutable fields are rewritten only by the session goroutine.
//
// Invariants: Target/WalkStart/WalkDuration are set and cleared together and
// only while Status == walking; TalkingWith is non-zero only while Status ==
// talking, and then names the single active conversation peer.
type Agent struct {
	ID    int
	Name  string
	Color string

	Pos    Vec2
	Status Status

	Target       *Vec2
	WalkStart    time.Time
	WalkDuration time.Duration

	TalkingWith int

	Profile mind.Profile

	// Memories is the newest-first ring of distilled memory summaries fed
	// into decision prompts. Capped at memoryRing entries.
	Memories []string
}

const memoryRing = 5

func (a *Agent) remember(summary string) {
	a.Memories = append([]string{summary}, a.Memories...)
	if len(a.Memories) > memoryRing {
		a.Memories = a.Memories[:memoryRing]
	}
}

func newAgent(seed AgentSeed) *Agent {
	p := seed.Profile
	p.ID = seed.ID
	if p.Name == "" {
		p.Name = seed.Name
	}
	if p.Mood == "" {
		p.Mood = "neutral"
	}
	a := &Agent{
		ID:      seed.ID,
		Name:    seed.Name,
		Color:   seed.Color,
		Pos:     Vec2{X: seed.X, Y: seed.Y},
		Status:  StatusIdle,
		Profile: p,
	}
	a.Memories = append(a.Memories, seed.Memories...)
	if len(a.Memories) > memoryRing {
		a.Memories = a.Memories[:memoryRing]
	}
	return a
}

// clearWalk drops all walking fields as a unit.
func (a *Agent) clearWalk() {
	a.Target = nil
	a.WalkStart = time.Time{}
	a.WalkDuration = 0
}

func (a *Agent) View() protocol.AgentView {
	v := protocol.AgentView{
		ID:      a.ID,
		Name:    a.Name,
		Pos:     protocol.Point{X: a.Pos.X, Y: a.Pos.Y},
		Color:   a.Color,
		Status:  string(a.Status),
		Talking: a.TalkingWith,
	}
	if a.Target != nil {
		v.Target = &protocol.Point{X: a.Target.X, Y: a.Target.Y}
	}
	return v
}
