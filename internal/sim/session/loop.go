package session

import (
	"context"
	"time"

	"agentville.ai/internal/mind"
	"agentville.ai/internal/protocol"
)

type resultKind int

const (
	resultDecision resultKind = iota + 1
	resultLine
	resultMemory
)

// result is the typed payload an async generation call delivers back into
// the actor.
type result struct {
	kind resultKind

	// decision
	pair      pairKey
	initiator int
	location  string
	decisionA mind.Decision
	decisionB mind.Decision

	// line
	convID  string
	speaker int
	line    mind.Line
	err     error

	// memory
	memory MemoryRecord
}

// dispatch issues one async generation call. The closure runs off-thread and
// must not touch session state; its result re-enters through the results
// channel and is applied on the actor goroutine.
func (s *Session) dispatch(fn func(ctx context.Context) result) {
	s.pending++
	go func() {
		ctx, cancel := context.WithTimeout(context.Background(), s.cfg.DecisionTimeout+5*time.Second)
		defer cancel()
		s.results <- fn(ctx)
	}()
}

func (s *Session) applyResult(r result, now time.Time) {
	s.pending--
	switch r.kind {
	case resultDecision:
		s.applyDecision(r, now)
	case resultLine:
		s.applyLine(r, now)
	case resultMemory:
		s.applyMemory(r)
	}
}

// Run drives the actor until the context is cancelled or Stop is called.
// Everything that mutates session state happens on this goroutine.
func (s *Session) Run(ctx context.Context) error {
	frame := time.NewTicker(time.Second / time.Duration(s.cfg.FrameRateHz))
	defer frame.Stop()
	clock := time.NewTicker(time.Duration(s.cfg.ClockTickMs) * time.Millisecond)
	defer clock.Stop()
	assign := time.NewTicker(time.Duration(s.cfg.TaskAssignEveryMs) * time.Millisecond)
	defer assign.Stop()

	// Give everyone something to do before the first assign tick.
	s.assignTasks(time.Now())

	for {
		select {
		case <-ctx.Done():
			s.flushRoster()
			return ctx.Err()
		case <-s.stop:
			s.flushRoster()
			return nil
		case req := <-s.join:
			s.handleJoin(req)
		case id := <-s.leave:
			delete(s.clients, id)
			s.clientsGauge.Store(int64(len(s.clients)))
		case cmd := <-s.inbox:
			s.applyCommand(cmd, time.Now())
		case r := <-s.results:
			s.applyResult(r, time.Now())
		case <-clock.C:
			s.broadcastClock(time.Now())
		case <-assign.C:
			s.assignTasks(time.Now())
		case <-frame.C:
			s.stepFrame(time.Now())
		}
	}
}

func (s *Session) stepFrame(now time.Time) {
	start := time.Now()
	s.tick.Add(1)
	s.tickMovement(now)
	s.tickConversations(now)
	s.stepMicros.Store(time.Since(start).Microseconds())
}

func (s *Session) broadcastClock(now time.Time) {
	tick := s.tick.Load()
	s.broadcast(protocol.TickMsg{
		Type:            protocol.TypeTick,
		ProtocolVersion: protocol.Version,
		Tick:            tick,
		UnixMs:          now.UnixMilli(),
	})
	if s.deps.TickLog != nil {
		statuses := map[string]int{}
		for _, a := range s.agents {
			statuses[string(a.Status)]++
		}
		activeConvs := 0
		for _, c := range s.conversations {
			if c.Status == ConversationActive {
				activeConvs++
			}
		}
		_ = s.deps.TickLog.WriteTick(TickLogEntry{
			Tick:          tick,
			UnixMs:        now.UnixMilli(),
			Statuses:      statuses,
			Conversations: activeConvs,
			Clients:       len(s.clients),
		})
	}
}

// StepOnce advances the session by one frame at an explicit time, applying
// the given commands first and draining every in-flight generation result
// before and after the frame. It exists for deterministic tests and replays;
// the live server uses Run.
func (s *Session) StepOnce(now time.Time, cmds []Command) {
	for _, cmd := range cmds {
		s.applyCommand(cmd, now)
	}
	s.drainResults(now)
	s.stepFrame(now)
	s.drainResults(now)
}

// AssignTasks exposes the wander-target pass for tests and replays.
func (s *Session) AssignTasks(now time.Time) {
	s.assignTasks(now)
	s.drainResults(now)
}

// flushRoster writes every agent's final position on shutdown, so a restart
// resumes the village where it stood.
func (s *Session) flushRoster() {
	now := time.Now()
	for _, a := range s.sortedAgents() {
		if ms := s.moves[a.ID]; ms != nil {
			pos, _ := ms.at(now)
			a.Pos = pos
		}
		s.saveAgent(a)
	}
}

func (s *Session) drainResults(now time.Time) {
	for s.pending > 0 {
		s.applyResult(<-s.results, now)
	}
}
