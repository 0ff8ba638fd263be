package session

import (
	"context"
	"time"

	"agentville.ai/internal/mind"
)

// pairKey is the canonical unordered pair of agent ids, smaller id first.
type pairKey struct {
	A int
	B int
}

func makePair(a, b int) pairKey {
	if a > b {
		a, b = b, a
	}
	return pairKey{A: a, B: b}
}

// isEligible reports whether a and b may start a new encounter: neither is
// already engaged, and the pair is outside its cooldown window.
func (s *Session) isEligible(a, b int, now time.Time) bool {
	if _, ok := s.active[a]; ok {
		return false
	}
	if _, ok := s.active[b]; ok {
		return false
	}
	if last, ok := s.cooldowns[makePair(a, b)]; ok {
		if now.Sub(last) < s.cfg.EncounterCooldown {
			return false
		}
	}
	return true
}

// recordEncounter stamps the pair cooldown, marks both agents engaged, and
// claims them for this pair. This happens before the decision call goes out
// so two near-simultaneous proximity hits cannot both see "eligible" and
// double-trigger the pair.
func (s *Session) recordEncounter(a, b int, now time.Time) {
	p := makePair(a, b)
	s.cooldowns[p] = now
	s.active[a] = struct{}{}
	s.active[b] = struct{}{}
	s.seeking[a] = p
	s.seeking[b] = p
}

// release frees both agents for future encounters. The cooldown entry stays
// so the pair cannot immediately re-trigger.
func (s *Session) release(a, b int) {
	delete(s.active, a)
	delete(s.active, b)
	delete(s.seeking, a)
	delete(s.seeking, b)
}

// tryEncounter runs the arbitration pipeline for a proximity hit: eligibility,
// engagement bookkeeping, then the async inner-thought decision for both
// parties. a is the agent whose motion produced the hit.
func (s *Session) tryEncounter(a, b *Agent, now time.Time) {
	if !s.isEligible(a.ID, b.ID, now) {
		return
	}
	pair := makePair(a.ID, b.ID)
	last, hadLast := s.lastEncounter(pair)
	s.recordEncounter(a.ID, b.ID, now)

	a.Status = StatusSeeking
	b.Status = StatusSeeking
	s.broadcastAgent(a)
	s.broadcastAgent(b)

	env := mind.Context{
		Location: s.geo.RoomAt(midpoint(a.Pos, b.Pos)),
		Hour:     now.Hour(),
	}
	env.SecondsSinceLastInteraction = -1
	if hadLast {
		env.SecondsSinceLastInteraction = now.Sub(last).Seconds()
	}
	envA, envB := env, env
	envA.RecentMemories = append([]string(nil), a.Memories...)
	envB.RecentMemories = append([]string(nil), b.Memories...)

	selfProfile, peerProfile := a.Profile, b.Profile
	initiator := a.ID
	s.dispatch(func(ctx context.Context) result {
		da := s.mind.Decide(ctx, selfProfile, peerProfile, envA)
		db := s.mind.Decide(ctx, peerProfile, selfProfile, envB)
		return result{
			kind:      resultDecision,
			pair:      pair,
			initiator: initiator,
			location:  env.Location,
			decisionA: da,
			decisionB: db,
		}
	})
}

// lastEncounter returns the pair's previous encounter time, if any. Read
// before recordEncounter overwrites it.
func (s *Session) lastEncounter(p pairKey) (time.Time, bool) {
	last, ok := s.cooldowns[p]
	return last, ok
}

// applyDecision is called on the actor goroutine when both verdicts are in.
// Agents may have been dragged or re-engaged while the call was in flight;
// the verdict applies only while both agents still hold the claim for this
// exact pair, so a stale result cannot hijack an agent that has since
// committed to a different encounter.
func (s *Session) applyDecision(r result, now time.Time) {
	a := s.agents[r.pair.A]
	b := s.agents[r.pair.B]
	if a == nil || b == nil ||
		a.Status != StatusSeeking || b.Status != StatusSeeking ||
		s.seeking[a.ID] != r.pair || s.seeking[b.ID] != r.pair {
		s.dropVerdict(r.pair.A, r.pair)
		s.dropVerdict(r.pair.B, r.pair)
		return
	}
	delete(s.seeking, a.ID)
	delete(s.seeking, b.ID)
	if !s.mind.Arbitrate(r.decisionA, r.decisionB) {
		s.release(a.ID, b.ID)
		a.Status = StatusIdle
		b.Status = StatusIdle
		s.broadcastAgent(a)
		s.broadcastAgent(b)
		return
	}
	s.startConversation(a, b, r.initiator, r.location, now)
}

// dropVerdict settles one agent's side of an abandoned encounter. Agents
// that already moved on, by drag or by a newer encounter, hold a different
// claim and are left untouched.
func (s *Session) dropVerdict(id int, p pairKey) {
	if got, ok := s.seeking[id]; !ok || got != p {
		return
	}
	delete(s.seeking, id)
	delete(s.active, id)
	s.settleSeeker(s.agents[id])
}

func (s *Session) settleSeeker(a *Agent) {
	if a != nil && a.Status == StatusSeeking {
		a.Status = StatusIdle
		s.broadcastAgent(a)
	}
}

func midpoint(a, b Vec2) (float64, float64) {
	return (a.X + b.X) / 2, (a.Y + b.Y) / 2
}
