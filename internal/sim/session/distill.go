package session

import (
	"context"
	"time"

	"github.com/google/uuid"
)

// distill converts the finished conversation into one durable memory per
// participant. Summaries are generated off-thread (the generative path can be
// slow); importance is scored here, deterministically. Failures are logged
// and swallowed: distillation never re-opens or retries a conversation.
func (s *Session) distill(c *Conversation, now time.Time) {
	importance := s.importanceOf(c, now)
	duration := now.Sub(c.StartTime)
	history := s.transcriptFor(c)

	for _, id := range c.Participants {
		self := s.agents[id]
		peer := s.agents[c.peerOf(id)]
		if self == nil || peer == nil {
			continue
		}
		selfProfile, peerProfile := self.Profile, peer.Profile
		agentID := id
		location := c.Location
		s.dispatch(func(ctx context.Context) result {
			summary := s.mind.Distill(ctx, selfProfile, peerProfile, location, duration, history)
			return result{
				kind: resultMemory,
				memory: MemoryRecord{
					ID:         uuid.NewString(),
					AgentID:    agentID,
					Content:    summary,
					Kind:       "conversation",
					Importance: importance,
					CreatedAt:  now,
				},
			}
		})
	}
}

func (s *Session) applyMemory(r result) {
	if a := s.agents[r.memory.AgentID]; a != nil {
		a.remember(r.memory.Content)
	}
	if s.deps.Store != nil {
		s.deps.Store.SaveMemory(r.memory)
	}
}

// importanceOf scores a conversation memory: a base score raised for longer,
// more emotional, and longer-running conversations, capped.
func (s *Session) importanceOf(c *Conversation, now time.Time) int {
	score := 3
	if len(c.Messages) >= 8 {
		score++
	}
	if len(c.Messages) >= 16 {
		score++
	}
	if now.Sub(c.StartTime) >= 2*time.Minute {
		score++
	}
	for _, m := range c.Messages {
		if m.Emotion != "" && m.Emotion != "neutral" {
			score++
			break
		}
	}
	if score > s.cfg.ImportanceCap {
		score = s.cfg.ImportanceCap
	}
	return score
}
