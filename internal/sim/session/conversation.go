package session

import (
	"context"
	"time"

	"github.com/google/uuid"

	"agentville.ai/internal/mind"
	"agentville.ai/internal/protocol"
)

type ConversationStatus string

const (
	ConversationActive ConversationStatus = "active"
	ConversationEnded  ConversationStatus = "ended"
)

// End reasons.
const (
	EndNatural     = "natural"
	EndInterrupted = "interrupted"
	EndTimeout     = "timeout"
)

type Message struct {
	Speaker   int       `json:"speaker"`
	Content   string    `json:"content"`
	Timestamp time.Time `json:"timestamp"`
	Emotion   string    `json:"emotion"`
}

// Conversation is the turn-taking record between exactly two agents.
// Participants never change after creation; Messages is append-only;
// CurrentTurn always equals len(Messages).
type Conversation struct {
	ID           string
	Participants [2]int
	Location     string
	StartTime    time.Time
	LastActivity time.Time
	CurrentTurn  int
	Messages     []Message
	Status       ConversationStatus
	EndReason    string

	// deadline is the inactivity timeout; nextDue paces the turn loop;
	// awaiting marks a generation request in flight.
	deadline time.Time
	nextDue  time.Time
	awaiting bool
}

// nextSpeaker is strict round-robin: the participant after the author of the
// last message, or the first participant before any message exists.
func (c *Conversation) nextSpeaker() int {
	if len(c.Messages) == 0 {
		return c.Participants[0]
	}
	if c.Messages[len(c.Messages)-1].Speaker == c.Participants[0] {
		return c.Participants[1]
	}
	return c.Participants[0]
}

func (c *Conversation) peerOf(id int) int {
	if c.Participants[0] == id {
		return c.Participants[1]
	}
	return c.Participants[0]
}

func (s *Session) startConversation(a, b *Agent, initiator int, location string, now time.Time) {
	c := &Conversation{
		ID:           uuid.NewString(),
		Participants: [2]int{a.ID, b.ID},
		Location:     location,
		StartTime:    now,
		LastActivity: now,
		Status:       ConversationActive,
		deadline:     now.Add(s.cfg.InactivityTimeout),
		nextDue:      now,
	}
	// The initiator opens, so order participants accordingly.
	if initiator == b.ID {
		c.Participants = [2]int{b.ID, a.ID}
	}
	s.conversations[c.ID] = c
	s.convsGauge.Add(1)

	a.Status = StatusTalking
	a.TalkingWith = b.ID
	b.Status = StatusTalking
	b.TalkingWith = a.ID
	s.broadcastAgent(a)
	s.broadcastAgent(b)
	s.saveAgent(a)
	s.saveAgent(b)

	s.broadcast(protocol.ConversationMsg{
		Type:            protocol.TypeConversation,
		ProtocolVersion: protocol.Version,
		Kind:            "START",
		ConversationID:  c.ID,
		Participants:    []int{c.Participants[0], c.Participants[1]},
		Location:        c.Location,
	})
	s.writeTranscript(TranscriptEntry{ConversationID: c.ID, Event: "START", UnixMs: now.UnixMilli()})
	s.saveConversation(c, time.Time{})
}

// tickConversations fires inactivity timeouts and paces the turn loop.
func (s *Session) tickConversations(now time.Time) {
	for _, c := range s.conversations {
		if c.Status != ConversationActive {
			continue
		}
		if now.After(c.deadline) {
			s.endConversation(c, EndTimeout, now)
			continue
		}
		if !c.awaiting && !now.Before(c.nextDue) {
			s.continueTurn(c, now)
		}
	}
}

// continueTurn requests the next line from the round-robin speaker. The
// result re-enters the actor through the results channel.
func (s *Session) continueTurn(c *Conversation, now time.Time) {
	speakerID := c.nextSpeaker()
	speaker := s.agents[speakerID]
	listener := s.agents[c.peerOf(speakerID)]
	if speaker == nil || listener == nil {
		s.endConversation(c, EndInterrupted, now)
		return
	}
	c.awaiting = true

	history := s.transcriptFor(c)
	convID := c.ID
	location := c.Location
	speakerProfile, listenerProfile := speaker.Profile, listener.Profile
	s.dispatch(func(ctx context.Context) result {
		line, err := s.mind.Converse(ctx, speakerProfile, listenerProfile, location, history)
		return result{kind: resultLine, convID: convID, speaker: speakerID, line: line, err: err}
	})
}

// applyLine appends a generated line, or ends the conversation when the
// generator declined or failed. Late arrivals for conversations that ended
// while the call was in flight are dropped.
func (s *Session) applyLine(r result, now time.Time) {
	c := s.conversations[r.convID]
	if c == nil || c.Status != ConversationActive {
		return
	}
	c.awaiting = false

	if r.err != nil {
		if s.log != nil {
			s.log.Printf("conversation %s: generation failed: %v", c.ID, r.err)
		}
		s.endConversation(c, EndInterrupted, now)
		return
	}
	if r.line.Text == "" {
		// The agent chose not to speak.
		s.endConversation(c, EndNatural, now)
		return
	}

	c.Messages = append(c.Messages, Message{
		Speaker:   r.speaker,
		Content:   r.line.Text,
		Timestamp: now,
		Emotion:   r.line.Emotion,
	})
	c.CurrentTurn = len(c.Messages)
	c.LastActivity = now
	c.deadline = now.Add(s.cfg.InactivityTimeout)
	c.nextDue = now.Add(s.cfg.TurnDelay)

	s.broadcast(protocol.ConversationMsg{
		Type:            protocol.TypeConversation,
		ProtocolVersion: protocol.Version,
		Kind:            "MESSAGE",
		ConversationID:  c.ID,
		Speaker:         r.speaker,
		Text:            r.line.Text,
		Emotion:         r.line.Emotion,
		Turn:            c.CurrentTurn,
	})
	s.writeTranscript(TranscriptEntry{
		ConversationID: c.ID,
		Event:          "MESSAGE",
		Speaker:        r.speaker,
		Text:           r.line.Text,
		Emotion:        r.line.Emotion,
		Turn:           c.CurrentTurn,
		UnixMs:         now.UnixMilli(),
	})

	if reason, ended := s.continuationLimit(c, now); ended {
		s.endConversation(c, reason, now)
	}
}

// continuationLimit applies the heuristic stop conditions: wall-clock cap,
// turn cap, and the trailing-average-length check that catches a dialogue
// petering out.
func (s *Session) continuationLimit(c *Conversation, now time.Time) (string, bool) {
	if now.Sub(c.StartTime) >= s.cfg.MaxConversationDuration {
		return EndNatural, true
	}
	if c.CurrentTurn > s.cfg.MaxTurns {
		return EndNatural, true
	}
	if n := s.cfg.TrailingWindow; len(c.Messages) >= n {
		total := 0
		for _, m := range c.Messages[len(c.Messages)-n:] {
			total += len(m.Content)
		}
		if total/n < s.cfg.MinTrailingAvgLen {
			return EndNatural, true
		}
	}
	return "", false
}

// endConversation is the single exit path for every reason: marks the record,
// releases both agents, and kicks off memory distillation. It must leave no
// stale talking status behind.
func (s *Session) endConversation(c *Conversation, reason string, now time.Time) {
	if c.Status == ConversationEnded {
		return
	}
	c.Status = ConversationEnded
	c.EndReason = reason
	s.convsGauge.Add(-1)

	s.release(c.Participants[0], c.Participants[1])
	for _, id := range c.Participants {
		a := s.agents[id]
		if a == nil {
			continue
		}
		a.TalkingWith = 0
		if a.Status == StatusTalking || a.Status == StatusSeeking {
			a.Status = StatusIdle
		}
		s.broadcastAgent(a)
		s.saveAgent(a)
	}

	s.broadcast(protocol.ConversationMsg{
		Type:            protocol.TypeConversation,
		ProtocolVersion: protocol.Version,
		Kind:            "END",
		ConversationID:  c.ID,
		EndReason:       reason,
	})
	s.writeTranscript(TranscriptEntry{ConversationID: c.ID, Event: "END", EndReason: reason, UnixMs: now.UnixMilli()})
	s.saveConversation(c, now)

	s.distill(c, now)
}

func (s *Session) transcriptFor(c *Conversation) []mind.Utterance {
	out := make([]mind.Utterance, 0, len(c.Messages))
	for _, m := range c.Messages {
		name := ""
		if a := s.agents[m.Speaker]; a != nil {
			name = a.Name
		}
		out = append(out, mind.Utterance{Speaker: name, Text: m.Content})
	}
	return out
}

func (s *Session) saveConversation(c *Conversation, endTime time.Time) {
	if s.deps.Store == nil {
		return
	}
	rec := ConversationRecord{
		ID:           c.ID,
		Participants: []int{c.Participants[0], c.Participants[1]},
		Location:     c.Location,
		StartTime:    c.StartTime,
		EndTime:      endTime,
		Status:       string(c.Status),
		EndReason:    c.EndReason,
		Messages:     append([]Message(nil), c.Messages...),
	}
	s.deps.Store.SaveConversation(rec)
}

func (s *Session) writeTranscript(e TranscriptEntry) {
	if s.deps.Transcript == nil {
		return
	}
	if err := s.deps.Transcript.WriteTranscript(e); err != nil && s.log != nil {
		s.log.Printf("transcript write: %v", err)
	}
}
