package sessiontest

import (
	"testing"
	"time"

	"agentville.ai/internal/sim/session"
)

// The full happy path, end to end through the exported API: two agents meet,
// both want to talk, they exchange the scripted lines, run out of things to
// say, and part ways. A second meeting inside the cooldown window goes
// nowhere.
func TestVillageScenario_MeetTalkPart(t *testing.T) {
	m := &EagerMind{Script: []string{
		"Morning! The plaza smells like rain.",
		"It does. The market stalls are still dripping.",
		"Come by the cafe later, the roaster is on.",
	}}
	h := NewHarness(t, m, nil)

	h.Meet()
	h.MustStatus(1, session.StatusTalking)
	h.MustStatus(2, session.StatusTalking)

	recs := h.Conversations()
	if len(recs) != 1 {
		t.Fatalf("conversations = %d, want 1", len(recs))
	}
	if recs[0].Location != "plaza" {
		t.Fatalf("location = %q", recs[0].Location)
	}

	// Three scripted lines, then a decline: four paced turns end it.
	for i := 0; i < 4; i++ {
		h.Step(2 * time.Second)
	}
	recs = h.Conversations()
	c := recs[0]
	if c.Status != string(session.ConversationEnded) || c.EndReason != session.EndNatural {
		t.Fatalf("status/reason = %s/%s, want ended/natural", c.Status, c.EndReason)
	}
	if len(c.Messages) != 3 {
		t.Fatalf("messages = %d, want 3", len(c.Messages))
	}
	if c.Messages[0].Speaker != 1 || c.Messages[1].Speaker != 2 || c.Messages[2].Speaker != 1 {
		t.Fatalf("speaker order = %d,%d,%d", c.Messages[0].Speaker, c.Messages[1].Speaker, c.Messages[2].Speaker)
	}
	h.MustStatus(1, session.StatusIdle)
	h.MustStatus(2, session.StatusIdle)

	// Straight back into range: the pair cooldown holds.
	h.Meet()
	if got := len(h.Conversations()); got != 1 {
		t.Fatalf("conversation restarted inside cooldown: %d records", got)
	}
	h.MustStatus(1, session.StatusIdle)
	h.MustStatus(2, session.StatusIdle)
}

func TestVillageScenario_WanderAssignment(t *testing.T) {
	h := NewHarness(t, &EagerMind{}, func(cfg *session.Config) {
		// Keep the agents out of meeting range for the whole walk.
		cfg.MeetingRadius = 1
	})

	h.Session.AssignTasks(h.Now)
	h.MustStatus(1, session.StatusWalking)
	h.MustStatus(2, session.StatusWalking)

	// Walks complete on their own; agents settle back to idle.
	h.Step(60 * time.Second)
	h.MustStatus(1, session.StatusIdle)
	h.MustStatus(2, session.StatusIdle)
}
