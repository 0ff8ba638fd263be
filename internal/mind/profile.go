// Package mind decides whether two agents want to talk, generates their
// dialogue, and distills finished conversations into memories. The generative
// backend is an OpenAI-compatible chat-completion API and is treated as
// unreliable: every exported call either degrades to a deterministic fallback
// or surfaces a recoverable error, never a panic.
package mind

// Profile is the personality slice of an agent the decision and dialogue
// prompts are built from. It is read-only here; the roster store owns it.
type Profile struct {
	ID         int      `json:"id"`
	Name       string   `json:"name"`
	Traits     Traits   `json:"traits"`
	Interests  []string `json:"interests"`
	Background string   `json:"background"`
	Mood       string   `json:"mood"`
}

type Traits struct {
	Extraversion  float64 `json:"extraversion"`  // 0..1
	Agreeableness float64 `json:"agreeableness"` // 0..1
}

// Context is the situational input to a decision: where the agents are, when
// it is, how recently this pair interacted, and what the deciding agent
// remembers.
type Context struct {
	Location string
	Hour     int // local hour 0..23

	// SecondsSinceLastInteraction is negative when the pair has never
	// interacted.
	SecondsSinceLastInteraction float64

	// RecentMemories is newest first, from the deciding agent's ring.
	RecentMemories []string
}

// Decision is the inner-thought verdict for one agent about one peer.
type Decision struct {
	WantsToChat bool    `json:"wants_to_chat"`
	Confidence  float64 `json:"confidence"` // 0..1
	Reasoning   string  `json:"reasoning"`
	Monologue   string  `json:"monologue"`
}

// Line is one generated utterance. An empty Text means the speaker chose not
// to say anything.
type Line struct {
	Text    string `json:"text"`
	Emotion string `json:"emotion"`
}

// Utterance is one already-spoken message handed back to the generator as
// history.
type Utterance struct {
	Speaker string
	Text    string
}
