package mind

import (
	"fmt"
	"strings"
	"time"
)

func decisionPrompt(self, peer Profile, env Context) string {
	var b strings.Builder
	fmt.Fprintf(&b, "You are %s's inner monologue in a small village simulation.\n", self.Name)
	fmt.Fprintf(&b, "%s: %s. Extraversion %.2f, agreeableness %.2f, mood %s, interests: %s.\n",
		self.Name, self.Background, self.Traits.Extraversion, self.Traits.Agreeableness, self.Mood, strings.Join(self.Interests, ", "))
	fmt.Fprintf(&b, "They just ran into %s: %s. Mood %s, interests: %s.\n",
		peer.Name, peer.Background, peer.Mood, strings.Join(peer.Interests, ", "))
	fmt.Fprintf(&b, "It is %d:00 at the %s.\n", env.Hour, env.Location)
	if env.SecondsSinceLastInteraction >= 0 {
		fmt.Fprintf(&b, "They last spoke %.0f seconds ago.\n", env.SecondsSinceLastInteraction)
	}
	if len(env.RecentMemories) > 0 {
		fmt.Fprintf(&b, "%s recently: %s\n", self.Name, strings.Join(env.RecentMemories, "; "))
	}
	b.WriteString("Decide whether they want to start a conversation. Reply with JSON: " +
		`{"wants_to_chat": bool, "confidence": 0..1, "reasoning": "...", "monologue": "first-person inner thought"}`)
	return b.String()
}

func dialoguePrompt(speaker, listener Profile, location string, history []Utterance) string {
	var b strings.Builder
	fmt.Fprintf(&b, "You are %s, talking with %s at the %s in a village simulation.\n", speaker.Name, listener.Name, location)
	fmt.Fprintf(&b, "%s: %s. Mood %s, interests: %s.\n",
		speaker.Name, speaker.Background, speaker.Mood, strings.Join(speaker.Interests, ", "))
	if len(history) == 0 {
		b.WriteString("Open the conversation naturally.\n")
	} else {
		b.WriteString("Conversation so far:\n")
		for _, u := range history {
			fmt.Fprintf(&b, "%s: %s\n", u.Speaker, u.Text)
		}
		b.WriteString("Continue as " + speaker.Name + ". If the conversation has run its course, return an empty text.\n")
	}
	b.WriteString("Reply with JSON: " + `{"text": "one short line of dialogue or empty", "emotion": "neutral|happy|excited|sad|thoughtful"}`)
	return b.String()
}

func distillPrompt(self, peer Profile, location string, duration time.Duration, history []Utterance) string {
	var b strings.Builder
	fmt.Fprintf(&b, "Summarize this %.0f-second conversation between %s and %s at the %s from %s's point of view, in one or two sentences.\n",
		duration.Seconds(), self.Name, peer.Name, location, self.Name)
	for _, u := range history {
		fmt.Fprintf(&b, "%s: %s\n", u.Speaker, u.Text)
	}
	b.WriteString("Reply with JSON: " + `{"summary": "..."}`)
	return b.String()
}

func templateSummary(self, peer Profile, location string, duration time.Duration, history []Utterance) string {
	return fmt.Sprintf("%s talked with %s at the %s for %.0f seconds (%d messages).",
		self.Name, peer.Name, location, duration.Seconds(), len(history))
}
