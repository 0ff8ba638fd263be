package mind

import (
	"fmt"
	"math"
)

// heuristicConfidence flags a degraded-quality verdict so the arbitration
// policy never treats a heuristic answer as a high-confidence initiator.
const heuristicConfidence = 0.3

var moodBonus = map[string]float64{
	"excited": 0.15,
	"happy":   0.10,
	"neutral": 0,
	"tired":   -0.10,
	"sad":     -0.15,
	"angry":   -0.25,
}

// Heuristic is the closed-form fallback for Decide. It is deterministic for a
// given pair and context, which the tests rely on.
func (s *Service) Heuristic(self, peer Profile, env Context) Decision {
	score := 0.25
	score += 0.30 * self.Traits.Extraversion
	score += 0.15 * (1 - math.Abs(self.Traits.Agreeableness-peer.Traits.Agreeableness))
	score += moodBonus[self.Mood]

	shared := sharedInterests(self.Interests, peer.Interests)
	if shared > 3 {
		shared = 3
	}
	score += 0.05 * float64(shared)

	if env.Hour < s.cfg.SocialHourStart || env.Hour >= s.cfg.SocialHourEnd {
		score -= 0.20
	}
	// A pair that just talked is unlikely to want to immediately again.
	if env.SecondsSinceLastInteraction >= 0 && env.SecondsSinceLastInteraction < 600 {
		score -= 0.15
	}

	if score < 0 {
		score = 0
	}
	if score > 1 {
		score = 1
	}

	wants := score >= 0.5
	verb := "not in the mood to talk to"
	if wants {
		verb = "open to chatting with"
	}
	return Decision{
		WantsToChat: wants,
		Confidence:  heuristicConfidence,
		Reasoning:   fmt.Sprintf("heuristic score %.2f (shared interests: %d, mood: %s)", score, shared, self.Mood),
		Monologue:   fmt.Sprintf("%s feels %s %s.", self.Name, verb, peer.Name),
	}
}

func sharedInterests(a, b []string) int {
	set := make(map[string]struct{}, len(a))
	for _, s := range a {
		set[s] = struct{}{}
	}
	n := 0
	for _, s := range b {
		if _, ok := set[s]; ok {
			n++
		}
	}
	return n
}
