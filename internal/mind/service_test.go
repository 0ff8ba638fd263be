package mind

import (
	"context"
	"testing"
	"time"
)

func testService() *Service {
	return New(nil, Config{}, nil)
}

func profile(name string, extraversion, agreeableness float64, mood string, interests ...string) Profile {
	return Profile{
		Name:      name,
		Traits:    Traits{Extraversion: extraversion, Agreeableness: agreeableness},
		Interests: interests,
		Mood:      mood,
	}
}

func daytime() Context {
	return Context{Hour: 12, SecondsSinceLastInteraction: -1}
}

func TestHeuristic_ExtravertWantsToChat(t *testing.T) {
	s := testService()
	self := profile("Maya", 0.9, 0.7, "happy", "coffee", "painting")
	peer := profile("Theo", 0.3, 0.7, "neutral", "coffee", "books")

	d := s.Heuristic(self, peer, daytime())
	if !d.WantsToChat {
		t.Fatalf("extraverted happy agent should want to chat: %+v", d)
	}
	if d.Confidence != heuristicConfidence {
		t.Fatalf("heuristic confidence = %v, want %v", d.Confidence, heuristicConfidence)
	}
	if d.Monologue == "" || d.Reasoning == "" {
		t.Fatal("heuristic verdict should carry monologue and reasoning")
	}
}

func TestHeuristic_IntrovertDeclines(t *testing.T) {
	s := testService()
	self := profile("Theo", 0.1, 0.5, "tired")
	peer := profile("Maya", 0.9, 0.9, "happy")

	if d := s.Heuristic(self, peer, daytime()); d.WantsToChat {
		t.Fatalf("tired introvert should decline: %+v", d)
	}
}

func TestHeuristic_NightPenalty(t *testing.T) {
	s := testService()
	self := profile("Maya", 0.8, 0.7, "neutral", "coffee")
	peer := profile("Theo", 0.5, 0.7, "neutral", "coffee")

	day := s.Heuristic(self, peer, Context{Hour: 12, SecondsSinceLastInteraction: -1})
	night := s.Heuristic(self, peer, Context{Hour: 3, SecondsSinceLastInteraction: -1})
	if !day.WantsToChat {
		t.Fatalf("daytime verdict should be positive: %+v", day)
	}
	if night.WantsToChat {
		t.Fatalf("3am verdict should be negative: %+v", night)
	}
}

func TestHeuristic_RecentInteractionPenalty(t *testing.T) {
	s := testService()
	self := profile("Maya", 0.6, 0.7, "neutral")
	peer := profile("Theo", 0.6, 0.7, "neutral")

	fresh := s.Heuristic(self, peer, Context{Hour: 12, SecondsSinceLastInteraction: 60})
	stale := s.Heuristic(self, peer, Context{Hour: 12, SecondsSinceLastInteraction: 3600})
	never := s.Heuristic(self, peer, Context{Hour: 12, SecondsSinceLastInteraction: -1})

	if fresh.WantsToChat {
		t.Fatalf("pair that talked a minute ago should decline: %+v", fresh)
	}
	if !stale.WantsToChat || !never.WantsToChat {
		t.Fatalf("penalty should expire: stale=%+v never=%+v", stale, never)
	}
}

func TestHeuristic_Deterministic(t *testing.T) {
	s := testService()
	self := profile("Maya", 0.7, 0.6, "excited", "gardening")
	peer := profile("Ines", 0.6, 0.45, "excited", "gardening", "cooking")
	env := daytime()

	a := s.Heuristic(self, peer, env)
	b := s.Heuristic(self, peer, env)
	if a != b {
		t.Fatalf("heuristic not deterministic: %+v vs %+v", a, b)
	}
}

func TestDecide_NilClientFallsBack(t *testing.T) {
	s := testService()
	self := profile("Maya", 0.9, 0.7, "happy")
	peer := profile("Theo", 0.3, 0.7, "neutral")

	d := s.Decide(context.Background(), self, peer, daytime())
	if d.Confidence != heuristicConfidence {
		t.Fatalf("nil-client Decide should take the heuristic path: %+v", d)
	}
}

func TestArbitrate(t *testing.T) {
	s := testService() // threshold defaults to 0.8

	yes := func(conf float64) Decision { return Decision{WantsToChat: true, Confidence: conf} }
	no := func(conf float64) Decision { return Decision{WantsToChat: false, Confidence: conf} }

	cases := []struct {
		name string
		a, b Decision
		want bool
	}{
		{"both want", yes(0.3), yes(0.3), true},
		{"one wants, low confidence", yes(0.5), no(0.9), false},
		{"one wants, at threshold", yes(0.8), no(0.2), true},
		{"one wants, above threshold", no(0.2), yes(0.95), true},
		{"neither wants", no(0.99), no(0.99), false},
		{"confident refusal does not start", no(0.9), no(0.9), false},
	}
	for _, tc := range cases {
		if got := s.Arbitrate(tc.a, tc.b); got != tc.want {
			t.Errorf("%s: Arbitrate = %v, want %v", tc.name, got, tc.want)
		}
	}
}

func TestConverse_NilClientErrors(t *testing.T) {
	s := testService()
	_, err := s.Converse(context.Background(), profile("Maya", 0.9, 0.7, "happy"), profile("Theo", 0.3, 0.7, "neutral"), "cafe", nil)
	if err == nil {
		t.Fatal("Converse without a backend should error")
	}
}

func TestDistill_TemplateFallback(t *testing.T) {
	s := testService()
	self := profile("Maya", 0.9, 0.7, "happy")
	peer := profile("Theo", 0.3, 0.7, "neutral")
	history := []Utterance{
		{Speaker: "Maya", Text: "Hi Theo, any new arrivals at the library?"},
		{Speaker: "Theo", Text: "A few. One on garden design you might like."},
	}

	sum := s.Distill(context.Background(), self, peer, "cafe", 90*time.Second, history)
	if sum == "" {
		t.Fatal("template summary should never be empty")
	}
}

func TestConfigDefaults(t *testing.T) {
	var c Config
	c.applyDefaults()
	if c.Model == "" || c.Timeout <= 0 {
		t.Fatalf("defaults not applied: %+v", c)
	}
	if c.ConfidenceThreshold != 0.8 || c.SocialHourStart != 8 || c.SocialHourEnd != 22 {
		t.Fatalf("unexpected defaults: %+v", c)
	}
}

func TestNewClient_EmptyKey(t *testing.T) {
	if NewClient("", "") != nil {
		t.Fatal("empty api key should yield a nil client")
	}
}
