package mind

import (
	"context"
	"encoding/json"
	"fmt"
	"log"
	"strings"
	"time"

	openai "github.com/sashabaranov/go-openai"
)

type Config struct {
	Model               string
	Timeout             time.Duration
	ConfidenceThreshold float64
	SocialHourStart     int
	SocialHourEnd       int
}

func (c *Config) applyDefaults() {
	if c.Model == "" {
		c.Model = openai.GPT4oMini
	}
	if c.Timeout <= 0 {
		c.Timeout = 10 * time.Second
	}
	if c.ConfidenceThreshold <= 0 {
		c.ConfidenceThreshold = 0.8
	}
	if c.SocialHourStart <= 0 {
		c.SocialHourStart = 8
	}
	if c.SocialHourEnd <= 0 {
		c.SocialHourEnd = 22
	}
}

// Service is a constructed decision/dialogue client. A nil OpenAI client is
// allowed: decisions then always take the heuristic path and dialogue
// generation reports an error, which callers handle as a normal conversation
// interruption.
type Service struct {
	client *openai.Client
	cfg    Config
	log    *log.Logger
}

func New(client *openai.Client, cfg Config, logger *log.Logger) *Service {
	cfg.applyDefaults()
	return &Service{client: client, cfg: cfg, log: logger}
}

// NewClient builds an OpenAI-compatible client. Empty apiKey returns nil so
// the caller can run without a generative backend.
func NewClient(apiKey, baseURL string) *openai.Client {
	if apiKey == "" {
		return nil
	}
	config := openai.DefaultConfig(apiKey)
	if baseURL != "" {
		config.BaseURL = baseURL
	}
	return openai.NewClientWithConfig(config)
}

// Decide produces the "wants to talk" verdict for self about peer. It never
// fails: transport errors, timeouts, and malformed model output all fall
// through to the closed-form heuristic.
func (s *Service) Decide(ctx context.Context, self, peer Profile, env Context) Decision {
	if s.client == nil {
		return s.Heuristic(self, peer, env)
	}
	ctx, cancel := context.WithTimeout(ctx, s.cfg.Timeout)
	defer cancel()

	var d Decision
	if err := s.generateJSON(ctx, decisionPrompt(self, peer, env), &d); err != nil {
		if s.log != nil {
			s.log.Printf("decide: %s->%s fallback to heuristic: %v", self.Name, peer.Name, err)
		}
		return s.Heuristic(self, peer, env)
	}
	if d.Confidence < 0 {
		d.Confidence = 0
	}
	if d.Confidence > 1 {
		d.Confidence = 1
	}
	return d
}

// Arbitrate applies the conversation-start policy over two independent
// verdicts: start if both want to chat, or if either side's confidence is at
// or above the high-confidence threshold. The threshold is inclusive, so a
// verdict at exactly the threshold initiates.
func (s *Service) Arbitrate(a, b Decision) bool {
	if a.WantsToChat && b.WantsToChat {
		return true
	}
	if a.WantsToChat && a.Confidence >= s.cfg.ConfidenceThreshold {
		return true
	}
	if b.WantsToChat && b.Confidence >= s.cfg.ConfidenceThreshold {
		return true
	}
	return false
}

// Converse asks the backend for speaker's next line given the transcript so
// far. An empty returned Text means the speaker declines to continue; an
// error means the backend failed and the conversation should end as
// interrupted.
func (s *Service) Converse(ctx context.Context, speaker, listener Profile, location string, history []Utterance) (Line, error) {
	if s.client == nil {
		return Line{}, fmt.Errorf("converse: no generative backend configured")
	}
	ctx, cancel := context.WithTimeout(ctx, s.cfg.Timeout)
	defer cancel()

	var l Line
	if err := s.generateJSON(ctx, dialoguePrompt(speaker, listener, location, history), &l); err != nil {
		return Line{}, err
	}
	l.Text = strings.TrimSpace(l.Text)
	return l, nil
}

// Distill summarizes a finished conversation from one participant's point of
// view. The generative path is best-effort; on any failure the deterministic
// template summary is returned instead.
func (s *Service) Distill(ctx context.Context, self, peer Profile, location string, duration time.Duration, history []Utterance) string {
	fallback := templateSummary(self, peer, location, duration, history)
	if s.client == nil {
		return fallback
	}
	ctx, cancel := context.WithTimeout(ctx, s.cfg.Timeout)
	defer cancel()

	var out struct {
		Summary string `json:"summary"`
	}
	if err := s.generateJSON(ctx, distillPrompt(self, peer, location, duration, history), &out); err != nil {
		if s.log != nil {
			s.log.Printf("distill: %s fallback to template: %v", self.Name, err)
		}
		return fallback
	}
	if strings.TrimSpace(out.Summary) == "" {
		return fallback
	}
	return out.Summary
}

func (s *Service) generateJSON(ctx context.Context, prompt string, v any) error {
	resp, err := s.client.CreateChatCompletion(ctx, openai.ChatCompletionRequest{
		Model:          s.cfg.Model,
		ResponseFormat: &openai.ChatCompletionResponseFormat{Type: openai.ChatCompletionResponseFormatTypeJSONObject},
		Messages: []openai.ChatCompletionMessage{
			{Role: openai.ChatMessageRoleUser, Content: prompt},
		},
	})
	if err != nil {
		return fmt.Errorf("chat completion: %w", err)
	}
	if len(resp.Choices) == 0 {
		return fmt.Errorf("chat completion: empty response")
	}
	if err := json.Unmarshal([]byte(resp.Choices[0].Message.Content), v); err != nil {
		return fmt.Errorf("parse model output: %w", err)
	}
	return nil
}
