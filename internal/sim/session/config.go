package session

import (
	"time"

	"agentville.ai/internal/sim/tuning"
)

type Config struct {
	SessionID string
	MapDigest string
	Seed      int64

	FrameRateHz       int
	ClockTickMs       int
	TaskAssignEveryMs int

	MoveSpeed     float64 // plane units per second
	MeetingRadius float64

	EncounterCooldown time.Duration

	TurnDelay               time.Duration
	MaxConversationDuration time.Duration
	MaxTurns                int
	MinTrailingAvgLen       int
	TrailingWindow          int
	InactivityTimeout       time.Duration
	ImportanceCap           int
	DecisionTimeout         time.Duration
}

func (c *Config) applyDefaults() {
	if c.SessionID == "" {
		c.SessionID = "village_1"
	}
	if c.Seed == 0 {
		c.Seed = 1
	}
	if c.FrameRateHz <= 0 {
		c.FrameRateHz = 20
	}
	if c.ClockTickMs <= 0 {
		c.ClockTickMs = 1000
	}
	if c.TaskAssignEveryMs <= 0 {
		c.TaskAssignEveryMs = 8000
	}
	if c.MoveSpeed <= 0 {
		c.MoveSpeed = 80
	}
	if c.MeetingRadius <= 0 {
		c.MeetingRadius = 40
	}
	if c.EncounterCooldown <= 0 {
		c.EncounterCooldown = 2 * time.Minute
	}
	if c.TurnDelay <= 0 {
		c.TurnDelay = 1500 * time.Millisecond
	}
	if c.MaxConversationDuration <= 0 {
		c.MaxConversationDuration = 5 * time.Minute
	}
	if c.MaxTurns <= 0 {
		c.MaxTurns = 20
	}
	if c.MinTrailingAvgLen <= 0 {
		c.MinTrailingAvgLen = 12
	}
	if c.TrailingWindow <= 0 {
		c.TrailingWindow = 3
	}
	if c.InactivityTimeout <= 0 {
		c.InactivityTimeout = 30 * time.Second
	}
	if c.ImportanceCap <= 0 {
		c.ImportanceCap = 8
	}
	if c.DecisionTimeout <= 0 {
		c.DecisionTimeout = 10 * time.Second
	}
}

// ConfigFromTuning maps the loaded tuning file onto a session config.
func ConfigFromTuning(t tuning.Tuning) Config {
	return Config{
		FrameRateHz:             t.FrameRateHz,
		ClockTickMs:             t.ClockTickMs,
		TaskAssignEveryMs:       t.TaskAssignEveryMs,
		MoveSpeed:               t.MoveSpeed,
		MeetingRadius:           t.MeetingRadius,
		EncounterCooldown:       time.Duration(t.EncounterCooldownSec) * time.Second,
		TurnDelay:               time.Duration(t.Conversation.TurnDelayMs) * time.Millisecond,
		MaxConversationDuration: time.Duration(t.Conversation.MaxDurationSec) * time.Second,
		MaxTurns:                t.Conversation.MaxTurns,
		MinTrailingAvgLen:       t.Conversation.MinTrailingAvgLen,
		TrailingWindow:          t.Conversation.TrailingWindow,
		InactivityTimeout:       time.Duration(t.Conversation.InactivityTimeoutSec) * time.Second,
		ImportanceCap:           t.Conversation.ImportanceCap,
		DecisionTimeout:         time.Duration(t.Decision.TimeoutSec) * time.Second,
	}
}
