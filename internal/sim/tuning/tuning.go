package tuning

import (
	"fmt"
	"os"

	"gopkg.in/yaml.v3"
)

type Tuning struct {
	ProtocolVersion string `yaml:"protocol_version"`

	FrameRateHz       int `yaml:"frame_rate_hz"`
	ClockTickMs       int `yaml:"clock_tick_ms"`
	TaskAssignEveryMs int `yaml:"task_assign_every_ms"`

	MoveSpeed     float64 `yaml:"move_speed"`     // plane units per second
	MeetingRadius float64 `yaml:"meeting_radius"` // plane units

	EncounterCooldownSec int `yaml:"encounter_cooldown_sec"`

	Decision     DecisionTuning     `yaml:"decision"`
	Conversation ConversationTuning `yaml:"conversation"`
}

type DecisionTuning struct {
	TimeoutSec          int     `yaml:"timeout_sec"`
	ConfidenceThreshold float64 `yaml:"confidence_threshold"`
	SocialHourStart     int     `yaml:"social_hour_start"`
	SocialHourEnd       int     `yaml:"social_hour_end"`
}

type ConversationTuning struct {
	TurnDelayMs          int `yaml:"turn_delay_ms"`
	MaxDurationSec       int `yaml:"max_duration_sec"`
	MaxTurns             int `yaml:"max_turns"`
	MinTrailingAvgLen    int `yaml:"min_trailing_avg_len"`
	TrailingWindow       int `yaml:"trailing_window"`
	InactivityTimeoutSec int `yaml:"inactivity_timeout_sec"`
	ImportanceCap        int `yaml:"importance_cap"`
}

func Load(path string) (Tuning, error) {
	var t Tuning
	raw, err := os.ReadFile(path)
	if err != nil {
		return t, err
	}
	if err := yaml.Unmarshal(raw, &t); err != nil {
		return t, fmt.Errorf("tuning.yaml: %w", err)
	}
	t.ApplyDefaults()
	return t, nil
}

func Defaults() Tuning {
	var t Tuning
	t.ApplyDefaults()
	return t
}

func (t *Tuning) ApplyDefaults() {
	if t.FrameRateHz <= 0 {
		t.FrameRateHz = 20
	}
	if t.ClockTickMs <= 0 {
		t.ClockTickMs = 1000
	}
	if t.TaskAssignEveryMs <= 0 {
		t.TaskAssignEveryMs = 8000
	}
	if t.MoveSpeed <= 0 {
		t.MoveSpeed = 80
	}
	if t.MeetingRadius <= 0 {
		t.MeetingRadius = 40
	}
	if t.EncounterCooldownSec <= 0 {
		t.EncounterCooldownSec = 120
	}
	if t.Decision.TimeoutSec <= 0 {
		t.Decision.TimeoutSec = 10
	}
	if t.Decision.ConfidenceThreshold <= 0 {
		t.Decision.ConfidenceThreshold = 0.8
	}
	if t.Decision.SocialHourStart <= 0 {
		t.Decision.SocialHourStart = 8
	}
	if t.Decision.SocialHourEnd <= 0 {
		t.Decision.SocialHourEnd = 22
	}
	if t.Conversation.TurnDelayMs <= 0 {
		t.Conversation.TurnDelayMs = 1500
	}
	if t.Conversation.MaxDurationSec <= 0 {
		t.Conversation.MaxDurationSec = 300
	}
	if t.Conversation.MaxTurns <= 0 {
		t.Conversation.MaxTurns = 20
	}
	if t.Conversation.MinTrailingAvgLen <= 0 {
		t.Conversation.MinTrailingAvgLen = 12
	}
	if t.Conversation.TrailingWindow <= 0 {
		t.Conversation.TrailingWindow = 3
	}
	if t.Conversation.InactivityTimeoutSec <= 0 {
		t.Conversation.InactivityTimeoutSec = 30
	}
	if t.Conversation.ImportanceCap <= 0 {
		t.Conversation.ImportanceCap = 8
	}
}
