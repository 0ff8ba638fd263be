package protocol

// HELLO (client -> server)
type HelloMsg struct {
	Type            string `json:"type"`
	ProtocolVersion string `json:"protocol_version"`
	ClientName      string `json:"client_name"`
	MaxQueue        int    `json:"max_queue,omitempty"`
}

// WELCOME (server -> client): the initialization snapshot.
type WelcomeMsg struct {
	Type            string      `json:"type"`
	ProtocolVersion string      `json:"protocol_version"`
	SessionID       string      `json:"session_id"`
	TickRateHz      int         `json:"tick_rate_hz"`
	MapDigest       string      `json:"map_digest"`
	Agents          []AgentView `json:"agents"`
}

// TICK (server -> client): periodic simulation clock.
type TickMsg struct {
	Type            string `json:"type"`
	ProtocolVersion string `json:"protocol_version"`
	Tick            uint64 `json:"tick"`
	UnixMs          int64  `json:"unix_ms"`
}

// TASK (server -> client): a movement assignment for one agent. Clients may
// predict along Path; the server remains authoritative.
type TaskMsg struct {
	Type            string  `json:"type"`
	ProtocolVersion string  `json:"protocol_version"`
	TaskID          string  `json:"task_id"`
	AgentID         int     `json:"agent_id"`
	Target          Point   `json:"target"`
	DurationMs      int64   `json:"duration_ms"`
	Path            []Point `json:"path,omitempty"`
}

// AGENT (server -> client): authoritative status/position update.
type AgentMsg struct {
	Type            string    `json:"type"`
	ProtocolVersion string    `json:"protocol_version"`
	Agent           AgentView `json:"agent"`
}

// CONVERSATION (server -> client): start/message/end lifecycle events.
type ConversationMsg struct {
	Type            string `json:"type"`
	ProtocolVersion string `json:"protocol_version"`
	Kind            string `json:"kind"` // START | MESSAGE | END
	ConversationID  string `json:"conversation_id"`
	Participants    []int  `json:"participants,omitempty"`
	Location        string `json:"location,omitempty"`
	Speaker         int    `json:"speaker,omitempty"`
	Text            string `json:"text,omitempty"`
	Emotion         string `json:"emotion,omitempty"`
	Turn            int    `json:"turn,omitempty"`
	EndReason       string `json:"end_reason,omitempty"`
}

// MOVE (client -> server): a drag/position update for one agent. Final marks
// the end of a drag; intermediate updates may be coalesced client-side but
// the final one is always sent.
type MoveMsg struct {
	Type            string `json:"type"`
	ProtocolVersion string `json:"protocol_version"`
	AgentID         int    `json:"agent_id"`
	Pos             Point  `json:"pos"`
	Final           bool   `json:"final,omitempty"`
}

// STOP (client -> server): stop-movement request.
type StopMsg struct {
	Type            string `json:"type"`
	ProtocolVersion string `json:"protocol_version"`
	AgentID         int    `json:"agent_id"`
}

// DONE (client -> server): client-side task-completion report. Advisory; the
// server completes the walk only if the agent is already within tolerance.
type DoneMsg struct {
	Type            string `json:"type"`
	ProtocolVersion string `json:"protocol_version"`
	AgentID         int    `json:"agent_id"`
	TaskID          string `json:"task_id"`
}

// ERROR (server -> client)
type ErrorMsg struct {
	Type            string `json:"type"`
	ProtocolVersion string `json:"protocol_version"`
	Code            string `json:"code"`
	Message         string `json:"message,omitempty"`
}

type Point struct {
	X float64 `json:"x"`
	Y float64 `json:"y"`
}

type AgentView struct {
	ID      int    `json:"id"`
	Name    string `json:"name"`
	Pos     Point  `json:"pos"`
	Color   string `json:"color,omitempty"`
	Status  string `json:"status"`
	Target  *Point `json:"target,omitempty"`
	Talking int    `json:"talking_with,omitempty"`
}
