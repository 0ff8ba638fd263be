package protocol

import "encoding/json"

const Version = "1.0"

// Message types. Each wire message carries exactly one of these tags and maps
// to one typed struct; the dynamic {type, payload} shape is decoded once at
// the transport edge and never re-inspected downstream.
const (
	// client -> server
	TypeHello = "HELLO"
	TypeMove  = "MOVE"
	TypeStop  = "STOP"
	TypeDone  = "DONE"

	// server -> client
	TypeWelcome      = "WELCOME"
	TypeTick         = "TICK"
	TypeTask         = "TASK"
	TypeAgent        = "AGENT"
	TypeConversation = "CONVERSATION"
	TypeError        = "ERROR"
)

// BaseMessage lets us route unknown JSON messages by type.
type BaseMessage struct {
	Type            string `json:"type"`
	ProtocolVersion string `json:"protocol_version,omitempty"`
}

func DecodeBase(b []byte) (BaseMessage, error) {
	var m BaseMessage
	err := json.Unmarshal(b, &m)
	return m, err
}
