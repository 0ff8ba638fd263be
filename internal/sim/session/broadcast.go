package session

import (
	"encoding/json"

	"agentville.ai/internal/protocol"
)

func (s *Session) broadcast(v any) {
	if len(s.clients) == 0 {
		return
	}
	b, err := json.Marshal(v)
	if err != nil {
		return
	}
	for _, cl := range s.clients {
		sendLatest(cl.Out, b)
	}
}

func (s *Session) broadcastAgent(a *Agent) {
	s.broadcast(protocol.AgentMsg{
		Type:            protocol.TypeAgent,
		ProtocolVersion: protocol.Version,
		Agent:           a.View(),
	})
}

// sendLatest drops the oldest queued frame when a client's out channel is
// full, so a slow client lags rather than stalling the actor.
func sendLatest(ch chan []byte, b []byte) {
	select {
	case ch <- b:
		return
	default:
	}
	select {
	case <-ch:
	default:
	}
	select {
	case ch <- b:
	default:
	}
}
