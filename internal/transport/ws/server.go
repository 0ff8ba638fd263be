// Package ws is the WebSocket edge: it upgrades connections, runs the
// HELLO/WELCOME handshake, and shuttles decoded commands into the session
// inbox. All validation beyond framing happens inside the session actor.
package ws

import (
	"context"
	"encoding/json"
	"log"
	"net/http"
	"time"

	"github.com/gorilla/websocket"

	"agentville.ai/internal/protocol"
	"agentville.ai/internal/sim/session"
)

type Server struct {
	session *session.Session
	log     *log.Logger

	upgrader websocket.Upgrader
}

func NewServer(sess *session.Session, logger *log.Logger) *Server {
	return &Server{
		session: sess,
		log:     logger,
		upgrader: websocket.Upgrader{
			ReadBufferSize:  64 * 1024,
			WriteBufferSize: 64 * 1024,
			CheckOrigin:     func(r *http.Request) bool { return true }, // dev default
		},
	}
}

func (s *Server) Handler() http.HandlerFunc {
	return func(rw http.ResponseWriter, r *http.Request) {
		conn, err := s.upgrader.Upgrade(rw, r, nil)
		if err != nil {
			return
		}
		defer conn.Close()

		clientID, out := s.handshake(conn)
		if clientID == "" {
			return
		}

		ctx, cancel := context.WithCancel(r.Context())
		defer cancel()

		// Writer goroutine. The out channel is fed by the session's
		// drop-oldest broadcast; a stalled socket never stalls the actor.
		go func() {
			for {
				select {
				case <-ctx.Done():
					return
				case b, ok := <-out:
					if !ok {
						return
					}
					_ = conn.SetWriteDeadline(time.Now().Add(5 * time.Second))
					if err := conn.WriteMessage(websocket.TextMessage, b); err != nil {
						cancel()
						return
					}
				}
			}
		}()

		// Reader loop.
		for {
			_ = conn.SetReadDeadline(time.Now().Add(120 * time.Second))
			_, msg, err := conn.ReadMessage()
			if err != nil {
				cancel()
				break
			}
			cmd, ok := decodeCommand(msg)
			if !ok {
				continue
			}
			s.session.Inbox() <- cmd
		}

		s.session.Leave() <- clientID
	}
}

func (s *Server) handshake(conn *websocket.Conn) (clientID string, out chan []byte) {
	_ = conn.SetReadDeadline(time.Now().Add(5 * time.Second))
	_, msg, err := conn.ReadMessage()
	if err != nil {
		return "", nil
	}

	base, err := protocol.DecodeBase(msg)
	if err != nil || base.Type != protocol.TypeHello {
		rejectHandshake(conn, "expected HELLO")
		return "", nil
	}

	var hello protocol.HelloMsg
	if err := json.Unmarshal(msg, &hello); err != nil {
		rejectHandshake(conn, "malformed HELLO")
		return "", nil
	}
	if hello.ProtocolVersion != protocol.Version {
		rejectHandshake(conn, "bad protocol_version")
		return "", nil
	}
	if hello.ClientName == "" {
		hello.ClientName = "client"
	}

	maxQ := hello.MaxQueue
	if maxQ <= 0 {
		maxQ = 64
	}
	if maxQ > 1024 {
		maxQ = 1024
	}
	out = make(chan []byte, maxQ)

	respCh := make(chan session.JoinResponse, 1)
	s.session.Join() <- session.JoinRequest{
		ClientName: hello.ClientName,
		Out:        out,
		Resp:       respCh,
	}
	resp := <-respCh

	if err := writeJSON(conn, resp.Welcome); err != nil {
		s.session.Leave() <- resp.ClientID
		return "", nil
	}
	return resp.ClientID, out
}

// decodeCommand turns a client frame into a session command. Unknown or
// malformed frames are dropped at the edge; the session sees only well-formed
// commands.
func decodeCommand(msg []byte) (session.Command, bool) {
	base, err := protocol.DecodeBase(msg)
	if err != nil || base.ProtocolVersion != protocol.Version {
		return session.Command{}, false
	}
	switch base.Type {
	case protocol.TypeMove:
		var m protocol.MoveMsg
		if err := json.Unmarshal(msg, &m); err != nil {
			return session.Command{}, false
		}
		return session.Command{
			Kind:    session.CmdMove,
			AgentID: m.AgentID,
			Pos:     session.Vec2{X: m.Pos.X, Y: m.Pos.Y},
			Final:   m.Final,
		}, true
	case protocol.TypeStop:
		var m protocol.StopMsg
		if err := json.Unmarshal(msg, &m); err != nil {
			return session.Command{}, false
		}
		return session.Command{Kind: session.CmdStop, AgentID: m.AgentID}, true
	case protocol.TypeDone:
		var m protocol.DoneMsg
		if err := json.Unmarshal(msg, &m); err != nil {
			return session.Command{}, false
		}
		return session.Command{Kind: session.CmdDone, AgentID: m.AgentID, TaskID: m.TaskID}, true
	}
	return session.Command{}, false
}

// rejectHandshake tells the client why before closing, so bad clients fail
// loudly instead of seeing a silent drop.
func rejectHandshake(conn *websocket.Conn, reason string) {
	_ = writeJSON(conn, protocol.ErrorMsg{
		Type:            protocol.TypeError,
		ProtocolVersion: protocol.Version,
		Code:            protocol.ErrProtoBadRequest,
		Message:         reason,
	})
	closePolicy(conn, reason)
}

func closePolicy(conn *websocket.Conn, reason string) {
	_ = conn.WriteControl(
		websocket.CloseMessage,
		websocket.FormatCloseMessage(websocket.ClosePolicyViolation, reason),
		time.Now().Add(time.Second),
	)
}

func writeJSON(conn *websocket.Conn, v any) error {
	b, err := json.Marshal(v)
	if err != nil {
		return err
	}
	_ = conn.SetWriteDeadline(time.Now().Add(5 * time.Second))
	return conn.WriteMessage(websocket.TextMessage, b)
}
