// Command bot is a scripted client used for smoke testing: it connects,
// watches the simulation, and occasionally drags an agent around the way the
// web client would.
package main

import (
	"encoding/json"
	"flag"
	"log"
	"math/rand"
	"os"
	"os/signal"
	"time"

	"github.com/gorilla/websocket"

	"agentville.ai/internal/protocol"
)

func main() {
	var (
		url     = flag.String("url", "ws://localhost:8080/v1/ws", "ws url")
		name    = flag.String("name", "bot", "client name")
		dragPct = flag.Int("drag_pct", 5, "chance per TICK (percent) of dragging a random agent")
		retries = flag.Int("retries", 5, "max dial attempts before giving up")
	)
	flag.Parse()

	logger := log.New(os.Stdout, "[bot] ", log.LstdFlags|log.Lmicroseconds)

	conn := dialWithBackoff(*url, *retries, logger)
	if conn == nil {
		logger.Fatalf("dial: gave up after %d attempts", *retries)
	}
	defer conn.Close()

	hello := protocol.HelloMsg{
		Type:            protocol.TypeHello,
		ProtocolVersion: protocol.Version,
		ClientName:      *name,
		MaxQueue:        64,
	}
	if err := conn.WriteJSON(hello); err != nil {
		logger.Fatalf("send HELLO: %v", err)
	}

	stop := make(chan os.Signal, 1)
	signal.Notify(stop, os.Interrupt)

	rng := rand.New(rand.NewSource(time.Now().UnixNano()))
	var agentIDs []int

	for {
		select {
		case <-stop:
			return
		default:
		}

		_, msg, err := conn.ReadMessage()
		if err != nil {
			return
		}
		base, err := protocol.DecodeBase(msg)
		if err != nil {
			continue
		}
		switch base.Type {
		case protocol.TypeWelcome:
			var w protocol.WelcomeMsg
			if err := json.Unmarshal(msg, &w); err != nil {
				continue
			}
			agentIDs = agentIDs[:0]
			for _, a := range w.Agents {
				agentIDs = append(agentIDs, a.ID)
			}
			logger.Printf("WELCOME session=%s agents=%d tick_rate=%d map=%s",
				w.SessionID, len(w.Agents), w.TickRateHz, w.MapDigest)

		case protocol.TypeTick:
			if len(agentIDs) == 0 || rng.Intn(100) >= *dragPct {
				continue
			}
			drag(conn, rng, agentIDs[rng.Intn(len(agentIDs))])

		case protocol.TypeConversation:
			var c protocol.ConversationMsg
			if err := json.Unmarshal(msg, &c); err != nil {
				continue
			}
			switch c.Kind {
			case "START":
				logger.Printf("conversation %s START participants=%v at %s", c.ConversationID, c.Participants, c.Location)
			case "MESSAGE":
				logger.Printf("conversation %s [%d] agent %d: %s", c.ConversationID, c.Turn, c.Speaker, c.Text)
			case "END":
				logger.Printf("conversation %s END reason=%s", c.ConversationID, c.EndReason)
			}
		}
	}
}

// drag replays a short pointer drag: a few throttled intermediate positions
// and an unthrottled final one.
func drag(conn *websocket.Conn, rng *rand.Rand, agentID int) {
	x := 100 + rng.Float64()*1000
	y := 100 + rng.Float64()*600
	steps := 3 + rng.Intn(3)
	for i := 1; i <= steps; i++ {
		frac := float64(i) / float64(steps)
		_ = conn.WriteJSON(protocol.MoveMsg{
			Type:            protocol.TypeMove,
			ProtocolVersion: protocol.Version,
			AgentID:         agentID,
			Pos:             protocol.Point{X: x * frac, Y: y * frac},
			Final:           i == steps,
		})
		if i < steps {
			time.Sleep(50 * time.Millisecond)
		}
	}
}

func dialWithBackoff(url string, retries int, logger *log.Logger) *websocket.Conn {
	delay := 500 * time.Millisecond
	for attempt := 1; attempt <= retries; attempt++ {
		conn, _, err := websocket.DefaultDialer.Dial(url, nil)
		if err == nil {
			return conn
		}
		logger.Printf("dial attempt %d/%d: %v", attempt, retries, err)
		if attempt < retries {
			time.Sleep(delay)
			delay *= 2
			if delay > 8*time.Second {
				delay = 8 * time.Second
			}
		}
	}
	return nil
}
