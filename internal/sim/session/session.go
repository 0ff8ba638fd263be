// Package session implements the authoritative simulation actor: agent
// movement, encounter arbitration, and conversation lifecycles. All state is
// owned by a single goroutine; every external input (client commands, timer
// fires, async generation results) funnels through the run loop in loop.go.
package session

import (
	"context"
	"fmt"
	"log"
	"math/rand"
	"sort"
	"sync/atomic"
	"time"

	"github.com/google/uuid"

	"agentville.ai/internal/mind"
	"agentville.ai/internal/protocol"
	"agentville.ai/internal/sim/geometry"
	"agentville.ai/internal/sim/grid"
)

// Decider is the inner-thought and dialogue collaborator. *mind.Service
// satisfies it; tests substitute deterministic stubs.
type Decider interface {
	Decide(ctx context.Context, self, peer mind.Profile, env mind.Context) mind.Decision
	Arbitrate(a, b mind.Decision) bool
	Converse(ctx context.Context, speaker, listener mind.Profile, location string, history []mind.Utterance) (mind.Line, error)
	Distill(ctx context.Context, self, peer mind.Profile, location string, duration time.Duration, history []mind.Utterance) string
}

// Store is the persistence collaborator. All calls are fire-and-forget: the
// simulation's correctness never depends on a write landing.
type Store interface {
	SaveAgent(AgentRecord)
	SaveConversation(ConversationRecord)
	SaveMemory(MemoryRecord)
}

type AgentRecord struct {
	ID      int     `json:"id"`
	Name    string  `json:"name"`
	X       float64 `json:"x"`
	Y       float64 `json:"y"`
	Color   string  `json:"color"`
	Status  string  `json:"status"`
}

type ConversationRecord struct {
	ID           string    `json:"id"`
	Participants []int     `json:"participants"`
	Location     string    `json:"location"`
	StartTime    time.Time `json:"start_time"`
	EndTime      time.Time `json:"end_time,omitempty"`
	Status       string    `json:"status"`
	EndReason    string    `json:"end_reason,omitempty"`
	Messages     []Message `json:"messages"`
}

type MemoryRecord struct {
	ID         string    `json:"id"`
	AgentID    int       `json:"agent_id"`
	Content    string    `json:"content"`
	Kind       string    `json:"kind"`
	Importance int       `json:"importance"`
	CreatedAt  time.Time `json:"created_at"`
}

// TickLogger and TranscriptLogger are optional durable event streams,
// implemented in internal/persistence/log.
type TickLogger interface {
	WriteTick(TickLogEntry) error
}

type TranscriptLogger interface {
	WriteTranscript(TranscriptEntry) error
}

type TickLogEntry struct {
	Tick          uint64         `json:"tick"`
	UnixMs        int64          `json:"unix_ms"`
	Statuses      map[string]int `json:"statuses"`
	Conversations int            `json:"conversations"`
	Clients       int            `json:"clients"`
}

type TranscriptEntry struct {
	ConversationID string `json:"conversation_id"`
	Event          string `json:"event"` // START | MESSAGE | END
	Speaker        int    `json:"speaker,omitempty"`
	Text           string `json:"text,omitempty"`
	Emotion        string `json:"emotion,omitempty"`
	Turn           int    `json:"turn,omitempty"`
	EndReason      string `json:"end_reason,omitempty"`
	UnixMs         int64  `json:"unix_ms"`
}

// Deps are the session's injected collaborators. Mind is required; the rest
// may be nil.
type Deps struct {
	Mind       Decider
	Store      Store
	TickLog    TickLogger
	Transcript TranscriptLogger
	Logger     *log.Logger
}

// AgentSeed is one roster row read at bootstrap.
type AgentSeed struct {
	ID      int
	Name    string
	X, Y    float64
	Color   string
	Profile mind.Profile
	// Memories, newest first, warms the decision context across restarts.
	Memories []string
}

// Session is the single-threaded authoritative actor. All fields below are
// accessed only from the run-loop goroutine (or via StepOnce in tests).
type Session struct {
	cfg  Config
	geo  geometry.Map
	grid *grid.Grid
	mind Decider
	deps Deps
	log  *log.Logger

	tick        atomic.Uint64
	nextTaskNum atomic.Uint64
	rng         *rand.Rand

	// Gauges mirrored by the actor for lock-free reads from /metrics.
	clientsGauge atomic.Int64
	convsGauge   atomic.Int64
	stepMicros   atomic.Int64

	agents map[int]*Agent
	order  []int // agent ids, ascending, for deterministic iteration

	// Per-agent animation handles. At most one per agent; starting a new move
	// drops the old handle after synchronizing the agent's position.
	moves map[int]*moveState

	conversations map[string]*Conversation
	// active is the ActiveConversationSet: agents committed to an encounter or
	// conversation, including the window between decision and record creation.
	active    map[int]struct{}
	cooldowns map[pairKey]time.Time
	// seeking is each engaged agent's pending pair, claimed when an encounter
	// triggers. A verdict landing after the agent was dragged away or claimed
	// by a newer encounter no longer matches its claim and is dropped.
	seeking map[int]pairKey

	clients map[string]*clientState

	inbox   chan Command
	join    chan JoinRequest
	leave   chan string
	results chan result
	stop    chan struct{}

	// pending counts in-flight async generation calls; owned by the actor.
	pending int
}

type clientState struct {
	Out chan []byte
}

type JoinRequest struct {
	ClientName string
	Out        chan []byte
	Resp       chan JoinResponse
}

type JoinResponse struct {
	ClientID string
	Welcome  protocol.WelcomeMsg
}

func New(cfg Config, geo geometry.Map, g *grid.Grid, seeds []AgentSeed, deps Deps) (*Session, error) {
	cfg.applyDefaults()
	if deps.Mind == nil {
		return nil, fmt.Errorf("session: Deps.Mind is required")
	}
	if g == nil {
		return nil, fmt.Errorf("session: nil grid")
	}
	if len(seeds) == 0 {
		return nil, fmt.Errorf("session: empty roster")
	}
	s := &Session{
		cfg:           cfg,
		geo:           geo,
		grid:          g,
		mind:          deps.Mind,
		deps:          deps,
		log:           deps.Logger,
		rng:           rand.New(rand.NewSource(cfg.Seed)),
		agents:        make(map[int]*Agent, len(seeds)),
		moves:         map[int]*moveState{},
		conversations: map[string]*Conversation{},
		active:        map[int]struct{}{},
		cooldowns:     map[pairKey]time.Time{},
		seeking:       map[int]pairKey{},
		clients:       map[string]*clientState{},
		inbox:         make(chan Command, 256),
		join:          make(chan JoinRequest, 8),
		leave:         make(chan string, 8),
		results:       make(chan result, 64),
		stop:          make(chan struct{}),
	}
	if s.log == nil {
		s.log = log.Default()
	}
	for _, seed := range seeds {
		if _, dup := s.agents[seed.ID]; dup {
			return nil, fmt.Errorf("session: duplicate agent id %d", seed.ID)
		}
		s.agents[seed.ID] = newAgent(seed)
		s.order = append(s.order, seed.ID)
	}
	sort.Ints(s.order)
	return s, nil
}

func (s *Session) Inbox() chan<- Command { return s.inbox }

func (s *Session) Join() chan<- JoinRequest { return s.join }

func (s *Session) Leave() chan<- string { return s.leave }

func (s *Session) CurrentTick() uint64 { return s.tick.Load() }

func (s *Session) Stop() { close(s.stop) }

// SessionMetrics is a read-model snapshot safe to call from any goroutine.
type SessionMetrics struct {
	Tick          uint64
	Agents        int
	Clients       int
	Conversations int
	InboxDepth    int
	StepMS        float64
}

func (s *Session) Metrics() SessionMetrics {
	return SessionMetrics{
		Tick:          s.tick.Load(),
		Agents:        len(s.order),
		Clients:       int(s.clientsGauge.Load()),
		Conversations: int(s.convsGauge.Load()),
		InboxDepth:    len(s.inbox),
		StepMS:        float64(s.stepMicros.Load()) / 1000.0,
	}
}

func (s *Session) sortedAgents() []*Agent {
	out := make([]*Agent, 0, len(s.order))
	for _, id := range s.order {
		out = append(out, s.agents[id])
	}
	return out
}

func (s *Session) handleJoin(req JoinRequest) {
	id := uuid.NewString()
	s.clients[id] = &clientState{Out: req.Out}
	s.clientsGauge.Store(int64(len(s.clients)))
	welcome := protocol.WelcomeMsg{
		Type:            protocol.TypeWelcome,
		ProtocolVersion: protocol.Version,
		SessionID:       s.cfg.SessionID,
		TickRateHz:      s.cfg.FrameRateHz,
		MapDigest:       s.cfg.MapDigest,
		Agents:          s.roster(),
	}
	if req.Resp != nil {
		req.Resp <- JoinResponse{ClientID: id, Welcome: welcome}
	}
}

func (s *Session) roster() []protocol.AgentView {
	out := make([]protocol.AgentView, 0, len(s.order))
	for _, a := range s.sortedAgents() {
		out = append(out, a.View())
	}
	return out
}

func (s *Session) saveAgent(a *Agent) {
	if s.deps.Store == nil {
		return
	}
	s.deps.Store.SaveAgent(AgentRecord{
		ID:     a.ID,
		Name:   a.Name,
		X:      a.Pos.X,
		Y:      a.Pos.Y,
		Color:  a.Color,
		Status: string(a.Status),
	})
}
