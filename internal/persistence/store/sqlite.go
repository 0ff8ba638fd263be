// Package store persists the agent roster, conversation history, and
// distilled memories in SQLite. Writes go through a single writer goroutine
// fed by a buffered channel; the simulation never blocks on, or depends on,
// a write landing.
package store

import (
	"database/sql"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"sync"
	"time"

	_ "modernc.org/sqlite"

	"agentville.ai/internal/mind"
	"agentville.ai/internal/sim/session"
)

type Store struct {
	db *sql.DB

	ch   chan req
	wg   sync.WaitGroup
	once sync.Once

	// mu orders enqueues against Close so a send never races close(ch).
	mu     sync.RWMutex
	closed bool
}

type reqKind int

const (
	reqAgent reqKind = iota + 1
	reqConversation
	reqMemory
)

type req struct {
	kind         reqKind
	agent        session.AgentRecord
	conversation session.ConversationRecord
	memory       session.MemoryRecord
}

func Open(path string) (*Store, error) {
	if path == "" {
		return nil, fmt.Errorf("empty db path")
	}
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return nil, err
	}

	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, err
	}
	db.SetMaxOpenConns(1)
	db.SetMaxIdleConns(1)
	db.SetConnMaxLifetime(0)

	if err := initPragmas(db); err != nil {
		_ = db.Close()
		return nil, err
	}
	if err := initSchema(db); err != nil {
		_ = db.Close()
		return nil, err
	}

	s := &Store{
		db: db,
		ch: make(chan req, 4096),
	}
	s.wg.Add(1)
	go func() {
		defer s.wg.Done()
		s.loop()
	}()
	return s, nil
}

func initPragmas(db *sql.DB) error {
	// WAL suits the append-style write load; NORMAL is plenty for a store the
	// simulation can survive losing.
	pragmas := []string{
		"PRAGMA journal_mode=WAL;",
		"PRAGMA synchronous=NORMAL;",
		"PRAGMA busy_timeout=5000;",
	}
	for _, p := range pragmas {
		if _, err := db.Exec(p); err != nil {
			return err
		}
	}
	return nil
}

func initSchema(db *sql.DB) error {
	stmts := []string{
		`CREATE TABLE IF NOT EXISTS agents (
			id INTEGER PRIMARY KEY,
			name TEXT NOT NULL,
			x REAL NOT NULL,
			y REAL NOT NULL,
			color TEXT NOT NULL,
			status TEXT NOT NULL,
			profile_json TEXT NOT NULL,
			updated_at TEXT NOT NULL
		);`,
		`CREATE TABLE IF NOT EXISTS conversations (
			id TEXT PRIMARY KEY,
			participant_a INTEGER NOT NULL,
			participant_b INTEGER NOT NULL,
			location TEXT NOT NULL,
			start_time TEXT NOT NULL,
			end_time TEXT,
			status TEXT NOT NULL,
			end_reason TEXT,
			messages_json TEXT NOT NULL
		);`,
		`CREATE INDEX IF NOT EXISTS idx_conversations_participants ON conversations(participant_a, participant_b);`,
		`CREATE TABLE IF NOT EXISTS memories (
			id TEXT PRIMARY KEY,
			agent_id INTEGER NOT NULL,
			content TEXT NOT NULL,
			kind TEXT NOT NULL,
			importance INTEGER NOT NULL,
			created_at TEXT NOT NULL
		);`,
		`CREATE INDEX IF NOT EXISTS idx_memories_agent ON memories(agent_id, created_at);`,
	}
	for _, s := range stmts {
		if _, err := db.Exec(s); err != nil {
			return err
		}
	}
	return nil
}

func (s *Store) Close() error {
	var err error
	s.once.Do(func() {
		s.mu.Lock()
		s.closed = true
		close(s.ch)
		s.mu.Unlock()
		s.wg.Wait()
		err = s.db.Close()
	})
	return err
}

// SaveAgent, SaveConversation, and SaveMemory enqueue without blocking. Drops
// under backpressure are acceptable: the next write for the same row
// supersedes, and the transcript JSONL log remains the source of truth.
func (s *Store) SaveAgent(rec session.AgentRecord) {
	s.enqueue(req{kind: reqAgent, agent: rec})
}

func (s *Store) SaveConversation(rec session.ConversationRecord) {
	s.enqueue(req{kind: reqConversation, conversation: rec})
}

func (s *Store) SaveMemory(rec session.MemoryRecord) {
	s.enqueue(req{kind: reqMemory, memory: rec})
}

func (s *Store) enqueue(r req) {
	if s == nil {
		return
	}
	s.mu.RLock()
	defer s.mu.RUnlock()
	if s.closed {
		return
	}
	select {
	case s.ch <- r:
	default:
	}
}

func (s *Store) loop() {
	for r := range s.ch {
		switch r.kind {
		case reqAgent:
			a := r.agent
			_, _ = s.db.Exec(
				`UPDATE agents SET x=?, y=?, status=?, updated_at=? WHERE id=?`,
				a.X, a.Y, a.Status, nowRFC3339(), a.ID,
			)
		case reqConversation:
			c := r.conversation
			msgs, _ := json.Marshal(c.Messages)
			endTime := ""
			if !c.EndTime.IsZero() {
				endTime = c.EndTime.UTC().Format(time.RFC3339Nano)
			}
			_, _ = s.db.Exec(
				`INSERT OR REPLACE INTO conversations(id,participant_a,participant_b,location,start_time,end_time,status,end_reason,messages_json)
				 VALUES(?,?,?,?,?,?,?,?,?)`,
				c.ID, c.Participants[0], c.Participants[1], c.Location,
				c.StartTime.UTC().Format(time.RFC3339Nano), endTime,
				c.Status, c.EndReason, string(msgs),
			)
		case reqMemory:
			m := r.memory
			_, _ = s.db.Exec(
				`INSERT OR REPLACE INTO memories(id,agent_id,content,kind,importance,created_at) VALUES(?,?,?,?,?,?)`,
				m.ID, m.AgentID, m.Content, m.Kind, m.Importance,
				m.CreatedAt.UTC().Format(time.RFC3339Nano),
			)
		}
	}
}

// LoadRoster reads the persisted agent roster synchronously; it runs only at
// bootstrap, before the session starts.
func (s *Store) LoadRoster() ([]session.AgentSeed, error) {
	rows, err := s.db.Query(`SELECT id, name, x, y, color, profile_json FROM agents ORDER BY id`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []session.AgentSeed
	for rows.Next() {
		var seed session.AgentSeed
		var profileJSON string
		if err := rows.Scan(&seed.ID, &seed.Name, &seed.X, &seed.Y, &seed.Color, &profileJSON); err != nil {
			return nil, err
		}
		if err := json.Unmarshal([]byte(profileJSON), &seed.Profile); err != nil {
			return nil, fmt.Errorf("agent %d: profile: %w", seed.ID, err)
		}
		out = append(out, seed)
	}
	return out, rows.Err()
}

// SeedRoster inserts the given agents if the roster table is empty.
func (s *Store) SeedRoster(seeds []session.AgentSeed) error {
	var n int
	if err := s.db.QueryRow(`SELECT COUNT(*) FROM agents`).Scan(&n); err != nil {
		return err
	}
	if n > 0 {
		return nil
	}
	for _, seed := range seeds {
		profileJSON, err := json.Marshal(seed.Profile)
		if err != nil {
			return err
		}
		if _, err := s.db.Exec(
			`INSERT INTO agents(id,name,x,y,color,status,profile_json,updated_at) VALUES(?,?,?,?,?,?,?,?)`,
			seed.ID, seed.Name, seed.X, seed.Y, seed.Color, "idle", string(profileJSON), nowRFC3339(),
		); err != nil {
			return err
		}
	}
	return nil
}

// RecentMemories returns the newest memory contents for one agent, newest
// first. Used only at bootstrap to warm the decision context.
func (s *Store) RecentMemories(agentID, limit int) ([]string, error) {
	if limit <= 0 {
		limit = 5
	}
	rows, err := s.db.Query(
		`SELECT content FROM memories WHERE agent_id=? ORDER BY created_at DESC LIMIT ?`,
		agentID, limit,
	)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []string
	for rows.Next() {
		var c string
		if err := rows.Scan(&c); err != nil {
			return nil, err
		}
		out = append(out, c)
	}
	return out, rows.Err()
}

// DefaultRoster is the built-in village cast used when the database is empty.
func DefaultRoster() []session.AgentSeed {
	return []session.AgentSeed{
		{
			ID: 1, Name: "Maya", X: 200, Y: 150, Color: "#e06666",
			Profile: mind.Profile{
				ID:         1,
				Name:       "Maya",
				Traits:     mind.Traits{Extraversion: 0.85, Agreeableness: 0.7},
				Interests:  []string{"painting", "coffee", "gardening"},
				Background: "a painter who runs the village cafe",
				Mood:       "happy",
			},
		},
		{
			ID: 2, Name: "Theo", X: 950, Y: 620, Color: "#6fa8dc",
			Profile: mind.Profile{
				ID:         2,
				Name:       "Theo",
				Traits:     mind.Traits{Extraversion: 0.3, Agreeableness: 0.8},
				Interests:  []string{"books", "history", "coffee"},
				Background: "the librarian, quiet but warm",
				Mood:       "neutral",
			},
		},
		{
			ID: 3, Name: "Ines", X: 400, Y: 500, Color: "#93c47d",
			Profile: mind.Profile{
				ID:         3,
				Name:       "Ines",
				Traits:     mind.Traits{Extraversion: 0.6, Agreeableness: 0.45},
				Interests:  []string{"gardening", "cooking"},
				Background: "keeps the plaza garden and argues about tomatoes",
				Mood:       "excited",
			},
		},
		{
			ID: 4, Name: "Rafe", X: 650, Y: 380, Color: "#ffd966",
			Profile: mind.Profile{
				ID:         4,
				Name:       "Rafe",
				Traits:     mind.Traits{Extraversion: 0.5, Agreeableness: 0.55},
				Interests:  []string{"music", "history"},
				Background: "a wandering fiddler who never leaves",
				Mood:       "tired",
			},
		},
	}
}

func nowRFC3339() string {
	return time.Now().UTC().Format(time.RFC3339Nano)
}
