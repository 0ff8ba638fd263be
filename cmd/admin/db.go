package main

import (
	"database/sql"
	"flag"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	_ "modernc.org/sqlite"
)

// dbCmd runs one read-only query against the session database:
//
//	admin db [-session village_1] roster
//	admin db [-session village_1] conversations [-agent N] [-limit N]
//	admin db [-session village_1] memories -agent N [-limit N]
func dbCmd(args []string) {
	fs := flag.NewFlagSet("db", flag.ExitOnError)
	dataDir := fs.String("data", "./data", "runtime data directory")
	sessID := fs.String("session", "village_1", "session id")
	dbPath := fs.String("db", "", "sqlite db path (overrides -data/-session)")
	agentID := fs.Int("agent", 0, "agent id filter")
	limit := fs.Int("limit", 20, "result limit")
	_ = fs.Parse(args)

	q := "roster"
	if fs.NArg() > 0 {
		q = strings.TrimSpace(fs.Arg(0))
	}
	if *limit <= 0 {
		*limit = 20
	}

	path := strings.TrimSpace(*dbPath)
	if path == "" {
		path = filepath.Join(*dataDir, "sessions", *sessID, "village.db")
	}
	db, err := sql.Open("sqlite", path)
	if err != nil {
		fmt.Fprintln(os.Stderr, "open:", err)
		os.Exit(1)
	}
	defer db.Close()

	switch q {
	case "roster":
		rosterQuery(db)
	case "conversations":
		conversationsQuery(db, *agentID, *limit)
	case "memories":
		if *agentID == 0 {
			fmt.Fprintln(os.Stderr, "missing -agent")
			os.Exit(2)
		}
		memoriesQuery(db, *agentID, *limit)
	default:
		fmt.Fprintln(os.Stderr, "unknown query:", q)
		os.Exit(2)
	}
}

func rosterQuery(db *sql.DB) {
	rows, err := db.Query(`SELECT id,name,x,y,color,status,updated_at FROM agents ORDER BY id`)
	if err != nil {
		fmt.Fprintln(os.Stderr, "query:", err)
		os.Exit(1)
	}
	defer rows.Close()
	for rows.Next() {
		var r struct {
			ID        int     `json:"id"`
			Name      string  `json:"name"`
			X         float64 `json:"x"`
			Y         float64 `json:"y"`
			Color     string  `json:"color"`
			Status    string  `json:"status"`
			UpdatedAt string  `json:"updated_at"`
		}
		if err := rows.Scan(&r.ID, &r.Name, &r.X, &r.Y, &r.Color, &r.Status, &r.UpdatedAt); err != nil {
			fmt.Fprintln(os.Stderr, "scan:", err)
			os.Exit(1)
		}
		printJSON(r)
	}
	if err := rows.Err(); err != nil {
		fmt.Fprintln(os.Stderr, "rows:", err)
		os.Exit(1)
	}
}

func conversationsQuery(db *sql.DB, agentID, limit int) {
	query := `SELECT id,participant_a,participant_b,location,start_time,end_time,status,end_reason FROM conversations`
	args := []any{}
	if agentID != 0 {
		query += ` WHERE participant_a=? OR participant_b=?`
		args = append(args, agentID, agentID)
	}
	query += ` ORDER BY start_time DESC LIMIT ?`
	args = append(args, limit)

	rows, err := db.Query(query, args...)
	if err != nil {
		fmt.Fprintln(os.Stderr, "query:", err)
		os.Exit(1)
	}
	defer rows.Close()
	for rows.Next() {
		var r struct {
			ID           string `json:"id"`
			ParticipantA int    `json:"participant_a"`
			ParticipantB int    `json:"participant_b"`
			Location     string `json:"location"`
			StartTime    string `json:"start_time"`
			EndTime      string `json:"end_time,omitempty"`
			Status       string `json:"status"`
			EndReason    string `json:"end_reason,omitempty"`
		}
		var endTime, endReason sql.NullString
		if err := rows.Scan(&r.ID, &r.ParticipantA, &r.ParticipantB, &r.Location, &r.StartTime, &endTime, &r.Status, &endReason); err != nil {
			fmt.Fprintln(os.Stderr, "scan:", err)
			os.Exit(1)
		}
		r.EndTime = endTime.String
		r.EndReason = endReason.String
		printJSON(r)
	}
	if err := rows.Err(); err != nil {
		fmt.Fprintln(os.Stderr, "rows:", err)
		os.Exit(1)
	}
}

func memoriesQuery(db *sql.DB, agentID, limit int) {
	rows, err := db.Query(
		`SELECT id,content,kind,importance,created_at FROM memories WHERE agent_id=? ORDER BY created_at DESC LIMIT ?`,
		agentID, limit,
	)
	if err != nil {
		fmt.Fprintln(os.Stderr, "query:", err)
		os.Exit(1)
	}
	defer rows.Close()
	for rows.Next() {
		var r struct {
			ID         string `json:"id"`
			Content    string `json:"content"`
			Kind       string `json:"kind"`
			Importance int    `json:"importance"`
			CreatedAt  string `json:"created_at"`
		}
		if err := rows.Scan(&r.ID, &r.Content, &r.Kind, &r.Importance, &r.CreatedAt); err != nil {
			fmt.Fprintln(os.Stderr, "scan:", err)
			os.Exit(1)
		}
		printJSON(r)
	}
	if err := rows.Err(); err != nil {
		fmt.Fprintln(os.Stderr, "rows:", err)
		os.Exit(1)
	}
}
