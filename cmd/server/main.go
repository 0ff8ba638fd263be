package main

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"flag"
	"fmt"
	"log"
	"net/http"
	"net/http/pprof"
	"os"
	"os/signal"
	"path/filepath"
	"strings"
	"syscall"
	"time"

	"agentville.ai/internal/mind"
	persistlog "agentville.ai/internal/persistence/log"
	"agentville.ai/internal/persistence/store"
	"agentville.ai/internal/sim/geometry"
	"agentville.ai/internal/sim/grid"
	"agentville.ai/internal/sim/session"
	"agentville.ai/internal/sim/tuning"
	"agentville.ai/internal/transport/ws"
)

func main() {
	var (
		addr       = flag.String("addr", ":8080", "http listen address")
		sessionID  = flag.String("session", "village_1", "session id")
		seed       = flag.Int64("seed", 1337, "rng seed for wander targets")
		configDir  = flag.String("configs", "./configs", "config directory")
		dataDir    = flag.String("data", "./data", "runtime data directory")
		mapPath    = flag.String("map", "", "path to map.yaml (default: <configs>/map.yaml)")
		tuningPath = flag.String("tuning", "", "path to tuning.yaml (default: <configs>/tuning.yaml)")
		disableDB  = flag.Bool("disable_db", false, "disable the sqlite store (roster falls back to the built-in cast)")

		model   = flag.String("model", "", "chat model name (default: gpt-4o-mini)")
		baseURL = flag.String("openai_base_url", "", "OpenAI-compatible API base url (default: api.openai.com)")
	)
	flag.Parse()

	logger := log.New(os.Stdout, "[server] ", log.LstdFlags|log.Lmicroseconds)

	sessionDir := filepath.Join(*dataDir, "sessions", *sessionID)
	_ = os.MkdirAll(sessionDir, 0o755)

	mp := strings.TrimSpace(*mapPath)
	if mp == "" {
		mp = filepath.Join(*configDir, "map.yaml")
	}
	tp := strings.TrimSpace(*tuningPath)
	if tp == "" {
		tp = filepath.Join(*configDir, "tuning.yaml")
	}

	geo, digest, err := loadMap(mp, logger)
	if err != nil {
		logger.Fatalf("load map: %v", err)
	}
	g := grid.Build(geo)

	tune, err := tuning.Load(tp)
	if err != nil {
		if os.IsNotExist(err) {
			logger.Printf("tuning not found (%s); using defaults", tp)
			tune = tuning.Defaults()
		} else {
			logger.Fatalf("load tuning: %v", err)
		}
	}

	var db *store.Store
	var seeds []session.AgentSeed
	if *disableDB {
		seeds = store.DefaultRoster()
	} else {
		db, err = store.Open(filepath.Join(sessionDir, "village.db"))
		if err != nil {
			logger.Fatalf("open store: %v", err)
		}
		defer db.Close()
		if err := db.SeedRoster(store.DefaultRoster()); err != nil {
			logger.Fatalf("seed roster: %v", err)
		}
		seeds, err = db.LoadRoster()
		if err != nil {
			logger.Fatalf("load roster: %v", err)
		}
		for i := range seeds {
			mems, err := db.RecentMemories(seeds[i].ID, 5)
			if err != nil {
				logger.Printf("load memories for agent %d: %v", seeds[i].ID, err)
				continue
			}
			seeds[i].Memories = mems
		}
	}

	apiKey := strings.TrimSpace(os.Getenv("OPENAI_API_KEY"))
	if apiKey == "" {
		logger.Printf("OPENAI_API_KEY not set; decisions use the heuristic path and conversations end on first turn")
	}
	minds := mind.New(mind.NewClient(apiKey, strings.TrimSpace(*baseURL)), mind.Config{
		Model:               strings.TrimSpace(*model),
		Timeout:             time.Duration(tune.Decision.TimeoutSec) * time.Second,
		ConfidenceThreshold: tune.Decision.ConfidenceThreshold,
		SocialHourStart:     tune.Decision.SocialHourStart,
		SocialHourEnd:       tune.Decision.SocialHourEnd,
	}, logger)

	tickLog := persistlog.NewTickLogger(sessionDir)
	transcriptLog := persistlog.NewTranscriptLogger(sessionDir)
	defer tickLog.Close()
	defer transcriptLog.Close()

	cfg := session.ConfigFromTuning(tune)
	cfg.SessionID = *sessionID
	cfg.MapDigest = digest
	cfg.Seed = *seed

	deps := session.Deps{
		Mind:       minds,
		TickLog:    tickLog,
		Transcript: transcriptLog,
		Logger:     logger,
	}
	if db != nil {
		deps.Store = db
	}

	sess, err := session.New(cfg, geo, g, seeds, deps)
	if err != nil {
		logger.Fatalf("session: %v", err)
	}

	ctx, cancel := signalContext()
	defer cancel()

	sessDone := make(chan error, 1)
	go func() {
		sessDone <- sess.Run(ctx)
	}()

	mux := http.NewServeMux()
	mux.HandleFunc("/healthz", func(rw http.ResponseWriter, r *http.Request) {
		rw.WriteHeader(200)
		_, _ = rw.Write([]byte("ok"))
	})
	mux.HandleFunc("/metrics", func(rw http.ResponseWriter, r *http.Request) {
		rw.Header().Set("Content-Type", "text/plain; version=0.0.4")

		m := sess.Metrics()

		// Minimal Prometheus exposition format.
		fmt.Fprintf(rw, "# HELP agentville_session_tick Current simulation frame number.\n")
		fmt.Fprintf(rw, "# TYPE agentville_session_tick gauge\n")
		fmt.Fprintf(rw, "agentville_session_tick{session=%q} %d\n", *sessionID, m.Tick)

		fmt.Fprintf(rw, "# HELP agentville_session_agents Number of agents in the session.\n")
		fmt.Fprintf(rw, "# TYPE agentville_session_agents gauge\n")
		fmt.Fprintf(rw, "agentville_session_agents{session=%q} %d\n", *sessionID, m.Agents)

		fmt.Fprintf(rw, "# HELP agentville_session_clients Connected observer clients.\n")
		fmt.Fprintf(rw, "# TYPE agentville_session_clients gauge\n")
		fmt.Fprintf(rw, "agentville_session_clients{session=%q} %d\n", *sessionID, m.Clients)

		fmt.Fprintf(rw, "# HELP agentville_session_conversations Active conversations.\n")
		fmt.Fprintf(rw, "# TYPE agentville_session_conversations gauge\n")
		fmt.Fprintf(rw, "agentville_session_conversations{session=%q} %d\n", *sessionID, m.Conversations)

		fmt.Fprintf(rw, "# HELP agentville_session_inbox_depth Command channel backlog depth.\n")
		fmt.Fprintf(rw, "# TYPE agentville_session_inbox_depth gauge\n")
		fmt.Fprintf(rw, "agentville_session_inbox_depth{session=%q} %d\n", *sessionID, m.InboxDepth)

		fmt.Fprintf(rw, "# HELP agentville_session_step_ms Last frame step duration in milliseconds.\n")
		fmt.Fprintf(rw, "# TYPE agentville_session_step_ms gauge\n")
		fmt.Fprintf(rw, "agentville_session_step_ms{session=%q} %.3f\n", *sessionID, m.StepMS)
	})
	if envBool("AV_ENABLE_PPROF_HTTP", false) {
		mux.HandleFunc("/debug/pprof/", pprof.Index)
		mux.HandleFunc("/debug/pprof/cmdline", pprof.Cmdline)
		mux.HandleFunc("/debug/pprof/profile", pprof.Profile)
		mux.HandleFunc("/debug/pprof/symbol", pprof.Symbol)
		mux.HandleFunc("/debug/pprof/trace", pprof.Trace)
	}
	mux.HandleFunc("/v1/ws", ws.NewServer(sess, logger).Handler())

	srv := &http.Server{
		Addr:              *addr,
		Handler:           mux,
		ReadHeaderTimeout: 5 * time.Second,
	}

	go func() {
		<-ctx.Done()
		ctx2, cancel2 := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel2()
		_ = srv.Shutdown(ctx2)
	}()

	logger.Printf("listening on %s", *addr)
	if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
		logger.Fatalf("ListenAndServe: %v", err)
	}

	// The session writes the final roster on its way out; it must finish
	// before the deferred store close runs.
	if err := <-sessDone; err != nil && err != context.Canceled {
		logger.Printf("session stopped: %v", err)
	}
}

// loadMap reads the map file and hashes the raw bytes so clients can detect
// layout changes across reconnects. A missing file falls back to the built-in
// village.
func loadMap(path string, logger *log.Logger) (geometry.Map, string, error) {
	raw, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			logger.Printf("map not found (%s); using built-in village", path)
			return geometry.Defaults(), "builtin", nil
		}
		return geometry.Map{}, "", err
	}
	m, err := geometry.Load(path)
	if err != nil {
		return geometry.Map{}, "", err
	}
	sum := sha256.Sum256(raw)
	return m, hex.EncodeToString(sum[:8]), nil
}

func signalContext() (context.Context, context.CancelFunc) {
	ctx, cancel := context.WithCancel(context.Background())
	ch := make(chan os.Signal, 2)
	signal.Notify(ch, syscall.SIGINT, syscall.SIGTERM)
	go func() {
		<-ch
		cancel()
	}()
	return ctx, cancel
}

func envBool(name string, def bool) bool {
	switch strings.ToLower(strings.TrimSpace(os.Getenv(name))) {
	case "1", "true", "yes", "on":
		return true
	case "0", "false", "no", "off":
		return false
	default:
		return def
	}
}
