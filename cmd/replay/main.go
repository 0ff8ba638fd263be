// Command replay reads the compressed JSONL streams the server writes under
// its data directory and renders them for inspection: full conversation
// transcripts, or a per-hour tick summary. The transcript stream is the
// durable record of every conversation, so this is also the recovery path
// when the database has been lost.
package main

import (
	"bufio"
	"encoding/json"
	"flag"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"time"

	"github.com/klauspost/compress/zstd"

	"agentville.ai/internal/sim/session"
)

func main() {
	var (
		dataDir = flag.String("data", "./data", "runtime data directory")
		sessID  = flag.String("session", "village_1", "session id")
		convID  = flag.String("conversation", "", "print only this conversation id")
		ticks   = flag.Bool("ticks", false, "summarize the tick stream instead of transcripts")
	)
	flag.Parse()

	base := filepath.Join(*dataDir, "sessions", *sessID)
	if *ticks {
		if err := summarizeTicks(filepath.Join(base, "ticks")); err != nil {
			fmt.Fprintln(os.Stderr, "ticks:", err)
			os.Exit(1)
		}
		return
	}
	if err := printTranscripts(filepath.Join(base, "transcripts"), *convID); err != nil {
		fmt.Fprintln(os.Stderr, "transcripts:", err)
		os.Exit(1)
	}
}

// streamFiles lists the hourly segments for one stream, oldest first. The
// hour stamp sorts lexicographically, so a name sort is a time sort.
func streamFiles(dir, prefix string) ([]string, error) {
	matches, err := filepath.Glob(filepath.Join(dir, prefix+"-*.jsonl.zst"))
	if err != nil {
		return nil, err
	}
	sort.Strings(matches)
	return matches, nil
}

func eachLine(path string, fn func([]byte) error) error {
	f, err := os.Open(path)
	if err != nil {
		return err
	}
	defer f.Close()
	dec, err := zstd.NewReader(f)
	if err != nil {
		return err
	}
	defer dec.Close()

	sc := bufio.NewScanner(dec)
	sc.Buffer(make([]byte, 0, 64*1024), 4*1024*1024)
	for sc.Scan() {
		if len(sc.Bytes()) == 0 {
			continue
		}
		if err := fn(sc.Bytes()); err != nil {
			return err
		}
	}
	return sc.Err()
}

func printTranscripts(dir, onlyConv string) error {
	files, err := streamFiles(dir, "transcripts")
	if err != nil {
		return err
	}
	if len(files) == 0 {
		return fmt.Errorf("no transcript segments under %s", dir)
	}
	for _, path := range files {
		err := eachLine(path, func(line []byte) error {
			var e session.TranscriptEntry
			if err := json.Unmarshal(line, &e); err != nil {
				return fmt.Errorf("%s: %w", filepath.Base(path), err)
			}
			if onlyConv != "" && e.ConversationID != onlyConv {
				return nil
			}
			printEntry(e)
			return nil
		})
		if err != nil {
			return err
		}
	}
	return nil
}

func printEntry(e session.TranscriptEntry) {
	ts := time.UnixMilli(e.UnixMs).UTC().Format("15:04:05")
	switch e.Event {
	case "START":
		fmt.Printf("%s  %s  START\n", ts, e.ConversationID)
	case "MESSAGE":
		emotion := ""
		if e.Emotion != "" {
			emotion = " [" + e.Emotion + "]"
		}
		fmt.Printf("%s  %s  #%d agent %d%s: %s\n", ts, e.ConversationID, e.Turn, e.Speaker, emotion, e.Text)
	case "END":
		fmt.Printf("%s  %s  END (%s)\n", ts, e.ConversationID, e.EndReason)
	}
}

func summarizeTicks(dir string) error {
	files, err := streamFiles(dir, "ticks")
	if err != nil {
		return err
	}
	if len(files) == 0 {
		return fmt.Errorf("no tick segments under %s", dir)
	}
	for _, path := range files {
		var (
			n         int
			firstTick uint64
			lastTick  uint64
			maxConvs  int
			maxWalk   int
		)
		err := eachLine(path, func(line []byte) error {
			var e session.TickLogEntry
			if err := json.Unmarshal(line, &e); err != nil {
				return fmt.Errorf("%s: %w", filepath.Base(path), err)
			}
			if n == 0 {
				firstTick = e.Tick
			}
			lastTick = e.Tick
			n++
			if e.Conversations > maxConvs {
				maxConvs = e.Conversations
			}
			if w := e.Statuses["walking"]; w > maxWalk {
				maxWalk = w
			}
			return nil
		})
		if err != nil {
			return err
		}
		fmt.Printf("%s  entries=%d ticks=%d..%d peak_conversations=%d peak_walking=%d\n",
			filepath.Base(path), n, firstTick, lastTick, maxConvs, maxWalk)
	}
	return nil
}
