// Package replay records matches as zstd-compressed JSON lines: a header
// line followed by one line per played turn.
package replay

import (
	"bufio"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sync"
	"time"

	"github.com/charmbracelet/log"
	"github.com/klauspost/compress/zstd"

	"github.com/vovakirdan/robot-arena/internal/game"
)

// Version is the current file format version.
const Version = 1

// Header is the first line of a replay file.
type Header struct {
	Version  int       `json:"version"`
	MatchID  string    `json:"match_id"`
	Seed     int64     `json:"seed"`
	MaxTurns int       `json:"max_turns"`
	Agents   [2]string `json:"agents"`
	Created  time.Time `json:"created_at"`
}

// Turn is one played turn.
type Turn struct {
	Turn    int               `json:"turn"`
	Scores  [2]int            `json:"scores"`
	Records []game.TurnRecord `json:"records"`
}

// TurnFromEvent converts a published turn into its replay line.
func TurnFromEvent(ev game.TurnEvent) Turn {
	return Turn{
		Turn:    ev.Turn,
		Scores:  ev.State.Scores(),
		Records: ev.Records.Sorted(),
	}
}

// Writer appends a replay to a file. It is safe for concurrent use.
type Writer struct {
	mu     sync.Mutex
	f      *os.File
	enc    *zstd.Encoder
	w      *bufio.Writer
	header bool
}

// Create opens a new replay file, creating parent directories.
func Create(path string) (*Writer, error) {
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return nil, fmt.Errorf("replay: cannot create directory: %w", err)
	}
	f, err := os.Create(path)
	if err != nil {
		return nil, fmt.Errorf("replay: cannot create file: %w", err)
	}
	enc, err := zstd.NewWriter(f, zstd.WithEncoderLevel(zstd.SpeedFastest))
	if err != nil {
		_ = f.Close()
		return nil, fmt.Errorf("replay: cannot start compressor: %w", err)
	}
	return &Writer{f: f, enc: enc, w: bufio.NewWriterSize(enc, 64*1024)}, nil
}

// WriteHeader writes the header line. It must come first, exactly once.
func (w *Writer) WriteHeader(h Header) error {
	w.mu.Lock()
	defer w.mu.Unlock()

	if w.header {
		return errors.New("replay: header already written")
	}
	if h.Version == 0 {
		h.Version = Version
	}
	if h.Created.IsZero() {
		h.Created = time.Now().UTC()
	}
	w.header = true
	return w.writeLocked(h)
}

// WriteTurn appends one turn.
func (w *Writer) WriteTurn(t Turn) error {
	w.mu.Lock()
	defer w.mu.Unlock()

	if !w.header {
		return errors.New("replay: turn written before header")
	}
	return w.writeLocked(t)
}

// Hook returns a game turn hook that appends every published turn.
// Write failures are logged; a broken replay never stops the match.
func (w *Writer) Hook(logger *log.Logger) func(game.TurnEvent) {
	return func(ev game.TurnEvent) {
		if err := w.WriteTurn(TurnFromEvent(ev)); err != nil {
			logger.Warn("cannot write replay turn", "turn", ev.Turn, "error", err)
		}
	}
}

func (w *Writer) writeLocked(v any) error {
	if w.w == nil {
		return errors.New("replay: writer closed")
	}
	b, err := json.Marshal(v)
	if err != nil {
		return fmt.Errorf("replay: encode: %w", err)
	}
	if _, err := w.w.Write(b); err != nil {
		return fmt.Errorf("replay: write: %w", err)
	}
	if err := w.w.WriteByte('\n'); err != nil {
		return fmt.Errorf("replay: write: %w", err)
	}
	return nil
}

// Close flushes and closes the file.
func (w *Writer) Close() error {
	w.mu.Lock()
	defer w.mu.Unlock()

	if w.w == nil {
		return nil
	}
	errFlush := w.w.Flush()
	errEnc := w.enc.Close()
	errFile := w.f.Close()
	w.w, w.enc, w.f = nil, nil, nil
	if err := errors.Join(errFlush, errEnc, errFile); err != nil {
		return fmt.Errorf("replay: close: %w", err)
	}
	return nil
}

// Replay is a fully loaded replay file.
type Replay struct {
	Header Header
	Turns  []Turn
}

// Records returns the records of turn, if it was recorded.
func (r *Replay) Records(turn int) (game.TurnRecords, bool) {
	for _, t := range r.Turns {
		if t.Turn == turn {
			return game.RecordsOf(t.Records), true
		}
	}
	return nil, false
}

// ReadFile loads a replay written by Writer.
func ReadFile(path string) (*Replay, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("replay: %w", err)
	}
	defer f.Close()

	dec, err := zstd.NewReader(f)
	if err != nil {
		return nil, fmt.Errorf("replay: cannot start decompressor: %w", err)
	}
	defer dec.Close()

	sc := bufio.NewScanner(dec)
	sc.Buffer(make([]byte, 64*1024), 8*1024*1024)

	var r Replay
	line := 0
	for sc.Scan() {
		line++
		if line == 1 {
			if err := json.Unmarshal(sc.Bytes(), &r.Header); err != nil {
				return nil, fmt.Errorf("replay: %s: header: %w", filepath.Base(path), err)
			}
			if r.Header.Version != Version {
				return nil, fmt.Errorf("replay: unsupported version %d", r.Header.Version)
			}
			continue
		}
		var t Turn
		if err := json.Unmarshal(sc.Bytes(), &t); err != nil {
			return nil, fmt.Errorf("replay: %s: line %d: %w", filepath.Base(path), line, err)
		}
		r.Turns = append(r.Turns, t)
	}
	if err := sc.Err(); err != nil {
		return nil, fmt.Errorf("replay: %s: %w", filepath.Base(path), err)
	}
	if line == 0 {
		return nil, fmt.Errorf("replay: %s is empty", filepath.Base(path))
	}
	return &r, nil
}
