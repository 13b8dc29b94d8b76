// Package analytics tracks QR-scan events. Events live in an in-memory
// buffer and are appended to a flat JSON-lines file on flush; the file is
// replayed at startup so summaries survive restarts.
package analytics

import (
	"bufio"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"
)

// Event is one recorded QR scan.
type Event struct {
	ID        string    `json:"id"`
	StationID string    `json:"stationId"`
	Source    string    `json:"source,omitempty"`
	UserAgent string    `json:"userAgent,omitempty"`
	Timestamp time.Time `json:"timestamp"`
}

// Summary aggregates scan counts.
type Summary struct {
	Total      int            `json:"total"`
	PerStation map[string]int `json:"perStation"`
	PerDay     map[string]int `json:"perDay"` // key: YYYY-MM-DD
}

// Tracker buffers events and persists them to a flat file.
type Tracker struct {
	mu     sync.Mutex
	buffer []Event
	recent []Event // last events across flushes, newest last

	total      int
	perStation map[string]int
	perDay     map[string]int

	path      string
	flushSize int
	log       zerolog.Logger

	now func() time.Time
}

const recentLimit = 200

// NewTracker creates a tracker persisting to path and replays any existing
// file into the summary counters.
func NewTracker(path string, flushSize int, log zerolog.Logger) (*Tracker, error) {
	if flushSize <= 0 {
		flushSize = 50
	}

	t := &Tracker{
		path:       path,
		flushSize:  flushSize,
		log:        log,
		perStation: make(map[string]int),
		perDay:     make(map[string]int),
		now:        time.Now,
	}

	if err := t.replay(); err != nil {
		return nil, err
	}
	return t, nil
}

// Record buffers a scan event, assigning id and timestamp when absent.
// The buffer is flushed once it reaches the configured size.
func (t *Tracker) Record(e Event) Event {
	if e.ID == "" {
		e.ID = uuid.NewString()
	}
	if e.Timestamp.IsZero() {
		e.Timestamp = t.now().UTC()
	}

	t.mu.Lock()
	t.buffer = append(t.buffer, e)
	t.addToSummary(e)
	t.recent = append(t.recent, e)
	if len(t.recent) > recentLimit {
		t.recent = t.recent[len(t.recent)-recentLimit:]
	}
	needFlush := len(t.buffer) >= t.flushSize
	t.mu.Unlock()

	if needFlush {
		if err := t.Flush(); err != nil {
			t.log.Error().Err(err).Msg("analytics flush failed")
		}
	}
	return e
}

// Recent returns up to n of the latest events, newest first.
func (t *Tracker) Recent(n int) []Event {
	t.mu.Lock()
	defer t.mu.Unlock()

	if n <= 0 || n > len(t.recent) {
		n = len(t.recent)
	}
	out := make([]Event, n)
	for i := 0; i < n; i++ {
		out[i] = t.recent[len(t.recent)-1-i]
	}
	return out
}

// Summarize returns aggregate counts including buffered events.
func (t *Tracker) Summarize() Summary {
	t.mu.Lock()
	defer t.mu.Unlock()

	s := Summary{
		Total:      t.total,
		PerStation: make(map[string]int, len(t.perStation)),
		PerDay:     make(map[string]int, len(t.perDay)),
	}
	for k, v := range t.perStation {
		s.PerStation[k] = v
	}
	for k, v := range t.perDay {
		s.PerDay[k] = v
	}
	return s
}

// Flush appends buffered events to the flat file and empties the buffer.
// Called on the buffer threshold, by the poller, and synchronously on
// shutdown.
func (t *Tracker) Flush() error {
	t.mu.Lock()
	pending := t.buffer
	t.buffer = nil
	t.mu.Unlock()

	if len(pending) == 0 {
		return nil
	}

	if err := os.MkdirAll(filepath.Dir(t.path), 0o755); err != nil {
		t.requeue(pending)
		return fmt.Errorf("creating analytics dir: %w", err)
	}

	f, err := os.OpenFile(t.path, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0o644)
	if err != nil {
		t.requeue(pending)
		return fmt.Errorf("opening analytics file: %w", err)
	}
	defer f.Close()

	w := bufio.NewWriter(f)
	for _, e := range pending {
		line, err := json.Marshal(e)
		if err != nil {
			t.requeue(pending)
			return fmt.Errorf("encoding analytics event: %w", err)
		}
		w.Write(line)
		w.WriteByte('\n')
	}
	if err := w.Flush(); err != nil {
		t.requeue(pending)
		return fmt.Errorf("writing analytics file: %w", err)
	}

	t.log.Debug().Int("events", len(pending)).Msg("analytics buffer flushed")
	return nil
}

// requeue puts events back at the front of the buffer after a failed flush.
func (t *Tracker) requeue(events []Event) {
	t.mu.Lock()
	t.buffer = append(events, t.buffer...)
	t.mu.Unlock()
}

func (t *Tracker) addToSummary(e Event) {
	t.total++
	t.perStation[e.StationID]++
	t.perDay[e.Timestamp.UTC().Format("2006-01-02")]++
}

// replay seeds counters from the persisted file. Corrupt lines are skipped.
func (t *Tracker) replay() error {
	f, err := os.Open(t.path)
	if err != nil {
		if os.IsNotExist(err) {
			return nil
		}
		return fmt.Errorf("opening analytics file: %w", err)
	}
	defer f.Close()

	scanner := bufio.NewScanner(f)
	var skipped int
	for scanner.Scan() {
		var e Event
		if err := json.Unmarshal(scanner.Bytes(), &e); err != nil {
			skipped++
			continue
		}
		t.addToSummary(e)
		t.recent = append(t.recent, e)
	}
	if err := scanner.Err(); err != nil {
		return fmt.Errorf("reading analytics file: %w", err)
	}

	sort.Slice(t.recent, func(i, j int) bool { return t.recent[i].Timestamp.Before(t.recent[j].Timestamp) })
	if len(t.recent) > recentLimit {
		t.recent = t.recent[len(t.recent)-recentLimit:]
	}
	if skipped > 0 {
		t.log.Warn().Int("lines", skipped).Msg("skipped corrupt analytics lines")
	}
	return nil
}
