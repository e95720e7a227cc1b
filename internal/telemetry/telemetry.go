// Package telemetry records one JSON line per image operation to a local
// events file. Recording is strictly best-effort: the caller never depends on
// a write succeeding, and the default sink does nothing.
package telemetry

import (
	"encoding/json"
	"os"
	"path/filepath"
	"sync"
	"time"

	"github.com/google/uuid"
)

// Event describes one completed invocation.
type Event struct {
	ID        string `json:"id"`
	Timestamp string `json:"timestamp"`
	Operation string `json:"operation"`
	Model     string `json:"model"`
	Tier      string `json:"tier,omitempty"`
	Outcome   string `json:"outcome"`
	Code      string `json:"code,omitempty"`
}

// Sink consumes events. Implementations must be safe to call from the hot
// path and must never fail loudly.
type Sink interface {
	Record(event Event)
}

// Nop discards all events.
type Nop struct{}

func (Nop) Record(Event) {}

// FileSink appends events as JSONL. The parent directory is created on first
// use and the readiness is remembered for the process lifetime.
type FileSink struct {
	path string

	mu       sync.Mutex
	dirReady bool
}

// NewFileSink builds a sink writing to path.
func NewFileSink(path string) *FileSink {
	return &FileSink{path: path}
}

// Record appends one event. Errors are swallowed; telemetry loss is
// acceptable, a failed image operation is not.
func (s *FileSink) Record(event Event) {
	if s == nil || s.path == "" {
		return
	}
	if event.ID == "" {
		event.ID = uuid.NewString()
	}
	if event.Timestamp == "" {
		event.Timestamp = time.Now().UTC().Format(time.RFC3339)
	}

	line, err := json.Marshal(event)
	if err != nil {
		return
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	if !s.dirReady {
		if err := os.MkdirAll(filepath.Dir(s.path), 0o755); err != nil {
			return
		}
		s.dirReady = true
	}
	f, err := os.OpenFile(s.path, os.O_APPEND|os.O_CREATE|os.O_WRONLY, 0o644)
	if err != nil {
		return
	}
	defer f.Close()
	_, _ = f.Write(append(line, '\n'))
}

var _ Sink = Nop{}
var _ Sink = (*FileSink)(nil)
