package telemetry

import (
	"bufio"
	"encoding/json"
	"os"
	"path/filepath"
	"testing"
)

func TestFileSinkAppendsJSONLines(t *testing.T) {
	path := filepath.Join(t.TempDir(), "nested", "events.jsonl")
	sink := NewFileSink(path)

	sink.Record(Event{Operation: "gen", Model: "fal-ai/flux-2/turbo", Tier: "default", Outcome: "success"})
	sink.Record(Event{Operation: "edit", Model: "fal-ai/flux-2-flex/edit", Outcome: "failure", Code: "RATE_LIMIT"})

	f, err := os.Open(path)
	if err != nil {
		t.Fatalf("open events file: %v", err)
	}
	defer f.Close()

	var events []Event
	scanner := bufio.NewScanner(f)
	for scanner.Scan() {
		var e Event
		if err := json.Unmarshal(scanner.Bytes(), &e); err != nil {
			t.Fatalf("line not valid JSON: %v", err)
		}
		events = append(events, e)
	}
	if len(events) != 2 {
		t.Fatalf("got %d events, want 2", len(events))
	}
	if events[0].ID == "" || events[0].Timestamp == "" {
		t.Fatalf("missing generated id/timestamp: %#v", events[0])
	}
	if events[1].Code != "RATE_LIMIT" {
		t.Fatalf("code = %q", events[1].Code)
	}
}

func TestFileSinkWithoutPathIsSilent(t *testing.T) {
	var sink *FileSink
	sink.Record(Event{Operation: "gen"})
	NewFileSink("").Record(Event{Operation: "gen"})
}

func TestNopSink(t *testing.T) {
	var sink Sink = Nop{}
	sink.Record(Event{Operation: "gen"})
}
