package log

import (
	"io"
	"os"
	"path/filepath"
	"testing"
	"time"
)

func createTestLogFile(t *testing.T, events []Event) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "test.oblog")

	logger, err := NewFileLogger(path)
	if err != nil {
		t.Fatalf("failed to create test log: %v", err)
	}
	for _, e := range events {
		logger.Log(e)
	}
	logger.Close()
	return path
}

func readAll(t *testing.T, r *Reader) []Event {
	t.Helper()
	var read []Event
	for {
		event, err := r.Next()
		if err == io.EOF {
			return read
		}
		if err != nil {
			t.Fatalf("Next failed: %v", err)
		}
		read = append(read, event)
	}
}

func TestReaderIteratesEvents(t *testing.T) {
	events := []Event{
		{Timestamp: time.Now(), SessionID: "run-1", Layer: LayerEngine, Category: CategoryState},
		{Timestamp: time.Now(), SessionID: "run-2", Layer: LayerWiFi, Category: CategoryAction},
		{Timestamp: time.Now(), SessionID: "run-3", Layer: LayerDiscovery, Category: CategoryAnnouncement},
	}
	path := createTestLogFile(t, events)

	reader, err := NewReader(path)
	if err != nil {
		t.Fatalf("NewReader failed: %v", err)
	}
	defer reader.Close()

	read := readAll(t, reader)
	if len(read) != 3 {
		t.Fatalf("got %d events, want 3", len(read))
	}
	if read[0].SessionID != "run-1" || read[2].SessionID != "run-3" {
		t.Errorf("events out of order: %q .. %q", read[0].SessionID, read[2].SessionID)
	}
}

func TestReaderHandlesEmptyFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "empty.oblog")
	logger, _ := NewFileLogger(path)
	logger.Close()

	reader, err := NewReader(path)
	if err != nil {
		t.Fatalf("NewReader failed: %v", err)
	}
	defer reader.Close()

	if _, err := reader.Next(); err != io.EOF {
		t.Errorf("expected io.EOF, got %v", err)
	}
}

func TestReaderReportsTruncatedEvent(t *testing.T) {
	path := createTestLogFile(t, []Event{
		{Timestamp: time.Now(), SessionID: "run-1", Layer: LayerEngine, Category: CategoryState,
			StateChange: &StateChangeEvent{NewState: "CONNECTING_ONBOARDEE"}},
	})

	data, err := os.ReadFile(path)
	if err != nil {
		t.Fatal(err)
	}
	if err := os.WriteFile(path, data[:len(data)-3], 0644); err != nil {
		t.Fatal(err)
	}

	reader, err := NewReader(path)
	if err != nil {
		t.Fatalf("NewReader failed: %v", err)
	}
	defer reader.Close()

	if _, err := reader.Next(); err == nil || err == io.EOF {
		t.Errorf("expected decode error, got %v", err)
	}
}

func TestReaderFilters(t *testing.T) {
	base := time.Date(2026, 3, 2, 10, 0, 0, 0, time.UTC)
	events := []Event{
		{Timestamp: base.Add(-time.Hour), SessionID: "A", Layer: LayerEngine, Category: CategoryState, Phase: "ONBOARDEE"},
		{Timestamp: base, SessionID: "B", Layer: LayerWiFi, Category: CategoryAction, Phase: "TARGET", DeviceID: "dev-1"},
		{Timestamp: base.Add(time.Minute), SessionID: "A", Layer: LayerEngine, Category: CategoryError, Phase: "TARGET", DeviceID: "dev-1"},
		{Timestamp: base.Add(time.Hour), SessionID: "A", Layer: LayerDiscovery, Category: CategoryAnnouncement, Phase: "TARGET"},
	}
	path := createTestLogFile(t, events)

	layer := LayerEngine
	category := CategoryError
	start := base
	end := base.Add(30 * time.Minute)

	tests := []struct {
		name   string
		filter Filter
		want   int
	}{
		{"Session", Filter{SessionID: "A"}, 3},
		{"Layer", Filter{Layer: &layer}, 2},
		{"Category", Filter{Category: &category}, 1},
		{"Phase", Filter{Phase: "TARGET"}, 3},
		{"Device", Filter{DeviceID: "dev-1"}, 2},
		{"TimeRange", Filter{TimeStart: &start, TimeEnd: &end}, 2},
		{"Combined", Filter{SessionID: "A", Phase: "TARGET", Layer: &layer}, 1},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			reader, err := NewFilteredReader(path, tt.filter)
			if err != nil {
				t.Fatalf("NewFilteredReader failed: %v", err)
			}
			defer reader.Close()

			if got := len(readAll(t, reader)); got != tt.want {
				t.Errorf("got %d events, want %d", got, tt.want)
			}
		})
	}
}
