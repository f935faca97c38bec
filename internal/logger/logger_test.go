package logger

import (
	"bytes"
	"encoding/json"
	"errors"
	"strings"
	"testing"
	"time"
)

func TestLogger_Log(t *testing.T) {
	tests := []struct {
		name    string
		level   Level
		message string
		fields  Fields
		err     error
		want    bool // should log
	}{
		{
			name:    "info message",
			level:   LevelInfo,
			message: "event saved",
			fields:  Fields{"dir": "upcoming_events/event1"},
			want:    true,
		},
		{
			name:    "debug below threshold",
			level:   LevelDebug,
			message: "waiting for render",
			want:    false,
		},
		{
			name:    "error with err",
			level:   LevelError,
			message: "poster download failed",
			err:     errors.New("connection reset"),
			want:    true,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			var buf bytes.Buffer
			logger := New(LevelInfo, &buf)

			logger.log(tt.level, tt.message, tt.fields, tt.err)

			if logged := buf.Len() > 0; logged != tt.want {
				t.Errorf("log() logged = %v, want %v", logged, tt.want)
			}
		})
	}
}

func TestLogger_EntryShape(t *testing.T) {
	var buf bytes.Buffer
	logger := New(LevelDebug, &buf)

	logger.Error("scrape failed", Fields{"url": "https://example.com/events/1"}, errors.New("boom"))

	var entry LogEntry
	if err := json.Unmarshal(buf.Bytes(), &entry); err != nil {
		t.Fatalf("Unmarshal() error = %v (line %q)", err, buf.String())
	}

	if entry.Level != "ERROR" {
		t.Errorf("Level = %q, want ERROR", entry.Level)
	}
	if entry.Message != "scrape failed" {
		t.Errorf("Message = %q, want %q", entry.Message, "scrape failed")
	}
	if entry.Error != "boom" {
		t.Errorf("Error = %q, want boom", entry.Error)
	}
	if entry.Fields["url"] != "https://example.com/events/1" {
		t.Errorf("Fields[url] = %v", entry.Fields["url"])
	}
	if _, err := time.Parse(time.RFC3339, entry.Timestamp); err != nil {
		t.Errorf("Timestamp %q is not RFC3339: %v", entry.Timestamp, err)
	}
}

func TestLogger_OneLinePerEntry(t *testing.T) {
	var buf bytes.Buffer
	logger := New(LevelDebug, &buf)

	logger.Info("first", nil)
	logger.Warn("second", Fields{"remaining": 2})

	lines := strings.Split(strings.TrimSpace(buf.String()), "\n")
	if len(lines) != 2 {
		t.Fatalf("got %d lines, want 2: %q", len(lines), buf.String())
	}
}

func TestParseLevel(t *testing.T) {
	tests := []struct {
		in   string
		want Level
	}{
		{"debug", LevelDebug},
		{"INFO", LevelInfo},
		{" warn ", LevelWarn},
		{"Error", LevelError},
		{"", LevelInfo},
		{"verbose", LevelInfo},
	}

	for _, tt := range tests {
		t.Run(tt.in, func(t *testing.T) {
			if got := ParseLevel(tt.in); got != tt.want {
				t.Errorf("ParseLevel(%q) = %q, want %q", tt.in, got, tt.want)
			}
		})
	}
}

func TestMetrics_Counter(t *testing.T) {
	m := NewMetrics()

	m.IncrCounter("scrape.attempts")
	m.IncrCounter("scrape.attempts")
	m.IncrCounter("scrape.attempts")

	snapshot := m.GetSnapshot()
	counters := snapshot["counters"].(map[string]int64)

	if counters["scrape.attempts"] != 3 {
		t.Errorf("Counter = %v, want 3", counters["scrape.attempts"])
	}
	if m.Counter("scrape.attempts") != 3 {
		t.Errorf("Counter() = %v, want 3", m.Counter("scrape.attempts"))
	}
}

func TestMetrics_Gauge(t *testing.T) {
	m := NewMetrics()

	m.SetGauge("links.upcoming", 4)
	m.SetGauge("links.upcoming", 7)

	snapshot := m.GetSnapshot()
	gauges := snapshot["gauges"].(map[string]float64)

	if gauges["links.upcoming"] != 7 {
		t.Errorf("Gauge = %v, want 7", gauges["links.upcoming"])
	}
}

func TestMetrics_Timing(t *testing.T) {
	m := NewMetrics()

	m.RecordTiming("scrape.event", 100*time.Millisecond)
	m.RecordTiming("scrape.event", 200*time.Millisecond)
	m.RecordTiming("scrape.event", 150*time.Millisecond)

	snapshot := m.GetSnapshot()
	timings := snapshot["timings"].(map[string]map[string]interface{})

	timing := timings["scrape.event"]
	if timing["count"].(int) != 3 {
		t.Errorf("Timing count = %v, want 3", timing["count"])
	}
	if timing["min"].(string) != "100ms" {
		t.Errorf("Min timing = %v, want 100ms", timing["min"])
	}
	if timing["max"].(string) != "200ms" {
		t.Errorf("Max timing = %v, want 200ms", timing["max"])
	}
	if timing["average"].(string) != "150ms" {
		t.Errorf("Average timing = %v, want 150ms", timing["average"])
	}
}

func TestMetrics_Reset(t *testing.T) {
	m := NewMetrics()
	m.IncrCounter("poster.downloads")
	m.Reset()

	if got := m.Counter("poster.downloads"); got != 0 {
		t.Errorf("Counter after Reset = %d, want 0", got)
	}
}

func TestPackageLevelFunctions(t *testing.T) {
	var buf bytes.Buffer
	prev := Default()
	SetDefault(New(LevelDebug, &buf))
	defer SetDefault(prev)

	Debug("debug", nil)
	Info("info", Fields{"key": "value"})
	Warn("warning", nil)
	Error("error", Fields{"component": "test"}, errors.New("test"))

	if got := strings.Count(buf.String(), "\n"); got != 4 {
		t.Errorf("default logger wrote %d lines, want 4", got)
	}

	IncrCounter("test")
	SetGauge("test", 42.0)
	RecordTiming("test", time.Second)

	if GetMetricsSnapshot() == nil {
		t.Error("GetMetricsSnapshot() returned nil")
	}
}
