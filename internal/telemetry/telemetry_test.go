package telemetry

import (
	"bytes"
	"encoding/json"
	"log/slog"
	"strings"
	"testing"
	"time"
)

func newTestLogger(buf *bytes.Buffer) *Logger {
	h := slog.NewJSONHandler(buf, &slog.HandlerOptions{Level: slog.LevelDebug})
	return New(slog.New(h), "run-1")
}

func TestNewBindsRunID(t *testing.T) {
	var buf bytes.Buffer
	l := newTestLogger(&buf)
	l.PhaseStart("generate")

	var rec map[string]any
	if err := json.Unmarshal(buf.Bytes(), &rec); err != nil {
		t.Fatal(err)
	}
	if rec["run_id"] != "run-1" {
		t.Errorf("expected run_id run-1, got %v", rec["run_id"])
	}
	if rec["msg"] != "generate_start" {
		t.Errorf("expected msg generate_start, got %v", rec["msg"])
	}
}

func TestPhaseEndIncludesElapsed(t *testing.T) {
	var buf bytes.Buffer
	l := newTestLogger(&buf)
	start := time.Now().Add(-5 * time.Millisecond)
	l.PhaseEnd("optimize", start)

	if !strings.Contains(buf.String(), "elapsed_ms") {
		t.Error("expected elapsed_ms field in log output")
	}
}

func TestRunIDAccessor(t *testing.T) {
	var buf bytes.Buffer
	l := newTestLogger(&buf)
	if l.RunID() != "run-1" {
		t.Errorf("expected run-1, got %v", l.RunID())
	}
}

func TestSummaryLogValueGroupsFields(t *testing.T) {
	s := Summary{RunID: "run-2", FeatureCount: 10, FillingError: 0.05}
	v := s.LogValue()
	if v.Kind() != slog.KindGroup {
		t.Fatalf("expected group kind, got %v", v.Kind())
	}
}
