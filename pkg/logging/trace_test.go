package logging

import (
	"context"
	"encoding/json"
	"errors"
	"os"
	"path/filepath"
	"strings"
	"testing"
)

func TestNewTraceSession(t *testing.T) {
	tmpDir := t.TempDir()
	tracePath := filepath.Join(tmpDir, "test.jsonl")

	session, err := NewTraceSession(tracePath)
	if err != nil {
		t.Fatalf("Failed to create trace session: %v", err)
	}
	defer session.Close()

	if session.TraceID() == "" {
		t.Error("Expected non-empty trace ID")
	}

	if session.startTime.IsZero() {
		t.Error("Expected non-zero start time")
	}
}

func TestTraceSessionEmitEvents(t *testing.T) {
	tmpDir := t.TempDir()
	tracePath := filepath.Join(tmpDir, "test.jsonl")

	session, err := NewTraceSession(tracePath)
	if err != nil {
		t.Fatalf("Failed to create trace session: %v", err)
	}

	err = session.EmitEvaluation(0, "[2.000000 8.000000]", []float64{-104.2, -31.7}, false, nil, 120)
	if err != nil {
		t.Errorf("EmitEvaluation failed: %v", err)
	}

	err = session.EmitEvaluation(0, "[0.000000 8.000000]", nil, false, errors.New("solver infeasible"), 95)
	if err != nil {
		t.Errorf("EmitEvaluation with error failed: %v", err)
	}

	err = session.EmitGeneration(0, 20, 18, -110.4, 12.3, -131.9, -88.0, 4200)
	if err != nil {
		t.Errorf("EmitGeneration failed: %v", err)
	}

	err = session.EmitError("GenerationStarved", "3 valid individuals for 5 elite slots", false)
	if err != nil {
		t.Errorf("EmitError failed: %v", err)
	}

	session.Close()

	content, err := os.ReadFile(tracePath)
	if err != nil {
		t.Fatalf("Failed to read trace file: %v", err)
	}

	lines := strings.Split(strings.TrimSpace(string(content)), "\n")
	if len(lines) != 5 {
		t.Errorf("Expected 5 events, got %d", len(lines))
	}

	var sessionEvent TraceEvent
	if err := json.Unmarshal([]byte(lines[0]), &sessionEvent); err != nil {
		t.Fatalf("Failed to parse session event: %v", err)
	}
	if sessionEvent.Type != TraceEventSession {
		t.Errorf("Expected session event, got %s", sessionEvent.Type)
	}

	var genEvent TraceEvent
	if err := json.Unmarshal([]byte(lines[3]), &genEvent); err != nil {
		t.Fatalf("Failed to parse generation event: %v", err)
	}
	if genEvent.Type != TraceEventGeneration {
		t.Errorf("Expected generation event, got %s", genEvent.Type)
	}
	if genEvent.Data["valid"] != float64(18) {
		t.Errorf("Expected 18 valid, got %v", genEvent.Data["valid"])
	}

	var evalEvent TraceEvent
	if err := json.Unmarshal([]byte(lines[2]), &evalEvent); err != nil {
		t.Fatalf("Failed to parse evaluation event: %v", err)
	}
	if evalEvent.Type != TraceEventEvaluation {
		t.Errorf("Expected evaluation event, got %s", evalEvent.Type)
	}
	if evalEvent.Data["error"] != "solver infeasible" {
		t.Errorf("Expected evaluation error message, got %v", evalEvent.Data["error"])
	}
}

func TestTraceSessionEvaluationEventsToggle(t *testing.T) {
	tmpDir := t.TempDir()
	tracePath := filepath.Join(tmpDir, "test.jsonl")

	session, err := NewTraceSession(tracePath)
	if err != nil {
		t.Fatalf("Failed to create trace session: %v", err)
	}
	session.SetEvaluationEvents(false)

	if err := session.EmitEvaluation(0, "[2.000000]", []float64{-104.2}, false, nil, 120); err != nil {
		t.Errorf("EmitEvaluation failed: %v", err)
	}
	if err := session.EmitGeneration(0, 20, 18, -110.4, 12.3, -131.9, -88.0, 4200); err != nil {
		t.Errorf("EmitGeneration failed: %v", err)
	}
	session.Close()

	content, err := os.ReadFile(tracePath)
	if err != nil {
		t.Fatalf("Failed to read trace file: %v", err)
	}

	lines := strings.Split(strings.TrimSpace(string(content)), "\n")
	if len(lines) != 2 {
		t.Errorf("Expected 2 events with evaluations disabled, got %d", len(lines))
	}
	for _, line := range lines {
		var event TraceEvent
		if err := json.Unmarshal([]byte(line), &event); err != nil {
			t.Fatalf("Failed to parse event: %v", err)
		}
		if event.Type == TraceEventEvaluation {
			t.Error("Expected evaluation events to be suppressed")
		}
	}
}

func TestTraceOutputRotation(t *testing.T) {
	tmpDir := t.TempDir()
	tracePath := filepath.Join(tmpDir, "test.jsonl")

	// Rotate after roughly one event's worth of bytes
	output, err := NewTraceOutput(tracePath, WithTraceRotation(200, 2))
	if err != nil {
		t.Fatalf("Failed to create trace output: %v", err)
	}

	for i := 0; i < 5; i++ {
		err := output.Write(TraceEvent{
			Type:    TraceEventGeneration,
			TraceID: "rotate-test",
			Data:    map[string]interface{}{"generation": i},
		})
		if err != nil {
			t.Fatalf("Write %d failed: %v", i, err)
		}
	}
	output.Close()

	files, err := os.ReadDir(tmpDir)
	if err != nil {
		t.Fatalf("Failed to read temp dir: %v", err)
	}
	if len(files) < 2 {
		t.Errorf("Expected rotated trace files, found %d files", len(files))
	}
	if len(files) > 3 {
		t.Errorf("Expected old rotations cleaned up, found %d files", len(files))
	}
}

func TestTraceSessionContext(t *testing.T) {
	tmpDir := t.TempDir()
	tracePath := filepath.Join(tmpDir, "test.jsonl")

	session, err := NewTraceSession(tracePath)
	if err != nil {
		t.Fatalf("Failed to create trace session: %v", err)
	}
	defer session.Close()

	ctx := WithTraceSession(context.Background(), session)
	if got := GetTraceSession(ctx); got != session {
		t.Error("Expected session round-trip through context")
	}

	if got := GetTraceSession(context.Background()); got != nil {
		t.Error("Expected nil session on empty context")
	}
}
