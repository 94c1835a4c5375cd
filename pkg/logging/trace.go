package logging

import (
	"context"
	"crypto/rand"
	"encoding/hex"
	"encoding/json"
	"fmt"
	"sync"
	"time"
)

type TraceEventType string

const (
	TraceEventSession    TraceEventType = "session"
	TraceEventGeneration TraceEventType = "generation"
	TraceEventEvaluation TraceEventType = "evaluation"
	TraceEventError      TraceEventType = "error"
)

// Context key for trace session.
type traceSessionKeyType struct{}

var traceSessionKey = traceSessionKeyType{}

// WithTraceSession adds a TraceSession to the context.
func WithTraceSession(ctx context.Context, session *TraceSession) context.Context {
	return context.WithValue(ctx, traceSessionKey, session)
}

// GetTraceSession retrieves the TraceSession from context.
func GetTraceSession(ctx context.Context) *TraceSession {
	if session, ok := ctx.Value(traceSessionKey).(*TraceSession); ok {
		return session
	}
	return nil
}

// TraceEvent is one line in a run trace file. Events share a trace ID per run
// and are written as JSONL for easy downstream tooling.
type TraceEvent struct {
	Type      TraceEventType         `json:"type"`
	Timestamp time.Time              `json:"timestamp"`
	TraceID   string                 `json:"trace_id"`
	Data      map[string]interface{} `json:"data,omitempty"`
}

type TraceOutput struct {
	mu         sync.Mutex
	file       *rotatingFile
	rotateSize int64
	maxFiles   int
}

type TraceOutputOption func(*TraceOutput)

func WithTraceRotation(maxSize int64, maxFiles int) TraceOutputOption {
	return func(t *TraceOutput) {
		t.rotateSize = maxSize
		t.maxFiles = maxFiles
	}
}

func NewTraceOutput(path string, opts ...TraceOutputOption) (*TraceOutput, error) {
	output := &TraceOutput{}
	for _, opt := range opts {
		opt(output)
	}

	file, err := openRotatingFile(path, output.rotateSize, output.maxFiles)
	if err != nil {
		return nil, fmt.Errorf("failed to open trace file: %w", err)
	}
	output.file = file

	return output, nil
}

func (t *TraceOutput) Write(event TraceEvent) error {
	t.mu.Lock()
	defer t.mu.Unlock()

	data, err := json.Marshal(event)
	if err != nil {
		return fmt.Errorf("failed to marshal trace event: %w", err)
	}
	data = append(data, '\n')

	if _, err := t.file.Write(data); err != nil {
		return fmt.Errorf("failed to write trace event: %w", err)
	}

	return nil
}

func (t *TraceOutput) Flush() error {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.file.Sync()
}

func (t *TraceOutput) Close() error {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.file.Close()
}

// TraceSession records the timeline of one search run: a session header,
// one generation event per completed generation, and per-evaluation events
// when enabled.
type TraceSession struct {
	output      *TraceOutput
	traceID     string
	startTime   time.Time
	mu          sync.Mutex
	evaluations bool
}

func NewTraceSession(path string, opts ...TraceOutputOption) (*TraceSession, error) {
	output, err := NewTraceOutput(path, opts...)
	if err != nil {
		return nil, err
	}

	traceID := generateTraceID()
	session := &TraceSession{
		output:      output,
		traceID:     traceID,
		startTime:   time.Now(),
		evaluations: true,
	}

	err = session.emitSessionStart(nil)
	if err != nil {
		output.Close()
		return nil, err
	}

	return session, nil
}

func (s *TraceSession) TraceID() string {
	return s.traceID
}

// SetEvaluationEvents toggles per-evaluation events. Generation and error
// events are always recorded; evaluation events are high volume and runs
// with large populations may want them off.
func (s *TraceSession) SetEvaluationEvents(enabled bool) {
	s.mu.Lock()
	s.evaluations = enabled
	s.mu.Unlock()
}

func (s *TraceSession) emitSessionStart(metadata map[string]any) error {
	data := map[string]interface{}{
		"start_time": s.startTime,
	}
	for k, v := range metadata {
		data[k] = v
	}

	return s.output.Write(TraceEvent{
		Type:      TraceEventSession,
		Timestamp: s.startTime,
		TraceID:   s.traceID,
		Data:      data,
	})
}

// EmitGeneration records a completed generation: how many individuals were
// scored, how many came back valid, and the summary statistics of the
// reportable aggregate.
func (s *TraceSession) EmitGeneration(generation, evaluated, valid int, mean, std, min, max float64, durationMs int64) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	data := map[string]interface{}{
		"generation":  generation,
		"evaluated":   evaluated,
		"valid":       valid,
		"mean":        mean,
		"std":         std,
		"min":         min,
		"max":         max,
		"duration_ms": durationMs,
	}

	return s.output.Write(TraceEvent{
		Type:      TraceEventGeneration,
		Timestamp: time.Now(),
		TraceID:   s.traceID,
		Data:      data,
	})
}

// EmitEvaluation records one fitness evaluation by genotype fingerprint.
func (s *TraceSession) EmitEvaluation(generation int, fingerprint string, fitness []float64, cached bool, err error, durationMs int64) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if !s.evaluations {
		return nil
	}

	data := map[string]interface{}{
		"generation":  generation,
		"fingerprint": fingerprint,
		"cached":      cached,
		"duration_ms": durationMs,
	}
	if fitness != nil {
		data["fitness"] = fitness
	}
	if err != nil {
		data["error"] = err.Error()
	}

	return s.output.Write(TraceEvent{
		Type:      TraceEventEvaluation,
		Timestamp: time.Now(),
		TraceID:   s.traceID,
		Data:      data,
	})
}

// EmitError records a run-level failure such as generation starvation.
func (s *TraceSession) EmitError(errorType, message string, recoverable bool) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	data := map[string]interface{}{
		"error_type":  errorType,
		"message":     message,
		"recoverable": recoverable,
	}

	return s.output.Write(TraceEvent{
		Type:      TraceEventError,
		Timestamp: time.Now(),
		TraceID:   s.traceID,
		Data:      data,
	})
}

// Close flushes and closes the underlying trace file.
func (s *TraceSession) Close() error {
	if err := s.output.Flush(); err != nil {
		s.output.Close()
		return err
	}
	return s.output.Close()
}

func generateTraceID() string {
	b := make([]byte, 8)
	if _, err := rand.Read(b); err != nil {
		return fmt.Sprintf("%d", time.Now().UnixNano())
	}
	return hex.EncodeToString(b)
}
