package logging

import "context"

// LogEntry represents a structured log record with fields particularly relevant
// to evolutionary search runs.
type LogEntry struct {
	// Standard fields
	Time     int64
	Severity Severity
	Message  string
	File     string
	Line     int
	Function string

	// Search-specific fields
	RunID      string // Identifier of the search run producing this entry
	Generation int    // Generation index within the run, -1 outside the loop
	Latency    int64  // Operation duration in milliseconds

	// General structured data
	Fields map[string]interface{}
}

type runIDKeyType struct{}
type generationKeyType struct{}

var (
	runIDKey      = runIDKeyType{}
	generationKey = generationKeyType{}
)

// WithRunID attaches a search run identifier to the context so that every log
// entry emitted below it carries the run.
func WithRunID(ctx context.Context, runID string) context.Context {
	return context.WithValue(ctx, runIDKey, runID)
}

// GetRunID retrieves the search run identifier from the context.
func GetRunID(ctx context.Context) (string, bool) {
	id, ok := ctx.Value(runIDKey).(string)
	return id, ok
}

// WithGeneration attaches the current generation index to the context.
func WithGeneration(ctx context.Context, generation int) context.Context {
	return context.WithValue(ctx, generationKey, generation)
}

// GetGeneration retrieves the generation index from the context.
func GetGeneration(ctx context.Context) (int, bool) {
	gen, ok := ctx.Value(generationKey).(int)
	return gen, ok
}
