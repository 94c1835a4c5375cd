package logging

import (
	"encoding/json"
	"fmt"
	"io"
	"os"
	"sync"
	"time"
)

// ConsoleOutput formats logs for human readability.
type ConsoleOutput struct {
	mu     sync.Mutex
	writer io.Writer
	color  bool // Whether to use ANSI color codes
}

type ConsoleOutputOption func(*ConsoleOutput)

func WithColor(enabled bool) ConsoleOutputOption {
	return func(c *ConsoleOutput) {
		c.color = enabled
	}
}

func NewConsoleOutput(useStderr bool, opts ...ConsoleOutputOption) *ConsoleOutput {
	// Choose the appropriate writer based on useStderr flag
	writer := os.Stdout
	if useStderr {
		writer = os.Stderr
	}

	// Create the base console output
	c := &ConsoleOutput{
		writer: writer,
		color:  true, // Enable colors by default
	}

	// Apply any provided options
	for _, opt := range opts {
		opt(c)
	}

	return c
}

// Helper function to get ANSI color codes for different severity levels.
func getSeverityColor(s Severity) string {
	switch s {
	case DEBUG:
		return "\033[37m" // Gray
	case INFO:
		return "\033[32m" // Green
	case WARN:
		return "\033[33m" // Yellow
	case ERROR:
		return "\033[31m" // Red
	case FATAL:
		return "\033[35m" // Magenta
	default:
		return ""
	}
}

func formatFields(fields map[string]interface{}) string {
	if len(fields) == 0 {
		return ""
	}

	var result string
	for k, v := range fields {
		// Gene fingerprints and failure reasons can get long
		if k == "fingerprint" || k == "reason" {
			// Truncate long text for console display
			str := fmt.Sprintf("%v", v)
			if len(str) > 100 {
				str = str[:97] + "..."
			}
			result += fmt.Sprintf("%s=%q ", k, str)
		} else {
			result += fmt.Sprintf("%s=%v ", k, v)
		}
	}

	return result
}

func (o *ConsoleOutput) Write(e LogEntry) error {
	o.mu.Lock()
	defer o.mu.Unlock()
	timestamp := time.Unix(0, e.Time).Format("2006-01-02 15:04:05.000")

	var levelColor, resetColor string
	if o.color {
		levelColor = getSeverityColor(e.Severity)
		resetColor = "\033[0m"
	}

	// Format for easy reading
	basic := fmt.Sprintf("%s %s%-5s%s [%s:%d] %s",
		timestamp,
		levelColor,
		e.Severity,
		resetColor,
		e.File,
		e.Line,
		e.Message,
	)

	// Add search-specific information if present
	if e.RunID != "" {
		basic += fmt.Sprintf(" [run=%s]", e.RunID)
	}

	if e.Generation >= 0 {
		basic += fmt.Sprintf(" [gen=%d]", e.Generation)
	}
	// Add structured fields if any exist
	if len(e.Fields) > 0 {
		fields := formatFields(e.Fields)
		basic += " " + fields
	}

	_, err := fmt.Fprintln(o.writer, basic)

	return err
}

func (c *ConsoleOutput) Sync() error {
	if syncer, ok := c.writer.(interface{ Sync() error }); ok {
		return syncer.Sync()
	}
	return nil
}

// Close cleans up any resources.
func (c *ConsoleOutput) Close() error {
	if closer, ok := c.writer.(io.Closer); ok {
		return closer.Close()
	}
	return nil
}

// FileOutput writes log entries to a file, one line per entry. Lines are
// plain text by default or JSON objects when requested, and the file rotates
// by size when configured.
type FileOutput struct {
	mu         sync.Mutex
	file       *rotatingFile
	json       bool
	rotateSize int64
	maxFiles   int
}

type FileOutputOption func(*FileOutput)

// WithJSONFormat switches the output to one JSON object per line.
func WithJSONFormat(enabled bool) FileOutputOption {
	return func(f *FileOutput) {
		f.json = enabled
	}
}

// WithFileRotation rotates the log file when it reaches maxSize bytes,
// keeping at most maxFiles rotated copies.
func WithFileRotation(maxSize int64, maxFiles int) FileOutputOption {
	return func(f *FileOutput) {
		f.rotateSize = maxSize
		f.maxFiles = maxFiles
	}
}

func NewFileOutput(path string, opts ...FileOutputOption) (*FileOutput, error) {
	f := &FileOutput{}
	for _, opt := range opts {
		opt(f)
	}

	file, err := openRotatingFile(path, f.rotateSize, f.maxFiles)
	if err != nil {
		return nil, fmt.Errorf("failed to open log file: %w", err)
	}
	f.file = file

	return f, nil
}

func (f *FileOutput) Write(e LogEntry) error {
	f.mu.Lock()
	defer f.mu.Unlock()

	var line []byte
	if f.json {
		data, err := marshalEntryJSON(e)
		if err != nil {
			return fmt.Errorf("failed to marshal log entry: %w", err)
		}
		line = data
	} else {
		line = []byte(formatEntryText(e))
	}

	if _, err := f.file.Write(line); err != nil {
		return fmt.Errorf("failed to write log entry: %w", err)
	}

	return nil
}

func (f *FileOutput) Sync() error {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.file.Sync()
}

func (f *FileOutput) Close() error {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.file.Close()
}

// formatEntryText renders an entry in the console layout without colors.
func formatEntryText(e LogEntry) string {
	timestamp := time.Unix(0, e.Time).Format("2006-01-02 15:04:05.000")

	line := fmt.Sprintf("%s %-5s [%s:%d] %s", timestamp, e.Severity, e.File, e.Line, e.Message)

	if e.RunID != "" {
		line += fmt.Sprintf(" [run=%s]", e.RunID)
	}
	if e.Generation >= 0 {
		line += fmt.Sprintf(" [gen=%d]", e.Generation)
	}
	if len(e.Fields) > 0 {
		line += " " + formatFields(e.Fields)
	}

	return line + "\n"
}

func marshalEntryJSON(e LogEntry) ([]byte, error) {
	record := map[string]interface{}{
		"time":     time.Unix(0, e.Time).Format(time.RFC3339Nano),
		"severity": e.Severity.String(),
		"message":  e.Message,
		"file":     e.File,
		"line":     e.Line,
		"function": e.Function,
	}

	if e.RunID != "" {
		record["run_id"] = e.RunID
	}
	if e.Generation >= 0 {
		record["generation"] = e.Generation
	}
	if e.Latency > 0 {
		record["latency_ms"] = e.Latency
	}
	for k, v := range e.Fields {
		if _, exists := record[k]; !exists {
			record[k] = v
		}
	}

	data, err := json.Marshal(record)
	if err != nil {
		return nil, err
	}

	return append(data, '\n'), nil
}
