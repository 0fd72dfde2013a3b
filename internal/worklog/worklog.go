// Package worklog provides the append-only JSONL execution log.
//
// Every workflow step appends one Record describing what happened
// (plan, dispatch, worker completion, synthesis, evaluation, ...).
// Records from concurrent workers are serialized so each log line is
// a complete JSON document. Logging is diagnostic and best-effort: a
// nil *Logger is a valid no-op sink and write errors are swallowed.
package worklog

import (
	"encoding/json"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"sync"
	"time"

	"github.com/google/uuid"
)

// Step kinds recorded by the workflows.
const (
	StepPlan       = "plan"
	StepDispatch   = "dispatch"
	StepWorker     = "worker"
	StepSynthesize = "synthesize"
	StepEvaluate   = "evaluate"
	StepRevise     = "revise"
	StepGenerate   = "generate"
	StepClassify   = "classify"
	StepHandle     = "handle"
	StepAggregate  = "aggregate"
	StepChain      = "step"
)

// Record statuses.
const (
	StatusOK      = "ok"
	StatusError   = "error"
	StatusDropped = "dropped"
)

// Record is one execution-log entry. Timestamp and RunID are filled
// in by the Logger when omitted.
type Record struct {
	Timestamp time.Time `json:"timestamp"`
	RunID     string    `json:"run_id,omitempty"`
	Step      string    `json:"step_kind"`
	TaskID    *int      `json:"task_id,omitempty"`
	Iteration *int      `json:"iteration,omitempty"`
	Status    string    `json:"status"`
	Score     *float64  `json:"score,omitempty"`
	Detail    string    `json:"detail,omitempty"`
}

// TaskID returns a pointer suitable for Record.TaskID.
func TaskID(id int) *int { return &id }

// Iteration returns a pointer suitable for Record.Iteration.
func Iteration(i int) *int { return &i }

// Score returns a pointer suitable for Record.Score.
func Score(s float64) *float64 { return &s }

// Logger appends Records as JSON lines to a writer.
// Concurrent callers are serialized so lines never interleave.
type Logger struct {
	mu     sync.Mutex
	w      io.Writer
	closer io.Closer
	runID  string
}

// Open creates a Logger appending to the file at path, creating
// parent directories as needed. An empty path returns a no-op logger.
func Open(path string) (*Logger, error) {
	if path == "" {
		return nil, nil
	}

	dir := filepath.Dir(path)
	if err := os.MkdirAll(dir, 0755); err != nil {
		return nil, fmt.Errorf("create log directory: %w", err)
	}

	f, err := os.OpenFile(path, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0644)
	if err != nil {
		return nil, fmt.Errorf("open log file: %w", err)
	}

	l := New(f)
	l.closer = f
	return l, nil
}

// New creates a Logger appending to w.
func New(w io.Writer) *Logger {
	return &Logger{
		w:     w,
		runID: uuid.New().String()[:8],
	}
}

// RunID returns the identifier stamped onto this logger's records.
// Empty for a nil logger.
func (l *Logger) RunID() string {
	if l == nil {
		return ""
	}
	return l.runID
}

// Log appends one record. Safe to call on a nil logger.
func (l *Logger) Log(rec Record) {
	if l == nil || l.w == nil {
		return
	}

	if rec.Timestamp.IsZero() {
		rec.Timestamp = time.Now().UTC()
	}
	if rec.RunID == "" {
		rec.RunID = l.runID
	}

	line, err := json.Marshal(rec)
	if err != nil {
		return
	}

	l.mu.Lock()
	defer l.mu.Unlock()
	l.w.Write(append(line, '\n'))
}

// Close closes the underlying file, if any. Safe on a nil logger.
func (l *Logger) Close() error {
	if l == nil || l.closer == nil {
		return nil
	}

	l.mu.Lock()
	defer l.mu.Unlock()
	return l.closer.Close()
}
