// Package logging provides leveled logging and analysis tracing for enstat.
// It offers two complementary outputs:
//   - A leveled slog.Logger for stderr (operational output)
//   - A TraceLogger for structured JSONL analysis traces (<trace_dir>/trace.jsonl)
//
// Neither is global. Components that log receive a *slog.Logger and a Tracer
// from their caller.
package logging

import (
	"encoding/json"
	"io"
	"log/slog"
	"maps"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"time"
)

// LevelTrace is a custom slog level below Debug. At this level per-file
// reads and per-selection details are logged.
const LevelTrace = slog.LevelDebug - 4

// TraceFile is the name of the JSONL trace inside the trace directory.
const TraceFile = "trace.jsonl"

// ParseLevel maps a string level name to a slog.Level.
// Supported values: "info", "debug", "trace" (case-insensitive).
// Unknown values default to info.
func ParseLevel(s string) slog.Level {
	switch strings.ToLower(s) {
	case "debug":
		return slog.LevelDebug
	case "trace":
		return LevelTrace
	default:
		return slog.LevelInfo
	}
}

// NewLogger creates a leveled slog.Logger writing text records to w.
func NewLogger(level string, w io.Writer) *slog.Logger {
	opts := &slog.HandlerOptions{
		Level: ParseLevel(level),
		ReplaceAttr: func(groups []string, a slog.Attr) slog.Attr {
			if a.Key == slog.LevelKey {
				if lvl, ok := a.Value.Any().(slog.Level); ok && lvl == LevelTrace {
					a.Value = slog.StringValue("TRACE")
				}
			}
			return a
		},
	}
	return slog.New(slog.NewTextHandler(w, opts))
}

// Discard returns a logger that drops every record.
func Discard() *slog.Logger {
	return slog.New(slog.DiscardHandler)
}

// Tracer receives structured analysis events.
type Tracer interface {
	Log(event map[string]any)
}

// TraceLogger writes trace events as JSON lines. It is safe for concurrent
// use. A nil TraceLogger is safe to use; all methods are no-ops on a nil
// receiver.
type TraceLogger struct {
	mu sync.Mutex
	w  io.Writer
	c  io.Closer
}

// NewTraceLogger creates a trace logger appending to dir/trace.jsonl.
// At "info" level it returns nil and no file is created. It also returns
// nil when the file cannot be opened.
func NewTraceLogger(dir string, level string) *TraceLogger {
	if ParseLevel(level) == slog.LevelInfo {
		return nil
	}
	if err := os.MkdirAll(dir, 0700); err != nil {
		return nil
	}
	f, err := os.OpenFile(filepath.Join(dir, TraceFile), os.O_APPEND|os.O_CREATE|os.O_WRONLY, 0600)
	if err != nil {
		return nil
	}
	return &TraceLogger{w: f, c: f}
}

// NewTraceWriter creates a trace logger writing to w. Close does not close w.
func NewTraceWriter(w io.Writer) *TraceLogger {
	return &TraceLogger{w: w}
}

// Log writes event as a single JSON line with a "time" field added.
// The caller's map is not mutated.
func (tl *TraceLogger) Log(event map[string]any) {
	if tl == nil {
		return
	}
	entry := make(map[string]any, len(event)+1)
	maps.Copy(entry, event)
	entry["time"] = time.Now().UTC().Format(time.RFC3339Nano)

	data, err := json.Marshal(entry)
	if err != nil {
		return
	}
	data = append(data, '\n')

	tl.mu.Lock()
	defer tl.mu.Unlock()
	if tl.w == nil {
		return
	}
	_, _ = tl.w.Write(data)
}

// Close stops tracing and closes the trace file if the logger owns one.
func (tl *TraceLogger) Close() {
	if tl == nil {
		return
	}
	tl.mu.Lock()
	defer tl.mu.Unlock()
	if tl.c != nil {
		tl.c.Close()
	}
	tl.w, tl.c = nil, nil
}
