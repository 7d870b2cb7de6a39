package mcp

import (
	"context"
	"log/slog"
	"time"
)

// auditTool records one tool invocation in the operational log and the
// trace. Params must hold request metadata only, never sample data.
func (s *Server) auditTool(tool string, start time.Time, err error, params map[string]any) {
	elapsed := time.Since(start)
	attrs := []any{"tool", tool, "duration", elapsed}
	status := "ok"
	level := slog.LevelDebug
	if err != nil {
		status = "error"
		level = slog.LevelWarn
		attrs = append(attrs, "error", err)
	}
	s.logger.Log(context.Background(), level, "tool call", attrs...)

	if s.tracer == nil {
		return
	}
	event := map[string]any{
		"event":       "tool",
		"tool":        tool,
		"status":      status,
		"duration_ms": elapsed.Milliseconds(),
	}
	if len(params) > 0 {
		event["params"] = params
	}
	if err != nil {
		event["error"] = err.Error()
	}
	s.tracer.Log(event)
}
