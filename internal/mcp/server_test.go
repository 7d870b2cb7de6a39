package mcp

import (
	"context"
	"path/filepath"
	"testing"

	"github.com/nvandessel/enstat/internal/analysis"
	"github.com/nvandessel/enstat/internal/journal"
	"github.com/nvandessel/enstat/internal/ratelimit"
	"github.com/nvandessel/enstat/internal/session"
	"github.com/nvandessel/enstat/internal/simulation"
)

func testScenario() simulation.Scenario {
	return simulation.Scenario{
		Simulations: 3, Steps: 4,
		Width: 2, Height: 2, Depth: 1,
		Fields: []simulation.FieldSpec{
			simulation.Linear("temperature", 0),
			simulation.Linear("pressure", 1000),
		},
	}
}

// setupTestServer writes a synthetic ensemble and serves it with a fresh
// journal and export directory. Rate limits are disabled unless limits is
// non-nil.
func setupTestServer(t *testing.T, sc simulation.Scenario, limits map[string]ratelimit.Limit) *Server {
	t.Helper()
	tmpDir := t.TempDir()
	root := filepath.Join(tmpDir, "ensemble")
	if err := sc.Write(root); err != nil {
		t.Fatalf("writing ensemble: %v", err)
	}
	j, err := journal.Open(context.Background(), filepath.Join(tmpDir, "journal.db"))
	if err != nil {
		t.Fatalf("opening journal: %v", err)
	}
	if limits == nil {
		limits = map[string]ratelimit.Limit{}
	}

	server, err := NewServer(&Config{
		Name:    "test-server",
		Version: "v1.0.0",
		Session: session.Config{
			Root:    root,
			Journal: j,
			Kind:    analysis.GaussianSingle,
			Options: analysis.DefaultOptions(),
		},
		ExportDir: filepath.Join(tmpDir, "exports"),
		Limits:    limits,
	})
	if err != nil {
		j.Close()
		t.Fatalf("NewServer failed: %v", err)
	}
	t.Cleanup(func() { server.Close() })
	return server
}

func TestNewServer(t *testing.T) {
	server := setupTestServer(t, testScenario(), nil)
	if server.server == nil {
		t.Error("Server.server is nil")
	}
	if server.sess == nil {
		t.Error("Server.sess is nil")
	}
	if server.limiter == nil {
		t.Error("Server.limiter is nil")
	}
}

func TestNewServer_BadRoot(t *testing.T) {
	_, err := NewServer(&Config{
		Name:    "test-server",
		Version: "v1.0.0",
		Session: session.Config{Root: filepath.Join(t.TempDir(), "missing")},
	})
	if err == nil {
		t.Fatal("NewServer accepted a missing ensemble root")
	}
}

func TestClose_Idempotent(t *testing.T) {
	server := setupTestServer(t, testScenario(), nil)
	if err := server.Close(); err != nil {
		t.Errorf("Close() error = %v", err)
	}
	if err := server.Close(); err != nil {
		t.Errorf("second Close() error = %v", err)
	}
}
