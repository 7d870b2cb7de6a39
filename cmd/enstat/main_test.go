package main

import (
	"bytes"
	"encoding/json"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/apache/arrow/go/v17/arrow/ipc"
	"github.com/spf13/cobra"

	"github.com/nvandessel/enstat/internal/simulation"
)

// newTestRootCmd creates a root command with persistent flags for testing
// subcommands.
func newTestRootCmd() *cobra.Command {
	rootCmd := &cobra.Command{Use: "enstat", SilenceUsage: true, SilenceErrors: true}
	addPersistentFlags(rootCmd)
	return rootCmd
}

// isolateHome points HOME at a temp directory so tests never touch the
// real ~/.enstat, and clears ENSTAT_* overrides.
func isolateHome(t *testing.T) string {
	t.Helper()
	home := filepath.Join(t.TempDir(), "home")
	if err := os.MkdirAll(home, 0700); err != nil {
		t.Fatalf("Failed to create temp home: %v", err)
	}
	t.Setenv("HOME", home)
	t.Setenv("USERPROFILE", home)
	for _, kv := range os.Environ() {
		if name, _, _ := strings.Cut(kv, "="); strings.HasPrefix(name, "ENSTAT_") {
			t.Setenv(name, "")
		}
	}
	return home
}

func writeLinearEnsemble(t *testing.T) string {
	t.Helper()
	root := filepath.Join(t.TempDir(), "ensemble")
	sc := simulation.Scenario{
		Simulations: 3, Steps: 4,
		Width: 2, Height: 2, Depth: 1,
		Fields: []simulation.FieldSpec{
			simulation.Linear("temperature", 0),
			simulation.Linear("pressure", 1000),
		},
	}
	if err := sc.Write(root); err != nil {
		t.Fatalf("writing ensemble: %v", err)
	}
	return root
}

// run executes cmd under a fresh test root with args and returns stdout.
func run(t *testing.T, cmd *cobra.Command, args ...string) (string, error) {
	t.Helper()
	rootCmd := newTestRootCmd()
	rootCmd.AddCommand(cmd)
	var out, errOut bytes.Buffer
	rootCmd.SetOut(&out)
	rootCmd.SetErr(&errOut)
	rootCmd.SetArgs(args)
	err := rootCmd.Execute()
	return out.String(), err
}

func decode(t *testing.T, data string, v any) {
	t.Helper()
	if err := json.Unmarshal([]byte(data), v); err != nil {
		t.Fatalf("output is not JSON: %v\n%s", err, data)
	}
}

func TestVersionCmd(t *testing.T) {
	out, err := run(t, newVersionCmd(), "version")
	if err != nil {
		t.Fatal(err)
	}
	if !strings.Contains(out, version) {
		t.Errorf("output %q lacks version", out)
	}

	out, err = run(t, newVersionCmd(), "version", "--json")
	if err != nil {
		t.Fatal(err)
	}
	var v map[string]string
	decode(t, out, &v)
	if v["version"] != version {
		t.Errorf("version = %q", v["version"])
	}
}

func TestScanCmd(t *testing.T) {
	isolateHome(t)
	root := writeLinearEnsemble(t)

	out, err := run(t, newScanCmd(), "scan", "--root", root, "--files", "--json")
	if err != nil {
		t.Fatalf("scan failed: %v", err)
	}
	var info struct {
		Simulations int      `json:"simulations"`
		Steps       int      `json:"steps"`
		Files       []string `json:"files"`
	}
	decode(t, out, &info)
	if info.Simulations != 3 || info.Steps != 4 || len(info.Files) != 12 {
		t.Errorf("info = %+v", info)
	}
	// Canonical order: index = step*simulations + simulation.
	if !strings.HasSuffix(info.Files[1], filepath.Join("sim_01", "step_000.txt")) {
		t.Errorf("Files[1] = %s", info.Files[1])
	}

	if _, err := run(t, newScanCmd(), "scan", "--root", filepath.Join(root, "missing")); err == nil {
		t.Error("scan of a missing root succeeded")
	}
}

func TestHeadersCmd(t *testing.T) {
	isolateHome(t)
	root := writeLinearEnsemble(t)

	out, err := run(t, newHeadersCmd(), "headers", "--root", root, "--count", "2", "--stride", "2")
	if err != nil {
		t.Fatalf("headers failed: %v", err)
	}
	if !strings.Contains(out, "[0 2]") || !strings.Contains(out, "pressure") {
		t.Errorf("unexpected output:\n%s", out)
	}

	if _, err := run(t, newHeadersCmd(), "headers", "--root", root, "--step", "2", "--count", "2", "--stride", "2"); err == nil {
		t.Error("selection past the last timestep succeeded")
	}
}

func TestAnalyseCmd(t *testing.T) {
	home := isolateHome(t)
	root := writeLinearEnsemble(t)
	arrowPath := filepath.Join(t.TempDir(), "out.arrows")

	out, err := run(t, newAnalyseCmd(), "analyse", "--root", root, "--field", "pressure",
		"--count", "2", "--workers", "2", "--arrow", arrowPath, "--json")
	if err != nil {
		t.Fatalf("analyse failed: %v", err)
	}
	var report struct {
		RunID   int64  `json:"run_id"`
		Field   string `json:"field"`
		Kind    string `json:"kind"`
		Outputs []struct {
			Name   string    `json:"name"`
			Minima []float64 `json:"minima"`
		} `json:"outputs"`
		Summary struct {
			Members int `json:"members"`
			Workers int `json:"workers"`
		} `json:"summary"`
	}
	decode(t, out, &report)
	if report.Field != "pressure" || report.Kind != "gaussian_single" {
		t.Errorf("report = %+v", report)
	}
	if report.Summary.Members != 6 || report.Summary.Workers != 2 {
		t.Errorf("summary = %+v, want 6 members on 2 workers", report.Summary)
	}
	if report.RunID == 0 {
		t.Error("run was not journaled")
	}
	// Step 0 and 1 members at voxel 0: 1000..1002 and 1010..1012.
	if len(report.Outputs) != 2 || report.Outputs[0].Minima[0] != 1006 {
		t.Errorf("outputs = %+v", report.Outputs)
	}

	if _, err := os.Stat(filepath.Join(home, ".enstat", "journal.db")); err != nil {
		t.Errorf("journal not created under HOME: %v", err)
	}

	f, err := os.Open(arrowPath)
	if err != nil {
		t.Fatalf("arrow export missing: %v", err)
	}
	defer f.Close()
	rdr, err := ipc.NewReader(f)
	if err != nil {
		t.Fatal(err)
	}
	defer rdr.Release()
	if rdr.Schema().Field(0).Name != "pressure_mean" {
		t.Errorf("arrow schema = %s", rdr.Schema())
	}
}

func TestAnalyseCmd_TextAndErrors(t *testing.T) {
	isolateHome(t)
	root := writeLinearEnsemble(t)

	out, err := run(t, newAnalyseCmd(), "analyse", "--root", root, "--field", "0", "--kind", "mixture", "--max-components", "2")
	if err != nil {
		t.Fatalf("analyse failed: %v", err)
	}
	for _, want := range []string{"temperature_mean", "temperature_weight", "components per voxel", "display range"} {
		if !strings.Contains(out, want) {
			t.Errorf("output lacks %q:\n%s", want, out)
		}
	}

	tests := [][]string{
		{"analyse", "--root", root},
		{"analyse", "--root", root, "--field", "humidity"},
		{"analyse", "--root", root, "--field", "0", "--kind", "median"},
	}
	for _, args := range tests {
		if _, err := run(t, newAnalyseCmd(), args...); err == nil {
			t.Errorf("%v succeeded", args)
		}
	}
}

func TestPeaksCmd(t *testing.T) {
	isolateHome(t)
	root := filepath.Join(t.TempDir(), "bimodal")
	if _, err := run(t, newGenerateCmd(), "generate", root, "--sims", "40", "--steps", "1", "--width", "2", "--height", "1"); err != nil {
		t.Fatalf("generate failed: %v", err)
	}

	out, err := run(t, newPeaksCmd(), "peaks", "--root", root, "--field", "density", "--x", "1", "--bins", "8", "--json")
	if err != nil {
		t.Fatalf("peaks failed: %v", err)
	}
	var report struct {
		Peaks   int       `json:"peaks"`
		K       int       `json:"k"`
		Samples []float64 `json:"samples"`
	}
	decode(t, out, &report)
	if report.Peaks != 2 || report.K != 2 || len(report.Samples) != 40 {
		t.Errorf("report = %+v", report)
	}

	out, err = run(t, newPeaksCmd(), "peaks", "--root", root, "--field", "temperature")
	if err != nil {
		t.Fatal(err)
	}
	if !strings.Contains(out, "mixture (k=") {
		t.Errorf("unexpected output:\n%s", out)
	}
}

func TestRunsCmd(t *testing.T) {
	isolateHome(t)
	root := writeLinearEnsemble(t)

	out, err := run(t, newRunsCmd(), "runs")
	if err != nil {
		t.Fatal(err)
	}
	if !strings.Contains(out, "No runs") {
		t.Errorf("unexpected output for empty journal:\n%s", out)
	}

	run(t, newAnalyseCmd(), "analyse", "--root", root, "--field", "temperature")
	run(t, newAnalyseCmd(), "analyse", "--root", root, "--field", "humidity")

	out, err = run(t, newRunsCmd(), "runs", "--json")
	if err != nil {
		t.Fatal(err)
	}
	var list struct {
		Count int `json:"count"`
		Runs  []struct {
			Field  string `json:"field"`
			Status string `json:"status"`
		} `json:"runs"`
	}
	decode(t, out, &list)
	if list.Count != 2 {
		t.Fatalf("count = %d, want 2", list.Count)
	}
	if list.Runs[0].Field != "humidity" || list.Runs[0].Status != "error" {
		t.Errorf("newest run = %+v", list.Runs[0])
	}

	t.Setenv("ENSTAT_JOURNAL", "false")
	if _, err := run(t, newRunsCmd(), "runs"); err == nil {
		t.Error("runs with the journal disabled succeeded")
	}
}

func TestConfigCmd(t *testing.T) {
	home := isolateHome(t)

	out, err := run(t, newConfigCmd(), "config", "init")
	if err != nil {
		t.Fatalf("config init failed: %v", err)
	}
	path := filepath.Join(home, ".enstat", "config.yaml")
	if !strings.Contains(out, path) {
		t.Errorf("output %q lacks %s", out, path)
	}
	if _, err := run(t, newConfigCmd(), "config", "init"); err == nil {
		t.Error("second init without --force succeeded")
	}
	if _, err := run(t, newConfigCmd(), "config", "init", "--force"); err != nil {
		t.Errorf("init --force: %v", err)
	}

	t.Setenv("ENSTAT_KIND", "gaussian_mixture")
	out, err = run(t, newConfigCmd(), "config", "list", "--json")
	if err != nil {
		t.Fatal(err)
	}
	var cfg struct {
		Analysis struct {
			Kind          string `json:"kind"`
			MaxComponents int    `json:"max_components"`
		} `json:"analysis"`
	}
	decode(t, out, &cfg)
	if cfg.Analysis.Kind != "gaussian_mixture" || cfg.Analysis.MaxComponents != 4 {
		t.Errorf("analysis config = %+v", cfg.Analysis)
	}

	out, err = run(t, newConfigCmd(), "config", "list")
	if err != nil {
		t.Fatal(err)
	}
	if !strings.Contains(out, "max_components: 4") {
		t.Errorf("yaml output:\n%s", out)
	}

	t.Setenv("ENSTAT_LOG_LEVEL", "loud")
	if _, err := run(t, newConfigCmd(), "config", "list"); err == nil {
		t.Error("invalid log level accepted")
	}
}

func TestGenerateCmd(t *testing.T) {
	root := filepath.Join(t.TempDir(), "demo")
	out, err := run(t, newGenerateCmd(), "generate", root, "--preset", "linear", "--sims", "2", "--steps", "3")
	if err != nil {
		t.Fatalf("generate failed: %v", err)
	}
	if !strings.Contains(out, "2 simulations x 3 timesteps") {
		t.Errorf("unexpected output: %s", out)
	}
	entries, err := os.ReadDir(filepath.Join(root, "sim_01"))
	if err != nil || len(entries) != 3 {
		t.Errorf("sim_01 holds %d files (err %v), want 3", len(entries), err)
	}

	if _, err := run(t, newGenerateCmd(), "generate", root, "--preset", "spiral"); err == nil {
		t.Error("unknown preset accepted")
	}
	if _, err := run(t, newGenerateCmd(), "generate"); err == nil {
		t.Error("missing DIR accepted")
	}
}

func TestNewRootCmd_Subcommands(t *testing.T) {
	want := []string{"version", "scan", "headers", "analyse", "peaks", "runs", "config", "serve", "generate"}
	root := newRootCmd()
	for _, name := range want {
		if cmd, _, err := root.Find([]string{name}); err != nil || cmd.Name() != name {
			t.Errorf("subcommand %s missing", name)
		}
	}
}
