// Package config provides unified configuration loading for enstat.
// It supports loading from YAML files and environment variables.
package config

import (
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"strings"

	"github.com/nvandessel/enstat/internal/analysis"
	"github.com/nvandessel/enstat/internal/constants"
	"github.com/nvandessel/enstat/internal/stats"
	"gopkg.in/yaml.v3"
)

// EnstatConfig contains all enstat configuration settings.
type EnstatConfig struct {
	// Analysis contains the defaults for per-voxel analysis.
	Analysis AnalysisConfig `json:"analysis" yaml:"analysis"`

	// Logging contains settings for operational logging and tracing.
	Logging LoggingConfig `json:"logging" yaml:"logging"`

	// Journal contains settings for the analysis run journal.
	Journal JournalConfig `json:"journal" yaml:"journal"`

	// Export contains settings for Arrow exports requested over MCP.
	Export ExportConfig `json:"export" yaml:"export"`
}

// AnalysisConfig configures the statistics kernel.
type AnalysisConfig struct {
	// Kind is "gaussian_single" (default) or "gaussian_mixture".
	Kind string `json:"kind" yaml:"kind"`

	// MaxComponents is the mixture size written per voxel.
	MaxComponents int `json:"max_components" yaml:"max_components"`

	// MaxIterations caps EM iterations per candidate component count.
	MaxIterations int `json:"max_iterations" yaml:"max_iterations"`

	// Epsilon is the log-likelihood change that ends EM early.
	Epsilon float64 `json:"epsilon" yaml:"epsilon"`

	// KBias scales the parameter penalty of the information criterion.
	KBias float64 `json:"k_bias" yaml:"k_bias"`

	// RandomInit seeds mixtures from random restarts instead of quantiles.
	RandomInit bool `json:"random_init" yaml:"random_init"`

	// Restarts is the number of random initializations scored per k.
	Restarts int `json:"restarts" yaml:"restarts"`

	// Seed makes random initialization reproducible. Zero is time-seeded.
	Seed uint64 `json:"seed,omitempty" yaml:"seed,omitempty"`

	// Workers caps analysis goroutines. Zero means one per CPU.
	Workers int `json:"workers" yaml:"workers"`

	// PeakBins is the histogram resolution used when counting modes.
	PeakBins int `json:"peak_bins" yaml:"peak_bins"`
}

// LoggingConfig configures enstat's logging behavior.
type LoggingConfig struct {
	// Level sets the log verbosity: "info" (default), "debug", or "trace".
	// "debug" and "trace" also write analysis traces to TraceDir/trace.jsonl.
	Level string `json:"level" yaml:"level"`

	// TraceDir is where trace.jsonl is written. Empty means ~/.enstat.
	TraceDir string `json:"trace_dir,omitempty" yaml:"trace_dir,omitempty"`
}

// JournalConfig configures the SQLite run journal.
type JournalConfig struct {
	// Enabled records every analysis run.
	Enabled bool `json:"enabled" yaml:"enabled"`

	// Path is the journal database. Empty means ~/.enstat/journal.db.
	Path string `json:"path,omitempty" yaml:"path,omitempty"`
}

// ExportConfig configures where the MCP server may write exports.
type ExportConfig struct {
	// Dir receives enstat_export files. Empty means ~/.enstat/exports.
	Dir string `json:"dir,omitempty" yaml:"dir,omitempty"`
}

// Default returns an EnstatConfig with sensible defaults.
func Default() *EnstatConfig {
	return &EnstatConfig{
		Analysis: AnalysisConfig{
			Kind:          analysis.GaussianSingle.String(),
			MaxComponents: constants.DefaultMaxComponents,
			MaxIterations: constants.DefaultMaxIterations,
			Epsilon:       constants.DefaultEpsilon,
			KBias:         constants.DefaultKBias,
			Restarts:      constants.DefaultRestarts,
			PeakBins:      constants.DefaultPeakBins,
		},
		Logging: LoggingConfig{
			Level: "info",
		},
		Journal: JournalConfig{
			Enabled: true,
		},
	}
}

// HomeDir returns the enstat state directory, ~/.enstat.
func HomeDir() (string, error) {
	homeDir, err := os.UserHomeDir()
	if err != nil {
		return "", fmt.Errorf("failed to get user home directory: %w", err)
	}
	return filepath.Join(homeDir, ".enstat"), nil
}

// Load loads configuration from the default locations and environment variables.
// Order: defaults -> ~/.enstat/config.yaml -> environment variables
func Load() (*EnstatConfig, error) {
	config := Default()

	if dir, err := HomeDir(); err == nil {
		configPath := filepath.Join(dir, "config.yaml")
		if _, statErr := os.Stat(configPath); statErr == nil {
			fileConfig, loadErr := LoadFromFile(configPath)
			if loadErr != nil {
				return nil, fmt.Errorf("loading config file: %w", loadErr)
			}
			config = fileConfig
		}
	}

	applyEnvOverrides(config)
	return config, nil
}

// LoadFrom loads configuration from path instead of the default location,
// then applies environment overrides. An empty path behaves like Load.
func LoadFrom(path string) (*EnstatConfig, error) {
	if path == "" {
		return Load()
	}
	config, err := LoadFromFile(path)
	if err != nil {
		return nil, err
	}
	applyEnvOverrides(config)
	return config, nil
}

// LoadFromFile loads configuration from a specific YAML file.
func LoadFromFile(path string) (*EnstatConfig, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("reading config file: %w", err)
	}

	config := Default()
	if err := yaml.Unmarshal(data, config); err != nil {
		return nil, fmt.Errorf("parsing config file: %w", err)
	}

	config.Logging.TraceDir = expandPath(config.Logging.TraceDir)
	config.Journal.Path = expandPath(config.Journal.Path)
	config.Export.Dir = expandPath(config.Export.Dir)
	return config, nil
}

// Validate checks that the configuration is valid.
func (c *EnstatConfig) Validate() error {
	a := c.Analysis
	if _, err := analysis.ParseKind(a.Kind); err != nil {
		return err
	}
	if a.MaxComponents < 1 {
		return fmt.Errorf("max_components must be at least 1, got %d", a.MaxComponents)
	}
	if a.MaxIterations < 1 {
		return fmt.Errorf("max_iterations must be at least 1, got %d", a.MaxIterations)
	}
	if a.Epsilon <= 0 {
		return fmt.Errorf("epsilon must be positive, got %g", a.Epsilon)
	}
	if a.KBias <= 0 {
		return fmt.Errorf("k_bias must be positive, got %g", a.KBias)
	}
	if a.Restarts < 1 {
		return fmt.Errorf("restarts must be at least 1, got %d", a.Restarts)
	}
	if a.Workers < 0 {
		return fmt.Errorf("workers must be non-negative, got %d", a.Workers)
	}
	if a.PeakBins < 1 {
		return fmt.Errorf("peak_bins must be at least 1, got %d", a.PeakBins)
	}

	validLevels := map[string]bool{"info": true, "debug": true, "trace": true}
	if c.Logging.Level != "" && !validLevels[c.Logging.Level] {
		return fmt.Errorf("invalid log level: %s (valid: info, debug, trace, or empty for default)", c.Logging.Level)
	}
	return nil
}

// Options converts the analysis section into analysis options.
func (a AnalysisConfig) Options() (analysis.Kind, analysis.Options, error) {
	kind, err := analysis.ParseKind(a.Kind)
	if err != nil {
		return 0, analysis.Options{}, err
	}
	fit := stats.DefaultFitOptions()
	fit.MaxIterations = a.MaxIterations
	fit.Epsilon = a.Epsilon
	fit.KBias = a.KBias
	fit.RandomInit = a.RandomInit
	fit.Restarts = a.Restarts
	return kind, analysis.Options{
		Workers:       a.Workers,
		MaxComponents: a.MaxComponents,
		Fit:           fit,
		Seed:          a.Seed,
	}, nil
}

// TraceDirOrDefault returns TraceDir, or ~/.enstat when it is empty.
func (l LoggingConfig) TraceDirOrDefault() (string, error) {
	if l.TraceDir != "" {
		return l.TraceDir, nil
	}
	return HomeDir()
}

// PathOrDefault returns Path, or ~/.enstat/journal.db when it is empty.
func (j JournalConfig) PathOrDefault() (string, error) {
	if j.Path != "" {
		return j.Path, nil
	}
	dir, err := HomeDir()
	if err != nil {
		return "", err
	}
	return filepath.Join(dir, "journal.db"), nil
}

// DirOrDefault returns Dir, or ~/.enstat/exports when it is empty.
func (e ExportConfig) DirOrDefault() (string, error) {
	if e.Dir != "" {
		return e.Dir, nil
	}
	dir, err := HomeDir()
	if err != nil {
		return "", err
	}
	return filepath.Join(dir, "exports"), nil
}

// applyEnvOverrides applies environment variable overrides to the config.
func applyEnvOverrides(config *EnstatConfig) {
	a := &config.Analysis
	if v := os.Getenv("ENSTAT_KIND"); v != "" {
		a.Kind = v
	}
	envInt("ENSTAT_MAX_COMPONENTS", &a.MaxComponents)
	envInt("ENSTAT_MAX_ITERATIONS", &a.MaxIterations)
	envFloat("ENSTAT_EPSILON", &a.Epsilon)
	envFloat("ENSTAT_K_BIAS", &a.KBias)
	envBool("ENSTAT_RANDOM_INIT", &a.RandomInit)
	envInt("ENSTAT_RESTARTS", &a.Restarts)
	envInt("ENSTAT_WORKERS", &a.Workers)
	envInt("ENSTAT_PEAK_BINS", &a.PeakBins)
	if v := os.Getenv("ENSTAT_SEED"); v != "" {
		if n, err := strconv.ParseUint(v, 10, 64); err == nil {
			a.Seed = n
		}
	}

	if v := os.Getenv("ENSTAT_LOG_LEVEL"); v != "" {
		config.Logging.Level = v
	}
	if v := os.Getenv("ENSTAT_TRACE_DIR"); v != "" {
		config.Logging.TraceDir = expandPath(v)
	}

	envBool("ENSTAT_JOURNAL", &config.Journal.Enabled)
	if v := os.Getenv("ENSTAT_JOURNAL_PATH"); v != "" {
		config.Journal.Path = expandPath(v)
	}
	if v := os.Getenv("ENSTAT_EXPORT_DIR"); v != "" {
		config.Export.Dir = expandPath(v)
	}
}

func envInt(key string, dst *int) {
	if v := os.Getenv(key); v != "" {
		if n, err := strconv.Atoi(v); err == nil {
			*dst = n
		}
	}
}

func envFloat(key string, dst *float64) {
	if v := os.Getenv(key); v != "" {
		if f, err := strconv.ParseFloat(v, 64); err == nil {
			*dst = f
		}
	}
}

func envBool(key string, dst *bool) {
	if v := os.Getenv(key); v != "" {
		*dst = v == "true" || v == "1"
	}
}

// expandPath expands ${VAR} patterns and a leading ~/ in a path.
func expandPath(s string) string {
	if strings.Contains(s, "${") {
		s = os.Expand(s, os.Getenv)
	}
	if rest, ok := strings.CutPrefix(s, "~/"); ok {
		if home, err := os.UserHomeDir(); err == nil {
			s = filepath.Join(home, rest)
		}
	}
	return s
}
