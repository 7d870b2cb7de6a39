package main

import (
	"encoding/json"
	"fmt"
	"log/slog"

	"github.com/spf13/cobra"

	"github.com/nvandessel/enstat/internal/config"
	"github.com/nvandessel/enstat/internal/journal"
	"github.com/nvandessel/enstat/internal/logging"
	"github.com/nvandessel/enstat/internal/session"
)

// env is the configuration and the logging, tracing and journal handles
// shared by the commands of one invocation.
type env struct {
	cfg     *config.EnstatConfig
	logger  *slog.Logger
	tracer  *logging.TraceLogger
	journal *journal.Journal
}

// loadEnv loads the configuration named by --config, applies --log-level
// and opens the journal when withJournal is set and journaling is enabled.
// A journal that cannot be opened is logged and skipped.
func loadEnv(cmd *cobra.Command, withJournal bool) (*env, error) {
	configPath, _ := cmd.Flags().GetString("config")
	cfg, err := config.LoadFrom(configPath)
	if err != nil {
		return nil, fmt.Errorf("failed to load config: %w", err)
	}
	if level, _ := cmd.Flags().GetString("log-level"); level != "" {
		cfg.Logging.Level = level
	}
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid config: %w", err)
	}

	e := &env{
		cfg:    cfg,
		logger: logging.NewLogger(cfg.Logging.Level, cmd.ErrOrStderr()),
	}
	if dir, err := cfg.Logging.TraceDirOrDefault(); err == nil {
		e.tracer = logging.NewTraceLogger(dir, cfg.Logging.Level)
	}
	if withJournal && cfg.Journal.Enabled {
		path, err := cfg.Journal.PathOrDefault()
		if err == nil {
			e.journal, err = journal.Open(cmd.Context(), path)
		}
		if err != nil {
			e.logger.Warn("run journal unavailable", "error", err)
		}
	}
	return e, nil
}

// sessionConfig returns the session configuration for the ensemble at
// --root.
func (e *env) sessionConfig(cmd *cobra.Command) (session.Config, error) {
	root, _ := cmd.Flags().GetString("root")
	kind, opts, err := e.cfg.Analysis.Options()
	if err != nil {
		return session.Config{}, err
	}
	cfg := session.Config{
		Root:     root,
		Logger:   e.logger,
		Journal:  e.journal,
		Kind:     kind,
		Options:  opts,
		PeakBins: e.cfg.Analysis.PeakBins,
	}
	if e.tracer != nil {
		cfg.Tracer = e.tracer
	}
	return cfg, nil
}

func (e *env) openSession(cmd *cobra.Command) (*session.Session, error) {
	cfg, err := e.sessionConfig(cmd)
	if err != nil {
		return nil, err
	}
	return session.Open(cfg)
}

func (e *env) Close() {
	e.tracer.Close()
	if e.journal != nil {
		e.journal.Close()
	}
}

func jsonOutput(cmd *cobra.Command) bool {
	v, _ := cmd.Flags().GetBool("json")
	return v
}

func printJSON(cmd *cobra.Command, v any) error {
	enc := json.NewEncoder(cmd.OutOrStdout())
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}

// addSelectionFlags registers the timestep selection flags.
func addSelectionFlags(cmd *cobra.Command) {
	cmd.Flags().Int("step", 0, "First timestep to aggregate")
	cmd.Flags().Int("count", 1, "Number of timesteps to aggregate")
	cmd.Flags().Int("stride", 1, "Distance between aggregated timesteps")
}

func selectionFlags(cmd *cobra.Command) (step, count, stride int) {
	step, _ = cmd.Flags().GetInt("step")
	count, _ = cmd.Flags().GetInt("count")
	stride, _ = cmd.Flags().GetInt("stride")
	return step, count, stride
}
