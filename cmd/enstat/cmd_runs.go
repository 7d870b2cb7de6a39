package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/nvandessel/enstat/internal/config"
	"github.com/nvandessel/enstat/internal/journal"
)

func newRunsCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "runs",
		Short: "List journaled analysis runs",
		Long: `List the analysis runs recorded in the run journal, newest first.

Examples:
  enstat runs
  enstat runs --limit 5 --json`,
		RunE: func(cmd *cobra.Command, args []string) error {
			e, err := loadEnv(cmd, true)
			if err != nil {
				return err
			}
			defer e.Close()
			if e.journal == nil {
				return fmt.Errorf("run journal is disabled or unavailable")
			}

			limit, _ := cmd.Flags().GetInt("limit")
			runs, err := e.journal.List(cmd.Context(), limit)
			if err != nil {
				return err
			}

			if jsonOutput(cmd) {
				if runs == nil {
					runs = []journal.Run{}
				}
				return printJSON(cmd, map[string]any{"runs": runs, "count": len(runs)})
			}
			out := cmd.OutOrStdout()
			if len(runs) == 0 {
				fmt.Fprintln(out, "No runs recorded.")
				return nil
			}
			for _, r := range runs {
				fmt.Fprintf(out, "#%-4d %s  %-6s %-16s %-20s steps %d+%dx%d  %d members  %s\n",
					r.ID, r.StartedAt.Format("2006-01-02 15:04:05"), r.Status, r.Kind, r.Field,
					r.Step, r.Count, r.Stride, r.Members, r.Duration)
				if r.Error != "" {
					fmt.Fprintf(out, "      %s\n", r.Error)
				}
			}
			return nil
		},
	}
	cmd.Flags().Int("limit", 20, "Maximum runs to list (0 = all)")
	return cmd
}

// journalPath reports where the journal lives for the loaded config.
func journalPath(cfg *config.EnstatConfig) string {
	path, err := cfg.Journal.PathOrDefault()
	if err != nil {
		return "(unavailable)"
	}
	return path
}
