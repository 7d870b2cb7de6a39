package main

import (
	"fmt"
	"strings"

	"github.com/spf13/cobra"

	"github.com/nvandessel/enstat/internal/analysis"
	"github.com/nvandessel/enstat/internal/pathutil"
	"github.com/nvandessel/enstat/internal/session"
)

func newAnalyseCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:     "analyse",
		Aliases: []string{"analyze"},
		Short:   "Summarize a field per voxel over the ensemble",
		Long: `Read one field from every member and selected timestep and summarize the
values found at each voxel.

Kinds:
  gaussian_single    mean and standard deviation per voxel
  gaussian_mixture   up to --max-components Gaussians per voxel, the count
                     chosen by an information criterion

Examples:
  enstat analyse --root ./runs --field temperature
  enstat analyse --root ./runs --field 0 --kind mixture --count 10 --arrow out.arrows`,
		RunE: func(cmd *cobra.Command, args []string) error {
			e, err := loadEnv(cmd, true)
			if err != nil {
				return err
			}
			defer e.Close()

			sess, err := e.openSession(cmd)
			if err != nil {
				return err
			}
			kind, opts, err := analysisFlags(cmd, sess)
			if err != nil {
				return err
			}
			if _, _, err := sess.ReadHeaders(selectionFlags(cmd)); err != nil {
				return err
			}

			fieldName, _ := cmd.Flags().GetString("field")
			report, err := sess.Analyse(cmd.Context(), session.Request{Field: fieldName, Kind: kind, Options: opts})
			if err != nil {
				return err
			}

			if path, _ := cmd.Flags().GetString("arrow"); path != "" {
				if err := exportArrow(sess, path); err != nil {
					return err
				}
				e.logger.Info("exported fields", "path", path)
			}

			if jsonOutput(cmd) {
				return printJSON(cmd, report)
			}
			printReport(cmd, report)
			return nil
		},
	}
	addSelectionFlags(cmd)
	addAnalysisFlags(cmd)
	cmd.Flags().String("field", "", "Field name or index (required)")
	cmd.Flags().String("arrow", "", "Write the output fields to this Arrow IPC stream file")
	cmd.MarkFlagRequired("field")
	return cmd
}

func addAnalysisFlags(cmd *cobra.Command) {
	cmd.Flags().String("kind", "", "Analysis kind: gaussian_single or gaussian_mixture (default from config)")
	cmd.Flags().Int("workers", 0, "Worker goroutines (default from config, 0 = one per CPU)")
	cmd.Flags().Int("max-components", 0, "Mixture components per voxel (default from config)")
	cmd.Flags().Bool("random-init", false, "Seed mixture fits randomly instead of from quantiles")
	cmd.Flags().Uint64("seed", 0, "Seed for random initialization (0 = from clock)")
}

// analysisFlags overlays the flags that were set on the session defaults.
func analysisFlags(cmd *cobra.Command, sess *session.Session) (analysis.Kind, analysis.Options, error) {
	kind, opts := sess.Defaults()
	flags := cmd.Flags()
	if flags.Changed("kind") {
		name, _ := flags.GetString("kind")
		k, err := analysis.ParseKind(name)
		if err != nil {
			return 0, analysis.Options{}, err
		}
		kind = k
	}
	if flags.Changed("workers") {
		opts.Workers, _ = flags.GetInt("workers")
	}
	if flags.Changed("max-components") {
		opts.MaxComponents, _ = flags.GetInt("max-components")
	}
	if flags.Changed("random-init") {
		opts.Fit.RandomInit, _ = flags.GetBool("random-init")
	}
	if flags.Changed("seed") {
		opts.Seed, _ = flags.GetUint64("seed")
	}
	return kind, opts, nil
}

func exportArrow(sess *session.Session, path string) error {
	return pathutil.WriteFile(path, 0644, sess.Export)
}

func printReport(cmd *cobra.Command, r session.Report) {
	out := cmd.OutOrStdout()
	s := r.Summary
	fmt.Fprintf(out, "%s [%d] %s: %d members x %d voxels, %d workers, %s\n",
		r.Field, r.FieldIndex, r.Kind, s.Members, s.Voxels, s.Workers, s.Duration)
	for _, o := range r.Outputs {
		fmt.Fprintf(out, "  %-28s min %s  max %s\n", o.Name, formatFloats(o.Minima), formatFloats(o.Maxima))
	}
	if s.ComponentCounts != nil {
		fmt.Fprintln(out, "  components per voxel:")
		for k, n := range s.ComponentCounts {
			if n > 0 {
				fmt.Fprintf(out, "    k=%d  %d voxels\n", k, n)
			}
		}
	}
	fmt.Fprintf(out, "  display range [%g, %g], ticks %s\n", r.Display.Lower, r.Display.Upper, formatFloats(r.Display.Ticks))
	if r.RunID != 0 {
		fmt.Fprintf(out, "  run #%d\n", r.RunID)
	}
}

func formatFloats(vs []float64) string {
	parts := make([]string, len(vs))
	for i, v := range vs {
		parts[i] = fmt.Sprintf("%.4g", v)
	}
	return "[" + strings.Join(parts, " ") + "]"
}

func newPeaksCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "peaks",
		Short: "Inspect the sample distribution at one voxel",
		Long: `Collect the values of one field at one voxel over every member and
selected timestep, draw their histogram, count its modes and fit a mixture.

Examples:
  enstat peaks --root ./runs --field density --x 4 --y 4
  enstat peaks --root ./runs --field 0 --bins 32 --json`,
		RunE: func(cmd *cobra.Command, args []string) error {
			e, err := loadEnv(cmd, false)
			if err != nil {
				return err
			}
			defer e.Close()

			sess, err := e.openSession(cmd)
			if err != nil {
				return err
			}
			_, opts, err := analysisFlags(cmd, sess)
			if err != nil {
				return err
			}
			if _, _, err := sess.ReadHeaders(selectionFlags(cmd)); err != nil {
				return err
			}

			req := session.PeakRequest{Options: opts}
			req.Field, _ = cmd.Flags().GetString("field")
			req.X, _ = cmd.Flags().GetInt("x")
			req.Y, _ = cmd.Flags().GetInt("y")
			req.Z, _ = cmd.Flags().GetInt("z")
			req.Bins, _ = cmd.Flags().GetInt("bins")
			report, err := sess.Peaks(req)
			if err != nil {
				return err
			}

			if jsonOutput(cmd) {
				return printJSON(cmd, report)
			}
			printPeaks(cmd, report)
			return nil
		},
	}
	addSelectionFlags(cmd)
	addAnalysisFlags(cmd)
	cmd.Flags().String("field", "", "Field name or index (required)")
	cmd.Flags().Int("x", 0, "Voxel x coordinate")
	cmd.Flags().Int("y", 0, "Voxel y coordinate")
	cmd.Flags().Int("z", 0, "Voxel z coordinate")
	cmd.Flags().Int("bins", 0, "Histogram bins (default from config)")
	cmd.MarkFlagRequired("field")
	return cmd
}

const histogramWidth = 40

func printPeaks(cmd *cobra.Command, r session.PeakReport) {
	out := cmd.OutOrStdout()
	fmt.Fprintf(out, "%s at (%d,%d,%d): %d samples, mean %.4g, deviation %.4g\n",
		r.Field, r.X, r.Y, r.Z, len(r.Samples), r.Mean, r.Deviation)

	peak := 0
	for _, c := range r.Histogram {
		peak = max(peak, c)
	}
	for _, c := range r.Histogram {
		bar := 0
		if peak > 0 {
			bar = c * histogramWidth / peak
		}
		fmt.Fprintf(out, "  %5d %s\n", c, strings.Repeat("#", bar))
	}
	fmt.Fprintf(out, "  peaks: %d\n", r.Peaks)
	fmt.Fprintf(out, "  mixture (k=%d, AIC %.4g):\n", r.K, r.AIC)
	for _, c := range r.Mixture {
		fmt.Fprintf(out, "    mean %.4g  deviation %.4g  weight %.3f\n", c.Mean, c.Deviation(), c.Weight)
	}
}
