package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"
)

var version = "0.1.0-dev"

func main() {
	if err := newRootCmd().Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

func newRootCmd() *cobra.Command {
	rootCmd := &cobra.Command{
		Use:   "enstat",
		Short: "Ensemble statistics for gridded simulation output",
		Long: `enstat summarizes ensembles of simulation runs stored as text timestep
files. For every voxel of a field it fits either a single Gaussian or a
Gaussian mixture to the values of all members over a range of timesteps.

An ensemble is a directory with one subdirectory per simulation, each
holding the same number of timestep files.`,
		SilenceUsage: true,
	}
	addPersistentFlags(rootCmd)

	rootCmd.AddCommand(
		newVersionCmd(),
		newScanCmd(),
		newHeadersCmd(),
		newAnalyseCmd(),
		newPeaksCmd(),
		newRunsCmd(),
		newConfigCmd(),
		newServeCmd(),
		newGenerateCmd(),
	)
	return rootCmd
}

func addPersistentFlags(cmd *cobra.Command) {
	cmd.PersistentFlags().Bool("json", false, "Output as JSON")
	cmd.PersistentFlags().String("root", ".", "Ensemble root directory")
	cmd.PersistentFlags().String("config", "", "Config file (default ~/.enstat/config.yaml)")
	cmd.PersistentFlags().String("log-level", "", "Log level: info, debug or trace")
}
