package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/nvandessel/enstat/internal/session"
)

func newScanCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "scan",
		Short: "Validate an ensemble directory and report its shape",
		Long: `Scan the ensemble at --root: count the simulations and their timestep
files and check that every simulation holds the same number of files.

Examples:
  enstat scan --root ./runs
  enstat scan --root ./runs --files --json`,
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
			withFiles, _ := cmd.Flags().GetBool("files")
			info := sess.Info(withFiles)

			if jsonOutput(cmd) {
				return printJSON(cmd, info)
			}
			out := cmd.OutOrStdout()
			fmt.Fprintf(out, "Ensemble %s\n", info.Root)
			fmt.Fprintf(out, "  simulations: %d\n", info.Simulations)
			fmt.Fprintf(out, "  timesteps:   %d\n", info.Steps)
			for i, f := range info.Files {
				fmt.Fprintf(out, "  [%4d] %s\n", i, f)
			}
			return nil
		},
	}
	cmd.Flags().Bool("files", false, "List timestep files in canonical order")
	return cmd
}

func newHeadersCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "headers",
		Short: "Read the field headers of a timestep selection",
		Long: `Read the header of every file in the selection and list the fields
they share. Fails if any two headers disagree.

Examples:
  enstat headers --root ./runs
  enstat headers --root ./runs --step 10 --count 5 --stride 2`,
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
			sel, fields, err := sess.ReadHeaders(selectionFlags(cmd))
			if err != nil {
				return err
			}

			if jsonOutput(cmd) {
				return printJSON(cmd, map[string]any{"selection": sel, "fields": fields})
			}
			out := cmd.OutOrStdout()
			fmt.Fprintf(out, "Timesteps %v\n", sel.Steps())
			printFields(cmd, fields)
			return nil
		},
	}
	addSelectionFlags(cmd)
	return cmd
}

func printFields(cmd *cobra.Command, fields []session.FieldInfo) {
	out := cmd.OutOrStdout()
	for _, f := range fields {
		fmt.Fprintf(out, "  [%d] %-20s %dx%dx%d\n", f.Index, f.Name, f.Layout.Width, f.Layout.Height, f.Layout.Depth)
	}
}
