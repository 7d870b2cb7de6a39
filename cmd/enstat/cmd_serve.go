package main

import (
	"github.com/spf13/cobra"

	"github.com/nvandessel/enstat/internal/mcp"
)

func newServeCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Serve an ensemble over MCP (stdio)",
		Long: `Start a Model Context Protocol server on stdin/stdout that exposes the
ensemble at --root through the enstat_* tools. Logs go to stderr.

Exports requested by clients are confined to --export-dir.

Examples:
  enstat serve --root ./runs
  enstat serve --root ./runs --export-dir /tmp/exports`,
		RunE: func(cmd *cobra.Command, args []string) error {
			e, err := loadEnv(cmd, true)
			if err != nil {
				return err
			}
			defer e.tracer.Close()

			sessCfg, err := e.sessionConfig(cmd)
			if err != nil {
				return err
			}
			exportDir, _ := cmd.Flags().GetString("export-dir")
			if exportDir == "" {
				if exportDir, err = e.cfg.Export.DirOrDefault(); err != nil {
					return err
				}
			}

			server, err := mcp.NewServer(&mcp.Config{
				Name:      "enstat",
				Version:   version,
				Session:   sessCfg,
				ExportDir: exportDir,
			})
			if err != nil {
				if e.journal != nil {
					e.journal.Close()
				}
				return err
			}
			return server.Run(cmd.Context())
		},
	}
	cmd.Flags().String("export-dir", "", "Directory for client-requested exports (default ~/.enstat/exports)")
	return cmd
}
