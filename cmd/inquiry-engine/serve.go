// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package main

import (
	"github.com/spf13/cobra"

	"github.com/pdiddy/inquiry-engine/internal/mcpserver"
)

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Serve the engine to MCP clients over stdio",
	Long: `Serve exposes two MCP tools on stdin/stdout: ask runs the full
pipeline for a question, and search_corpus queries the retrieval index.
Logs go to stderr so they never interleave with the protocol stream.`,
	RunE: func(cmd *cobra.Command, args []string) error {
		e, err := newEngine(engineCfg, loadedSecrets, logger)
		if err != nil {
			return err
		}
		defer e.Close()

		return mcpserver.NewServer(version, e.orch, e.store, logger).Run(cmd.Context())
	},
}

func init() {
	rootCmd.AddCommand(serveCmd)
}
