package main

import (
	"context"
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"rbls/internal/export"
)

var exportOutput string

var exportCmd = &cobra.Command{
	Use:   "export",
	Short: "Export the index in SCIP format",
	Long: `Export every indexed definition as a SCIP index so code browsers and
cross-repo tools can consume it.

Examples:
  rbls export
  rbls export --output=build/index.scip`,
	Args: cobra.NoArgs,
	Run:  runExport,
}

func init() {
	exportCmd.Flags().StringVarP(&exportOutput, "output", "o", "index.scip", "Output file path")
	rootCmd.AddCommand(exportCmd)
}

func runExport(cmd *cobra.Command, args []string) {
	root := mustWorkspaceRoot()
	cfg := mustLoadConfig(root)
	logger := newLogger(cfg)

	eng, closeFn := mustIndexWorkspace(context.Background(), root, cfg, logger)
	defer closeFn()

	if err := export.WriteSCIP(eng, root, exportOutput); err != nil {
		fmt.Fprintf(os.Stderr, "Error exporting index: %v\n", err)
		os.Exit(1)
	}
	stats := eng.Stats()
	logger.Info("index exported", map[string]interface{}{
		"path":    exportOutput,
		"files":   stats.Files,
		"entries": stats.Entries,
	})
}
