package main

import (
	"context"
	"fmt"
	"os"
	"path/filepath"

	"github.com/spf13/cobra"

	"rbls/internal/project"
	"rbls/internal/storage"
)

var indexStats bool

var indexCmd = &cobra.Command{
	Use:   "index",
	Short: "Index the workspace",
	Long: `Discover and index every Ruby file in the workspace. Files whose
content is unchanged since the last run load from the snapshot instead
of being reparsed.

Examples:
  rbls index
  rbls index --workspace ~/src/myapp
  rbls index --stats`,
	Args: cobra.NoArgs,
	Run:  runIndex,
}

func init() {
	indexCmd.Flags().BoolVar(&indexStats, "stats", false, "Print index statistics after indexing")
	rootCmd.AddCommand(indexCmd)
}

func runIndex(cmd *cobra.Command, args []string) {
	root := mustWorkspaceRoot()
	cfg := mustLoadConfig(root)
	logger := newLogger(cfg)

	lock, err := storage.AcquireLock(filepath.Join(root, ".rbls"))
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
	defer lock.Release()

	manifest := project.Detect(root)
	if err := project.SaveManifest(root, manifest); err != nil {
		logger.Warn("failed to save project manifest", map[string]interface{}{
			"error": err.Error(),
		})
	}

	eng, ix, closeFn, err := openEngine(root, cfg, logger)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error opening index: %v\n", err)
		os.Exit(1)
	}
	defer closeFn()

	if !eng.ParserAvailable() {
		fmt.Fprintln(os.Stderr, "Error: this build has no parser; rebuild with CGO enabled")
		os.Exit(1)
	}

	res, err := ix.IndexWorkspace(context.Background(), root)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error indexing workspace: %v\n", err)
		os.Exit(1)
	}

	if indexStats {
		printJSON(struct {
			Result interface{} `json:"result"`
			Stats  interface{} `json:"stats"`
		}{res, eng.Stats()})
		return
	}
	printJSON(res)
}
