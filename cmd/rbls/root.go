package main

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"

	"github.com/spf13/cobra"

	"rbls/internal/config"
	"rbls/internal/engine"
	"rbls/internal/logging"
	"rbls/internal/storage"
	"rbls/internal/version"
	"rbls/internal/workspace"
)

var (
	// workspaceFlag is the CLI --workspace flag value
	workspaceFlag string
	// logLevelFlag overrides the configured log level
	logLevelFlag string
	// logFormatFlag overrides the configured log format
	logFormatFlag string
)

var rootCmd = &cobra.Command{
	Use:   "rbls",
	Short: "rbls - Ruby symbol index and language server",
	Long: `rbls indexes the classes, modules, methods and constants of a Ruby
workspace and answers resolution, ancestry and search queries over them,
either from the command line or as a language server.`,
	Version: version.Version,
}

func init() {
	rootCmd.SetVersionTemplate("rbls version {{.Version}}\n")
	rootCmd.PersistentFlags().StringVarP(&workspaceFlag, "workspace", "w", ".",
		"Workspace root to operate on")
	rootCmd.PersistentFlags().StringVar(&logLevelFlag, "log-level", "",
		"Log level: debug, info, warn, error")
	rootCmd.PersistentFlags().StringVar(&logFormatFlag, "log-format", "",
		"Log format: human or json")
}

// mustWorkspaceRoot resolves the --workspace flag to an absolute path.
func mustWorkspaceRoot() string {
	root, err := filepath.Abs(workspaceFlag)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error resolving workspace root: %v\n", err)
		os.Exit(1)
	}
	return root
}

// mustLoadConfig loads workspace configuration, applying CLI overrides.
func mustLoadConfig(root string) *config.Config {
	cfg, err := config.LoadConfig(root)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error loading config: %v\n", err)
		os.Exit(1)
	}
	if logLevelFlag != "" {
		cfg.Logging.Level = logLevelFlag
	}
	if logFormatFlag != "" {
		cfg.Logging.Format = logFormatFlag
	}
	if err := cfg.Validate(); err != nil {
		fmt.Fprintf(os.Stderr, "Error validating config: %v\n", err)
		os.Exit(1)
	}
	return cfg
}

func newLogger(cfg *config.Config) *logging.Logger {
	format := logging.HumanFormat
	if cfg.Logging.Format == "json" {
		format = logging.JSONFormat
	}
	return logging.NewLogger(logging.Config{
		Format: format,
		Level:  logging.ParseLevel(cfg.Logging.Level),
	})
}

// openEngine builds the engine plus its snapshot-backed indexer. The
// returned close function releases storage resources.
func openEngine(root string, cfg *config.Config, logger *logging.Logger) (*engine.Engine, *workspace.Indexer, func(), error) {
	eng := engine.New(cfg, logger)

	var snap *storage.Snapshot
	closeFn := func() {}
	if cfg.Cache.Enabled {
		db, err := storage.Open(root, cfg.Cache.Path, logger)
		if err != nil {
			return nil, nil, nil, err
		}
		snap, err = storage.NewSnapshot(db)
		if err != nil {
			db.Close()
			return nil, nil, nil, err
		}
		closeFn = func() {
			snap.Close()
			db.Close()
		}
	}

	ix := workspace.NewIndexer(eng, snap, cfg.Index, logger)
	return eng, ix, closeFn, nil
}

// mustIndexWorkspace indexes the workspace, falling back to a pure
// snapshot load when this build cannot parse.
func mustIndexWorkspace(ctx context.Context, root string, cfg *config.Config, logger *logging.Logger) (*engine.Engine, func()) {
	eng, ix, closeFn, err := openEngine(root, cfg, logger)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error opening index: %v\n", err)
		os.Exit(1)
	}
	if eng.ParserAvailable() {
		if _, err := ix.IndexWorkspace(ctx, root); err != nil {
			closeFn()
			fmt.Fprintf(os.Stderr, "Error indexing workspace: %v\n", err)
			os.Exit(1)
		}
	} else {
		files, err := ix.LoadFromSnapshot()
		if err != nil {
			closeFn()
			fmt.Fprintf(os.Stderr, "Error loading snapshot: %v\n", err)
			os.Exit(1)
		}
		logger.Info("loaded index from snapshot", map[string]interface{}{
			"files": files,
		})
	}
	return eng, closeFn
}

// printJSON writes v to stdout as indented JSON.
func printJSON(v interface{}) {
	data, err := json.MarshalIndent(v, "", "  ")
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error encoding output: %v\n", err)
		os.Exit(1)
	}
	fmt.Println(string(data))
}
