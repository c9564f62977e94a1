package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"rbls/internal/server"
)

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Run the language server on stdio",
	Long: `Run rbls as a language server speaking JSON-RPC over stdio. The
workspace is indexed on initialize; open documents are reindexed on
change and save. Besides standard LSP document sync and
workspace/symbol, the server answers rbls/resolveConstant,
rbls/resolveMethod, rbls/ancestors and rbls/stats.

Example editor configuration:
  command: rbls
  args: ["serve", "--log-format=json"]`,
	Args: cobra.NoArgs,
	Run:  runServe,
}

func init() {
	rootCmd.AddCommand(serveCmd)
}

func runServe(cmd *cobra.Command, args []string) {
	root := mustWorkspaceRoot()
	cfg := mustLoadConfig(root)
	cfg.WorkspaceRoot = root
	logger := newLogger(cfg)

	eng, ix, closeFn, err := openEngine(root, cfg, logger)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error opening index: %v\n", err)
		os.Exit(1)
	}
	defer closeFn()

	if !eng.ParserAvailable() {
		// Serve whatever the snapshot holds; document sync is a no-op.
		if files, err := ix.LoadFromSnapshot(); err == nil {
			logger.Info("serving snapshot without parser", map[string]interface{}{
				"files": files,
			})
		}
		ix = nil
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	srv := server.New(cfg, eng, ix, logger)
	if err := srv.RunStdio(ctx); err != nil && ctx.Err() == nil {
		fmt.Fprintf(os.Stderr, "Error running server: %v\n", err)
		os.Exit(1)
	}
}
