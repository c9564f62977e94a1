package main

import (
	"context"
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"rbls/internal/entry"
)

var ancestorsSingleton bool

var ancestorsCmd = &cobra.Command{
	Use:   "ancestors <name>",
	Short: "Print the linearized ancestor chain of a class or module",
	Long: `Print the linearized ancestor chain: prepended modules first, then the
name itself, then included modules, then the superclass chain. With
--singleton the chain of the singleton class is printed, which is where
extended modules surface.

Examples:
  rbls ancestors Myapp::Record
  rbls ancestors Myapp::Record --singleton`,
	Args: cobra.ExactArgs(1),
	Run:  runAncestors,
}

func init() {
	ancestorsCmd.Flags().BoolVar(&ancestorsSingleton, "singleton", false, "Show the singleton class chain")
	rootCmd.AddCommand(ancestorsCmd)
}

func runAncestors(cmd *cobra.Command, args []string) {
	root := mustWorkspaceRoot()
	cfg := mustLoadConfig(root)
	logger := newLogger(cfg)

	eng, closeFn := mustIndexWorkspace(context.Background(), root, cfg, logger)
	defer closeFn()

	name := args[0]
	if ancestorsSingleton {
		name = entry.SingletonNameOf(name)
	}
	chain := eng.AncestorsOf(name)
	if chain == nil {
		fmt.Fprintf(os.Stderr, "Error: no class or module named %s\n", args[0])
		os.Exit(1)
	}
	printJSON(chain)
}
