package main

import (
	"context"
	"fmt"
	"os"

	"github.com/spf13/cobra"
)

var (
	resolveFrom      string
	resolveMethod    bool
	resolveOwner     string
	resolveSingleton bool
	resolveAliases   bool
)

var resolveCmd = &cobra.Command{
	Use:   "resolve <name>",
	Short: "Resolve a constant or method reference",
	Long: `Resolve a name the way the language would at the given position.

Constants follow lexical nesting (innermost scope first), then the
ancestor chain of the innermost enclosing namespace, then top level.
Methods search the receiver's linearized ancestor chain; with no
--owner, every class defining the method is a candidate, capped by
configuration.

Examples:
  rbls resolve Config --from=Myapp::Server
  rbls resolve ::Kernel
  rbls resolve save --method --owner=Myapp::Record
  rbls resolve create --method --owner=Myapp::Record --singleton
  rbls resolve parse --method`,
	Args: cobra.ExactArgs(1),
	Run:  runResolve,
}

func init() {
	resolveCmd.Flags().StringVar(&resolveFrom, "from", "", "Lexical context of the reference, e.g. Foo::Bar")
	resolveCmd.Flags().BoolVar(&resolveMethod, "method", false, "Resolve a method instead of a constant")
	resolveCmd.Flags().StringVar(&resolveOwner, "owner", "", "Receiver class or module for method resolution")
	resolveCmd.Flags().BoolVar(&resolveSingleton, "singleton", false, "Resolve against the owner's singleton chain")
	resolveCmd.Flags().BoolVar(&resolveAliases, "follow-aliases", false, "Resolve alias results to their targets")
	rootCmd.AddCommand(resolveCmd)
}

func runResolve(cmd *cobra.Command, args []string) {
	root := mustWorkspaceRoot()
	cfg := mustLoadConfig(root)
	logger := newLogger(cfg)

	eng, closeFn := mustIndexWorkspace(context.Background(), root, cfg, logger)
	defer closeFn()

	if resolveMethod {
		printJSON(eng.ResolveMethod(args[0], resolveOwner, resolveSingleton))
		return
	}
	if resolveOwner != "" || resolveSingleton {
		fmt.Fprintln(os.Stderr, "Error: --owner and --singleton require --method")
		os.Exit(1)
	}

	results := eng.ResolveConstant(args[0], nestingFromFlag(resolveFrom))
	if resolveAliases {
		for i, e := range results {
			if resolved := eng.ResolveAlias(e); resolved != nil {
				results[i] = resolved
			}
		}
	}
	printJSON(results)
}
