package main

import (
	"context"
	"strings"

	"github.com/spf13/cobra"

	"rbls/internal/entry"
	"rbls/internal/search"
)

var (
	searchLimit int
	searchKinds string
	searchFrom  string
)

var searchCmd = &cobra.Command{
	Use:   "search <query>",
	Short: "Search for symbols",
	Long: `Search indexed symbols with fuzzy matching.

Ranking: exact match beats prefix beats case-insensitive prefix beats
subsequence; tighter subsequence spans rank higher. A query containing
"::" matches fully qualified names, otherwise the final name segment.

Examples:
  rbls search Parser
  rbls search Net::HTTP
  rbls search prs --limit=10
  rbls search Config --kinds=class,module`,
	Args: cobra.ExactArgs(1),
	Run:  runSearch,
}

func init() {
	searchCmd.Flags().IntVar(&searchLimit, "limit", 0, "Maximum number of results (0 uses the configured default)")
	searchCmd.Flags().StringVar(&searchKinds, "kinds", "", "Filter by kinds (comma-separated: class,module,method,constant,...)")
	searchCmd.Flags().StringVar(&searchFrom, "from", "", "Lexical context for private-constant visibility, e.g. Foo::Bar")
	rootCmd.AddCommand(searchCmd)
}

func runSearch(cmd *cobra.Command, args []string) {
	root := mustWorkspaceRoot()
	cfg := mustLoadConfig(root)
	logger := newLogger(cfg)

	eng, closeFn := mustIndexWorkspace(context.Background(), root, cfg, logger)
	defer closeFn()

	var kinds []entry.Kind
	if searchKinds != "" {
		for _, k := range strings.Split(searchKinds, ",") {
			kinds = append(kinds, entry.Kind(strings.TrimSpace(k)))
		}
	}

	limit := searchLimit
	if limit <= 0 {
		limit = cfg.Search.DefaultLimit
	}
	results := eng.Search(args[0], search.Options{
		Limit:       limit,
		FromNesting: nestingFromFlag(searchFrom),
		Kinds:       kinds,
	})
	printJSON(results)
}

// nestingFromFlag turns "Foo::Bar" into its lexical nesting form.
func nestingFromFlag(s string) []string {
	if s == "" {
		return nil
	}
	return entry.Split(s)
}
