// Package engine ties the parser, visitor, store, ancestry, resolver and
// search together behind one facade. Commands and the language server
// talk to the engine; they never touch the lower layers directly.
package engine

import (
	"context"
	"sync"

	"rbls/internal/ancestors"
	"rbls/internal/config"
	"rbls/internal/entry"
	rblserrors "rbls/internal/errors"
	"rbls/internal/index"
	"rbls/internal/logging"
	"rbls/internal/parser"
	"rbls/internal/resolver"
	"rbls/internal/search"
	"rbls/internal/visitor"
)

// Engine is the in-memory symbol index with resolution and search on top.
type Engine struct {
	store    *index.Store
	ancestry *ancestors.Engine
	resolver *resolver.Resolver
	searcher *search.Searcher
	logger   *logging.Logger

	// parsers pools one parser per concurrent caller: a tree-sitter
	// parser is not safe for concurrent use, and IndexSource runs in
	// parallel from the workspace worker pool and async server handlers.
	parsers sync.Pool
}

// New builds an engine from configuration.
func New(cfg *config.Config, logger *logging.Logger) *Engine {
	store := index.NewStore()
	ancestry := ancestors.New(store, logger)
	res := resolver.New(store, ancestry, resolver.Config{
		MaxMethodCandidates: cfg.Resolution.MaxMethodCandidates,
		MaxAliasDepth:       cfg.Resolution.MaxAliasDepth,
	}, logger)
	return &Engine{
		store:    store,
		ancestry: ancestry,
		resolver: res,
		searcher: search.New(store),
		logger:   logger,
		parsers: sync.Pool{
			New: func() interface{} { return parser.New() },
		},
	}
}

// ParserAvailable reports whether this build can parse source files.
func (e *Engine) ParserAvailable() bool {
	return parser.Available()
}

// IndexSource parses src and replaces the file's entries in one step.
// Returns the number of entries indexed. Parse errors inside the file
// produce a partial parse, not a failure; only a wholly unreadable tree
// errors out.
func (e *Engine) IndexSource(ctx context.Context, fileID string, src []byte) (int, error) {
	if !parser.Available() {
		return 0, rblserrors.Newf(rblserrors.ParserUnavailable,
			"this build has no parser; reindex with a CGO-enabled binary or load a snapshot")
	}
	p := e.parsers.Get().(*parser.Parser)
	events, err := p.Parse(ctx, fileID, src)
	e.parsers.Put(p)
	if err != nil {
		return 0, rblserrors.New(rblserrors.ParseFailed, "parse failed for "+fileID, err)
	}
	entries := visitor.Run(fileID, events)
	e.store.ReplaceFile(fileID, entries)
	return len(entries), nil
}

// IndexEvents replaces a file's entries from pre-parsed events. Used by
// tests and by callers that produce events without tree-sitter.
func (e *Engine) IndexEvents(fileID string, events []parser.Event) int {
	entries := visitor.Run(fileID, events)
	e.store.ReplaceFile(fileID, entries)
	return len(entries)
}

// LoadEntries replaces a file's entries directly, bypassing the parser.
// This is the snapshot restore path.
func (e *Engine) LoadEntries(fileID string, entries []*entry.Entry) {
	e.store.ReplaceFile(fileID, entries)
}

// DeleteFile removes every entry contributed by the file.
func (e *Engine) DeleteFile(fileID string) {
	e.store.DeleteFile(fileID)
}

// EntriesFor returns the entries under an exact name.
func (e *Engine) EntriesFor(name string) []*entry.Entry {
	return e.store.EntriesFor(name)
}

// EntriesForFile returns the entries contributed by a file.
func (e *Engine) EntriesForFile(fileID string) []*entry.Entry {
	return e.store.EntriesForFile(fileID)
}

// Files returns the indexed file IDs.
func (e *Engine) Files() []string {
	return e.store.Files()
}

// Names returns all indexed names in sorted order.
func (e *Engine) Names() []string {
	return e.store.Names()
}

// Generation returns the store generation id. It changes on every
// mutation, so cached derived results can be invalidated by comparison.
func (e *Engine) Generation() string {
	return e.store.Generation()
}

// ResolveConstant resolves a constant reference from a lexical nesting.
func (e *Engine) ResolveConstant(name string, nesting []string) []*entry.Entry {
	return e.resolver.ResolveConstant(name, nesting)
}

// ResolveMethod resolves a method call. See resolver.ResolveMethod.
func (e *Engine) ResolveMethod(name, owner string, singleton bool) []*entry.Entry {
	return e.resolver.ResolveMethod(name, owner, singleton)
}

// ResolveAlias resolves an alias entry to its concrete target.
func (e *Engine) ResolveAlias(ent *entry.Entry) *entry.Entry {
	return e.resolver.ResolveAlias(ent)
}

// AncestorsOf returns the linearized ancestor chain of a namespace.
func (e *Engine) AncestorsOf(name string) []string {
	return e.ancestry.AncestorsOf(name)
}

// Search runs ranked fuzzy search over the index.
func (e *Engine) Search(query string, opts search.Options) []search.Result {
	return e.searcher.Search(query, opts)
}

// Stats is a point-in-time snapshot of index size and the bounded
// degradation counters.
type Stats struct {
	Files             int    `json:"files"`
	Entries           int    `json:"entries"`
	Generation        string `json:"generation"`
	CycleBreaks       uint64 `json:"cycleBreaks"`
	MalformedEdges    uint64 `json:"malformedEdges"`
	AliasTruncations  uint64 `json:"aliasTruncations"`
	FanoutTruncations uint64 `json:"fanoutTruncations"`
}

// Stats reports current index statistics.
func (e *Engine) Stats() Stats {
	return Stats{
		Files:             e.store.FileCount(),
		Entries:           e.store.Len(),
		Generation:        e.store.Generation(),
		CycleBreaks:       e.ancestry.CycleBreaks(),
		MalformedEdges:    e.ancestry.MalformedEdges(),
		AliasTruncations:  e.resolver.AliasTruncations(),
		FanoutTruncations: e.resolver.FanoutTruncations(),
	}
}
