// Package resolver answers "what does this name refer to" given a lexical
// context. Resolution never fails: a miss is an empty result, and every
// fan-out is bounded by configuration rather than time.
package resolver

import (
	"strings"
	"sync/atomic"

	"rbls/internal/entry"
	"rbls/internal/logging"
)

// Store is the read surface the resolver needs.
type Store interface {
	EntriesFor(name string) []*entry.Entry
	Names() []string
}

// Ancestry computes linearized ancestor chains.
type Ancestry interface {
	AncestorsOf(name string) []string
}

// Config bounds resolution fan-out.
type Config struct {
	// MaxMethodCandidates caps the candidates returned by a method
	// lookup, including guessed-receiver fan-out.
	MaxMethodCandidates int
	// MaxAliasDepth caps alias-of-alias chains before giving up.
	MaxAliasDepth int
}

// DefaultConfig returns the default resolution bounds.
func DefaultConfig() Config {
	return Config{
		MaxMethodCandidates: 10,
		MaxAliasDepth:       5,
	}
}

// Resolver resolves constants and methods against the index.
type Resolver struct {
	store    Store
	ancestry Ancestry
	cfg      Config
	logger   *logging.Logger

	aliasTruncations  atomic.Uint64
	fanoutTruncations atomic.Uint64
}

// New creates a resolver.
func New(store Store, ancestry Ancestry, cfg Config, logger *logging.Logger) *Resolver {
	if cfg.MaxMethodCandidates <= 0 {
		cfg.MaxMethodCandidates = DefaultConfig().MaxMethodCandidates
	}
	if cfg.MaxAliasDepth <= 0 {
		cfg.MaxAliasDepth = DefaultConfig().MaxAliasDepth
	}
	return &Resolver{store: store, ancestry: ancestry, cfg: cfg, logger: logger}
}

// AliasTruncations reports how many alias chains exceeded the depth bound.
func (r *Resolver) AliasTruncations() uint64 {
	return r.aliasTruncations.Load()
}

// FanoutTruncations reports how many method lookups hit the candidate cap.
func (r *Resolver) FanoutTruncations() uint64 {
	return r.fanoutTruncations.Load()
}

// ResolveConstant resolves a constant reference from the given lexical
// nesting (outermost first). Lookup order: each enclosing scope from
// innermost to outermost, then the ancestor chain of the innermost
// enclosing namespace, then top level. All candidates found at the
// winning tier are returned; private constants are filtered by the
// caller's namespace.
func (r *Resolver) ResolveConstant(name string, nesting []string) []*entry.Entry {
	if strings.HasPrefix(name, entry.Separator) {
		// Explicit root reference skips lexical and ancestor lookup.
		return r.constantEntries(strings.TrimPrefix(name, entry.Separator), nesting)
	}

	// Tier 1: lexical scopes, innermost first.
	scopes := entry.ScopesOf(nesting)
	for i := len(scopes) - 1; i >= 0; i-- {
		candidate := entry.Join(scopes[i], name)
		if found := r.constantEntries(candidate, nesting); len(found) > 0 {
			return found
		}
	}

	// Tier 2: ancestors of the innermost enclosing namespace.
	if len(scopes) > 0 {
		inner := scopes[len(scopes)-1]
		for _, anc := range r.ancestry.AncestorsOf(inner) {
			if anc == inner {
				continue // probed lexically above
			}
			if found := r.constantEntries(entry.Join(anc, name), nesting); len(found) > 0 {
				return found
			}
		}
	}

	// Tier 3: top level.
	return r.constantEntries(name, nesting)
}

// constantEntries returns the constant-like entries under a fully
// qualified name that are visible from the caller's nesting.
func (r *Resolver) constantEntries(name string, nesting []string) []*entry.Entry {
	var out []*entry.Entry
	for _, e := range r.store.EntriesFor(name) {
		if e.IsConstantLike() && e.VisibleFrom(nesting) {
			out = append(out, e)
		}
	}
	return out
}

// ResolveMethod returns the ordered candidate entries for a method call
// on owner. With singleton set, the lookup runs against the owner's
// singleton chain (class-level methods). An empty owner triggers
// guessed-receiver fan-out over every class defining the method name,
// capped by configuration. Alias entries resolve to their targets.
func (r *Resolver) ResolveMethod(name, owner string, singleton bool) []*entry.Entry {
	all := r.methodEntries(name)
	if len(all) == 0 {
		return nil
	}

	if owner == "" {
		return r.guessedCandidates(all)
	}

	recv := owner
	if singleton {
		recv = entry.SingletonNameOf(owner)
	}

	chain := r.ancestry.AncestorsOf(recv)
	if len(chain) == 0 && entry.HasPlaceholder(recv) {
		chain = []string{recv}
	}

	byOwner := make(map[string][]*entry.Entry, len(all))
	for _, e := range all {
		byOwner[e.Owner] = append(byOwner[e.Owner], e)
	}

	var out []*entry.Entry
	appendOwned := func(list []*entry.Entry) bool {
		for _, e := range list {
			if resolved := r.resolveMethodEntry(e); resolved != nil {
				out = append(out, resolved)
				if len(out) >= r.cfg.MaxMethodCandidates {
					r.fanoutTruncations.Add(1)
					return false
				}
			}
		}
		return true
	}

	for _, anc := range chain {
		if !appendOwned(byOwner[anc]) {
			return out
		}
	}

	// A placeholder segment may correspond to any concrete namespace at
	// runtime: also try concretely named owners sharing the final
	// segment. Documented approximation, not a guarantee.
	if entry.HasPlaceholder(recv) {
		last := entry.LastSegment(recv)
		for ownerName, list := range byOwner {
			if ownerName == recv || entry.LastSegment(ownerName) != last {
				continue
			}
			if !appendOwned(list) {
				return out
			}
		}
	}

	return out
}

// guessedCandidates implements unknown-receiver fan-out: every entry
// under the method name is a candidate, capped.
func (r *Resolver) guessedCandidates(all []*entry.Entry) []*entry.Entry {
	var out []*entry.Entry
	for _, e := range all {
		if resolved := r.resolveMethodEntry(e); resolved != nil {
			out = append(out, resolved)
			if len(out) >= r.cfg.MaxMethodCandidates {
				r.fanoutTruncations.Add(1)
				break
			}
		}
	}
	return out
}

func (r *Resolver) methodEntries(name string) []*entry.Entry {
	var out []*entry.Entry
	for _, e := range r.store.EntriesFor(name) {
		if e.IsMethodLike() {
			out = append(out, e)
		}
	}
	return out
}

// resolveMethodEntry passes plain methods through and resolves aliases
// to their target declarations so callers see the real signature and
// location. Unresolvable aliases are dropped.
func (r *Resolver) resolveMethodEntry(e *entry.Entry) *entry.Entry {
	if e.Kind != entry.KindMethodAlias {
		return e
	}
	return r.resolveMethodAlias(e, 0)
}

func (r *Resolver) resolveMethodAlias(alias *entry.Entry, depth int) *entry.Entry {
	if depth >= r.cfg.MaxAliasDepth {
		r.aliasTruncations.Add(1)
		return nil
	}
	chain := r.ancestry.AncestorsOf(alias.Owner)
	if len(chain) == 0 {
		chain = []string{alias.Owner}
	}
	byOwner := make(map[string]bool, len(chain))
	for _, anc := range chain {
		byOwner[anc] = true
	}
	for _, e := range r.methodEntries(alias.Target) {
		if !byOwner[e.Owner] {
			continue
		}
		if e.Kind == entry.KindMethodAlias {
			return r.resolveMethodAlias(e, depth+1)
		}
		return e
	}
	return nil
}

// ResolveAlias resolves a constant or method alias entry to its concrete
// target. Non-alias entries resolve to themselves; a broken or overly
// deep chain yields nil.
func (r *Resolver) ResolveAlias(e *entry.Entry) *entry.Entry {
	switch e.Kind {
	case entry.KindMethodAlias:
		return r.resolveMethodAlias(e, 0)
	case entry.KindConstantAlias:
		return r.resolveConstantAlias(e, 0)
	default:
		return e
	}
}

func (r *Resolver) resolveConstantAlias(alias *entry.Entry, depth int) *entry.Entry {
	if depth >= r.cfg.MaxAliasDepth {
		r.aliasTruncations.Add(1)
		return nil
	}
	for _, e := range r.ResolveConstant(alias.Target, alias.Nesting) {
		if e == alias {
			continue
		}
		if e.Kind == entry.KindConstantAlias {
			return r.resolveConstantAlias(e, depth+1)
		}
		return e
	}
	return nil
}
