// Package ancestors computes ancestor linearizations for classes and
// modules from current entry store contents. Results are never memoized:
// a linearization is only valid for the store generation it was computed
// against, so every call walks the live entries.
package ancestors

import (
	"strings"
	"sync/atomic"

	"rbls/internal/entry"
	"rbls/internal/logging"
)

// Store is the read surface the engine needs.
type Store interface {
	EntriesFor(name string) []*entry.Entry
}

// Engine linearizes superclass and mixin edges.
type Engine struct {
	store  Store
	logger *logging.Logger

	cycleBreaks    atomic.Uint64
	malformedEdges atomic.Uint64
}

// New creates an engine over the given store.
func New(store Store, logger *logging.Logger) *Engine {
	return &Engine{store: store, logger: logger}
}

// CycleBreaks reports how many cyclic edges have been dropped. Cycles
// are recovered locally, never surfaced as errors; the counter exists so
// the condition stays observable.
func (e *Engine) CycleBreaks() uint64 {
	return e.cycleBreaks.Load()
}

// MalformedEdges reports how many mixin or superclass operands failed to
// resolve to a class or module and were pruned.
func (e *Engine) MalformedEdges() uint64 {
	return e.malformedEdges.Load()
}

// AncestorsOf returns the linearized ancestor chain of a class, module
// or singleton class, the name itself first. Ordering per the host
// language: prepended modules (most recent first), the receiver, included
// modules (most recent first), then the superclass chain. Extended
// modules surface in the singleton chain. Unknown names yield nil.
func (e *Engine) AncestorsOf(name string) []string {
	l := &linearizer{
		engine: e,
		onPath: make(map[string]bool),
		seen:   make(map[string]bool),
	}
	l.linearize(name)
	return l.out
}

type linearizer struct {
	engine *Engine
	onPath map[string]bool // names on the current traversal path
	seen   map[string]bool // names already emitted
	out    []string
}

func (l *linearizer) append(name string) {
	if !l.seen[name] {
		l.seen[name] = true
		l.out = append(l.out, name)
	}
}

func (l *linearizer) linearize(name string) {
	if l.onPath[name] {
		// Revisiting a name on the current path: drop the edge and
		// keep going. A module including itself transitively still
		// gets a finite, duplicate-free chain.
		l.engine.cycleBreaks.Add(1)
		if l.engine.logger != nil {
			l.engine.logger.Debug("ancestor cycle broken", map[string]interface{}{
				"name": name,
			})
		}
		return
	}
	l.onPath[name] = true
	defer delete(l.onPath, name)

	entries := l.namespaceEntries(name)
	singleton := entry.IsSingleton(name)
	if len(entries) == 0 && !singleton {
		// Nothing declared under this name: pruned edge.
		l.engine.malformedEdges.Add(1)
		return
	}

	prepends, includes := mixinOperands(entries)
	if singleton {
		// extend M on the attached namespace behaves as an include on
		// its singleton.
		attachedEntries := l.namespaceEntries(entry.Attached(name))
		includes = append(includes, extendOperands(attachedEntries)...)
	}

	// Most recently prepended wins, so walk the recorded order backwards.
	for i := len(prepends) - 1; i >= 0; i-- {
		l.linearizeOperand(prepends[i])
	}

	l.append(name)

	// Most recently included shadows earlier includes.
	for i := len(includes) - 1; i >= 0; i-- {
		l.linearizeOperand(includes[i])
	}

	l.linearizeSuperclass(name, entries)
}

// operand is a mixin or superclass reference plus the lexical nesting it
// was recorded under.
type operand struct {
	name    string
	nesting []string
}

func (l *linearizer) linearizeOperand(op operand) {
	resolved := l.resolveOperand(op)
	if resolved == "" {
		l.engine.malformedEdges.Add(1)
		return
	}
	l.linearize(resolved)
}

func (l *linearizer) linearizeSuperclass(name string, entries []*entry.Entry) {
	if entry.IsSingleton(name) {
		// The singleton chain mirrors the instance chain: the singleton
		// of a class inherits the singleton of its superclass.
		attached := entry.Attached(name)
		sup := l.resolvedSuperclass(l.namespaceEntries(attached))
		if sup != "" {
			l.linearize(entry.SingletonNameOf(sup))
		}
		return
	}
	sup := l.resolvedSuperclass(entries)
	if sup != "" {
		l.linearize(sup)
	}
}

// resolvedSuperclass applies last-wins over the reopened class entries
// and resolves the operand, or returns "".
func (l *linearizer) resolvedSuperclass(entries []*entry.Entry) string {
	for i := len(entries) - 1; i >= 0; i-- {
		e := entries[i]
		if e.Kind != entry.KindClass || e.Superclass == "" {
			continue
		}
		if e.Superclass == entry.PlaceholderSegment {
			// Runtime-computed superclass: pruned.
			l.engine.malformedEdges.Add(1)
			return ""
		}
		// The superclass expression is evaluated in the enclosing
		// lexical scope, before the class body opens.
		nesting := e.Nesting
		if len(nesting) > 0 {
			nesting = nesting[:len(nesting)-1]
		}
		resolved := l.resolveOperand(operand{name: e.Superclass, nesting: nesting})
		if resolved == "" {
			l.engine.malformedEdges.Add(1)
		}
		return resolved
	}
	return ""
}

// resolveOperand resolves a mixin or superclass reference lexically
// against the nesting captured at its call site, falling back to top
// level. Ancestor-chain constant lookup is deliberately not consulted
// here; see the resolver for full constant resolution.
func (l *linearizer) resolveOperand(op operand) string {
	if strings.HasPrefix(op.name, entry.Separator) {
		candidate := strings.TrimPrefix(op.name, entry.Separator)
		if l.isNamespace(candidate) {
			return candidate
		}
		return ""
	}
	scopes := entry.ScopesOf(op.nesting)
	for i := len(scopes) - 1; i >= 0; i-- {
		candidate := entry.Join(scopes[i], op.name)
		if l.isNamespace(candidate) {
			return candidate
		}
	}
	if l.isNamespace(op.name) {
		return op.name
	}
	return ""
}

func (l *linearizer) isNamespace(name string) bool {
	return len(l.namespaceEntries(name)) > 0
}

func (l *linearizer) namespaceEntries(name string) []*entry.Entry {
	var out []*entry.Entry
	for _, e := range l.engine.store.EntriesFor(name) {
		if e.IsNamespace() {
			out = append(out, e)
		}
	}
	return out
}

// mixinOperands gathers prepend and include operands across all
// reopening sites, in recorded call order.
func mixinOperands(entries []*entry.Entry) (prepends, includes []operand) {
	for _, e := range entries {
		for _, m := range e.Mixins {
			op := operand{name: m.Module, nesting: e.Nesting}
			switch m.Kind {
			case entry.Prepend:
				prepends = append(prepends, op)
			case entry.Include:
				includes = append(includes, op)
			}
		}
	}
	return prepends, includes
}

// extendOperands gathers extend operands across reopening sites.
func extendOperands(entries []*entry.Entry) []operand {
	var out []operand
	for _, e := range entries {
		for _, m := range e.Mixins {
			if m.Kind == entry.Extend {
				out = append(out, operand{name: m.Module, nesting: e.Nesting})
			}
		}
	}
	return out
}
