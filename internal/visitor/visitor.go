// Package visitor builds index entries from one file's declaration events,
// tracking lexical nesting, singleton contexts and visibility state.
package visitor

import (
	"strings"

	"rbls/internal/entry"
	"rbls/internal/parser"
)

type scopeKind int

const (
	namespaceScope scopeKind = iota
	singletonScope
	methodScope
)

type scope struct {
	kind     scopeKind
	owner    string // fully qualified name owning declarations in this scope
	declared string // name as written, namespace scopes only
	vis      entry.Visibility
	// entry is the namespace entry mixin calls attach to. Nil for
	// method scopes and dynamic singleton scopes.
	entry *entry.Entry
	// members tracks methods and accessors declared in this scope by
	// short name, for post-hoc visibility calls (`private :foo`).
	members map[string][]*entry.Entry
}

// Visitor transforms one file's events into entries.
type Visitor struct {
	fileID  string
	entries []*entry.Entry
	scopes  []*scope
	// singletonEntries dedupes implicit singleton class entries created
	// for `def self.x` outside an explicit `class << self` body.
	singletonEntries map[string]bool
}

// Run processes a file's event stream and returns its entries.
func Run(fileID string, events []parser.Event) []*entry.Entry {
	v := &Visitor{
		fileID:           fileID,
		singletonEntries: make(map[string]bool),
	}
	for _, ev := range events {
		v.handle(ev)
	}
	return v.entries
}

func (v *Visitor) handle(ev parser.Event) {
	switch ev.Kind {
	case parser.EventClassOpen:
		v.openNamespace(ev, entry.KindClass)
	case parser.EventModuleOpen:
		v.openNamespace(ev, entry.KindModule)
	case parser.EventSingletonClassOpen:
		v.openSingleton(ev)
	case parser.EventMethodOpen:
		v.openMethod(ev)
	case parser.EventScopeClose:
		v.closeScope()
	case parser.EventConstant:
		v.addConstant(ev)
	case parser.EventMethodAlias:
		v.addMethodAlias(ev)
	case parser.EventMixin:
		v.addMixin(ev)
	case parser.EventAccessor:
		v.addAccessor(ev)
	case parser.EventVisibility:
		v.applyVisibility(ev)
	case parser.EventPrivateConstant:
		v.applyPrivateConstant(ev)
	case parser.EventGlobalVariable:
		v.addVariable(ev, entry.KindGlobalVariable)
	case parser.EventClassVariable:
		v.addVariable(ev, entry.KindClassVariable)
	case parser.EventInstanceVariable:
		v.addVariable(ev, entry.KindInstanceVariable)
	}
}

// currentOwner returns the fully qualified name of the innermost
// enclosing namespace or singleton scope. Method scopes are skipped:
// a def nested inside another def still belongs to the enclosing
// class or module, never to the outer method.
func (v *Visitor) currentOwner() string {
	for i := len(v.scopes) - 1; i >= 0; i-- {
		if v.scopes[i].kind != methodScope {
			return v.scopes[i].owner
		}
	}
	return ""
}

// declScope returns the scope that owns member registrations and
// visibility state, skipping method scopes.
func (v *Visitor) declScope() *scope {
	for i := len(v.scopes) - 1; i >= 0; i-- {
		if v.scopes[i].kind != methodScope {
			return v.scopes[i]
		}
	}
	return nil
}

func (v *Visitor) inMethod() bool {
	for i := len(v.scopes) - 1; i >= 0; i-- {
		if v.scopes[i].kind == methodScope {
			return true
		}
	}
	return false
}

// innermostMethod returns the innermost method scope, if any.
func (v *Visitor) innermostMethod() *scope {
	for i := len(v.scopes) - 1; i >= 0; i-- {
		if v.scopes[i].kind == methodScope {
			return v.scopes[i]
		}
	}
	return nil
}

// nestingNames returns the declared names of the enclosing namespace
// scopes, outermost first. Elements may be compound paths (`Foo::Bar`).
func (v *Visitor) nestingNames() []string {
	var names []string
	for _, s := range v.scopes {
		if s.kind == namespaceScope && s.declared != "" {
			names = append(names, s.declared)
		}
	}
	return names
}

func (v *Visitor) currentVisibility() entry.Visibility {
	if s := v.declScope(); s != nil {
		return s.vis
	}
	return entry.Public
}

func (v *Visitor) add(e *entry.Entry) {
	v.entries = append(v.entries, e)
}

func (v *Visitor) openNamespace(ev parser.Event, kind entry.Kind) {
	// Root-anchored names (`class ::Foo`) keep their leading separator
	// in the recorded nesting so operand resolution re-anchors at the
	// top level instead of joining onto the enclosing scope.
	declared := ev.Name
	var fqn string
	if strings.HasPrefix(declared, entry.Separator) {
		fqn = strings.TrimPrefix(declared, entry.Separator)
	} else {
		fqn = entry.Join(v.currentOwner(), declared)
	}

	e := &entry.Entry{
		Name:         fqn,
		Kind:         kind,
		FileID:       v.fileID,
		Location:     ev.Location,
		NameLocation: ev.NameLocation,
		Visibility:   entry.Public,
		Nesting:      append(v.nestingNames(), declared),
		Superclass:   ev.Superclass,
	}
	v.add(e)
	// Classes and modules are constants too: register against the
	// enclosing scope so private_constant can reach them.
	if s := v.declScope(); s != nil && s.members != nil {
		key := entry.LastSegment(declared)
		s.members[key] = append(s.members[key], e)
	}
	v.pushScope(&scope{
		kind:     namespaceScope,
		owner:    fqn,
		declared: declared,
		vis:      entry.Public,
		entry:    e,
		members:  make(map[string][]*entry.Entry),
	})
}

func (v *Visitor) openSingleton(ev parser.Event) {
	if ev.Receiver != parser.ReceiverSelf {
		// `class << obj`: the receiver is a runtime value, so members
		// land under a placeholder owner.
		owner := entry.SingletonNameOf(entry.Join(v.currentOwner(), entry.PlaceholderSegment))
		v.pushScope(&scope{
			kind:    singletonScope,
			owner:   owner,
			vis:     entry.Public,
			members: make(map[string][]*entry.Entry),
		})
		return
	}

	owner := entry.SingletonNameOf(v.currentOwner())
	e := &entry.Entry{
		Name:         owner,
		Kind:         entry.KindSingletonClass,
		FileID:       v.fileID,
		Location:     ev.Location,
		NameLocation: ev.Location,
		Visibility:   entry.Public,
		Nesting:      v.nestingNames(),
	}
	v.add(e)
	v.singletonEntries[owner] = true
	v.pushScope(&scope{
		kind:    singletonScope,
		owner:   owner,
		vis:     entry.Public,
		entry:   e,
		members: make(map[string][]*entry.Entry),
	})
}

func (v *Visitor) openMethod(ev parser.Event) {
	owner := v.currentOwner()
	kind := entry.KindMethod

	switch {
	case ev.Receiver == parser.ReceiverDynamic:
		// `def obj.foo`: no static owner. Keep the scope so nested
		// defs still attribute correctly, but record no entry.
		v.pushScope(&scope{kind: methodScope, owner: owner})
		return
	case ev.ReceiverName != "":
		// `def Foo.bar`: qualified against the current nesting, kept
		// verbatim even when Foo is not declared locally.
		owner = entry.SingletonNameOf(entry.Join(owner, ev.ReceiverName))
		kind = entry.KindSingletonMethod
	case ev.Receiver == parser.ReceiverSelf:
		owner = entry.SingletonNameOf(owner)
		kind = entry.KindSingletonMethod
		v.ensureSingletonEntry(owner, ev)
	default:
		if s := v.declScope(); s != nil && s.kind == singletonScope {
			kind = entry.KindSingletonMethod
			// owner is already the singleton name via currentOwner.
		}
	}

	vis := v.currentVisibility()
	if ev.Visibility != "" {
		vis = ev.Visibility
	}

	e := &entry.Entry{
		Name:         ev.Name,
		Kind:         kind,
		FileID:       v.fileID,
		Location:     ev.Location,
		NameLocation: ev.NameLocation,
		Visibility:   vis,
		Owner:        owner,
		Parameters:   ev.Params,
	}
	v.add(e)
	v.registerMember(e)
	v.pushScope(&scope{kind: methodScope, owner: owner})
}

// ensureSingletonEntry records an implicit singleton class entry the
// first time a `def self.x` appears outside an explicit `class << self`.
func (v *Visitor) ensureSingletonEntry(owner string, ev parser.Event) {
	if v.singletonEntries[owner] {
		return
	}
	v.singletonEntries[owner] = true
	v.add(&entry.Entry{
		Name:         owner,
		Kind:         entry.KindSingletonClass,
		FileID:       v.fileID,
		Location:     ev.Location,
		NameLocation: ev.Location,
		Visibility:   entry.Public,
		Nesting:      v.nestingNames(),
	})
}

func (v *Visitor) closeScope() {
	if len(v.scopes) > 0 {
		v.scopes = v.scopes[:len(v.scopes)-1]
	}
}

func (v *Visitor) pushScope(s *scope) {
	v.scopes = append(v.scopes, s)
}

func (v *Visitor) addConstant(ev parser.Event) {
	if v.inMethod() {
		// Assignment inside a method body runs at call time; there is
		// no static declaration to record.
		return
	}
	name := ev.Name
	var fqn string
	if strings.HasPrefix(name, entry.Separator) {
		fqn = strings.TrimPrefix(name, entry.Separator)
	} else {
		fqn = entry.Join(v.currentOwner(), name)
	}

	kind := entry.KindConstant
	if ev.Target != "" {
		kind = entry.KindConstantAlias
	}
	e := &entry.Entry{
		Name:         fqn,
		Kind:         kind,
		FileID:       v.fileID,
		Location:     ev.Location,
		NameLocation: ev.NameLocation,
		Visibility:   entry.Public,
		Nesting:      v.nestingNames(),
		Target:       ev.Target,
	}
	v.add(e)
	if s := v.declScope(); s != nil {
		s.members[entry.LastSegment(fqn)] = append(s.members[entry.LastSegment(fqn)], e)
	}
}

func (v *Visitor) addMethodAlias(ev parser.Event) {
	if v.inMethod() {
		return
	}
	e := &entry.Entry{
		Name:         ev.Name,
		Kind:         entry.KindMethodAlias,
		FileID:       v.fileID,
		Location:     ev.Location,
		NameLocation: ev.NameLocation,
		Visibility:   v.currentVisibility(),
		Owner:        v.currentOwner(),
		Target:       ev.Target,
	}
	v.add(e)
	v.registerMember(e)
}

func (v *Visitor) addMixin(ev parser.Event) {
	if v.inMethod() {
		return
	}
	s := v.declScope()
	if s == nil || s.entry == nil {
		// Top-level include/extend affects the root object; not indexed.
		return
	}
	s.entry.Mixins = append(s.entry.Mixins, entry.Mixin{
		Kind:   ev.Mixin,
		Module: ev.Name,
	})
}

func (v *Visitor) addAccessor(ev parser.Event) {
	if v.inMethod() {
		return
	}
	owner := v.currentOwner()
	vis := v.currentVisibility()
	if ev.Reader {
		v.addAccessorEntry(ev, owner, ev.Name, vis, nil)
	}
	if ev.Writer {
		params := []entry.Parameter{{Name: ev.Name, Kind: entry.ParamRequired}}
		v.addAccessorEntry(ev, owner, ev.Name+"=", vis, params)
	}
}

func (v *Visitor) addAccessorEntry(ev parser.Event, owner, name string, vis entry.Visibility, params []entry.Parameter) {
	e := &entry.Entry{
		Name:         name,
		Kind:         entry.KindAccessor,
		FileID:       v.fileID,
		Location:     ev.Location,
		NameLocation: ev.NameLocation,
		Visibility:   vis,
		Owner:        owner,
		Parameters:   params,
	}
	v.add(e)
	v.registerMember(e)
}

func (v *Visitor) registerMember(e *entry.Entry) {
	if s := v.declScope(); s != nil && s.members != nil {
		s.members[e.Name] = append(s.members[e.Name], e)
	}
}

// applyVisibility either switches the running visibility for the rest
// of the scope (`private` with no arguments) or retroactively marks the
// named members (`private :foo`, `private def foo`).
func (v *Visitor) applyVisibility(ev parser.Event) {
	if v.inMethod() {
		return
	}
	s := v.declScope()
	if s == nil {
		return
	}
	if len(ev.Names) == 0 {
		s.vis = ev.Visibility
		return
	}
	for _, name := range ev.Names {
		for _, e := range s.members[name] {
			if e.IsMethodLike() {
				e.Visibility = ev.Visibility
			}
		}
	}
}

func (v *Visitor) applyPrivateConstant(ev parser.Event) {
	if v.inMethod() {
		return
	}
	s := v.declScope()
	if s == nil {
		return
	}
	for _, name := range ev.Names {
		for _, e := range s.members[name] {
			if e.IsConstantLike() {
				e.Visibility = entry.Private
			}
		}
	}
}

func (v *Visitor) addVariable(ev parser.Event, kind entry.Kind) {
	e := &entry.Entry{
		Name:         ev.Name,
		Kind:         kind,
		FileID:       v.fileID,
		Location:     ev.Location,
		NameLocation: ev.NameLocation,
		Visibility:   entry.Public,
	}
	switch kind {
	case entry.KindClassVariable:
		// Class variables attach to the class itself even when assigned
		// from a singleton context.
		e.Owner = entry.Attached(v.currentOwner())
	case entry.KindInstanceVariable:
		e.Owner = v.instanceVariableOwner()
	}
	v.add(e)
}

// instanceVariableOwner follows the host language's split: an @var in an
// instance method belongs to instances of the class, while an @var in a
// class body or singleton method is a class-level instance variable and
// belongs to the singleton.
func (v *Visitor) instanceVariableOwner() string {
	if m := v.innermostMethod(); m != nil {
		return m.owner
	}
	owner := v.currentOwner()
	if owner == "" {
		return ""
	}
	if entry.IsSingleton(owner) {
		return owner
	}
	return entry.SingletonNameOf(owner)
}
