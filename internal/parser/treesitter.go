//go:build cgo

package parser

import (
	"context"
	"strings"

	sitter "github.com/smacker/go-tree-sitter"
	"github.com/smacker/go-tree-sitter/ruby"

	"rbls/internal/entry"
)

// Parser produces declaration events from Ruby source using tree-sitter.
// A parser is not safe for concurrent use; create one per worker.
type Parser struct {
	parser *sitter.Parser
}

// New creates a Ruby parser.
func New() *Parser {
	p := sitter.NewParser()
	p.SetLanguage(ruby.GetLanguage())
	return &Parser{parser: p}
}

// Available reports whether parsing is supported in this build.
func Available() bool {
	return true
}

// Parse walks the file's syntax tree and returns its declaration events.
// Syntax errors do not fail the parse: declarations preceding (or outside)
// an ERROR subtree are still emitted, so a trailing syntax error never
// discards a file's valid prefix.
func (p *Parser) Parse(ctx context.Context, fileID string, src []byte) ([]Event, error) {
	tree, err := p.parser.ParseCtx(ctx, nil, src)
	if err != nil {
		return nil, err
	}
	defer tree.Close()

	w := &walker{src: src}
	w.walk(tree.RootNode())
	return w.events, nil
}

type walker struct {
	src    []byte
	events []Event
}

func (w *walker) emit(ev Event) {
	w.events = append(w.events, ev)
}

func (w *walker) text(n *sitter.Node) string {
	if n == nil {
		return ""
	}
	return string(w.src[n.StartByte():n.EndByte()])
}

func loc(n *sitter.Node) entry.Location {
	return entry.Location{
		StartLine:   int(n.StartPoint().Row) + 1,
		StartColumn: int(n.StartPoint().Column),
		EndLine:     int(n.EndPoint().Row) + 1,
		EndColumn:   int(n.EndPoint().Column),
		StartByte:   n.StartByte(),
		EndByte:     n.EndByte(),
	}
}

func (w *walker) walk(n *sitter.Node) {
	if n == nil {
		return
	}
	switch n.Type() {
	case "comment":
	case "class":
		w.handleClass(n)
	case "module":
		w.handleModule(n)
	case "singleton_class":
		w.handleSingletonClass(n)
	case "method":
		w.handleMethod(n)
	case "singleton_method":
		w.handleSingletonMethod(n)
	case "assignment":
		w.handleAssignment(n)
	case "alias":
		w.handleAlias(n)
	case "call":
		w.handleCall(n)
	case "identifier":
		w.handleBareIdentifier(n)
	default:
		// Containers (program, body_statement, if, begin, blocks) and
		// ERROR nodes: declarations nested under them still count.
		w.walkChildren(n)
	}
}

func (w *walker) walkChildren(n *sitter.Node) {
	for i := 0; i < int(n.ChildCount()); i++ {
		w.walk(n.Child(i))
	}
}

func (w *walker) walkChildrenExcept(n *sitter.Node, skip map[string]bool) {
	for i := 0; i < int(n.ChildCount()); i++ {
		child := n.Child(i)
		if child != nil && skip[child.Type()] {
			continue
		}
		w.walk(child)
	}
}

func (w *walker) handleClass(n *sitter.Node) {
	nameNode := n.ChildByFieldName("name")
	path, ok := w.constantPath(nameNode)
	if !ok {
		w.walkChildren(n)
		return
	}

	superclass := ""
	if sc := n.ChildByFieldName("superclass"); sc != nil {
		expr := firstNamedChild(sc)
		switch {
		case expr == nil:
			// nothing recorded
		case expr.Type() == "constant" || expr.Type() == "scope_resolution":
			if p, ok := w.constantPath(expr); ok {
				superclass = p
			} else {
				superclass = entry.PlaceholderSegment
			}
		default:
			// Runtime-computed superclass expression.
			superclass = entry.PlaceholderSegment
		}
	}

	w.emit(Event{
		Kind:         EventClassOpen,
		Name:         path,
		Superclass:   superclass,
		Location:     loc(n),
		NameLocation: loc(nameNode),
	})
	w.walkChildrenExcept(n, map[string]bool{"constant": true, "scope_resolution": true, "superclass": true})
	w.emit(Event{Kind: EventScopeClose, Location: loc(n)})
}

func (w *walker) handleModule(n *sitter.Node) {
	nameNode := n.ChildByFieldName("name")
	path, ok := w.constantPath(nameNode)
	if !ok {
		w.walkChildren(n)
		return
	}
	w.emit(Event{
		Kind:         EventModuleOpen,
		Name:         path,
		Location:     loc(n),
		NameLocation: loc(nameNode),
	})
	w.walkChildrenExcept(n, map[string]bool{"constant": true, "scope_resolution": true})
	w.emit(Event{Kind: EventScopeClose, Location: loc(n)})
}

func (w *walker) handleSingletonClass(n *sitter.Node) {
	recv := ReceiverDynamic
	if v := n.ChildByFieldName("value"); v != nil && v.Type() == "self" {
		recv = ReceiverSelf
	}
	w.emit(Event{Kind: EventSingletonClassOpen, Receiver: recv, Location: loc(n)})
	w.walkChildren(n)
	w.emit(Event{Kind: EventScopeClose, Location: loc(n)})
}

func (w *walker) handleMethod(n *sitter.Node) {
	nameNode := n.ChildByFieldName("name")
	w.emit(Event{
		Kind:         EventMethodOpen,
		Name:         w.text(nameNode),
		Receiver:     ReceiverNone,
		Params:       w.parseParams(n.ChildByFieldName("parameters")),
		Location:     loc(n),
		NameLocation: nameLoc(nameNode, n),
	})
	// The name is a direct identifier child; only the body gets walked.
	w.walkChildrenExcept(n, map[string]bool{"method_parameters": true, "identifier": true})
	w.emit(Event{Kind: EventScopeClose, Location: loc(n)})
}

func (w *walker) handleSingletonMethod(n *sitter.Node) {
	nameNode := n.ChildByFieldName("name")
	recv := ReceiverDynamic
	recvName := ""
	if obj := n.ChildByFieldName("object"); obj != nil {
		switch obj.Type() {
		case "self":
			recv = ReceiverSelf
		case "constant", "scope_resolution":
			if p, ok := w.constantPath(obj); ok {
				recv = ReceiverSelf
				recvName = p
			}
		}
	}
	w.emit(Event{
		Kind:         EventMethodOpen,
		Name:         w.text(nameNode),
		Receiver:     recv,
		ReceiverName: recvName,
		Params:       w.parseParams(n.ChildByFieldName("parameters")),
		Location:     loc(n),
		NameLocation: nameLoc(nameNode, n),
	})
	w.walkChildrenExcept(n, map[string]bool{"method_parameters": true, "identifier": true})
	w.emit(Event{Kind: EventScopeClose, Location: loc(n)})
}

func (w *walker) handleAssignment(n *sitter.Node) {
	left := n.ChildByFieldName("left")
	right := n.ChildByFieldName("right")
	if left == nil {
		w.walkChildren(n)
		return
	}

	switch left.Type() {
	case "constant", "scope_resolution":
		path, ok := w.constantPath(left)
		if !ok {
			break
		}
		target := ""
		if right != nil && (right.Type() == "constant" || right.Type() == "scope_resolution") {
			if t, ok := w.constantPath(right); ok && !entry.HasPlaceholder(t) {
				target = t
			}
		}
		w.emit(Event{
			Kind:         EventConstant,
			Name:         path,
			Target:       target,
			Location:     loc(n),
			NameLocation: loc(left),
		})
	case "global_variable":
		w.emit(Event{Kind: EventGlobalVariable, Name: w.text(left), Location: loc(n), NameLocation: loc(left)})
	case "class_variable":
		w.emit(Event{Kind: EventClassVariable, Name: w.text(left), Location: loc(n), NameLocation: loc(left)})
	case "instance_variable":
		w.emit(Event{Kind: EventInstanceVariable, Name: w.text(left), Location: loc(n), NameLocation: loc(left)})
	}

	// Declarations can hide in the right-hand side (lambdas, blocks).
	if right != nil {
		w.walk(right)
	}
}

func (w *walker) handleAlias(n *sitter.Node) {
	newNode := n.ChildByFieldName("name")
	oldNode := n.ChildByFieldName("alias")
	if newNode == nil && n.NamedChildCount() > 0 {
		newNode = n.NamedChild(0)
	}
	if oldNode == nil && n.NamedChildCount() > 1 {
		oldNode = n.NamedChild(1)
	}
	newName := symbolName(w.text(newNode))
	oldName := symbolName(w.text(oldNode))
	if newName == "" || oldName == "" {
		return
	}
	w.emit(Event{
		Kind:         EventMethodAlias,
		Name:         newName,
		Target:       oldName,
		Location:     loc(n),
		NameLocation: nameLoc(newNode, n),
	})
}

func (w *walker) handleCall(n *sitter.Node) {
	if n.ChildByFieldName("receiver") != nil {
		w.walkChildren(n)
		return
	}
	method := w.text(n.ChildByFieldName("method"))
	args := n.ChildByFieldName("arguments")

	switch method {
	case "include", "prepend", "extend":
		kind := entry.MixinKind(method)
		for _, arg := range namedChildren(args) {
			if arg.Type() != "constant" && arg.Type() != "scope_resolution" {
				continue
			}
			if path, ok := w.constantPath(arg); ok && !entry.HasPlaceholder(path) {
				w.emit(Event{Kind: EventMixin, Mixin: kind, Name: path, Location: loc(n), NameLocation: loc(arg)})
			}
		}
	case "attr_reader", "attr_writer", "attr_accessor":
		reader := method != "attr_writer"
		writer := method != "attr_reader"
		for _, arg := range namedChildren(args) {
			name := symbolName(w.text(arg))
			if name == "" {
				continue
			}
			w.emit(Event{
				Kind:         EventAccessor,
				Name:         name,
				Reader:       reader,
				Writer:       writer,
				Location:     loc(n),
				NameLocation: loc(arg),
			})
		}
	case "public", "protected", "private":
		w.handleVisibilityCall(n, args, entry.Visibility(method))
	case "private_constant":
		names := w.symbolArgs(args)
		if len(names) > 0 {
			w.emit(Event{Kind: EventPrivateConstant, Names: names, Location: loc(n)})
		}
	case "alias_method":
		names := w.symbolArgs(args)
		if len(names) >= 2 {
			w.emit(Event{
				Kind:         EventMethodAlias,
				Name:         names[0],
				Target:       names[1],
				Location:     loc(n),
				NameLocation: loc(n),
			})
		}
	default:
		// Unknown call: blocks passed to it may still contain defs.
		w.walkChildren(n)
	}
}

// handleVisibilityCall covers `private`, `private :foo, :bar` and the
// `private def foo ... end` form. Inline defs are walked first so the
// visibility event can refer to an already-declared method.
func (w *walker) handleVisibilityCall(n *sitter.Node, args *sitter.Node, vis entry.Visibility) {
	children := namedChildren(args)
	if len(children) == 0 {
		w.emit(Event{Kind: EventVisibility, Visibility: vis, Location: loc(n)})
		return
	}
	var names []string
	for _, arg := range children {
		switch arg.Type() {
		case "method", "singleton_method":
			names = append(names, w.text(arg.ChildByFieldName("name")))
			w.walk(arg)
		default:
			if name := symbolName(w.text(arg)); name != "" {
				names = append(names, name)
			}
		}
	}
	if len(names) > 0 {
		w.emit(Event{Kind: EventVisibility, Visibility: vis, Names: names, Location: loc(n)})
	}
}

func (w *walker) handleBareIdentifier(n *sitter.Node) {
	switch w.text(n) {
	case "public", "protected", "private":
		w.emit(Event{Kind: EventVisibility, Visibility: entry.Visibility(w.text(n)), Location: loc(n)})
	}
}

// constantPath renders a constant or scope_resolution node as a
// namespace path. Non-constant components (self, calls, locals) become
// the placeholder segment so the path stays well formed; ok is false
// only when there is no name at all.
func (w *walker) constantPath(n *sitter.Node) (string, bool) {
	if n == nil {
		return "", false
	}
	switch n.Type() {
	case "constant":
		return w.text(n), true
	case "scope_resolution":
		name := w.text(n.ChildByFieldName("name"))
		if name == "" {
			return "", false
		}
		scope := n.ChildByFieldName("scope")
		if scope == nil {
			// `::Foo` is an explicit top-level reference.
			return entry.Separator + name, true
		}
		switch scope.Type() {
		case "constant", "scope_resolution":
			prefix, ok := w.constantPath(scope)
			if !ok {
				return "", false
			}
			return prefix + entry.Separator + name, true
		default:
			return entry.PlaceholderSegment + entry.Separator + name, true
		}
	}
	return "", false
}

func (w *walker) parseParams(n *sitter.Node) []entry.Parameter {
	if n == nil {
		return nil
	}
	var params []entry.Parameter
	for _, child := range namedChildren(n) {
		switch child.Type() {
		case "identifier":
			params = append(params, entry.Parameter{Name: w.text(child), Kind: entry.ParamRequired})
		case "optional_parameter":
			params = append(params, entry.Parameter{
				Name:       w.text(child.ChildByFieldName("name")),
				Kind:       entry.ParamOptional,
				HasDefault: true,
			})
		case "keyword_parameter":
			params = append(params, entry.Parameter{
				Name:       w.text(child.ChildByFieldName("name")),
				Kind:       entry.ParamKeyword,
				HasDefault: child.ChildByFieldName("value") != nil,
			})
		case "splat_parameter":
			params = append(params, entry.Parameter{Name: splatName(w.text(child.ChildByFieldName("name")), "*"), Kind: entry.ParamSplat})
		case "hash_splat_parameter":
			params = append(params, entry.Parameter{Name: splatName(w.text(child.ChildByFieldName("name")), "**"), Kind: entry.ParamKeywordSplat})
		case "block_parameter":
			params = append(params, entry.Parameter{Name: splatName(w.text(child.ChildByFieldName("name")), "&"), Kind: entry.ParamBlock})
		case "destructured_parameter":
			params = append(params, entry.Parameter{Name: w.text(child), Kind: entry.ParamRequired})
		}
	}
	return params
}

// symbolArgs collects symbol/string argument names.
func (w *walker) symbolArgs(args *sitter.Node) []string {
	var names []string
	for _, arg := range namedChildren(args) {
		if name := symbolName(w.text(arg)); name != "" {
			names = append(names, name)
		}
	}
	return names
}

// symbolName normalizes a symbol or string literal to a bare name.
func symbolName(text string) string {
	text = strings.TrimPrefix(text, ":")
	text = strings.Trim(text, `"'`)
	if text == "" || strings.ContainsAny(text, " \t\n") {
		return ""
	}
	return text
}

func splatName(name, fallback string) string {
	if name == "" {
		return fallback
	}
	return name
}

func namedChildren(n *sitter.Node) []*sitter.Node {
	if n == nil {
		return nil
	}
	out := make([]*sitter.Node, 0, n.NamedChildCount())
	for i := 0; i < int(n.NamedChildCount()); i++ {
		out = append(out, n.NamedChild(i))
	}
	return out
}

func firstNamedChild(n *sitter.Node) *sitter.Node {
	if n == nil || n.NamedChildCount() == 0 {
		return nil
	}
	return n.NamedChild(0)
}

func nameLoc(nameNode, parent *sitter.Node) entry.Location {
	if nameNode != nil {
		return loc(nameNode)
	}
	return loc(parent)
}
