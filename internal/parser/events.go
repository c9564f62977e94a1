// Package parser turns Ruby source into the declaration event stream the
// visitor consumes. The tree-sitter backed implementation requires CGO; a
// stub keeps non-CGO builds working with indexing disabled.
package parser

import "rbls/internal/entry"

// EventKind identifies a declaration event.
type EventKind int

const (
	// EventClassOpen opens a class body. Name may be a constant path.
	EventClassOpen EventKind = iota
	// EventModuleOpen opens a module body. Name may be a constant path.
	EventModuleOpen
	// EventSingletonClassOpen opens a `class << self` body.
	EventSingletonClassOpen
	// EventMethodOpen opens a method body.
	EventMethodOpen
	// EventScopeClose closes the innermost open scope.
	EventScopeClose
	// EventConstant is a constant assignment. Target carries the
	// right-hand constant path when the assignment is a simple alias.
	EventConstant
	// EventMethodAlias is an `alias new old` or alias_method call.
	EventMethodAlias
	// EventMixin is an include/prepend/extend call.
	EventMixin
	// EventAccessor is an attr_reader/attr_writer/attr_accessor call.
	EventAccessor
	// EventVisibility is a public/protected/private call, with or
	// without method name arguments.
	EventVisibility
	// EventPrivateConstant is a private_constant call.
	EventPrivateConstant
	// EventGlobalVariable is a $global assignment.
	EventGlobalVariable
	// EventClassVariable is a @@var assignment.
	EventClassVariable
	// EventInstanceVariable is an @var assignment.
	EventInstanceVariable
)

// Receiver describes the explicit receiver of a method definition or
// singleton class body.
type Receiver int

const (
	// ReceiverNone means no explicit receiver (`def foo`).
	ReceiverNone Receiver = iota
	// ReceiverSelf means defined on self (`def self.foo`, `class << self`).
	ReceiverSelf
	// ReceiverDynamic means the receiver is a runtime value and the
	// declaration cannot be attributed to a static owner.
	ReceiverDynamic
)

// Event is one declaration or reference produced for a file, with source
// locations. Kind-specific payloads are left zero when unused.
type Event struct {
	Kind         EventKind
	Name         string
	Names        []string // accessor, visibility and private_constant arguments
	Location     entry.Location
	NameLocation entry.Location

	Superclass   string            // class open: superclass operand as written
	Receiver     Receiver          // method open, singleton class open
	ReceiverName string            // method open: explicit constant receiver (`def Foo.bar`)
	Params       []entry.Parameter // method open
	Mixin        entry.MixinKind   // mixin
	Target       string            // method alias target, constant alias right-hand side
	Visibility   entry.Visibility  // visibility
	Reader       bool              // accessor
	Writer       bool              // accessor
}
