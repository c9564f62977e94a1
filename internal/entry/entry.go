// Package entry defines the declaration records stored in the symbol index.
package entry

// Kind identifies what a declaration is.
type Kind string

const (
	// KindClass is a class declaration (one reopening site)
	KindClass Kind = "class"
	// KindModule is a module declaration (one reopening site)
	KindModule Kind = "module"
	// KindSingletonClass is an explicit `class << self` body
	KindSingletonClass Kind = "singleton_class"
	// KindMethod is an instance method definition
	KindMethod Kind = "method"
	// KindSingletonMethod is a method defined on a singleton class
	KindSingletonMethod Kind = "singleton_method"
	// KindAccessor is a method synthesized from attr_reader/attr_writer/attr_accessor
	KindAccessor Kind = "accessor"
	// KindMethodAlias is an `alias` or `alias_method` declaration
	KindMethodAlias Kind = "method_alias"
	// KindConstant is a constant assignment
	KindConstant Kind = "constant"
	// KindConstantAlias is a constant assigned directly from another constant path
	KindConstantAlias Kind = "constant_alias"
	// KindGlobalVariable is a $global assignment
	KindGlobalVariable Kind = "global_variable"
	// KindClassVariable is a @@class_variable assignment
	KindClassVariable Kind = "class_variable"
	// KindInstanceVariable is an @instance_variable assignment
	KindInstanceVariable Kind = "instance_variable"
)

// Visibility is the declared access level of a method or constant.
type Visibility string

const (
	// Public visibility (the default)
	Public Visibility = "public"
	// Protected visibility
	Protected Visibility = "protected"
	// Private visibility
	Private Visibility = "private"
)

// MixinKind identifies how a module is mixed into a namespace.
type MixinKind string

const (
	// Include inserts the module after the receiver in the ancestor chain
	Include MixinKind = "include"
	// Prepend inserts the module before the receiver in the ancestor chain
	Prepend MixinKind = "prepend"
	// Extend inserts the module into the receiver's singleton chain
	Extend MixinKind = "extend"
)

// Mixin records one include/prepend/extend call, in call order.
type Mixin struct {
	Kind   MixinKind `json:"kind"`
	Module string    `json:"module"` // operand as written at the call site
}

// ParamKind identifies a method parameter's binding style.
type ParamKind string

const (
	// ParamRequired is a positional parameter without a default
	ParamRequired ParamKind = "required"
	// ParamOptional is a positional parameter with a default
	ParamOptional ParamKind = "optional"
	// ParamKeyword is a keyword parameter
	ParamKeyword ParamKind = "keyword"
	// ParamSplat is a *rest parameter
	ParamSplat ParamKind = "splat"
	// ParamKeywordSplat is a **rest parameter
	ParamKeywordSplat ParamKind = "keyword_splat"
	// ParamBlock is a &block parameter
	ParamBlock ParamKind = "block"
)

// Parameter describes one method parameter.
type Parameter struct {
	Name       string    `json:"name"`
	Kind       ParamKind `json:"kind"`
	HasDefault bool      `json:"hasDefault,omitempty"`
}

// Location is a source range. Lines are 1-indexed, columns 0-indexed.
type Location struct {
	StartLine   int    `json:"startLine"`
	StartColumn int    `json:"startColumn"`
	EndLine     int    `json:"endLine"`
	EndColumn   int    `json:"endColumn"`
	StartByte   uint32 `json:"startByte,omitempty"`
	EndByte     uint32 `json:"endByte,omitempty"`
}

// Entry is one recorded declaration. Classes, modules, singleton classes,
// constants and constant aliases carry their fully qualified name in Name;
// methods, accessors, method aliases and variables carry their short name
// plus the fully qualified Owner they belong to. A name can map to several
// entries: reopened classes and modules union semantically, repeated method
// entries are redefinitions.
type Entry struct {
	Name         string     `json:"name"`
	Kind         Kind       `json:"kind"`
	FileID       string     `json:"fileId"`
	Location     Location   `json:"location"`
	NameLocation Location   `json:"nameLocation"`
	Visibility   Visibility `json:"visibility"`

	// Owner is the fully qualified namespace a member belongs to. Set for
	// methods, accessors, method aliases, class and instance variables.
	Owner string `json:"owner,omitempty"`

	// Nesting is the lexical nesting of declared names at the declaration
	// site, innermost last. Elements may be compound paths; a leading
	// separator marks a root-anchored declaration. Used to resolve
	// superclass and mixin operands (see ScopesOf).
	Nesting []string `json:"nesting,omitempty"`

	// Superclass is the superclass operand as written, classes only.
	Superclass string `json:"superclass,omitempty"`

	// Mixins are this declaration site's include/prepend/extend calls,
	// in call order.
	Mixins []Mixin `json:"mixins,omitempty"`

	// Parameters is the parameter list, methods and accessors only.
	Parameters []Parameter `json:"parameters,omitempty"`

	// Target is the aliased name, method and constant aliases only.
	Target string `json:"target,omitempty"`
}

// IsNamespace reports whether the entry declares a class-like container.
func (e *Entry) IsNamespace() bool {
	switch e.Kind {
	case KindClass, KindModule, KindSingletonClass:
		return true
	}
	return false
}

// IsMethodLike reports whether the entry can answer a method lookup.
func (e *Entry) IsMethodLike() bool {
	switch e.Kind {
	case KindMethod, KindSingletonMethod, KindAccessor, KindMethodAlias:
		return true
	}
	return false
}

// IsConstantLike reports whether the entry can answer a constant lookup.
// Classes and modules are constants in the host language.
func (e *Entry) IsConstantLike() bool {
	switch e.Kind {
	case KindClass, KindModule, KindConstant, KindConstantAlias:
		return true
	}
	return false
}

// VisibleFrom reports whether a constant-like entry is visible from the
// given lexical nesting. Private constants are visible only from within
// their declaring namespace.
func (e *Entry) VisibleFrom(nesting []string) bool {
	if e.Visibility != Private {
		return true
	}
	declaring := Namespace(e.Name)
	if declaring == "" {
		// Private top-level constants are visible from top level only.
		return len(nesting) == 0
	}
	caller := ""
	if scopes := ScopesOf(nesting); len(scopes) > 0 {
		caller = scopes[len(scopes)-1]
	}
	return caller == declaring || hasPrefixSegment(caller, declaring)
}
