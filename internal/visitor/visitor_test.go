package visitor

import (
	"testing"

	"rbls/internal/entry"
	"rbls/internal/parser"
)

func classOpen(name string) parser.Event {
	return parser.Event{Kind: parser.EventClassOpen, Name: name}
}

func moduleOpen(name string) parser.Event {
	return parser.Event{Kind: parser.EventModuleOpen, Name: name}
}

func methodOpen(name string) parser.Event {
	return parser.Event{Kind: parser.EventMethodOpen, Name: name}
}

func scopeClose() parser.Event {
	return parser.Event{Kind: parser.EventScopeClose}
}

func find(t *testing.T, entries []*entry.Entry, name string, kind entry.Kind) *entry.Entry {
	t.Helper()
	for _, e := range entries {
		if e.Name == name && e.Kind == kind {
			return e
		}
	}
	t.Fatalf("no %s entry named %q in %d entries", kind, name, len(entries))
	return nil
}

func TestNestedNamespaces(t *testing.T) {
	entries := Run("a.rb", []parser.Event{
		moduleOpen("Outer"),
		classOpen("Inner"),
		scopeClose(),
		scopeClose(),
	})

	outer := find(t, entries, "Outer", entry.KindModule)
	if len(outer.Nesting) != 1 || outer.Nesting[0] != "Outer" {
		t.Errorf("Outer nesting = %v", outer.Nesting)
	}

	inner := find(t, entries, "Outer::Inner", entry.KindClass)
	want := []string{"Outer", "Inner"}
	if len(inner.Nesting) != 2 || inner.Nesting[0] != want[0] || inner.Nesting[1] != want[1] {
		t.Errorf("Inner nesting = %v, want %v", inner.Nesting, want)
	}
}

func TestCompoundDeclaredName(t *testing.T) {
	entries := Run("a.rb", []parser.Event{
		moduleOpen("Outer"),
		classOpen("Foo::Bar"),
		methodOpen("baz"),
		scopeClose(),
		scopeClose(),
		scopeClose(),
	})

	find(t, entries, "Outer::Foo::Bar", entry.KindClass)
	m := find(t, entries, "baz", entry.KindMethod)
	if m.Owner != "Outer::Foo::Bar" {
		t.Errorf("method owner = %q", m.Owner)
	}
}

func TestRootScopedDeclaration(t *testing.T) {
	entries := Run("a.rb", []parser.Event{
		moduleOpen("Outer"),
		classOpen("::Foo"),
		scopeClose(),
		scopeClose(),
	})
	e := find(t, entries, "Foo", entry.KindClass)
	// The recorded nesting keeps the root anchor so operand resolution
	// probes Foo's own scope, not Outer::Foo.
	want := []string{"Outer", "::Foo"}
	if len(e.Nesting) != 2 || e.Nesting[0] != want[0] || e.Nesting[1] != want[1] {
		t.Errorf("nesting = %v, want %v", e.Nesting, want)
	}
}

func TestSelfSingletonMethod(t *testing.T) {
	entries := Run("a.rb", []parser.Event{
		classOpen("Foo"),
		{Kind: parser.EventMethodOpen, Name: "create", Receiver: parser.ReceiverSelf},
		scopeClose(),
		{Kind: parser.EventMethodOpen, Name: "build", Receiver: parser.ReceiverSelf},
		scopeClose(),
		scopeClose(),
	})

	singleton := entry.SingletonNameOf("Foo")
	m := find(t, entries, "create", entry.KindSingletonMethod)
	if m.Owner != singleton {
		t.Errorf("owner = %q, want %q", m.Owner, singleton)
	}

	// Implicit singleton class entry appears exactly once per file.
	count := 0
	for _, e := range entries {
		if e.Kind == entry.KindSingletonClass && e.Name == singleton {
			count++
		}
	}
	if count != 1 {
		t.Errorf("singleton class entries = %d, want 1", count)
	}
}

func TestSingletonClassBody(t *testing.T) {
	entries := Run("a.rb", []parser.Event{
		classOpen("Foo"),
		{Kind: parser.EventSingletonClassOpen, Receiver: parser.ReceiverSelf},
		methodOpen("create"),
		scopeClose(),
		scopeClose(),
		scopeClose(),
	})

	m := find(t, entries, "create", entry.KindSingletonMethod)
	if m.Owner != entry.SingletonNameOf("Foo") {
		t.Errorf("owner = %q", m.Owner)
	}
	find(t, entries, entry.SingletonNameOf("Foo"), entry.KindSingletonClass)
}

func TestDynamicSingletonClassBody(t *testing.T) {
	entries := Run("a.rb", []parser.Event{
		classOpen("Foo"),
		{Kind: parser.EventSingletonClassOpen, Receiver: parser.ReceiverDynamic},
		methodOpen("helper"),
		scopeClose(),
		scopeClose(),
		scopeClose(),
	})

	m := find(t, entries, "helper", entry.KindSingletonMethod)
	if !entry.HasPlaceholder(m.Owner) {
		t.Errorf("dynamic singleton method owner = %q, want placeholder", m.Owner)
	}
}

func TestQualifiedReceiverMethod(t *testing.T) {
	entries := Run("a.rb", []parser.Event{
		moduleOpen("Outer"),
		{Kind: parser.EventMethodOpen, Name: "build", ReceiverName: "Foo"},
		scopeClose(),
		scopeClose(),
	})

	m := find(t, entries, "build", entry.KindSingletonMethod)
	if m.Owner != entry.SingletonNameOf("Outer::Foo") {
		t.Errorf("owner = %q", m.Owner)
	}
}

func TestNestedDefOwnedByNamespace(t *testing.T) {
	entries := Run("a.rb", []parser.Event{
		classOpen("Foo"),
		methodOpen("outer"),
		methodOpen("inner"),
		scopeClose(),
		scopeClose(),
		scopeClose(),
	})

	inner := find(t, entries, "inner", entry.KindMethod)
	if inner.Owner != "Foo" {
		t.Errorf("nested def owner = %q, want Foo", inner.Owner)
	}
}

func TestAccessors(t *testing.T) {
	entries := Run("a.rb", []parser.Event{
		classOpen("Foo"),
		{Kind: parser.EventAccessor, Name: "name", Reader: true, Writer: true},
		{Kind: parser.EventAccessor, Name: "age", Reader: true},
		scopeClose(),
	})

	find(t, entries, "name", entry.KindAccessor)
	w := find(t, entries, "name=", entry.KindAccessor)
	if len(w.Parameters) != 1 || w.Parameters[0].Name != "name" {
		t.Errorf("writer params = %v", w.Parameters)
	}
	find(t, entries, "age", entry.KindAccessor)
	for _, e := range entries {
		if e.Name == "age=" {
			t.Error("attr_reader should not synthesize a writer")
		}
	}
}

func TestVisibilityModes(t *testing.T) {
	t.Run("bare private switches scope state", func(t *testing.T) {
		entries := Run("a.rb", []parser.Event{
			classOpen("Foo"),
			methodOpen("before"),
			scopeClose(),
			{Kind: parser.EventVisibility, Visibility: entry.Private},
			methodOpen("after"),
			scopeClose(),
			scopeClose(),
		})
		if e := find(t, entries, "before", entry.KindMethod); e.Visibility != entry.Public {
			t.Errorf("before = %s", e.Visibility)
		}
		if e := find(t, entries, "after", entry.KindMethod); e.Visibility != entry.Private {
			t.Errorf("after = %s", e.Visibility)
		}
	})

	t.Run("named private marks retroactively", func(t *testing.T) {
		entries := Run("a.rb", []parser.Event{
			classOpen("Foo"),
			methodOpen("helper"),
			scopeClose(),
			{Kind: parser.EventVisibility, Visibility: entry.Private, Names: []string{"helper"}},
			methodOpen("open"),
			scopeClose(),
			scopeClose(),
		})
		if e := find(t, entries, "helper", entry.KindMethod); e.Visibility != entry.Private {
			t.Errorf("helper = %s", e.Visibility)
		}
		if e := find(t, entries, "open", entry.KindMethod); e.Visibility != entry.Public {
			t.Errorf("open should stay public, got %s", e.Visibility)
		}
	})

	t.Run("inline private def", func(t *testing.T) {
		entries := Run("a.rb", []parser.Event{
			classOpen("Foo"),
			{Kind: parser.EventMethodOpen, Name: "secret", Visibility: entry.Private},
			scopeClose(),
			scopeClose(),
		})
		if e := find(t, entries, "secret", entry.KindMethod); e.Visibility != entry.Private {
			t.Errorf("secret = %s", e.Visibility)
		}
	})

	t.Run("visibility resets per scope", func(t *testing.T) {
		entries := Run("a.rb", []parser.Event{
			classOpen("Foo"),
			{Kind: parser.EventVisibility, Visibility: entry.Private},
			classOpen("Bar"),
			methodOpen("inner"),
			scopeClose(),
			scopeClose(),
			scopeClose(),
		})
		if e := find(t, entries, "inner", entry.KindMethod); e.Visibility != entry.Public {
			t.Errorf("inner scope inherited outer visibility: %s", e.Visibility)
		}
	})
}

func TestPrivateConstant(t *testing.T) {
	entries := Run("a.rb", []parser.Event{
		moduleOpen("Foo"),
		{Kind: parser.EventConstant, Name: "SECRET"},
		classOpen("Hidden"),
		scopeClose(),
		{Kind: parser.EventPrivateConstant, Names: []string{"SECRET", "Hidden"}},
		scopeClose(),
	})

	if e := find(t, entries, "Foo::SECRET", entry.KindConstant); e.Visibility != entry.Private {
		t.Errorf("SECRET = %s", e.Visibility)
	}
	if e := find(t, entries, "Foo::Hidden", entry.KindClass); e.Visibility != entry.Private {
		t.Errorf("Hidden = %s", e.Visibility)
	}
}

func TestConstantsInsideMethodSkipped(t *testing.T) {
	entries := Run("a.rb", []parser.Event{
		classOpen("Foo"),
		methodOpen("setup"),
		{Kind: parser.EventConstant, Name: "RUNTIME"},
		scopeClose(),
		scopeClose(),
	})
	for _, e := range entries {
		if e.Kind == entry.KindConstant {
			t.Errorf("constant recorded inside method: %s", e.Name)
		}
	}
}

func TestConstantAlias(t *testing.T) {
	entries := Run("a.rb", []parser.Event{
		moduleOpen("Foo"),
		{Kind: parser.EventConstant, Name: "Alias", Target: "Bar::Baz"},
		scopeClose(),
	})
	e := find(t, entries, "Foo::Alias", entry.KindConstantAlias)
	if e.Target != "Bar::Baz" {
		t.Errorf("target = %q", e.Target)
	}
}

func TestMixinsRecordedInCallOrder(t *testing.T) {
	entries := Run("a.rb", []parser.Event{
		classOpen("Foo"),
		{Kind: parser.EventMixin, Mixin: entry.Include, Name: "A"},
		{Kind: parser.EventMixin, Mixin: entry.Prepend, Name: "B"},
		{Kind: parser.EventMixin, Mixin: entry.Extend, Name: "C"},
		scopeClose(),
	})

	foo := find(t, entries, "Foo", entry.KindClass)
	if len(foo.Mixins) != 3 {
		t.Fatalf("mixins = %d, want 3", len(foo.Mixins))
	}
	if foo.Mixins[0].Kind != entry.Include || foo.Mixins[0].Module != "A" {
		t.Errorf("first mixin = %+v", foo.Mixins[0])
	}
	if foo.Mixins[1].Kind != entry.Prepend || foo.Mixins[2].Kind != entry.Extend {
		t.Errorf("mixin order wrong: %+v", foo.Mixins)
	}
}

func TestTopLevelMixinIgnored(t *testing.T) {
	entries := Run("a.rb", []parser.Event{
		{Kind: parser.EventMixin, Mixin: entry.Include, Name: "Kernel"},
	})
	if len(entries) != 0 {
		t.Errorf("top-level mixin produced entries: %d", len(entries))
	}
}

func TestMethodAlias(t *testing.T) {
	entries := Run("a.rb", []parser.Event{
		classOpen("Foo"),
		{Kind: parser.EventMethodAlias, Name: "fetch", Target: "get"},
		scopeClose(),
	})
	e := find(t, entries, "fetch", entry.KindMethodAlias)
	if e.Owner != "Foo" || e.Target != "get" {
		t.Errorf("alias entry = %+v", e)
	}
}

func TestVariableOwners(t *testing.T) {
	entries := Run("a.rb", []parser.Event{
		classOpen("Foo"),
		{Kind: parser.EventClassVariable, Name: "@@count"},
		{Kind: parser.EventInstanceVariable, Name: "@config"},
		methodOpen("initialize"),
		{Kind: parser.EventInstanceVariable, Name: "@name"},
		scopeClose(),
		scopeClose(),
		{Kind: parser.EventGlobalVariable, Name: "$debug"},
	})

	if e := find(t, entries, "@@count", entry.KindClassVariable); e.Owner != "Foo" {
		t.Errorf("@@count owner = %q", e.Owner)
	}
	// Class-body @var is class-level, owned by the singleton.
	if e := find(t, entries, "@config", entry.KindInstanceVariable); e.Owner != entry.SingletonNameOf("Foo") {
		t.Errorf("@config owner = %q", e.Owner)
	}
	if e := find(t, entries, "@name", entry.KindInstanceVariable); e.Owner != "Foo" {
		t.Errorf("@name owner = %q", e.Owner)
	}
	if e := find(t, entries, "$debug", entry.KindGlobalVariable); e.Owner != "" {
		t.Errorf("$debug owner = %q", e.Owner)
	}
}
