package ancestors

import (
	"reflect"
	"testing"

	"rbls/internal/entry"
	"rbls/internal/index"
)

func newEngine(entries ...*entry.Entry) (*Engine, *index.Store) {
	store := index.NewStore()
	store.ReplaceFile("test.rb", entries)
	return New(store, nil), store
}

func class(name string, mods ...func(*entry.Entry)) *entry.Entry {
	e := &entry.Entry{
		Name:    name,
		Kind:    entry.KindClass,
		FileID:  "test.rb",
		Nesting: entry.Split(name),
	}
	for _, m := range mods {
		m(e)
	}
	return e
}

func module(name string, mods ...func(*entry.Entry)) *entry.Entry {
	e := class(name, mods...)
	e.Kind = entry.KindModule
	return e
}

func withSuperclass(sup string) func(*entry.Entry) {
	return func(e *entry.Entry) { e.Superclass = sup }
}

func withMixin(kind entry.MixinKind, mod string) func(*entry.Entry) {
	return func(e *entry.Entry) {
		e.Mixins = append(e.Mixins, entry.Mixin{Kind: kind, Module: mod})
	}
}

func TestLinearizationOrder(t *testing.T) {
	eng, _ := newEngine(
		module("Pre"),
		module("Inc"),
		module("Inc2"),
		class("Base"),
		class("Foo",
			withSuperclass("Base"),
			withMixin(entry.Prepend, "Pre"),
			withMixin(entry.Include, "Inc"),
			withMixin(entry.Include, "Inc2"),
		),
	)

	got := eng.AncestorsOf("Foo")
	// Prepends first, then self, then includes most-recent-first, then
	// the superclass chain.
	want := []string{"Pre", "Foo", "Inc2", "Inc", "Base"}
	if !reflect.DeepEqual(got, want) {
		t.Errorf("AncestorsOf(Foo) = %v, want %v", got, want)
	}
}

func TestTransitiveModuleAncestors(t *testing.T) {
	eng, _ := newEngine(
		module("A"),
		module("B", withMixin(entry.Include, "A")),
		class("Foo", withMixin(entry.Include, "B")),
	)
	got := eng.AncestorsOf("Foo")
	want := []string{"Foo", "B", "A"}
	if !reflect.DeepEqual(got, want) {
		t.Errorf("got %v, want %v", got, want)
	}
}

func TestMixinCycleBroken(t *testing.T) {
	eng, _ := newEngine(
		module("M", withMixin(entry.Include, "N")),
		module("N", withMixin(entry.Include, "M")),
	)

	got := eng.AncestorsOf("M")
	want := []string{"M", "N"}
	if !reflect.DeepEqual(got, want) {
		t.Errorf("got %v, want %v", got, want)
	}
	if eng.CycleBreaks() == 0 {
		t.Error("cycle break counter not incremented")
	}

	// Still terminates and excludes duplicates from the other side.
	got = eng.AncestorsOf("N")
	want = []string{"N", "M"}
	if !reflect.DeepEqual(got, want) {
		t.Errorf("got %v, want %v", got, want)
	}
}

func TestUnknownSuperclassPruned(t *testing.T) {
	eng, _ := newEngine(
		class("Foo", withSuperclass("Ghost")),
	)
	got := eng.AncestorsOf("Foo")
	want := []string{"Foo"}
	if !reflect.DeepEqual(got, want) {
		t.Errorf("got %v, want %v", got, want)
	}
	if eng.MalformedEdges() == 0 {
		t.Error("malformed edge counter not incremented")
	}
}

func TestUnknownNameYieldsNil(t *testing.T) {
	eng, _ := newEngine(class("Foo"))
	if got := eng.AncestorsOf("Ghost"); got != nil {
		t.Errorf("AncestorsOf(Ghost) = %v, want nil", got)
	}
}

func TestReopeningsUnionMixins(t *testing.T) {
	store := index.NewStore()
	store.ReplaceFile("a.rb", []*entry.Entry{
		module("A"),
		module("B"),
		class("Foo", withMixin(entry.Include, "A")),
	})
	store.ReplaceFile("b.rb", []*entry.Entry{
		func() *entry.Entry {
			e := class("Foo", withMixin(entry.Include, "B"))
			e.FileID = "b.rb"
			return e
		}(),
	})
	eng := New(store, nil)

	got := eng.AncestorsOf("Foo")
	// The later include shadows the earlier one in precedence.
	want := []string{"Foo", "B", "A"}
	if !reflect.DeepEqual(got, want) {
		t.Errorf("got %v, want %v", got, want)
	}
}

func TestOperandResolvedAgainstNesting(t *testing.T) {
	inner := module("Outer::Helpers")
	inner.Nesting = []string{"Outer", "Helpers"}
	foo := class("Outer::Foo", withMixin(entry.Include, "Helpers"))
	foo.Nesting = []string{"Outer", "Foo"}

	eng, _ := newEngine(module("Outer"), inner, foo)

	got := eng.AncestorsOf("Outer::Foo")
	want := []string{"Outer::Foo", "Outer::Helpers"}
	if !reflect.DeepEqual(got, want) {
		t.Errorf("got %v, want %v", got, want)
	}
}

func TestRootScopedReopeningOperands(t *testing.T) {
	// `class ::Foo` inside `module A` evaluates its mixin operands in
	// Foo's lexical scope, not A::Foo's.
	helpers := module("Foo::Helpers")
	helpers.Nesting = []string{"Foo", "Helpers"}
	decoy := module("A::Helpers")
	decoy.Nesting = []string{"A", "Helpers"}
	foo := class("Foo", withMixin(entry.Include, "Helpers"))
	foo.Nesting = []string{"A", "::Foo"}

	eng, _ := newEngine(module("A"), helpers, decoy, foo)

	got := eng.AncestorsOf("Foo")
	want := []string{"Foo", "Foo::Helpers"}
	if !reflect.DeepEqual(got, want) {
		t.Errorf("got %v, want %v", got, want)
	}
}

func TestSingletonChain(t *testing.T) {
	eng, _ := newEngine(
		module("Creatable"),
		class("Base"),
		class("Foo",
			withSuperclass("Base"),
			withMixin(entry.Extend, "Creatable"),
		),
	)

	got := eng.AncestorsOf(entry.SingletonNameOf("Foo"))
	want := []string{
		entry.SingletonNameOf("Foo"),
		"Creatable",
		entry.SingletonNameOf("Base"),
	}
	if !reflect.DeepEqual(got, want) {
		t.Errorf("singleton chain = %v, want %v", got, want)
	}
}

func TestInstanceChainExcludesExtends(t *testing.T) {
	eng, _ := newEngine(
		module("Creatable"),
		class("Foo", withMixin(entry.Extend, "Creatable")),
	)
	got := eng.AncestorsOf("Foo")
	want := []string{"Foo"}
	if !reflect.DeepEqual(got, want) {
		t.Errorf("instance chain = %v, want %v", got, want)
	}
}

func TestSuperclassLastWins(t *testing.T) {
	store := index.NewStore()
	store.ReplaceFile("a.rb", []*entry.Entry{
		class("A"),
		class("B"),
		class("Foo", withSuperclass("A")),
	})
	store.ReplaceFile("b.rb", []*entry.Entry{
		func() *entry.Entry {
			e := class("Foo", withSuperclass("B"))
			e.FileID = "b.rb"
			return e
		}(),
	})
	eng := New(store, nil)

	got := eng.AncestorsOf("Foo")
	want := []string{"Foo", "B"}
	if !reflect.DeepEqual(got, want) {
		t.Errorf("got %v, want %v", got, want)
	}
}
