package entry

import (
	"reflect"
	"testing"
)

func TestJoin(t *testing.T) {
	tests := []struct {
		name  string
		parts []string
		want  string
	}{
		{"two segments", []string{"Foo", "Bar"}, "Foo::Bar"},
		{"skips empties", []string{"", "Foo", "", "Bar"}, "Foo::Bar"},
		{"single", []string{"Foo"}, "Foo"},
		{"none", nil, ""},
		{"compound segment", []string{"Foo", "Bar::Baz"}, "Foo::Bar::Baz"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := Join(tt.parts...); got != tt.want {
				t.Errorf("Join(%v) = %q, want %q", tt.parts, got, tt.want)
			}
		})
	}
}

func TestSplitAndSegments(t *testing.T) {
	if got := Split("Foo::Bar::Baz"); !reflect.DeepEqual(got, []string{"Foo", "Bar", "Baz"}) {
		t.Errorf("Split = %v", got)
	}
	if got := Split(""); got != nil {
		t.Errorf("Split(\"\") = %v, want nil", got)
	}
	if got := LastSegment("Foo::Bar"); got != "Bar" {
		t.Errorf("LastSegment = %q", got)
	}
	if got := LastSegment("Foo"); got != "Foo" {
		t.Errorf("LastSegment unqualified = %q", got)
	}
	if got := Namespace("Foo::Bar::Baz"); got != "Foo::Bar" {
		t.Errorf("Namespace = %q", got)
	}
	if got := Namespace("Foo"); got != "" {
		t.Errorf("Namespace of top level = %q", got)
	}
}

func TestScopesOf(t *testing.T) {
	tests := []struct {
		name    string
		nesting []string
		want    []string
	}{
		{"plain chain", []string{"A", "B"}, []string{"A", "A::B"}},
		{"compound element", []string{"Outer", "Foo::Bar"}, []string{"Outer", "Outer::Foo::Bar"}},
		{"root anchored element", []string{"A", "::Foo"}, []string{"A", "Foo"}},
		{"chain continues after anchor", []string{"A", "::Foo", "Inner"}, []string{"A", "Foo", "Foo::Inner"}},
		{"empty", nil, nil},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := ScopesOf(tt.nesting); !reflect.DeepEqual(got, tt.want) {
				t.Errorf("ScopesOf(%v) = %v, want %v", tt.nesting, got, tt.want)
			}
		})
	}
}

func TestSingletonNames(t *testing.T) {
	sing := SingletonNameOf("Foo::Bar")
	if sing != "Foo::Bar::<Class:Bar>" {
		t.Fatalf("SingletonNameOf = %q", sing)
	}
	if !IsSingleton(sing) {
		t.Error("IsSingleton should be true for singleton name")
	}
	if IsSingleton("Foo::Bar") {
		t.Error("IsSingleton should be false for plain name")
	}
	if got := Attached(sing); got != "Foo::Bar" {
		t.Errorf("Attached = %q", got)
	}

	// Singleton of a singleton attaches all the way back.
	double := SingletonNameOf(sing)
	if got := Attached(double); got != "Foo::Bar" {
		t.Errorf("Attached of nested singleton = %q", got)
	}
}

func TestHasPlaceholder(t *testing.T) {
	if !HasPlaceholder("Foo::<dynamic>::Bar") {
		t.Error("placeholder segment not detected")
	}
	if HasPlaceholder("Foo::Bar") {
		t.Error("false positive")
	}
}
