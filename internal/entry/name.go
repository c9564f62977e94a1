package entry

import "strings"

// Separator joins namespace segments in fully qualified names.
const Separator = "::"

// PlaceholderSegment stands in for a namespace component that cannot be
// statically resolved (e.g. `class self::Foo`). Names containing it stay
// syntactically well formed and are distinguishable from concrete names.
const PlaceholderSegment = "<dynamic>"

// Join concatenates name parts with the namespace separator, skipping
// empty parts. Parts may themselves contain separators.
func Join(parts ...string) string {
	kept := parts[:0:0]
	for _, p := range parts {
		if p != "" {
			kept = append(kept, p)
		}
	}
	return strings.Join(kept, Separator)
}

// Split breaks a fully qualified name into its segments.
func Split(name string) []string {
	if name == "" {
		return nil
	}
	return strings.Split(name, Separator)
}

// LastSegment returns the final segment of a fully qualified name.
func LastSegment(name string) string {
	if i := strings.LastIndex(name, Separator); i >= 0 {
		return name[i+len(Separator):]
	}
	return name
}

// Namespace returns the fully qualified name minus its final segment,
// or "" for a top-level name.
func Namespace(name string) string {
	if i := strings.LastIndex(name, Separator); i >= 0 {
		return name[:i]
	}
	return ""
}

// ScopesOf expands a lexical nesting chain into the fully qualified
// name of each enclosing scope, outermost first. Elements may be
// compound paths, which extend the enclosing scope, or carry a leading
// separator (`class ::Foo` inside another namespace), which re-anchors
// the chain at the top level.
func ScopesOf(nesting []string) []string {
	if len(nesting) == 0 {
		return nil
	}
	out := make([]string, 0, len(nesting))
	current := ""
	for _, el := range nesting {
		if strings.HasPrefix(el, Separator) {
			current = strings.TrimPrefix(el, Separator)
		} else {
			current = Join(current, el)
		}
		out = append(out, current)
	}
	return out
}

// HasPlaceholder reports whether any segment of the name is the dynamic
// placeholder.
func HasPlaceholder(name string) bool {
	for _, seg := range Split(name) {
		if seg == PlaceholderSegment {
			return true
		}
	}
	return false
}

// SingletonNameOf returns the synthetic identity of a namespace's
// singleton class, e.g. "A::Foo" -> "A::Foo::<Class:Foo>". Singleton
// methods and instance methods never collide because they hang off
// different owner names.
func SingletonNameOf(name string) string {
	return name + Separator + "<Class:" + LastSegment(name) + ">"
}

// IsSingleton reports whether the name denotes a singleton class.
func IsSingleton(name string) bool {
	last := LastSegment(name)
	return strings.HasPrefix(last, "<Class:") && strings.HasSuffix(last, ">")
}

// Attached returns the namespace a singleton class belongs to. For
// non-singleton names it returns the name unchanged.
func Attached(name string) string {
	for IsSingleton(name) {
		name = Namespace(name)
	}
	return name
}

// hasPrefixSegment reports whether name is nested under prefix at a
// segment boundary.
func hasPrefixSegment(name, prefix string) bool {
	return strings.HasPrefix(name, prefix+Separator)
}
