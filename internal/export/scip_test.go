package export

import (
	"strings"
	"testing"

	"github.com/sourcegraph/scip/bindings/go/scip"

	"rbls/internal/entry"
)

type fakeIndex struct {
	files map[string][]*entry.Entry
}

func (f *fakeIndex) Files() []string {
	var out []string
	for k := range f.files {
		out = append(out, k)
	}
	return out
}

func (f *fakeIndex) EntriesForFile(fileID string) []*entry.Entry {
	return f.files[fileID]
}

func loc(line int) entry.Location {
	return entry.Location{StartLine: line, StartColumn: 0, EndLine: line, EndColumn: 10}
}

func TestBuild(t *testing.T) {
	idx := &fakeIndex{files: map[string][]*entry.Entry{
		"lib/foo.rb": {
			{Name: "Foo", Kind: entry.KindClass, FileID: "lib/foo.rb", Location: loc(1), NameLocation: loc(1)},
			{Name: "save", Kind: entry.KindMethod, FileID: "lib/foo.rb", Owner: "Foo", Location: loc(2), NameLocation: loc(2)},
			{Name: "Foo::LIMIT", Kind: entry.KindConstant, FileID: "lib/foo.rb", Location: loc(3), NameLocation: loc(3)},
		},
		"empty.rb": nil,
	}}

	out := Build(idx, "/workspace")

	if out.Metadata.ToolInfo.Name != "rbls" {
		t.Errorf("tool name = %q", out.Metadata.ToolInfo.Name)
	}
	if len(out.Documents) != 1 {
		t.Fatalf("documents = %d, want 1 (empty files omitted)", len(out.Documents))
	}

	doc := out.Documents[0]
	if doc.Language != "ruby" || doc.RelativePath != "lib/foo.rb" {
		t.Errorf("document header = %s %s", doc.Language, doc.RelativePath)
	}
	if len(doc.Occurrences) != 3 || len(doc.Symbols) != 3 {
		t.Fatalf("occurrences = %d, symbols = %d", len(doc.Occurrences), len(doc.Symbols))
	}

	// Lines convert to zero-based.
	if doc.Occurrences[0].Range[0] != 0 {
		t.Errorf("range = %v", doc.Occurrences[0].Range)
	}
	if doc.Occurrences[0].SymbolRoles != int32(scip.SymbolRole_Definition) {
		t.Errorf("roles = %d", doc.Occurrences[0].SymbolRoles)
	}
}

func TestSymbolFor(t *testing.T) {
	tests := []struct {
		name string
		e    *entry.Entry
		want string
	}{
		{
			"class",
			&entry.Entry{Name: "Foo::Bar", Kind: entry.KindClass},
			"rbls . . Foo/Bar/",
		},
		{
			"method",
			&entry.Entry{Name: "save", Kind: entry.KindMethod, Owner: "Foo"},
			"rbls . . Foo/save().",
		},
		{
			"constant",
			&entry.Entry{Name: "Foo::LIMIT", Kind: entry.KindConstant},
			"rbls . . Foo/LIMIT.",
		},
		{
			"setter escaped",
			&entry.Entry{Name: "name=", Kind: entry.KindAccessor, Owner: "Foo"},
			"rbls . . Foo/`name=`().",
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := symbolFor(tt.e); got != tt.want {
				t.Errorf("symbolFor = %q, want %q", got, tt.want)
			}
		})
	}

	// Singleton owners carry the escaped marker segment.
	e := &entry.Entry{Name: "create", Kind: entry.KindSingletonMethod, Owner: entry.SingletonNameOf("Foo")}
	got := symbolFor(e)
	if !strings.Contains(got, "`<Class:Foo>`/") {
		t.Errorf("singleton symbol = %q", got)
	}
}

func TestKindMapping(t *testing.T) {
	cases := map[entry.Kind]scip.SymbolInformation_Kind{
		entry.KindClass:           scip.SymbolInformation_Class,
		entry.KindModule:          scip.SymbolInformation_Module,
		entry.KindMethod:          scip.SymbolInformation_Method,
		entry.KindSingletonMethod: scip.SymbolInformation_StaticMethod,
		entry.KindConstant:        scip.SymbolInformation_Constant,
		entry.KindGlobalVariable:  scip.SymbolInformation_Variable,
	}
	for k, want := range cases {
		if got := kindFor(&entry.Entry{Kind: k}); got != want {
			t.Errorf("kindFor(%s) = %v, want %v", k, got, want)
		}
	}
}
