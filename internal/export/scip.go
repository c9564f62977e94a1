// Package export writes the index in SCIP wire format so other tools
// (code browsers, cross-repo search) can consume it.
package export

import (
	"fmt"
	"os"
	"sort"
	"strings"

	"github.com/sourcegraph/scip/bindings/go/scip"
	"google.golang.org/protobuf/proto"

	"rbls/internal/entry"
	rblserrors "rbls/internal/errors"
	"rbls/internal/version"
)

// Index is the read surface the exporter needs.
type Index interface {
	Files() []string
	EntriesForFile(fileID string) []*entry.Entry
}

// WriteSCIP serializes the whole index to a SCIP file at path.
func WriteSCIP(idx Index, workspaceRoot, path string) error {
	doc, err := proto.Marshal(Build(idx, workspaceRoot))
	if err != nil {
		return rblserrors.New(rblserrors.ExportFailed, "failed to encode SCIP index", err)
	}
	if err := os.WriteFile(path, doc, 0644); err != nil {
		return rblserrors.New(rblserrors.ExportFailed, "failed to write "+path, err)
	}
	return nil
}

// Build assembles the SCIP index proto. One document per indexed file,
// one definition occurrence per entry.
func Build(idx Index, workspaceRoot string) *scip.Index {
	out := &scip.Index{
		Metadata: &scip.Metadata{
			Version: scip.ProtocolVersion_UnspecifiedProtocolVersion,
			ToolInfo: &scip.ToolInfo{
				Name:    "rbls",
				Version: version.Version,
			},
			ProjectRoot:          "file://" + workspaceRoot,
			TextDocumentEncoding: scip.TextEncoding_UTF8,
		},
	}

	files := idx.Files()
	sort.Strings(files)
	for _, fileID := range files {
		entries := idx.EntriesForFile(fileID)
		if len(entries) == 0 {
			continue
		}
		doc := &scip.Document{
			RelativePath: fileID,
			Language:     "ruby",
		}
		for _, e := range entries {
			sym := symbolFor(e)
			doc.Occurrences = append(doc.Occurrences, &scip.Occurrence{
				Range:       occurrenceRange(e),
				Symbol:      sym,
				SymbolRoles: int32(scip.SymbolRole_Definition),
			})
			doc.Symbols = append(doc.Symbols, &scip.SymbolInformation{
				Symbol:      sym,
				Kind:        kindFor(e),
				DisplayName: displayName(e),
			})
		}
		out.Documents = append(out.Documents, doc)
	}
	return out
}

// occurrenceRange prefers the name range over the full declaration
// range. SCIP lines are zero-based; the store records one-based.
func occurrenceRange(e *entry.Entry) []int32 {
	loc := e.Location
	if e.NameLocation.StartLine != 0 {
		loc = e.NameLocation
	}
	return []int32{
		int32(loc.StartLine - 1),
		int32(loc.StartColumn),
		int32(loc.EndLine - 1),
		int32(loc.EndColumn),
	}
}

// symbolFor builds a SCIP symbol string for an entry. The scheme is
// "rbls", the package is the local workspace.
func symbolFor(e *entry.Entry) string {
	var b strings.Builder
	b.WriteString("rbls . . ")

	switch {
	case e.IsNamespace():
		writeNamespaceDescriptors(&b, e.Name)
	case e.IsMethodLike():
		writeNamespaceDescriptors(&b, e.Owner)
		fmt.Fprintf(&b, "%s().", escapeSegment(e.Name))
	default:
		if e.Owner != "" {
			writeNamespaceDescriptors(&b, e.Owner)
		} else if ns := entry.Namespace(e.Name); ns != "" {
			writeNamespaceDescriptors(&b, ns)
		}
		fmt.Fprintf(&b, "%s.", escapeSegment(entry.LastSegment(e.Name)))
	}
	return b.String()
}

func writeNamespaceDescriptors(b *strings.Builder, name string) {
	for _, seg := range entry.Split(name) {
		b.WriteString(escapeSegment(seg))
		b.WriteByte('/')
	}
}

// escapeSegment backtick-quotes segments that fall outside the SCIP
// simple-identifier grammar, such as singleton markers and setters.
func escapeSegment(seg string) string {
	for _, r := range seg {
		if r >= 'a' && r <= 'z' || r >= 'A' && r <= 'Z' || r >= '0' && r <= '9' || r == '_' || r == '+' || r == '-' || r == '$' {
			continue
		}
		return "`" + strings.ReplaceAll(seg, "`", "``") + "`"
	}
	return seg
}

func kindFor(e *entry.Entry) scip.SymbolInformation_Kind {
	switch e.Kind {
	case entry.KindClass:
		return scip.SymbolInformation_Class
	case entry.KindModule:
		return scip.SymbolInformation_Module
	case entry.KindSingletonClass:
		return scip.SymbolInformation_Class
	case entry.KindMethod, entry.KindAccessor, entry.KindMethodAlias:
		return scip.SymbolInformation_Method
	case entry.KindSingletonMethod:
		return scip.SymbolInformation_StaticMethod
	case entry.KindConstant, entry.KindConstantAlias:
		return scip.SymbolInformation_Constant
	default:
		return scip.SymbolInformation_Variable
	}
}

func displayName(e *entry.Entry) string {
	if e.IsMethodLike() && e.Owner != "" {
		return e.Owner + "#" + e.Name
	}
	return e.Name
}
