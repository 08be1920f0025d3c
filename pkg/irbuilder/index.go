package irbuilder

import (
	"github.com/vektah/gqlparser/v2/ast"

	"github.com/wundergraph/graphql-compiler/pkg/intern"
	"github.com/wundergraph/graphql-compiler/pkg/ir"
	"github.com/wundergraph/graphql-compiler/pkg/operationreport"
	"github.com/wundergraph/graphql-compiler/pkg/position"
)

type indexEntry struct {
	kind      ir.DefinitionKind
	doc       *ParsedDocument
	operation *ast.OperationDefinition
	fragment  *ast.FragmentDefinition
	location  position.Location
}

// Index is the global name set of one project generation: every operation and fragment
// across all documents, with duplicates set aside.
type Index struct {
	entries    map[intern.StringKey]*indexEntry
	duplicates map[intern.StringKey][]position.Location
	documents  map[position.SourceLocationKey][]intern.StringKey
}

// NewIndex collects definition names. Colliding definitions are excluded and reported,
// anonymous operations are reported.
func NewIndex(documents []*ParsedDocument) (*Index, operationreport.Diagnostics) {
	idx := &Index{
		entries:    make(map[intern.StringKey]*indexEntry),
		duplicates: make(map[intern.StringKey][]position.Location),
		documents:  make(map[position.SourceLocationKey][]intern.StringKey, len(documents)),
	}
	var diagnostics operationreport.Diagnostics

	add := func(name intern.StringKey, entry *indexEntry) {
		idx.documents[entry.doc.Source.Key] = append(idx.documents[entry.doc.Source.Key], name)
		if locations, ok := idx.duplicates[name]; ok {
			idx.duplicates[name] = append(locations, entry.location)
			return
		}
		if existing, ok := idx.entries[name]; ok {
			delete(idx.entries, name)
			idx.duplicates[name] = []position.Location{existing.location, entry.location}
			return
		}
		idx.entries[name] = entry
	}

	for _, doc := range documents {
		for _, operation := range doc.AST.Operations {
			location := doc.Location(operation.Position)
			if operation.Name == "" {
				diagnostics = append(diagnostics, operationreport.ErrOperationNameRequired(location))
				continue
			}
			add(intern.Intern(operation.Name), &indexEntry{kind: ir.DefinitionKindOperation, doc: doc, operation: operation, location: location})
		}
		for _, fragment := range doc.AST.Fragments {
			add(intern.Intern(fragment.Name), &indexEntry{kind: ir.DefinitionKindFragment, doc: doc, fragment: fragment, location: doc.Location(fragment.Position)})
		}
	}

	for name, locations := range idx.duplicates {
		for i := range locations {
			other := locations[0]
			if i == 0 {
				other = locations[1]
			}
			diagnostics = append(diagnostics, operationreport.ErrDuplicateDefinition(name.String(), locations[i], other).WithDefinition(name))
		}
	}
	diagnostics.Sort()
	return idx, diagnostics
}

// Names returns every buildable definition name in lexical order.
func (idx *Index) Names() []intern.StringKey {
	out := intern.NewSet()
	for name := range idx.entries {
		out.Add(name)
	}
	return out.Sorted()
}

func (idx *Index) Has(name intern.StringKey) bool {
	_, ok := idx.entries[name]
	return ok
}

// IsDuplicate reports whether name is defined more than once.
func (idx *Index) IsDuplicate(name intern.StringKey) bool {
	_, ok := idx.duplicates[name]
	return ok
}

// Duplicates returns every name defined more than once, in lexical order.
func (idx *Index) Duplicates() []intern.StringKey {
	out := intern.NewSet()
	for name := range idx.duplicates {
		out.Add(name)
	}
	return out.Sorted()
}

// DuplicateLocation returns the first location of a duplicated name.
func (idx *Index) DuplicateLocation(name intern.StringKey) (position.Location, bool) {
	locations, ok := idx.duplicates[name]
	if !ok {
		return position.Location{}, false
	}
	return locations[0], true
}

// DocumentNames returns the names defined in a document, including duplicates.
func (idx *Index) DocumentNames(key position.SourceLocationKey) []intern.StringKey {
	return idx.documents[key]
}

func (idx *Index) Location(name intern.StringKey) (position.Location, bool) {
	entry, ok := idx.entries[name]
	if !ok {
		return position.Location{}, false
	}
	return entry.location, true
}

func (idx *Index) fragment(name intern.StringKey) (*indexEntry, bool) {
	entry, ok := idx.entries[name]
	if !ok || entry.kind != ir.DefinitionKindFragment {
		return nil, false
	}
	return entry, true
}
