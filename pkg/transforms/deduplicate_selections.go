package transforms

import (
	"github.com/wundergraph/graphql-compiler/pkg/ir"
	"github.com/wundergraph/graphql-compiler/pkg/irvisitor"
)

// deduplicateSelections merges identical selections at every level.
func deduplicateSelections(_ *Context, definition ir.Definition) ir.Definition {
	transformer := irvisitor.Transformer{
		Selections: func(_ *irvisitor.Cursor, selections []ir.Selection) []ir.Selection {
			return deduplicate(selections)
		},
	}
	return transformer.Transform(definition)
}
