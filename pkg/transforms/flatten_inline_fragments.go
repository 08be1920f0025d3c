package transforms

import (
	"github.com/wundergraph/graphql-compiler/pkg/ir"
	"github.com/wundergraph/graphql-compiler/pkg/irvisitor"
)

// flattenInlineFragments inlines fragments without directives whose type condition adds
// nothing, and merges adjacent inline fragments with the same type condition and directives.
func flattenInlineFragments(_ *Context, definition ir.Definition) ir.Definition {
	transformer := irvisitor.Transformer{
		Selections: func(cursor *irvisitor.Cursor, selections []ir.Selection) []ir.Selection {
			return flatten(cursor, selections)
		},
	}
	return transformer.Transform(definition)
}

func flatten(cursor *irvisitor.Cursor, selections []ir.Selection) []ir.Selection {
	var out []ir.Selection
	changed := false
	for _, selection := range selections {
		fragment, ok := selection.(*ir.InlineFragment)
		if !ok {
			out = append(out, selection)
			continue
		}
		if len(fragment.Directives) == 0 && (fragment.TypeCondition.IsEmpty() || fragment.TypeCondition == cursor.ParentType) {
			changed = true
			for _, child := range fragment.Selections {
				out = appendMerged(out, child)
			}
			continue
		}
		before := len(out)
		out = appendMerged(out, fragment)
		if len(out) == before {
			changed = true
		}
	}
	if !changed {
		return selections
	}
	return out
}

// appendMerged appends selection, folding it into the last selection if both are inline
// fragments with equal type condition and directives.
func appendMerged(out []ir.Selection, selection ir.Selection) []ir.Selection {
	fragment, ok := selection.(*ir.InlineFragment)
	if !ok || len(out) == 0 {
		return append(out, selection)
	}
	last, ok := out[len(out)-1].(*ir.InlineFragment)
	if !ok || last.TypeCondition != fragment.TypeCondition || !ir.DirectivesEqual(last.Directives, fragment.Directives) {
		return append(out, selection)
	}
	selections := make([]ir.Selection, 0, len(last.Selections)+len(fragment.Selections))
	selections = append(selections, last.Selections...)
	selections = append(selections, fragment.Selections...)
	out[len(out)-1] = last.WithSelections(selections)
	return out
}
