package transforms

import (
	"github.com/wundergraph/graphql-compiler/pkg/intern"
	"github.com/wundergraph/graphql-compiler/pkg/ir"
	"github.com/wundergraph/graphql-compiler/pkg/irvisitor"
	"github.com/wundergraph/graphql-compiler/pkg/position"
)

// generateTypename selects __typename wherever the runtime has to tell concrete types apart:
// in fields and fragments of abstract type, and in inline fragments selected through @module.
func generateTypename(c *Context, definition ir.Definition) ir.Definition {
	transformer := irvisitor.Transformer{
		Selection: func(cursor *irvisitor.Cursor, selection ir.Selection) []ir.Selection {
			switch s := selection.(type) {
			case *ir.LinkedField:
				if selections, ok := withTypename(c, s.Definition.Type.NamedType(), s.Selections, true); ok {
					return []ir.Selection{s.WithSelections(selections)}
				}
			case *ir.InlineFragment:
				if _, ok := ir.DecodeMetadata[ir.ModuleMetadata](s.Directives); !ok {
					break
				}
				if selections, ok := withTypename(c, irvisitor.ChildType(s, cursor.ParentType), s.Selections, false); ok {
					return []ir.Selection{s.WithSelections(selections)}
				}
			}
			return irvisitor.Keep(selection)
		},
	}
	out := transformer.Transform(definition)
	if _, ok := out.(*ir.Fragment); ok {
		if selections, ok := withTypename(c, out.ParentType(), out.SelectionSet(), true); ok {
			out = out.WithSelections(selections)
		}
	}
	return out
}

// withTypename prepends __typename to selections unless they already select it unaliased.
// With abstractOnly set, only abstract parent types get one.
func withTypename(c *Context, parent intern.StringKey, selections []ir.Selection, abstractOnly bool) ([]ir.Selection, bool) {
	if abstractOnly {
		t, ok := c.Schema.GetType(parent)
		if !ok || !t.IsAbstract() {
			return nil, false
		}
	}
	if selectsTypename(selections) {
		return nil, false
	}
	definition, ok := c.Schema.GetField(parent, typenameField)
	if !ok {
		return nil, false
	}
	out := make([]ir.Selection, 0, len(selections)+1)
	out = append(out, &ir.ScalarField{Definition: definition.Ref(), Location: position.GeneratedLocation})
	out = append(out, selections...)
	return out, true
}

func selectsTypename(selections []ir.Selection) bool {
	for _, selection := range selections {
		field, ok := selection.(*ir.ScalarField)
		if ok && field.Definition.Name == typenameField && field.Alias.IsEmpty() {
			return true
		}
	}
	return false
}
