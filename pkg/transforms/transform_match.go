package transforms

import (
	"github.com/wundergraph/graphql-compiler/pkg/intern"
	"github.com/wundergraph/graphql-compiler/pkg/ir"
	"github.com/wundergraph/graphql-compiler/pkg/irvisitor"
	"github.com/wundergraph/graphql-compiler/pkg/operationreport"
	"github.com/wundergraph/graphql-compiler/pkg/schema"
)

var nameArgument = intern.Intern("name")

// transformMatch turns spreads carrying @module into inline fragments on the fragment's type
// with module metadata, and drops @match from the fields selecting them.
func transformMatch(c *Context, definition ir.Definition) ir.Definition {
	transformer := irvisitor.Transformer{
		Selection: func(cursor *irvisitor.Cursor, selection ir.Selection) []ir.Selection {
			switch s := selection.(type) {
			case *ir.LinkedField:
				if _, ok := ir.FindDirective(s.Directives, schema.DirectiveMatch); ok {
					return []ir.Selection{ir.WithDirectives(s, ir.WithoutDirective(s.Directives, schema.DirectiveMatch))}
				}
			case *ir.FragmentSpread:
				if module, ok := moduleSelection(c, cursor, s); ok {
					return []ir.Selection{module}
				}
			}
			return irvisitor.Keep(selection)
		},
		Selections: func(cursor *irvisitor.Cursor, selections []ir.Selection) []ir.Selection {
			seen := make(map[intern.StringKey]*ir.InlineFragment)
			for _, selection := range selections {
				fragment, ok := selection.(*ir.InlineFragment)
				if !ok {
					continue
				}
				if _, ok := ir.DecodeMetadata[ir.ModuleMetadata](fragment.Directives); !ok {
					continue
				}
				if other, ok := seen[fragment.TypeCondition]; ok {
					c.AddDiagnostic(operationreport.ErrMetadataCollision(ir.ModuleMetadataKey.String(), fragment.Location, other.Location))
					continue
				}
				seen[fragment.TypeCondition] = fragment
			}
			return selections
		},
	}
	return transformer.Transform(definition)
}

func moduleSelection(c *Context, cursor *irvisitor.Cursor, spread *ir.FragmentSpread) (ir.Selection, bool) {
	directive, ok := ir.FindDirective(spread.Directives, schema.DirectiveModule)
	if !ok {
		return nil, false
	}
	module, _, static := staticString(directive.Arguments, nameArgument)
	if !static {
		return nil, false
	}
	fragment, ok := c.Fragment(spread.Fragment)
	if !ok {
		return nil, false
	}
	field := ""
	if len(cursor.Path) != 0 {
		field = cursor.Path[len(cursor.Path)-1]
	}

	inner := ir.WithDirectives(spread, ir.WithoutDirective(spread.Directives, schema.DirectiveModule))
	directives, err := addMetadata(c, nil, ir.ModuleMetadata{
		Module:        module,
		Fragment:      fragment.Name.String(),
		TypeCondition: fragment.TypeCondition.String(),
		Field:         field,
	}, directive.Location)
	if err != nil {
		return nil, false
	}
	return &ir.InlineFragment{
		TypeCondition: fragment.TypeCondition,
		Directives:    directives,
		Selections:    []ir.Selection{inner},
		Location:      spread.Location,
	}, true
}
