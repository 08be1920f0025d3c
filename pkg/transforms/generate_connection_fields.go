package transforms

import (
	"github.com/wundergraph/graphql-compiler/pkg/intern"
	"github.com/wundergraph/graphql-compiler/pkg/ir"
	"github.com/wundergraph/graphql-compiler/pkg/irvisitor"
	"github.com/wundergraph/graphql-compiler/pkg/position"
)

var (
	cursorField      = intern.Intern("cursor")
	nodeField        = intern.Intern("node")
	pageInfoField    = intern.Intern("pageInfo")
	endCursorField   = intern.Intern("endCursor")
	hasNextPageField = intern.Intern("hasNextPage")
	typenameField    = intern.Intern("__typename")
)

// generateConnectionFields adds the selections a paginated field needs to be updated by the
// connection handler: edges { cursor node { __typename } } and pageInfo { endCursor hasNextPage }.
// Fields the schema doesn't declare are left out.
func generateConnectionFields(c *Context, definition ir.Definition) ir.Definition {
	g := connectionFieldGenerator{c: c}
	transformer := irvisitor.Transformer{
		Selection: func(_ *irvisitor.Cursor, selection ir.Selection) []ir.Selection {
			field, ok := selection.(*ir.LinkedField)
			if !ok {
				return irvisitor.Keep(selection)
			}
			if _, ok := ir.DecodeMetadata[ir.ConnectionMetadata](field.Directives); !ok {
				return irvisitor.Keep(selection)
			}
			generated := g.connectionSelections(field.Definition.Type.NamedType())
			if len(generated) == 0 {
				return irvisitor.Keep(selection)
			}
			selections := make([]ir.Selection, 0, len(field.Selections)+len(generated))
			selections = append(selections, field.Selections...)
			selections = append(selections, generated...)
			return []ir.Selection{field.WithSelections(deduplicate(selections))}
		},
	}
	return transformer.Transform(definition)
}

type connectionFieldGenerator struct {
	c *Context
}

func (g connectionFieldGenerator) connectionSelections(connection intern.StringKey) []ir.Selection {
	var out []ir.Selection
	if edges, ok := g.linked(connection, edgesField, func(edge intern.StringKey) []ir.Selection {
		var edgeSelections []ir.Selection
		if cursor, ok := g.scalar(edge, cursorField); ok {
			edgeSelections = append(edgeSelections, cursor)
		}
		if node, ok := g.linked(edge, nodeField, func(node intern.StringKey) []ir.Selection {
			if typename, ok := g.scalar(node, typenameField); ok {
				return []ir.Selection{typename}
			}
			return nil
		}); ok {
			edgeSelections = append(edgeSelections, node)
		}
		return edgeSelections
	}); ok {
		out = append(out, edges)
	}
	if pageInfo, ok := g.linked(connection, pageInfoField, func(pageInfo intern.StringKey) []ir.Selection {
		var pageInfoSelections []ir.Selection
		for _, name := range []intern.StringKey{endCursorField, hasNextPageField} {
			if field, ok := g.scalar(pageInfo, name); ok {
				pageInfoSelections = append(pageInfoSelections, field)
			}
		}
		return pageInfoSelections
	}); ok {
		out = append(out, pageInfo)
	}
	return out
}

func (g connectionFieldGenerator) scalar(parent, name intern.StringKey) (*ir.ScalarField, bool) {
	definition, ok := g.c.Schema.GetField(parent, name)
	if !ok {
		return nil, false
	}
	if t, ok := g.c.Schema.GetType(definition.Type.NamedType()); !ok || !t.IsLeaf() {
		return nil, false
	}
	return &ir.ScalarField{Definition: definition.Ref(), Location: position.GeneratedLocation}, true
}

// linked selects name on parent with the selections built by children. Composite fields without
// any selectable child are left out.
func (g connectionFieldGenerator) linked(parent, name intern.StringKey, children func(t intern.StringKey) []ir.Selection) (*ir.LinkedField, bool) {
	definition, ok := g.c.Schema.GetField(parent, name)
	if !ok {
		return nil, false
	}
	if t, ok := g.c.Schema.GetType(definition.Type.NamedType()); !ok || !t.IsComposite() {
		return nil, false
	}
	selections := children(definition.Type.NamedType())
	if len(selections) == 0 {
		return nil, false
	}
	return &ir.LinkedField{Definition: definition.Ref(), Selections: selections, Location: position.GeneratedLocation}, true
}
