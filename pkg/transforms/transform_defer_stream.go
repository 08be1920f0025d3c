package transforms

import (
	"strings"

	"github.com/wundergraph/graphql-compiler/pkg/intern"
	"github.com/wundergraph/graphql-compiler/pkg/ir"
	"github.com/wundergraph/graphql-compiler/pkg/irvisitor"
	"github.com/wundergraph/graphql-compiler/pkg/schema"
)

// transformDeferStream replaces @defer and @stream with metadata. Deferred spreads are wrapped
// in an inline fragment on the fragment's type so the deferred payload has a single node.
func transformDeferStream(c *Context, definition ir.Definition) ir.Definition {
	owner := definition.DefinitionName().String()
	transformer := irvisitor.Transformer{
		Selection: func(cursor *irvisitor.Cursor, selection ir.Selection) []ir.Selection {
			switch s := selection.(type) {
			case *ir.FragmentSpread:
				directive, ok := ir.FindDirective(s.Directives, schema.DirectiveDefer)
				if !ok {
					break
				}
				inner := ir.WithDirectives(s, ir.WithoutDirective(s.Directives, schema.DirectiveDefer))
				condition, enabled := deferCondition(directive)
				if !enabled {
					return []ir.Selection{inner}
				}
				fragment, ok := c.Fragment(s.Fragment)
				if !ok {
					break
				}
				label := deferLabel(owner, directive, s.Fragment.String())
				directives, err := addMetadata(c, nil, ir.DeferMetadata{Label: label, If: condition}, directive.Location)
				if err != nil {
					break
				}
				return []ir.Selection{&ir.InlineFragment{
					TypeCondition: fragment.TypeCondition,
					Directives:    directives,
					Selections:    []ir.Selection{inner},
					Location:      s.Location,
				}}
			case *ir.InlineFragment:
				directive, ok := ir.FindDirective(s.Directives, schema.DirectiveDefer)
				if !ok {
					break
				}
				directives := ir.WithoutDirective(s.Directives, schema.DirectiveDefer)
				if condition, enabled := deferCondition(directive); enabled {
					path := strings.Join(cursor.Path, ".")
					if path == "" {
						path = cursor.ParentType.String()
					}
					var err error
					directives, err = addMetadata(c, directives, ir.DeferMetadata{Label: deferLabel(owner, directive, path), If: condition}, directive.Location)
					if err != nil {
						break
					}
				}
				return []ir.Selection{ir.WithDirectives(s, directives)}
			case *ir.ScalarField:
				if out, ok := streamField(c, owner, s, s.Directives, s.ResponseKey()); ok {
					return []ir.Selection{out}
				}
			case *ir.LinkedField:
				if out, ok := streamField(c, owner, s, s.Directives, s.ResponseKey()); ok {
					return []ir.Selection{out}
				}
			}
			return irvisitor.Keep(selection)
		},
	}
	return transformer.Transform(definition)
}

func streamField(c *Context, owner string, selection ir.Selection, directives []ir.Directive, responseKey intern.StringKey) (ir.Selection, bool) {
	directive, ok := ir.FindDirective(directives, schema.DirectiveStream)
	if !ok {
		return nil, false
	}
	rest := ir.WithoutDirective(directives, schema.DirectiveStream)
	condition, enabled := deferCondition(directive)
	if !enabled {
		return ir.WithDirectives(selection, rest), true
	}
	initialCount := ir.Value(ir.Int("0"))
	if argument, ok := ir.FindArgument(directive.Arguments, initialCountArgument); ok {
		initialCount = argument.Value
	}
	label := owner + "$stream$" + responseKey.String()
	if explicit, _, static := staticString(directive.Arguments, labelArgument); static {
		label = explicit
	}
	out, err := addMetadata(c, rest, ir.StreamMetadata{Label: label, If: condition, InitialCount: initialCount}, directive.Location)
	if err != nil {
		return nil, false
	}
	return ir.WithDirectives(selection, out), true
}

// deferCondition returns the variable controlling a @defer or @stream, empty when it always
// applies. enabled is false for a literal if: false.
func deferCondition(directive ir.Directive) (variable string, enabled bool) {
	argument, ok := ir.FindArgument(directive.Arguments, ifArgument)
	if !ok {
		return "", true
	}
	switch v := argument.Value.(type) {
	case *ir.Variable:
		return v.Name.String(), true
	case *ir.Constant:
		return "", v.Kind != ir.ConstantBoolean || v.Raw != "false"
	}
	return "", true
}

func deferLabel(owner string, directive ir.Directive, suffix string) string {
	if label, _, static := staticString(directive.Arguments, labelArgument); static {
		return label
	}
	return owner + "$defer$" + suffix
}
