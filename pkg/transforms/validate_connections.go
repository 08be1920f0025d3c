package transforms

import (
	"strings"

	"github.com/wundergraph/graphql-compiler/pkg/intern"
	"github.com/wundergraph/graphql-compiler/pkg/ir"
	"github.com/wundergraph/graphql-compiler/pkg/irvisitor"
	"github.com/wundergraph/graphql-compiler/pkg/operationreport"
	"github.com/wundergraph/graphql-compiler/pkg/schema"
)

var (
	keyArgument     = intern.Intern("key")
	filtersArgument = intern.Intern("filters")
	edgesField      = intern.Intern("edges")
)

func validateConnections(c *Context, definition ir.Definition) ir.Definition {
	walker := irvisitor.NewWalker(16)
	visitor := connectionsVisitor{Walker: walker, schema: c.Schema}
	walker.RegisterEnterSelectionVisitor(&visitor)
	walker.Walk(definition, c.Report())
	return definition
}

type connectionsVisitor struct {
	*irvisitor.Walker
	schema schema.Schema
}

func (v *connectionsVisitor) EnterSelection(selection ir.Selection) {
	directive, ok := ir.FindDirective(selection.SelectionDirectives(), schema.DirectiveConnection)
	if !ok {
		return
	}
	field, ok := selection.(*ir.LinkedField)
	if !ok {
		name, _ := fieldName(selection)
		v.AddDiagnostic(operationreport.ErrConnection("@connection is only supported on fields selecting objects, found on: %s", directive.Location, name))
		return
	}

	name := field.Definition.Name.String()
	if _, ok := v.schema.GetField(field.Definition.Type.NamedType(), edgesField); !ok {
		v.AddDiagnostic(operationreport.ErrConnection("field: %s of type: %s has no edges field and can't be a connection", directive.Location, name, field.Definition.Type))
	}

	key, found, static := staticString(directive.Arguments, keyArgument)
	switch {
	case found && !static:
		v.AddDiagnostic(operationreport.ErrConnection("key of @connection on field: %s must be a static string", directive.Location, name))
	case found && !strings.HasSuffix(key, "_"+name):
		v.AddDiagnostic(operationreport.ErrConnection("key: %s of @connection on field: %s must end with _%s", directive.Location, key, name, name))
	}

	argument, ok := ir.FindArgument(directive.Arguments, filtersArgument)
	if !ok {
		return
	}
	definition, ok := v.schema.GetField(field.Definition.Parent, field.Definition.Name)
	if !ok {
		return
	}
	filters, static := staticStrings(argument.Value)
	if !static {
		v.AddDiagnostic(operationreport.ErrConnection("filters of @connection on field: %s must be a static list of strings", argument.Location, name))
		return
	}
	for _, filter := range filters {
		if _, ok := definition.Argument(intern.Intern(filter)); !ok {
			v.AddDiagnostic(operationreport.ErrConnection("filter: %s of @connection is not an argument of field: %s", argument.Location, filter, name))
		}
	}
}

// staticStrings reads a constant string or list of strings.
func staticStrings(value ir.Value) ([]string, bool) {
	switch v := value.(type) {
	case *ir.Constant:
		if v.Kind == ir.ConstantNull {
			return nil, true
		}
		if v.Kind == ir.ConstantString {
			return []string{v.Raw}, true
		}
	case *ir.ListValue:
		out := make([]string, 0, len(v.Items))
		for _, item := range v.Items {
			constant, ok := item.(*ir.Constant)
			if !ok || constant.Kind != ir.ConstantString {
				return nil, false
			}
			out = append(out, constant.Raw)
		}
		return out, true
	}
	return nil, false
}
