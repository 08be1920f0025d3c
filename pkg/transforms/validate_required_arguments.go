package transforms

import (
	"github.com/wundergraph/graphql-compiler/pkg/ir"
	"github.com/wundergraph/graphql-compiler/pkg/irvisitor"
	"github.com/wundergraph/graphql-compiler/pkg/operationreport"
	"github.com/wundergraph/graphql-compiler/pkg/position"
	"github.com/wundergraph/graphql-compiler/pkg/schema"
)

func validateRequiredArguments(c *Context, definition ir.Definition) ir.Definition {
	walker := irvisitor.NewWalker(16)
	visitor := requiredArgumentsVisitor{Walker: walker, schema: c.Schema}
	walker.RegisterEnterDefinitionVisitor(&visitor)
	walker.RegisterEnterSelectionVisitor(&visitor)
	walker.Walk(definition, c.Report())
	return definition
}

type requiredArgumentsVisitor struct {
	*irvisitor.Walker
	schema schema.Schema
}

func (v *requiredArgumentsVisitor) EnterDefinition(definition ir.Definition) {
	v.checkDirectives(definition.DirectiveList())
}

func (v *requiredArgumentsVisitor) EnterSelection(selection ir.Selection) {
	v.checkDirectives(selection.SelectionDirectives())

	name, ok := fieldName(selection)
	if !ok {
		return
	}
	field, ok := v.schema.GetField(v.EnclosingType(), name)
	if !ok {
		return
	}
	v.check(fieldArguments(selection), field.Arguments, v.EnclosingType().String()+"."+name.String(), selection.SelectionLocation())
}

func (v *requiredArgumentsVisitor) checkDirectives(directives []ir.Directive) {
	for _, directive := range directives {
		if directive.IsMetadata() {
			continue
		}
		definition, ok := v.schema.GetDirective(directive.Name)
		if !ok || definition.AnyArguments {
			continue
		}
		v.check(directive.Arguments, definition.Arguments, "@"+directive.Name.String(), directive.Location)
	}
}

func (v *requiredArgumentsVisitor) check(arguments []ir.Argument, definitions []schema.ArgumentDefinition, owner string, location position.Location) {
	for _, definition := range definitions {
		if !definition.Required() {
			continue
		}
		if _, ok := ir.FindArgument(arguments, definition.Name); !ok {
			v.AddDiagnostic(operationreport.ErrRequiredArgumentMissing(definition.Name.String(), owner, location))
		}
	}
}
