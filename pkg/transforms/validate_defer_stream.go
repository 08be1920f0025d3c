package transforms

import (
	"strconv"

	"github.com/wundergraph/graphql-compiler/pkg/intern"
	"github.com/wundergraph/graphql-compiler/pkg/ir"
	"github.com/wundergraph/graphql-compiler/pkg/irvisitor"
	"github.com/wundergraph/graphql-compiler/pkg/operationreport"
	"github.com/wundergraph/graphql-compiler/pkg/schema"
)

var (
	labelArgument        = intern.Intern("label")
	ifArgument           = intern.Intern("if")
	initialCountArgument = intern.Intern("initialCount")
)

// validateDeferStream checks @defer and @stream usages of a definition. Labels must be unique
// across an operation and every fragment it spreads.
func validateDeferStream(c *Context, definition ir.Definition) ir.Definition {
	walker := irvisitor.NewWalker(16)
	visitor := deferStreamVisitor{Walker: walker, current: definition.DefinitionName()}
	walker.RegisterEnterSelectionVisitor(&visitor)

	// closure fragments are walked for their labels only, into a report nobody reads
	var scratch operationreport.Report
	if definition.DefinitionKind() == ir.DefinitionKindOperation {
		for _, fragment := range c.Closure() {
			walker.Walk(fragment, &scratch)
		}
	}
	walker.Walk(definition, c.Report())

	for _, pair := range duplicateOccurrences(visitor.current, visitor.labels) {
		c.AddDiagnostic(operationreport.ErrDeferStreamDirectiveLabelMustBeUnique(pair[0].key, pair[0].location, pair[1].location))
	}
	return definition
}

type deferStreamVisitor struct {
	*irvisitor.Walker
	current intern.StringKey
	labels  []occurrence
}

func (v *deferStreamVisitor) EnterSelection(selection ir.Selection) {
	for _, directive := range selection.SelectionDirectives() {
		switch directive.Name {
		case schema.DirectiveDefer:
			v.label(directive)
		case schema.DirectiveStream:
			v.label(directive)
			v.checkStream(selection, directive)
		}
	}
}

func (v *deferStreamVisitor) label(directive ir.Directive) {
	label, found, static := staticString(directive.Arguments, labelArgument)
	if !found {
		return
	}
	if !static {
		v.AddDiagnostic(operationreport.ErrDeferStreamDirectiveLabelMustBeStatic(directive.Location))
		return
	}
	v.labels = append(v.labels, occurrence{key: label, location: directive.Location, origin: v.Definition.DefinitionName()})
}

func (v *deferStreamVisitor) checkStream(selection ir.Selection, directive ir.Directive) {
	var typeRef schema.TypeReference
	switch s := selection.(type) {
	case *ir.ScalarField:
		typeRef = s.Definition.Type
	case *ir.LinkedField:
		typeRef = s.Definition.Type
	default:
		return
	}
	if !typeRef.IsList() {
		name, _ := fieldName(selection)
		v.AddDiagnostic(operationreport.ErrStreamDirectiveOnNonListField(name.String(), directive.Location))
	}
	if argument, ok := ir.FindArgument(directive.Arguments, initialCountArgument); ok {
		if constant, ok := argument.Value.(*ir.Constant); ok && constant.Kind == ir.ConstantInt {
			if n, err := strconv.Atoi(constant.Raw); err == nil && n < 0 {
				v.AddDiagnostic(operationreport.ErrStreamInitialCountMustBeNonNegative(argument.Location))
			}
		}
	}
}
