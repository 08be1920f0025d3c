package transforms

import (
	"github.com/wundergraph/graphql-compiler/pkg/intern"
	"github.com/wundergraph/graphql-compiler/pkg/ir"
	"github.com/wundergraph/graphql-compiler/pkg/operationreport"
	"github.com/wundergraph/graphql-compiler/pkg/position"
)

// validateOperationVariables checks that every variable used by an operation or the fragments
// it spreads is defined on the operation, and warns about definitions nothing uses.
func validateOperationVariables(c *Context, definition ir.Definition) ir.Definition {
	operation, ok := definition.(*ir.Operation)
	if !ok {
		return definition
	}

	defined := make(map[intern.StringKey]ir.VariableDefinition, len(operation.VariableDefinitions))
	for _, variable := range operation.VariableDefinitions {
		defined[variable.Name] = variable
	}
	used := intern.NewSet()
	reported := intern.NewSet()

	check := func(fromFragment bool) func(value ir.Value, location position.Location) {
		return func(value ir.Value, location position.Location) {
			ir.VisitVariables(value, func(variable *ir.Variable) {
				used.Add(variable.Name)
				declared, ok := defined[variable.Name]
				if !ok {
					if !reported.Has(variable.Name) {
						reported.Add(variable.Name)
						c.AddDiagnostic(operationreport.ErrVariableNotDefinedOnOperation(variable.Name.String(), operation.Name.String(), location))
					}
					return
				}
				// usages in the operation itself were checked when it was built
				if fromFragment && !variable.Type.IsZero() && !declared.Type.AsNonNull().IsSubtypeOf(variable.Type) {
					c.AddDiagnostic(operationreport.ErrValueDoesntSatisfyType(variable.String(), variable.Type.String(), location))
				}
			})
		}
	}

	visitValues(operation, check(false))
	for _, fragment := range c.Closure() {
		visitValues(fragment, check(true))
	}

	for _, variable := range operation.VariableDefinitions {
		if !used.Has(variable.Name) {
			c.AddDiagnostic(operationreport.ErrVariableUnused(variable.Name.String(), operation.Name.String(), variable.Location))
		}
	}
	return definition
}
