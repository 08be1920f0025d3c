package transforms

import (
	"strings"

	"github.com/wundergraph/graphql-compiler/pkg/intern"
	"github.com/wundergraph/graphql-compiler/pkg/ir"
	"github.com/wundergraph/graphql-compiler/pkg/irvisitor"
	"github.com/wundergraph/graphql-compiler/pkg/operationreport"
)

const reservedPrefix = "__"

func validateReservedAliases(c *Context, definition ir.Definition) ir.Definition {
	walker := irvisitor.NewWalker(16)
	visitor := reservedAliasesVisitor{Walker: walker}
	walker.RegisterEnterSelectionVisitor(&visitor)
	walker.Walk(definition, c.Report())
	return definition
}

type reservedAliasesVisitor struct {
	*irvisitor.Walker
}

func (v *reservedAliasesVisitor) EnterSelection(selection ir.Selection) {
	var alias intern.StringKey
	switch s := selection.(type) {
	case *ir.ScalarField:
		alias = s.Alias
	case *ir.LinkedField:
		alias = s.Alias
	default:
		return
	}
	if strings.HasPrefix(alias.String(), reservedPrefix) {
		v.AddDiagnostic(operationreport.ErrReservedAlias(alias.String(), selection.SelectionLocation()))
	}
}
