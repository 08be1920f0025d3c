package transforms

import (
	"cmp"
	"slices"
	"strings"

	"github.com/wundergraph/graphql-compiler/pkg/ir"
	"github.com/wundergraph/graphql-compiler/pkg/irprinter"
	"github.com/wundergraph/graphql-compiler/pkg/irvisitor"
)

// sortSelections orders every selection list: fields by response key, then spreads by fragment
// name, then inline fragments by type condition, then conditions. Equal selections keep
// their relative order.
func sortSelections(_ *Context, definition ir.Definition) ir.Definition {
	transformer := irvisitor.Transformer{
		Selections: func(_ *irvisitor.Cursor, selections []ir.Selection) []ir.Selection {
			if slices.IsSortedFunc(selections, compareSelections) {
				return selections
			}
			out := slices.Clone(selections)
			slices.SortStableFunc(out, compareSelections)
			return out
		},
	}
	return transformer.Transform(definition)
}

func selectionRank(selection ir.Selection) int {
	switch selection.(type) {
	case *ir.ScalarField, *ir.LinkedField:
		return 0
	case *ir.FragmentSpread:
		return 1
	case *ir.InlineFragment:
		return 2
	}
	return 3
}

func compareSelections(a, b ir.Selection) int {
	if c := cmp.Compare(selectionRank(a), selectionRank(b)); c != 0 {
		return c
	}
	switch left := a.(type) {
	case *ir.ScalarField, *ir.LinkedField:
		keyA, _ := ir.ResponseKey(left)
		keyB, _ := ir.ResponseKey(b)
		if c := keyA.Compare(keyB); c != 0 {
			return c
		}
		nameA, _ := fieldName(a)
		nameB, _ := fieldName(b)
		return nameA.Compare(nameB)
	case *ir.FragmentSpread:
		return left.Fragment.Compare(b.(*ir.FragmentSpread).Fragment)
	case *ir.InlineFragment:
		right := b.(*ir.InlineFragment)
		if c := left.TypeCondition.Compare(right.TypeCondition); c != 0 {
			return c
		}
		return strings.Compare(directivesKey(left.Directives), directivesKey(right.Directives))
	case *ir.Condition:
		right := b.(*ir.Condition)
		if c := strings.Compare(left.Value.String(), right.Value.String()); c != 0 {
			return c
		}
		return compareBool(left.Passing, right.Passing)
	}
	return 0
}

func compareBool(a, b bool) int {
	switch {
	case a == b:
		return 0
	case !a:
		return -1
	}
	return 1
}

// directivesKey renders directives for ordering only.
func directivesKey(directives []ir.Directive) string {
	var b strings.Builder
	for _, directive := range directives {
		b.WriteString(directive.Name.String())
		arguments := directive.Arguments
		if directive.IsMetadata() {
			arguments = irprinter.MetadataArguments(directive.Data)
		}
		for _, argument := range arguments {
			b.WriteString(argument.Name.String())
			b.WriteString(argument.Value.String())
		}
	}
	return b.String()
}
