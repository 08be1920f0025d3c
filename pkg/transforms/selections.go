package transforms

import (
	"slices"

	"github.com/wundergraph/graphql-compiler/pkg/intern"
	"github.com/wundergraph/graphql-compiler/pkg/ir"
	"github.com/wundergraph/graphql-compiler/pkg/position"
	"github.com/wundergraph/graphql-compiler/pkg/schema"
)

var booleanType = schema.Named("Boolean")

// deduplicate merges selections that select the same thing. The first occurrence keeps its
// position, nested selections are unioned. selections is returned as is if nothing merged.
func deduplicate(selections []ir.Selection) []ir.Selection {
	if len(selections) < 2 {
		return selections
	}
	var out []ir.Selection
	for i, selection := range selections {
		merged := false
		candidates := out
		if out == nil {
			candidates = selections[:i]
		}
		for j, existing := range candidates {
			union, ok := merge(existing, selection)
			if !ok {
				continue
			}
			if out == nil {
				out = append(make([]ir.Selection, 0, len(selections)), selections[:i]...)
			}
			out[j] = union
			merged = true
			break
		}
		if out != nil && !merged {
			out = append(out, selection)
		}
	}
	if out == nil {
		return selections
	}
	return out
}

// merge returns the union of a and b if they select the same thing.
func merge(a, b ir.Selection) (ir.Selection, bool) {
	switch left := a.(type) {
	case *ir.ScalarField:
		right, ok := b.(*ir.ScalarField)
		if !ok || !sameField(left.Alias, right.Alias, left.Definition.Name, right.Definition.Name, left.Arguments, right.Arguments, left.Directives, right.Directives) {
			return nil, false
		}
		return left, true
	case *ir.LinkedField:
		right, ok := b.(*ir.LinkedField)
		if !ok || !sameField(left.Alias, right.Alias, left.Definition.Name, right.Definition.Name, left.Arguments, right.Arguments, left.Directives, right.Directives) {
			return nil, false
		}
		return left.WithSelections(union(left.Selections, right.Selections)), true
	case *ir.FragmentSpread:
		right, ok := b.(*ir.FragmentSpread)
		if !ok || left.Fragment != right.Fragment || !ir.ArgumentsEqual(left.Arguments, right.Arguments) || !ir.DirectivesEqual(left.Directives, right.Directives) {
			return nil, false
		}
		return left, true
	case *ir.InlineFragment:
		right, ok := b.(*ir.InlineFragment)
		if !ok || left.TypeCondition != right.TypeCondition || !ir.DirectivesEqual(left.Directives, right.Directives) {
			return nil, false
		}
		return left.WithSelections(union(left.Selections, right.Selections)), true
	case *ir.Condition:
		right, ok := b.(*ir.Condition)
		if !ok || left.Passing != right.Passing || !ir.ValuesEqual(left.Value, right.Value) {
			return nil, false
		}
		return left.WithSelections(union(left.Selections, right.Selections)), true
	}
	return nil, false
}

func union(a, b []ir.Selection) []ir.Selection {
	out := make([]ir.Selection, 0, len(a)+len(b))
	out = append(out, a...)
	out = append(out, b...)
	return deduplicate(out)
}

func sameField(aliasA, aliasB, nameA, nameB intern.StringKey, argumentsA, argumentsB []ir.Argument, directivesA, directivesB []ir.Directive) bool {
	return aliasA == aliasB && nameA == nameB && ir.ArgumentsEqual(argumentsA, argumentsB) && ir.DirectivesEqual(directivesA, directivesB)
}

// fieldName returns the schema field name of a field selection.
func fieldName(selection ir.Selection) (intern.StringKey, bool) {
	switch s := selection.(type) {
	case *ir.ScalarField:
		return s.Definition.Name, true
	case *ir.LinkedField:
		return s.Definition.Name, true
	}
	return intern.Empty, false
}

func fieldArguments(selection ir.Selection) []ir.Argument {
	switch s := selection.(type) {
	case *ir.ScalarField:
		return s.Arguments
	case *ir.LinkedField:
		return s.Arguments
	}
	return nil
}

// staticString returns the constant string value of argument name.
func staticString(arguments []ir.Argument, name intern.StringKey) (value string, found, static bool) {
	argument, ok := ir.FindArgument(arguments, name)
	if !ok {
		return "", false, false
	}
	constant, ok := argument.Value.(*ir.Constant)
	if !ok || constant.Kind != ir.ConstantString {
		return "", true, false
	}
	return constant.Raw, true, true
}

// occurrence is something found while walking a definition and the fragments it spreads.
type occurrence struct {
	key      string
	location position.Location
	origin   intern.StringKey
}

// duplicateOccurrences returns pairs of occurrences sharing a key that the current definition owns:
// both sit in the same definition being the current one, or they come from different definitions.
// Duplicates inside a single spread fragment are reported by that fragment.
func duplicateOccurrences(current intern.StringKey, occurrences []occurrence) [][2]occurrence {
	var out [][2]occurrence
	first := make(map[string]occurrence, len(occurrences))
	for _, o := range occurrences {
		previous, seen := first[o.key]
		if !seen {
			first[o.key] = o
			continue
		}
		if previous.origin == o.origin && o.origin != current {
			continue
		}
		out = append(out, [2]occurrence{o, previous})
	}
	return out
}

// visitValues calls visit for every value of a definition: field and spread arguments,
// directive arguments, condition values and values held by metadata.
func visitValues(definition ir.Definition, visit func(value ir.Value, location position.Location)) {
	directives := func(directives []ir.Directive) {
		for _, directive := range directives {
			for _, argument := range directive.Arguments {
				visit(argument.Value, argument.Location)
			}
			switch data := directive.Data.(type) {
			case ir.DeferMetadata:
				if data.If != "" {
					visit(&ir.Variable{Name: intern.Intern(data.If), Type: booleanType}, directive.Location)
				}
			case ir.StreamMetadata:
				if data.If != "" {
					visit(&ir.Variable{Name: intern.Intern(data.If), Type: booleanType}, directive.Location)
				}
				if data.InitialCount != nil {
					visit(data.InitialCount, directive.Location)
				}
			}
		}
	}
	arguments := func(arguments []ir.Argument) {
		for _, argument := range arguments {
			visit(argument.Value, argument.Location)
		}
	}

	directives(definition.DirectiveList())
	var walk func(selections []ir.Selection)
	walk = func(selections []ir.Selection) {
		for _, selection := range selections {
			directives(selection.SelectionDirectives())
			switch s := selection.(type) {
			case *ir.ScalarField:
				arguments(s.Arguments)
			case *ir.LinkedField:
				arguments(s.Arguments)
			case *ir.FragmentSpread:
				arguments(s.Arguments)
			case *ir.Condition:
				visit(s.Value, s.Location)
			}
			walk(ir.Children(selection))
		}
	}
	walk(definition.SelectionSet())
}

// usedVariables lists the variables a definition refers to, sorted by name. A variable used
// in several places gets the non null type if any usage requires one.
func usedVariables(definition ir.Definition, location position.Location) []ir.VariableDefinition {
	types := make(map[intern.StringKey]schema.TypeReference)
	visitValues(definition, func(value ir.Value, _ position.Location) {
		ir.VisitVariables(value, func(variable *ir.Variable) {
			existing, seen := types[variable.Name]
			if !seen || (variable.Type.NonNull && !existing.NonNull) || existing.IsZero() {
				types[variable.Name] = variable.Type
			}
		})
	})
	out := make([]ir.VariableDefinition, 0, len(types))
	for name, typeRef := range types {
		out = append(out, ir.VariableDefinition{Name: name, Type: typeRef, Location: location})
	}
	slices.SortFunc(out, func(a, b ir.VariableDefinition) int {
		return a.Name.Compare(b.Name)
	})
	return out
}
