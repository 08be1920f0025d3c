package transforms

import (
	"slices"
	"strings"

	"github.com/wundergraph/graphql-compiler/pkg/intern"
	"github.com/wundergraph/graphql-compiler/pkg/ir"
	"github.com/wundergraph/graphql-compiler/pkg/irvisitor"
	"github.com/wundergraph/graphql-compiler/pkg/operationreport"
	"github.com/wundergraph/graphql-compiler/pkg/pool"
)

// scope binds the local arguments of a fragment to values.
type scope map[intern.StringKey]ir.Value

func (s scope) lookup(name intern.StringKey) (ir.Value, bool) {
	value, ok := s[name]
	return value, ok
}

// applyFragmentArguments specializes every spread for its argument binding. Afterwards no
// spread carries arguments and no fragment declares local arguments. A spread binding other
// values than the fragment defaults points to a generated copy of the fragment named
// <Fragment>_<hash of the binding>.
func applyFragmentArguments(c *Context, definition ir.Definition) ir.Definition {
	a := &argumentApplier{c: c, generated: intern.NewSet()}

	switch d := definition.(type) {
	case *ir.Operation:
		selections := a.selections(d, d.Selections, nil)
		if slices.Equal(selections, d.Selections) {
			return d
		}
		return d.WithSelections(selections)
	case *ir.Fragment:
		bindings := defaultScope(d)
		selections := a.selections(d, d.Selections, bindings)
		directives, changed := substituteDirectives(d.Directives, bindings)
		if len(d.VariableDefinitions) == 0 && !changed && slices.Equal(selections, d.Selections) {
			return d
		}
		out := *d
		out.VariableDefinitions = nil
		out.Directives = directives
		out.Selections = selections
		out.UsedGlobalVariables = globals(&out, d.UsedGlobalVariables, d)
		return &out
	}
	return definition
}

type argumentApplier struct {
	c         *Context
	generated intern.Set
}

func (a *argumentApplier) selections(definition ir.Definition, selections []ir.Selection, bindings scope) []ir.Selection {
	transformer := irvisitor.Transformer{
		Selection: func(_ *irvisitor.Cursor, selection ir.Selection) []ir.Selection {
			switch s := selection.(type) {
			case *ir.ScalarField:
				arguments, argumentsChanged := substituteArguments(s.Arguments, bindings)
				directives, directivesChanged := substituteDirectives(s.Directives, bindings)
				if !argumentsChanged && !directivesChanged {
					break
				}
				out := *s
				out.Arguments, out.Directives = arguments, directives
				return []ir.Selection{&out}
			case *ir.LinkedField:
				arguments, argumentsChanged := substituteArguments(s.Arguments, bindings)
				directives, directivesChanged := substituteDirectives(s.Directives, bindings)
				if !argumentsChanged && !directivesChanged {
					break
				}
				out := *s
				out.Arguments, out.Directives = arguments, directives
				return []ir.Selection{&out}
			case *ir.InlineFragment:
				if directives, changed := substituteDirectives(s.Directives, bindings); changed {
					return []ir.Selection{ir.WithDirectives(s, directives)}
				}
			case *ir.Condition:
				if value := substitute(s.Value, bindings); value != s.Value {
					out := *s
					out.Value = value
					return []ir.Selection{&out}
				}
			case *ir.FragmentSpread:
				return []ir.Selection{a.spread(s, bindings)}
			}
			return irvisitor.Keep(selection)
		},
	}
	return transformer.TransformSelections(definition, definition.ParentType(), nil, selections)
}

func (a *argumentApplier) spread(spread *ir.FragmentSpread, bindings scope) ir.Selection {
	fragment, ok := a.c.Fragment(spread.Fragment)
	if !ok {
		return spread
	}
	directives, directivesChanged := substituteDirectives(spread.Directives, bindings)
	if len(fragment.VariableDefinitions) == 0 {
		if len(spread.Arguments) == 0 && !directivesChanged {
			return spread
		}
		return &ir.FragmentSpread{Fragment: spread.Fragment, Directives: directives, Location: spread.Location}
	}

	arguments, _ := substituteArguments(spread.Arguments, bindings)
	binding := make(scope, len(fragment.VariableDefinitions))
	bound := make([]ir.BoundArgument, 0, len(fragment.VariableDefinitions))
	isDefault, missing := true, false
	for _, variable := range fragment.VariableDefinitions {
		value := defaultValue(variable)
		if argument, ok := ir.FindArgument(arguments, variable.Name); ok {
			value = argument.Value
		} else if variable.DefaultValue == nil && variable.Type.NonNull {
			a.c.AddDiagnostic(operationreport.ErrFragmentArgumentMissing(variable.Name.String(), fragment.Name.String(), spread.Location))
			missing = true
			continue
		}
		if !ir.ValuesEqual(value, defaultValue(variable)) {
			isDefault = false
		}
		binding[variable.Name] = value
		bound = append(bound, ir.BoundArgument{Name: variable.Name.String(), Value: value.String()})
	}
	if missing {
		return spread
	}

	target := fragment.Name
	if !isDefault {
		slices.SortFunc(bound, func(x, y ir.BoundArgument) int {
			return strings.Compare(x.Name, y.Name)
		})
		target = SpecializedFragmentName(fragment.Name, bound)
		if !a.generated.Has(target) {
			a.generated.Add(target)
			a.c.Generate(a.specialize(fragment, target, binding, bound))
		}
	}
	return &ir.FragmentSpread{Fragment: target, Directives: directives, Location: spread.Location}
}

func (a *argumentApplier) specialize(fragment *ir.Fragment, name intern.StringKey, binding scope, bound []ir.BoundArgument) *ir.Fragment {
	directives, _ := substituteDirectives(fragment.Directives, binding)
	directives, _ = addMetadata(a.c, directives, ir.FragmentArgumentsMetadata{Source: fragment.Name.String(), Arguments: bound}, fragment.Location)
	out := &ir.Fragment{
		Name:          name,
		TypeCondition: fragment.TypeCondition,
		Directives:    directives,
		Selections:    a.selections(fragment, fragment.Selections, binding),
		Location:      fragment.Location,
	}
	out.UsedGlobalVariables = globals(out, fragment.UsedGlobalVariables, fragment)
	return out
}

// SpecializedFragmentName names the copy of fragment specialized for a binding sorted by name.
func SpecializedFragmentName(fragment intern.StringKey, bound []ir.BoundArgument) intern.StringKey {
	parts := make([]string, 0, 1+2*len(bound))
	parts = append(parts, fragment.String())
	for _, argument := range bound {
		parts = append(parts, argument.Name, argument.Value)
	}
	return intern.Intern(fragment.String() + "_" + pool.Hex(pool.HashStrings(parts...)))
}

func defaultScope(fragment *ir.Fragment) scope {
	if len(fragment.VariableDefinitions) == 0 {
		return nil
	}
	out := make(scope, len(fragment.VariableDefinitions))
	for _, variable := range fragment.VariableDefinitions {
		out[variable.Name] = defaultValue(variable)
	}
	return out
}

func defaultValue(variable ir.VariableDefinition) ir.Value {
	if variable.DefaultValue != nil {
		return variable.DefaultValue
	}
	return ir.Null()
}

// globals merges the variables used by the specialized body with those the source fragment
// recorded, leaving out its local arguments.
func globals(out *ir.Fragment, previous []ir.VariableDefinition, source *ir.Fragment) []ir.VariableDefinition {
	used := usedVariables(out, out.Location)
	seen := intern.NewSet()
	for _, variable := range used {
		seen.Add(variable.Name)
	}
	for _, variable := range previous {
		if seen.Has(variable.Name) {
			continue
		}
		if _, local := source.LocalVariable(variable.Name); local {
			continue
		}
		used = append(used, variable)
	}
	slices.SortFunc(used, func(x, y ir.VariableDefinition) int {
		return x.Name.Compare(y.Name)
	})
	return used
}

func substitute(value ir.Value, bindings scope) ir.Value {
	if len(bindings) == 0 || value == nil {
		return value
	}
	return ir.SubstituteVariables(value, bindings.lookup)
}

func substituteArguments(arguments []ir.Argument, bindings scope) ([]ir.Argument, bool) {
	if len(bindings) == 0 {
		return arguments, false
	}
	var out []ir.Argument
	for i := range arguments {
		value := substitute(arguments[i].Value, bindings)
		if value == arguments[i].Value {
			continue
		}
		if out == nil {
			out = slices.Clone(arguments)
		}
		out[i].Value = value
	}
	if out == nil {
		return arguments, false
	}
	return out, true
}

func substituteDirectives(directives []ir.Directive, bindings scope) ([]ir.Directive, bool) {
	if len(bindings) == 0 {
		return directives, false
	}
	var out []ir.Directive
	for i := range directives {
		arguments, changed := substituteArguments(directives[i].Arguments, bindings)
		if !changed {
			continue
		}
		if out == nil {
			out = slices.Clone(directives)
		}
		out[i].Arguments = arguments
	}
	if out == nil {
		return directives, false
	}
	return out, true
}
