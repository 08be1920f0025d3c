// Package ir is the schema resolved representation of GraphQL operations and fragments.
//
// IR values are immutable once they are part of a Program. Transforms never modify a node in place,
// they build new nodes and share untouched subtrees.
package ir

import (
	"github.com/wundergraph/graphql-compiler/pkg/intern"
	"github.com/wundergraph/graphql-compiler/pkg/position"
	"github.com/wundergraph/graphql-compiler/pkg/schema"
)

type OperationKind uint8

const (
	OperationKindQuery OperationKind = iota
	OperationKindMutation
	OperationKindSubscription
)

func (k OperationKind) String() string {
	switch k {
	case OperationKindMutation:
		return "mutation"
	case OperationKindSubscription:
		return "subscription"
	default:
		return "query"
	}
}

func ParseOperationKind(s string) (OperationKind, bool) {
	switch s {
	case "query", "":
		return OperationKindQuery, true
	case "mutation":
		return OperationKindMutation, true
	case "subscription":
		return OperationKindSubscription, true
	}
	return 0, false
}

type DefinitionKind uint8

const (
	DefinitionKindOperation DefinitionKind = iota
	DefinitionKindFragment
)

func (k DefinitionKind) String() string {
	if k == DefinitionKindFragment {
		return "fragment"
	}
	return "operation"
}

// Definition is either an *Operation or a *Fragment.
type Definition interface {
	DefinitionName() intern.StringKey
	DefinitionKind() DefinitionKind
	// ParentType is the root type of an operation or the type condition of a fragment.
	ParentType() intern.StringKey
	SelectionSet() []Selection
	DirectiveList() []Directive
	Variables() []VariableDefinition
	DefinitionLocation() position.Location
	// WithSelections returns a copy of the definition using selections.
	WithSelections(selections []Selection) Definition
	WithDirectives(directives []Directive) Definition
}

type VariableDefinition struct {
	Name         intern.StringKey
	Type         schema.TypeReference
	DefaultValue Value
	Directives   []Directive
	Location     position.Location
}

type Operation struct {
	Kind                OperationKind
	Name                intern.StringKey
	Type                intern.StringKey
	VariableDefinitions []VariableDefinition
	Directives          []Directive
	Selections          []Selection
	Location            position.Location
}

func (o *Operation) DefinitionName() intern.StringKey      { return o.Name }
func (o *Operation) DefinitionKind() DefinitionKind        { return DefinitionKindOperation }
func (o *Operation) ParentType() intern.StringKey          { return o.Type }
func (o *Operation) SelectionSet() []Selection             { return o.Selections }
func (o *Operation) DirectiveList() []Directive            { return o.Directives }
func (o *Operation) Variables() []VariableDefinition       { return o.VariableDefinitions }
func (o *Operation) DefinitionLocation() position.Location { return o.Location }

func (o *Operation) WithSelections(selections []Selection) Definition {
	out := *o
	out.Selections = selections
	return &out
}

func (o *Operation) WithDirectives(directives []Directive) Definition {
	out := *o
	out.Directives = directives
	return &out
}

type Fragment struct {
	Name          intern.StringKey
	TypeCondition intern.StringKey
	// VariableDefinitions are the local arguments declared with @argumentDefinitions.
	VariableDefinitions []VariableDefinition
	// UsedGlobalVariables are variables the fragment reads from the enclosing operation.
	UsedGlobalVariables []VariableDefinition
	Directives          []Directive
	Selections          []Selection
	Location            position.Location
}

func (f *Fragment) DefinitionName() intern.StringKey      { return f.Name }
func (f *Fragment) DefinitionKind() DefinitionKind        { return DefinitionKindFragment }
func (f *Fragment) ParentType() intern.StringKey          { return f.TypeCondition }
func (f *Fragment) SelectionSet() []Selection             { return f.Selections }
func (f *Fragment) DirectiveList() []Directive            { return f.Directives }
func (f *Fragment) Variables() []VariableDefinition       { return f.VariableDefinitions }
func (f *Fragment) DefinitionLocation() position.Location { return f.Location }

func (f *Fragment) WithSelections(selections []Selection) Definition {
	out := *f
	out.Selections = selections
	return &out
}

func (f *Fragment) WithDirectives(directives []Directive) Definition {
	out := *f
	out.Directives = directives
	return &out
}

func (f *Fragment) LocalVariable(name intern.StringKey) (VariableDefinition, bool) {
	for i := range f.VariableDefinitions {
		if f.VariableDefinitions[i].Name == name {
			return f.VariableDefinitions[i], true
		}
	}
	return VariableDefinition{}, false
}

type Argument struct {
	Name  intern.StringKey
	Value Value
	// Type is the input type the argument is declared with. Zero when unknown.
	Type     schema.TypeReference
	Location position.Location
}

func FindArgument(arguments []Argument, name intern.StringKey) (Argument, bool) {
	for i := range arguments {
		if arguments[i].Name == name {
			return arguments[i], true
		}
	}
	return Argument{}, false
}

// ArgumentsEqual compares argument lists by name and printed value, ignoring order and location.
func ArgumentsEqual(a, b []Argument) bool {
	if len(a) != len(b) {
		return false
	}
	for i := range a {
		other, ok := FindArgument(b, a[i].Name)
		if !ok || !ValuesEqual(a[i].Value, other.Value) {
			return false
		}
	}
	return true
}
