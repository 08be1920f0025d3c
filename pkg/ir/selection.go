package ir

import (
	"github.com/wundergraph/graphql-compiler/pkg/intern"
	"github.com/wundergraph/graphql-compiler/pkg/position"
	"github.com/wundergraph/graphql-compiler/pkg/schema"
)

// Selection is one of *ScalarField, *LinkedField, *FragmentSpread, *InlineFragment or *Condition.
type Selection interface {
	SelectionLocation() position.Location
	SelectionDirectives() []Directive
	isSelection()
}

type ScalarField struct {
	Alias      intern.StringKey
	Definition schema.FieldRef
	Arguments  []Argument
	Directives []Directive
	Location   position.Location
}

func (f *ScalarField) SelectionLocation() position.Location { return f.Location }
func (f *ScalarField) SelectionDirectives() []Directive     { return f.Directives }
func (*ScalarField) isSelection()                           {}

func (f *ScalarField) ResponseKey() intern.StringKey {
	return responseKey(f.Alias, f.Definition.Name)
}

type LinkedField struct {
	Alias      intern.StringKey
	Definition schema.FieldRef
	Arguments  []Argument
	Directives []Directive
	Selections []Selection
	Location   position.Location
}

func (f *LinkedField) SelectionLocation() position.Location { return f.Location }
func (f *LinkedField) SelectionDirectives() []Directive     { return f.Directives }
func (*LinkedField) isSelection()                           {}

func (f *LinkedField) ResponseKey() intern.StringKey {
	return responseKey(f.Alias, f.Definition.Name)
}

func (f *LinkedField) WithSelections(selections []Selection) *LinkedField {
	out := *f
	out.Selections = selections
	return &out
}

type FragmentSpread struct {
	Fragment   intern.StringKey
	Arguments  []Argument
	Directives []Directive
	Location   position.Location
}

func (s *FragmentSpread) SelectionLocation() position.Location { return s.Location }
func (s *FragmentSpread) SelectionDirectives() []Directive     { return s.Directives }
func (*FragmentSpread) isSelection()                           {}

type InlineFragment struct {
	TypeCondition intern.StringKey
	Directives    []Directive
	Selections    []Selection
	Location      position.Location
}

func (f *InlineFragment) SelectionLocation() position.Location { return f.Location }
func (f *InlineFragment) SelectionDirectives() []Directive     { return f.Directives }
func (*InlineFragment) isSelection()                           {}

func (f *InlineFragment) WithSelections(selections []Selection) *InlineFragment {
	out := *f
	out.Selections = selections
	return &out
}

// Condition is the lowered form of @include (Passing true) and @skip (Passing false).
type Condition struct {
	Passing    bool
	Value      Value
	Selections []Selection
	Location   position.Location
}

func (c *Condition) SelectionLocation() position.Location { return c.Location }
func (c *Condition) SelectionDirectives() []Directive     { return nil }
func (*Condition) isSelection()                           {}

func (c *Condition) WithSelections(selections []Selection) *Condition {
	out := *c
	out.Selections = selections
	return &out
}

// ResponseKey returns the alias or the field name of a field selection.
func ResponseKey(selection Selection) (intern.StringKey, bool) {
	switch s := selection.(type) {
	case *ScalarField:
		return s.ResponseKey(), true
	case *LinkedField:
		return s.ResponseKey(), true
	}
	return intern.Empty, false
}

func responseKey(alias, name intern.StringKey) intern.StringKey {
	if !alias.IsEmpty() {
		return alias
	}
	return name
}

// Children returns the nested selections of a selection, nil for leaves and spreads.
func Children(selection Selection) []Selection {
	switch s := selection.(type) {
	case *LinkedField:
		return s.Selections
	case *InlineFragment:
		return s.Selections
	case *Condition:
		return s.Selections
	}
	return nil
}

// WithChildren returns a copy of selection with its nested selections replaced.
// Leaves and spreads are returned unchanged.
func WithChildren(selection Selection, selections []Selection) Selection {
	switch s := selection.(type) {
	case *LinkedField:
		return s.WithSelections(selections)
	case *InlineFragment:
		return s.WithSelections(selections)
	case *Condition:
		return s.WithSelections(selections)
	}
	return selection
}

// WithDirectives returns a copy of selection with directives replaced. Conditions carry no directives.
func WithDirectives(selection Selection, directives []Directive) Selection {
	switch s := selection.(type) {
	case *ScalarField:
		out := *s
		out.Directives = directives
		return &out
	case *LinkedField:
		out := *s
		out.Directives = directives
		return &out
	case *FragmentSpread:
		out := *s
		out.Directives = directives
		return &out
	case *InlineFragment:
		out := *s
		out.Directives = directives
		return &out
	}
	return selection
}

// Spread is a fragment spread found inside a definition.
type Spread struct {
	Fragment intern.StringKey
	Location position.Location
}

// Spreads lists every fragment spread of a definition in document order.
func Spreads(definition Definition) []Spread {
	var out []Spread
	var walk func(selections []Selection)
	walk = func(selections []Selection) {
		for _, selection := range selections {
			if spread, ok := selection.(*FragmentSpread); ok {
				out = append(out, Spread{Fragment: spread.Fragment, Location: spread.Location})
				continue
			}
			walk(Children(selection))
		}
	}
	walk(definition.SelectionSet())
	return out
}

// ReferencedTypes returns every schema type a definition depends on, in lexical order.
func ReferencedTypes(definition Definition) []intern.StringKey {
	types := intern.NewSet(definition.ParentType())
	for _, v := range definition.Variables() {
		types.Add(v.Type.NamedType())
	}
	if fragment, ok := definition.(*Fragment); ok {
		for _, v := range fragment.UsedGlobalVariables {
			types.Add(v.Type.NamedType())
		}
	}
	addArguments := func(arguments []Argument) {
		for i := range arguments {
			types.Add(arguments[i].Type.NamedType())
		}
	}
	addDirectives := func(directives []Directive) {
		for i := range directives {
			addArguments(directives[i].Arguments)
		}
	}
	addDirectives(definition.DirectiveList())
	var walk func(selections []Selection)
	walk = func(selections []Selection) {
		for _, selection := range selections {
			addDirectives(selection.SelectionDirectives())
			switch s := selection.(type) {
			case *ScalarField:
				types.Add(s.Definition.Parent, s.Definition.Type.NamedType())
				addArguments(s.Arguments)
			case *LinkedField:
				types.Add(s.Definition.Parent, s.Definition.Type.NamedType())
				addArguments(s.Arguments)
			case *FragmentSpread:
				addArguments(s.Arguments)
			case *InlineFragment:
				types.Add(s.TypeCondition)
			}
			walk(Children(selection))
		}
	}
	walk(definition.SelectionSet())
	types.Remove(intern.Empty)
	return types.Sorted()
}
