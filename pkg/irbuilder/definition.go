package irbuilder

import (
	"slices"

	"github.com/vektah/gqlparser/v2/ast"

	"github.com/wundergraph/graphql-compiler/pkg/intern"
	"github.com/wundergraph/graphql-compiler/pkg/ir"
	"github.com/wundergraph/graphql-compiler/pkg/operationreport"
	"github.com/wundergraph/graphql-compiler/pkg/position"
	"github.com/wundergraph/graphql-compiler/pkg/schema"
)

var (
	ifArgument           = intern.Intern("if")
	typeField            = intern.Intern("type")
	defaultValueField    = intern.Intern("defaultValue")
	booleanNonNull       = schema.Named("Boolean").AsNonNull()
	argumentDefinitionShape = "{type: String!, defaultValue: Any}"
)

// definitionBuilder resolves one definition against the schema. Problems are local to the
// definition: any diagnostic means the definition is not built.
type definitionBuilder struct {
	schema      schema.Schema
	index       *Index
	doc         *ParsedDocument
	name        intern.StringKey
	diagnostics operationreport.Diagnostics

	// variables holds operation variables or fragment local arguments.
	variables map[intern.StringKey]schema.TypeReference
	fragment  bool
	globals   map[intern.StringKey]schema.TypeReference
}

type condition struct {
	passing  bool
	value    ir.Value
	location position.Location
}

func newDefinitionBuilder(s schema.Schema, index *Index, entry *indexEntry, name intern.StringKey) *definitionBuilder {
	return &definitionBuilder{
		schema:    s,
		index:     index,
		doc:       entry.doc,
		name:      name,
		variables: make(map[intern.StringKey]schema.TypeReference),
		fragment:  entry.kind == ir.DefinitionKindFragment,
		globals:   make(map[intern.StringKey]schema.TypeReference),
	}
}

func (b *definitionBuilder) report(diagnostic operationreport.Diagnostic) {
	b.diagnostics = append(b.diagnostics, diagnostic.WithDefinition(b.name))
}

func (b *definitionBuilder) location(p *ast.Position) position.Location {
	return b.doc.Location(p)
}

func (b *definitionBuilder) build(entry *indexEntry) ir.Definition {
	var out ir.Definition
	if entry.kind == ir.DefinitionKindOperation {
		out = b.buildOperation(entry.operation)
	} else {
		out = b.buildFragment(entry.fragment)
	}
	if len(b.diagnostics) != 0 {
		return nil
	}
	return out
}

func (b *definitionBuilder) buildOperation(operation *ast.OperationDefinition) ir.Definition {
	location := b.location(operation.Position)
	kind, _ := ir.ParseOperationKind(string(operation.Operation))
	root, ok := b.schema.RootType(kind.String())
	if !ok {
		b.report(operationreport.ErrTypeUndefined(kind.String()+" root type", location))
		return nil
	}

	variables := b.buildVariableDefinitions(operation.VariableDefinitions)
	directiveLocation := schema.LocationQuery
	switch kind {
	case ir.OperationKindMutation:
		directiveLocation = schema.LocationMutation
	case ir.OperationKindSubscription:
		directiveLocation = schema.LocationSubscription
	}
	directives, _ := b.buildDirectives(operation.Directives, directiveLocation)
	selections := b.buildSelections(operation.SelectionSet, root)

	return &ir.Operation{
		Kind:                kind,
		Name:                b.name,
		Type:                root,
		VariableDefinitions: variables,
		Directives:          directives,
		Selections:          selections,
		Location:            location,
	}
}

func (b *definitionBuilder) buildVariableDefinitions(definitions ast.VariableDefinitionList) []ir.VariableDefinition {
	var out []ir.VariableDefinition
	for _, definition := range definitions {
		name := intern.Intern(definition.Variable)
		location := b.location(definition.Position)
		if _, seen := b.variables[name]; seen {
			b.report(operationreport.ErrDuplicateVariable(definition.Variable, location))
			continue
		}
		typeRef := schema.FromAST(definition.Type)
		if !b.checkInputType(definition.Variable, typeRef, location) {
			continue
		}
		b.variables[name] = typeRef
		var defaultValue ir.Value
		if definition.DefaultValue != nil {
			defaultValue = b.buildValue(definition.DefaultValue, typeRef)
		}
		directives, _ := b.buildDirectives(definition.Directives, schema.LocationVariableDefinition)
		out = append(out, ir.VariableDefinition{
			Name:         name,
			Type:         typeRef,
			DefaultValue: defaultValue,
			Directives:   directives,
			Location:     location,
		})
	}
	return out
}

func (b *definitionBuilder) checkInputType(variable string, typeRef schema.TypeReference, location position.Location) bool {
	named := typeRef.NamedType()
	t, ok := b.schema.GetType(named)
	if !ok {
		b.report(operationreport.ErrTypeUndefined(named.String(), location))
		return false
	}
	if !t.IsInput() {
		b.report(operationreport.ErrVariableTypeNotInput(variable, typeRef.String(), location))
		return false
	}
	return true
}

func (b *definitionBuilder) buildFragment(fragment *ast.FragmentDefinition) ir.Definition {
	location := b.location(fragment.Position)
	typeCondition := intern.Intern(fragment.TypeCondition)
	t, ok := b.schema.GetType(typeCondition)
	if !ok {
		b.report(operationreport.ErrTypeUndefined(fragment.TypeCondition, location))
		return nil
	}
	if !t.IsComposite() {
		b.report(operationreport.ErrTypeConditionNotComposite(fragment.TypeCondition, location))
		return nil
	}

	var (
		localVariables []ir.VariableDefinition
		rest           ast.DirectiveList
	)
	for _, directive := range fragment.Directives {
		if intern.Intern(directive.Name) == schema.DirectiveArgumentDefinitions {
			localVariables = append(localVariables, b.buildArgumentDefinitions(directive)...)
			continue
		}
		rest = append(rest, directive)
	}
	directives, _ := b.buildDirectives(rest, schema.LocationFragmentDefinition)
	selections := b.buildSelections(fragment.SelectionSet, typeCondition)

	globals := make([]ir.VariableDefinition, 0, len(b.globals))
	for name, typeRef := range b.globals {
		globals = append(globals, ir.VariableDefinition{Name: name, Type: typeRef, Location: location})
	}
	slices.SortFunc(globals, func(a, b ir.VariableDefinition) int {
		return a.Name.Compare(b.Name)
	})

	return &ir.Fragment{
		Name:                b.name,
		TypeCondition:       typeCondition,
		VariableDefinitions: localVariables,
		UsedGlobalVariables: globals,
		Directives:          directives,
		Selections:          selections,
		Location:            location,
	}
}

// buildArgumentDefinitions reads @argumentDefinitions(name: {type: "Int", defaultValue: 1}).
func (b *definitionBuilder) buildArgumentDefinitions(directive *ast.Directive) []ir.VariableDefinition {
	var out []ir.VariableDefinition
	for _, argument := range directive.Arguments {
		location := b.location(argument.Position)
		name := intern.Intern(argument.Name)
		typeRef, defaultValue, ok := argumentDefinition(argument.Value)
		if !ok {
			b.report(operationreport.ErrValueDoesntSatisfyType(argument.Value.String(), argumentDefinitionShape, location))
			continue
		}
		if _, seen := b.variables[name]; seen {
			b.report(operationreport.ErrDuplicateVariable(argument.Name, location))
			continue
		}
		if !b.checkInputType(argument.Name, typeRef, location) {
			continue
		}
		b.variables[name] = typeRef
		var value ir.Value
		if defaultValue != nil {
			value = b.buildValue(defaultValue, typeRef)
		}
		out = append(out, ir.VariableDefinition{Name: name, Type: typeRef, DefaultValue: value, Location: location})
	}
	return out
}

func argumentDefinition(value *ast.Value) (schema.TypeReference, *ast.Value, bool) {
	if value == nil || value.Kind != ast.ObjectValue {
		return schema.TypeReference{}, nil, false
	}
	var (
		typeRef      schema.TypeReference
		defaultValue *ast.Value
		hasType      bool
	)
	for _, child := range value.Children {
		switch intern.Intern(child.Name) {
		case typeField:
			if child.Value.Kind != ast.StringValue {
				return schema.TypeReference{}, nil, false
			}
			parsed, err := schema.ParseTypeReference(child.Value.Raw)
			if err != nil {
				return schema.TypeReference{}, nil, false
			}
			typeRef, hasType = parsed, true
		case defaultValueField:
			defaultValue = child.Value
		default:
			return schema.TypeReference{}, nil, false
		}
	}
	return typeRef, defaultValue, hasType
}

// fragmentArgumentTypes reads the declared argument types of a fragment without reporting.
func fragmentArgumentTypes(fragment *ast.FragmentDefinition) map[intern.StringKey]schema.TypeReference {
	out := make(map[intern.StringKey]schema.TypeReference)
	for _, directive := range fragment.Directives {
		if intern.Intern(directive.Name) != schema.DirectiveArgumentDefinitions {
			continue
		}
		for _, argument := range directive.Arguments {
			if typeRef, _, ok := argumentDefinition(argument.Value); ok {
				out[intern.Intern(argument.Name)] = typeRef
			}
		}
	}
	return out
}

func (b *definitionBuilder) buildSelections(set ast.SelectionSet, parent intern.StringKey) []ir.Selection {
	out := make([]ir.Selection, 0, len(set))
	for _, selection := range set {
		var (
			built      ir.Selection
			conditions []condition
		)
		switch s := selection.(type) {
		case *ast.Field:
			built, conditions = b.buildField(s, parent)
		case *ast.FragmentSpread:
			built, conditions = b.buildFragmentSpread(s, parent)
		case *ast.InlineFragment:
			built, conditions = b.buildInlineFragment(s, parent)
		}
		if built == nil {
			continue
		}
		for i := len(conditions) - 1; i >= 0; i-- {
			built = &ir.Condition{
				Passing:    conditions[i].passing,
				Value:      conditions[i].value,
				Selections: []ir.Selection{built},
				Location:   conditions[i].location,
			}
		}
		out = append(out, built)
	}
	return out
}

func (b *definitionBuilder) buildField(field *ast.Field, parent intern.StringKey) (ir.Selection, []condition) {
	location := b.location(field.Position)
	name := intern.Intern(field.Name)
	definition, ok := b.schema.GetField(parent, name)
	if !ok {
		b.report(operationreport.ErrFieldUndefinedOnType(field.Name, parent.String(), location))
		return nil, nil
	}

	alias := intern.Intern(field.Alias)
	if alias == name {
		alias = intern.Empty
	}
	arguments := b.buildArguments(field.Arguments, definition.Arguments, parent.String()+"."+field.Name)
	directives, conditions := b.buildDirectives(field.Directives, schema.LocationField)

	named := definition.Type.NamedType()
	t, ok := b.schema.GetType(named)
	if !ok {
		b.report(operationreport.ErrTypeUndefined(named.String(), location))
		return nil, nil
	}
	if !t.IsComposite() {
		if len(field.SelectionSet) != 0 {
			b.report(operationreport.ErrFieldSelectionOnLeaf(field.Name, definition.Type.String(), location))
			return nil, nil
		}
		return &ir.ScalarField{
			Alias:      alias,
			Definition: definition.Ref(),
			Arguments:  arguments,
			Directives: directives,
			Location:   location,
		}, conditions
	}
	if len(field.SelectionSet) == 0 {
		b.report(operationreport.ErrMissingFieldSelectionOnComposite(field.Name, definition.Type.String(), location))
		return nil, nil
	}
	return &ir.LinkedField{
		Alias:      alias,
		Definition: definition.Ref(),
		Arguments:  arguments,
		Directives: directives,
		Selections: b.buildSelections(field.SelectionSet, named),
		Location:   location,
	}, conditions
}

func (b *definitionBuilder) buildFragmentSpread(spread *ast.FragmentSpread, parent intern.StringKey) (ir.Selection, []condition) {
	location := b.location(spread.Position)
	name := intern.Intern(spread.Name)

	var argumentTypes map[intern.StringKey]schema.TypeReference
	entry, ok := b.index.fragment(name)
	switch {
	case ok:
		typeCondition := intern.Intern(entry.fragment.TypeCondition)
		if _, known := b.schema.GetType(typeCondition); known && !schema.Overlap(b.schema, typeCondition, parent) {
			b.report(operationreport.ErrFragmentSpreadTypeMismatch(spread.Name, entry.fragment.TypeCondition, parent.String(), location))
			return nil, nil
		}
		argumentTypes = fragmentArgumentTypes(entry.fragment)
	case b.index.IsDuplicate(name):
		// reported on the duplicates, the spread is excluded during assembly
	default:
		b.report(operationreport.ErrFragmentUndefined(spread.Name, location))
		return nil, nil
	}

	var (
		arguments []ir.Argument
		rest      ast.DirectiveList
	)
	for _, directive := range spread.Directives {
		if intern.Intern(directive.Name) != schema.DirectiveArguments {
			rest = append(rest, directive)
			continue
		}
		for _, argument := range directive.Arguments {
			argumentName := intern.Intern(argument.Name)
			argumentLocation := b.location(argument.Position)
			typeRef, known := argumentTypes[argumentName]
			if !known && argumentTypes != nil {
				b.report(operationreport.ErrFragmentArgumentUndefined(argument.Name, spread.Name, argumentLocation))
				continue
			}
			arguments = append(arguments, ir.Argument{
				Name:     argumentName,
				Value:    b.buildValue(argument.Value, typeRef),
				Type:     typeRef,
				Location: argumentLocation,
			})
		}
	}
	directives, conditions := b.buildDirectives(rest, schema.LocationFragmentSpread)

	return &ir.FragmentSpread{
		Fragment:   name,
		Arguments:  arguments,
		Directives: directives,
		Location:   location,
	}, conditions
}

func (b *definitionBuilder) buildInlineFragment(fragment *ast.InlineFragment, parent intern.StringKey) (ir.Selection, []condition) {
	location := b.location(fragment.Position)
	typeCondition := intern.Empty
	childParent := parent
	if fragment.TypeCondition != "" {
		typeCondition = intern.Intern(fragment.TypeCondition)
		t, ok := b.schema.GetType(typeCondition)
		if !ok {
			b.report(operationreport.ErrTypeUndefined(fragment.TypeCondition, location))
			return nil, nil
		}
		if !t.IsComposite() {
			b.report(operationreport.ErrTypeConditionNotComposite(fragment.TypeCondition, location))
			return nil, nil
		}
		if !schema.Overlap(b.schema, typeCondition, parent) {
			b.report(operationreport.ErrFragmentSpreadTypeMismatch("inline fragment", fragment.TypeCondition, parent.String(), location))
			return nil, nil
		}
		childParent = typeCondition
	}
	directives, conditions := b.buildDirectives(fragment.Directives, schema.LocationInlineFragment)
	return &ir.InlineFragment{
		TypeCondition: typeCondition,
		Directives:    directives,
		Selections:    b.buildSelections(fragment.SelectionSet, childParent),
		Location:      location,
	}, conditions
}

func (b *definitionBuilder) buildArguments(arguments ast.ArgumentList, definitions []schema.ArgumentDefinition, owner string) []ir.Argument {
	if len(arguments) == 0 {
		return nil
	}
	out := make([]ir.Argument, 0, len(arguments))
	for _, argument := range arguments {
		name := intern.Intern(argument.Name)
		location := b.location(argument.Position)
		var typeRef schema.TypeReference
		if definitions != nil || owner != "" {
			definition, ok := findArgumentDefinition(definitions, name)
			if !ok {
				b.report(operationreport.ErrArgumentUndefined(argument.Name, owner, location))
				continue
			}
			typeRef = definition.Type
		}
		out = append(out, ir.Argument{
			Name:     name,
			Value:    b.buildValue(argument.Value, typeRef),
			Type:     typeRef,
			Location: location,
		})
	}
	return out
}

func findArgumentDefinition(definitions []schema.ArgumentDefinition, name intern.StringKey) (schema.ArgumentDefinition, bool) {
	for i := range definitions {
		if definitions[i].Name == name {
			return definitions[i], true
		}
	}
	return schema.ArgumentDefinition{}, false
}

func (b *definitionBuilder) buildDirectives(directives ast.DirectiveList, location schema.DirectiveLocation) ([]ir.Directive, []condition) {
	var (
		out        []ir.Directive
		conditions []condition
	)
	for _, directive := range directives {
		name := intern.Intern(directive.Name)
		directiveLocation := b.location(directive.Position)
		definition, ok := b.schema.GetDirective(name)
		if !ok {
			b.report(operationreport.ErrDirectiveUndefined(directive.Name, directiveLocation))
			continue
		}
		if !definition.AllowedOn(location) {
			b.report(operationreport.ErrDirectiveMisplaced(directive.Name, string(location), directiveLocation))
			continue
		}
		if name == schema.DirectiveSkip || name == schema.DirectiveInclude {
			argument := directive.Arguments.ForName(ifArgument.String())
			if argument == nil {
				b.report(operationreport.ErrRequiredArgumentMissing(ifArgument.String(), "@"+directive.Name, directiveLocation))
				continue
			}
			conditions = append(conditions, condition{
				passing:  name == schema.DirectiveInclude,
				value:    b.buildValue(argument.Value, booleanNonNull),
				location: directiveLocation,
			})
			continue
		}
		var arguments []ir.Argument
		if definition.AnyArguments {
			arguments = b.buildArguments(directive.Arguments, nil, "")
		} else {
			arguments = b.buildArguments(directive.Arguments, definition.Arguments, "@"+directive.Name)
		}
		out = append(out, ir.Directive{Name: name, Arguments: arguments, Location: directiveLocation})
	}
	return out, conditions
}
