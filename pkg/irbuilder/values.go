package irbuilder

import (
	"github.com/vektah/gqlparser/v2/ast"

	"github.com/wundergraph/graphql-compiler/pkg/intern"
	"github.com/wundergraph/graphql-compiler/pkg/ir"
	"github.com/wundergraph/graphql-compiler/pkg/operationreport"
	"github.com/wundergraph/graphql-compiler/pkg/schema"
)

var (
	scalarInt     = intern.Intern("Int")
	scalarFloat   = intern.Intern("Float")
	scalarString  = intern.Intern("String")
	scalarBoolean = intern.Intern("Boolean")
	scalarID      = intern.Intern("ID")
)

// buildValue converts a literal and checks it against expected. A zero expected type
// accepts anything, it is used for directives taking arbitrary arguments.
func (b *definitionBuilder) buildValue(value *ast.Value, expected schema.TypeReference) ir.Value {
	if value == nil {
		return ir.Null()
	}
	if value.Kind == ast.Variable {
		return b.buildVariable(value, expected)
	}
	if !expected.IsZero() && !b.satisfies(value, expected) {
		b.report(operationreport.ErrValueDoesntSatisfyType(value.String(), expected.String(), b.location(value.Position)))
	}
	return b.convert(value, expected)
}

func (b *definitionBuilder) convert(value *ast.Value, expected schema.TypeReference) ir.Value {
	switch value.Kind {
	case ast.Variable:
		return b.buildVariable(value, expected)
	case ast.IntValue:
		return ir.Int(value.Raw)
	case ast.FloatValue:
		return ir.Float(value.Raw)
	case ast.StringValue, ast.BlockValue:
		return ir.String(value.Raw)
	case ast.BooleanValue:
		return ir.Boolean(value.Raw == "true")
	case ast.NullValue:
		return ir.Null()
	case ast.EnumValue:
		return ir.Enum(value.Raw)
	case ast.ListValue:
		item := schema.TypeReference{}
		if expected.IsList() {
			item = *expected.OfType
		}
		out := &ir.ListValue{Items: make([]ir.Value, 0, len(value.Children))}
		for _, child := range value.Children {
			out.Items = append(out.Items, b.convert(child.Value, item))
		}
		return out
	case ast.ObjectValue:
		var fields []*schema.FieldDefinition
		if t, ok := b.schema.GetType(expected.NamedType()); ok && !expected.IsZero() && !expected.IsList() {
			fields = t.Fields
		}
		out := &ir.ObjectValue{Fields: make([]ir.ObjectField, 0, len(value.Children))}
		for _, child := range value.Children {
			name := intern.Intern(child.Name)
			fieldType := schema.TypeReference{}
			for _, field := range fields {
				if field.Name == name {
					fieldType = field.Type
				}
			}
			out.Fields = append(out.Fields, ir.ObjectField{Name: name, Value: b.convert(child.Value, fieldType)})
		}
		return out
	}
	return ir.Null()
}

func (b *definitionBuilder) buildVariable(value *ast.Value, expected schema.TypeReference) ir.Value {
	name := intern.Intern(value.Raw)
	location := b.location(value.Position)
	declared, ok := b.variables[name]
	switch {
	case ok:
		if !expected.IsZero() && !declared.AsNonNull().IsSubtypeOf(expected) {
			b.report(operationreport.ErrValueDoesntSatisfyType(value.String(), expected.String(), location))
		}
		if expected.IsZero() {
			expected = declared
		}
	case b.fragment:
		// a global variable, defined by whichever operation includes the fragment
		if existing, seen := b.globals[name]; !seen || (expected.NonNull && !existing.NonNull) {
			if !expected.IsZero() {
				b.globals[name] = expected
			} else if !seen {
				b.globals[name] = schema.Named("String")
			}
		}
	default:
		b.report(operationreport.ErrVariableNotDefinedOnOperation(value.Raw, b.name.String(), location))
	}
	return &ir.Variable{Name: name, Type: expected}
}

// satisfies checks a literal against a type. Variables nested in lists and objects
// are checked when converted.
func (b *definitionBuilder) satisfies(value *ast.Value, expected schema.TypeReference) bool {
	if value.Kind == ast.Variable {
		return true
	}
	if value.Kind == ast.NullValue {
		return !expected.NonNull
	}
	if expected.IsList() {
		if value.Kind != ast.ListValue {
			return b.satisfies(value, *expected.OfType)
		}
		for _, child := range value.Children {
			if !b.satisfies(child.Value, *expected.OfType) {
				return false
			}
		}
		return true
	}

	t, ok := b.schema.GetType(expected.Name)
	if !ok {
		return false
	}
	switch t.Kind {
	case schema.KindEnum:
		return value.Kind == ast.EnumValue && t.HasEnumValue(intern.Intern(value.Raw))
	case schema.KindInputObject:
		if value.Kind != ast.ObjectValue {
			return false
		}
		for _, child := range value.Children {
			var field *schema.FieldDefinition
			for _, candidate := range t.Fields {
				if candidate.Name.String() == child.Name {
					field = candidate
				}
			}
			if field == nil || !b.satisfies(child.Value, field.Type) {
				return false
			}
		}
		return true
	case schema.KindScalar:
		switch t.Name {
		case scalarInt:
			return value.Kind == ast.IntValue
		case scalarFloat:
			return value.Kind == ast.IntValue || value.Kind == ast.FloatValue
		case scalarString:
			return value.Kind == ast.StringValue || value.Kind == ast.BlockValue
		case scalarBoolean:
			return value.Kind == ast.BooleanValue
		case scalarID:
			return value.Kind == ast.StringValue || value.Kind == ast.IntValue
		}
		// custom scalars accept any literal
		return true
	}
	return false
}
