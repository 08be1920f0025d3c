package ir

import (
	"strings"

	"github.com/wundergraph/graphql-compiler/internal/pkg/quotes"
	"github.com/wundergraph/graphql-compiler/pkg/intern"
	"github.com/wundergraph/graphql-compiler/pkg/lexing/literal"
	"github.com/wundergraph/graphql-compiler/pkg/schema"
)

// Value is one of *Variable, *Constant, *ListValue or *ObjectValue.
// String renders the value in GraphQL syntax and doubles as its canonical form.
type Value interface {
	String() string
	isValue()
}

type ConstantKind uint8

const (
	ConstantNull ConstantKind = iota
	ConstantInt
	ConstantFloat
	ConstantString
	ConstantBoolean
	ConstantEnum
)

// Constant is a scalar, enum or null literal. Raw holds the literal text, unquoted for strings.
type Constant struct {
	Kind ConstantKind
	Raw  string
}

func (c *Constant) String() string {
	switch c.Kind {
	case ConstantNull:
		return literal.NULL
	case ConstantString:
		return quotes.GraphQLString(c.Raw)
	default:
		return c.Raw
	}
}

func (*Constant) isValue() {}

func Null() *Constant               { return &Constant{Kind: ConstantNull} }
func String(s string) *Constant     { return &Constant{Kind: ConstantString, Raw: s} }
func Enum(s string) *Constant       { return &Constant{Kind: ConstantEnum, Raw: s} }
func Int(raw string) *Constant      { return &Constant{Kind: ConstantInt, Raw: raw} }
func Float(raw string) *Constant    { return &Constant{Kind: ConstantFloat, Raw: raw} }
func Boolean(value bool) *Constant {
	if value {
		return &Constant{Kind: ConstantBoolean, Raw: literal.TRUE}
	}
	return &Constant{Kind: ConstantBoolean, Raw: literal.FALSE}
}

type Variable struct {
	Name intern.StringKey
	// Type is the type expected where the variable is used.
	Type schema.TypeReference
}

func (v *Variable) String() string {
	return literal.DOLLAR + v.Name.String()
}

func (*Variable) isValue() {}

type ListValue struct {
	Items []Value
}

func (l *ListValue) String() string {
	b := strings.Builder{}
	b.WriteString(literal.SQUAREBRACKETOPEN)
	for i := range l.Items {
		if i != 0 {
			b.WriteString(literal.COMMA)
			b.WriteString(literal.SPACE)
		}
		b.WriteString(l.Items[i].String())
	}
	b.WriteString(literal.SQUAREBRACKETCLOSE)
	return b.String()
}

func (*ListValue) isValue() {}

type ObjectField struct {
	Name  intern.StringKey
	Value Value
}

type ObjectValue struct {
	Fields []ObjectField
}

func (o *ObjectValue) String() string {
	b := strings.Builder{}
	b.WriteString(literal.CURLYBRACKETOPEN)
	for i := range o.Fields {
		if i != 0 {
			b.WriteString(literal.COMMA)
			b.WriteString(literal.SPACE)
		}
		b.WriteString(o.Fields[i].Name.String())
		b.WriteString(literal.COLON)
		b.WriteString(literal.SPACE)
		b.WriteString(o.Fields[i].Value.String())
	}
	b.WriteString(literal.CURLYBRACKETCLOSE)
	return b.String()
}

func (*ObjectValue) isValue() {}

func (o *ObjectValue) Field(name intern.StringKey) (Value, bool) {
	for i := range o.Fields {
		if o.Fields[i].Name == name {
			return o.Fields[i].Value, true
		}
	}
	return nil, false
}

func ValuesEqual(a, b Value) bool {
	if a == nil || b == nil {
		return a == nil && b == nil
	}
	return a.String() == b.String()
}

// IsConstant reports whether v contains no variables.
func IsConstant(v Value) bool {
	switch value := v.(type) {
	case *Variable:
		return false
	case *ListValue:
		for i := range value.Items {
			if !IsConstant(value.Items[i]) {
				return false
			}
		}
	case *ObjectValue:
		for i := range value.Fields {
			if !IsConstant(value.Fields[i].Value) {
				return false
			}
		}
	}
	return true
}

// VisitVariables calls visit for every variable in v.
func VisitVariables(v Value, visit func(variable *Variable)) {
	switch value := v.(type) {
	case *Variable:
		visit(value)
	case *ListValue:
		for i := range value.Items {
			VisitVariables(value.Items[i], visit)
		}
	case *ObjectValue:
		for i := range value.Fields {
			VisitVariables(value.Fields[i].Value, visit)
		}
	}
}

// SubstituteVariables returns v with variables replaced by lookup. A variable lookup doesn't know
// is kept as is. Untouched subtrees are shared.
func SubstituteVariables(v Value, lookup func(name intern.StringKey) (Value, bool)) Value {
	switch value := v.(type) {
	case *Variable:
		if replacement, ok := lookup(value.Name); ok {
			return replacement
		}
	case *ListValue:
		var items []Value
		for i := range value.Items {
			item := SubstituteVariables(value.Items[i], lookup)
			if item != value.Items[i] && items == nil {
				items = append(make([]Value, 0, len(value.Items)), value.Items[:i]...)
			}
			if items != nil {
				items = append(items, item)
			}
		}
		if items != nil {
			return &ListValue{Items: items}
		}
	case *ObjectValue:
		var fields []ObjectField
		for i := range value.Fields {
			fieldValue := SubstituteVariables(value.Fields[i].Value, lookup)
			if fieldValue != value.Fields[i].Value && fields == nil {
				fields = append(make([]ObjectField, 0, len(value.Fields)), value.Fields[:i]...)
			}
			if fields != nil {
				fields = append(fields, ObjectField{Name: value.Fields[i].Name, Value: fieldValue})
			}
		}
		if fields != nil {
			return &ObjectValue{Fields: fields}
		}
	}
	return v
}
