// Package schema is the read-only type system the compiler resolves documents against.
package schema

import (
	"github.com/wundergraph/graphql-compiler/pkg/intern"
)

type TypeKind uint8

const (
	KindScalar TypeKind = iota + 1
	KindObject
	KindInterface
	KindUnion
	KindEnum
	KindInputObject
)

func (k TypeKind) String() string {
	switch k {
	case KindScalar:
		return "SCALAR"
	case KindObject:
		return "OBJECT"
	case KindInterface:
		return "INTERFACE"
	case KindUnion:
		return "UNION"
	case KindEnum:
		return "ENUM"
	case KindInputObject:
		return "INPUT_OBJECT"
	default:
		return "UNKNOWN"
	}
}

type Type struct {
	Name       intern.StringKey
	Kind       TypeKind
	Interfaces []intern.StringKey
	EnumValues []intern.StringKey
	// Fields are ordered as declared. Input objects list their input fields here.
	Fields []*FieldDefinition
}

func (t *Type) IsLeaf() bool {
	return t.Kind == KindScalar || t.Kind == KindEnum
}

func (t *Type) IsComposite() bool {
	return t.Kind == KindObject || t.Kind == KindInterface || t.Kind == KindUnion
}

func (t *Type) IsAbstract() bool {
	return t.Kind == KindInterface || t.Kind == KindUnion
}

func (t *Type) IsInput() bool {
	return t.Kind == KindScalar || t.Kind == KindEnum || t.Kind == KindInputObject
}

func (t *Type) HasEnumValue(value intern.StringKey) bool {
	for i := range t.EnumValues {
		if t.EnumValues[i] == value {
			return true
		}
	}
	return false
}

type FieldDefinition struct {
	Name      intern.StringKey
	Parent    intern.StringKey
	Type      TypeReference
	Arguments []ArgumentDefinition
	// Client fields are declared in a client schema extension and never sent to the server.
	Client bool
}

func (f *FieldDefinition) Argument(name intern.StringKey) (ArgumentDefinition, bool) {
	return findArgument(f.Arguments, name)
}

// Ref is the resolved reference the IR stores for a field selection.
func (f *FieldDefinition) Ref() FieldRef {
	return FieldRef{Parent: f.Parent, Name: f.Name, Type: f.Type, Client: f.Client}
}

type ArgumentDefinition struct {
	Name       intern.StringKey
	Type       TypeReference
	HasDefault bool
}

// Required arguments are non null without a default.
func (a ArgumentDefinition) Required() bool {
	return a.Type.NonNull && !a.HasDefault
}

type DirectiveDefinition struct {
	Name       intern.StringKey
	Arguments  []ArgumentDefinition
	Locations  []DirectiveLocation
	Repeatable bool
	// AnyArguments directives take arbitrary arguments, e.g. @arguments.
	AnyArguments bool
	// Compiler directives are understood by the compiler and stripped from artifacts.
	Compiler bool
}

func (d *DirectiveDefinition) Argument(name intern.StringKey) (ArgumentDefinition, bool) {
	return findArgument(d.Arguments, name)
}

func (d *DirectiveDefinition) AllowedOn(location DirectiveLocation) bool {
	for i := range d.Locations {
		if d.Locations[i] == location {
			return true
		}
	}
	return false
}

type DirectiveLocation string

const (
	LocationQuery              DirectiveLocation = "QUERY"
	LocationMutation           DirectiveLocation = "MUTATION"
	LocationSubscription       DirectiveLocation = "SUBSCRIPTION"
	LocationField              DirectiveLocation = "FIELD"
	LocationFragmentDefinition DirectiveLocation = "FRAGMENT_DEFINITION"
	LocationFragmentSpread     DirectiveLocation = "FRAGMENT_SPREAD"
	LocationInlineFragment     DirectiveLocation = "INLINE_FRAGMENT"
	LocationVariableDefinition DirectiveLocation = "VARIABLE_DEFINITION"
)

// FieldRef identifies a field of a parent type together with its resolved output type.
type FieldRef struct {
	Parent intern.StringKey
	Name   intern.StringKey
	Type   TypeReference
	Client bool
}

func (f FieldRef) Equal(other FieldRef) bool {
	return f.Parent == other.Parent && f.Name == other.Name && f.Client == other.Client && f.Type.Equal(other.Type)
}

// Schema is the read-only service the compiler consults. Implementations must be immutable
// and safe for concurrent use.
type Schema interface {
	GetType(name intern.StringKey) (*Type, bool)
	GetField(parent, name intern.StringKey) (*FieldDefinition, bool)
	GetDirective(name intern.StringKey) (*DirectiveDefinition, bool)
	// PossibleTypes returns the object types an abstract type can resolve to, in lexical order.
	// For an object type it returns the type itself.
	PossibleTypes(name intern.StringKey) []intern.StringKey
	// RootType returns the root type for "query", "mutation" or "subscription".
	RootType(operation string) (intern.StringKey, bool)
	// Version identifies the schema content. Equal versions mean equal schemas.
	Version() uint64
	// TypeFingerprint hashes the content of one type. Unknown types hash to 0.
	TypeFingerprint(name intern.StringKey) uint64
	// StructureFingerprint hashes everything that isn't attributable to a single type:
	// directives and root operation types.
	StructureFingerprint() uint64
}

func findArgument(arguments []ArgumentDefinition, name intern.StringKey) (ArgumentDefinition, bool) {
	for i := range arguments {
		if arguments[i].Name == name {
			return arguments[i], true
		}
	}
	return ArgumentDefinition{}, false
}

// Overlap reports whether some object type is possible for both a and b.
func Overlap(s Schema, a, b intern.StringKey) bool {
	if a == b {
		return true
	}
	possibleA := s.PossibleTypes(a)
	possibleB := intern.NewSet(s.PossibleTypes(b)...)
	for i := range possibleA {
		if possibleB.Has(possibleA[i]) {
			return true
		}
	}
	return false
}
