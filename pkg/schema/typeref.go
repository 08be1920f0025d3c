package schema

import (
	"fmt"
	"strings"

	"github.com/vektah/gqlparser/v2/ast"

	"github.com/wundergraph/graphql-compiler/pkg/intern"
)

// TypeReference is a possibly wrapped reference to a named type, e.g. [ID!]!.
// Exactly one of Name and OfType is set.
type TypeReference struct {
	Name    intern.StringKey
	OfType  *TypeReference
	NonNull bool
}

func Named(name string) TypeReference {
	return TypeReference{Name: intern.Intern(name)}
}

func ListOf(of TypeReference) TypeReference {
	return TypeReference{OfType: &of}
}

func (t TypeReference) AsNonNull() TypeReference {
	t.NonNull = true
	return t
}

func (t TypeReference) Nullable() TypeReference {
	t.NonNull = false
	return t
}

func (t TypeReference) IsList() bool {
	return t.OfType != nil
}

// NamedType strips every list and non null wrapper.
func (t TypeReference) NamedType() intern.StringKey {
	for t.OfType != nil {
		t = *t.OfType
	}
	return t.Name
}

func (t TypeReference) IsZero() bool {
	return t.Name.IsEmpty() && t.OfType == nil
}

func (t TypeReference) Equal(other TypeReference) bool {
	if t.NonNull != other.NonNull || t.Name != other.Name {
		return false
	}
	if t.OfType == nil || other.OfType == nil {
		return t.OfType == nil && other.OfType == nil
	}
	return t.OfType.Equal(*other.OfType)
}

func (t TypeReference) String() string {
	b := strings.Builder{}
	t.write(&b)
	return b.String()
}

func (t TypeReference) write(b *strings.Builder) {
	if t.OfType != nil {
		b.WriteByte('[')
		t.OfType.write(b)
		b.WriteByte(']')
	} else {
		b.WriteString(t.Name.String())
	}
	if t.NonNull {
		b.WriteByte('!')
	}
}

// IsSubtypeOf reports whether a value of type t can be used where other is expected,
// ignoring abstract types: [Int!]! fits [Int], Int fits Int but Int does not fit Int!.
func (t TypeReference) IsSubtypeOf(other TypeReference) bool {
	if other.NonNull && !t.NonNull {
		return false
	}
	if t.OfType != nil || other.OfType != nil {
		if t.OfType == nil || other.OfType == nil {
			return false
		}
		return t.OfType.IsSubtypeOf(*other.OfType)
	}
	return t.Name == other.Name
}

func FromAST(t *ast.Type) TypeReference {
	if t == nil {
		return TypeReference{}
	}
	if t.Elem != nil {
		out := ListOf(FromAST(t.Elem))
		out.NonNull = t.NonNull
		return out
	}
	return TypeReference{Name: intern.Intern(t.NamedType), NonNull: t.NonNull}
}

// ParseTypeReference parses the textual form of a type reference, e.g. "[String!]".
func ParseTypeReference(s string) (TypeReference, error) {
	s = strings.TrimSpace(s)
	if s == "" {
		return TypeReference{}, fmt.Errorf("empty type reference")
	}
	nonNull := false
	if strings.HasSuffix(s, "!") {
		nonNull = true
		s = strings.TrimSpace(s[:len(s)-1])
	}
	var out TypeReference
	switch {
	case strings.HasPrefix(s, "[") && strings.HasSuffix(s, "]"):
		inner, err := ParseTypeReference(s[1 : len(s)-1])
		if err != nil {
			return TypeReference{}, err
		}
		out = ListOf(inner)
	case isName(s):
		out = Named(s)
	default:
		return TypeReference{}, fmt.Errorf("invalid type reference: %q", s)
	}
	out.NonNull = nonNull
	return out, nil
}

func isName(s string) bool {
	if s == "" {
		return false
	}
	for i := 0; i < len(s); i++ {
		c := s[i]
		switch {
		case c == '_', c >= 'a' && c <= 'z', c >= 'A' && c <= 'Z':
		case c >= '0' && c <= '9' && i > 0:
		default:
			return false
		}
	}
	return true
}
