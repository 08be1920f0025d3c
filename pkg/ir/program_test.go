package ir

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/wundergraph/graphql-compiler/pkg/intern"
	"github.com/wundergraph/graphql-compiler/pkg/position"
	"github.com/wundergraph/graphql-compiler/pkg/schema"
)

var testSchema = schema.MustLoad(`
type Query { viewer: User }
type User { id: ID! name: String }
`)

func fragment(name string, spreads ...string) *Fragment {
	selections := []Selection{
		&ScalarField{Definition: schema.FieldRef{Parent: intern.Intern("User"), Name: intern.Intern("id"), Type: schema.Named("ID").AsNonNull()}},
	}
	for _, spread := range spreads {
		selections = append(selections, &FragmentSpread{Fragment: intern.Intern(spread)})
	}
	return &Fragment{Name: intern.Intern(name), TypeCondition: intern.Intern("User"), Selections: selections}
}

func query(name string, spreads ...string) *Operation {
	var selections []Selection
	for _, spread := range spreads {
		selections = append(selections, &FragmentSpread{Fragment: intern.Intern(spread)})
	}
	return &Operation{
		Name: intern.Intern(name),
		Type: intern.Intern("Query"),
		Selections: []Selection{
			&LinkedField{
				Definition: schema.FieldRef{Parent: intern.Intern("Query"), Name: intern.Intern("viewer"), Type: schema.Named("User")},
				Selections: selections,
			},
		},
	}
}

func TestNewProgram(t *testing.T) {
	t.Run("closed program", func(t *testing.T) {
		p, err := NewProgram(testSchema, query("Q", "A"), fragment("B"), fragment("A", "B"))
		require.NoError(t, err)
		assert.Equal(t, 3, p.Len())
		assert.Equal(t, []string{"A", "B", "Q"}, intern.Strings(p.Names()))

		definitions := p.Definitions()
		require.Len(t, definitions, 3)
		assert.Equal(t, "Q", definitions[0].DefinitionName().String())
		assert.Equal(t, "A", definitions[1].DefinitionName().String())

		_, ok := p.Fragment(intern.Intern("Q"))
		assert.False(t, ok)
		op, ok := p.Operation(intern.Intern("Q"))
		require.True(t, ok)
		assert.Equal(t, "Query", op.ParentType().String())
	})

	t.Run("dangling spread", func(t *testing.T) {
		_, err := NewProgram(testSchema, query("Q", "A"), fragment("A", "Missing"))
		require.ErrorIs(t, err, ErrProgramNotClosed)
		var dangling *DanglingSpreadsError
		require.ErrorAs(t, err, &dangling)
		assert.Equal(t, []string{"Missing"}, intern.Strings(dangling.Spreads[intern.Intern("A")]))
	})

	t.Run("spreading an operation is dangling", func(t *testing.T) {
		_, err := NewProgram(testSchema, query("Q"), fragment("A", "Q"))
		assert.ErrorIs(t, err, ErrProgramNotClosed)
	})

	t.Run("duplicate name", func(t *testing.T) {
		_, err := NewProgram(testSchema, fragment("A"), fragment("A"))
		assert.ErrorIs(t, err, ErrDuplicateName)
	})

	t.Run("copies are independent", func(t *testing.T) {
		p, err := NewProgram(testSchema, query("Q", "A"), fragment("A"))
		require.NoError(t, err)

		_, err = p.Without(intern.Intern("A"))
		assert.ErrorIs(t, err, ErrProgramNotClosed)

		without, err := p.Without(intern.Intern("Q"))
		require.NoError(t, err)
		assert.Equal(t, 1, without.Len())
		assert.Equal(t, 2, p.Len())

		with, err := p.WithDefinitions(fragment("C"))
		require.NoError(t, err)
		assert.True(t, with.Has(intern.Intern("C")))
		assert.False(t, p.Has(intern.Intern("C")))
	})
}

func TestSpreadsAndTypes(t *testing.T) {
	q := query("Q", "A", "B")
	spreads := Spreads(q)
	require.Len(t, spreads, 2)
	assert.Equal(t, "A", spreads[0].Fragment.String())
	assert.Equal(t, "B", spreads[1].Fragment.String())

	assert.Equal(t, []string{"Query", "User"}, intern.Strings(ReferencedTypes(q)))
	assert.Equal(t, []string{"ID", "User"}, intern.Strings(ReferencedTypes(fragment("A"))))
}

func TestMetadata(t *testing.T) {
	t.Run("decode", func(t *testing.T) {
		directives, err := AddMetadata(nil, DeferMetadata{Label: "Q$defer$A"}, position.GeneratedLocation)
		require.NoError(t, err)

		data, ok := DecodeMetadata[DeferMetadata](directives)
		require.True(t, ok)
		assert.Equal(t, "Q$defer$A", data.Label)

		_, ok = DecodeMetadata[StreamMetadata](directives)
		assert.False(t, ok)
	})

	t.Run("equal payload is a no-op", func(t *testing.T) {
		directives, err := AddMetadata(nil, ConnectionMetadata{Key: "Feed_items", Path: []string{"feed"}}, position.GeneratedLocation)
		require.NoError(t, err)
		again, err := AddMetadata(directives, ConnectionMetadata{Key: "Feed_items", Path: []string{"feed"}}, position.GeneratedLocation)
		require.NoError(t, err)
		assert.Len(t, again, 1)
	})

	t.Run("different payload collides", func(t *testing.T) {
		directives, err := AddMetadata(nil, ModuleMetadata{Module: "A"}, position.GeneratedLocation)
		require.NoError(t, err)
		_, err = AddMetadata(directives, ModuleMetadata{Module: "B"}, position.GeneratedLocation)
		require.ErrorIs(t, err, ErrMetadataCollision)
		var collision *MetadataCollisionError
		require.ErrorAs(t, err, &collision)
		assert.Equal(t, ModuleMetadataKey, collision.Key)
	})

	t.Run("user directives", func(t *testing.T) {
		directives := []Directive{{Name: intern.Intern("live")}}
		directives, err := AddMetadata(directives, HandleMetadata{Handle: "connection"}, position.GeneratedLocation)
		require.NoError(t, err)
		assert.Len(t, UserDirectives(directives), 1)
		assert.Len(t, WithoutDirective(directives, HandleMetadataKey), 1)
		assert.Len(t, directives, 2)
	})
}

func TestValues(t *testing.T) {
	v := &ObjectValue{Fields: []ObjectField{
		{Name: intern.Intern("first"), Value: &Variable{Name: intern.Intern("count")}},
		{Name: intern.Intern("tags"), Value: &ListValue{Items: []Value{String("a\"b"), Enum("RED"), Null()}}},
	}}
	assert.Equal(t, `{first: $count, tags: ["a\"b", RED, null]}`, v.String())
	assert.False(t, IsConstant(v))

	substituted := SubstituteVariables(v, func(name intern.StringKey) (Value, bool) {
		return Int("10"), name == intern.Intern("count")
	})
	assert.Equal(t, `{first: 10, tags: ["a\"b", RED, null]}`, substituted.String())
	assert.True(t, IsConstant(substituted))
	assert.Equal(t, `{first: $count, tags: ["a\"b", RED, null]}`, v.String(), "input must not change")
}
