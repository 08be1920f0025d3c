package artifact_test

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/tidwall/gjson"

	"github.com/wundergraph/graphql-compiler/pkg/artifact"
	"github.com/wundergraph/graphql-compiler/pkg/dependencygraph"
	"github.com/wundergraph/graphql-compiler/pkg/intern"
	"github.com/wundergraph/graphql-compiler/pkg/ir"
	"github.com/wundergraph/graphql-compiler/pkg/irbuilder"
	"github.com/wundergraph/graphql-compiler/pkg/position"
	"github.com/wundergraph/graphql-compiler/pkg/schema"
	"github.com/wundergraph/graphql-compiler/pkg/transforms"
)

var testSchema = schema.MustLoad(`
type Query { viewer: User }

type User {
	id: ID!
	name: String
	posts: [Post]
	friends(first: Int, after: String, orderBy: String): FriendsConnection
}

type Post { id: ID! title: String }

type FriendsConnection {
	edges: [FriendsEdge]
	pageInfo: PageInfo
}

type FriendsEdge { cursor: String node: User }

type PageInfo { endCursor: String hasNextPage: Boolean }
`)

func compile(t *testing.T, text string, transform bool) *ir.Program {
	t.Helper()
	program, report := irbuilder.New(testSchema).BuildProgram(context.Background(), []irbuilder.Document{
		{Source: position.Source{Key: position.Standalone("test.graphql"), Text: text}},
	})
	require.False(t, report.HasErrors(), report.Error())
	if !transform {
		return program
	}
	program, report, _ = transforms.NewPipeline().Run(context.Background(), program)
	require.False(t, report.HasErrors(), report.Error())
	return program
}

func build(t *testing.T, program *ir.Program, name string) artifact.Artifact {
	t.Helper()
	key := intern.Intern(name)
	definition, ok := program.Definition(key)
	require.True(t, ok)
	var closure []ir.Definition
	for _, reached := range dependencygraph.New(program).ReachableFrom([]intern.StringKey{key}, dependencygraph.Forward) {
		if reached == key {
			continue
		}
		fragment, _ := program.Definition(reached)
		closure = append(closure, fragment)
	}
	a, err := artifact.Build(definition, closure)
	require.NoError(t, err)
	return a
}

func TestBuild(t *testing.T) {
	t.Run("operation with fragments", func(t *testing.T) {
		program := compile(t, `
			query Q { viewer { ...F } }
			fragment F on User { id name }`, false)
		a := build(t, program, "Q")

		assert.Equal(t, "query", a.Kind)
		assert.Equal(t, `query Q {
  viewer {
    ...F
  }
}

fragment F on User {
  id
  name
}`, a.Text)
		assert.Equal(t, "Q", gjson.GetBytes(a.Body, "name").String())
		assert.Equal(t, "query", gjson.GetBytes(a.Body, "kind").String())
		assert.Equal(t, a.Text, gjson.GetBytes(a.Body, "text").String())
		assert.Equal(t, `["F"]`, gjson.GetBytes(a.Body, "fragments").Raw)
		assert.Equal(t, a.Hash, gjson.GetBytes(a.Body, "hash").String())
		assert.Len(t, a.Hash, 16)
		assert.False(t, gjson.GetBytes(a.Body, "connections").Exists())
	})
	t.Run("fragment", func(t *testing.T) {
		program := compile(t, `fragment F on User { id }`, false)
		a := build(t, program, "F")
		assert.Equal(t, "fragment", a.Kind)
		assert.Equal(t, `[]`, gjson.GetBytes(a.Body, "fragments").Raw)
	})
	t.Run("metadata", func(t *testing.T) {
		program := compile(t, `
			fragment F on User { name }
			query Q($later: Boolean) {
				viewer {
					...F @defer
					posts @stream(if: $later) { id }
					friends(first: 10, orderBy: "name") @connection(key: "Q_friends") { edges { node { id } } }
				}
			}`, true)
		a := build(t, program, "Q")

		assert.Equal(t, "Q_friends", gjson.GetBytes(a.Body, "connections.0.key").String())
		assert.Equal(t, `["orderBy"]`, gjson.GetBytes(a.Body, "connections.0.filters").Raw)
		assert.Equal(t, `["viewer","friends"]`, gjson.GetBytes(a.Body, "connections.0.path").Raw)
		var labels []string
		for _, label := range gjson.GetBytes(a.Body, "labels").Array() {
			labels = append(labels, label.String())
		}
		assert.ElementsMatch(t, []string{"Q$defer$F", "Q$stream$posts"}, labels)
		assert.NotContains(t, a.Text, "__connectionMetadata", "metadata is never printed into artifacts")
		assert.NotContains(t, a.Text, "__defer")
	})
}

func TestHashStability(t *testing.T) {
	text := `
		query Q { viewer { ...F } }
		fragment F on User { id name }`
	first := build(t, compile(t, text, true), "Q")
	second := build(t, compile(t, text, true), "Q")
	assert.Equal(t, first.Hash, second.Hash)
	assert.Equal(t, first.Body, second.Body)

	changed := build(t, compile(t, `
		query Q { viewer { ...F } }
		fragment F on User { id }`, true), "Q")
	assert.NotEqual(t, first.Hash, changed.Hash)
}

func TestWithPersistedID(t *testing.T) {
	a := build(t, compile(t, `query Q { viewer { id } }`, false), "Q")
	persisted, err := a.WithPersistedID("abc")
	require.NoError(t, err)
	assert.Equal(t, "abc", gjson.GetBytes(persisted.Body, "id").String())
	assert.Equal(t, a.Hash, persisted.Hash)
	assert.False(t, gjson.GetBytes(a.Body, "id").Exists(), "original body is left alone")
}
