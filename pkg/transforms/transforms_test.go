package transforms_test

import (
	"bytes"
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/wundergraph/graphql-compiler/pkg/intern"
	"github.com/wundergraph/graphql-compiler/pkg/ir"
	"github.com/wundergraph/graphql-compiler/pkg/irbuilder"
	"github.com/wundergraph/graphql-compiler/pkg/irprinter"
	"github.com/wundergraph/graphql-compiler/pkg/operationreport"
	"github.com/wundergraph/graphql-compiler/pkg/position"
	"github.com/wundergraph/graphql-compiler/pkg/schema"
	"github.com/wundergraph/graphql-compiler/pkg/transforms"
)

const testSDL = `
type Query {
	viewer: User
	node(id: ID!): Node
	search(text: String!): [SearchResult]
}

interface Node { id: ID! }

union SearchResult = User | Page

type User implements Node {
	id: ID!
	name: String
	avatar(size: Int): String
	friends(first: Int, after: String, orderBy: String): FriendsConnection
	posts: [Post]
	profile: Profile
}

type Page implements Node {
	id: ID!
	title: String
}

type Post {
	id: ID!
	title: String
}

type Profile { bio: String }

type FriendsConnection {
	edges: [FriendsEdge]
	pageInfo: PageInfo
}

type FriendsEdge {
	cursor: String
	node: User
}

type PageInfo {
	endCursor: String
	hasNextPage: Boolean
}
`

var testSchema = schema.MustLoad(testSDL)

func buildProgram(t *testing.T, path, text string) *ir.Program {
	t.Helper()
	program, report := irbuilder.New(testSchema).BuildProgram(context.Background(), []irbuilder.Document{
		{Source: position.Source{Key: position.Standalone(path), Text: text}},
	})
	require.False(t, report.HasErrors(), report.Error())
	return program
}

func run(t *testing.T, text string, opts ...transforms.Option) (*ir.Program, operationreport.Report) {
	t.Helper()
	return runFile(t, "test.graphql", text, opts...)
}

func runFile(t *testing.T, path, text string, opts ...transforms.Option) (*ir.Program, operationreport.Report) {
	t.Helper()
	opts = append([]transforms.Option{transforms.WithConcurrency(2)}, opts...)
	program, report, timings := transforms.NewPipeline(opts...).Run(context.Background(), buildProgram(t, path, text))
	require.Empty(t, report.InternalErrors)
	require.NotNil(t, program)
	require.NotEmpty(t, timings)
	return program, report
}

func printDefinition(t *testing.T, program *ir.Program, name string) string {
	t.Helper()
	definition, ok := program.Definition(intern.Intern(name))
	require.Truef(t, ok, "%s is not part of the program", name)
	out, err := irprinter.PrintString(definition)
	require.NoError(t, err)
	return out
}

func printProgram(t *testing.T, program *ir.Program) string {
	t.Helper()
	buff := &bytes.Buffer{}
	require.NoError(t, irprinter.PrintDocument(program.Definitions(), buff, true))
	return buff.String()
}

func codes(diagnostics operationreport.Diagnostics) []string {
	out := make([]string, 0, len(diagnostics))
	for _, d := range diagnostics {
		out = append(out, d.Code)
	}
	return out
}

func names(program *ir.Program) []string {
	return intern.Strings(program.Names())
}

func TestPipeline(t *testing.T) {
	t.Run("adds __typename to abstract fields", func(t *testing.T) {
		program, report := run(t, `query Q { node(id: "1") { id } }`)
		assert.Empty(t, report.Diagnostics)
		assert.Equal(t, `query Q {
  node(id: "1") {
    __typename
    id
  }
}`, printDefinition(t, program, "Q"))
	})

	t.Run("flattens, deduplicates and sorts", func(t *testing.T) {
		program, report := run(t, `query Q { viewer { name ... on User { id name } ... { id } } }`)
		assert.Empty(t, report.Diagnostics)
		assert.Equal(t, `query Q {
  viewer {
    id
    name
  }
}`, printDefinition(t, program, "Q"))
	})

	t.Run("connection", func(t *testing.T) {
		program, report := run(t, `
			query Q {
				viewer {
					friends(first: 10, orderBy: "name") @connection(key: "Q_friends") {
						edges { node { name } }
					}
				}
			}`)
		assert.Empty(t, report.Diagnostics)
		assert.Equal(t, `query Q {
  viewer {
    friends(first: 10, orderBy: "name") {
      edges {
        cursor
        node {
          __typename
          name
        }
      }
      pageInfo {
        endCursor
        hasNextPage
      }
    }
  }
}`, printDefinition(t, program, "Q"))

		operation, _ := program.Operation(intern.Intern("Q"))
		friends := operation.Selections[0].(*ir.LinkedField).Selections[0].(*ir.LinkedField)
		connection, ok := ir.DecodeMetadata[ir.ConnectionMetadata](friends.Directives)
		require.True(t, ok)
		assert.Equal(t, ir.ConnectionMetadata{Key: "Q_friends", Filters: []string{"orderBy"}, Path: []string{"viewer", "friends"}}, connection)
		handle, ok := ir.DecodeMetadata[ir.HandleMetadata](friends.Directives)
		require.True(t, ok)
		assert.Equal(t, "connection", handle.Handle)
	})

	t.Run("match and module", func(t *testing.T) {
		program, report := run(t, `
			fragment UserName on User { name }
			query Q { search(text: "x") @match { ...UserName @module(name: "UserName.react") } }`)
		assert.Empty(t, report.Diagnostics)
		assert.Equal(t, `query Q {
  search(text: "x") {
    __typename
    ... on User {
      __typename
      ...UserName
    }
  }
}`, printDefinition(t, program, "Q"))

		operation, _ := program.Operation(intern.Intern("Q"))
		module := operation.Selections[0].(*ir.LinkedField).Selections[1].(*ir.InlineFragment)
		metadata, ok := ir.DecodeMetadata[ir.ModuleMetadata](module.Directives)
		require.True(t, ok)
		assert.Equal(t, ir.ModuleMetadata{Module: "UserName.react", Fragment: "UserName", TypeCondition: "User", Field: "search"}, metadata)
	})

	t.Run("defer and stream", func(t *testing.T) {
		program, report := run(t, `
			fragment F on User { name }
			query Q($later: Boolean) { viewer { ...F @defer posts @stream(if: $later) { id } } }`)
		assert.Empty(t, report.Diagnostics)

		operation, _ := program.Operation(intern.Intern("Q"))
		viewer := operation.Selections[0].(*ir.LinkedField)
		require.Len(t, viewer.Selections, 2)

		posts := viewer.Selections[0].(*ir.LinkedField)
		stream, ok := ir.DecodeMetadata[ir.StreamMetadata](posts.Directives)
		require.True(t, ok)
		assert.Equal(t, "Q$stream$posts", stream.Label)
		assert.Equal(t, "later", stream.If)
		assert.Equal(t, "0", stream.InitialCount.String())

		deferred := viewer.Selections[1].(*ir.InlineFragment)
		metadata, ok := ir.DecodeMetadata[ir.DeferMetadata](deferred.Directives)
		require.True(t, ok)
		assert.Equal(t, ir.DeferMetadata{Label: "Q$defer$F"}, metadata)
		assert.Equal(t, intern.Intern("User"), deferred.TypeCondition)
	})

	t.Run("fragment arguments", func(t *testing.T) {
		program, report := run(t, `
			fragment Avatar on User @argumentDefinitions(size: {type: "Int", defaultValue: 16}) { avatar(size: $size) }
			query Q { viewer { ...Avatar ...Avatar @arguments(size: 32) } }`)
		assert.Empty(t, report.Diagnostics)

		specialized := transforms.SpecializedFragmentName(intern.Intern("Avatar"), []ir.BoundArgument{{Name: "size", Value: "32"}})
		assert.Equal(t, []string{"Avatar", specialized.String(), "Q"}, names(program))

		assert.Equal(t, `query Q {
  viewer {
    ...Avatar
    ...`+specialized.String()+`
  }
}`, printDefinition(t, program, "Q"))
		assert.Equal(t, `fragment Avatar on User {
  avatar(size: 16)
}`, printDefinition(t, program, "Avatar"))
		assert.Equal(t, `fragment `+specialized.String()+` on User {
  avatar(size: 32)
}`, printDefinition(t, program, specialized.String()))

		fragment, _ := program.Fragment(specialized)
		metadata, ok := ir.DecodeMetadata[ir.FragmentArgumentsMetadata](fragment.Directives)
		require.True(t, ok)
		assert.Equal(t, "Avatar", metadata.Source)
		assert.Empty(t, fragment.VariableDefinitions)
	})

	t.Run("fragment arguments bound to operation variables", func(t *testing.T) {
		program, report := run(t, `
			fragment Avatar on User @argumentDefinitions(size: {type: "Int"}) { avatar(size: $size) }
			query Q($s: Int) { viewer { ...Avatar @arguments(size: $s) } }`)
		assert.Empty(t, report.Diagnostics)

		specialized := transforms.SpecializedFragmentName(intern.Intern("Avatar"), []ir.BoundArgument{{Name: "size", Value: "$s"}})
		fragment, ok := program.Fragment(specialized)
		require.True(t, ok)
		require.Len(t, fragment.UsedGlobalVariables, 1)
		assert.Equal(t, intern.Intern("s"), fragment.UsedGlobalVariables[0].Name)

		source, _ := program.Fragment(intern.Intern("Avatar"))
		assert.Empty(t, source.VariableDefinitions)
		assert.Empty(t, source.UsedGlobalVariables)
		assert.Equal(t, `fragment Avatar on User {
  avatar(size: null)
}`, printDefinition(t, program, "Avatar"))
	})

	t.Run("timings follow stage order", func(t *testing.T) {
		_, _, timings := transforms.NewPipeline().Run(context.Background(), buildProgram(t, "test.graphql", `query Q { viewer { id } }`))
		stages := transforms.DefaultStages()
		require.Len(t, timings, len(stages))
		for i := range stages {
			assert.Equal(t, stages[i].Name, timings[i].Stage)
			assert.Equal(t, stages[i].Kind, timings[i].Kind)
		}
	})
}

func TestPipelineDiagnostics(t *testing.T) {
	for _, tc := range []struct {
		name      string
		text      string
		codes     []string
		survivors []string
	}{
		{
			name:      "reserved alias",
			text:      `query Q { viewer { __id: id } }`,
			codes:     []string{operationreport.CodeReservedAlias},
			survivors: []string{"Q"},
		},
		{
			name:      "required argument",
			text:      `query Q { node { id } }`,
			codes:     []string{operationreport.CodeRequiredArgumentMissing},
			survivors: []string{"Q"},
		},
		{
			name:      "stream on a non list field",
			text:      `query Q { viewer { name @stream } }`,
			codes:     []string{operationreport.CodeStreamOnNonList},
			survivors: []string{"Q"},
		},
		{
			name:      "negative initial count",
			text:      `query Q { viewer { posts @stream(initialCount: -1) { id } } }`,
			codes:     []string{operationreport.CodeStreamInitialCount},
			survivors: []string{"Q"},
		},
		{
			name:      "duplicate labels",
			text:      `query Q { viewer { ... on User @defer(label: "a") { id } ... on User @defer(label: "a") { name } } }`,
			codes:     []string{operationreport.CodeDeferStreamLabel},
			survivors: []string{"Q"},
		},
		{
			name: "duplicate labels across a spread",
			text: `
				fragment F on User { ... on User @defer(label: "a") { id } }
				query Q { viewer { ...F ... on User @defer(label: "a") { name } } }`,
			codes:     []string{operationreport.CodeDeferStreamLabel},
			survivors: []string{"F", "Q"},
		},
		{
			name:      "connection key",
			text:      `query Q { viewer { friends @connection(key: "Q_people") { edges { cursor } } } }`,
			codes:     []string{operationreport.CodeConnection},
			survivors: []string{"Q"},
		},
		{
			name:      "connection filters",
			text:      `query Q { viewer { friends @connection(key: "Q_friends", filters: ["unknown"]) { edges { cursor } } } }`,
			codes:     []string{operationreport.CodeConnection},
			survivors: []string{"Q"},
		},
		{
			name:      "connection without edges",
			text:      `query Q { viewer { profile @connection(key: "Q_profile") { bio } } }`,
			codes:     []string{operationreport.CodeConnection},
			survivors: []string{"Q"},
		},
		{
			name: "connection key used twice",
			text: `
				fragment F on User { friends @connection(key: "F_friends") { edges { cursor } } }
				query Q { viewer { ...F friends @connection(key: "F_friends") { edges { cursor } } } }`,
			codes:     []string{operationreport.CodeMetadataCollision},
			survivors: []string{"F"},
		},
		{
			name: "missing fragment argument",
			text: `
				fragment Avatar on User @argumentDefinitions(size: {type: "Int!"}) { avatar(size: $size) }
				query Q { viewer { ...Avatar } }
				query R { viewer { id } }`,
			codes:     []string{operationreport.CodeFragmentArgumentMissing},
			survivors: []string{"Avatar", "R"},
		},
		{
			name: "failing fragment takes its dependents along",
			text: `
				fragment Avatar on User @argumentDefinitions(size: {type: "Int!"}) { avatar(size: $size) }
				fragment F on User { ...Avatar }
				query Q { viewer { ...F } }
				query R { viewer { id } }`,
			codes:     []string{operationreport.CodeFragmentArgumentMissing, operationreport.CodeDependencyFailed},
			survivors: []string{"Avatar", "R"},
		},
		{
			name: "variables",
			text: `
				fragment F on User { avatar(size: $size) }
				query Q { viewer { ...F } }
				query P($size: Int, $unused: String) { viewer { ...F } }`,
			codes:     []string{operationreport.CodeVariableUndefined, operationreport.CodeVariableUnused},
			survivors: []string{"F", "P", "Q"},
		},
		{
			name:      "variable type from a fragment",
			text:      `fragment F on User { friends(first: $n) { edges { cursor } } } query Q($n: String) { viewer { ...F } }`,
			codes:     []string{operationreport.CodeValueInvalid},
			survivors: []string{"F", "Q"},
		},
		{
			name:      "different fields",
			text:      `query Q { viewer { name: id name } }`,
			codes:     []string{operationreport.CodeFieldsConflict},
			survivors: []string{"Q"},
		},
		{
			name:      "different arguments",
			text:      `query Q { viewer { avatar(size: 1) avatar(size: 2) } }`,
			codes:     []string{operationreport.CodeFieldsConflict},
			survivors: []string{"Q"},
		},
		{
			name:      "nested conflict through a spread",
			text:      `fragment F on User { profile { bio: __typename } } query Q { viewer { ...F profile { bio } } }`,
			codes:     []string{operationreport.CodeFieldsConflict},
			survivors: []string{"F", "Q"},
		},
		{
			name:      "conflict inside a fragment is reported once",
			text:      `fragment F on User { name: id name } query Q { viewer { ...F } }`,
			codes:     []string{operationreport.CodeFieldsConflict},
			survivors: []string{"F", "Q"},
		},
		{
			name:      "exclusive parents",
			text:      `query Q { node(id: "1") { ... on User { title: name } ... on Page { title } } }`,
			survivors: []string{"Q"},
		},
	} {
		t.Run(tc.name, func(t *testing.T) {
			program, report := run(t, tc.text)
			assert.ElementsMatch(t, tc.codes, codes(report.Diagnostics))
			assert.Equal(t, tc.survivors, names(program))
		})
	}
}

func TestDependencyFailureRelated(t *testing.T) {
	_, report := run(t, `
		fragment Avatar on User @argumentDefinitions(size: {type: "Int!"}) { avatar(size: $size) }
		fragment F on User { ...Avatar }
		query Q { viewer { ...F } }`)
	dependents := report.Diagnostics.ForDefinition(intern.Intern("Q"))
	require.Len(t, dependents, 1)
	assert.Equal(t, operationreport.CodeDependencyFailed, dependents[0].Code)
	require.Len(t, dependents[0].Related, 1)
	assert.Contains(t, dependents[0].Message, "fragment: F")
}

func TestValidateModuleNames(t *testing.T) {
	text := `
		query userQueriesViewer { viewer { id } }
		query Viewer { viewer { id } }`

	_, report := runFile(t, "UserQueries.graphql", text)
	assert.Empty(t, report.Diagnostics)

	program, report := runFile(t, "UserQueries.graphql", text, transforms.WithValidateModuleNames(true))
	require.Len(t, report.Diagnostics, 1)
	assert.Equal(t, operationreport.CodeModuleName, report.Diagnostics[0].Code)
	assert.Equal(t, intern.Intern("Viewer"), report.Diagnostics[0].Definition)
	assert.Equal(t, []string{"Viewer", "userQueriesViewer"}, names(program))
}

func TestModuleName(t *testing.T) {
	for path, expected := range map[string]string{
		"src/UserProfile.react.js": "userProfile",
		"queries/user_profile.ts":  "userProfile",
		"Feed.graphql":             "feed",
	} {
		assert.Equal(t, expected, transforms.ModuleName(path), path)
	}
}

func TestIdempotence(t *testing.T) {
	text := `
		fragment Avatar on User @argumentDefinitions(size: {type: "Int", defaultValue: 16}) { avatar(size: $size) }
		fragment UserName on User { name }
		fragment Friends on User {
			friends(first: 10) @connection(key: "Friends_friends") { edges { node { ...Avatar @arguments(size: 64) } } }
		}
		query Q($later: Boolean) {
			node(id: "1") {
				... on User { ...Friends ...UserName @defer posts @stream(if: $later) { title id } }
				... { id }
			}
			search(text: "x") @match { ...UserName @module(name: "UserName.react") }
			viewer { name ... on User { id name } ...Avatar }
		}`

	program, report := run(t, text)
	require.False(t, report.HasErrors(), report.Error())

	pipeline := transforms.NewPipeline()
	again, report, _ := pipeline.Run(context.Background(), program)
	require.False(t, report.HasErrors(), report.Error())
	require.NotNil(t, again)
	assert.Equal(t, printProgram(t, program), printProgram(t, again))
}

func TestWithStages(t *testing.T) {
	program := buildProgram(t, "test.graphql", `query Q { viewer { name: id name } }`)
	pipeline := transforms.NewPipeline(transforms.WithStages(transforms.DefaultStages()[0]))
	require.Len(t, pipeline.Stages(), 1)

	out, report, timings := pipeline.Run(context.Background(), program)
	assert.Empty(t, report.Diagnostics)
	assert.Same(t, program, out)
	require.Len(t, timings, 1)
	assert.Equal(t, transforms.StageValidateReservedAliases, timings[0].Stage)
}
