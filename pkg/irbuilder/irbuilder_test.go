package irbuilder

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/wundergraph/graphql-compiler/pkg/intern"
	"github.com/wundergraph/graphql-compiler/pkg/ir"
	"github.com/wundergraph/graphql-compiler/pkg/operationreport"
	"github.com/wundergraph/graphql-compiler/pkg/position"
	"github.com/wundergraph/graphql-compiler/pkg/schema"
)

const testSDL = `
schema { query: Query mutation: Mutation }

type Query {
	viewer: User
	node(id: ID!): Node
	users(first: Int, role: Role, filter: UserFilter): [User]
}

type Mutation {
	rename(id: ID!, name: String!): User
}

enum Role { ADMIN MEMBER }

input UserFilter { name: String role: Role }

interface Node { id: ID! }

type User implements Node {
	id: ID!
	name: String
	friends(first: Int): [User]
	avatar(size: Int): String
}

type Page implements Node {
	id: ID!
	title: String!
}
`

func document(path, text string) Document {
	return Document{Source: position.Source{Key: position.Standalone(path), Text: text}}
}

func build(t *testing.T, texts ...string) (*ir.Program, operationreport.Report) {
	t.Helper()
	documents := make([]Document, 0, len(texts))
	for i, text := range texts {
		documents = append(documents, document(string(rune('a'+i))+".graphql", text))
	}
	program, report := New(schema.MustLoad(testSDL), WithConcurrency(2)).BuildProgram(context.Background(), documents)
	require.Empty(t, report.InternalErrors)
	require.NotNil(t, program)
	return program, report
}

func codes(diagnostics operationreport.Diagnostics) []string {
	out := make([]string, 0, len(diagnostics))
	for _, d := range diagnostics {
		out = append(out, d.Code)
	}
	return out
}

func assertClosed(t *testing.T, program *ir.Program) {
	t.Helper()
	for _, definition := range program.Definitions() {
		for _, spread := range ir.Spreads(definition) {
			_, ok := program.Fragment(spread.Fragment)
			assert.Truef(t, ok, "%s spreads %s which is not in the program", definition.DefinitionName(), spread.Fragment)
		}
	}
}

func TestBuildProgram(t *testing.T) {
	key := intern.Intern

	t.Run("operation with fragment", func(t *testing.T) {
		program, report := build(t, `
			query ViewerQuery($size: Int) {
				viewer {
					id
					me: name
					name
					avatar(size: $size) @include(if: true)
					...UserFragment
				}
			}
			fragment UserFragment on User {
				friends(first: 10) { id }
			}
		`)
		assert.Empty(t, report.Diagnostics)
		assert.Equal(t, []intern.StringKey{key("UserFragment"), key("ViewerQuery")}, program.Names())

		operation, ok := program.Operation(key("ViewerQuery"))
		require.True(t, ok)
		assert.Equal(t, ir.OperationKindQuery, operation.Kind)
		assert.Equal(t, key("Query"), operation.Type)
		require.Len(t, operation.VariableDefinitions, 1)
		assert.Equal(t, "Int", operation.VariableDefinitions[0].Type.String())

		viewer := operation.Selections[0].(*ir.LinkedField)
		require.Len(t, viewer.Selections, 5)

		id := viewer.Selections[0].(*ir.ScalarField)
		assert.True(t, id.Alias.IsEmpty())
		me := viewer.Selections[1].(*ir.ScalarField)
		assert.Equal(t, key("me"), me.ResponseKey())
		name := viewer.Selections[2].(*ir.ScalarField)
		assert.True(t, name.Alias.IsEmpty(), "an alias equal to the field name is dropped")

		condition := viewer.Selections[3].(*ir.Condition)
		assert.True(t, condition.Passing)
		assert.Equal(t, "true", condition.Value.String())
		avatar := condition.Selections[0].(*ir.ScalarField)
		require.Len(t, avatar.Arguments, 1)
		variable := avatar.Arguments[0].Value.(*ir.Variable)
		assert.Equal(t, "Int", variable.Type.String())

		spread := viewer.Selections[4].(*ir.FragmentSpread)
		assert.Equal(t, key("UserFragment"), spread.Fragment)
		assertClosed(t, program)
	})

	t.Run("skip and include nest in order", func(t *testing.T) {
		program, report := build(t, `
			query Q($a: Boolean!, $b: Boolean!) {
				viewer @skip(if: $a) @include(if: $b) { id }
			}
		`)
		require.Empty(t, report.Diagnostics)
		operation, _ := program.Operation(key("Q"))
		outer := operation.Selections[0].(*ir.Condition)
		assert.False(t, outer.Passing)
		inner := outer.Selections[0].(*ir.Condition)
		assert.True(t, inner.Passing)
		assert.IsType(t, &ir.LinkedField{}, inner.Selections[0])
	})

	t.Run("fragment global and local variables", func(t *testing.T) {
		program, report := build(t, `
			fragment F on User @argumentDefinitions(size: {type: "Int", defaultValue: 32}) {
				avatar(size: $size)
				friends(first: $count) { id }
			}
			query Q($count: Int) { viewer { ...F @arguments(size: 64) } }
		`)
		require.Empty(t, report.Diagnostics)
		fragment, ok := program.Fragment(key("F"))
		require.True(t, ok)
		require.Len(t, fragment.VariableDefinitions, 1)
		assert.Equal(t, key("size"), fragment.VariableDefinitions[0].Name)
		assert.Equal(t, "32", fragment.VariableDefinitions[0].DefaultValue.String())
		require.Len(t, fragment.UsedGlobalVariables, 1)
		assert.Equal(t, key("count"), fragment.UsedGlobalVariables[0].Name)

		operation, _ := program.Operation(key("Q"))
		spread := operation.Selections[0].(*ir.LinkedField).Selections[0].(*ir.FragmentSpread)
		require.Len(t, spread.Arguments, 1)
		assert.Equal(t, "Int", spread.Arguments[0].Type.String())
		assert.Equal(t, "64", spread.Arguments[0].Value.String())
	})

	t.Run("input values", func(t *testing.T) {
		_, report := build(t, `
			query Q { users(first: 2, role: ADMIN, filter: {name: "x", role: MEMBER}) { id } }
		`)
		assert.Empty(t, report.Diagnostics)
	})
}

func TestBuildProgramDiagnostics(t *testing.T) {
	key := intern.Intern

	tests := []struct {
		name  string
		texts []string
		codes []string
		names []string
	}{
		{
			name:  "unknown field",
			texts: []string{`query Q { viewer { missing } }`},
			codes: []string{operationreport.CodeFieldUndefined},
		},
		{
			name:  "selection on leaf",
			texts: []string{`query Q { viewer { name { id } } }`},
			codes: []string{operationreport.CodeLeafFieldSelection},
		},
		{
			name:  "missing selection on composite",
			texts: []string{`query Q { viewer }`},
			codes: []string{operationreport.CodeCompositeFieldNoSelection},
		},
		{
			name:  "undefined argument",
			texts: []string{`query Q { viewer { avatar(width: 1) } }`},
			codes: []string{operationreport.CodeArgumentUndefined},
		},
		{
			name:  "wrong value type",
			texts: []string{`query Q { users(first: "two") { id } }`},
			codes: []string{operationreport.CodeValueInvalid},
		},
		{
			name:  "unknown enum value",
			texts: []string{`query Q { users(role: OWNER) { id } }`},
			codes: []string{operationreport.CodeValueInvalid},
		},
		{
			name:  "undefined variable",
			texts: []string{`query Q { users(first: $n) { id } }`},
			codes: []string{operationreport.CodeVariableUndefined},
		},
		{
			name:  "duplicate variable",
			texts: []string{`query Q($n: Int, $n: Int) { users(first: $n) { id } }`},
			codes: []string{operationreport.CodeDuplicateVariable},
		},
		{
			name:  "output type variable",
			texts: []string{`query Q($u: User) { viewer { id } }`},
			codes: []string{operationreport.CodeVariableTypeNotInput},
		},
		{
			name:  "unknown directive",
			texts: []string{`query Q { viewer @unknown { id } }`},
			codes: []string{operationreport.CodeDirectiveUndefined},
		},
		{
			name:  "misplaced directive",
			texts: []string{`query Q @include(if: true) { viewer { id } }`},
			codes: []string{operationreport.CodeDirectiveMisplaced},
		},
		{
			name:  "unknown fragment",
			texts: []string{`query Q { viewer { ...Missing } }`},
			codes: []string{operationreport.CodeFragmentUndefined},
		},
		{
			name:  "spread type mismatch",
			texts: []string{`query Q { viewer { ...P } } fragment P on Page { title }`},
			codes: []string{operationreport.CodeFragmentSpreadTypeMismatch},
			names: []string{"P"},
		},
		{
			name:  "undefined type condition",
			texts: []string{`fragment F on Missing { id }`},
			codes: []string{operationreport.CodeTypeUndefined},
		},
		{
			name:  "scalar type condition",
			texts: []string{`fragment F on String { id }`},
			codes: []string{operationreport.CodeNonCompositeTypeCondition},
		},
		{
			name:  "anonymous operation",
			texts: []string{`{ viewer { id } }`},
			codes: []string{operationreport.CodeOperationNameRequired},
		},
		{
			name:  "syntax error",
			texts: []string{`query Q { viewer { id }`, `fragment F on User { id }`},
			codes: []string{operationreport.CodeSyntax},
			names: []string{"F"},
		},
		{
			name:  "undefined fragment argument",
			texts: []string{`
				fragment F on User @argumentDefinitions(size: {type: "Int"}) { avatar(size: $size) }
				query Q { viewer { ...F @arguments(width: 1) } }
			`},
			codes: []string{operationreport.CodeFragmentArgumentUndefined},
			names: []string{"F"},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			program, report := build(t, tt.texts...)
			assert.Equal(t, tt.codes, codes(report.Diagnostics))
			names := make([]string, 0)
			for _, name := range program.Names() {
				names = append(names, name.String())
			}
			if tt.names == nil {
				tt.names = []string{}
			}
			assert.Equal(t, tt.names, names)
			assertClosed(t, program)
		})
	}

	t.Run("diagnostics carry the failing definition", func(t *testing.T) {
		_, report := build(t, `query Q { viewer { missing } }`)
		require.Len(t, report.Diagnostics, 1)
		assert.Equal(t, key("Q"), report.Diagnostics[0].Definition)
		assert.Equal(t, []intern.StringKey{key("Q")}, report.FailedDefinitions())
	})
}

func TestPartialFailure(t *testing.T) {
	key := intern.Intern

	t.Run("independent definitions survive", func(t *testing.T) {
		program, report := build(t,
			`fragment A on User { id }`,
			`fragment B on User { missing }`,
			`fragment C on User { name }`,
			`query Q { viewer { ...A ...C } }`,
		)
		require.Len(t, report.Diagnostics, 1)
		assert.Equal(t, key("B"), report.Diagnostics[0].Definition)
		assert.Equal(t, []intern.StringKey{key("A"), key("C"), key("Q")}, program.Names())
		assertClosed(t, program)
	})

	t.Run("dependents are excluded with a warning", func(t *testing.T) {
		program, report := build(t,
			`fragment A on User { missing }`,
			`fragment B on User { ...A }`,
			`query Q { viewer { ...B } }`,
			`query R { viewer { id } }`,
		)
		assert.Equal(t, []string{
			operationreport.CodeFieldUndefined,
			operationreport.CodeDependencyFailed,
			operationreport.CodeDependencyFailed,
		}, codes(report.Diagnostics))
		assert.Equal(t, 1, report.Diagnostics.Count(operationreport.SeverityError))
		assert.Equal(t, []intern.StringKey{key("R")}, program.Names())

		warnings := make(map[intern.StringKey]operationreport.Diagnostic)
		for _, d := range report.Diagnostics {
			if d.Severity == operationreport.SeverityWarning {
				warnings[d.Definition] = d
			}
		}
		require.Contains(t, warnings, key("B"))
		require.Contains(t, warnings, key("Q"))
		require.Len(t, warnings[key("Q")].Related, 1)
	})

	t.Run("cycles", func(t *testing.T) {
		program, report := build(t,
			`fragment A on User { friends { ...B } }`,
			`fragment B on User { friends { ...A } }`,
			`fragment S on User { friends { ...S } }`,
			`query Q { viewer { ...A } }`,
			`query R { viewer { id } }`,
		)
		assert.Equal(t, []string{
			operationreport.CodeDependencyFailed,
			operationreport.CodeFragmentSpreadCycle,
			operationreport.CodeFragmentSpreadCycle,
			operationreport.CodeDependencyFailed,
		}, codes(report.Diagnostics))

		cycles := make(map[intern.StringKey]string)
		for _, d := range report.Diagnostics {
			if d.Code == operationreport.CodeFragmentSpreadCycle {
				cycles[d.Definition] = d.Message
			}
		}
		assert.Equal(t, map[intern.StringKey]string{
			key("B"): "fragment: A spreads itself through A -> B -> A",
			key("S"): "fragment: S spreads itself through S -> S",
		}, cycles)
		assert.Equal(t, []intern.StringKey{key("R")}, program.Names())
	})

	t.Run("longer cycle is reported once", func(t *testing.T) {
		program, report := build(t,
			`fragment A on User { friends { ...B } }`,
			`fragment B on User { friends { ...C } }`,
			`fragment C on User { friends { ...A } }`,
			`query R { viewer { id } }`,
		)
		require.Equal(t, 1, report.Diagnostics.Count(operationreport.SeverityError))
		var cycle operationreport.Diagnostic
		for _, d := range report.Diagnostics {
			if d.Severity == operationreport.SeverityError {
				cycle = d
			}
		}
		assert.Equal(t, operationreport.CodeFragmentSpreadCycle, cycle.Code)
		assert.Equal(t, key("C"), cycle.Definition)
		assert.Equal(t, "fragment: A spreads itself through A -> B -> C -> A", cycle.Message)
		require.Len(t, cycle.Related, 1)
		assert.Equal(t, []string{
			operationreport.CodeDependencyFailed,
			operationreport.CodeDependencyFailed,
			operationreport.CodeFragmentSpreadCycle,
		}, codes(report.Diagnostics))
		assert.Equal(t, []intern.StringKey{key("R")}, program.Names())
	})

	t.Run("duplicates", func(t *testing.T) {
		program, report := build(t,
			`fragment F on User { id }`,
			`fragment F on User { name }`,
			`query Q { viewer { ...F } }`,
			`query R { viewer { id } }`,
		)
		assert.Equal(t, []string{
			operationreport.CodeDuplicateDefinition,
			operationreport.CodeDuplicateDefinition,
			operationreport.CodeDependencyFailed,
		}, codes(report.Diagnostics))
		assert.Equal(t, []intern.StringKey{key("R")}, program.Names())
	})
}

func TestDocumentCache(t *testing.T) {
	cache, err := NewDocumentCache(8)
	require.NoError(t, err)

	doc := document("a.graphql", `query Q { viewer { id } }`)
	first, diagnostics := cache.Parse(doc)
	require.Empty(t, diagnostics)
	second, diagnostics := cache.Parse(doc)
	require.Empty(t, diagnostics)
	assert.Same(t, first.AST, second.AST)
	assert.Equal(t, 1, cache.Len())

	_, diagnostics = cache.Parse(document("b.graphql", `query {`))
	assert.Len(t, diagnostics, 1)
	assert.Equal(t, 2, cache.Len())

	var none *DocumentCache
	parsed, diagnostics := none.Parse(doc)
	require.Empty(t, diagnostics)
	assert.NotNil(t, parsed.AST)
	assert.Equal(t, 0, none.Len())
}

func TestLocations(t *testing.T) {
	text := "# é\nquery Q { viewer { id } }"
	program, report := build(t, text)
	require.Empty(t, report.Diagnostics)
	operation, _ := program.Operation(intern.Intern("Q"))
	start := int(operation.Location.Span.Start)
	assert.Equal(t, "query", text[start:start+5], "spans are byte offsets")
}
