package dependencygraph

import (
	"fmt"
	"math/rand"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/wundergraph/graphql-compiler/pkg/intern"
	"github.com/wundergraph/graphql-compiler/pkg/ir"
	"github.com/wundergraph/graphql-compiler/pkg/schema"
)

var testSchema = schema.MustLoad(`
type Query { viewer: User }
type User { id: ID! }
`)

var idField = schema.FieldRef{Parent: intern.Intern("User"), Name: intern.Intern("id"), Type: schema.Named("ID").AsNonNull()}

func spreads(names ...string) []ir.Selection {
	out := []ir.Selection{&ir.ScalarField{Definition: idField}}
	for _, name := range names {
		out = append(out, &ir.FragmentSpread{Fragment: intern.Intern(name)})
	}
	return out
}

func fragment(name string, spreadNames ...string) ir.Definition {
	return &ir.Fragment{Name: intern.Intern(name), TypeCondition: intern.Intern("User"), Selections: spreads(spreadNames...)}
}

func operation(name string, spreadNames ...string) ir.Definition {
	return &ir.Operation{
		Name: intern.Intern(name),
		Type: intern.Intern("Query"),
		Selections: []ir.Selection{&ir.LinkedField{
			Definition: schema.FieldRef{Parent: intern.Intern("Query"), Name: intern.Intern("viewer"), Type: schema.Named("User")},
			Selections: spreads(spreadNames...),
		}},
	}
}

func keys(names ...string) []intern.StringKey {
	return intern.InternAll(names...)
}

func TestReachableFrom(t *testing.T) {
	program, err := ir.NewProgram(testSchema,
		operation("QueryA", "A"),
		operation("QueryC", "C"),
		fragment("A", "B"),
		fragment("B"),
		fragment("C"),
		fragment("Unused", "B"),
	)
	require.NoError(t, err)
	g := New(program)

	run := func(roots []string, direction Direction, expected []string) func(t *testing.T) {
		return func(t *testing.T) {
			assert.Equal(t, expected, intern.Strings(g.ReachableFrom(keys(roots...), direction)))
		}
	}

	t.Run("forward from operation", run([]string{"QueryA"}, Forward, []string{"A", "B", "QueryA"}))
	t.Run("forward from leaf", run([]string{"B"}, Forward, []string{"B"}))
	t.Run("reverse from leaf", run([]string{"B"}, Reverse, []string{"A", "B", "QueryA", "Unused"}))
	t.Run("reverse from operation", run([]string{"QueryC"}, Reverse, []string{"QueryC"}))
	t.Run("unknown roots are ignored", run([]string{"Nope"}, Forward, []string{}))
	t.Run("several roots", run([]string{"QueryA", "QueryC"}, Forward, []string{"A", "B", "C", "QueryA", "QueryC"}))

	assert.Equal(t, []string{"A", "Unused"}, intern.Strings(g.Dependents(intern.Intern("B"))))
	assert.Equal(t, []string{"B"}, intern.Strings(g.Dependencies(intern.Intern("A"))))
	assert.Nil(t, g.Missing())
	assert.Empty(t, g.Cycles())
}

func TestMinimize(t *testing.T) {
	program, err := ir.NewProgram(testSchema,
		operation("QueryA", "A"),
		operation("QueryC", "C"),
		fragment("A", "B"),
		fragment("B"),
		fragment("C"),
	)
	require.NoError(t, err)

	minimized, err := Minimize(program, keys("QueryA"))
	require.NoError(t, err)
	assert.Equal(t, []string{"A", "B", "QueryA"}, intern.Strings(minimized.Names()))
	assert.False(t, minimized.Has(intern.Intern("C")))
}

func TestCycles(t *testing.T) {
	g := FromDefinitions([]ir.Definition{
		fragment("A", "B"),
		fragment("B", "A"),
		fragment("Self", "Self"),
		fragment("C", "A"),
		fragment("D", "Missing"),
	})

	cycles := g.Cycles()
	require.Len(t, cycles, 2)
	assert.Equal(t, []string{"A", "B"}, intern.Strings(cycles[0]))
	assert.Equal(t, []string{"Self"}, intern.Strings(cycles[1]))

	missing := g.Missing()
	assert.Equal(t, []string{"Missing"}, intern.Strings(missing[intern.Intern("D")]))
}

func TestTypeIndex(t *testing.T) {
	index := NewTypeIndex([]ir.Definition{operation("Q", "A"), fragment("A")})
	assert.Equal(t, []string{"A", "Q"}, intern.Strings(index.Referencing(keys("User"))))
	assert.Equal(t, []string{"Q"}, intern.Strings(index.Referencing(keys("Query"))))
	assert.Empty(t, index.Referencing(keys("Other")))
}

// forward reachable definitions must reach a root in reverse and every spread of an
// included definition must be included.
func TestReachability_Properties(t *testing.T) {
	rng := rand.New(rand.NewSource(7))
	for round := 0; round < 50; round++ {
		n := 3 + rng.Intn(12)
		var definitions []ir.Definition
		for i := 0; i < n; i++ {
			var targets []string
			// only spread fragments with a higher index to stay acyclic
			for j := i + 1; j < n; j++ {
				if rng.Intn(4) == 0 {
					targets = append(targets, fmt.Sprintf("F%02d", j))
				}
			}
			definitions = append(definitions, fragment(fmt.Sprintf("F%02d", i), targets...))
		}
		program, err := ir.NewProgram(testSchema, definitions...)
		require.NoError(t, err)
		g := New(program)

		roots := keys(fmt.Sprintf("F%02d", rng.Intn(n)))
		forward := intern.NewSet(g.ReachableFrom(roots, Forward)...)
		for name := range forward {
			backwards := intern.NewSet(g.ReachableFrom([]intern.StringKey{name}, Reverse)...)
			assert.True(t, backwards.Has(roots[0]), "round %d: %s must reach root", round, name)
			for _, dependency := range g.Dependencies(name) {
				assert.True(t, forward.Has(dependency), "round %d: %s missing", round, dependency)
			}
		}
		for _, name := range g.Names() {
			if forward.Has(name) {
				continue
			}
			backwards := intern.NewSet(g.ReachableFrom([]intern.StringKey{name}, Reverse)...)
			assert.False(t, backwards.Has(roots[0]) && name != roots[0], "round %d: %s excluded but reachable", round, name)
		}
	}
}
