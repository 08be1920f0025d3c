// Package dependencygraph answers reachability questions over fragment spreads.
//
// The graph is an arena of definition names with index based adjacency lists. It is built once
// per program and never updated, build a new graph for a new program.
package dependencygraph

import (
	"fmt"
	"slices"

	"github.com/phf/go-queue/queue"

	"github.com/wundergraph/graphql-compiler/pkg/intern"
	"github.com/wundergraph/graphql-compiler/pkg/ir"
)

type Direction uint8

const (
	// Forward follows spreads to the fragments a definition needs.
	Forward Direction = iota
	// Reverse follows spreads backwards to the definitions including a fragment.
	Reverse
)

func (d Direction) String() string {
	if d == Reverse {
		return "reverse"
	}
	return "forward"
}

type Graph struct {
	names   []intern.StringKey
	index   map[intern.StringKey]int
	forward [][]int
	reverse [][]int
	// missing holds spread targets that aren't part of the graph.
	missing map[int][]intern.StringKey
}

// New builds the graph of a closed program.
func New(program *ir.Program) *Graph {
	return FromDefinitions(program.Definitions())
}

// FromDefinitions builds a graph from definitions that need not be closed. Spreads to names
// outside of definitions are recorded and reported by Missing.
func FromDefinitions(definitions []ir.Definition) *Graph {
	g := &Graph{
		names: make([]intern.StringKey, 0, len(definitions)),
		index: make(map[intern.StringKey]int, len(definitions)),
	}
	for _, definition := range definitions {
		g.names = append(g.names, definition.DefinitionName())
	}
	intern.Sort(g.names)
	g.names = slices.Compact(g.names)
	for i, name := range g.names {
		g.index[name] = i
	}

	byName := make(map[intern.StringKey]ir.Definition, len(definitions))
	for _, definition := range definitions {
		byName[definition.DefinitionName()] = definition
	}

	g.forward = make([][]int, len(g.names))
	g.reverse = make([][]int, len(g.names))
	for from, name := range g.names {
		for _, spread := range ir.Spreads(byName[name]) {
			to, ok := g.index[spread.Fragment]
			if !ok || byName[spread.Fragment].DefinitionKind() != ir.DefinitionKindFragment {
				if g.missing == nil {
					g.missing = make(map[int][]intern.StringKey)
				}
				if !slices.Contains(g.missing[from], spread.Fragment) {
					g.missing[from] = append(g.missing[from], spread.Fragment)
				}
				continue
			}
			if slices.Contains(g.forward[from], to) {
				continue
			}
			g.forward[from] = append(g.forward[from], to)
			g.reverse[to] = append(g.reverse[to], from)
		}
	}
	for i := range g.names {
		slices.Sort(g.forward[i])
		slices.Sort(g.reverse[i])
	}
	return g
}

func (g *Graph) Len() int {
	return len(g.names)
}

func (g *Graph) Has(name intern.StringKey) bool {
	_, ok := g.index[name]
	return ok
}

// Names returns every node in lexical order.
func (g *Graph) Names() []intern.StringKey {
	return slices.Clone(g.names)
}

// Dependencies returns the fragments name spreads directly.
func (g *Graph) Dependencies(name intern.StringKey) []intern.StringKey {
	return g.neighbours(name, Forward)
}

// Dependents returns the definitions spreading name directly.
func (g *Graph) Dependents(name intern.StringKey) []intern.StringKey {
	return g.neighbours(name, Reverse)
}

func (g *Graph) neighbours(name intern.StringKey, direction Direction) []intern.StringKey {
	i, ok := g.index[name]
	if !ok {
		return nil
	}
	edges := g.forward[i]
	if direction == Reverse {
		edges = g.reverse[i]
	}
	out := make([]intern.StringKey, 0, len(edges))
	for _, j := range edges {
		out = append(out, g.names[j])
	}
	return out
}

// Missing returns, per definition, spread targets that aren't fragments of the graph.
func (g *Graph) Missing() map[intern.StringKey][]intern.StringKey {
	if len(g.missing) == 0 {
		return nil
	}
	out := make(map[intern.StringKey][]intern.StringKey, len(g.missing))
	for i, names := range g.missing {
		sorted := slices.Clone(names)
		intern.Sort(sorted)
		out[g.names[i]] = sorted
	}
	return out
}

// ReachableFrom returns roots plus every definition transitively reachable from them in direction,
// in lexical order. Roots unknown to the graph are ignored.
func (g *Graph) ReachableFrom(roots []intern.StringKey, direction Direction) []intern.StringKey {
	adjacency := g.forward
	if direction == Reverse {
		adjacency = g.reverse
	}

	visited := make([]bool, len(g.names))
	q := queue.New()
	for _, root := range roots {
		i, ok := g.index[root]
		if !ok || visited[i] {
			continue
		}
		visited[i] = true
		q.PushBack(i)
	}
	for q.Len() != 0 {
		i := q.PopFront().(int)
		for _, j := range adjacency[i] {
			if visited[j] {
				continue
			}
			visited[j] = true
			q.PushBack(j)
		}
	}

	// names are sorted, so collecting in index order yields lexical order
	out := make([]intern.StringKey, 0)
	for i, ok := range visited {
		if ok {
			out = append(out, g.names[i])
		}
	}
	return out
}

// Cycles returns the strongly connected components that contain a cycle, each sorted,
// ordered by their first member.
func (g *Graph) Cycles() [][]intern.StringKey {
	t := tarjan{
		g:       g,
		index:   make([]int, len(g.names)),
		lowlink: make([]int, len(g.names)),
		onStack: make([]bool, len(g.names)),
	}
	for i := range t.index {
		t.index[i] = -1
	}
	for i := range g.names {
		if t.index[i] == -1 {
			t.strongConnect(i)
		}
	}
	slices.SortFunc(t.components, func(a, b []intern.StringKey) int {
		return a[0].Compare(b[0])
	})
	return t.components
}

// tarjan finds strongly connected components with a depth first search that keeps an on-stack marker.
type tarjan struct {
	g          *Graph
	counter    int
	index      []int
	lowlink    []int
	onStack    []bool
	stack      []int
	components [][]intern.StringKey
}

func (t *tarjan) strongConnect(v int) {
	t.index[v] = t.counter
	t.lowlink[v] = t.counter
	t.counter++
	t.stack = append(t.stack, v)
	t.onStack[v] = true

	for _, w := range t.g.forward[v] {
		if t.index[w] == -1 {
			t.strongConnect(w)
			t.lowlink[v] = min(t.lowlink[v], t.lowlink[w])
		} else if t.onStack[w] {
			t.lowlink[v] = min(t.lowlink[v], t.index[w])
		}
	}

	if t.lowlink[v] != t.index[v] {
		return
	}
	var component []intern.StringKey
	for {
		w := t.stack[len(t.stack)-1]
		t.stack = t.stack[:len(t.stack)-1]
		t.onStack[w] = false
		component = append(component, t.g.names[w])
		if w == v {
			break
		}
	}
	if len(component) > 1 || slices.Contains(t.g.forward[v], v) {
		intern.Sort(component)
		t.components = append(t.components, component)
	}
}

// Minimize returns the closed program holding roots and everything they spread.
// Definitions not reachable from roots are left out entirely.
func Minimize(program *ir.Program, roots []intern.StringKey) (*ir.Program, error) {
	return MinimizeWith(New(program), program, roots)
}

// MinimizeWith is Minimize reusing an already built graph of program.
func MinimizeWith(g *Graph, program *ir.Program, roots []intern.StringKey) (*ir.Program, error) {
	b := ir.NewProgramBuilder(program.Schema())
	for _, name := range g.ReachableFrom(roots, Forward) {
		definition, ok := program.Definition(name)
		if !ok {
			return nil, fmt.Errorf("graph does not match program: %s", name)
		}
		b.Put(definition)
	}
	return b.Build()
}

// TypeIndex maps schema type names to the definitions referencing them.
type TypeIndex map[intern.StringKey][]intern.StringKey

func NewTypeIndex(definitions []ir.Definition) TypeIndex {
	out := make(TypeIndex)
	for _, definition := range definitions {
		for _, typeName := range ir.ReferencedTypes(definition) {
			out[typeName] = append(out[typeName], definition.DefinitionName())
		}
	}
	for typeName := range out {
		intern.Sort(out[typeName])
	}
	return out
}

// Referencing returns the definitions referencing any of types, in lexical order.
func (t TypeIndex) Referencing(types []intern.StringKey) []intern.StringKey {
	out := intern.NewSet()
	for _, typeName := range types {
		out.Add(t[typeName]...)
	}
	return out.Sorted()
}
