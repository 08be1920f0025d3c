package irbuilder

import (
	"slices"

	"github.com/wundergraph/graphql-compiler/pkg/dependencygraph"
	"github.com/wundergraph/graphql-compiler/pkg/intern"
	"github.com/wundergraph/graphql-compiler/pkg/ir"
	"github.com/wundergraph/graphql-compiler/pkg/operationreport"
	"github.com/wundergraph/graphql-compiler/pkg/position"
	"github.com/wundergraph/graphql-compiler/pkg/schema"
)

// Assemble closes a set of built definitions into a program. A cycle of fragment spreads is
// reported once, at the spread closing it, and all of its members are left out. Definitions depending on a cycle, on a definition that
// failed to build or on a duplicated name are left out with a warning naming the dependency.
// index may be nil, dependency locations are generated then.
func Assemble(s schema.Schema, definitions map[intern.StringKey]ir.Definition, index *Index) (*ir.Program, operationreport.Report) {
	var report operationreport.Report

	list := make([]ir.Definition, 0, len(definitions))
	for _, name := range sortedNames(definitions) {
		list = append(list, definitions[name])
	}
	graph := dependencygraph.FromDefinitions(list)

	failed := intern.NewSet()
	cycles := spreadCycles(definitions)
	report.Diagnostics = append(report.Diagnostics, cycles...)

	dependencyLocation := func(name intern.StringKey) position.Location {
		if definition, ok := definitions[name]; ok {
			return definition.DefinitionLocation()
		}
		if index != nil {
			if location, ok := index.Location(name); ok {
				return location
			}
			if location, ok := index.DuplicateLocation(name); ok {
				return location
			}
		}
		return position.GeneratedLocation
	}
	exclude := func(name, dependency intern.StringKey) {
		report.AddDiagnostic(operationreport.ErrDependencyFailed(name.String(), dependency.String(),
			definitions[name].DefinitionLocation(), dependencyLocation(dependency)).WithDefinition(name))
	}

	// members of a cycle not closing it are excluded with a warning naming the member they spread
	reported := intern.NewSet()
	for i := range cycles {
		reported.Add(cycles[i].Definition)
	}
	for _, component := range graph.Cycles() {
		members := intern.NewSet(component...)
		failed.AddSet(members)
		for _, name := range component {
			if reported.Has(name) {
				continue
			}
			for _, dependency := range graph.Dependencies(name) {
				if members.Has(dependency) {
					exclude(name, dependency)
					break
				}
			}
		}
	}

	missing := graph.Missing()
	for _, name := range sortedNames(missing) {
		if failed.Has(name) {
			continue
		}
		failed.Add(name)
		exclude(name, missing[name][0])
	}

	for _, name := range graph.ReachableFrom(failed.Sorted(), dependencygraph.Reverse) {
		if failed.Has(name) {
			continue
		}
		for _, dependency := range graph.Dependencies(name) {
			if !reachesFailure(graph, dependency, failed) {
				continue
			}
			exclude(name, dependency)
			break
		}
	}

	builder := ir.NewProgramBuilder(s)
	excluded := intern.NewSet(graph.ReachableFrom(failed.Sorted(), dependencygraph.Reverse)...)
	for _, definition := range list {
		if excluded.Has(definition.DefinitionName()) {
			continue
		}
		builder.Put(definition)
	}
	program, err := builder.Build()
	if err != nil {
		report.AddInternalError(err)
		return nil, report
	}
	report.Sort()
	return program, report
}

// spreadCycles walks spreads depth first in name order and reports every spread that reaches a
// fragment still on the stack, once, at that spread.
func spreadCycles(definitions map[intern.StringKey]ir.Definition) operationreport.Diagnostics {
	const (
		unvisited = iota
		onStack
		done
	)
	var (
		diagnostics operationreport.Diagnostics
		marks       = make(map[intern.StringKey]int, len(definitions))
		stack       []intern.StringKey
		visit       func(name intern.StringKey)
	)
	visit = func(name intern.StringKey) {
		marks[name] = onStack
		stack = append(stack, name)
		for _, spread := range ir.Spreads(definitions[name]) {
			target, ok := definitions[spread.Fragment]
			if !ok || target.DefinitionKind() != ir.DefinitionKindFragment {
				continue
			}
			switch marks[spread.Fragment] {
			case unvisited:
				visit(spread.Fragment)
			case onStack:
				start := slices.Index(stack, spread.Fragment)
				path := append(intern.Strings(stack[start:]), spread.Fragment.String())
				diagnostics = append(diagnostics, operationreport.ErrFragmentSpreadCycle(path, spread.Location, target.DefinitionLocation()).WithDefinition(name))
			}
		}
		stack = stack[:len(stack)-1]
		marks[name] = done
	}
	for _, name := range sortedNames(definitions) {
		if marks[name] == unvisited {
			visit(name)
		}
	}
	return diagnostics
}

// reachesFailure reports whether name is failed or depends on a failed definition.
func reachesFailure(graph *dependencygraph.Graph, name intern.StringKey, failed intern.Set) bool {
	for _, reached := range graph.ReachableFrom([]intern.StringKey{name}, dependencygraph.Forward) {
		if failed.Has(reached) {
			return true
		}
	}
	return false
}

func sortedNames[V any](m map[intern.StringKey]V) []intern.StringKey {
	out := make([]intern.StringKey, 0, len(m))
	for name := range m {
		out = append(out, name)
	}
	intern.Sort(out)
	return out
}
