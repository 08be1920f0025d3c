// Package transforms holds the ordered validation and rewrite stages a program passes through
// before artifacts are emitted, and the pipeline running them.
package transforms

import (
	"github.com/wundergraph/graphql-compiler/pkg/dependencygraph"
	"github.com/wundergraph/graphql-compiler/pkg/intern"
	"github.com/wundergraph/graphql-compiler/pkg/ir"
	"github.com/wundergraph/graphql-compiler/pkg/operationreport"
	"github.com/wundergraph/graphql-compiler/pkg/schema"
)

type Kind uint8

const (
	// KindValidation stages only report. They never change or drop definitions.
	KindValidation Kind = iota
	// KindRewrite stages return a rewritten definition. A definition with an error diagnostic
	// is dropped together with everything spreading it.
	KindRewrite
)

func (k Kind) String() string {
	if k == KindRewrite {
		return "rewrite"
	}
	return "validation"
}

const (
	StageValidateReservedAliases    = "validate_reserved_aliases"
	StageValidateModuleNames        = "validate_module_names"
	StageValidateRequiredArguments  = "validate_required_arguments"
	StageValidateDeferStream        = "validate_defer_stream"
	StageValidateConnections        = "validate_connections"
	StageTransformConnections       = "transform_connections"
	StageTransformMatch             = "transform_match"
	StageTransformDeferStream       = "transform_defer_stream"
	StageApplyFragmentArguments     = "apply_fragment_arguments"
	StageValidateOperationVariables = "validate_operation_variables"
	StageValidateSelectionConflicts = "validate_selection_conflicts"
	StageGenerateConnectionFields   = "generate_connection_fields"
	StageGenerateTypename           = "generate_typename"
	StageFlattenInlineFragments     = "flatten_inline_fragments"
	StageDeduplicateSelections      = "deduplicate_selections"
	StageSortSelections             = "sort_selections"
)

// Stage is one step of the pipeline. Apply is called once per definition, concurrently for
// different definitions, and must only read the program.
type Stage struct {
	Name  string
	Kind  Kind
	Apply func(c *Context, definition ir.Definition) ir.Definition
}

// DefaultStages returns every stage in pipeline order. Metadata producing rewrites run
// before the stages consuming the metadata, conflict validation runs after fragment
// arguments were applied.
func DefaultStages() []Stage {
	return []Stage{
		{Name: StageValidateReservedAliases, Kind: KindValidation, Apply: validateReservedAliases},
		{Name: StageValidateModuleNames, Kind: KindValidation, Apply: validateModuleNames},
		{Name: StageValidateRequiredArguments, Kind: KindValidation, Apply: validateRequiredArguments},
		{Name: StageValidateDeferStream, Kind: KindValidation, Apply: validateDeferStream},
		{Name: StageValidateConnections, Kind: KindValidation, Apply: validateConnections},
		{Name: StageTransformConnections, Kind: KindRewrite, Apply: transformConnections},
		{Name: StageTransformMatch, Kind: KindRewrite, Apply: transformMatch},
		{Name: StageTransformDeferStream, Kind: KindRewrite, Apply: transformDeferStream},
		{Name: StageApplyFragmentArguments, Kind: KindRewrite, Apply: applyFragmentArguments},
		{Name: StageValidateOperationVariables, Kind: KindValidation, Apply: validateOperationVariables},
		{Name: StageValidateSelectionConflicts, Kind: KindValidation, Apply: validateSelectionConflicts},
		{Name: StageGenerateConnectionFields, Kind: KindRewrite, Apply: generateConnectionFields},
		{Name: StageGenerateTypename, Kind: KindRewrite, Apply: generateTypename},
		{Name: StageFlattenInlineFragments, Kind: KindRewrite, Apply: flattenInlineFragments},
		{Name: StageDeduplicateSelections, Kind: KindRewrite, Apply: deduplicateSelections},
		{Name: StageSortSelections, Kind: KindRewrite, Apply: sortSelections},
	}
}

// Context is what a stage sees while processing one definition.
type Context struct {
	Program *ir.Program
	Schema  schema.Schema
	Options *Options

	graph      *dependencygraph.Graph
	definition ir.Definition
	report     operationreport.Report
	generated  []ir.Definition
}

func newContext(program *ir.Program, graph *dependencygraph.Graph, options *Options, definition ir.Definition) *Context {
	return &Context{
		Program:    program,
		Schema:     program.Schema(),
		Options:    options,
		graph:      graph,
		definition: definition,
	}
}

func (c *Context) Definition() ir.Definition {
	return c.definition
}

// AddDiagnostic records a diagnostic owned by the current definition.
func (c *Context) AddDiagnostic(diagnostic operationreport.Diagnostic) {
	c.report.AddDiagnostic(diagnostic.WithDefinition(c.definition.DefinitionName()))
}

func (c *Context) Report() *operationreport.Report {
	return &c.report
}

// Generate adds a definition created for the current one, e.g. a specialized fragment.
func (c *Context) Generate(definition ir.Definition) {
	c.generated = append(c.generated, definition)
}

func (c *Context) Fragment(name intern.StringKey) (*ir.Fragment, bool) {
	return c.Program.Fragment(name)
}

// Closure returns the fragments the current definition spreads transitively, by name.
func (c *Context) Closure() []*ir.Fragment {
	name := c.definition.DefinitionName()
	reachable := c.graph.ReachableFrom([]intern.StringKey{name}, dependencygraph.Forward)
	out := make([]*ir.Fragment, 0, len(reachable))
	for _, reached := range reachable {
		if reached == name {
			continue
		}
		if fragment, ok := c.Program.Fragment(reached); ok {
			out = append(out, fragment)
		}
	}
	return out
}
