package transforms

import (
	"context"
	"runtime"
	"time"

	"github.com/jensneuse/abstractlogger"
	"golang.org/x/sync/errgroup"

	"github.com/wundergraph/graphql-compiler/pkg/dependencygraph"
	"github.com/wundergraph/graphql-compiler/pkg/intern"
	"github.com/wundergraph/graphql-compiler/pkg/ir"
	"github.com/wundergraph/graphql-compiler/pkg/operationreport"
)

type Options struct {
	// ValidateModuleNames enables validate_module_names.
	ValidateModuleNames bool
}

type StageTiming struct {
	Stage       string
	Kind        Kind
	Duration    time.Duration
	Definitions int
	Diagnostics int
	Dropped     int
}

type Pipeline struct {
	stages      []Stage
	options     Options
	logger      abstractlogger.Logger
	concurrency int
}

type Option func(p *Pipeline)

func WithStages(stages ...Stage) Option {
	return func(p *Pipeline) {
		p.stages = stages
	}
}

func WithValidateModuleNames(enabled bool) Option {
	return func(p *Pipeline) {
		p.options.ValidateModuleNames = enabled
	}
}

func WithLogger(logger abstractlogger.Logger) Option {
	return func(p *Pipeline) {
		p.logger = logger
	}
}

func WithConcurrency(n int) Option {
	return func(p *Pipeline) {
		if n > 0 {
			p.concurrency = n
		}
	}
}

func NewPipeline(opts ...Option) *Pipeline {
	p := &Pipeline{
		stages:      DefaultStages(),
		logger:      abstractlogger.NoopLogger,
		concurrency: runtime.GOMAXPROCS(0),
	}
	for _, opt := range opts {
		opt(p)
	}
	return p
}

func (p *Pipeline) Stages() []Stage {
	return p.stages
}

// Run applies every stage in order. A stage starts only after the previous one finished for
// all definitions. The returned program is closed and never nil unless ctx is cancelled.
func (p *Pipeline) Run(ctx context.Context, program *ir.Program) (*ir.Program, operationreport.Report, []StageTiming) {
	var report operationreport.Report
	timings := make([]StageTiming, 0, len(p.stages))

	for _, stage := range p.stages {
		start := time.Now()
		before := len(report.Diagnostics)
		next, err := p.runStage(ctx, stage, program, &report)
		if err != nil {
			report.AddInternalError(err)
			return nil, report, timings
		}
		timing := StageTiming{
			Stage:       stage.Name,
			Kind:        stage.Kind,
			Duration:    time.Since(start),
			Definitions: program.Len(),
			Diagnostics: len(report.Diagnostics) - before,
			Dropped:     max(0, program.Len()-next.Len()),
		}
		timings = append(timings, timing)
		p.logger.Debug("transforms.stage",
			abstractlogger.String("stage", stage.Name),
			abstractlogger.Int("definitions", timing.Definitions),
			abstractlogger.Int("diagnostics", timing.Diagnostics),
			abstractlogger.Any("duration", timing.Duration),
		)
		program = next
	}

	report.Diagnostics = report.Diagnostics.Dedupe()
	report.Sort()
	return program, report, timings
}

type stageResult struct {
	definition ir.Definition
	report     operationreport.Report
	generated  []ir.Definition
}

func (p *Pipeline) runStage(ctx context.Context, stage Stage, program *ir.Program, report *operationreport.Report) (*ir.Program, error) {
	graph := dependencygraph.New(program)
	definitions := program.Definitions()
	results := make([]stageResult, len(definitions))

	g, ctx := errgroup.WithContext(ctx)
	g.SetLimit(p.concurrency)
	for i, definition := range definitions {
		g.Go(func() error {
			if err := ctx.Err(); err != nil {
				return err
			}
			c := newContext(program, graph, &p.options, definition)
			out := stage.Apply(c, definition)
			results[i] = stageResult{definition: out, report: c.report, generated: c.generated}
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}

	failed := intern.NewSet()
	for i := range results {
		report.Merge(results[i].report)
		if results[i].report.HasErrors() {
			failed.Add(definitions[i].DefinitionName())
		}
	}
	if stage.Kind == KindValidation {
		return program, nil
	}

	excluded := intern.NewSet(graph.ReachableFrom(failed.Sorted(), dependencygraph.Reverse)...)
	builder := ir.NewProgramBuilder(program.Schema())
	changed := false
	for i, definition := range definitions {
		name := definition.DefinitionName()
		if excluded.Has(name) {
			changed = true
			if !failed.Has(name) {
				reportDependencyFailure(program, graph, definition, failed, report)
			}
			continue
		}
		out := results[i].definition
		if out == nil {
			changed = true
			continue
		}
		if out != definition {
			changed = true
		}
		builder.Put(out)
	}
	for i := range results {
		if excluded.Has(definitions[i].DefinitionName()) {
			continue
		}
		for _, generated := range results[i].generated {
			if existing, ok := builder.Get(generated.DefinitionName()); ok && existing == generated {
				continue
			}
			changed = true
			builder.Put(generated)
		}
	}
	if !changed {
		return program, nil
	}
	return builder.Build()
}

// reportDependencyFailure warns that definition was dropped because a fragment it spreads failed.
func reportDependencyFailure(program *ir.Program, graph *dependencygraph.Graph, definition ir.Definition, failed intern.Set, report *operationreport.Report) {
	name := definition.DefinitionName()
	for _, dependency := range graph.Dependencies(name) {
		for _, reached := range graph.ReachableFrom([]intern.StringKey{dependency}, dependencygraph.Forward) {
			if !failed.Has(reached) {
				continue
			}
			location := definition.DefinitionLocation()
			if fragment, ok := program.Fragment(reached); ok {
				location = fragment.Location
			}
			report.AddDiagnostic(operationreport.ErrDependencyFailed(name.String(), reached.String(), definition.DefinitionLocation(), location).WithDefinition(name))
			return
		}
	}
}
