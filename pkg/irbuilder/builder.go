// Package irbuilder turns parsed GraphQL documents into a closed ir.Program.
//
// Building is local to each definition: a definition with problems is reported and
// left out, and so is everything that spreads it. The rest of the program builds.
package irbuilder

import (
	"context"
	"runtime"

	"github.com/jensneuse/abstractlogger"
	"golang.org/x/sync/errgroup"

	"github.com/wundergraph/graphql-compiler/pkg/intern"
	"github.com/wundergraph/graphql-compiler/pkg/ir"
	"github.com/wundergraph/graphql-compiler/pkg/operationreport"
	"github.com/wundergraph/graphql-compiler/pkg/schema"
)

type Builder struct {
	schema      schema.Schema
	cache       *DocumentCache
	logger      abstractlogger.Logger
	concurrency int
}

type Option func(b *Builder)

// WithDocumentCache shares parse results between builds.
func WithDocumentCache(cache *DocumentCache) Option {
	return func(b *Builder) {
		b.cache = cache
	}
}

func WithLogger(logger abstractlogger.Logger) Option {
	return func(b *Builder) {
		b.logger = logger
	}
}

// WithConcurrency bounds the number of definitions built in parallel.
func WithConcurrency(n int) Option {
	return func(b *Builder) {
		if n > 0 {
			b.concurrency = n
		}
	}
}

func New(s schema.Schema, opts ...Option) *Builder {
	b := &Builder{
		schema:      s,
		logger:      abstractlogger.NoopLogger,
		concurrency: runtime.GOMAXPROCS(0),
	}
	for _, opt := range opts {
		opt(b)
	}
	return b
}

func (b *Builder) Schema() schema.Schema {
	return b.schema
}

// Parse parses documents in parallel. Documents with syntax errors are reported and
// left out of the result, which keeps the input order otherwise.
func (b *Builder) Parse(ctx context.Context, documents []Document) ([]*ParsedDocument, operationreport.Report) {
	parsed := make([]*ParsedDocument, len(documents))
	diagnostics := make([]operationreport.Diagnostics, len(documents))

	g, ctx := errgroup.WithContext(ctx)
	g.SetLimit(b.concurrency)
	for i := range documents {
		g.Go(func() error {
			if err := ctx.Err(); err != nil {
				return err
			}
			parsed[i], diagnostics[i] = b.cache.Parse(documents[i])
			return nil
		})
	}

	var report operationreport.Report
	if err := g.Wait(); err != nil {
		report.AddInternalError(err)
		return nil, report
	}

	out := make([]*ParsedDocument, 0, len(documents))
	for i := range documents {
		report.Diagnostics = append(report.Diagnostics, diagnostics[i]...)
		if parsed[i] != nil {
			out = append(out, parsed[i])
		}
	}
	report.Sort()
	return out, report
}

// BuildDefinitions builds the named definitions of index in parallel. Definitions with
// diagnostics are missing from the result, names unknown to the index are ignored.
func (b *Builder) BuildDefinitions(ctx context.Context, index *Index, names []intern.StringKey) (map[intern.StringKey]ir.Definition, operationreport.Report) {
	definitions := make([]ir.Definition, len(names))
	diagnostics := make([]operationreport.Diagnostics, len(names))

	g, ctx := errgroup.WithContext(ctx)
	g.SetLimit(b.concurrency)
	for i, name := range names {
		entry, ok := index.entries[name]
		if !ok {
			continue
		}
		g.Go(func() error {
			if err := ctx.Err(); err != nil {
				return err
			}
			builder := newDefinitionBuilder(b.schema, index, entry, name)
			definitions[i] = builder.build(entry)
			diagnostics[i] = builder.diagnostics
			return nil
		})
	}

	var report operationreport.Report
	if err := g.Wait(); err != nil {
		report.AddInternalError(err)
		return nil, report
	}

	out := make(map[intern.StringKey]ir.Definition, len(names))
	for i, name := range names {
		report.Diagnostics = append(report.Diagnostics, diagnostics[i]...)
		if definitions[i] != nil {
			out[name] = definitions[i]
		}
	}
	b.logger.Debug("irbuilder.BuildDefinitions",
		abstractlogger.Int("requested", len(names)),
		abstractlogger.Int("built", len(out)),
	)
	report.Sort()
	return out, report
}

// BuildProgram runs every step from source text to a closed program.
func (b *Builder) BuildProgram(ctx context.Context, documents []Document) (*ir.Program, operationreport.Report) {
	parsed, report := b.Parse(ctx, documents)
	if len(report.InternalErrors) > 0 {
		return nil, report
	}
	index, diagnostics := NewIndex(parsed)
	report.Diagnostics = append(report.Diagnostics, diagnostics...)

	definitions, built := b.BuildDefinitions(ctx, index, index.Names())
	report.Merge(built)
	if len(report.InternalErrors) > 0 {
		return nil, report
	}

	program, assembled := Assemble(b.schema, definitions, index)
	report.Merge(assembled)
	report.Diagnostics = report.Diagnostics.Dedupe()
	report.Sort()
	return program, report
}
