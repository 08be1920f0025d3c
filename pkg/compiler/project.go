package compiler

import (
	"context"
	"errors"
	"fmt"
	"sort"

	"github.com/google/uuid"
	"github.com/jensneuse/abstractlogger"
	"go.uber.org/atomic"

	"github.com/wundergraph/graphql-compiler/pkg/artifact"
	"github.com/wundergraph/graphql-compiler/pkg/compiler/redgreen"
	"github.com/wundergraph/graphql-compiler/pkg/config"
	"github.com/wundergraph/graphql-compiler/pkg/dependencygraph"
	"github.com/wundergraph/graphql-compiler/pkg/extract"
	"github.com/wundergraph/graphql-compiler/pkg/intern"
	"github.com/wundergraph/graphql-compiler/pkg/ir"
	"github.com/wundergraph/graphql-compiler/pkg/irbuilder"
	"github.com/wundergraph/graphql-compiler/pkg/operationreport"
	"github.com/wundergraph/graphql-compiler/pkg/position"
	"github.com/wundergraph/graphql-compiler/pkg/schema"
	"github.com/wundergraph/graphql-compiler/pkg/transforms"
)

const documentCacheSize = 4096

type sourceFile struct {
	text        string
	sources     []position.Source
	diagnostics operationreport.Diagnostics
	unreadable  bool
}

func (f *sourceFile) readable() bool {
	return !f.unreadable
}

// ProjectState is the incremental state of one project. Builds are serialized by CompilerState,
// only Generation and State are safe for concurrent use.
type ProjectState struct {
	config  *config.Project
	root    string
	options *options

	state     atomic.Uint32
	published atomic.Pointer[Generation]

	schemaFiles    map[string]string
	extensionFiles map[string]string
	schemaPending  map[string]struct{}
	sourcePending  map[string]struct{}
	files          map[string]*sourceFile
	fullRebuild    bool
	// restoring holds the snapshot texts files are read from while a snapshot is compiled.
	restoring map[string]string

	schema      *schema.ParsedSchema
	source      *ir.Program
	program     *ir.Program
	diagnostics operationreport.Diagnostics
	failed      intern.Set
	fileNames   map[string][]intern.StringKey
	artifacts   ArtifactMap
	number      uint64

	redgreen *redgreen.Tracker
	cache    *irbuilder.DocumentCache
	emitter  *artifact.Emitter
}

func newProjectState(project *config.Project, root string, opts *options) (*ProjectState, error) {
	cache, err := irbuilder.NewDocumentCache(documentCacheSize)
	if err != nil {
		return nil, err
	}
	concurrency := int64(opts.concurrency)
	emitterOptions := []artifact.EmitterOption{artifact.WithEmitterLogger(opts.logger)}
	if persister := opts.persister(project); persister != nil {
		emitterOptions = append(emitterOptions, artifact.WithPersister(persister))
		if project.Persist != nil && project.Persist.Concurrency > 0 {
			concurrency = int64(project.Persist.Concurrency)
		}
	}

	p := &ProjectState{
		config:         project,
		root:           root,
		options:        opts,
		schemaFiles:    make(map[string]string),
		extensionFiles: make(map[string]string),
		schemaPending:  make(map[string]struct{}),
		sourcePending:  make(map[string]struct{}),
		files:          make(map[string]*sourceFile),
		fullRebuild:    true,
		failed:         intern.NewSet(),
		fileNames:      make(map[string][]intern.StringKey),
		artifacts:      make(ArtifactMap),
		redgreen:       redgreen.New(redgreen.WithClock(opts.clock)),
		cache:          cache,
		emitter:        artifact.NewEmitter(opts.writer(project), concurrency, emitterOptions...),
	}
	p.state.Store(uint32(Clean))
	return p, nil
}

func (p *ProjectState) Name() string {
	return p.config.Name
}

func (p *ProjectState) State() Lifecycle {
	return Lifecycle(p.state.Load())
}

// Generation returns the last published generation, nil before the first successful build.
func (p *ProjectState) Generation() *Generation {
	return p.published.Load()
}

// Failing lists the definitions currently red.
func (p *ProjectState) Failing() []redgreen.Red {
	return p.redgreen.Failing()
}

// enqueue records a classified change. It reports whether the project needs a build.
func (p *ProjectState) enqueue(change FileChange, kind FileKind) bool {
	switch kind {
	case FileKindSchema, FileKindExtension:
		p.schemaPending[change.Path] = struct{}{}
	case FileKindSource:
		p.sourcePending[change.Path] = struct{}{}
	default:
		return false
	}
	p.state.Store(uint32(Dirty))
	return true
}

// knownPaths lists every file the project currently holds.
func (p *ProjectState) knownPaths() []string {
	out := make([]string, 0, len(p.files)+len(p.schemaFiles)+len(p.extensionFiles))
	for _, files := range []map[string]string{p.schemaFiles, p.extensionFiles} {
		for path := range files {
			out = append(out, path)
		}
	}
	for path := range p.files {
		out = append(out, path)
	}
	sort.Strings(out)
	return out
}

// texts returns the text of every schema, extension and readable source file.
func (p *ProjectState) texts() map[string]string {
	out := make(map[string]string, len(p.files)+len(p.schemaFiles)+len(p.extensionFiles))
	for _, files := range []map[string]string{p.schemaFiles, p.extensionFiles} {
		for path, text := range files {
			out[path] = text
		}
	}
	for path, file := range p.files {
		if file.readable() {
			out[path] = file.text
		}
	}
	return out
}

func (p *ProjectState) readFile(path string) (string, bool, error) {
	if p.restoring != nil {
		text, ok := p.restoring[path]
		return text, ok, nil
	}
	data, err := p.options.readFile(path)
	if err != nil {
		if isNotExist(err) {
			return "", false, nil
		}
		return "", false, err
	}
	return string(data), true, nil
}

func (p *ProjectState) fail(result *ProjectGenerationResult, err error, diagnostics operationreport.Diagnostics) ProjectGenerationResult {
	p.fullRebuild = true
	p.state.Store(uint32(Failed))
	result.State = Failed
	result.Fatal = err
	result.Diagnostics = diagnostics
	if current := p.published.Load(); current != nil {
		result.GenerationID = current.ID
	}
	p.options.logger.Error("compiler.generation",
		abstractlogger.String("project", p.config.Name),
		abstractlogger.Error(err),
	)
	return *result
}

// build runs one generation over the pending changes.
func (p *ProjectState) build(ctx context.Context) (result ProjectGenerationResult) {
	start := p.options.clock()
	p.state.Store(uint32(Building))
	result.Project = p.config.Name
	defer func() {
		result.Duration = p.options.clock().Sub(start)
	}()

	changedTypes, err := p.updateSchema()
	if err != nil {
		var loadErr *schema.LoadError
		if errors.As(err, &loadErr) {
			return p.fail(&result, fmt.Errorf("%w: invalid schema: %w", ErrProjectFailed, err), loadErr.Diagnostics)
		}
		return p.fail(&result, fmt.Errorf("%w: %w", ErrProjectFailed, err), nil)
	}

	changedFiles := p.updateSources(ctx)
	documents, sources, extractionDiagnostics := p.documents()

	builder := irbuilder.New(p.schema,
		irbuilder.WithDocumentCache(p.cache),
		irbuilder.WithLogger(p.options.logger),
		irbuilder.WithConcurrency(p.options.concurrency),
	)
	var report operationreport.Report
	parsed, parseReport := builder.Parse(ctx, documents)
	report.Merge(parseReport)
	if len(report.InternalErrors) != 0 {
		return p.fail(&result, fmt.Errorf("%w: %w", ErrProjectFailed, errors.Join(report.InternalErrors...)), nil)
	}
	index, indexDiagnostics := irbuilder.NewIndex(parsed)
	report.Diagnostics = append(report.Diagnostics, extractionDiagnostics...)
	report.Diagnostics = append(report.Diagnostics, indexDiagnostics...)

	fileNames := make(map[string][]intern.StringKey, len(p.files))
	for path, file := range p.files {
		for _, source := range file.sources {
			fileNames[path] = append(fileNames[path], index.DocumentNames(source.Key)...)
		}
	}

	dirty := p.dirtyNames(index, changedFiles, fileNames, changedTypes)
	result.Dirty = len(dirty)

	definitions := make(map[intern.StringKey]ir.Definition, len(index.Names()))
	if p.source != nil && !p.fullRebuild {
		for _, definition := range p.source.Definitions() {
			name := definition.DefinitionName()
			if !dirty.Has(name) && index.Has(name) {
				definitions[name] = definition
			}
		}
	}
	rebuild := make([]intern.StringKey, 0, len(dirty))
	for _, name := range dirty.Sorted() {
		if index.Has(name) {
			rebuild = append(rebuild, name)
		}
	}
	built, buildReport := builder.BuildDefinitions(ctx, index, rebuild)
	report.Merge(buildReport)
	for name, definition := range built {
		definitions[name] = definition
	}
	sourceProgram, assembleReport := irbuilder.Assemble(p.schema, definitions, index)
	report.Merge(assembleReport)
	if len(report.InternalErrors) != 0 {
		return p.fail(&result, fmt.Errorf("%w: %w", ErrProjectFailed, errors.Join(report.InternalErrors...)), nil)
	}

	input, err := dependencygraph.Minimize(sourceProgram, rebuild)
	if err != nil {
		return p.fail(&result, fmt.Errorf("%w: %w", ErrProjectFailed, err), nil)
	}
	result.Processed = input.Len()
	pipeline := transforms.NewPipeline(
		transforms.WithConcurrency(p.options.concurrency),
		transforms.WithValidateModuleNames(p.config.ValidateModuleNames),
		transforms.WithLogger(p.options.logger),
	)
	output, pipelineReport, timings := pipeline.Run(ctx, input)
	report.Merge(pipelineReport)
	result.Timings = timings
	if output == nil || len(report.InternalErrors) != 0 {
		return p.fail(&result, fmt.Errorf("%w: %w", ErrProjectFailed, errors.Join(report.InternalErrors...)), nil)
	}

	final, err := p.merge(output, dirty, index)
	if err != nil {
		return p.fail(&result, fmt.Errorf("%w: %w", ErrProjectFailed, err), nil)
	}

	rerun := intern.NewSet(input.Names()...)
	rerun.Add(output.Names()...)
	rerun.AddSet(dirty)
	diagnostics := make(operationreport.Diagnostics, 0, len(p.diagnostics)+len(report.Diagnostics))
	for _, diagnostic := range p.diagnostics {
		name := diagnostic.Definition
		if name.IsEmpty() || rerun.Has(name) {
			continue
		}
		if final.Has(name) || index.Has(name) {
			diagnostics = append(diagnostics, diagnostic)
		}
	}
	diagnostics = append(diagnostics, report.Diagnostics...)
	diagnostics.Sort()
	diagnostics = diagnostics.Dedupe()

	failed := p.failedNames(index, final, diagnostics)
	artifacts, written, deleted, writeDiagnostics := p.emit(ctx, final, index, dirty, failed)
	if len(writeDiagnostics) != 0 {
		diagnostics = append(diagnostics, writeDiagnostics...)
		diagnostics.Sort()
	}
	p.track(index, failed)

	p.number++
	generation := &Generation{
		ID:          uuid.NewString(),
		Number:      p.number,
		Source:      sourceProgram,
		Program:     final,
		Artifacts:   artifacts,
		Diagnostics: diagnostics,
		Sources:     sources,
		CompletedAt: p.options.clock(),
	}
	p.published.Store(generation)

	p.source = sourceProgram
	p.program = final
	p.diagnostics = diagnostics
	p.failed = failed
	p.fileNames = fileNames
	p.artifacts = artifacts
	p.fullRebuild = false
	p.state.Store(uint32(Clean))

	result.GenerationID = generation.ID
	result.State = Clean
	result.Diagnostics = diagnostics
	result.Written = written
	result.Deleted = deleted
	p.options.logger.Info("compiler.generation",
		abstractlogger.String("project", p.config.Name),
		abstractlogger.String("generation", generation.ID),
		abstractlogger.Int("dirty", result.Dirty),
		abstractlogger.Int("processed", result.Processed),
		abstractlogger.Int("written", len(written)),
		abstractlogger.Int("deleted", len(deleted)),
		abstractlogger.Int("errors", diagnostics.Count(operationreport.SeverityError)),
	)
	return result
}

// updateSchema reads pending schema and extension files and reloads the schema when needed.
// It returns the type names whose definition changed. A structural change forces a full rebuild.
func (p *ProjectState) updateSchema() ([]intern.StringKey, error) {
	for path := range p.schemaPending {
		text, ok, err := p.readFile(path)
		if err != nil {
			return nil, err
		}
		target := p.schemaFiles
		if Classify(p.config, p.root, path) == FileKindExtension {
			target = p.extensionFiles
		}
		if !ok {
			delete(target, path)
			continue
		}
		target[path] = text
	}
	if p.schema != nil && len(p.schemaPending) == 0 {
		return nil, nil
	}
	if len(p.schemaFiles) == 0 {
		return nil, errors.New("no schema files")
	}

	loaded, err := schema.Load(schemaSources(p.schemaFiles), schemaSources(p.extensionFiles))
	if err != nil {
		return nil, err
	}
	clear(p.schemaPending)

	previous := p.schema
	p.schema = loaded
	if previous == nil || previous.StructureFingerprint() != loaded.StructureFingerprint() {
		p.fullRebuild = true
		return nil, nil
	}
	changed := intern.NewSet()
	for _, names := range [][]intern.StringKey{previous.TypeNames(), loaded.TypeNames()} {
		for _, name := range names {
			if previous.TypeFingerprint(name) != loaded.TypeFingerprint(name) {
				changed.Add(name)
			}
		}
	}
	dependents := intern.NewSet(previous.InputDependents(changed.Sorted())...)
	dependents.Add(loaded.InputDependents(changed.Sorted())...)
	return dependents.Sorted(), nil
}

func schemaSources(files map[string]string) []schema.Source {
	paths := make([]string, 0, len(files))
	for path := range files {
		paths = append(paths, path)
	}
	sort.Strings(paths)
	out := make([]schema.Source, 0, len(paths))
	for _, path := range paths {
		out = append(out, schema.Source{Name: path, Input: files[path]})
	}
	return out
}

// updateSources reads and extracts pending source files. It returns the paths whose content
// changed, files touched without a change are skipped.
func (p *ProjectState) updateSources(ctx context.Context) []string {
	pending := make([]string, 0, len(p.sourcePending))
	for path := range p.sourcePending {
		pending = append(pending, path)
	}
	sort.Strings(pending)
	clear(p.sourcePending)

	changed := make([]string, 0, len(pending))
	for _, path := range pending {
		existing, known := p.files[path]
		text, ok, err := p.readFile(path)
		if err != nil {
			location := position.NewLocation(position.Standalone(path), position.Span{})
			p.files[path] = &sourceFile{diagnostics: operationreport.Diagnostics{operationreport.ErrFileRead(location, err)}, unreadable: true}
			changed = append(changed, path)
			continue
		}
		if !ok {
			if known {
				delete(p.files, path)
				changed = append(changed, path)
			}
			continue
		}
		if known && existing.readable() && existing.text == text {
			continue
		}
		changed = append(changed, path)
		sources, diagnostics, err := extract.Extract(ctx, path, []byte(text))
		if err != nil {
			location := position.NewLocation(position.Standalone(path), position.Span{})
			diagnostics = append(diagnostics, operationreport.ErrExtraction(location, err.Error()))
		}
		p.files[path] = &sourceFile{text: text, sources: sources, diagnostics: diagnostics}
	}
	return changed
}

// documents lists the documents of every file in path order.
func (p *ProjectState) documents() ([]irbuilder.Document, position.Sources, operationreport.Diagnostics) {
	paths := make([]string, 0, len(p.files))
	for path := range p.files {
		paths = append(paths, path)
	}
	sort.Strings(paths)

	var (
		documents   []irbuilder.Document
		diagnostics operationreport.Diagnostics
	)
	sources := make(position.Sources)
	for _, path := range paths {
		file := p.files[path]
		for _, source := range file.sources {
			documents = append(documents, irbuilder.Document{Source: source})
			sources.Add(source)
		}
		diagnostics = append(diagnostics, file.diagnostics...)
	}
	return documents, sources, diagnostics
}

// dirtyNames returns the definitions to rebuild: names defined in changed files before and
// after the change, names that failed last time, duplicates and definitions referencing changed
// schema types, closed over everything that spread them in the previous generation.
func (p *ProjectState) dirtyNames(index *irbuilder.Index, changedFiles []string, fileNames map[string][]intern.StringKey, changedTypes []intern.StringKey) intern.Set {
	if p.fullRebuild || p.source == nil {
		dirty := intern.NewSet(index.Names()...)
		dirty.Add(index.Duplicates()...)
		return dirty
	}

	dirty := intern.NewSet()
	for _, path := range changedFiles {
		dirty.Add(p.fileNames[path]...)
		dirty.Add(fileNames[path]...)
	}
	dirty.AddSet(p.failed)
	dirty.Add(index.Duplicates()...)
	if len(changedTypes) != 0 {
		referencing := append(p.source.Definitions(), p.program.Definitions()...)
		dirty.Add(dependencygraph.NewTypeIndex(referencing).Referencing(changedTypes)...)
	}
	dirty.Add(dependencygraph.New(p.source).ReachableFrom(dirty.Sorted(), dependencygraph.Reverse)...)
	return dirty
}

// merge combines the pipeline output with the previous output of clean definitions and drops
// whatever is no longer reachable from a source definition.
func (p *ProjectState) merge(output *ir.Program, dirty intern.Set, index *irbuilder.Index) (*ir.Program, error) {
	builder := output.Builder()
	if p.program != nil && !p.fullRebuild {
		for _, definition := range p.program.Definitions() {
			name := definition.DefinitionName()
			if output.Has(name) || dirty.Has(name) {
				continue
			}
			builder.Put(definition)
		}
	}
	merged, err := builder.Build()
	if err != nil {
		return nil, err
	}
	roots := make([]intern.StringKey, 0, merged.Len())
	for _, name := range index.Names() {
		if merged.Has(name) {
			roots = append(roots, name)
		}
	}
	return dependencygraph.Minimize(merged, roots)
}

func (p *ProjectState) failedNames(index *irbuilder.Index, final *ir.Program, diagnostics operationreport.Diagnostics) intern.Set {
	failed := intern.NewSet(index.Duplicates()...)
	for _, name := range index.Names() {
		if !final.Has(name) {
			failed.Add(name)
		}
	}
	report := operationreport.Report{Diagnostics: diagnostics}
	failed.Add(report.FailedDefinitions()...)
	return failed
}

// emit diffs the artifacts of the final program against the previous map. Only artifacts whose
// hash changed are written, artifacts of definitions that are gone or failing are deleted.
func (p *ProjectState) emit(ctx context.Context, final *ir.Program, index *irbuilder.Index, dirty, failed intern.Set) (ArtifactMap, []string, []string, operationreport.Diagnostics) {
	next := make(ArtifactMap, len(p.artifacts))
	graph := dependencygraph.New(final)
	var (
		writes      []artifact.Artifact
		diagnostics operationreport.Diagnostics
	)
	for _, name := range index.Names() {
		definition, ok := final.Definition(name)
		if !ok || failed.Has(name) {
			continue
		}
		previous, known := p.artifacts[name]
		if known && !dirty.Has(name) {
			next[name] = previous
			continue
		}
		var closure []ir.Definition
		for _, reached := range graph.ReachableFrom([]intern.StringKey{name}, dependencygraph.Forward) {
			if reached == name {
				continue
			}
			fragment, _ := final.Definition(reached)
			closure = append(closure, fragment)
		}
		a, err := artifact.Build(definition, closure)
		if err != nil {
			diagnostics = append(diagnostics, operationreport.ErrArtifactWrite(name.String(), definition.DefinitionLocation(), err).WithDefinition(name))
			failed.Add(name)
			continue
		}
		next[name] = ArtifactEntry{Hash: a.Hash, Kind: a.Kind}
		if known && previous.Hash == a.Hash {
			continue
		}
		writes = append(writes, a)
	}

	var deletes []string
	for _, name := range p.artifacts.Names() {
		if _, ok := next[name]; !ok {
			deletes = append(deletes, name.String())
		}
	}

	if p.restoring != nil {
		// outputs on disk match the snapshot, whatever differs is written by the next build
		for _, a := range writes {
			delete(next, a.Name)
		}
		for _, name := range deletes {
			key := intern.Intern(name)
			next[key] = p.artifacts[key]
		}
		return next, nil, nil, diagnostics
	}

	var written, deleted []string
	for _, emitted := range p.emitter.Emit(ctx, writes, deletes) {
		name := intern.Intern(emitted.Name)
		switch {
		case emitted.Err == nil && emitted.Deleted:
			deleted = append(deleted, emitted.Name)
		case emitted.Err == nil:
			written = append(written, emitted.Name)
		case emitted.Deleted:
			next[name] = p.artifacts[name]
			p.options.logger.Error("compiler.emit",
				abstractlogger.String("project", p.config.Name),
				abstractlogger.String("artifact", emitted.Name),
				abstractlogger.Error(emitted.Err),
			)
		default:
			delete(next, name)
			failed.Add(name)
			location := position.GeneratedLocation
			if definition, ok := final.Definition(name); ok {
				location = definition.DefinitionLocation()
			}
			diagnostics = append(diagnostics, operationreport.ErrArtifactWrite(emitted.Name, location, emitted.Err).WithDefinition(name))
		}
	}
	return next, written, deleted, diagnostics
}

// track updates red/green state for every definition name of the project.
func (p *ProjectState) track(index *irbuilder.Index, failed intern.Set) {
	present := intern.NewSet(index.Names()...)
	present.Add(index.Duplicates()...)
	for _, name := range present.Sorted() {
		if failed.Has(name) {
			p.redgreen.Fail(name)
			continue
		}
		if failing, ok := p.redgreen.Pass(name); ok {
			p.options.metrics.observeFixed(p.config.Name, failing)
		}
	}
	for _, red := range p.redgreen.Failing() {
		if !present.Has(red.Name) {
			p.redgreen.Forget(red.Name)
		}
	}
}
