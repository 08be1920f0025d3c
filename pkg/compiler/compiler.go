// Package compiler keeps the incremental state of every configured project.
//
// Changes arrive in batches of file paths. Each batch is classified per project, and every
// project it touches runs one generation: schema and sources are re-read, only the definitions
// affected by the change are rebuilt and transformed, and the artifacts whose content changed
// are written. A generation is published atomically once it completes. A generation that fails
// project wide leaves the previous one in place.
package compiler

import (
	"context"
	"os"
	"runtime"
	"sort"
	"sync"
	"time"

	"github.com/jensneuse/abstractlogger"
	"golang.org/x/sync/errgroup"

	"github.com/wundergraph/graphql-compiler/pkg/artifact"
	"github.com/wundergraph/graphql-compiler/pkg/compiler/redgreen"
	"github.com/wundergraph/graphql-compiler/pkg/config"
)

type options struct {
	logger      abstractlogger.Logger
	metrics     *Metrics
	readFile    func(path string) ([]byte, error)
	concurrency int
	clock       redgreen.Clock
	writer      func(project *config.Project) artifact.Writer
	persister   func(project *config.Project) artifact.Persister
}

type Option func(o *options)

func WithLogger(logger abstractlogger.Logger) Option {
	return func(o *options) {
		o.logger = logger
	}
}

func WithMetrics(metrics *Metrics) Option {
	return func(o *options) {
		o.metrics = metrics
	}
}

// WithReadFile replaces os.ReadFile. Missing files must be reported with an error wrapping
// fs.ErrNotExist.
func WithReadFile(readFile func(path string) ([]byte, error)) Option {
	return func(o *options) {
		o.readFile = readFile
	}
}

func WithConcurrency(n int) Option {
	return func(o *options) {
		if n > 0 {
			o.concurrency = n
		}
	}
}

func WithClock(clock redgreen.Clock) Option {
	return func(o *options) {
		o.clock = clock
	}
}

// WithWriterFactory replaces the file system writer of every project.
func WithWriterFactory(factory func(project *config.Project) artifact.Writer) Option {
	return func(o *options) {
		o.writer = factory
	}
}

// WithPersisterFactory replaces the HTTP persister. Returning nil disables persistence.
func WithPersisterFactory(factory func(project *config.Project) artifact.Persister) Option {
	return func(o *options) {
		o.persister = factory
	}
}

// CompilerState owns every project. Batches and builds are serialized, published generations
// can be read at any time.
type CompilerState struct {
	mu       sync.Mutex
	root     string
	names    []string
	projects map[string]*ProjectState
	options  *options
}

func New(cfg *config.Config, opts ...Option) (*CompilerState, error) {
	o := &options{
		logger:      abstractlogger.NoopLogger,
		readFile:    os.ReadFile,
		concurrency: runtime.GOMAXPROCS(0),
		clock:       time.Now,
	}
	if cfg.Concurrency > 0 {
		o.concurrency = cfg.Concurrency
	}
	for _, opt := range opts {
		opt(o)
	}
	if o.writer == nil {
		o.writer = func(project *config.Project) artifact.Writer {
			return artifact.NewFSWriter(project.Output)
		}
	}
	if o.persister == nil {
		o.persister = func(project *config.Project) artifact.Persister {
			return httpPersister(project, o.logger)
		}
	}

	c := &CompilerState{
		root:     cfg.Root,
		projects: make(map[string]*ProjectState, len(cfg.Projects)),
		options:  o,
	}
	for i := range cfg.Projects {
		project := &cfg.Projects[i]
		state, err := newProjectState(project, cfg.Root, o)
		if err != nil {
			return nil, err
		}
		c.projects[project.Name] = state
		c.names = append(c.names, project.Name)
	}
	sort.Strings(c.names)
	return c, nil
}

func httpPersister(project *config.Project, logger abstractlogger.Logger) artifact.Persister {
	if project.Persist == nil || project.Persist.URL == "" {
		return nil
	}
	opts := []artifact.HTTPPersisterOption{artifact.WithPersisterLogger(logger)}
	if project.Persist.Retries > 0 {
		opts = append(opts, artifact.WithRetries(uint64(project.Persist.Retries)))
	}
	return artifact.NewHTTPPersister(project.Persist.URL, opts...)
}

// Projects returns the project names in lexical order.
func (c *CompilerState) Projects() []string {
	return c.names
}

func (c *CompilerState) Project(name string) (*ProjectState, error) {
	project, ok := c.projects[name]
	if !ok {
		return nil, ErrUnknownProject
	}
	return project, nil
}

// Snapshot returns the generation currently published for project. It is nil until the first
// successful generation.
func (c *CompilerState) Snapshot(project string) (*Generation, error) {
	p, err := c.Project(project)
	if err != nil {
		return nil, err
	}
	return p.Generation(), nil
}

// ApplyChangeBatch folds changes into every project they concern and runs one generation for
// each of them. Results are ordered by project name, projects without relevant changes are
// left out.
func (c *CompilerState) ApplyChangeBatch(ctx context.Context, changes []FileChange) []ProjectGenerationResult {
	c.mu.Lock()
	defer c.mu.Unlock()

	dirty := make(map[string]*ProjectState)
	for _, change := range changes {
		for _, name := range c.names {
			project := c.projects[name]
			if project.enqueue(change, Classify(project.config, c.root, change.Path)) {
				dirty[name] = project
			}
		}
	}
	return c.build(ctx, dirty)
}

// Build discovers every file of every project and compiles what changed since the last
// generation, everything for a project without one. Files that disappeared are treated as
// removed.
func (c *CompilerState) Build(ctx context.Context) ([]ProjectGenerationResult, error) {
	c.mu.Lock()
	defer c.mu.Unlock()

	dirty := make(map[string]*ProjectState, len(c.projects))
	for _, name := range c.names {
		project := c.projects[name]
		paths, err := Discover(project.config, c.root)
		if err != nil {
			return nil, err
		}
		discovered := make(map[string]struct{}, len(paths))
		for _, path := range paths {
			discovered[path] = struct{}{}
			project.enqueue(FileChange{Path: path, Kind: ChangeAdded}, Classify(project.config, c.root, path))
		}
		for _, path := range project.knownPaths() {
			if _, ok := discovered[path]; !ok {
				project.enqueue(FileChange{Path: path, Kind: ChangeRemoved}, Classify(project.config, c.root, path))
			}
		}
		dirty[name] = project
	}
	return c.build(ctx, dirty), nil
}

func (c *CompilerState) build(ctx context.Context, dirty map[string]*ProjectState) []ProjectGenerationResult {
	results := make([]ProjectGenerationResult, 0, len(dirty))
	var mu sync.Mutex
	g := errgroup.Group{}
	for _, project := range dirty {
		g.Go(func() error {
			result := project.build(ctx)
			mu.Lock()
			results = append(results, result)
			mu.Unlock()
			return nil
		})
	}
	_ = g.Wait()

	sortResults(results)
	for i := range results {
		c.options.metrics.observeGeneration(&results[i])
	}
	return results
}
