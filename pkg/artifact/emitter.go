package artifact

import (
	"context"

	"github.com/jensneuse/abstractlogger"
	"golang.org/x/sync/errgroup"
	"golang.org/x/sync/semaphore"

	"github.com/wundergraph/graphql-compiler/pkg/ir"
)

// Result is the outcome of emitting one artifact.
type Result struct {
	Name    string
	Deleted bool
	// Artifact is what was written, including a persisted id. Zero for deletions.
	Artifact Artifact
	Err      error
}

// Emitter writes and deletes artifacts with bounded concurrency. Operations are registered with
// the persister first when one is configured.
type Emitter struct {
	writer    Writer
	persister Persister
	sem       *semaphore.Weighted
	logger    abstractlogger.Logger
}

type EmitterOption func(e *Emitter)

func WithPersister(persister Persister) EmitterOption {
	return func(e *Emitter) {
		e.persister = persister
	}
}

func WithEmitterLogger(logger abstractlogger.Logger) EmitterOption {
	return func(e *Emitter) {
		e.logger = logger
	}
}

func NewEmitter(writer Writer, concurrency int64, opts ...EmitterOption) *Emitter {
	if concurrency < 1 {
		concurrency = 1
	}
	e := &Emitter{
		writer: writer,
		sem:    semaphore.NewWeighted(concurrency),
		logger: abstractlogger.NoopLogger,
	}
	for _, opt := range opts {
		opt(e)
	}
	return e
}

// Emit writes every artifact of writes and deletes every name of deletes. Results are returned
// in input order, writes first. Failures are reported per artifact, they never stop the others.
func (e *Emitter) Emit(ctx context.Context, writes []Artifact, deletes []string) []Result {
	results := make([]Result, len(writes)+len(deletes))

	g := errgroup.Group{}
	for i := range writes {
		if err := e.sem.Acquire(ctx, 1); err != nil {
			results[i] = Result{Name: writes[i].Name.String(), Err: err}
			continue
		}
		g.Go(func() error {
			defer e.sem.Release(1)
			results[i] = e.write(ctx, writes[i])
			return nil
		})
	}
	for j := range deletes {
		i := len(writes) + j
		if err := e.sem.Acquire(ctx, 1); err != nil {
			results[i] = Result{Name: deletes[j], Deleted: true, Err: err}
			continue
		}
		g.Go(func() error {
			defer e.sem.Release(1)
			results[i] = Result{Name: deletes[j], Deleted: true, Err: e.writer.Delete(ctx, deletes[j])}
			return nil
		})
	}
	_ = g.Wait()

	for i := range results {
		if results[i].Err != nil {
			e.logger.Error("artifact.emit",
				abstractlogger.String("name", results[i].Name),
				abstractlogger.Error(results[i].Err),
			)
		}
	}
	return results
}

func (e *Emitter) write(ctx context.Context, a Artifact) Result {
	result := Result{Name: a.Name.String(), Artifact: a}
	if e.persister != nil && a.Kind != ir.DefinitionKindFragment.String() {
		id, err := e.persister.Persist(ctx, a.Name.String(), a.Text)
		if err != nil {
			result.Err = err
			return result
		}
		if a, err = a.WithPersistedID(id); err != nil {
			result.Err = err
			return result
		}
		result.Artifact = a
	}
	result.Err = e.writer.Write(ctx, result.Artifact)
	return result
}
