package compiler

import (
	"context"
	"sync"

	"github.com/jensneuse/abstractlogger"
)

// Runner applies change batches on a single goroutine. Batches submitted while a generation is
// running are merged and applied together once it finished.
type Runner struct {
	state    *CompilerState
	logger   abstractlogger.Logger
	onResult func(results []ProjectGenerationResult)

	mu      sync.Mutex
	pending []FileChange
	index   map[string]int
	notify  chan struct{}
}

type RunnerOption func(r *Runner)

// WithResultHandler is called on the runner goroutine after every applied batch.
func WithResultHandler(handler func(results []ProjectGenerationResult)) RunnerOption {
	return func(r *Runner) {
		r.onResult = handler
	}
}

func WithRunnerLogger(logger abstractlogger.Logger) RunnerOption {
	return func(r *Runner) {
		r.logger = logger
	}
}

func NewRunner(state *CompilerState, opts ...RunnerOption) *Runner {
	r := &Runner{
		state:    state,
		logger:   abstractlogger.NoopLogger,
		onResult: func([]ProjectGenerationResult) {},
		index:    make(map[string]int),
		notify:   make(chan struct{}, 1),
	}
	for _, opt := range opts {
		opt(r)
	}
	return r
}

// Submit queues changes and returns immediately. A path submitted again before it was applied
// keeps its first position and takes the latest change kind.
func (r *Runner) Submit(changes []FileChange) {
	if len(changes) == 0 {
		return
	}
	r.mu.Lock()
	for _, change := range changes {
		if i, ok := r.index[change.Path]; ok {
			r.pending[i].Kind = change.Kind
			continue
		}
		r.index[change.Path] = len(r.pending)
		r.pending = append(r.pending, change)
	}
	r.mu.Unlock()

	select {
	case r.notify <- struct{}{}:
	default:
	}
}

func (r *Runner) take() []FileChange {
	r.mu.Lock()
	defer r.mu.Unlock()
	batch := r.pending
	r.pending = nil
	clear(r.index)
	return batch
}

// Run applies batches until ctx is done.
func (r *Runner) Run(ctx context.Context) error {
	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-r.notify:
		}
		batch := r.take()
		if len(batch) == 0 {
			continue
		}
		r.logger.Debug("compiler.runner.batch",
			abstractlogger.Int("changes", len(batch)),
		)
		r.onResult(r.state.ApplyChangeBatch(ctx, batch))
	}
}
