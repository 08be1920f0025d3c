// Package redgreen measures how long definitions stay broken.
//
// A definition turns red the first generation it fails and green the first generation it
// succeeds again. The time in between is reported once, when it turns green.
package redgreen

import (
	"sync"
	"time"

	"github.com/wundergraph/graphql-compiler/pkg/intern"
)

type Clock func() time.Time

type Tracker struct {
	mu    sync.Mutex
	now   Clock
	since map[intern.StringKey]time.Time
}

type Option func(t *Tracker)

func WithClock(clock Clock) Option {
	return func(t *Tracker) {
		t.now = clock
	}
}

func New(opts ...Option) *Tracker {
	t := &Tracker{
		now:   time.Now,
		since: make(map[intern.StringKey]time.Time),
	}
	for _, opt := range opts {
		opt(t)
	}
	return t
}

// Fail marks name red. A definition already red keeps its first failure time.
func (t *Tracker) Fail(name intern.StringKey) {
	t.mu.Lock()
	defer t.mu.Unlock()
	if _, ok := t.since[name]; !ok {
		t.since[name] = t.now()
	}
}

// Pass marks name green and returns how long it was red. ok is false if it wasn't red.
func (t *Tracker) Pass(name intern.StringKey) (failing time.Duration, ok bool) {
	t.mu.Lock()
	defer t.mu.Unlock()
	since, ok := t.since[name]
	if !ok {
		return 0, false
	}
	delete(t.since, name)
	return t.now().Sub(since), true
}

// Forget drops name without reporting, e.g. when its definition was deleted.
func (t *Tracker) Forget(name intern.StringKey) {
	t.mu.Lock()
	defer t.mu.Unlock()
	delete(t.since, name)
}

// Red is a currently failing definition.
type Red struct {
	Name intern.StringKey
	Age  time.Duration
}

// Failing lists the red definitions by name.
func (t *Tracker) Failing() []Red {
	t.mu.Lock()
	defer t.mu.Unlock()
	now := t.now()
	names := make([]intern.StringKey, 0, len(t.since))
	for name := range t.since {
		names = append(names, name)
	}
	intern.Sort(names)
	out := make([]Red, 0, len(names))
	for _, name := range names {
		out = append(out, Red{Name: name, Age: now.Sub(t.since[name])})
	}
	return out
}

// Since returns when name turned red.
func (t *Tracker) Since(name intern.StringKey) (time.Time, bool) {
	t.mu.Lock()
	defer t.mu.Unlock()
	since, ok := t.since[name]
	return since, ok
}

// Restore marks name red since the given time, used when loading a snapshot.
func (t *Tracker) Restore(name intern.StringKey, since time.Time) {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.since[name] = since
}
