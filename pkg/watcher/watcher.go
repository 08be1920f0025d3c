// Package watcher turns file system notifications into debounced change batches.
package watcher

import (
	"context"
	"errors"
	"io/fs"
	"os"
	"path/filepath"
	"sort"
	"time"

	"github.com/fsnotify/fsnotify"
	"github.com/jensneuse/abstractlogger"

	"github.com/wundergraph/graphql-compiler/pkg/compiler"
)

const DefaultDebounce = 50 * time.Millisecond

var skippedDirectories = map[string]struct{}{
	".git":         {},
	"node_modules": {},
}

// Watcher watches a directory tree. Directories created later are watched as well.
type Watcher struct {
	root     string
	debounce time.Duration
	ignore   func(path string) bool
	logger   abstractlogger.Logger
	fs       *fsnotify.Watcher
}

type Option func(w *Watcher)

func WithDebounce(debounce time.Duration) Option {
	return func(w *Watcher) {
		if debounce > 0 {
			w.debounce = debounce
		}
	}
}

// WithIgnore skips paths, e.g. artifact output directories. Ignored directories aren't watched.
func WithIgnore(ignore func(path string) bool) Option {
	return func(w *Watcher) {
		w.ignore = ignore
	}
}

func WithLogger(logger abstractlogger.Logger) Option {
	return func(w *Watcher) {
		w.logger = logger
	}
}

func New(root string, opts ...Option) (*Watcher, error) {
	fsw, err := fsnotify.NewWatcher()
	if err != nil {
		return nil, err
	}
	w := &Watcher{
		root:     root,
		debounce: DefaultDebounce,
		ignore:   func(string) bool { return false },
		logger:   abstractlogger.NoopLogger,
		fs:       fsw,
	}
	for _, opt := range opts {
		opt(w)
	}
	if _, err := w.addTree(root); err != nil {
		_ = fsw.Close()
		return nil, err
	}
	return w, nil
}

// addTree watches dir and every directory below it. It returns the files found.
func (w *Watcher) addTree(dir string) ([]string, error) {
	var files []string
	err := filepath.WalkDir(dir, func(path string, entry fs.DirEntry, err error) error {
		if err != nil {
			if path != dir && errors.Is(err, fs.ErrNotExist) {
				return nil
			}
			return err
		}
		if !entry.IsDir() {
			if !w.ignore(path) {
				files = append(files, path)
			}
			return nil
		}
		if _, skip := skippedDirectories[entry.Name()]; skip || (path != w.root && w.ignore(path)) {
			return filepath.SkipDir
		}
		return w.fs.Add(path)
	})
	return files, err
}

// Run delivers batches to emit until ctx is done. Events are collected until no new event
// arrived for the debounce interval. The watcher is closed when Run returns.
func (w *Watcher) Run(ctx context.Context, emit func(changes []compiler.FileChange)) error {
	defer func() {
		_ = w.fs.Close()
	}()

	pending := make(map[string]compiler.ChangeKind)
	timer := time.NewTimer(w.debounce)
	if !timer.Stop() {
		<-timer.C
	}
	defer timer.Stop()

	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case event, ok := <-w.fs.Events:
			if !ok {
				return nil
			}
			if w.handle(event, pending) {
				timer.Reset(w.debounce)
			}
		case err, ok := <-w.fs.Errors:
			if !ok {
				return nil
			}
			w.logger.Error("watcher.error", abstractlogger.Error(err))
		case <-timer.C:
			if len(pending) == 0 {
				continue
			}
			batch := flush(pending)
			w.logger.Debug("watcher.batch", abstractlogger.Int("changes", len(batch)))
			emit(batch)
		}
	}
}

func (w *Watcher) handle(event fsnotify.Event, pending map[string]compiler.ChangeKind) bool {
	if w.ignore(event.Name) {
		return false
	}
	switch {
	case event.Has(fsnotify.Create):
		info, err := os.Stat(event.Name)
		if err == nil && info.IsDir() {
			if _, skip := skippedDirectories[filepath.Base(event.Name)]; skip {
				return false
			}
			files, err := w.addTree(event.Name)
			if err != nil {
				w.logger.Error("watcher.add", abstractlogger.String("path", event.Name), abstractlogger.Error(err))
			}
			for _, file := range files {
				record(pending, file, compiler.ChangeAdded)
			}
			return len(files) != 0
		}
		record(pending, event.Name, compiler.ChangeAdded)
	case event.Has(fsnotify.Write):
		record(pending, event.Name, compiler.ChangeModified)
	case event.Has(fsnotify.Remove), event.Has(fsnotify.Rename):
		record(pending, event.Name, compiler.ChangeRemoved)
	default:
		return false
	}
	return true
}

// record merges kind into the pending change of path. A file created and then written within
// one batch stays added.
func record(pending map[string]compiler.ChangeKind, path string, kind compiler.ChangeKind) {
	if previous, ok := pending[path]; ok && previous == compiler.ChangeAdded && kind == compiler.ChangeModified {
		return
	}
	pending[path] = kind
}

func flush(pending map[string]compiler.ChangeKind) []compiler.FileChange {
	out := make([]compiler.FileChange, 0, len(pending))
	for path, kind := range pending {
		out = append(out, compiler.FileChange{Path: path, Kind: kind})
	}
	clear(pending)
	sort.Slice(out, func(i, j int) bool {
		return out[i].Path < out[j].Path
	})
	return out
}
