package watcher

import (
	"context"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/goleak"

	"github.com/wundergraph/graphql-compiler/pkg/compiler"
)

func TestRecord(t *testing.T) {
	tests := []struct {
		name  string
		kinds []compiler.ChangeKind
		want  compiler.ChangeKind
	}{
		{name: "created then written", kinds: []compiler.ChangeKind{compiler.ChangeAdded, compiler.ChangeModified}, want: compiler.ChangeAdded},
		{name: "written then removed", kinds: []compiler.ChangeKind{compiler.ChangeModified, compiler.ChangeRemoved}, want: compiler.ChangeRemoved},
		{name: "removed then created", kinds: []compiler.ChangeKind{compiler.ChangeRemoved, compiler.ChangeAdded}, want: compiler.ChangeAdded},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			pending := make(map[string]compiler.ChangeKind)
			for _, kind := range tt.kinds {
				record(pending, "a.graphql", kind)
			}
			assert.Equal(t, []compiler.FileChange{{Path: "a.graphql", Kind: tt.want}}, flush(pending))
			assert.Empty(t, pending)
		})
	}
}

func TestWatcher(t *testing.T) {
	defer goleak.VerifyNone(t)

	root := t.TempDir()
	output := filepath.Join(root, "__generated__")
	require.NoError(t, os.MkdirAll(output, 0o755))
	require.NoError(t, os.WriteFile(filepath.Join(root, "existing.graphql"), []byte("query A { a }"), 0o644))

	w, err := New(root,
		WithDebounce(20*time.Millisecond),
		WithIgnore(func(path string) bool {
			return path == output || filepath.Dir(path) == output
		}),
	)
	require.NoError(t, err)

	batches := make(chan []compiler.FileChange, 16)
	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error)
	go func() {
		done <- w.Run(ctx, func(changes []compiler.FileChange) {
			batches <- changes
		})
	}()

	// collect waits until every expected path showed up in some batch
	collect := func(want map[string]compiler.ChangeKind) {
		t.Helper()
		seen := make(map[string]compiler.ChangeKind)
		deadline := time.After(10 * time.Second)
		for len(seen) < len(want) {
			select {
			case batch := <-batches:
				for _, change := range batch {
					if _, ok := want[change.Path]; ok {
						seen[change.Path] = change.Kind
					}
				}
			case <-deadline:
				require.FailNow(t, "missing changes", "want %v, seen %v", want, seen)
			}
		}
		assert.Equal(t, want, seen)
	}

	created := filepath.Join(root, "new.graphql")
	require.NoError(t, os.WriteFile(created, []byte("query B { b }"), 0o644))
	require.NoError(t, os.WriteFile(filepath.Join(output, "B.graphql.json"), []byte("{}"), 0o644))
	collect(map[string]compiler.ChangeKind{created: compiler.ChangeAdded})

	nested := filepath.Join(root, "nested", "deeper")
	require.NoError(t, os.MkdirAll(nested, 0o755))
	inNested := filepath.Join(nested, "c.graphql")
	require.NoError(t, os.WriteFile(inNested, []byte("query C { c }"), 0o644))
	collect(map[string]compiler.ChangeKind{inNested: compiler.ChangeAdded})

	require.NoError(t, os.Remove(filepath.Join(root, "existing.graphql")))
	collect(map[string]compiler.ChangeKind{filepath.Join(root, "existing.graphql"): compiler.ChangeRemoved})

	cancel()
	assert.ErrorIs(t, <-done, context.Canceled)
	close(batches)
	for batch := range batches {
		for _, change := range batch {
			assert.NotEqual(t, output, filepath.Dir(change.Path))
		}
	}
}

func TestNewMissingRoot(t *testing.T) {
	defer goleak.VerifyNone(t)

	_, err := New(filepath.Join(t.TempDir(), "missing"))
	assert.Error(t, err)
}
