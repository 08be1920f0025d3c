package artifact

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
)

//go:generate mockgen -destination=mock_artifact/mock_artifact.go -package=mock_artifact . Writer,Persister

// Writer stores artifact bodies.
type Writer interface {
	Write(ctx context.Context, artifact Artifact) error
	Delete(ctx context.Context, name string) error
}

// FileExtension is appended to the definition name to form the artifact file name.
const FileExtension = ".graphql.json"

// FSWriter writes one file per artifact into a directory.
type FSWriter struct {
	dir string
}

func NewFSWriter(dir string) *FSWriter {
	return &FSWriter{dir: dir}
}

func (w *FSWriter) Dir() string {
	return w.dir
}

// Path returns the file an artifact named name is written to.
func (w *FSWriter) Path(name string) string {
	return filepath.Join(w.dir, name+FileExtension)
}

// Write replaces the artifact file. The body is written to a temporary file first and renamed,
// readers never see a partial artifact.
func (w *FSWriter) Write(ctx context.Context, artifact Artifact) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	if err := os.MkdirAll(w.dir, 0o755); err != nil {
		return fmt.Errorf("create artifact directory: %w", err)
	}
	tmp, err := os.CreateTemp(w.dir, "."+artifact.Name.String()+"-*")
	if err != nil {
		return fmt.Errorf("create artifact: %w", err)
	}
	if _, err := tmp.Write(artifact.Body); err != nil {
		tmp.Close()
		os.Remove(tmp.Name())
		return fmt.Errorf("write artifact: %w", err)
	}
	if err := tmp.Close(); err != nil {
		os.Remove(tmp.Name())
		return fmt.Errorf("write artifact: %w", err)
	}
	if err := os.Rename(tmp.Name(), w.Path(artifact.Name.String())); err != nil {
		os.Remove(tmp.Name())
		return fmt.Errorf("write artifact: %w", err)
	}
	return nil
}

// Delete removes the artifact file. A missing file is not an error.
func (w *FSWriter) Delete(ctx context.Context, name string) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	err := os.Remove(w.Path(name))
	if err != nil && !os.IsNotExist(err) {
		return fmt.Errorf("delete artifact: %w", err)
	}
	return nil
}
