package compiler

import (
	"errors"
	"io/fs"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"github.com/bmatcuk/doublestar/v4"

	"github.com/wundergraph/graphql-compiler/pkg/config"
)

type FileKind uint8

const (
	FileKindIgnore FileKind = iota
	// FileKindGenerated is anything below a project's output directory.
	FileKindGenerated
	FileKindSchema
	FileKindExtension
	FileKindSource
)

func (k FileKind) String() string {
	switch k {
	case FileKindGenerated:
		return "generated"
	case FileKindSchema:
		return "schema"
	case FileKindExtension:
		return "extension"
	case FileKindSource:
		return "source"
	}
	return "ignore"
}

type ChangeKind uint8

const (
	ChangeAdded ChangeKind = iota
	ChangeModified
	ChangeRemoved
)

func (k ChangeKind) String() string {
	switch k {
	case ChangeModified:
		return "modified"
	case ChangeRemoved:
		return "removed"
	}
	return "added"
}

// FileChange is one entry of a change batch. Path is absolute.
type FileChange struct {
	Path string
	Kind ChangeKind
}

// Classify decides what path means to project. Checks run in order: generated output, schema,
// client extension, source, and everything else is ignored.
func Classify(project *config.Project, root, path string) FileKind {
	if within(project.Output, path) {
		return FileKindGenerated
	}
	rel, err := filepath.Rel(root, path)
	if err != nil || rel == ".." || strings.HasPrefix(rel, ".."+string(filepath.Separator)) {
		return FileKindIgnore
	}
	rel = filepath.ToSlash(rel)
	switch {
	case matchAny(project.Schema, rel):
		return FileKindSchema
	case matchAny(project.Extensions, rel):
		return FileKindExtension
	case matchAny(project.Include, rel) && !matchAny(project.Exclude, rel):
		return FileKindSource
	}
	return FileKindIgnore
}

func within(dir, path string) bool {
	if dir == "" {
		return false
	}
	rel, err := filepath.Rel(dir, path)
	return err == nil && rel != ".." && !strings.HasPrefix(rel, ".."+string(filepath.Separator))
}

func matchAny(patterns []string, rel string) bool {
	for _, pattern := range patterns {
		if ok, _ := doublestar.Match(filepath.ToSlash(pattern), rel); ok {
			return true
		}
	}
	return false
}

// Discover lists the files of project below root that aren't ignored, sorted.
func Discover(project *config.Project, root string) ([]string, error) {
	fsys := os.DirFS(root)
	seen := make(map[string]struct{})
	for _, patterns := range [][]string{project.Schema, project.Extensions, project.Include} {
		for _, pattern := range patterns {
			matches, err := doublestar.Glob(fsys, filepath.ToSlash(pattern), doublestar.WithFilesOnly())
			if err != nil {
				return nil, err
			}
			for _, match := range matches {
				path := filepath.Join(root, filepath.FromSlash(match))
				switch Classify(project, root, path) {
				case FileKindSchema, FileKindExtension, FileKindSource:
					seen[path] = struct{}{}
				}
			}
		}
	}
	out := make([]string, 0, len(seen))
	for path := range seen {
		out = append(out, path)
	}
	sort.Strings(out)
	return out, nil
}

func isNotExist(err error) bool {
	return errors.Is(err, fs.ErrNotExist)
}
