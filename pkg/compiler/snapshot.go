package compiler

import (
	"context"
	"errors"
	"fmt"
	"io"
	"sort"
	"time"

	"github.com/vmihailenco/msgpack/v5"

	"github.com/wundergraph/graphql-compiler/pkg/intern"
)

// FormatVersion is the version of the snapshot encoding. Snapshots of any other version are
// rejected.
const FormatVersion = 2

var ErrIncompatibleSnapshot = errors.New("incompatible snapshot")

type snapshot struct {
	Version    int                      `msgpack:"version"`
	Project    string                   `msgpack:"project"`
	Generation uint64                   `msgpack:"generation"`
	Artifacts  map[string]ArtifactEntry `msgpack:"artifacts"`
	Failing    map[string]time.Time     `msgpack:"failing"`
	// Files holds the text of every schema, extension and source file the generation was
	// built from. It is empty when the project failed after its last generation.
	Files map[string]string `msgpack:"files,omitempty"`
}

// SaveSnapshot writes the published generation of project to w. Nothing is written before the
// first successful generation.
func (c *CompilerState) SaveSnapshot(project string, w io.Writer) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	p, err := c.Project(project)
	if err != nil {
		return err
	}
	generation := p.Generation()
	if generation == nil {
		return nil
	}

	s := snapshot{
		Version:    FormatVersion,
		Project:    project,
		Generation: generation.Number,
		Artifacts:  make(map[string]ArtifactEntry, len(generation.Artifacts)),
		Failing:    make(map[string]time.Time),
	}
	for name, entry := range generation.Artifacts {
		s.Artifacts[name.String()] = entry
	}
	for _, red := range p.Failing() {
		if since, ok := p.redgreen.Since(red.Name); ok {
			s.Failing[red.Name.String()] = since
		}
	}
	if p.State() == Clean {
		s.Files = p.texts()
	}
	return msgpack.NewEncoder(w).Encode(&s)
}

// LoadSnapshot replaces the state of project with the one saved in r. The files of the snapshot
// are compiled in memory without writing artifacts, so the next Build only compiles what changed
// on disk since. A snapshot without files restores the artifact map only and the next build
// compiles everything, writing just the artifacts whose hash differs.
// An unknown version, or files that no longer compile, return ErrIncompatibleSnapshot and leave
// the project untouched.
func (c *CompilerState) LoadSnapshot(ctx context.Context, project string, r io.Reader) error {
	p, err := c.Project(project)
	if err != nil {
		return err
	}

	var s snapshot
	if err := msgpack.NewDecoder(r).Decode(&s); err != nil {
		return fmt.Errorf("%w: %w", ErrIncompatibleSnapshot, err)
	}
	if s.Version != FormatVersion {
		return fmt.Errorf("%w: version %d, want %d", ErrIncompatibleSnapshot, s.Version, FormatVersion)
	}
	if s.Project != project {
		return fmt.Errorf("%w: snapshot of project %s", ErrIncompatibleSnapshot, s.Project)
	}

	c.mu.Lock()
	defer c.mu.Unlock()
	restored, err := newProjectState(p.config, p.root, c.options)
	if err != nil {
		return err
	}
	if err := restored.restore(ctx, &s); err != nil {
		return fmt.Errorf("%w: %w", ErrIncompatibleSnapshot, err)
	}
	c.projects[project] = restored
	return nil
}

// restore compiles the files of s and adopts its artifact map and red definitions.
func (p *ProjectState) restore(ctx context.Context, s *snapshot) error {
	p.artifacts = make(ArtifactMap, len(s.Artifacts))
	for name, entry := range s.Artifacts {
		p.artifacts[intern.Intern(name)] = entry
	}
	if len(s.Files) == 0 {
		p.number = s.Generation
		for name, since := range s.Failing {
			p.redgreen.Restore(intern.Intern(name), since)
		}
		return nil
	}

	if s.Generation > 0 {
		p.number = s.Generation - 1
	}
	p.restoring = s.Files
	defer func() { p.restoring = nil }()
	paths := make([]string, 0, len(s.Files))
	for path := range s.Files {
		paths = append(paths, path)
	}
	sort.Strings(paths)
	for _, path := range paths {
		p.enqueue(FileChange{Path: path, Kind: ChangeAdded}, Classify(p.config, p.root, path))
	}
	result := p.build(ctx)
	if result.Fatal != nil {
		return result.Fatal
	}
	for name, since := range s.Failing {
		if key := intern.Intern(name); p.failed.Has(key) {
			p.redgreen.Restore(key, since)
		}
	}
	return nil
}
