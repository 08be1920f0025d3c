package compiler

import (
	"errors"
	"sort"
	"time"

	"github.com/wundergraph/graphql-compiler/pkg/intern"
	"github.com/wundergraph/graphql-compiler/pkg/ir"
	"github.com/wundergraph/graphql-compiler/pkg/operationreport"
	"github.com/wundergraph/graphql-compiler/pkg/position"
	"github.com/wundergraph/graphql-compiler/pkg/transforms"
)

var (
	// ErrProjectFailed wraps project wide problems that abort a generation. The previous
	// generation stays published.
	ErrProjectFailed = errors.New("project failed")
	ErrUnknownProject = errors.New("unknown project")
)

// Lifecycle is the state of a project between generations.
type Lifecycle uint32

const (
	Clean Lifecycle = iota
	Dirty
	Building
	Failed
)

func (l Lifecycle) String() string {
	switch l {
	case Dirty:
		return "dirty"
	case Building:
		return "building"
	case Failed:
		return "failed"
	}
	return "clean"
}

// ArtifactEntry is what the compiler remembers about an emitted artifact.
type ArtifactEntry struct {
	Hash string `msgpack:"hash"`
	Kind string `msgpack:"kind"`
}

// ArtifactMap maps definition names to the artifact last written for them.
type ArtifactMap map[intern.StringKey]ArtifactEntry

func (m ArtifactMap) Clone() ArtifactMap {
	out := make(ArtifactMap, len(m))
	for name, entry := range m {
		out[name] = entry
	}
	return out
}

// Names returns the artifact names in lexical order.
func (m ArtifactMap) Names() []intern.StringKey {
	out := make([]intern.StringKey, 0, len(m))
	for name := range m {
		out = append(out, name)
	}
	intern.Sort(out)
	return out
}

// Generation is one complete compilation of a project. It is immutable once published.
type Generation struct {
	ID     string
	Number uint64
	// Source is the program before the transform pipeline.
	Source *ir.Program
	// Program is the final program artifacts are printed from.
	Program     *ir.Program
	Artifacts   ArtifactMap
	Diagnostics operationreport.Diagnostics
	// Sources resolves diagnostic locations.
	Sources     position.Sources
	CompletedAt time.Time
}

// ProjectGenerationResult summarizes what a batch did to one project.
type ProjectGenerationResult struct {
	Project      string
	GenerationID string
	State        Lifecycle
	// Dirty is the number of definitions that were rebuilt.
	Dirty int
	// Processed is the number of definitions the transform pipeline ran over.
	Processed   int
	Diagnostics operationreport.Diagnostics
	Written     []string
	Deleted     []string
	// Fatal is set when the generation was aborted. It wraps ErrProjectFailed.
	Fatal    error
	Timings  []transforms.StageTiming
	Duration time.Duration
}

// HasErrors reports whether the generation failed or produced error diagnostics.
func (r *ProjectGenerationResult) HasErrors() bool {
	return r.Fatal != nil || r.Diagnostics.HasErrors()
}

func sortResults(results []ProjectGenerationResult) {
	sort.Slice(results, func(i, j int) bool {
		return results[i].Project < results[j].Project
	})
}
