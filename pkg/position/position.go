// Package position describes where in the user's sources a piece of GraphQL came from.
package position

import (
	"fmt"
	"strings"

	"github.com/wundergraph/graphql-compiler/pkg/intern"
)

type SourceKind uint8

const (
	// KindGenerated marks nodes synthesized by a transform.
	KindGenerated SourceKind = iota
	// KindStandalone is a whole .graphql file.
	KindStandalone
	// KindEmbedded is the nth GraphQL region extracted from a host language file.
	KindEmbedded
)

// SourceLocationKey identifies a GraphQL source region.
type SourceLocationKey struct {
	Kind  SourceKind
	Path  intern.StringKey
	Index uint16
}

func Standalone(path string) SourceLocationKey {
	return SourceLocationKey{Kind: KindStandalone, Path: intern.Intern(path)}
}

func Embedded(path string, index int) SourceLocationKey {
	return SourceLocationKey{Kind: KindEmbedded, Path: intern.Intern(path), Index: uint16(index)}
}

func Generated() SourceLocationKey {
	return SourceLocationKey{Kind: KindGenerated}
}

func (k SourceLocationKey) IsGenerated() bool {
	return k.Kind == KindGenerated
}

func (k SourceLocationKey) String() string {
	switch k.Kind {
	case KindStandalone:
		return k.Path.String()
	case KindEmbedded:
		return fmt.Sprintf("%s#%d", k.Path.String(), k.Index)
	default:
		return "<generated>"
	}
}

func (k SourceLocationKey) Compare(other SourceLocationKey) int {
	if k.Path != other.Path {
		return k.Path.Compare(other.Path)
	}
	if k.Kind != other.Kind {
		return int(k.Kind) - int(other.Kind)
	}
	return int(k.Index) - int(other.Index)
}

// Span is a half-open byte range into the text of one source region.
type Span struct {
	Start uint32
	End   uint32
}

func NewSpan(start, end int) Span {
	return Span{Start: uint32(start), End: uint32(end)}
}

func (s Span) Len() int {
	return int(s.End - s.Start)
}

func (s Span) Contains(other Span) bool {
	return s.Start <= other.Start && other.End <= s.End
}

type Location struct {
	Source SourceLocationKey
	Span   Span
}

var GeneratedLocation = Location{Source: Generated()}

func NewLocation(source SourceLocationKey, span Span) Location {
	return Location{Source: source, Span: span}
}

func (l Location) WithSpan(span Span) Location {
	l.Span = span
	return l
}

func (l Location) IsGenerated() bool {
	return l.Source.IsGenerated()
}

func (l Location) String() string {
	if l.IsGenerated() {
		return l.Source.String()
	}
	return fmt.Sprintf("%s:%d-%d", l.Source.String(), l.Span.Start, l.Span.End)
}

func (l Location) Compare(other Location) int {
	if c := l.Source.Compare(other.Source); c != 0 {
		return c
	}
	if l.Span.Start != other.Span.Start {
		if l.Span.Start < other.Span.Start {
			return -1
		}
		return 1
	}
	if l.Span.End != other.Span.End {
		if l.Span.End < other.Span.End {
			return -1
		}
		return 1
	}
	return 0
}

// Position is a 1-based line and column in the host file.
type Position struct {
	Line   int
	Column int
}

func (p Position) String() string {
	return fmt.Sprintf("%d:%d", p.Line, p.Column)
}

// Source is the text of one region together with where it starts in its host file.
// Offsets are zero-based and only shift the first line's column.
type Source struct {
	Key          SourceLocationKey
	Text         string
	LineOffset   int
	ColumnOffset int
}

// PositionAt resolves a byte offset of the region text into a position in the host file.
func (s Source) PositionAt(offset uint32) Position {
	if int(offset) > len(s.Text) {
		offset = uint32(len(s.Text))
	}
	prefix := s.Text[:offset]
	line := strings.Count(prefix, "\n")
	column := int(offset) - (strings.LastIndexByte(prefix, '\n') + 1)
	if line == 0 {
		column += s.ColumnOffset
	}
	return Position{Line: line + s.LineOffset + 1, Column: column + 1}
}

// Sources resolves locations for rendering.
type Sources map[SourceLocationKey]Source

func (s Sources) Add(source Source) {
	s[source.Key] = source
}

// Render prints a location as path:line:column when its text is known.
func (s Sources) Render(location Location) string {
	if location.IsGenerated() {
		return location.Source.String()
	}
	source, ok := s[location.Source]
	if !ok {
		return location.String()
	}
	return fmt.Sprintf("%s:%s", location.Source.Path.String(), source.PositionAt(location.Span.Start))
}
