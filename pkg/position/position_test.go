package position

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestSource_PositionAt(t *testing.T) {
	run := func(source Source, offset uint32, expected Position) func(t *testing.T) {
		return func(t *testing.T) {
			assert.Equal(t, expected, source.PositionAt(offset))
		}
	}

	text := "query Q {\n  viewer {\n    id\n  }\n}"

	t.Run("start of text", run(Source{Text: text}, 0, Position{Line: 1, Column: 1}))
	t.Run("second line", run(Source{Text: text}, 12, Position{Line: 2, Column: 3}))
	t.Run("offsets shift first line", run(Source{Text: text, LineOffset: 9, ColumnOffset: 20}, 6, Position{Line: 10, Column: 27}))
	t.Run("offsets only shift lines after the first", run(Source{Text: text, LineOffset: 9, ColumnOffset: 20}, 12, Position{Line: 11, Column: 3}))
	t.Run("clamps past end", run(Source{Text: "{}"}, 10, Position{Line: 1, Column: 3}))
}

func TestSources_Render(t *testing.T) {
	key := Embedded("src/App.tsx", 1)
	sources := Sources{}
	sources.Add(Source{Key: key, Text: "fragment A on User {\n  name\n}", LineOffset: 4, ColumnOffset: 8})

	assert.Equal(t, "src/App.tsx:6:3", sources.Render(NewLocation(key, NewSpan(23, 27))))
	assert.Equal(t, "<generated>", sources.Render(GeneratedLocation))
	assert.Equal(t, "other.graphql:0-4", sources.Render(NewLocation(Standalone("other.graphql"), NewSpan(0, 4))))
}

func TestLocation_Compare(t *testing.T) {
	a := NewLocation(Standalone("a.graphql"), NewSpan(10, 12))
	b := NewLocation(Standalone("a.graphql"), NewSpan(2, 40))
	c := NewLocation(Standalone("b.graphql"), NewSpan(0, 1))

	assert.Positive(t, a.Compare(b))
	assert.Negative(t, b.Compare(c))
	assert.Zero(t, a.Compare(a))
	assert.True(t, NewSpan(0, 40).Contains(a.Span))
}
