package extract

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/wundergraph/graphql-compiler/pkg/operationreport"
	"github.com/wundergraph/graphql-compiler/pkg/position"
)

func TestLanguageOf(t *testing.T) {
	for path, expected := range map[string]Language{
		"a/Query.graphql": LanguageGraphQL,
		"a/Query.GQL":     LanguageGraphQL,
		"a/index.js":      LanguageJavaScript,
		"a/App.jsx":       LanguageJavaScript,
		"a/api.ts":        LanguageTypeScript,
		"a/App.tsx":       LanguageTSX,
		"a/README.md":     LanguageNone,
	} {
		assert.Equal(t, expected, LanguageOf(path), path)
	}
}

func TestExtract(t *testing.T) {
	run := func(t *testing.T, path, text string) ([]position.Source, operationreport.Diagnostics) {
		t.Helper()
		sources, diagnostics, err := Extract(context.Background(), path, []byte(text))
		require.NoError(t, err)
		return sources, diagnostics
	}

	t.Run("graphql file", func(t *testing.T) {
		sources, diagnostics := run(t, "q.graphql", "query Q { id }")
		assert.Empty(t, diagnostics)
		assert.Equal(t, []position.Source{{Key: position.Standalone("q.graphql"), Text: "query Q { id }"}}, sources)
	})

	t.Run("javascript", func(t *testing.T) {
		sources, diagnostics := run(t, "app.js", "const q = graphql`query Q { id }`;\nconst f = gql`\n  fragment F on User { id }\n`;\nconst other = css`color: red;`;\n")
		assert.Empty(t, diagnostics)
		require.Len(t, sources, 2)
		assert.Equal(t, position.Embedded("app.js", 0), sources[0].Key)
		assert.Equal(t, "query Q { id }", sources[0].Text)
		assert.Equal(t, 0, sources[0].LineOffset)
		assert.Equal(t, 18, sources[0].ColumnOffset)
		assert.Equal(t, position.Embedded("app.js", 1), sources[1].Key)
		assert.Equal(t, "\n  fragment F on User { id }\n", sources[1].Text)
		assert.Equal(t, 1, sources[1].LineOffset)

		assert.Equal(t, position.Position{Line: 1, Column: 19}, sources[0].PositionAt(0))
		assert.Equal(t, position.Position{Line: 3, Column: 3}, sources[1].PositionAt(3))
	})

	t.Run("typescript", func(t *testing.T) {
		sources, diagnostics := run(t, "api.ts", "export const q: string = graphql`query Q { id }`;\n")
		assert.Empty(t, diagnostics)
		require.Len(t, sources, 1)
		assert.Equal(t, "query Q { id }", sources[0].Text)
	})

	t.Run("tsx", func(t *testing.T) {
		sources, diagnostics := run(t, "App.tsx", "const q = graphql`query Q { id }`;\nexport const App = () => <div>{q}</div>;\n")
		assert.Empty(t, diagnostics)
		require.Len(t, sources, 1)
		assert.Equal(t, position.Embedded("App.tsx", 0), sources[0].Key)
	})

	t.Run("substitutions are rejected", func(t *testing.T) {
		sources, diagnostics := run(t, "app.js", "const q = graphql`query Q { ${field} }`;\nconst r = graphql`query R { id }`;\n")
		require.Len(t, diagnostics, 1)
		assert.Equal(t, operationreport.CodeExtraction, diagnostics[0].Code)
		require.Len(t, sources, 1)
		assert.Equal(t, position.Embedded("app.js", 1), sources[0].Key)
	})

	t.Run("other files", func(t *testing.T) {
		sources, diagnostics := run(t, "README.md", "graphql`query Q { id }`")
		assert.Empty(t, sources)
		assert.Empty(t, diagnostics)
	})
}
