// Package extract finds GraphQL source regions in project files.
//
// .graphql and .gql files are a single region. JavaScript and TypeScript files contribute one
// region per graphql`...` or gql`...` tagged template, located with tree-sitter.
package extract

import (
	"context"
	"fmt"
	"path/filepath"
	"strings"
	"sync"

	sitter "github.com/smacker/go-tree-sitter"
	"github.com/smacker/go-tree-sitter/javascript"
	"github.com/smacker/go-tree-sitter/typescript/tsx"
	"github.com/smacker/go-tree-sitter/typescript/typescript"

	"github.com/wundergraph/graphql-compiler/pkg/operationreport"
	"github.com/wundergraph/graphql-compiler/pkg/position"
)

type Language uint8

const (
	LanguageNone Language = iota
	LanguageGraphQL
	LanguageJavaScript
	LanguageTypeScript
	LanguageTSX
)

func (l Language) String() string {
	switch l {
	case LanguageGraphQL:
		return "graphql"
	case LanguageJavaScript:
		return "javascript"
	case LanguageTypeScript:
		return "typescript"
	case LanguageTSX:
		return "tsx"
	}
	return "none"
}

// LanguageOf picks the language by file extension.
func LanguageOf(path string) Language {
	switch strings.ToLower(filepath.Ext(path)) {
	case ".graphql", ".gql":
		return LanguageGraphQL
	case ".js", ".jsx", ".mjs", ".cjs":
		return LanguageJavaScript
	case ".ts", ".mts", ".cts":
		return LanguageTypeScript
	case ".tsx":
		return LanguageTSX
	}
	return LanguageNone
}

// tags are the template tags whose content is GraphQL.
var tags = map[string]struct{}{
	"graphql": {},
	"gql":     {},
}

const taggedTemplateQuery = `(call_expression function: (identifier) @tag arguments: (template_string) @template)`

type grammar struct {
	language *sitter.Language
	once     sync.Once
	query    *sitter.Query
	err      error
}

func (g *grammar) compiledQuery() (*sitter.Query, error) {
	g.once.Do(func() {
		g.query, g.err = sitter.NewQuery([]byte(taggedTemplateQuery), g.language)
	})
	return g.query, g.err
}

var grammars = map[Language]*grammar{
	LanguageJavaScript: {language: javascript.GetLanguage()},
	LanguageTypeScript: {language: typescript.GetLanguage()},
	LanguageTSX:        {language: tsx.GetLanguage()},
}

// Extract returns the GraphQL regions of one file in source order. Files of unknown languages
// have no regions. Problems with single templates are reported and the template skipped.
func Extract(ctx context.Context, path string, text []byte) ([]position.Source, operationreport.Diagnostics, error) {
	language := LanguageOf(path)
	switch language {
	case LanguageNone:
		return nil, nil, nil
	case LanguageGraphQL:
		return []position.Source{{Key: position.Standalone(path), Text: string(text)}}, nil, nil
	}

	g := grammars[language]
	query, err := g.compiledQuery()
	if err != nil {
		return nil, nil, fmt.Errorf("compile %s template query: %w", language, err)
	}

	parser := sitter.NewParser()
	parser.SetLanguage(g.language)
	tree, err := parser.ParseCtx(ctx, nil, text)
	if err != nil {
		return nil, nil, fmt.Errorf("parse %s: %w", path, err)
	}

	var (
		sources     []position.Source
		diagnostics operationreport.Diagnostics
	)
	qc := sitter.NewQueryCursor()
	qc.Exec(query, tree.RootNode())
	for {
		m, ok := qc.NextMatch()
		if !ok {
			break
		}
		var tag, template *sitter.Node
		for _, c := range m.Captures {
			switch query.CaptureNameForId(c.Index) {
			case "tag":
				tag = c.Node
			case "template":
				template = c.Node
			}
		}
		if tag == nil || template == nil {
			continue
		}
		if _, ok := tags[tag.Content(text)]; !ok {
			continue
		}

		key := position.Embedded(path, len(sources)+len(diagnostics))
		if hasSubstitution(template) {
			location := position.NewLocation(position.Standalone(path), position.NewSpan(int(template.StartByte()), int(template.EndByte())))
			diagnostics = append(diagnostics, operationreport.ErrExtraction(location, "graphql templates must not contain substitutions"))
			continue
		}
		content := template.Content(text)
		start := template.StartPoint()
		sources = append(sources, position.Source{
			Key:          key,
			Text:         strings.TrimSuffix(strings.TrimPrefix(content, "`"), "`"),
			LineOffset:   int(start.Row),
			ColumnOffset: int(start.Column) + 1,
		})
	}
	return sources, diagnostics, nil
}

func hasSubstitution(template *sitter.Node) bool {
	for i := 0; i < int(template.NamedChildCount()); i++ {
		if template.NamedChild(i).Type() == "template_substitution" {
			return true
		}
	}
	return false
}
