package schema

import (
	"github.com/vektah/gqlparser/v2/ast"
	"github.com/vektah/gqlparser/v2/parser"

	"github.com/wundergraph/graphql-compiler/pkg/intern"
)

// CompilerDirectivesSDL declares the directives the compiler understands on top of any schema.
const CompilerDirectivesSDL = `
directive @arguments on FRAGMENT_SPREAD
directive @argumentDefinitions on FRAGMENT_DEFINITION
directive @connection(key: String!, filters: [String]) on FIELD
directive @match on FIELD
directive @module(name: String!) on FRAGMENT_SPREAD
directive @defer(label: String, if: Boolean = true) on FRAGMENT_SPREAD | INLINE_FRAGMENT
directive @stream(label: String, if: Boolean = true, initialCount: Int = 0) on FIELD
`

var (
	DirectiveArguments           = intern.Intern("arguments")
	DirectiveArgumentDefinitions = intern.Intern("argumentDefinitions")
	DirectiveConnection          = intern.Intern("connection")
	DirectiveMatch               = intern.Intern("match")
	DirectiveModule              = intern.Intern("module")
	DirectiveDefer               = intern.Intern("defer")
	DirectiveStream              = intern.Intern("stream")
	DirectiveSkip                = intern.Intern("skip")
	DirectiveInclude             = intern.Intern("include")
)

var compilerDirectives = mustParseCompilerDirectives()

func mustParseCompilerDirectives() map[intern.StringKey]*DirectiveDefinition {
	doc, err := parser.ParseSchema(&ast.Source{Name: "compiler_directives.graphql", Input: CompilerDirectivesSDL, BuiltIn: true})
	if err != nil {
		panic(err)
	}
	out := make(map[intern.StringKey]*DirectiveDefinition, len(doc.Directives))
	for _, def := range doc.Directives {
		d := directiveFromAST(def, true)
		d.AnyArguments = d.Name == DirectiveArguments || d.Name == DirectiveArgumentDefinitions
		out[d.Name] = d
	}
	return out
}

// IsCompilerDirective reports whether name is consumed by the compiler and never reaches an artifact.
func IsCompilerDirective(name intern.StringKey) bool {
	_, ok := compilerDirectives[name]
	return ok
}
