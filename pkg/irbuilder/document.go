package irbuilder

import (
	"errors"
	"unicode/utf8"

	lru "github.com/hashicorp/golang-lru"
	"github.com/vektah/gqlparser/v2/ast"
	"github.com/vektah/gqlparser/v2/gqlerror"
	"github.com/vektah/gqlparser/v2/parser"

	"github.com/wundergraph/graphql-compiler/pkg/operationreport"
	"github.com/wundergraph/graphql-compiler/pkg/pool"
	"github.com/wundergraph/graphql-compiler/pkg/position"
	"github.com/wundergraph/graphql-compiler/pkg/schema"
)

// Document is one independently parseable GraphQL source region.
type Document struct {
	Source position.Source
}

// ParsedDocument is a parsed document. The AST is shared through the cache and must not be modified.
type ParsedDocument struct {
	Source  position.Source
	AST     *ast.QueryDocument
	offsets *offsets
}

// Location converts a gqlparser position into a location in this document.
func (d *ParsedDocument) Location(p *ast.Position) position.Location {
	if p == nil {
		return position.NewLocation(d.Source.Key, position.Span{})
	}
	return position.NewLocation(d.Source.Key, position.NewSpan(d.offsets.byteOffset(p.Start), d.offsets.byteOffset(p.End)))
}

type cachedParse struct {
	text string
	doc  *ast.QueryDocument
	err  error
}

// DocumentCache memoizes parsing by document text. Unchanged documents are parsed once
// across generations.
type DocumentCache struct {
	cache *lru.Cache
}

func NewDocumentCache(size int) (*DocumentCache, error) {
	cache, err := lru.New(size)
	if err != nil {
		return nil, err
	}
	return &DocumentCache{cache: cache}, nil
}

// Parse parses a document, consulting the cache first. A nil cache parses every time.
func (c *DocumentCache) Parse(doc Document) (*ParsedDocument, operationreport.Diagnostics) {
	text := doc.Source.Text
	var (
		parsed *ast.QueryDocument
		err    error
	)

	key := pool.HashStrings(text)
	hit := false
	if c != nil {
		if value, ok := c.cache.Get(key); ok {
			if entry := value.(cachedParse); entry.text == text {
				parsed, err, hit = entry.doc, entry.err, true
			}
		}
	}
	if !hit {
		parsed, err = parseQuery(doc.Source)
		if c != nil {
			c.cache.Add(key, cachedParse{text: text, doc: parsed, err: err})
		}
	}

	if err != nil {
		return nil, syntaxDiagnostics(doc.Source, err)
	}
	return &ParsedDocument{Source: doc.Source, AST: parsed, offsets: newOffsets(text)}, nil
}

func (c *DocumentCache) Len() int {
	if c == nil {
		return 0
	}
	return c.cache.Len()
}

func parseQuery(source position.Source) (*ast.QueryDocument, error) {
	doc, err := parser.ParseQuery(&ast.Source{Name: source.Key.String(), Input: source.Text})
	if err != nil {
		return nil, err
	}
	return doc, nil
}

func syntaxDiagnostics(source position.Source, err error) operationreport.Diagnostics {
	var list gqlerror.List
	if !errors.As(err, &list) {
		var single *gqlerror.Error
		if !errors.As(err, &single) {
			return operationreport.Diagnostics{operationreport.ErrSyntax(position.NewLocation(source.Key, position.Span{}), err.Error())}
		}
		list = gqlerror.List{single}
	}
	out := make(operationreport.Diagnostics, 0, len(list))
	for _, e := range list {
		span := position.Span{}
		if len(e.Locations) > 0 {
			offset := schema.OffsetOf(source.Text, e.Locations[0].Line, e.Locations[0].Column)
			span = position.NewSpan(offset, offset)
		}
		out = append(out, operationreport.ErrSyntax(position.NewLocation(source.Key, span), e.Message))
	}
	return out
}

// offsets converts gqlparser rune offsets into byte offsets.
type offsets struct {
	// runeStarts is nil for ASCII text where both offsets agree.
	runeStarts []int
	length     int
}

func newOffsets(text string) *offsets {
	o := &offsets{length: len(text)}
	if utf8.RuneCountInString(text) == len(text) {
		return o
	}
	o.runeStarts = make([]int, 0, len(text))
	for i := range text {
		o.runeStarts = append(o.runeStarts, i)
	}
	return o
}

func (o *offsets) byteOffset(runeOffset int) int {
	if runeOffset < 0 {
		return 0
	}
	if o.runeStarts == nil {
		return min(runeOffset, o.length)
	}
	if runeOffset >= len(o.runeStarts) {
		return o.length
	}
	return o.runeStarts[runeOffset]
}
