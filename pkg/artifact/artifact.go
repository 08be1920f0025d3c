// Package artifact turns final definitions into the files the compiler emits.
//
// An artifact body is a JSON object:
//
//	{
//	  "name": "UserQuery",
//	  "kind": "query",
//	  "text": "query UserQuery { ... }\n\nfragment ...",
//	  "fragments": ["UserFragment"],
//	  "connections": [{"key": "User_friends", "path": ["viewer", "friends"]}],
//	  "labels": ["UserQuery$defer$UserFragment"],
//	  "hash": "..."
//	}
//
// The hash covers everything but the hash field and an optional persisted "id".
package artifact

import (
	"bytes"
	"slices"

	"github.com/tidwall/sjson"

	"github.com/wundergraph/graphql-compiler/pkg/intern"
	"github.com/wundergraph/graphql-compiler/pkg/ir"
	"github.com/wundergraph/graphql-compiler/pkg/irprinter"
	"github.com/wundergraph/graphql-compiler/pkg/irvisitor"
	"github.com/wundergraph/graphql-compiler/pkg/pool"
)

type Artifact struct {
	Name intern.StringKey
	// Kind is the operation kind or "fragment".
	Kind string
	// Text is the printed definition followed by its fragment closure.
	Text string
	Hash string
	Body []byte
}

// Build prints definition and the fragments it spreads into an artifact. closure holds the
// spread fragments and is printed in the order given.
func Build(definition ir.Definition, closure []ir.Definition) (Artifact, error) {
	buff := bytes.Buffer{}
	document := append([]ir.Definition{definition}, closure...)
	if err := irprinter.PrintDocument(document, &buff, false); err != nil {
		return Artifact{}, err
	}

	out := Artifact{
		Name: definition.DefinitionName(),
		Kind: kindName(definition),
		Text: buff.String(),
	}

	fragments := make([]string, 0, len(closure))
	for _, fragment := range closure {
		fragments = append(fragments, fragment.DefinitionName().String())
	}
	collected := collectMetadata(document)

	b := bodyBuilder{body: []byte(`{}`)}
	b.set("name", out.Name.String())
	b.set("kind", out.Kind)
	b.set("text", out.Text)
	b.set("fragments", fragments)
	if len(collected.connections) != 0 {
		connections := make([]map[string]any, 0, len(collected.connections))
		for _, connection := range collected.connections {
			connections = append(connections, map[string]any{
				"key":     connection.Key,
				"filters": nonNil(connection.Filters),
				"path":    nonNil(connection.Path),
			})
		}
		b.set("connections", connections)
	}
	if len(collected.labels) != 0 {
		b.set("labels", collected.labels)
	}
	if b.err != nil {
		return Artifact{}, b.err
	}

	out.Hash = Hash(b.body)
	b.set("hash", out.Hash)
	if b.err != nil {
		return Artifact{}, b.err
	}
	out.Body = b.body
	return out, nil
}

// WithPersistedID returns a copy of the artifact carrying the id assigned by a persisted query
// service. The hash is left unchanged.
func (a Artifact) WithPersistedID(id string) (Artifact, error) {
	body, err := sjson.SetBytes(slices.Clone(a.Body), "id", id)
	if err != nil {
		return a, err
	}
	a.Body = body
	return a, nil
}

// Hash returns the hex encoded xxhash of body.
func Hash(body []byte) string {
	xxh := pool.Hash64.Get()
	defer pool.Hash64.Put(xxh)
	_, _ = xxh.Write(body)
	return pool.Hex(xxh.Sum64())
}

func kindName(definition ir.Definition) string {
	if operation, ok := definition.(*ir.Operation); ok {
		return operation.Kind.String()
	}
	return ir.DefinitionKindFragment.String()
}

type bodyBuilder struct {
	body []byte
	err  error
}

func (b *bodyBuilder) set(path string, value any) {
	if b.err != nil {
		return
	}
	b.body, b.err = sjson.SetBytes(b.body, path, value)
}

func nonNil(values []string) []string {
	if values == nil {
		return []string{}
	}
	return values
}

type metadata struct {
	connections []ir.ConnectionMetadata
	labels      []string
}

type metadataVisitor struct {
	out *metadata
}

func (v *metadataVisitor) EnterSelection(selection ir.Selection) {
	directives := selection.SelectionDirectives()
	if connection, ok := ir.DecodeMetadata[ir.ConnectionMetadata](directives); ok {
		v.out.connections = append(v.out.connections, connection)
	}
	if deferred, ok := ir.DecodeMetadata[ir.DeferMetadata](directives); ok {
		v.out.labels = append(v.out.labels, deferred.Label)
	}
	if stream, ok := ir.DecodeMetadata[ir.StreamMetadata](directives); ok {
		v.out.labels = append(v.out.labels, stream.Label)
	}
}

// collectMetadata gathers connection and incremental delivery metadata in document order.
func collectMetadata(definitions []ir.Definition) metadata {
	out := metadata{}
	walker := irvisitor.NewWalker(8)
	walker.RegisterEnterSelectionVisitor(&metadataVisitor{out: &out})
	for _, definition := range definitions {
		walker.Walk(definition, nil)
	}
	return out
}
