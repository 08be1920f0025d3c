package irvisitor

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/wundergraph/graphql-compiler/pkg/intern"
	"github.com/wundergraph/graphql-compiler/pkg/ir"
	"github.com/wundergraph/graphql-compiler/pkg/operationreport"
	"github.com/wundergraph/graphql-compiler/pkg/schema"
)

func field(parent, name, typeName string) schema.FieldRef {
	return schema.FieldRef{Parent: intern.Intern(parent), Name: intern.Intern(name), Type: schema.Named(typeName)}
}

func testOperation() *ir.Operation {
	return &ir.Operation{
		Name: intern.Intern("Q"),
		Type: intern.Intern("Query"),
		Selections: []ir.Selection{
			&ir.LinkedField{
				Definition: field("Query", "node", "Node"),
				Selections: []ir.Selection{
					&ir.ScalarField{Definition: field("Node", "id", "ID")},
					&ir.InlineFragment{
						TypeCondition: intern.Intern("User"),
						Selections: []ir.Selection{
							&ir.ScalarField{Definition: field("User", "name", "String")},
						},
					},
				},
			},
			&ir.ScalarField{Alias: intern.Intern("me"), Definition: field("Query", "viewerId", "ID")},
		},
	}
}

type recordingVisitor struct {
	walker *Walker
	events []string
}

func (r *recordingVisitor) EnterDefinition(definition ir.Definition) {
	r.events = append(r.events, "enter "+definition.DefinitionName().String())
}

func (r *recordingVisitor) EnterSelection(selection ir.Selection) {
	name := "inline"
	if key, ok := ir.ResponseKey(selection); ok {
		name = key.String()
	}
	r.events = append(r.events, name+"@"+r.walker.EnclosingType().String())
}

func TestWalker(t *testing.T) {
	walker := NewWalker(8)
	visitor := &recordingVisitor{walker: walker}
	walker.RegisterAllNodesVisitor(visitor)

	report := operationreport.Report{}
	walker.Walk(testOperation(), &report)

	assert.Equal(t, []string{
		"enter Q",
		"node@Query",
		"id@Node",
		"inline@Node",
		"name@User",
		"me@Query",
	}, visitor.events)
}

type skippingVisitor struct {
	walker *Walker
	seen   int
}

func (s *skippingVisitor) EnterSelection(selection ir.Selection) {
	s.seen++
	if _, ok := selection.(*ir.LinkedField); ok {
		s.walker.SkipNode()
	}
}

func TestWalker_SkipNode(t *testing.T) {
	walker := NewWalker(8)
	visitor := &skippingVisitor{walker: walker}
	walker.RegisterEnterSelectionVisitor(visitor)
	walker.Walk(testOperation(), &operationreport.Report{})
	assert.Equal(t, 2, visitor.seen)
}

func TestTransformer(t *testing.T) {
	t.Run("no change keeps identity", func(t *testing.T) {
		op := testOperation()
		out := Transformer{}.Transform(op)
		assert.Same(t, op, out)
	})

	t.Run("rewrite copies the spine only", func(t *testing.T) {
		op := testOperation()
		var paths []string
		out := Transformer{
			Selection: func(c *Cursor, selection ir.Selection) []ir.Selection {
				inline, ok := selection.(*ir.InlineFragment)
				if !ok {
					return Keep(selection)
				}
				paths = append(paths, c.ParentType.String())
				return inline.Selections
			},
		}.Transform(op)

		require.NotSame(t, op, out)
		assert.Equal(t, []string{"Node"}, paths)
		node := out.SelectionSet()[0].(*ir.LinkedField)
		require.Len(t, node.Selections, 2)
		assert.Equal(t, "name", node.Selections[1].(*ir.ScalarField).Definition.Name.String())
		assert.Same(t, op.Selections[1], out.SelectionSet()[1], "untouched siblings are shared")
		assert.Len(t, op.Selections[0].(*ir.LinkedField).Selections, 2)
		_, stillInline := op.Selections[0].(*ir.LinkedField).Selections[1].(*ir.InlineFragment)
		assert.True(t, stillInline, "input must not change")
	})

	t.Run("selection lists see the path", func(t *testing.T) {
		var paths [][]string
		Transformer{
			Selections: func(c *Cursor, selections []ir.Selection) []ir.Selection {
				paths = append(paths, c.Path)
				return selections
			},
		}.Transform(testOperation())
		assert.Equal(t, [][]string{{"node"}, {"node"}, nil}, paths)
	})
}
