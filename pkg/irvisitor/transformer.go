package irvisitor

import (
	"slices"

	"github.com/wundergraph/graphql-compiler/pkg/intern"
	"github.com/wundergraph/graphql-compiler/pkg/ir"
)

// Cursor describes where a transform callback is.
type Cursor struct {
	Definition ir.Definition
	// ParentType is the type of the selection set holding the current selection.
	ParentType intern.StringKey
	// Path holds the response keys of the enclosing fields.
	Path []string
}

// Transformer rewrites definitions bottom up. Untouched subtrees keep their identity, so a
// transform that changes nothing returns the very same definition.
type Transformer struct {
	// Selection is called after the children of selection were transformed.
	// It returns the selections replacing it. Returning nil removes the selection.
	Selection func(c *Cursor, selection ir.Selection) []ir.Selection
	// Selections is called for every selection list after its members were transformed.
	Selections func(c *Cursor, selections []ir.Selection) []ir.Selection
}

// Keep is the Selection result that leaves selection untouched.
func Keep(selection ir.Selection) []ir.Selection {
	return []ir.Selection{selection}
}

func (t Transformer) Transform(definition ir.Definition) ir.Definition {
	c := &Cursor{Definition: definition, ParentType: definition.ParentType()}
	selections, changed := t.transformSelections(c, definition.SelectionSet())
	if !changed {
		return definition
	}
	return definition.WithSelections(selections)
}

func (t Transformer) transformSelections(c *Cursor, selections []ir.Selection) ([]ir.Selection, bool) {
	var out []ir.Selection
	changed := false
	for i, selection := range selections {
		replacement := t.transformSelection(c, selection)
		same := len(replacement) == 1 && replacement[0] == selection
		if !same && !changed {
			changed = true
			out = append(make([]ir.Selection, 0, len(selections)), selections[:i]...)
		}
		if changed {
			out = append(out, replacement...)
		}
	}
	if !changed {
		out = selections
	}
	if t.Selections != nil {
		rewritten := t.Selections(c, out)
		if !slices.Equal(rewritten, out) {
			return rewritten, true
		}
	}
	return out, changed
}

func (t Transformer) transformSelection(c *Cursor, selection ir.Selection) []ir.Selection {
	if children := ir.Children(selection); len(children) != 0 {
		parentType, path := c.ParentType, c.Path
		c.ParentType = ChildType(selection, parentType)
		if key, ok := ir.ResponseKey(selection); ok {
			c.Path = append(slices.Clip(path), key.String())
		}
		transformed, changed := t.transformSelections(c, children)
		c.ParentType, c.Path = parentType, path
		if changed {
			selection = ir.WithChildren(selection, transformed)
		}
	}
	if t.Selection == nil {
		return Keep(selection)
	}
	return t.Selection(c, selection)
}

// TransformSelections applies t to a selection list under parentType.
func (t Transformer) TransformSelections(definition ir.Definition, parentType intern.StringKey, path []string, selections []ir.Selection) []ir.Selection {
	out, _ := t.transformSelections(&Cursor{Definition: definition, ParentType: parentType, Path: path}, selections)
	return out
}
