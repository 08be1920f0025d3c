// Package irvisitor walks and rewrites IR definitions.
package irvisitor

import (
	"github.com/wundergraph/graphql-compiler/pkg/intern"
	"github.com/wundergraph/graphql-compiler/pkg/ir"
	"github.com/wundergraph/graphql-compiler/pkg/operationreport"
)

type EnterDefinitionVisitor interface {
	EnterDefinition(definition ir.Definition)
}

type LeaveDefinitionVisitor interface {
	LeaveDefinition(definition ir.Definition)
}

type EnterSelectionVisitor interface {
	EnterSelection(selection ir.Selection)
}

type LeaveSelectionVisitor interface {
	LeaveSelection(selection ir.Selection)
}

// Walker orchestrates a read only walk over a definition and calls all registered visitors.
// Always use NewWalker to instantiate a new Walker.
type Walker struct {
	// Ancestors is the slice of selections enclosing the current selection.
	// Don't keep a reference to it, copy it if needed after the callback returned.
	Ancestors []ir.Selection
	// TypeStack holds the parent type of every selection set entered so far. The last entry
	// is the parent type of the current selection.
	TypeStack  []intern.StringKey
	Definition ir.Definition
	Report     *operationreport.Report

	enterDefinition []EnterDefinitionVisitor
	leaveDefinition []LeaveDefinitionVisitor
	enterSelection  []EnterSelectionVisitor
	leaveSelection  []LeaveSelectionVisitor

	skip bool
	stop bool
}

func NewWalker(ancestorSize int) *Walker {
	return &Walker{
		Ancestors: make([]ir.Selection, 0, ancestorSize),
		TypeStack: make([]intern.StringKey, 0, ancestorSize),
	}
}

func (w *Walker) RegisterEnterDefinitionVisitor(visitor EnterDefinitionVisitor) {
	w.enterDefinition = append(w.enterDefinition, visitor)
}

func (w *Walker) RegisterLeaveDefinitionVisitor(visitor LeaveDefinitionVisitor) {
	w.leaveDefinition = append(w.leaveDefinition, visitor)
}

func (w *Walker) RegisterEnterSelectionVisitor(visitor EnterSelectionVisitor) {
	w.enterSelection = append(w.enterSelection, visitor)
}

func (w *Walker) RegisterLeaveSelectionVisitor(visitor LeaveSelectionVisitor) {
	w.leaveSelection = append(w.leaveSelection, visitor)
}

// RegisterAllNodesVisitor registers visitor for every visitor interface it implements.
func (w *Walker) RegisterAllNodesVisitor(visitor interface{}) {
	if v, ok := visitor.(EnterDefinitionVisitor); ok {
		w.RegisterEnterDefinitionVisitor(v)
	}
	if v, ok := visitor.(LeaveDefinitionVisitor); ok {
		w.RegisterLeaveDefinitionVisitor(v)
	}
	if v, ok := visitor.(EnterSelectionVisitor); ok {
		w.RegisterEnterSelectionVisitor(v)
	}
	if v, ok := visitor.(LeaveSelectionVisitor); ok {
		w.RegisterLeaveSelectionVisitor(v)
	}
}

// Walk visits definition depth first in document order.
func (w *Walker) Walk(definition ir.Definition, report *operationreport.Report) {
	w.Definition = definition
	w.Report = report
	w.Ancestors = w.Ancestors[:0]
	w.TypeStack = append(w.TypeStack[:0], definition.ParentType())
	w.stop = false
	w.skip = false

	for _, v := range w.enterDefinition {
		v.EnterDefinition(definition)
		if w.stop {
			return
		}
	}
	w.walkSelections(definition.SelectionSet())
	if w.stop {
		return
	}
	for _, v := range w.leaveDefinition {
		v.LeaveDefinition(definition)
	}
}

func (w *Walker) walkSelections(selections []ir.Selection) {
	for _, selection := range selections {
		w.walkSelection(selection)
		if w.stop {
			return
		}
	}
}

func (w *Walker) walkSelection(selection ir.Selection) {
	w.skip = false
	for _, v := range w.enterSelection {
		v.EnterSelection(selection)
		if w.stop {
			return
		}
	}
	if !w.skip {
		if children := ir.Children(selection); len(children) != 0 {
			w.Ancestors = append(w.Ancestors, selection)
			w.TypeStack = append(w.TypeStack, ChildType(selection, w.EnclosingType()))
			w.walkSelections(children)
			w.TypeStack = w.TypeStack[:len(w.TypeStack)-1]
			w.Ancestors = w.Ancestors[:len(w.Ancestors)-1]
			if w.stop {
				return
			}
		}
	}
	w.skip = false
	for _, v := range w.leaveSelection {
		v.LeaveSelection(selection)
		if w.stop {
			return
		}
	}
}

// EnclosingType returns the parent type of the current selection.
func (w *Walker) EnclosingType() intern.StringKey {
	return w.TypeStack[len(w.TypeStack)-1]
}

// Path returns the response keys of the enclosing fields.
func (w *Walker) Path() []string {
	var out []string
	for _, ancestor := range w.Ancestors {
		if key, ok := ir.ResponseKey(ancestor); ok {
			out = append(out, key.String())
		}
	}
	return out
}

// SkipNode skips the children of the selection being entered.
func (w *Walker) SkipNode() {
	w.skip = true
}

// Stop ends the walk after the current callback.
func (w *Walker) Stop() {
	w.stop = true
}

// StopWithDiagnostic records diagnostic and ends the walk.
func (w *Walker) StopWithDiagnostic(diagnostic operationreport.Diagnostic) {
	w.stop = true
	w.Report.AddDiagnostic(diagnostic.WithDefinition(w.Definition.DefinitionName()))
}

// AddDiagnostic records diagnostic owned by the definition being walked.
func (w *Walker) AddDiagnostic(diagnostic operationreport.Diagnostic) {
	w.Report.AddDiagnostic(diagnostic.WithDefinition(w.Definition.DefinitionName()))
}

// ChildType returns the parent type of the selections nested in selection.
func ChildType(selection ir.Selection, enclosing intern.StringKey) intern.StringKey {
	switch s := selection.(type) {
	case *ir.LinkedField:
		return s.Definition.Type.NamedType()
	case *ir.InlineFragment:
		if !s.TypeCondition.IsEmpty() {
			return s.TypeCondition
		}
	}
	return enclosing
}
