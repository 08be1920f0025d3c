package transforms

import (
	"github.com/wundergraph/graphql-compiler/pkg/intern"
	"github.com/wundergraph/graphql-compiler/pkg/ir"
	"github.com/wundergraph/graphql-compiler/pkg/operationreport"
	"github.com/wundergraph/graphql-compiler/pkg/schema"
)

// collectedField is a field reached while flattening a selection set through fragments.
type collectedField struct {
	parent    intern.StringKey
	selection ir.Selection
	// origin is the definition the field is written in.
	origin intern.StringKey
}

// validateSelectionConflicts checks that fields sharing a response key can be merged: they
// select the same field with the same arguments unless their parents can never overlap, and
// their sub-selections can be merged as well.
func validateSelectionConflicts(c *Context, definition ir.Definition) ir.Definition {
	v := conflictsValidator{c: c, current: definition.DefinitionName()}
	v.validate(v.collect(definition.ParentType(), definition.SelectionSet(), definition.DefinitionName(), intern.NewSet()))
	return definition
}

type conflictsValidator struct {
	c       *Context
	current intern.StringKey
}

// collect groups fields by response key, keeping document order within each group.
func (v *conflictsValidator) collect(parent intern.StringKey, selections []ir.Selection, origin intern.StringKey, visited intern.Set) ([]intern.StringKey, map[intern.StringKey][]collectedField) {
	var keys []intern.StringKey
	groups := make(map[intern.StringKey][]collectedField)
	var walk func(parent intern.StringKey, selections []ir.Selection, origin intern.StringKey)
	walk = func(parent intern.StringKey, selections []ir.Selection, origin intern.StringKey) {
		for _, selection := range selections {
			switch s := selection.(type) {
			case *ir.ScalarField, *ir.LinkedField:
				key, _ := ir.ResponseKey(s)
				if _, ok := groups[key]; !ok {
					keys = append(keys, key)
				}
				groups[key] = append(groups[key], collectedField{parent: parent, selection: s, origin: origin})
			case *ir.InlineFragment:
				typeCondition := parent
				if !s.TypeCondition.IsEmpty() {
					typeCondition = s.TypeCondition
				}
				walk(typeCondition, s.Selections, origin)
			case *ir.Condition:
				walk(parent, s.Selections, origin)
			case *ir.FragmentSpread:
				if visited.Has(s.Fragment) {
					continue
				}
				fragment, ok := v.c.Fragment(s.Fragment)
				if !ok {
					continue
				}
				visited.Add(s.Fragment)
				walk(fragment.TypeCondition, fragment.Selections, fragment.Name)
				visited.Remove(s.Fragment)
			}
		}
	}
	walk(parent, selections, origin)
	return keys, groups
}

func (v *conflictsValidator) validate(keys []intern.StringKey, groups map[intern.StringKey][]collectedField) {
	for _, key := range keys {
		fields := groups[key]
		if len(fields) == 1 {
			if linked, ok := fields[0].selection.(*ir.LinkedField); ok {
				v.validate(v.collect(linked.Definition.Type.NamedType(), linked.Selections, fields[0].origin, intern.NewSet()))
			}
			continue
		}
		for j := 1; j < len(fields); j++ {
			for i := 0; i < j; i++ {
				if v.conflict(key, fields[i], fields[j]) {
					break
				}
			}
		}
	}
}

// conflict reports whether a and b conflict, recording a diagnostic if the current
// definition owns the pair.
func (v *conflictsValidator) conflict(key intern.StringKey, a, b collectedField) bool {
	exclusive := a.parent != b.parent && v.isObject(a.parent) && v.isObject(b.parent)
	if !exclusive {
		nameA, _ := fieldName(a.selection)
		nameB, _ := fieldName(b.selection)
		if nameA != nameB {
			v.report(key, nameA.String()+" and "+nameB.String()+" are different fields", a, b)
			return true
		}
		if !ir.ArgumentsEqual(fieldArguments(a.selection), fieldArguments(b.selection)) {
			v.report(key, "they have differing arguments", a, b)
			return true
		}
	}
	_, leafA := a.selection.(*ir.ScalarField)
	_, leafB := b.selection.(*ir.ScalarField)
	typeA, typeB := fieldType(a.selection), fieldType(b.selection)
	if leafA != leafB || !sameShape(typeA, typeB) || (leafA && typeA.NamedType() != typeB.NamedType()) {
		v.report(key, "they return conflicting types "+typeA.String()+" and "+typeB.String(), a, b)
		return true
	}

	linkedA, okA := a.selection.(*ir.LinkedField)
	linkedB, okB := b.selection.(*ir.LinkedField)
	if !okA || !okB {
		return false
	}
	childKeys, childGroups := v.collect(linkedA.Definition.Type.NamedType(), linkedA.Selections, a.origin, intern.NewSet())
	otherKeys, otherGroups := v.collect(linkedB.Definition.Type.NamedType(), linkedB.Selections, b.origin, intern.NewSet())
	for _, childKey := range otherKeys {
		if _, ok := childGroups[childKey]; !ok {
			childKeys = append(childKeys, childKey)
		}
		childGroups[childKey] = append(childGroups[childKey], otherGroups[childKey]...)
	}
	v.validate(childKeys, childGroups)
	return false
}

// report records a conflict unless both fields live in a single fragment that is not the
// current definition. That fragment reports it itself.
func (v *conflictsValidator) report(key intern.StringKey, reason string, a, b collectedField) {
	if a.origin == b.origin && a.origin != v.current {
		return
	}
	v.c.AddDiagnostic(operationreport.ErrFieldsConflict(key.String(), reason, b.selection.SelectionLocation(), a.selection.SelectionLocation()))
}

func (v *conflictsValidator) isObject(name intern.StringKey) bool {
	t, ok := v.c.Schema.GetType(name)
	return ok && t.Kind == schema.KindObject
}

func fieldType(selection ir.Selection) schema.TypeReference {
	switch s := selection.(type) {
	case *ir.ScalarField:
		return s.Definition.Type
	case *ir.LinkedField:
		return s.Definition.Type
	}
	return schema.TypeReference{}
}

// sameShape compares list and non null wrappers.
func sameShape(a, b schema.TypeReference) bool {
	if a.NonNull != b.NonNull || (a.OfType == nil) != (b.OfType == nil) {
		return false
	}
	if a.OfType != nil {
		return sameShape(*a.OfType, *b.OfType)
	}
	return true
}
