package ir

import (
	"errors"
	"fmt"
	"slices"
	"strings"

	"github.com/wundergraph/graphql-compiler/pkg/intern"
	"github.com/wundergraph/graphql-compiler/pkg/schema"
)

var (
	ErrProgramNotClosed = errors.New("program is not closed")
	ErrDuplicateName    = errors.New("duplicate definition name")
)

// DanglingSpreadsError lists spreads that point outside of the program.
type DanglingSpreadsError struct {
	Spreads map[intern.StringKey][]intern.StringKey
}

func (e *DanglingSpreadsError) Error() string {
	owners := make([]intern.StringKey, 0, len(e.Spreads))
	for owner := range e.Spreads {
		owners = append(owners, owner)
	}
	intern.Sort(owners)
	parts := make([]string, 0, len(owners))
	for _, owner := range owners {
		parts = append(parts, fmt.Sprintf("%s -> %s", owner, strings.Join(intern.Strings(e.Spreads[owner]), ",")))
	}
	return fmt.Sprintf("%s: %s", ErrProgramNotClosed, strings.Join(parts, "; "))
}

func (e *DanglingSpreadsError) Is(target error) bool {
	return target == ErrProgramNotClosed
}

// Program is an immutable, closed set of definitions for one project generation.
// Fragments and operations share one name space.
type Program struct {
	schema      schema.Schema
	definitions map[intern.StringKey]Definition
	operations  []intern.StringKey
	fragments   []intern.StringKey
}

// NewProgram builds a closed program or fails with a *DanglingSpreadsError.
func NewProgram(s schema.Schema, definitions ...Definition) (*Program, error) {
	b := NewProgramBuilder(s)
	for _, definition := range definitions {
		if err := b.Add(definition); err != nil {
			return nil, err
		}
	}
	return b.Build()
}

func (p *Program) Schema() schema.Schema {
	return p.schema
}

func (p *Program) Len() int {
	return len(p.definitions)
}

func (p *Program) Definition(name intern.StringKey) (Definition, bool) {
	d, ok := p.definitions[name]
	return d, ok
}

func (p *Program) Has(name intern.StringKey) bool {
	_, ok := p.definitions[name]
	return ok
}

func (p *Program) Fragment(name intern.StringKey) (*Fragment, bool) {
	f, ok := p.definitions[name].(*Fragment)
	return f, ok
}

func (p *Program) Operation(name intern.StringKey) (*Operation, bool) {
	o, ok := p.definitions[name].(*Operation)
	return o, ok
}

// Operations returns operations in lexical name order.
func (p *Program) Operations() []*Operation {
	out := make([]*Operation, 0, len(p.operations))
	for _, name := range p.operations {
		out = append(out, p.definitions[name].(*Operation))
	}
	return out
}

// Fragments returns fragments in lexical name order.
func (p *Program) Fragments() []*Fragment {
	out := make([]*Fragment, 0, len(p.fragments))
	for _, name := range p.fragments {
		out = append(out, p.definitions[name].(*Fragment))
	}
	return out
}

// Definitions returns operations followed by fragments, each in lexical name order.
func (p *Program) Definitions() []Definition {
	out := make([]Definition, 0, len(p.definitions))
	for _, name := range p.operations {
		out = append(out, p.definitions[name])
	}
	for _, name := range p.fragments {
		out = append(out, p.definitions[name])
	}
	return out
}

// Names returns every definition name in lexical order.
func (p *Program) Names() []intern.StringKey {
	out := make([]intern.StringKey, 0, len(p.definitions))
	out = append(out, p.operations...)
	out = append(out, p.fragments...)
	intern.Sort(out)
	return out
}

// Builder returns an open builder seeded with the program's definitions.
func (p *Program) Builder() *ProgramBuilder {
	b := NewProgramBuilder(p.schema)
	for name, definition := range p.definitions {
		b.definitions[name] = definition
	}
	return b
}

// WithDefinitions returns a copy with definitions added or replaced.
func (p *Program) WithDefinitions(definitions ...Definition) (*Program, error) {
	b := p.Builder()
	for _, definition := range definitions {
		b.Put(definition)
	}
	return b.Build()
}

// Without returns a copy without the named definitions. The result must still be closed.
func (p *Program) Without(names ...intern.StringKey) (*Program, error) {
	b := p.Builder()
	for _, name := range names {
		b.Remove(name)
	}
	return b.Build()
}

// ProgramBuilder is a program under construction. It may be open, Build checks closure.
type ProgramBuilder struct {
	schema      schema.Schema
	definitions map[intern.StringKey]Definition
}

func NewProgramBuilder(s schema.Schema) *ProgramBuilder {
	return &ProgramBuilder{
		schema:      s,
		definitions: make(map[intern.StringKey]Definition),
	}
}

// Add adds a definition, failing if the name is taken.
func (b *ProgramBuilder) Add(definition Definition) error {
	name := definition.DefinitionName()
	if _, exists := b.definitions[name]; exists {
		return fmt.Errorf("%w: %s", ErrDuplicateName, name)
	}
	b.definitions[name] = definition
	return nil
}

// Put adds or replaces a definition.
func (b *ProgramBuilder) Put(definition Definition) {
	b.definitions[definition.DefinitionName()] = definition
}

func (b *ProgramBuilder) Remove(name intern.StringKey) {
	delete(b.definitions, name)
}

func (b *ProgramBuilder) Get(name intern.StringKey) (Definition, bool) {
	d, ok := b.definitions[name]
	return d, ok
}

func (b *ProgramBuilder) Len() int {
	return len(b.definitions)
}

// Dangling returns, per definition, the spread targets missing from the builder.
func (b *ProgramBuilder) Dangling() map[intern.StringKey][]intern.StringKey {
	var out map[intern.StringKey][]intern.StringKey
	for name, definition := range b.definitions {
		missing := intern.NewSet()
		for _, spread := range Spreads(definition) {
			if _, ok := b.definitions[spread.Fragment].(*Fragment); !ok {
				missing.Add(spread.Fragment)
			}
		}
		if len(missing) == 0 {
			continue
		}
		if out == nil {
			out = make(map[intern.StringKey][]intern.StringKey)
		}
		out[name] = missing.Sorted()
	}
	return out
}

// Build returns the closed program or a *DanglingSpreadsError.
func (b *ProgramBuilder) Build() (*Program, error) {
	if dangling := b.Dangling(); dangling != nil {
		return nil, &DanglingSpreadsError{Spreads: dangling}
	}
	p := &Program{
		schema:      b.schema,
		definitions: make(map[intern.StringKey]Definition, len(b.definitions)),
	}
	for name, definition := range b.definitions {
		p.definitions[name] = definition
		if definition.DefinitionKind() == DefinitionKindOperation {
			p.operations = append(p.operations, name)
		} else {
			p.fragments = append(p.fragments, name)
		}
	}
	slices.SortFunc(p.operations, intern.StringKey.Compare)
	slices.SortFunc(p.fragments, intern.StringKey.Compare)
	return p, nil
}
