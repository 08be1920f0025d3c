// Package irprinter prints IR definitions as GraphQL documents. Output is deterministic,
// artifact hashes are computed over it.
package irprinter

import (
	"bytes"
	"io"
	"strconv"
	"strings"

	"github.com/wundergraph/graphql-compiler/internal/pkg/quotes"
	"github.com/wundergraph/graphql-compiler/pkg/intern"
	"github.com/wundergraph/graphql-compiler/pkg/ir"
	"github.com/wundergraph/graphql-compiler/pkg/lexing/literal"
)

var (
	argumentsDirective           = intern.Intern("arguments")
	argumentDefinitionsDirective = intern.Intern("argumentDefinitions")
)

func Print(definition ir.Definition, out io.Writer) error {
	printer := Printer{}
	return printer.Print(definition, out)
}

func PrintString(definition ir.Definition) (string, error) {
	buff := &bytes.Buffer{}
	err := Print(definition, buff)
	out := buff.String()
	return out, err
}

// PrintDocument prints definitions separated by a blank line.
func PrintDocument(definitions []ir.Definition, out io.Writer, metadata bool) error {
	printer := Printer{Metadata: metadata}
	for i := range definitions {
		if i != 0 {
			if _, err := io.WriteString(out, literal.LINETERMINATOR+literal.LINETERMINATOR); err != nil {
				return err
			}
		}
		if err := printer.Print(definitions[i], out); err != nil {
			return err
		}
	}
	return nil
}

type Printer struct {
	// Metadata includes metadata directives in the output. Artifacts never carry them.
	Metadata bool

	out   io.Writer
	err   error
	depth int
}

func (p *Printer) Print(definition ir.Definition, out io.Writer) error {
	p.out = out
	p.err = nil
	p.depth = 0

	switch d := definition.(type) {
	case *ir.Operation:
		p.printOperation(d)
	case *ir.Fragment:
		p.printFragment(d)
	}
	return p.err
}

func (p *Printer) write(s string) {
	if p.err != nil {
		return
	}
	_, p.err = io.WriteString(p.out, s)
}

func (p *Printer) printOperation(o *ir.Operation) {
	p.write(o.Kind.String())
	p.write(literal.SPACE)
	p.write(o.Name.String())
	if len(o.VariableDefinitions) != 0 {
		p.write(literal.BRACKETOPEN)
		for i, v := range o.VariableDefinitions {
			if i != 0 {
				p.write(literal.COMMA)
				p.write(literal.SPACE)
			}
			p.printVariableDefinition(v)
		}
		p.write(literal.BRACKETCLOSE)
	}
	p.printDirectives(o.Directives)
	p.write(literal.SPACE)
	p.printSelectionSet(o.Selections)
}

func (p *Printer) printVariableDefinition(v ir.VariableDefinition) {
	p.write(literal.DOLLAR)
	p.write(v.Name.String())
	p.write(literal.COLON)
	p.write(literal.SPACE)
	p.write(v.Type.String())
	if v.DefaultValue != nil {
		p.write(literal.SPACE)
		p.write(literal.EQUALS)
		p.write(literal.SPACE)
		p.write(v.DefaultValue.String())
	}
	p.printDirectives(v.Directives)
}

func (p *Printer) printFragment(f *ir.Fragment) {
	p.write(literal.FRAGMENT)
	p.write(literal.SPACE)
	p.write(f.Name.String())
	p.write(literal.SPACE)
	p.write(literal.ON)
	p.write(literal.SPACE)
	p.write(f.TypeCondition.String())
	if len(f.VariableDefinitions) != 0 {
		p.write(literal.SPACE)
		p.write(literal.AT)
		p.write(argumentDefinitionsDirective.String())
		p.write(literal.BRACKETOPEN)
		for i, v := range f.VariableDefinitions {
			if i != 0 {
				p.write(literal.COMMA)
				p.write(literal.SPACE)
			}
			p.write(v.Name.String())
			p.write(literal.COLON)
			p.write(literal.SPACE)
			p.write(literal.CURLYBRACKETOPEN)
			p.write("type: ")
			p.write(quotes.GraphQLString(v.Type.String()))
			if v.DefaultValue != nil {
				p.write(", defaultValue: ")
				p.write(v.DefaultValue.String())
			}
			p.write(literal.CURLYBRACKETCLOSE)
		}
		p.write(literal.BRACKETCLOSE)
	}
	p.printDirectives(f.Directives)
	p.write(literal.SPACE)
	p.printSelectionSet(f.Selections)
}

func (p *Printer) printSelectionSet(selections []ir.Selection) {
	p.write(literal.CURLYBRACKETOPEN)
	p.depth++
	for _, selection := range selections {
		p.write(literal.LINETERMINATOR)
		p.write(strings.Repeat(literal.INDENT, p.depth))
		p.printSelection(selection)
	}
	p.depth--
	p.write(literal.LINETERMINATOR)
	p.write(strings.Repeat(literal.INDENT, p.depth))
	p.write(literal.CURLYBRACKETCLOSE)
}

func (p *Printer) printSelection(selection ir.Selection) {
	switch s := selection.(type) {
	case *ir.ScalarField:
		p.printFieldName(s.Alias, s.Definition.Name)
		p.printArguments(s.Arguments)
		p.printDirectives(s.Directives)
	case *ir.LinkedField:
		p.printFieldName(s.Alias, s.Definition.Name)
		p.printArguments(s.Arguments)
		p.printDirectives(s.Directives)
		p.write(literal.SPACE)
		p.printSelectionSet(s.Selections)
	case *ir.FragmentSpread:
		p.write(literal.SPREAD)
		p.write(s.Fragment.String())
		if len(s.Arguments) != 0 {
			p.write(literal.SPACE)
			p.write(literal.AT)
			p.write(argumentsDirective.String())
			p.printArguments(s.Arguments)
		}
		p.printDirectives(s.Directives)
	case *ir.InlineFragment:
		p.write(literal.SPREAD)
		if !s.TypeCondition.IsEmpty() {
			p.write(literal.SPACE)
			p.write(literal.ON)
			p.write(literal.SPACE)
			p.write(s.TypeCondition.String())
		}
		p.printDirectives(s.Directives)
		p.write(literal.SPACE)
		p.printSelectionSet(s.Selections)
	case *ir.Condition:
		p.write(literal.SPREAD)
		p.write(literal.SPACE)
		p.write(literal.AT)
		if s.Passing {
			p.write(literal.INCLUDE)
		} else {
			p.write(literal.SKIP)
		}
		p.write(literal.BRACKETOPEN)
		p.write(literal.IF)
		p.write(literal.COLON)
		p.write(literal.SPACE)
		p.write(s.Value.String())
		p.write(literal.BRACKETCLOSE)
		p.write(literal.SPACE)
		p.printSelectionSet(s.Selections)
	}
}

func (p *Printer) printFieldName(alias, name intern.StringKey) {
	if !alias.IsEmpty() && alias != name {
		p.write(alias.String())
		p.write(literal.COLON)
		p.write(literal.SPACE)
	}
	p.write(name.String())
}

func (p *Printer) printArguments(arguments []ir.Argument) {
	if len(arguments) == 0 {
		return
	}
	p.write(literal.BRACKETOPEN)
	for i, a := range arguments {
		if i != 0 {
			p.write(literal.COMMA)
			p.write(literal.SPACE)
		}
		p.write(a.Name.String())
		p.write(literal.COLON)
		p.write(literal.SPACE)
		p.write(a.Value.String())
	}
	p.write(literal.BRACKETCLOSE)
}

func (p *Printer) printDirectives(directives []ir.Directive) {
	for _, d := range directives {
		if d.IsMetadata() {
			if !p.Metadata {
				continue
			}
			p.write(literal.SPACE)
			p.write(literal.AT)
			p.write(d.Name.String())
			p.printArguments(MetadataArguments(d.Data))
			continue
		}
		p.write(literal.SPACE)
		p.write(literal.AT)
		p.write(d.Name.String())
		p.printArguments(d.Arguments)
	}
}

// MetadataArguments renders a metadata payload as directive arguments for debug output.
func MetadataArguments(data ir.Metadata) []ir.Argument {
	var out []ir.Argument
	add := func(name string, value ir.Value) {
		out = append(out, ir.Argument{Name: intern.Intern(name), Value: value})
	}
	addString := func(name, value string) {
		if value != "" {
			add(name, ir.String(value))
		}
	}
	addStrings := func(name string, values []string) {
		if len(values) == 0 {
			return
		}
		items := make([]ir.Value, 0, len(values))
		for _, v := range values {
			items = append(items, ir.String(v))
		}
		add(name, &ir.ListValue{Items: items})
	}

	switch d := data.(type) {
	case ir.ConnectionMetadata:
		addString("key", d.Key)
		addStrings("filters", d.Filters)
		addStrings("path", d.Path)
	case ir.HandleMetadata:
		addString("handle", d.Handle)
		addString("key", d.Key)
		addStrings("filters", d.Filters)
	case ir.ModuleMetadata:
		addString("module", d.Module)
		addString("fragment", d.Fragment)
		addString("typeCondition", d.TypeCondition)
		addString("field", d.Field)
	case ir.DeferMetadata:
		addString("label", d.Label)
		addString("if", d.If)
	case ir.StreamMetadata:
		addString("label", d.Label)
		addString("if", d.If)
		if d.InitialCount != nil {
			add("initialCount", d.InitialCount)
		}
	case ir.FragmentArgumentsMetadata:
		addString("source", d.Source)
		for i, a := range d.Arguments {
			addString("argument"+strconv.Itoa(i), a.Name+": "+a.Value)
		}
	}
	return out
}
