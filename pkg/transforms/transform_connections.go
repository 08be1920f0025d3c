package transforms

import (
	"errors"
	"slices"

	"github.com/wundergraph/graphql-compiler/pkg/intern"
	"github.com/wundergraph/graphql-compiler/pkg/ir"
	"github.com/wundergraph/graphql-compiler/pkg/irvisitor"
	"github.com/wundergraph/graphql-compiler/pkg/operationreport"
	"github.com/wundergraph/graphql-compiler/pkg/position"
	"github.com/wundergraph/graphql-compiler/pkg/schema"
)

const connectionHandle = "connection"

var paginationArguments = intern.NewSet(
	intern.Intern("first"),
	intern.Intern("last"),
	intern.Intern("after"),
	intern.Intern("before"),
)

// transformConnections replaces @connection with connection and handle metadata. A key used
// twice within an operation and the fragments it spreads is a collision.
func transformConnections(c *Context, definition ir.Definition) ir.Definition {
	occurrences := connectionKeys(definition)
	for _, fragment := range c.Closure() {
		occurrences = append(occurrences, connectionKeys(fragment)...)
	}
	for _, pair := range duplicateOccurrences(definition.DefinitionName(), occurrences) {
		c.AddDiagnostic(operationreport.ErrMetadataCollision(ir.ConnectionMetadataKey.String(), pair[0].location, pair[1].location))
	}

	transformer := irvisitor.Transformer{
		Selection: func(cursor *irvisitor.Cursor, selection ir.Selection) []ir.Selection {
			field, ok := selection.(*ir.LinkedField)
			if !ok {
				return irvisitor.Keep(selection)
			}
			directive, ok := ir.FindDirective(field.Directives, schema.DirectiveConnection)
			if !ok {
				return irvisitor.Keep(selection)
			}
			key, _, static := staticString(directive.Arguments, keyArgument)
			if !static {
				return irvisitor.Keep(selection)
			}
			filters := connectionFilters(field, directive)
			path := append(slices.Clone(cursor.Path), field.ResponseKey().String())

			directives := ir.WithoutDirective(field.Directives, schema.DirectiveConnection)
			directives, err := addMetadata(c, directives, ir.ConnectionMetadata{Key: key, Filters: filters, Path: path}, directive.Location)
			if err != nil {
				return irvisitor.Keep(selection)
			}
			directives, err = addMetadata(c, directives, ir.HandleMetadata{Handle: connectionHandle, Key: key, Filters: filters}, directive.Location)
			if err != nil {
				return irvisitor.Keep(selection)
			}
			return []ir.Selection{ir.WithDirectives(field, directives)}
		},
	}
	return transformer.Transform(definition)
}

// connectionFilters returns the declared filters or, by default, the non pagination arguments of field.
func connectionFilters(field *ir.LinkedField, directive ir.Directive) []string {
	if argument, ok := ir.FindArgument(directive.Arguments, filtersArgument); ok {
		if filters, static := staticStrings(argument.Value); static && filters != nil {
			return filters
		}
	}
	var out []string
	for _, argument := range field.Arguments {
		if !paginationArguments.Has(argument.Name) {
			out = append(out, argument.Name.String())
		}
	}
	slices.Sort(out)
	return out
}

func connectionKeys(definition ir.Definition) []occurrence {
	var out []occurrence
	var walk func(selections []ir.Selection)
	walk = func(selections []ir.Selection) {
		for _, selection := range selections {
			if directive, ok := ir.FindDirective(selection.SelectionDirectives(), schema.DirectiveConnection); ok {
				if key, _, static := staticString(directive.Arguments, keyArgument); static {
					out = append(out, occurrence{key: key, location: directive.Location, origin: definition.DefinitionName()})
				}
			}
			walk(ir.Children(selection))
		}
	}
	walk(definition.SelectionSet())
	return out
}

// addMetadata attaches data and reports a collision with an existing payload.
func addMetadata(c *Context, directives []ir.Directive, data ir.Metadata, location position.Location) ([]ir.Directive, error) {
	out, err := ir.AddMetadata(directives, data, location)
	if err == nil {
		return out, nil
	}
	var collision *ir.MetadataCollisionError
	if errors.As(err, &collision) {
		c.AddDiagnostic(operationreport.ErrMetadataCollision(collision.Key.String(), location, collision.Existing.Location))
		return directives, err
	}
	c.Report().AddInternalError(err)
	return directives, err
}
