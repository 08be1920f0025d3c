package operationreport

import (
	"fmt"
	"slices"
	"strings"

	"github.com/wundergraph/graphql-compiler/pkg/intern"
	"github.com/wundergraph/graphql-compiler/pkg/position"
)

type Severity uint8

const (
	SeverityError Severity = iota
	SeverityWarning
)

func (s Severity) String() string {
	switch s {
	case SeverityError:
		return "error"
	case SeverityWarning:
		return "warning"
	default:
		return fmt.Sprintf("Severity(%d)", uint8(s))
	}
}

// RelatedLocation is a secondary annotation such as "defined here".
type RelatedLocation struct {
	Message  string
	Location position.Location
}

type Diagnostic struct {
	Severity Severity
	// Code names the kind of problem, e.g. "FieldUndefined". Stable across releases.
	Code     string
	Message  string
	Location position.Location
	Related  []RelatedLocation
	// Definition owns the diagnostic. Empty for project wide diagnostics.
	Definition intern.StringKey
}

func (d Diagnostic) Error() string {
	return fmt.Sprintf("%s: %s", d.Location, d.Message)
}

func (d Diagnostic) WithRelated(message string, location position.Location) Diagnostic {
	d.Related = append(slices.Clip(d.Related), RelatedLocation{Message: message, Location: location})
	return d
}

func (d Diagnostic) WithDefinition(name intern.StringKey) Diagnostic {
	d.Definition = name
	return d
}

func (d Diagnostic) AsWarning() Diagnostic {
	d.Severity = SeverityWarning
	return d
}

func (d Diagnostic) Equal(other Diagnostic) bool {
	return d.Severity == other.Severity &&
		d.Code == other.Code &&
		d.Message == other.Message &&
		d.Location == other.Location &&
		d.Definition == other.Definition &&
		slices.Equal(d.Related, other.Related)
}

// Render prints the diagnostic with resolved line and column numbers.
func (d Diagnostic) Render(sources position.Sources) string {
	b := strings.Builder{}
	b.WriteString(fmt.Sprintf("%s: %s\n  at %s", d.Severity, d.Message, sources.Render(d.Location)))
	for i := range d.Related {
		b.WriteString(fmt.Sprintf("\n  %s: %s", d.Related[i].Message, sources.Render(d.Related[i].Location)))
	}
	return b.String()
}

func newError(code string, location position.Location, format string, args ...any) Diagnostic {
	return Diagnostic{
		Severity: SeverityError,
		Code:     code,
		Message:  fmt.Sprintf(format, args...),
		Location: location,
	}
}

func newWarning(code string, location position.Location, format string, args ...any) Diagnostic {
	d := newError(code, location, format, args...)
	d.Severity = SeverityWarning
	return d
}
