// Package operationreport collects the diagnostics produced while compiling GraphQL documents.
package operationreport

import (
	"errors"
	"fmt"
	"slices"
	"strings"

	"github.com/wundergraph/graphql-compiler/pkg/intern"
)

// Report accumulates diagnostics. Diagnostics are data: stages append to a report and keep going.
// InternalErrors are reserved for broken invariants inside the compiler itself.
type Report struct {
	InternalErrors []error
	Diagnostics    Diagnostics
}

func (r Report) Error() string {
	out := ""
	for i := range r.InternalErrors {
		if i != 0 {
			out += "\n"
		}
		out += fmt.Sprintf("internal: %s", r.InternalErrors[i].Error())
	}
	if len(out) > 0 && len(r.Diagnostics) > 0 {
		out += "\n"
	}
	for i := range r.Diagnostics {
		if i != 0 {
			out += "\n"
		}
		out += fmt.Sprintf("%s: %s, location: %s", r.Diagnostics[i].Severity, r.Diagnostics[i].Message, r.Diagnostics[i].Location)
	}
	return out
}

// HasErrors reports whether the report holds an internal error or an error diagnostic. Warnings don't count.
func (r *Report) HasErrors() bool {
	return len(r.InternalErrors) > 0 || r.Diagnostics.HasErrors()
}

func (r *Report) Reset() {
	r.InternalErrors = r.InternalErrors[:0]
	r.Diagnostics = r.Diagnostics[:0]
}

func (r *Report) AddInternalError(err error) {
	r.InternalErrors = append(r.InternalErrors, err)
}

func (r *Report) AddDiagnostic(diagnostic Diagnostic) {
	r.Diagnostics = append(r.Diagnostics, diagnostic)
}

// Merge appends everything from other.
func (r *Report) Merge(other Report) {
	r.InternalErrors = append(r.InternalErrors, other.InternalErrors...)
	r.Diagnostics = append(r.Diagnostics, other.Diagnostics...)
}

// Sort orders diagnostics deterministically, see Diagnostics.Sort.
func (r *Report) Sort() {
	r.Diagnostics.Sort()
}

// FailedDefinitions returns the owners of error diagnostics in lexical order.
func (r *Report) FailedDefinitions() []intern.StringKey {
	failed := intern.NewSet()
	for i := range r.Diagnostics {
		if r.Diagnostics[i].Severity == SeverityError && !r.Diagnostics[i].Definition.IsEmpty() {
			failed.Add(r.Diagnostics[i].Definition)
		}
	}
	return failed.Sorted()
}

type FormatReportMessage func(report *Report) string

func ReportMessage(err error, formatFunction FormatReportMessage) (message string, ok bool) {
	var report Report
	if errors.As(err, &report) {
		msg := formatFunction(&report)
		return msg, true
	}
	return "", false
}

func UnwrappedErrorMessage(err error) string {
	for result := err; result != nil; result = errors.Unwrap(result) {
		err = result
	}
	return err.Error()
}

// Diagnostics is an ordered list of diagnostics.
type Diagnostics []Diagnostic

func (d Diagnostics) HasErrors() bool {
	return slices.ContainsFunc(d, func(diagnostic Diagnostic) bool {
		return diagnostic.Severity == SeverityError
	})
}

func (d Diagnostics) Count(severity Severity) int {
	count := 0
	for i := range d {
		if d[i].Severity == severity {
			count++
		}
	}
	return count
}

// ForDefinition returns the diagnostics owned by name.
func (d Diagnostics) ForDefinition(name intern.StringKey) Diagnostics {
	var out Diagnostics
	for i := range d {
		if d[i].Definition == name {
			out = append(out, d[i])
		}
	}
	return out
}

// Sort orders by location, then severity, then message.
func (d Diagnostics) Sort() {
	slices.SortStableFunc(d, func(a, b Diagnostic) int {
		if c := a.Location.Compare(b.Location); c != 0 {
			return c
		}
		if a.Severity != b.Severity {
			return int(a.Severity) - int(b.Severity)
		}
		if c := strings.Compare(a.Message, b.Message); c != 0 {
			return c
		}
		return a.Definition.Compare(b.Definition)
	})
}

// Dedupe removes diagnostics equal to an earlier one. d must be sorted.
func (d Diagnostics) Dedupe() Diagnostics {
	return slices.CompactFunc(d, func(a, b Diagnostic) bool {
		return a.Equal(b)
	})
}
