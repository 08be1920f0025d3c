package ir

import (
	"errors"
	"fmt"
	"reflect"
	"slices"

	"github.com/wundergraph/graphql-compiler/pkg/intern"
	"github.com/wundergraph/graphql-compiler/pkg/position"
)

// Directive is either a user directive carried by name and arguments or, when Data is set,
// a metadata directive attached by a transform for a later one.
type Directive struct {
	Name      intern.StringKey
	Arguments []Argument
	Data      Metadata
	Location  position.Location
}

func (d Directive) IsMetadata() bool {
	return d.Data != nil
}

// Metadata is the payload of a metadata directive. The set of payloads is closed,
// each payload type owns exactly one reserved directive name.
type Metadata interface {
	MetadataKey() intern.StringKey
	isMetadata()
}

var (
	ConnectionMetadataKey        = intern.Intern("__connectionMetadata")
	HandleMetadataKey            = intern.Intern("__clientField")
	ModuleMetadataKey            = intern.Intern("__module")
	DeferMetadataKey             = intern.Intern("__defer")
	StreamMetadataKey            = intern.Intern("__stream")
	FragmentArgumentsMetadataKey = intern.Intern("__fragmentArguments")
)

// ConnectionMetadata marks a paginated field. Path holds the response keys from the definition root.
type ConnectionMetadata struct {
	Key     string
	Filters []string
	Path    []string
}

func (ConnectionMetadata) MetadataKey() intern.StringKey { return ConnectionMetadataKey }
func (ConnectionMetadata) isMetadata()                   {}

// HandleMetadata asks the runtime to route a field through a client side handler.
type HandleMetadata struct {
	Handle  string
	Key     string
	Filters []string
}

func (HandleMetadata) MetadataKey() intern.StringKey { return HandleMetadataKey }
func (HandleMetadata) isMetadata()                   {}

// ModuleMetadata marks an inline fragment selected through @match/@module.
type ModuleMetadata struct {
	Module        string
	Fragment      string
	TypeCondition string
	Field         string
}

func (ModuleMetadata) MetadataKey() intern.StringKey { return ModuleMetadataKey }
func (ModuleMetadata) isMetadata()                   {}

// DeferMetadata marks an inline fragment that can be delivered incrementally. If is a variable name,
// empty when the fragment is always deferred.
type DeferMetadata struct {
	Label string
	If    string
}

func (DeferMetadata) MetadataKey() intern.StringKey { return DeferMetadataKey }
func (DeferMetadata) isMetadata()                   {}

type StreamMetadata struct {
	Label        string
	If           string
	InitialCount Value
}

func (StreamMetadata) MetadataKey() intern.StringKey { return StreamMetadataKey }
func (StreamMetadata) isMetadata()                   {}

// FragmentArgumentsMetadata records on a specialized fragment which fragment and which
// argument binding it was derived from.
type FragmentArgumentsMetadata struct {
	Source    string
	Arguments []BoundArgument
}

type BoundArgument struct {
	Name  string
	Value string
}

func (FragmentArgumentsMetadata) MetadataKey() intern.StringKey { return FragmentArgumentsMetadataKey }
func (FragmentArgumentsMetadata) isMetadata()                   {}

var ErrMetadataCollision = errors.New("metadata collision")

// MetadataCollisionError is returned when a different payload is already registered under a key.
type MetadataCollisionError struct {
	Key      intern.StringKey
	Existing Directive
}

func (e *MetadataCollisionError) Error() string {
	return fmt.Sprintf("%s: %s", ErrMetadataCollision, e.Key)
}

func (e *MetadataCollisionError) Is(target error) bool {
	return target == ErrMetadataCollision
}

func MetadataEqual(a, b Metadata) bool {
	return reflect.DeepEqual(a, b)
}

// AddMetadata attaches data to directives. Adding an equal payload again is a no-op,
// adding a different payload under an existing key fails with ErrMetadataCollision.
func AddMetadata(directives []Directive, data Metadata, location position.Location) ([]Directive, error) {
	key := data.MetadataKey()
	for i := range directives {
		if directives[i].Name != key {
			continue
		}
		if MetadataEqual(directives[i].Data, data) {
			return directives, nil
		}
		return directives, &MetadataCollisionError{Key: key, Existing: directives[i]}
	}
	out := append(slices.Clip(directives), Directive{Name: key, Data: data, Location: location})
	return out, nil
}

// DecodeMetadata returns the payload of type T attached to directives.
func DecodeMetadata[T Metadata](directives []Directive) (T, bool) {
	var zero T
	key := zero.MetadataKey()
	for i := range directives {
		if directives[i].Name != key {
			continue
		}
		if data, ok := directives[i].Data.(T); ok {
			return data, true
		}
	}
	return zero, false
}

func FindDirective(directives []Directive, name intern.StringKey) (Directive, bool) {
	for i := range directives {
		if directives[i].Name == name {
			return directives[i], true
		}
	}
	return Directive{}, false
}

// WithoutDirective returns directives without any directive named name. The input is never modified.
func WithoutDirective(directives []Directive, name intern.StringKey) []Directive {
	if _, ok := FindDirective(directives, name); !ok {
		return directives
	}
	out := make([]Directive, 0, len(directives)-1)
	for i := range directives {
		if directives[i].Name != name {
			out = append(out, directives[i])
		}
	}
	return out
}

// DirectivesEqual compares names, arguments and payloads in order.
func DirectivesEqual(a, b []Directive) bool {
	if len(a) != len(b) {
		return false
	}
	for i := range a {
		if a[i].Name != b[i].Name || !ArgumentsEqual(a[i].Arguments, b[i].Arguments) || !MetadataEqual(a[i].Data, b[i].Data) {
			return false
		}
	}
	return true
}

// UserDirectives filters out metadata directives.
func UserDirectives(directives []Directive) []Directive {
	out := make([]Directive, 0, len(directives))
	for i := range directives {
		if !directives[i].IsMetadata() {
			out = append(out, directives[i])
		}
	}
	return out
}
