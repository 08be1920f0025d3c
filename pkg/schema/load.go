package schema

import (
	"errors"
	"slices"
	"strings"
	"unicode/utf8"

	"github.com/vektah/gqlparser/v2"
	"github.com/vektah/gqlparser/v2/ast"
	"github.com/vektah/gqlparser/v2/gqlerror"

	"github.com/wundergraph/graphql-compiler/pkg/intern"
	"github.com/wundergraph/graphql-compiler/pkg/operationreport"
	"github.com/wundergraph/graphql-compiler/pkg/pool"
	"github.com/wundergraph/graphql-compiler/pkg/position"
)

// Source is one SDL file.
type Source struct {
	Name  string
	Input string
}

// LoadError is returned when the schema cannot be parsed or validated. The whole project is unusable.
type LoadError struct {
	Diagnostics operationreport.Diagnostics
}

func (e *LoadError) Error() string {
	messages := make([]string, 0, len(e.Diagnostics))
	for i := range e.Diagnostics {
		messages = append(messages, e.Diagnostics[i].Message)
	}
	return strings.Join(messages, "; ")
}

// ParsedSchema is a Schema backed by gqlparser.
type ParsedSchema struct {
	types         map[intern.StringKey]*Type
	directives    map[intern.StringKey]*DirectiveDefinition
	possibleTypes map[intern.StringKey][]intern.StringKey
	roots         map[string]intern.StringKey
	fingerprints  map[intern.StringKey]uint64
	structure     uint64
	version       uint64
}

// Load parses and validates the server schema together with client schema extensions.
// Fields and types introduced by extension sources are client only.
func Load(schemaSources, extensionSources []Source) (*ParsedSchema, error) {
	sources := make([]*ast.Source, 0, len(schemaSources)+len(extensionSources))
	texts := make(map[string]string, cap(sources))
	clientSources := make(map[string]struct{}, len(extensionSources))
	for _, s := range schemaSources {
		sources = append(sources, &ast.Source{Name: s.Name, Input: s.Input})
		texts[s.Name] = s.Input
	}
	for _, s := range extensionSources {
		sources = append(sources, &ast.Source{Name: s.Name, Input: s.Input})
		texts[s.Name] = s.Input
		clientSources[s.Name] = struct{}{}
	}

	loaded, err := gqlparser.LoadSchema(sources...)
	if err != nil {
		return nil, &LoadError{Diagnostics: gqlErrorDiagnostics(err, texts)}
	}
	return fromAST(loaded, clientSources), nil
}

// MustLoad is Load for tests and static schemas.
func MustLoad(sdl string) *ParsedSchema {
	s, err := Load([]Source{{Name: "schema.graphql", Input: sdl}}, nil)
	if err != nil {
		panic(err)
	}
	return s
}

func fromAST(loaded *ast.Schema, clientSources map[string]struct{}) *ParsedSchema {
	s := &ParsedSchema{
		types:         make(map[intern.StringKey]*Type, len(loaded.Types)),
		directives:    make(map[intern.StringKey]*DirectiveDefinition, len(loaded.Directives)+len(compilerDirectives)),
		possibleTypes: make(map[intern.StringKey][]intern.StringKey),
		roots:         make(map[string]intern.StringKey, 3),
		fingerprints:  make(map[intern.StringKey]uint64, len(loaded.Types)),
	}

	isClient := func(p *ast.Position) bool {
		if p == nil || p.Src == nil {
			return false
		}
		_, ok := clientSources[p.Src.Name]
		return ok
	}

	for name, def := range loaded.Types {
		key := intern.Intern(name)
		typ := &Type{
			Name:       key,
			Kind:       kindFromAST(def.Kind),
			Interfaces: intern.InternAll(def.Interfaces...),
		}
		for _, value := range def.EnumValues {
			typ.EnumValues = append(typ.EnumValues, intern.Intern(value.Name))
		}
		clientType := isClient(def.Position)
		for _, field := range def.Fields {
			if strings.HasPrefix(field.Name, "__") {
				continue
			}
			typ.Fields = append(typ.Fields, &FieldDefinition{
				Name:      intern.Intern(field.Name),
				Parent:    key,
				Type:      FromAST(field.Type),
				Arguments: argumentsFromAST(field.Arguments),
				Client:    clientType || isClient(field.Position),
			})
		}
		s.types[key] = typ

		if typ.IsComposite() {
			possible := loaded.GetPossibleTypes(def)
			keys := make([]intern.StringKey, 0, len(possible))
			for _, p := range possible {
				keys = append(keys, intern.Intern(p.Name))
			}
			intern.Sort(keys)
			s.possibleTypes[key] = slices.Compact(keys)
		}
	}

	for name, def := range loaded.Directives {
		s.directives[intern.Intern(name)] = directiveFromAST(def, false)
	}
	for key, def := range compilerDirectives {
		s.directives[key] = def
	}

	if loaded.Query != nil {
		s.roots[string(ast.Query)] = intern.Intern(loaded.Query.Name)
	}
	if loaded.Mutation != nil {
		s.roots[string(ast.Mutation)] = intern.Intern(loaded.Mutation.Name)
	}
	if loaded.Subscription != nil {
		s.roots[string(ast.Subscription)] = intern.Intern(loaded.Subscription.Name)
	}

	s.computeFingerprints()
	return s
}

func kindFromAST(kind ast.DefinitionKind) TypeKind {
	switch kind {
	case ast.Scalar:
		return KindScalar
	case ast.Object:
		return KindObject
	case ast.Interface:
		return KindInterface
	case ast.Union:
		return KindUnion
	case ast.Enum:
		return KindEnum
	case ast.InputObject:
		return KindInputObject
	default:
		return 0
	}
}

func argumentsFromAST(arguments ast.ArgumentDefinitionList) []ArgumentDefinition {
	if len(arguments) == 0 {
		return nil
	}
	out := make([]ArgumentDefinition, 0, len(arguments))
	for _, argument := range arguments {
		out = append(out, ArgumentDefinition{
			Name:       intern.Intern(argument.Name),
			Type:       FromAST(argument.Type),
			HasDefault: argument.DefaultValue != nil,
		})
	}
	return out
}

func directiveFromAST(def *ast.DirectiveDefinition, compiler bool) *DirectiveDefinition {
	out := &DirectiveDefinition{
		Name:       intern.Intern(def.Name),
		Arguments:  argumentsFromAST(def.Arguments),
		Repeatable: def.IsRepeatable,
		Compiler:   compiler,
	}
	for _, location := range def.Locations {
		out.Locations = append(out.Locations, DirectiveLocation(location))
	}
	return out
}

func (s *ParsedSchema) GetType(name intern.StringKey) (*Type, bool) {
	t, ok := s.types[name]
	return t, ok
}

var (
	typenameField = intern.Intern("__typename")
	schemaField   = intern.Intern("__schema")
	typeField     = intern.Intern("__type")
	stringType    = intern.Intern("String")
	nameArgument  = intern.Intern("name")
)

func (s *ParsedSchema) GetField(parent, name intern.StringKey) (*FieldDefinition, bool) {
	t, ok := s.types[parent]
	if !ok {
		return nil, false
	}
	switch name {
	case typenameField:
		if !t.IsComposite() {
			return nil, false
		}
		return &FieldDefinition{Name: name, Parent: parent, Type: TypeReference{Name: stringType, NonNull: true}}, true
	case schemaField, typeField:
		if parent != s.roots[string(ast.Query)] {
			return nil, false
		}
		return introspectionField(parent, name), true
	}
	for i := range t.Fields {
		if t.Fields[i].Name == name {
			return t.Fields[i], true
		}
	}
	return nil, false
}

func introspectionField(parent, name intern.StringKey) *FieldDefinition {
	if name == schemaField {
		return &FieldDefinition{Name: name, Parent: parent, Type: Named("__Schema").AsNonNull()}
	}
	return &FieldDefinition{
		Name:      name,
		Parent:    parent,
		Type:      Named("__Type"),
		Arguments: []ArgumentDefinition{{Name: nameArgument, Type: TypeReference{Name: stringType, NonNull: true}}},
	}
}

func (s *ParsedSchema) GetDirective(name intern.StringKey) (*DirectiveDefinition, bool) {
	d, ok := s.directives[name]
	return d, ok
}

func (s *ParsedSchema) PossibleTypes(name intern.StringKey) []intern.StringKey {
	t, ok := s.types[name]
	if !ok {
		return nil
	}
	if t.Kind == KindObject {
		return []intern.StringKey{name}
	}
	return s.possibleTypes[name]
}

func (s *ParsedSchema) RootType(operation string) (intern.StringKey, bool) {
	root, ok := s.roots[operation]
	return root, ok
}

func (s *ParsedSchema) Version() uint64 {
	return s.version
}

func (s *ParsedSchema) TypeFingerprint(name intern.StringKey) uint64 {
	return s.fingerprints[name]
}

func (s *ParsedSchema) StructureFingerprint() uint64 {
	return s.structure
}

// TypeNames returns every type name in lexical order.
func (s *ParsedSchema) TypeNames() []intern.StringKey {
	out := make([]intern.StringKey, 0, len(s.types))
	for name := range s.types {
		out = append(out, name)
	}
	intern.Sort(out)
	return out
}

// InputDependents returns types plus every input object whose input fields reach one of them,
// directly or through other input objects, in lexical order. A literal of such an input object
// is validated against the nested types, so a change to them affects its users.
func (s *ParsedSchema) InputDependents(types []intern.StringKey) []intern.StringKey {
	usedBy := make(map[intern.StringKey][]intern.StringKey)
	for name, t := range s.types {
		if t.Kind != KindInputObject {
			continue
		}
		for _, f := range t.Fields {
			field := f.Type.NamedType()
			usedBy[field] = append(usedBy[field], name)
		}
	}

	out := intern.NewSet(types...)
	stack := append([]intern.StringKey(nil), types...)
	for len(stack) != 0 {
		name := stack[len(stack)-1]
		stack = stack[:len(stack)-1]
		for _, dependent := range usedBy[name] {
			if out.Has(dependent) {
				continue
			}
			out.Add(dependent)
			stack = append(stack, dependent)
		}
	}
	return out.Sorted()
}

func (s *ParsedSchema) computeFingerprints() {
	names := s.TypeNames()
	version := pool.Hash64.Get()
	defer pool.Hash64.Put(version)

	for _, name := range names {
		t := s.types[name]
		parts := []string{t.Name.String(), t.Kind.String()}
		parts = append(parts, intern.Strings(t.Interfaces)...)
		parts = append(parts, "|")
		parts = append(parts, intern.Strings(t.EnumValues)...)
		parts = append(parts, "|")
		parts = append(parts, intern.Strings(s.possibleTypes[name])...)
		for _, f := range t.Fields {
			parts = append(parts, "|", f.Name.String(), f.Type.String())
			if f.Client {
				parts = append(parts, "client")
			}
			for _, a := range f.Arguments {
				parts = append(parts, a.Name.String(), a.Type.String())
				if a.HasDefault {
					parts = append(parts, "=")
				}
			}
		}
		fingerprint := pool.HashStrings(parts...)
		s.fingerprints[name] = fingerprint
		_, _ = version.WriteString(pool.Hex(fingerprint))
	}

	directiveNames := make([]intern.StringKey, 0, len(s.directives))
	for name := range s.directives {
		directiveNames = append(directiveNames, name)
	}
	intern.Sort(directiveNames)
	var parts []string
	for _, op := range []string{"query", "mutation", "subscription"} {
		parts = append(parts, op, s.roots[op].String())
	}
	for _, name := range directiveNames {
		d := s.directives[name]
		parts = append(parts, "@", d.Name.String())
		for _, location := range d.Locations {
			parts = append(parts, string(location))
		}
		for _, a := range d.Arguments {
			parts = append(parts, a.Name.String(), a.Type.String())
		}
	}
	s.structure = pool.HashStrings(parts...)
	_, _ = version.WriteString(pool.Hex(s.structure))
	s.version = version.Sum64()
}

func gqlErrorDiagnostics(err error, texts map[string]string) operationreport.Diagnostics {
	var list gqlerror.List
	if !errors.As(err, &list) {
		var single *gqlerror.Error
		if !errors.As(err, &single) {
			return operationreport.Diagnostics{operationreport.ErrSchemaInvalid(position.GeneratedLocation, err.Error())}
		}
		list = gqlerror.List{single}
	}
	out := make(operationreport.Diagnostics, 0, len(list))
	for _, e := range list {
		location := position.GeneratedLocation
		if file, ok := e.Extensions["file"].(string); ok {
			location = position.NewLocation(position.Standalone(file), position.Span{})
			if len(e.Locations) > 0 {
				offset := OffsetOf(texts[file], e.Locations[0].Line, e.Locations[0].Column)
				location.Span = position.NewSpan(offset, offset)
			}
		}
		out = append(out, operationreport.ErrSchemaInvalid(location, e.Message))
	}
	return out
}

// OffsetOf converts a 1-based line and rune column into a byte offset of text.
func OffsetOf(text string, line, column int) int {
	offset := 0
	for l := 1; l < line; l++ {
		next := strings.IndexByte(text[offset:], '\n')
		if next < 0 {
			return len(text)
		}
		offset += next + 1
	}
	for c := 1; c < column && offset < len(text); c++ {
		_, size := utf8.DecodeRuneInString(text[offset:])
		offset += size
	}
	return offset
}
