package operationreport

import (
	"strings"

	"github.com/wundergraph/graphql-compiler/pkg/position"
)

const (
	CodeSyntax                     = "Syntax"
	CodeSchemaInvalid              = "SchemaInvalid"
	CodeExtraction                 = "Extraction"
	CodeFileRead                   = "FileRead"
	CodeDuplicateDefinition        = "DuplicateDefinition"
	CodeOperationNameRequired      = "OperationNameRequired"
	CodeTypeUndefined              = "TypeUndefined"
	CodeNonCompositeTypeCondition  = "NonCompositeTypeCondition"
	CodeFieldUndefined             = "FieldUndefined"
	CodeLeafFieldSelection         = "LeafFieldSelection"
	CodeCompositeFieldNoSelection  = "CompositeFieldNoSelection"
	CodeArgumentUndefined          = "ArgumentUndefined"
	CodeDirectiveUndefined         = "DirectiveUndefined"
	CodeDirectiveMisplaced         = "DirectiveMisplaced"
	CodeFragmentUndefined          = "FragmentUndefined"
	CodeFragmentSpreadTypeMismatch = "FragmentSpreadTypeMismatch"
	CodeVariableTypeNotInput       = "VariableTypeNotInput"
	CodeDuplicateVariable          = "DuplicateVariable"
	CodeValueInvalid               = "ValueInvalid"
	CodeFragmentSpreadCycle        = "FragmentSpreadCycle"
	CodeDependencyFailed           = "DependencyFailed"
	CodeReservedAlias              = "ReservedAlias"
	CodeModuleName                 = "ModuleName"
	CodeRequiredArgumentMissing    = "RequiredArgumentMissing"
	CodeDeferStreamLabel           = "DeferStreamLabel"
	CodeStreamOnNonList            = "StreamOnNonList"
	CodeStreamInitialCount         = "StreamInitialCount"
	CodeConnection                 = "Connection"
	CodeMetadataCollision          = "MetadataCollision"
	CodeFragmentArgumentMissing    = "FragmentArgumentMissing"
	CodeFragmentArgumentUndefined  = "FragmentArgumentUndefined"
	CodeVariableUndefined          = "VariableUndefined"
	CodeVariableUnused             = "VariableUnused"
	CodeFieldsConflict             = "FieldsConflict"
	CodeArtifactWrite              = "ArtifactWrite"
	CodeInternal                   = "Internal"
)

func ErrSyntax(location position.Location, message string) Diagnostic {
	return newError(CodeSyntax, location, "%s", message)
}

func ErrSchemaInvalid(location position.Location, message string) Diagnostic {
	return newError(CodeSchemaInvalid, location, "invalid schema: %s", message)
}

func ErrExtraction(location position.Location, message string) Diagnostic {
	return newError(CodeExtraction, location, "%s", message)
}

func ErrFileRead(location position.Location, err error) Diagnostic {
	return newError(CodeFileRead, location, "unable to read file: %s", err)
}

func ErrDuplicateDefinition(name string, location, other position.Location) Diagnostic {
	return newError(CodeDuplicateDefinition, location, "duplicate definition name: %s", name).
		WithRelated("other definition", other)
}

func ErrOperationNameRequired(location position.Location) Diagnostic {
	return newError(CodeOperationNameRequired, location, "operations must be named")
}

func ErrTypeUndefined(typeName string, location position.Location) Diagnostic {
	return newError(CodeTypeUndefined, location, "type not defined: %s", typeName)
}

func ErrTypeConditionNotComposite(typeName string, location position.Location) Diagnostic {
	return newError(CodeNonCompositeTypeCondition, location, "type condition: %s must be an object, interface or union type", typeName)
}

func ErrFieldUndefinedOnType(fieldName, typeName string, location position.Location) Diagnostic {
	return newError(CodeFieldUndefined, location, "field: %s not defined on type: %s", fieldName, typeName)
}

func ErrFieldSelectionOnLeaf(fieldName, typeName string, location position.Location) Diagnostic {
	return newError(CodeLeafFieldSelection, location, "cannot select sub fields on field: %s of leaf type: %s", fieldName, typeName)
}

func ErrMissingFieldSelectionOnComposite(fieldName, typeName string, location position.Location) Diagnostic {
	return newError(CodeCompositeFieldNoSelection, location, "field: %s of type: %s must have a selection of sub fields", fieldName, typeName)
}

func ErrArgumentUndefined(argumentName, ownerName string, location position.Location) Diagnostic {
	return newError(CodeArgumentUndefined, location, "argument: %s not defined on: %s", argumentName, ownerName)
}

func ErrDirectiveUndefined(directiveName string, location position.Location) Diagnostic {
	return newError(CodeDirectiveUndefined, location, "directive: @%s not defined", directiveName)
}

func ErrDirectiveMisplaced(directiveName, placement string, location position.Location) Diagnostic {
	return newError(CodeDirectiveMisplaced, location, "directive: @%s not allowed on %s", directiveName, placement)
}

func ErrFragmentUndefined(fragmentName string, location position.Location) Diagnostic {
	return newError(CodeFragmentUndefined, location, "fragment: %s is undefined", fragmentName)
}

func ErrFragmentSpreadTypeMismatch(fragmentName, typeCondition, parentType string, location position.Location) Diagnostic {
	return newError(CodeFragmentSpreadTypeMismatch, location, "fragment: %s on type: %s can never be spread into type: %s", fragmentName, typeCondition, parentType)
}

func ErrVariableTypeNotInput(variableName, typeName string, location position.Location) Diagnostic {
	return newError(CodeVariableTypeNotInput, location, "variable: $%s type: %s is not an input type", variableName, typeName)
}

func ErrDuplicateVariable(variableName string, location position.Location) Diagnostic {
	return newError(CodeDuplicateVariable, location, "variable: $%s is defined more than once", variableName)
}

func ErrValueDoesntSatisfyType(value, typeName string, location position.Location) Diagnostic {
	return newError(CodeValueInvalid, location, "value: %s doesn't satisfy type: %s", value, typeName)
}

// ErrFragmentSpreadCycle is reported at the spread closing a cycle. path starts and ends with
// the fragment the cycle returns to.
func ErrFragmentSpreadCycle(path []string, location, fragmentLocation position.Location) Diagnostic {
	return newError(CodeFragmentSpreadCycle, location, "fragment: %s spreads itself through %s", path[0], strings.Join(path, " -> ")).
		WithRelated("fragment defined here", fragmentLocation)
}

// ErrDependencyFailed is attached to definitions excluded only because something they spread failed.
func ErrDependencyFailed(definitionName, dependencyName string, location, dependencyLocation position.Location) Diagnostic {
	return newWarning(CodeDependencyFailed, location, "%s was skipped because fragment: %s has errors", definitionName, dependencyName).
		WithRelated("failing fragment", dependencyLocation)
}

func ErrReservedAlias(alias string, location position.Location) Diagnostic {
	return newError(CodeReservedAlias, location, "alias: %s must not begin with __", alias)
}

func ErrModuleNameInvalid(definitionName, modulePrefix string, location position.Location) Diagnostic {
	return newError(CodeModuleName, location, "definition: %s must be prefixed with module name: %s", definitionName, modulePrefix)
}

func ErrRequiredArgumentMissing(argumentName, ownerName string, location position.Location) Diagnostic {
	return newError(CodeRequiredArgumentMissing, location, "required argument: %s missing on: %s", argumentName, ownerName)
}

func ErrDeferStreamDirectiveLabelMustBeStatic(location position.Location) Diagnostic {
	return newError(CodeDeferStreamLabel, location, "@defer and @stream labels must be static strings")
}

func ErrDeferStreamDirectiveLabelMustBeUnique(label string, location, other position.Location) Diagnostic {
	return newError(CodeDeferStreamLabel, location, "label: %s is used more than once", label).
		WithRelated("label first used here", other)
}

func ErrStreamDirectiveOnNonListField(fieldName string, location position.Location) Diagnostic {
	return newError(CodeStreamOnNonList, location, "@stream is only allowed on list fields, field: %s is not a list", fieldName)
}

func ErrStreamInitialCountMustBeNonNegative(location position.Location) Diagnostic {
	return newError(CodeStreamInitialCount, location, "@stream initialCount must be a non negative integer")
}

func ErrConnection(format string, location position.Location, args ...any) Diagnostic {
	return newError(CodeConnection, location, format, args...)
}

func ErrMetadataCollision(key string, location, other position.Location) Diagnostic {
	return newError(CodeMetadataCollision, location, "conflicting metadata for key: %s", key).
		WithRelated("conflicting metadata", other)
}

func ErrFragmentArgumentMissing(argumentName, fragmentName string, location position.Location) Diagnostic {
	return newError(CodeFragmentArgumentMissing, location, "required argument: %s of fragment: %s not provided", argumentName, fragmentName)
}

func ErrFragmentArgumentUndefined(argumentName, fragmentName string, location position.Location) Diagnostic {
	return newError(CodeFragmentArgumentUndefined, location, "argument: %s not defined on fragment: %s", argumentName, fragmentName)
}

func ErrVariableNotDefinedOnOperation(variableName, operationName string, location position.Location) Diagnostic {
	return newError(CodeVariableUndefined, location, "variable: $%s not defined on operation: %s", variableName, operationName)
}

func ErrVariableUnused(variableName, operationName string, location position.Location) Diagnostic {
	return newWarning(CodeVariableUnused, location, "variable: $%s is never used in operation: %s", variableName, operationName)
}

func ErrFieldsConflict(responseKey, reason string, location, other position.Location) Diagnostic {
	return newError(CodeFieldsConflict, location, "fields with response key: %s conflict, %s", responseKey, reason).
		WithRelated("conflicting field", other)
}

func ErrArtifactWrite(name string, location position.Location, err error) Diagnostic {
	return newError(CodeArtifactWrite, location, "unable to write artifact for: %s: %s", name, err)
}
