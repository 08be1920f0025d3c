package transforms

import (
	"path/filepath"
	"strings"

	"github.com/iancoleman/strcase"

	"github.com/wundergraph/graphql-compiler/pkg/ir"
	"github.com/wundergraph/graphql-compiler/pkg/operationreport"
)

// ModuleName derives the module name of a source file: the file name up to its first dot,
// in lower camel case. "UserProfile.react.js" becomes "userProfile".
func ModuleName(path string) string {
	base := filepath.Base(path)
	if i := strings.IndexByte(base, '.'); i > 0 {
		base = base[:i]
	}
	return strcase.ToLowerCamel(base)
}

func validateModuleNames(c *Context, definition ir.Definition) ir.Definition {
	if !c.Options.ValidateModuleNames {
		return definition
	}
	location := definition.DefinitionLocation()
	if location.IsGenerated() {
		return definition
	}
	module := ModuleName(location.Source.Path.String())
	name := definition.DefinitionName().String()
	if !strings.HasPrefix(name, module) {
		c.AddDiagnostic(operationreport.ErrModuleNameInvalid(name, module, location))
	}
	return definition
}
