package langbehavior

import (
	"strings"
	"unicode"

	"github.com/bartolli/codanna/internal/model"
)

// GoBehavior implements LanguageBehavior for Go: package-level
// visibility is name-case, not a declared keyword (an exported
// identifier starts uppercase), and "same module" means same
// import-path package, grounded on standardbeagle-lci's GoResolver
// module-path handling reused by resolverconfig.GoModResolver.
type GoBehavior struct {
	Defaults
}

func NewGoBehavior() *GoBehavior { return &GoBehavior{} }

func (g *GoBehavior) LanguageID() string { return "go" }

func (g *GoBehavior) CreateResolutionContext(fileID model.FileId) ResolutionScope {
	return NewBaseScope(fileID, DefaultCompatibility)
}

// IsSymbolVisibleFromFile overrides Defaults: Go has no "package"
// visibility tag on the symbol, so an unexported (lowercase-initial)
// name is only visible within its own package (ModulePath), and an
// exported name is visible everywhere.
func (g *GoBehavior) IsSymbolVisibleFromFile(sym *model.Symbol, fromFile model.FileId, fromModule string) bool {
	if sym.FileId == fromFile {
		return true
	}
	if isExportedGoName(sym.Name) {
		return true
	}
	return sym.ModulePath != "" && sym.ModulePath == fromModule
}

func (g *GoBehavior) ImportMatchesSymbol(importPath string, sym *model.Symbol) bool {
	if sym.ModulePath != "" && strings.TrimSuffix(importPath, "/") == sym.ModulePath {
		return true
	}
	return g.Defaults.ImportMatchesSymbol(importPath, sym)
}

func (g *GoBehavior) BuildResolutionContext(fileID model.FileId, path string, imports []model.Import, cache SymbolSource) (ResolutionScope, []model.EnhancedImport) {
	return BuildDefaultResolutionContext(g, fileID, path, imports, cache, nil)
}

func isExportedGoName(name string) bool {
	if name == "" {
		return false
	}
	r := []rune(name)[0]
	return unicode.IsUpper(r)
}
