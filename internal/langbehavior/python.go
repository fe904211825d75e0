package langbehavior

import (
	"strings"

	"github.com/bartolli/codanna/internal/model"
)

// PythonBehavior treats a single leading underscore as the
// convention's module-private marker (no enforced private keyword),
// and otherwise shares the default scope and import-matching rules.
type PythonBehavior struct {
	Defaults
}

func NewPythonBehavior() *PythonBehavior { return &PythonBehavior{} }

func (p *PythonBehavior) LanguageID() string { return "python" }

func (p *PythonBehavior) CreateResolutionContext(fileID model.FileId) ResolutionScope {
	return NewBaseScope(fileID, DefaultCompatibility)
}

func (p *PythonBehavior) IsSymbolVisibleFromFile(sym *model.Symbol, fromFile model.FileId, fromModule string) bool {
	if sym.FileId == fromFile {
		return true
	}
	if strings.HasPrefix(sym.Name, "_") && !strings.HasPrefix(sym.Name, "__") {
		return sym.ModulePath != "" && sym.ModulePath == fromModule
	}
	return p.Defaults.IsSymbolVisibleFromFile(sym, fromFile, fromModule)
}

func (p *PythonBehavior) BuildResolutionContext(fileID model.FileId, path string, imports []model.Import, cache SymbolSource) (ResolutionScope, []model.EnhancedImport) {
	return BuildDefaultResolutionContext(p, fileID, path, imports, cache, nil)
}
