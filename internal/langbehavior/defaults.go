package langbehavior

import (
	"strings"

	"github.com/bartolli/codanna/internal/model"
)

// Defaults implements the hooks spec.md §4.5 says default to shared
// behavior. Concrete LanguageBehaviors embed Defaults and override
// only the hooks their language genuinely needs to specialize;
// CreateResolutionContext and BuildResolutionContext are never
// defaulted (every language needs its own compatibility policy and
// must pass itself, not Defaults, to BuildDefaultResolutionContext so
// that dynamic dispatch reaches the language's own overrides).
type Defaults struct{}

// IsResolvableSymbol defaults to true for every symbol kind.
func (Defaults) IsResolvableSymbol(*model.Symbol) bool { return true }

// IsSymbolVisibleFromFile applies the shared visibility+module rule:
// public is visible everywhere, private only within its own file,
// package/protected within the same module, and an empty Visibility
// (parser didn't report one) is treated as visible.
func (Defaults) IsSymbolVisibleFromFile(sym *model.Symbol, fromFile model.FileId, fromModule string) bool {
	if sym.FileId == fromFile {
		return true
	}
	switch sym.Visibility {
	case model.VisibilityPrivate:
		return false
	case model.VisibilityPackage, model.VisibilityProtected:
		return sym.ModulePath != "" && sym.ModulePath == fromModule
	case model.VisibilityPublic, "":
		return true
	default:
		return true
	}
}

// ImportMatchesSymbol defaults to matching the import's last path
// segment against the symbol's name, the conventional
// "import the last component" rule most module systems follow.
func (Defaults) ImportMatchesSymbol(importPath string, sym *model.Symbol) bool {
	return lastSegment(importPath) == sym.Name || strings.HasSuffix(importPath, "/"+sym.Name)
}

// InitializeResolutionContext is a no-op by default.
func (Defaults) InitializeResolutionContext(ResolutionScope, model.FileId) {}
