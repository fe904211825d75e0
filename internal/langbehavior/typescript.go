package langbehavior

import (
	"github.com/bartolli/codanna/internal/model"
	"github.com/bartolli/codanna/internal/resolverconfig"
)

// TypeScriptBehavior overrides BuildResolutionContext to consult
// tsconfig/jsconfig path aliases via resolverconfig, per the project's
// "extends"-merged baseUrl/paths rules (spec.md §4.4/§4.5). JavaScript
// shares the same scope and visibility rules but has no tsconfig
// aliasing, so it gets its own, simpler behavior in javascript.go.
type TypeScriptBehavior struct {
	Defaults
	resolver *resolverconfig.Resolver
}

// NewTypeScriptBehavior wires resolver for tsconfig-aware path
// resolution; resolver may be nil (no project config cache yet
// built), in which case imports fall back to relative-path handling.
func NewTypeScriptBehavior(resolver *resolverconfig.Resolver) *TypeScriptBehavior {
	return &TypeScriptBehavior{resolver: resolver}
}

func (t *TypeScriptBehavior) LanguageID() string { return "typescript" }

func (t *TypeScriptBehavior) CreateResolutionContext(fileID model.FileId) ResolutionScope {
	return NewBaseScope(fileID, DefaultCompatibility)
}

func (t *TypeScriptBehavior) BuildResolutionContext(fileID model.FileId, path string, imports []model.Import, cache SymbolSource) (ResolutionScope, []model.EnhancedImport) {
	rulesFor := func(imp model.Import) (resolverconfig.ResolutionRules, bool) {
		if t.resolver == nil {
			return resolverconfig.ResolutionRules{}, false
		}
		return t.resolver.RulesForFile(t.LanguageID(), path)
	}
	return BuildDefaultResolutionContext(t, fileID, path, imports, cache, rulesFor)
}
