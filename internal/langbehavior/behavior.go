package langbehavior

import (
	"path"
	"strings"

	"github.com/bartolli/codanna/internal/model"
	"github.com/bartolli/codanna/internal/resolverconfig"
)

// SymbolSource is the slice of resolution.SymbolLookupCache that
// BuildResolutionContext needs: every symbol already committed for a
// file, and name-based candidate lookup for import-binding resolution.
// Defined here (rather than imported from package resolution) to avoid
// a langbehavior <-> resolution import cycle — resolution.SymbolLookupCache
// satisfies this interface implicitly.
type SymbolSource interface {
	SymbolsInFile(fileID model.FileId) []model.Symbol
	LookupCandidates(name string) []model.Symbol
}

// LanguageBehavior encapsulates everything language-specific about
// cross-file resolution (spec.md §4.5). One implementation exists per
// supported language; the zero-value hooks each embeds default to the
// shared policy in this package.
type LanguageBehavior interface {
	// LanguageID is the language key, matching settings.toml's
	// [languages.enabled] keys and Symbol.LanguageId.
	LanguageID() string

	// CreateResolutionContext builds an empty, language-specific scope
	// for fileID. Required override: every language must at least
	// choose its CompatibilityFunc.
	CreateResolutionContext(fileID model.FileId) ResolutionScope

	// IsResolvableSymbol reports whether sym should be registered into
	// a ResolutionScope at all. Default: every kind is resolvable;
	// languages with a large volume of non-referenceable symbols
	// (e.g. Python's implicit dunder methods) narrow this.
	IsResolvableSymbol(sym *model.Symbol) bool

	// IsSymbolVisibleFromFile reports whether sym, declared in its own
	// file, is visible to code in fromFile given sym's Visibility and
	// module/package relationship to fromModule.
	IsSymbolVisibleFromFile(sym *model.Symbol, fromFile model.FileId, fromModule string) bool

	// ImportMatchesSymbol reports whether importPath plausibly refers
	// to sym — used to bind an import alias/path to a candidate symbol.
	ImportMatchesSymbol(importPath string, sym *model.Symbol) bool

	// InitializeResolutionContext runs as the final post-population
	// hook on a freshly built scope. Default: no-op.
	InitializeResolutionContext(scope ResolutionScope, fileID model.FileId)

	// BuildResolutionContext builds the full scope for fileID: §4.5's
	// five-step shared algorithm, or a full override for languages
	// whose import enhancement is too different to share (e.g.
	// TypeScript's tsconfig path aliases). path is the file's indexed
	// path, needed to route project-config lookups and to normalize
	// relative imports against the file's own directory.
	BuildResolutionContext(fileID model.FileId, path string, imports []model.Import, cache SymbolSource) (ResolutionScope, []model.EnhancedImport)
}

// EnhancePath derives an import's enhanced module path from project
// resolution rules when available, falling back to relative-path
// normalization — spec.md §4.5 step 2.
func EnhancePath(imp model.Import, rules resolverconfig.ResolutionRules, haveRules bool, fromDir string) string {
	if haveRules {
		for alias, targets := range rules.Paths {
			prefix := strings.TrimSuffix(alias, "*")
			if !strings.HasSuffix(alias, "*") {
				if imp.Path == alias && len(targets) > 0 {
					return strings.TrimSuffix(targets[0], "*")
				}
				continue
			}
			if strings.HasPrefix(imp.Path, prefix) && len(targets) > 0 {
				suffix := strings.TrimPrefix(imp.Path, prefix)
				return strings.TrimSuffix(targets[0], "*") + suffix
			}
		}
		if rules.BaseURL != "" && !strings.HasPrefix(imp.Path, ".") {
			return path.Join(rules.BaseURL, imp.Path)
		}
	}
	if strings.HasPrefix(imp.Path, ".") {
		return path.Clean(path.Join(fromDir, imp.Path))
	}
	return imp.Path
}

// lastSegment returns the final "/"-or-"."-separated component of a
// module path, the conventional default export name used to match an
// unaliased import against a symbol name.
func lastSegment(p string) string {
	p = strings.TrimSuffix(p, "/")
	if i := strings.LastIndexAny(p, "/."); i >= 0 {
		return p[i+1:]
	}
	return p
}

// BuildDefaultResolutionContext implements spec.md §4.5's shared
// five-step algorithm. Languages whose import enhancement needs no
// special-casing call this directly from their BuildResolutionContext;
// TypeScript overrides it to consult resolverconfig path aliases.
func BuildDefaultResolutionContext(
	b LanguageBehavior,
	fileID model.FileId,
	path string,
	imports []model.Import,
	cache SymbolSource,
	rulesFor func(imp model.Import) (resolverconfig.ResolutionRules, bool),
) (ResolutionScope, []model.EnhancedImport) {
	fromDir := "."
	if i := strings.LastIndex(path, "/"); i >= 0 {
		fromDir = path[:i]
	}
	scope := b.CreateResolutionContext(fileID)

	enhanced := make([]model.EnhancedImport, 0, len(imports))
	for _, imp := range imports {
		rules, ok := resolverconfig.ResolutionRules{}, false
		if rulesFor != nil {
			rules, ok = rulesFor(imp)
		}
		ei := model.EnhancedImport{Import: imp, EnhancedPath: EnhancePath(imp, rules, ok, fromDir)}
		enhanced = append(enhanced, ei)
	}
	scope.PopulateImports(enhanced)

	for _, ei := range enhanced {
		name := ei.Alias
		if name == "" {
			name = lastSegment(ei.EnhancedPath)
		}
		bound := false
		for _, candidate := range cache.LookupCandidates(name) {
			if b.ImportMatchesSymbol(ei.EnhancedPath, &candidate) {
				scope.RegisterImportBinding(name, candidate.Id, true)
				bound = true
				break
			}
		}
		if !bound {
			scope.RegisterImportBinding(name, 0, false)
		}
	}

	for _, sym := range cache.SymbolsInFile(fileID) {
		sym := sym
		if b.IsResolvableSymbol(&sym) {
			scope.AddSymbol(sym.Name, sym.Id, sym.Kind, ScopeModule)
		}
	}

	b.InitializeResolutionContext(scope, fileID)
	return scope, enhanced
}

// Registry dispatches to a LanguageBehavior by language id, letting
// Phase 2 resolution stay language-agnostic.
type Registry struct {
	behaviors map[string]LanguageBehavior
}

// NewRegistry builds a Registry from the given behaviors, keyed by
// each one's own LanguageID().
func NewRegistry(behaviors ...LanguageBehavior) *Registry {
	r := &Registry{behaviors: make(map[string]LanguageBehavior, len(behaviors))}
	for _, b := range behaviors {
		r.behaviors[b.LanguageID()] = b
	}
	return r
}

// Lookup returns the LanguageBehavior for language, or nil if
// unregistered.
func (r *Registry) Lookup(language string) LanguageBehavior {
	return r.behaviors[language]
}
