// Package langbehavior implements LanguageBehavior and ResolutionScope
// (spec.md §4.5): the per-language symbol-kind filters, visibility
// rules, import normalization, and scope construction that Phase 2
// resolution (internal/resolution) drives to turn a name into a
// SymbolId.
package langbehavior

import (
	"sync"

	"github.com/bartolli/codanna/internal/model"
)

// ScopeLevel is the lexical level a symbol is registered at within a
// ResolutionScope, used to order resolution precedence.
type ScopeLevel int

const (
	ScopeLocal ScopeLevel = iota
	ScopeModule
	ScopePackage
	ScopeGlobal
)

// scopeSymbol pairs an id with the kind it was registered under, so
// ResolveRelationship can check kind compatibility without a round
// trip to the document index.
type scopeSymbol struct {
	id   model.SymbolId
	kind model.SymbolKind
}

// ResolutionScope is a per-file, per-language name -> symbol
// environment built from local symbols, imports, module, and visible
// globals (spec.md §3 Glossary).
type ResolutionScope interface {
	// AddSymbol registers name -> id at the given scope level.
	AddSymbol(name string, id model.SymbolId, kind model.SymbolKind, level ScopeLevel)

	// Resolve looks up name using this scope's precedence order:
	// local > imported > module > package > global. Returns false if
	// no candidate is registered at any level.
	Resolve(name string) (model.SymbolId, bool)

	// ResolveRelationship resolves toName for a relationship of the
	// given kind originating at fromName, honoring
	// IsCompatibleRelationship when both endpoints' kinds are known to
	// the scope.
	ResolveRelationship(fromName, toName string, kind model.RelationKind) (model.SymbolId, bool)

	// IsCompatibleRelationship reports whether a relationship of kind
	// rel between a fromKind symbol and a toKind symbol is structurally
	// sensible (e.g. Implements only makes sense type -> interface).
	IsCompatibleRelationship(fromKind, toKind model.SymbolKind, rel model.RelationKind) bool

	// PopulateImports records the file's enhanced imports for later
	// IsExternalImport / ImportBinding lookups.
	PopulateImports(imports []model.EnhancedImport)

	// RegisterImportBinding records that local name alias resolves to
	// id (ok == false when the import couldn't be matched to any
	// committed symbol yet; it's still recorded as "known but
	// unresolved" so IsExternalImport can distinguish "no such import"
	// from "import exists, target not found").
	RegisterImportBinding(alias string, id model.SymbolId, ok bool)

	// ImportBinding returns a previously registered import binding.
	ImportBinding(name string) (model.SymbolId, bool)

	// IsExternalImport reports whether name was imported from outside
	// the project (no enhanced path resolved to a project-local file).
	IsExternalImport(name string) bool

	// EnterScope pushes a new lexical local-scope frame, e.g. entering
	// a function body. kind is a free-form label used only for
	// diagnostics.
	EnterScope(kind string)

	// ExitScope pops the innermost lexical local-scope frame.
	ExitScope()

	// ClearLocalScope discards every local-scope frame, leaving
	// module/package/global registrations untouched.
	ClearLocalScope()

	// FileID returns the file this scope was built for.
	FileID() model.FileId
}

// CompatibilityFunc implements ResolutionScope.IsCompatibleRelationship.
type CompatibilityFunc func(fromKind, toKind model.SymbolKind, rel model.RelationKind) bool

// DefaultCompatibility is the shared relationship-compatibility policy
// most languages use unmodified: it rejects structurally nonsensical
// edges (e.g. a Field "implementing" something) without being strict
// enough to reject legitimate best-effort matches the parser
// collaborator reported.
func DefaultCompatibility(fromKind, toKind model.SymbolKind, rel model.RelationKind) bool {
	switch rel {
	case model.RelationDefines:
		return isContainerKind(fromKind)
	case model.RelationCalls:
		return isCallableKind(toKind)
	case model.RelationExtends:
		return isTypeKind(fromKind) && isTypeKind(toKind)
	case model.RelationImplements:
		return isTypeKind(fromKind) && (toKind == model.KindInterface || toKind == model.KindClass)
	case model.RelationUses:
		return true
	default:
		return true
	}
}

func isContainerKind(k model.SymbolKind) bool {
	switch k {
	case model.KindModule, model.KindStruct, model.KindClass, model.KindInterface, model.KindEnum:
		return true
	default:
		return false
	}
}

func isCallableKind(k model.SymbolKind) bool {
	switch k {
	case model.KindFunction, model.KindMethod, model.KindMacro:
		return true
	default:
		return false
	}
}

func isTypeKind(k model.SymbolKind) bool {
	switch k {
	case model.KindStruct, model.KindClass, model.KindInterface, model.KindEnum, model.KindTypeAlias:
		return true
	default:
		return false
	}
}

// BaseScope is the shared ResolutionScope implementation used by every
// bundled LanguageBehavior; a language only needs its own scope type
// when its lexical rules genuinely diverge (none of the five bundled
// languages need that, so each returns a BaseScope directly).
type BaseScope struct {
	mu sync.Mutex

	fileID model.FileId
	compat CompatibilityFunc

	byLevel map[ScopeLevel]map[string][]scopeSymbol
	local   []map[string]scopeSymbol

	imports         []model.EnhancedImport
	importBindings  map[string]model.SymbolId
	importKnown     map[string]bool // alias/name seen as an import, regardless of resolution
	externalImports map[string]bool
}

// NewBaseScope constructs an empty scope for fileID using compat as its
// relationship-compatibility policy (DefaultCompatibility if nil).
func NewBaseScope(fileID model.FileId, compat CompatibilityFunc) *BaseScope {
	if compat == nil {
		compat = DefaultCompatibility
	}
	return &BaseScope{
		fileID:          fileID,
		compat:          compat,
		byLevel:         make(map[ScopeLevel]map[string][]scopeSymbol),
		importBindings:  make(map[string]model.SymbolId),
		importKnown:     make(map[string]bool),
		externalImports: make(map[string]bool),
	}
}

func (s *BaseScope) FileID() model.FileId { return s.fileID }

func (s *BaseScope) AddSymbol(name string, id model.SymbolId, kind model.SymbolKind, level ScopeLevel) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if level == ScopeLocal {
		if len(s.local) == 0 {
			s.local = append(s.local, map[string]scopeSymbol{})
		}
		s.local[len(s.local)-1][name] = scopeSymbol{id: id, kind: kind}
		return
	}
	byName, ok := s.byLevel[level]
	if !ok {
		byName = make(map[string][]scopeSymbol)
		s.byLevel[level] = byName
	}
	byName[name] = append(byName[name], scopeSymbol{id: id, kind: kind})
}

func (s *BaseScope) lookup(name string) (scopeSymbol, bool) {
	for i := len(s.local) - 1; i >= 0; i-- {
		if sym, ok := s.local[i][name]; ok {
			return sym, true
		}
	}
	if id, ok := s.importBindings[name]; ok {
		return scopeSymbol{id: id}, true
	}
	for _, level := range []ScopeLevel{ScopeModule, ScopePackage, ScopeGlobal} {
		if byName, ok := s.byLevel[level]; ok {
			if syms, ok := byName[name]; ok && len(syms) > 0 {
				return syms[0], true
			}
		}
	}
	return scopeSymbol{}, false
}

func (s *BaseScope) Resolve(name string) (model.SymbolId, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	sym, ok := s.lookup(name)
	return sym.id, ok
}

func (s *BaseScope) ResolveRelationship(fromName, toName string, kind model.RelationKind) (model.SymbolId, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()

	to, ok := s.lookup(toName)
	if !ok {
		return 0, false
	}
	from, haveFrom := s.lookup(fromName)
	if haveFrom && from.kind != "" && to.kind != "" {
		if !s.compat(from.kind, to.kind, kind) {
			return 0, false
		}
	}
	return to.id, true
}

func (s *BaseScope) IsCompatibleRelationship(fromKind, toKind model.SymbolKind, rel model.RelationKind) bool {
	return s.compat(fromKind, toKind, rel)
}

func (s *BaseScope) PopulateImports(imports []model.EnhancedImport) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.imports = imports
}

func (s *BaseScope) RegisterImportBinding(alias string, id model.SymbolId, ok bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.importKnown[alias] = true
	if ok {
		s.importBindings[alias] = id
	} else {
		s.externalImports[alias] = true
	}
}

func (s *BaseScope) ImportBinding(name string) (model.SymbolId, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	id, ok := s.importBindings[name]
	return id, ok
}

func (s *BaseScope) IsExternalImport(name string) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.externalImports[name]
}

func (s *BaseScope) Imports() []model.EnhancedImport {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.imports
}

func (s *BaseScope) EnterScope(_ string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.local = append(s.local, map[string]scopeSymbol{})
}

func (s *BaseScope) ExitScope() {
	s.mu.Lock()
	defer s.mu.Unlock()
	if len(s.local) > 0 {
		s.local = s.local[:len(s.local)-1]
	}
}

func (s *BaseScope) ClearLocalScope() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.local = nil
}
