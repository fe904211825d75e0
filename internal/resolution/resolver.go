package resolution

import (
	"github.com/bartolli/codanna/internal/docindex"
	"github.com/bartolli/codanna/internal/langbehavior"
	"github.com/bartolli/codanna/internal/model"
)

// FileContext carries everything Phase 2 needs to build one file's
// ResolutionScope: its language, module path, indexed path, and raw
// imports, gathered by the pipeline's COLLECT/INDEX stages as files are
// registered.
type FileContext struct {
	FileId     model.FileId
	Path       string
	Language   string
	ModulePath string
	Imports    []model.Import
}

// Phase2Stats tallies Phase 2's outcome (SPEC_FULL.md supplemented
// stats shape), surfaced by the facade after an indexing run.
type Phase2Stats struct {
	DefinesResolved int
	OthersResolved  int
	Unresolved      int
}

// Resolver drives Phase 2 (spec.md §4.7): building a ResolutionScope
// per file, resolving Defines in Pass 1, committing, then resolving
// every other kind in Pass 2 against both the committed index and the
// SymbolLookupCache.
type Resolver struct {
	docs      *docindex.Index
	cache     *Cache
	languages *langbehavior.Registry
}

// NewResolver constructs a Resolver over the given document index,
// symbol-lookup cache, and language behavior registry.
func NewResolver(docs *docindex.Index, cache *Cache, languages *langbehavior.Registry) *Resolver {
	return &Resolver{docs: docs, cache: cache, languages: languages}
}

// Run executes both passes over unresolved against files, the file
// contexts gathered during Phase 1. Returns aggregate stats; resolution
// failures are non-fatal and counted, not returned as errors. A
// DocumentIndex batch error is returned and aborts the in-progress
// pass's batch.
func (r *Resolver) Run(files map[model.FileId]FileContext, unresolved []model.UnresolvedRelationship) (Phase2Stats, error) {
	var stats Phase2Stats

	byFile := make(map[model.FileId][]model.UnresolvedRelationship)
	for _, u := range unresolved {
		byFile[u.FromFile] = append(byFile[u.FromFile], u)
	}

	scopes := make(map[model.FileId]langbehavior.ResolutionScope, len(byFile))
	for fileID := range byFile {
		fc, ok := files[fileID]
		if !ok {
			continue
		}
		behavior := r.languages.Lookup(fc.Language)
		if behavior == nil {
			continue
		}
		scope, _ := behavior.BuildResolutionContext(fileID, fc.Path, fc.Imports, r.cache)
		scopes[fileID] = scope
	}

	// Pass 1: Defines only. This commit is the synchronization barrier
	// that makes newly-defined methods visible to Pass 2's receiver-type
	// lookups (spec.md §4.7 step 2, §5 ordering guarantee).
	if err := r.docs.StartBatch(); err != nil {
		return stats, err
	}
	for fileID, rels := range byFile {
		scope := scopes[fileID]
		if scope == nil {
			stats.Unresolved += countKind(rels, model.RelationDefines)
			continue
		}
		for _, u := range rels {
			if u.Kind != model.RelationDefines {
				continue
			}
			if r.resolveAndStore(scope, fileID, u) {
				stats.DefinesResolved++
			} else {
				stats.Unresolved++
			}
		}
	}
	if err := r.docs.CommitBatch(); err != nil {
		r.docs.AbortBatch()
		return stats, err
	}

	// Pass 2: every other kind, with receiver-type method resolution
	// now able to see Pass 1's committed Defines edges.
	if err := r.docs.StartBatch(); err != nil {
		return stats, err
	}
	for fileID, rels := range byFile {
		scope := scopes[fileID]
		if scope == nil {
			stats.Unresolved += len(rels) - countKind(rels, model.RelationDefines)
			continue
		}
		for _, u := range rels {
			if u.Kind == model.RelationDefines {
				continue
			}
			if r.resolveAndStore(scope, fileID, u) {
				stats.OthersResolved++
			} else {
				stats.Unresolved++
			}
		}
	}
	if err := r.docs.CommitBatch(); err != nil {
		r.docs.AbortBatch()
		return stats, err
	}

	return stats, nil
}

// resolveAndStore resolves one unresolved relationship's endpoints and
// stores it if both are found; it never partially stores a
// relationship with a dangling endpoint.
func (r *Resolver) resolveAndStore(scope langbehavior.ResolutionScope, fileID model.FileId, u model.UnresolvedRelationship) bool {
	toID, ok := r.resolveTarget(scope, fileID, u)
	if !ok {
		return false
	}
	fromID, ok := scope.Resolve(u.FromName)
	if !ok {
		return false
	}
	if err := r.docs.StoreRelationship(&model.Relationship{
		FromId:   fromID,
		ToId:     toID,
		Kind:     u.Kind,
		Metadata: u.Metadata,
	}); err != nil {
		return false
	}
	return true
}

// resolveTarget resolves u.ToName using, in order: range-anchored local
// shadowing (when ToRange is known), receiver-typed method lookup for
// Calls with a receiver hint, and the scope's own precedence-ordered
// ResolveRelationship.
func (r *Resolver) resolveTarget(scope langbehavior.ResolutionScope, fileID model.FileId, u model.UnresolvedRelationship) (model.SymbolId, bool) {
	if u.ToRange != nil {
		if id, ok := rangeAnchoredLookup(r.cache, fileID, u.ToName, *u.ToRange); ok {
			return id, true
		}
	}
	if u.Kind == model.RelationCalls && u.Metadata.ReceiverType != "" {
		if id, ok := r.resolveMethodCall(scope, u); ok {
			return id, true
		}
	}
	return scope.ResolveRelationship(u.FromName, u.ToName, u.Kind)
}

// resolveMethodCall resolves a Calls relationship whose parser-reported
// metadata names a receiver type: look up the receiver's SymbolId in
// scope, then search its committed Defines edges for a method matching
// ToName (spec.md §4.7 Pass 2).
func (r *Resolver) resolveMethodCall(scope langbehavior.ResolutionScope, u model.UnresolvedRelationship) (model.SymbolId, bool) {
	typeID, ok := scope.Resolve(u.Metadata.ReceiverType)
	if !ok {
		return 0, false
	}
	defines, err := r.docs.GetRelationshipsFrom(typeID, model.RelationDefines)
	if err != nil {
		return 0, false
	}
	for _, rel := range defines {
		if sym, ok := r.cache.Get(rel.ToId); ok && sym.Name == u.ToName {
			return rel.ToId, true
		}
	}
	return 0, false
}

// rangeAnchoredLookup implements §8 testable property 10: among
// same-file, same-name symbols defined at or before toRange, the one
// defined latest (closest-before) shadows every other candidate,
// including non-local ones the scope would otherwise prefer.
func rangeAnchoredLookup(cache *Cache, fileID model.FileId, name string, toRange model.Range) (model.SymbolId, bool) {
	var best model.Symbol
	found := false
	for _, sym := range cache.SymbolsInFile(fileID) {
		if sym.Name != name || !sym.Range.Before(toRange.StartLine, toRange.StartColumn) {
			continue
		}
		if !found || rangeStartsAfter(sym.Range, best.Range) {
			best = sym
			found = true
		}
	}
	return best.Id, found
}

func rangeStartsAfter(a, b model.Range) bool {
	if a.StartLine != b.StartLine {
		return a.StartLine > b.StartLine
	}
	return a.StartColumn > b.StartColumn
}

func countKind(rels []model.UnresolvedRelationship, kind model.RelationKind) int {
	n := 0
	for _, r := range rels {
		if r.Kind == kind {
			n++
		}
	}
	return n
}
