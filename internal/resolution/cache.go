// Package resolution implements Phase 2 of the indexing pipeline
// (spec.md §4.7-4.8): the in-memory SymbolLookupCache populated during
// COLLECT/INDEX, and the two-pass cross-file resolver that turns
// name-based UnresolvedRelationships into committed, id-based
// Relationships.
package resolution

import (
	"sync"

	"github.com/bartolli/codanna/internal/model"
)

// Cache is the SymbolLookupCache (spec.md §4.8): populated during
// COLLECT/INDEX and discarded once Phase 2 completes. Every method is
// safe for concurrent use; INDEX inserts from its single goroutine
// while Phase 2 context-building reads from multiple.
type Cache struct {
	mu              sync.RWMutex
	byID            map[model.SymbolId]model.Symbol
	byName          map[string][]model.SymbolId
	byFile          map[model.FileId][]model.SymbolId
	byQualifiedName map[string][]model.SymbolId
}

// NewCache creates an empty SymbolLookupCache.
func NewCache() *Cache {
	return &Cache{
		byID:            make(map[model.SymbolId]model.Symbol),
		byName:          make(map[string][]model.SymbolId),
		byFile:          make(map[model.FileId][]model.SymbolId),
		byQualifiedName: make(map[string][]model.SymbolId),
	}
}

// Insert registers a newly committed symbol. Duplicate ids cannot
// occur given IdAllocator's monotonicity; a duplicate insert overwrites
// byID but still appends to byName/byFile, matching the spec's
// "append-only, overwritten on duplicate id" note for by_id.
func (c *Cache) Insert(sym model.Symbol) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.byID[sym.Id] = sym
	c.byName[sym.Name] = append(c.byName[sym.Name], sym.Id)
	c.byFile[sym.FileId] = append(c.byFile[sym.FileId], sym.Id)
	qn := model.QualifiedName(sym.ModulePath, sym.Name)
	c.byQualifiedName[qn] = append(c.byQualifiedName[qn], sym.Id)
}

// Get returns the symbol for id, if known to this cache.
func (c *Cache) Get(id model.SymbolId) (model.Symbol, bool) {
	c.mu.RLock()
	defer c.mu.RUnlock()
	sym, ok := c.byID[id]
	return sym, ok
}

// LookupCandidates returns every symbol registered under name, in
// insertion order. Satisfies langbehavior.SymbolSource.
func (c *Cache) LookupCandidates(name string) []model.Symbol {
	c.mu.RLock()
	defer c.mu.RUnlock()
	ids := c.byName[name]
	out := make([]model.Symbol, 0, len(ids))
	for _, id := range ids {
		if sym, ok := c.byID[id]; ok {
			out = append(out, sym)
		}
	}
	return out
}

// SymbolsInFile returns every symbol committed for fileID, in
// insertion order. Satisfies langbehavior.SymbolSource.
func (c *Cache) SymbolsInFile(fileID model.FileId) []model.Symbol {
	c.mu.RLock()
	defer c.mu.RUnlock()
	ids := c.byFile[fileID]
	out := make([]model.Symbol, 0, len(ids))
	for _, id := range ids {
		if sym, ok := c.byID[id]; ok {
			out = append(out, sym)
		}
	}
	return out
}

// ResolveQualified looks up a symbol by its "module::name" qualified
// name (model.QualifiedName), used to restore CapturedIncoming
// relationships across a reindex once the new symbol set is committed.
// Ambiguous qualified names (rare: two symbols with the same name in
// the same module) return the first committed candidate.
func (c *Cache) ResolveQualified(qualifiedName string) (model.SymbolId, bool) {
	c.mu.RLock()
	defer c.mu.RUnlock()
	ids := c.byQualifiedName[qualifiedName]
	if len(ids) == 0 {
		return 0, false
	}
	return ids[0], true
}

// Len reports the number of distinct symbols held by the cache.
func (c *Cache) Len() int {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return len(c.byID)
}
