package facade

import (
	"context"

	"github.com/bartolli/codanna/internal/docindex"
	"github.com/bartolli/codanna/internal/model"
)

// RelatedSymbol pairs a resolved symbol with the relationship metadata
// that connected it to the query symbol (call site line/column,
// receiver type), for read operations that need both.
type RelatedSymbol struct {
	Symbol   model.Symbol
	Metadata model.RelationshipMetadata
}

// FindSymbolsByName returns every symbol named name, optionally
// filtered to one language.
func (f *Facade) FindSymbolsByName(name, language string) ([]model.Symbol, error) {
	f.mu.RLock()
	defer f.mu.RUnlock()
	syms, err := f.docs.FindSymbolsByName(name, language)
	if err != nil {
		return nil, err
	}
	return derefSymbols(syms), nil
}

// FindSymbolByID looks up one symbol by id. Returns (nil, nil) if not found.
func (f *Facade) FindSymbolByID(id model.SymbolId) (*model.Symbol, error) {
	f.mu.RLock()
	defer f.mu.RUnlock()
	return f.docs.FindSymbolByID(id)
}

// GetCalledFunctions returns every symbol id directly called by id.
func (f *Facade) GetCalledFunctions(id model.SymbolId) ([]model.SymbolId, error) {
	related, err := f.GetCalledFunctionsWithMetadata(id)
	if err != nil {
		return nil, err
	}
	return symbolIDs(related), nil
}

// GetCalledFunctionsWithMetadata returns every symbol directly called
// by id, alongside the call-site metadata the parser reported.
func (f *Facade) GetCalledFunctionsWithMetadata(id model.SymbolId) ([]RelatedSymbol, error) {
	return f.relatedFrom(id, model.RelationCalls)
}

// GetCallingFunctions returns every symbol id that directly calls id.
func (f *Facade) GetCallingFunctions(id model.SymbolId) ([]model.SymbolId, error) {
	related, err := f.GetCallingFunctionsWithMetadata(id)
	if err != nil {
		return nil, err
	}
	return symbolIDs(related), nil
}

// GetCallingFunctionsWithMetadata returns every symbol that directly
// calls id, alongside the call-site metadata.
func (f *Facade) GetCallingFunctionsWithMetadata(id model.SymbolId) ([]RelatedSymbol, error) {
	return f.relatedTo(id, model.RelationCalls)
}

// GetImplementations returns every symbol that implements the
// interface/trait id.
func (f *Facade) GetImplementations(id model.SymbolId) ([]model.Symbol, error) {
	related, err := f.relatedTo(id, model.RelationImplements)
	if err != nil {
		return nil, err
	}
	return symbols(related), nil
}

// GetImplementedTraits returns every interface/trait id implements.
func (f *Facade) GetImplementedTraits(id model.SymbolId) ([]model.Symbol, error) {
	related, err := f.relatedFrom(id, model.RelationImplements)
	if err != nil {
		return nil, err
	}
	return symbols(related), nil
}

// GetExtends returns every symbol id directly extends (its supertypes).
func (f *Facade) GetExtends(id model.SymbolId) ([]model.Symbol, error) {
	related, err := f.relatedFrom(id, model.RelationExtends)
	if err != nil {
		return nil, err
	}
	return symbols(related), nil
}

// GetExtendedBy returns every symbol that directly extends id.
func (f *Facade) GetExtendedBy(id model.SymbolId) ([]model.Symbol, error) {
	related, err := f.relatedTo(id, model.RelationExtends)
	if err != nil {
		return nil, err
	}
	return symbols(related), nil
}

// GetUses returns every symbol id directly uses (type references,
// field types, and similar non-call non-inheritance references).
func (f *Facade) GetUses(id model.SymbolId) ([]model.Symbol, error) {
	related, err := f.relatedFrom(id, model.RelationUses)
	if err != nil {
		return nil, err
	}
	return symbols(related), nil
}

// GetUsedBy returns every symbol that directly uses id.
func (f *Facade) GetUsedBy(id model.SymbolId) ([]model.Symbol, error) {
	related, err := f.relatedTo(id, model.RelationUses)
	if err != nil {
		return nil, err
	}
	return symbols(related), nil
}

// SymbolContext bundles a symbol with everything GetSymbolContext
// gathers about it in one read-locked pass.
type SymbolContext struct {
	Symbol        model.Symbol
	Calls         []RelatedSymbol
	CalledBy      []RelatedSymbol
	Implements    []model.Symbol
	ImplementedBy []model.Symbol
}

// GetSymbolContext gathers a symbol and its immediate relationship
// neighborhood in one call, for callers (MCP tools, CLI "explain")
// that would otherwise make several round trips.
func (f *Facade) GetSymbolContext(id model.SymbolId) (*SymbolContext, error) {
	f.mu.RLock()
	defer f.mu.RUnlock()

	sym, err := f.docs.FindSymbolByID(id)
	if err != nil || sym == nil {
		return nil, err
	}

	calls, err := f.relatedFromLocked(id, model.RelationCalls)
	if err != nil {
		return nil, err
	}
	calledBy, err := f.relatedToLocked(id, model.RelationCalls)
	if err != nil {
		return nil, err
	}
	implements, err := f.relatedFromLocked(id, model.RelationImplements)
	if err != nil {
		return nil, err
	}
	implementedBy, err := f.relatedToLocked(id, model.RelationImplements)
	if err != nil {
		return nil, err
	}

	return &SymbolContext{
		Symbol:        *sym,
		Calls:         calls,
		CalledBy:      calledBy,
		Implements:    symbols(implements),
		ImplementedBy: symbols(implementedBy),
	}, nil
}

// dependencyKinds is every relationship kind a dependency/dependents
// traversal considers (spec.md §4.10: "all outgoing/incoming
// relationship kinds", unlike impact radius which excludes Defines).
var dependencyKinds = []model.RelationKind{
	model.RelationCalls, model.RelationExtends, model.RelationImplements, model.RelationUses, model.RelationDefines,
}

// GetDependencies returns every symbol id depends on, grouped by
// relationship kind.
func (f *Facade) GetDependencies(id model.SymbolId) (map[model.RelationKind][]model.Symbol, error) {
	f.mu.RLock()
	defer f.mu.RUnlock()
	out := make(map[model.RelationKind][]model.Symbol)
	for _, kind := range dependencyKinds {
		related, err := f.relatedFromLocked(id, kind)
		if err != nil {
			return nil, err
		}
		if len(related) > 0 {
			out[kind] = symbols(related)
		}
	}
	return out, nil
}

// GetDependents returns every symbol that depends on id, grouped by
// relationship kind.
func (f *Facade) GetDependents(id model.SymbolId) (map[model.RelationKind][]model.Symbol, error) {
	f.mu.RLock()
	defer f.mu.RUnlock()
	out := make(map[model.RelationKind][]model.Symbol)
	for _, kind := range dependencyKinds {
		related, err := f.relatedToLocked(id, kind)
		if err != nil {
			return nil, err
		}
		if len(related) > 0 {
			out[kind] = symbols(related)
		}
	}
	return out, nil
}

// impactRadiusKinds excludes Defines: a symbol's impact radius is who
// is affected by changing its behavior or shape, not who merely owns
// it (spec.md §8 testable property 8).
var impactRadiusKinds = []model.RelationKind{
	model.RelationCalls, model.RelationUses, model.RelationImplements, model.RelationExtends,
}

// GetImpactRadius performs a breadth-first walk over incoming Calls,
// Uses, Implements, and Extends edges (never Defines) up to maxDepth
// hops, returning every symbol reachable that way. maxDepth <= 0
// defaults to 2.
func (f *Facade) GetImpactRadius(id model.SymbolId, maxDepth int) ([]model.Symbol, error) {
	if maxDepth <= 0 {
		maxDepth = 2
	}

	f.mu.RLock()
	defer f.mu.RUnlock()

	visited := map[model.SymbolId]bool{id: true}
	frontier := []model.SymbolId{id}
	var out []model.Symbol

	for depth := 0; depth < maxDepth && len(frontier) > 0; depth++ {
		var next []model.SymbolId
		for _, cur := range frontier {
			for _, kind := range impactRadiusKinds {
				rels, err := f.docs.GetRelationshipsTo(cur, kind)
				if err != nil {
					return nil, err
				}
				for _, rel := range rels {
					if visited[rel.FromId] {
						continue
					}
					visited[rel.FromId] = true
					sym, err := f.docs.FindSymbolByID(rel.FromId)
					if err != nil {
						return nil, err
					}
					if sym == nil {
						continue
					}
					out = append(out, *sym)
					next = append(next, rel.FromId)
				}
			}
		}
		frontier = next
	}

	return out, nil
}

// FullTextSearch ranks symbols against query using the DocumentIndex's
// boosted multi-strategy search.
func (f *Facade) FullTextSearch(query string, opts docindex.SearchOptions) ([]model.Symbol, error) {
	f.mu.RLock()
	defer f.mu.RUnlock()
	syms, err := f.docs.FullTextSearch(query, opts)
	if err != nil {
		return nil, err
	}
	return derefSymbols(syms), nil
}

// SemanticResult pairs a symbol with its cosine similarity to the
// query embedding.
type SemanticResult struct {
	Symbol model.Symbol
	Score  float64
}

// SemanticSearch embeds query, searches the EmbeddingStore for its
// nearest neighbors, and resolves each hit back to its symbol. Returns
// a PolicyViolation error if no embedder is configured.
func (f *Facade) SemanticSearch(ctx context.Context, query string, k int, minScore float64, language string) ([]SemanticResult, error) {
	ctx = ensureContext(ctx)

	f.mu.RLock()
	defer f.mu.RUnlock()

	vec, err := f.embeds.EmbedQuery(ctx, query)
	if err != nil {
		return nil, err
	}
	hits, err := f.embeds.Store().Search(vec, k, minScore, language)
	if err != nil {
		return nil, err
	}

	out := make([]SemanticResult, 0, len(hits))
	for _, h := range hits {
		sym, err := f.docs.FindSymbolByID(h.Id)
		if err != nil || sym == nil {
			continue
		}
		out = append(out, SemanticResult{Symbol: *sym, Score: h.Score})
	}
	return out, nil
}

func (f *Facade) relatedFrom(id model.SymbolId, kind model.RelationKind) ([]RelatedSymbol, error) {
	f.mu.RLock()
	defer f.mu.RUnlock()
	return f.relatedFromLocked(id, kind)
}

func (f *Facade) relatedTo(id model.SymbolId, kind model.RelationKind) ([]RelatedSymbol, error) {
	f.mu.RLock()
	defer f.mu.RUnlock()
	return f.relatedToLocked(id, kind)
}

func (f *Facade) relatedFromLocked(id model.SymbolId, kind model.RelationKind) ([]RelatedSymbol, error) {
	rels, err := f.docs.GetRelationshipsFrom(id, kind)
	if err != nil {
		return nil, err
	}
	return f.resolveRelated(rels, func(r *model.Relationship) model.SymbolId { return r.ToId })
}

func (f *Facade) relatedToLocked(id model.SymbolId, kind model.RelationKind) ([]RelatedSymbol, error) {
	rels, err := f.docs.GetRelationshipsTo(id, kind)
	if err != nil {
		return nil, err
	}
	return f.resolveRelated(rels, func(r *model.Relationship) model.SymbolId { return r.FromId })
}

func (f *Facade) resolveRelated(rels []*model.Relationship, endpoint func(*model.Relationship) model.SymbolId) ([]RelatedSymbol, error) {
	out := make([]RelatedSymbol, 0, len(rels))
	for _, r := range rels {
		sym, err := f.docs.FindSymbolByID(endpoint(r))
		if err != nil {
			return nil, err
		}
		if sym == nil {
			continue
		}
		out = append(out, RelatedSymbol{Symbol: *sym, Metadata: r.Metadata})
	}
	return out, nil
}

func symbols(related []RelatedSymbol) []model.Symbol {
	out := make([]model.Symbol, len(related))
	for i, r := range related {
		out[i] = r.Symbol
	}
	return out
}

func symbolIDs(related []RelatedSymbol) []model.SymbolId {
	out := make([]model.SymbolId, len(related))
	for i, r := range related {
		out[i] = r.Symbol.Id
	}
	return out
}

func derefSymbols(syms []*model.Symbol) []model.Symbol {
	out := make([]model.Symbol, len(syms))
	for i, s := range syms {
		out[i] = *s
	}
	return out
}
