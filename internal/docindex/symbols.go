package docindex

import (
	"context"

	"github.com/blevesearch/bleve/v2"

	"github.com/bartolli/codanna/internal/errors"
	"github.com/bartolli/codanna/internal/model"
)

// AddSymbol stores a symbol document inside the currently open batch.
// The owning file association is carried by sym.FileId.
func (ix *Index) AddSymbol(sym *model.Symbol) error {
	return ix.indexDoc("add_symbol", symbolDocID(sym.Id), toSymbolDoc(sym))
}

func (ix *Index) docByID(op, id string) (map[string]interface{}, error) {
	ix.mu.RLock()
	defer ix.mu.RUnlock()

	req := bleve.NewSearchRequest(bleve.NewDocIDQuery([]string{id}))
	req.Fields = allFieldsRequest
	req.Size = 1

	result, err := ix.bleve.Search(req)
	if err != nil {
		return nil, errors.Wrap(errors.ErrCodeIOFailure, err).WithOperation(op).WithPath(id)
	}
	if len(result.Hits) == 0 {
		return nil, nil
	}
	return result.Hits[0].Fields, nil
}

// FindSymbolByID looks up a symbol by id. Returns (nil, nil) if absent.
func (ix *Index) FindSymbolByID(id model.SymbolId) (*model.Symbol, error) {
	fields, err := ix.docByID("find_symbol_by_id", symbolDocID(id))
	if err != nil || fields == nil {
		return nil, err
	}
	return symbolFromFields(fields), nil
}

func symbolFromFields(fields map[string]interface{}) *model.Symbol {
	d := &symbolDoc{
		SymbolId:     fieldUint32(fields, "symbol_id"),
		Name:         fieldString(fields, "name"),
		Kind:         fieldString(fields, "kind"),
		FileId:       fieldUint32(fields, "file_id"),
		StartLine:    fieldUint32(fields, "start_line"),
		StartColumn:  fieldUint32(fields, "start_column"),
		EndLine:      fieldUint32(fields, "end_line"),
		EndColumn:    fieldUint32(fields, "end_column"),
		Signature:    fieldString(fields, "signature"),
		DocComment:   fieldString(fields, "doc_comment"),
		ModulePath:   fieldString(fields, "module_path"),
		Visibility:   fieldString(fields, "visibility"),
		ScopeContext: fieldString(fields, "scope_context"),
		LanguageId:   fieldString(fields, "language_id"),
	}
	return d.toSymbol()
}

func (ix *Index) querySymbols(op string, q bleve.Query, limit int) ([]*model.Symbol, error) {
	ix.mu.RLock()
	defer ix.mu.RUnlock()

	req := bleve.NewSearchRequest(bleve.NewConjunctionQuery(docTypeQuery(docTypeSymbol), q))
	req.Fields = allFieldsRequest
	if limit <= 0 {
		limit = 10_000
	}
	req.Size = limit

	result, err := ix.bleve.SearchInContext(context.Background(), req)
	if err != nil {
		return nil, errors.Wrap(errors.ErrCodeIOFailure, err).WithOperation(op)
	}

	out := make([]*model.Symbol, 0, len(result.Hits))
	for _, hit := range result.Hits {
		out = append(out, symbolFromFields(hit.Fields))
	}
	return out, nil
}

func docTypeQuery(docType string) bleve.Query {
	q := bleve.NewTermQuery(docType)
	q.SetField("doc_type")
	return q
}

// FindSymbolsByName returns every symbol with an exact name match,
// optionally filtered to one language.
func (ix *Index) FindSymbolsByName(name string, language string) ([]*model.Symbol, error) {
	nameQ := bleve.NewTermQuery(name)
	nameQ.SetField("name")

	var q bleve.Query = nameQ
	if language != "" {
		langQ := bleve.NewTermQuery(language)
		langQ.SetField("language_id")
		q = bleve.NewConjunctionQuery(nameQ, langQ)
	}
	return ix.querySymbols("find_symbols_by_name", q, 0)
}

// FindSymbolByNameAndRange finds the symbol with the given name, file,
// and exact source range — used to re-locate a symbol across a reindex
// join, and for range-anchored overload disambiguation.
func (ix *Index) FindSymbolByNameAndRange(name string, fileID model.FileId, rng model.Range) (*model.Symbol, error) {
	candidates, err := ix.FindSymbolsByFile(fileID)
	if err != nil {
		return nil, err
	}
	for _, s := range candidates {
		if s.Name == name && s.Range == rng {
			return s, nil
		}
	}
	return nil, nil
}

// FindSymbolsByFile returns every symbol defined in the given file.
func (ix *Index) FindSymbolsByFile(fileID model.FileId) ([]*model.Symbol, error) {
	q := bleve.NewNumericRangeQuery(f64(float64(fileID)), f64(float64(fileID)+1))
	q.SetField("file_id")
	q.InclusiveMin = boolp(true)
	q.InclusiveMax = boolp(false)
	return ix.querySymbols("find_symbols_by_file", q, 0)
}

// FindSymbolsByModule returns every symbol whose module path equals the
// given value exactly.
func (ix *Index) FindSymbolsByModule(modulePath string) ([]*model.Symbol, error) {
	q := bleve.NewTermQuery(modulePath)
	q.SetField("module_path")
	return ix.querySymbols("find_symbols_by_module", q, 0)
}

// GetAllSymbols returns up to limit symbols, for diagnostics and
// index-wide tooling.
func (ix *Index) GetAllSymbols(limit int) ([]*model.Symbol, error) {
	return ix.querySymbols("get_all_symbols", bleve.NewMatchAllQuery(), limit)
}

// DeleteSymbol removes a symbol document within the currently open
// batch. It does not cascade to relationships; callers needing that
// call DeleteRelationshipsForSymbol explicitly.
func (ix *Index) DeleteSymbol(id model.SymbolId) error {
	return ix.deleteDoc("delete_symbol", symbolDocID(id))
}

// CountSymbols reports the number of committed symbol documents.
func (ix *Index) CountSymbols() (uint64, error) {
	return ix.countByType(docTypeSymbol)
}

func (ix *Index) countByType(docType string) (uint64, error) {
	ix.mu.RLock()
	defer ix.mu.RUnlock()

	req := bleve.NewSearchRequest(docTypeQuery(docType))
	req.Size = 0
	result, err := ix.bleve.Search(req)
	if err != nil {
		return 0, errors.Wrap(errors.ErrCodeIOFailure, err).WithOperation("count")
	}
	return result.Total, nil
}

func f64(v float64) *float64 { return &v }
func boolp(v bool) *bool     { return &v }
