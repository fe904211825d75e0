package docindex

import (
	"github.com/blevesearch/bleve/v2"

	"github.com/bartolli/codanna/internal/model"
)

// SearchOptions narrows a full-text search to symbols matching all of
// the given optional filters; the zero value applies no filter.
type SearchOptions struct {
	Kind       model.SymbolKind
	ModulePath string
	Language   string
	Limit      int
}

// FullTextSearch ranks symbols against query by combining four match
// strategies, each contributing at a different boost so exact matches
// outrank approximate ones when several strategies fire on the same
// document:
//
//   - exact name match (boost 4)
//   - name prefix match (boost 2)
//   - fuzzy name match, edit distance 1 (boost 1.5)
//   - tokenized contains-ngrams match against name/signature/doc_comment (boost 1)
func (ix *Index) FullTextSearch(query string, opts SearchOptions) ([]*model.Symbol, error) {
	exact := bleve.NewTermQuery(query)
	exact.SetField("name")
	exact.SetBoost(4)

	prefix := bleve.NewPrefixQuery(query)
	prefix.SetField("name")
	prefix.SetBoost(2)

	fuzzy := bleve.NewFuzzyQuery(query)
	fuzzy.SetField("name")
	fuzzy.SetFuzziness(1)
	fuzzy.SetBoost(1.5)

	contains := bleve.NewDisjunctionQuery(
		fieldMatchQuery("name", query),
		fieldMatchQuery("signature", query),
		fieldMatchQuery("doc_comment", query),
	)
	contains.SetBoost(1)

	nameMatch := bleve.NewDisjunctionQuery(exact, prefix, fuzzy, contains)
	nameMatch.SetMin(1)

	filters := []bleve.Query{docTypeQuery(docTypeSymbol), nameMatch}
	if opts.Kind != "" {
		kindQ := bleve.NewTermQuery(string(opts.Kind))
		kindQ.SetField("kind")
		filters = append(filters, kindQ)
	}
	if opts.ModulePath != "" {
		modQ := bleve.NewTermQuery(opts.ModulePath)
		modQ.SetField("module_path")
		filters = append(filters, modQ)
	}
	if opts.Language != "" {
		langQ := bleve.NewTermQuery(opts.Language)
		langQ.SetField("language_id")
		filters = append(filters, langQ)
	}

	ix.mu.RLock()
	defer ix.mu.RUnlock()

	req := bleve.NewSearchRequest(bleve.NewConjunctionQuery(filters...))
	req.Fields = allFieldsRequest
	req.IncludeLocations = false
	limit := opts.Limit
	if limit <= 0 {
		limit = 50
	}
	req.Size = limit
	req.SortBy([]string{"-_score"})

	result, err := ix.bleve.Search(req)
	if err != nil {
		return nil, wrapIOError("full_text_search", err)
	}

	out := make([]*model.Symbol, 0, len(result.Hits))
	for _, hit := range result.Hits {
		out = append(out, symbolFromFields(hit.Fields))
	}
	return out, nil
}

func fieldMatchQuery(field, query string) bleve.Query {
	q := bleve.NewMatchQuery(query)
	q.SetField(field)
	return q
}
