package docindex

import (
	"github.com/blevesearch/bleve/v2"

	"github.com/bartolli/codanna/internal/model"
)

// StoreImport stores one raw import statement within the currently open
// batch. The document id is content-derived, so storing the same
// import twice is idempotent.
func (ix *Index) StoreImport(imp model.Import) error {
	return ix.indexDoc("store_import", importDocID(imp), toImportDoc(imp))
}

// GetImportsForFile returns every import recorded for fileID.
func (ix *Index) GetImportsForFile(fileID model.FileId) ([]model.Import, error) {
	ix.mu.RLock()
	defer ix.mu.RUnlock()

	q := bleve.NewNumericRangeQuery(f64(float64(fileID)), f64(float64(fileID)+1))
	q.SetField("file_id")
	q.InclusiveMin = boolp(true)
	q.InclusiveMax = boolp(false)

	req := bleve.NewSearchRequest(bleve.NewConjunctionQuery(docTypeQuery(docTypeImport), q))
	req.Fields = allFieldsRequest
	req.Size = 10_000

	result, err := ix.bleve.Search(req)
	if err != nil {
		return nil, wrapIOError("get_imports_for_file", err)
	}

	out := make([]model.Import, 0, len(result.Hits))
	for _, hit := range result.Hits {
		d := &importDoc{
			FileId:     fieldUint32(hit.Fields, "file_id"),
			Path:       fieldString(hit.Fields, "path"),
			Alias:      fieldString(hit.Fields, "alias"),
			IsGlob:     fieldBool(hit.Fields, "is_glob"),
			IsTypeOnly: fieldBool(hit.Fields, "is_type_only"),
		}
		out = append(out, d.toImport())
	}
	return out, nil
}

// DeleteImportsForFile removes every import recorded for fileID within
// the currently open batch.
func (ix *Index) DeleteImportsForFile(fileID model.FileId) error {
	imports, err := ix.GetImportsForFile(fileID)
	if err != nil {
		return err
	}
	for _, imp := range imports {
		if err := ix.deleteDoc("delete_imports_for_file", importDocID(imp)); err != nil {
			return err
		}
	}
	return nil
}
