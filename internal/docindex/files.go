package docindex

import (
	"github.com/blevesearch/bleve/v2"

	"github.com/bartolli/codanna/internal/model"
)

// StoreFileInfo stores or replaces a file's canonical record within the
// currently open batch.
func (ix *Index) StoreFileInfo(fi *model.FileInfo) error {
	doc := &fileInfoDoc{
		DocType:          docTypeFileInfo,
		FileId:           uint32(fi.FileId),
		Path:             fi.Path,
		ContentHash:      fi.ContentHash,
		IndexedTimestamp: fi.IndexedTimestamp.Unix(),
		LanguageId:       fi.LanguageId,
	}
	return ix.indexDoc("store_file_info", fileInfoDocID(fi.Path), doc)
}

// GetFileInfo looks up a file's canonical record by path. Returns
// (nil, nil) if the path was never indexed.
func (ix *Index) GetFileInfo(path string) (*model.FileInfo, error) {
	fields, err := ix.docByID("get_file_info", fileInfoDocID(path))
	if err != nil || fields == nil {
		return nil, err
	}
	return fileInfoFromFields(fields), nil
}

func fileInfoFromFields(fields map[string]interface{}) *model.FileInfo {
	return &model.FileInfo{
		FileId:           model.FileId(fieldUint32(fields, "file_id")),
		Path:             fieldString(fields, "path"),
		ContentHash:      fieldString(fields, "content_hash"),
		IndexedTimestamp: unixTime(fieldInt64(fields, "indexed_timestamp")),
		LanguageId:       fieldString(fields, "language_id"),
	}
}

// GetFilePath resolves a FileId back to its canonical path by scanning
// the file_info collection; callers on the hot path should prefer
// caching this in the symbol-lookup cache rather than calling it per
// symbol.
func (ix *Index) GetFilePath(id model.FileId) (string, error) {
	ix.mu.RLock()
	defer ix.mu.RUnlock()

	q := bleve.NewNumericRangeQuery(f64(float64(id)), f64(float64(id)+1))
	q.SetField("file_id")
	q.InclusiveMin = boolp(true)
	q.InclusiveMax = boolp(false)

	req := bleve.NewSearchRequest(bleve.NewConjunctionQuery(docTypeQuery(docTypeFileInfo), q))
	req.Fields = allFieldsRequest
	req.Size = 1

	result, err := ix.bleve.Search(req)
	if err != nil {
		return "", wrapIOError("get_file_path", err)
	}
	if len(result.Hits) == 0 {
		return "", nil
	}
	return fieldString(result.Hits[0].Fields, "path"), nil
}

// GetAllIndexedPaths returns the canonical path of every indexed file,
// used by incremental reindex to detect deletions.
func (ix *Index) GetAllIndexedPaths() ([]string, error) {
	ix.mu.RLock()
	defer ix.mu.RUnlock()

	req := bleve.NewSearchRequest(docTypeQuery(docTypeFileInfo))
	req.Fields = []string{"path"}
	req.Size = 10_000

	result, err := ix.bleve.Search(req)
	if err != nil {
		return nil, wrapIOError("get_all_indexed_paths", err)
	}

	out := make([]string, 0, len(result.Hits))
	for _, hit := range result.Hits {
		out = append(out, fieldString(hit.Fields, "path"))
	}
	return out, nil
}

// RemoveFileDocuments deletes the file_info record, every symbol
// defined in the file, their relationships, and every import recorded
// for the file, within the currently open batch. This is the
// per-file teardown step of incremental reindex and file removal.
func (ix *Index) RemoveFileDocuments(fileID model.FileId, path string) error {
	symbols, err := ix.FindSymbolsByFile(fileID)
	if err != nil {
		return err
	}
	for _, s := range symbols {
		if err := ix.DeleteRelationshipsForSymbol(s.Id); err != nil {
			return err
		}
		if err := ix.DeleteSymbol(s.Id); err != nil {
			return err
		}
	}
	if err := ix.DeleteImportsForFile(fileID); err != nil {
		return err
	}
	return ix.deleteDoc("remove_file_documents", fileInfoDocID(path))
}

// CountFiles reports the number of committed file_info documents.
func (ix *Index) CountFiles() (uint64, error) {
	return ix.countByType(docTypeFileInfo)
}
