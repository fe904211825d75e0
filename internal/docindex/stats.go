package docindex

// IndexStats is a point-in-time snapshot of the document index's size,
// reported by diagnostics tooling and the facade's status operation.
type IndexStats struct {
	SymbolCount       uint64
	RelationshipCount uint64
	FileCount         uint64
	DocumentCount     uint64
}

// Stats gathers counts for every document collection in one call.
func (ix *Index) Stats() (IndexStats, error) {
	symbols, err := ix.CountSymbols()
	if err != nil {
		return IndexStats{}, err
	}
	relationships, err := ix.CountRelationships()
	if err != nil {
		return IndexStats{}, err
	}
	files, err := ix.CountFiles()
	if err != nil {
		return IndexStats{}, err
	}
	docs, err := ix.DocumentCount()
	if err != nil {
		return IndexStats{}, err
	}
	return IndexStats{
		SymbolCount:       symbols,
		RelationshipCount: relationships,
		FileCount:         files,
		DocumentCount:     docs,
	}, nil
}
