package docindex

import (
	"github.com/bartolli/codanna/internal/ids"
	"github.com/bartolli/codanna/internal/model"
)

// StoreMetadata stores one metadata key/value pair within the currently
// open batch.
func (ix *Index) StoreMetadata(key model.MetadataKey, value uint64) error {
	doc := &metadataDoc{DocType: docTypeMetadata, Key: string(key), Value: value}
	return ix.indexDoc("store_metadata", metadataDocID(string(key)), doc)
}

// QueryMetadata reads one metadata value. ok is false if the key was
// never stored.
func (ix *Index) QueryMetadata(key model.MetadataKey) (value uint64, ok bool, err error) {
	fields, err := ix.docByID("query_metadata", metadataDocID(string(key)))
	if err != nil {
		return 0, false, err
	}
	if fields == nil {
		return 0, false, nil
	}
	return uint64(fieldInt64(fields, "value")), true, nil
}

// PersistedCounters reads the SymbolCounter and FileCounter metadata
// keys, returning zero for either that has never been stored. Used to
// seed an ids.Allocator before an incremental indexing run.
func (ix *Index) PersistedCounters() (ids.PersistedCounters, error) {
	symCounter, _, err := ix.QueryMetadata(model.MetaSymbolCounter)
	if err != nil {
		return ids.PersistedCounters{}, err
	}
	fileCounter, _, err := ix.QueryMetadata(model.MetaFileCounter)
	if err != nil {
		return ids.PersistedCounters{}, err
	}
	return ids.PersistedCounters{
		NextSymbolId: model.SymbolId(symCounter),
		NextFileId:   model.FileId(fileCounter),
	}, nil
}

// StoreCounters writes back the allocator's current counters as
// metadata, within the currently open batch. Callers commit the batch
// to make the new counters visible to the next PersistedCounters call.
func (ix *Index) StoreCounters(c ids.PersistedCounters) error {
	if err := ix.StoreMetadata(model.MetaSymbolCounter, uint64(c.NextSymbolId)); err != nil {
		return err
	}
	return ix.StoreMetadata(model.MetaFileCounter, uint64(c.NextFileId))
}
