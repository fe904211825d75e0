package embedstore

import (
	"encoding/json"
	"os"
	"path/filepath"
	"strconv"

	"github.com/edsrzf/mmap-go"

	"github.com/bartolli/codanna/internal/errors"
	"github.com/bartolli/codanna/internal/model"
)

// storeMetadata is the JSON sidecar written alongside the vector
// segment.
type storeMetadata struct {
	Model          string `json:"model"`
	Dimension      int    `json:"dimension"`
	EmbeddingCount int    `json:"embedding_count"`
}

// Save writes metadata.json, segment_0.vec, and languages.json under
// dir, in that order, each via write-to-temp-then-rename so a crash
// mid-save leaves the previous generation of each file intact rather
// than a half-written one.
func (s *Store) Save(dir string, model_ string) error {
	s.mu.RLock()
	defer s.mu.RUnlock()

	if err := os.MkdirAll(dir, 0o755); err != nil {
		return errors.IOFailure("embedstore.Save", dir, err)
	}

	meta := storeMetadata{Model: model_, Dimension: s.dimension, EmbeddingCount: len(s.vectors)}
	if err := writeJSONAtomic(filepath.Join(dir, "metadata.json"), meta); err != nil {
		return err
	}

	records := make([]vectorRecord, 0, len(s.vectors))
	for id, vec := range s.vectors {
		records = append(records, vectorRecord{id: id, vector: vec})
	}
	segment := encodeSegment(s.dimension, records)
	if err := writeBytesAtomic(filepath.Join(dir, "segment_0.vec"), segment); err != nil {
		return err
	}

	langs := make(map[string]string, len(s.languages))
	for id, lang := range s.languages {
		langs[strconv.FormatUint(uint64(id), 10)] = lang
	}
	return writeJSONAtomic(filepath.Join(dir, "languages.json"), langs)
}

// Load opens dir's semantic persistence trio. countMismatch is true
// when the segment's declared dimension didn't match a caller-supplied
// expectation; Load then returns no store and a DimensionMismatch
// error, and what happens next is the caller's choice (LoadOrEmpty
// discards the store and continues with an empty one). A missing
// languages.json degrades to an unfiltered store rather than failing.
func Load(dir string, expectedDimension int) (store *Store, countMismatch bool, err error) {
	metaPath := filepath.Join(dir, "metadata.json")
	metaBytes, err := os.ReadFile(metaPath)
	if err != nil {
		return nil, false, errors.IOFailure("embedstore.Load", metaPath, err)
	}
	var meta storeMetadata
	if err := json.Unmarshal(metaBytes, &meta); err != nil {
		return nil, false, errors.Corruption("embedstore.Load", "invalid metadata.json", err)
	}

	segPath := filepath.Join(dir, "segment_0.vec")
	dimension, records, err := loadSegment(segPath)
	if err != nil {
		return nil, false, err
	}

	if expectedDimension != 0 && dimension != expectedDimension {
		return nil, true, errors.DimensionMismatch(expectedDimension, dimension)
	}

	st := New(dimension)
	for _, r := range records {
		st.vectors[r.id] = r.vector
	}

	langPath := filepath.Join(dir, "languages.json")
	if langBytes, err := os.ReadFile(langPath); err == nil {
		var langs map[string]string
		if jsonErr := json.Unmarshal(langBytes, &langs); jsonErr == nil {
			for key, lang := range langs {
				id, parseErr := parseSymbolId(key)
				if parseErr == nil {
					st.languages[id] = lang
				}
			}
		}
	}

	return st, false, nil
}

// loadSegment memory-maps segPath and decodes it. The mapping is
// unmapped before returning; decodeSegment copies every vector into a
// freshly allocated slice, so the store never holds a reference into
// unmapped memory.
func loadSegment(segPath string) (dimension int, records []vectorRecord, err error) {
	f, err := os.Open(segPath)
	if err != nil {
		return 0, nil, errors.IOFailure("embedstore.loadSegment", segPath, err)
	}
	defer f.Close()

	info, err := f.Stat()
	if err != nil {
		return 0, nil, errors.IOFailure("embedstore.loadSegment", segPath, err)
	}
	if info.Size() == 0 {
		return 0, nil, nil
	}

	mapped, err := mmap.Map(f, mmap.RDONLY, 0)
	if err != nil {
		return 0, nil, errors.Corruption("embedstore.loadSegment", "failed to mmap vector segment", err)
	}
	defer mapped.Unmap()

	return decodeSegment(mapped)
}

func writeJSONAtomic(path string, v interface{}) error {
	data, err := json.MarshalIndent(v, "", "  ")
	if err != nil {
		return errors.Wrap(errors.ErrCodeInternal, err).WithOperation("embedstore.writeJSONAtomic").WithPath(path)
	}
	return writeBytesAtomic(path, data)
}

func writeBytesAtomic(path string, data []byte) error {
	tmp := path + ".tmp"
	if err := os.WriteFile(tmp, data, 0o644); err != nil {
		return errors.IOFailure("embedstore.writeBytesAtomic", path, err)
	}
	if err := os.Rename(tmp, path); err != nil {
		os.Remove(tmp)
		return errors.IOFailure("embedstore.writeBytesAtomic", path, err)
	}
	return nil
}

func parseSymbolId(s string) (model.SymbolId, error) {
	n, err := strconv.ParseUint(s, 10, 32)
	return model.SymbolId(n), err
}
