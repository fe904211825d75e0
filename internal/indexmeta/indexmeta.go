// Package indexmeta implements IndexMetadata (spec.md §6.1-§6.2): the
// small JSON sidecar file at <index_root>/index/index.meta that sits
// alongside (but outside) the opaque DocumentIndex data. It is this
// core's one on-disk signal of "the index changed", read by the
// HotReloader (spec.md §4.13) and written by the Facade after every
// successful write operation.
package indexmeta

import (
	"encoding/json"
	"os"
	"path/filepath"
)

// DataSource distinguishes an index built by walking the local
// filesystem from one assembled some other way (e.g. a future
// CI-ingested or remotely-synced index). This core only ever produces
// DataSourceFilesystem; the field exists so a HotReloader consumer can
// tell the two apart without guessing from indexed_paths' shape.
type DataSource int

const (
	DataSourceFilesystem DataSource = iota
	DataSourceExternal
)

func (d DataSource) String() string {
	if d == DataSourceExternal {
		return "external"
	}
	return "filesystem"
}

// MarshalJSON renders DataSource as its string form, matching
// spec.md §6.2's "enum" field rather than a bare integer.
func (d DataSource) MarshalJSON() ([]byte, error) {
	return json.Marshal(d.String())
}

func (d *DataSource) UnmarshalJSON(b []byte) error {
	var s string
	if err := json.Unmarshal(b, &s); err != nil {
		return err
	}
	if s == "external" {
		*d = DataSourceExternal
	} else {
		*d = DataSourceFilesystem
	}
	return nil
}

// Metadata is the index.meta JSON schema (spec.md §6.2).
type Metadata struct {
	Version      uint32     `json:"version"`
	DataSource   DataSource `json:"data_source"`
	SymbolCount  uint32     `json:"symbol_count"`
	FileCount    uint32     `json:"file_count"`
	LastModified uint64     `json:"last_modified"`
	// IndexedPaths lists the individual file paths the Facade has
	// indexed. The Facade always writes a list (empty rather than null
	// when nothing is indexed); a null read back from disk yields nil.
	IndexedPaths []string `json:"indexed_paths"`
}

// CurrentVersion is the schema version this package writes.
const CurrentVersion uint32 = 1

// Load reads and parses path. A missing file is not an error: ok is
// false and Metadata is the zero value, so a first-ever reload has
// nothing to compare against.
func Load(path string) (m Metadata, ok bool, err error) {
	data, err := os.ReadFile(path)
	if os.IsNotExist(err) {
		return Metadata{}, false, nil
	}
	if err != nil {
		return Metadata{}, false, err
	}
	if err := json.Unmarshal(data, &m); err != nil {
		return Metadata{}, false, err
	}
	return m, true, nil
}

// Save writes m to path as JSON, creating parent directories as
// needed. Writes go through a temp file and rename so a HotReloader
// polling the file never observes a half-written one.
func Save(path string, m Metadata) error {
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return err
	}
	data, err := json.MarshalIndent(m, "", "  ")
	if err != nil {
		return err
	}
	tmp := path + ".tmp"
	if err := os.WriteFile(tmp, data, 0o644); err != nil {
		return err
	}
	return os.Rename(tmp, path)
}
