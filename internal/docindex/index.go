// Package docindex is the sole persistent store for the indexing core:
// a single bleve full-text index holding five logical collections —
// symbol, relationship, file_info, import, metadata — distinguished by
// a doc_type discriminator field.
package docindex

import (
	"fmt"
	"os"
	"path/filepath"
	"sync"
	"time"

	"github.com/blevesearch/bleve/v2"

	"github.com/bartolli/codanna/internal/errors"
)

// Index is the DocumentIndex. All mutation happens through an open
// batch (StartBatch/CommitBatch/AbortBatch); readers always observe the
// last committed state.
type Index struct {
	mu    sync.RWMutex
	bleve bleve.Index
	path  string

	batchMu    sync.Mutex
	batchOpen  bool
	batch      *bleve.Batch
	commitHook func()
}

// Open creates or opens the on-disk document index at path. An empty
// path creates an in-memory index, used by tests.
func Open(path string) (*Index, error) {
	m, err := buildIndexMapping()
	if err != nil {
		return nil, errors.Wrap(errors.ErrCodeInternal, err)
	}

	var idx bleve.Index
	if path == "" {
		idx, err = bleve.NewMemOnly(m)
	} else {
		if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
			return nil, errors.IOFailure("docindex.Open", path, err)
		}
		idx, err = bleve.Open(path)
		if err == bleve.ErrorIndexPathDoesNotExist {
			idx, err = bleve.New(path, m)
		}
	}
	if err != nil {
		return nil, errors.Corruption("docindex.Open", "failed to open or create document index", err).WithDetail("path", path)
	}

	return &Index{bleve: idx, path: path}, nil
}

// Close releases the underlying bleve index.
func (ix *Index) Close() error {
	ix.mu.Lock()
	defer ix.mu.Unlock()
	return ix.bleve.Close()
}

// OnCommit registers a hook invoked synchronously after every successful
// CommitBatch, after the reader has reloaded. Used by the embedding
// lifecycle and facade to react to newly visible documents.
func (ix *Index) OnCommit(hook func()) {
	ix.batchMu.Lock()
	defer ix.batchMu.Unlock()
	ix.commitHook = hook
}

// StartBatch opens a new write batch. Calling StartBatch while a batch
// is already open is a ConcurrencyConflict.
func (ix *Index) StartBatch() error {
	ix.batchMu.Lock()
	defer ix.batchMu.Unlock()
	if ix.batchOpen {
		return errors.ConcurrencyConflict("start_batch", "a batch is already open")
	}
	ix.batch = ix.bleve.NewBatch()
	ix.batchOpen = true
	return nil
}

// CommitBatch writes the accumulated batch and reloads the reader. A
// successful commit also triggers the registered post-commit hook.
// Calling CommitBatch without an open batch is a ConcurrencyConflict.
func (ix *Index) CommitBatch() error {
	ix.batchMu.Lock()
	if !ix.batchOpen {
		ix.batchMu.Unlock()
		return errors.ConcurrencyConflict("commit_batch", "no batch is open")
	}
	batch := ix.batch
	ix.batch = nil
	ix.batchOpen = false
	hook := ix.commitHook
	ix.batchMu.Unlock()

	ix.mu.Lock()
	err := ix.bleve.Batch(batch)
	ix.mu.Unlock()
	if err != nil {
		return errors.Wrap(errors.ErrCodeIOFailure, err).WithOperation("commit_batch")
	}

	if hook != nil {
		hook()
	}
	return nil
}

// AbortBatch discards the accumulated batch without writing it.
func (ix *Index) AbortBatch() {
	ix.batchMu.Lock()
	defer ix.batchMu.Unlock()
	ix.batch = nil
	ix.batchOpen = false
}

// requireBatch returns the open batch or a ConcurrencyConflict.
func (ix *Index) requireBatch(op string) (*bleve.Batch, error) {
	ix.batchMu.Lock()
	defer ix.batchMu.Unlock()
	if !ix.batchOpen {
		return nil, errors.ConcurrencyConflict(op, "no batch is open")
	}
	return ix.batch, nil
}

func (ix *Index) indexDoc(op, id string, doc interface{}) error {
	batch, err := ix.requireBatch(op)
	if err != nil {
		return err
	}
	if err := batch.Index(id, doc); err != nil {
		return errors.Wrap(errors.ErrCodeIOFailure, err).WithOperation(op).WithPath(id)
	}
	return nil
}

func (ix *Index) deleteDoc(op, id string) error {
	batch, err := ix.requireBatch(op)
	if err != nil {
		return err
	}
	batch.Delete(id)
	return nil
}

// DocumentCount returns the total number of stored documents across all
// five collections.
func (ix *Index) DocumentCount() (uint64, error) {
	ix.mu.RLock()
	defer ix.mu.RUnlock()
	n, err := ix.bleve.DocCount()
	if err != nil {
		return 0, errors.Wrap(errors.ErrCodeIOFailure, err).WithOperation("document_count")
	}
	return n, nil
}

func wrapIOError(op string, err error) error {
	return errors.Wrap(errors.ErrCodeIOFailure, err).WithOperation(op)
}

func unixTime(sec int64) time.Time {
	if sec == 0 {
		return time.Time{}
	}
	return time.Unix(sec, 0).UTC()
}

func fieldString(fields map[string]interface{}, key string) string {
	if v, ok := fields[key]; ok {
		if s, ok := v.(string); ok {
			return s
		}
	}
	return ""
}

func fieldUint32(fields map[string]interface{}, key string) uint32 {
	if v, ok := fields[key]; ok {
		switch n := v.(type) {
		case float64:
			return uint32(n)
		case int:
			return uint32(n)
		}
	}
	return 0
}

func fieldBool(fields map[string]interface{}, key string) bool {
	if v, ok := fields[key]; ok {
		if b, ok := v.(bool); ok {
			return b
		}
	}
	return false
}

func fieldInt64(fields map[string]interface{}, key string) int64 {
	if v, ok := fields[key]; ok {
		if n, ok := v.(float64); ok {
			return int64(n)
		}
	}
	return 0
}

// allFieldsRequest is the SearchRequest.Fields value that asks bleve to
// return every stored field on each hit.
var allFieldsRequest = []string{"*"}

func fmtSymbolNotFound(id uint32) error {
	return errors.New(errors.ErrCodeIOFailure, fmt.Sprintf("symbol %d not found", id), nil)
}
