// Package ids implements the monotonic SymbolId/FileId allocator: a
// single mutex-guarded counter pair with an in-batch "pending counter"
// distinct from the persisted counter.
package ids

import (
	"math"
	"sync"

	"github.com/bartolli/codanna/internal/errors"
	"github.com/bartolli/codanna/internal/model"
)

// PersistedCounters is read at startup, or before a COLLECT stage runs
// against a partially populated index, from DocumentIndex's stored
// next-id counters.
type PersistedCounters struct {
	NextSymbolId model.SymbolId
	NextFileId   model.FileId
}

// Allocator is the monotonic id generator. It is safe for concurrent use.
//
// Outside an open batch, next_* calls advance the persisted counters
// directly under mu. Inside an open batch, they advance a separate
// pending counter; commit_batch persists the pending values and clears
// the pending state, abort_batch discards them.
type Allocator struct {
	mu sync.Mutex

	symbolCounter model.SymbolId
	fileCounter   model.FileId

	batchOpen            bool
	pendingSymbolCounter model.SymbolId
	pendingFileCounter   model.FileId
}

// NewAllocator creates an Allocator seeded from previously persisted
// counters. Passing a zero PersistedCounters is only correct for a
// brand-new, empty index — callers indexing into an existing index MUST
// seed from DocumentIndex's stored counters; failing to do so is a
// defect, not a tunable.
func NewAllocator(persisted PersistedCounters) *Allocator {
	return &Allocator{
		symbolCounter: persisted.NextSymbolId,
		fileCounter:   persisted.NextFileId,
	}
}

// Reseed re-synchronizes the allocator's persisted counters from the
// store, without touching an open batch's pending state. Pipelines that
// run incrementally against an already-populated DocumentIndex call this
// before StartBatch.
func (a *Allocator) Reseed(persisted PersistedCounters) {
	a.mu.Lock()
	defer a.mu.Unlock()
	if persisted.NextSymbolId > a.symbolCounter {
		a.symbolCounter = persisted.NextSymbolId
	}
	if persisted.NextFileId > a.fileCounter {
		a.fileCounter = persisted.NextFileId
	}
}

// StartBatch opens a batch: the pending counters are initialized from
// the persisted counters, and subsequent next_* calls advance the
// pending counters instead.
func (a *Allocator) StartBatch() {
	a.mu.Lock()
	defer a.mu.Unlock()
	a.pendingSymbolCounter = a.symbolCounter
	a.pendingFileCounter = a.fileCounter
	a.batchOpen = true
}

// CommitBatch persists the pending counters as the new counters and
// clears the pending state. Idempotent no-op if no batch is open.
func (a *Allocator) CommitBatch() {
	a.mu.Lock()
	defer a.mu.Unlock()
	if !a.batchOpen {
		return
	}
	a.symbolCounter = a.pendingSymbolCounter
	a.fileCounter = a.pendingFileCounter
	a.batchOpen = false
}

// AbortBatch discards the pending counters, leaving the persisted
// counters untouched. Used when the pipeline aborts a batch.
func (a *Allocator) AbortBatch() {
	a.mu.Lock()
	defer a.mu.Unlock()
	a.batchOpen = false
}

// NextSymbolId allocates the next SymbolId, from the pending counter
// inside an open batch or the persisted counter otherwise.
func (a *Allocator) NextSymbolId() (model.SymbolId, error) {
	a.mu.Lock()
	defer a.mu.Unlock()

	counter := &a.symbolCounter
	if a.batchOpen {
		counter = &a.pendingSymbolCounter
	}
	if uint32(*counter) == math.MaxUint32 {
		return 0, errors.IdOverflow("SymbolCounter")
	}
	*counter++
	return *counter, nil
}

// NextFileId allocates the next FileId, following the same batch rules
// as NextSymbolId.
func (a *Allocator) NextFileId() (model.FileId, error) {
	a.mu.Lock()
	defer a.mu.Unlock()

	counter := &a.fileCounter
	if a.batchOpen {
		counter = &a.pendingFileCounter
	}
	if uint32(*counter) == math.MaxUint32 {
		return 0, errors.IdOverflow("FileCounter")
	}
	*counter++
	return *counter, nil
}

// Counters returns a snapshot of the persisted (committed) counters,
// suitable for writing back into metadata documents and for seeding a
// fresh Allocator that should resume exactly where this one left off.
func (a *Allocator) Counters() PersistedCounters {
	a.mu.Lock()
	defer a.mu.Unlock()
	return PersistedCounters{NextSymbolId: a.symbolCounter, NextFileId: a.fileCounter}
}
