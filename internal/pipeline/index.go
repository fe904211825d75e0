package pipeline

import (
	"github.com/bartolli/codanna/internal/ids"
	"github.com/bartolli/codanna/internal/model"
	"github.com/bartolli/codanna/internal/resolution"
)

// runIndexStage drains parseOut, running COLLECT (id assignment) and
// INDEX (document writes + commit) together as spec.md §4.6 describes
// them. The Allocator's batch is opened for the same span as the
// DocumentIndex batch it feeds: ids allocated mid-batch roll back
// together with the documents on abort, and the merged counters are
// persisted to DocumentIndex metadata in the same commit so a future
// process reseeds correctly (spec.md §4.6's "incremental id acquisition"
// invariant). A write error aborts both batches and the pipeline
// continues at the next file boundary, per the spec's per-symbol error
// policy.
func (p *Pipeline) runIndexStage(parseOut <-chan parseResult, opts Options, stats *statsCollector) (map[model.FileId]resolution.FileContext, []model.UnresolvedRelationship, error) {
	files := make(map[model.FileId]resolution.FileContext)
	var unresolved []model.UnresolvedRelationship

	batch := pendingBatch{}
	batchOpen := false
	batchesSinceCommit := 0

	flush := func() error {
		if !batchOpen {
			return nil
		}
		if err := p.commitBatch(&batch, files); err != nil {
			stats.addError(1)
			p.allocator.AbortBatch()
			batchOpen = false
			batch = pendingBatch{}
			return err
		}
		stats.addSymbols(len(batch.Symbols))
		stats.addRelationships(len(batch.Unresolved))
		unresolved = append(unresolved, batch.Unresolved...)
		batch = pendingBatch{}
		batchOpen = false
		return nil
	}

	for r := range parseOut {
		if !batchOpen {
			p.allocator.StartBatch()
			batchOpen = true
		}
		if err := p.collectOne(r, &batch); err != nil {
			stats.addError(1)
			continue
		}
		if len(batch.Symbols) < opts.batchSize() {
			continue
		}
		batchesSinceCommit++
		if batchesSinceCommit < opts.batchesPerCommit() {
			continue
		}
		// A failed flush has already counted the error and aborted both
		// batches; the next file opens a fresh batch.
		_ = flush()
		batchesSinceCommit = 0
	}

	_ = flush()

	return files, unresolved, nil
}

// commitBatch writes every document in batch plus the Allocator's
// merged counters to a single DocumentIndex batch, commits it, and on
// success commits the Allocator batch and populates the shared
// SymbolLookupCache. A failure aborts the DocumentIndex batch without
// touching the Allocator; the caller aborts the Allocator batch.
func (p *Pipeline) commitBatch(batch *pendingBatch, files map[model.FileId]resolution.FileContext) error {
	if err := p.docs.StartBatch(); err != nil {
		return err
	}

	if err := p.writeBatchDocs(batch); err != nil {
		p.docs.AbortBatch()
		return err
	}

	// Counters() still reports the counters as of before this batch's
	// pending allocations; merge in this batch's own tip so the
	// persisted counters cover every id this batch assigned.
	merged := maxCounters(p.allocator.Counters(), batchTailCounters(batch))
	if err := p.docs.StoreCounters(merged); err != nil {
		p.docs.AbortBatch()
		return err
	}

	if err := p.docs.CommitBatch(); err != nil {
		return err
	}
	p.allocator.CommitBatch()

	for _, sym := range batch.Symbols {
		p.cache.Insert(sym)
	}
	for _, ctx := range batch.Contexts {
		files[ctx.FileId] = ctx
	}

	return nil
}

func (p *Pipeline) writeBatchDocs(batch *pendingBatch) error {
	for i := range batch.Files {
		if err := p.docs.StoreFileInfo(&batch.Files[i]); err != nil {
			return err
		}
	}
	for i := range batch.Symbols {
		if err := p.docs.AddSymbol(&batch.Symbols[i]); err != nil {
			return err
		}
	}
	for _, imp := range batch.Imports {
		if err := p.docs.StoreImport(imp); err != nil {
			return err
		}
	}
	return nil
}

// batchTailCounters returns the highest file and symbol id this batch
// assigned (the Allocator's counters hold the last id handed out), zero
// for either collection the batch didn't touch.
func batchTailCounters(batch *pendingBatch) ids.PersistedCounters {
	var c ids.PersistedCounters
	if n := len(batch.Files); n > 0 {
		c.NextFileId = batch.Files[n-1].FileId
	}
	if n := len(batch.Symbols); n > 0 {
		c.NextSymbolId = batch.Symbols[n-1].Id
	}
	return c
}

func maxCounters(a, b ids.PersistedCounters) ids.PersistedCounters {
	out := a
	if b.NextSymbolId > out.NextSymbolId {
		out.NextSymbolId = b.NextSymbolId
	}
	if b.NextFileId > out.NextFileId {
		out.NextFileId = b.NextFileId
	}
	return out
}
