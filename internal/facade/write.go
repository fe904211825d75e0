package facade

import (
	"context"
	"strings"

	"github.com/bartolli/codanna/internal/embedlifecycle"
	"github.com/bartolli/codanna/internal/embedstore"
	"github.com/bartolli/codanna/internal/ids"
	"github.com/bartolli/codanna/internal/model"
	"github.com/bartolli/codanna/internal/notify"
	"github.com/bartolli/codanna/internal/pipeline"
	"github.com/bartolli/codanna/internal/resolution"
)

// DirectoryOptions configures IndexDirectory (spec.md §4.10's
// index_directory operation).
type DirectoryOptions struct {
	// Force re-indexes every file, ignoring content hashes.
	Force bool
	// DryRun runs DISCOVER/READ/PARSE/COLLECT in full to compute
	// accurate would-be stats, but never writes a document.
	DryRun bool
	// MaxFiles caps how many files this call processes; 0 is unlimited.
	MaxFiles int
}

// IndexDirectory walks root, indexing every new or modified file found
// under it and resolving Phase 2 across the whole batch in one pass.
// A DryRun call never mutates the DocumentIndex or the EmbeddingStore.
func (f *Facade) IndexDirectory(ctx context.Context, root string, opts DirectoryOptions) (pipeline.Stats, error) {
	ctx = ensureContext(ctx)
	f.mu.Lock()
	defer f.mu.Unlock()

	previously, err := f.previouslyIndexedHashes(root)
	if err != nil {
		return pipeline.Stats{}, err
	}

	pipeOpts := pipeline.Options{
		Root:              root,
		ExtensionLanguage: f.extensionLanguage(),
		IgnoreFile:        f.ignoreFileName(),
		RespectVCSIgnore:  f.respectVCSIgnore(),
		PreviouslyIndexed: previously,
		Force:             opts.Force,
		MaxFiles:          opts.MaxFiles,
	}
	f.applyPipelineTuning(&pipeOpts)

	if opts.DryRun {
		return f.pipe.DryRun(ctx, pipeOpts)
	}

	result, err := f.pipe.Run(ctx, pipeOpts)
	if err != nil {
		return pipeline.Stats{}, err
	}

	if _, err := f.resolver.Run(result.Files, result.Unresolved); err != nil {
		return result.Stats, err
	}

	if f.embeds.Enabled() {
		for fileID := range result.Files {
			symbols := f.cache.SymbolsInFile(fileID)
			if _, err := f.embeds.Create(ctx, symbols); err != nil {
				return result.Stats, err
			}
		}
		if err := f.embeds.Persist(f.semanticDir, f.embedModelName()); err != nil {
			return result.Stats, err
		}
	}

	for fileID, fc := range result.Files {
		f.fileLanguage[fileID] = fc.Language
		f.indexedPaths[fc.Path] = struct{}{}
		f.notifier.Publish(notify.Event{Kind: notify.FileCreated, Path: fc.Path})
	}
	f.writeIndexMeta()

	return result.Stats, nil
}

// RemoveFile deletes path's documents and embeddings from the index.
// It is idempotent: removing a path that was never indexed is a no-op.
func (f *Facade) RemoveFile(path string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.removeFileLocked(path)
}

func (f *Facade) removeFileLocked(path string) error {
	fi, err := f.docs.GetFileInfo(path)
	if err != nil {
		return err
	}
	if fi == nil {
		return nil
	}

	symbols, err := f.docs.FindSymbolsByFile(fi.FileId)
	if err != nil {
		return err
	}
	oldIDs := make([]model.SymbolId, 0, len(symbols))
	for _, s := range symbols {
		oldIDs = append(oldIDs, s.Id)
	}
	if err := f.embeds.Delete(oldIDs, f.semanticDir, f.embedModelName()); err != nil {
		return err
	}

	if err := f.docs.StartBatch(); err != nil {
		return err
	}
	if err := f.docs.RemoveFileDocuments(fi.FileId, path); err != nil {
		f.docs.AbortBatch()
		return err
	}
	if err := f.docs.CommitBatch(); err != nil {
		return err
	}

	delete(f.fileLanguage, fi.FileId)
	delete(f.indexedPaths, path)
	f.notifier.Publish(notify.Event{Kind: notify.FileDeleted, Path: path})
	f.writeIndexMeta()
	return nil
}

// ClearIndex deletes every symbol, relationship, import, and file_info
// document, resets the persisted id counters, empties the
// EmbeddingStore, and replaces the SymbolLookupCache, Allocator,
// Pipeline and Resolver with fresh instances around the now-empty
// DocumentIndex. The Walker and ParserRegistry are reused unchanged:
// neither holds state tied to index contents.
func (f *Facade) ClearIndex() error {
	f.mu.Lock()
	defer f.mu.Unlock()

	paths, err := f.docs.GetAllIndexedPaths()
	if err != nil {
		return err
	}

	symbols, err := f.docs.GetAllSymbols(0)
	if err != nil {
		return err
	}
	allIDs := make([]model.SymbolId, 0, len(symbols))
	for _, s := range symbols {
		allIDs = append(allIDs, s.Id)
	}
	if err := f.embeds.Delete(allIDs, f.semanticDir, f.embedModelName()); err != nil {
		return err
	}

	if err := f.docs.StartBatch(); err != nil {
		return err
	}
	for _, p := range paths {
		fi, err := f.docs.GetFileInfo(p)
		if err != nil {
			f.docs.AbortBatch()
			return err
		}
		if fi == nil {
			continue
		}
		// RemoveFileDocuments cascades to every symbol and relationship
		// the file owns, so a fresh GetAllSymbols after this loop is
		// empty without a separate per-symbol deletion pass.
		if err := f.docs.RemoveFileDocuments(fi.FileId, p); err != nil {
			f.docs.AbortBatch()
			return err
		}
	}
	if err := f.docs.StoreCounters(ids.PersistedCounters{}); err != nil {
		f.docs.AbortBatch()
		return err
	}
	if err := f.docs.CommitBatch(); err != nil {
		return err
	}

	f.cache = resolution.NewCache()
	f.allocator = ids.NewAllocator(ids.PersistedCounters{})
	f.pipe = pipeline.New(f.walk, f.parsers, f.docs, f.allocator, f.cache)
	f.resolver = resolution.NewResolver(f.docs, f.cache, f.languages)
	f.embeds = embedlifecycle.New(embedstore.New(f.embedDimension), f.embedder)
	f.fileLanguage = make(map[model.FileId]string)
	f.indexedPaths = make(map[string]struct{})
	f.configuredDirs = make(map[string]struct{})

	f.writeIndexMeta()
	f.notifier.Publish(notify.Event{Kind: notify.IndexReloaded})
	return nil
}

func (f *Facade) previouslyIndexedHashes(root string) (map[string]string, error) {
	paths, err := f.docs.GetAllIndexedPaths()
	if err != nil {
		return nil, err
	}
	out := make(map[string]string)
	for _, p := range paths {
		if !strings.HasPrefix(p, root) {
			continue
		}
		fi, err := f.docs.GetFileInfo(p)
		if err != nil || fi == nil {
			continue
		}
		rel, err := canonicalRelPath(root, p)
		if err != nil {
			continue
		}
		out[rel] = fi.ContentHash
	}
	return out, nil
}

func (f *Facade) ignoreFileName() string {
	if f.settings == nil {
		return ""
	}
	return f.settings.Ignore.IgnoreFile
}

func (f *Facade) respectVCSIgnore() bool {
	if f.settings == nil {
		return true
	}
	return f.settings.Ignore.RespectVCSIgnore
}

func (f *Facade) applyPipelineTuning(opts *pipeline.Options) {
	if f.settings == nil {
		return
	}
	p := f.settings.Pipeline
	opts.WalkerThreads = p.WalkerThreads
	opts.ReaderThreads = p.ReaderThreads
	opts.ParserThreads = p.ParserThreads
	opts.ChannelCapacity = p.ChannelCapacity
	opts.BatchSize = p.BatchSize
	opts.BatchesPerCommit = p.BatchesPerCommit
}
