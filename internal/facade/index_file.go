package facade

import (
	"context"
	"fmt"
	"time"

	"github.com/bartolli/codanna/internal/errors"
	"github.com/bartolli/codanna/internal/ids"
	"github.com/bartolli/codanna/internal/model"
	"github.com/bartolli/codanna/internal/notify"
	"github.com/bartolli/codanna/internal/resolution"
)

// IndexFile indexes path if it is new or its content has changed since
// last indexed; an unchanged file returns Cached without mutation
// (spec.md §4.10's incremental contract).
func (f *Facade) IndexFile(ctx context.Context, path string) (Outcome, error) {
	return f.indexFile(ctx, path, false, true)
}

// IndexFileWithForce re-indexes path even if its content hash is
// unchanged.
func (f *Facade) IndexFileWithForce(ctx context.Context, path string) (Outcome, error) {
	return f.indexFile(ctx, path, true, true)
}

// IndexFileNoResolve indexes path like IndexFile but skips Phase 2:
// outgoing relationships are left unresolved. Used by callers that
// will run resolution separately over a batch of files.
func (f *Facade) IndexFileNoResolve(ctx context.Context, path string) (Outcome, error) {
	return f.indexFile(ctx, path, false, false)
}

func (f *Facade) indexFile(ctx context.Context, path string, force, resolve bool) (Outcome, error) {
	ctx = ensureContext(ctx)
	f.mu.Lock()
	defer f.mu.Unlock()

	hash, content, err := hashFile(path)
	if err != nil {
		return Outcome{}, errors.IOFailure("index_file", path, err)
	}

	existing, err := f.docs.GetFileInfo(path)
	if err != nil {
		return Outcome{}, err
	}
	if existing != nil && existing.ContentHash == hash && !force {
		return Outcome{Kind: OutcomeCached, FileId: existing.FileId}, nil
	}

	var captured []model.CapturedIncoming
	if existing != nil {
		captured, err = f.captureAndRemove(existing.FileId, path)
		if err != nil {
			return Outcome{}, err
		}
	}

	language := f.languageForPath(path)
	parser := f.parsers.Lookup(language)
	if parser == nil {
		return Outcome{}, errors.ParseFailure(path, fmt.Errorf("no parser registered for language %q", language))
	}
	parsed, err := parser.Parse(ctx, path, content)
	if err != nil {
		return Outcome{}, errors.ParseFailure(path, err)
	}
	parsed.Path = path
	if parsed.Language == "" {
		parsed.Language = language
	}

	fileID, symbols, unresolved, err := f.writeFileDocuments(parsed, hash)
	if err != nil {
		return Outcome{}, err
	}

	f.fileLanguage[fileID] = parsed.Language
	f.indexedPaths[path] = struct{}{}

	if resolve {
		fc := resolution.FileContext{
			FileId:     fileID,
			Path:       path,
			Language:   parsed.Language,
			ModulePath: firstModulePath(symbols),
			Imports:    parsed.Imports,
		}
		if _, err := f.resolver.Run(map[model.FileId]resolution.FileContext{fileID: fc}, unresolved); err != nil {
			return Outcome{}, err
		}
		if len(captured) > 0 {
			if _, _, err := f.resolver.RestoreCaptured(captured); err != nil {
				return Outcome{}, err
			}
		}
	}

	if f.embeds.Enabled() {
		if _, err := f.embeds.Create(ctx, symbols); err != nil {
			return Outcome{}, err
		}
		if err := f.embeds.Persist(f.semanticDir, f.embedModelName()); err != nil {
			return Outcome{}, err
		}
	}

	event := notify.FileCreated
	if existing != nil {
		event = notify.FileReindexed
	}
	f.notifier.Publish(notify.Event{Kind: event, Path: path})
	f.writeIndexMeta()

	return Outcome{Kind: OutcomeIndexed, FileId: fileID, Symbols: len(symbols)}, nil
}

// captureAndRemove implements spec.md §4.11 steps 2-3: capture every
// incoming relationship targeting the file's existing symbols (keyed
// by qualified name so it survives id churn), remove the file's
// embeddings and save the store to disk immediately, then remove the
// file's documents. Ordering is load-bearing for crash safety: the
// embedding store is saved before the DocumentIndex mutation, so a
// crash between the two never leaves a stored vector referencing an
// id whose symbol document still exists, or vice versa.
func (f *Facade) captureAndRemove(fileID model.FileId, path string) ([]model.CapturedIncoming, error) {
	oldSymbols, err := f.docs.FindSymbolsByFile(fileID)
	if err != nil {
		return nil, err
	}

	var captured []model.CapturedIncoming
	oldIDs := make([]model.SymbolId, 0, len(oldSymbols))
	for _, sym := range oldSymbols {
		oldIDs = append(oldIDs, sym.Id)
		incoming, err := f.docs.GetRelationshipsTo(sym.Id, "")
		if err != nil {
			return nil, err
		}
		qn := model.QualifiedName(sym.ModulePath, sym.Name)
		for _, rel := range incoming {
			captured = append(captured, model.CapturedIncoming{
				FromId:          rel.FromId,
				ToQualifiedName: qn,
				Kind:            rel.Kind,
				Metadata:        rel.Metadata,
			})
		}
	}

	if err := f.embeds.Delete(oldIDs, f.semanticDir, f.embedModelName()); err != nil {
		return nil, err
	}
	if err := f.docs.RemoveFileDocuments(fileID, path); err != nil {
		return nil, err
	}
	delete(f.fileLanguage, fileID)
	return captured, nil
}

// writeFileDocuments assigns a FileId and a SymbolId per parsed
// symbol, writes every document into one DocumentIndex batch alongside
// the merged persisted counters (mirroring internal/pipeline's
// commitBatch crash-safety ordering at single-file granularity), and
// populates the shared SymbolLookupCache on success.
func (f *Facade) writeFileDocuments(parsed *model.ParsedFile, contentHash string) (model.FileId, []model.Symbol, []model.UnresolvedRelationship, error) {
	f.allocator.StartBatch()
	if err := f.docs.StartBatch(); err != nil {
		f.allocator.AbortBatch()
		return 0, nil, nil, err
	}

	fileID, err := f.allocator.NextFileId()
	if err != nil {
		f.docs.AbortBatch()
		f.allocator.AbortBatch()
		return 0, nil, nil, err
	}

	fi := model.FileInfo{
		FileId:           fileID,
		Path:             parsed.Path,
		ContentHash:      contentHash,
		IndexedTimestamp: time.Now(),
		LanguageId:       parsed.Language,
	}
	if err := f.docs.StoreFileInfo(&fi); err != nil {
		f.docs.AbortBatch()
		f.allocator.AbortBatch()
		return 0, nil, nil, err
	}

	symbols := make([]model.Symbol, 0, len(parsed.Symbols))
	for _, ps := range parsed.Symbols {
		symID, err := f.allocator.NextSymbolId()
		if err != nil {
			f.docs.AbortBatch()
			f.allocator.AbortBatch()
			return 0, nil, nil, err
		}
		sym := model.Symbol{
			Id:           symID,
			Name:         ps.Name,
			Kind:         ps.Kind,
			FileId:       fileID,
			Range:        ps.Range,
			Signature:    ps.Signature,
			DocComment:   ps.DocComment,
			ModulePath:   ps.ModulePath,
			Visibility:   ps.Visibility,
			ScopeContext: ps.ScopeContext,
			LanguageId:   parsed.Language,
		}
		if err := f.docs.AddSymbol(&sym); err != nil {
			f.docs.AbortBatch()
			f.allocator.AbortBatch()
			return 0, nil, nil, err
		}
		symbols = append(symbols, sym)
	}

	for _, imp := range parsed.Imports {
		imp.FileId = fileID
		if err := f.docs.StoreImport(imp); err != nil {
			f.docs.AbortBatch()
			f.allocator.AbortBatch()
			return 0, nil, nil, err
		}
	}

	unresolved := make([]model.UnresolvedRelationship, 0, len(parsed.Relationships))
	for _, pr := range parsed.Relationships {
		unresolved = append(unresolved, model.UnresolvedRelationship{
			FromName: pr.FromName,
			ToName:   pr.ToName,
			Kind:     pr.Kind,
			FromFile: fileID,
			ToRange:  pr.ToRange,
			Metadata: pr.Metadata,
		})
	}

	tail := ids.PersistedCounters{NextFileId: fileID}
	if n := len(symbols); n > 0 {
		tail.NextSymbolId = symbols[n-1].Id
	}
	merged := maxPersistedCounters(f.allocator.Counters(), tail)
	if err := f.docs.StoreCounters(merged); err != nil {
		f.docs.AbortBatch()
		f.allocator.AbortBatch()
		return 0, nil, nil, err
	}

	if err := f.docs.CommitBatch(); err != nil {
		f.allocator.AbortBatch()
		return 0, nil, nil, err
	}
	f.allocator.CommitBatch()

	for _, sym := range symbols {
		f.cache.Insert(sym)
	}

	return fileID, symbols, unresolved, nil
}

func maxPersistedCounters(a, b ids.PersistedCounters) ids.PersistedCounters {
	out := a
	if b.NextSymbolId > out.NextSymbolId {
		out.NextSymbolId = b.NextSymbolId
	}
	if b.NextFileId > out.NextFileId {
		out.NextFileId = b.NextFileId
	}
	return out
}

func firstModulePath(symbols []model.Symbol) string {
	for _, sym := range symbols {
		if sym.ModulePath != "" {
			return sym.ModulePath
		}
	}
	return ""
}

func (f *Facade) embedModelName() string {
	if f.settings == nil {
		return ""
	}
	return f.settings.Embeddings.Model
}
