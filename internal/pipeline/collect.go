package pipeline

import (
	"time"

	"github.com/bartolli/codanna/internal/model"
	"github.com/bartolli/codanna/internal/resolution"
)

// pendingBatch accumulates one COLLECT batch's id-assigned documents
// before INDEX writes them. COLLECT and INDEX share the Allocator's
// single open batch, so unlike READ/PARSE they cannot run as
// independently pipelined stages: the batch must close (commit or
// abort) before the next one can open, since Allocator supports exactly
// one pending batch at a time.
type pendingBatch struct {
	Files      []model.FileInfo
	Contexts   []resolution.FileContext
	Symbols    []model.Symbol
	Imports    []model.Import
	Unresolved []model.UnresolvedRelationship
}

func (b *pendingBatch) empty() bool {
	return len(b.Symbols) == 0 && len(b.Files) == 0
}

// collectOne is COLLECT's per-file responsibility (spec.md §4.6):
// allocate a FileId and a SymbolId per symbol, in arrival order, and
// append the id-assigned documents to batch.
func (p *Pipeline) collectOne(r parseResult, batch *pendingBatch) error {
	fileID, err := p.allocator.NextFileId()
	if err != nil {
		return err
	}

	parsed := r.Parsed
	batch.Files = append(batch.Files, model.FileInfo{
		FileId:           fileID,
		Path:             parsed.Path,
		ContentHash:      r.ContentHash,
		IndexedTimestamp: time.Now(),
		LanguageId:       parsed.Language,
	})

	modulePath := ""
	for _, sym := range parsed.Symbols {
		if sym.ModulePath != "" {
			modulePath = sym.ModulePath
			break
		}
	}

	for _, ps := range parsed.Symbols {
		symID, err := p.allocator.NextSymbolId()
		if err != nil {
			return err
		}
		batch.Symbols = append(batch.Symbols, model.Symbol{
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
		})
	}

	for _, imp := range parsed.Imports {
		imp.FileId = fileID
		batch.Imports = append(batch.Imports, imp)
	}

	for _, pr := range parsed.Relationships {
		batch.Unresolved = append(batch.Unresolved, model.UnresolvedRelationship{
			FromName: pr.FromName,
			ToName:   pr.ToName,
			Kind:     pr.Kind,
			FromFile: fileID,
			ToRange:  pr.ToRange,
			Metadata: pr.Metadata,
		})
	}

	batch.Contexts = append(batch.Contexts, resolution.FileContext{
		FileId:     fileID,
		Path:       parsed.Path,
		Language:   parsed.Language,
		ModulePath: modulePath,
		Imports:    parsed.Imports,
	})

	return nil
}
