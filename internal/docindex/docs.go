package docindex

import (
	"crypto/sha256"
	"encoding/hex"
	"fmt"

	"github.com/bartolli/codanna/internal/model"
)

// doc_type discriminator values.
const (
	docTypeSymbol       = "symbol"
	docTypeRelationship = "relationship"
	docTypeFileInfo     = "file_info"
	docTypeImport       = "import"
	docTypeMetadata     = "metadata"
)

// symbolDoc is the bleve document for a Symbol.
type symbolDoc struct {
	DocType string `json:"doc_type"`

	SymbolId uint32 `json:"symbol_id"`
	Name     string `json:"name"`
	Kind     string `json:"kind"`
	FileId   uint32 `json:"file_id"`

	StartLine   uint32 `json:"start_line"`
	StartColumn uint32 `json:"start_column"`
	EndLine     uint32 `json:"end_line"`
	EndColumn   uint32 `json:"end_column"`

	Signature    string `json:"signature,omitempty"`
	DocComment   string `json:"doc_comment,omitempty"`
	ModulePath   string `json:"module_path,omitempty"`
	Visibility   string `json:"visibility,omitempty"`
	ScopeContext string `json:"scope_context,omitempty"`
	LanguageId   string `json:"language_id,omitempty"`
}

func symbolDocID(id model.SymbolId) string {
	return fmt.Sprintf("symbol/%d", uint32(id))
}

func toSymbolDoc(s *model.Symbol) *symbolDoc {
	return &symbolDoc{
		DocType:      docTypeSymbol,
		SymbolId:     uint32(s.Id),
		Name:         s.Name,
		Kind:         string(s.Kind),
		FileId:       uint32(s.FileId),
		StartLine:    s.Range.StartLine,
		StartColumn:  s.Range.StartColumn,
		EndLine:      s.Range.EndLine,
		EndColumn:    s.Range.EndColumn,
		Signature:    s.Signature,
		DocComment:   s.DocComment,
		ModulePath:   s.ModulePath,
		Visibility:   string(s.Visibility),
		ScopeContext: s.ScopeContext,
		LanguageId:   s.LanguageId,
	}
}

func (d *symbolDoc) toSymbol() *model.Symbol {
	return &model.Symbol{
		Id:     model.SymbolId(d.SymbolId),
		Name:   d.Name,
		Kind:   model.SymbolKind(d.Kind),
		FileId: model.FileId(d.FileId),
		Range: model.Range{
			StartLine:   d.StartLine,
			StartColumn: d.StartColumn,
			EndLine:     d.EndLine,
			EndColumn:   d.EndColumn,
		},
		Signature:    d.Signature,
		DocComment:   d.DocComment,
		ModulePath:   d.ModulePath,
		Visibility:   model.Visibility(d.Visibility),
		ScopeContext: d.ScopeContext,
		LanguageId:   d.LanguageId,
	}
}

// relationshipDoc is the bleve document for a committed Relationship.
// One document per (FromId, Kind, ToId) triple — storing the same edge
// twice overwrites rather than duplicates, which is an accepted
// simplification documented in DESIGN.md.
type relationshipDoc struct {
	DocType string `json:"doc_type"`

	FromId uint32 `json:"from_id"`
	ToId   uint32 `json:"to_id"`
	Kind   string `json:"kind"`

	CallLine     uint32 `json:"call_line,omitempty"`
	CallColumn   uint32 `json:"call_column,omitempty"`
	ReceiverType string `json:"receiver_type,omitempty"`
}

func relationshipDocID(fromID, toID model.SymbolId, kind model.RelationKind) string {
	return fmt.Sprintf("rel/%d/%s/%d", uint32(fromID), kind, uint32(toID))
}

func toRelationshipDoc(r *model.Relationship) *relationshipDoc {
	return &relationshipDoc{
		DocType:      docTypeRelationship,
		FromId:       uint32(r.FromId),
		ToId:         uint32(r.ToId),
		Kind:         string(r.Kind),
		CallLine:     r.Metadata.CallLine,
		CallColumn:   r.Metadata.CallColumn,
		ReceiverType: r.Metadata.ReceiverType,
	}
}

func (d *relationshipDoc) toRelationship() *model.Relationship {
	return &model.Relationship{
		FromId: model.SymbolId(d.FromId),
		ToId:   model.SymbolId(d.ToId),
		Kind:   model.RelationKind(d.Kind),
		Metadata: model.RelationshipMetadata{
			CallLine:     d.CallLine,
			CallColumn:   d.CallColumn,
			ReceiverType: d.ReceiverType,
		},
	}
}

// fileInfoDoc is the bleve document for a FileInfo. Path is
// canonical-path unique, so the document id is derived
// from the path, not the FileId.
type fileInfoDoc struct {
	DocType string `json:"doc_type"`

	FileId           uint32 `json:"file_id"`
	Path             string `json:"path"`
	ContentHash      string `json:"content_hash"`
	IndexedTimestamp int64  `json:"indexed_timestamp"`
	LanguageId       string `json:"language_id,omitempty"`
}

func fileInfoDocID(path string) string {
	return "file/" + path
}

// importDoc is the bleve document for one raw Import. The id is a hash
// of (file, path, alias, flags) so storing the same import twice is
// idempotent rather than duplicative.
type importDoc struct {
	DocType string `json:"doc_type"`

	FileId     uint32 `json:"file_id"`
	Path       string `json:"path"`
	Alias      string `json:"alias,omitempty"`
	IsGlob     bool   `json:"is_glob"`
	IsTypeOnly bool   `json:"is_type_only"`
}

func importDocID(imp model.Import) string {
	sum := sha256.Sum256([]byte(fmt.Sprintf("%d|%s|%s|%v|%v", imp.FileId, imp.Path, imp.Alias, imp.IsGlob, imp.IsTypeOnly)))
	return "import/" + hex.EncodeToString(sum[:])[:24]
}

func toImportDoc(imp model.Import) *importDoc {
	return &importDoc{
		DocType:    docTypeImport,
		FileId:     uint32(imp.FileId),
		Path:       imp.Path,
		Alias:      imp.Alias,
		IsGlob:     imp.IsGlob,
		IsTypeOnly: imp.IsTypeOnly,
	}
}

func (d *importDoc) toImport() model.Import {
	return model.Import{
		FileId:     model.FileId(d.FileId),
		Path:       d.Path,
		Alias:      d.Alias,
		IsGlob:     d.IsGlob,
		IsTypeOnly: d.IsTypeOnly,
	}
}

// metadataDoc is the bleve document for one metadata key/value pair.
type metadataDoc struct {
	DocType string `json:"doc_type"`
	Key     string `json:"key"`
	Value   uint64 `json:"value"`
}

func metadataDocID(key string) string {
	return "meta/" + key
}
