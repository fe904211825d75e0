// Package model defines the shared document types persisted and queried by
// the indexing core: symbols, relationships, file metadata, imports, and
// the identifiers that tie them together.
package model

import "fmt"

// SymbolId uniquely identifies a Symbol for the lifetime between its
// creation and the reindex or removal of its enclosing file. Ids are
// monotonically allocated by ids.Allocator and are never reused.
type SymbolId uint32

// FileId uniquely identifies an indexed file. Allocated the same way as
// SymbolId, from an independent counter.
type FileId uint32

// VectorId is definitionally the same 32-bit space as SymbolId; an
// embedding is always keyed by the SymbolId of the symbol it describes.
type VectorId = SymbolId

// IsZero reports whether the id was never assigned. Zero is not a valid
// allocated id.
func (id SymbolId) IsZero() bool { return id == 0 }

// IsZero reports whether the id was never assigned. Zero is not a valid
// allocated id.
func (id FileId) IsZero() bool { return id == 0 }

func (id SymbolId) String() string { return fmt.Sprintf("sym:%d", uint32(id)) }
func (id FileId) String() string   { return fmt.Sprintf("file:%d", uint32(id)) }
