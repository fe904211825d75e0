package model

import "time"

// FileInfo is the canonical record of one indexed file.
// Exactly one exists per indexed path.
type FileInfo struct {
	FileId           FileId
	Path             string
	ContentHash      string // hex-encoded SHA-256 of the file's bytes
	IndexedTimestamp time.Time
	LanguageId       string
}

// Import is a raw import/use statement as written in source, scoped to
// the file it was found in.
type Import struct {
	FileId     FileId
	Path       string
	Alias      string
	IsGlob     bool
	IsTypeOnly bool
}

// EnhancedImport is an Import after project-config enhancement: the
// resolved module path used for matching, alongside the raw import.
type EnhancedImport struct {
	Import
	EnhancedPath string
}

// MetadataKey is the closed set of recognized metadata keys.
type MetadataKey string

const (
	MetaSymbolCounter MetadataKey = "SymbolCounter"
	MetaFileCounter   MetadataKey = "FileCounter"
	MetaSchemaVersion MetadataKey = "SchemaVersion"
)

// ParsedSymbol is a symbol as reported by a parser, before SymbolId
// assignment.
type ParsedSymbol struct {
	Name         string
	Kind         SymbolKind
	Range        Range
	Signature    string
	DocComment   string
	Visibility   Visibility
	ScopeContext string
	ModulePath   string
}

// ParsedRelationship is a relationship as reported by a parser, named
// but not yet id-resolved.
type ParsedRelationship struct {
	FromName string
	ToName   string
	Kind     RelationKind
	ToRange  *Range
	Metadata RelationshipMetadata
}

// ParsedFile is the output of the PARSE stage.
type ParsedFile struct {
	Path          string
	Language      string
	Symbols       []ParsedSymbol
	Relationships []ParsedRelationship
	Imports       []Import
}
