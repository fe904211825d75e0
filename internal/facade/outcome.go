package facade

import "github.com/bartolli/codanna/internal/model"

// Outcome is index_file's result: exactly one of Cached or Indexed is
// meaningful, selected by Kind.
type Outcome struct {
	Kind    OutcomeKind
	FileId  model.FileId
	Symbols int
}

// OutcomeKind distinguishes a no-op cache hit from an actual write.
type OutcomeKind int

const (
	// OutcomeCached means the file's content hash matched the stored
	// hash and force was false: no mutation occurred (spec.md §4.10's
	// incremental contract).
	OutcomeCached OutcomeKind = iota
	// OutcomeIndexed means the file was parsed and its documents
	// written (fresh index or reindex).
	OutcomeIndexed
)
