// Package parserapi defines the collaborator contracts the indexing
// core depends on but does not implement itself: per-language parsing
// and text embedding. Concrete grammars (tree-sitter) and embedding
// models are outside this core's scope; callers supply an
// implementation of Parser and, optionally, Embedder.
package parserapi

import (
	"context"

	"github.com/bartolli/codanna/internal/model"
)

// Parser turns raw file content into the symbols, relationships, and
// imports the pipeline's PARSE stage needs. One Parser instance is
// expected to be safe for concurrent use by multiple parser workers;
// implementations that wrap a non-thread-safe grammar (e.g. a
// tree-sitter parser handle) must pool or lock internally.
type Parser interface {
	// Parse parses a single file's content. path is relative to the
	// indexed root and is used only for diagnostics and FileInfo.Path;
	// callers that need a language key extracted from the path should
	// do so before calling Parse.
	Parse(ctx context.Context, path string, content []byte) (*model.ParsedFile, error)

	// Language returns the language id this Parser handles (e.g. "go",
	// "typescript"), matching the keys in a settings.toml
	// [languages.enabled] table.
	Language() string
}

// Embedder generates vector embeddings for symbol text. Implementations
// wrap whatever local or remote embedding model is configured; the
// indexing core treats every embedder as a batched, dimension-fixed
// black box, grounded on the same collaborator shape the teacher uses
// for its own pluggable embedding backends.
type Embedder interface {
	// Dimension returns the fixed output vector length. embedstore.Store
	// rejects vectors of any other length once a dimension is set.
	Dimension() int

	// EmbedBatch embeds a batch of texts (one per symbol's
	// EmbeddingText()) in a single call, matching the teacher's
	// batch-first embedding API. Implementations should chunk
	// internally against whatever max batch size their backend needs;
	// callers should not assume a 1:1 request per text.
	EmbedBatch(ctx context.Context, texts []string) ([][]float32, error)

	// ModelName identifies the embedding model, persisted alongside
	// stored vectors (embedstore's metadata.json) so a dimension or
	// model mismatch on reload is detectable rather than silently
	// corrupting search results.
	ModelName() string
}

// ParserRegistry resolves a Parser by language id, letting the
// pipeline's PARSE stage dispatch each discovered file to the parser
// for its language without hard-coding the set of supported languages.
type ParserRegistry struct {
	parsers map[string]Parser
}

// NewParserRegistry builds a registry from the given parsers, keyed by
// each Parser's own Language().
func NewParserRegistry(parsers ...Parser) *ParserRegistry {
	r := &ParserRegistry{parsers: make(map[string]Parser, len(parsers))}
	for _, p := range parsers {
		r.parsers[p.Language()] = p
	}
	return r
}

// Lookup returns the Parser registered for language, or nil if none is
// registered — the pipeline treats this as "skip, unsupported language"
// rather than an error.
func (r *ParserRegistry) Lookup(language string) Parser {
	return r.parsers[language]
}

// Languages returns the set of language ids with a registered parser.
func (r *ParserRegistry) Languages() []string {
	out := make([]string, 0, len(r.parsers))
	for lang := range r.parsers {
		out = append(out, lang)
	}
	return out
}
