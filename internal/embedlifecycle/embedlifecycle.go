// Package embedlifecycle wraps an EmbeddingStore and an Embedder
// collaborator with the create/delete/persist/load glue spec.md §4.9
// describes, so neither internal/pipeline nor internal/facade need to
// know the retry and crash-safety rules around embeddings. Resilience
// against a flaky embedder is handled the way the teacher's embedding
// backends (internal/embed) already expect callers to handle
// transient failures: bounded retry with backoff plus a circuit
// breaker that fails fast once an embedder looks persistently down.
package embedlifecycle

import (
	"context"
	"log/slog"

	"github.com/bartolli/codanna/internal/embedstore"
	"github.com/bartolli/codanna/internal/errors"
	"github.com/bartolli/codanna/internal/model"
	"github.com/bartolli/codanna/internal/parserapi"
)

// DefaultChunkSize is the recommended max symbols per EmbedBatch call
// (spec.md §4.9: "recommended <= 256 per call").
const DefaultChunkSize = 256

// Manager owns the EmbeddingStore and drives Create/Delete/Persist/Load
// against it through an Embedder, gated by a circuit breaker so a dead
// embedding backend degrades indexing to text-only search instead of
// stalling every subsequent batch on retries that cannot succeed.
type Manager struct {
	store    *embedstore.Store
	embedder parserapi.Embedder
	breaker  *errors.CircuitBreaker
	retry    errors.RetryConfig
	chunk    int
	log      *slog.Logger
}

// Option configures a Manager.
type Option func(*Manager)

// WithChunkSize overrides DefaultChunkSize.
func WithChunkSize(n int) Option {
	return func(m *Manager) {
		if n > 0 {
			m.chunk = n
		}
	}
}

// WithRetryConfig overrides errors.DefaultRetryConfig for EmbedBatch calls.
func WithRetryConfig(cfg errors.RetryConfig) Option {
	return func(m *Manager) { m.retry = cfg }
}

// WithLogger overrides the default discard logger.
func WithLogger(l *slog.Logger) Option {
	return func(m *Manager) { m.log = l }
}

// New builds a Manager around an already-open (possibly empty) store.
// embedder may be nil, in which case the Manager degrades every Create
// call to a no-op: callers use this to index without semantic search
// configured, per spec.md §4.3's "embeddings are optional" stance.
func New(store *embedstore.Store, embedder parserapi.Embedder, opts ...Option) *Manager {
	m := &Manager{
		store:    store,
		embedder: embedder,
		breaker:  errors.NewCircuitBreaker("embedder"),
		retry:    errors.DefaultRetryConfig(),
		chunk:    DefaultChunkSize,
		log:      slog.New(slog.DiscardHandler),
	}
	for _, opt := range opts {
		opt(m)
	}
	return m
}

// Store returns the underlying EmbeddingStore for read paths
// (semantic_search) that don't need the lifecycle glue.
func (m *Manager) Store() *embedstore.Store { return m.store }

// Enabled reports whether an Embedder is configured.
func (m *Manager) Enabled() bool { return m.embedder != nil }

// EmbedQuery embeds a single ad-hoc text — a semantic_search query,
// not a symbol's doc comment — outside Create's doc-comment gate, but
// still behind the same retry config and circuit breaker so a flaky
// embedder degrades a search call the same way it degrades indexing.
func (m *Manager) EmbedQuery(ctx context.Context, text string) ([]float32, error) {
	if !m.Enabled() {
		return nil, errors.PolicyViolation("semantic_search", "no embedder configured")
	}
	if !m.breaker.Allow() {
		return nil, errors.ErrCircuitOpen
	}
	vectors, err := errors.RetryWithResult(ctx, m.retry, func() ([][]float32, error) {
		return m.embedder.EmbedBatch(ctx, []string{text})
	})
	if err != nil {
		m.breaker.RecordFailure()
		return nil, err
	}
	m.breaker.RecordSuccess()
	if len(vectors) == 0 {
		return nil, errors.New(errors.ErrCodeInternal, "embedder returned no vectors for query", nil)
	}
	return vectors[0], nil
}

// CreateResult summarizes one Create call for IndexStats reporting.
type CreateResult struct {
	Embedded int
	Rejected int
	Skipped  int
}

// Create embeds every symbol with a non-empty doc comment (spec.md
// §4.9's gate) and stores the resulting vectors. Symbols without a doc
// comment are counted as Skipped without ever reaching the embedder.
// Embedding runs in chunks of at most m.chunk symbols, each chunk
// protected by retry-with-backoff and the circuit breaker; once the
// breaker trips, remaining chunks are skipped rather than retried, and
// the caller still gets the vectors already stored from earlier
// chunks.
func (m *Manager) Create(ctx context.Context, symbols []model.Symbol) (CreateResult, error) {
	var result CreateResult
	if !m.Enabled() {
		result.Skipped = len(symbols)
		return result, nil
	}

	var candidates []model.Symbol
	for _, sym := range symbols {
		if sym.HasDoc() {
			candidates = append(candidates, sym)
		} else {
			result.Skipped++
		}
	}

	for start := 0; start < len(candidates); start += m.chunk {
		end := start + m.chunk
		if end > len(candidates) {
			end = len(candidates)
		}
		chunk := candidates[start:end]

		if !m.breaker.Allow() {
			m.log.Warn("embedding circuit open, skipping chunk", "size", len(chunk))
			result.Skipped += len(chunk)
			continue
		}

		texts := make([]string, len(chunk))
		for i, sym := range chunk {
			texts[i] = sym.EmbeddingText()
		}

		vectors, err := errors.RetryWithResult(ctx, m.retry, func() ([][]float32, error) {
			return m.embedder.EmbedBatch(ctx, texts)
		})
		if err != nil {
			m.breaker.RecordFailure()
			m.log.Warn("embedding chunk failed, degrading to text-only for these symbols", "size", len(chunk), "error", err)
			result.Skipped += len(chunk)
			continue
		}
		m.breaker.RecordSuccess()

		entries := make([]embedstore.Entry, 0, len(chunk))
		for i, sym := range chunk {
			if i >= len(vectors) {
				break
			}
			entries = append(entries, embedstore.Entry{
				Id:       sym.Id,
				Vector:   vectors[i],
				Language: sym.LanguageId,
			})
		}
		stored, rejected := m.store.StoreEmbeddings(entries)
		result.Embedded += stored
		result.Rejected += rejected
	}

	return result, nil
}

// Delete removes the embeddings for the given symbol ids and
// immediately saves the store to disk, per the crash-safety ordering
// in spec.md §4.9: "remove from embedding store -> save to disk ->
// delete symbol docs". Callers delete the DocumentIndex symbol
// documents only after this returns successfully, so a crash between
// the two leaves the on-disk embeddings and the on-disk documents
// mutually consistent (orphaned vectors at worst, never a dangling
// reference to a removed vector).
func (m *Manager) Delete(ids []model.SymbolId, dir, modelName string) error {
	if !m.Enabled() || len(ids) == 0 {
		return nil
	}
	m.store.RemoveEmbeddings(ids)
	return m.store.Save(dir, modelName)
}

// Persist saves the store to dir, called once after Phase 1 completes
// a run (spec.md §4.9's "Persist" step).
func (m *Manager) Persist(dir, modelName string) error {
	return m.store.Save(dir, modelName)
}

// LoadOrEmpty attempts to load a previously persisted store from dir.
// A missing or corrupt store is not fatal: the caller continues with
// an empty in-memory store, degrading to text-only search, per
// spec.md §4.9's "on failure, log and continue without embeddings".
// countMismatch reports a dimension mismatch against expectedDimension
// (a configured embedder change). A mismatch is not fatal either: the
// persisted store is discarded and an empty store of expectedDimension
// is returned with loaded false.
func LoadOrEmpty(dir string, expectedDimension int, log *slog.Logger) (store *embedstore.Store, countMismatch bool, loaded bool) {
	if log == nil {
		log = slog.New(slog.DiscardHandler)
	}
	s, mismatch, err := embedstore.Load(dir, expectedDimension)
	if mismatch {
		log.Warn("semantic store dimension mismatch, discarding", "dir", dir, "error", err)
		return embedstore.New(expectedDimension), true, false
	}
	if err != nil {
		log.Info("no semantic store loaded, continuing text-only", "dir", dir, "error", err)
		return embedstore.New(expectedDimension), false, false
	}
	return s, false, true
}
