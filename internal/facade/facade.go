// Package facade implements the unified Facade (spec.md §4.10-4.11):
// the single read/write entry point the CLI, an RPC surface, the
// Watcher, and the HotReloader all drive. It owns the DocumentIndex,
// the optional EmbeddingStore (via internal/embedlifecycle), the
// shared SymbolLookupCache and Allocator Phase 1/2 need, and the set
// of configured indexed_paths.
package facade

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"log/slog"
	"os"
	"path/filepath"
	"sync"
	"time"

	"github.com/bartolli/codanna/internal/config"
	"github.com/bartolli/codanna/internal/docindex"
	"github.com/bartolli/codanna/internal/embedlifecycle"
	"github.com/bartolli/codanna/internal/ids"
	"github.com/bartolli/codanna/internal/indexmeta"
	"github.com/bartolli/codanna/internal/langbehavior"
	"github.com/bartolli/codanna/internal/model"
	"github.com/bartolli/codanna/internal/notify"
	"github.com/bartolli/codanna/internal/parserapi"
	"github.com/bartolli/codanna/internal/pipeline"
	"github.com/bartolli/codanna/internal/resolution"
	"github.com/bartolli/codanna/internal/walker"
)

// Facade is the unified read/write entry point. Multiple readers may
// call its read operations concurrently; write operations take an
// exclusive lock over the whole facade, per spec.md §5's "multiple
// readers, exclusive writer" shared-resource policy.
type Facade struct {
	mu sync.RWMutex

	settings  *config.Settings
	docs      *docindex.Index
	embeds    *embedlifecycle.Manager
	cache     *resolution.Cache
	allocator *ids.Allocator
	languages *langbehavior.Registry
	parsers   *parserapi.ParserRegistry
	walk      *walker.Walker
	pipe      *pipeline.Pipeline
	resolver  *resolution.Resolver
	notifier  *notify.Broadcaster

	semanticDir string
	// metaPath is where IndexMetadata (spec.md §6.1-§6.2) is written
	// after every successful write operation, the on-disk change
	// signal the HotReloader polls. Empty disables the write (tests
	// that construct a Facade directly without an index root).
	metaPath string

	// embedder and embedDimension are retained so ClearIndex can
	// reconstruct a fresh embedlifecycle.Manager around a fresh, empty
	// EmbeddingStore without re-deriving them from Settings (Settings may
	// be nil in tests that construct a Facade directly).
	embedder       parserapi.Embedder
	embedDimension int

	// fileLanguage enriches read operations with a file_id -> language_id
	// table, built at startup from file_info documents (spec.md §4.10).
	fileLanguage map[model.FileId]string
	// indexedPaths is the set of individual file paths currently
	// represented by a file_info document, refreshed on every write.
	indexedPaths map[string]struct{}
	// configuredDirs is the set of directory roots sync_with_config last
	// synced to, distinct from indexedPaths (which is file-granular):
	// this is what makes a second sync_with_config call with the same
	// config idempotent (spec.md §8 testable property 7) without
	// re-walking the filesystem to find out nothing changed.
	configuredDirs map[string]struct{}
}

// Deps bundles the collaborators New needs, so construction order
// doesn't obscure which pieces are required versus optional.
type Deps struct {
	Settings  *config.Settings
	Docs      *docindex.Index
	Embedder  parserapi.Embedder // optional; nil disables semantic search
	Languages *langbehavior.Registry
	Parsers   *parserapi.ParserRegistry
	Notifier  *notify.Broadcaster // optional; a Broadcaster is created if nil

	// SemanticDir is where the EmbeddingStore is persisted/loaded from
	// (.codanna/index/semantic per spec.md §6.1).
	SemanticDir string

	// MetaPath is where IndexMetadata is written
	// (.codanna/index/index.meta per spec.md §6.1). Empty disables it.
	MetaPath string
}

// New builds a Facade over its collaborators: it reseeds the Allocator
// from the DocumentIndex's persisted counters, loads (or creates) the
// EmbeddingStore, and rebuilds the file_id -> language_id table and
// indexed_paths set from whatever the DocumentIndex already holds, so a
// restarted process resumes with a correct read surface immediately.
func New(deps Deps) (*Facade, error) {
	w, err := walker.New()
	if err != nil {
		return nil, err
	}

	persisted, err := deps.Docs.PersistedCounters()
	if err != nil {
		return nil, err
	}
	allocator := ids.NewAllocator(persisted)
	cache := resolution.NewCache()

	dimension := 0
	if deps.Settings != nil {
		dimension = deps.Settings.Embeddings.Dimension
	}
	store, _, _ := embedlifecycle.LoadOrEmpty(deps.SemanticDir, dimension, nil)
	embeds := embedlifecycle.New(store, deps.Embedder)

	notifier := deps.Notifier
	if notifier == nil {
		notifier = notify.New()
	}

	f := &Facade{
		settings:       deps.Settings,
		docs:           deps.Docs,
		embeds:         embeds,
		cache:          cache,
		allocator:      allocator,
		languages:      deps.Languages,
		parsers:        deps.Parsers,
		walk:           w,
		pipe:           pipeline.New(w, deps.Parsers, deps.Docs, allocator, cache),
		resolver:       resolution.NewResolver(deps.Docs, cache, deps.Languages),
		notifier:       notifier,
		semanticDir:    deps.SemanticDir,
		metaPath:       deps.MetaPath,
		embedder:       deps.Embedder,
		embedDimension: dimension,
		fileLanguage:   make(map[model.FileId]string),
		indexedPaths:   make(map[string]struct{}),
		configuredDirs: make(map[string]struct{}),
	}

	if err := f.rebuildFileLanguageTable(); err != nil {
		return nil, err
	}
	return f, nil
}

// Notifications returns the facade's NotificationBroadcaster so
// callers (Watcher, HotReloader, RPC layers) can subscribe.
func (f *Facade) Notifications() *notify.Broadcaster { return f.notifier }

// IndexedPaths returns a snapshot of every path currently represented
// by a file_info document. The Watcher uses this to seed its O(1)
// path cache at startup (spec.md §4.12).
func (f *Facade) IndexedPaths() []string {
	f.mu.RLock()
	defer f.mu.RUnlock()
	paths := make([]string, 0, len(f.indexedPaths))
	for p := range f.indexedPaths {
		paths = append(paths, p)
	}
	return paths
}

// Stats returns the DocumentIndex's point-in-time size snapshot.
func (f *Facade) Stats() (docindex.IndexStats, error) {
	f.mu.RLock()
	defer f.mu.RUnlock()
	return f.docs.Stats()
}

func (f *Facade) rebuildFileLanguageTable() error {
	paths, err := f.docs.GetAllIndexedPaths()
	if err != nil {
		return err
	}
	for _, p := range paths {
		fi, err := f.docs.GetFileInfo(p)
		if err != nil || fi == nil {
			continue
		}
		f.fileLanguage[fi.FileId] = fi.LanguageId
		f.indexedPaths[p] = struct{}{}
	}
	return nil
}

// languageFor resolves a file's language from the startup-built table,
// used to enrich read results without a per-call DocumentIndex lookup.
func (f *Facade) languageFor(id model.FileId) string {
	return f.fileLanguage[id]
}

func (f *Facade) extensionLanguage() map[string]string {
	if f.settings == nil {
		return nil
	}
	return f.settings.ExtensionLanguage()
}

func (f *Facade) languageForPath(path string) string {
	ext := filepath.Ext(path)
	return f.extensionLanguage()[ext]
}

func hashFile(path string) (string, []byte, error) {
	content, err := os.ReadFile(path)
	if err != nil {
		return "", nil, err
	}
	sum := sha256.Sum256(content)
	return hex.EncodeToString(sum[:]), content, nil
}

func canonicalRelPath(root, path string) (string, error) {
	if filepath.IsAbs(path) {
		rel, err := filepath.Rel(root, path)
		if err != nil {
			return "", err
		}
		return rel, nil
	}
	return path, nil
}

// writeIndexMeta refreshes the index.meta sidecar from the
// DocumentIndex's current stats and the in-memory indexed_paths set.
// Called by every write operation after it commits successfully
// (spec.md §5: "indexed_paths metadata is written only as part of
// successful sync_with_config" generalizes here to every successful
// write, since index.meta also reports symbol_count/file_count that
// change on every write, not only sync_with_config). A failure here
// is logged and swallowed: it degrades HotReloader's promptness, not
// the correctness of the write that just committed.
func (f *Facade) writeIndexMeta() {
	if f.metaPath == "" {
		return
	}
	stats, err := f.docs.Stats()
	if err != nil {
		slog.Warn("index.meta refresh: failed to read stats", slog.Any("error", err))
		return
	}
	paths := make([]string, 0, len(f.indexedPaths))
	for p := range f.indexedPaths {
		paths = append(paths, p)
	}
	m := indexmeta.Metadata{
		Version:      indexmeta.CurrentVersion,
		DataSource:   indexmeta.DataSourceFilesystem,
		SymbolCount:  uint32(stats.SymbolCount),
		FileCount:    uint32(stats.FileCount),
		LastModified: uint64(time.Now().Unix()),
		IndexedPaths: paths,
	}
	if err := indexmeta.Save(f.metaPath, m); err != nil {
		slog.Warn("index.meta refresh: failed to write", slog.String("path", f.metaPath), slog.Any("error", err))
	}
}

// ensureContext returns ctx unchanged, or context.Background() if nil,
// so internal helpers never need a nil check of their own.
func ensureContext(ctx context.Context) context.Context {
	if ctx == nil {
		return context.Background()
	}
	return ctx
}
