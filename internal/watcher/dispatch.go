package watcher

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"sync"

	"github.com/gofrs/flock"

	"github.com/bartolli/codanna/internal/config"
	"github.com/bartolli/codanna/internal/facade"
	"github.com/bartolli/codanna/internal/notify"
)

// DecisionKind is the closed set of actions a handler chain can
// resolve a FileEvent to (spec.md §4.12).
type DecisionKind int

const (
	// DecisionNone means this handler did not recognize the event;
	// the dispatcher tries the next handler in the chain.
	DecisionNone DecisionKind = iota
	// DecisionReindexCode calls Facade.IndexFile.
	DecisionReindexCode
	// DecisionRemoveCode calls Facade.RemoveFile.
	DecisionRemoveCode
	// DecisionReindexDocument is ReindexCode's counterpart for paths
	// classified as documents rather than source code.
	DecisionReindexDocument
	// DecisionRemoveDocument is RemoveCode's document counterpart.
	DecisionRemoveDocument
	// DecisionReloadConfig re-syncs the facade against a freshly
	// loaded settings.toml or an edited .gitignore.
	DecisionReloadConfig
)

// Decision is what a Handler resolves a FileEvent to.
type Decision struct {
	Kind DecisionKind
	Path string
	// Dirs carries the directory set to reconcile against, for
	// DecisionReloadConfig. Passed straight to Facade.SyncWithConfig.
	Dirs []string
}

var noneDecision = Decision{Kind: DecisionNone}

// Handler inspects ev against the current PathCache and returns a
// Decision, or DecisionNone to defer to the next handler in the chain.
type Handler func(ev FileEvent, cache *PathCache) Decision

// PathCache is the O(1) indexed-path membership table the handler
// chain uses for cheap create/modify-vs-delete classification,
// refreshed whenever the facade emits IndexReloaded (spec.md §4.12:
// "Handlers maintain an O(1) path cache of indexed files").
type PathCache struct {
	mu    sync.RWMutex
	paths map[string]struct{}
}

// NewPathCache seeds a cache from an initial path list.
func NewPathCache(paths []string) *PathCache {
	c := &PathCache{paths: make(map[string]struct{}, len(paths))}
	for _, p := range paths {
		c.paths[p] = struct{}{}
	}
	return c
}

// Has reports whether path is currently tracked as indexed.
func (c *PathCache) Has(path string) bool {
	c.mu.RLock()
	defer c.mu.RUnlock()
	_, ok := c.paths[path]
	return ok
}

// Add marks path as indexed.
func (c *PathCache) Add(path string) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.paths[path] = struct{}{}
}

// Remove unmarks path.
func (c *PathCache) Remove(path string) {
	c.mu.Lock()
	defer c.mu.Unlock()
	delete(c.paths, path)
}

// Refresh replaces the entire cache contents, used after IndexReloaded
// since a HotReloader swap or ClearIndex invalidates any prior
// membership the cache held.
func (c *PathCache) Refresh(paths []string) {
	fresh := make(map[string]struct{}, len(paths))
	for _, p := range paths {
		fresh[p] = struct{}{}
	}
	c.mu.Lock()
	c.paths = fresh
	c.mu.Unlock()
}

// configChangeHandler recognizes OpConfigChange and OpGitignoreChange.
// Neither event names which directories changed on its own; the
// Manager resolves that by reading the (possibly just-edited) settings
// file and reconciling against the single project root it already
// knows, via Facade.SyncWithConfig. Settings models one project root
// rather than a list of indexed directories, so ReloadConfig's
// "added/removed" semantics collapses to "reconcile root" here; the
// directory add/remove diffing SyncWithConfig implements is exercised
// directly by callers that track multiple indexed_paths (an RPC layer,
// for instance), not by this single-root watcher.
func configChangeHandler(root string) Handler {
	return func(ev FileEvent, _ *PathCache) Decision {
		if ev.Operation != OpConfigChange && ev.Operation != OpGitignoreChange {
			return noneDecision
		}
		return Decision{Kind: DecisionReloadConfig, Dirs: []string{root}}
	}
}

// deletionHandler recognizes OpDelete. A path absent from the cache
// was never indexed, so there is nothing to remove; resolving the
// decision still requires knowing whether the deleted path was code or
// a document, which this build only distinguishes by extension since
// no document language is registered (see documentHandler).
func deletionHandler(docExt map[string]struct{}) Handler {
	return func(ev FileEvent, cache *PathCache) Decision {
		if ev.Operation != OpDelete || ev.IsDir {
			return noneDecision
		}
		if !cache.Has(ev.Path) {
			return noneDecision
		}
		if _, isDoc := docExt[extOf(ev.Path)]; isDoc {
			return Decision{Kind: DecisionRemoveDocument, Path: ev.Path}
		}
		return Decision{Kind: DecisionRemoveCode, Path: ev.Path}
	}
}

// codeHandler recognizes create/modify/rename events for any extension
// mapped to a registered language.
func codeHandler(extToLang map[string]string) Handler {
	return func(ev FileEvent, _ *PathCache) Decision {
		if ev.IsDir || !isContentChange(ev.Operation) {
			return noneDecision
		}
		if _, ok := extToLang[extOf(ev.Path)]; !ok {
			return noneDecision
		}
		return Decision{Kind: DecisionReindexCode, Path: ev.Path}
	}
}

// documentHandler recognizes create/modify/rename events for
// extensions configured as documents rather than source code. This
// core ships no document parser, so docExt is empty by default and
// this handler never fires unless a caller configures one explicitly.
func documentHandler(docExt map[string]struct{}) Handler {
	return func(ev FileEvent, _ *PathCache) Decision {
		if ev.IsDir || !isContentChange(ev.Operation) {
			return noneDecision
		}
		if _, ok := docExt[extOf(ev.Path)]; !ok {
			return noneDecision
		}
		return Decision{Kind: DecisionReindexDocument, Path: ev.Path}
	}
}

func isContentChange(op Operation) bool {
	return op == OpCreate || op == OpModify || op == OpRename
}

func extOf(path string) string {
	for i := len(path) - 1; i >= 0; i-- {
		if path[i] == '.' {
			return path[i:]
		}
		if path[i] == '/' {
			break
		}
	}
	return ""
}

// dispatch tries each handler in chain order, returning the first
// non-None Decision.
func dispatch(ev FileEvent, cache *PathCache, chain []Handler) Decision {
	for _, h := range chain {
		if d := h(ev, cache); d.Kind != DecisionNone {
			return d
		}
	}
	return noneDecision
}

// BatchWatcher is the shape FSWatcher exposes: debounced events
// arrive as batches rather than one at a time, unlike the single-event
// Watcher interface ScanWatcher satisfies directly.
type BatchWatcher interface {
	Start(ctx context.Context, path string) error
	Stop() error
	Events() <-chan []FileEvent
	Errors() <-chan error
}

// FacadeSource resolves the currently active Facade on every use,
// rather than a Manager caching a pointer that a HotReloader swap
// (spec.md §4.13) would leave stale. *hotreload.Holder satisfies this
// implicitly; a bare Facade can be wrapped in a fixedFacade for
// callers that run without a HotReloader.
type FacadeSource interface {
	Get() *facade.Facade
}

// fixedFacade is a FacadeSource that never changes, for Manager
// construction in processes that don't run a HotReloader.
type fixedFacade struct{ f *facade.Facade }

func (s fixedFacade) Get() *facade.Facade { return s.f }

// FixedFacadeSource wraps f as a FacadeSource that always resolves to
// the same instance.
func FixedFacadeSource(f *facade.Facade) FacadeSource { return fixedFacade{f} }

// Manager drives an FSWatcher's events through the handler chain
// and onto Facade calls, per spec.md §4.12. It is the single-threaded
// dispatch loop: each batch's events are processed one at a time, in
// the order the Watcher emits them.
type Manager struct {
	w        BatchWatcher
	src      FacadeSource
	root     string
	chain    []Handler
	cache    *PathCache
	lockPath string
}

// DocumentExtensions lets a caller opt a set of extensions (e.g.
// ".md") into the Document decision variants. Defaults to none.
type ManagerOptions struct {
	DocumentExtensions map[string]struct{}
}

// NewManager builds a dispatch Manager over an already-constructed
// Watcher and a FacadeSource. root is the single project root this
// watcher is responsible for, used to resolve DecisionReloadConfig.
func NewManager(w BatchWatcher, src FacadeSource, settings *config.Settings, root string, opts ManagerOptions) *Manager {
	docExt := opts.DocumentExtensions
	if docExt == nil {
		docExt = map[string]struct{}{}
	}
	extToLang := map[string]string{}
	indexRoot := ".codanna"
	if settings != nil {
		extToLang = settings.ExtensionLanguage()
		if settings.IndexRoot != "" {
			indexRoot = settings.IndexRoot
		}
	}

	return &Manager{
		w:    w,
		src:  src,
		root: root,
		chain: []Handler{
			configChangeHandler(root),
			deletionHandler(docExt),
			codeHandler(extToLang),
			documentHandler(docExt),
		},
		cache:    NewPathCache(src.Get().IndexedPaths()),
		lockPath: filepath.Join(root, indexRoot, "watch.lock"),
	}
}

// Run starts the underlying Watcher and blocks, dispatching events
// until ctx is cancelled or the Watcher's event channel closes. It
// also subscribes to the active facade's NotificationBroadcaster to
// refresh the path cache on IndexReloaded (a ClearIndex or HotReloader
// swap invalidates whatever membership the cache held). The
// subscription survives a facade swap as long as the process wires
// every Facade instance around the same *notify.Broadcaster.
func (m *Manager) Run(ctx context.Context) error {
	if err := os.MkdirAll(filepath.Dir(m.lockPath), 0o755); err != nil {
		return fmt.Errorf("failed to create watch lock directory: %w", err)
	}
	lock := flock.New(m.lockPath)
	locked, err := lock.TryLock()
	if err != nil {
		return fmt.Errorf("failed to acquire watch lock %s: %w", m.lockPath, err)
	}
	if !locked {
		return fmt.Errorf("another watcher already holds %s", m.lockPath)
	}
	defer lock.Unlock()

	if err := m.w.Start(ctx, m.root); err != nil {
		return err
	}
	defer m.w.Stop()

	reload, token := m.src.Get().Notifications().Subscribe()
	defer m.src.Get().Notifications().Unsubscribe(token)

	for {
		select {
		case <-ctx.Done():
			return ctx.Err()

		case batch, ok := <-m.w.Events():
			if !ok {
				return nil
			}
			for _, ev := range batch {
				m.handle(ctx, ev)
			}

		case err, ok := <-m.w.Errors():
			if !ok {
				continue
			}
			slog.Warn("watcher reported a non-fatal error", slog.Any("error", err))

		case evt, ok := <-reload:
			if !ok {
				continue
			}
			if evt.Kind == notify.IndexReloaded {
				m.cache.Refresh(m.src.Get().IndexedPaths())
			}
		}
	}
}

func (m *Manager) handle(ctx context.Context, ev FileEvent) {
	d := dispatch(ev, m.cache, m.chain)
	f := m.src.Get()

	switch d.Kind {
	case DecisionReindexCode, DecisionReindexDocument:
		outcome, err := f.IndexFile(ctx, d.Path)
		if err != nil {
			slog.Warn("watcher reindex failed", slog.String("path", d.Path), slog.Any("error", err))
			return
		}
		if outcome.Kind == facade.OutcomeIndexed {
			m.cache.Add(d.Path)
		}
		// Embedding persistence and the FileReindexed/FileCreated
		// broadcast already happen inside Facade.IndexFile.

	case DecisionRemoveCode, DecisionRemoveDocument:
		if err := f.RemoveFile(d.Path); err != nil {
			slog.Warn("watcher remove failed", slog.String("path", d.Path), slog.Any("error", err))
			return
		}
		m.cache.Remove(d.Path)
		// FileDeleted is broadcast inside Facade.RemoveFile.

	case DecisionReloadConfig:
		if _, err := f.SyncWithConfig(ctx, d.Dirs); err != nil {
			slog.Warn("watcher config reload failed", slog.Any("error", err))
			return
		}
		m.cache.Refresh(f.IndexedPaths())

	case DecisionNone:
		// No handler recognized the event; nothing to do.
	}
}
