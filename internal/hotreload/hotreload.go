// Package hotreload implements the HotReloader (spec.md §4.13): an
// independent poller that detects an index changed out from under the
// running process — another process reindexed the same project — and
// atomically swaps in a freshly opened Facade.
package hotreload

import (
	"context"
	"log/slog"
	"sync"
	"time"

	"github.com/bartolli/codanna/internal/facade"
	"github.com/bartolli/codanna/internal/indexmeta"
	"github.com/bartolli/codanna/internal/notify"
)

// Holder is the shared, swappable reference to the active Facade every
// long-lived consumer (the Watcher's dispatch Manager, an RPC surface)
// reads through via Get, rather than caching a Facade pointer of its
// own. Reloader is the only writer (spec.md §4.13's "acquire exclusive
// lock on the shared facade and replace in place").
type Holder struct {
	mu sync.RWMutex
	f  *facade.Facade
}

// NewHolder wraps an already-constructed Facade.
func NewHolder(f *facade.Facade) *Holder {
	return &Holder{f: f}
}

// Get returns the currently active Facade.
func (h *Holder) Get() *facade.Facade {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return h.f
}

func (h *Holder) swap(f *facade.Facade) {
	h.mu.Lock()
	h.f = f
	h.mu.Unlock()
}

// Reloader polls the IndexMetadata sidecar's last_modified field
// (default 5s, per spec.md §4.13) and, on change, opens a fresh Facade
// over whatever the persistence layer now holds and swaps it into
// Holder. It compares last_modified, which the Facade stamps in whole
// Unix seconds, rather than the sidecar file's own mtime; a write in
// the same second as the last observed one is not detected until a
// later write advances last_modified.
type Reloader struct {
	holder     *Holder
	metaPath   string
	interval   time.Duration
	openFacade func() (*facade.Facade, error)
	lastMod    uint64
}

// New builds a Reloader. metaPath is the index.meta file Facade writes
// after every successful write (internal/indexmeta). openFacade
// rebuilds a Facade from the persistence layer — reopening the
// DocumentIndex and EmbeddingStore at the same on-disk paths the
// owning process started with — and must construct it around the same
// *notify.Broadcaster every call, so subscribers that predate a swap
// (the Watcher's dispatch Manager) keep receiving events afterward.
func New(holder *Holder, metaPath string, interval time.Duration, openFacade func() (*facade.Facade, error)) *Reloader {
	return &Reloader{
		holder:     holder,
		metaPath:   metaPath,
		interval:   interval,
		openFacade: openFacade,
	}
}

// Run polls until ctx is cancelled. A failed reload attempt is logged
// and retried on the next tick (spec.md §5: HotReloader has no
// per-attempt timeout); the previously active Facade stays in place.
func (r *Reloader) Run(ctx context.Context) {
	ticker := time.NewTicker(r.interval)
	defer ticker.Stop()

	if m, ok, err := indexmeta.Load(r.metaPath); err == nil && ok {
		r.lastMod = m.LastModified
	}

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			r.tick()
		}
	}
}

func (r *Reloader) tick() {
	m, ok, err := indexmeta.Load(r.metaPath)
	if err != nil {
		slog.Warn("hot reload: failed to read index.meta", slog.String("path", r.metaPath), slog.Any("error", err))
		return
	}
	if !ok || m.LastModified <= r.lastMod {
		return
	}

	fresh, err := r.openFacade()
	if err != nil {
		slog.Warn("hot reload: failed to open fresh index, keeping current facade",
			slog.String("path", r.metaPath), slog.Any("error", err))
		return
	}

	// load_semantic_search is a construction-time step of openFacade
	// (facade.New calls embedlifecycle.LoadOrEmpty and swallows a
	// load failure, degrading to text-only search) rather than a
	// separate call here, so step 3 of spec.md §4.13 is already
	// satisfied by the time fresh is returned.
	r.holder.swap(fresh)
	r.lastMod = m.LastModified

	fresh.Notifications().Publish(notify.Event{Kind: notify.IndexReloaded})
}
