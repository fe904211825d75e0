package watcher

import (
	"context"
	"fmt"
	"io/fs"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"sync/atomic"
	"time"

	"github.com/fsnotify/fsnotify"

	"github.com/bartolli/codanna/internal/gitignore"
)

const (
	configFileName    = "settings.toml"
	gitignoreFileName = ".gitignore"
	reservedDirName   = ".codanna"
)

// FSWatcher watches a directory tree for changes, preferring fsnotify
// and falling back to a periodic ScanWatcher when fsnotify cannot be
// initialized on the host (e.g. some network mounts or container
// volume drivers). Both strategies feed the same Debouncer, so callers
// see one coalesced batch stream regardless of which is active.
type FSWatcher struct {
	fsWatcher *fsnotify.Watcher
	scanner   *ScanWatcher
	fsnotify  bool

	debouncer *Debouncer
	ignore    *gitignore.Ruleset

	events         chan []FileEvent
	errors         chan error
	stopCh         chan struct{}
	rootPath       string
	opts           Options
	mu             sync.RWMutex
	stopped        bool
	droppedBatches atomic.Uint64
}

var _ interface {
	Start(ctx context.Context, path string) error
	Stop() error
	Events() <-chan []FileEvent
	Errors() <-chan error
} = (*FSWatcher)(nil)

// NewHybridWatcher creates a watcher that prefers fsnotify and falls
// back to periodic scanning when fsnotify can't be set up.
func NewHybridWatcher(opts Options) (*FSWatcher, error) {
	opts = opts.WithDefaults()

	h := &FSWatcher{
		debouncer: NewDebouncer(opts.DebounceWindow),
		ignore:    freshMatcher(opts.IgnorePatterns),
		events:    make(chan []FileEvent, opts.EventBufferSize),
		errors:    make(chan error, 10),
		stopCh:    make(chan struct{}),
		opts:      opts,
	}

	if fsw, err := fsnotify.NewWatcher(); err == nil {
		h.fsWatcher = fsw
		h.fsnotify = true
	} else {
		h.scanner = NewScanWatcher(opts.PollInterval)
	}

	return h, nil
}

// freshMatcher builds a gitignore.Ruleset seeded with the watcher's
// configured extra patterns plus its own index directory, which is
// always ignored regardless of what .gitignore says.
func freshMatcher(extra []string) *gitignore.Ruleset {
	m := gitignore.NewRuleset()
	for _, pattern := range extra {
		m.AddPattern(pattern)
	}
	m.AddPattern(reservedDirName + "/")
	m.AddPattern(reservedDirName + "/**")
	return m
}

// Start begins watching the given directory.
func (h *FSWatcher) Start(ctx context.Context, path string) error {
	absPath, err := filepath.Abs(path)
	if err != nil {
		return fmt.Errorf("resolve absolute path: %w", err)
	}
	h.rootPath = absPath

	h.loadGitignore()
	go h.forwardDebouncedEvents(ctx)

	if h.fsnotify {
		return h.runFsnotify(ctx)
	}
	return h.runScanner(ctx)
}

// runFsnotify drives the fsnotify-backed strategy.
func (h *FSWatcher) runFsnotify(ctx context.Context) error {
	if err := h.addRecursive(h.rootPath); err != nil {
		return fmt.Errorf("add directories to watcher: %w", err)
	}

	for {
		select {
		case <-ctx.Done():
			_ = h.Stop()
			return ctx.Err()
		case <-h.stopCh:
			return nil
		case event, ok := <-h.fsWatcher.Events:
			if !ok {
				return nil
			}
			h.handleFsnotifyEvent(event)
		case err, ok := <-h.fsWatcher.Errors:
			if !ok {
				return nil
			}
			h.emitError(err)
		}
	}
}

// runScanner drives the periodic-scan fallback strategy, translating
// its raw events through the same routing the fsnotify strategy uses.
func (h *FSWatcher) runScanner(ctx context.Context) error {
	go func() {
		for {
			select {
			case <-ctx.Done():
				return
			case <-h.stopCh:
				return
			case event, ok := <-h.scanner.Events():
				if !ok {
					return
				}
				if h.shouldIgnore(event.Path, event.IsDir) {
					continue
				}
				h.route(event)
			case err, ok := <-h.scanner.Errors():
				if !ok {
					return
				}
				h.emitError(err)
			}
		}
	}()

	return h.scanner.Start(ctx, h.rootPath)
}

// handleFsnotifyEvent translates a raw fsnotify.Event into a FileEvent
// and routes it, skipping paths the matcher ignores and chmod-only
// notifications that carry no content change.
func (h *FSWatcher) handleFsnotifyEvent(event fsnotify.Event) {
	relPath, err := filepath.Rel(h.rootPath, event.Name)
	if err != nil {
		relPath = event.Name
	}

	isDir := false
	if info, err := os.Stat(event.Name); err == nil {
		isDir = info.IsDir()
	}

	if h.shouldIgnore(relPath, isDir) {
		return
	}

	var op Operation
	switch {
	case event.Op&fsnotify.Create != 0:
		op = OpCreate
		if isDir {
			_ = h.fsWatcher.Add(event.Name)
		}
	case event.Op&fsnotify.Write != 0:
		op = OpModify
	case event.Op&fsnotify.Remove != 0:
		op = OpDelete
	case event.Op&fsnotify.Rename != 0:
		op = OpRename
	default:
		return
	}

	h.route(FileEvent{Path: relPath, Operation: op, IsDir: isDir, Timestamp: time.Now()})
}

// route classifies a filtered FileEvent and forwards it to the
// debouncer: config/.gitignore changes become their own operation kind
// and reload the matcher, deletions bypass coalescing entirely, and
// everything else is debounced normally. Both watch strategies funnel
// through here so the coalescing rules never drift between them.
func (h *FSWatcher) route(event FileEvent) {
	switch filepath.Base(event.Path) {
	case gitignoreFileName:
		h.loadGitignore()
		h.debouncer.Add(FileEvent{Path: event.Path, Operation: OpGitignoreChange, Timestamp: time.Now()})
		return
	case configFileName:
		h.debouncer.Add(FileEvent{Path: event.Path, Operation: OpConfigChange, Timestamp: time.Now()})
		return
	}

	if event.Operation == OpDelete {
		h.debouncer.AddImmediate(event)
		return
	}
	h.debouncer.Add(event)
}

// forwardDebouncedEvents forwards debounced batches to the output channel.
func (h *FSWatcher) forwardDebouncedEvents(ctx context.Context) {
	for {
		select {
		case <-ctx.Done():
			return
		case <-h.stopCh:
			return
		case events, ok := <-h.debouncer.Output():
			if !ok {
				return
			}
			if len(events) == 0 {
				continue
			}
			h.emitEvents(events)
		}
	}
}

// addRecursive registers root and every non-ignored subdirectory with
// the fsnotify watcher. An unreadable root is an error; unreadable
// subdirectories are skipped.
func (h *FSWatcher) addRecursive(root string) error {
	return filepath.WalkDir(root, func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			if path == root {
				return err
			}
			return nil
		}
		if !d.IsDir() {
			return nil
		}

		relPath, _ := filepath.Rel(h.rootPath, path)
		if relPath == "." {
			return h.fsWatcher.Add(path)
		}
		if h.shouldIgnoreDir(relPath) {
			return filepath.SkipDir
		}
		return h.fsWatcher.Add(path)
	})
}

// shouldIgnoreDir reports whether a directory is reserved or matched
// by the gitignore matcher.
func (h *FSWatcher) shouldIgnoreDir(relPath string) bool {
	if isReservedPath(relPath) {
		return true
	}
	h.mu.RLock()
	defer h.mu.RUnlock()
	return h.ignore.Ignored(relPath, true)
}

// shouldIgnore reports whether a path (file or directory) should be
// dropped before it ever reaches the debouncer.
func (h *FSWatcher) shouldIgnore(relPath string, isDir bool) bool {
	if relPath == "." || relPath == "" {
		return true
	}
	if isReservedPath(relPath) {
		return true
	}
	h.mu.RLock()
	defer h.mu.RUnlock()
	return h.ignore.Ignored(relPath, isDir)
}

// isReservedPath reports whether relPath falls under VCS or index
// directories that are always ignored, independent of .gitignore.
func isReservedPath(relPath string) bool {
	for _, prefix := range [...]string{".git", reservedDirName} {
		if relPath == prefix || strings.HasPrefix(relPath, prefix+"/") {
			return true
		}
	}
	return false
}

// loadGitignore rebuilds the matcher from the configured extra
// patterns plus the root .gitignore and every nested .gitignore found
// under the tree.
func (h *FSWatcher) loadGitignore() {
	h.mu.Lock()
	defer h.mu.Unlock()

	h.ignore = freshMatcher(h.opts.IgnorePatterns)

	rootFile := filepath.Join(h.rootPath, gitignoreFileName)
	if err := h.ignore.AddFromFile(rootFile, ""); err != nil && !os.IsNotExist(err) {
		slog.Warn("failed to load root .gitignore", slog.String("path", rootFile), slog.String("error", err.Error()))
	}

	_ = filepath.WalkDir(h.rootPath, func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			slog.Warn("skipping directory in gitignore scan", slog.String("path", path), slog.String("error", err.Error()))
			return nil
		}
		if d.IsDir() || d.Name() != gitignoreFileName || path == rootFile {
			return nil
		}
		base, _ := filepath.Rel(h.rootPath, filepath.Dir(path))
		if err := h.ignore.AddFromFile(path, base); err != nil {
			slog.Warn("failed to read nested .gitignore", slog.String("path", path), slog.String("error", err.Error()))
		}
		return nil
	})
}

// emitEvents delivers a batch, dropping it with a warning if the
// output buffer is full.
func (h *FSWatcher) emitEvents(events []FileEvent) {
	h.mu.RLock()
	stopped := h.stopped
	h.mu.RUnlock()
	if stopped {
		return
	}

	select {
	case h.events <- events:
	default:
		count := h.droppedBatches.Add(1)
		slog.Warn("event buffer full, dropping batch",
			slog.Int("batch_size", len(events)),
			slog.Uint64("total_dropped_batches", count),
		)
	}
}

// DroppedBatches returns the number of event batches dropped due to
// buffer overflow.
func (h *FSWatcher) DroppedBatches() uint64 {
	return h.droppedBatches.Load()
}

// emitError delivers a non-fatal error, dropping it silently if the
// channel is full.
func (h *FSWatcher) emitError(err error) {
	h.mu.RLock()
	stopped := h.stopped
	h.mu.RUnlock()
	if stopped {
		return
	}

	select {
	case h.errors <- err:
	default:
	}
}

// Stop stops the watcher and releases resources. Safe to call more
// than once.
func (h *FSWatcher) Stop() error {
	h.mu.Lock()
	defer h.mu.Unlock()

	if h.stopped {
		return nil
	}
	h.stopped = true
	close(h.stopCh)

	h.debouncer.Stop()

	if h.fsnotify && h.fsWatcher != nil {
		_ = h.fsWatcher.Close()
	}
	if h.scanner != nil {
		_ = h.scanner.Stop()
	}

	close(h.events)
	close(h.errors)
	return nil
}

// Events returns the channel of batched file events.
func (h *FSWatcher) Events() <-chan []FileEvent { return h.events }

// Errors returns the channel of non-fatal errors.
func (h *FSWatcher) Errors() <-chan error { return h.errors }

// IsHealthy reports whether the watcher is still running.
func (h *FSWatcher) IsHealthy() bool {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return !h.stopped
}

// WatcherType reports which strategy is active: "fsnotify" or "polling".
func (h *FSWatcher) WatcherType() string {
	if h.fsnotify {
		return "fsnotify"
	}
	return "polling"
}

// RootPath returns the directory being watched.
func (h *FSWatcher) RootPath() string {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return h.rootPath
}
