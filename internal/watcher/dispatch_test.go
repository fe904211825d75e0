package watcher

import (
	"context"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/goleak"

	"github.com/bartolli/codanna/internal/config"
	"github.com/bartolli/codanna/internal/docindex"
	"github.com/bartolli/codanna/internal/facade"
	"github.com/bartolli/codanna/internal/langbehavior"
	"github.com/bartolli/codanna/internal/model"
	"github.com/bartolli/codanna/internal/parserapi"
)

// TestMain checks that Manager.Run's dispatch loop and the watcher
// goroutines it drives never leak past test shutdown.
func TestMain(m *testing.M) {
	goleak.VerifyTestMain(m)
}

// stubParser mirrors internal/facade's own test stub: one function
// symbol per file, named after the file's base name.
type stubParser struct{ language string }

func (s *stubParser) Language() string { return s.language }

func (s *stubParser) Parse(_ context.Context, path string, _ []byte) (*model.ParsedFile, error) {
	name := filepath.Base(path)
	return &model.ParsedFile{
		Path:     path,
		Language: s.language,
		Symbols: []model.ParsedSymbol{
			{Name: name, Kind: model.KindFunction, Signature: "func " + name + "()"},
		},
	}, nil
}

func newTestFacade(t *testing.T) *facade.Facade {
	t.Helper()
	docs, err := docindex.Open("")
	require.NoError(t, err)
	t.Cleanup(func() { _ = docs.Close() })

	f, err := facade.New(facade.Deps{
		Settings:  config.New(),
		Docs:      docs,
		Languages: langbehavior.NewRegistry(),
		Parsers:   parserapi.NewParserRegistry(&stubParser{language: "go"}),
	})
	require.NoError(t, err)
	return f
}

// fakeBatchWatcher is a scripted BatchWatcher: Start pushes every
// scripted batch onto Events and returns at once, and Stop closes
// Events, standing in for a real FSWatcher without starting fsnotify.
type fakeBatchWatcher struct {
	batches [][]FileEvent
	events  chan []FileEvent
	errs    chan error
	stopped chan struct{}
}

func newFakeBatchWatcher(batches ...[]FileEvent) *fakeBatchWatcher {
	return &fakeBatchWatcher{
		batches: batches,
		events:  make(chan []FileEvent, len(batches)+1),
		errs:    make(chan error, 1),
		stopped: make(chan struct{}),
	}
}

func (w *fakeBatchWatcher) Start(_ context.Context, _ string) error {
	for _, b := range w.batches {
		w.events <- b
	}
	return nil
}

func (w *fakeBatchWatcher) Stop() error {
	select {
	case <-w.stopped:
	default:
		close(w.stopped)
		close(w.events)
	}
	return nil
}

func (w *fakeBatchWatcher) Events() <-chan []FileEvent { return w.events }
func (w *fakeBatchWatcher) Errors() <-chan error       { return w.errs }

func TestPathCache_AddHasRemove(t *testing.T) {
	c := NewPathCache([]string{"a.go"})
	assert.True(t, c.Has("a.go"))
	assert.False(t, c.Has("b.go"))

	c.Add("b.go")
	assert.True(t, c.Has("b.go"))

	c.Remove("a.go")
	assert.False(t, c.Has("a.go"))
}

func TestPathCache_RefreshReplacesContents(t *testing.T) {
	c := NewPathCache([]string{"a.go", "b.go"})
	c.Refresh([]string{"c.go"})

	assert.False(t, c.Has("a.go"))
	assert.False(t, c.Has("b.go"))
	assert.True(t, c.Has("c.go"))
}

func TestConfigChangeHandler_RecognizesConfigAndGitignoreEvents(t *testing.T) {
	h := configChangeHandler("/proj")
	cache := NewPathCache(nil)

	for _, op := range []Operation{OpConfigChange, OpGitignoreChange} {
		d := h(FileEvent{Operation: op}, cache)
		assert.Equal(t, DecisionReloadConfig, d.Kind)
		assert.Equal(t, []string{"/proj"}, d.Dirs)
	}

	d := h(FileEvent{Operation: OpCreate}, cache)
	assert.Equal(t, DecisionNone, d.Kind)
}

func TestDeletionHandler_OnlyFiresForCachedNonDirPaths(t *testing.T) {
	h := deletionHandler(map[string]struct{}{})
	cache := NewPathCache([]string{"a.go"})

	assert.Equal(t, DecisionNone, h(FileEvent{Operation: OpCreate, Path: "a.go"}, cache).Kind, "wrong operation")
	assert.Equal(t, DecisionNone, h(FileEvent{Operation: OpDelete, Path: "a.go", IsDir: true}, cache).Kind, "directories are ignored")
	assert.Equal(t, DecisionNone, h(FileEvent{Operation: OpDelete, Path: "never-indexed.go"}, cache).Kind, "not in cache")

	d := h(FileEvent{Operation: OpDelete, Path: "a.go"}, cache)
	assert.Equal(t, DecisionRemoveCode, d.Kind)
	assert.Equal(t, "a.go", d.Path)
}

func TestDeletionHandler_ClassifiesDocumentExtensions(t *testing.T) {
	h := deletionHandler(map[string]struct{}{".md": {}})
	cache := NewPathCache([]string{"readme.md"})

	d := h(FileEvent{Operation: OpDelete, Path: "readme.md"}, cache)
	assert.Equal(t, DecisionRemoveDocument, d.Kind)
}

func TestCodeHandler_RecognizesRegisteredExtensionsOnContentChange(t *testing.T) {
	h := codeHandler(map[string]string{".go": "go"})
	cache := NewPathCache(nil)

	assert.Equal(t, DecisionNone, h(FileEvent{Operation: OpDelete, Path: "a.go"}, cache).Kind, "wrong operation")
	assert.Equal(t, DecisionNone, h(FileEvent{Operation: OpCreate, Path: "a.go", IsDir: true}, cache).Kind, "directories are ignored")
	assert.Equal(t, DecisionNone, h(FileEvent{Operation: OpCreate, Path: "a.txt"}, cache).Kind, "unregistered extension")

	for _, op := range []Operation{OpCreate, OpModify, OpRename} {
		d := h(FileEvent{Operation: op, Path: "a.go"}, cache)
		assert.Equal(t, DecisionReindexCode, d.Kind)
		assert.Equal(t, "a.go", d.Path)
	}
}

func TestDocumentHandler_RecognizesDocumentExtensionsOnContentChange(t *testing.T) {
	h := documentHandler(map[string]struct{}{".md": {}})
	cache := NewPathCache(nil)

	assert.Equal(t, DecisionNone, h(FileEvent{Operation: OpCreate, Path: "a.go"}, cache).Kind, "not a document extension")

	d := h(FileEvent{Operation: OpModify, Path: "readme.md"}, cache)
	assert.Equal(t, DecisionReindexDocument, d.Kind)
	assert.Equal(t, "readme.md", d.Path)
}

func TestDispatch_FirstNonNoneHandlerWins(t *testing.T) {
	cache := NewPathCache(nil)
	chain := []Handler{
		func(FileEvent, *PathCache) Decision { return noneDecision },
		func(FileEvent, *PathCache) Decision { return Decision{Kind: DecisionReindexCode, Path: "winner"} },
		func(FileEvent, *PathCache) Decision { return Decision{Kind: DecisionReindexCode, Path: "never reached"} },
	}

	d := dispatch(FileEvent{}, cache, chain)
	assert.Equal(t, "winner", d.Path)
}

func TestDispatch_AllNoneReturnsNoneDecision(t *testing.T) {
	cache := NewPathCache(nil)
	chain := []Handler{
		func(FileEvent, *PathCache) Decision { return noneDecision },
	}

	d := dispatch(FileEvent{}, cache, chain)
	assert.Equal(t, DecisionNone, d.Kind)
}

func TestExtOf(t *testing.T) {
	assert.Equal(t, ".go", extOf("a.go"))
	assert.Equal(t, ".go", extOf("src/pkg/a.go"))
	assert.Equal(t, "", extOf("Makefile"))
	assert.Equal(t, "", extOf("src/no-ext/dir.d/file"))
}

func TestManager_HandleReindexesAddsToCache(t *testing.T) {
	root := t.TempDir()
	path := writeWatcherTestFile(t, root, "a.go", "package a\n")
	f := newTestFacade(t)

	m := NewManager(newFakeBatchWatcher(), FixedFacadeSource(f), config.New(), root, ManagerOptions{})
	m.handle(context.Background(), FileEvent{Path: path, Operation: OpCreate})

	assert.True(t, m.cache.Has(path))
	assert.Contains(t, f.IndexedPaths(), path)
}

func TestManager_HandleRemovesFromCache(t *testing.T) {
	root := t.TempDir()
	path := writeWatcherTestFile(t, root, "a.go", "package a\n")
	f := newTestFacade(t)

	m := NewManager(newFakeBatchWatcher(), FixedFacadeSource(f), config.New(), root, ManagerOptions{})
	m.handle(context.Background(), FileEvent{Path: path, Operation: OpCreate})
	require.True(t, m.cache.Has(path))

	m.handle(context.Background(), FileEvent{Path: path, Operation: OpDelete})
	assert.False(t, m.cache.Has(path))
	assert.NotContains(t, f.IndexedPaths(), path)
}

func TestManager_HandleUnrecognizedEventIsNoOp(t *testing.T) {
	root := t.TempDir()
	f := newTestFacade(t)

	m := NewManager(newFakeBatchWatcher(), FixedFacadeSource(f), config.New(), root, ManagerOptions{})
	m.handle(context.Background(), FileEvent{Path: "unmapped.bin", Operation: OpCreate})

	assert.Empty(t, f.IndexedPaths())
}

func TestManager_Run_ProcessesBatchesThenStopsOnCancel(t *testing.T) {
	root := t.TempDir()
	path := writeWatcherTestFile(t, root, "a.go", "package a\n")
	f := newTestFacade(t)

	w := newFakeBatchWatcher([]FileEvent{{Path: path, Operation: OpCreate}})
	m := NewManager(w, FixedFacadeSource(f), config.New(), root, ManagerOptions{})

	ctx, cancel := context.WithTimeout(context.Background(), 200*time.Millisecond)
	defer cancel()

	err := m.Run(ctx)
	assert.ErrorIs(t, err, context.DeadlineExceeded)
	assert.Contains(t, f.IndexedPaths(), path)
}

func writeWatcherTestFile(t *testing.T, dir, name, content string) string {
	t.Helper()
	path := filepath.Join(dir, name)
	require.NoError(t, os.WriteFile(path, []byte(content), 0o644))
	return path
}
