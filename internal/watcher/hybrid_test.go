package watcher

import (
	"context"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"
)

// startWatcher launches w.Start in the background and gives it a grace
// period to finish its initial recursive scan before the caller begins
// mutating the filesystem under it.
func startWatcher(t *testing.T, w *FSWatcher, root string) {
	t.Helper()
	ctx, cancel := context.WithCancel(context.Background())
	t.Cleanup(cancel)
	go func() { _ = w.Start(ctx, root) }()
	time.Sleep(100 * time.Millisecond)
}

// waitForMatch drains batches from w until pred matches one event or
// timeout elapses, returning whether a match was found.
func waitForMatch(w *FSWatcher, timeout time.Duration, pred func(FileEvent) bool) bool {
	deadline := time.After(timeout)
	for {
		select {
		case events, ok := <-w.Events():
			if !ok {
				return false
			}
			for _, e := range events {
				if pred(e) {
					return true
				}
			}
		case <-deadline:
			return false
		}
	}
}

func newTestHybridWatcher(t *testing.T, debounce time.Duration) *FSWatcher {
	t.Helper()
	opts := Options{DebounceWindow: debounce, EventBufferSize: 100}.WithDefaults()
	w, err := NewHybridWatcher(opts)
	if err != nil {
		t.Fatalf("NewHybridWatcher: %v", err)
	}
	t.Cleanup(func() { _ = w.Stop() })
	return w
}

func TestNewHybridWatcher_ConstructsSuccessfully(t *testing.T) {
	w, err := NewHybridWatcher(DefaultOptions())
	if err != nil {
		t.Fatalf("NewHybridWatcher: %v", err)
	}
	if w == nil {
		t.Fatal("expected non-nil watcher")
	}
	_ = w.Stop()
}

func TestFSWatcher_DetectsFileLifecycle(t *testing.T) {
	t.Run("create", func(t *testing.T) {
		tempDir := t.TempDir()
		w := newTestHybridWatcher(t, 50*time.Millisecond)
		startWatcher(t, w, tempDir)

		path := filepath.Join(tempDir, "newfile.go")
		if err := os.WriteFile(path, []byte("package main"), 0o644); err != nil {
			t.Fatal(err)
		}

		found := waitForMatch(w, time.Second, func(e FileEvent) bool {
			return e.Operation == OpCreate && filepath.Base(e.Path) == "newfile.go"
		})
		if !found {
			t.Fatal("expected CREATE event for newfile.go")
		}
	})

	t.Run("modify", func(t *testing.T) {
		tempDir := t.TempDir()
		path := filepath.Join(tempDir, "existing.go")
		if err := os.WriteFile(path, []byte("package main"), 0o644); err != nil {
			t.Fatal(err)
		}

		w := newTestHybridWatcher(t, 50*time.Millisecond)
		startWatcher(t, w, tempDir)

		if err := os.WriteFile(path, []byte("package main\nfunc main() {}"), 0o644); err != nil {
			t.Fatal(err)
		}

		// fsnotify may surface a rewrite as either MODIFY or CREATE.
		found := waitForMatch(w, time.Second, func(e FileEvent) bool {
			return (e.Operation == OpModify || e.Operation == OpCreate) && filepath.Base(e.Path) == "existing.go"
		})
		if !found {
			t.Fatal("expected modify event for existing.go")
		}
	})

	t.Run("delete", func(t *testing.T) {
		tempDir := t.TempDir()
		path := filepath.Join(tempDir, "todelete.go")
		if err := os.WriteFile(path, []byte("package main"), 0o644); err != nil {
			t.Fatal(err)
		}

		w := newTestHybridWatcher(t, 50*time.Millisecond)
		startWatcher(t, w, tempDir)

		if err := os.Remove(path); err != nil {
			t.Fatal(err)
		}

		found := waitForMatch(w, time.Second, func(e FileEvent) bool {
			return e.Operation == OpDelete && filepath.Base(e.Path) == "todelete.go"
		})
		if !found {
			t.Fatal("expected DELETE event for todelete.go")
		}
	})
}

func TestFSWatcher_FiltersIgnoredPaths(t *testing.T) {
	t.Run("gitignore pattern", func(t *testing.T) {
		tempDir := t.TempDir()
		if err := os.WriteFile(filepath.Join(tempDir, ".gitignore"), []byte("*.tmp\n"), 0o644); err != nil {
			t.Fatal(err)
		}

		w := newTestHybridWatcher(t, 50*time.Millisecond)
		startWatcher(t, w, tempDir)

		if err := os.WriteFile(filepath.Join(tempDir, "ignored.tmp"), []byte("temp"), 0o644); err != nil {
			t.Fatal(err)
		}
		if err := os.WriteFile(filepath.Join(tempDir, "included.go"), []byte("package main"), 0o644); err != nil {
			t.Fatal(err)
		}

		sawGo, sawTmp := false, false
		deadline := time.After(time.Second)
	loop:
		for {
			select {
			case events := <-w.Events():
				for _, e := range events {
					switch filepath.Base(e.Path) {
					case "included.go":
						sawGo = true
					case "ignored.tmp":
						sawTmp = true
					}
				}
			case <-deadline:
				break loop
			}
		}

		if !sawGo {
			t.Error("expected event for included.go")
		}
		if sawTmp {
			t.Error("should not have received an event for ignored.tmp")
		}
	})

	t.Run("reserved index directory", func(t *testing.T) {
		tempDir := t.TempDir()
		reservedDir := filepath.Join(tempDir, reservedDirName)
		if err := os.MkdirAll(reservedDir, 0o755); err != nil {
			t.Fatal(err)
		}

		w := newTestHybridWatcher(t, 50*time.Millisecond)
		startWatcher(t, w, tempDir)

		if err := os.WriteFile(filepath.Join(reservedDir, "index.db"), []byte("data"), 0o644); err != nil {
			t.Fatal(err)
		}
		if err := os.WriteFile(filepath.Join(tempDir, "main.go"), []byte("package main"), 0o644); err != nil {
			t.Fatal(err)
		}

		sawGo, sawReserved := false, false
		deadline := time.After(time.Second)
	loop:
		for {
			select {
			case events := <-w.Events():
				for _, e := range events {
					if filepath.Base(e.Path) == "main.go" {
						sawGo = true
					}
					if strings.Contains(e.Path, reservedDirName) {
						sawReserved = true
					}
				}
			case <-deadline:
				break loop
			}
		}

		if !sawGo {
			t.Error("expected event for main.go")
		}
		if sawReserved {
			t.Errorf("should not have received an event under %s", reservedDirName)
		}
	})
}

func TestFSWatcher_WatchesNewSubdirectories(t *testing.T) {
	tempDir := t.TempDir()
	w := newTestHybridWatcher(t, 50*time.Millisecond)
	startWatcher(t, w, tempDir)

	subDir := filepath.Join(tempDir, "subdir")
	if err := os.MkdirAll(subDir, 0o755); err != nil {
		t.Fatal(err)
	}
	if err := os.WriteFile(filepath.Join(subDir, "sub.go"), []byte("package subdir"), 0o644); err != nil {
		t.Fatal(err)
	}

	found := waitForMatch(w, 2*time.Second, func(e FileEvent) bool { return e.Operation == OpCreate })
	if !found {
		t.Fatal("expected a CREATE event for the new subdirectory or its file")
	}
}

func TestFSWatcher_Stop_ClosesEventsChannel(t *testing.T) {
	w, err := NewHybridWatcher(DefaultOptions())
	if err != nil {
		t.Fatalf("NewHybridWatcher: %v", err)
	}
	if err := w.Stop(); err != nil {
		t.Fatalf("Stop: %v", err)
	}

	select {
	case _, ok := <-w.Events():
		if ok {
			t.Fatal("events channel should be closed")
		}
	case <-time.After(100 * time.Millisecond):
		t.Fatal("timeout waiting for channel close")
	}
}

func TestFSWatcher_DroppedBatches(t *testing.T) {
	t.Run("starts at zero", func(t *testing.T) {
		w, err := NewHybridWatcher(DefaultOptions())
		if err != nil {
			t.Fatalf("NewHybridWatcher: %v", err)
		}
		defer func() { _ = w.Stop() }()

		if got := w.DroppedBatches(); got != 0 {
			t.Fatalf("expected 0 dropped batches, got %d", got)
		}
	})

	t.Run("increments once the buffer is full", func(t *testing.T) {
		opts := Options{EventBufferSize: 1}.WithDefaults()
		w, err := NewHybridWatcher(opts)
		if err != nil {
			t.Fatalf("NewHybridWatcher: %v", err)
		}
		defer func() { _ = w.Stop() }()

		w.emitEvents([]FileEvent{{Path: "/test1.go", Operation: OpCreate}})
		w.emitEvents([]FileEvent{{Path: "/test2.go", Operation: OpCreate}})
		w.emitEvents([]FileEvent{{Path: "/test3.go", Operation: OpCreate}})

		if got := w.DroppedBatches(); got != 2 {
			t.Fatalf("expected 2 dropped batches, got %d", got)
		}
	})
}
