package watcher

import (
	"context"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDiffSnapshots(t *testing.T) {
	now := time.Now()
	older := snapshot{
		"a.go":      {modTime: now, size: 10},
		"removed.go": {modTime: now, size: 5},
	}
	newer := snapshot{
		"a.go":  {modTime: now, size: 10},                  // unchanged
		"b.go":  {modTime: now, size: 3},                   // new
		"a2.go": {modTime: now.Add(time.Second), size: 10}, // new
	}

	events := diffSnapshots(older, newer)

	byPath := make(map[string]Operation, len(events))
	for _, e := range events {
		byPath[e.Path] = e.Operation
	}

	assert.Equal(t, OpCreate, byPath["b.go"])
	assert.Equal(t, OpCreate, byPath["a2.go"])
	assert.Equal(t, OpDelete, byPath["removed.go"])
	_, stillTracked := byPath["a.go"]
	assert.False(t, stillTracked, "unchanged path should not produce an event")
}

func TestDiffSnapshots_ModifiedWhenSizeOrModTimeChanges(t *testing.T) {
	now := time.Now()
	older := snapshot{"f.go": {modTime: now, size: 10}}

	t.Run("size changed", func(t *testing.T) {
		newer := snapshot{"f.go": {modTime: now, size: 11}}
		events := diffSnapshots(older, newer)
		require.Len(t, events, 1)
		assert.Equal(t, OpModify, events[0].Operation)
	})

	t.Run("modTime changed", func(t *testing.T) {
		newer := snapshot{"f.go": {modTime: now.Add(time.Second), size: 10}}
		events := diffSnapshots(older, newer)
		require.Len(t, events, 1)
		assert.Equal(t, OpModify, events[0].Operation)
	})
}

func TestScanWatcher_DetectsFileCreation(t *testing.T) {
	tempDir := t.TempDir()
	w := NewScanWatcher(50 * time.Millisecond)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	go func() { _ = w.Start(ctx, tempDir) }()

	time.Sleep(100 * time.Millisecond)

	testFile := filepath.Join(tempDir, "new.go")
	require.NoError(t, os.WriteFile(testFile, []byte("package main"), 0o644))

	select {
	case event := <-w.Events():
		assert.Equal(t, OpCreate, event.Operation)
		assert.Contains(t, event.Path, "new.go")
	case err := <-w.Errors():
		t.Fatalf("unexpected error: %v", err)
	case <-time.After(500 * time.Millisecond):
		t.Fatal("timeout waiting for create event")
	}

	require.NoError(t, w.Stop())
}

func TestScanWatcher_DetectsFileModification(t *testing.T) {
	tempDir := t.TempDir()
	testFile := filepath.Join(tempDir, "existing.go")
	require.NoError(t, os.WriteFile(testFile, []byte("package main"), 0o644))

	w := NewScanWatcher(50 * time.Millisecond)
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	go func() { _ = w.Start(ctx, tempDir) }()

	time.Sleep(100 * time.Millisecond)
	time.Sleep(50 * time.Millisecond) // ensure a different mtime
	require.NoError(t, os.WriteFile(testFile, []byte("package main\nfunc main() {}"), 0o644))

	select {
	case event := <-w.Events():
		assert.Equal(t, OpModify, event.Operation)
		assert.Contains(t, event.Path, "existing.go")
	case err := <-w.Errors():
		t.Fatalf("unexpected error: %v", err)
	case <-time.After(500 * time.Millisecond):
		t.Fatal("timeout waiting for modify event")
	}

	require.NoError(t, w.Stop())
}

func TestScanWatcher_DetectsFileDeletion(t *testing.T) {
	tempDir := t.TempDir()
	testFile := filepath.Join(tempDir, "todelete.go")
	require.NoError(t, os.WriteFile(testFile, []byte("package main"), 0o644))

	w := NewScanWatcher(50 * time.Millisecond)
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	go func() { _ = w.Start(ctx, tempDir) }()

	time.Sleep(100 * time.Millisecond)
	require.NoError(t, os.Remove(testFile))

	select {
	case event := <-w.Events():
		assert.Equal(t, OpDelete, event.Operation)
		assert.Contains(t, event.Path, "todelete.go")
	case err := <-w.Errors():
		t.Fatalf("unexpected error: %v", err)
	case <-time.After(500 * time.Millisecond):
		t.Fatal("timeout waiting for delete event")
	}

	require.NoError(t, w.Stop())
}

func TestScanWatcher_DetectsNewDirectoryContents(t *testing.T) {
	tempDir := t.TempDir()
	w := NewScanWatcher(50 * time.Millisecond)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	go func() { _ = w.Start(ctx, tempDir) }()

	time.Sleep(100 * time.Millisecond)

	subDir := filepath.Join(tempDir, "subdir")
	require.NoError(t, os.MkdirAll(subDir, 0o755))
	require.NoError(t, os.WriteFile(filepath.Join(subDir, "file.go"), []byte("package subdir"), 0o644))

	events := collectEvents(w.Events(), 2, 500*time.Millisecond)
	require.GreaterOrEqual(t, len(events), 1, "expected at least one event")

	var sawFile bool
	for _, e := range events {
		if e.Operation == OpCreate && !e.IsDir {
			sawFile = true
		}
	}
	assert.True(t, sawFile, "expected a file create event")

	require.NoError(t, w.Stop())
}

func TestScanWatcher_Stop_ClosesChannelsAndIsIdempotent(t *testing.T) {
	tempDir := t.TempDir()
	w := NewScanWatcher(50 * time.Millisecond)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	go func() { _ = w.Start(ctx, tempDir) }()

	time.Sleep(100 * time.Millisecond)
	require.NoError(t, w.Stop())
	assert.NoError(t, w.Stop())

	select {
	case _, ok := <-w.Events():
		assert.False(t, ok, "events channel should be closed")
	case <-time.After(100 * time.Millisecond):
		t.Fatal("timeout waiting for channel close")
	}
}

func TestScanWatcher_ContextCancellationStopsStart(t *testing.T) {
	tempDir := t.TempDir()
	w := NewScanWatcher(50 * time.Millisecond)
	ctx, cancel := context.WithCancel(context.Background())

	started := make(chan struct{})
	done := make(chan struct{})
	go func() {
		close(started)
		_ = w.Start(ctx, tempDir)
		close(done)
	}()

	<-started
	time.Sleep(100 * time.Millisecond)
	cancel()

	select {
	case <-done:
	case <-time.After(500 * time.Millisecond):
		t.Fatal("timeout waiting for Start to return after context cancel")
	}
}

// collectEvents drains up to n events from ch or until timeout elapses.
func collectEvents(ch <-chan FileEvent, n int, timeout time.Duration) []FileEvent {
	var events []FileEvent
	timer := time.NewTimer(timeout)
	defer timer.Stop()

	for len(events) < n {
		select {
		case e, ok := <-ch:
			if !ok {
				return events
			}
			events = append(events, e)
		case <-timer.C:
			return events
		}
	}
	return events
}
