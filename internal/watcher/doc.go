// Package watcher turns raw filesystem change notifications into
// coalesced, gitignore-filtered FileEvent batches for the indexing
// pipeline to consume.
//
// FSWatcher is the entry point: it prefers fsnotify and transparently
// falls back to a periodic ScanWatcher when fsnotify can't register on
// the host. Both strategies route through the same Debouncer, so a
// burst of IDE saves or a git checkout collapses into one batch rather
// than one event per write.
//
//	w, err := watcher.NewHybridWatcher(watcher.DefaultOptions())
//	if err != nil {
//	    return err
//	}
//	defer w.Stop()
//
//	go func() {
//	    if err := w.Start(ctx, "/path/to/project"); err != nil {
//	        log.Println(err)
//	    }
//	}()
//
//	for batch := range w.Events() {
//	    for _, event := range batch {
//	        // dispatch on event.Operation
//	    }
//	}
//
// Manager (in dispatch.go) is the higher-level consumer most callers
// actually want: it owns a FacadeSource, classifies each event against
// a PathCache, and drives the Facade's ReindexCode/RemoveCode/etc.
// directly, so most programs never touch FSWatcher themselves.
package watcher
