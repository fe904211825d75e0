package facade

import (
	"context"
	"strings"
)

// SyncResult summarizes one sync_with_config call.
type SyncResult struct {
	DirsAdded    int
	DirsRemoved  int
	FilesIndexed int
	FilesRemoved int
	SymbolsFound int
}

// SyncWithConfig reconciles the facade's indexed directory set against
// configDirs: directories present in configDirs but not previously
// synced are indexed, directories previously synced but absent from
// configDirs have their files removed. A second call with the same
// configDirs is a no-op (spec.md §8 testable property 7), since the
// diff is computed against configuredDirs rather than by re-walking
// the filesystem.
func (f *Facade) SyncWithConfig(ctx context.Context, configDirs []string) (SyncResult, error) {
	ctx = ensureContext(ctx)

	f.mu.RLock()
	current := make(map[string]struct{}, len(f.configuredDirs))
	for d := range f.configuredDirs {
		current[d] = struct{}{}
	}
	f.mu.RUnlock()

	wanted := make(map[string]struct{}, len(configDirs))
	for _, d := range configDirs {
		wanted[d] = struct{}{}
	}

	var result SyncResult

	for d := range current {
		if _, ok := wanted[d]; ok {
			continue
		}
		removed, err := f.removeDir(d)
		if err != nil {
			return result, err
		}
		result.DirsRemoved++
		result.FilesRemoved += removed
	}

	for d := range wanted {
		if _, ok := current[d]; ok {
			continue
		}
		stats, err := f.IndexDirectory(ctx, d, DirectoryOptions{})
		if err != nil {
			return result, err
		}
		result.DirsAdded++
		result.FilesIndexed += stats.FilesRead
		result.SymbolsFound += stats.SymbolsIndexed
	}

	f.mu.Lock()
	f.configuredDirs = wanted
	f.mu.Unlock()

	return result, nil
}

// removeDir removes every previously indexed file whose path
// falls under dir, returning the count removed.
func (f *Facade) removeDir(dir string) (int, error) {
	f.mu.Lock()
	defer f.mu.Unlock()

	var toRemove []string
	for p := range f.indexedPaths {
		if strings.HasPrefix(p, dir) {
			toRemove = append(toRemove, p)
		}
	}
	for _, p := range toRemove {
		if err := f.removeFileLocked(p); err != nil {
			return 0, err
		}
	}
	return len(toRemove), nil
}
