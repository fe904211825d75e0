// Package walker implements the DISCOVER stage of the indexing
// pipeline (§4.6): an ignore-aware file enumerator that filters by
// enabled language extensions and, for incremental runs, classifies
// each discovered path as new, modified, or deleted against the set
// of paths already committed to the DocumentIndex.
package walker

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"runtime"
	"sync"

	lru "github.com/hashicorp/golang-lru/v2"

	"github.com/bartolli/codanna/internal/gitignore"
)

// ChangeKind classifies a discovered path against the previously
// indexed set, computed during an incremental DISCOVER pass.
type ChangeKind int

const (
	// ChangeNew is a path with no corresponding FileInfo document.
	ChangeNew ChangeKind = iota
	// ChangeModified is a path whose content hash no longer matches the
	// stored FileInfo.ContentHash.
	ChangeModified
	// ChangeUnmodified is a path whose content hash is unchanged.
	ChangeUnmodified
	// ChangeDeleted is a previously indexed path no longer present on
	// disk. Deleted paths never appear in the discovered-path stream;
	// they are surfaced separately via Deleted().
	ChangeDeleted
)

// Discovered is one DISCOVER-stage output: a path, its language, its
// content hash, and (for incremental runs) how it compares to the
// previously indexed state.
type Discovered struct {
	Path        string
	Language    string
	ContentHash string
	Change      ChangeKind
}

// gitignoreCacheSize bounds the per-directory gitignore matcher cache,
// mirroring the teacher's fixed-size LRU for the same concern.
const gitignoreCacheSize = 1000

// Options configures a single DISCOVER pass.
type Options struct {
	// Root is the directory to walk.
	Root string

	// ExtensionLanguage maps file extension (with leading dot) to
	// language id; paths whose extension is absent are skipped.
	ExtensionLanguage map[string]string

	// IgnoreFile is the per-project ignore file name (e.g.
	// ".codannaignore"), honored alongside .gitignore files.
	IgnoreFile string

	// RespectVCSIgnore enables .gitignore parsing.
	RespectVCSIgnore bool

	// Workers bounds the concurrent hashing workers (0 = NumCPU).
	Workers int

	// PreviouslyIndexed, when non-nil, enables incremental
	// classification: path -> stored content hash, as returned by
	// DocumentIndex.GetAllIndexedPaths() joined with per-file hashes.
	PreviouslyIndexed map[string]string
}

// Walker discovers indexable files under a root directory.
type Walker struct {
	ignoreCache *lru.Cache[string, *gitignore.Ruleset]
}

// New constructs a Walker with its gitignore matcher cache.
func New() (*Walker, error) {
	cache, err := lru.New[string, *gitignore.Ruleset](gitignoreCacheSize)
	if err != nil {
		return nil, fmt.Errorf("failed to create gitignore cache: %w", err)
	}
	return &Walker{ignoreCache: cache}, nil
}

// Result carries one DISCOVER output or an error encountered while
// walking or hashing a specific path.
type Result struct {
	File *Discovered
	Err  error
}

// Discover walks opts.Root and streams Results on the returned
// channel. The channel is closed once the walk and all hashing work
// complete. Deleted paths (present in opts.PreviouslyIndexed but no
// longer on disk) are returned separately since they never appear in
// the filesystem walk.
func (w *Walker) Discover(ctx context.Context, opts Options) (<-chan Result, error) {
	absRoot, err := filepath.Abs(opts.Root)
	if err != nil {
		return nil, fmt.Errorf("failed to resolve root: %w", err)
	}
	info, err := os.Stat(absRoot)
	if err != nil {
		return nil, fmt.Errorf("failed to stat root: %w", err)
	}
	if !info.IsDir() {
		return nil, fmt.Errorf("root is not a directory: %s", absRoot)
	}

	workers := opts.Workers
	if workers <= 0 {
		workers = runtime.NumCPU()
	}

	paths := make(chan string, workers*4)
	results := make(chan Result, workers*4)

	var wg sync.WaitGroup
	for i := 0; i < workers; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			w.hashWorker(ctx, absRoot, opts, paths, results)
		}()
	}

	go func() {
		defer close(paths)
		_ = w.walk(ctx, absRoot, opts, paths)
	}()

	go func() {
		wg.Wait()
		close(results)
	}()

	return results, nil
}

// Deleted returns the subset of opts.PreviouslyIndexed whose relative
// path no longer exists under opts.Root.
func (w *Walker) Deleted(opts Options) []string {
	var deleted []string
	for relPath := range opts.PreviouslyIndexed {
		absPath := filepath.Join(opts.Root, relPath)
		if _, err := os.Stat(absPath); os.IsNotExist(err) {
			deleted = append(deleted, relPath)
		}
	}
	return deleted
}

func (w *Walker) walk(ctx context.Context, absRoot string, opts Options, paths chan<- string) error {
	return filepath.WalkDir(absRoot, func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			return nil // best-effort: skip unreadable entries
		}
		select {
		case <-ctx.Done():
			return ctx.Err()
		default:
		}

		if d.IsDir() {
			if w.dirIgnored(absRoot, path, opts) {
				return filepath.SkipDir
			}
			return nil
		}

		if w.pathIgnored(absRoot, path, opts) {
			return nil
		}

		ext := filepath.Ext(path)
		if _, ok := opts.ExtensionLanguage[ext]; !ok {
			return nil
		}

		select {
		case paths <- path:
		case <-ctx.Done():
			return ctx.Err()
		}
		return nil
	})
}

func (w *Walker) hashWorker(ctx context.Context, absRoot string, opts Options, paths <-chan string, results chan<- Result) {
	for {
		select {
		case <-ctx.Done():
			return
		case path, ok := <-paths:
			if !ok {
				return
			}
			relPath, err := filepath.Rel(absRoot, path)
			if err != nil {
				relPath = path
			}
			ext := filepath.Ext(path)
			lang := opts.ExtensionLanguage[ext]

			hash, err := hashFile(path)
			if err != nil {
				results <- Result{Err: fmt.Errorf("failed to hash %s: %w", relPath, err)}
				continue
			}

			change := ChangeNew
			if opts.PreviouslyIndexed != nil {
				if prev, existed := opts.PreviouslyIndexed[relPath]; existed {
					if prev == hash {
						change = ChangeUnmodified
					} else {
						change = ChangeModified
					}
				}
			}

			results <- Result{File: &Discovered{
				Path:        relPath,
				Language:    lang,
				ContentHash: hash,
				Change:      change,
			}}
		}
	}
}

func hashFile(path string) (string, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return "", err
	}
	sum := sha256.Sum256(data)
	return hex.EncodeToString(sum[:]), nil
}

func (w *Walker) dirIgnored(absRoot, path string, opts Options) bool {
	if filepath.Base(path) == ".git" || filepath.Base(path) == ".codanna" {
		return true
	}
	matcher := w.matcherFor(absRoot, filepath.Dir(path), opts)
	if matcher == nil {
		return false
	}
	rel, err := filepath.Rel(absRoot, path)
	if err != nil {
		return false
	}
	return matcher.Ignored(rel, true)
}

func (w *Walker) pathIgnored(absRoot, path string, opts Options) bool {
	matcher := w.matcherFor(absRoot, filepath.Dir(path), opts)
	if matcher == nil {
		return false
	}
	rel, err := filepath.Rel(absRoot, path)
	if err != nil {
		return false
	}
	return matcher.Ignored(rel, false)
}

// matcherFor returns the gitignore.Ruleset covering dir, built from
// .gitignore (if RespectVCSIgnore) and opts.IgnoreFile, cached per
// directory so repeated lookups during a single walk don't re-parse.
func (w *Walker) matcherFor(absRoot, dir string, opts Options) *gitignore.Ruleset {
	if !opts.RespectVCSIgnore && opts.IgnoreFile == "" {
		return nil
	}
	if m, ok := w.ignoreCache.Get(dir); ok {
		return m
	}

	m := gitignore.NewRuleset()
	if opts.RespectVCSIgnore {
		_ = m.AddFromFile(filepath.Join(dir, ".gitignore"), dir)
	}
	if opts.IgnoreFile != "" {
		_ = m.AddFromFile(filepath.Join(dir, opts.IgnoreFile), dir)
	}
	w.ignoreCache.Add(dir, m)
	return m
}
