package pipeline

import (
	"context"
	"os"
	"path/filepath"
	"sync"

	"github.com/bartolli/codanna/internal/walker"
)

// readResult is READ's output: a discovered path's raw content,
// carried alongside the walker's classification so COLLECT can decide
// how to treat it without re-deriving anything.
type readResult struct {
	Path        string
	Language    string
	ContentHash string
	Change      walker.ChangeKind
	Content     []byte
}

// runReadStage reads file content for every discovered path that needs
// parsing, skipping paths the walker already classified as unmodified
// unless opts.Force is set. DISCOVER already computed content hashes
// while walking, so READ's only remaining job is the actual byte read.
func (p *Pipeline) runReadStage(ctx context.Context, in <-chan walker.Result, opts Options, stats *statsCollector) <-chan readResult {
	out := make(chan readResult, opts.channelCapacity())

	workers := opts.ReaderThreads
	if workers <= 0 {
		workers = 2
	}

	var wg sync.WaitGroup
	for i := 0; i < workers; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for {
				select {
				case <-ctx.Done():
					return
				case res, ok := <-in:
					if !ok {
						return
					}
					p.readOne(ctx, res, opts, stats, out)
				}
			}
		}()
	}

	go func() {
		wg.Wait()
		close(out)
	}()

	return out
}

func (p *Pipeline) readOne(ctx context.Context, res walker.Result, opts Options, stats *statsCollector, out chan<- readResult) {
	if res.Err != nil {
		stats.addError(1)
		return
	}
	d := res.File
	stats.addDiscovered(1)

	if d.Change == walker.ChangeUnmodified && !opts.Force {
		stats.addSkipped(1)
		return
	}

	content, err := os.ReadFile(filepath.Join(opts.Root, d.Path))
	if err != nil {
		stats.addError(1)
		return
	}
	stats.addRead(1)

	select {
	case out <- readResult{Path: d.Path, Language: d.Language, ContentHash: d.ContentHash, Change: d.Change, Content: content}:
	case <-ctx.Done():
	}
}
