package pipeline

import (
	"context"
	"sync"

	"github.com/bartolli/codanna/internal/model"
)

// parseResult is PARSE's output: a parsed file plus the content hash
// carried forward from READ, needed by COLLECT to register FileInfo.
type parseResult struct {
	ContentHash string
	Parsed      *model.ParsedFile
}

// runParseStage dispatches each read file to the Parser registered for
// its language, running up to opts.ParserThreads in parallel. A file
// whose language has no registered parser is dropped silently (the
// registry's documented "skip, unsupported" contract); a parse error is
// recorded and the file is skipped, never aborting the run.
func (p *Pipeline) runParseStage(ctx context.Context, in <-chan readResult, opts Options, stats *statsCollector) <-chan parseResult {
	out := make(chan parseResult, opts.channelCapacity())

	workers := opts.ParserThreads
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
				case r, ok := <-in:
					if !ok {
						return
					}
					p.parseOne(ctx, r, stats, out)
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

func (p *Pipeline) parseOne(ctx context.Context, r readResult, stats *statsCollector, out chan<- parseResult) {
	parser := p.parsers.Lookup(r.Language)
	if parser == nil {
		stats.addWarning(1)
		return
	}

	parsed, err := parser.Parse(ctx, r.Path, r.Content)
	if err != nil {
		stats.addError(1)
		return
	}
	stats.addParsed(1)

	select {
	case out <- parseResult{ContentHash: r.ContentHash, Parsed: parsed}:
	case <-ctx.Done():
	}
}
