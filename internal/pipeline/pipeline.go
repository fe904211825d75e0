// Package pipeline implements Phase 1 of the indexing core (spec.md
// §4.6): five stages — DISCOVER, READ, PARSE, COLLECT, INDEX — wired by
// bounded channels with back-pressure. DISCOVER and READ overlap IO
// across worker pools; PARSE overlaps CPU work across a parser pool;
// COLLECT and INDEX each run single-threaded, matching the spec's
// requirement that id allocation and document commits stay ordered.
package pipeline

import (
	"context"
	"time"

	"github.com/bartolli/codanna/internal/docindex"
	"github.com/bartolli/codanna/internal/ids"
	"github.com/bartolli/codanna/internal/model"
	"github.com/bartolli/codanna/internal/parserapi"
	"github.com/bartolli/codanna/internal/resolution"
	"github.com/bartolli/codanna/internal/walker"
)

// Options configures one Phase 1 run, mirroring config.PipelineConfig
// plus the DISCOVER-stage inputs FileWalker needs.
type Options struct {
	Root              string
	ExtensionLanguage map[string]string
	IgnoreFile        string
	RespectVCSIgnore  bool

	// PreviouslyIndexed enables incremental classification: path
	// (relative to Root) -> stored content hash. Nil for a from-scratch run.
	PreviouslyIndexed map[string]string

	// Force re-reads and re-parses files walker classifies as unmodified.
	Force bool

	// MaxFiles caps the number of discovered files this run processes,
	// for facade.IndexDirectory's max_files option (spec.md §4.10); 0
	// means unlimited. The cap is approximate under concurrent
	// discovery: a handful of in-flight hashes beyond the cap may still
	// land on the channel before the walker observes cancellation.
	MaxFiles int

	WalkerThreads    int
	ReaderThreads    int
	ParserThreads    int
	ChannelCapacity  int
	BatchSize        int
	BatchesPerCommit int
}

func (o Options) channelCapacity() int {
	if o.ChannelCapacity > 0 {
		return o.ChannelCapacity
	}
	return 256
}

func (o Options) batchSize() int {
	if o.BatchSize > 0 {
		return o.BatchSize
	}
	return 500
}

func (o Options) batchesPerCommit() int {
	if o.BatchesPerCommit > 0 {
		return o.BatchesPerCommit
	}
	return 1
}

// Stats is IndexStats (SPEC_FULL.md's supplemented shape): per-stage
// counters plus wall-clock duration, returned to the facade after a run.
type Stats struct {
	FilesDiscovered     int
	FilesRead           int
	FilesParsed         int
	FilesSkipped        int
	SymbolsIndexed      int
	RelationshipsStored int
	Errors              int
	Warnings            int
	Duration            time.Duration
}

// Result is Phase 1's output: stats, the unresolved relationships Phase
// 2 will consume, and the per-file context Phase 2 needs to build each
// file's ResolutionScope.
type Result struct {
	Stats      Stats
	Unresolved []model.UnresolvedRelationship
	Files      map[model.FileId]resolution.FileContext
}

// Pipeline runs Phase 1 against a DocumentIndex, allocating ids through
// a shared Allocator and populating a shared SymbolLookupCache so
// callers (the facade) can run Phase 2 immediately after.
type Pipeline struct {
	walker    *walker.Walker
	parsers   *parserapi.ParserRegistry
	docs      *docindex.Index
	allocator *ids.Allocator
	cache     *resolution.Cache
}

// New constructs a Pipeline over its collaborators. The allocator and
// cache are shared with the caller so Phase 2 can run against the same
// state Phase 1 just built.
func New(w *walker.Walker, parsers *parserapi.ParserRegistry, docs *docindex.Index, allocator *ids.Allocator, cache *resolution.Cache) *Pipeline {
	return &Pipeline{walker: w, parsers: parsers, docs: docs, allocator: allocator, cache: cache}
}

// Run executes DISCOVER through INDEX over opts.Root and returns once
// every discovered file has been read, parsed, and committed (or
// skipped/recorded as an error). The incremental id acquisition
// invariant (spec.md §4.6) is enforced unconditionally: the allocator
// is reseeded from the DocumentIndex's persisted counters before
// anything is allocated, whether or not this run is "incremental".
func (p *Pipeline) Run(ctx context.Context, opts Options) (Result, error) {
	start := time.Now()

	persisted, err := p.docs.PersistedCounters()
	if err != nil {
		return Result{}, err
	}
	p.allocator.Reseed(persisted)

	walkCtx := ctx
	var cancelWalk context.CancelFunc
	if opts.MaxFiles > 0 {
		walkCtx, cancelWalk = context.WithCancel(ctx)
		defer cancelWalk()
	}

	discovered, err := p.walker.Discover(walkCtx, walker.Options{
		Root:              opts.Root,
		ExtensionLanguage: opts.ExtensionLanguage,
		IgnoreFile:        opts.IgnoreFile,
		RespectVCSIgnore:  opts.RespectVCSIgnore,
		Workers:           opts.WalkerThreads,
		PreviouslyIndexed: opts.PreviouslyIndexed,
	})
	if err != nil {
		return Result{}, err
	}
	if opts.MaxFiles > 0 {
		discovered = limitResults(discovered, opts.MaxFiles, cancelWalk)
	}

	stats := &statsCollector{}
	readOut := p.runReadStage(ctx, discovered, opts, stats)
	parseOut := p.runParseStage(ctx, readOut, opts, stats)
	files, unresolved, err := p.runIndexStage(parseOut, opts, stats)
	if err != nil {
		return Result{}, err
	}

	final := stats.snapshot()
	final.Duration = time.Since(start)
	return Result{Stats: final, Unresolved: unresolved, Files: files}, nil
}

// DryRun executes DISCOVER through COLLECT over opts.Root without ever
// opening a DocumentIndex batch: COLLECT still assigns real ids through
// the Allocator so SymbolsIndexed and RelationshipsStored count what a
// real run would produce, but the Allocator's batch is aborted instead
// of committed, so no id or document persists. INDEX never runs.
func (p *Pipeline) DryRun(ctx context.Context, opts Options) (Stats, error) {
	start := time.Now()

	persisted, err := p.docs.PersistedCounters()
	if err != nil {
		return Stats{}, err
	}
	p.allocator.Reseed(persisted)

	walkCtx := ctx
	var cancelWalk context.CancelFunc
	if opts.MaxFiles > 0 {
		walkCtx, cancelWalk = context.WithCancel(ctx)
		defer cancelWalk()
	}

	discovered, err := p.walker.Discover(walkCtx, walker.Options{
		Root:              opts.Root,
		ExtensionLanguage: opts.ExtensionLanguage,
		IgnoreFile:        opts.IgnoreFile,
		RespectVCSIgnore:  opts.RespectVCSIgnore,
		Workers:           opts.WalkerThreads,
		PreviouslyIndexed: opts.PreviouslyIndexed,
	})
	if err != nil {
		return Stats{}, err
	}
	if opts.MaxFiles > 0 {
		discovered = limitResults(discovered, opts.MaxFiles, cancelWalk)
	}

	stats := &statsCollector{}
	readOut := p.runReadStage(ctx, discovered, opts, stats)
	parseOut := p.runParseStage(ctx, readOut, opts, stats)

	p.allocator.StartBatch()
	batch := pendingBatch{}
	for r := range parseOut {
		if err := p.collectOne(r, &batch); err != nil {
			stats.addError(1)
			continue
		}
	}
	p.allocator.AbortBatch()
	stats.addSymbols(len(batch.Symbols))
	stats.addRelationships(len(batch.Unresolved))

	final := stats.snapshot()
	final.Duration = time.Since(start)
	return final, nil
}

// limitResults forwards at most max walker.Result values from in,
// cancels the walker once the cap is reached, and keeps draining in
// afterward so the walker's hashing goroutines never block on a send
// after the consumer has stopped reading.
func limitResults(in <-chan walker.Result, max int, cancel context.CancelFunc) <-chan walker.Result {
	out := make(chan walker.Result)
	go func() {
		defer close(out)
		n := 0
		for r := range in {
			if n < max {
				out <- r
				n++
				if n == max {
					cancel()
				}
				continue
			}
			// Draining past the cap: the walker may still emit a few
			// in-flight results before it observes ctx.Done().
		}
	}()
	return out
}
