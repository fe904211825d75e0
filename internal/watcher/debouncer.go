package watcher

import (
	"log/slog"
	"sync"
	"time"
)

// coalesceRule describes what happens when a newly observed operation
// lands on top of a path's first pending operation within the same
// debounce window.
type coalesceRule int

const (
	ruleKeepFirst  coalesceRule = iota // CREATE+MODIFY: still a CREATE
	ruleKeepLatest                     // MODIFY+MODIFY, MODIFY+DELETE, anything+RENAME: take the new one as-is
	ruleCancel                         // CREATE+DELETE: the file never really existed
	ruleReplaceAsModify                // DELETE+CREATE: the file was replaced in place
)

// coalesceTable maps (first observed op, newly observed op) to how the
// pending entry should be resolved. Entries absent from the table fall
// through to ruleKeepLatest.
var coalesceTable = map[[2]Operation]coalesceRule{
	{OpCreate, OpModify}: ruleKeepFirst,
	{OpCreate, OpDelete}: ruleCancel,
	{OpDelete, OpCreate}: ruleReplaceAsModify,
}

// Debouncer coalesces rapid file events for the same path within a
// fixed window so a burst of IDE saves or a git checkout produces one
// batch instead of dozens.
type Debouncer struct {
	window  time.Duration
	pending map[string]*pendingEvent
	mu      sync.Mutex
	output  chan []FileEvent
	timer   *time.Timer
	stopCh  chan struct{}
	stopped bool
}

type pendingEvent struct {
	event   FileEvent
	firstOp Operation
}

// NewDebouncer creates a debouncer that flushes window after the last
// event for a batch was observed.
func NewDebouncer(window time.Duration) *Debouncer {
	return &Debouncer{
		window:  window,
		pending: make(map[string]*pendingEvent),
		output:  make(chan []FileEvent, 10),
		stopCh:  make(chan struct{}),
	}
}

// Add queues event, coalescing it with any pending event already held
// for the same path and (re)starting the flush timer.
func (d *Debouncer) Add(event FileEvent) {
	d.mu.Lock()
	defer d.mu.Unlock()

	if d.stopped {
		return
	}

	if existing, ok := d.pending[event.Path]; ok {
		resolved, keep := coalesce(existing.firstOp, event)
		if !keep {
			delete(d.pending, event.Path)
		} else {
			existing.event = resolved
		}
	} else {
		d.pending[event.Path] = &pendingEvent{event: event, firstOp: event.Operation}
	}

	d.scheduleFlush()
}

// coalesce resolves what a path's pending entry should become given
// the operation it started as (first) and the one just observed (next).
// The bool return is false when the two cancel out entirely.
func coalesce(first Operation, next FileEvent) (FileEvent, bool) {
	switch coalesceTable[[2]Operation{first, next.Operation}] {
	case ruleCancel:
		return FileEvent{}, false
	case ruleKeepFirst:
		next.Operation = first
		return next, true
	case ruleReplaceAsModify:
		next.Operation = OpModify
		return next, true
	default: // ruleKeepLatest
		return next, true
	}
}

// AddImmediate emits event as its own single-element batch without
// coalescing or waiting out the debounce window, and drops any pending
// coalesced event for the same path (deletions bypass debounce). The
// event is always emitted, even when the dropped pending event was a
// CREATE; the CREATE+DELETE cancellation applies only within Add.
func (d *Debouncer) AddImmediate(event FileEvent) {
	d.mu.Lock()
	if d.stopped {
		d.mu.Unlock()
		return
	}
	delete(d.pending, event.Path)
	d.mu.Unlock()

	select {
	case d.output <- []FileEvent{event}:
	default:
		slog.Warn("debouncer output full, dropping immediate event", slog.String("path", event.Path))
	}
}

// scheduleFlush (re)arms the flush timer. Callers must hold d.mu.
func (d *Debouncer) scheduleFlush() {
	if d.timer != nil {
		d.timer.Stop()
	}
	d.timer = time.AfterFunc(d.window, d.flush)
}

// flush emits every currently pending event as one batch.
func (d *Debouncer) flush() {
	d.mu.Lock()
	defer d.mu.Unlock()

	if d.stopped || len(d.pending) == 0 {
		return
	}

	events := make([]FileEvent, 0, len(d.pending))
	for _, pe := range d.pending {
		events = append(events, pe.event)
	}
	d.pending = make(map[string]*pendingEvent)

	select {
	case d.output <- events:
	default:
		slog.Warn("debouncer output full, dropping batch", slog.Int("batch_size", len(events)))
	}
}

// Output returns the channel of debounced batches.
func (d *Debouncer) Output() <-chan []FileEvent { return d.output }

// Stop stops the debouncer and closes the output channel. Safe to call
// more than once.
func (d *Debouncer) Stop() {
	d.mu.Lock()
	defer d.mu.Unlock()

	if d.stopped {
		return
	}
	d.stopped = true
	if d.timer != nil {
		d.timer.Stop()
	}
	close(d.stopCh)
	close(d.output)
}
