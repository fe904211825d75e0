package watcher

import (
	"context"
	"fmt"
	"time"
)

// Operation is a kind of file system change.
type Operation int

const (
	// OpCreate is a new file or directory.
	OpCreate Operation = iota
	// OpModify is a change to an existing file's content.
	OpModify
	// OpDelete is a removed file or directory.
	OpDelete
	// OpRename is a path move. The bundled watchers report only the
	// renamed path and leave FileEvent.OldPath empty.
	OpRename
	// OpGitignoreChange marks an edit to a .gitignore, which triggers
	// index reconciliation against the newly (un)ignored paths.
	OpGitignoreChange
	// OpConfigChange marks an edit to settings.toml, which triggers a
	// reload of exclude patterns and reconciliation.
	OpConfigChange
)

var operationNames = map[Operation]string{
	OpCreate:          "CREATE",
	OpModify:          "MODIFY",
	OpDelete:          "DELETE",
	OpRename:          "RENAME",
	OpGitignoreChange: "GITIGNORE_CHANGE",
	OpConfigChange:    "CONFIG_CHANGE",
}

func (op Operation) String() string {
	if name, ok := operationNames[op]; ok {
		return name
	}
	return "UNKNOWN"
}

// FileEvent is a single file system change, possibly coalesced from
// several raw notifications by a Debouncer.
type FileEvent struct {
	Path      string
	OldPath   string // only meaningful for OpRename; the bundled watchers leave it empty
	Operation Operation
	IsDir     bool
	Timestamp time.Time
}

// Watcher watches a directory tree for file system changes.
// Implementations run until Stop is called or their context ends.
type Watcher interface {
	Start(ctx context.Context, path string) error
	Stop() error

	// Events returns a channel of file events, closed when the watcher stops.
	Events() <-chan FileEvent

	// Errors returns a channel of non-fatal errors, closed when the watcher stops.
	Errors() <-chan error
}

// Options configures a watcher's debouncing, polling, and filtering behavior.
type Options struct {
	// DebounceWindow is how long to wait before emitting a coalesced
	// batch. Default 200ms.
	DebounceWindow time.Duration

	// PollInterval is the scan period used by the polling fallback.
	// Default 5s.
	PollInterval time.Duration

	// EventBufferSize bounds the output event channel. Default 1000.
	EventBufferSize int

	// IgnorePatterns are extra gitignore-syntax patterns applied on
	// top of .gitignore.
	IgnorePatterns []string
}

// DefaultOptions returns the package defaults.
func DefaultOptions() Options {
	return Options{
		DebounceWindow:  200 * time.Millisecond,
		PollInterval:    5 * time.Second,
		EventBufferSize: 1000,
	}
}

// Validate reports whether the options are usable as given. Zero
// values are not errors here — WithDefaults fills them in.
func (o Options) Validate() error {
	if o.DebounceWindow < 0 {
		return fmt.Errorf("watcher: DebounceWindow must not be negative, got %s", o.DebounceWindow)
	}
	if o.PollInterval < 0 {
		return fmt.Errorf("watcher: PollInterval must not be negative, got %s", o.PollInterval)
	}
	if o.EventBufferSize < 0 {
		return fmt.Errorf("watcher: EventBufferSize must not be negative, got %d", o.EventBufferSize)
	}
	return nil
}

// WithDefaults returns a copy of o with every zero-valued field
// replaced by the package default.
func (o Options) WithDefaults() Options {
	defaults := DefaultOptions()
	if o.DebounceWindow == 0 {
		o.DebounceWindow = defaults.DebounceWindow
	}
	if o.PollInterval == 0 {
		o.PollInterval = defaults.PollInterval
	}
	if o.EventBufferSize == 0 {
		o.EventBufferSize = defaults.EventBufferSize
	}
	return o
}
