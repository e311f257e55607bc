// Package watch monitors tagged locations (directories the user imports
// files from) for external changes.
//
// Files appear and disappear underneath the application at any time; the
// watcher turns raw filesystem events into debounced Events the daemon
// feeds into the file reconciler. Rapid editor save/rename bursts on one
// path collapse into a single event.
package watch

import (
	"fmt"
	"log"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"time"

	"github.com/fsnotify/fsnotify"
)

// EventOp represents the type of file system operation.
type EventOp int

const (
	// OpCreate indicates a new file appeared in a location.
	OpCreate EventOp = iota
	// OpModify indicates an existing file was modified.
	OpModify
	// OpDelete indicates a file was deleted or renamed away.
	OpDelete
)

// String returns a human-readable representation of the operation.
func (op EventOp) String() string {
	switch op {
	case OpCreate:
		return "create"
	case OpModify:
		return "modify"
	case OpDelete:
		return "delete"
	default:
		return "unknown"
	}
}

// Event is a debounced file system event within a watched location.
type Event struct {
	// Path is the absolute path of the file that changed.
	Path string
	// Op is the operation that occurred.
	Op EventOp
}

// Config holds watcher options.
type Config struct {
	// DebounceInterval is how long a path must stay quiet before its
	// pending event is emitted. Batches rapid updates together.
	DebounceInterval time.Duration

	// Logger for watcher activity.
	Logger *log.Logger
}

// DefaultConfig returns sensible defaults.
func DefaultConfig() *Config {
	return &Config{
		DebounceInterval: 100 * time.Millisecond,
		Logger:           log.New(os.Stderr, "[watch] ", log.LstdFlags),
	}
}

// Watcher watches location directories for changes. It uses fsnotify for
// cross-platform file system event monitoring.
type Watcher struct {
	watcher *fsnotify.Watcher
	events  chan Event
	errors  chan error
	done    chan struct{}
	wg      sync.WaitGroup

	config *Config

	mu        sync.Mutex
	running   bool
	locations []string

	// pending holds the latest raw event per path until it has been
	// quiet for the debounce interval.
	pendingMu sync.Mutex
	pending   map[string]pendingEvent
}

type pendingEvent struct {
	op       EventOp
	queuedAt time.Time
}

// New creates a Watcher. It must be started with Start before it emits
// events.
func New(config *Config) (*Watcher, error) {
	if config == nil {
		config = DefaultConfig()
	}
	if config.Logger == nil {
		config.Logger = log.Default()
	}

	watcher, err := fsnotify.NewWatcher()
	if err != nil {
		return nil, fmt.Errorf("failed to create fsnotify watcher: %w", err)
	}

	return &Watcher{
		watcher: watcher,
		events:  make(chan Event, 100),
		errors:  make(chan error, 10),
		done:    make(chan struct{}),
		config:  config,
		pending: make(map[string]pendingEvent),
	}, nil
}

// Start begins watching the given location directories.
func (w *Watcher) Start(locations []string) error {
	w.mu.Lock()
	defer w.mu.Unlock()

	if w.running {
		return fmt.Errorf("watcher already running")
	}
	if len(locations) == 0 {
		return fmt.Errorf("no locations to watch")
	}

	var added []string
	for _, loc := range locations {
		abs, err := filepath.Abs(loc)
		if err != nil {
			return fmt.Errorf("failed to resolve location %s: %w", loc, err)
		}
		if err := w.watcher.Add(abs); err != nil {
			// Roll back locations already added so a failed Start leaves
			// the watcher clean.
			for _, a := range added {
				_ = w.watcher.Remove(a)
			}
			return fmt.Errorf("failed to watch location %s: %w", abs, err)
		}
		added = append(added, abs)
	}
	w.locations = added

	w.running = true
	w.wg.Add(2)
	go w.processEvents()
	go w.flushLoop()

	w.config.Logger.Printf("Watching %d locations", len(added))
	return nil
}

// Stop stops watching and blocks until the event goroutines exit.
func (w *Watcher) Stop() error {
	w.mu.Lock()
	if !w.running {
		w.mu.Unlock()
		return nil
	}
	w.running = false
	w.mu.Unlock()

	close(w.done)
	if err := w.watcher.Close(); err != nil {
		return fmt.Errorf("failed to close watcher: %w", err)
	}
	w.wg.Wait()

	close(w.events)
	close(w.errors)
	return nil
}

// Events returns the channel that emits debounced events. Closed when
// the watcher is stopped.
func (w *Watcher) Events() <-chan Event {
	return w.events
}

// Errors returns the channel that emits watcher errors. Closed when the
// watcher is stopped.
func (w *Watcher) Errors() <-chan error {
	return w.errors
}

// IsRunning reports whether the watcher is currently running.
func (w *Watcher) IsRunning() bool {
	w.mu.Lock()
	defer w.mu.Unlock()
	return w.running
}

// processEvents converts raw fsnotify events into pending debounced
// entries.
func (w *Watcher) processEvents() {
	defer w.wg.Done()

	for {
		select {
		case <-w.done:
			return

		case event, ok := <-w.watcher.Events:
			if !ok {
				return
			}
			if op, ok := convertOp(event); ok && !isHidden(event.Name) {
				w.queue(event.Name, op)
			}

		case err, ok := <-w.watcher.Errors:
			if !ok {
				return
			}
			select {
			case w.errors <- err:
			case <-w.done:
				return
			}
		}
	}
}

// queue records the latest operation for a path, restarting its
// debounce clock. A create followed by a delete within the window stays
// a delete, and vice versa: last write wins.
func (w *Watcher) queue(path string, op EventOp) {
	w.pendingMu.Lock()
	w.pending[path] = pendingEvent{op: op, queuedAt: time.Now()}
	w.pendingMu.Unlock()
}

// flushLoop emits pending events once their paths have been quiet for
// the debounce interval.
func (w *Watcher) flushLoop() {
	defer w.wg.Done()

	ticker := time.NewTicker(w.config.DebounceInterval)
	defer ticker.Stop()

	for {
		select {
		case <-w.done:
			return
		case <-ticker.C:
			w.flushPending()
		}
	}
}

func (w *Watcher) flushPending() {
	now := time.Now()

	w.pendingMu.Lock()
	var ready []Event
	for path, pe := range w.pending {
		if now.Sub(pe.queuedAt) < w.config.DebounceInterval {
			continue
		}
		ready = append(ready, Event{Path: path, Op: pe.op})
		delete(w.pending, path)
	}
	w.pendingMu.Unlock()

	for _, ev := range ready {
		select {
		case w.events <- ev:
		case <-w.done:
			return
		}
	}
}

// convertOp maps an fsnotify event to an EventOp. Chmod and other noise
// is dropped; rename counts as delete (the new name triggers a create).
func convertOp(event fsnotify.Event) (EventOp, bool) {
	switch {
	case event.Has(fsnotify.Create):
		return OpCreate, true
	case event.Has(fsnotify.Write):
		return OpModify, true
	case event.Has(fsnotify.Remove):
		return OpDelete, true
	case event.Has(fsnotify.Rename):
		return OpDelete, true
	default:
		return 0, false
	}
}

// isHidden reports whether the file is a dotfile the importer ignores.
func isHidden(path string) bool {
	return strings.HasPrefix(filepath.Base(path), ".")
}
