// Package watch re-scans contracts as they change on disk.
package watch

import (
	"context"
	"crypto/sha256"
	"errors"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/fsnotify/fsnotify"

	"gasguard/internal/scanner"
	"gasguard/internal/trace"
)

// Config configures a Watcher.
type Config struct {
	// Root is the directory watched recursively.
	Root string
	// Debounce is how long changes accumulate before they are scanned.
	Debounce time.Duration
	// Include and Exclude select files like scanner.DirOptions does.
	Include []string
	Exclude []string
}

// Operation is the kind of change that produced an Event.
type Operation string

const (
	OpCreate Operation = "create"
	OpModify Operation = "modify"
	OpDelete Operation = "delete"
)

// Event is the outcome of re-scanning one changed file.
type Event struct {
	Path   string
	Op     Operation
	Result *scanner.ScanResult // nil for deletes and failures
	Err    error
}

// Watcher feeds changed contracts to a scanner.
type Watcher struct {
	cfg     Config
	scanner *scanner.Scanner
	fsw     *fsnotify.Watcher
	tracer  trace.Tracer

	pendingMu sync.Mutex
	pending   map[string]fsnotify.Op

	hashes map[string][32]byte // owned by the event goroutine

	events  chan Event
	started bool
	stop    sync.Once
}

// New creates a watcher; nothing is watched until Start.
func New(s *scanner.Scanner, cfg Config) (*Watcher, error) {
	if s == nil {
		return nil, errors.New("watch: nil scanner")
	}
	if cfg.Root == "" {
		cfg.Root = "."
	}
	if cfg.Debounce <= 0 {
		cfg.Debounce = 150 * time.Millisecond
	}
	fsw, err := fsnotify.NewWatcher()
	if err != nil {
		return nil, err
	}
	return &Watcher{
		cfg:     cfg,
		scanner: s,
		fsw:     fsw,
		tracer:  trace.Nop,
		pending: make(map[string]fsnotify.Op),
		hashes:  make(map[string][32]byte),
		events:  make(chan Event, 64),
	}, nil
}

// Events returns the channel of scan events. It is closed when the watcher
// stops.
func (w *Watcher) Events() <-chan Event {
	return w.events
}

// Start registers the directory tree and processes changes in the
// background until ctx is done or Stop is called.
func (w *Watcher) Start(ctx context.Context) error {
	if w.started {
		return errors.New("watch: already started")
	}
	if err := w.addRecursive(w.cfg.Root); err != nil {
		_ = w.fsw.Close()
		return err
	}
	w.started = true
	w.tracer = trace.FromContext(ctx)
	go w.loop(ctx)
	return nil
}

// Stop releases the OS watches. Events is closed shortly after.
func (w *Watcher) Stop() error {
	var err error
	w.stop.Do(func() {
		err = w.fsw.Close()
		if !w.started {
			close(w.events)
		}
	})
	return err
}

func skipDir(path string) bool {
	base := filepath.Base(path)
	return base == "target" || (strings.HasPrefix(base, ".") && base != "." && base != "..")
}

func (w *Watcher) addRecursive(root string) error {
	return filepath.WalkDir(root, func(path string, d os.DirEntry, err error) error {
		if err != nil {
			return err
		}
		if !d.IsDir() {
			return nil
		}
		if path != root && skipDir(path) {
			return filepath.SkipDir
		}
		return w.fsw.Add(path)
	})
}

func (w *Watcher) loop(ctx context.Context) {
	defer close(w.events)
	defer w.Stop()

	ticker := time.NewTicker(w.cfg.Debounce)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case ev, ok := <-w.fsw.Events:
			if !ok {
				return
			}
			w.handle(ev)
		case err, ok := <-w.fsw.Errors:
			if !ok {
				return
			}
			trace.Point(w.tracer, trace.ScopeDriver, "watch", "watcher error: "+err.Error(), 0)
		case <-ticker.C:
			if !w.flush(ctx) {
				return
			}
		}
	}
}

func (w *Watcher) rel(path string) string {
	rel, err := filepath.Rel(w.cfg.Root, path)
	if err != nil {
		return filepath.ToSlash(path)
	}
	return filepath.ToSlash(rel)
}

func (w *Watcher) handle(ev fsnotify.Event) {
	if ev.Has(fsnotify.Create) {
		if info, err := os.Stat(ev.Name); err == nil && info.IsDir() {
			if !skipDir(ev.Name) {
				if err := w.addRecursive(ev.Name); err != nil {
					trace.Point(w.tracer, trace.ScopeDriver, "watch", "failed to watch "+ev.Name+": "+err.Error(), 0)
				}
			}
			return
		}
	}
	if !scanner.Selected(w.rel(ev.Name), w.cfg.Include, w.cfg.Exclude) {
		return
	}
	if ev.Op == fsnotify.Chmod {
		return
	}
	w.pendingMu.Lock()
	w.pending[ev.Name] |= ev.Op
	w.pendingMu.Unlock()
}

// flush scans every pending path. It returns false once ctx is done.
func (w *Watcher) flush(ctx context.Context) bool {
	w.pendingMu.Lock()
	if len(w.pending) == 0 {
		w.pendingMu.Unlock()
		return true
	}
	batch := w.pending
	w.pending = make(map[string]fsnotify.Op)
	w.pendingMu.Unlock()

	paths := make([]string, 0, len(batch))
	for p := range batch {
		paths = append(paths, p)
	}
	sort.Strings(paths)

	for _, path := range paths {
		ev, ok := w.process(ctx, path, batch[path])
		if !ok {
			continue
		}
		select {
		case w.events <- ev:
		case <-ctx.Done():
			return false
		}
	}
	return true
}

func (w *Watcher) process(ctx context.Context, path string, op fsnotify.Op) (Event, bool) {
	// #nosec G304 -- path comes from the watched tree
	content, err := os.ReadFile(path)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			_, known := w.hashes[path]
			delete(w.hashes, path)
			return Event{Path: path, Op: OpDelete}, known || op.Has(fsnotify.Remove) || op.Has(fsnotify.Rename)
		}
		return Event{Path: path, Op: OpModify, Err: err}, true
	}

	sum := sha256.Sum256(content)
	prev, known := w.hashes[path]
	if known && prev == sum {
		return Event{}, false
	}
	w.hashes[path] = sum

	ev := Event{Path: path, Op: OpModify}
	if !known && op.Has(fsnotify.Create) {
		ev.Op = OpCreate
	}
	ev.Result, ev.Err = w.scanner.ScanContent(ctx, string(content), path)
	return ev, true
}
