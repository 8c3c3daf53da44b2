// Package watch bridges filesystem events on the video directory into typed
// stream intents consumed by the supervisor.
package watch

import (
	"context"
	"log/slog"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/fsnotify/fsnotify"
)

// DefaultExtensions recognized as video files.
var DefaultExtensions = []string{".mp4", ".mkv", ".mov", ".avi", ".webm", ".m4v", ".ts", ".flv"}

// EventKind distinguishes watcher events.
type EventKind int

const (
	Created EventKind = iota
	Removed
)

func (k EventKind) String() string {
	if k == Created {
		return "created"
	}
	return "removed"
}

// Event is one coalesced filesystem observation.
type Event struct {
	Kind EventKind
	Path string
}

// Watcher watches a single directory (non-recursive) for video files and
// emits typed events. Create/write bursts for the same path (common while a
// file is still being copied in) are coalesced with a per-path debounce
// timer; removals are emitted immediately.
type Watcher struct {
	dir        string
	debounce   time.Duration
	extensions map[string]struct{}
	events     chan Event
	logger     *slog.Logger
	watcher    *fsnotify.Watcher
	ctx        context.Context
	cancel     context.CancelFunc

	mu     sync.Mutex
	timers map[string]*time.Timer
}

// Option configures a Watcher.
type Option func(*Watcher)

// WithDebounce sets the coalescing window for create/write bursts.
// Default is 2s.
func WithDebounce(d time.Duration) Option {
	return func(w *Watcher) {
		w.debounce = d
	}
}

// WithExtensions replaces the recognized extension list. Extensions are
// matched case-insensitively and must include the leading dot.
func WithExtensions(exts []string) Option {
	return func(w *Watcher) {
		w.extensions = make(map[string]struct{}, len(exts))
		for _, ext := range exts {
			w.extensions[strings.ToLower(ext)] = struct{}{}
		}
	}
}

// NewWatcher creates a directory watcher. Call Start to begin watching.
func NewWatcher(dir string, logger *slog.Logger, opts ...Option) *Watcher {
	ctx, cancel := context.WithCancel(context.Background())
	w := &Watcher{
		dir:      dir,
		debounce: 2 * time.Second,
		events:   make(chan Event, 64),
		logger:   logger,
		ctx:      ctx,
		cancel:   cancel,
		timers:   make(map[string]*time.Timer),
	}
	WithExtensions(DefaultExtensions)(w)
	for _, opt := range opts {
		opt(w)
	}
	return w
}

// Scan enumerates the directory once and returns the recognized video files
// sorted by path. Used for the initial stream set before watching begins.
func (w *Watcher) Scan() ([]string, error) {
	entries, err := os.ReadDir(w.dir)
	if err != nil {
		return nil, err
	}

	var paths []string
	for _, entry := range entries {
		if entry.IsDir() || !w.recognized(entry.Name()) {
			continue
		}
		paths = append(paths, filepath.Join(w.dir, entry.Name()))
	}
	sort.Strings(paths)
	return paths, nil
}

// Start begins watching the directory. Failure here is fatal to the caller:
// running without hot-reload would be silently degraded.
func (w *Watcher) Start() error {
	watcher, err := fsnotify.NewWatcher()
	if err != nil {
		return err
	}
	w.watcher = watcher

	if addErr := watcher.Add(w.dir); addErr != nil {
		watcher.Close()
		return addErr
	}

	w.logger.Info("Directory watcher started", "dir", w.dir, "debounce", w.debounce)
	go w.watch()
	return nil
}

// Stop stops watching and cancels pending debounce timers. The events
// channel is not closed; consumers should select on their own context.
func (w *Watcher) Stop() error {
	w.cancel()

	w.mu.Lock()
	for path, timer := range w.timers {
		timer.Stop()
		delete(w.timers, path)
	}
	w.mu.Unlock()

	if w.watcher != nil {
		return w.watcher.Close()
	}
	return nil
}

// Events returns the channel of coalesced watcher events.
func (w *Watcher) Events() <-chan Event {
	return w.events
}

// watch is the main loop translating fsnotify events.
func (w *Watcher) watch() {
	for {
		select {
		case <-w.ctx.Done():
			w.logger.Debug("Directory watcher stopped")
			return

		case event, ok := <-w.watcher.Events:
			if !ok {
				return
			}
			w.handleEvent(event)

		case err, ok := <-w.watcher.Errors:
			if !ok {
				return
			}
			w.logger.Warn("Directory watcher error", "error", err)
		}
	}
}

func (w *Watcher) handleEvent(event fsnotify.Event) {
	name := filepath.Base(event.Name)
	if !w.recognized(name) {
		return
	}

	switch {
	case event.Op&(fsnotify.Create|fsnotify.Write) != 0:
		// Copies arrive as create followed by a burst of writes. Reset the
		// per-path timer on each one so we only act once the file is quiet.
		w.logger.Debug("File change detected", "path", event.Name, "op", event.Op.String())
		w.resetTimer(event.Name)

	case event.Op&(fsnotify.Remove|fsnotify.Rename) != 0:
		w.logger.Debug("File removal detected", "path", event.Name, "op", event.Op.String())
		w.cancelTimer(event.Name)
		w.emit(Event{Kind: Removed, Path: event.Name})
	}
}

func (w *Watcher) resetTimer(path string) {
	w.mu.Lock()
	defer w.mu.Unlock()

	if timer, ok := w.timers[path]; ok {
		timer.Stop()
	}
	w.timers[path] = time.AfterFunc(w.debounce, func() {
		w.mu.Lock()
		delete(w.timers, path)
		w.mu.Unlock()
		w.emit(Event{Kind: Created, Path: path})
	})
}

func (w *Watcher) cancelTimer(path string) {
	w.mu.Lock()
	defer w.mu.Unlock()

	if timer, ok := w.timers[path]; ok {
		timer.Stop()
		delete(w.timers, path)
	}
}

func (w *Watcher) emit(ev Event) {
	select {
	case <-w.ctx.Done():
	case w.events <- ev:
	}
}

// recognized reports whether name looks like a video file we should manage.
// Hidden files are skipped regardless of extension.
func (w *Watcher) recognized(name string) bool {
	base := filepath.Base(name)
	if strings.HasPrefix(base, ".") {
		return false
	}
	_, ok := w.extensions[strings.ToLower(filepath.Ext(base))]
	return ok
}
