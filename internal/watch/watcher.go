// Package watch re-stages files whenever they are written.
package watch

import (
	"context"
	"fmt"
	"path/filepath"
	"sync"
	"time"

	"loki/internal/digest"

	"github.com/fsnotify/fsnotify"
	"go.uber.org/zap"
)

// DefaultDebounce is how long a file must stay quiet before it is staged.
const DefaultDebounce = 200 * time.Millisecond

// StageFunc stages one path, given relative to the repository root.
type StageFunc func(path string) (digest.Digest, error)

// Watcher watches a fixed set of files and stages each one after a burst
// of writes settles. Staging runs on the Run goroutine only, one file at a
// time.
type Watcher struct {
	watcher  *fsnotify.Watcher
	stage    StageFunc
	notify   func(path string, hash digest.Digest)
	debounce time.Duration
	logger   *zap.Logger

	targets map[string]string // absolute path -> staged path
	ready   chan string
	done    chan struct{}

	mu      sync.Mutex
	pending map[string]*time.Timer
}

type Option func(*Watcher)

func WithDebounce(d time.Duration) Option {
	return func(w *Watcher) {
		w.debounce = d
	}
}

func WithLogger(logger *zap.Logger) Option {
	return func(w *Watcher) {
		w.logger = logger
	}
}

// WithNotify registers a callback run after each successful stage.
func WithNotify(fn func(path string, hash digest.Digest)) Option {
	return func(w *Watcher) {
		w.notify = fn
	}
}

// New watches paths under root. Paths are relative to root and are passed
// to stage unchanged. The parent directories are watched rather than the
// files, so editors that save by renaming a temp file are still seen.
func New(root string, paths []string, stage StageFunc, opts ...Option) (*Watcher, error) {
	if len(paths) == 0 {
		return nil, fmt.Errorf("no files to watch")
	}

	fw, err := fsnotify.NewWatcher()
	if err != nil {
		return nil, fmt.Errorf("creating file watcher: %w", err)
	}

	w := &Watcher{
		watcher:  fw,
		stage:    stage,
		debounce: DefaultDebounce,
		logger:   zap.NewNop(),
		targets:  make(map[string]string),
		ready:    make(chan string),
		done:     make(chan struct{}),
		pending:  make(map[string]*time.Timer),
	}
	for _, opt := range opts {
		opt(w)
	}

	dirs := make(map[string]bool)
	for _, p := range paths {
		abs := filepath.Clean(filepath.Join(root, filepath.FromSlash(p)))
		w.targets[abs] = p

		dir := filepath.Dir(abs)
		if dirs[dir] {
			continue
		}
		if err := fw.Add(dir); err != nil {
			fw.Close()
			return nil, fmt.Errorf("watching %s: %w", dir, err)
		}
		dirs[dir] = true
	}

	return w, nil
}

// Run processes events until ctx is cancelled. It closes the watcher on
// return.
func (w *Watcher) Run(ctx context.Context) error {
	defer w.shutdown()

	for {
		select {
		case <-ctx.Done():
			return nil

		case event, ok := <-w.watcher.Events:
			if !ok {
				return nil
			}
			w.handleEvent(event)

		case err, ok := <-w.watcher.Errors:
			if !ok {
				return nil
			}
			w.logger.Error("watcher error", zap.Error(err))

		case path := <-w.ready:
			w.stageFile(path)
		}
	}
}

func (w *Watcher) handleEvent(event fsnotify.Event) {
	path, ok := w.targets[filepath.Clean(event.Name)]
	if !ok {
		return
	}
	// Removes and renames away are ignored; the file usually comes back
	if !event.Has(fsnotify.Write) && !event.Has(fsnotify.Create) {
		return
	}

	w.mu.Lock()
	defer w.mu.Unlock()

	if t, ok := w.pending[path]; ok {
		t.Reset(w.debounce)
		return
	}
	// A fired timer drops out of pending before handing off, so a later
	// event starts a fresh timer instead of resetting a spent one.
	var t *time.Timer
	t = time.AfterFunc(w.debounce, func() {
		w.mu.Lock()
		if w.pending[path] == t {
			delete(w.pending, path)
		}
		w.mu.Unlock()

		select {
		case w.ready <- path:
		case <-w.done:
		}
	})
	w.pending[path] = t
}

func (w *Watcher) stageFile(path string) {
	hash, err := w.stage(path)
	if err != nil {
		w.logger.Warn("staging failed", zap.String("path", path), zap.Error(err))
		return
	}

	w.logger.Debug("staged", zap.String("path", path), zap.String("hash", hash.String()))
	if w.notify != nil {
		w.notify(path, hash)
	}
}

func (w *Watcher) shutdown() {
	close(w.done)

	w.mu.Lock()
	for _, t := range w.pending {
		t.Stop()
	}
	w.pending = nil
	w.mu.Unlock()

	w.watcher.Close()
}
