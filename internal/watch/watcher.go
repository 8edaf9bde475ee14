// Package watch reruns schema generation whenever the WIT source changes.
// Editors save in bursts (and some replace the file), so events are
// debounced before the pipeline runs.
package watch

import (
	"context"
	"path/filepath"
	"sync"
	"time"

	"github.com/fsnotify/fsnotify"
	"go.uber.org/zap"
)

const defaultDebounce = 500 * time.Millisecond

// Watcher triggers a regenerate callback when the watched WIT source is
// written, created, or renamed into place.
type Watcher struct {
	mu       sync.Mutex
	fsw      *fsnotify.Watcher
	path     string // absolute path of the WIT source
	regen    func() error
	logger   *zap.Logger
	debounce time.Duration
	pending  time.Time // zero when no event is waiting
	stopCh   chan struct{}
	doneCh   chan struct{}
	running  bool
	stats    Stats
}

// Stats tracks watcher activity for tests and debugging.
type Stats struct {
	Runs   int
	Errors int
}

// New creates a Watcher for the given WIT source path. regen is invoked
// after events settle; its errors are logged and counted, never fatal (the
// next save retries).
func New(path string, regen func() error, logger *zap.Logger) (*Watcher, error) {
	abs, err := filepath.Abs(path)
	if err != nil {
		return nil, err
	}
	fsw, err := fsnotify.NewWatcher()
	if err != nil {
		return nil, err
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Watcher{
		fsw:      fsw,
		path:     abs,
		regen:    regen,
		logger:   logger,
		debounce: defaultDebounce,
		stopCh:   make(chan struct{}),
		doneCh:   make(chan struct{}),
	}, nil
}

// SetDebounce overrides the settle window. Call before Start.
func (w *Watcher) SetDebounce(d time.Duration) {
	w.debounce = d
}

// Start begins watching the source's directory. Non-blocking; the event
// loop runs in a goroutine until Stop or context cancellation.
func (w *Watcher) Start(ctx context.Context) error {
	w.mu.Lock()
	if w.running {
		w.mu.Unlock()
		return nil
	}
	w.running = true
	w.mu.Unlock()

	// Watch the directory, not the file: editors that write via
	// rename-over would otherwise drop the watch.
	if err := w.fsw.Add(filepath.Dir(w.path)); err != nil {
		// The event loop never started; leave the watcher stopped so a
		// later Stop does not wait on it.
		w.mu.Lock()
		w.running = false
		w.mu.Unlock()
		if cerr := w.fsw.Close(); cerr != nil {
			w.logger.Error("closing fsnotify watcher", zap.Error(cerr))
		}
		return err
	}
	w.logger.Info("watching wit source", zap.String("path", w.path))

	go w.run(ctx)
	return nil
}

// Stop shuts the watcher down and waits for the event loop to exit.
func (w *Watcher) Stop() {
	w.mu.Lock()
	if !w.running {
		w.mu.Unlock()
		return
	}
	w.running = false
	w.mu.Unlock()

	close(w.stopCh)
	<-w.doneCh

	if err := w.fsw.Close(); err != nil {
		w.logger.Error("closing fsnotify watcher", zap.Error(err))
	}
}

// GetStats returns a snapshot of run/error counts.
func (w *Watcher) GetStats() Stats {
	w.mu.Lock()
	defer w.mu.Unlock()
	return w.stats
}

func (w *Watcher) run(ctx context.Context) {
	defer close(w.doneCh)

	ticker := time.NewTicker(50 * time.Millisecond)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-w.stopCh:
			return
		case event, ok := <-w.fsw.Events:
			if !ok {
				return
			}
			w.handleEvent(event)
		case err, ok := <-w.fsw.Errors:
			if !ok {
				return
			}
			w.logger.Error("watch error", zap.Error(err))
			w.mu.Lock()
			w.stats.Errors++
			w.mu.Unlock()
		case <-ticker.C:
			w.flush()
		}
	}
}

func (w *Watcher) handleEvent(event fsnotify.Event) {
	if filepath.Clean(event.Name) != w.path {
		return
	}
	if event.Op&(fsnotify.Write|fsnotify.Create|fsnotify.Rename) == 0 {
		return
	}
	w.logger.Debug("wit source changed", zap.String("op", event.Op.String()))
	w.mu.Lock()
	w.pending = time.Now()
	w.mu.Unlock()
}

// flush runs the pipeline once the last event has settled past the
// debounce window.
func (w *Watcher) flush() {
	w.mu.Lock()
	if w.pending.IsZero() || time.Since(w.pending) < w.debounce {
		w.mu.Unlock()
		return
	}
	w.pending = time.Time{}
	w.mu.Unlock()

	err := w.regen()

	w.mu.Lock()
	w.stats.Runs++
	if err != nil {
		w.stats.Errors++
	}
	w.mu.Unlock()

	if err != nil {
		w.logger.Error("regeneration failed", zap.Error(err))
	} else {
		w.logger.Info("regenerated schema artifacts")
	}
}
