// Package watcher notices index files written into the index directory by
// other processes of the node and hands them to a reload function.
package watcher

import (
	"context"
	"errors"
	"fmt"
	"path/filepath"
	"sync"
	"time"

	"github.com/fsnotify/fsnotify"

	"github.com/bitdust-io/devel-sub003/internal/logger"
)

// DefaultDelay lets a burst of writes to one file settle before reloading
const DefaultDelay = 200 * time.Millisecond

// Handler is called once per settled file name
type Handler func(ctx context.Context, name string)

// Watcher watches one directory, non recursively
type Watcher struct {
	dir     string
	delay   time.Duration
	handler Handler
	accept  func(name string) bool
	log     logger.Logger

	fsw *fsnotify.Watcher

	mu      sync.Mutex
	timers  map[string]*time.Timer
	ignored map[string]time.Time
	running bool
	fired   int

	stop chan struct{}
	done chan struct{}
}

// New creates a watcher for dir. accept selects the file names that matter;
// nil accepts every name.
func New(dir string, delay time.Duration, accept func(name string) bool, handler Handler, log logger.Logger) (*Watcher, error) {
	if handler == nil {
		return nil, fmt.Errorf("handler cannot be nil")
	}
	if delay <= 0 {
		delay = DefaultDelay
	}
	if accept == nil {
		accept = func(string) bool { return true }
	}
	if log == nil {
		log = logger.Get()
	}
	return &Watcher{
		dir:     dir,
		delay:   delay,
		handler: handler,
		accept:  accept,
		log:     log,
		timers:  make(map[string]*time.Timer),
		ignored: make(map[string]time.Time),
	}, nil
}

// Start begins watching. The watcher stops when ctx is done or Stop is called.
func (w *Watcher) Start(ctx context.Context) error {
	w.mu.Lock()
	defer w.mu.Unlock()
	if w.running {
		return fmt.Errorf("watcher is already running")
	}

	fsw, err := fsnotify.NewWatcher()
	if err != nil {
		return fmt.Errorf("failed to create watcher: %w", err)
	}
	if err := fsw.Add(w.dir); err != nil {
		fsw.Close()
		return fmt.Errorf("failed to watch %s: %w", w.dir, err)
	}

	w.fsw = fsw
	w.running = true
	w.stop = make(chan struct{})
	w.done = make(chan struct{})
	go w.run(ctx, fsw, w.stop, w.done)

	w.log.Info("Watching index directory", "dir", w.dir)
	return nil
}

func (w *Watcher) run(ctx context.Context, fsw *fsnotify.Watcher, stop, done chan struct{}) {
	defer close(done)
	for {
		select {
		case <-ctx.Done():
			return
		case <-stop:
			return
		case ev, ok := <-fsw.Events:
			if !ok {
				return
			}
			w.handle(ctx, ev)
		case err, ok := <-fsw.Errors:
			if !ok {
				return
			}
			w.log.Warn("Watcher error", "dir", w.dir, "error", err)
		}
	}
}

func (w *Watcher) handle(ctx context.Context, ev fsnotify.Event) {
	if !ev.Has(fsnotify.Create) && !ev.Has(fsnotify.Write) {
		return
	}
	name := filepath.Base(ev.Name)
	if !w.accept(name) {
		return
	}

	w.mu.Lock()
	defer w.mu.Unlock()
	if until, ok := w.ignored[name]; ok {
		if time.Now().Before(until) {
			return
		}
		delete(w.ignored, name)
	}
	if t, ok := w.timers[name]; ok {
		t.Reset(w.delay)
		return
	}
	w.timers[name] = time.AfterFunc(w.delay, func() {
		w.mu.Lock()
		delete(w.timers, name)
		w.fired++
		w.mu.Unlock()

		if ctx.Err() != nil {
			return
		}
		w.log.Debug("Index file changed", "name", name)
		w.handler(ctx, name)
	})
}

// Ignore drops events for name during d, used around our own writes
func (w *Watcher) Ignore(name string, d time.Duration) {
	w.mu.Lock()
	w.ignored[name] = time.Now().Add(d)
	w.mu.Unlock()
}

// Fired returns how many times the handler was triggered
func (w *Watcher) Fired() int {
	w.mu.Lock()
	defer w.mu.Unlock()
	return w.fired
}

// Stop ends watching and cancels pending reloads
func (w *Watcher) Stop() error {
	w.mu.Lock()
	if !w.running {
		w.mu.Unlock()
		return fmt.Errorf("watcher is not running")
	}
	w.running = false
	close(w.stop)
	fsw, done := w.fsw, w.done
	for name, t := range w.timers {
		t.Stop()
		delete(w.timers, name)
	}
	w.mu.Unlock()

	err := fsw.Close()
	<-done
	if err != nil && !errors.Is(err, fsnotify.ErrClosed) {
		return err
	}
	return nil
}
