// Package watch triggers catalog reloads when CSV sources change on disk.
// Editor save patterns produce bursts of filesystem events, so reloads are
// debounced: the catalog rebuilds once per burst, not once per event.
package watch

import (
	"context"
	"fmt"
	"path/filepath"
	"strings"
	"time"

	"github.com/fsnotify/fsnotify"
	"github.com/okian/hoopdex/pkg/logger"
)

const defaultDebounce = 500 * time.Millisecond

// Reloader rebuilds and republishes the catalog from the current sources.
type Reloader interface {
	Reload(ctx context.Context) error
}

// ReloaderFunc adapts a plain function to the Reloader interface.
type ReloaderFunc func(ctx context.Context) error

// Reload calls the wrapped function.
func (f ReloaderFunc) Reload(ctx context.Context) error {
	return f(ctx)
}

// Option applies a configuration option to the Watcher.
type Option func(*Watcher)

// WithDebounce overrides the event coalescing window.
func WithDebounce(d time.Duration) Option {
	return func(w *Watcher) {
		if d > 0 {
			w.debounce = d
		}
	}
}

// WithLogger sets a custom logger for the watcher.
func WithLogger(l logger.Logger) Option {
	return func(w *Watcher) {
		if l != nil {
			w.logger = l
		}
	}
}

// Watcher observes one source directory and calls the reloader after each
// settled burst of CSV changes.
type Watcher struct {
	dir      string
	debounce time.Duration
	reloader Reloader
	logger   logger.Logger
	fsw      *fsnotify.Watcher
}

// New starts watching dir. Call Run to begin dispatching reloads and
// Close to release the inotify handle.
func New(dir string, r Reloader, opts ...Option) (*Watcher, error) {
	fsw, err := fsnotify.NewWatcher()
	if err != nil {
		return nil, fmt.Errorf("create watcher: %w", err)
	}
	if err := fsw.Add(dir); err != nil {
		_ = fsw.Close()
		return nil, fmt.Errorf("watch %q: %w", dir, err)
	}

	w := &Watcher{
		dir:      dir,
		debounce: defaultDebounce,
		reloader: r,
		fsw:      fsw,
	}
	for _, opt := range opts {
		opt(w)
	}
	if w.logger == nil {
		w.logger = logger.Get().Named("watch")
	}
	return w, nil
}

// Close stops the underlying filesystem watcher.
func (w *Watcher) Close() error {
	return w.fsw.Close()
}

// Run blocks dispatching reloads until ctx is canceled or the watcher is
// closed. A failed reload is logged and the previous generation stays
// live; the next source change tries again.
func (w *Watcher) Run(ctx context.Context) error {
	var (
		timer   *time.Timer
		pending <-chan time.Time
	)

	for {
		select {
		case <-ctx.Done():
			return ctx.Err()

		case ev, ok := <-w.fsw.Events:
			if !ok {
				return nil
			}
			if !w.relevant(ev) {
				continue
			}
			w.logger.Debug(ctx, "source change observed",
				logger.String("file", ev.Name),
				logger.String("op", ev.Op.String()),
			)
			if timer == nil {
				timer = time.NewTimer(w.debounce)
			} else {
				if !timer.Stop() {
					select {
					case <-timer.C:
					default:
					}
				}
				timer.Reset(w.debounce)
			}
			pending = timer.C

		case <-pending:
			pending = nil
			if err := w.reloader.Reload(ctx); err != nil {
				w.logger.Warn(ctx, "reload after source change failed",
					logger.String("dir", w.dir),
					logger.Error(err),
				)
				continue
			}
			w.logger.Info(ctx, "catalog reloaded after source change",
				logger.String("dir", w.dir))

		case err, ok := <-w.fsw.Errors:
			if !ok {
				return nil
			}
			w.logger.Warn(ctx, "watcher error", logger.Error(err))
		}
	}
}

// relevant keeps only mutations of CSV files; chmod noise and editor
// temp files are ignored.
func (w *Watcher) relevant(ev fsnotify.Event) bool {
	if ev.Op&(fsnotify.Create|fsnotify.Write|fsnotify.Remove|fsnotify.Rename) == 0 {
		return false
	}
	return strings.EqualFold(filepath.Ext(ev.Name), ".csv")
}
