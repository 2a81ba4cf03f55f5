// Package watch refreshes the session when the catalog export changes on disk.
package watch

import (
	"context"
	"path/filepath"
	"sync"
	"time"

	"github.com/fsnotify/fsnotify"
	"github.com/rs/zerolog"

	"github.com/agentstation/renewals/pkg/constants"
	"github.com/agentstation/renewals/pkg/errors"
)

// Refresher drops cached catalog data.
type Refresher interface {
	Refresh()
}

// Watcher monitors the directory holding the catalog export. Spreadsheet
// tools usually save through a temp file and a rename, so the directory is
// watched rather than the file itself.
type Watcher struct {
	path     string
	target   Refresher
	debounce time.Duration
	onChange func(path string)
	logger   *zerolog.Logger

	mu      sync.Mutex
	changes int
}

// Option configures a Watcher.
type Option func(*Watcher)

// WithDebounce sets how long the watcher waits for a burst of events to end.
func WithDebounce(d time.Duration) Option {
	return func(w *Watcher) { w.debounce = d }
}

// WithOnChange registers fn to run after each debounced refresh.
func WithOnChange(fn func(path string)) Option {
	return func(w *Watcher) { w.onChange = fn }
}

// WithLogger sets the logger.
func WithLogger(logger *zerolog.Logger) Option {
	return func(w *Watcher) {
		if logger != nil {
			w.logger = logger
		}
	}
}

// New returns a watcher that calls target.Refresh after path changes.
func New(path string, target Refresher, opts ...Option) *Watcher {
	if abs, err := filepath.Abs(path); err == nil {
		path = abs
	}
	nop := zerolog.Nop()
	w := &Watcher{
		path:     filepath.Clean(path),
		target:   target,
		debounce: constants.WatchDebounce,
		logger:   &nop,
	}
	for _, opt := range opts {
		opt(w)
	}
	return w
}

// Changes returns how many debounced refreshes have been issued.
func (w *Watcher) Changes() int {
	w.mu.Lock()
	defer w.mu.Unlock()
	return w.changes
}

// Start begins watching and returns once the watch is registered. The
// watcher stops when ctx is cancelled.
func (w *Watcher) Start(ctx context.Context) error {
	fsw, err := fsnotify.NewWatcher()
	if err != nil {
		return errors.WrapIO("watch", w.path, err)
	}
	dir := filepath.Dir(w.path)
	if err := fsw.Add(dir); err != nil {
		_ = fsw.Close()
		return errors.WrapIO("watch", dir, err)
	}

	w.logger.Info().Str("path", w.path).Dur("debounce", w.debounce).Msg("Watching catalog export")
	go w.loop(ctx, fsw)
	return nil
}

func (w *Watcher) loop(ctx context.Context, fsw *fsnotify.Watcher) {
	defer fsw.Close()

	timer := time.NewTimer(w.debounce)
	timer.Stop()
	defer timer.Stop()

	for {
		select {
		case <-ctx.Done():
			return

		case evt, ok := <-fsw.Events:
			if !ok {
				return
			}
			if !w.relevant(evt) {
				continue
			}
			w.logger.Debug().Str("event", evt.Op.String()).Str("file", evt.Name).Msg("Catalog export changed")
			timer.Reset(w.debounce)

		case <-timer.C:
			w.mu.Lock()
			w.changes++
			w.mu.Unlock()
			w.logger.Info().Str("path", w.path).Msg("Catalog export changed, refreshing")
			w.target.Refresh()
			if w.onChange != nil {
				w.onChange(w.path)
			}

		case err, ok := <-fsw.Errors:
			if !ok {
				return
			}
			w.logger.Warn().Err(err).Msg("Catalog watcher error")
		}
	}
}

// relevant reports whether evt touches the catalog file.
func (w *Watcher) relevant(evt fsnotify.Event) bool {
	if filepath.Clean(evt.Name) != w.path {
		return false
	}
	return evt.Op&(fsnotify.Write|fsnotify.Create|fsnotify.Rename|fsnotify.Remove) != 0
}
