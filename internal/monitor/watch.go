package monitor

import (
	"context"
	"errors"
	"fmt"
	"path/filepath"
	"time"

	"github.com/fsnotify/fsnotify"
	"go.uber.org/zap"
)

// DefaultDebounce coalesces the bursts an atomic rename produces.
const DefaultDebounce = 100 * time.Millisecond

// ErrWatcherFailed is returned when the filesystem watcher cannot start.
var ErrWatcherFailed = errors.New("state watcher failed")

// Watcher reports changes to the JSON records in a state directory.
type Watcher struct {
	dir      string
	debounce time.Duration
	logger   *zap.Logger
	watcher  *fsnotify.Watcher
	changes  chan struct{}
	stop     chan struct{}
}

// WatchOption configures a Watcher.
type WatchOption func(*Watcher)

// WithDebounce sets the quiet period before a change is reported.
func WithDebounce(d time.Duration) WatchOption {
	return func(w *Watcher) {
		if d > 0 {
			w.debounce = d
		}
	}
}

// WithWatchLogger sets the logger for watcher errors.
func WithWatchLogger(logger *zap.Logger) WatchOption {
	return func(w *Watcher) {
		if logger != nil {
			w.logger = logger
		}
	}
}

// NewWatcher watches dir, which must exist.
func NewWatcher(dir string, opts ...WatchOption) (*Watcher, error) {
	fw, err := fsnotify.NewWatcher()
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrWatcherFailed, err)
	}
	if err := fw.Add(dir); err != nil {
		_ = fw.Close()
		return nil, fmt.Errorf("%w: watching %s: %v", ErrWatcherFailed, dir, err)
	}

	w := &Watcher{
		dir:      dir,
		debounce: DefaultDebounce,
		logger:   zap.NewNop(),
		watcher:  fw,
		changes:  make(chan struct{}, 1),
		stop:     make(chan struct{}),
	}
	for _, opt := range opts {
		opt(w)
	}
	return w, nil
}

// Start processes events until ctx is done or Stop is called. The
// Changes channel is closed when processing ends.
func (w *Watcher) Start(ctx context.Context) {
	go w.processEvents(ctx)
}

// Changes delivers at most one pending notification at a time.
func (w *Watcher) Changes() <-chan struct{} {
	return w.changes
}

// Stop stops the watcher. It is safe to call more than once.
func (w *Watcher) Stop() {
	select {
	case <-w.stop:
		return
	default:
		close(w.stop)
		_ = w.watcher.Close()
	}
}

func (w *Watcher) processEvents(ctx context.Context) {
	defer close(w.changes)

	var timer *time.Timer
	var fire <-chan time.Time
	defer func() {
		if timer != nil {
			timer.Stop()
		}
	}()

	for {
		select {
		case <-w.stop:
			return
		case <-ctx.Done():
			return
		case event, ok := <-w.watcher.Events:
			if !ok {
				return
			}
			if !relevant(event) {
				continue
			}
			if timer == nil {
				timer = time.NewTimer(w.debounce)
			} else {
				timer.Reset(w.debounce)
			}
			fire = timer.C
		case <-fire:
			fire = nil
			w.notify()
		case err, ok := <-w.watcher.Errors:
			if !ok {
				return
			}
			w.logger.Warn("state watcher error", zap.String("dir", w.dir), zap.Error(err))
		}
	}
}

func (w *Watcher) notify() {
	select {
	case w.changes <- struct{}{}:
	default:
	}
}

// relevant reports whether event touches a state record. Temp files from
// atomic writes are skipped; the rename onto the record is what counts.
func relevant(event fsnotify.Event) bool {
	if filepath.Ext(event.Name) != ".json" {
		return false
	}
	return event.Op&(fsnotify.Create|fsnotify.Write|fsnotify.Rename|fsnotify.Remove) != 0
}
