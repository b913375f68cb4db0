package file

import (
	"context"
	"io/fs"
	"log/slog"
	"os"
	"path/filepath"
	"sort"
	"time"

	"github.com/aretw0/dynamo/internal/logging"
	"github.com/fsnotify/fsnotify"
)

// DefaultDebounce groups bursts of filesystem events (editors often write a
// file several times) into one notification per document.
const DefaultDebounce = 150 * time.Millisecond

// Watcher implements ports.Watchable over a Store directory.
type Watcher struct {
	store    *Store
	logger   *slog.Logger
	debounce time.Duration
}

// WatchOption configures a Watcher.
type WatchOption func(*Watcher)

// WithWatchLogger sets the logger of the watcher.
func WithWatchLogger(logger *slog.Logger) WatchOption {
	return func(w *Watcher) {
		w.logger = logger
	}
}

// WithDebounce overrides DefaultDebounce.
func WithDebounce(d time.Duration) WatchOption {
	return func(w *Watcher) {
		w.debounce = d
	}
}

// NewWatcher creates a watcher for the documents of s.
func NewWatcher(s *Store, opts ...WatchOption) *Watcher {
	w := &Watcher{store: s, logger: logging.NewNop(), debounce: DefaultDebounce}
	for _, opt := range opts {
		opt(w)
	}
	return w
}

// Watch starts an fsnotify watcher on the store directory and sends the
// name of every changed document until ctx is cancelled. Directories created
// later are added to the watch list.
func (w *Watcher) Watch(ctx context.Context) (<-chan string, error) {
	if err := os.MkdirAll(w.store.BasePath, 0755); err != nil {
		return nil, err
	}
	fw, err := fsnotify.NewWatcher()
	if err != nil {
		return nil, err
	}
	if err := addDirsRecursive(fw, w.store.BasePath); err != nil {
		_ = fw.Close()
		return nil, err
	}

	out := make(chan string)
	go w.loop(ctx, fw, out)
	w.logger.Info("watcher: started", "root", w.store.BasePath)
	return out, nil
}

func (w *Watcher) loop(ctx context.Context, fw *fsnotify.Watcher, out chan<- string) {
	defer close(out)
	defer fw.Close()

	pending := make(map[string]bool)
	var timer *time.Timer
	var fire <-chan time.Time
	schedule := func() {
		if timer == nil {
			timer = time.NewTimer(w.debounce)
			fire = timer.C
		} else {
			timer.Reset(w.debounce)
		}
	}

	for {
		select {
		case <-ctx.Done():
			if timer != nil {
				timer.Stop()
			}
			w.logger.Info("watcher: stopped")
			return

		case <-fire:
			names := make([]string, 0, len(pending))
			for name := range pending {
				names = append(names, name)
			}
			sort.Strings(names)
			pending = make(map[string]bool)
			for _, name := range names {
				select {
				case out <- name:
				case <-ctx.Done():
					return
				}
			}

		case ev, ok := <-fw.Events:
			if !ok {
				return
			}
			if ev.Op&fsnotify.Create != 0 {
				if info, err := os.Stat(ev.Name); err == nil && info.IsDir() {
					if err := addDirsRecursive(fw, ev.Name); err != nil {
						w.logger.Warn("watcher: add new dir failed", "path", ev.Name, "err", err)
					}
					continue
				}
			}
			if !IsDocument(ev.Name) {
				continue
			}
			rel, err := filepath.Rel(w.store.BasePath, ev.Name)
			if err != nil {
				continue
			}
			w.logger.Debug("watcher: document changed", "path", rel, "op", ev.Op.String())
			pending[filepath.ToSlash(rel)] = true
			schedule()

		case err, ok := <-fw.Errors:
			if !ok {
				return
			}
			w.logger.Error("watcher: error", "err", err)
		}
	}
}

// addDirsRecursive adds root and all its subdirectories to the watcher.
func addDirsRecursive(w *fsnotify.Watcher, root string) error {
	return filepath.WalkDir(root, func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			return err
		}
		if d.IsDir() {
			return w.Add(path)
		}
		return nil
	})
}

// WatchedStore is a Store that also reports changed documents.
type WatchedStore struct {
	*Store
	*Watcher
}

// NewWatchedStore creates a watchable store rooted at basePath.
func NewWatchedStore(basePath string, opts ...WatchOption) *WatchedStore {
	s := New(basePath)
	return &WatchedStore{Store: s, Watcher: NewWatcher(s, opts...)}
}
