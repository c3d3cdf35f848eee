package watcher

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"time"

	"github.com/bmatcuk/doublestar/v4"
	"github.com/fsnotify/fsnotify"
	"github.com/samber/lo"
	"go.uber.org/zap"
)

const (
	DefaultStep     = 50 * time.Millisecond
	DefaultDebounce = 1600 * time.Millisecond
)

type root struct {
	path  string
	isDir bool
}

type Watcher struct {
	Paths    []string
	Excludes []string

	// Step is the quiet period that closes a batch. Zero or less disables
	// coalescing and emits one batch per event.
	Step time.Duration
	// Debounce caps the time a batch stays open while events keep coming.
	Debounce time.Duration

	logger    *zap.Logger
	roots     []root
	fswatcher *fsnotify.Watcher
	batches   chan Batch
	stopped   bool
	mu        sync.Mutex
}

func New(paths []string, excludes []string, logger *zap.Logger) *Watcher {
	return &Watcher{
		Paths:    paths,
		Excludes: excludes,
		Step:     DefaultStep,
		Debounce: DefaultDebounce,

		logger: logger.Named("watcher"),
	}
}

// Watch starts watching and returns the channel of change batches. The
// channel is closed when ctx is cancelled; a stopped watcher can't be started
// again.
func (w *Watcher) Watch(ctx context.Context, wg *sync.WaitGroup) (BatchesChannel, error) {
	w.mu.Lock()
	defer w.mu.Unlock()

	if w.batches != nil {
		return w.batches, nil
	}
	if w.stopped {
		return nil, ErrStopped
	}

	roots, err := w.prepareRoots()
	if err != nil {
		return nil, err
	}
	w.roots = roots

	w.fswatcher, err = fsnotify.NewWatcher()
	if err != nil {
		return nil, fmt.Errorf("can't create watcher: %w", err)
	}

	for _, r := range w.roots {
		if r.isDir {
			err = w.addRecursive(r, r.path)
		} else {
			// editors often replace files on save, so the parent is watched
			err = w.add(filepath.Dir(r.path))
		}
		if err != nil {
			_ = w.fswatcher.Close()
			w.fswatcher = nil
			return nil, err
		}
	}

	w.batches = make(chan Batch)
	fswatcher, batches := w.fswatcher, w.batches

	wg.Add(1)
	go func() {
		defer func() {
			w.mu.Lock()
			_ = fswatcher.Close()
			close(batches)
			w.fswatcher = nil
			w.batches = nil
			w.stopped = true
			w.mu.Unlock()
			wg.Done()
		}()

		w.loop(ctx, fswatcher, batches)
	}()

	return w.batches, nil
}

func (w *Watcher) loop(ctx context.Context, fswatcher *fsnotify.Watcher, batches chan<- Batch) {
	pending := newBatcher()

	step := time.NewTimer(time.Hour)
	step.Stop()
	window := time.NewTimer(time.Hour)
	window.Stop()
	defer step.Stop()
	defer window.Stop()

	flush := func() bool {
		step.Stop()
		window.Stop()

		batch := pending.flush()
		if batch == nil {
			return true
		}

		batchesTotal.Inc()
		select {
		case batches <- batch:
			return true
		case <-ctx.Done():
			return false
		}
	}

	for {
		select {
		case source, ok := <-fswatcher.Events:
			if !ok {
				return
			}

			event, ok := w.processEvent(source)
			if !ok {
				continue
			}

			added := pending.add(event)
			if added {
				eventsTotal.WithLabelValues(string(event.Type)).Inc()
			}

			if w.Step <= 0 {
				if !flush() {
					return
				}
				continue
			}

			if added && pending.len() == 1 && w.Debounce > 0 {
				window.Reset(w.Debounce)
			}
			step.Reset(w.Step)

		case <-step.C:
			if !flush() {
				return
			}
		case <-window.C:
			if !flush() {
				return
			}

		case err, ok := <-fswatcher.Errors:
			if !ok {
				return
			}
			errorsTotal.Inc()
			if errors.Is(err, fsnotify.ErrEventOverflow) {
				w.logger.Warn("event queue overflow, some changes may be missed", zap.Error(err))
				continue
			}
			w.logger.Error("watch error", zap.Error(err))

		case <-ctx.Done():
			return
		}
	}
}

func (w *Watcher) processEvent(source fsnotify.Event) (Event, bool) {
	if source.Name == "" || source.Name == "." {
		return Event{}, false
	}

	kind, ok := eventType(source.Op)
	if !ok {
		return Event{}, false
	}

	r, ok := w.rootFor(source.Name)
	if !ok || w.isExcluded(r, source.Name) {
		return Event{}, false
	}

	if kind == EventAdded && r.isDir {
		if isDir, _ := w.isDir(source.Name); isDir {
			if err := w.addRecursive(r, source.Name); err != nil {
				w.logger.Error("can't watch new directory", zap.String("path", source.Name), zap.Error(err))
			}
		}
	} else if kind == EventDeleted {
		prefix := source.Name + string(filepath.Separator)
		for _, entry := range w.fswatcher.WatchList() {
			if entry == source.Name || strings.HasPrefix(entry, prefix) {
				_ = w.fswatcher.Remove(entry)
			}
		}
	}

	w.logger.Debug("event", zap.Stringer("source", source))

	return Event{
		Path: source.Name,
		Type: kind,
	}, true
}

func (w *Watcher) rootFor(fullpath string) (root, bool) {
	return lo.Find(w.roots, func(r root) bool {
		if !r.isDir {
			return fullpath == r.path
		}
		return fullpath == r.path || strings.HasPrefix(fullpath, r.path+string(filepath.Separator))
	})
}

func (w *Watcher) isExcluded(r root, fullpath string) bool {
	rel := filepath.Base(fullpath)
	if r.isDir {
		var err error
		if rel, err = filepath.Rel(r.path, fullpath); err != nil || rel == "." {
			return false
		}
	}
	rel = filepath.ToSlash(rel)

	return lo.SomeBy(w.Excludes, func(pattern string) bool {
		return doublestar.MatchUnvalidated(pattern, rel)
	})
}

func (w *Watcher) isDir(fullpath string) (bool, error) {
	info, err := os.Stat(fullpath)
	if err != nil {
		return false, fmt.Errorf("can't stat %s: %w", fullpath, err)
	}

	return info.IsDir(), nil
}

func (w *Watcher) prepareRoots() ([]root, error) {
	roots := make([]root, 0, len(w.Paths))
	for _, p := range w.Paths {
		abs, err := filepath.Abs(p)
		if err != nil {
			return nil, fmt.Errorf("can't resolve %s: %w", p, err)
		}

		info, err := os.Stat(abs)
		if errors.Is(err, os.ErrNotExist) {
			w.logger.Warn("path does not exist, skipping", zap.String("path", p))
			continue
		}
		if err != nil {
			return nil, fmt.Errorf("can't stat %s: %w", abs, err)
		}

		roots = append(roots, root{path: abs, isDir: info.IsDir()})
	}

	roots = lo.UniqBy(roots, func(r root) string { return r.path })
	if len(roots) == 0 {
		return nil, fmt.Errorf("%w: %s", ErrNothingToWatch, strings.Join(w.Paths, ", "))
	}

	return roots, nil
}

func (w *Watcher) add(path string) error {
	if err := w.fswatcher.Add(path); err != nil {
		return fmt.Errorf("can't watch %s: %w", path, err)
	}

	return nil
}

func (w *Watcher) addRecursive(r root, path string) error {
	if path != r.path && w.isExcluded(r, path) {
		return nil
	}

	if err := w.add(path); err != nil {
		return err
	}

	entries, err := os.ReadDir(path)
	if err != nil {
		return fmt.Errorf("can't read directory %s: %w", path, err)
	}

	for _, entry := range entries {
		if !entry.IsDir() {
			continue
		}

		if err := w.addRecursive(r, filepath.Join(path, entry.Name())); err != nil {
			return err
		}
	}

	return nil
}
