// Package watcher reports changed files in a directory, debounced so an
// editor's save burst arrives as one batch.
package watcher

import (
	"fmt"
	"maps"
	"path/filepath"
	"slices"
	"strings"
	"time"

	"github.com/fsnotify/fsnotify"

	"github.com/zjrosen/hilite/internal/log"
)

// DefaultDebounce is the quiet period that ends a batch.
const DefaultDebounce = 200 * time.Millisecond

// Config holds watcher configuration options.
type Config struct {
	// Dir is the watched directory.
	Dir string
	// Match selects relevant files. Nil matches pattern files (*.yaml, *.yml).
	Match func(path string) bool
	// Debounce is the quiet period that ends a batch.
	Debounce time.Duration
}

// PatternFiles matches pattern-set files.
func PatternFiles(path string) bool {
	ext := strings.ToLower(filepath.Ext(path))
	return ext == ".yaml" || ext == ".yml"
}

// File returns a matcher for the single file path.
func File(path string) func(string) bool {
	want := filepath.Clean(path)
	return func(p string) bool { return filepath.Clean(p) == want }
}

// Watcher monitors a directory and sends batches of changed paths.
type Watcher struct {
	fsWatcher *fsnotify.Watcher
	cfg       Config
	onChange  chan []string
	done      chan struct{}
}

// New creates a watcher. Nothing is watched until Start.
func New(cfg Config) (*Watcher, error) {
	if cfg.Match == nil {
		cfg.Match = PatternFiles
	}
	if cfg.Debounce <= 0 {
		cfg.Debounce = DefaultDebounce
	}
	fsw, err := fsnotify.NewWatcher()
	if err != nil {
		return nil, fmt.Errorf("creating fsnotify watcher: %w", err)
	}
	return &Watcher{
		fsWatcher: fsw,
		cfg:       cfg,
		onChange:  make(chan []string, 1),
		done:      make(chan struct{}),
	}, nil
}

// Start begins watching. The returned channel receives the sorted, distinct
// paths changed during each debounce window.
func (w *Watcher) Start() (<-chan []string, error) {
	if err := w.fsWatcher.Add(w.cfg.Dir); err != nil {
		return nil, fmt.Errorf("watching directory %s: %w", w.cfg.Dir, err)
	}
	log.Debug(log.CatWatcher, "watching", "dir", w.cfg.Dir)
	go w.loop()
	return w.onChange, nil
}

// Stop terminates the watcher and releases resources.
func (w *Watcher) Stop() error {
	close(w.done)
	return w.fsWatcher.Close()
}

func (w *Watcher) loop() {
	var (
		timer   *time.Timer
		timerC  <-chan time.Time
		pending = make(map[string]struct{})
	)
	arm := func() {
		if timer == nil {
			timer = time.NewTimer(w.cfg.Debounce)
		} else {
			timer.Reset(w.cfg.Debounce)
		}
		timerC = timer.C
	}

	for {
		select {
		case event, ok := <-w.fsWatcher.Events:
			if !ok {
				return
			}
			if !w.isRelevantEvent(event) {
				continue
			}
			pending[event.Name] = struct{}{}
			arm()

		case <-timerC:
			timerC = nil
			if len(pending) == 0 {
				continue
			}
			batch := slices.Sorted(maps.Keys(pending))
			select {
			case w.onChange <- batch:
				clear(pending)
				log.Debug(log.CatWatcher, "change batch", "paths", len(batch))
			default:
				// The consumer has not taken the last batch; retry later
				// with whatever accumulates meanwhile.
				arm()
			}

		case err, ok := <-w.fsWatcher.Errors:
			if !ok {
				return
			}
			log.ErrorErr(log.CatWatcher, "watch error", err, "dir", w.cfg.Dir)

		case <-w.done:
			if timer != nil {
				timer.Stop()
			}
			return
		}
	}
}

func (w *Watcher) isRelevantEvent(event fsnotify.Event) bool {
	// Editors often save by rename, so creates count as writes.
	if event.Op&(fsnotify.Write|fsnotify.Create|fsnotify.Rename) == 0 {
		return false
	}
	return w.cfg.Match(event.Name)
}
