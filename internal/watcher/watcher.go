// Package watcher watches pipeline definition files and signals, after a
// debounce period, that they changed.
package watcher

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/fsnotify/fsnotify"
	"github.com/vk/streamgrid/internal/fsutil"
)

// Watcher monitors .hcl files under a set of paths.
type Watcher struct {
	fsWatcher *fsnotify.Watcher
	paths     []string
	files     map[string]bool
	dirs      []string
	debounce  time.Duration
	onChange  chan struct{}
	errs      chan error
	done      chan struct{}
}

// Config holds watcher configuration options.
type Config struct {
	// Paths are files or directories. Directories are watched recursively,
	// skipping hidden subdirectories.
	Paths       []string
	DebounceDur time.Duration
}

// DefaultConfig returns sensible defaults for the watcher.
func DefaultConfig(paths ...string) Config {
	return Config{
		Paths:       paths,
		DebounceDur: 300 * time.Millisecond,
	}
}

// New creates a new definition watcher.
func New(cfg Config) (*Watcher, error) {
	fsw, err := fsnotify.NewWatcher()
	if err != nil {
		return nil, fmt.Errorf("creating fsnotify watcher: %w", err)
	}

	return &Watcher{
		fsWatcher: fsw,
		paths:     cfg.Paths,
		files:     make(map[string]bool),
		debounce:  cfg.DebounceDur,
		onChange:  make(chan struct{}, 1),
		errs:      make(chan error, 1),
		done:      make(chan struct{}),
	}, nil
}

// Start begins watching. The returned channel receives a signal once the
// definitions stopped changing for the debounce period.
func (w *Watcher) Start() (<-chan struct{}, error) {
	for _, p := range w.paths {
		info, err := os.Stat(p)
		if err != nil {
			return nil, fmt.Errorf("watching %s: %w", p, err)
		}
		if !info.IsDir() {
			// Editors replace files on save, so the parent directory is
			// watched and events are filtered by name.
			abs, err := filepath.Abs(p)
			if err != nil {
				return nil, err
			}
			w.files[abs] = true
			if err := w.fsWatcher.Add(filepath.Dir(abs)); err != nil {
				return nil, fmt.Errorf("watching directory %s: %w", filepath.Dir(abs), err)
			}
			continue
		}
		abs, err := filepath.Abs(p)
		if err != nil {
			return nil, err
		}
		w.dirs = append(w.dirs, abs)
		if err := w.addTree(abs); err != nil {
			return nil, err
		}
	}

	go w.loop()

	return w.onChange, nil
}

// Errors reports watch errors. It is never closed.
func (w *Watcher) Errors() <-chan error {
	return w.errs
}

// Stop terminates the watcher and releases resources.
func (w *Watcher) Stop() error {
	close(w.done)
	return w.fsWatcher.Close()
}

func (w *Watcher) addTree(root string) error {
	dirs, err := fsutil.VisibleDirs(root)
	if err != nil {
		return fmt.Errorf("listing directories under %s: %w", root, err)
	}
	for _, dir := range dirs {
		if err := w.fsWatcher.Add(dir); err != nil {
			return fmt.Errorf("watching directory %s: %w", dir, err)
		}
	}
	return nil
}

// loop processes file system events with debouncing.
func (w *Watcher) loop() {
	var (
		timer   *time.Timer
		pending bool
	)

	for {
		select {
		case event, ok := <-w.fsWatcher.Events:
			if !ok {
				return
			}

			// A new directory may hold definitions later on.
			if event.Op&fsnotify.Create != 0 && w.inTree(event.Name) {
				if info, err := os.Stat(event.Name); err == nil && info.IsDir() {
					if err := w.addTree(event.Name); err != nil {
						w.report(err)
					}
					continue
				}
			}

			if !w.isRelevantEvent(event) {
				continue
			}

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
			pending = true

		case <-func() <-chan time.Time {
			if timer != nil {
				return timer.C
			}
			return nil
		}():
			if pending {
				// Non-blocking send - a queued signal already covers this change.
				select {
				case w.onChange <- struct{}{}:
				default:
				}
				pending = false
			}

		case err, ok := <-w.fsWatcher.Errors:
			if !ok {
				return
			}
			w.report(err)

		case <-w.done:
			if timer != nil {
				timer.Stop()
			}
			return
		}
	}
}

func (w *Watcher) report(err error) {
	select {
	case w.errs <- err:
	default:
	}
}

// isRelevantEvent checks if the event should trigger a reload.
func (w *Watcher) isRelevantEvent(event fsnotify.Event) bool {
	if event.Op&(fsnotify.Write|fsnotify.Create|fsnotify.Remove|fsnotify.Rename) == 0 {
		return false
	}
	abs, err := filepath.Abs(event.Name)
	if err != nil {
		return false
	}
	if w.files[abs] {
		return true
	}
	return w.inTree(abs) && filepath.Ext(abs) == ".hcl" && !strings.HasPrefix(filepath.Base(abs), ".")
}

// inTree reports whether path lies under one of the watched directories.
func (w *Watcher) inTree(path string) bool {
	abs, err := filepath.Abs(path)
	if err != nil {
		return false
	}
	for _, dir := range w.dirs {
		rel, err := filepath.Rel(dir, abs)
		if err == nil && rel != ".." && !strings.HasPrefix(rel, ".."+string(filepath.Separator)) {
			return true
		}
	}
	return false
}
