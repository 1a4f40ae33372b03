// Package watcher reports changed declaration files under a set of roots,
// debounced so a burst of editor writes yields one callback.
package watcher

import (
	"log/slog"
	"os"
	"path/filepath"
	"sort"
	"sync"
	"time"

	"bindsig/internal/shared/observability"
	"bindsig/internal/shared/util"

	"github.com/fsnotify/fsnotify"
	"github.com/gobwas/glob"
)

type Watcher struct {
	fsWatcher   *fsnotify.Watcher
	debounce    time.Duration
	include     []glob.Glob
	excludeDirs []glob.Glob
	onChange    func([]string)
	callbackMu  sync.Mutex

	pending   map[string]struct{}
	pendingMu sync.Mutex
	timer     *time.Timer
	closed    bool
}

// NewWatcher compiles the include patterns (matched against a file's base
// name and its slash-separated path) and the directory exclusions (matched
// against a directory's base name).
func NewWatcher(debounce time.Duration, include, excludeDirs []string, onChange func([]string)) (*Watcher, error) {
	if onChange == nil {
		return nil, os.ErrInvalid
	}

	compiledInclude, err := compileAll(include)
	if err != nil {
		return nil, err
	}
	compiledDirs, err := compileAll(excludeDirs)
	if err != nil {
		return nil, err
	}

	fsw, err := fsnotify.NewWatcher()
	if err != nil {
		return nil, err
	}

	return &Watcher{
		fsWatcher:   fsw,
		debounce:    debounce,
		include:     compiledInclude,
		excludeDirs: compiledDirs,
		onChange:    onChange,
		pending:     make(map[string]struct{}),
	}, nil
}

func compileAll(patterns []string) ([]glob.Glob, error) {
	compiled := make([]glob.Glob, 0, len(patterns))
	for _, pattern := range patterns {
		g, err := glob.Compile(pattern, '/')
		if err != nil {
			return nil, err
		}
		compiled = append(compiled, g)
	}
	return compiled, nil
}

// Watch registers every directory below paths and starts delivering events.
func (w *Watcher) Watch(paths []string) error {
	for _, path := range paths {
		if err := w.watchRecursive(path); err != nil {
			return err
		}
	}

	go w.run()
	return nil
}

func (w *Watcher) watchRecursive(root string) error {
	return filepath.Walk(root, func(path string, info os.FileInfo, err error) error {
		if err != nil {
			return err
		}
		if !info.IsDir() {
			return nil
		}
		if path != root && w.shouldExcludeDir(path) {
			return filepath.SkipDir
		}
		return w.fsWatcher.Add(path)
	})
}

func (w *Watcher) run() {
	for {
		select {
		case event, ok := <-w.fsWatcher.Events:
			if !ok {
				return
			}
			observability.WatcherEventsTotal.Inc()

			if event.Op&fsnotify.Create == fsnotify.Create {
				info, err := os.Stat(event.Name)
				if err == nil && info.IsDir() {
					if !w.shouldExcludeDir(event.Name) {
						if err := w.watchRecursive(event.Name); err != nil {
							slog.Warn("failed to watch new directory", "path", event.Name, "error", err)
						} else {
							w.enqueueExistingFiles(event.Name)
						}
					}
					continue
				}
			}

			if !w.Matches(event.Name) {
				continue
			}
			if event.Op&(fsnotify.Write|fsnotify.Create|fsnotify.Remove|fsnotify.Rename) != 0 {
				w.scheduleChange(event.Name)
			}

		case err, ok := <-w.fsWatcher.Errors:
			if !ok {
				return
			}
			slog.Error("watcher error", "error", err)
		}
	}
}

func (w *Watcher) scheduleChange(path string) {
	w.pendingMu.Lock()
	defer w.pendingMu.Unlock()
	if w.closed {
		return
	}

	w.pending[path] = struct{}{}
	if w.timer != nil {
		w.timer.Stop()
	}
	w.timer = time.AfterFunc(w.debounce, w.flushChanges)
}

func (w *Watcher) flushChanges() {
	w.pendingMu.Lock()
	if w.closed {
		w.pendingMu.Unlock()
		return
	}
	paths := make([]string, 0, len(w.pending))
	for path := range w.pending {
		paths = append(paths, path)
	}
	w.pending = make(map[string]struct{})
	w.pendingMu.Unlock()

	if len(paths) == 0 {
		return
	}
	sort.Strings(paths)
	w.callbackMu.Lock()
	defer w.callbackMu.Unlock()
	w.onChange(paths)
}

// Matches reports whether path names a declaration file the watcher reports.
func (w *Watcher) Matches(path string) bool {
	base := filepath.Base(path)
	normalized := util.NormalizePatternPath(path)
	for _, g := range w.include {
		if g.Match(base) || g.Match(normalized) {
			return true
		}
	}
	return false
}

func (w *Watcher) shouldExcludeDir(path string) bool {
	base := filepath.Base(path)
	for _, g := range w.excludeDirs {
		if g.Match(base) {
			return true
		}
	}
	return false
}

func (w *Watcher) enqueueExistingFiles(root string) {
	_ = filepath.Walk(root, func(path string, info os.FileInfo, err error) error {
		if err != nil || info == nil {
			return nil
		}
		if info.IsDir() {
			if path != root && w.shouldExcludeDir(path) {
				return filepath.SkipDir
			}
			return nil
		}
		if w.Matches(path) {
			w.scheduleChange(path)
		}
		return nil
	})
}

// Close stops event delivery. Pending changes are dropped.
func (w *Watcher) Close() error {
	w.pendingMu.Lock()
	w.closed = true
	if w.timer != nil {
		w.timer.Stop()
	}
	w.pendingMu.Unlock()
	return w.fsWatcher.Close()
}
