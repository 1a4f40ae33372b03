package config

import (
	"context"
	"log/slog"
	"path/filepath"
	"sync"
	"time"

	"github.com/fsnotify/fsnotify"
)

const reloadDebounce = 100 * time.Millisecond

// Watcher reloads a configuration file when it changes on disk and hands
// the validated result to a callback. Invalid edits are logged and skipped.
type Watcher struct {
	path     string
	callback func(*Config)
	stop     chan struct{}
	once     sync.Once
	wg       sync.WaitGroup
}

func NewWatcher(path string, callback func(*Config)) *Watcher {
	return &Watcher{
		path:     path,
		callback: callback,
		stop:     make(chan struct{}),
	}
}

// Start begins watching. The parent directory is watched so editors that
// replace the file atomically are still observed.
func (w *Watcher) Start(ctx context.Context) error {
	watcher, err := fsnotify.NewWatcher()
	if err != nil {
		return err
	}
	if err := watcher.Add(filepath.Dir(w.path)); err != nil {
		watcher.Close()
		return err
	}

	w.wg.Add(1)
	go func() {
		defer w.wg.Done()
		defer watcher.Close()

		slog.Debug("config watcher started", "path", w.path)
		var timer *time.Timer
		defer func() {
			if timer != nil {
				timer.Stop()
			}
		}()

		for {
			select {
			case event, ok := <-watcher.Events:
				if !ok {
					return
				}
				if filepath.Clean(event.Name) != filepath.Clean(w.path) {
					continue
				}
				if event.Op&(fsnotify.Write|fsnotify.Create) == 0 {
					continue
				}
				if timer != nil {
					timer.Stop()
				}
				timer = time.AfterFunc(reloadDebounce, w.reload)

			case err, ok := <-watcher.Errors:
				if !ok {
					return
				}
				slog.Warn("config watcher error", "path", w.path, "error", err)

			case <-w.stop:
				return
			case <-ctx.Done():
				return
			}
		}
	}()
	return nil
}

// Stop stops the watcher and waits for its goroutine. It is safe to call
// more than once.
func (w *Watcher) Stop() {
	w.once.Do(func() { close(w.stop) })
	w.wg.Wait()
}

func (w *Watcher) reload() {
	cfg, err := Load(w.path)
	if err != nil {
		slog.Warn("config reload failed", "path", w.path, "error", err)
		return
	}
	slog.Info("config reloaded", "path", w.path)
	if w.callback != nil {
		w.callback(cfg)
	}
}
