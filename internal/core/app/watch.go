package app

import (
	"context"
	stderrors "errors"
	"log/slog"
	"os"

	"bindsig/internal/core/watcher"
)

// Watch re-checks declaration files under roots whenever they change.
// onReport receives one report per changed file; deleted files are skipped.
// The returned watcher must be closed by the caller.
func (c *Checker) Watch(ctx context.Context, roots []string, onReport func(*Report, error)) (*watcher.Watcher, error) {
	w, err := watcher.NewWatcher(
		c.cfg.Watch.Debounce,
		c.cfg.Watch.Include,
		c.cfg.Watch.ExcludeDirs,
		func(paths []string) {
			for _, path := range paths {
				if _, err := os.Stat(path); stderrors.Is(err, os.ErrNotExist) {
					slog.Debug("declaration file removed", "path", path)
					continue
				}
				onReport(c.CheckFile(ctx, path))
			}
		},
	)
	if err != nil {
		return nil, err
	}
	if err := w.Watch(roots); err != nil {
		_ = w.Close()
		return nil, err
	}
	return w, nil
}
