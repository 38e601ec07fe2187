package runner

import (
	"context"
	"log/slog"
	"os"
	"path/filepath"
	"time"

	"github.com/fsnotify/fsnotify"

	"github.com/flowby-lang/flowby/diag"
	"github.com/flowby-lang/flowby/modules"
)

// debounceWindow coalesces the event bursts editors produce on save.
const debounceWindow = 100 * time.Millisecond

// Watch runs the script at path, then re-runs it whenever it or any .flow
// file in its directory changes, until ctx is cancelled. onResult receives
// the diagnostics of every run, nil for a clean one.
//
// Each re-run gets a fresh module cache so edited imports are re-read; the
// executor is shared across runs.
func (r *Runner) Watch(ctx context.Context, path string, onResult func([]diag.Diagnostic)) error {
	watcher, err := fsnotify.NewWatcher()
	if err != nil {
		return err
	}
	defer watcher.Close()

	dir := filepath.Dir(path)
	if err := watcher.Add(dir); err != nil {
		return err
	}

	logger := slog.New(slog.NewTextHandler(os.Stderr, nil))

	run := func() {
		r.mods = modules.NewCache(modules.NewFileResolver(dir))
		onResult(r.RunFile(ctx, path))
	}
	run()

	var debounce *time.Timer
	var fire <-chan time.Time
	for {
		select {
		case <-ctx.Done():
			return ctx.Err()

		case ev, ok := <-watcher.Events:
			if !ok {
				return nil
			}
			if !relevant(ev) {
				continue
			}
			logger.Debug("[WATCH] change", "file", ev.Name, "op", ev.Op.String())
			if debounce == nil {
				debounce = time.NewTimer(debounceWindow)
			} else {
				debounce.Reset(debounceWindow)
			}
			fire = debounce.C

		case <-fire:
			fire = nil
			run()

		case err, ok := <-watcher.Errors:
			if !ok {
				return nil
			}
			logger.Warn("[WATCH] watcher error", "err", err)
		}
	}
}

func relevant(ev fsnotify.Event) bool {
	if !ev.Op.Has(fsnotify.Write) && !ev.Op.Has(fsnotify.Create) && !ev.Op.Has(fsnotify.Rename) {
		return false
	}
	return filepath.Ext(ev.Name) == ".flow"
}
