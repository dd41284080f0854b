package engine

import (
	"context"
	"fmt"
	"path/filepath"
	"time"

	"github.com/fsnotify/fsnotify"
	"github.com/spf13/afero"
)

// Watch ingests continuously until the context is cancelled: filesystem
// events on the agent data directories trigger a debounced re-ingest, and a
// periodic ticker catches anything events miss. An initial full ingest runs
// before watching starts.
func (e *Engine) Watch(ctx context.Context) error {
	if _, err := e.Ingest(ctx); err != nil {
		return err
	}

	watcher, err := fsnotify.NewWatcher()
	if err != nil {
		return fmt.Errorf("create watcher: %w", err)
	}
	defer watcher.Close()

	for _, ad := range e.adapters {
		if !ad.Detect() {
			continue
		}
		for _, dir := range e.watchDirs(ad.DataDir()) {
			if err := watcher.Add(dir); err != nil {
				e.logger.Warn("watch failed", "dir", dir, "error", err)
				continue
			}
			e.logger.Debug("watching", "dir", dir)
		}
	}

	interval := time.Duration(e.cfg.Index.WatchIntervalSeconds) * time.Second
	if interval <= 0 {
		interval = 5 * time.Minute
	}
	debounce := time.Duration(e.cfg.Index.DebounceMillis) * time.Millisecond
	if debounce <= 0 {
		debounce = 2 * time.Second
	}

	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	// The debounce timer starts stopped; events rewind it so a burst of
	// writes becomes one ingest.
	trigger := time.NewTimer(0)
	if !trigger.Stop() {
		<-trigger.C
	}

	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case event, ok := <-watcher.Events:
			if !ok {
				return nil
			}
			if event.Op&(fsnotify.Create|fsnotify.Write|fsnotify.Rename) == 0 {
				continue
			}
			trigger.Reset(debounce)
		case err, ok := <-watcher.Errors:
			if !ok {
				return nil
			}
			e.logger.Warn("watch error", "error", err)
		case <-trigger.C:
			e.ingestQuietly(ctx)
		case <-ticker.C:
			e.ingestQuietly(ctx)
		}
	}
}

func (e *Engine) ingestQuietly(ctx context.Context) {
	run, err := e.Ingest(ctx)
	if err != nil {
		e.logger.Warn("watch ingest failed", "error", err)
		return
	}
	changed := 0
	for _, sum := range run.Agents {
		changed += sum.Changed
	}
	if changed > 0 {
		e.logger.Info("watch ingest", "run_id", run.RunID, "changed", changed)
	}
}

// watchDirs returns a data directory and its immediate subdirectories.
// fsnotify does not recurse, and session files live at most one level down
// from the per-project directories.
func (e *Engine) watchDirs(root string) []string {
	if _, err := e.fs.Stat(root); err != nil {
		return nil
	}
	dirs := []string{root}
	entries, err := afero.ReadDir(e.fs, root)
	if err != nil {
		return dirs
	}
	for _, entry := range entries {
		if !entry.IsDir() {
			continue
		}
		sub := filepath.Join(root, entry.Name())
		dirs = append(dirs, sub)
		subEntries, err := afero.ReadDir(e.fs, sub)
		if err != nil {
			continue
		}
		for _, se := range subEntries {
			if se.IsDir() {
				dirs = append(dirs, filepath.Join(sub, se.Name()))
			}
		}
	}
	return dirs
}
