package dataset

import (
	"context"
	"io/fs"
	"log/slog"
	"os"
	"path/filepath"
	"time"

	"github.com/fsnotify/fsnotify"
)

const reconcileDelay = 200 * time.Millisecond

// Watch starts an fsnotify watcher on the dataset root and keeps the stores in
// sync with file changes until ctx is cancelled.
//
// New directories created at runtime are added to the watch list. Rename
// events trigger a debounced Sync pass that picks up the new name and drops
// stale datasets.
func (im *Importer) Watch(ctx context.Context) error {
	w, err := fsnotify.NewWatcher()
	if err != nil {
		return err
	}
	defer w.Close()

	if err := addDirsRecursive(w, im.Root()); err != nil {
		return err
	}

	im.logger.Info("watcher: started", slog.String("root", im.Root()))

	var reconcileTimer *time.Timer
	var reconcileCh <-chan time.Time

	scheduleReconcile := func() {
		if reconcileTimer == nil {
			reconcileTimer = time.NewTimer(reconcileDelay)
			reconcileCh = reconcileTimer.C
		} else {
			reconcileTimer.Reset(reconcileDelay)
		}
	}

	for {
		select {
		case <-ctx.Done():
			if reconcileTimer != nil {
				reconcileTimer.Stop()
			}
			im.logger.Info("watcher: stopped")
			return nil

		case <-reconcileCh:
			if _, err := im.Sync(ctx); err != nil {
				im.logger.Warn("watcher: reconcile failed", slog.String("error", err.Error()))
			}

		case ev, ok := <-w.Events:
			if !ok {
				return nil
			}

			if ev.Op&fsnotify.Create != 0 {
				if info, statErr := os.Stat(ev.Name); statErr == nil && info.IsDir() {
					if addErr := addDirsRecursive(w, ev.Name); addErr != nil {
						im.logger.Warn("watcher: add new dir failed",
							slog.String("path", ev.Name),
							slog.String("error", addErr.Error()))
					}
					im.importDir(ctx, ev.Name)
					continue
				}
			}

			if !Supported(ev.Name) {
				continue
			}
			name, relErr := im.src.Rel(ev.Name)
			if relErr != nil {
				continue
			}

			switch {
			case ev.Op&(fsnotify.Create|fsnotify.Write) != 0:
				// Failures are logged and reported by the importer.
				_, _ = im.Import(ctx, name)

			case ev.Op&fsnotify.Remove != 0:
				im.removeKnown(ctx, name)

			case ev.Op&fsnotify.Rename != 0:
				// fsnotify reports only the old path; the new one arrives as a
				// Create when it stays under a watched directory.
				im.removeKnown(ctx, name)
				scheduleReconcile()
			}

		case watchErr, ok := <-w.Errors:
			if !ok {
				return nil
			}
			im.logger.Error("watcher: error", slog.String("error", watchErr.Error()))
		}
	}
}

func (im *Importer) removeKnown(ctx context.Context, name string) {
	checksums, err := im.catalog.AllChecksums(ctx)
	if err != nil {
		im.logger.Warn("watcher: read checksums failed", slog.String("error", err.Error()))
		return
	}
	if _, ok := checksums[name]; !ok {
		return
	}
	if err := im.Remove(ctx, name); err != nil {
		im.logger.Warn("watcher: remove failed", slog.String("dataset", name), slog.String("error", err.Error()))
	}
}

// importDir imports dataset files already present in a newly created directory.
func (im *Importer) importDir(ctx context.Context, dir string) {
	_ = filepath.WalkDir(dir, func(path string, d fs.DirEntry, err error) error {
		if err != nil || d.IsDir() || !Supported(path) {
			return nil
		}
		name, relErr := im.src.Rel(path)
		if relErr != nil {
			return nil
		}
		_, _ = im.Import(ctx, name)
		return nil
	})
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
