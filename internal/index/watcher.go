package index

import (
	"context"
	"log/slog"
	"os"
	"path/filepath"
	"time"

	"github.com/fsnotify/fsnotify"

	"github.com/starford/munin/internal/checksum"
	"github.com/starford/munin/internal/journal"
)

// SyncCallback is called after a watcher-driven sync that indexed new
// events, with the number of events appended to the index.
type SyncCallback func(appended int)

// Watch keeps the index in sync with journal appends made by other
// processes. It runs until ctx is cancelled.
//
// The watch is on the journal's parent directory, not the file: the atomic
// replace renames a new inode over the path, and a watch on the old inode
// would go quiet after the first append. Events are filtered to the journal
// file name, debounced, and deduplicated by content checksum (the lock-file
// and temp-file churn around each append would otherwise trigger redundant
// syncs).
func Watch(ctx context.Context, db *DB, j *journal.Journal, logger *slog.Logger, cb SyncCallback) error {
	w, err := fsnotify.NewWatcher()
	if err != nil {
		return err
	}
	defer w.Close()

	dir := filepath.Dir(j.Path())
	name := filepath.Base(j.Path())
	if err := w.Add(dir); err != nil {
		return err
	}

	logger.Info("watcher: started", slog.String("journal", j.Path()))

	var lastSum string
	if data, err := os.ReadFile(j.Path()); err == nil {
		lastSum = checksum.Sum(data)
	}

	var debounce *time.Timer
	var debounceCh <-chan time.Time

	scheduleSync := func() {
		if debounce == nil {
			debounce = time.NewTimer(200 * time.Millisecond)
			debounceCh = debounce.C
		} else {
			debounce.Reset(200 * time.Millisecond)
		}
	}

	for {
		select {
		case <-ctx.Done():
			if debounce != nil {
				debounce.Stop()
			}
			logger.Info("watcher: stopped")
			return nil

		case <-debounceCh:
			data, err := os.ReadFile(j.Path())
			if err == nil {
				sum := checksum.Sum(data)
				if sum == lastSum {
					continue
				}
				lastSum = sum
			}
			appended, err := Sync(db, j, logger)
			if err != nil {
				logger.Warn("watcher: sync failed", slog.String("error", err.Error()))
				continue
			}
			if appended > 0 {
				logger.Debug("watcher: synced", slog.Int("appended", appended))
				if cb != nil {
					cb(appended)
				}
			}

		case ev, ok := <-w.Events:
			if !ok {
				return nil
			}
			if filepath.Base(ev.Name) != name {
				continue
			}
			if ev.Op&(fsnotify.Create|fsnotify.Write|fsnotify.Rename|fsnotify.Remove) != 0 {
				scheduleSync()
			}

		case watchErr, ok := <-w.Errors:
			if !ok {
				return nil
			}
			logger.Error("watcher: error", slog.String("error", watchErr.Error()))
		}
	}
}
