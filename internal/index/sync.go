package index

import (
	"log/slog"

	"github.com/starford/munin/internal/journal"
)

// Sync brings the index in line with the journal and returns how many events
// were newly indexed. The journal is append-only, so the common case is
// inserting the tail past the already-indexed count; a journal with fewer
// events than the index means the file was replaced externally and the whole
// mirror is rebuilt.
func Sync(db *DB, j *journal.Journal, logger *slog.Logger) (int, error) {
	st, err := j.Load()
	if err != nil {
		return 0, err
	}

	indexed, err := db.Count()
	if err != nil {
		return 0, err
	}
	total := int64(len(st.Memories))

	switch {
	case total < indexed:
		logger.Warn("sync: journal shorter than index, rebuilding",
			slog.Int64("journal", total), slog.Int64("indexed", indexed))
		if err := db.Rebuild(RowsFromStore(st, 0)); err != nil {
			return 0, err
		}
		return int(total), nil

	case total > indexed:
		rows := RowsFromStore(st, indexed)
		if err := db.AppendEvents(indexed, rows); err != nil {
			return 0, err
		}
		logger.Debug("sync: indexed tail", slog.Int("appended", len(rows)))
		return len(rows), nil

	default:
		return 0, nil
	}
}
