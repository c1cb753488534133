//go:build sqlite_fts5

package index

import (
	"database/sql"
	"fmt"
)

func initFTS(conn *sql.DB) error {
	_, err := conn.Exec(`
		CREATE VIRTUAL TABLE IF NOT EXISTS events_fts USING fts5(
			seq UNINDEXED,
			kind,
			origin,
			payload,
			tokenize = 'unicode61 remove_diacritics 2'
		);
	`)
	return err
}

func ftsUpsert(tx *sql.Tx, seq int64, kind, origin, payload string) error {
	_, _ = tx.Exec(`DELETE FROM events_fts WHERE seq = ?`, seq)
	_, err := tx.Exec(`INSERT INTO events_fts (seq, kind, origin, payload) VALUES (?, ?, ?, ?)`,
		seq, kind, origin, payload)
	if err != nil {
		return fmt.Errorf("index: upsert fts: %w", err)
	}
	return nil
}

func ftsClear(tx *sql.Tx) {
	_, _ = tx.Exec(`DELETE FROM events_fts`)
}

// Search performs an FTS5 full-text search over kind, origin, and payload.
func (db *DB) Search(query string, limit int) ([]SearchResult, error) {
	if limit <= 0 {
		limit = 20
	}
	rows, err := db.conn.Query(`
		SELECT seq,
		       kind,
		       snippet(events_fts, 3, '<b>', '</b>', '...', 64)
		FROM events_fts
		WHERE events_fts MATCH ?
		ORDER BY rank
		LIMIT ?
	`, query, limit)
	if err != nil {
		return nil, fmt.Errorf("index: search: %w", err)
	}
	defer rows.Close()

	var out []SearchResult
	for rows.Next() {
		var r SearchResult
		if err := rows.Scan(&r.Seq, &r.Kind, &r.Snippet); err != nil {
			return nil, err
		}
		out = append(out, r)
	}
	return out, rows.Err()
}
