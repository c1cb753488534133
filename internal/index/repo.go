package index

import (
	"encoding/json"
	"fmt"

	"github.com/starford/munin/internal/journal"
)

// EventRow represents a row in the events table. Seq is the event's 1-based
// position in the journal's memories array.
type EventRow struct {
	Seq       int64          `json:"seq"`
	Kind      string         `json:"kind"`
	Namespace string         `json:"namespace"`
	Origin    string         `json:"origin"`
	Actor     string         `json:"actor,omitempty"`
	Payload   map[string]any `json:"payload,omitempty"`
	Timestamp string         `json:"timestamp"`
}

// SearchResult represents one search hit.
type SearchResult struct {
	Seq     int64  `json:"seq"`
	Kind    string `json:"kind"`
	Snippet string `json:"snippet"`
}

// RowFromEvent converts a journal event at the given 1-based sequence
// position into its index representation.
func RowFromEvent(seq int64, ev journal.Event) EventRow {
	return EventRow{
		Seq:       seq,
		Kind:      ev.Type,
		Namespace: ev.Namespace,
		Origin:    ev.Origin,
		Actor:     ev.Actor,
		Payload:   ev.Payload,
		Timestamp: ev.Timestamp,
	}
}

// RowsFromStore converts the tail of a store's memories, starting after the
// first fromSeq events, into index rows.
func RowsFromStore(st *journal.Store, fromSeq int64) []EventRow {
	if fromSeq < 0 || fromSeq > int64(len(st.Memories)) {
		return nil
	}
	tail := st.Memories[fromSeq:]
	rows := make([]EventRow, len(tail))
	for i, ev := range tail {
		rows[i] = RowFromEvent(fromSeq+int64(i)+1, ev)
	}
	return rows
}

// AppendEvents inserts rows for journal positions fromSeq+1..fromSeq+len.
// Inserts are idempotent per seq, so a sync racing with a direct append
// converges instead of duplicating rows.
func (db *DB) AppendEvents(fromSeq int64, events []EventRow) error {
	if len(events) == 0 {
		return nil
	}
	tx, err := db.conn.Begin()
	if err != nil {
		return fmt.Errorf("index: begin tx: %w", err)
	}
	defer tx.Rollback() //nolint:errcheck // best-effort on failure path

	stmt, err := tx.Prepare(`
		INSERT OR REPLACE INTO events (seq, kind, namespace, origin, actor, payload, ts)
		VALUES (?, ?, ?, ?, ?, ?, ?)
	`)
	if err != nil {
		return fmt.Errorf("index: prepare insert: %w", err)
	}
	defer stmt.Close()

	for _, row := range events {
		payloadJSON, _ := json.Marshal(row.Payload)
		if row.Payload == nil {
			payloadJSON = []byte("{}")
		}
		if _, err := stmt.Exec(row.Seq, row.Kind, row.Namespace, row.Origin, row.Actor, string(payloadJSON), row.Timestamp); err != nil {
			return fmt.Errorf("index: insert event %d: %w", row.Seq, err)
		}
		if err := ftsUpsert(tx, row.Seq, row.Kind, row.Origin, string(payloadJSON)); err != nil {
			return err
		}
	}
	return tx.Commit()
}

// Rebuild replaces the whole index with the given rows. Used when the
// journal shrank or was replaced out from under us (external rotation,
// recovery rewrite of a different generation).
func (db *DB) Rebuild(events []EventRow) error {
	tx, err := db.conn.Begin()
	if err != nil {
		return fmt.Errorf("index: begin tx: %w", err)
	}
	defer tx.Rollback() //nolint:errcheck

	if _, err := tx.Exec(`DELETE FROM events`); err != nil {
		return fmt.Errorf("index: clear events: %w", err)
	}
	ftsClear(tx)

	stmt, err := tx.Prepare(`
		INSERT INTO events (seq, kind, namespace, origin, actor, payload, ts)
		VALUES (?, ?, ?, ?, ?, ?, ?)
	`)
	if err != nil {
		return fmt.Errorf("index: prepare insert: %w", err)
	}
	defer stmt.Close()

	for _, row := range events {
		payloadJSON, _ := json.Marshal(row.Payload)
		if row.Payload == nil {
			payloadJSON = []byte("{}")
		}
		if _, err := stmt.Exec(row.Seq, row.Kind, row.Namespace, row.Origin, row.Actor, string(payloadJSON), row.Timestamp); err != nil {
			return fmt.Errorf("index: insert event %d: %w", row.Seq, err)
		}
		if err := ftsUpsert(tx, row.Seq, row.Kind, row.Origin, string(payloadJSON)); err != nil {
			return err
		}
	}
	return tx.Commit()
}

// Count returns the number of indexed events.
func (db *DB) Count() (int64, error) {
	var n int64
	if err := db.conn.QueryRow(`SELECT COUNT(*) FROM events`).Scan(&n); err != nil {
		return 0, fmt.Errorf("index: count: %w", err)
	}
	return n, nil
}

// CountByKind returns the number of indexed events per kind.
func (db *DB) CountByKind() (map[string]int64, error) {
	rows, err := db.conn.Query(`SELECT kind, COUNT(*) FROM events GROUP BY kind`)
	if err != nil {
		return nil, fmt.Errorf("index: count by kind: %w", err)
	}
	defer rows.Close()

	out := make(map[string]int64)
	for rows.Next() {
		var kind string
		var n int64
		if err := rows.Scan(&kind, &n); err != nil {
			return nil, err
		}
		out[kind] = n
	}
	return out, rows.Err()
}

// ListEvents returns events newest-first with optional kind/namespace
// filters, plus the total matching count for pagination.
func (db *DB) ListEvents(limit, offset int, kind, namespace string) ([]EventRow, int, error) {
	if limit <= 0 || limit > 500 {
		limit = 50
	}
	if offset < 0 {
		offset = 0
	}

	where := `WHERE 1=1`
	args := []any{}
	if kind != "" {
		where += ` AND kind = ?`
		args = append(args, kind)
	}
	if namespace != "" {
		where += ` AND namespace = ?`
		args = append(args, namespace)
	}

	var total int
	if err := db.conn.QueryRow(`SELECT COUNT(*) FROM events `+where, args...).Scan(&total); err != nil {
		return nil, 0, fmt.Errorf("index: list count: %w", err)
	}

	query := `SELECT seq, kind, namespace, origin, actor, payload, ts FROM events ` +
		where + ` ORDER BY seq DESC LIMIT ? OFFSET ?`
	rows, err := db.conn.Query(query, append(args, limit, offset)...)
	if err != nil {
		return nil, 0, fmt.Errorf("index: list: %w", err)
	}
	defer rows.Close()

	var out []EventRow
	for rows.Next() {
		row, err := scanEvent(rows)
		if err != nil {
			return nil, 0, err
		}
		out = append(out, row)
	}
	return out, total, rows.Err()
}

// LastTimestamp returns the timestamp of the newest indexed event, or empty
// string when the index is empty.
func (db *DB) LastTimestamp() (string, error) {
	var ts string
	err := db.conn.QueryRow(`SELECT ts FROM events ORDER BY seq DESC LIMIT 1`).Scan(&ts)
	if err != nil {
		return "", nil // empty index is fine
	}
	return ts, nil
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanEvent(rs rowScanner) (EventRow, error) {
	var row EventRow
	var payloadJSON string
	if err := rs.Scan(&row.Seq, &row.Kind, &row.Namespace, &row.Origin, &row.Actor, &payloadJSON, &row.Timestamp); err != nil {
		return EventRow{}, fmt.Errorf("index: scan event: %w", err)
	}
	if payloadJSON != "" && payloadJSON != "{}" {
		_ = json.Unmarshal([]byte(payloadJSON), &row.Payload)
	}
	return row, nil
}
