// Package eventservice coordinates journal and index operations for the API
// and MCP surfaces.
package eventservice

import (
	"context"

	"github.com/starford/munin/internal/index"
	"github.com/starford/munin/internal/journal"
)

// Recorded is the result of a successful Record: the event as appended plus
// its 1-based position in the journal.
type Recorded struct {
	Seq   int64         `json:"seq"`
	Event journal.Event `json:"event"`
	Total int           `json:"total"`
}

// Summary describes the journal's current state.
type Summary struct {
	General       map[string]any   `json:"general"`
	Total         int64            `json:"total"`
	CountsByKind  map[string]int64 `json:"counts_by_kind"`
	LastTimestamp string           `json:"last_timestamp,omitempty"`
}

// Service coordinates the journal (source of truth) and the index (derived
// query mirror).
type Service struct {
	journal *journal.Journal
	db      *index.DB
}

// NewService creates a new event service.
func NewService(j *journal.Journal, db *index.DB) *Service {
	return &Service{journal: j, db: db}
}

// Record appends an event to the journal and mirrors it into the index.
// The journal append is the authoritative step; the index write is
// best-effort because the watcher-driven sync converges the mirror anyway.
func (s *Service) Record(_ context.Context, ev journal.Event) (*Recorded, error) {
	st, err := s.journal.Append(ev)
	if err != nil {
		return nil, err
	}
	seq := int64(len(st.Memories))
	appended := st.Memories[len(st.Memories)-1]

	row := index.RowFromEvent(seq, appended)
	_ = s.db.AppendEvents(seq-1, []index.EventRow{row})

	return &Recorded{Seq: seq, Event: appended, Total: len(st.Memories)}, nil
}

// List returns indexed events newest-first with optional filters.
func (s *Service) List(_ context.Context, limit, offset int, kind, namespace string) ([]index.EventRow, int, error) {
	return s.db.ListEvents(limit, offset, kind, namespace)
}

// Search delegates full-text search to the index.
func (s *Service) Search(_ context.Context, query string, limit int) ([]index.SearchResult, error) {
	return s.db.Search(query, limit)
}

// Recent returns the n most recently appended events.
func (s *Service) Recent(ctx context.Context, n int) ([]index.EventRow, error) {
	rows, _, err := s.List(ctx, n, 0, "", "")
	return rows, err
}

// Summary combines the journal's general metadata with index-derived counts.
func (s *Service) Summary(_ context.Context) (*Summary, error) {
	st, err := s.journal.Load()
	if err != nil {
		return nil, err
	}
	total, err := s.db.Count()
	if err != nil {
		return nil, err
	}
	counts, err := s.db.CountByKind()
	if err != nil {
		return nil, err
	}
	last, err := s.db.LastTimestamp()
	if err != nil {
		return nil, err
	}
	return &Summary{
		General:       st.General,
		Total:         total,
		CountsByKind:  counts,
		LastTimestamp: last,
	}, nil
}
