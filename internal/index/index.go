package index

// EventIndex defines the interface for event query operations. Consumers
// should depend on this interface rather than the concrete *DB type to
// facilitate testing with mocks.
type EventIndex interface {
	AppendEvents(fromSeq int64, events []EventRow) error
	Rebuild(events []EventRow) error
	Count() (int64, error)
	CountByKind() (map[string]int64, error)
	ListEvents(limit, offset int, kind, namespace string) ([]EventRow, int, error)
	Search(query string, limit int) ([]SearchResult, error)
	LastTimestamp() (string, error)
	Close() error
}

// Verify *DB satisfies EventIndex at compile time.
var _ EventIndex = (*DB)(nil)
