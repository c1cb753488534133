// Package journal implements the append-only JSON event store.
//
// A journal is one JSON file holding a `general` metadata map and an ordered
// `memories` array of events. Every mutation goes through Append, which runs
// the whole read-modify-write cycle under a cross-process file lock and makes
// the new content visible with a single atomic rename. The file is the source
// of truth; anything derived from it (the SQLite index, SSE notifications)
// can always be rebuilt by re-reading it.
package journal

import (
	"encoding/json"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"time"

	"github.com/starford/munin/internal/apperr"
	"github.com/starford/munin/internal/lock"
	"github.com/starford/munin/internal/storage"
)

// Event is one immutable record in the journal. Payload is opaque to the
// core: producers own kind naming and payload shape.
type Event struct {
	Type      string         `json:"type"`
	Namespace string         `json:"namespace"`
	Origin    string         `json:"origin"`
	Actor     string         `json:"actor,omitempty"`
	Payload   map[string]any `json:"payload,omitempty"`
	Timestamp string         `json:"timestamp"`
}

// Store is the full journal content: summary metadata plus the ordered
// event sequence. Order is append order and is meaningful for audit.
type Store struct {
	General  map[string]any `json:"general"`
	Memories []Event        `json:"memories"`
}

// General metadata keys maintained by Append.
const (
	GeneralLastEventType = "last_event_type"
	GeneralLastUpdated   = "last_updated"
)

// NewStore returns an empty store with both top-level fields initialized.
func NewStore() *Store {
	return &Store{General: map[string]any{}, Memories: []Event{}}
}

func (s *Store) normalize() {
	if s.General == nil {
		s.General = map[string]any{}
	}
	if s.Memories == nil {
		s.Memories = []Event{}
	}
}

// Now returns the timestamp format used throughout the journal
// (RFC 3339 in UTC).
func Now() string {
	return time.Now().UTC().Format(time.RFC3339)
}

// Journal binds one backing file to one lock configuration. Each journal is
// an explicitly constructed object; there is no shared global instance.
type Journal struct {
	path        string
	lockTimeout time.Duration
	lockRetry   time.Duration
}

// Option configures a Journal.
type Option func(*Journal)

// WithLockTimeout sets how long Append and Load wait for the lock.
func WithLockTimeout(d time.Duration) Option {
	return func(j *Journal) {
		if d > 0 {
			j.lockTimeout = d
		}
	}
}

// WithLockRetry sets the delay between lock acquisition attempts.
func WithLockRetry(d time.Duration) Option {
	return func(j *Journal) {
		if d > 0 {
			j.lockRetry = d
		}
	}
}

// New creates a journal for the given backing file. The path is
// canonicalized once so the journal and its lock agree on identity.
// The file itself is not created; the first Append does that.
func New(path string, opts ...Option) (*Journal, error) {
	abs, err := filepath.Abs(path)
	if err != nil {
		return nil, fmt.Errorf("journal: resolve path %s: %w", path, err)
	}
	j := &Journal{
		path:        abs,
		lockTimeout: lock.DefaultTimeout,
		lockRetry:   lock.DefaultRetry,
	}
	for _, opt := range opts {
		opt(j)
	}
	return j, nil
}

// Path returns the canonical backing file path.
func (j *Journal) Path() string { return j.path }

func (j *Journal) newLock() (*lock.FileLock, error) {
	return lock.New(j.path,
		lock.WithTimeout(j.lockTimeout),
		lock.WithRetry(j.lockRetry))
}

// Load reads the store under the lock. A missing file yields an empty store
// without creating the file. Unparseable content goes through recovery,
// which may rewrite the file; that is why Load takes the lock.
func (j *Journal) Load() (*Store, error) {
	fl, err := j.newLock()
	if err != nil {
		return nil, err
	}
	var st *Store
	err = fl.With(func() error {
		var lerr error
		st, lerr = j.loadLocked()
		return lerr
	})
	if err != nil {
		return nil, err
	}
	return st, nil
}

// Peek reads the store without taking the lock, relying on the atomic-rename
// guarantee for consistency. It never rewrites the file: malformed content is
// repaired in memory when possible and otherwise reported as corrupt. Meant
// for observers (tail, dashboards); writers go through Append.
func (j *Journal) Peek() (*Store, error) {
	data, err := os.ReadFile(j.path)
	if errors.Is(err, fs.ErrNotExist) {
		return NewStore(), nil
	}
	if err != nil {
		return nil, fmt.Errorf("journal: read %s: %w", j.path, err)
	}
	st := new(Store)
	if err := json.Unmarshal(data, st); err != nil {
		repaired, ok := repairTrailing(data)
		if !ok {
			return nil, j.corruptErr()
		}
		st = new(Store)
		if err := json.Unmarshal(repaired, st); err != nil {
			return nil, j.corruptErr()
		}
	}
	st.normalize()
	return st, nil
}

// Append runs the guarded read-modify-write cycle: lock, load (missing file
// tolerated as empty), append the event, update the general metadata, write
// atomically, unlock. The lock is released on every exit path. The returned
// store is the post-append snapshot.
func (j *Journal) Append(ev Event) (*Store, error) {
	if ev.Type == "" {
		return nil, fmt.Errorf("journal: event type is required: %w", apperr.ErrInvalid)
	}
	fl, err := j.newLock()
	if err != nil {
		return nil, err
	}
	var st *Store
	err = fl.With(func() error {
		cur, lerr := j.loadLocked()
		if lerr != nil {
			return lerr
		}
		if ev.Timestamp == "" {
			ev.Timestamp = Now()
		}
		cur.Memories = append(cur.Memories, ev)
		cur.General[GeneralLastEventType] = ev.Type
		cur.General[GeneralLastUpdated] = ev.Timestamp

		out, merr := marshalStore(cur)
		if merr != nil {
			return merr
		}
		if werr := storage.WriteAtomic(j.path, out, 0o644); werr != nil {
			return werr
		}
		st = cur
		return nil
	})
	if err != nil {
		return nil, err
	}
	return st, nil
}

// loadLocked reads and parses the store. Callers must hold the lock: parse
// failures enter recovery, which rewrites the file.
func (j *Journal) loadLocked() (*Store, error) {
	data, err := os.ReadFile(j.path)
	if errors.Is(err, fs.ErrNotExist) {
		return NewStore(), nil
	}
	if err != nil {
		return nil, fmt.Errorf("journal: read %s: %w", j.path, err)
	}
	st := new(Store)
	if err := json.Unmarshal(data, st); err == nil {
		st.normalize()
		return st, nil
	}
	return j.recoverLocked(data)
}

func (j *Journal) corruptErr() error {
	return fmt.Errorf("journal: %s is not parseable: %w", j.path, apperr.ErrCorruptStore)
}

func marshalStore(st *Store) ([]byte, error) {
	out, err := json.MarshalIndent(st, "", "  ")
	if err != nil {
		return nil, fmt.Errorf("journal: serialize store: %w", err)
	}
	return append(out, '\n'), nil
}
