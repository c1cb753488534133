// Package testutil provides shared test helpers for setting up journals and
// databases.
package testutil

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/starford/munin/internal/index"
	"github.com/starford/munin/internal/journal"
)

// TestDB creates a temporary SQLite database that is automatically cleaned up.
func TestDB(t *testing.T) *index.DB {
	t.Helper()
	dbFile, err := os.CreateTemp("", "munin-test-*.db")
	if err != nil {
		t.Fatal(err)
	}
	dbFile.Close()
	t.Cleanup(func() { os.Remove(dbFile.Name()) })

	db, err := index.Open(dbFile.Name())
	if err != nil {
		t.Fatal(err)
	}
	t.Cleanup(func() { db.Close() })
	return db
}

// TestJournal creates a journal backed by a file in a fresh temp directory.
func TestJournal(t *testing.T) *journal.Journal {
	t.Helper()
	j, err := journal.New(filepath.Join(t.TempDir(), "journal.json"))
	if err != nil {
		t.Fatal(err)
	}
	return j
}
