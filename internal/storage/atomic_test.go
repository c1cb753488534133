package storage

import (
	"os"
	"path/filepath"
	"testing"
)

func TestWriteAtomicRoundTrip(t *testing.T) {
	path := filepath.Join(t.TempDir(), "out.json")
	if err := WriteAtomic(path, []byte(`{"a":1}`), 0o644); err != nil {
		t.Fatalf("WriteAtomic: %v", err)
	}
	got, err := os.ReadFile(path)
	if err != nil {
		t.Fatalf("ReadFile: %v", err)
	}
	if string(got) != `{"a":1}` {
		t.Errorf("content = %q", got)
	}
}

func TestWriteAtomicReplacesExisting(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "out.json")
	_ = os.WriteFile(path, []byte("old"), 0o644)

	if err := WriteAtomic(path, []byte("new"), 0o644); err != nil {
		t.Fatalf("WriteAtomic: %v", err)
	}
	got, _ := os.ReadFile(path)
	if string(got) != "new" {
		t.Errorf("content = %q, want %q", got, "new")
	}

	// No leftover temp files.
	matches, _ := filepath.Glob(filepath.Join(dir, ".munin-tmp-*"))
	if len(matches) != 0 {
		t.Errorf("leftover temp files: %v", matches)
	}
}

func TestWriteAtomicFailureLeavesTargetIntact(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "sub", "out.json") // parent does not exist
	if err := WriteAtomic(path, []byte("x"), 0o644); err == nil {
		t.Fatal("expected error when parent dir is missing")
	}
	matches, _ := filepath.Glob(filepath.Join(dir, ".munin-tmp-*"))
	if len(matches) != 0 {
		t.Errorf("leftover temp files: %v", matches)
	}
}

func TestBackup(t *testing.T) {
	path := filepath.Join(t.TempDir(), "out.json")
	bak, err := Backup(path, []byte("original"))
	if err != nil {
		t.Fatalf("Backup: %v", err)
	}
	if bak != path+BackupSuffix {
		t.Errorf("backup path = %q", bak)
	}
	got, _ := os.ReadFile(bak)
	if string(got) != "original" {
		t.Errorf("backup content = %q", got)
	}
}
