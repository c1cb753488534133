// Package storage provides the file-level write primitives the journal is
// built on: atomic replace and pre-rewrite backups.
package storage

import (
	"fmt"
	"os"
	"path/filepath"
)

// BackupSuffix is appended to a file's path when its original bytes are
// preserved before a destructive rewrite.
const BackupSuffix = ".bak"

// WriteAtomic writes content via tmp file → fsync → rename, so a reader of
// path never observes a partial write. A failure before the rename leaves
// any existing file at path intact.
func WriteAtomic(path string, content []byte, perm os.FileMode) error {
	dir := filepath.Dir(path)

	tmp, err := os.CreateTemp(dir, ".munin-tmp-*")
	if err != nil {
		return fmt.Errorf("storage: create temp: %w", err)
	}
	tmpName := tmp.Name()

	// Clean up on any failure path.
	success := false
	defer func() {
		if !success {
			_ = tmp.Close()
			_ = os.Remove(tmpName)
		}
	}()

	if _, err := tmp.Write(content); err != nil {
		return fmt.Errorf("storage: write temp: %w", err)
	}
	if err := tmp.Sync(); err != nil {
		return fmt.Errorf("storage: fsync: %w", err)
	}
	if err := tmp.Close(); err != nil {
		return fmt.Errorf("storage: close temp: %w", err)
	}
	if err := os.Chmod(tmpName, perm); err != nil {
		return fmt.Errorf("storage: chmod temp: %w", err)
	}
	if err := os.Rename(tmpName, path); err != nil {
		return fmt.Errorf("storage: rename: %w", err)
	}
	success = true
	return nil
}

// Backup writes content to path+BackupSuffix. The backup itself does not
// need to be atomic; it only has to exist before the original is replaced.
func Backup(path string, content []byte) (string, error) {
	bak := path + BackupSuffix
	if err := os.WriteFile(bak, content, 0o644); err != nil {
		return "", fmt.Errorf("storage: backup %s: %w", bak, err)
	}
	return bak, nil
}
