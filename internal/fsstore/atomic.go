package fsstore

import (
	"fmt"
	"os"
	"path/filepath"
)

func EnsureDir(path string, perm os.FileMode) error {
	normalized, err := normalizePath(path)
	if err != nil {
		return err
	}
	if perm == 0 {
		perm = defaultDirPerm
	}
	if err := os.MkdirAll(normalized, perm); err != nil {
		return fmt.Errorf("fsstore ensure dir %s: %w", normalized, err)
	}
	return nil
}

// WriteFileAtomic replaces path with content. The bytes go to a temp file in
// the same directory, which is synced and renamed over the target, so readers
// see either the old file or the new one and never a partial write.
func WriteFileAtomic(path string, content []byte, opts FileOptions) error {
	target, err := normalizePath(path)
	if err != nil {
		return err
	}
	opts = normalizeFileOptions(opts)

	dir := filepath.Dir(target)
	if err := EnsureDir(dir, opts.DirPerm); err != nil {
		return err
	}

	tmp, err := os.CreateTemp(dir, "."+filepath.Base(target)+".tmp.*")
	if err != nil {
		return fmt.Errorf("%w: create temp for %s: %v", ErrAtomicWriteFailed, target, err)
	}
	tmpPath := tmp.Name()
	renamed := false
	defer func() {
		_ = tmp.Close()
		if !renamed {
			_ = os.Remove(tmpPath)
		}
	}()

	steps := []struct {
		name string
		run  func() error
	}{
		{"write", func() error { _, err := tmp.Write(content); return err }},
		{"sync", tmp.Sync},
		{"chmod", func() error { return tmp.Chmod(opts.FilePerm) }},
		{"close", tmp.Close},
	}
	for _, step := range steps {
		if err := step.run(); err != nil {
			return fmt.Errorf("%w: %s temp for %s: %v", ErrAtomicWriteFailed, step.name, target, err)
		}
	}
	if err := os.Rename(tmpPath, target); err != nil {
		return fmt.Errorf("%w: rename temp for %s: %v", ErrAtomicWriteFailed, target, err)
	}
	renamed = true

	// Best effort directory sync for durability; ignore failures.
	if dirFD, err := os.Open(dir); err == nil {
		_ = dirFD.Sync()
		_ = dirFD.Close()
	}
	return nil
}
