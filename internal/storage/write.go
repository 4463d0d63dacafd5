package storage

import (
	"fmt"
	"os"
	"path/filepath"
)

// ReportMode is the permission given to written report files.
const ReportMode os.FileMode = 0o644

// WriteFileAtomic replaces path with content so readers never see a partial
// report. The parent directory is created when missing.
func WriteFileAtomic(path string, content []byte) (err error) {
	dir := filepath.Dir(path)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return fmt.Errorf("storage: prepare %s: %w", dir, err)
	}

	tmp, err := os.CreateTemp(dir, ".nightsync-tmp-*")
	if err != nil {
		return fmt.Errorf("storage: stage report: %w", err)
	}
	defer func() {
		if err != nil {
			_ = tmp.Close()
			_ = os.Remove(tmp.Name())
		}
	}()

	if err = flush(tmp, content); err != nil {
		return fmt.Errorf("storage: stage report: %w", err)
	}
	if err = os.Chmod(tmp.Name(), ReportMode); err != nil {
		return fmt.Errorf("storage: stage report: %w", err)
	}
	if err = os.Rename(tmp.Name(), path); err != nil {
		return fmt.Errorf("storage: publish %s: %w", path, err)
	}
	return nil
}

// flush writes content, syncs it to disk and closes f.
func flush(f *os.File, content []byte) error {
	if _, err := f.Write(content); err != nil {
		return err
	}
	if err := f.Sync(); err != nil {
		return err
	}
	return f.Close()
}
