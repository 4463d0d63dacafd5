// Package storage reads the evidence tree and writes report files.
package storage

import (
	"context"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"github.com/starford/nightsync/internal/apperr"
	"github.com/starford/nightsync/internal/evidence"
)

// PathSet is a set of normalized, slash-separated evidence paths.
type PathSet map[string]struct{}

// Has reports whether p is in the set.
func (s PathSet) Has(p string) bool {
	_, ok := s[p]
	return ok
}

// Sorted returns the members in ascending order.
func (s PathSet) Sorted() []string {
	out := make([]string, 0, len(s))
	for p := range s {
		out = append(out, p)
	}
	sort.Strings(out)
	return out
}

// Scanner lists evidence files relative to a repository root.
type Scanner struct {
	root     string // absolute evidence root
	repoRoot string // absolute, symlinks resolved
}

// NewScanner checks that evidenceRoot exists and is a directory.
func NewScanner(evidenceRoot, repoRoot string) (*Scanner, error) {
	abs, err := filepath.Abs(evidenceRoot)
	if err != nil {
		return nil, fmt.Errorf("storage: resolve evidence root: %w", err)
	}
	info, err := os.Stat(abs)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return nil, fmt.Errorf("evidence directory not found: %s: %w", evidenceRoot, apperr.ErrNotFound)
		}
		return nil, fmt.Errorf("storage: stat evidence root: %w", err)
	}
	if !info.IsDir() {
		return nil, fmt.Errorf("storage: evidence root is not a directory: %s", abs)
	}
	return &Scanner{root: resolve(abs), repoRoot: resolve(repoRoot)}, nil
}

// Scan returns every regular file under the evidence root that filter
// includes.
func (s *Scanner) Scan(ctx context.Context, filter evidence.Filter) (PathSet, error) {
	out := make(PathSet)
	err := filepath.WalkDir(s.root, func(p string, d fs.DirEntry, walkErr error) error {
		if walkErr != nil {
			return walkErr
		}
		if err := ctx.Err(); err != nil {
			return err
		}
		if d.IsDir() || !isRegular(p, d) {
			return nil
		}
		rel := s.relative(p)
		if !filter.Includes(rel) {
			return nil
		}
		out[rel] = struct{}{}
		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("storage: scan %s: %w", s.root, err)
	}
	return out, nil
}

// Scan is a one-shot NewScanner + Scan.
func Scan(ctx context.Context, evidenceRoot, repoRoot string, filter evidence.Filter) (PathSet, error) {
	sc, err := NewScanner(evidenceRoot, repoRoot)
	if err != nil {
		return nil, err
	}
	return sc.Scan(ctx, filter)
}

// relative renders p against the repo root, falling back to p itself when
// it lies outside.
func (s *Scanner) relative(p string) string {
	rel, err := filepath.Rel(s.repoRoot, resolve(p))
	if err != nil || rel == ".." || strings.HasPrefix(rel, ".."+string(filepath.Separator)) {
		return filepath.ToSlash(p)
	}
	return filepath.ToSlash(rel)
}

// RelativeTo renders p against root the same way evidence paths are
// rendered. Used for report headers.
func RelativeTo(p, root string) string {
	s := &Scanner{repoRoot: resolve(root)}
	return s.relative(p)
}

// isRegular follows a symlink entry to decide whether it names a file.
func isRegular(p string, d fs.DirEntry) bool {
	if d.Type().IsRegular() {
		return true
	}
	if d.Type()&fs.ModeSymlink == 0 {
		return false
	}
	info, err := os.Stat(p)
	return err == nil && info.Mode().IsRegular()
}

func resolve(p string) string {
	abs, err := filepath.Abs(p)
	if err != nil {
		return p
	}
	if real, err := filepath.EvalSymlinks(abs); err == nil {
		return real
	}
	return abs
}
