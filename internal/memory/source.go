// Package memory reads local-memory records and builds the reverse index of
// evidence citations.
package memory

import (
	"bufio"
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"os"

	"github.com/starford/nightsync/internal/apperr"
	"github.com/starford/nightsync/internal/models"
	"github.com/starford/nightsync/internal/parser"
)

// RecordFunc receives each record with its 1-based position in the source.
type RecordFunc func(n int, rec models.MemoryRecord) error

// Source yields memory records in a stable order.
type Source interface {
	// Each calls fn once per record and stops at the first error.
	Each(ctx context.Context, fn RecordFunc) error
	// Name describes the source for reports and logs.
	Name() string
}

// JSONLSource reads a line-delimited JSON export.
type JSONLSource struct {
	path string
}

// NewJSONLSource returns a source for the export at path. The file is opened
// on every Each call.
func NewJSONLSource(path string) *JSONLSource {
	return &JSONLSource{path: path}
}

// Name returns the export path.
func (s *JSONLSource) Name() string { return s.path }

// Each decodes every non-blank line. A line that does not decode aborts the
// scan with ErrMalformedRecord.
func (s *JSONLSource) Each(ctx context.Context, fn RecordFunc) error {
	f, err := os.Open(s.path)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return fmt.Errorf("memory export not found: %s: %w", s.path, apperr.ErrNotFound)
		}
		return fmt.Errorf("memory: open %s: %w", s.path, err)
	}
	defer f.Close()
	return EachLine(ctx, f, fn)
}

// EachLine decodes the JSONL stream r, passing each record's line number to
// fn. Blank lines are skipped.
func EachLine(ctx context.Context, r io.Reader, fn RecordFunc) error {
	br := bufio.NewReader(r)
	lineNo := 0
	for {
		line, readErr := br.ReadBytes('\n')
		if len(line) > 0 {
			lineNo++
			if err := ctx.Err(); err != nil {
				return err
			}
			if trimmed := bytes.TrimSpace(line); len(trimmed) > 0 {
				rec, err := parser.DecodeRecord(trimmed)
				if err != nil {
					return fmt.Errorf("memory: invalid JSON on line %d: %v: %w", lineNo, err, apperr.ErrMalformedRecord)
				}
				if err := fn(lineNo, rec); err != nil {
					return err
				}
			}
		}
		if readErr == io.EOF {
			return nil
		}
		if readErr != nil {
			return fmt.Errorf("memory: read line %d: %w", lineNo+1, readErr)
		}
	}
}
