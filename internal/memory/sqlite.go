package memory

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"net/url"
	"os"

	_ "github.com/mattn/go-sqlite3"

	"github.com/starford/nightsync/internal/apperr"
	"github.com/starford/nightsync/internal/models"
)

const selectMemoriesSQL = `SELECT id, slug, content FROM memories ORDER BY rowid`

// SQLiteSource reads records straight from a local-memory database.
type SQLiteSource struct {
	path string
}

// NewSQLiteSource returns a source for the database file at path.
func NewSQLiteSource(path string) *SQLiteSource {
	return &SQLiteSource{path: path}
}

// Name returns the database path.
func (s *SQLiteSource) Name() string { return s.path }

// Each streams the memories table in rowid order. The database is opened
// read-only; a missing file is reported rather than created.
func (s *SQLiteSource) Each(ctx context.Context, fn RecordFunc) error {
	if _, err := os.Stat(s.path); err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return fmt.Errorf("memory database not found: %s: %w", s.path, apperr.ErrNotFound)
		}
		return fmt.Errorf("memory: stat %s: %w", s.path, err)
	}

	conn, err := sql.Open("sqlite3", readOnlyDSN(s.path))
	if err != nil {
		return fmt.Errorf("memory: open db: %w", err)
	}
	defer conn.Close()

	rows, err := conn.QueryContext(ctx, selectMemoriesSQL)
	if err != nil {
		return fmt.Errorf("memory: query memories: %w", err)
	}
	defer rows.Close()

	n := 0
	for rows.Next() {
		n++
		var (
			id, slug any
			content  sql.NullString
		)
		if err := rows.Scan(&id, &slug, &content); err != nil {
			return fmt.Errorf("memory: row %d: %v: %w", n, err, apperr.ErrMalformedRecord)
		}
		rec := models.MemoryRecord{Content: content.String}
		if rec.ID, err = models.ValueOf(id); err != nil {
			return fmt.Errorf("memory: row %d id: %v: %w", n, err, apperr.ErrMalformedRecord)
		}
		if rec.Slug, err = models.ValueOf(slug); err != nil {
			return fmt.Errorf("memory: row %d slug: %v: %w", n, err, apperr.ErrMalformedRecord)
		}
		if err := fn(n, rec); err != nil {
			return err
		}
	}
	return rows.Err()
}

// readOnlyDSN builds a read-only SQLite URI for path. The path is
// percent-encoded so "?", "#" and "%" in file names are not read as URI
// syntax.
func readOnlyDSN(path string) string {
	u := url.URL{Path: path}
	return "file:" + u.EscapedPath() + "?mode=ro&_busy_timeout=5000"
}
