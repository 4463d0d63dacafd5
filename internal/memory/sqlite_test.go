package memory

import (
	"context"
	"database/sql"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/starford/nightsync/internal/apperr"
	"github.com/starford/nightsync/internal/evidence"
	"github.com/starford/nightsync/internal/models"
)

const memoriesSchemaSQL = `
CREATE TABLE memories (
	id         TEXT PRIMARY KEY,
	content    TEXT NOT NULL,
	source     TEXT,
	importance INTEGER,
	tags       TEXT,
	domain     TEXT,
	created_at TEXT,
	updated_at TEXT,
	slug       TEXT UNIQUE
);`

func testDB(t *testing.T, rows ...[3]any) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "memories.db")
	conn, err := sql.Open("sqlite3", path)
	require.NoError(t, err)
	defer conn.Close()

	_, err = conn.Exec(memoriesSchemaSQL)
	require.NoError(t, err)
	for _, r := range rows {
		_, err := conn.Exec(`INSERT INTO memories (id, slug, content) VALUES (?, ?, ?)`, r[0], r[1], r[2])
		require.NoError(t, err)
	}
	return path
}

func TestSQLiteSource_Extract(t *testing.T) {
	path := testDB(t,
		[3]any{"m1", "plan", "see " + root + "/SPEC-1/a.json"},
		[3]any{"m2", nil, "nothing"},
		[3]any{"m3", nil, root + "/SPEC-1/a.json " + root + "/SPEC-2/b.json"},
	)
	src := NewSQLiteSource(path)
	assert.Equal(t, path, src.Name())

	ix, scanned, err := Extract(context.Background(), src, root, evidence.Filter{})
	require.NoError(t, err)
	assert.Equal(t, 3, scanned)
	assert.Equal(t, []string{root + "/SPEC-1/a.json", root + "/SPEC-2/b.json"}, ix.Paths())

	refs := ix[root+"/SPEC-1/a.json"]
	require.Len(t, refs, 2)
	assert.Equal(t, "plan", refs[0].Slug.Text())
	assert.True(t, refs[1].Slug.IsNull())
	assert.Equal(t, "m3", refs[1].ID.Text())
}

func TestSQLiteSource_IntegerID(t *testing.T) {
	path := testDB(t, [3]any{int64(5), nil, "see " + root + "/SPEC-1/a.json"})

	ix, _, err := Extract(context.Background(), NewSQLiteSource(path), root, evidence.Filter{})
	require.NoError(t, err)
	refs := ix[root+"/SPEC-1/a.json"]
	require.Len(t, refs, 1)
	assert.Equal(t, "5", refs[0].ID.Text())
}

func TestSQLiteSource_ReservedCharsInPath(t *testing.T) {
	dir := filepath.Join(t.TempDir(), "odd?dir#1 100%")
	require.NoError(t, os.MkdirAll(dir, 0o755))
	src := testDB(t, [3]any{"m1", nil, "see " + root + "/SPEC-1/a.json"})
	path := filepath.Join(dir, "memories.db")
	require.NoError(t, os.Rename(src, path))

	ix, scanned, err := Extract(context.Background(), NewSQLiteSource(path), root, evidence.Filter{})
	require.NoError(t, err)
	assert.Equal(t, 1, scanned)
	assert.Len(t, ix, 1)
}

func TestReadOnlyDSN(t *testing.T) {
	assert.Equal(t, "file:/tmp/a%3Fb%23c%25d.db?mode=ro&_busy_timeout=5000", readOnlyDSN("/tmp/a?b#c%d.db"))
	assert.Equal(t, "file:/tmp/plain.db?mode=ro&_busy_timeout=5000", readOnlyDSN("/tmp/plain.db"))
}

func TestSQLiteSource_Missing(t *testing.T) {
	src := NewSQLiteSource(filepath.Join(t.TempDir(), "none.db"))
	err := src.Each(context.Background(), func(int, models.MemoryRecord) error { return nil })
	require.Error(t, err)
	assert.ErrorIs(t, err, apperr.ErrNotFound)
}

func TestSQLiteSource_NoMemoriesTable(t *testing.T) {
	path := filepath.Join(t.TempDir(), "empty.db")
	conn, err := sql.Open("sqlite3", path)
	require.NoError(t, err)
	_, err = conn.Exec(`CREATE TABLE other (x TEXT)`)
	require.NoError(t, err)
	require.NoError(t, conn.Close())

	_, _, err = Extract(context.Background(), NewSQLiteSource(path), root, evidence.Filter{})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "query memories")
}
