package memory

import (
	"context"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/starford/nightsync/internal/apperr"
	"github.com/starford/nightsync/internal/evidence"
	"github.com/starford/nightsync/internal/models"
)

const root = evidence.DefaultRoot

func writeExport(t *testing.T, lines ...string) *JSONLSource {
	t.Helper()
	p := filepath.Join(t.TempDir(), "memories.jsonl")
	require.NoError(t, os.WriteFile(p, []byte(strings.Join(lines, "\n")+"\n"), 0o644))
	return NewJSONLSource(p)
}

func TestExtract_SingleCitation(t *testing.T) {
	src := writeExport(t, `{"id":"m1","slug":"plan","content":"evidence at `+root+`/SPEC-1/a.json."}`)

	ix, scanned, err := Extract(context.Background(), src, root, evidence.Filter{})
	require.NoError(t, err)
	assert.Equal(t, 1, scanned)
	require.Len(t, ix, 1)

	refs := ix[root+"/SPEC-1/a.json"]
	require.Len(t, refs, 1)
	assert.Equal(t, "m1", refs[0].ID.Text())
	assert.Equal(t, "plan", refs[0].Slug.Text())
	assert.Contains(t, refs[0].Summary, "evidence at")
}

func TestExtract_DeduplicatesWithinRecord(t *testing.T) {
	p := root + "/SPEC-1/a.json"
	src := writeExport(t,
		`{"id":"m1","content":"`+p+` and `+p+`, again `+"`"+p+"`"+`"}`,
		`{"id":"m2","content":"`+p+`"}`,
	)

	ix, _, err := Extract(context.Background(), src, root, evidence.Filter{})
	require.NoError(t, err)
	refs := ix[p]
	require.Len(t, refs, 2, "one ref per citing record")
	assert.Equal(t, "m1", refs[0].ID.Text())
	assert.Equal(t, "m2", refs[1].ID.Text())
	assert.Equal(t, 2, ix.RefCount())
	assert.Equal(t, []string{p}, ix.Paths())
}

func TestExtract_NonStringIDs(t *testing.T) {
	p := root + "/SPEC-1/a.json"
	src := writeExport(t,
		`{"id":42,"content":"see `+p+`"}`,
		`{"id":"m2","slug":7,"content":"see `+p+`"}`,
	)

	ix, scanned, err := Extract(context.Background(), src, root, evidence.Filter{})
	require.NoError(t, err)
	assert.Equal(t, 2, scanned)
	refs := ix[p]
	require.Len(t, refs, 2)
	assert.Equal(t, "42", refs[0].ID.Text())
	assert.True(t, refs[0].Slug.IsNull())
	assert.Equal(t, "7", refs[1].Label())
}

func TestExtract_BlankLinesNotCounted(t *testing.T) {
	src := writeExport(t, "", `{"content":"nothing here"}`, "   ", `{"content":"still nothing"}`, "")

	ix, scanned, err := Extract(context.Background(), src, root, evidence.Filter{})
	require.NoError(t, err)
	assert.Equal(t, 2, scanned, "records without citations still count")
	assert.Empty(t, ix)
}

func TestExtract_SpecFilter(t *testing.T) {
	src := writeExport(t,
		`{"id":"a","content":"`+root+`/SPEC-A/1.json `+root+`/SPEC-B/2.json `+root+`/loose.json"}`,
	)

	ix, _, err := Extract(context.Background(), src, root, evidence.NewFilter("spec-a"))
	require.NoError(t, err)
	assert.Equal(t, []string{root + "/SPEC-A/1.json"}, ix.Paths())

	ix, _, err = Extract(context.Background(), src, root, evidence.Filter{})
	require.NoError(t, err)
	assert.Len(t, ix, 3)
}

func TestExtract_OutsidePrefixDiscarded(t *testing.T) {
	src := writeExport(t, `{"id":"a","content":"docs/other/evidence/commands/SPEC-1/a.json"}`)
	ix, scanned, err := Extract(context.Background(), src, root, evidence.Filter{})
	require.NoError(t, err)
	assert.Equal(t, 1, scanned)
	assert.Empty(t, ix)
}

func TestExtract_MalformedLineIsFatal(t *testing.T) {
	src := writeExport(t,
		`{"id":"ok","content":"`+root+`/SPEC-1/a.json"}`,
		``,
		`this is not json`,
	)
	ix, _, err := Extract(context.Background(), src, root, evidence.Filter{})
	require.Error(t, err)
	assert.Nil(t, ix)
	assert.ErrorIs(t, err, apperr.ErrMalformedRecord)
	assert.Contains(t, err.Error(), "line 3")
}

func TestExtract_MissingExport(t *testing.T) {
	src := NewJSONLSource(filepath.Join(t.TempDir(), "absent.jsonl"))
	_, _, err := Extract(context.Background(), src, root, evidence.Filter{})
	require.Error(t, err)
	assert.ErrorIs(t, err, apperr.ErrNotFound)
	assert.Contains(t, err.Error(), "absent.jsonl")
}

func TestExtract_CancelledContext(t *testing.T) {
	src := writeExport(t, `{"content":"x"}`)
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	_, _, err := Extract(ctx, src, root, evidence.Filter{})
	assert.ErrorIs(t, err, context.Canceled)
}

func TestEachLine_NoTrailingNewline(t *testing.T) {
	var lines []int
	err := EachLine(context.Background(), strings.NewReader("{\"content\":\"a\"}\r\n\n{\"content\":\"b\"}"), func(n int, _ models.MemoryRecord) error {
		lines = append(lines, n)
		return nil
	})
	require.NoError(t, err)
	assert.Equal(t, []int{1, 3}, lines)
}
