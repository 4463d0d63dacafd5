// Package testutil builds throwaway repositories with an evidence tree and a
// memory export.
package testutil

import (
	"encoding/json"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/starford/nightsync/internal/evidence"
)

// EvidenceRoot is the repo-relative evidence directory fixtures use.
const EvidenceRoot = evidence.DefaultRoot

// Record is a memory export line. A nil ID or Slug encodes as JSON null;
// any other value is written as given, so fixtures can use numeric ids.
type Record struct {
	ID      any    `json:"id"`
	Slug    any    `json:"slug"`
	Content string `json:"content"`
}

// Str returns s as a Record field value.
func Str(s string) any { return s }

// TestRepo creates a temporary repository containing an (empty) evidence
// root and returns its path.
func TestRepo(t *testing.T) string {
	t.Helper()
	repo := t.TempDir()
	if err := os.MkdirAll(filepath.Join(repo, filepath.FromSlash(EvidenceRoot)), 0o755); err != nil {
		t.Fatal(err)
	}
	return repo
}

// WriteEvidence creates each repo-relative file with placeholder content.
func WriteEvidence(t *testing.T, repo string, files ...string) {
	t.Helper()
	for _, f := range files {
		WriteFile(t, repo, f, "{}\n")
	}
}

// WriteExport writes records as JSONL to tmp/memories.jsonl under repo and
// returns the file path.
func WriteExport(t *testing.T, repo string, records ...Record) string {
	t.Helper()
	lines := make([]string, 0, len(records))
	for _, r := range records {
		b, err := json.Marshal(r)
		if err != nil {
			t.Fatal(err)
		}
		lines = append(lines, string(b))
	}
	return WriteFile(t, repo, "tmp/memories.jsonl", strings.Join(lines, "\n")+"\n")
}

// WriteFile writes content to the repo-relative path rel and returns the
// absolute path.
func WriteFile(t *testing.T, repo, rel, content string) string {
	t.Helper()
	p := filepath.Join(repo, filepath.FromSlash(rel))
	if err := os.MkdirAll(filepath.Dir(p), 0o755); err != nil {
		t.Fatal(err)
	}
	if err := os.WriteFile(p, []byte(content), 0o644); err != nil {
		t.Fatal(err)
	}
	return p
}
