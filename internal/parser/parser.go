// Package parser decodes memory export lines and finds evidence citations
// in their free text.
package parser

import (
	"bytes"
	"encoding/json"
	"errors"
	"iter"
	"regexp"

	"github.com/starford/nightsync/internal/models"
)

// pathChars are the characters a citation may contain after the prefix.
const pathChars = `[\p{L}\p{N}_./-]+`

var errNotObject = errors.New("record is not a JSON object")

// Citations finds evidence path spans that start with a fixed prefix.
type Citations struct {
	re *regexp.Regexp
}

// NewCitations returns a finder for spans beginning with prefix followed by
// one or more path characters.
func NewCitations(prefix string) *Citations {
	return &Citations{re: regexp.MustCompile(regexp.QuoteMeta(prefix) + pathChars)}
}

// All yields every non-overlapping candidate span in content, left to right.
// The sequence is computed lazily and can be ranged over any number of times.
func (c *Citations) All(content string) iter.Seq[string] {
	return func(yield func(string) bool) {
		pos := 0
		for pos < len(content) {
			loc := c.re.FindStringIndex(content[pos:])
			if loc == nil {
				return
			}
			if !yield(content[pos+loc[0] : pos+loc[1]]) {
				return
			}
			pos += loc[1]
		}
	}
}

// DecodeRecord parses one export line. The line must be a JSON object whose
// content, when present, is a string. id and slug may hold any JSON value.
func DecodeRecord(line []byte) (models.MemoryRecord, error) {
	var rec models.MemoryRecord
	trimmed := bytes.TrimSpace(line)
	if len(trimmed) == 0 || trimmed[0] != '{' {
		// Still surface the decoder's own message for non-JSON input.
		if !json.Valid(trimmed) {
			return rec, json.Unmarshal(trimmed, &rec)
		}
		return rec, errNotObject
	}
	if err := json.Unmarshal(trimmed, &rec); err != nil {
		return rec, err
	}
	return rec, nil
}
