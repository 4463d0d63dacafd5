// Package models defines the domain types shared by the drift packages.
package models

import (
	"bytes"
	"encoding/json"
	"fmt"
	"strconv"
	"strings"
)

// SummaryLimit is the maximum length, in characters, of a MemoryRef summary.
const SummaryLimit = 200

// MemoryRecord is one entry of the local-memory log.
type MemoryRecord struct {
	ID      Value  `json:"id"`
	Slug    Value  `json:"slug"`
	Content string `json:"content"`
}

// MemoryRef identifies a record that cites an evidence path.
type MemoryRef struct {
	ID      Value  `json:"id"`
	Slug    Value  `json:"slug"`
	Summary string `json:"summary"`
}

// Ref builds the citing-record summary for r.
func (r MemoryRecord) Ref() MemoryRef {
	return MemoryRef{
		ID:      r.ID,
		Slug:    r.Slug,
		Summary: Summarize(r.Content),
	}
}

// Label is the name a human report shows for the citing record: the slug
// when set and non-empty, else the id, else "".
func (m MemoryRef) Label() string {
	if m.Slug.Set() {
		return m.Slug.Text()
	}
	if m.ID.Set() {
		return m.ID.Text()
	}
	return ""
}

// Summarize truncates content to SummaryLimit characters and folds newlines
// into spaces.
func Summarize(content string) string {
	runes := []rune(content)
	if len(runes) > SummaryLimit {
		content = string(runes[:SummaryLimit])
	}
	return strings.ReplaceAll(content, "\n", " ")
}

// Value is a record id or slug kept as the JSON it was read from, so the
// report echoes strings, numbers or anything else unchanged. The zero
// Value is null.
type Value struct {
	raw json.RawMessage
}

// StringValue returns a Value holding s.
func StringValue(s string) Value {
	b, _ := json.Marshal(s)
	return Value{raw: b}
}

// ValueOf converts a Go value (as returned by a database driver) to a Value.
// nil maps to null and []byte is treated as text.
func ValueOf(v any) (Value, error) {
	switch x := v.(type) {
	case nil:
		return Value{}, nil
	case []byte:
		v = string(x)
	}
	b, err := json.Marshal(v)
	if err != nil {
		return Value{}, err
	}
	return Value{raw: b}, nil
}

// IsNull reports whether the value is absent or JSON null.
func (v Value) IsNull() bool {
	return len(v.raw) == 0 || string(v.raw) == "null"
}

// Set reports whether the value counts as present for labelling: not null,
// not an empty string, zero, false or an empty array or object.
func (v Value) Set() bool {
	if v.IsNull() {
		return false
	}
	switch s := string(v.raw); s {
	case `""`, "false", "[]", "{}":
		return false
	default:
		if f, err := strconv.ParseFloat(s, 64); err == nil {
			return f != 0
		}
		return true
	}
}

// Text renders the value for humans: strings unquoted, anything else as its
// compact JSON text, null as "".
func (v Value) Text() string {
	if v.IsNull() {
		return ""
	}
	var s string
	if err := json.Unmarshal(v.raw, &s); err == nil {
		return s
	}
	var buf bytes.Buffer
	if err := json.Compact(&buf, v.raw); err != nil {
		return string(v.raw)
	}
	return buf.String()
}

// String implements fmt.Stringer.
func (v Value) String() string { return v.Text() }

// MarshalJSON echoes the original JSON. Objects are re-encoded so their keys
// come out sorted like the rest of the report.
func (v Value) MarshalJSON() ([]byte, error) {
	if v.IsNull() {
		return []byte("null"), nil
	}
	if c := v.raw[0]; c != '{' && c != '[' {
		return v.raw, nil
	}
	dec := json.NewDecoder(bytes.NewReader(v.raw))
	dec.UseNumber()
	var x any
	if err := dec.Decode(&x); err != nil {
		return nil, fmt.Errorf("models: re-encode value: %w", err)
	}
	return json.Marshal(x)
}

// UnmarshalJSON keeps any JSON value verbatim. null decodes to the zero
// Value.
func (v *Value) UnmarshalJSON(b []byte) error {
	if string(b) == "null" {
		v.raw = nil
		return nil
	}
	v.raw = append(json.RawMessage(nil), b...)
	return nil
}
