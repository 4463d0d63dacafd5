// Package evidence normalizes evidence paths and derives their spec scope.
package evidence

import (
	"sort"
	"strings"
)

// DefaultRoot is the evidence directory the guardrail pipeline writes to.
const DefaultRoot = "docs/SPEC-OPS-004-integrated-coder-hooks/evidence/commands"

// Global is the spec id of paths without a SPEC-* segment.
const Global = "GLOBAL"

const (
	commandsSegment = "commands"
	specPrefix      = "SPEC-"
)

// Normalize canonicalizes a raw citation span. It returns false when the
// span is empty after trimming or does not start with prefix.
func Normalize(raw, prefix string) (string, bool) {
	p := strings.TrimSpace(raw)
	p = strings.Trim(p, "`\"")
	p = strings.TrimRight(p, ").,:;")
	p = strings.ReplaceAll(p, `\`, "/")
	if p == "" || !strings.HasPrefix(p, prefix) {
		return "", false
	}
	return p, true
}

// SpecID returns the segment after "commands" when it looks like a spec id
// (case-insensitive SPEC- prefix, original case kept), or Global.
func SpecID(path string) string {
	if id, ok := specSegment(path); ok {
		return id
	}
	return Global
}

// HasSpec reports whether path carries a real spec segment.
func HasSpec(path string) bool {
	_, ok := specSegment(path)
	return ok
}

func specSegment(path string) (string, bool) {
	parts := strings.Split(strings.ReplaceAll(path, `\`, "/"), "/")
	for i, part := range parts {
		if part != commandsSegment || i+1 >= len(parts) {
			continue
		}
		next := parts[i+1]
		if strings.HasPrefix(strings.ToUpper(next), specPrefix) {
			return next, true
		}
	}
	return "", false
}

// Filter is a case-insensitive set of spec ids. The zero value matches
// everything.
type Filter struct {
	ids map[string]struct{}
}

// NewFilter builds a filter from ids; blank ids are ignored.
func NewFilter(ids ...string) Filter {
	f := Filter{}
	for _, id := range ids {
		id = strings.ToUpper(strings.TrimSpace(id))
		if id == "" {
			continue
		}
		if f.ids == nil {
			f.ids = make(map[string]struct{}, len(ids))
		}
		f.ids[id] = struct{}{}
	}
	return f
}

// Active reports whether the filter restricts anything.
func (f Filter) Active() bool { return len(f.ids) > 0 }

// Includes reports whether path is in scope. Under an active filter a path
// without a spec segment is only kept when Global itself was requested.
func (f Filter) Includes(path string) bool {
	if !f.Active() {
		return true
	}
	id, ok := specSegment(path)
	if !ok {
		id = Global
	}
	_, in := f.ids[strings.ToUpper(id)]
	return in
}

// IDs returns the filter's ids in ascending order, never nil.
func (f Filter) IDs() []string {
	out := make([]string, 0, len(f.ids))
	for id := range f.ids {
		out = append(out, id)
	}
	sort.Strings(out)
	return out
}
