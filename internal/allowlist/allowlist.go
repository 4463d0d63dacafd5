// Package allowlist loads glob patterns that exempt evidence paths from
// drift reporting.
package allowlist

import (
	"bufio"
	"errors"
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/gobwas/glob"

	"github.com/starford/nightsync/internal/apperr"
	"github.com/starford/nightsync/internal/evidence"
)

// Load reads a newline-delimited pattern file. An empty path yields no
// patterns; a path that does not exist is an error.
func Load(path string) ([]string, error) {
	if path == "" {
		return nil, nil
	}
	f, err := os.Open(path)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return nil, fmt.Errorf("allowlist file not found: %s: %w", path, apperr.ErrNotFound)
		}
		return nil, fmt.Errorf("allowlist: open %s: %w", path, err)
	}
	defer f.Close()

	patterns, err := Parse(f)
	if err != nil {
		return nil, fmt.Errorf("allowlist: read %s: %w", path, err)
	}
	return patterns, nil
}

// Parse returns the patterns in r, skipping blank lines and # comments.
func Parse(r io.Reader) ([]string, error) {
	var out []string
	sc := bufio.NewScanner(r)
	for sc.Scan() {
		line := strings.TrimSpace(sc.Text())
		if line == "" || strings.HasPrefix(line, "#") {
			continue
		}
		out = append(out, line)
	}
	return out, sc.Err()
}

type rule struct {
	raw string
	g   glob.Glob
}

// Matcher evaluates paths against compiled patterns. A nil Matcher allows
// nothing.
type Matcher struct {
	rules []rule
}

// New compiles patterns with fnmatch rules: "*" and "?" match across "/",
// "[...]" is a character class, and everything else is literal. A pattern
// that still does not compile is matched literally.
func New(patterns []string) (*Matcher, error) {
	m := &Matcher{rules: make([]rule, 0, len(patterns))}
	for _, p := range patterns {
		g, err := glob.Compile(translate(p))
		if err != nil {
			g, err = glob.Compile(glob.QuoteMeta(p))
		}
		if err != nil {
			return nil, fmt.Errorf("allowlist: bad pattern %q (%v): %w", p, err, apperr.ErrInvalidConfig)
		}
		m.rules = append(m.rules, rule{raw: p, g: g})
	}
	return m, nil
}

// translate escapes the characters glob treats specially but fnmatch does
// not: braces, backslashes, and a "[" that opens no usable class.
func translate(p string) string {
	var b strings.Builder
	for i := 0; i < len(p); i++ {
		switch c := p[i]; c {
		case '{', '}', '\\':
			b.WriteByte('\\')
			b.WriteByte(c)
		case '[':
			end := classEnd(p, i)
			if end < 0 {
				b.WriteString(`\[`)
				continue
			}
			b.WriteString(p[i : end+1])
			i = end
		default:
			b.WriteByte(c)
		}
	}
	return b.String()
}

// classEnd returns the index of the "]" closing the class opened at p[i],
// or -1. Classes glob cannot express the same way (a leading "]", an
// embedded backslash, "[" or brace) are reported as unclosed so they stay
// literal.
func classEnd(p string, i int) int {
	j := i + 1
	if j < len(p) && p[j] == '!' {
		j++
	}
	k := strings.IndexByte(p[j:], ']')
	if k <= 0 {
		return -1
	}
	if strings.ContainsAny(p[j:j+k], `\[{}`) {
		return -1
	}
	return j + k
}

// Len returns the number of patterns.
func (m *Matcher) Len() int {
	if m == nil {
		return 0
	}
	return len(m.rules)
}

// Allowed reports whether any pattern matches path or its spec id.
func (m *Matcher) Allowed(path string) bool {
	_, ok := m.Match(path)
	return ok
}

// Match is Allowed that also returns the first matching pattern.
func (m *Matcher) Match(path string) (string, bool) {
	if m == nil {
		return "", false
	}
	spec := evidence.SpecID(path)
	for _, r := range m.rules {
		if r.g.Match(path) || r.g.Match(spec) {
			return r.raw, true
		}
	}
	return "", false
}
