// Package exclude decides which paths the watcher ignores.
//
// Matching is deliberately coarse: a pattern has its wildcards stripped and
// is then looked for as a plain substring of the path, so "*/node_modules/*"
// excludes every path containing "/node_modules/". The substring is not
// anchored to path segments ("*build*" also excludes "/src/rebuild/.git").
//
// A compiled [Matcher] additionally tries each pattern as an anchored glob
// (gobwas/glob, "/" as separator). This only ever adds exclusions; anything
// the substring rule excludes stays excluded.
package exclude

import (
	"fmt"
	"strings"

	"github.com/gobwas/glob"
)

// normalize converts Windows separators so patterns written with "/" match.
func normalize(path string) string {
	return strings.ReplaceAll(path, `\`, "/")
}

// Fragment returns the substring a pattern matches: separators normalized
// and the wildcard characters "*" and "?" removed.
func Fragment(pattern string) string {
	return strings.NewReplacer("*", "", "?", "").Replace(normalize(pattern))
}

// Excluded reports whether path contains the fragment of any pattern.
func Excluded(path string, patterns []string) bool {
	p := normalize(path)
	for _, pat := range patterns {
		if strings.Contains(p, Fragment(pat)) {
			return true
		}
	}
	return false
}

type rule struct {
	pattern  string
	fragment string
	glob     glob.Glob
}

// Matcher is a compiled set of exclusion patterns.
// The zero value and a nil *Matcher exclude nothing.
type Matcher struct {
	rules []rule
}

// New compiles patterns. It fails if a pattern is not valid glob syntax.
func New(patterns []string) (*Matcher, error) {
	m := &Matcher{rules: make([]rule, 0, len(patterns))}
	for _, pat := range patterns {
		g, err := glob.Compile(normalize(pat), '/')
		if err != nil {
			return nil, fmt.Errorf("invalid pattern %q: %w", pat, err)
		}
		m.rules = append(m.rules, rule{
			pattern:  pat,
			fragment: Fragment(pat),
			glob:     g,
		})
	}
	return m, nil
}

// Which returns the first pattern excluding path.
func (m *Matcher) Which(path string) (string, bool) {
	if m == nil {
		return "", false
	}
	p := normalize(path)
	for _, r := range m.rules {
		if strings.Contains(p, r.fragment) || r.glob.Match(p) {
			return r.pattern, true
		}
	}
	return "", false
}

// Patterns returns the source patterns in order.
func (m *Matcher) Patterns() []string {
	if m == nil {
		return nil
	}
	out := make([]string, len(m.rules))
	for i, r := range m.rules {
		out[i] = r.pattern
	}
	return out
}
