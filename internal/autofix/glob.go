// File: internal/autofix/glob.go
package autofix

import (
	"regexp"
	"strings"

	"go.uber.org/zap"
)

// PathMatcher is a precompiled set of blocked-path patterns. Patterns use a
// deliberately loose glob dialect: `*` expands to `.*` and therefore matches
// ACROSS path separators ("secrets/*" blocks "secrets/a/b/c.txt"). Existing
// policies depend on that reach, so this matcher preserves it instead of
// adopting per-segment glob semantics. `?` matches any single character.
type PathMatcher struct {
	patterns []*regexp.Regexp
	sources  []string
}

// NewPathMatcher compiles the pattern list. Patterns that fail to compile are
// logged and skipped rather than failing the whole policy load.
func NewPathMatcher(patterns []string, logger *zap.Logger) *PathMatcher {
	m := &PathMatcher{}
	for _, pattern := range patterns {
		re, err := compileGlob(pattern)
		if err != nil {
			logger.Warn("Skipping unusable blocked-path pattern.",
				zap.String("pattern", pattern),
				zap.Error(err))
			continue
		}
		m.patterns = append(m.patterns, re)
		m.sources = append(m.sources, pattern)
	}
	return m
}

// Matches reports whether path is blocked, and by which pattern.
func (m *PathMatcher) Matches(path string) (bool, string) {
	normalized := strings.ReplaceAll(path, "\\", "/")
	for i, re := range m.patterns {
		if re.MatchString(normalized) {
			return true, m.sources[i]
		}
	}
	return false, ""
}

// Empty reports whether no patterns are loaded.
func (m *PathMatcher) Empty() bool { return len(m.patterns) == 0 }

// compileGlob translates one glob pattern to an anchored regexp, escaping
// everything except the two wildcards.
func compileGlob(pattern string) (*regexp.Regexp, error) {
	var b strings.Builder
	b.WriteString("^")
	for _, c := range strings.ReplaceAll(pattern, "\\", "/") {
		switch c {
		case '*':
			b.WriteString(".*")
		case '?':
			b.WriteString(".")
		default:
			b.WriteString(regexp.QuoteMeta(string(c)))
		}
	}
	b.WriteString("$")
	return regexp.Compile(b.String())
}
