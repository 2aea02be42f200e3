// File: internal/autofix/glob_test.go
package autofix

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"go.uber.org/zap"
)

func TestPathMatcher(t *testing.T) {
	t.Parallel()

	m := NewPathMatcher([]string{
		"vendor/*",
		"*.generated.go",
		"secrets/?.txt",
		"exact/path.txt",
	}, zap.NewNop())

	testCases := []struct {
		path    string
		blocked bool
		pattern string
	}{
		// The star deliberately matches across separators.
		{path: "vendor/lib/deep/nested.go", blocked: true, pattern: "vendor/*"},
		{path: "vendor/x.go", blocked: true, pattern: "vendor/*"},
		{path: "models.generated.go", blocked: true, pattern: "*.generated.go"},
		{path: "pkg/api/models.generated.go", blocked: true, pattern: "*.generated.go"},
		{path: "secrets/a.txt", blocked: true, pattern: "secrets/?.txt"},
		{path: "secrets/ab.txt", blocked: false},
		{path: "exact/path.txt", blocked: true, pattern: "exact/path.txt"},
		{path: "exact/path.txt.bak", blocked: false},
		{path: "src/app.go", blocked: false},
		{path: "notvendor/x.go", blocked: false},
	}

	for _, tc := range testCases {
		t.Run(tc.path, func(t *testing.T) {
			t.Parallel()
			blocked, pattern := m.Matches(tc.path)
			assert.Equal(t, tc.blocked, blocked)
			if tc.blocked {
				assert.Equal(t, tc.pattern, pattern)
			}
		})
	}
}

func TestPathMatcher_BackslashInput(t *testing.T) {
	t.Parallel()
	m := NewPathMatcher([]string{"vendor/*"}, zap.NewNop())

	blocked, _ := m.Matches(`vendor\lib\x.go`)
	assert.True(t, blocked, "windows-style separators are normalized before matching")
}

func TestPathMatcher_Empty(t *testing.T) {
	t.Parallel()
	m := NewPathMatcher(nil, zap.NewNop())
	assert.True(t, m.Empty())
	blocked, _ := m.Matches("anything")
	assert.False(t, blocked)
}
