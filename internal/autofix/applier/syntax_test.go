// File: internal/autofix/applier/syntax_test.go
package applier

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestScanSource(t *testing.T) {
	t.Parallel()

	testCases := []struct {
		name    string
		path    string
		content string
		wantErr string
	}{
		{
			name:    "balanced go source",
			path:    "main.go",
			content: "package main\n\nfunc main() {\n\tprintln(\"hi\")\n}\n",
		},
		{
			name:    "unmatched closing brace",
			path:    "main.go",
			content: "func main() {}\n}\n",
			wantErr: "unmatched",
		},
		{
			name:    "unclosed brace",
			path:    "main.go",
			content: "func main() {\n\tprintln(1)\n",
			wantErr: "unclosed",
		},
		{
			name:    "mismatched bracket pair",
			path:    "app.js",
			content: "const x = [1, 2};\n",
			wantErr: "mismatched",
		},
		{
			name:    "unterminated string",
			path:    "app.js",
			content: "const s = \"oops\nconst t = 1;\n",
			wantErr: "unterminated string",
		},
		{
			name:    "unterminated block comment",
			path:    "main.c",
			content: "int main() { return 0; }\n/* never closed\n",
			wantErr: "unterminated block comment",
		},
		{
			name:    "raw string spans lines",
			path:    "main.go",
			content: "var q = `line one\nline two with { unbalanced`\n",
		},
		{
			name:    "unterminated raw string",
			path:    "main.go",
			content: "var q = `never closed\n",
			wantErr: "unterminated raw string",
		},
		{
			name:    "brackets inside comments ignored",
			path:    "main.go",
			content: "// }}}}\n/* ((( */\nfunc ok() {}\n",
		},
		{
			name:    "brackets inside strings ignored",
			path:    "app.py",
			content: "s = \"}}{{((\"\n",
		},
		{
			name:    "hash comments in scripts",
			path:    "setup.sh",
			content: "# }}} unbalanced in comment\necho ok\n",
		},
		{
			name:    "js regex literal with brackets",
			path:    "app.js",
			content: "const re = /[)}{]/;\nconst y = (1 + 2);\n",
		},
		{
			name:    "division is not a regex",
			path:    "app.js",
			content: "const x = a / b / c;\n",
		},
		{
			name:    "escaped quote stays in string",
			path:    "app.js",
			content: "const s = \"a\\\"b\";\n",
		},
		{
			name:    "non source file is not scanned",
			path:    "notes.txt",
			content: "((((( \" unbalanced everything",
		},
	}

	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			t.Parallel()
			err := scanSource(tc.path, tc.content)
			if tc.wantErr == "" {
				assert.NoError(t, err)
			} else {
				require.Error(t, err)
				assert.Contains(t, err.Error(), tc.wantErr)
			}
		})
	}
}

func TestClassify(t *testing.T) {
	t.Parallel()

	assert.Equal(t, classC, classify("x/y/main.go"))
	assert.Equal(t, classC, classify("App.TSX"))
	assert.Equal(t, classScript, classify("deploy.sh"))
	assert.Equal(t, classJSON, classify("package.json"))
	assert.Equal(t, classYAML, classify("stack.yaml"))
	assert.Equal(t, classNone, classify("README.md"))
}
