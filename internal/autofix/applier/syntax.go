// File: internal/autofix/applier/syntax.go
package applier

import (
	"fmt"
	"path/filepath"
	"strings"
)

// The scanner below is deliberately shallow: it tracks strings, comments,
// regex literals, and bracket balance, and nothing else. It exists to catch
// patches that are outright broken (an unterminated string, a stray brace),
// not to understand the language.

// languageClass selects the comment/string conventions the scanner applies.
type languageClass int

const (
	classNone languageClass = iota // Not source-like; no scan.
	classC                        // C-family: // line, /* */ block comments.
	classScript                   // Hash comments (#), no block comments.
	classJSON                     // Structured data: strict parse.
	classYAML                     // Structured data: strict parse.
)

// regexCapable marks extensions where a bare /.../ regex literal is legal and
// must not be confused with division or comments.
var regexCapable = map[string]bool{
	".js": true, ".jsx": true, ".ts": true, ".tsx": true, ".mjs": true, ".cjs": true,
}

func classify(path string) languageClass {
	switch ext := strings.ToLower(filepath.Ext(path)); ext {
	case ".go", ".js", ".jsx", ".ts", ".tsx", ".mjs", ".cjs", ".java", ".c", ".h", ".cpp", ".cc", ".hpp", ".cs", ".kt":
		return classC
	case ".py", ".rb", ".sh", ".bash", ".pl", ".r":
		return classScript
	case ".json":
		return classJSON
	case ".yaml", ".yml":
		return classYAML
	default:
		return classNone
	}
}

// bracketPair maps closers to their openers.
var bracketPair = map[rune]rune{')': '(', ']': '[', '}': '{'}

type openBracket struct {
	char rune
	line int
}

// scanSource runs the context-aware bracket/quote/comment scan over source
// content and returns the first structural problem found, or nil.
func scanSource(path, content string) error {
	class := classify(path)
	if class != classC && class != classScript {
		return nil
	}

	ext := strings.ToLower(filepath.Ext(path))
	allowRegex := regexCapable[ext]
	rawStrings := ext == ".go" || regexCapable[ext] // backtick literals span lines

	var (
		stack        []openBracket
		inString     bool
		quote        rune
		escaped      bool
		inLineCmt    bool
		inBlockCmt   bool
		inRegex      bool
		inRegexClass bool
		line         = 1
		stringLine   int
		blockCmtLine int
		lastSig      rune // last significant rune outside strings/comments
	)

	runes := []rune(content)
	for i := 0; i < len(runes); i++ {
		c := runes[i]
		if c == '\n' {
			line++
			if inLineCmt {
				inLineCmt = false
			}
			if inString && quote != '`' {
				// A newline inside a normal quoted string is an unterminated
				// literal for every language this scanner covers.
				return fmt.Errorf("unterminated string starting on line %d", stringLine)
			}
			continue
		}

		switch {
		case inLineCmt:
			// Consumed until newline above.

		case inBlockCmt:
			if c == '*' && i+1 < len(runes) && runes[i+1] == '/' {
				inBlockCmt = false
				i++
			}

		case inString:
			if escaped {
				escaped = false
			} else if c == '\\' && quote != '`' {
				escaped = true
			} else if c == quote {
				inString = false
				lastSig = quote
			}

		case inRegex:
			if escaped {
				escaped = false
			} else if c == '\\' {
				escaped = true
			} else if c == '[' {
				inRegexClass = true
			} else if c == ']' {
				inRegexClass = false
			} else if c == '/' && !inRegexClass {
				inRegex = false
				lastSig = '/'
			}

		case c == '\'' || c == '"':
			inString = true
			quote = c
			stringLine = line

		case c == '`' && rawStrings:
			inString = true
			quote = c
			stringLine = line

		case class == classScript && c == '#':
			inLineCmt = true

		case class == classC && c == '/' && i+1 < len(runes) && runes[i+1] == '/':
			inLineCmt = true
			i++

		case class == classC && c == '/' && i+1 < len(runes) && runes[i+1] == '*':
			inBlockCmt = true
			blockCmtLine = line
			i++

		case allowRegex && c == '/' && regexCanStart(lastSig):
			inRegex = true
			inRegexClass = false

		case c == '(' || c == '[' || c == '{':
			stack = append(stack, openBracket{char: c, line: line})
			lastSig = c

		case c == ')' || c == ']' || c == '}':
			if len(stack) == 0 {
				return fmt.Errorf("unmatched %q on line %d", c, line)
			}
			top := stack[len(stack)-1]
			if top.char != bracketPair[c] {
				return fmt.Errorf("mismatched bracket: %q on line %d closes %q from line %d", c, line, top.char, top.line)
			}
			stack = stack[:len(stack)-1]
			lastSig = c

		default:
			if c != ' ' && c != '\t' && c != '\r' {
				lastSig = c
			}
		}
	}

	if inString && quote == '`' {
		return fmt.Errorf("unterminated raw string starting on line %d", stringLine)
	}
	if inString {
		return fmt.Errorf("unterminated string starting on line %d", stringLine)
	}
	if inBlockCmt {
		return fmt.Errorf("unterminated block comment starting on line %d", blockCmtLine)
	}
	if len(stack) > 0 {
		top := stack[len(stack)-1]
		return fmt.Errorf("unclosed %q from line %d", top.char, top.line)
	}
	return nil
}

// regexCanStart reports whether a '/' following lastSig begins a regex
// literal rather than division. Mirrors the usual heuristic: a regex can only
// start where an expression is expected.
func regexCanStart(lastSig rune) bool {
	switch lastSig {
	case 0, '(', '[', '{', ',', ';', '=', ':', '!', '&', '|', '?', '+', '-', '*', '%', '<', '>', '~':
		return true
	}
	return false
}
