// File: internal/autofix/applier/paths.go
package applier

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"
)

// SanitizePath normalizes an untrusted patch path: null bytes are stripped,
// separators are normalized to forward slashes, and "." / ".." segments are
// dropped entirely rather than resolved, so a traversal attempt degrades into
// a path inside the root instead of escaping it.
func SanitizePath(raw string) string {
	cleaned := strings.ReplaceAll(raw, "\x00", "")
	cleaned = strings.ReplaceAll(cleaned, "\\", "/")

	parts := strings.Split(cleaned, "/")
	kept := parts[:0]
	for _, part := range parts {
		if part == "" || part == "." || part == ".." {
			continue
		}
		kept = append(kept, part)
	}
	return strings.Join(kept, "/")
}

// containsTraversal reports whether the raw path carried any ".." segment
// before sanitization. Such paths are rejected outright rather than silently
// repaired, so callers get an explicit PATH_TRAVERSAL instead of a surprise
// target.
func containsTraversal(raw string) bool {
	cleaned := strings.ReplaceAll(strings.ReplaceAll(raw, "\x00", ""), "\\", "/")
	for _, part := range strings.Split(cleaned, "/") {
		if part == ".." {
			return true
		}
	}
	return false
}

// ResolveWithinRoot resolves rel against the project root, following symlinks
// on every existing ancestor, and returns the absolute target path. It fails
// when the resolved target escapes the root, which defeats both ".." tricks
// and symlink-based root escapes.
func ResolveWithinRoot(root, rel string) (string, error) {
	resolvedRoot, err := filepath.EvalSymlinks(root)
	if err != nil {
		return "", fmt.Errorf("cannot resolve project root %q: %w", root, err)
	}
	resolvedRoot, err = filepath.Abs(resolvedRoot)
	if err != nil {
		return "", fmt.Errorf("cannot absolutize project root %q: %w", root, err)
	}

	target := filepath.Join(resolvedRoot, filepath.FromSlash(rel))

	// The target may not exist yet. Walk up to the nearest existing ancestor,
	// resolve its symlinks, then re-attach the non-existent tail.
	resolvedTarget, err := resolveExisting(target)
	if err != nil {
		return "", err
	}

	if !isWithin(resolvedRoot, resolvedTarget) {
		return "", fmt.Errorf("path %q resolves outside the project root", rel)
	}
	return resolvedTarget, nil
}

// IsWithinProjectRoot reports whether rel, resolved against root with symlink
// expansion, stays inside the root.
func IsWithinProjectRoot(root, rel string) bool {
	_, err := ResolveWithinRoot(root, rel)
	return err == nil
}

// resolveExisting resolves symlinks for the longest existing prefix of path
// and joins the remainder back on.
func resolveExisting(path string) (string, error) {
	var tail []string
	current := path
	for {
		resolved, err := filepath.EvalSymlinks(current)
		if err == nil {
			for i := len(tail) - 1; i >= 0; i-- {
				resolved = filepath.Join(resolved, tail[i])
			}
			return resolved, nil
		}
		if !os.IsNotExist(err) {
			return "", fmt.Errorf("cannot resolve %q: %w", current, err)
		}

		parent := filepath.Dir(current)
		if parent == current {
			// Hit the filesystem root without finding anything that exists.
			return path, nil
		}
		tail = append(tail, filepath.Base(current))
		current = parent
	}
}

// isWithin reports whether target equals root or sits beneath it.
func isWithin(root, target string) bool {
	if target == root {
		return true
	}
	return strings.HasPrefix(target, root+string(filepath.Separator))
}

// protectedSuffixes and protectedSegments name paths the applier refuses to
// touch regardless of policy: version-control internals, lockfiles, and
// environment files.
var (
	protectedSegments = []string{".git", ".svn", ".hg"}
	protectedSuffixes = []string{
		".env",
		".env.local",
		".env.production",
		"go.sum",
		"package-lock.json",
		"yarn.lock",
		"pnpm-lock.yaml",
		"Cargo.lock",
		"Gemfile.lock",
		"poetry.lock",
		"composer.lock",
	}
)

// isProtectedPath checks the sanitized relative path against the protected
// segment and suffix lists.
func isProtectedPath(rel string) bool {
	for _, part := range strings.Split(rel, "/") {
		for _, seg := range protectedSegments {
			if part == seg {
				return true
			}
		}
	}
	base := rel
	if idx := strings.LastIndex(rel, "/"); idx >= 0 {
		base = rel[idx+1:]
	}
	for _, suffix := range protectedSuffixes {
		if base == suffix || strings.HasSuffix(base, suffix) {
			return true
		}
	}
	return false
}
