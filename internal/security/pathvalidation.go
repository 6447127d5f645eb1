// Package security hardens filesystem paths derived from user input.
// The deploy tool embeds ssh targets in backup directory names and
// writes under an output root chosen by a flag; these helpers keep both
// from escaping their intended locations.
package security

import (
	"fmt"
	"path/filepath"
	"strings"
)

// ValidatePathWithinDirectory rejects filePath unless it resolves to a
// location inside safeDir. Symlinks are resolved on both sides, so a
// link pointing out of safeDir is caught. safeDir must exist.
func ValidatePathWithinDirectory(filePath, safeDir string) error {
	absTarget, err := filepath.Abs(filepath.Clean(filePath))
	if err != nil {
		return fmt.Errorf("failed to resolve absolute path: %w", err)
	}
	absSafe, err := filepath.Abs(safeDir)
	if err != nil {
		return fmt.Errorf("failed to resolve safe directory path: %w", err)
	}

	canonSafe, err := filepath.EvalSymlinks(absSafe)
	if err != nil {
		return fmt.Errorf("failed to resolve safe directory symlinks: %w", err)
	}

	canonTarget, err := canonicalize(absTarget)
	if err != nil {
		return err
	}

	rel, err := filepath.Rel(canonSafe, canonTarget)
	if err != nil {
		return fmt.Errorf("path is outside safe directory: %w", err)
	}
	if rel == ".." || strings.HasPrefix(rel, ".."+string(filepath.Separator)) || filepath.IsAbs(rel) {
		return fmt.Errorf("path traversal detected: %s attempts to escape %s", filePath, safeDir)
	}
	return nil
}

// canonicalize resolves symlinks in path. When path does not exist yet,
// the nearest existing ancestor is resolved instead and the remaining
// components joined back on, so a symlinked parent cannot smuggle a new
// file out of the tree.
func canonicalize(path string) (string, error) {
	if resolved, err := filepath.EvalSymlinks(path); err == nil {
		return resolved, nil
	}
	for dir := filepath.Dir(path); ; dir = filepath.Dir(dir) {
		if resolved, err := filepath.EvalSymlinks(dir); err == nil {
			rel, err := filepath.Rel(dir, path)
			if err != nil {
				return "", fmt.Errorf("failed to resolve %s against %s: %w", path, dir, err)
			}
			return filepath.Join(resolved, rel), nil
		}
		if filepath.Dir(dir) == dir {
			return path, nil
		}
	}
}

// SanitizeFilename reduces an arbitrary identifier (ssh target, host
// name) to a safe filename chunk: ASCII letters, digits, dot, dash and
// underscore survive, anything else collapses to a single underscore.
// The result is capped at 128 bytes and never empty.
func SanitizeFilename(s string) string {
	const maxLen = 128

	var b strings.Builder
	prevSub := false
	for _, r := range s {
		if b.Len() >= maxLen {
			break
		}
		ok := r == '.' || r == '_' || r == '-' ||
			(r >= '0' && r <= '9') || (r >= 'a' && r <= 'z') || (r >= 'A' && r <= 'Z')
		if ok {
			b.WriteRune(r)
			prevSub = false
			continue
		}
		if !prevSub {
			b.WriteByte('_')
			prevSub = true
		}
	}

	out := strings.Trim(b.String(), "._")
	if out == "" {
		return "unknown"
	}
	return out
}
