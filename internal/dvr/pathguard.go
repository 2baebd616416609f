package dvr

import (
	"fmt"
	"path/filepath"
	"strings"
)

// ResolveWithin resolves ref against root (unless ref is absolute),
// canonicalizes both paths following symlinks, and returns the
// canonical path of ref only if it is contained in root. A reference
// that resolves outside root fails with ErrPathEscape.
//
// Playlist content is written by the capture process, but it is still
// treated as untrusted before any read or move derived from it.
func ResolveWithin(root, ref string) (string, error) {
	joined := ref
	if !filepath.IsAbs(joined) {
		joined = filepath.Join(root, ref)
	}
	joined = filepath.Clean(joined)

	canonRoot, err := filepath.EvalSymlinks(root)
	if err != nil {
		return "", fmt.Errorf("canonicalize root %s: %w", root, err)
	}

	// Lexical containment first, so traversal is reported as an escape
	// even when the referenced file does not exist.
	if !contained(filepath.Clean(root), joined) && !contained(canonRoot, joined) {
		return "", fmt.Errorf("%w: %s", ErrPathEscape, ref)
	}

	canon, err := filepath.EvalSymlinks(joined)
	if err != nil {
		return "", fmt.Errorf("canonicalize %s: %w", joined, err)
	}
	if !contained(canonRoot, canon) {
		return "", fmt.Errorf("%w: %s", ErrPathEscape, ref)
	}
	return canon, nil
}

// contained reports whether path sits at or below root, comparing
// lexically on already-cleaned paths.
func contained(root, path string) bool {
	rel, err := filepath.Rel(root, path)
	if err != nil {
		return false
	}
	if rel == "." {
		return true
	}
	return rel != ".." && !strings.HasPrefix(rel, ".."+string(filepath.Separator))
}
