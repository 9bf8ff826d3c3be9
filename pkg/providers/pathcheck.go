package providers

import (
	"os"
	"path/filepath"
	"strings"
)

// PathStatus tags the outcome of a path check.
type PathStatus string

// Path check outcomes.
const (
	PathOK           PathStatus = "OK"
	PathNotFound     PathStatus = "NOT_FOUND"
	PathTraversal    PathStatus = "TRAVERSAL"
	PathResolveError PathStatus = "RESOLVE_ERROR"
)

// PathCheckResult distinguishes "does not exist", "traversal attempt"
// and "resolution error" as separate outcomes instead of one generic
// failure.
//
//nolint:govet // fieldalignment: struct layout is human-readable
type PathCheckResult struct {
	Status   PathStatus
	Resolved string
	Err      error
}

// Allowed reports whether the path passed the check.
func (r PathCheckResult) Allowed() bool { return r.Status == PathOK }

// CheckPath resolves path and verifies it stays under one of the
// allowed roots. Empty roots means any resolvable, existing path
// passes.
func CheckPath(path string, allowedRoots []string) PathCheckResult {
	resolved, err := filepath.Abs(path)
	if err != nil {
		return PathCheckResult{Status: PathResolveError, Err: err}
	}
	resolved = filepath.Clean(resolved)

	if len(allowedRoots) > 0 && !underAnyRoot(resolved, allowedRoots) {
		return PathCheckResult{Status: PathTraversal, Resolved: resolved}
	}

	if _, err := os.Lstat(resolved); err != nil {
		if os.IsNotExist(err) {
			return PathCheckResult{Status: PathNotFound, Resolved: resolved}
		}
		return PathCheckResult{Status: PathResolveError, Resolved: resolved, Err: err}
	}
	return PathCheckResult{Status: PathOK, Resolved: resolved}
}

func underAnyRoot(resolved string, roots []string) bool {
	target := filepath.ToSlash(resolved)
	for _, root := range roots {
		abs, err := filepath.Abs(root)
		if err != nil {
			continue
		}
		r := filepath.ToSlash(filepath.Clean(abs))
		if target == r || strings.HasPrefix(target, r+"/") {
			return true
		}
	}
	return false
}
