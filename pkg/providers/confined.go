package providers

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"strings"
)

// NewConfinedFS wraps a filesystem provider so every operation is
// checked against the allowed roots first. A "~/" prefix in a root is
// expanded against the current user's home directory. Empty roots
// leave the provider unconfined.
func NewConfinedFS(inner FileSystemProvider, allowedRoots []string) FileSystemProvider {
	if len(allowedRoots) == 0 {
		return inner
	}
	roots := make([]string, 0, len(allowedRoots))
	for _, root := range allowedRoots {
		roots = append(roots, expandHome(root))
	}
	return &confinedFS{inner: inner, roots: roots}
}

func expandHome(path string) string {
	if path == "~" || strings.HasPrefix(path, "~/") {
		if home, err := os.UserHomeDir(); err == nil {
			return filepath.Join(home, strings.TrimPrefix(path, "~"))
		}
	}
	return path
}

type confinedFS struct {
	inner FileSystemProvider
	roots []string
}

// confine rejects paths resolving outside the allowed roots. Missing
// targets pass: creation needs them, and read paths surface not-found
// from the inner provider.
func (c *confinedFS) confine(path string) error {
	result := CheckPath(path, c.roots)
	switch result.Status {
	case PathTraversal:
		return fmt.Errorf("%w: path %s is outside the allowed directories", ErrPermission, path)
	case PathResolveError:
		return result.Err
	default:
		return nil
	}
}

func (c *confinedFS) ListDir(ctx context.Context, path string) ([]string, error) {
	if err := c.confine(path); err != nil {
		return nil, err
	}
	return c.inner.ListDir(ctx, path)
}

func (c *confinedFS) ReadFile(ctx context.Context, path string, maxBytes int) (string, error) {
	if err := c.confine(path); err != nil {
		return "", err
	}
	return c.inner.ReadFile(ctx, path, maxBytes)
}

func (c *confinedFS) CreateFile(ctx context.Context, path, content string) error {
	if err := c.confine(path); err != nil {
		return err
	}
	return c.inner.CreateFile(ctx, path, content)
}

func (c *confinedFS) WriteFile(ctx context.Context, path, content string, overwrite bool) error {
	if err := c.confine(path); err != nil {
		return err
	}
	return c.inner.WriteFile(ctx, path, content, overwrite)
}

func (c *confinedFS) DeletePath(ctx context.Context, path string, recursive bool) error {
	if err := c.confine(path); err != nil {
		return err
	}
	return c.inner.DeletePath(ctx, path, recursive)
}

func (c *confinedFS) OpenFile(ctx context.Context, path string) error {
	if err := c.confine(path); err != nil {
		return err
	}
	return c.inner.OpenFile(ctx, path)
}

func (c *confinedFS) PathExists(ctx context.Context, path string) (bool, error) {
	if err := c.confine(path); err != nil {
		return false, err
	}
	return c.inner.PathExists(ctx, path)
}
