// Package providers defines the capability-provider contracts the
// executor dispatches to, a startup-validated registry from (tool,
// function) to typed handlers, and local OS-backed implementations.
package providers

import (
	"context"
	"errors"
)

// Typed provider errors. The executor classifies everything else as a
// generic failure.
var (
	// ErrPermission marks an operation the provider refused.
	ErrPermission = errors.New("permission denied")
	// ErrNotFound marks a missing target (path, app).
	ErrNotFound = errors.New("not found")
)

// FileSystemProvider covers the filesystem tool namespace.
type FileSystemProvider interface {
	ListDir(ctx context.Context, path string) ([]string, error)
	ReadFile(ctx context.Context, path string, maxBytes int) (string, error)
	CreateFile(ctx context.Context, path, content string) error
	WriteFile(ctx context.Context, path, content string, overwrite bool) error
	DeletePath(ctx context.Context, path string, recursive bool) error
	OpenFile(ctx context.Context, path string) error
	PathExists(ctx context.Context, path string) (bool, error)
}

// ProcessProvider covers the process tool namespace.
type ProcessProvider interface {
	OpenApp(ctx context.Context, name string) error
	AppPath(ctx context.Context, name string) (string, error)
}

// BrowserProvider covers the browser tool namespace.
type BrowserProvider interface {
	OpenURL(ctx context.Context, url string) error
	SearchWeb(ctx context.Context, query, engine string) error
	IsURLSafe(url string) bool
}

// SystemInfoProvider covers the system tool namespace.
type SystemInfoProvider interface {
	SystemInfo(ctx context.Context) (map[string]any, error)
	MemoryInfo(ctx context.Context) (map[string]any, error)
	DiskInfo(ctx context.Context) (map[string]any, error)
}

// Set bundles one provider per namespace. Passed explicitly to the
// registry so the core stays testable with fakes.
type Set struct {
	FS      FileSystemProvider
	Process ProcessProvider
	Browser BrowserProvider
	System  SystemInfoProvider
}
