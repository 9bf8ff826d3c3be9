package providers

import (
	"context"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func confinedFakeFS(t *testing.T, roots ...string) (FileSystemProvider, *FakeState) {
	t.Helper()
	set, state := FakeSet()
	return NewConfinedFS(set.FS, roots), state
}

func TestConfinedFSAllowsPathsUnderRoot(t *testing.T) {
	root := t.TempDir()
	fs, state := confinedFakeFS(t, root)
	ctx := context.Background()

	target := filepath.Join(root, "notes.txt")
	require.NoError(t, fs.CreateFile(ctx, target, "hello"))
	assert.Contains(t, state.CallLog(), "create_file "+target)

	// A missing path under the root still reaches the inner provider,
	// which reports not-found itself.
	_, err := fs.ReadFile(ctx, filepath.Join(root, "absent.txt"), 64)
	assert.ErrorIs(t, err, ErrNotFound)
}

func TestConfinedFSRejectsPathsOutsideRoots(t *testing.T) {
	root := t.TempDir()
	fs, state := confinedFakeFS(t, root)
	ctx := context.Background()

	for name, call := range map[string]func() error{
		"create": func() error { return fs.CreateFile(ctx, "/etc/passwd.new", "x") },
		"write":  func() error { return fs.WriteFile(ctx, "/etc/hosts", "x", true) },
		"delete": func() error { return fs.DeletePath(ctx, "/var/log", true) },
		"read": func() error {
			_, err := fs.ReadFile(ctx, "/etc/shadow", 64)
			return err
		},
		"list": func() error {
			_, err := fs.ListDir(ctx, "/root")
			return err
		},
		"traversal": func() error {
			return fs.CreateFile(ctx, filepath.Join(root, "..", "escape.txt"), "x")
		},
	} {
		t.Run(name, func(t *testing.T) {
			err := call()
			require.Error(t, err)
			assert.ErrorIs(t, err, ErrPermission)
		})
	}
	// Nothing ever reached the inner provider.
	assert.Empty(t, state.CallLog())
}

func TestConfinedFSMultipleRoots(t *testing.T) {
	docs := t.TempDir()
	downloads := t.TempDir()
	fs, _ := confinedFakeFS(t, docs, downloads)
	ctx := context.Background()

	require.NoError(t, fs.CreateFile(ctx, filepath.Join(docs, "a.txt"), "x"))
	require.NoError(t, fs.CreateFile(ctx, filepath.Join(downloads, "b.txt"), "x"))
	assert.ErrorIs(t, fs.CreateFile(ctx, "/opt/c.txt", "x"), ErrPermission)
}

func TestConfinedFSEmptyRootsIsUnconfined(t *testing.T) {
	set, state := FakeSet()
	fs := NewConfinedFS(set.FS, nil)

	require.NoError(t, fs.CreateFile(context.Background(), "/anywhere/a.txt", "x"))
	assert.Contains(t, state.CallLog(), "create_file /anywhere/a.txt")
}
