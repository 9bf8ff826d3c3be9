package providers

import (
	"context"
	"fmt"
	"sort"
	"strings"
	"sync"
)

// FakeSet returns an in-memory provider set for tests. Every provider
// records its calls and can be primed to fail.
func FakeSet() (Set, *FakeState) {
	state := &FakeState{
		Files: map[string]string{},
	}
	return Set{
		FS:      &fakeFS{state: state},
		Process: &fakeProcess{state: state},
		Browser: &fakeBrowser{state: state},
		System:  &fakeSystem{},
	}, state
}

// FakeState is the shared backing store of a fake provider set.
//
//nolint:govet // fieldalignment: struct layout is human-readable
type FakeState struct {
	mu       sync.Mutex
	Files    map[string]string
	Calls    []string
	FailWith error
}

func (s *FakeState) record(call string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.Calls = append(s.Calls, call)
	return s.FailWith
}

// CallLog returns the recorded calls in order.
func (s *FakeState) CallLog() []string {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]string(nil), s.Calls...)
}

type fakeFS struct{ state *FakeState }

func (f *fakeFS) ListDir(_ context.Context, path string) ([]string, error) {
	if err := f.state.record("list_dir " + path); err != nil {
		return nil, err
	}
	f.state.mu.Lock()
	defer f.state.mu.Unlock()
	var names []string
	prefix := strings.TrimSuffix(path, "/") + "/"
	for name := range f.state.Files {
		if strings.HasPrefix(name, prefix) {
			names = append(names, strings.TrimPrefix(name, prefix))
		}
	}
	sort.Strings(names)
	return names, nil
}

func (f *fakeFS) ReadFile(_ context.Context, path string, maxBytes int) (string, error) {
	if err := f.state.record("read_file " + path); err != nil {
		return "", err
	}
	f.state.mu.Lock()
	defer f.state.mu.Unlock()
	content, ok := f.state.Files[path]
	if !ok {
		return "", fmt.Errorf("%w: %s", ErrNotFound, path)
	}
	if maxBytes > 0 && len(content) > maxBytes {
		content = content[:maxBytes]
	}
	return content, nil
}

func (f *fakeFS) CreateFile(_ context.Context, path, content string) error {
	if err := f.state.record("create_file " + path); err != nil {
		return err
	}
	f.state.mu.Lock()
	defer f.state.mu.Unlock()
	if _, exists := f.state.Files[path]; exists {
		return fmt.Errorf("%w: %s already exists", ErrPermission, path)
	}
	f.state.Files[path] = content
	return nil
}

func (f *fakeFS) WriteFile(_ context.Context, path, content string, overwrite bool) error {
	if err := f.state.record("write_file " + path); err != nil {
		return err
	}
	f.state.mu.Lock()
	defer f.state.mu.Unlock()
	if existing, exists := f.state.Files[path]; exists && !overwrite {
		f.state.Files[path] = existing + content
		return nil
	}
	f.state.Files[path] = content
	return nil
}

func (f *fakeFS) DeletePath(_ context.Context, path string, _ bool) error {
	if err := f.state.record("delete_path " + path); err != nil {
		return err
	}
	f.state.mu.Lock()
	defer f.state.mu.Unlock()
	if _, ok := f.state.Files[path]; !ok {
		return fmt.Errorf("%w: %s", ErrNotFound, path)
	}
	delete(f.state.Files, path)
	return nil
}

func (f *fakeFS) OpenFile(_ context.Context, path string) error {
	return f.state.record("open_file " + path)
}

func (f *fakeFS) PathExists(_ context.Context, path string) (bool, error) {
	f.state.mu.Lock()
	defer f.state.mu.Unlock()
	_, ok := f.state.Files[path]
	return ok, nil
}

type fakeProcess struct{ state *FakeState }

func (p *fakeProcess) OpenApp(_ context.Context, name string) error {
	return p.state.record("open_app " + name)
}

func (p *fakeProcess) AppPath(_ context.Context, name string) (string, error) {
	return "/usr/bin/" + name, nil
}

type fakeBrowser struct{ state *FakeState }

func (b *fakeBrowser) OpenURL(_ context.Context, url string) error {
	return b.state.record("open_url " + url)
}

func (b *fakeBrowser) SearchWeb(_ context.Context, query, engine string) error {
	return b.state.record("search_web " + engine + " " + query)
}

func (b *fakeBrowser) IsURLSafe(url string) bool {
	return strings.HasPrefix(url, "http://") || strings.HasPrefix(url, "https://")
}

type fakeSystem struct{}

func (s *fakeSystem) SystemInfo(context.Context) (map[string]any, error) {
	return map[string]any{"os": "fakeos", "arch": "fake64"}, nil
}

func (s *fakeSystem) MemoryInfo(context.Context) (map[string]any, error) {
	return map[string]any{"heap_alloc_bytes": 1}, nil
}

func (s *fakeSystem) DiskInfo(context.Context) (map[string]any, error) {
	return map[string]any{"working_dir": "/fake"}, nil
}
