package providers

import (
	"context"
	"fmt"
	"net/url"
	"os"
	"os/exec"
	"path/filepath"
	"runtime"
	"strings"
)

// NewLocal builds the OS-backed provider set for this platform. The
// caller holds it as an explicit dependency; there is no process-wide
// singleton.
func NewLocal() Set {
	return Set{
		FS:      &localFS{},
		Process: &localProcess{},
		Browser: &localBrowser{engines: defaultEngines()},
		System:  &localSystem{},
	}
}

func defaultEngines() map[string]string {
	return map[string]string{
		"default":    "https://duckduckgo.com/?q=%s",
		"duckduckgo": "https://duckduckgo.com/?q=%s",
		"google":     "https://www.google.com/search?q=%s",
	}
}

// wrapFSErr folds OS errors into the typed provider errors.
func wrapFSErr(err error) error {
	switch {
	case err == nil:
		return nil
	case os.IsNotExist(err):
		return fmt.Errorf("%w: %v", ErrNotFound, err)
	case os.IsPermission(err):
		return fmt.Errorf("%w: %v", ErrPermission, err)
	default:
		return err
	}
}

type localFS struct{}

func (l *localFS) ListDir(_ context.Context, path string) ([]string, error) {
	entries, err := os.ReadDir(path)
	if err != nil {
		return nil, wrapFSErr(err)
	}
	names := make([]string, 0, len(entries))
	for _, e := range entries {
		name := e.Name()
		if e.IsDir() {
			name += "/"
		}
		names = append(names, name)
	}
	return names, nil
}

func (l *localFS) ReadFile(_ context.Context, path string, maxBytes int) (string, error) {
	f, err := os.Open(path)
	if err != nil {
		return "", wrapFSErr(err)
	}
	defer f.Close()

	if maxBytes <= 0 {
		maxBytes = 10240
	}
	buf := make([]byte, maxBytes)
	n, err := f.Read(buf)
	if err != nil && n == 0 {
		return "", wrapFSErr(err)
	}
	return string(buf[:n]), nil
}

func (l *localFS) CreateFile(_ context.Context, path, content string) error {
	f, err := os.OpenFile(path, os.O_WRONLY|os.O_CREATE|os.O_EXCL, 0o644)
	if err != nil {
		return wrapFSErr(err)
	}
	defer f.Close()
	_, err = f.WriteString(content)
	return wrapFSErr(err)
}

func (l *localFS) WriteFile(_ context.Context, path, content string, overwrite bool) error {
	flags := os.O_WRONLY | os.O_CREATE
	if overwrite {
		flags |= os.O_TRUNC
	} else {
		flags |= os.O_APPEND
	}
	f, err := os.OpenFile(path, flags, 0o644)
	if err != nil {
		return wrapFSErr(err)
	}
	defer f.Close()
	_, err = f.WriteString(content)
	return wrapFSErr(err)
}

func (l *localFS) DeletePath(_ context.Context, path string, recursive bool) error {
	if recursive {
		return wrapFSErr(os.RemoveAll(path))
	}
	return wrapFSErr(os.Remove(path))
}

func (l *localFS) OpenFile(ctx context.Context, path string) error {
	if _, err := os.Stat(path); err != nil {
		return wrapFSErr(err)
	}
	return openWithDefaultApp(ctx, path)
}

func (l *localFS) PathExists(_ context.Context, path string) (bool, error) {
	_, err := os.Stat(path)
	if err == nil {
		return true, nil
	}
	if os.IsNotExist(err) {
		return false, nil
	}
	return false, wrapFSErr(err)
}

type localProcess struct{}

func (l *localProcess) OpenApp(ctx context.Context, name string) error {
	path, err := l.AppPath(ctx, name)
	if err != nil {
		return err
	}
	cmd := exec.CommandContext(ctx, path)
	if err := cmd.Start(); err != nil {
		return fmt.Errorf("launch %s: %w", name, err)
	}
	// Detach: the assistant does not supervise launched apps.
	go func() { _ = cmd.Wait() }()
	return nil
}

func (l *localProcess) AppPath(_ context.Context, name string) (string, error) {
	// App names may carry spaces ("visual studio code"); the binary
	// convention is dash-joined.
	candidates := []string{name, strings.ReplaceAll(name, " ", "-")}
	for _, c := range candidates {
		if path, err := exec.LookPath(c); err == nil {
			return path, nil
		}
	}
	return "", fmt.Errorf("%w: application %q", ErrNotFound, name)
}

type localBrowser struct {
	engines map[string]string
}

func (l *localBrowser) OpenURL(ctx context.Context, rawURL string) error {
	if !l.IsURLSafe(rawURL) {
		return fmt.Errorf("%w: refusing to open %q", ErrPermission, rawURL)
	}
	return openWithDefaultApp(ctx, rawURL)
}

func (l *localBrowser) SearchWeb(ctx context.Context, query, engine string) error {
	template, ok := l.engines[engine]
	if !ok {
		template = l.engines["default"]
	}
	return l.OpenURL(ctx, fmt.Sprintf(template, url.QueryEscape(query)))
}

// IsURLSafe accepts only parseable http(s) URLs with a host.
func (l *localBrowser) IsURLSafe(rawURL string) bool {
	u, err := url.Parse(rawURL)
	if err != nil {
		return false
	}
	return (u.Scheme == "http" || u.Scheme == "https") && u.Host != ""
}

type localSystem struct{}

func (l *localSystem) SystemInfo(_ context.Context) (map[string]any, error) {
	hostname, _ := os.Hostname()
	return map[string]any{
		"os":       runtime.GOOS,
		"arch":     runtime.GOARCH,
		"cpus":     runtime.NumCPU(),
		"hostname": hostname,
		"go":       runtime.Version(),
	}, nil
}

func (l *localSystem) MemoryInfo(_ context.Context) (map[string]any, error) {
	var m runtime.MemStats
	runtime.ReadMemStats(&m)
	return map[string]any{
		"heap_alloc_bytes": m.HeapAlloc,
		"heap_sys_bytes":   m.HeapSys,
		"num_gc":           m.NumGC,
	}, nil
}

func (l *localSystem) DiskInfo(_ context.Context) (map[string]any, error) {
	wd, err := os.Getwd()
	if err != nil {
		return nil, err
	}
	return map[string]any{
		"working_dir": wd,
		"volume":      filepath.VolumeName(wd),
	}, nil
}

// openWithDefaultApp hands a path or URL to the platform opener.
func openWithDefaultApp(ctx context.Context, target string) error {
	var cmd *exec.Cmd
	switch runtime.GOOS {
	case "darwin":
		cmd = exec.CommandContext(ctx, "open", target)
	case "windows":
		cmd = exec.CommandContext(ctx, "rundll32", "url.dll,FileProtocolHandler", target)
	default:
		cmd = exec.CommandContext(ctx, "xdg-open", target)
	}
	if err := cmd.Start(); err != nil {
		return fmt.Errorf("open %s: %w", target, err)
	}
	go func() { _ = cmd.Wait() }()
	return nil
}
