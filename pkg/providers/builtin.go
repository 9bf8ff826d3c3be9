package providers

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"
)

type functionSpec struct {
	tool     string
	function string
	schema   string
	handler  Handler
}

func argString(args map[string]any, name string) string {
	s, _ := args[name].(string)
	return s
}

func argBool(args map[string]any, name string) bool {
	b, _ := args[name].(bool)
	return b
}

func argInt(args map[string]any, name string, fallback int) int {
	switch v := args[name].(type) {
	case int:
		return v
	case float64:
		return int(v)
	default:
		return fallback
	}
}

// builtinFunctions binds every provider function to its handler and
// argument schema. The schema is the call-time contract; the planner
// is trusted but plugin-supplied plans are not.
func builtinFunctions(set Set) []functionSpec {
	return []functionSpec{
		{
			tool: "filesystem", function: "list_dir",
			schema: `{"type":"object","required":["path"],"properties":{"path":{"type":"string","minLength":1}}}`,
			handler: func(ctx context.Context, args map[string]any) (string, error) {
				entries, err := set.FS.ListDir(ctx, argString(args, "path"))
				if err != nil {
					return "", err
				}
				return strings.Join(entries, "\n"), nil
			},
		},
		{
			tool: "filesystem", function: "read_file",
			schema: `{"type":"object","required":["path"],"properties":{"path":{"type":"string","minLength":1},"max_bytes":{"type":"integer","minimum":1}}}`,
			handler: func(ctx context.Context, args map[string]any) (string, error) {
				return set.FS.ReadFile(ctx, argString(args, "path"), argInt(args, "max_bytes", 10240))
			},
		},
		{
			tool: "filesystem", function: "create_file",
			schema: `{"type":"object","required":["path"],"properties":{"path":{"type":"string","minLength":1},"content":{"type":"string"}}}`,
			handler: func(ctx context.Context, args map[string]any) (string, error) {
				path := argString(args, "path")
				if err := set.FS.CreateFile(ctx, path, argString(args, "content")); err != nil {
					return "", err
				}
				return "created " + path, nil
			},
		},
		{
			tool: "filesystem", function: "write_file",
			schema: `{"type":"object","required":["path","content"],"properties":{"path":{"type":"string","minLength":1},"content":{"type":"string"},"overwrite":{"type":"boolean"}}}`,
			handler: func(ctx context.Context, args map[string]any) (string, error) {
				path := argString(args, "path")
				if err := set.FS.WriteFile(ctx, path, argString(args, "content"), argBool(args, "overwrite")); err != nil {
					return "", err
				}
				return "wrote " + path, nil
			},
		},
		{
			tool: "filesystem", function: "delete_path",
			schema: `{"type":"object","required":["path"],"properties":{"path":{"type":"string","minLength":1},"recursive":{"type":"boolean"}}}`,
			handler: func(ctx context.Context, args map[string]any) (string, error) {
				path := argString(args, "path")
				if err := set.FS.DeletePath(ctx, path, argBool(args, "recursive")); err != nil {
					return "", err
				}
				return "deleted " + path, nil
			},
		},
		{
			tool: "filesystem", function: "open_file",
			schema: `{"type":"object","required":["path"],"properties":{"path":{"type":"string","minLength":1}}}`,
			handler: func(ctx context.Context, args map[string]any) (string, error) {
				path := argString(args, "path")
				if err := set.FS.OpenFile(ctx, path); err != nil {
					return "", err
				}
				return "opened " + path, nil
			},
		},
		{
			tool: "filesystem", function: "path_exists",
			schema: `{"type":"object","required":["path"],"properties":{"path":{"type":"string","minLength":1}}}`,
			handler: func(ctx context.Context, args map[string]any) (string, error) {
				exists, err := set.FS.PathExists(ctx, argString(args, "path"))
				if err != nil {
					return "", err
				}
				return fmt.Sprintf("%t", exists), nil
			},
		},
		{
			tool: "process", function: "open_app",
			schema: `{"type":"object","required":["app_name"],"properties":{"app_name":{"type":"string","minLength":1}}}`,
			handler: func(ctx context.Context, args map[string]any) (string, error) {
				app := argString(args, "app_name")
				if err := set.Process.OpenApp(ctx, app); err != nil {
					return "", err
				}
				return "launched " + app, nil
			},
		},
		{
			tool: "process", function: "get_app_path",
			schema: `{"type":"object","required":["app_name"],"properties":{"app_name":{"type":"string","minLength":1}}}`,
			handler: func(ctx context.Context, args map[string]any) (string, error) {
				return set.Process.AppPath(ctx, argString(args, "app_name"))
			},
		},
		{
			tool: "browser", function: "open_url",
			schema: `{"type":"object","required":["url"],"properties":{"url":{"type":"string","pattern":"^https?://"}}}`,
			handler: func(ctx context.Context, args map[string]any) (string, error) {
				url := argString(args, "url")
				if err := set.Browser.OpenURL(ctx, url); err != nil {
					return "", err
				}
				return "opened " + url, nil
			},
		},
		{
			tool: "browser", function: "search_web",
			schema: `{"type":"object","required":["query"],"properties":{"query":{"type":"string","minLength":1},"engine":{"type":"string"}}}`,
			handler: func(ctx context.Context, args map[string]any) (string, error) {
				query := argString(args, "query")
				if err := set.Browser.SearchWeb(ctx, query, argString(args, "engine")); err != nil {
					return "", err
				}
				return "searched for " + query, nil
			},
		},
		{
			tool: "system", function: "get_system_info",
			handler: func(ctx context.Context, args map[string]any) (string, error) {
				return marshalInfo(set.System.SystemInfo(ctx))
			},
		},
		{
			tool: "system", function: "get_memory_info",
			handler: func(ctx context.Context, args map[string]any) (string, error) {
				return marshalInfo(set.System.MemoryInfo(ctx))
			},
		},
		{
			tool: "system", function: "get_disk_info",
			handler: func(ctx context.Context, args map[string]any) (string, error) {
				return marshalInfo(set.System.DiskInfo(ctx))
			},
		},
		{
			// Planning-time denial: the planner emits this no-op when
			// an allow-list rejects a target. Surfaces as DENIED with
			// the rejection reason.
			tool: "system", function: "denied",
			schema: `{"type":"object","required":["reason"],"properties":{"reason":{"type":"string"}}}`,
			handler: func(ctx context.Context, args map[string]any) (string, error) {
				return "", fmt.Errorf("%w: %s", ErrPermission, argString(args, "reason"))
			},
		},
	}
}

func marshalInfo(info map[string]any, err error) (string, error) {
	if err != nil {
		return "", err
	}
	raw, err := json.MarshalIndent(info, "", "  ")
	if err != nil {
		return "", err
	}
	return string(raw), nil
}
