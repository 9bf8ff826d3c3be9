// Package planner turns intents into ordered action plans with
// statically assigned risk levels. Planning is deterministic and
// total: every intent type, including unknown and the confirm/deny
// meta-intents, maps to exactly one handler.
package planner

import (
	"fmt"
	"log/slog"
	"strings"

	"github.com/asphodel42/amadeus/pkg/contracts"
)

// Config carries the planner allow-lists and size limits. The zero
// value is not usable; start from DefaultConfig or a loaded profile.
//
//nolint:govet // fieldalignment: struct layout is human-readable
type Config struct {
	AllowedApps []string `yaml:"allowed_apps" json:"allowed_apps"`

	// AllowedDirectories confines filesystem actions. Consumed by the
	// provider layer; see providers.NewConfinedFS.
	AllowedDirectories []string `yaml:"allowed_directories" json:"allowed_directories"`

	SearchEngines map[string]string `yaml:"search_engines" json:"search_engines"`
	MaxReadSize   int               `yaml:"max_read_size" json:"max_read_size"`
	MaxWriteSize  int               `yaml:"max_write_size" json:"max_write_size"`
}

// DefaultConfig returns the built-in allow-lists.
func DefaultConfig() Config {
	return Config{
		AllowedApps:        defaultAllowedApps(),
		AllowedDirectories: []string{"~/Documents", "~/Downloads", "~/Desktop"},
		SearchEngines: map[string]string{
			"default":    "https://duckduckgo.com/?q=%s",
			"duckduckgo": "https://duckduckgo.com/?q=%s",
			"google":     "https://www.google.com/search?q=%s",
		},
		MaxReadSize:  10240,
		MaxWriteSize: 1 << 20,
	}
}

type planFunc func(intent contracts.Intent) []contracts.Action

// Planner maps one intent to one plan.
type Planner struct {
	cfg         Config
	allowedApps map[string]bool
	handlers    map[contracts.IntentType]planFunc
	log         *slog.Logger
}

// New builds a planner over cfg.
func New(cfg Config) *Planner {
	p := &Planner{
		cfg:         cfg,
		allowedApps: make(map[string]bool, len(cfg.AllowedApps)),
		log:         slog.Default().With("component", "planner"),
	}
	for _, app := range cfg.AllowedApps {
		p.allowedApps[strings.ToLower(app)] = true
	}
	p.handlers = map[contracts.IntentType]planFunc{
		contracts.IntentOpenApp:    p.planOpenApp,
		contracts.IntentOpenFile:   p.planOpenFile,
		contracts.IntentOpenURL:    p.planOpenURL,
		contracts.IntentWebSearch:  p.planWebSearch,
		contracts.IntentListDir:    p.planListDir,
		contracts.IntentReadFile:   p.planReadFile,
		contracts.IntentCreateFile: p.planCreateFile,
		contracts.IntentWriteFile:  p.planWriteFile,
		contracts.IntentDeleteFile: p.planDeleteFile,
		contracts.IntentSystemInfo: p.planSystemInfo,
		contracts.IntentConfirm:    planNothing,
		contracts.IntentDeny:       planNothing,
		contracts.IntentUnknown:    planNothing,
	}
	return p
}

// CreatePlan derives the action plan for one intent. Unknown intents
// and the confirm/deny meta-intents yield empty plans; the pipeline
// resolves those structurally instead of executing anything.
func (p *Planner) CreatePlan(intent contracts.Intent, dryRun bool) contracts.ActionPlan {
	handler, ok := p.handlers[intent.Type]
	if !ok {
		handler = planNothing
	}
	return contracts.NewPlan(intent, handler(intent), dryRun)
}

func planNothing(contracts.Intent) []contracts.Action { return nil }

func (p *Planner) planOpenApp(intent contracts.Intent) []contracts.Action {
	app := strings.ToLower(intent.Slot("app_name", ""))
	if !p.allowedApps[app] {
		p.log.Warn("application not in allow-list", "app", app)
		return []contracts.Action{p.deniedAction(
			fmt.Sprintf("application %q is not in the allowed list", app),
		)}
	}
	return []contracts.Action{contracts.NewAction(
		"process", "open_app",
		map[string]any{"app_name": app},
		contracts.RiskSafe,
		"Open application: "+app,
		false,
	)}
}

func (p *Planner) planOpenFile(intent contracts.Intent) []contracts.Action {
	path := intent.Slot("path", "")
	return []contracts.Action{contracts.NewAction(
		"filesystem", "open_file",
		map[string]any{"path": path},
		contracts.RiskSafe,
		"Open file: "+path,
		false,
	)}
}

func (p *Planner) planOpenURL(intent contracts.Intent) []contracts.Action {
	url := intent.Slot("url", "")
	// Plain-HTTP targets carry elevated risk and need a nod from
	// the user before the browser launches.
	isHTTPS := strings.HasPrefix(url, "https://")
	risk := contracts.RiskSafe
	if !isHTTPS {
		risk = contracts.RiskMedium
	}
	return []contracts.Action{contracts.NewAction(
		"browser", "open_url",
		map[string]any{"url": url},
		risk,
		"Open URL in browser: "+url,
		!isHTTPS,
	)}
}

func (p *Planner) planWebSearch(intent contracts.Intent) []contracts.Action {
	query := intent.Slot("query", "")
	engine := intent.Slot("engine", "default")
	if _, ok := p.cfg.SearchEngines[engine]; !ok {
		engine = "default"
	}
	return []contracts.Action{contracts.NewAction(
		"browser", "search_web",
		map[string]any{"query": query, "engine": engine},
		contracts.RiskSafe,
		"Search the web for: "+query,
		false,
	)}
}

func (p *Planner) planListDir(intent contracts.Intent) []contracts.Action {
	path := intent.Slot("path", ".")
	return []contracts.Action{contracts.NewAction(
		"filesystem", "list_dir",
		map[string]any{"path": path},
		contracts.RiskSafe,
		"List contents of directory: "+path,
		false,
	)}
}

func (p *Planner) planReadFile(intent contracts.Intent) []contracts.Action {
	path := intent.Slot("path", "")
	return []contracts.Action{contracts.NewAction(
		"filesystem", "read_file",
		map[string]any{"path": path, "max_bytes": p.cfg.MaxReadSize},
		contracts.RiskSafe,
		fmt.Sprintf("Read file contents: %s (max %d bytes)", path, p.cfg.MaxReadSize),
		false,
	)}
}

func (p *Planner) planCreateFile(intent contracts.Intent) []contracts.Action {
	path := intent.Slot("path", "")
	content := intent.Slot("content", "")
	if denied := p.checkWriteSize(content); denied != nil {
		return denied
	}
	return []contracts.Action{contracts.NewAction(
		"filesystem", "create_file",
		map[string]any{"path": path, "content": content},
		contracts.RiskHigh,
		"Create new file: "+path,
		true,
	)}
}

func (p *Planner) planWriteFile(intent contracts.Intent) []contracts.Action {
	path := intent.Slot("path", "")
	content := intent.Slot("content", "")
	if denied := p.checkWriteSize(content); denied != nil {
		return denied
	}
	overwrite := intent.BoolSlot("overwrite", false)
	risk := contracts.RiskHigh
	if overwrite {
		risk = contracts.RiskDestructive
	}
	return []contracts.Action{contracts.NewAction(
		"filesystem", "write_file",
		map[string]any{"path": path, "content": content, "overwrite": overwrite},
		risk,
		fmt.Sprintf("Write to file: %s (overwrite=%t)", path, overwrite),
		true,
	)}
}

func (p *Planner) planDeleteFile(intent contracts.Intent) []contracts.Action {
	path := intent.Slot("path", "")
	recursive := intent.BoolSlot("recursive", false)
	desc := "DELETE: " + path
	if recursive {
		desc = "DELETE recursively: " + path
	}
	return []contracts.Action{contracts.NewAction(
		"filesystem", "delete_path",
		map[string]any{"path": path, "recursive": recursive},
		contracts.RiskDestructive,
		desc,
		true,
	)}
}

func (p *Planner) planSystemInfo(contracts.Intent) []contracts.Action {
	return []contracts.Action{contracts.NewAction(
		"system", "get_system_info",
		map[string]any{},
		contracts.RiskSafe,
		"Get system information",
		false,
	)}
}

// checkWriteSize bounds the content of file-writing actions. Returns
// a planning-time denial when the limit is exceeded, nil otherwise.
func (p *Planner) checkWriteSize(content string) []contracts.Action {
	if p.cfg.MaxWriteSize > 0 && len(content) > p.cfg.MaxWriteSize {
		p.log.Warn("write content over size limit",
			"size", len(content), "limit", p.cfg.MaxWriteSize)
		return []contracts.Action{p.deniedAction(
			fmt.Sprintf("content size %d exceeds the %d byte write limit", len(content), p.cfg.MaxWriteSize),
		)}
	}
	return nil
}

// deniedAction is a planning-time rejection: a synthetic safe no-op
// that carries the reason to the caller instead of silently dropping
// the command. Distinct from a policy-engine denial.
func (p *Planner) deniedAction(reason string) contracts.Action {
	return contracts.NewAction(
		"system", "denied",
		map[string]any{"reason": reason},
		contracts.RiskSafe,
		"Operation denied: "+reason,
		false,
	)
}
