package contracts

import (
	"path/filepath"
	"strings"
)

// CapabilityScope is a fine-grained permission an action requires.
type CapabilityScope string

// Capability scope constants.
const (
	ScopeFSRead        CapabilityScope = "fs.read"
	ScopeFSWrite       CapabilityScope = "fs.write"
	ScopeFSCreate      CapabilityScope = "fs.create"
	ScopeFSDelete      CapabilityScope = "fs.delete"
	ScopeProcessLaunch CapabilityScope = "process.launch"
	ScopeNetBrowser    CapabilityScope = "net.browser"
	ScopeSystemInfo    CapabilityScope = "system.info"
	ScopeUINotify      CapabilityScope = "ui.notify"
)

// Capability grants one scope, optionally restricted to path prefixes.
//
//nolint:govet // fieldalignment: struct layout is human-readable
type Capability struct {
	Scope        CapabilityScope `json:"scope"`
	AllowedPaths []string        `json:"allowed_paths,omitempty"`
	Risk         RiskLevel       `json:"risk"`
}

// AllowsPath reports whether path falls under the capability's path
// constraints. No constraints means unrestricted.
func (c Capability) AllowsPath(path string) bool {
	if len(c.AllowedPaths) == 0 {
		return true
	}
	cleaned := filepath.ToSlash(filepath.Clean(path))
	for _, prefix := range c.AllowedPaths {
		p := filepath.ToSlash(filepath.Clean(prefix))
		if cleaned == p || strings.HasPrefix(cleaned, p+"/") {
			return true
		}
	}
	return false
}
