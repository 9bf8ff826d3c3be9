package policy

import (
	"fmt"
	"path/filepath"
	"strings"

	"github.com/asphodel42/amadeus/pkg/contracts"
)

// blockedPathPrefixes is the hard-coded safety floor. These are not
// configurable: a misconfigured capability grant must never be able to
// reach under a system root.
var blockedPathPrefixes = []string{
	"/",
	"/etc",
	"/usr",
	"/bin",
	"/sbin",
	"/boot",
	`c:\windows`,
	`c:\windows\system32`,
	`c:\program files`,
	`c:\program files (x86)`,
}

var blockedCommandFragments = []string{
	"rm -rf",
	"format",
	"mkfs",
	"dd if=",
	"shutdown",
	"reboot",
	"init 0",
	"init 6",
}

// Validator is the last gate before dispatch. The executor runs it on
// every action regardless of what the engine already approved, dry
// runs included.
type Validator struct{}

// NewValidator builds the pre-execution validator.
func NewValidator() *Validator { return &Validator{} }

// ValidateAction checks one action against the blocked path and
// command sets.
func (v *Validator) ValidateAction(action contracts.Action) contracts.PolicyDecision {
	if path := action.StringArg("path"); path != "" && isBlockedPath(path) {
		return contracts.DenyDecision(fmt.Sprintf(
			"execution blocked: path %q is in the blocked list for safety", path))
	}

	for _, value := range action.Args {
		s, ok := value.(string)
		if !ok {
			continue
		}
		lowered := strings.ToLower(s)
		for _, fragment := range blockedCommandFragments {
			if strings.Contains(lowered, fragment) {
				return contracts.DenyDecision(fmt.Sprintf(
					"execution blocked: argument contains blocked pattern %q", fragment))
			}
		}
	}

	return contracts.AllowDecision("pre-execution validation passed")
}

// isBlockedPath resolves the path and tests it against the blocked
// prefixes. The bare "/" entry blocks only the root itself, not every
// absolute path beneath it.
func isBlockedPath(path string) bool {
	resolved, err := filepath.Abs(path)
	if err != nil {
		// Unresolvable paths are blocked outright.
		return true
	}
	lowered := strings.ToLower(filepath.ToSlash(resolved))
	for _, prefix := range blockedPathPrefixes {
		p := strings.ToLower(filepath.ToSlash(prefix))
		if p == "/" {
			if lowered == "/" {
				return true
			}
			continue
		}
		if lowered == p || strings.HasPrefix(lowered, p+"/") {
			return true
		}
	}
	return false
}
