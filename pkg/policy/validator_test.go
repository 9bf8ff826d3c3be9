package policy

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/asphodel42/amadeus/pkg/contracts"
)

func TestValidatorBlocksSystemPaths(t *testing.T) {
	v := NewValidator()
	blocked := []string{
		"/etc/passwd",
		"/usr/bin/something",
		"/bin/sh",
		"/sbin/init",
		"/boot/vmlinuz",
		"/etc",
	}
	for _, path := range blocked {
		a := contracts.NewAction("filesystem", "delete_path",
			map[string]any{"path": path}, contracts.RiskDestructive, "delete", true)
		d := v.ValidateAction(a)
		assert.False(t, d.Allowed, "path %q must be blocked", path)
	}
}

func TestValidatorAllowsUserPaths(t *testing.T) {
	v := NewValidator()
	allowed := []string{
		"/tmp/notes.txt",
		"/home/user/Documents/a.txt",
	}
	for _, path := range allowed {
		a := contracts.NewAction("filesystem", "read_file",
			map[string]any{"path": path}, contracts.RiskSafe, "read", false)
		d := v.ValidateAction(a)
		assert.True(t, d.Allowed, "path %q must pass", path)
	}
}

func TestValidatorBlocksDangerousFragments(t *testing.T) {
	v := NewValidator()
	cases := []string{
		"rm -rf /tmp/x",
		"dd if=/dev/zero",
		"sudo shutdown now",
		"please REBOOT the machine",
	}
	for _, content := range cases {
		a := contracts.NewAction("filesystem", "write_file",
			map[string]any{"path": "/tmp/a.sh", "content": content},
			contracts.RiskHigh, "write", true)
		d := v.ValidateAction(a)
		assert.False(t, d.Allowed, "content %q must be blocked", content)
	}
}

func TestValidatorIgnoresNonStringArgs(t *testing.T) {
	v := NewValidator()
	a := contracts.NewAction("filesystem", "read_file",
		map[string]any{"path": "/tmp/a", "max_bytes": 10240},
		contracts.RiskSafe, "read", false)
	assert.True(t, v.ValidateAction(a).Allowed)
}

func TestValidatorIndependentOfEngineApproval(t *testing.T) {
	// Defense in depth: even a plan the engine already allowed gets
	// stopped here when it reaches under a system root.
	e := newEngine(t, nil)
	v := NewValidator()

	a := contracts.NewAction("filesystem", "delete_path",
		map[string]any{"path": "/etc/hosts"}, contracts.RiskDestructive, "delete", true)
	plan := planWith(a)

	engineDecision := e.Evaluate(plan, nil)
	assert.True(t, engineDecision.Allowed, "system-level engine pass")

	validatorDecision := v.ValidateAction(a)
	assert.False(t, validatorDecision.Allowed)
	assert.Contains(t, validatorDecision.Reason, "execution blocked")
}
