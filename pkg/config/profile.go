package config

import (
	"fmt"
	"os"

	"gopkg.in/yaml.v3"

	"github.com/asphodel42/amadeus/pkg/planner"
	"github.com/asphodel42/amadeus/pkg/policy"
)

// Profile is an assistant behavior profile. It tunes the planner
// allow-lists, the risk policy, the confirmation protocol and the
// command timeouts without rebuilding the binary.
//
//nolint:govet // fieldalignment: struct layout mirrors the document
type Profile struct {
	Name string `yaml:"name" json:"name"`

	Planner planner.Config `yaml:"planner" json:"planner"`

	// PolicyRules replaces the built-in risk rules when non-empty.
	PolicyRules []policy.Rule `yaml:"policy_rules,omitempty" json:"policy_rules,omitempty"`

	// PasscodeDigest is the hex SHA-256 digest of the HKDF-derived
	// confirmation passcode. Empty disables passcode confirmations.
	PasscodeDigest string `yaml:"passcode_digest,omitempty" json:"passcode_digest,omitempty"`

	// ConfirmationTimeoutSeconds bounds how long a pending plan waits
	// in the review state before it is abandoned.
	ConfirmationTimeoutSeconds int `yaml:"confirmation_timeout_seconds" json:"confirmation_timeout_seconds"`

	// CommandTimeoutSeconds bounds a single command, parse to result.
	CommandTimeoutSeconds int `yaml:"command_timeout_seconds" json:"command_timeout_seconds"`
}

// DefaultProfile returns the built-in profile.
func DefaultProfile() *Profile {
	return &Profile{
		Name:                       "default",
		Planner:                    planner.DefaultConfig(),
		ConfirmationTimeoutSeconds: 30,
		CommandTimeoutSeconds:      60,
	}
}

// LoadProfile reads a profile YAML and fills unset fields from the
// defaults.
func LoadProfile(path string) (*Profile, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("load profile %q: %w", path, err)
	}

	profile := DefaultProfile()
	if err := yaml.Unmarshal(data, profile); err != nil {
		return nil, fmt.Errorf("parse profile %q: %w", path, err)
	}

	if profile.Name == "" {
		profile.Name = "default"
	}
	if len(profile.Planner.AllowedApps) == 0 {
		profile.Planner.AllowedApps = planner.DefaultConfig().AllowedApps
	}
	if len(profile.Planner.AllowedDirectories) == 0 {
		profile.Planner.AllowedDirectories = planner.DefaultConfig().AllowedDirectories
	}
	if len(profile.Planner.SearchEngines) == 0 {
		profile.Planner.SearchEngines = planner.DefaultConfig().SearchEngines
	}
	if profile.Planner.MaxReadSize <= 0 {
		profile.Planner.MaxReadSize = planner.DefaultConfig().MaxReadSize
	}
	if profile.Planner.MaxWriteSize <= 0 {
		profile.Planner.MaxWriteSize = planner.DefaultConfig().MaxWriteSize
	}
	if profile.ConfirmationTimeoutSeconds <= 0 {
		profile.ConfirmationTimeoutSeconds = 30
	}
	if profile.CommandTimeoutSeconds <= 0 {
		profile.CommandTimeoutSeconds = 60
	}
	return profile, nil
}

// Rules returns the profile's risk rules, falling back to the
// built-in set.
func (p *Profile) Rules() []policy.Rule {
	if len(p.PolicyRules) > 0 {
		return p.PolicyRules
	}
	return policy.DefaultRules()
}
