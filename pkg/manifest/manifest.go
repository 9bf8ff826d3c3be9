// Package manifest loads and verifies skill capability manifests.
//
// A manifest declares what a plugin (skill) is allowed to do: its
// identity, its semantic version, and the capability set handed to the
// policy engine for plugin-scoped evaluation. Manifests are signed by
// their publisher; an unverifiable manifest yields no capabilities.
package manifest

import (
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"strings"

	"github.com/Masterminds/semver/v3"
	"github.com/santhosh-tekuri/jsonschema/v5"
	"gopkg.in/yaml.v3"

	"github.com/asphodel42/amadeus/pkg/contracts"
)

// Sentinel errors returned by the loader.
var (
	ErrInvalidManifest = errors.New("invalid manifest")
	ErrVersionRejected = errors.New("manifest version rejected")
	ErrBadSignature    = errors.New("manifest signature verification failed")
)

// Manifest is a skill's declared capability set.
//
//nolint:govet // fieldalignment: struct layout mirrors the document
type Manifest struct {
	SkillID      string                 `json:"skill_id" yaml:"skill_id"`
	Version      string                 `json:"version" yaml:"version"`
	PublisherID  string                 `json:"publisher_id" yaml:"publisher_id"`
	Capabilities []contracts.Capability `json:"capabilities" yaml:"capabilities"`
	Signature    string                 `json:"signature,omitempty" yaml:"signature,omitempty"`
}

// HasScope reports whether the manifest declares the given scope.
func (m Manifest) HasScope(scope contracts.CapabilityScope) bool {
	for _, c := range m.Capabilities {
		if c.Scope == scope {
			return true
		}
	}
	return false
}

// Scope returns the capability declared for the given scope, if any.
func (m Manifest) Scope(scope contracts.CapabilityScope) (contracts.Capability, bool) {
	for _, c := range m.Capabilities {
		if c.Scope == scope {
			return c, true
		}
	}
	return contracts.Capability{}, false
}

const manifestSchemaURL = "https://amadeus.schemas.local/manifest.schema.json"

const manifestSchema = `{
	"$schema": "https://json-schema.org/draft/2020-12/schema",
	"type": "object",
	"required": ["skill_id", "version", "publisher_id", "capabilities"],
	"properties": {
		"skill_id": {"type": "string", "minLength": 1, "pattern": "^[a-z0-9][a-z0-9._-]*$"},
		"version": {"type": "string", "minLength": 1},
		"publisher_id": {"type": "string", "minLength": 1},
		"capabilities": {
			"type": "array",
			"items": {
				"type": "object",
				"required": ["scope"],
				"properties": {
					"scope": {"enum": ["fs.read", "fs.write", "fs.create", "fs.delete", "process.launch", "net.browser", "system.info", "ui.notify"]},
					"allowed_paths": {"type": "array", "items": {"type": "string", "minLength": 1}},
					"risk": {"enum": ["SAFE", "MEDIUM", "HIGH", "DESTRUCTIVE", ""]}
				},
				"additionalProperties": false
			}
		},
		"signature": {"type": "string"}
	},
	"additionalProperties": false
}`

// Loader parses, validates and (optionally) verifies manifests.
type Loader struct {
	schema     *jsonschema.Schema
	constraint *semver.Constraints
	keyring    *Keyring
}

// LoaderOption configures a Loader.
type LoaderOption func(*Loader)

// WithVersionConstraint rejects manifests whose version does not
// satisfy the given semver range, e.g. ">= 1.0.0, < 2.0.0".
func WithVersionConstraint(c *semver.Constraints) LoaderOption {
	return func(l *Loader) { l.constraint = c }
}

// WithKeyring makes signature verification mandatory: every loaded
// manifest must carry a signature valid under the publisher's derived
// key.
func WithKeyring(k *Keyring) LoaderOption {
	return func(l *Loader) { l.keyring = k }
}

// NewLoader compiles the manifest schema and returns a Loader.
func NewLoader(opts ...LoaderOption) (*Loader, error) {
	compiler := jsonschema.NewCompiler()
	compiler.Draft = jsonschema.Draft2020
	if err := compiler.AddResource(manifestSchemaURL, strings.NewReader(manifestSchema)); err != nil {
		return nil, fmt.Errorf("register manifest schema: %w", err)
	}
	schema, err := compiler.Compile(manifestSchemaURL)
	if err != nil {
		return nil, fmt.Errorf("compile manifest schema: %w", err)
	}
	l := &Loader{schema: schema}
	for _, opt := range opts {
		opt(l)
	}
	return l, nil
}

// Load reads a manifest document from path. YAML and JSON are both
// accepted; JSON is a YAML subset so one decoder covers both.
func (l *Loader) Load(path string) (Manifest, error) {
	raw, err := os.ReadFile(path)
	if err != nil {
		return Manifest{}, fmt.Errorf("read manifest %s: %w", path, err)
	}
	return l.Parse(raw)
}

// Parse validates and decodes a manifest document.
func (l *Loader) Parse(raw []byte) (Manifest, error) {
	var doc any
	if err := yaml.Unmarshal(raw, &doc); err != nil {
		return Manifest{}, fmt.Errorf("%w: %v", ErrInvalidManifest, err)
	}
	// Round-trip through JSON so the schema sees JSON-decoded types.
	encoded, err := json.Marshal(doc)
	if err != nil {
		return Manifest{}, fmt.Errorf("%w: %v", ErrInvalidManifest, err)
	}
	var generic any
	if err := json.Unmarshal(encoded, &generic); err != nil {
		return Manifest{}, fmt.Errorf("%w: %v", ErrInvalidManifest, err)
	}
	if err := l.schema.Validate(generic); err != nil {
		return Manifest{}, fmt.Errorf("%w: %v", ErrInvalidManifest, err)
	}

	var m Manifest
	if err := json.Unmarshal(encoded, &m); err != nil {
		return Manifest{}, fmt.Errorf("%w: %v", ErrInvalidManifest, err)
	}

	version, err := semver.NewVersion(m.Version)
	if err != nil {
		return Manifest{}, fmt.Errorf("%w: version %q is not semver: %v", ErrInvalidManifest, m.Version, err)
	}
	if l.constraint != nil && !l.constraint.Check(version) {
		return Manifest{}, fmt.Errorf("%w: %s does not satisfy %s", ErrVersionRejected, m.Version, l.constraint)
	}

	if l.keyring != nil {
		if err := l.keyring.Verify(m); err != nil {
			return Manifest{}, err
		}
	}
	return m, nil
}
