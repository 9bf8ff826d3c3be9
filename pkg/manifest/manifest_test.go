package manifest

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/Masterminds/semver/v3"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/asphodel42/amadeus/pkg/contracts"
)

const sampleYAML = `
skill_id: notes-helper
version: 1.2.0
publisher_id: acme-tools
capabilities:
  - scope: fs.read
    allowed_paths: ["~/Documents/notes"]
  - scope: ui.notify
`

func TestLoadYAMLManifest(t *testing.T) {
	loader, err := NewLoader()
	require.NoError(t, err)

	path := filepath.Join(t.TempDir(), "skill.yaml")
	require.NoError(t, os.WriteFile(path, []byte(sampleYAML), 0o600))

	m, err := loader.Load(path)
	require.NoError(t, err)
	assert.Equal(t, "notes-helper", m.SkillID)
	assert.Equal(t, "acme-tools", m.PublisherID)
	require.Len(t, m.Capabilities, 2)
	assert.True(t, m.HasScope(contracts.ScopeFSRead))
	assert.False(t, m.HasScope(contracts.ScopeFSDelete))

	granted, ok := m.Scope(contracts.ScopeFSRead)
	require.True(t, ok)
	assert.Equal(t, []string{"~/Documents/notes"}, granted.AllowedPaths)
}

func TestParseJSONManifest(t *testing.T) {
	loader, err := NewLoader()
	require.NoError(t, err)

	m, err := loader.Parse([]byte(`{
		"skill_id": "weather",
		"version": "0.3.1",
		"publisher_id": "acme-tools",
		"capabilities": [{"scope": "net.browser"}]
	}`))
	require.NoError(t, err)
	assert.Equal(t, "weather", m.SkillID)
	assert.True(t, m.HasScope(contracts.ScopeNetBrowser))
}

func TestParseRejectsSchemaViolations(t *testing.T) {
	loader, err := NewLoader()
	require.NoError(t, err)

	cases := map[string]string{
		"missing skill_id": `{"version": "1.0.0", "publisher_id": "p", "capabilities": []}`,
		"unknown scope":    `{"skill_id": "s", "version": "1.0.0", "publisher_id": "p", "capabilities": [{"scope": "net.raw"}]}`,
		"extra field":      `{"skill_id": "s", "version": "1.0.0", "publisher_id": "p", "capabilities": [], "backdoor": true}`,
		"bad skill id":     `{"skill_id": "Not Valid!", "version": "1.0.0", "publisher_id": "p", "capabilities": []}`,
		"not yaml":         `{{{`,
	}
	for name, doc := range cases {
		t.Run(name, func(t *testing.T) {
			_, err := loader.Parse([]byte(doc))
			assert.ErrorIs(t, err, ErrInvalidManifest)
		})
	}
}

func TestParseRejectsNonSemverVersion(t *testing.T) {
	loader, err := NewLoader()
	require.NoError(t, err)

	_, err = loader.Parse([]byte(`{"skill_id": "s", "version": "latest", "publisher_id": "p", "capabilities": []}`))
	assert.ErrorIs(t, err, ErrInvalidManifest)
}

func TestVersionConstraint(t *testing.T) {
	constraint, err := semver.NewConstraint(">= 1.0.0, < 2.0.0")
	require.NoError(t, err)
	loader, err := NewLoader(WithVersionConstraint(constraint))
	require.NoError(t, err)

	_, err = loader.Parse([]byte(`{"skill_id": "s", "version": "1.5.0", "publisher_id": "p", "capabilities": []}`))
	assert.NoError(t, err)

	_, err = loader.Parse([]byte(`{"skill_id": "s", "version": "2.0.0", "publisher_id": "p", "capabilities": []}`))
	assert.ErrorIs(t, err, ErrVersionRejected)
}

func TestSignAndVerify(t *testing.T) {
	keyring, err := NewKeyring()
	require.NoError(t, err)

	m := Manifest{
		SkillID:     "notes-helper",
		Version:     "1.2.0",
		PublisherID: "acme-tools",
		Capabilities: []contracts.Capability{
			{Scope: contracts.ScopeFSRead, AllowedPaths: []string{"~/Documents"}},
		},
	}

	signed, err := keyring.Sign(m)
	require.NoError(t, err)
	assert.NotEmpty(t, signed.Signature)
	assert.NoError(t, keyring.Verify(signed))
}

func TestVerifyFailures(t *testing.T) {
	keyring, err := NewKeyring()
	require.NoError(t, err)

	m := Manifest{SkillID: "s", Version: "1.0.0", PublisherID: "acme-tools"}
	signed, err := keyring.Sign(m)
	require.NoError(t, err)

	t.Run("unsigned", func(t *testing.T) {
		assert.ErrorIs(t, keyring.Verify(m), ErrBadSignature)
	})

	t.Run("tampered content", func(t *testing.T) {
		tampered := signed
		tampered.SkillID = "evil"
		assert.ErrorIs(t, keyring.Verify(tampered), ErrBadSignature)
	})

	t.Run("wrong publisher", func(t *testing.T) {
		tampered := signed
		tampered.PublisherID = "someone-else"
		assert.ErrorIs(t, keyring.Verify(tampered), ErrBadSignature)
	})

	t.Run("garbage signature", func(t *testing.T) {
		tampered := signed
		tampered.Signature = "not base64 !!!"
		assert.ErrorIs(t, keyring.Verify(tampered), ErrBadSignature)
	})

	t.Run("different master seed", func(t *testing.T) {
		other, err := NewKeyring()
		require.NoError(t, err)
		assert.ErrorIs(t, other.Verify(signed), ErrBadSignature)
	})
}

func TestDeterministicDerivation(t *testing.T) {
	seed := make([]byte, 32)
	for i := range seed {
		seed[i] = byte(i)
	}
	a, err := NewKeyringFromSeed(seed)
	require.NoError(t, err)
	b, err := NewKeyringFromSeed(seed)
	require.NoError(t, err)

	keyA, err := a.PublisherKey("acme-tools")
	require.NoError(t, err)
	keyB, err := b.PublisherKey("acme-tools")
	require.NoError(t, err)
	assert.Equal(t, keyA, keyB)

	other, err := a.PublisherKey("someone-else")
	require.NoError(t, err)
	assert.NotEqual(t, keyA, other)
}

func TestLoaderEnforcesSignatureWithKeyring(t *testing.T) {
	keyring, err := NewKeyring()
	require.NoError(t, err)
	loader, err := NewLoader(WithKeyring(keyring))
	require.NoError(t, err)

	_, err = loader.Parse([]byte(`{"skill_id": "s", "version": "1.0.0", "publisher_id": "p", "capabilities": []}`))
	assert.ErrorIs(t, err, ErrBadSignature)
}
