package config

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/asphodel42/amadeus/pkg/contracts"
)

func TestLoadDefaults(t *testing.T) {
	for _, key := range []string{
		"AMADEUS_LOG_LEVEL", "AMADEUS_LEDGER_PATH", "AMADEUS_PROFILE",
		"AMADEUS_MANIFEST_DIR", "AMADEUS_DRY_RUN", "AMADEUS_OTEL",
		"OTEL_EXPORTER_OTLP_ENDPOINT",
	} {
		t.Setenv(key, "")
		os.Unsetenv(key)
	}

	cfg := Load()
	assert.Equal(t, "INFO", cfg.LogLevel)
	assert.Empty(t, cfg.LedgerPath)
	assert.False(t, cfg.DryRun)
	assert.False(t, cfg.OTelEnabled)
	assert.Equal(t, "localhost:4317", cfg.OTLPEndpoint)
}

func TestLoadFromEnvironment(t *testing.T) {
	t.Setenv("AMADEUS_LOG_LEVEL", "DEBUG")
	t.Setenv("AMADEUS_LEDGER_PATH", "/tmp/audit.db")
	t.Setenv("AMADEUS_DRY_RUN", "true")
	t.Setenv("AMADEUS_OTEL", "true")
	t.Setenv("OTEL_EXPORTER_OTLP_ENDPOINT", "collector:4317")

	cfg := Load()
	assert.Equal(t, "DEBUG", cfg.LogLevel)
	assert.Equal(t, "/tmp/audit.db", cfg.LedgerPath)
	assert.True(t, cfg.DryRun)
	assert.True(t, cfg.OTelEnabled)
	assert.Equal(t, "collector:4317", cfg.OTLPEndpoint)
}

func TestDefaultProfile(t *testing.T) {
	p := DefaultProfile()
	assert.Equal(t, "default", p.Name)
	assert.NotEmpty(t, p.Planner.AllowedApps)
	assert.Equal(t, 30, p.ConfirmationTimeoutSeconds)
	assert.Equal(t, 60, p.CommandTimeoutSeconds)
	assert.NotEmpty(t, p.Rules())
}

func TestLoadProfileMergesDefaults(t *testing.T) {
	doc := `
name: cautious
planner:
  allowed_apps: ["vim", "emacs"]
policy_rules:
  - id: everything_typed
    description: all actions need typed confirmation
    risk_threshold: SAFE
    confirmation: TYPED
    enabled: true
confirmation_timeout_seconds: 10
`
	path := filepath.Join(t.TempDir(), "profile.yaml")
	require.NoError(t, os.WriteFile(path, []byte(doc), 0o600))

	p, err := LoadProfile(path)
	require.NoError(t, err)
	assert.Equal(t, "cautious", p.Name)
	assert.Equal(t, []string{"vim", "emacs"}, p.Planner.AllowedApps)
	// Unset planner fields fall back to defaults.
	assert.NotEmpty(t, p.Planner.SearchEngines)
	assert.Equal(t, 10240, p.Planner.MaxReadSize)
	assert.Equal(t, 10, p.ConfirmationTimeoutSeconds)
	assert.Equal(t, 60, p.CommandTimeoutSeconds)

	rules := p.Rules()
	require.Len(t, rules, 1)
	assert.Equal(t, "everything_typed", rules[0].ID)
	assert.Equal(t, contracts.ConfirmationTyped, rules[0].Confirmation)
}

func TestLoadProfileErrors(t *testing.T) {
	_, err := LoadProfile(filepath.Join(t.TempDir(), "missing.yaml"))
	assert.Error(t, err)

	path := filepath.Join(t.TempDir(), "broken.yaml")
	require.NoError(t, os.WriteFile(path, []byte("planner: [not a map"), 0o600))
	_, err = LoadProfile(path)
	assert.Error(t, err)
}
