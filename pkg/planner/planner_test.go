package planner

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/asphodel42/amadeus/pkg/contracts"
)

func intentOf(typ contracts.IntentType, slots map[string]any) contracts.Intent {
	if slots == nil {
		slots = map[string]any{}
	}
	return contracts.Intent{
		Type:       typ,
		Slots:      slots,
		Confidence: 1.0,
		Request:    contracts.NewCommandRequest("test", contracts.SourceText),
	}
}

func TestPlanOpenAppAllowed(t *testing.T) {
	p := New(DefaultConfig())
	plan := p.CreatePlan(intentOf(contracts.IntentOpenApp, map[string]any{"app_name": "calculator"}), false)

	require.Len(t, plan.Actions, 1)
	a := plan.Actions[0]
	assert.Equal(t, "process", a.Tool)
	assert.Equal(t, "open_app", a.Function)
	assert.Equal(t, contracts.RiskSafe, a.Risk)
	assert.False(t, a.RequiresConfirmation)
	assert.False(t, plan.RequiresConfirmation)
}

func TestPlanOpenAppDeniedByAllowList(t *testing.T) {
	p := New(DefaultConfig())
	plan := p.CreatePlan(intentOf(contracts.IntentOpenApp, map[string]any{"app_name": "definitely-not-real"}), false)

	require.Len(t, plan.Actions, 1, "denial must be reported, not silently dropped")
	a := plan.Actions[0]
	assert.Equal(t, "system", a.Tool)
	assert.Equal(t, "denied", a.Function)
	assert.Equal(t, contracts.RiskSafe, a.Risk)
	assert.False(t, a.RequiresConfirmation)
	assert.Contains(t, a.StringArg("reason"), "definitely-not-real")
}

func TestPlanOpenURLRiskByScheme(t *testing.T) {
	p := New(DefaultConfig())

	https := p.CreatePlan(intentOf(contracts.IntentOpenURL, map[string]any{"url": "https://github.com"}), false)
	require.Len(t, https.Actions, 1)
	assert.Equal(t, contracts.RiskSafe, https.Actions[0].Risk)
	assert.False(t, https.RequiresConfirmation)

	http := p.CreatePlan(intentOf(contracts.IntentOpenURL, map[string]any{"url": "http://example.com"}), false)
	require.Len(t, http.Actions, 1)
	assert.Equal(t, contracts.RiskMedium, http.Actions[0].Risk)
	assert.True(t, http.Actions[0].RequiresConfirmation)
}

func TestPlanDeleteFileIsDestructive(t *testing.T) {
	p := New(DefaultConfig())
	plan := p.CreatePlan(intentOf(contracts.IntentDeleteFile, map[string]any{"path": "/tmp/old.txt"}), false)

	require.Len(t, plan.Actions, 1)
	a := plan.Actions[0]
	assert.Equal(t, "delete_path", a.Function)
	assert.Equal(t, contracts.RiskDestructive, a.Risk)
	assert.True(t, a.RequiresConfirmation)
	assert.True(t, plan.RequiresConfirmation)
	assert.Equal(t, contracts.RiskDestructive, plan.MaxRisk())
}

func TestPlanWriteFileOverwriteRaisesRisk(t *testing.T) {
	p := New(DefaultConfig())

	plain := p.CreatePlan(intentOf(contracts.IntentWriteFile, map[string]any{"path": "a.txt", "content": "x"}), false)
	require.Len(t, plain.Actions, 1)
	assert.Equal(t, contracts.RiskHigh, plain.Actions[0].Risk)

	over := p.CreatePlan(intentOf(contracts.IntentWriteFile, map[string]any{"path": "a.txt", "content": "x", "overwrite": true}), false)
	require.Len(t, over.Actions, 1)
	assert.Equal(t, contracts.RiskDestructive, over.Actions[0].Risk)
}

func TestPlanWriteOverSizeLimitDenied(t *testing.T) {
	cfg := DefaultConfig()
	cfg.MaxWriteSize = 8
	p := New(cfg)
	big := strings.Repeat("x", 9)

	for _, typ := range []contracts.IntentType{
		contracts.IntentCreateFile,
		contracts.IntentWriteFile,
	} {
		plan := p.CreatePlan(intentOf(typ, map[string]any{"path": "a.txt", "content": big}), false)
		require.Len(t, plan.Actions, 1, "intent %s", typ)
		a := plan.Actions[0]
		assert.Equal(t, "system", a.Tool)
		assert.Equal(t, "denied", a.Function)
		assert.Contains(t, a.StringArg("reason"), "8 byte write limit")
	}

	// At the limit exactly, the write plans normally.
	ok := p.CreatePlan(intentOf(contracts.IntentWriteFile,
		map[string]any{"path": "a.txt", "content": strings.Repeat("x", 8)}), false)
	require.Len(t, ok.Actions, 1)
	assert.Equal(t, "write_file", ok.Actions[0].Function)
}

func TestPlanMetaAndUnknownIntentsAreEmpty(t *testing.T) {
	p := New(DefaultConfig())
	for _, typ := range []contracts.IntentType{
		contracts.IntentConfirm,
		contracts.IntentDeny,
		contracts.IntentUnknown,
	} {
		plan := p.CreatePlan(intentOf(typ, nil), false)
		assert.True(t, plan.IsEmpty(), "intent %s must plan no actions", typ)
		assert.Equal(t, contracts.RiskSafe, plan.MaxRisk())
	}
}

func TestPlanDispatchIsTotal(t *testing.T) {
	p := New(DefaultConfig())
	all := []contracts.IntentType{
		contracts.IntentOpenApp, contracts.IntentOpenFile, contracts.IntentOpenURL,
		contracts.IntentWebSearch, contracts.IntentListDir, contracts.IntentReadFile,
		contracts.IntentCreateFile, contracts.IntentWriteFile, contracts.IntentDeleteFile,
		contracts.IntentSystemInfo, contracts.IntentConfirm, contracts.IntentDeny,
		contracts.IntentUnknown,
	}
	for _, typ := range all {
		assert.NotPanics(t, func() {
			p.CreatePlan(intentOf(typ, nil), false)
		}, "intent %s", typ)
	}
}

func TestPlanReadFileCarriesSizeLimit(t *testing.T) {
	cfg := DefaultConfig()
	cfg.MaxReadSize = 2048
	p := New(cfg)
	plan := p.CreatePlan(intentOf(contracts.IntentReadFile, map[string]any{"path": "notes.txt"}), false)
	require.Len(t, plan.Actions, 1)
	assert.Equal(t, 2048, plan.Actions[0].Args["max_bytes"])
}

func TestPlanDryRunFlag(t *testing.T) {
	p := New(DefaultConfig())
	plan := p.CreatePlan(intentOf(contracts.IntentListDir, map[string]any{"path": "."}), true)
	assert.True(t, plan.DryRun)
}

func TestRenderPlan(t *testing.T) {
	p := New(DefaultConfig())

	plan := p.CreatePlan(intentOf(contracts.IntentDeleteFile, map[string]any{"path": "/tmp/old.txt"}), false)
	text := RenderPlan(plan)
	assert.Contains(t, text, "DELETE_FILE")
	assert.Contains(t, text, "/tmp/old.txt")
	assert.Contains(t, text, "typed confirmation")

	empty := p.CreatePlan(intentOf(contracts.IntentUnknown, nil), false)
	assert.Contains(t, RenderPlan(empty), "No actions planned")

	safe := p.CreatePlan(intentOf(contracts.IntentListDir, map[string]any{"path": "."}), false)
	assert.True(t, strings.Contains(RenderPlan(safe), "execute automatically"))
}
