package executor

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/asphodel42/amadeus/pkg/contracts"
	"github.com/asphodel42/amadeus/pkg/providers"
)

func newExecutor(t *testing.T) (*Executor, *providers.FakeState) {
	t.Helper()
	set, state := providers.FakeSet()
	registry, err := providers.NewRegistry(set)
	require.NoError(t, err)
	return New(registry, DefaultConfig()), state
}

func plan(actions ...contracts.Action) contracts.ActionPlan {
	return contracts.NewPlan(contracts.Intent{Type: contracts.IntentListDir}, actions, false)
}

func readAction(path string) contracts.Action {
	return contracts.NewAction("filesystem", "read_file",
		map[string]any{"path": path, "max_bytes": 10240}, contracts.RiskSafe, "read "+path, false)
}

func TestExecutePlanSuccess(t *testing.T) {
	e, state := newExecutor(t)
	state.Files["/docs/a.txt"] = "hello"

	results := e.ExecutePlan(context.Background(), plan(readAction("/docs/a.txt")))
	require.Len(t, results, 1)
	assert.Equal(t, contracts.StatusSuccess, results[0].Status)
	assert.Equal(t, "hello", results[0].Output)
	assert.False(t, results[0].CompletedAt.Before(results[0].StartedAt))
}

func TestExecuteEmptyPlan(t *testing.T) {
	e, _ := newExecutor(t)
	assert.Empty(t, e.ExecutePlan(context.Background(), plan()))
}

func TestStopOnFirstFailureCancelsRemainder(t *testing.T) {
	e, state := newExecutor(t)
	state.Files["/docs/a.txt"] = "a"
	state.Files["/docs/c.txt"] = "c"

	results := e.ExecutePlan(context.Background(), plan(
		readAction("/docs/a.txt"),
		readAction("/docs/missing.txt"),
		readAction("/docs/c.txt"),
	))
	require.Len(t, results, 3)
	assert.Equal(t, contracts.StatusSuccess, results[0].Status)
	assert.Equal(t, contracts.StatusFailed, results[1].Status)
	assert.Equal(t, contracts.StatusCancelled, results[2].Status)
	assert.Equal(t, "cancelled due to previous error", results[2].Error)

	// The third provider call never happened.
	assert.Equal(t, []string{"read_file /docs/a.txt", "read_file /docs/missing.txt"}, state.CallLog())
}

func TestPermissionErrorClassifiedAsDenied(t *testing.T) {
	e, state := newExecutor(t)
	state.Files["/docs/a.txt"] = "a"
	state.FailWith = providers.ErrPermission

	results := e.ExecutePlan(context.Background(), plan(readAction("/docs/a.txt")))
	require.Len(t, results, 1)
	assert.Equal(t, contracts.StatusDenied, results[0].Status)
}

func TestGenericErrorClassifiedAsFailed(t *testing.T) {
	e, state := newExecutor(t)
	state.Files["/docs/a.txt"] = "a"
	state.FailWith = errors.New("disk exploded")

	results := e.ExecutePlan(context.Background(), plan(readAction("/docs/a.txt")))
	require.Len(t, results, 1)
	assert.Equal(t, contracts.StatusFailed, results[0].Status)
	assert.Contains(t, results[0].Error, "disk exploded")
}

func TestValidatorGateDeniesBeforeDispatch(t *testing.T) {
	e, state := newExecutor(t)
	a := contracts.NewAction("filesystem", "delete_path",
		map[string]any{"path": "/etc/passwd"}, contracts.RiskDestructive, "delete", true)

	results := e.ExecutePlan(context.Background(), plan(a))
	require.Len(t, results, 1)
	assert.Equal(t, contracts.StatusDenied, results[0].Status)
	assert.Contains(t, results[0].Error, "execution blocked")
	assert.Empty(t, state.CallLog(), "blocked action must never reach the provider")
}

func TestUnregisteredFunctionDeniesWholePlan(t *testing.T) {
	e, state := newExecutor(t)
	state.Files["/docs/a.txt"] = "hello"

	bogus := contracts.NewAction("filesystem", "defragment",
		map[string]any{"path": "/docs"}, contracts.RiskSafe, "defragment /docs", false)

	results := e.ExecutePlan(context.Background(), plan(readAction("/docs/a.txt"), bogus))
	require.Len(t, results, 2)
	for _, r := range results {
		assert.Equal(t, contracts.StatusDenied, r.Status)
		assert.Contains(t, r.Error, "no handler registered for filesystem.defragment")
	}
	// Nothing dispatched, including the action that does have a handler.
	assert.Empty(t, state.CallLog())
}

func TestDryRunValidatesButDoesNotDispatch(t *testing.T) {
	e, state := newExecutor(t)
	state.Files["/docs/a.txt"] = "a"

	p := contracts.NewPlan(contracts.Intent{Type: contracts.IntentDeleteFile}, []contracts.Action{
		readAction("/docs/a.txt"),
		contracts.NewAction("filesystem", "delete_path",
			map[string]any{"path": "/etc/hosts"}, contracts.RiskDestructive, "delete", true),
	}, true)

	results := e.ExecutePlan(context.Background(), p)
	require.Len(t, results, 2)
	assert.Equal(t, contracts.StatusDryRun, results[0].Status)
	assert.Equal(t, contracts.StatusDenied, results[1].Status)
	assert.Contains(t, results[1].Error, "would be denied")
	assert.Empty(t, state.CallLog(), "dry run must not dispatch anything")
}

func TestExpiredContextClassifiedAsTimeout(t *testing.T) {
	e, state := newExecutor(t)
	state.Files["/docs/a.txt"] = "hello"

	ctx, cancel := context.WithTimeout(context.Background(), time.Nanosecond)
	defer cancel()
	<-ctx.Done()

	results := e.ExecutePlan(ctx, plan(readAction("/docs/a.txt")))
	require.Len(t, results, 1)
	assert.Equal(t, contracts.StatusTimeout, results[0].Status)
	assert.Empty(t, state.CallLog())
}

func TestCancelledContextClassifiedAsCancelled(t *testing.T) {
	e, state := newExecutor(t)
	state.Files["/docs/a.txt"] = "hello"

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	results := e.ExecutePlan(ctx, plan(readAction("/docs/a.txt")))
	require.Len(t, results, 1)
	assert.Equal(t, contracts.StatusCancelled, results[0].Status)
	assert.Empty(t, state.CallLog())
}

func TestOutputTruncation(t *testing.T) {
	set, state := providers.FakeSet()
	registry, err := providers.NewRegistry(set)
	require.NoError(t, err)
	e := New(registry, Config{MaxOutputLength: 8, StopOnFirstError: true})

	state.Files["/docs/big.txt"] = "0123456789abcdef"
	results := e.ExecutePlan(context.Background(), plan(readAction("/docs/big.txt")))
	require.Len(t, results, 1)
	assert.Equal(t, "01234567... [truncated]", results[0].Output)
}

func TestPlanningDenialSurfacesReason(t *testing.T) {
	e, _ := newExecutor(t)
	denied := contracts.NewAction("system", "denied",
		map[string]any{"reason": `application "zzz" is not in the allowed list`},
		contracts.RiskSafe, "denied", false)

	results := e.ExecutePlan(context.Background(), plan(denied))
	require.Len(t, results, 1)
	assert.Equal(t, contracts.StatusDenied, results[0].Status)
	assert.Contains(t, results[0].Error, "zzz")
}

func TestRenderResults(t *testing.T) {
	e, state := newExecutor(t)
	state.Files["/docs/a.txt"] = "hello"

	results := e.ExecutePlan(context.Background(), plan(
		readAction("/docs/a.txt"),
		readAction("/docs/missing.txt"),
	))
	text := RenderResults(results)
	assert.Contains(t, text, "SUCCESS")
	assert.Contains(t, text, "FAILED")
	assert.Contains(t, text, "1/2 actions succeeded")

	assert.Equal(t, "Nothing was executed.", RenderResults(nil))
}
