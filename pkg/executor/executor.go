// Package executor dispatches approved plans to capability providers,
// one action at a time, and classifies every failure into a result
// status. Provider errors never propagate to the caller.
package executor

import (
	"context"
	"errors"
	"io/fs"
	"log/slog"
	"time"

	"github.com/asphodel42/amadeus/pkg/contracts"
	"github.com/asphodel42/amadeus/pkg/policy"
	"github.com/asphodel42/amadeus/pkg/providers"
)

// Config bounds executor behavior.
//
//nolint:govet // fieldalignment: struct layout is human-readable
type Config struct {
	MaxOutputLength  int  `yaml:"max_output_length" json:"max_output_length"`
	StopOnFirstError bool `yaml:"stop_on_first_error" json:"stop_on_first_error"`
}

// DefaultConfig returns the built-in executor limits.
func DefaultConfig() Config {
	return Config{MaxOutputLength: 2048, StopOnFirstError: true}
}

// Executor runs plans through the pre-execution validator and the
// provider registry.
type Executor struct {
	registry  *providers.Registry
	validator *policy.Validator
	cfg       Config
	clock     func() time.Time
	log       *slog.Logger
}

// Option configures an Executor.
type Option func(*Executor)

// WithClock overrides the time source, for tests.
func WithClock(clock func() time.Time) Option {
	return func(e *Executor) { e.clock = clock }
}

// New builds an executor. The validator gate is not optional: it runs
// on every action regardless of prior policy approval.
func New(registry *providers.Registry, cfg Config, opts ...Option) *Executor {
	e := &Executor{
		registry:  registry,
		validator: policy.NewValidator(),
		cfg:       cfg,
		clock:     func() time.Time { return time.Now().UTC() },
		log:       slog.Default().With("component", "executor"),
	}
	for _, opt := range opts {
		opt(e)
	}
	return e
}

// ExecutePlan runs the plan's actions strictly in order. The first
// non-successful action halts the plan and the remainder is recorded
// as cancelled; committed side effects are never rolled back. Dry-run
// plans still pass through validation so the preview shows would-be
// denials, but nothing dispatches.
func (e *Executor) ExecutePlan(ctx context.Context, plan contracts.ActionPlan) []contracts.ExecutionResult {
	if plan.IsEmpty() {
		return nil
	}
	if err := e.registry.ValidatePlan(plan); err != nil {
		e.log.Warn("plan rejected before dispatch", "plan_id", plan.ID, "error", err)
		return e.denyPlan(plan, err.Error())
	}
	if plan.DryRun {
		return e.simulatePlan(plan)
	}

	results := make([]contracts.ExecutionResult, 0, len(plan.Actions))
	for i, action := range plan.Actions {
		result := e.executeAction(ctx, action)
		results = append(results, result)

		if !result.Succeeded() && e.cfg.StopOnFirstError {
			now := e.clock()
			for _, remaining := range plan.Actions[i+1:] {
				results = append(results, contracts.ExecutionResult{
					Action:      remaining,
					Status:      contracts.StatusCancelled,
					Error:       "cancelled due to previous error",
					StartedAt:   now,
					CompletedAt: now,
				})
			}
			break
		}
	}
	return results
}

// ExecuteSingle runs one action through the full gate.
func (e *Executor) ExecuteSingle(ctx context.Context, action contracts.Action) contracts.ExecutionResult {
	return e.executeAction(ctx, action)
}

func (e *Executor) executeAction(ctx context.Context, action contracts.Action) contracts.ExecutionResult {
	started := e.clock()

	if validation := e.validator.ValidateAction(action); !validation.Allowed {
		e.log.Warn("action blocked before dispatch",
			"action_id", action.ID, "function", action.Function, "reason", validation.Reason)
		return contracts.ExecutionResult{
			Action:      action,
			Status:      contracts.StatusDenied,
			Error:       validation.Reason,
			StartedAt:   started,
			CompletedAt: e.clock(),
		}
	}

	e.log.Info("executing action",
		"action_id", action.ID, "tool", action.Tool, "function", action.Function, "risk", action.Risk)

	output, err := e.registry.Dispatch(ctx, action)
	completed := e.clock()
	if err != nil {
		status := classify(err)
		e.log.Error("action did not complete",
			"action_id", action.ID, "function", action.Function, "status", status, "error", err)
		return contracts.ExecutionResult{
			Action:      action,
			Status:      status,
			Error:       err.Error(),
			StartedAt:   started,
			CompletedAt: completed,
		}
	}

	return contracts.ExecutionResult{
		Action:      action,
		Status:      contracts.StatusSuccess,
		Output:      truncate(output, e.cfg.MaxOutputLength),
		StartedAt:   started,
		CompletedAt: completed,
	}
}

// denyPlan marks every action denied without dispatching any of them.
func (e *Executor) denyPlan(plan contracts.ActionPlan, reason string) []contracts.ExecutionResult {
	now := e.clock()
	results := make([]contracts.ExecutionResult, 0, len(plan.Actions))
	for _, action := range plan.Actions {
		results = append(results, contracts.ExecutionResult{
			Action:      action,
			Status:      contracts.StatusDenied,
			Error:       reason,
			StartedAt:   now,
			CompletedAt: now,
		})
	}
	return results
}

func (e *Executor) simulatePlan(plan contracts.ActionPlan) []contracts.ExecutionResult {
	results := make([]contracts.ExecutionResult, 0, len(plan.Actions))
	for _, action := range plan.Actions {
		now := e.clock()
		if validation := e.validator.ValidateAction(action); !validation.Allowed {
			results = append(results, contracts.ExecutionResult{
				Action:      action,
				Status:      contracts.StatusDenied,
				Error:       "[dry run] would be denied: " + validation.Reason,
				StartedAt:   now,
				CompletedAt: now,
			})
			continue
		}
		results = append(results, contracts.ExecutionResult{
			Action:      action,
			Status:      contracts.StatusDryRun,
			Output:      "[dry run] " + action.Description,
			StartedAt:   now,
			CompletedAt: now,
		})
	}
	return results
}

// classify folds a provider error into a result status: permission
// errors are denials, everything else is a failure.
func classify(err error) contracts.ExecutionStatus {
	switch {
	case errors.Is(err, context.DeadlineExceeded):
		return contracts.StatusTimeout
	case errors.Is(err, context.Canceled):
		return contracts.StatusCancelled
	case errors.Is(err, providers.ErrPermission) || errors.Is(err, fs.ErrPermission):
		return contracts.StatusDenied
	case errors.Is(err, providers.ErrNotFound) || errors.Is(err, fs.ErrNotExist):
		return contracts.StatusFailed
	default:
		return contracts.StatusFailed
	}
}

func truncate(s string, max int) string {
	if max <= 0 || len(s) <= max {
		return s
	}
	return s[:max] + "... [truncated]"
}
