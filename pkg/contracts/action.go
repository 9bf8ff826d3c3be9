package contracts

import (
	"time"

	"github.com/google/uuid"
)

// Action is one atomic operation to dispatch to a capability provider.
//
//nolint:govet // fieldalignment: struct layout is human-readable
type Action struct {
	ID                   string         `json:"id"`
	Tool                 string         `json:"tool"`
	Function             string         `json:"function"`
	Args                 map[string]any `json:"args"`
	Risk                 RiskLevel      `json:"risk"`
	Description          string         `json:"description"`
	RequiresConfirmation bool           `json:"requires_confirmation"`
}

// NewAction builds an action with a fresh id. High and destructive
// risk always force the confirmation flag, regardless of what the
// caller passed.
func NewAction(tool, function string, args map[string]any, risk RiskLevel, description string, requiresConfirmation bool) Action {
	if args == nil {
		args = map[string]any{}
	}
	if risk.AtLeast(RiskHigh) {
		requiresConfirmation = true
	}
	return Action{
		ID:                   uuid.NewString(),
		Tool:                 tool,
		Function:             function,
		Args:                 args,
		Risk:                 risk,
		Description:          description,
		RequiresConfirmation: requiresConfirmation,
	}
}

// StringArg returns the named argument as a string, or "" when absent
// or not a string.
func (a Action) StringArg(name string) string {
	v, ok := a.Args[name]
	if !ok {
		return ""
	}
	s, _ := v.(string)
	return s
}

// ActionPlan is the ordered list of actions derived from one intent.
//
//nolint:govet // fieldalignment: struct layout is human-readable
type ActionPlan struct {
	ID                   string    `json:"id"`
	Intent               Intent    `json:"intent"`
	Actions              []Action  `json:"actions"`
	RequiresConfirmation bool      `json:"requires_confirmation"`
	DryRun               bool      `json:"dry_run"`
	CreatedAt            time.Time `json:"created_at"`
}

// NewPlan builds a plan. The confirmation flag is the OR over member
// actions; callers cannot lower it.
func NewPlan(intent Intent, actions []Action, dryRun bool) ActionPlan {
	requires := false
	for _, a := range actions {
		if a.RequiresConfirmation {
			requires = true
			break
		}
	}
	return ActionPlan{
		ID:                   uuid.NewString(),
		Intent:               intent,
		Actions:              actions,
		RequiresConfirmation: requires,
		DryRun:               dryRun,
		CreatedAt:            time.Now().UTC(),
	}
}

// IsEmpty reports whether the plan carries no actions.
func (p ActionPlan) IsEmpty() bool { return len(p.Actions) == 0 }

// MaxRisk is the highest risk across the plan's actions, or Safe for
// an empty plan.
func (p ActionPlan) MaxRisk() RiskLevel {
	max := RiskSafe
	for _, a := range p.Actions {
		max = MaxRisk(max, a.Risk)
	}
	return max
}
