// Package policy decides whether an action plan may execute and how
// strong a user confirmation it needs. Evaluation runs two stages: a
// capability check gating plugin-scoped callers, and a risk assessment
// over an ordered rule list. A second, non-configurable validator
// holds the hard-coded safety floor checked again right before
// dispatch.
package policy

import (
	"fmt"
	"log/slog"
	"strings"

	"github.com/asphodel42/amadeus/pkg/contracts"
)

// functionScopes maps provider functions to the capability scope they
// require.
var functionScopes = map[string]contracts.CapabilityScope{
	"list_dir":        contracts.ScopeFSRead,
	"read_file":       contracts.ScopeFSRead,
	"open_file":       contracts.ScopeFSRead,
	"create_file":     contracts.ScopeFSCreate,
	"write_file":      contracts.ScopeFSWrite,
	"delete_path":     contracts.ScopeFSDelete,
	"open_app":        contracts.ScopeProcessLaunch,
	"open_url":        contracts.ScopeNetBrowser,
	"search_web":      contracts.ScopeNetBrowser,
	"get_system_info": contracts.ScopeSystemInfo,
}

// Engine evaluates plans against capabilities and risk rules.
type Engine struct {
	rules []Rule
	log   *slog.Logger
}

// NewEngine builds an engine over the given rules, compiling any CEL
// conditions. Nil rules means the built-in set.
func NewEngine(rules []Rule) (*Engine, error) {
	if rules == nil {
		rules = DefaultRules()
	}
	env, err := newRuleEnv()
	if err != nil {
		return nil, fmt.Errorf("policy environment: %w", err)
	}
	compiled, err := compileRules(env, rules)
	if err != nil {
		return nil, err
	}
	return &Engine{
		rules: compiled,
		log:   slog.Default().With("component", "policy"),
	}, nil
}

// Evaluate runs both stages over the plan and merges the outcome. A
// nil capability set means system-level trust: the capability stage is
// skipped entirely. A denial from either stage denies the whole plan;
// partial approval of a multi-action plan does not exist.
func (e *Engine) Evaluate(plan contracts.ActionPlan, capabilities []contracts.Capability) contracts.PolicyDecision {
	if plan.IsEmpty() {
		return contracts.AllowDecision("empty plan, nothing to execute")
	}

	capDecision := e.checkCapabilities(plan, capabilities)
	if !capDecision.Allowed {
		e.log.Warn("plan denied by capability stage",
			"plan_id", plan.ID, "denied", len(capDecision.DeniedActions))
		return capDecision
	}

	riskDecision := e.assessRisk(plan)
	return mergeDecisions(capDecision, riskDecision)
}

func (e *Engine) checkCapabilities(plan contracts.ActionPlan, capabilities []contracts.Capability) contracts.PolicyDecision {
	if capabilities == nil {
		return contracts.AllowDecision("system-level access granted")
	}

	var denied []string
	var warnings []string
	for _, action := range plan.Actions {
		scope, known := functionScopes[action.Function]
		if !known {
			// Plugin mode is fail-closed: a function the scope table
			// has never heard of cannot be capability-checked, so it
			// cannot run.
			warnings = append(warnings, fmt.Sprintf("unknown function: %s", action.Function))
			denied = append(denied, fmt.Sprintf(
				"action %q has no capability mapping and cannot be authorized", action.Function))
			continue
		}

		grant, ok := findCapability(capabilities, scope)
		if !ok {
			denied = append(denied, fmt.Sprintf(
				"action %q requires capability %q", action.Function, scope))
			continue
		}

		if path := action.StringArg("path"); path != "" && !grant.AllowsPath(path) {
			denied = append(denied, fmt.Sprintf(
				"path %q is not allowed for capability %q", path, scope))
		}
	}

	if len(denied) > 0 {
		d := contracts.DenyDecision("insufficient capabilities", denied...)
		d.Warnings = warnings
		return d
	}
	d := contracts.AllowDecision("all capabilities verified")
	d.Warnings = warnings
	return d
}

func findCapability(capabilities []contracts.Capability, scope contracts.CapabilityScope) (contracts.Capability, bool) {
	for _, c := range capabilities {
		if c.Scope == scope {
			return c, true
		}
	}
	return contracts.Capability{}, false
}

func (e *Engine) assessRisk(plan contracts.ActionPlan) contracts.PolicyDecision {
	maxRisk := plan.MaxRisk()
	required := contracts.ConfirmationNone
	var reasons []string

	for _, rule := range e.rules {
		if !rule.Enabled {
			continue
		}
		if rule.Scope != "" {
			for _, action := range plan.Actions {
				if functionScopes[action.Function] != rule.Scope {
					continue
				}
				if !action.Risk.AtLeast(rule.RiskThreshold) || !rule.conditionMatches(action) {
					continue
				}
				if rule.Confirmation.Rank() > required.Rank() {
					required = rule.Confirmation
					reasons = append(reasons, rule.Description)
				}
			}
			continue
		}
		if maxRisk.AtLeast(rule.RiskThreshold) && e.planMatches(rule, plan) {
			if rule.Confirmation.Rank() > required.Rank() {
				required = rule.Confirmation
				reasons = append(reasons, rule.Description)
			}
		}
	}

	if required == contracts.ConfirmationNone {
		return contracts.AllowDecision("risk level acceptable")
	}
	return contracts.AllowWithConfirmation(strings.Join(reasons, "; "), required)
}

// planMatches applies an unscoped rule's condition: it matches when
// any action in the plan satisfies it.
func (e *Engine) planMatches(rule Rule, plan contracts.ActionPlan) bool {
	if rule.program == nil {
		return true
	}
	for _, action := range plan.Actions {
		if rule.conditionMatches(action) {
			return true
		}
	}
	return false
}

func mergeDecisions(cap, risk contracts.PolicyDecision) contracts.PolicyDecision {
	if !cap.Allowed {
		return cap
	}
	if !risk.Allowed {
		return risk
	}

	var reasons []string
	if cap.Reason != "" && cap.Reason != "system-level access granted" {
		reasons = append(reasons, cap.Reason)
	}
	if risk.Reason != "" && risk.Reason != "risk level acceptable" {
		reasons = append(reasons, risk.Reason)
	}
	reason := strings.Join(reasons, "; ")
	if reason == "" {
		reason = "action allowed"
	}

	return contracts.PolicyDecision{
		Allowed:              true,
		Reason:               reason,
		RequiresConfirmation: cap.RequiresConfirmation || risk.RequiresConfirmation,
		ConfirmationType:     contracts.MaxConfirmation(cap.ConfirmationType, risk.ConfirmationType),
		Warnings:             append(append([]string{}, cap.Warnings...), risk.Warnings...),
	}
}

// ConfirmationPhrase derives the literal phrase the user must repeat
// for a destructive plan's typed confirmation. Embeds the exact target
// so the user confirms the real path, not an abstraction.
func (e *Engine) ConfirmationPhrase(plan contracts.ActionPlan) string {
	if plan.MaxRisk() != contracts.RiskDestructive {
		return ""
	}
	for _, action := range plan.Actions {
		if action.Risk != contracts.RiskDestructive {
			continue
		}
		if action.Function == "delete_path" {
			path := action.StringArg("path")
			if path == "" {
				path = "unknown"
			}
			return "DELETE " + path
		}
	}
	return "CONFIRM DELETE"
}
