package policy

import (
	"fmt"

	"github.com/google/cel-go/cel"
	"github.com/google/cel-go/common/decls"
	"github.com/google/cel-go/common/types"

	"github.com/asphodel42/amadeus/pkg/contracts"
)

// Rule is one entry in the risk stage. Rules are scanned in order and
// may only raise the required confirmation type, never lower it.
//
//nolint:govet // fieldalignment: struct layout is human-readable
type Rule struct {
	ID            string                    `yaml:"id" json:"id"`
	Description   string                    `yaml:"description" json:"description"`
	Scope         contracts.CapabilityScope `yaml:"scope,omitempty" json:"scope,omitempty"`
	RiskThreshold contracts.RiskLevel       `yaml:"risk_threshold" json:"risk_threshold"`
	Confirmation  contracts.ConfirmationType `yaml:"confirmation" json:"confirmation"`
	Condition     string                    `yaml:"condition,omitempty" json:"condition,omitempty"`
	Enabled       bool                      `yaml:"enabled" json:"enabled"`

	program cel.Program
}

// DefaultRules is the built-in risk policy.
func DefaultRules() []Rule {
	return []Rule{
		{
			ID:            "destructive_confirmation",
			Description:   "destructive actions require typed confirmation",
			RiskThreshold: contracts.RiskDestructive,
			Confirmation:  contracts.ConfirmationTyped,
			Enabled:       true,
		},
		{
			ID:            "high_risk_confirmation",
			Description:   "high-risk actions require simple confirmation",
			RiskThreshold: contracts.RiskHigh,
			Confirmation:  contracts.ConfirmationSimple,
			Enabled:       true,
		},
		{
			ID:            "fs_delete_always_confirm",
			Description:   "file deletion always requires typed confirmation",
			Scope:         contracts.ScopeFSDelete,
			RiskThreshold: contracts.RiskSafe,
			Confirmation:  contracts.ConfirmationTyped,
			Enabled:       true,
		},
		{
			ID:            "fs_write_confirm",
			Description:   "file writing requires confirmation",
			Scope:         contracts.ScopeFSWrite,
			RiskThreshold: contracts.RiskSafe,
			Confirmation:  contracts.ConfirmationSimple,
			Enabled:       true,
		},
	}
}

// newRuleEnv declares the attributes a rule condition may reference.
func newRuleEnv() (*cel.Env, error) {
	return cel.NewEnv(
		cel.VariableDecls(
			decls.NewVariable("function", types.StringType),
			decls.NewVariable("tool", types.StringType),
			decls.NewVariable("risk", types.StringType),
			decls.NewVariable("args", types.NewMapType(types.StringType, types.DynType)),
		),
	)
}

// compileRules compiles every enabled rule's CEL condition up front so
// a malformed expression is rejected at load time, not mid-evaluation.
func compileRules(env *cel.Env, rules []Rule) ([]Rule, error) {
	out := make([]Rule, len(rules))
	copy(out, rules)
	for i := range out {
		if out[i].Condition == "" {
			continue
		}
		ast, issues := env.Compile(out[i].Condition)
		if issues != nil && issues.Err() != nil {
			return nil, fmt.Errorf("rule %s: condition compilation failed: %w", out[i].ID, issues.Err())
		}
		prg, err := env.Program(ast)
		if err != nil {
			return nil, fmt.Errorf("rule %s: program construction failed: %w", out[i].ID, err)
		}
		out[i].program = prg
	}
	return out, nil
}

// conditionMatches evaluates a rule's compiled condition against one
// action. A rule without a condition always matches. An evaluation
// error counts as a match: an unevaluable guard must fail closed, so
// the rule still raises its confirmation requirement.
func (r Rule) conditionMatches(action contracts.Action) bool {
	if r.program == nil {
		return true
	}
	out, _, err := r.program.Eval(map[string]any{
		"function": action.Function,
		"tool":     action.Tool,
		"risk":     string(action.Risk),
		"args":     action.Args,
	})
	if err != nil {
		return true
	}
	matched, ok := out.Value().(bool)
	if !ok {
		return true
	}
	return matched
}
