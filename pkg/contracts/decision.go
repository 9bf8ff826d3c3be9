package contracts

// PolicyDecision is the outcome of one policy evaluation. Always
// produced fresh; never mutated after construction.
//
//nolint:govet // fieldalignment: struct layout is human-readable
type PolicyDecision struct {
	Allowed              bool             `json:"allowed"`
	Reason               string           `json:"reason"`
	RequiresConfirmation bool             `json:"requires_confirmation"`
	ConfirmationType     ConfirmationType `json:"confirmation_type"`
	DeniedActions        []string         `json:"denied_actions,omitempty"`
	Warnings             []string         `json:"warnings,omitempty"`
}

// AllowDecision builds an unconditional allow.
func AllowDecision(reason string) PolicyDecision {
	return PolicyDecision{
		Allowed:          true,
		Reason:           reason,
		ConfirmationType: ConfirmationNone,
	}
}

// AllowWithConfirmation builds an allow gated on user confirmation.
func AllowWithConfirmation(reason string, confirmation ConfirmationType) PolicyDecision {
	return PolicyDecision{
		Allowed:              true,
		Reason:               reason,
		RequiresConfirmation: true,
		ConfirmationType:     confirmation,
	}
}

// DenyDecision builds a denial carrying the per-action reasons.
func DenyDecision(reason string, deniedActions ...string) PolicyDecision {
	return PolicyDecision{
		Allowed:          false,
		Reason:           reason,
		ConfirmationType: ConfirmationNone,
		DeniedActions:    deniedActions,
	}
}
