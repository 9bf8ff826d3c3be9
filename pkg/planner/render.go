package planner

import (
	"fmt"
	"sort"
	"strings"

	"github.com/asphodel42/amadeus/pkg/contracts"
)

var riskMarkers = map[contracts.RiskLevel]string{
	contracts.RiskSafe:        "[safe]",
	contracts.RiskMedium:      "[medium]",
	contracts.RiskHigh:        "[HIGH]",
	contracts.RiskDestructive: "[DESTRUCTIVE]",
}

// RenderPlan formats a plan for the console: numbered actions with
// risk markers, argument listing, and a confirmation banner.
func RenderPlan(plan contracts.ActionPlan) string {
	if plan.IsEmpty() {
		return "No actions planned for this command."
	}

	var b strings.Builder
	rule := strings.Repeat("=", 46)
	fmt.Fprintln(&b, rule)
	fmt.Fprintf(&b, "Action plan: %s\n", strings.ToUpper(string(plan.Intent.Type)))
	fmt.Fprintf(&b, "Risk level: %s\n", plan.MaxRisk())
	fmt.Fprintln(&b, rule)

	for i, action := range plan.Actions {
		marker, ok := riskMarkers[action.Risk]
		if !ok {
			marker = "[?]"
		}
		fmt.Fprintf(&b, "%d. %s %s\n", i+1, marker, action.Description)

		keys := make([]string, 0, len(action.Args))
		for k := range action.Args {
			keys = append(keys, k)
		}
		sort.Strings(keys)
		for _, k := range keys {
			fmt.Fprintf(&b, "      %s: %v\n", k, action.Args[k])
		}
	}

	switch {
	case plan.RequiresConfirmation && plan.MaxRisk() == contracts.RiskDestructive:
		fmt.Fprintln(&b, "DESTRUCTIVE OPERATION - typed confirmation required.")
	case plan.RequiresConfirmation:
		fmt.Fprintln(&b, "This plan requires your confirmation to proceed.")
	default:
		fmt.Fprintln(&b, "This plan is safe and will execute automatically.")
	}
	fmt.Fprint(&b, rule)

	return b.String()
}
