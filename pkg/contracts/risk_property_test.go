//go:build property

package contracts

import (
	"testing"

	"github.com/leanovate/gopter"
	"github.com/leanovate/gopter/gen"
	"github.com/leanovate/gopter/prop"
)

var genRisk = gen.OneConstOf(RiskSafe, RiskMedium, RiskHigh, RiskDestructive)

func TestRiskOrderProperties(t *testing.T) {
	parameters := gopter.DefaultTestParameters()
	parameters.MinSuccessfulTests = 200
	properties := gopter.NewProperties(parameters)

	properties.Property("MaxRisk is commutative", prop.ForAll(
		func(a, b RiskLevel) bool {
			return MaxRisk(a, b) == MaxRisk(b, a)
		},
		genRisk, genRisk,
	))

	properties.Property("MaxRisk is idempotent", prop.ForAll(
		func(a RiskLevel) bool {
			return MaxRisk(a, a) == a
		},
		genRisk,
	))

	properties.Property("MaxRisk never ranks below either argument", prop.ForAll(
		func(a, b RiskLevel) bool {
			m := MaxRisk(a, b)
			return m.Rank() >= a.Rank() && m.Rank() >= b.Rank()
		},
		genRisk, genRisk,
	))

	properties.Property("plan max risk equals fold over actions", prop.ForAll(
		func(risks []RiskLevel) bool {
			actions := make([]Action, len(risks))
			for i, r := range risks {
				actions[i] = NewAction("filesystem", "read_file", nil, r, "x", false)
			}
			plan := NewPlan(Intent{Type: IntentReadFile}, actions, false)
			want := RiskSafe
			for _, r := range risks {
				want = MaxRisk(want, r)
			}
			return plan.MaxRisk() == want
		},
		gen.SliceOf(genRisk),
	))

	properties.Property("high and destructive actions always require confirmation", prop.ForAll(
		func(r RiskLevel) bool {
			a := NewAction("filesystem", "delete_path", nil, r, "x", false)
			if r.AtLeast(RiskHigh) {
				return a.RequiresConfirmation
			}
			return !a.RequiresConfirmation
		},
		genRisk,
	))

	properties.TestingRun(t)
}
