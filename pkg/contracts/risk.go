package contracts

// RiskLevel classifies how dangerous an action is. Levels are totally
// ordered: Safe < Medium < High < Destructive.
type RiskLevel string

// Risk level constants.
const (
	RiskSafe        RiskLevel = "SAFE"
	RiskMedium      RiskLevel = "MEDIUM"
	RiskHigh        RiskLevel = "HIGH"
	RiskDestructive RiskLevel = "DESTRUCTIVE"
)

var riskRank = map[RiskLevel]int{
	RiskSafe:        0,
	RiskMedium:      1,
	RiskHigh:        2,
	RiskDestructive: 3,
}

// Rank returns the position of r in the total order. Unknown levels
// rank below Safe so they can never satisfy a threshold.
func (r RiskLevel) Rank() int {
	rank, ok := riskRank[r]
	if !ok {
		return -1
	}
	return rank
}

// AtLeast reports whether r is at or above threshold in the total order.
func (r RiskLevel) AtLeast(threshold RiskLevel) bool {
	return r.Rank() >= threshold.Rank()
}

// MaxRisk returns the higher of two risk levels.
func MaxRisk(a, b RiskLevel) RiskLevel {
	if b.Rank() > a.Rank() {
		return b
	}
	return a
}

// ConfirmationType is the strength of user confirmation a decision
// demands. Types are totally ordered: None < Simple < Typed < Passcode.
type ConfirmationType string

// Confirmation type constants.
const (
	ConfirmationNone     ConfirmationType = "NONE"
	ConfirmationSimple   ConfirmationType = "SIMPLE"
	ConfirmationTyped    ConfirmationType = "TYPED"
	ConfirmationPasscode ConfirmationType = "PASSCODE"
)

var confirmationRank = map[ConfirmationType]int{
	ConfirmationNone:     0,
	ConfirmationSimple:   1,
	ConfirmationTyped:    2,
	ConfirmationPasscode: 3,
}

// Rank returns the position of c in the total order.
func (c ConfirmationType) Rank() int {
	rank, ok := confirmationRank[c]
	if !ok {
		return -1
	}
	return rank
}

// MaxConfirmation returns the stronger of two confirmation types.
// Merging decisions may only raise the requirement, never lower it.
func MaxConfirmation(a, b ConfirmationType) ConfirmationType {
	if b.Rank() > a.Rank() {
		return b
	}
	return a
}
