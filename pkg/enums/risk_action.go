package enums

import "fmt"

// RiskAction is the verdict of the risk policy engine for an order-creation
// attempt.
type RiskAction string

const (
	RiskActionAllow  RiskAction = "ALLOW"
	RiskActionReview RiskAction = "REVIEW"
	RiskActionReject RiskAction = "REJECT"
)

var validRiskActions = []RiskAction{
	RiskActionAllow,
	RiskActionReview,
	RiskActionReject,
}

// String implements fmt.Stringer.
func (a RiskAction) String() string {
	return string(a)
}

// IsValid reports whether the value is a known RiskAction.
func (a RiskAction) IsValid() bool {
	for _, candidate := range validRiskActions {
		if candidate == a {
			return true
		}
	}
	return false
}

// ParseRiskAction converts raw input into a RiskAction.
func ParseRiskAction(value string) (RiskAction, error) {
	for _, candidate := range validRiskActions {
		if string(candidate) == value {
			return candidate, nil
		}
	}
	return "", fmt.Errorf("invalid risk action %q", value)
}
