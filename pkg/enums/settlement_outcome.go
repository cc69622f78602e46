package enums

import "fmt"

// SettlementOutcome records the terminal decision for a campaign.
type SettlementOutcome string

const (
	SettlementOutcomeFulfilled             SettlementOutcome = "fulfilled"
	SettlementOutcomeExpiredUnderThreshold SettlementOutcome = "expired_under_threshold"
	SettlementOutcomeCancelled             SettlementOutcome = "cancelled"
)

var validSettlementOutcomes = []SettlementOutcome{
	SettlementOutcomeFulfilled,
	SettlementOutcomeExpiredUnderThreshold,
	SettlementOutcomeCancelled,
}

// String implements fmt.Stringer.
func (o SettlementOutcome) String() string {
	return string(o)
}

// IsValid reports whether the value is a known SettlementOutcome.
func (o SettlementOutcome) IsValid() bool {
	for _, candidate := range validSettlementOutcomes {
		if candidate == o {
			return true
		}
	}
	return false
}

// ParseSettlementOutcome converts raw input into a SettlementOutcome.
func ParseSettlementOutcome(value string) (SettlementOutcome, error) {
	for _, candidate := range validSettlementOutcomes {
		if string(candidate) == value {
			return candidate, nil
		}
	}
	return "", fmt.Errorf("invalid settlement outcome %q", value)
}
