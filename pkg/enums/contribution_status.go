package enums

import "fmt"

// ContributionStatus tracks the payment lifecycle of a single contribution.
type ContributionStatus string

const (
	ContributionStatusPending    ContributionStatus = "pending"
	ContributionStatusAuthorized ContributionStatus = "authorized"
	ContributionStatusCaptured   ContributionStatus = "captured"
	ContributionStatusRefunded   ContributionStatus = "refunded"
	ContributionStatusFailed     ContributionStatus = "failed"
)

var validContributionStatuses = []ContributionStatus{
	ContributionStatusPending,
	ContributionStatusAuthorized,
	ContributionStatusCaptured,
	ContributionStatusRefunded,
	ContributionStatusFailed,
}

// String implements fmt.Stringer.
func (s ContributionStatus) String() string {
	return string(s)
}

// IsValid reports whether the value is a known ContributionStatus.
func (s ContributionStatus) IsValid() bool {
	for _, candidate := range validContributionStatuses {
		if candidate == s {
			return true
		}
	}
	return false
}

// IsTerminal reports whether the contribution admits no further payment transitions.
// Captured is not terminal: a captured contribution can still be refunded.
func (s ContributionStatus) IsTerminal() bool {
	switch s {
	case ContributionStatusRefunded, ContributionStatusFailed:
		return true
	}
	return false
}

// ParseContributionStatus converts raw input into a ContributionStatus.
func ParseContributionStatus(value string) (ContributionStatus, error) {
	for _, candidate := range validContributionStatuses {
		if string(candidate) == value {
			return candidate, nil
		}
	}
	return "", fmt.Errorf("invalid contribution status %q", value)
}
