package enums

import "fmt"

// CampaignStatus tracks the lifecycle of a group-buy campaign.
type CampaignStatus string

const (
	CampaignStatusOpen      CampaignStatus = "open"
	CampaignStatusSettling  CampaignStatus = "settling"
	CampaignStatusSettled   CampaignStatus = "settled"
	CampaignStatusExpired   CampaignStatus = "expired"
	CampaignStatusCancelled CampaignStatus = "cancelled"
)

var validCampaignStatuses = []CampaignStatus{
	CampaignStatusOpen,
	CampaignStatusSettling,
	CampaignStatusSettled,
	CampaignStatusExpired,
	CampaignStatusCancelled,
}

// String implements fmt.Stringer.
func (s CampaignStatus) String() string {
	return string(s)
}

// IsValid reports whether the value is a known CampaignStatus.
func (s CampaignStatus) IsValid() bool {
	for _, candidate := range validCampaignStatuses {
		if candidate == s {
			return true
		}
	}
	return false
}

// IsTerminal reports whether the status admits no further transitions.
func (s CampaignStatus) IsTerminal() bool {
	switch s {
	case CampaignStatusSettled, CampaignStatusExpired, CampaignStatusCancelled:
		return true
	}
	return false
}

// ParseCampaignStatus converts raw input into a CampaignStatus.
func ParseCampaignStatus(value string) (CampaignStatus, error) {
	for _, candidate := range validCampaignStatuses {
		if string(candidate) == value {
			return candidate, nil
		}
	}
	return "", fmt.Errorf("invalid campaign status %q", value)
}
