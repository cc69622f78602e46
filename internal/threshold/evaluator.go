// Package threshold decides whether a campaign has met its settlement
// conditions. Evaluation is pure: the same campaign, ledger, and clock always
// produce the same state.
package threshold

import (
	"time"

	"github.com/google/uuid"

	"github.com/vyronamart/groupbuy-backend/pkg/db/models"
	"github.com/vyronamart/groupbuy-backend/pkg/enums"
)

// State is the evaluator verdict for a campaign at a point in time.
type State string

const (
	StateBelowThreshold State = "below_threshold"
	StateThresholdMet   State = "threshold_met"
	StateExpired        State = "expired"
)

// Snapshot aggregates the captured portion of a campaign ledger.
type Snapshot struct {
	CapturedQuantity     int
	CapturedParticipants int
	CapturedAmountCents  int
}

// Summarize folds a ledger into its captured totals. Only captured
// contributions count toward the threshold; pending and authorized money is
// not yet real.
func Summarize(contributions []models.Contribution) Snapshot {
	var snap Snapshot
	seen := make(map[uuid.UUID]struct{})
	for i := range contributions {
		c := &contributions[i]
		if c.Status != enums.ContributionStatusCaptured {
			continue
		}
		snap.CapturedQuantity += c.Quantity
		snap.CapturedAmountCents += c.AmountCents
		if _, ok := seen[c.ParticipantID]; !ok {
			seen[c.ParticipantID] = struct{}{}
			snap.CapturedParticipants++
		}
	}
	return snap
}

// Evaluate reports the campaign state given its ledger at the provided time.
func Evaluate(campaign *models.Campaign, contributions []models.Contribution, now time.Time) State {
	snap := Summarize(contributions)
	if snap.CapturedQuantity >= campaign.TargetQuantity && snap.CapturedParticipants >= campaign.MinParticipants {
		return StateThresholdMet
	}
	if now.After(campaign.EndDate) {
		return StateExpired
	}
	return StateBelowThreshold
}
