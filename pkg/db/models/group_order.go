package models

import (
	"time"

	"github.com/google/uuid"
)

// GroupOrder is the fulfillment order produced for one captured contribution.
// contribution_id is unique so repeated settlement attempts never duplicate
// an order.
type GroupOrder struct {
	ID             uuid.UUID `gorm:"column:id;type:uuid;default:gen_random_uuid();primaryKey"`
	CampaignID     uuid.UUID `gorm:"column:campaign_id;type:uuid;not null"`
	ContributionID uuid.UUID `gorm:"column:contribution_id;type:uuid;not null;uniqueIndex"`
	ParticipantID  uuid.UUID `gorm:"column:participant_id;type:uuid;not null"`
	Quantity       int       `gorm:"column:quantity;not null"`
	TotalCents     int       `gorm:"column:total_cents;not null"`
	CreatedAt      time.Time `gorm:"column:created_at;autoCreateTime"`
}
