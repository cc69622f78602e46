package models

import (
	"time"

	"github.com/google/uuid"

	"github.com/vyronamart/groupbuy-backend/pkg/enums"
)

// Contribution is one participant's ordered entry in a campaign ledger.
// Sequence numbers are unique per campaign and assigned under the campaign
// writer lock.
type Contribution struct {
	ID               uuid.UUID                `gorm:"column:id;type:uuid;default:gen_random_uuid();primaryKey"`
	CampaignID       uuid.UUID                `gorm:"column:campaign_id;type:uuid;not null"`
	ParticipantID    uuid.UUID                `gorm:"column:participant_id;type:uuid;not null"`
	SequenceNumber   int64                    `gorm:"column:sequence_number;not null"`
	Quantity         int                      `gorm:"column:quantity;not null"`
	AmountCents      int                      `gorm:"column:amount_cents;not null"`
	Status           enums.ContributionStatus `gorm:"column:status;type:contribution_status;not null;default:'pending'"`
	PaymentReference *string                  `gorm:"column:payment_reference"`
	FailureReason    *string                  `gorm:"column:failure_reason"`
	JoinedAt         time.Time                `gorm:"column:joined_at;autoCreateTime"`
	ConfirmedAt      *time.Time               `gorm:"column:confirmed_at"`
	UpdatedAt        time.Time                `gorm:"column:updated_at;autoUpdateTime"`
}
