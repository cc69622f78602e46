package models

import (
	"time"

	"github.com/google/uuid"

	dbtypes "github.com/vyronamart/groupbuy-backend/pkg/db/types"
	"github.com/vyronamart/groupbuy-backend/pkg/enums"
)

// SettlementRecord is the immutable terminal record for a campaign. The
// unique campaign_id constraint guarantees at most one per campaign.
type SettlementRecord struct {
	ID                uuid.UUID               `gorm:"column:id;type:uuid;default:gen_random_uuid();primaryKey"`
	CampaignID        uuid.UUID               `gorm:"column:campaign_id;type:uuid;not null;uniqueIndex"`
	Outcome           enums.SettlementOutcome `gorm:"column:outcome;type:settlement_outcome;not null"`
	TotalParticipants int                     `gorm:"column:total_participants;not null"`
	TotalAmountCents  int                     `gorm:"column:total_amount_cents;not null"`
	GeneratedOrderIDs dbtypes.UUIDArray       `gorm:"column:generated_order_ids;type:uuid[]"`
	CreatedAt         time.Time               `gorm:"column:created_at;autoCreateTime"`
}
