package campaigns

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/vyronamart/groupbuy-backend/pkg/enums"
)

// CreateCampaignInput captures the fields required to open a campaign.
type CreateCampaignInput struct {
	Title              string
	CreatedBy          uuid.UUID
	TargetQuantity     int
	MinParticipants    int
	MaxParticipants    int
	OriginalPriceCents int
	GroupPriceCents    *int
	DiscountPercent    *decimal.Decimal
	Currency           enums.Currency
	OverflowFactor     *decimal.Decimal
	StartDate          time.Time
	EndDate            time.Time
}

// CampaignSummary exposes the aggregated fields returned in the open list.
type CampaignSummary struct {
	ID                 uuid.UUID            `json:"id"`
	Title              string               `json:"title"`
	TargetQuantity     int                  `json:"target_quantity"`
	MinParticipants    int                  `json:"min_participants"`
	MaxParticipants    int                  `json:"max_participants"`
	OriginalPriceCents int                  `json:"original_price_cents"`
	UnitPriceCents     int                  `json:"unit_price_cents"`
	Currency           enums.Currency       `json:"currency"`
	Status             enums.CampaignStatus `json:"status"`
	EndDate            time.Time            `json:"end_date"`
	CreatedAt          time.Time            `json:"created_at"`
}

// CampaignList wraps the paginated campaigns plus the next page cursor.
type CampaignList struct {
	Campaigns  []CampaignSummary `json:"campaigns"`
	NextCursor string            `json:"next_cursor,omitempty"`
}
