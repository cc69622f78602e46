package models

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/vyronamart/groupbuy-backend/pkg/enums"
)

// Campaign is a group-buy campaign. Accumulated quantity is always derived
// from the contribution ledger, never stored on the row.
type Campaign struct {
	ID                 uuid.UUID            `gorm:"column:id;type:uuid;default:gen_random_uuid();primaryKey"`
	Title              string               `gorm:"column:title;not null"`
	CreatedBy          uuid.UUID            `gorm:"column:created_by;type:uuid;not null"`
	TargetQuantity     int                  `gorm:"column:target_quantity;not null"`
	MinParticipants    int                  `gorm:"column:min_participants;not null"`
	MaxParticipants    int                  `gorm:"column:max_participants;not null"`
	OriginalPriceCents int                  `gorm:"column:original_price_cents;not null"`
	GroupPriceCents    *int                 `gorm:"column:group_price_cents"`
	DiscountPercent    *decimal.Decimal     `gorm:"column:discount_percent;type:numeric(5,2)"`
	Currency           enums.Currency       `gorm:"column:currency;type:text;not null;default:'USD'"`
	OverflowFactor     decimal.Decimal      `gorm:"column:overflow_factor;type:numeric(4,2);not null;default:1.0"`
	Status             enums.CampaignStatus `gorm:"column:status;type:campaign_status;not null;default:'open'"`
	StartDate          time.Time            `gorm:"column:start_date;not null"`
	EndDate            time.Time            `gorm:"column:end_date;not null"`
	CompletedAt        *time.Time           `gorm:"column:completed_at"`
	SettlementFailure  *string              `gorm:"column:settlement_failure"`
	SettlementAttempts int                  `gorm:"column:settlement_attempts;not null;default:0"`
	CreatedAt          time.Time            `gorm:"column:created_at;autoCreateTime"`
	UpdatedAt          time.Time            `gorm:"column:updated_at;autoUpdateTime"`
}

// EffectiveUnitPriceCents resolves the per-unit price a contributor pays.
// Group price wins when set; otherwise the discount percent is applied to the
// original price and rounded half-up to whole cents.
func (c *Campaign) EffectiveUnitPriceCents() int {
	if c.GroupPriceCents != nil {
		return *c.GroupPriceCents
	}
	if c.DiscountPercent != nil {
		original := decimal.NewFromInt(int64(c.OriginalPriceCents))
		factor := decimal.NewFromInt(100).Sub(*c.DiscountPercent).Div(decimal.NewFromInt(100))
		return int(original.Mul(factor).Round(0).IntPart())
	}
	return c.OriginalPriceCents
}

// CapacityUnits is the hard quantity cap: target scaled by the overflow factor,
// truncated toward zero.
func (c *Campaign) CapacityUnits() int {
	units := decimal.NewFromInt(int64(c.TargetQuantity)).Mul(c.OverflowFactor)
	return int(units.IntPart())
}
