package settlement

import (
	"context"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/vyronamart/groupbuy-backend/pkg/db/models"
)

// Repository defines persistence operations for settlement records.
type Repository interface {
	WithTx(tx *gorm.DB) Repository
	Create(ctx context.Context, record *models.SettlementRecord) (*models.SettlementRecord, error)
	FindByCampaign(ctx context.Context, campaignID uuid.UUID) (*models.SettlementRecord, error)
}

// RefundRequest carries what the provider needs to reverse a payment.
type RefundRequest struct {
	PaymentID      string
	AmountCents    int
	Currency       string
	IdempotencyKey string
	Reason         string
}

// RefundProvider reverses captured payments. Implementations must be
// idempotent on the request key.
type RefundProvider interface {
	Refund(ctx context.Context, req RefundRequest) (string, error)
}
