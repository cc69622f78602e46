package orders

import (
	"context"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/vyronamart/groupbuy-backend/pkg/db/models"
)

// Repository defines persistence operations for group orders.
type Repository interface {
	WithTx(tx *gorm.DB) Repository
	Create(ctx context.Context, order *models.GroupOrder) (*models.GroupOrder, error)
	FindByContribution(ctx context.Context, contributionID uuid.UUID) (*models.GroupOrder, error)
	ListByCampaign(ctx context.Context, campaignID uuid.UUID) ([]models.GroupOrder, error)
}
