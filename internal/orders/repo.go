package orders

import (
	"context"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/vyronamart/groupbuy-backend/pkg/db/models"
)

type repository struct {
	db *gorm.DB
}

// NewRepository builds a group orders repository bound to the provided DB.
func NewRepository(db *gorm.DB) Repository {
	return &repository{db: db}
}

func (r *repository) WithTx(tx *gorm.DB) Repository {
	if tx == nil {
		return r
	}
	return &repository{db: tx}
}

func (r *repository) Create(ctx context.Context, order *models.GroupOrder) (*models.GroupOrder, error) {
	if err := r.db.WithContext(ctx).Create(order).Error; err != nil {
		return nil, err
	}
	return order, nil
}

func (r *repository) FindByContribution(ctx context.Context, contributionID uuid.UUID) (*models.GroupOrder, error) {
	var order models.GroupOrder
	err := r.db.WithContext(ctx).
		Where("contribution_id = ?", contributionID).
		First(&order).Error
	if err != nil {
		return nil, err
	}
	return &order, nil
}

func (r *repository) ListByCampaign(ctx context.Context, campaignID uuid.UUID) ([]models.GroupOrder, error) {
	var orders []models.GroupOrder
	err := r.db.WithContext(ctx).
		Where("campaign_id = ?", campaignID).
		Order("created_at ASC").
		Find(&orders).Error
	if err != nil {
		return nil, err
	}
	return orders, nil
}
