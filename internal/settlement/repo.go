package settlement

import (
	"context"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/vyronamart/groupbuy-backend/pkg/db/models"
)

type repository struct {
	db *gorm.DB
}

// NewRepository builds a settlement record repository bound to the provided DB.
func NewRepository(db *gorm.DB) Repository {
	return &repository{db: db}
}

func (r *repository) WithTx(tx *gorm.DB) Repository {
	if tx == nil {
		return r
	}
	return &repository{db: tx}
}

func (r *repository) Create(ctx context.Context, record *models.SettlementRecord) (*models.SettlementRecord, error) {
	if err := r.db.WithContext(ctx).Create(record).Error; err != nil {
		return nil, err
	}
	return record, nil
}

func (r *repository) FindByCampaign(ctx context.Context, campaignID uuid.UUID) (*models.SettlementRecord, error) {
	var record models.SettlementRecord
	err := r.db.WithContext(ctx).
		Where("campaign_id = ?", campaignID).
		First(&record).Error
	if err != nil {
		return nil, err
	}
	return &record, nil
}
