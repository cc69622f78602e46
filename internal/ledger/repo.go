package ledger

import (
	"context"

	"github.com/google/uuid"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"github.com/vyronamart/groupbuy-backend/pkg/db/models"
	"github.com/vyronamart/groupbuy-backend/pkg/enums"
)

var activeStatuses = []enums.ContributionStatus{
	enums.ContributionStatusPending,
	enums.ContributionStatusAuthorized,
	enums.ContributionStatusCaptured,
}

type repository struct {
	db *gorm.DB
}

// NewRepository builds a ledger repository bound to the provided DB.
func NewRepository(db *gorm.DB) Repository {
	return &repository{db: db}
}

func (r *repository) WithTx(tx *gorm.DB) Repository {
	if tx == nil {
		return r
	}
	return &repository{db: tx}
}

func (r *repository) Create(ctx context.Context, contribution *models.Contribution) (*models.Contribution, error) {
	if err := r.db.WithContext(ctx).Create(contribution).Error; err != nil {
		return nil, err
	}
	return contribution, nil
}

func (r *repository) FindByID(ctx context.Context, id uuid.UUID) (*models.Contribution, error) {
	var contribution models.Contribution
	err := r.db.WithContext(ctx).
		Where("id = ?", id).
		First(&contribution).Error
	if err != nil {
		return nil, err
	}
	return &contribution, nil
}

func (r *repository) FindByIDForUpdate(ctx context.Context, id uuid.UUID) (*models.Contribution, error) {
	var contribution models.Contribution
	err := r.db.WithContext(ctx).
		Clauses(clause.Locking{Strength: "UPDATE"}).
		Where("id = ?", id).
		First(&contribution).Error
	if err != nil {
		return nil, err
	}
	return &contribution, nil
}

func (r *repository) ListByCampaign(ctx context.Context, campaignID uuid.UUID) ([]models.Contribution, error) {
	var contributions []models.Contribution
	err := r.db.WithContext(ctx).
		Where("campaign_id = ?", campaignID).
		Order("sequence_number ASC").
		Find(&contributions).Error
	if err != nil {
		return nil, err
	}
	return contributions, nil
}

func (r *repository) ActiveTotals(ctx context.Context, campaignID uuid.UUID) (ActiveTotals, error) {
	var totals struct {
		Quantity     int
		Participants int
	}
	err := r.db.WithContext(ctx).
		Model(&models.Contribution{}).
		Select("COALESCE(SUM(quantity), 0) AS quantity, COUNT(DISTINCT participant_id) AS participants").
		Where("campaign_id = ? AND status IN ?", campaignID, activeStatuses).
		Scan(&totals).Error
	if err != nil {
		return ActiveTotals{}, err
	}
	return ActiveTotals{Quantity: totals.Quantity, Participants: totals.Participants}, nil
}

func (r *repository) HasActiveParticipant(ctx context.Context, campaignID, participantID uuid.UUID) (bool, error) {
	var count int64
	err := r.db.WithContext(ctx).
		Model(&models.Contribution{}).
		Where("campaign_id = ? AND participant_id = ? AND status IN ?", campaignID, participantID, activeStatuses).
		Count(&count).Error
	if err != nil {
		return false, err
	}
	return count > 0, nil
}

// MaxSequenceNumber spans every status so sequence numbers stay monotonic
// even after failed contributions.
func (r *repository) MaxSequenceNumber(ctx context.Context, campaignID uuid.UUID) (int64, error) {
	var max int64
	err := r.db.WithContext(ctx).
		Model(&models.Contribution{}).
		Select("COALESCE(MAX(sequence_number), 0)").
		Where("campaign_id = ?", campaignID).
		Scan(&max).Error
	if err != nil {
		return 0, err
	}
	return max, nil
}

func (r *repository) Update(ctx context.Context, id uuid.UUID, updates map[string]any) error {
	return r.db.WithContext(ctx).
		Model(&models.Contribution{}).
		Where("id = ?", id).
		Updates(updates).Error
}
