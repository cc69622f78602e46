package campaigns

import (
	"context"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"github.com/vyronamart/groupbuy-backend/pkg/db/models"
	"github.com/vyronamart/groupbuy-backend/pkg/enums"
	"github.com/vyronamart/groupbuy-backend/pkg/pagination"
)

type repository struct {
	db *gorm.DB
}

// NewRepository builds a campaigns repository bound to the provided DB.
func NewRepository(db *gorm.DB) Repository {
	return &repository{db: db}
}

func (r *repository) WithTx(tx *gorm.DB) Repository {
	if tx == nil {
		return r
	}
	return &repository{db: tx}
}

func (r *repository) Create(ctx context.Context, campaign *models.Campaign) (*models.Campaign, error) {
	if err := r.db.WithContext(ctx).Create(campaign).Error; err != nil {
		return nil, err
	}
	return campaign, nil
}

func (r *repository) FindByID(ctx context.Context, id uuid.UUID) (*models.Campaign, error) {
	var campaign models.Campaign
	err := r.db.WithContext(ctx).
		Where("id = ?", id).
		First(&campaign).Error
	if err != nil {
		return nil, err
	}
	return &campaign, nil
}

// FindByIDForUpdate takes a row lock on the campaign. Callers must be inside
// a transaction.
func (r *repository) FindByIDForUpdate(ctx context.Context, id uuid.UUID) (*models.Campaign, error) {
	var campaign models.Campaign
	err := r.db.WithContext(ctx).
		Clauses(clause.Locking{Strength: "UPDATE"}).
		Where("id = ?", id).
		First(&campaign).Error
	if err != nil {
		return nil, err
	}
	return &campaign, nil
}

func (r *repository) ListOpen(ctx context.Context, params pagination.Params) ([]models.Campaign, *pagination.Cursor, error) {
	limit := pagination.LimitWithBuffer(params.Limit)
	normalized := pagination.NormalizeLimit(params.Limit)
	query := r.db.WithContext(ctx).Model(&models.Campaign{}).
		Where("status = ?", enums.CampaignStatusOpen)

	cursor, err := pagination.ParseCursor(params.Cursor)
	if err != nil {
		return nil, nil, err
	}
	if cursor != nil {
		query = query.Where("(created_at, id) < (?, ?)", cursor.CreatedAt, cursor.ID)
	}

	var campaigns []models.Campaign
	if err := query.Order("created_at DESC, id DESC").Limit(limit).Find(&campaigns).Error; err != nil {
		return nil, nil, err
	}

	if len(campaigns) > normalized {
		next := campaigns[normalized]
		campaigns = campaigns[:normalized]
		return campaigns, &pagination.Cursor{CreatedAt: next.CreatedAt, ID: next.ID}, nil
	}
	return campaigns, nil, nil
}

func (r *repository) ListOpenEndedBefore(ctx context.Context, cutoff time.Time, limit int) ([]models.Campaign, error) {
	var campaigns []models.Campaign
	err := r.db.WithContext(ctx).
		Where("status = ? AND end_date < ?", enums.CampaignStatusOpen, cutoff).
		Order("end_date ASC").
		Limit(limit).
		Find(&campaigns).Error
	if err != nil {
		return nil, err
	}
	return campaigns, nil
}

// ListOpenAtThreshold finds open campaigns whose captured ledger already
// meets both thresholds. Covers capture events whose settlement trigger was
// lost before the deadline sweep would catch them.
func (r *repository) ListOpenAtThreshold(ctx context.Context, limit int) ([]models.Campaign, error) {
	var campaigns []models.Campaign
	err := r.db.WithContext(ctx).
		Joins(`JOIN (
			SELECT campaign_id,
			       COALESCE(SUM(quantity), 0) AS captured_quantity,
			       COUNT(DISTINCT participant_id) AS captured_participants
			FROM contributions
			WHERE status = ?
			GROUP BY campaign_id
		) totals ON totals.campaign_id = campaigns.id`, enums.ContributionStatusCaptured).
		Where("campaigns.status = ?", enums.CampaignStatusOpen).
		Where("totals.captured_quantity >= campaigns.target_quantity").
		Where("totals.captured_participants >= campaigns.min_participants").
		Order("campaigns.end_date ASC").
		Limit(limit).
		Find(&campaigns).Error
	if err != nil {
		return nil, err
	}
	return campaigns, nil
}

func (r *repository) ListSettling(ctx context.Context, limit int) ([]models.Campaign, error) {
	var campaigns []models.Campaign
	err := r.db.WithContext(ctx).
		Where("status = ?", enums.CampaignStatusSettling).
		Order("updated_at ASC").
		Limit(limit).
		Find(&campaigns).Error
	if err != nil {
		return nil, err
	}
	return campaigns, nil
}

// CompareAndSwapStatus transitions the campaign only when it still holds the
// expected status. Zero rows affected means a concurrent actor won.
func (r *repository) CompareAndSwapStatus(ctx context.Context, id uuid.UUID, from, to enums.CampaignStatus) (bool, error) {
	result := r.db.WithContext(ctx).
		Model(&models.Campaign{}).
		Where("id = ? AND status = ?", id, from).
		Update("status", to)
	if result.Error != nil {
		return false, result.Error
	}
	return result.RowsAffected > 0, nil
}

func (r *repository) Update(ctx context.Context, id uuid.UUID, updates map[string]any) error {
	return r.db.WithContext(ctx).
		Model(&models.Campaign{}).
		Where("id = ?", id).
		Updates(updates).Error
}
