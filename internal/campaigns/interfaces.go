package campaigns

import (
	"context"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/vyronamart/groupbuy-backend/pkg/db/models"
	"github.com/vyronamart/groupbuy-backend/pkg/enums"
	"github.com/vyronamart/groupbuy-backend/pkg/pagination"
)

// Repository defines persistence operations for campaigns. The ledger and
// settlement packages consume it through WithTx inside their transactions.
type Repository interface {
	WithTx(tx *gorm.DB) Repository
	Create(ctx context.Context, campaign *models.Campaign) (*models.Campaign, error)
	FindByID(ctx context.Context, id uuid.UUID) (*models.Campaign, error)
	FindByIDForUpdate(ctx context.Context, id uuid.UUID) (*models.Campaign, error)
	ListOpen(ctx context.Context, params pagination.Params) ([]models.Campaign, *pagination.Cursor, error)
	ListOpenEndedBefore(ctx context.Context, cutoff time.Time, limit int) ([]models.Campaign, error)
	ListOpenAtThreshold(ctx context.Context, limit int) ([]models.Campaign, error)
	ListSettling(ctx context.Context, limit int) ([]models.Campaign, error)
	CompareAndSwapStatus(ctx context.Context, id uuid.UUID, from, to enums.CampaignStatus) (bool, error)
	Update(ctx context.Context, id uuid.UUID, updates map[string]any) error
}
