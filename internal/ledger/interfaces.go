package ledger

import (
	"context"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/vyronamart/groupbuy-backend/pkg/db/models"
)

// ActiveTotals aggregates the contributions that currently hold or may hold
// capacity: pending, authorized, and captured rows.
type ActiveTotals struct {
	Quantity     int
	Participants int
}

// Repository defines persistence operations for the contribution ledger.
type Repository interface {
	WithTx(tx *gorm.DB) Repository
	Create(ctx context.Context, contribution *models.Contribution) (*models.Contribution, error)
	FindByID(ctx context.Context, id uuid.UUID) (*models.Contribution, error)
	FindByIDForUpdate(ctx context.Context, id uuid.UUID) (*models.Contribution, error)
	ListByCampaign(ctx context.Context, campaignID uuid.UUID) ([]models.Contribution, error)
	ActiveTotals(ctx context.Context, campaignID uuid.UUID) (ActiveTotals, error)
	HasActiveParticipant(ctx context.Context, campaignID, participantID uuid.UUID) (bool, error)
	MaxSequenceNumber(ctx context.Context, campaignID uuid.UUID) (int64, error)
	Update(ctx context.Context, id uuid.UUID, updates map[string]any) error
}
