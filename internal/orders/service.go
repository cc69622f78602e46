package orders

import (
	"context"
	"errors"
	"fmt"

	"github.com/google/uuid"
	"gorm.io/gorm"

	dbpkg "github.com/vyronamart/groupbuy-backend/pkg/db"
	"github.com/vyronamart/groupbuy-backend/pkg/db/models"
)

const contributionUniqueConstraint = "group_orders_contribution_id_key"

// Service creates fulfillment orders from captured contributions.
type Service interface {
	CreateForContribution(ctx context.Context, contribution *models.Contribution) (*models.GroupOrder, error)
	ListByCampaign(ctx context.Context, campaignID uuid.UUID) ([]models.GroupOrder, error)
}

type service struct {
	repo Repository
}

// NewService builds the group order service.
func NewService(repo Repository) (Service, error) {
	if repo == nil {
		return nil, fmt.Errorf("orders repository required")
	}
	return &service{repo: repo}, nil
}

// CreateForContribution inserts the order for a captured contribution. The
// unique constraint on contribution_id makes retries return the existing
// order instead of duplicating it.
func (s *service) CreateForContribution(ctx context.Context, contribution *models.Contribution) (*models.GroupOrder, error) {
	existing, err := s.repo.FindByContribution(ctx, contribution.ID)
	if err == nil {
		return existing, nil
	}
	if !errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, err
	}

	order := &models.GroupOrder{
		CampaignID:     contribution.CampaignID,
		ContributionID: contribution.ID,
		ParticipantID:  contribution.ParticipantID,
		Quantity:       contribution.Quantity,
		TotalCents:     contribution.AmountCents,
	}
	created, err := s.repo.Create(ctx, order)
	if err != nil {
		if dbpkg.IsUniqueViolation(err, contributionUniqueConstraint) {
			return s.repo.FindByContribution(ctx, contribution.ID)
		}
		return nil, err
	}
	return created, nil
}

func (s *service) ListByCampaign(ctx context.Context, campaignID uuid.UUID) ([]models.GroupOrder, error) {
	return s.repo.ListByCampaign(ctx, campaignID)
}
