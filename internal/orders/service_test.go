package orders

import (
	"context"
	"errors"
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/gorm"

	"github.com/vyronamart/groupbuy-backend/pkg/db/models"
)

type stubOrdersRepo struct {
	orders map[uuid.UUID]*models.GroupOrder
	create func(ctx context.Context, order *models.GroupOrder) (*models.GroupOrder, error)
}

func newStubOrdersRepo() *stubOrdersRepo {
	return &stubOrdersRepo{orders: make(map[uuid.UUID]*models.GroupOrder)}
}

func (s *stubOrdersRepo) WithTx(tx *gorm.DB) Repository { return s }

func (s *stubOrdersRepo) Create(ctx context.Context, order *models.GroupOrder) (*models.GroupOrder, error) {
	if s.create != nil {
		return s.create(ctx, order)
	}
	if order.ID == uuid.Nil {
		order.ID = uuid.New()
	}
	s.orders[order.ContributionID] = order
	return order, nil
}

func (s *stubOrdersRepo) FindByContribution(ctx context.Context, contributionID uuid.UUID) (*models.GroupOrder, error) {
	order, ok := s.orders[contributionID]
	if !ok {
		return nil, gorm.ErrRecordNotFound
	}
	return order, nil
}

func (s *stubOrdersRepo) ListByCampaign(ctx context.Context, campaignID uuid.UUID) ([]models.GroupOrder, error) {
	var out []models.GroupOrder
	for _, order := range s.orders {
		if order.CampaignID == campaignID {
			out = append(out, *order)
		}
	}
	return out, nil
}

func capturedContribution() *models.Contribution {
	return &models.Contribution{
		ID:            uuid.New(),
		CampaignID:    uuid.New(),
		ParticipantID: uuid.New(),
		Quantity:      3,
		AmountCents:   2400,
	}
}

func TestCreateForContribution(t *testing.T) {
	repo := newStubOrdersRepo()
	svc, err := NewService(repo)
	require.NoError(t, err)

	contribution := capturedContribution()
	order, err := svc.CreateForContribution(context.Background(), contribution)
	require.NoError(t, err)

	assert.Equal(t, contribution.CampaignID, order.CampaignID)
	assert.Equal(t, contribution.ID, order.ContributionID)
	assert.Equal(t, 3, order.Quantity)
	assert.Equal(t, 2400, order.TotalCents)
}

func TestCreateForContributionIdempotent(t *testing.T) {
	repo := newStubOrdersRepo()
	svc, err := NewService(repo)
	require.NoError(t, err)

	contribution := capturedContribution()
	first, err := svc.CreateForContribution(context.Background(), contribution)
	require.NoError(t, err)

	second, err := svc.CreateForContribution(context.Background(), contribution)
	require.NoError(t, err)
	assert.Equal(t, first.ID, second.ID)
}

func TestCreateForContributionUniqueRace(t *testing.T) {
	repo := newStubOrdersRepo()
	svc, err := NewService(repo)
	require.NoError(t, err)

	contribution := capturedContribution()
	existing := &models.GroupOrder{ID: uuid.New(), ContributionID: contribution.ID, CampaignID: contribution.CampaignID}

	// Simulate a concurrent insert winning between the lookup and the create.
	repo.create = func(ctx context.Context, order *models.GroupOrder) (*models.GroupOrder, error) {
		repo.orders[contribution.ID] = existing
		return nil, errors.New(`duplicate key value violates unique constraint "group_orders_contribution_id_key"`)
	}

	order, err := svc.CreateForContribution(context.Background(), contribution)
	require.NoError(t, err)
	assert.Equal(t, existing.ID, order.ID)
}
