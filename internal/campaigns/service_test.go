package campaigns

import (
	"context"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/gorm"

	"github.com/vyronamart/groupbuy-backend/pkg/db/models"
	"github.com/vyronamart/groupbuy-backend/pkg/enums"
	pkgerrors "github.com/vyronamart/groupbuy-backend/pkg/errors"
	"github.com/vyronamart/groupbuy-backend/pkg/pagination"
)

type stubCampaignsRepo struct {
	create              func(ctx context.Context, campaign *models.Campaign) (*models.Campaign, error)
	findByID            func(ctx context.Context, id uuid.UUID) (*models.Campaign, error)
	listOpen            func(ctx context.Context, params pagination.Params) ([]models.Campaign, *pagination.Cursor, error)
	listOpenEndedBefore func(ctx context.Context, cutoff time.Time, limit int) ([]models.Campaign, error)
}

func (s *stubCampaignsRepo) WithTx(tx *gorm.DB) Repository { return s }

func (s *stubCampaignsRepo) Create(ctx context.Context, campaign *models.Campaign) (*models.Campaign, error) {
	if s.create != nil {
		return s.create(ctx, campaign)
	}
	if campaign.ID == uuid.Nil {
		campaign.ID = uuid.New()
	}
	return campaign, nil
}

func (s *stubCampaignsRepo) FindByID(ctx context.Context, id uuid.UUID) (*models.Campaign, error) {
	if s.findByID != nil {
		return s.findByID(ctx, id)
	}
	return nil, gorm.ErrRecordNotFound
}

func (s *stubCampaignsRepo) FindByIDForUpdate(ctx context.Context, id uuid.UUID) (*models.Campaign, error) {
	return s.FindByID(ctx, id)
}

func (s *stubCampaignsRepo) ListOpen(ctx context.Context, params pagination.Params) ([]models.Campaign, *pagination.Cursor, error) {
	if s.listOpen != nil {
		return s.listOpen(ctx, params)
	}
	return nil, nil, nil
}

func (s *stubCampaignsRepo) ListOpenEndedBefore(ctx context.Context, cutoff time.Time, limit int) ([]models.Campaign, error) {
	if s.listOpenEndedBefore != nil {
		return s.listOpenEndedBefore(ctx, cutoff, limit)
	}
	return nil, nil
}

func (s *stubCampaignsRepo) ListOpenAtThreshold(ctx context.Context, limit int) ([]models.Campaign, error) {
	return nil, nil
}

func (s *stubCampaignsRepo) ListSettling(ctx context.Context, limit int) ([]models.Campaign, error) {
	return nil, nil
}

func (s *stubCampaignsRepo) CompareAndSwapStatus(ctx context.Context, id uuid.UUID, from, to enums.CampaignStatus) (bool, error) {
	return false, nil
}

func (s *stubCampaignsRepo) Update(ctx context.Context, id uuid.UUID, updates map[string]any) error {
	return nil
}

func validCreateInput() CreateCampaignInput {
	groupPrice := 800
	return CreateCampaignInput{
		Title:              "Bulk olive oil",
		CreatedBy:          uuid.New(),
		TargetQuantity:     10,
		MinParticipants:    3,
		MaxParticipants:    20,
		OriginalPriceCents: 1000,
		GroupPriceCents:    &groupPrice,
		StartDate:          time.Now(),
		EndDate:            time.Now().Add(72 * time.Hour),
	}
}

func TestCreateValidation(t *testing.T) {
	svc, err := NewService(&stubCampaignsRepo{}, nil)
	require.NoError(t, err)

	badPrice := 1200
	discount := decimal.NewFromInt(150)
	lowOverflow := decimal.NewFromFloat(0.5)

	cases := []struct {
		name   string
		mutate func(input *CreateCampaignInput)
	}{
		{"missing title", func(in *CreateCampaignInput) { in.Title = "  " }},
		{"missing creator", func(in *CreateCampaignInput) { in.CreatedBy = uuid.Nil }},
		{"zero target", func(in *CreateCampaignInput) { in.TargetQuantity = 0 }},
		{"zero min participants", func(in *CreateCampaignInput) { in.MinParticipants = 0 }},
		{"max below min", func(in *CreateCampaignInput) { in.MaxParticipants = 2 }},
		{"end before start", func(in *CreateCampaignInput) { in.EndDate = in.StartDate.Add(-time.Hour) }},
		{"no pricing", func(in *CreateCampaignInput) { in.GroupPriceCents = nil }},
		{"both pricing modes", func(in *CreateCampaignInput) { in.DiscountPercent = &discount }},
		{"group price above original", func(in *CreateCampaignInput) { in.GroupPriceCents = &badPrice }},
		{"discount out of range", func(in *CreateCampaignInput) {
			in.GroupPriceCents = nil
			in.DiscountPercent = &discount
		}},
		{"overflow below one", func(in *CreateCampaignInput) { in.OverflowFactor = &lowOverflow }},
		{"bad currency", func(in *CreateCampaignInput) { in.Currency = enums.Currency("XYZ") }},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			input := validCreateInput()
			tc.mutate(&input)

			_, err := svc.Create(context.Background(), input)
			require.Error(t, err)
			domainErr := pkgerrors.As(err)
			require.NotNil(t, domainErr)
			assert.Equal(t, pkgerrors.CodeValidation, domainErr.Code())
		})
	}
}

func TestCreateDefaults(t *testing.T) {
	var created *models.Campaign
	repo := &stubCampaignsRepo{
		create: func(ctx context.Context, campaign *models.Campaign) (*models.Campaign, error) {
			campaign.ID = uuid.New()
			created = campaign
			return campaign, nil
		},
	}
	svc, err := NewService(repo, nil)
	require.NoError(t, err)

	campaign, err := svc.Create(context.Background(), validCreateInput())
	require.NoError(t, err)
	require.NotNil(t, created)

	assert.Equal(t, enums.CampaignStatusOpen, campaign.Status)
	assert.Equal(t, enums.CurrencyUSD, campaign.Currency)
	assert.True(t, campaign.OverflowFactor.Equal(decimal.NewFromInt(1)))
	assert.Equal(t, 800, campaign.EffectiveUnitPriceCents())
}

func TestCreateDiscountPricing(t *testing.T) {
	svc, err := NewService(&stubCampaignsRepo{}, nil)
	require.NoError(t, err)

	discount := decimal.NewFromFloat(12.5)
	input := validCreateInput()
	input.GroupPriceCents = nil
	input.DiscountPercent = &discount

	campaign, err := svc.Create(context.Background(), input)
	require.NoError(t, err)
	// 1000 cents at 12.5% off rounds to 875.
	assert.Equal(t, 875, campaign.EffectiveUnitPriceCents())
}

func TestGetByIDNotFound(t *testing.T) {
	svc, err := NewService(&stubCampaignsRepo{}, nil)
	require.NoError(t, err)

	_, err = svc.GetByID(context.Background(), uuid.New())
	require.Error(t, err)
	domainErr := pkgerrors.As(err)
	require.NotNil(t, domainErr)
	assert.Equal(t, pkgerrors.CodeNotFound, domainErr.Code())
}

func TestListOpenEncodesCursor(t *testing.T) {
	next := pagination.Cursor{CreatedAt: time.Now().UTC(), ID: uuid.New()}
	repo := &stubCampaignsRepo{
		listOpen: func(ctx context.Context, params pagination.Params) ([]models.Campaign, *pagination.Cursor, error) {
			return []models.Campaign{{ID: uuid.New(), Title: "first"}}, &next, nil
		},
	}
	svc, err := NewService(repo, nil)
	require.NoError(t, err)

	list, err := svc.ListOpen(context.Background(), pagination.Params{Limit: 1})
	require.NoError(t, err)
	require.Len(t, list.Campaigns, 1)
	assert.Equal(t, pagination.EncodeCursor(next), list.NextCursor)
}
