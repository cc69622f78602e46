package campaigns

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"gorm.io/gorm"

	"github.com/vyronamart/groupbuy-backend/pkg/db/models"
	"github.com/vyronamart/groupbuy-backend/pkg/enums"
	pkgerrors "github.com/vyronamart/groupbuy-backend/pkg/errors"
	"github.com/vyronamart/groupbuy-backend/pkg/pagination"
)

// Service defines campaign-level operations.
type Service interface {
	Create(ctx context.Context, input CreateCampaignInput) (*models.Campaign, error)
	GetByID(ctx context.Context, id uuid.UUID) (*models.Campaign, error)
	ListOpen(ctx context.Context, params pagination.Params) (*CampaignList, error)
}

type service struct {
	repo Repository
	now  func() time.Time
}

// NewService builds the campaign service.
func NewService(repo Repository, now func() time.Time) (Service, error) {
	if repo == nil {
		return nil, fmt.Errorf("campaigns repository required")
	}
	if now == nil {
		now = time.Now
	}
	return &service{repo: repo, now: now}, nil
}

var (
	oneHundred      = decimal.NewFromInt(100)
	minimumOverflow = decimal.NewFromInt(1)
)

func (s *service) Create(ctx context.Context, input CreateCampaignInput) (*models.Campaign, error) {
	if err := validateDefinition(input); err != nil {
		return nil, err
	}

	overflow := minimumOverflow
	if input.OverflowFactor != nil {
		overflow = *input.OverflowFactor
	}
	currency := input.Currency
	if currency == "" {
		currency = enums.CurrencyUSD
	}

	campaign := &models.Campaign{
		Title:              strings.TrimSpace(input.Title),
		CreatedBy:          input.CreatedBy,
		TargetQuantity:     input.TargetQuantity,
		MinParticipants:    input.MinParticipants,
		MaxParticipants:    input.MaxParticipants,
		OriginalPriceCents: input.OriginalPriceCents,
		GroupPriceCents:    input.GroupPriceCents,
		DiscountPercent:    input.DiscountPercent,
		Currency:           currency,
		OverflowFactor:     overflow,
		Status:             enums.CampaignStatusOpen,
		StartDate:          input.StartDate.UTC(),
		EndDate:            input.EndDate.UTC(),
	}
	return s.repo.Create(ctx, campaign)
}

func (s *service) GetByID(ctx context.Context, id uuid.UUID) (*models.Campaign, error) {
	if id == uuid.Nil {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "campaign id required")
	}
	campaign, err := s.repo.FindByID(ctx, id)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, pkgerrors.New(pkgerrors.CodeNotFound, "campaign not found")
		}
		return nil, pkgerrors.Wrap(pkgerrors.CodeInternal, err, "loading campaign")
	}
	return campaign, nil
}

func (s *service) ListOpen(ctx context.Context, params pagination.Params) (*CampaignList, error) {
	campaigns, next, err := s.repo.ListOpen(ctx, params)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeInternal, err, "listing campaigns")
	}

	list := &CampaignList{Campaigns: make([]CampaignSummary, 0, len(campaigns))}
	for i := range campaigns {
		c := &campaigns[i]
		list.Campaigns = append(list.Campaigns, CampaignSummary{
			ID:                 c.ID,
			Title:              c.Title,
			TargetQuantity:     c.TargetQuantity,
			MinParticipants:    c.MinParticipants,
			MaxParticipants:    c.MaxParticipants,
			OriginalPriceCents: c.OriginalPriceCents,
			UnitPriceCents:     c.EffectiveUnitPriceCents(),
			Currency:           c.Currency,
			Status:             c.Status,
			EndDate:            c.EndDate,
			CreatedAt:          c.CreatedAt,
		})
	}
	if next != nil {
		list.NextCursor = pagination.EncodeCursor(*next)
	}
	return list, nil
}

func validateDefinition(input CreateCampaignInput) error {
	if strings.TrimSpace(input.Title) == "" {
		return pkgerrors.New(pkgerrors.CodeValidation, "campaign title required")
	}
	if input.CreatedBy == uuid.Nil {
		return pkgerrors.New(pkgerrors.CodeValidation, "campaign creator required")
	}
	if input.TargetQuantity <= 0 {
		return pkgerrors.New(pkgerrors.CodeValidation, "target quantity must be positive")
	}
	if input.MinParticipants <= 0 {
		return pkgerrors.New(pkgerrors.CodeValidation, "minimum participants must be positive")
	}
	if input.MaxParticipants < input.MinParticipants {
		return pkgerrors.New(pkgerrors.CodeValidation, "maximum participants below minimum")
	}
	if input.OriginalPriceCents <= 0 {
		return pkgerrors.New(pkgerrors.CodeValidation, "original price must be positive")
	}
	if !input.EndDate.After(input.StartDate) {
		return pkgerrors.New(pkgerrors.CodeValidation, "end date must be after start date")
	}
	if input.Currency != "" && !input.Currency.IsValid() {
		return pkgerrors.New(pkgerrors.CodeValidation, "unsupported currency")
	}
	if input.OverflowFactor != nil && input.OverflowFactor.LessThan(minimumOverflow) {
		return pkgerrors.New(pkgerrors.CodeValidation, "overflow factor must be at least 1")
	}

	hasGroupPrice := input.GroupPriceCents != nil
	hasDiscount := input.DiscountPercent != nil
	if hasGroupPrice == hasDiscount {
		return pkgerrors.New(pkgerrors.CodeValidation, "exactly one of group price or discount percent required")
	}
	if hasGroupPrice {
		if *input.GroupPriceCents <= 0 || *input.GroupPriceCents >= input.OriginalPriceCents {
			return pkgerrors.New(pkgerrors.CodeValidation, "group price must be positive and below original price")
		}
	}
	if hasDiscount {
		if !input.DiscountPercent.IsPositive() || !input.DiscountPercent.LessThan(oneHundred) {
			return pkgerrors.New(pkgerrors.CodeValidation, "discount percent must be between 0 and 100")
		}
	}
	return nil
}
