package controllers

import (
	"net/http"
	"strings"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/vyronamart/groupbuy-backend/api/middleware"
	"github.com/vyronamart/groupbuy-backend/api/responses"
	"github.com/vyronamart/groupbuy-backend/api/validators"
	"github.com/vyronamart/groupbuy-backend/internal/campaigns"
	"github.com/vyronamart/groupbuy-backend/internal/ledger"
	"github.com/vyronamart/groupbuy-backend/internal/threshold"
	"github.com/vyronamart/groupbuy-backend/pkg/db/models"
	"github.com/vyronamart/groupbuy-backend/pkg/enums"
	pkgerrors "github.com/vyronamart/groupbuy-backend/pkg/errors"
	"github.com/vyronamart/groupbuy-backend/pkg/logger"
	"github.com/vyronamart/groupbuy-backend/pkg/pagination"
)

type createCampaignRequest struct {
	Title              string           `json:"title" validate:"required"`
	TargetQuantity     int              `json:"target_quantity" validate:"required,gt=0"`
	MinParticipants    int              `json:"min_participants" validate:"required,gt=0"`
	MaxParticipants    int              `json:"max_participants" validate:"required,gt=0"`
	OriginalPriceCents int              `json:"original_price_cents" validate:"required,gt=0"`
	GroupPriceCents    *int             `json:"group_price_cents,omitempty"`
	DiscountPercent    *decimal.Decimal `json:"discount_percent,omitempty"`
	Currency           string           `json:"currency,omitempty"`
	OverflowFactor     *decimal.Decimal `json:"overflow_factor,omitempty"`
	StartDate          time.Time        `json:"start_date" validate:"required"`
	EndDate            time.Time        `json:"end_date" validate:"required"`
}

type campaignResponse struct {
	ID                 uuid.UUID            `json:"id"`
	Title              string               `json:"title"`
	CreatedBy          uuid.UUID            `json:"created_by"`
	TargetQuantity     int                  `json:"target_quantity"`
	MinParticipants    int                  `json:"min_participants"`
	MaxParticipants    int                  `json:"max_participants"`
	OriginalPriceCents int                  `json:"original_price_cents"`
	GroupPriceCents    *int                 `json:"group_price_cents,omitempty"`
	DiscountPercent    *decimal.Decimal     `json:"discount_percent,omitempty"`
	UnitPriceCents     int                  `json:"unit_price_cents"`
	Currency           enums.Currency       `json:"currency"`
	OverflowFactor     decimal.Decimal      `json:"overflow_factor"`
	CapacityUnits      int                  `json:"capacity_units"`
	Status             enums.CampaignStatus `json:"status"`
	StartDate          time.Time            `json:"start_date"`
	EndDate            time.Time            `json:"end_date"`
	CompletedAt        *time.Time           `json:"completed_at,omitempty"`
	CreatedAt          time.Time            `json:"created_at"`
}

type campaignDetailResponse struct {
	campaignResponse
	CapturedQuantity     int `json:"captured_quantity"`
	CapturedParticipants int `json:"captured_participants"`
	CapturedAmountCents  int `json:"captured_amount_cents"`
}

func toCampaignResponse(c *models.Campaign) campaignResponse {
	return campaignResponse{
		ID:                 c.ID,
		Title:              c.Title,
		CreatedBy:          c.CreatedBy,
		TargetQuantity:     c.TargetQuantity,
		MinParticipants:    c.MinParticipants,
		MaxParticipants:    c.MaxParticipants,
		OriginalPriceCents: c.OriginalPriceCents,
		GroupPriceCents:    c.GroupPriceCents,
		DiscountPercent:    c.DiscountPercent,
		UnitPriceCents:     c.EffectiveUnitPriceCents(),
		Currency:           c.Currency,
		OverflowFactor:     c.OverflowFactor,
		CapacityUnits:      c.CapacityUnits(),
		Status:             c.Status,
		StartDate:          c.StartDate,
		EndDate:            c.EndDate,
		CompletedAt:        c.CompletedAt,
		CreatedAt:          c.CreatedAt,
	}
}

// CampaignCreate opens a new campaign owned by the authenticated participant.
func CampaignCreate(svc campaigns.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		creatorID, err := participantFromRequest(r)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		var req createCampaignRequest
		if err := validators.DecodeJSONBody(r, &req); err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		campaign, err := svc.Create(r.Context(), campaigns.CreateCampaignInput{
			Title:              req.Title,
			CreatedBy:          creatorID,
			TargetQuantity:     req.TargetQuantity,
			MinParticipants:    req.MinParticipants,
			MaxParticipants:    req.MaxParticipants,
			OriginalPriceCents: req.OriginalPriceCents,
			GroupPriceCents:    req.GroupPriceCents,
			DiscountPercent:    req.DiscountPercent,
			Currency:           enums.Currency(strings.ToUpper(strings.TrimSpace(req.Currency))),
			OverflowFactor:     req.OverflowFactor,
			StartDate:          req.StartDate,
			EndDate:            req.EndDate,
		})
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		responses.WriteSuccessStatus(w, http.StatusCreated, toCampaignResponse(campaign))
	}
}

// CampaignList returns the open campaigns page by cursor.
func CampaignList(svc campaigns.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		limit, err := validators.ParseQueryInt(r, "limit", pagination.DefaultLimit, 1, pagination.MaxLimit)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		cursor := strings.TrimSpace(r.URL.Query().Get("cursor"))

		list, err := svc.ListOpen(r.Context(), pagination.Params{Limit: limit, Cursor: cursor})
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccess(w, list)
	}
}

// CampaignDetail returns the campaign plus its captured ledger totals.
func CampaignDetail(svc campaigns.Service, ledgerSvc ledger.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		campaignID, err := parseCampaignID(r)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		campaign, err := svc.GetByID(r.Context(), campaignID)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		contributions, err := ledgerSvc.List(r.Context(), campaignID)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		snap := threshold.Summarize(contributions)
		responses.WriteSuccess(w, campaignDetailResponse{
			campaignResponse:     toCampaignResponse(campaign),
			CapturedQuantity:     snap.CapturedQuantity,
			CapturedParticipants: snap.CapturedParticipants,
			CapturedAmountCents:  snap.CapturedAmountCents,
		})
	}
}

func parseCampaignID(r *http.Request) (uuid.UUID, error) {
	raw := strings.TrimSpace(chi.URLParam(r, "campaignId"))
	if raw == "" {
		return uuid.Nil, pkgerrors.New(pkgerrors.CodeValidation, "campaign id is required")
	}
	id, err := uuid.Parse(raw)
	if err != nil {
		return uuid.Nil, pkgerrors.Wrap(pkgerrors.CodeValidation, err, "invalid campaign id")
	}
	return id, nil
}

func participantFromRequest(r *http.Request) (uuid.UUID, error) {
	raw := middleware.ParticipantIDFromContext(r.Context())
	if raw == "" {
		return uuid.Nil, pkgerrors.New(pkgerrors.CodeUnauthorized, "participant context missing")
	}
	id, err := uuid.Parse(raw)
	if err != nil {
		return uuid.Nil, pkgerrors.Wrap(pkgerrors.CodeUnauthorized, err, "invalid participant context")
	}
	return id, nil
}
