package controllers

import (
	"net/http"
	"strings"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"

	"github.com/vyronamart/groupbuy-backend/api/responses"
	"github.com/vyronamart/groupbuy-backend/api/validators"
	"github.com/vyronamart/groupbuy-backend/internal/campaigns"
	"github.com/vyronamart/groupbuy-backend/internal/ledger"
	"github.com/vyronamart/groupbuy-backend/internal/payments"
	"github.com/vyronamart/groupbuy-backend/pkg/db/models"
	"github.com/vyronamart/groupbuy-backend/pkg/enums"
	pkgerrors "github.com/vyronamart/groupbuy-backend/pkg/errors"
	"github.com/vyronamart/groupbuy-backend/pkg/logger"
)

type joinCampaignRequest struct {
	Quantity        int    `json:"quantity" validate:"required,gt=0"`
	PaymentSourceID string `json:"payment_source_id" validate:"required"`
}

type captureContributionRequest struct {
	PaymentReference string `json:"payment_reference" validate:"required"`
}

type contributionResponse struct {
	ID               uuid.UUID                `json:"id"`
	CampaignID       uuid.UUID                `json:"campaign_id"`
	ParticipantID    uuid.UUID                `json:"participant_id"`
	SequenceNumber   int64                    `json:"sequence_number"`
	Quantity         int                      `json:"quantity"`
	AmountCents      int                      `json:"amount_cents"`
	Status           enums.ContributionStatus `json:"status"`
	PaymentReference *string                  `json:"payment_reference,omitempty"`
	FailureReason    *string                  `json:"failure_reason,omitempty"`
	JoinedAt         time.Time                `json:"joined_at"`
	ConfirmedAt      *time.Time               `json:"confirmed_at,omitempty"`
}

func toContributionResponse(c *models.Contribution) contributionResponse {
	return contributionResponse{
		ID:               c.ID,
		CampaignID:       c.CampaignID,
		ParticipantID:    c.ParticipantID,
		SequenceNumber:   c.SequenceNumber,
		Quantity:         c.Quantity,
		AmountCents:      c.AmountCents,
		Status:           c.Status,
		PaymentReference: c.PaymentReference,
		FailureReason:    c.FailureReason,
		JoinedAt:         c.JoinedAt,
		ConfirmedAt:      c.ConfirmedAt,
	}
}

// ContributionJoin admits the participant into the campaign and charges the
// contribution amount. A failed charge releases the held capacity by marking
// the contribution failed.
func ContributionJoin(campaignSvc campaigns.Service, ledgerSvc ledger.Service, paymentSvc payments.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		campaignID, err := parseCampaignID(r)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		participantID, err := participantFromRequest(r)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		var req joinCampaignRequest
		if err := validators.DecodeJSONBody(r, &req); err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		campaign, err := campaignSvc.GetByID(r.Context(), campaignID)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		contribution, err := ledgerSvc.Append(r.Context(), campaignID, participantID, req.Quantity)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		paymentID, err := paymentSvc.Charge(r.Context(), campaign, contribution, req.PaymentSourceID)
		if err != nil {
			if _, failErr := ledgerSvc.MarkFailed(r.Context(), contribution.ID, err.Error()); failErr != nil {
				logCtx := logg.WithCampaignID(r.Context(), campaignID.String())
				logg.Error(logCtx, "marking contribution failed after charge error", failErr)
			}
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		captured, err := ledgerSvc.MarkCaptured(r.Context(), contribution.ID, paymentID)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		responses.WriteSuccessStatus(w, http.StatusCreated, toContributionResponse(captured))
	}
}

// ContributionList returns the campaign's full ledger in sequence order.
func ContributionList(ledgerSvc ledger.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		campaignID, err := parseCampaignID(r)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		contributions, err := ledgerSvc.List(r.Context(), campaignID)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		out := make([]contributionResponse, 0, len(contributions))
		for i := range contributions {
			out = append(out, toContributionResponse(&contributions[i]))
		}
		responses.WriteSuccess(w, map[string]any{"contributions": out})
	}
}

// ContributionCapture confirms payment for a contribution whose charge
// completed out of band.
func ContributionCapture(ledgerSvc ledger.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		contributionID, err := parseContributionID(r)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		var req captureContributionRequest
		if err := validators.DecodeJSONBody(r, &req); err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		captured, err := ledgerSvc.MarkCaptured(r.Context(), contributionID, req.PaymentReference)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccess(w, toContributionResponse(captured))
	}
}

func parseContributionID(r *http.Request) (uuid.UUID, error) {
	raw := strings.TrimSpace(chi.URLParam(r, "contributionId"))
	if raw == "" {
		return uuid.Nil, pkgerrors.New(pkgerrors.CodeValidation, "contribution id is required")
	}
	id, err := uuid.Parse(raw)
	if err != nil {
		return uuid.Nil, pkgerrors.Wrap(pkgerrors.CodeValidation, err, "invalid contribution id")
	}
	return id, nil
}
