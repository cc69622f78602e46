package controllers

import (
	"context"
	"net/http"
	"time"

	"github.com/google/uuid"

	"github.com/vyronamart/groupbuy-backend/api/responses"
	"github.com/vyronamart/groupbuy-backend/api/validators"
	"github.com/vyronamart/groupbuy-backend/internal/settlement"
	"github.com/vyronamart/groupbuy-backend/pkg/logger"
)

// SettlementService is the coordinator surface the settlement endpoints use.
type SettlementService interface {
	Status(ctx context.Context, campaignID uuid.UUID) (*settlement.Status, error)
	AwaitOutcome(ctx context.Context, campaignID uuid.UUID, maxWait time.Duration) (*settlement.Status, error)
	Cancel(ctx context.Context, campaignID uuid.UUID) error
	Retry(ctx context.Context, campaignID uuid.UUID) error
}

// SettlementStatus reports the settlement state, optionally long-polling until
// the campaign reaches a terminal status.
func SettlementStatus(svc SettlementService, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		campaignID, err := parseCampaignID(r)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		waitSeconds, err := validators.ParseQueryInt(r, "wait", 0, 0, 300)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		var status *settlement.Status
		if waitSeconds > 0 {
			status, err = svc.AwaitOutcome(r.Context(), campaignID, time.Duration(waitSeconds)*time.Second)
		} else {
			status, err = svc.Status(r.Context(), campaignID)
		}
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccess(w, status)
	}
}

// CampaignCancel aborts the campaign and refunds captured contributions.
func CampaignCancel(svc SettlementService, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		campaignID, err := parseCampaignID(r)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		if err := svc.Cancel(r.Context(), campaignID); err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		status, err := svc.Status(r.Context(), campaignID)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccess(w, status)
	}
}

// SettlementRetry re-runs settlement for a quarantined campaign.
func SettlementRetry(svc SettlementService, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		campaignID, err := parseCampaignID(r)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		if err := svc.Retry(r.Context(), campaignID); err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		status, err := svc.Status(r.Context(), campaignID)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccess(w, status)
	}
}
