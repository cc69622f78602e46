package controllers

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/google/uuid"

	"github.com/vyronamart/groupbuy-backend/internal/settlement"
	"github.com/vyronamart/groupbuy-backend/pkg/enums"
	pkgerrors "github.com/vyronamart/groupbuy-backend/pkg/errors"
)

type testSettlementService struct {
	statusFn func(ctx context.Context, campaignID uuid.UUID) (*settlement.Status, error)
	awaitFn  func(ctx context.Context, campaignID uuid.UUID, maxWait time.Duration) (*settlement.Status, error)
	cancelFn func(ctx context.Context, campaignID uuid.UUID) error
	retryFn  func(ctx context.Context, campaignID uuid.UUID) error
}

func (s *testSettlementService) Status(ctx context.Context, campaignID uuid.UUID) (*settlement.Status, error) {
	if s.statusFn != nil {
		return s.statusFn(ctx, campaignID)
	}
	return &settlement.Status{CampaignID: campaignID, CampaignStatus: enums.CampaignStatusOpen}, nil
}

func (s *testSettlementService) AwaitOutcome(ctx context.Context, campaignID uuid.UUID, maxWait time.Duration) (*settlement.Status, error) {
	if s.awaitFn != nil {
		return s.awaitFn(ctx, campaignID, maxWait)
	}
	return &settlement.Status{CampaignID: campaignID, CampaignStatus: enums.CampaignStatusOpen}, nil
}

func (s *testSettlementService) Cancel(ctx context.Context, campaignID uuid.UUID) error {
	if s.cancelFn != nil {
		return s.cancelFn(ctx, campaignID)
	}
	return nil
}

func (s *testSettlementService) Retry(ctx context.Context, campaignID uuid.UUID) error {
	if s.retryFn != nil {
		return s.retryFn(ctx, campaignID)
	}
	return nil
}

func TestSettlementStatusReturnsState(t *testing.T) {
	campaignID := uuid.New()
	svc := &testSettlementService{
		statusFn: func(ctx context.Context, id uuid.UUID) (*settlement.Status, error) {
			return &settlement.Status{CampaignID: id, CampaignStatus: enums.CampaignStatusSettled}, nil
		},
	}

	req := httptest.NewRequest(http.MethodGet, "/api/v1/campaigns/"+campaignID.String()+"/settlement", nil)
	req = addRouteParam(req, "campaignId", campaignID.String())
	resp := httptest.NewRecorder()
	SettlementStatus(svc, testLogger())(resp, req)

	if resp.Code != http.StatusOK {
		t.Fatalf("unexpected status %d", resp.Code)
	}
	var envelope struct {
		Data settlement.Status `json:"data"`
	}
	if err := json.Unmarshal(resp.Body.Bytes(), &envelope); err != nil {
		t.Fatalf("unmarshal response: %v", err)
	}
	if envelope.Data.CampaignStatus != enums.CampaignStatusSettled {
		t.Fatalf("expected settled, got %s", envelope.Data.CampaignStatus)
	}
}

func TestSettlementStatusWaitUsesAwait(t *testing.T) {
	campaignID := uuid.New()
	var gotWait time.Duration
	svc := &testSettlementService{
		awaitFn: func(ctx context.Context, id uuid.UUID, maxWait time.Duration) (*settlement.Status, error) {
			gotWait = maxWait
			return &settlement.Status{CampaignID: id, CampaignStatus: enums.CampaignStatusSettling}, nil
		},
	}

	req := httptest.NewRequest(http.MethodGet, "/api/v1/campaigns/"+campaignID.String()+"/settlement?wait=30", nil)
	req = addRouteParam(req, "campaignId", campaignID.String())
	resp := httptest.NewRecorder()
	SettlementStatus(svc, testLogger())(resp, req)

	if resp.Code != http.StatusOK {
		t.Fatalf("unexpected status %d", resp.Code)
	}
	if gotWait != 30*time.Second {
		t.Fatalf("expected 30s wait, got %s", gotWait)
	}
}

func TestCampaignCancelReturnsStatus(t *testing.T) {
	campaignID := uuid.New()
	cancelled := false
	svc := &testSettlementService{
		cancelFn: func(ctx context.Context, id uuid.UUID) error {
			cancelled = true
			return nil
		},
		statusFn: func(ctx context.Context, id uuid.UUID) (*settlement.Status, error) {
			return &settlement.Status{CampaignID: id, CampaignStatus: enums.CampaignStatusCancelled}, nil
		},
	}

	req := httptest.NewRequest(http.MethodPost, "/api/v1/campaigns/"+campaignID.String()+"/cancel", nil)
	req = addRouteParam(req, "campaignId", campaignID.String())
	resp := httptest.NewRecorder()
	CampaignCancel(svc, testLogger())(resp, req)

	if resp.Code != http.StatusOK {
		t.Fatalf("unexpected status %d", resp.Code)
	}
	if !cancelled {
		t.Fatal("expected cancel called")
	}
}

func TestCampaignCancelConflict(t *testing.T) {
	campaignID := uuid.New()
	svc := &testSettlementService{
		cancelFn: func(ctx context.Context, id uuid.UUID) error {
			return pkgerrors.New(pkgerrors.CodeStateConflict, "campaign already has a settlement record")
		},
	}

	req := httptest.NewRequest(http.MethodPost, "/api/v1/campaigns/"+campaignID.String()+"/cancel", nil)
	req = addRouteParam(req, "campaignId", campaignID.String())
	resp := httptest.NewRecorder()
	CampaignCancel(svc, testLogger())(resp, req)

	if resp.Code != http.StatusUnprocessableEntity {
		t.Fatalf("expected 422 got %d", resp.Code)
	}
}

func TestSettlementRetryQuarantineError(t *testing.T) {
	campaignID := uuid.New()
	svc := &testSettlementService{
		retryFn: func(ctx context.Context, id uuid.UUID) error {
			return pkgerrors.New(pkgerrors.CodeSettlement, "settlement requires operator attention")
		},
	}

	req := httptest.NewRequest(http.MethodPost, "/api/v1/campaigns/"+campaignID.String()+"/settlement/retry", nil)
	req = addRouteParam(req, "campaignId", campaignID.String())
	resp := httptest.NewRecorder()
	SettlementRetry(svc, testLogger())(resp, req)

	if resp.Code != http.StatusServiceUnavailable {
		t.Fatalf("expected 503 got %d", resp.Code)
	}
}
