package controllers

import (
	"context"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/vyronamart/groupbuy-backend/api/middleware"
	"github.com/vyronamart/groupbuy-backend/internal/campaigns"
	"github.com/vyronamart/groupbuy-backend/pkg/db/models"
	"github.com/vyronamart/groupbuy-backend/pkg/enums"
	"github.com/vyronamart/groupbuy-backend/pkg/logger"
	"github.com/vyronamart/groupbuy-backend/pkg/pagination"
)

type testCampaignsService struct {
	createFn func(ctx context.Context, input campaigns.CreateCampaignInput) (*models.Campaign, error)
	getFn    func(ctx context.Context, id uuid.UUID) (*models.Campaign, error)
	listFn   func(ctx context.Context, params pagination.Params) (*campaigns.CampaignList, error)
}

func (s *testCampaignsService) Create(ctx context.Context, input campaigns.CreateCampaignInput) (*models.Campaign, error) {
	if s.createFn != nil {
		return s.createFn(ctx, input)
	}
	return nil, nil
}

func (s *testCampaignsService) GetByID(ctx context.Context, id uuid.UUID) (*models.Campaign, error) {
	if s.getFn != nil {
		return s.getFn(ctx, id)
	}
	return nil, nil
}

func (s *testCampaignsService) ListOpen(ctx context.Context, params pagination.Params) (*campaigns.CampaignList, error) {
	if s.listFn != nil {
		return s.listFn(ctx, params)
	}
	return &campaigns.CampaignList{}, nil
}

func testLogger() *logger.Logger {
	return logger.New(logger.Options{ServiceName: "test", Output: io.Discard})
}

func addRouteParam(req *http.Request, key, value string) *http.Request {
	routeCtx := chi.NewRouteContext()
	routeCtx.URLParams.Add(key, value)
	return req.WithContext(context.WithValue(req.Context(), chi.RouteCtxKey, routeCtx))
}

func testCampaign(id uuid.UUID) *models.Campaign {
	groupPrice := 800
	return &models.Campaign{
		ID:                 id,
		Title:              "Bulk coffee beans",
		CreatedBy:          uuid.New(),
		TargetQuantity:     10,
		MinParticipants:    2,
		MaxParticipants:    20,
		OriginalPriceCents: 1000,
		GroupPriceCents:    &groupPrice,
		Currency:           enums.CurrencyUSD,
		OverflowFactor:     decimal.NewFromInt(1),
		Status:             enums.CampaignStatusOpen,
		StartDate:          time.Now().Add(-time.Hour),
		EndDate:            time.Now().Add(48 * time.Hour),
	}
}

func TestCampaignCreateSuccess(t *testing.T) {
	creatorID := uuid.New()
	created := testCampaign(uuid.New())
	var gotInput campaigns.CreateCampaignInput
	svc := &testCampaignsService{
		createFn: func(ctx context.Context, input campaigns.CreateCampaignInput) (*models.Campaign, error) {
			gotInput = input
			return created, nil
		},
	}

	body := `{
		"title": "Bulk coffee beans",
		"target_quantity": 10,
		"min_participants": 2,
		"max_participants": 20,
		"original_price_cents": 1000,
		"group_price_cents": 800,
		"currency": "usd",
		"start_date": "2026-08-01T00:00:00Z",
		"end_date": "2026-09-01T00:00:00Z"
	}`
	req := httptest.NewRequest(http.MethodPost, "/api/v1/campaigns", strings.NewReader(body))
	req = req.WithContext(middleware.WithParticipantID(req.Context(), creatorID.String()))
	resp := httptest.NewRecorder()

	CampaignCreate(svc, testLogger())(resp, req)

	if resp.Code != http.StatusCreated {
		t.Fatalf("unexpected status %d: %s", resp.Code, resp.Body.String())
	}
	if gotInput.CreatedBy != creatorID {
		t.Fatalf("expected creator %s, got %s", creatorID, gotInput.CreatedBy)
	}
	if gotInput.Currency != enums.CurrencyUSD {
		t.Fatalf("expected normalized currency USD, got %s", gotInput.Currency)
	}

	var envelope struct {
		Data campaignResponse `json:"data"`
	}
	if err := json.Unmarshal(resp.Body.Bytes(), &envelope); err != nil {
		t.Fatalf("unmarshal response: %v", err)
	}
	if envelope.Data.ID != created.ID {
		t.Fatalf("expected campaign id %s, got %s", created.ID, envelope.Data.ID)
	}
	if envelope.Data.UnitPriceCents != 800 {
		t.Fatalf("expected unit price 800, got %d", envelope.Data.UnitPriceCents)
	}
}

func TestCampaignCreateMissingParticipant(t *testing.T) {
	req := httptest.NewRequest(http.MethodPost, "/api/v1/campaigns", strings.NewReader(`{}`))
	resp := httptest.NewRecorder()
	CampaignCreate(&testCampaignsService{}, testLogger())(resp, req)
	if resp.Code != http.StatusUnauthorized {
		t.Fatalf("expected 401 got %d", resp.Code)
	}
}

func TestCampaignCreateRejectsUnknownFields(t *testing.T) {
	req := httptest.NewRequest(http.MethodPost, "/api/v1/campaigns", strings.NewReader(`{"bogus": true}`))
	req = req.WithContext(middleware.WithParticipantID(req.Context(), uuid.NewString()))
	resp := httptest.NewRecorder()
	CampaignCreate(&testCampaignsService{}, testLogger())(resp, req)
	if resp.Code != http.StatusBadRequest {
		t.Fatalf("expected 400 got %d", resp.Code)
	}
}

func TestCampaignListPassesPagination(t *testing.T) {
	var gotParams pagination.Params
	svc := &testCampaignsService{
		listFn: func(ctx context.Context, params pagination.Params) (*campaigns.CampaignList, error) {
			gotParams = params
			return &campaigns.CampaignList{}, nil
		},
	}

	req := httptest.NewRequest(http.MethodGet, "/api/v1/campaigns?limit=5&cursor=abc", nil)
	resp := httptest.NewRecorder()
	CampaignList(svc, testLogger())(resp, req)

	if resp.Code != http.StatusOK {
		t.Fatalf("unexpected status %d", resp.Code)
	}
	if gotParams.Limit != 5 || gotParams.Cursor != "abc" {
		t.Fatalf("unexpected params %+v", gotParams)
	}
}

func TestCampaignListRejectsBadLimit(t *testing.T) {
	req := httptest.NewRequest(http.MethodGet, "/api/v1/campaigns?limit=9999", nil)
	resp := httptest.NewRecorder()
	CampaignList(&testCampaignsService{}, testLogger())(resp, req)
	if resp.Code != http.StatusBadRequest {
		t.Fatalf("expected 400 got %d", resp.Code)
	}
}

func TestCampaignDetailIncludesLedgerTotals(t *testing.T) {
	campaignID := uuid.New()
	campaign := testCampaign(campaignID)
	svc := &testCampaignsService{
		getFn: func(ctx context.Context, id uuid.UUID) (*models.Campaign, error) {
			return campaign, nil
		},
	}
	participant := uuid.New()
	ledgerSvc := &testLedgerService{
		listFn: func(ctx context.Context, id uuid.UUID) ([]models.Contribution, error) {
			return []models.Contribution{
				{CampaignID: campaignID, ParticipantID: participant, Quantity: 4, AmountCents: 3200, Status: enums.ContributionStatusCaptured},
				{CampaignID: campaignID, ParticipantID: uuid.New(), Quantity: 2, AmountCents: 1600, Status: enums.ContributionStatusPending},
			}, nil
		},
	}

	req := httptest.NewRequest(http.MethodGet, "/api/v1/campaigns/"+campaignID.String(), nil)
	req = addRouteParam(req, "campaignId", campaignID.String())
	resp := httptest.NewRecorder()
	CampaignDetail(svc, ledgerSvc, testLogger())(resp, req)

	if resp.Code != http.StatusOK {
		t.Fatalf("unexpected status %d: %s", resp.Code, resp.Body.String())
	}
	var envelope struct {
		Data campaignDetailResponse `json:"data"`
	}
	if err := json.Unmarshal(resp.Body.Bytes(), &envelope); err != nil {
		t.Fatalf("unmarshal response: %v", err)
	}
	if envelope.Data.CapturedQuantity != 4 {
		t.Fatalf("expected captured quantity 4, got %d", envelope.Data.CapturedQuantity)
	}
	if envelope.Data.CapturedParticipants != 1 {
		t.Fatalf("expected 1 captured participant, got %d", envelope.Data.CapturedParticipants)
	}
}

func TestCampaignDetailInvalidID(t *testing.T) {
	req := httptest.NewRequest(http.MethodGet, "/api/v1/campaigns/bogus", nil)
	req = addRouteParam(req, "campaignId", "bogus")
	resp := httptest.NewRecorder()
	CampaignDetail(&testCampaignsService{}, &testLedgerService{}, testLogger())(resp, req)
	if resp.Code != http.StatusBadRequest {
		t.Fatalf("expected 400 got %d", resp.Code)
	}
}
