// Package payments drives the provider charge flow for contributions. Every
// call carries a deterministic idempotency key, so retries after timeouts can
// never double-charge a participant.
package payments

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/sethvargo/go-retry"
	sq "github.com/square/square-go-sdk"

	"github.com/vyronamart/groupbuy-backend/pkg/config"
	"github.com/vyronamart/groupbuy-backend/pkg/db/models"
	pkgerrors "github.com/vyronamart/groupbuy-backend/pkg/errors"
	"github.com/vyronamart/groupbuy-backend/pkg/logger"
	"github.com/vyronamart/groupbuy-backend/pkg/square"
)

type provider interface {
	CreatePayment(ctx context.Context, params square.PaymentCreateParams) (*sq.Payment, error)
	GetPayment(ctx context.Context, paymentID string) (*sq.Payment, error)
}

// Service charges contributions against the payment provider.
type Service interface {
	Charge(ctx context.Context, campaign *models.Campaign, contribution *models.Contribution, sourceID string) (string, error)
}

type service struct {
	provider provider
	cfg      config.SettlementConfig
	logg     *logger.Logger
	now      func() time.Time
}

// NewService builds the payments service.
func NewService(provider provider, cfg config.SettlementConfig, logg *logger.Logger) (Service, error) {
	if provider == nil {
		return nil, fmt.Errorf("payment provider required")
	}
	if logg == nil {
		return nil, fmt.Errorf("logger required")
	}
	return &service{provider: provider, cfg: cfg, logg: logg, now: time.Now}, nil
}

// ChargeKey derives the deterministic idempotency key for a contribution
// charge.
func ChargeKey(contribution *models.Contribution) string {
	return fmt.Sprintf("contribution:%s:%s", contribution.CampaignID, contribution.ID)
}

// Charge captures the contribution amount. A timed-out attempt is
// failed-unknown: the retry reuses the same idempotency key, so the provider
// either replays the original outcome or performs the charge once.
func (s *service) Charge(ctx context.Context, campaign *models.Campaign, contribution *models.Contribution, sourceID string) (string, error) {
	params := square.PaymentCreateParams{
		AmountCents:    int64(contribution.AmountCents),
		Currency:       campaign.Currency.String(),
		SourceID:       sourceID,
		IdempotencyKey: ChargeKey(contribution),
		ReferenceID:    contribution.ID.String(),
		Note:           fmt.Sprintf("group buy %s", campaign.Title),
	}

	backoff := retry.WithMaxRetries(uint64(s.cfg.MaxOrderAttempts-1), retry.NewExponential(s.cfg.RetryBaseDelay))

	var paymentID string
	err := retry.Do(ctx, backoff, func(ctx context.Context) error {
		attemptCtx, cancel := context.WithTimeout(ctx, s.cfg.ProviderTimeout)
		defer cancel()

		payment, err := s.provider.CreatePayment(attemptCtx, params)
		if err != nil {
			if retryableProviderError(err) {
				return retry.RetryableError(err)
			}
			return err
		}

		id := stringValue(payment.GetID())
		status := stringValue(payment.GetStatus())
		switch status {
		case "COMPLETED":
			paymentID = id
			return nil
		case "APPROVED", "PENDING":
			resolved, err := s.awaitPaymentCompletion(ctx, id)
			if err != nil {
				return retry.RetryableError(err)
			}
			paymentID = resolved
			return nil
		default:
			return pkgerrors.New(pkgerrors.CodeDependency, fmt.Sprintf("payment %s ended in status %s", id, status))
		}
	})
	if err != nil {
		return "", err
	}
	return paymentID, nil
}

// awaitPaymentCompletion resolves a non-terminal payment through the provider
// status query instead of blindly re-creating it.
func (s *service) awaitPaymentCompletion(ctx context.Context, paymentID string) (string, error) {
	deadline := s.now().Add(s.cfg.ProviderTimeout)
	for {
		payment, err := s.provider.GetPayment(ctx, paymentID)
		if err != nil {
			return "", err
		}
		switch stringValue(payment.GetStatus()) {
		case "COMPLETED":
			return paymentID, nil
		case "FAILED", "CANCELED":
			return "", pkgerrors.New(pkgerrors.CodeDependency, fmt.Sprintf("payment %s did not complete", paymentID))
		}
		if s.now().After(deadline) {
			return "", pkgerrors.New(pkgerrors.CodeDependency, fmt.Sprintf("payment %s still pending", paymentID))
		}
		select {
		case <-ctx.Done():
			return "", ctx.Err()
		case <-time.After(s.cfg.RetryBaseDelay):
		}
	}
}

func retryableProviderError(err error) bool {
	if errors.Is(err, context.DeadlineExceeded) {
		return true
	}
	if domainErr := pkgerrors.As(err); domainErr != nil {
		switch domainErr.Code() {
		case pkgerrors.CodeDependency, pkgerrors.CodeRateLimit:
			return true
		case pkgerrors.CodeIdempotency:
			// The key was already used: the original attempt went through.
			return false
		}
		return false
	}
	return true
}

func stringValue(value *string) string {
	if value == nil {
		return ""
	}
	return *value
}
