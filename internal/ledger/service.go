package ledger

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/vyronamart/groupbuy-backend/internal/campaigns"
	"github.com/vyronamart/groupbuy-backend/pkg/db/models"
	"github.com/vyronamart/groupbuy-backend/pkg/enums"
	pkgerrors "github.com/vyronamart/groupbuy-backend/pkg/errors"
	"github.com/vyronamart/groupbuy-backend/pkg/logger"
)

type txRunner interface {
	WithTx(ctx context.Context, fn func(tx *gorm.DB) error) error
}

// settler receives capture events so threshold checks run without waiting for
// the sweep.
type settler interface {
	TrySettle(ctx context.Context, campaignID uuid.UUID) error
}

// Service defines contribution ledger operations.
type Service interface {
	Append(ctx context.Context, campaignID, participantID uuid.UUID, quantity int) (*models.Contribution, error)
	MarkCaptured(ctx context.Context, contributionID uuid.UUID, paymentReference string) (*models.Contribution, error)
	MarkFailed(ctx context.Context, contributionID uuid.UUID, reason string) (*models.Contribution, error)
	List(ctx context.Context, campaignID uuid.UUID) ([]models.Contribution, error)
}

type service struct {
	repo         Repository
	campaignRepo campaigns.Repository
	tx           txRunner
	settler      settler
	locks        *campaignLocks
	logg         *logger.Logger
	now          func() time.Time
}

// ServiceParams groups the ledger service dependencies.
type ServiceParams struct {
	Repo         Repository
	CampaignRepo campaigns.Repository
	Tx           txRunner
	Settler      settler
	Logger       *logger.Logger
	Now          func() time.Time
}

// NewService builds the ledger service.
func NewService(params ServiceParams) (Service, error) {
	if params.Repo == nil {
		return nil, fmt.Errorf("ledger repository required")
	}
	if params.CampaignRepo == nil {
		return nil, fmt.Errorf("campaigns repository required")
	}
	if params.Tx == nil {
		return nil, fmt.Errorf("tx runner required")
	}
	if params.Logger == nil {
		return nil, fmt.Errorf("logger required")
	}
	if params.Now == nil {
		params.Now = time.Now
	}
	return &service{
		repo:         params.Repo,
		campaignRepo: params.CampaignRepo,
		tx:           params.Tx,
		settler:      params.Settler,
		locks:        newCampaignLocks(),
		logg:         params.Logger,
		now:          params.Now,
	}, nil
}

// Append admits a participant's contribution. The per-campaign lock plus the
// row lock on the campaign make capacity checks and sequence assignment
// race-free.
func (s *service) Append(ctx context.Context, campaignID, participantID uuid.UUID, quantity int) (*models.Contribution, error) {
	if campaignID == uuid.Nil {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "campaign id required")
	}
	if participantID == uuid.Nil {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "participant id required")
	}
	if quantity <= 0 {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "quantity must be positive")
	}

	release := s.locks.Acquire(campaignID)
	defer release()

	var contribution *models.Contribution
	err := s.tx.WithTx(ctx, func(tx *gorm.DB) error {
		campaignRepo := s.campaignRepo.WithTx(tx)
		repo := s.repo.WithTx(tx)

		campaign, err := campaignRepo.FindByIDForUpdate(ctx, campaignID)
		if err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				return pkgerrors.New(pkgerrors.CodeNotFound, "campaign not found")
			}
			return err
		}
		if campaign.Status != enums.CampaignStatusOpen {
			return pkgerrors.New(pkgerrors.CodeStateConflict, "campaign is not open")
		}
		if s.now().After(campaign.EndDate) {
			return pkgerrors.New(pkgerrors.CodeStateConflict, "campaign deadline has passed")
		}

		totals, err := repo.ActiveTotals(ctx, campaignID)
		if err != nil {
			return err
		}
		if totals.Quantity+quantity > campaign.CapacityUnits() {
			return pkgerrors.New(pkgerrors.CodeCapacity, "campaign capacity exceeded")
		}

		alreadyIn, err := repo.HasActiveParticipant(ctx, campaignID, participantID)
		if err != nil {
			return err
		}
		if !alreadyIn && totals.Participants+1 > campaign.MaxParticipants {
			return pkgerrors.New(pkgerrors.CodeCapacity, "participant limit reached")
		}

		maxSeq, err := repo.MaxSequenceNumber(ctx, campaignID)
		if err != nil {
			return err
		}

		contribution = &models.Contribution{
			CampaignID:     campaignID,
			ParticipantID:  participantID,
			SequenceNumber: maxSeq + 1,
			Quantity:       quantity,
			AmountCents:    quantity * campaign.EffectiveUnitPriceCents(),
			Status:         enums.ContributionStatusPending,
		}
		_, err = repo.Create(ctx, contribution)
		return err
	})
	if err != nil {
		return nil, err
	}
	return contribution, nil
}

// MarkCaptured confirms payment for a contribution. Repeating the same
// capture is a no-op; a conflicting reference or a terminal state fails.
func (s *service) MarkCaptured(ctx context.Context, contributionID uuid.UUID, paymentReference string) (*models.Contribution, error) {
	if contributionID == uuid.Nil {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "contribution id required")
	}
	reference := strings.TrimSpace(paymentReference)
	if reference == "" {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "payment reference required")
	}

	var contribution *models.Contribution
	err := s.tx.WithTx(ctx, func(tx *gorm.DB) error {
		repo := s.repo.WithTx(tx)

		current, err := repo.FindByIDForUpdate(ctx, contributionID)
		if err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				return pkgerrors.New(pkgerrors.CodeNotFound, "contribution not found")
			}
			return err
		}

		switch current.Status {
		case enums.ContributionStatusCaptured:
			if current.PaymentReference != nil && *current.PaymentReference == reference {
				contribution = current
				return nil
			}
			return pkgerrors.New(pkgerrors.CodeStateConflict, "contribution captured with a different payment reference")
		case enums.ContributionStatusPending, enums.ContributionStatusAuthorized:
			confirmedAt := s.now().UTC()
			updates := map[string]any{
				"status":            enums.ContributionStatusCaptured,
				"payment_reference": reference,
				"confirmed_at":      confirmedAt,
			}
			if err := repo.Update(ctx, contributionID, updates); err != nil {
				return err
			}
			current.Status = enums.ContributionStatusCaptured
			current.PaymentReference = &reference
			current.ConfirmedAt = &confirmedAt
			contribution = current
			return nil
		default:
			return pkgerrors.New(pkgerrors.CodeStateConflict,
				fmt.Sprintf("cannot capture contribution in status %s", current.Status))
		}
	})
	if err != nil {
		return nil, err
	}

	s.triggerSettlement(ctx, contribution.CampaignID)
	return contribution, nil
}

// MarkFailed records a payment failure. Repeating the same failure is a
// no-op; captured or refunded contributions cannot fail.
func (s *service) MarkFailed(ctx context.Context, contributionID uuid.UUID, reason string) (*models.Contribution, error) {
	if contributionID == uuid.Nil {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "contribution id required")
	}

	var contribution *models.Contribution
	err := s.tx.WithTx(ctx, func(tx *gorm.DB) error {
		repo := s.repo.WithTx(tx)

		current, err := repo.FindByIDForUpdate(ctx, contributionID)
		if err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				return pkgerrors.New(pkgerrors.CodeNotFound, "contribution not found")
			}
			return err
		}

		switch current.Status {
		case enums.ContributionStatusFailed:
			contribution = current
			return nil
		case enums.ContributionStatusPending, enums.ContributionStatusAuthorized:
			trimmed := strings.TrimSpace(reason)
			updates := map[string]any{
				"status":         enums.ContributionStatusFailed,
				"failure_reason": trimmed,
			}
			if err := repo.Update(ctx, contributionID, updates); err != nil {
				return err
			}
			current.Status = enums.ContributionStatusFailed
			current.FailureReason = &trimmed
			contribution = current
			return nil
		default:
			return pkgerrors.New(pkgerrors.CodeStateConflict,
				fmt.Sprintf("cannot fail contribution in status %s", current.Status))
		}
	})
	if err != nil {
		return nil, err
	}
	return contribution, nil
}

func (s *service) List(ctx context.Context, campaignID uuid.UUID) ([]models.Contribution, error) {
	if campaignID == uuid.Nil {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "campaign id required")
	}
	contributions, err := s.repo.ListByCampaign(ctx, campaignID)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeInternal, err, "listing contributions")
	}
	return contributions, nil
}

// triggerSettlement kicks the coordinator after a capture. Settlement has its
// own durability via the sweep, so errors are only logged here.
func (s *service) triggerSettlement(ctx context.Context, campaignID uuid.UUID) {
	if s.settler == nil {
		return
	}
	if err := s.settler.TrySettle(ctx, campaignID); err != nil {
		ctx = s.logg.WithCampaignID(ctx, campaignID.String())
		s.logg.Error(ctx, "settlement trigger after capture failed", err)
	}
}
