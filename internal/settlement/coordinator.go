// Package settlement drives campaigns through their terminal transitions:
// Open -> Settling -> {Settled, Expired, Cancelled}. Entry into Settling is a
// compare-and-swap on the campaign row, so exactly one actor runs the
// settlement body no matter how many triggers fire.
package settlement

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/sethvargo/go-retry"
	"go.uber.org/multierr"
	"gorm.io/gorm"

	"github.com/vyronamart/groupbuy-backend/internal/campaigns"
	"github.com/vyronamart/groupbuy-backend/internal/ledger"
	"github.com/vyronamart/groupbuy-backend/internal/notifications"
	"github.com/vyronamart/groupbuy-backend/internal/threshold"
	"github.com/vyronamart/groupbuy-backend/pkg/config"
	dbpkg "github.com/vyronamart/groupbuy-backend/pkg/db"
	"github.com/vyronamart/groupbuy-backend/pkg/db/models"
	dbtypes "github.com/vyronamart/groupbuy-backend/pkg/db/types"
	"github.com/vyronamart/groupbuy-backend/pkg/enums"
	pkgerrors "github.com/vyronamart/groupbuy-backend/pkg/errors"
	"github.com/vyronamart/groupbuy-backend/pkg/logger"
	"github.com/vyronamart/groupbuy-backend/pkg/metrics"
)

const recordUniqueConstraint = "settlement_records_campaign_id_key"

var errAlreadyRecorded = errors.New("settlement record already exists")

type txRunner interface {
	WithTx(ctx context.Context, fn func(tx *gorm.DB) error) error
}

type orderCreator interface {
	CreateForContribution(ctx context.Context, contribution *models.Contribution) (*models.GroupOrder, error)
}

// Status is the externally visible settlement state of a campaign.
type Status struct {
	CampaignID     uuid.UUID                `json:"campaign_id"`
	CampaignStatus enums.CampaignStatus     `json:"campaign_status"`
	Quarantined    bool                     `json:"quarantined"`
	Failure        *string                  `json:"failure,omitempty"`
	Record         *models.SettlementRecord `json:"record,omitempty"`
}

// Coordinator owns the campaign settlement state machine.
type Coordinator struct {
	campaignRepo campaigns.Repository
	ledgerRepo   ledger.Repository
	recordRepo   Repository
	orders       orderCreator
	provider     RefundProvider
	notifier     notifications.Dispatcher
	tx           txRunner
	metrics      *metrics.SettlementMetrics
	cfg          config.SettlementConfig
	logg         *logger.Logger
	now          func() time.Time
	locks        *campaignLocks
}

// CoordinatorParams groups the coordinator dependencies.
type CoordinatorParams struct {
	CampaignRepo campaigns.Repository
	LedgerRepo   ledger.Repository
	RecordRepo   Repository
	Orders       orderCreator
	Provider     RefundProvider
	Notifier     notifications.Dispatcher
	Tx           txRunner
	Metrics      *metrics.SettlementMetrics
	Config       config.SettlementConfig
	Logger       *logger.Logger
	Now          func() time.Time
}

// NewCoordinator builds the settlement coordinator.
func NewCoordinator(params CoordinatorParams) (*Coordinator, error) {
	if params.CampaignRepo == nil {
		return nil, fmt.Errorf("campaigns repository required")
	}
	if params.LedgerRepo == nil {
		return nil, fmt.Errorf("ledger repository required")
	}
	if params.RecordRepo == nil {
		return nil, fmt.Errorf("settlement record repository required")
	}
	if params.Orders == nil {
		return nil, fmt.Errorf("order creator required")
	}
	if params.Provider == nil {
		return nil, fmt.Errorf("refund provider required")
	}
	if params.Tx == nil {
		return nil, fmt.Errorf("tx runner required")
	}
	if params.Logger == nil {
		return nil, fmt.Errorf("logger required")
	}
	if params.Notifier == nil {
		params.Notifier = notifications.NopDispatcher{}
	}
	if params.Now == nil {
		params.Now = time.Now
	}
	return &Coordinator{
		campaignRepo: params.CampaignRepo,
		ledgerRepo:   params.LedgerRepo,
		recordRepo:   params.RecordRepo,
		orders:       params.Orders,
		provider:     params.Provider,
		notifier:     params.Notifier,
		tx:           params.Tx,
		metrics:      params.Metrics,
		cfg:          params.Config,
		logg:         params.Logger,
		now:          params.Now,
		locks:        newCampaignLocks(),
	}, nil
}

// TrySettle attempts to move the campaign into Settling and run the
// settlement body. Losing the compare-and-swap means another actor owns the
// transition; that is a clean no-op.
func (c *Coordinator) TrySettle(ctx context.Context, campaignID uuid.UUID) error {
	if campaignID == uuid.Nil {
		return pkgerrors.New(pkgerrors.CodeValidation, "campaign id required")
	}

	swapped, err := c.campaignRepo.CompareAndSwapStatus(ctx, campaignID, enums.CampaignStatusOpen, enums.CampaignStatusSettling)
	if err != nil {
		return pkgerrors.Wrap(pkgerrors.CodeInternal, err, "entering settling state")
	}
	if !swapped {
		return nil
	}
	return c.runSettling(ctx, campaignID)
}

// Retry re-runs the settlement body for a quarantined campaign.
func (c *Coordinator) Retry(ctx context.Context, campaignID uuid.UUID) error {
	campaign, err := c.loadCampaign(ctx, campaignID)
	if err != nil {
		return err
	}
	if campaign.Status != enums.CampaignStatusSettling {
		return pkgerrors.New(pkgerrors.CodeStateConflict, "campaign is not awaiting settlement retry")
	}
	return c.runSettling(ctx, campaignID)
}

// Cancel aborts the campaign, refunding every captured contribution. Allowed
// from Open or from a Settling state that has not yet produced a terminal
// record.
func (c *Coordinator) Cancel(ctx context.Context, campaignID uuid.UUID) error {
	if campaignID == uuid.Nil {
		return pkgerrors.New(pkgerrors.CodeValidation, "campaign id required")
	}

	// Hold the campaign lock for the whole abort so an in-flight settlement
	// retry cannot commit Settled between the record check and our refunds.
	release := c.locks.Acquire(campaignID)
	defer release()

	swapped, err := c.campaignRepo.CompareAndSwapStatus(ctx, campaignID, enums.CampaignStatusOpen, enums.CampaignStatusSettling)
	if err != nil {
		return pkgerrors.Wrap(pkgerrors.CodeInternal, err, "entering settling state")
	}
	if !swapped {
		campaign, err := c.loadCampaign(ctx, campaignID)
		if err != nil {
			return err
		}
		if campaign.Status != enums.CampaignStatusSettling {
			return pkgerrors.New(pkgerrors.CodeStateConflict,
				fmt.Sprintf("cannot cancel campaign in status %s", campaign.Status))
		}
		if _, err := c.recordRepo.FindByCampaign(ctx, campaignID); err == nil {
			return pkgerrors.New(pkgerrors.CodeStateConflict, "campaign already has a settlement record")
		} else if !errors.Is(err, gorm.ErrRecordNotFound) {
			return pkgerrors.Wrap(pkgerrors.CodeInternal, err, "loading settlement record")
		}
	}

	campaign, err := c.loadCampaign(ctx, campaignID)
	if err != nil {
		return err
	}
	contributions, err := c.ledgerRepo.ListByCampaign(ctx, campaignID)
	if err != nil {
		return pkgerrors.Wrap(pkgerrors.CodeInternal, err, "loading contributions")
	}

	// Totals snapshot first: refunds flip captured rows to refunded in place.
	snap := threshold.Summarize(contributions)

	refunded, err := c.refundCaptured(ctx, campaign, contributions)
	if err != nil {
		return c.quarantine(ctx, campaign, fmt.Sprintf("cancel refunds failed: %v", err))
	}

	record := &models.SettlementRecord{
		CampaignID:        campaignID,
		Outcome:           enums.SettlementOutcomeCancelled,
		TotalParticipants: snap.CapturedParticipants,
		TotalAmountCents:  snap.CapturedAmountCents,
	}
	if err := c.finalize(ctx, campaign, record, enums.CampaignStatusCancelled); err != nil {
		if errors.Is(err, errAlreadyRecorded) {
			return pkgerrors.New(pkgerrors.CodeStateConflict, "campaign already has a settlement record")
		}
		return c.quarantine(ctx, campaign, fmt.Sprintf("finalize failed: %v", err))
	}

	c.metrics.IncOutcome(string(enums.SettlementOutcomeCancelled))
	c.notifyParticipants(ctx, campaign, contributions, notifications.EventCampaignCancelled)
	c.logg.Info(c.logg.WithCampaignID(ctx, campaignID.String()), fmt.Sprintf("campaign cancelled, %d contributions refunded", refunded))
	return nil
}

// SweepDue finds campaigns whose settlement trigger is due: open ones past
// their deadline and open ones already at threshold. Returns how many were
// processed.
func (c *Coordinator) SweepDue(ctx context.Context, batchSize int) (int, error) {
	due, err := c.campaignRepo.ListOpenEndedBefore(ctx, c.now(), batchSize)
	if err != nil {
		return 0, pkgerrors.Wrap(pkgerrors.CodeInternal, err, "listing expired campaigns")
	}
	atThreshold, err := c.campaignRepo.ListOpenAtThreshold(ctx, batchSize)
	if err != nil {
		return 0, pkgerrors.Wrap(pkgerrors.CodeInternal, err, "listing threshold campaigns")
	}

	seen := make(map[uuid.UUID]struct{}, len(due)+len(atThreshold))
	processed := 0
	var sweepErr error
	for _, campaign := range append(due, atThreshold...) {
		if _, ok := seen[campaign.ID]; ok {
			continue
		}
		seen[campaign.ID] = struct{}{}
		if err := c.TrySettle(ctx, campaign.ID); err != nil {
			logCtx := c.logg.WithCampaignID(ctx, campaign.ID.String())
			c.logg.Error(logCtx, "sweep settlement failed", err)
			sweepErr = multierr.Append(sweepErr, err)
			continue
		}
		processed++
	}
	return processed, sweepErr
}

// Status reports the current settlement state of a campaign.
func (c *Coordinator) Status(ctx context.Context, campaignID uuid.UUID) (*Status, error) {
	campaign, err := c.loadCampaign(ctx, campaignID)
	if err != nil {
		return nil, err
	}

	status := &Status{
		CampaignID:     campaignID,
		CampaignStatus: campaign.Status,
		Quarantined:    campaign.Status == enums.CampaignStatusSettling && campaign.SettlementFailure != nil,
		Failure:        campaign.SettlementFailure,
	}
	record, err := c.recordRepo.FindByCampaign(ctx, campaignID)
	if err == nil {
		status.Record = record
	} else if !errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, pkgerrors.Wrap(pkgerrors.CodeInternal, err, "loading settlement record")
	}
	return status, nil
}

// AwaitOutcome polls the settlement state until it is terminal or the bounded
// wait elapses. The last observed status is returned either way.
func (c *Coordinator) AwaitOutcome(ctx context.Context, campaignID uuid.UUID, maxWait time.Duration) (*Status, error) {
	if maxWait <= 0 || maxWait > c.cfg.AwaitMaxWait {
		maxWait = c.cfg.AwaitMaxWait
	}
	deadline := c.now().Add(maxWait)

	for {
		status, err := c.Status(ctx, campaignID)
		if err != nil {
			return nil, err
		}
		if status.CampaignStatus.IsTerminal() || status.Quarantined {
			return status, nil
		}
		if c.now().After(deadline) {
			return status, nil
		}
		select {
		case <-ctx.Done():
			return status, nil
		case <-time.After(c.cfg.AwaitPollInterval):
		}
	}
}

// runSettling evaluates a fresh ledger snapshot and commits the matching
// terminal transition. Below-threshold snapshots revert to Open. The campaign
// lock serializes this against Cancel, which may race it out of Settling.
func (c *Coordinator) runSettling(ctx context.Context, campaignID uuid.UUID) error {
	release := c.locks.Acquire(campaignID)
	defer release()

	campaign, err := c.loadCampaign(ctx, campaignID)
	if err != nil {
		return err
	}
	if campaign.Status != enums.CampaignStatusSettling {
		// Another actor committed a terminal state while we waited.
		return nil
	}
	contributions, err := c.ledgerRepo.ListByCampaign(ctx, campaignID)
	if err != nil {
		return pkgerrors.Wrap(pkgerrors.CodeInternal, err, "loading contributions")
	}

	switch threshold.Evaluate(campaign, contributions, c.now()) {
	case threshold.StateThresholdMet:
		return c.fulfill(ctx, campaign, contributions)
	case threshold.StateExpired:
		return c.expire(ctx, campaign, contributions)
	default:
		_, err := c.campaignRepo.CompareAndSwapStatus(ctx, campaignID, enums.CampaignStatusSettling, enums.CampaignStatusOpen)
		if err != nil {
			return pkgerrors.Wrap(pkgerrors.CodeInternal, err, "reverting to open")
		}
		return nil
	}
}

func (c *Coordinator) fulfill(ctx context.Context, campaign *models.Campaign, contributions []models.Contribution) error {
	captured := capturedOnly(contributions)
	snap := threshold.Summarize(contributions)

	var orderIDs []uuid.UUID
	backoff := retry.WithMaxRetries(uint64(c.cfg.MaxOrderAttempts-1), retry.NewExponential(c.cfg.RetryBaseDelay))
	err := retry.Do(ctx, backoff, func(ctx context.Context) error {
		ids := make([]uuid.UUID, 0, len(captured))
		for i := range captured {
			order, err := c.orders.CreateForContribution(ctx, &captured[i])
			if err != nil {
				return retry.RetryableError(err)
			}
			ids = append(ids, order.ID)
		}
		orderIDs = ids
		return nil
	})
	if err != nil {
		return c.quarantine(ctx, campaign, fmt.Sprintf("order creation failed: %v", err))
	}

	record := &models.SettlementRecord{
		CampaignID:        campaign.ID,
		Outcome:           enums.SettlementOutcomeFulfilled,
		TotalParticipants: snap.CapturedParticipants,
		TotalAmountCents:  snap.CapturedAmountCents,
		GeneratedOrderIDs: dbtypes.UUIDArray(orderIDs),
	}
	if err := c.finalize(ctx, campaign, record, enums.CampaignStatusSettled); err != nil {
		if errors.Is(err, errAlreadyRecorded) {
			return nil
		}
		return c.quarantine(ctx, campaign, fmt.Sprintf("finalize failed: %v", err))
	}

	c.metrics.IncOutcome(string(enums.SettlementOutcomeFulfilled))
	for i := range captured {
		c.notifier.Dispatch(ctx, notifications.Event{
			Type:          notifications.EventCampaignSettled,
			CampaignID:    campaign.ID,
			ParticipantID: captured[i].ParticipantID,
			OrderID:       orderIDs[i],
			AmountCents:   captured[i].AmountCents,
		})
	}
	logCtx := c.logg.WithCampaignID(ctx, campaign.ID.String())
	c.logg.Info(logCtx, fmt.Sprintf("campaign settled with %d orders", len(orderIDs)))
	return nil
}

func (c *Coordinator) expire(ctx context.Context, campaign *models.Campaign, contributions []models.Contribution) error {
	// Totals snapshot first: refunds flip captured rows to refunded in place.
	snap := threshold.Summarize(contributions)

	refunded, err := c.refundCaptured(ctx, campaign, contributions)
	if err != nil {
		return c.quarantine(ctx, campaign, fmt.Sprintf("expiry refunds failed: %v", err))
	}

	record := &models.SettlementRecord{
		CampaignID:        campaign.ID,
		Outcome:           enums.SettlementOutcomeExpiredUnderThreshold,
		TotalParticipants: snap.CapturedParticipants,
		TotalAmountCents:  snap.CapturedAmountCents,
	}
	if err := c.finalize(ctx, campaign, record, enums.CampaignStatusExpired); err != nil {
		if errors.Is(err, errAlreadyRecorded) {
			return nil
		}
		return c.quarantine(ctx, campaign, fmt.Sprintf("finalize failed: %v", err))
	}

	c.metrics.IncOutcome(string(enums.SettlementOutcomeExpiredUnderThreshold))
	c.notifyParticipants(ctx, campaign, contributions, notifications.EventCampaignExpired)
	logCtx := c.logg.WithCampaignID(ctx, campaign.ID.String())
	c.logg.Info(logCtx, fmt.Sprintf("campaign expired under threshold, %d contributions refunded", refunded))
	return nil
}

// refundCaptured reverses every captured contribution with bounded retries.
// Refund keys are deterministic, so a partially completed pass picks up where
// it left off on the next attempt.
func (c *Coordinator) refundCaptured(ctx context.Context, campaign *models.Campaign, contributions []models.Contribution) (int, error) {
	refunded := 0
	for i := range contributions {
		contribution := &contributions[i]
		if contribution.Status != enums.ContributionStatusCaptured {
			continue
		}
		if contribution.PaymentReference == nil {
			return refunded, fmt.Errorf("contribution %s captured without payment reference", contribution.ID)
		}

		req := RefundRequest{
			PaymentID:      *contribution.PaymentReference,
			AmountCents:    contribution.AmountCents,
			Currency:       campaign.Currency.String(),
			IdempotencyKey: RefundKey(campaign.ID, contribution.ID),
			Reason:         "group buy campaign did not complete",
		}

		backoff := retry.WithMaxRetries(uint64(c.cfg.MaxOrderAttempts-1), retry.NewExponential(c.cfg.RetryBaseDelay))
		err := retry.Do(ctx, backoff, func(ctx context.Context) error {
			attemptCtx, cancel := context.WithTimeout(ctx, c.cfg.ProviderTimeout)
			defer cancel()
			if _, err := c.provider.Refund(attemptCtx, req); err != nil {
				return retry.RetryableError(err)
			}
			return nil
		})
		if err != nil {
			return refunded, fmt.Errorf("refunding contribution %s: %w", contribution.ID, err)
		}

		if err := c.ledgerRepo.Update(ctx, contribution.ID, map[string]any{
			"status": enums.ContributionStatusRefunded,
		}); err != nil {
			return refunded, fmt.Errorf("marking contribution %s refunded: %w", contribution.ID, err)
		}
		contribution.Status = enums.ContributionStatusRefunded
		refunded++
		c.metrics.IncRefund()

		c.notifier.Dispatch(ctx, notifications.Event{
			Type:          notifications.EventContributionRefunded,
			CampaignID:    campaign.ID,
			ParticipantID: contribution.ParticipantID,
			AmountCents:   contribution.AmountCents,
		})
	}
	return refunded, nil
}

// finalize writes the terminal record and leaves Settling in one transaction.
func (c *Coordinator) finalize(ctx context.Context, campaign *models.Campaign, record *models.SettlementRecord, terminal enums.CampaignStatus) error {
	completedAt := c.now().UTC()
	return c.tx.WithTx(ctx, func(tx *gorm.DB) error {
		recordRepo := c.recordRepo.WithTx(tx)
		campaignRepo := c.campaignRepo.WithTx(tx)

		if _, err := recordRepo.Create(ctx, record); err != nil {
			if dbpkg.IsUniqueViolation(err, recordUniqueConstraint) {
				return errAlreadyRecorded
			}
			return pkgerrors.Wrap(pkgerrors.CodeInternal, err, "writing settlement record")
		}

		swapped, err := campaignRepo.CompareAndSwapStatus(ctx, campaign.ID, enums.CampaignStatusSettling, terminal)
		if err != nil {
			return pkgerrors.Wrap(pkgerrors.CodeInternal, err, "committing terminal status")
		}
		if !swapped {
			return pkgerrors.New(pkgerrors.CodeStateConflict, "campaign left settling state unexpectedly")
		}

		return campaignRepo.Update(ctx, campaign.ID, map[string]any{
			"completed_at":       completedAt,
			"settlement_failure": nil,
		})
	})
}

// quarantine records the failure diagnostic and keeps the campaign in
// Settling so operators can retry. The ledger refuses new contributions while
// quarantined.
func (c *Coordinator) quarantine(ctx context.Context, campaign *models.Campaign, cause string) error {
	updates := map[string]any{
		"settlement_failure":  cause,
		"settlement_attempts": gorm.Expr("settlement_attempts + 1"),
	}
	logCtx := c.logg.WithCampaignID(ctx, campaign.ID.String())
	if err := c.campaignRepo.Update(ctx, campaign.ID, updates); err != nil {
		c.logg.Error(logCtx, "persisting quarantine diagnostic failed", err)
	}
	c.metrics.IncQuarantine()
	c.logg.Error(logCtx, "settlement quarantined", errors.New(cause))
	return pkgerrors.New(pkgerrors.CodeSettlement, "settlement requires operator attention").WithDetails(cause)
}

func (c *Coordinator) loadCampaign(ctx context.Context, campaignID uuid.UUID) (*models.Campaign, error) {
	campaign, err := c.campaignRepo.FindByID(ctx, campaignID)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, pkgerrors.New(pkgerrors.CodeNotFound, "campaign not found")
		}
		return nil, pkgerrors.Wrap(pkgerrors.CodeInternal, err, "loading campaign")
	}
	return campaign, nil
}

// notifyParticipants fans the terminal event out to each distinct captured or
// refunded participant.
func (c *Coordinator) notifyParticipants(ctx context.Context, campaign *models.Campaign, contributions []models.Contribution, event notifications.EventType) {
	seen := make(map[uuid.UUID]struct{})
	for i := range contributions {
		contribution := &contributions[i]
		switch contribution.Status {
		case enums.ContributionStatusCaptured, enums.ContributionStatusRefunded:
		default:
			continue
		}
		if _, ok := seen[contribution.ParticipantID]; ok {
			continue
		}
		seen[contribution.ParticipantID] = struct{}{}
		c.notifier.Dispatch(ctx, notifications.Event{
			Type:          event,
			CampaignID:    campaign.ID,
			ParticipantID: contribution.ParticipantID,
		})
	}
}

func capturedOnly(contributions []models.Contribution) []models.Contribution {
	out := make([]models.Contribution, 0, len(contributions))
	for _, c := range contributions {
		if c.Status == enums.ContributionStatusCaptured {
			out = append(out, c)
		}
	}
	return out
}
