package cron

import (
	"context"
	"fmt"

	"github.com/vyronamart/groupbuy-backend/pkg/db/models"
	"github.com/vyronamart/groupbuy-backend/pkg/logger"
)

type settlingLister interface {
	ListSettling(ctx context.Context, limit int) ([]models.Campaign, error)
}

// QuarantineReportJobParams configure the quarantine report job.
type QuarantineReportJobParams struct {
	Logger    *logger.Logger
	Campaigns settlingLister
	BatchSize int
}

// NewQuarantineReportJob builds the job that surfaces campaigns stuck in
// Settling with a recorded failure so operators can retry them.
func NewQuarantineReportJob(params QuarantineReportJobParams) (Job, error) {
	if params.Logger == nil {
		return nil, fmt.Errorf("logger required")
	}
	if params.Campaigns == nil {
		return nil, fmt.Errorf("campaigns lister required")
	}
	if params.BatchSize <= 0 {
		return nil, fmt.Errorf("batch size must be positive")
	}
	return &quarantineReportJob{
		logg:      params.Logger,
		campaigns: params.Campaigns,
		batchSize: params.BatchSize,
	}, nil
}

type quarantineReportJob struct {
	logg      *logger.Logger
	campaigns settlingLister
	batchSize int
}

func (j *quarantineReportJob) Name() string { return "quarantine-report" }

func (j *quarantineReportJob) Run(ctx context.Context) error {
	settling, err := j.campaigns.ListSettling(ctx, j.batchSize)
	if err != nil {
		return fmt.Errorf("list settling campaigns: %w", err)
	}
	quarantined := 0
	for i := range settling {
		campaign := &settling[i]
		if campaign.SettlementFailure == nil {
			continue
		}
		quarantined++
		logCtx := j.logg.WithCampaignID(ctx, campaign.ID.String())
		logCtx = j.logg.WithFields(logCtx, map[string]any{
			"attempts": campaign.SettlementAttempts,
			"failure":  *campaign.SettlementFailure,
		})
		j.logg.Warn(logCtx, "campaign settlement quarantined")
	}
	if quarantined > 0 {
		j.logg.Info(j.logg.WithField(ctx, "count", quarantined), "quarantine report complete")
	}
	return nil
}
