package cron

import (
	"context"
	"fmt"

	"github.com/vyronamart/groupbuy-backend/pkg/logger"
)

type dueSettler interface {
	SweepDue(ctx context.Context, batchSize int) (int, error)
}

// SettlementSweepJobParams configure the settlement sweep job.
type SettlementSweepJobParams struct {
	Logger    *logger.Logger
	Settler   dueSettler
	BatchSize int
}

// NewSettlementSweepJob builds the job that settles campaigns whose trigger
// was missed: open campaigns past their deadline and open campaigns already
// at threshold.
func NewSettlementSweepJob(params SettlementSweepJobParams) (Job, error) {
	if params.Logger == nil {
		return nil, fmt.Errorf("logger required")
	}
	if params.Settler == nil {
		return nil, fmt.Errorf("settler required")
	}
	if params.BatchSize <= 0 {
		return nil, fmt.Errorf("batch size must be positive")
	}
	return &settlementSweepJob{
		logg:      params.Logger,
		settler:   params.Settler,
		batchSize: params.BatchSize,
	}, nil
}

type settlementSweepJob struct {
	logg      *logger.Logger
	settler   dueSettler
	batchSize int
}

func (j *settlementSweepJob) Name() string { return "settlement-sweep" }

func (j *settlementSweepJob) Run(ctx context.Context) error {
	processed, err := j.settler.SweepDue(ctx, j.batchSize)
	logCtx := j.logg.WithField(ctx, "processed", processed)
	if err != nil {
		return fmt.Errorf("sweep due campaigns: %w", err)
	}
	j.logg.Info(logCtx, "settlement sweep complete")
	return nil
}
