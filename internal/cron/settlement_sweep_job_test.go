package cron

import (
	"context"
	"errors"
	"testing"

	"github.com/vyronamart/groupbuy-backend/pkg/logger"
)

type fakeSettler struct {
	processed int
	batchSize int
	err       error
}

func (f *fakeSettler) SweepDue(ctx context.Context, batchSize int) (int, error) {
	f.batchSize = batchSize
	return f.processed, f.err
}

func TestSettlementSweepJobRunsSettler(t *testing.T) {
	logg := logger.New(logger.Options{ServiceName: "sweep-test"})
	settler := &fakeSettler{processed: 3}
	job, err := NewSettlementSweepJob(SettlementSweepJobParams{
		Logger:    logg,
		Settler:   settler,
		BatchSize: 50,
	})
	if err != nil {
		t.Fatalf("construct job: %v", err)
	}
	if err := job.Run(context.Background()); err != nil {
		t.Fatalf("run job: %v", err)
	}
	if settler.batchSize != 50 {
		t.Fatalf("expected batch size 50, got %d", settler.batchSize)
	}
}

func TestSettlementSweepJobPropagatesError(t *testing.T) {
	logg := logger.New(logger.Options{ServiceName: "sweep-test"})
	job, err := NewSettlementSweepJob(SettlementSweepJobParams{
		Logger:    logg,
		Settler:   &fakeSettler{err: errors.New("db down")},
		BatchSize: 10,
	})
	if err != nil {
		t.Fatalf("construct job: %v", err)
	}
	if err := job.Run(context.Background()); err == nil {
		t.Fatal("expected error from failing settler")
	}
}
