package main

import (
	"context"
	"errors"
	"fmt"
	"os"
	"os/signal"
	"time"

	"github.com/joho/godotenv"
	"github.com/prometheus/client_golang/prometheus"

	"github.com/vyronamart/groupbuy-backend/internal/campaigns"
	"github.com/vyronamart/groupbuy-backend/internal/cron"
	"github.com/vyronamart/groupbuy-backend/internal/ledger"
	"github.com/vyronamart/groupbuy-backend/internal/notifications"
	"github.com/vyronamart/groupbuy-backend/internal/orders"
	"github.com/vyronamart/groupbuy-backend/internal/settlement"
	"github.com/vyronamart/groupbuy-backend/pkg/config"
	"github.com/vyronamart/groupbuy-backend/pkg/db"
	"github.com/vyronamart/groupbuy-backend/pkg/logger"
	"github.com/vyronamart/groupbuy-backend/pkg/metrics"
	"github.com/vyronamart/groupbuy-backend/pkg/migrate"
	"github.com/vyronamart/groupbuy-backend/pkg/pubsub"
	"github.com/vyronamart/groupbuy-backend/pkg/redis"
	"github.com/vyronamart/groupbuy-backend/pkg/square"
)

func main() {
	logg := logger.New(logger.Options{ServiceName: "sweep-worker"})

	if err := godotenv.Load(); err != nil {
		logg.Warn(context.Background(), ".env file not found, relying on environment")
	}

	cfg, err := config.Load()
	if err != nil {
		logg.Error(context.Background(), "failed to load config", err)
		os.Exit(1)
	}

	cfg.Service.Kind = "sweep-worker"

	logg = logger.New(logger.Options{
		ServiceName: "sweep-worker",
		Level:       logger.ParseLevel(cfg.App.LogLevel),
		WarnStack:   cfg.App.LogWarnStack,
	})

	dbClient, err := db.New(context.Background(), cfg.DB, logg)
	if err != nil {
		logg.Error(context.Background(), "failed to bootstrap database", err)
		os.Exit(1)
	}
	defer func() {
		if err := dbClient.Close(); err != nil {
			logg.Error(context.Background(), "error closing database", err)
		}
	}()

	if err := migrate.MaybeRunDev(context.Background(), cfg, logg, dbClient); err != nil {
		logg.Error(context.Background(), "failed to run dev migrations", err)
		os.Exit(1)
	}

	redisClient, err := redis.New(context.Background(), cfg.Redis, logg)
	if err != nil {
		logg.Error(context.Background(), "failed to bootstrap redis", err)
		os.Exit(1)
	}
	defer func() {
		if err := redisClient.Close(); err != nil {
			logg.Error(context.Background(), "error closing redis", err)
		}
	}()

	squareClient, err := square.NewClient(context.Background(), cfg.Square, logg)
	if err != nil {
		logg.Error(context.Background(), "failed to bootstrap square", err)
		os.Exit(1)
	}

	var dispatcher notifications.Dispatcher = notifications.NopDispatcher{}
	if cfg.GCP.ProjectID != "" {
		pubsubClient, err := pubsub.NewClient(context.Background(), cfg.GCP, cfg.PubSub, logg)
		if err != nil {
			logg.Error(context.Background(), "failed to bootstrap pubsub", err)
			os.Exit(1)
		}
		defer func() {
			if err := pubsubClient.Close(); err != nil {
				logg.Error(context.Background(), "error closing pubsub", err)
			}
		}()
		dispatcher, err = notifications.NewDispatcher(pubsubClient.NotificationPublisher(), logg, time.Now)
		if err != nil {
			logg.Error(context.Background(), "failed to create notification dispatcher", err)
			os.Exit(1)
		}
	} else {
		logg.Warn(context.Background(), "GCP project not configured, participant events disabled")
	}

	campaignRepo := campaigns.NewRepository(dbClient.DB())
	ledgerRepo := ledger.NewRepository(dbClient.DB())
	recordRepo := settlement.NewRepository(dbClient.DB())

	orderService, err := orders.NewService(orders.NewRepository(dbClient.DB()))
	if err != nil {
		logg.Error(context.Background(), "failed to create order service", err)
		os.Exit(1)
	}

	refunder, err := settlement.NewSquareRefunder(squareClient)
	if err != nil {
		logg.Error(context.Background(), "failed to create refund provider", err)
		os.Exit(1)
	}

	coordinator, err := settlement.NewCoordinator(settlement.CoordinatorParams{
		CampaignRepo: campaignRepo,
		LedgerRepo:   ledgerRepo,
		RecordRepo:   recordRepo,
		Orders:       orderService,
		Provider:     refunder,
		Notifier:     dispatcher,
		Tx:           dbClient,
		Metrics:      metrics.NewSettlementMetrics(prometheus.DefaultRegisterer),
		Config:       cfg.Settlement,
		Logger:       logg,
	})
	if err != nil {
		logg.Error(context.Background(), "failed to create settlement coordinator", err)
		os.Exit(1)
	}

	sweepJob, err := cron.NewSettlementSweepJob(cron.SettlementSweepJobParams{
		Logger:    logg,
		Settler:   coordinator,
		BatchSize: cfg.Sweep.BatchSize,
	})
	if err != nil {
		logg.Error(context.Background(), "failed to create settlement sweep job", err)
		os.Exit(1)
	}

	reportJob, err := cron.NewQuarantineReportJob(cron.QuarantineReportJobParams{
		Logger:    logg,
		Campaigns: campaignRepo,
		BatchSize: cfg.Sweep.BatchSize,
	})
	if err != nil {
		logg.Error(context.Background(), "failed to create quarantine report job", err)
		os.Exit(1)
	}

	lock, err := cron.NewRedisLock(redisClient, redisClient.LockKey(lockName(cfg.App.Env)), 0)
	if err != nil {
		logg.Error(context.Background(), "failed to create sweep lock", err)
		os.Exit(1)
	}

	service, err := cron.NewService(cron.ServiceParams{
		Logger:   logg,
		Registry: cron.NewRegistry(sweepJob, reportJob),
		Lock:     lock,
		Metrics:  metrics.NewSweepJobMetrics(prometheus.DefaultRegisterer),
		Interval: cfg.Sweep.Interval,
	})
	if err != nil {
		logg.Error(context.Background(), "failed to create sweep service", err)
		os.Exit(1)
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt)
	defer stop()
	ctx = logg.WithFields(ctx, map[string]any{
		"env":         cfg.App.Env,
		"serviceKind": cfg.Service.Kind,
	})
	logg.Info(ctx, "starting sweep worker")

	if err := service.Run(ctx); err != nil && !errors.Is(err, context.Canceled) {
		logg.Error(ctx, "sweep worker stopped unexpectedly", err)
		os.Exit(1)
	}

	logg.Info(ctx, "sweep worker shutting down gracefully")
}

func lockName(env string) string {
	if env == "" {
		env = "local"
	}
	return fmt.Sprintf("sweep-worker:%s", env)
}
