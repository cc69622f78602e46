package main

import (
	"context"
	"net/http"
	"os"
	"time"

	"github.com/joho/godotenv"
	"github.com/prometheus/client_golang/prometheus"

	"github.com/vyronamart/groupbuy-backend/api/routes"
	"github.com/vyronamart/groupbuy-backend/internal/campaigns"
	"github.com/vyronamart/groupbuy-backend/internal/ledger"
	"github.com/vyronamart/groupbuy-backend/internal/notifications"
	"github.com/vyronamart/groupbuy-backend/internal/orders"
	"github.com/vyronamart/groupbuy-backend/internal/payments"
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
	logg := logger.New(logger.Options{ServiceName: "api"})

	if err := godotenv.Load(); err != nil {
		logg.Warn(context.Background(), ".env file not found, relying on environment")
	}

	cfg, err := config.Load()
	if err != nil {
		logg.Error(context.Background(), "failed to load config", err)
		os.Exit(1)
	}

	logg = logger.New(logger.Options{
		ServiceName: "api",
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

	ledgerService, err := ledger.NewService(ledger.ServiceParams{
		Repo:         ledgerRepo,
		CampaignRepo: campaignRepo,
		Tx:           dbClient,
		Settler:      coordinator,
		Logger:       logg,
	})
	if err != nil {
		logg.Error(context.Background(), "failed to create ledger service", err)
		os.Exit(1)
	}

	paymentService, err := payments.NewService(squareClient, cfg.Settlement, logg)
	if err != nil {
		logg.Error(context.Background(), "failed to create payment service", err)
		os.Exit(1)
	}

	campaignService, err := campaigns.NewService(campaignRepo, time.Now)
	if err != nil {
		logg.Error(context.Background(), "failed to create campaign service", err)
		os.Exit(1)
	}

	port := os.Getenv("PORT")
	if port == "" {
		port = cfg.App.Port
	}
	addr := ":" + port
	ctx := logg.WithFields(context.Background(), map[string]any{
		"env":  cfg.App.Env,
		"addr": addr,
	})
	logg.Info(ctx, "starting api server")

	server := &http.Server{
		Addr:    addr,
		Handler: routes.NewRouter(cfg, logg, dbClient, redisClient, campaignService, ledgerService, paymentService, coordinator),
	}

	if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
		logg.Error(ctx, "api server stopped unexpectedly", err)
		os.Exit(1)
	}
}
