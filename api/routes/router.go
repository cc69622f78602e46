package routes

import (
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/vyronamart/groupbuy-backend/api/controllers"
	"github.com/vyronamart/groupbuy-backend/api/middleware"
	"github.com/vyronamart/groupbuy-backend/internal/campaigns"
	"github.com/vyronamart/groupbuy-backend/internal/ledger"
	"github.com/vyronamart/groupbuy-backend/internal/payments"
	"github.com/vyronamart/groupbuy-backend/pkg/config"
	"github.com/vyronamart/groupbuy-backend/pkg/db"
	"github.com/vyronamart/groupbuy-backend/pkg/enums"
	"github.com/vyronamart/groupbuy-backend/pkg/logger"
	"github.com/vyronamart/groupbuy-backend/pkg/redis"
)

func NewRouter(
	cfg *config.Config,
	logg *logger.Logger,
	dbP db.Pinger,
	redisClient *redis.Client,
	campaignService campaigns.Service,
	ledgerService ledger.Service,
	paymentService payments.Service,
	settlementService controllers.SettlementService,
) http.Handler {
	r := chi.NewRouter()
	r.Use(
		middleware.Recoverer(logg),
		middleware.RequestID(logg),
		middleware.Logging(logg),
	)

	r.Route("/health", func(r chi.Router) {
		r.Get("/live", controllers.HealthLive(cfg))
		r.Get("/ready", controllers.HealthReady(cfg, logg, dbP, redisClient))
	})

	r.Method(http.MethodGet, "/metrics", promhttp.Handler())

	r.Route("/api/v1", func(r chi.Router) {
		r.Use(middleware.Auth(cfg.JWT, logg))
		r.Use(middleware.Idempotency(redisClient, logg))

		r.Route("/campaigns", func(r chi.Router) {
			r.Post("/", controllers.CampaignCreate(campaignService, logg))
			r.Get("/", controllers.CampaignList(campaignService, logg))
			r.Route("/{campaignId}", func(r chi.Router) {
				r.Get("/", controllers.CampaignDetail(campaignService, ledgerService, logg))
				r.Post("/contributions", controllers.ContributionJoin(campaignService, ledgerService, paymentService, logg))
				r.Get("/contributions", controllers.ContributionList(ledgerService, logg))
				r.Get("/settlement", controllers.SettlementStatus(settlementService, logg))

				r.Group(func(r chi.Router) {
					r.Use(middleware.RequireRole(enums.ActorRoleOperator.String(), logg))
					r.Post("/cancel", controllers.CampaignCancel(settlementService, logg))
					r.Post("/settlement/retry", controllers.SettlementRetry(settlementService, logg))
				})
			})
		})

		r.Post("/contributions/{contributionId}/capture", controllers.ContributionCapture(ledgerService, logg))
	})

	return r
}
